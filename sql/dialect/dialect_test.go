// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dialect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meshql/meshql/sql/ast"
)

func TestQuoteIdentifier(t *testing.T) {
	cases := []struct {
		dialect  ID
		name     string
		expected string
	}{
		{MySQL, "order", "`order`"},
		{Hive, "order", "`order`"},
		{Postgres, "order", `"order"`},
		{Oracle, "order", `"order"`},
		{ANSI, "order", `"order"`},
		{SQLServer, "order", "[order]"},
		{Postgres, `emb"edded`, `"emb""edded"`},
		{SQLServer, "emb]edded", "[emb]]edded]"},
	}

	for _, tt := range cases {
		require.Equal(t, tt.expected, QuoteIdentifier(tt.name, tt.dialect))
	}
}

func TestNeedsQuoting(t *testing.T) {
	require := require.New(t)

	require.True(NeedsQuoting("select"))
	require.True(NeedsQuoting("Order"))
	require.True(NeedsQuoting("my col"))
	require.True(NeedsQuoting("1st"))
	require.False(NeedsQuoting("users"))
	require.False(NeedsQuoting("user_id"))
}

func mustParseLimit(t *testing.T, count, offset int64) *ast.Select {
	t.Helper()
	sel := &ast.Select{
		Projection: []ast.SelectItem{{Expr: &ast.Star{}}},
		From:       &ast.TableRef{Name: ast.NewIdentifier(ast.Pos{}, "users")},
		Limit:      &ast.Limit{Count: count, Offset: offset},
	}
	return sel
}

func TestPaginationRendering(t *testing.T) {
	cases := []struct {
		name     string
		target   ID
		count    int64
		offset   int64
		contains string
	}{
		{"mysql", MySQL, 10, 5, "LIMIT 10 OFFSET 5"},
		{"postgres", Postgres, 10, 5, "LIMIT 10 OFFSET 5"},
		{"oracle", Oracle, 10, 5, "OFFSET 5 ROWS FETCH NEXT 10 ROWS ONLY"},
		{"sqlserver", SQLServer, 10, 0, "OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY"},
		{"hive", Hive, 10, 0, "LIMIT 10"},
		{"ansi", ANSI, 10, 0, "FETCH FIRST 10 ROWS ONLY"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			out, err := Unparse(mustParseLimit(t, tt.count, tt.offset), tt.target)
			require.NoError(err)
			require.Contains(out, tt.contains)
		})
	}
}

func TestOracleLegacyPagination(t *testing.T) {
	require := require.New(t)

	out, err := Unparse(mustParseLimit(t, 10, 5), Oracle, WithLegacyPagination())
	require.NoError(err)
	require.Contains(out, "WHERE ROWNUM BETWEEN 6 AND 15")
}

func TestBooleanLiteralRendering(t *testing.T) {
	lit := &ast.Select{
		Projection: []ast.SelectItem{{Expr: &ast.Literal{Kind: ast.BoolLiteral, Value: true}}},
	}

	cases := []struct {
		target   ID
		expected string
	}{
		{Postgres, "TRUE"},
		{ANSI, "TRUE"},
		{Hive, "TRUE"},
		{MySQL, "1"},
		{Oracle, "1"},
		{SQLServer, "1"},
	}

	for _, tt := range cases {
		out, err := Unparse(lit, tt.target)
		require.NoError(t, err)
		require.Contains(t, out, tt.expected)
	}
}

func TestCurrentTimestampRendering(t *testing.T) {
	now := &ast.Select{
		Projection: []ast.SelectItem{{Expr: &ast.CurrentTimestamp{}}},
	}

	cases := []struct {
		target   ID
		expected string
	}{
		{MySQL, "NOW()"},
		{Postgres, "NOW()"},
		{Oracle, "SYSDATE"},
		{SQLServer, "GETDATE()"},
		{Hive, "CURRENT_TIMESTAMP"},
		{ANSI, "CURRENT_TIMESTAMP"},
	}

	for _, tt := range cases {
		out, err := Unparse(now, tt.target)
		require.NoError(t, err)
		require.Contains(t, out, tt.expected)
	}
}

func TestEmptyFromRendering(t *testing.T) {
	require := require.New(t)

	sel := &ast.Select{
		Projection: []ast.SelectItem{{Expr: &ast.Literal{Kind: ast.NumberLiteral, Value: int64(1), Raw: "1"}}},
	}

	out, err := Unparse(sel, Oracle)
	require.NoError(err)
	require.Contains(out, "FROM DUAL")

	out, err = Unparse(sel, MySQL)
	require.NoError(err)
	require.NotContains(out, "FROM")
}

func TestKeywordIdentifiersAlwaysQuoted(t *testing.T) {
	sel := &ast.Select{
		Projection: []ast.SelectItem{{Expr: ast.NewIdentifier(ast.Pos{}, "select")}},
		From:       &ast.TableRef{Name: ast.NewIdentifier(ast.Pos{}, "order")},
	}

	cases := []struct {
		target   ID
		col      string
		table    string
	}{
		{MySQL, "`select`", "`order`"},
		{Postgres, `"select"`, `"order"`},
		{SQLServer, "[select]", "[order]"},
	}

	for _, tt := range cases {
		out, err := Unparse(sel, tt.target)
		require.NoError(t, err)
		require.Contains(t, out, tt.col)
		require.Contains(t, out, tt.table)
	}
}

func TestCheckUnsupportedFeatures(t *testing.T) {
	require := require.New(t)

	fullJoin := &ast.Select{
		Projection: []ast.SelectItem{{Expr: &ast.Star{}}},
		From: &ast.Join{
			Type:  ast.FullJoin,
			Left:  &ast.TableRef{Name: ast.NewIdentifier(ast.Pos{Line: 1, Column: 15}, "a")},
			Right: &ast.TableRef{Name: ast.NewIdentifier(ast.Pos{}, "b")},
			On: &ast.BinaryExpr{
				Op:    "=",
				Left:  ast.NewIdentifier(ast.Pos{}, "a", "id"),
				Right: ast.NewIdentifier(ast.Pos{}, "b", "id"),
			},
			Position: ast.Pos{Line: 1, Column: 15},
		},
	}

	unsupported := Check(fullJoin, MySQL)
	require.Len(unsupported, 1)
	require.Equal("FULL JOIN", unsupported[0].Feature)
	require.Equal(1, unsupported[0].Position.Line)
	require.NotEmpty(unsupported[0].Suggestion)

	_, err := Unparse(fullJoin, MySQL)
	require.Error(err)
	require.True(IsTranslationError(err))

	require.Empty(Check(fullJoin, Postgres))
}

func TestCheckOffsetSupport(t *testing.T) {
	require := require.New(t)

	withOffset := mustParseLimit(t, 10, 5)
	require.NotEmpty(Check(withOffset, Hive))
	require.NotEmpty(Check(withOffset, ANSI))
	require.Empty(Check(withOffset, MySQL))
	require.Empty(Check(mustParseLimit(t, 10, 0), Hive))
}

func TestFromName(t *testing.T) {
	require := require.New(t)

	for _, name := range []string{"mysql", "PostgreSQL", "oracle", "mssql", "hive", "ansi"} {
		_, err := FromName(name)
		require.NoError(err)
	}
	_, err := FromName("nosuch")
	require.Error(err)
	require.True(ErrUnknownDialect.Is(err))
}
