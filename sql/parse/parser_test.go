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

package parse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meshql/meshql/sql/ast"
	"github.com/meshql/meshql/sql/dialect"
)

func TestParseSelectFromWhere(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse("SELECT foo, bar FROM baz WHERE foo = bar;", dialect.ANSI)
	require.NoError(err)

	sel, ok := stmt.(*ast.Select)
	require.True(ok)
	require.Len(sel.Projection, 2)
	require.Equal("foo", sel.Projection[0].Expr.(*ast.Identifier).Name())
	require.Equal("bar", sel.Projection[1].Expr.(*ast.Identifier).Name())

	ref, ok := sel.From.(*ast.TableRef)
	require.True(ok)
	require.Equal("baz", ref.Name.Name())

	where, ok := sel.Where.(*ast.BinaryExpr)
	require.True(ok)
	require.Equal("=", where.Op)
}

func TestParseOrderLimitOffset(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse("SELECT a FROM t ORDER BY a DESC, b LIMIT 10 OFFSET 5", dialect.MySQL)
	require.NoError(err)
	sel := stmt.(*ast.Select)

	require.Len(sel.OrderBy, 2)
	require.True(sel.OrderBy[0].Descending)
	require.False(sel.OrderBy[1].Descending)
	require.NotNil(sel.Limit)
	require.Equal(int64(10), sel.Limit.Count)
	require.Equal(int64(5), sel.Limit.Offset)
}

func TestParseMySQLLimitCommaForm(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse("SELECT a FROM t LIMIT 5, 10", dialect.MySQL)
	require.NoError(err)
	sel := stmt.(*ast.Select)
	require.Equal(int64(10), sel.Limit.Count)
	require.Equal(int64(5), sel.Limit.Offset)
}

func TestParseOffsetFetch(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse("SELECT a FROM t OFFSET 5 ROWS FETCH NEXT 10 ROWS ONLY", dialect.SQLServer)
	require.NoError(err)
	sel := stmt.(*ast.Select)
	require.Equal(int64(10), sel.Limit.Count)
	require.Equal(int64(5), sel.Limit.Offset)

	stmt, err = Parse("SELECT a FROM t FETCH FIRST 3 ROWS ONLY", dialect.ANSI)
	require.NoError(err)
	sel = stmt.(*ast.Select)
	require.Equal(int64(3), sel.Limit.Count)
	require.Equal(int64(0), sel.Limit.Offset)
}

func TestParseJoins(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse(
		"SELECT * FROM a JOIN b ON a.id = b.id LEFT JOIN c ON b.id = c.id",
		dialect.Postgres,
	)
	require.NoError(err)
	sel := stmt.(*ast.Select)

	outer, ok := sel.From.(*ast.Join)
	require.True(ok)
	require.Equal(ast.LeftJoin, outer.Type)

	inner, ok := outer.Left.(*ast.Join)
	require.True(ok)
	require.Equal(ast.InnerJoin, inner.Type)
	require.NotNil(inner.On)
}

func TestParseQuotedIdentifiers(t *testing.T) {
	cases := []struct {
		query   string
		dialect dialect.ID
		name    string
	}{
		{`SELECT "my col" FROM t`, dialect.Postgres, "my col"},
		{"SELECT `my col` FROM t", dialect.MySQL, "my col"},
		{`SELECT [my col] FROM t`, dialect.SQLServer, "my col"},
	}

	for _, tt := range cases {
		t.Run(tt.query, func(t *testing.T) {
			require := require.New(t)
			stmt, err := Parse(tt.query, tt.dialect)
			require.NoError(err)
			sel := stmt.(*ast.Select)
			id := sel.Projection[0].Expr.(*ast.Identifier)
			require.Equal(tt.name, id.Name())
			require.True(id.Parts[0].Quoted)
		})
	}
}

func TestParseComments(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse("-- leading note\nSELECT a FROM t", dialect.ANSI)
	require.NoError(err)
	sel := stmt.(*ast.Select)
	require.Len(sel.LeadingComments(), 1)
	require.Equal("-- leading note", sel.LeadingComments()[0].Text)
	require.Equal(1, sel.LeadingComments()[0].Pos.Line)
}

func TestParseTrailingGarbage(t *testing.T) {
	require := require.New(t)

	_, err := Parse("SELECT a FROM t; garbage", dialect.ANSI)
	require.Error(err)
	serr, ok := err.(*SyntaxError)
	require.True(ok)
	require.Equal(1, serr.Position.Line)
	require.Equal(18, serr.Position.Column)
	require.Contains(serr.Error(), "trailing")

	// Trailing whitespace and comments are fine.
	_, err = Parse("SELECT a FROM t; -- done\n", dialect.ANSI)
	require.NoError(err)
}

func TestParseSyntaxErrorPosition(t *testing.T) {
	require := require.New(t)

	_, err := Parse("SELECT FROM t", dialect.ANSI)
	require.Error(err)
	serr, ok := err.(*SyntaxError)
	require.True(ok)
	require.Equal(1, serr.Position.Line)
	require.Equal(8, serr.Position.Column)
}

func TestParseShowTablesFull(t *testing.T) {
	require := require.New(t)

	// The literal scenario: SHOW TABLES FROM mydb LIKE 'user%'.
	stmt, err := ParseExtended("SHOW TABLES FROM mydb LIKE 'user%'")
	require.NoError(err)

	show, ok := stmt.(*ast.ShowTables)
	require.True(ok)
	require.Equal("mydb", show.Db)
	require.Equal("user%", show.LikePattern)
	require.True(show.HasLike())
	require.Nil(show.Where)
}

func TestParseShowTablesOptionalClauses(t *testing.T) {
	require := require.New(t)

	stmt, err := ParseExtended("SHOW TABLES")
	require.NoError(err)
	show := stmt.(*ast.ShowTables)
	require.Equal("", show.Db)
	require.False(show.HasLike())
	require.Nil(show.Where)

	stmt, err = ParseExtended("SHOW TABLES IN other")
	require.NoError(err)
	show = stmt.(*ast.ShowTables)
	require.Equal("other", show.Db)

	stmt, err = ParseExtended("SHOW TABLES LIKE 't%'")
	require.NoError(err)
	show = stmt.(*ast.ShowTables)
	require.Equal("t%", show.LikePattern)
	require.True(show.HasLike())

	stmt, err = ParseExtended("SHOW TABLES WHERE table_name = 'users'")
	require.NoError(err)
	show = stmt.(*ast.ShowTables)
	require.NotNil(show.Where)
	require.False(show.HasLike())
}

func TestParseShowSchemas(t *testing.T) {
	require := require.New(t)

	stmt, err := ParseExtended("SHOW SCHEMAS")
	require.NoError(err)
	show := stmt.(*ast.ShowSchemas)
	require.False(show.Databases)
	require.False(show.HasLike())

	stmt, err = ParseExtended("SHOW DATABASES LIKE 'prod%'")
	require.NoError(err)
	show = stmt.(*ast.ShowSchemas)
	require.True(show.Databases)
	require.Equal("prod%", show.LikePattern)
}

func TestParseUse(t *testing.T) {
	require := require.New(t)

	stmt, err := ParseExtended("USE warehouse")
	require.NoError(err)
	use := stmt.(*ast.Use)
	require.Equal("warehouse", use.Schema)
}

func TestParseExtendedIsAdditive(t *testing.T) {
	require := require.New(t)

	// A standard query parses identically through the extended entry point.
	ext, err := ParseExtended("SELECT a, b FROM t WHERE a > 1")
	require.NoError(err)
	std, err := Parse("SELECT a, b FROM t WHERE a > 1", dialect.ANSI)
	require.NoError(err)

	extSQL, err := unparseANSI(ext)
	require.NoError(err)
	stdSQL, err := unparseANSI(std)
	require.NoError(err)
	require.Equal(stdSQL, extSQL)
}

func TestParseInsertUpdateDelete(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse("INSERT INTO t (a, b) VALUES (1, 'x'), (2, 'y')", dialect.MySQL)
	require.NoError(err)
	ins := stmt.(*ast.Insert)
	require.Equal([]string{"a", "b"}, ins.Columns)
	require.Len(ins.Source.(*ast.Values).Rows, 2)

	stmt, err = Parse("UPDATE t SET a = 1, b = 'x' WHERE id = 3", dialect.MySQL)
	require.NoError(err)
	upd := stmt.(*ast.Update)
	require.Len(upd.Set, 2)
	require.NotNil(upd.Where)

	stmt, err = Parse("DELETE FROM t WHERE id = 3", dialect.MySQL)
	require.NoError(err)
	del := stmt.(*ast.Delete)
	require.NotNil(del.Where)
}

func TestParseAggregatesAndGroupBy(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse(
		"SELECT city, COUNT(*), SUM(amount) AS total FROM orders GROUP BY city HAVING COUNT(*) > 2",
		dialect.ANSI,
	)
	require.NoError(err)
	sel := stmt.(*ast.Select)
	require.Len(sel.GroupBy, 1)
	require.NotNil(sel.Having)

	count := sel.Projection[1].Expr.(*ast.FuncCall)
	require.Equal("COUNT", count.Name)
	require.True(count.Star)
	require.Equal("total", sel.Projection[2].Alias)
}

func TestParseRoundTrip(t *testing.T) {
	queries := []string{
		"SELECT a, b AS x FROM t WHERE a = 1 AND b > 2",
		"SELECT DISTINCT a FROM t ORDER BY a DESC",
		"SELECT * FROM a JOIN b ON a.id = b.id WHERE a.x LIKE 'y%'",
		"SELECT city, COUNT(*) FROM orders GROUP BY city HAVING COUNT(*) > 2",
		"SELECT a FROM t WHERE a IN (1, 2, 3) OR a IS NULL",
		"SELECT a FROM (SELECT a FROM u WHERE a > 0) AS sub WHERE a < 10",
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			require := require.New(t)

			first, err := Parse(q, dialect.ANSI)
			require.NoError(err)
			rendered, err := unparseANSI(first)
			require.NoError(err)

			second, err := Parse(rendered, dialect.ANSI)
			require.NoError(err)
			rerendered, err := unparseANSI(second)
			require.NoError(err)

			// Unparse is the structural fingerprint: a stable rendering
			// means the re-parsed tree is structurally equal.
			require.Equal(rendered, rerendered)
		})
	}
}

func unparseANSI(stmt ast.Statement) (string, error) {
	return dialect.Unparse(stmt, dialect.ANSI)
}
