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

package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/ast"
	"github.com/meshql/meshql/sql/dialect"
	"github.com/meshql/meshql/sql/parse"
)

func testCatalog() *sql.Catalog {
	catalog := sql.NewCatalog()
	catalog.AddDatabase(&sql.Database{
		Name:           "shop",
		DataSourceName: "shop_db",
		Tables: []*sql.Table{
			{
				Name: "users", Schema: "shop", RowCount: 100,
				Columns: sql.Schema{
					{Name: "id", Type: sql.Int64, OrdinalPosition: 1},
					{Name: "name", Type: sql.Text, OrdinalPosition: 2},
				},
			},
			{
				Name: "orders", Schema: "shop", RowCount: 100000,
				Columns: sql.Schema{
					{Name: "id", Type: sql.Int64, OrdinalPosition: 1},
					{Name: "user_id", Type: sql.Int64, OrdinalPosition: 2},
					{Name: "amount", Type: sql.Float64, OrdinalPosition: 3},
				},
			},
			{
				Name: "countries", Schema: "shop", RowCount: 10,
				Columns: sql.Schema{
					{Name: "id", Type: sql.Int64, OrdinalPosition: 1},
					{Name: "name", Type: sql.Text, OrdinalPosition: 2},
				},
			},
		},
	})
	return catalog
}

func analyze(t *testing.T, query string) ast.Statement {
	t.Helper()
	stmt, err := parse.Parse(query, dialect.ANSI)
	require.NoError(t, err)
	a := NewDefault(testCatalog())
	out, err := a.Analyze(sql.NewEmptyContext(), stmt)
	require.NoError(t, err)
	return out
}

func render(t *testing.T, stmt ast.Statement) string {
	t.Helper()
	out, err := dialect.Unparse(stmt, dialect.ANSI)
	require.NoError(t, err)
	return out
}

func TestFoldConstants(t *testing.T) {
	require := require.New(t)

	out := render(t, analyze(t, "SELECT 1 + 2 * 3 FROM users"))
	require.Contains(out, "SELECT 7")

	out = render(t, analyze(t, "SELECT a FROM users WHERE TRUE AND a = 1"))
	require.NotContains(out, "TRUE")
}

func TestPushdownIntoJoinSide(t *testing.T) {
	require := require.New(t)

	out := render(t, analyze(t,
		"SELECT u.name, o.amount FROM users u JOIN orders o ON u.id = o.user_id WHERE u.name = 'ada' AND u.id = o.id"))

	// The single-side conjunct moved into a sub-query around users; the
	// cross-side one stayed.
	require.Contains(out, "(SELECT * FROM users AS u WHERE u.name = 'ada')")
	require.Contains(out, "WHERE u.id = o.id")
}

func TestPushdownSkipsOuterJoinNullableSide(t *testing.T) {
	require := require.New(t)

	out := render(t, analyze(t,
		"SELECT u.name FROM users u LEFT JOIN orders o ON u.id = o.user_id WHERE o.amount > 10"))

	// o is the nullable side of the left join; its predicate must stay put.
	require.Contains(out, "WHERE o.amount > 10")
	require.NotContains(out, "(SELECT * FROM orders")
}

func TestPushdownIntoSubquery(t *testing.T) {
	require := require.New(t)

	out := render(t, analyze(t,
		"SELECT big.name FROM (SELECT id, name FROM users) AS big JOIN orders o ON big.id = o.user_id WHERE big.name = 'ada'"))

	require.Contains(out, "FROM users WHERE name = 'ada'")
}

func TestPruneSubqueryProjections(t *testing.T) {
	require := require.New(t)

	out := render(t, analyze(t,
		"SELECT sub.id FROM (SELECT id, name, id AS extra FROM users) AS sub JOIN orders o ON sub.id = o.user_id"))

	require.NotContains(out, "extra")
	require.NotContains(out, "name")
}

func TestPushdownLimit(t *testing.T) {
	require := require.New(t)

	out := render(t, analyze(t,
		"SELECT sub.id FROM (SELECT id FROM users) AS sub LIMIT 10"))

	// The inner query gains the bound; the outer keeps it too.
	require.Contains(out, "(SELECT id FROM users FETCH FIRST 10 ROWS ONLY)")
}

func TestReorderJoinsByCardinality(t *testing.T) {
	require := require.New(t)

	out := render(t, analyze(t,
		"SELECT * FROM orders o JOIN users u ON o.user_id = u.id JOIN countries c ON u.id = c.id"))

	// countries (10 rows) must come before users (100) before orders (100k).
	ci := indexOf(out, "countries")
	ui := indexOf(out, "users")
	oi := indexOf(out, "orders")
	require.True(ci < ui, out)
	require.True(ui < oi, out)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	require := require.New(t)

	queries := []string{
		"SELECT u.name FROM users u JOIN orders o ON u.id = o.user_id WHERE u.name = 'ada'",
		"SELECT * FROM orders o JOIN users u ON o.user_id = u.id JOIN countries c ON u.id = c.id",
		"SELECT sub.id FROM (SELECT id FROM users) AS sub LIMIT 10",
		"SELECT 1 + 2 FROM users",
	}

	for _, q := range queries {
		first := analyze(t, q)
		a := NewDefault(testCatalog())
		second, err := a.Analyze(sql.NewEmptyContext(), first)
		require.NoError(err)
		require.Equal(render(t, first), render(t, second), q)
	}
}

func TestRuleLoopTerminates(t *testing.T) {
	require := require.New(t)

	// A rule that always reports change must still terminate via the
	// iteration guard.
	a := &Analyzer{
		Catalog: testCatalog(),
		Rules: []Rule{{
			Name: "always_changes",
			Apply: func(ctx *sql.Context, a *Analyzer, stmt ast.Statement) (ast.Statement, bool, error) {
				return stmt, true, nil
			},
		}},
	}
	stmt, err := parse.Parse("SELECT a FROM users", dialect.ANSI)
	require.NoError(err)
	_, err = a.Analyze(sql.NewEmptyContext(), stmt)
	require.NoError(err)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
