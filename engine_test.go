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

package meshql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meshql/meshql/connector"
	"github.com/meshql/meshql/mem"
	"github.com/meshql/meshql/sql"
)

func testEngine(t *testing.T, cfg *Config) *Engine {
	t.Helper()
	ctx := sql.NewEmptyContext()

	users := mem.NewTable("users", sql.Schema{
		{Name: "id", Type: sql.Int64},
		{Name: "name", Type: sql.Text, Nullable: true},
		{Name: "country", Type: sql.Text, Nullable: true},
	})
	require.NoError(t, users.Insert(ctx, sql.NewRow(int64(1), "ada", "uk")))
	require.NoError(t, users.Insert(ctx, sql.NewRow(int64(2), "grace", "us")))
	require.NoError(t, users.Insert(ctx, sql.NewRow(int64(3), "alan", "uk")))
	crm := mem.NewDatabase("crm")
	crm.AddTable(users)

	orders := mem.NewTable("orders", sql.Schema{
		{Name: "id", Type: sql.Int64},
		{Name: "user_id", Type: sql.Int64},
		{Name: "amount", Type: sql.Float64},
	})
	require.NoError(t, orders.Insert(ctx, sql.NewRow(int64(1), int64(1), float64(10))))
	require.NoError(t, orders.Insert(ctx, sql.NewRow(int64(2), int64(1), float64(20))))
	require.NoError(t, orders.Insert(ctx, sql.NewRow(int64(3), int64(2), float64(25))))
	require.NoError(t, orders.Insert(ctx, sql.NewRow(int64(4), int64(9), float64(40))))
	billing := mem.NewDatabase("billing")
	billing.AddTable(orders)

	registry := connector.NewRegistry()
	registry.Register(mem.NewAdapter(crm, billing))
	registry.AddSource(connector.DataSourceConfig{Name: "crm", Type: "mem"})
	registry.AddSource(connector.DataSourceConfig{Name: "billing", Type: "mem"})

	engine := New(registry, cfg)
	ictx, cancel := engine.NewContext(context.Background(), "")
	defer cancel()
	require.NoError(t, engine.Init(ictx))
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func TestEngineSingleSourceQuery(t *testing.T) {
	require := require.New(t)
	engine := testEngine(t, nil)

	result := engine.Execute(context.Background(), "SELECT name FROM users WHERE country = 'uk'")
	require.True(result.Success, result.ErrorMessage)
	require.Equal([]string{"name"}, result.ColumnNames)
	require.Equal(2, result.RowCount)
}

func TestEngineFederatedJoin(t *testing.T) {
	require := require.New(t)
	engine := testEngine(t, nil)

	result := engine.Execute(context.Background(),
		"SELECT users.name, orders.amount FROM users JOIN orders ON users.id = orders.user_id")
	require.True(result.Success, result.ErrorMessage)
	require.Equal(3, result.RowCount)
}

func TestEngineFederatedAggregate(t *testing.T) {
	require := require.New(t)
	engine := testEngine(t, nil)

	result := engine.Execute(context.Background(),
		"SELECT users.country, SUM(orders.amount) AS total FROM users JOIN orders ON users.id = orders.user_id GROUP BY users.country ORDER BY total DESC")
	require.True(result.Success, result.ErrorMessage)
	require.Equal(2, result.RowCount)
	require.Equal("uk", result.Rows[0][0])
	require.Equal(float64(30), result.Rows[0][1])
	require.Equal("us", result.Rows[1][0])
	require.Equal(float64(25), result.Rows[1][1])
}

func TestEngineShowStatements(t *testing.T) {
	require := require.New(t)
	engine := testEngine(t, nil)

	result := engine.Execute(context.Background(), "SHOW SCHEMAS")
	require.True(result.Success, result.ErrorMessage)
	require.Equal(2, result.RowCount)

	result = engine.Execute(context.Background(), "USE crm")
	require.True(result.Success, result.ErrorMessage)

	result = engine.Execute(context.Background(), "SHOW TABLES")
	require.True(result.Success, result.ErrorMessage)
	require.Equal(1, result.RowCount)
	require.Equal("users", result.Rows[0][0])

	result = engine.Execute(context.Background(), "SHOW TABLES FROM billing LIKE 'ord%'")
	require.True(result.Success)
	require.Equal(1, result.RowCount)
}

func TestEngineExplain(t *testing.T) {
	require := require.New(t)
	engine := testEngine(t, nil)

	result := engine.Execute(context.Background(),
		"EXPLAIN SELECT users.name FROM users JOIN orders ON users.id = orders.user_id")
	require.True(result.Success, result.ErrorMessage)
	require.NotZero(result.RowCount)
}

func TestEngineFailureBecomesResult(t *testing.T) {
	require := require.New(t)
	engine := testEngine(t, nil)

	result := engine.Execute(context.Background(), "SELECT * FROM nothere")
	require.False(result.Success)
	require.Contains(result.ErrorMessage, "table not found")

	result = engine.Execute(context.Background(), "SELEC nope")
	require.False(result.Success)
	require.Contains(result.ErrorMessage, "syntax error")
}

func TestEngineTruncationIsWarningNotFailure(t *testing.T) {
	require := require.New(t)
	engine := testEngine(t, &Config{IntermediateResultLimit: 2})

	// The hash build side of the federated join holds at most 2 rows; the
	// query still succeeds with partial data and a warning.
	result := engine.Execute(context.Background(),
		"SELECT users.name, orders.amount FROM users JOIN orders ON users.id = orders.user_id")
	require.True(result.Success, result.ErrorMessage)
	require.NotEmpty(result.Warnings)
	require.Contains(result.Warnings[0].Message, "Intermediate result limited to 2 rows")
}

func TestEngineCancelledQuery(t *testing.T) {
	require := require.New(t)
	engine := testEngine(t, nil)

	ctx, cancel := engine.NewContext(context.Background(), "q")
	cancel()

	_, iter, err := engine.Query(ctx, "SELECT name FROM users")
	if err == nil {
		_, err = iter.Next(ctx)
		_ = iter.Close(ctx)
	}
	require.Error(err)
	require.True(sql.ErrCancelled.Is(err))
}

func TestEngineCostBasedFlag(t *testing.T) {
	require := require.New(t)
	engine := testEngine(t, &Config{CostBased: true})

	result := engine.Execute(context.Background(),
		"SELECT users.name, orders.amount FROM users JOIN orders ON users.id = orders.user_id")
	require.True(result.Success, result.ErrorMessage)
	require.Equal(3, result.RowCount)
}
