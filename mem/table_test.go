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

package mem

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meshql/meshql/connector"
	"github.com/meshql/meshql/sql"
)

func testTable() *Table {
	return NewTable("users", sql.Schema{
		{Name: "id", Type: sql.Int64},
		{Name: "name", Type: sql.Text, Nullable: true},
	})
}

func TestTableName(t *testing.T) {
	require := require.New(t)
	require.Equal("users", testTable().Name())
}

func TestTableInsert(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()
	table := testTable()

	require.NoError(table.Insert(ctx, sql.NewRow(int64(1), "ada")))
	require.NoError(table.Insert(ctx, sql.NewRow(int64(2), nil)))
	require.Equal(2, table.RowCount())

	err := table.Insert(ctx, sql.NewRow(int64(3)))
	require.Error(err)
	require.True(sql.ErrInvalidType.Is(err))
}

func TestAdapterDiscoverSchema(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	db := NewDatabase("inventory")
	table := testTable()
	require.NoError(table.Insert(ctx, sql.NewRow(int64(1), "ada")))
	db.AddTable(table)

	adapter := NewAdapter(db)
	discovered, err := adapter.DiscoverSchema(ctx, connector.DataSourceConfig{Name: "inventory"})
	require.NoError(err)
	require.Equal("inventory", discovered.Name)
	require.Len(discovered.Tables, 1)
	require.Equal(int64(1), discovered.Tables[0].RowCount)
	require.Equal(1, discovered.Tables[0].Columns[0].OrdinalPosition)
	require.Equal(2, discovered.Tables[0].Columns[1].OrdinalPosition)
}

func TestConnQueryPushedSubset(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	db := NewDatabase("inventory")
	table := testTable()
	require.NoError(table.Insert(ctx, sql.NewRow(int64(1), "ada")))
	require.NoError(table.Insert(ctx, sql.NewRow(int64(2), "grace")))
	require.NoError(table.Insert(ctx, sql.NewRow(int64(3), "ada")))
	db.AddTable(table)

	adapter := NewAdapter(db)
	conn, err := adapter.Connect(ctx, connector.DataSourceConfig{Name: "inventory"})
	require.NoError(err)
	defer conn.Close()

	schema, iter, err := conn.Query(ctx, "SELECT name FROM users WHERE id >= 2 LIMIT 1")
	require.NoError(err)
	require.Len(schema, 1)
	require.Equal("name", schema[0].Name)

	row, err := iter.Next(ctx)
	require.NoError(err)
	require.Equal("grace", row[0])

	_, err = iter.Next(ctx)
	require.Equal(io.EOF, err)
	require.NoError(iter.Close(ctx))
}

func TestConnRejectsWrites(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	db := NewDatabase("inventory")
	db.AddTable(testTable())
	adapter := NewAdapter(db)
	conn, err := adapter.Connect(ctx, connector.DataSourceConfig{Name: "inventory"})
	require.NoError(err)
	defer conn.Close()

	_, err = conn.Exec(ctx, "DELETE FROM users")
	require.Error(err)
}
