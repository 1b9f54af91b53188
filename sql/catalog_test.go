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

package sql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testDatabase(name, source string) *Database {
	return &Database{
		Name:           name,
		DataSourceName: source,
		Tables: []*Table{
			{
				Name:   "Users",
				Schema: name,
				Columns: Schema{
					{Name: "Id", Type: Int64, OrdinalPosition: 1, PrimaryKey: true},
					{Name: "Name", Type: Text, OrdinalPosition: 2, Nullable: true},
				},
			},
		},
	}
}

func TestCatalogDatabase(t *testing.T) {
	require := require.New(t)

	c := NewCatalog()
	db, err := c.Database("foo")
	require.EqualError(err, "database not found: foo")
	require.Nil(db)

	c.AddDatabase(testDatabase("foo", "src1"))

	db, err = c.Database("flo")
	require.EqualError(err, "database not found: flo, maybe you mean foo?")
	require.Nil(db)

	db, err = c.Database("foo")
	require.NoError(err)
	require.Equal("foo", db.Name)

	// Lookup is case-insensitive.
	db, err = c.Database("FOO")
	require.NoError(err)
	require.Equal("foo", db.Name)
}

func TestCatalogTable(t *testing.T) {
	require := require.New(t)

	c := NewCatalog()
	c.AddDatabase(testDatabase("shop", "src1"))

	_, _, err := c.Table("shop", "nope", false)
	require.Error(err)
	require.True(ErrTableNotFound.Is(err))

	_, _, err = c.Table("shop", "usrs", false)
	require.EqualError(err, "table not found: usrs, maybe you mean Users?")

	// Unquoted lookups fold case.
	_, table, err := c.Table("shop", "users", false)
	require.NoError(err)
	require.Equal("Users", table.Name)

	// Quoted lookups are exact.
	_, _, err = c.Table("shop", "users", true)
	require.Error(err)
	_, table, err = c.Table("shop", "Users", true)
	require.NoError(err)
	require.Equal("Users", table.Name)
}

func TestCatalogTableInAnyDatabase(t *testing.T) {
	require := require.New(t)

	c := NewCatalog()
	c.AddDatabase(testDatabase("a", "src1"))

	_, table, err := c.Table("", "users", false)
	require.NoError(err)
	require.Equal("Users", table.Name)

	// Present in two schemas: ambiguous.
	c.AddDatabase(testDatabase("b", "src2"))
	_, _, err = c.Table("", "users", false)
	require.Error(err)
	require.True(ErrAmbiguousReference.Is(err))

	// Unless the current schema disambiguates.
	c.SetCurrentDatabase("a")
	_, _, err = c.Table("", "users", false)
	require.NoError(err)
}

func TestCatalogResolve(t *testing.T) {
	require := require.New(t)

	c := NewCatalog()
	c.AddDatabase(testDatabase("shop", "src1"))

	_, table, col, err := c.Resolve([]string{"users"}, false)
	require.NoError(err)
	require.Equal("Users", table.Name)
	require.Nil(col)

	_, table, col, err = c.Resolve([]string{"shop", "users"}, false)
	require.NoError(err)
	require.Equal("Users", table.Name)
	require.Nil(col)

	_, _, col, err = c.Resolve([]string{"shop", "users", "name"}, false)
	require.NoError(err)
	require.NotNil(col)
	require.Equal("Name", col.Name)

	_, _, col, err = c.Resolve([]string{"users", "id"}, false)
	require.NoError(err)
	require.NotNil(col)
	require.Equal("Id", col.Name)

	_, _, _, err = c.Resolve([]string{"shop", "users", "nope"}, false)
	require.Error(err)
	require.True(ErrColumnNotFound.Is(err))
}

func TestCatalogRemoveDataSource(t *testing.T) {
	require := require.New(t)

	c := NewCatalog()
	c.AddDatabase(testDatabase("a", "src1"))
	c.AddDatabase(testDatabase("b", "src2"))

	c.RemoveDataSource("src1")

	_, err := c.Database("a")
	require.Error(err)
	_, err = c.Database("b")
	require.NoError(err)
}
