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

package connector

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/dialect"
)

// fakeAdapter is a minimal adapter for registry tests.
type fakeAdapter struct {
	typ      DataSourceType
	closed   bool
	closeErr error
	healthy  bool
	db       *sql.Database
}

func (a *fakeAdapter) Type() DataSourceType { return a.typ }
func (a *fakeAdapter) Dialect() dialect.ID  { return dialect.ANSI }

func (a *fakeAdapter) Connect(ctx *sql.Context, cfg DataSourceConfig) (sql.SourceConn, error) {
	return nil, fmt.Errorf("not implemented")
}

func (a *fakeAdapter) TestConnection(ctx *sql.Context, cfg DataSourceConfig) bool {
	return a.healthy
}

func (a *fakeAdapter) DiscoverSchema(ctx *sql.Context, cfg DataSourceConfig) (*sql.Database, error) {
	if a.db == nil {
		return nil, fmt.Errorf("discovery failed")
	}
	return a.db, nil
}

func (a *fakeAdapter) Close() error {
	a.closed = true
	return a.closeErr
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	require := require.New(t)

	r := NewRegistry()
	a := &fakeAdapter{typ: "fake"}
	r.Register(a)

	got, err := r.Adapter("fake")
	require.NoError(err)
	require.Equal(a, got)

	_, err = r.Adapter("nosuch")
	require.Error(err)
	require.True(ErrUnknownDataSource.Is(err))
}

func TestRegistrySources(t *testing.T) {
	require := require.New(t)

	r := NewRegistry()
	r.AddSource(DataSourceConfig{Name: "b", Type: "fake"})
	r.AddSource(DataSourceConfig{Name: "a", Type: "fake"})

	sources := r.Sources()
	require.Len(sources, 2)
	require.Equal("a", sources[0].Name)
	require.Equal("b", sources[1].Name)

	_, err := r.Source("c")
	require.Error(err)
	require.True(ErrDataSourceNotConfigured.Is(err))
}

func TestCloseAllClosesEveryAdapterDespiteFailures(t *testing.T) {
	require := require.New(t)

	r := NewRegistry()
	failing := &fakeAdapter{typ: "failing", closeErr: fmt.Errorf("boom")}
	ok := &fakeAdapter{typ: "ok"}
	r.Register(failing)
	r.Register(ok)

	err := r.CloseAll()
	require.Error(err)
	require.True(failing.closed)
	require.True(ok.closed)
	require.Contains(err.Error(), "boom")
}

func TestDiscoverLoadsCatalogAndReportsFailures(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	r := NewRegistry()
	r.Register(&fakeAdapter{typ: "good", db: &sql.Database{Name: "mydb"}})
	r.Register(&fakeAdapter{typ: "bad"})
	r.AddSource(DataSourceConfig{Name: "src1", Type: "good"})
	r.AddSource(DataSourceConfig{Name: "src2", Type: "bad"})

	catalog := sql.NewCatalog()
	err := r.Discover(ctx, catalog)
	require.Error(err)

	db, derr := catalog.Database("mydb")
	require.NoError(derr)
	require.Equal("src1", db.DataSourceName)
}

func TestConfigSourceLookup(t *testing.T) {
	require := require.New(t)

	cfg := &Config{DataSources: []DataSourceConfig{
		{Name: "one", Type: "mysql", URL: "tcp(localhost:3306)/db"},
	}}
	ds, err := cfg.Source("one")
	require.NoError(err)
	require.Equal(DataSourceType("mysql"), ds.Type)

	_, err = cfg.Source("two")
	require.Error(err)
}
