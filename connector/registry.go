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
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/dialect"
)

// Registry maps data source types to their adapters and configured source
// names to their configurations. It is safe for concurrent use. Tests
// instantiate a fresh registry; there is no package-level instance.
type Registry struct {
	mu       sync.RWMutex
	adapters map[DataSourceType]Adapter
	sources  map[string]DataSourceConfig
}

// builtins are adapter constructors contributed at init time by adapter
// packages (the registration resource of the plugin mechanism).
var (
	builtinMu sync.Mutex
	builtins  []func() Adapter
)

// RegisterAdapterFactory advertises an adapter implementation. Adapter
// packages call this from init; NewRegistry instantiates every advertised
// adapter.
func RegisterAdapterFactory(f func() Adapter) {
	builtinMu.Lock()
	defer builtinMu.Unlock()
	builtins = append(builtins, f)
}

// NewRegistry creates a registry populated with every advertised adapter.
func NewRegistry() *Registry {
	r := &Registry{
		adapters: map[DataSourceType]Adapter{},
		sources:  map[string]DataSourceConfig{},
	}
	builtinMu.Lock()
	defer builtinMu.Unlock()
	for _, f := range builtins {
		a := f()
		r.adapters[a.Type()] = a
	}
	return r
}

// Register adds or replaces the adapter for its type.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Type()] = a
}

// Adapter returns the adapter for the given type.
func (r *Registry) Adapter(t DataSourceType) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[t]
	if !ok {
		return nil, ErrUnknownDataSource.New(t)
	}
	return a, nil
}

// Types returns the registered data source types, sorted.
func (r *Registry) Types() []DataSourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]DataSourceType, 0, len(r.adapters))
	for t := range r.adapters {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// AddSource configures a data source by name.
func (r *Registry) AddSource(cfg DataSourceConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[cfg.Name] = cfg
}

// Source returns the configuration of a named source.
func (r *Registry) Source(name string) (DataSourceConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.sources[name]
	if !ok {
		return DataSourceConfig{}, ErrDataSourceNotConfigured.New(name)
	}
	return cfg, nil
}

// Sources returns every configured source, sorted by name.
func (r *Registry) Sources() []DataSourceConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sources := make([]DataSourceConfig, 0, len(r.sources))
	for _, cfg := range r.sources {
		sources = append(sources, cfg)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	return sources
}

// SourceDialect resolves the SQL dialect of a configured source, ANSI when
// unknown.
func (r *Registry) SourceDialect(name string) dialect.ID {
	cfg, err := r.Source(name)
	if err != nil {
		return dialect.ANSI
	}
	a, err := r.Adapter(cfg.Type)
	if err != nil {
		return dialect.ANSI
	}
	return a.Dialect()
}

// Connect opens a connection to the named source.
func (r *Registry) Connect(ctx *sql.Context, name string) (sql.SourceConn, error) {
	cfg, err := r.Source(name)
	if err != nil {
		return nil, err
	}
	a, err := r.Adapter(cfg.Type)
	if err != nil {
		return nil, err
	}
	return a.Connect(ctx, cfg)
}

// Discover runs schema discovery for every configured source in parallel
// and loads the results into the catalog. Discovery failures are collected;
// sources that succeed still land in the catalog.
func (r *Registry) Discover(ctx *sql.Context, catalog *sql.Catalog) error {
	var g errgroup.Group
	var mu sync.Mutex
	var failures []string

	for _, cfg := range r.Sources() {
		cfg := cfg
		g.Go(func() error {
			a, err := r.Adapter(cfg.Type)
			if err != nil {
				mu.Lock()
				failures = append(failures, err.Error())
				mu.Unlock()
				return nil
			}
			db, err := a.DiscoverSchema(ctx, cfg)
			if err != nil {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s: %v", cfg.Name, err))
				mu.Unlock()
				return nil
			}
			db.DataSourceName = cfg.Name
			catalog.AddDatabase(db)
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) > 0 {
		return sql.ErrSource.New("discovery", strings.Join(failures, "; "))
	}
	return nil
}

// CloseAll closes every registered adapter, even when some fail. The errors
// are joined into one.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []string
	for t, a := range r.adapters {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", t, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing adapters: %s", strings.Join(errs, "; "))
	}
	return nil
}
