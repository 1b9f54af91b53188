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

// Package connector is the service provider interface of the engine: the
// adapter contract data sources implement, the process-wide registry, and
// the health scheduler feeding plan selection.
package connector

import (
	"os"

	"gopkg.in/src-d/go-errors.v1"
	yaml "gopkg.in/yaml.v2"

	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/dialect"
)

// DataSourceType identifies an adapter implementation, e.g. "mysql".
type DataSourceType string

// ErrUnknownDataSource is returned when no adapter is registered for a type.
var ErrUnknownDataSource = errors.NewKind("no adapter registered for data source type %q")

// ErrDataSourceNotConfigured is returned when a data source name is not in
// the configuration.
var ErrDataSourceNotConfigured = errors.NewKind("data source %q is not configured")

// DataSourceConfig is the engine-visible configuration of one source. Only
// Name and Type are interpreted by the engine; the rest passes opaque to the
// adapter.
type DataSourceConfig struct {
	Name                string            `yaml:"name"`
	Type                DataSourceType    `yaml:"type"`
	URL                 string            `yaml:"url"`
	Username            string            `yaml:"username"`
	Password            string            `yaml:"password"`
	MaxPoolSize         int               `yaml:"maxPoolSize"`
	ConnectionTimeoutMs int               `yaml:"connectionTimeoutMs"`
	Properties          map[string]string `yaml:"properties"`
}

// Config is the data source configuration file shape.
type Config struct {
	DataSources []DataSourceConfig `yaml:"dataSources"`
}

// LoadConfig reads a yaml data source configuration file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Source returns the configuration of the named source.
func (c *Config) Source(name string) (DataSourceConfig, error) {
	for _, ds := range c.DataSources {
		if ds.Name == name {
			return ds, nil
		}
	}
	return DataSourceConfig{}, ErrDataSourceNotConfigured.New(name)
}

// Adapter is the contract every data source driver implements. Adapters are
// registered once at startup and shared; implementations must be safe for
// concurrent use.
type Adapter interface {
	// Type returns the data source type this adapter serves.
	Type() DataSourceType
	// Dialect returns the SQL dialect the source speaks.
	Dialect() dialect.ID
	// Connect opens a connection for one query's operator tree.
	Connect(ctx *sql.Context, config DataSourceConfig) (sql.SourceConn, error)
	// TestConnection reports whether the source answers at all.
	TestConnection(ctx *sql.Context, config DataSourceConfig) bool
	// DiscoverSchema reads the source's schema metadata.
	DiscoverSchema(ctx *sql.Context, config DataSourceConfig) (*sql.Database, error)
	// Close releases everything the adapter holds.
	Close() error
}
