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

// Package mem is an in-memory data source used by tests and examples. It
// registers like any other adapter and serves the SQL subset the planner
// pushes to leaves.
package mem

import (
	"strings"
	"sync"

	"github.com/meshql/meshql/sql"
)

// Table is an in-memory table.
type Table struct {
	name    string
	schema  sql.Schema
	mu      sync.RWMutex
	rows    []sql.Row
}

// NewTable creates a table with the given schema.
func NewTable(name string, schema sql.Schema) *Table {
	return &Table{name: name, schema: schema}
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Schema returns the table schema.
func (t *Table) Schema() sql.Schema { return t.schema }

// Insert appends a row, validating it against the schema.
func (t *Table) Insert(ctx *sql.Context, row sql.Row) error {
	if len(row) != len(t.schema) {
		return sql.ErrInvalidType.New(row)
	}
	for i, col := range t.schema {
		if !col.Check(row[i]) {
			return sql.ErrInvalidType.New(row[i])
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, row.Copy())
	return nil
}

// Rows returns a snapshot of the table's rows.
func (t *Table) Rows() []sql.Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rows := make([]sql.Row, len(t.rows))
	copy(rows, t.rows)
	return rows
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Database is an in-memory schema holding tables.
type Database struct {
	name   string
	mu     sync.RWMutex
	tables map[string]*Table
	order  []string
}

// NewDatabase creates a database with the given name.
func NewDatabase(name string) *Database {
	return &Database{name: name, tables: map[string]*Table{}}
}

// Name returns the database name.
func (d *Database) Name() string { return d.name }

// AddTable adds a table to the database.
func (d *Database) AddTable(t *Table) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := strings.ToLower(t.Name())
	if _, ok := d.tables[key]; !ok {
		d.order = append(d.order, key)
	}
	d.tables[key] = t
}

// Table returns the named table, or nil.
func (d *Database) Table(name string) *Table {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tables[strings.ToLower(name)]
}

// Tables returns every table in insertion order.
func (d *Database) Tables() []*Table {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tables := make([]*Table, len(d.order))
	for i, key := range d.order {
		tables[i] = d.tables[key]
	}
	return tables
}
