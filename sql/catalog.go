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
	"strings"
	"sync"

	"github.com/meshql/meshql/internal/similartext"
)

// Catalog holds every schema known to the engine. Schemas are produced by
// adapter discovery, cached here, and invalidated on explicit refresh or when
// the owning source's health transitions to Down. All state is in memory.
type Catalog struct {
	mu      sync.RWMutex
	dbs     []*Database
	current string
}

// NewCatalog returns a new empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// AllDatabases returns all databases in the catalog.
func (c *Catalog) AllDatabases() []*Database {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dbs := make([]*Database, len(c.dbs))
	copy(dbs, c.dbs)
	return dbs
}

// AddDatabase adds a new database to the catalog, replacing any database
// with the same name.
func (c *Catalog) AddDatabase(db *Database) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.dbs {
		if strings.EqualFold(d.Name, db.Name) {
			c.dbs[i] = db
			return
		}
	}
	c.dbs = append(c.dbs, db)
}

// RemoveDatabase drops the database with the given name from the catalog.
// Used when a source's health transitions to Down.
func (c *Catalog) RemoveDatabase(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.dbs {
		if strings.EqualFold(d.Name, name) {
			c.dbs = append(c.dbs[:i], c.dbs[i+1:]...)
			return
		}
	}
}

// RemoveDataSource drops every database owned by the given data source.
func (c *Catalog) RemoveDataSource(dataSourceName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var kept []*Database
	for _, d := range c.dbs {
		if d.DataSourceName != dataSourceName {
			kept = append(kept, d)
		}
	}
	c.dbs = kept
}

// Database returns the database with the given name. Matching is
// case-insensitive.
func (c *Catalog) Database(name string) (*Database, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.dbs) == 0 {
		return nil, ErrDatabaseNotFound.New(name, "")
	}

	var names []string
	for _, db := range c.dbs {
		if strings.EqualFold(db.Name, name) {
			return db, nil
		}
		names = append(names, db.Name)
	}

	similar := similartext.Find(names, name)
	return nil, ErrDatabaseNotFound.New(name, similar)
}

// SetCurrentDatabase changes the schema in use for unqualified table names.
func (c *Catalog) SetCurrentDatabase(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = name
}

// CurrentDatabase returns the schema in use, or empty if none was set.
func (c *Catalog) CurrentDatabase() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Table returns the table in the given database. A quoted name (exact) is
// matched case-sensitively, otherwise case-insensitively.
func (c *Catalog) Table(dbName, tableName string, exact bool) (*Database, *Table, error) {
	var db *Database
	var err error
	if dbName == "" {
		dbName = c.CurrentDatabase()
	}
	if dbName == "" {
		return c.tableInAnyDatabase(tableName, exact)
	}

	db, err = c.Database(dbName)
	if err != nil {
		return nil, nil, err
	}

	t := db.Table(tableName, exact)
	if t == nil {
		similar := similartext.Find(db.TableNames(), tableName)
		return nil, nil, ErrTableNotFound.New(tableName, similar)
	}
	return db, t, nil
}

// tableInAnyDatabase searches all schemas for the table. More than one match
// is an ambiguous reference.
func (c *Catalog) tableInAnyDatabase(tableName string, exact bool) (*Database, *Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var foundDB *Database
	var foundTable *Table
	var homes []string
	for _, db := range c.dbs {
		if t := db.Table(tableName, exact); t != nil {
			foundDB, foundTable = db, t
			homes = append(homes, db.Name)
		}
	}

	switch len(homes) {
	case 0:
		var names []string
		for _, db := range c.dbs {
			names = append(names, db.TableNames()...)
		}
		similar := similartext.Find(names, tableName)
		return nil, nil, ErrTableNotFound.New(tableName, similar)
	case 1:
		return foundDB, foundTable, nil
	default:
		return nil, nil, ErrAmbiguousReference.New(tableName, strings.Join(homes, ", "))
	}
}

// Resolve looks up a possibly qualified name. It accepts one to three parts:
// table, schema.table, or schema.table.column (two-part names are tried as
// table.column against the current schema as well). It returns the matched
// table and, when the name addresses one, the column.
func (c *Catalog) Resolve(parts []string, exact bool) (*Database, *Table, *Column, error) {
	switch len(parts) {
	case 1:
		db, t, err := c.Table("", parts[0], exact)
		return db, t, nil, err
	case 2:
		db, t, err := c.Table(parts[0], parts[1], exact)
		if err == nil {
			return db, t, nil, nil
		}
		// schema.table failed; try table.column in scope.
		db2, t2, err2 := c.Table("", parts[0], exact)
		if err2 != nil {
			return nil, nil, nil, err
		}
		col := t2.Column(parts[1], exact)
		if col == nil {
			return nil, nil, nil, ErrColumnNotFound.New(parts[1])
		}
		return db2, t2, col, nil
	case 3:
		db, t, err := c.Table(parts[0], parts[1], exact)
		if err != nil {
			return nil, nil, nil, err
		}
		col := t.Column(parts[2], exact)
		if col == nil {
			return nil, nil, nil, ErrColumnNotFound.New(parts[2])
		}
		return db, t, col, nil
	default:
		return nil, nil, nil, ErrSemantic.New("invalid qualified name: " + strings.Join(parts, "."))
	}
}
