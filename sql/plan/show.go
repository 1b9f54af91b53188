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

package plan

import (
	"regexp"
	"sort"

	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/expression"
)

// ShowTables lists the tables of a schema, optionally filtered by a LIKE
// pattern or a WHERE predicate over the single output column.
type ShowTables struct {
	Catalog *sql.Catalog
	Db      string
	Pattern string
	// HasPattern distinguishes LIKE '' from no LIKE at all.
	HasPattern bool
	Filter     sql.Expression
}

var showTablesSchema = sql.Schema{
	{Name: "table_name", Type: sql.Text},
}

// NewShowTables creates a ShowTables node.
func NewShowTables(catalog *sql.Catalog, db string) *ShowTables {
	return &ShowTables{Catalog: catalog, Db: db}
}

// Resolved implements the Resolvable interface.
func (s *ShowTables) Resolved() bool { return true }

// Schema implements the Node interface.
func (s *ShowTables) Schema() sql.Schema { return showTablesSchema }

// Children implements the Node interface.
func (s *ShowTables) Children() []sql.Node { return nil }

// WithChildren implements the Node interface.
func (s *ShowTables) WithChildren(children ...sql.Node) (sql.Node, error) {
	return sql.NillaryWithChildren(s, children...)
}

func (s *ShowTables) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("ShowTables(%s)", s.Db)
	return pr.String()
}

// RowIter implements the Node interface.
func (s *ShowTables) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	dbName := s.Db
	if dbName == "" {
		dbName = s.Catalog.CurrentDatabase()
	}
	db, err := s.Catalog.Database(dbName)
	if err != nil {
		return nil, err
	}

	names := db.TableNames()
	sort.Strings(names)

	var matcher *regexp.Regexp
	if s.HasPattern {
		matcher, err = regexp.Compile(expression.LikeToRegexp(s.Pattern))
		if err != nil {
			return nil, err
		}
	}

	var rows []sql.Row
	for _, name := range names {
		if matcher != nil && !matcher.MatchString(name) {
			continue
		}
		row := sql.NewRow(name)
		if s.Filter != nil {
			ok, err := s.Filter.Eval(ctx, row)
			if err != nil {
				return nil, err
			}
			if ok != true {
				continue
			}
		}
		rows = append(rows, row)
	}
	return sql.RowsToRowIter(rows...), nil
}

// ShowSchemas lists every schema in the catalog.
type ShowSchemas struct {
	Catalog *sql.Catalog
	Pattern string
	// HasPattern distinguishes LIKE '' from no LIKE at all.
	HasPattern bool
}

var showSchemasSchema = sql.Schema{
	{Name: "schema_name", Type: sql.Text},
}

// NewShowSchemas creates a ShowSchemas node.
func NewShowSchemas(catalog *sql.Catalog) *ShowSchemas {
	return &ShowSchemas{Catalog: catalog}
}

// Resolved implements the Resolvable interface.
func (s *ShowSchemas) Resolved() bool { return true }

// Schema implements the Node interface.
func (s *ShowSchemas) Schema() sql.Schema { return showSchemasSchema }

// Children implements the Node interface.
func (s *ShowSchemas) Children() []sql.Node { return nil }

// WithChildren implements the Node interface.
func (s *ShowSchemas) WithChildren(children ...sql.Node) (sql.Node, error) {
	return sql.NillaryWithChildren(s, children...)
}

func (s *ShowSchemas) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("ShowSchemas")
	return pr.String()
}

// RowIter implements the Node interface.
func (s *ShowSchemas) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	var matcher *regexp.Regexp
	var err error
	if s.HasPattern {
		matcher, err = regexp.Compile(expression.LikeToRegexp(s.Pattern))
		if err != nil {
			return nil, err
		}
	}

	var names []string
	for _, db := range s.Catalog.AllDatabases() {
		if matcher != nil && !matcher.MatchString(db.Name) {
			continue
		}
		names = append(names, db.Name)
	}
	sort.Strings(names)

	rows := make([]sql.Row, len(names))
	for i, name := range names {
		rows[i] = sql.NewRow(name)
	}
	return sql.RowsToRowIter(rows...), nil
}

// ShowColumns lists the columns of a table.
type ShowColumns struct {
	Catalog *sql.Catalog
	Db      string
	Table   string
	// Exact is set when the table name was quoted.
	Exact bool
}

var showColumnsSchema = sql.Schema{
	{Name: "column_name", Type: sql.Text},
	{Name: "data_type", Type: sql.Text},
	{Name: "nullable", Type: sql.Boolean},
	{Name: "primary_key", Type: sql.Boolean},
}

// NewShowColumns creates a ShowColumns node.
func NewShowColumns(catalog *sql.Catalog, db, table string, exact bool) *ShowColumns {
	return &ShowColumns{Catalog: catalog, Db: db, Table: table, Exact: exact}
}

// Resolved implements the Resolvable interface.
func (s *ShowColumns) Resolved() bool { return true }

// Schema implements the Node interface.
func (s *ShowColumns) Schema() sql.Schema { return showColumnsSchema }

// Children implements the Node interface.
func (s *ShowColumns) Children() []sql.Node { return nil }

// WithChildren implements the Node interface.
func (s *ShowColumns) WithChildren(children ...sql.Node) (sql.Node, error) {
	return sql.NillaryWithChildren(s, children...)
}

func (s *ShowColumns) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("ShowColumns(%s)", s.Table)
	return pr.String()
}

// RowIter implements the Node interface.
func (s *ShowColumns) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	_, table, err := s.Catalog.Table(s.Db, s.Table, s.Exact)
	if err != nil {
		return nil, err
	}

	rows := make([]sql.Row, len(table.Columns))
	for i, col := range table.Columns {
		rows[i] = sql.NewRow(col.Name, col.Type.Name(), col.Nullable, col.PrimaryKey)
	}
	return sql.RowsToRowIter(rows...), nil
}

// Use switches the catalog's current schema. It validates the schema exists
// before switching and produces no rows.
type Use struct {
	Catalog *sql.Catalog
	Db      string
}

// NewUse creates a Use node.
func NewUse(catalog *sql.Catalog, db string) *Use {
	return &Use{Catalog: catalog, Db: db}
}

// Resolved implements the Resolvable interface.
func (u *Use) Resolved() bool { return true }

// Schema implements the Node interface.
func (u *Use) Schema() sql.Schema { return nil }

// Children implements the Node interface.
func (u *Use) Children() []sql.Node { return nil }

// WithChildren implements the Node interface.
func (u *Use) WithChildren(children ...sql.Node) (sql.Node, error) {
	return sql.NillaryWithChildren(u, children...)
}

func (u *Use) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("Use(%s)", u.Db)
	return pr.String()
}

// RowIter implements the Node interface.
func (u *Use) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	db, err := u.Catalog.Database(u.Db)
	if err != nil {
		return nil, err
	}
	u.Catalog.SetCurrentDatabase(db.Name)
	return sql.RowsToRowIter(), nil
}
