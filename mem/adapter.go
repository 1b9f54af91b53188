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
	"fmt"
	"sort"
	"strings"

	"github.com/meshql/meshql/connector"
	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/ast"
	"github.com/meshql/meshql/sql/dialect"
	"github.com/meshql/meshql/sql/parse"
)

// Adapter serves in-memory databases through the connector SPI. The source
// name of a configuration selects the database of the same name.
type Adapter struct {
	dbs map[string]*Database
}

// NewAdapter creates an adapter over the given databases.
func NewAdapter(dbs ...*Database) *Adapter {
	m := make(map[string]*Database, len(dbs))
	for _, db := range dbs {
		m[strings.ToLower(db.Name())] = db
	}
	return &Adapter{dbs: m}
}

// Type implements the Adapter interface.
func (a *Adapter) Type() connector.DataSourceType { return "mem" }

// Dialect implements the Adapter interface.
func (a *Adapter) Dialect() dialect.ID { return dialect.ANSI }

func (a *Adapter) database(cfg connector.DataSourceConfig) (*Database, error) {
	db, ok := a.dbs[strings.ToLower(cfg.Name)]
	if !ok {
		return nil, sql.ErrDatabaseNotFound.New(cfg.Name, "")
	}
	return db, nil
}

// Connect implements the Adapter interface.
func (a *Adapter) Connect(ctx *sql.Context, cfg connector.DataSourceConfig) (sql.SourceConn, error) {
	db, err := a.database(cfg)
	if err != nil {
		return nil, err
	}
	return &conn{db: db}, nil
}

// TestConnection implements the Adapter interface.
func (a *Adapter) TestConnection(ctx *sql.Context, cfg connector.DataSourceConfig) bool {
	_, err := a.database(cfg)
	return err == nil
}

// DiscoverSchema implements the Adapter interface.
func (a *Adapter) DiscoverSchema(ctx *sql.Context, cfg connector.DataSourceConfig) (*sql.Database, error) {
	db, err := a.database(cfg)
	if err != nil {
		return nil, err
	}
	result := &sql.Database{Name: db.Name(), Type: sql.DatabaseTypePhysical}
	for _, t := range db.Tables() {
		table := &sql.Table{
			Name:     t.Name(),
			Schema:   db.Name(),
			Type:     sql.TableTypeTable,
			RowCount: int64(t.RowCount()),
		}
		for i, col := range t.Schema() {
			nc := *col
			nc.OrdinalPosition = i + 1
			table.Columns = append(table.Columns, &nc)
		}
		result.Tables = append(result.Tables, table)
	}
	return result, nil
}

// Close implements the Adapter interface.
func (a *Adapter) Close() error { return nil }

// conn evaluates the pushed SQL subset against the in-memory tables:
// projections of columns or *, WHERE over comparisons and boolean
// operators, and LIMIT/OFFSET.
type conn struct {
	db     *Database
	closed bool
}

// Query implements the SourceConn interface.
func (c *conn) Query(ctx *sql.Context, query string) (sql.Schema, sql.RowIter, error) {
	if c.closed {
		return nil, nil, sql.ErrIteratorClosed.New()
	}

	stmt, err := parse.Parse(query, dialect.ANSI)
	if err != nil {
		return nil, nil, sql.NewSourceError(c.db.Name(), false, err)
	}
	sel, ok := stmt.(*ast.Select)
	if !ok {
		return nil, nil, sql.NewSourceError(c.db.Name(), false,
			fmt.Errorf("memory source only serves SELECT, got %T", stmt))
	}
	ref, ok := sel.From.(*ast.TableRef)
	if !ok {
		return nil, nil, sql.NewSourceError(c.db.Name(), false,
			fmt.Errorf("memory source only serves single-table queries"))
	}

	table := c.db.Table(ref.Name.Name())
	if table == nil {
		return nil, nil, sql.NewSourceError(c.db.Name(), false,
			fmt.Errorf("table %s not found", ref.Name.Name()))
	}
	if len(sel.GroupBy) > 0 || sel.Having != nil || sel.Distinct {
		return nil, nil, sql.NewSourceError(c.db.Name(), false,
			fmt.Errorf("memory source cannot evaluate grouping"))
	}

	schema, indexes, err := projectionOf(sel, table)
	if err != nil {
		return nil, nil, sql.NewSourceError(c.db.Name(), false, err)
	}

	var matched []sql.Row
	for _, row := range table.Rows() {
		if sel.Where != nil {
			ok, err := evalBool(sel.Where, table.Schema(), row)
			if err != nil {
				return nil, nil, sql.NewSourceError(c.db.Name(), false, err)
			}
			if !ok {
				continue
			}
		}
		matched = append(matched, row)
	}

	if len(sel.OrderBy) > 0 {
		if err := sortRows(matched, sel.OrderBy, table.Schema()); err != nil {
			return nil, nil, sql.NewSourceError(c.db.Name(), false, err)
		}
	}

	out := make([]sql.Row, 0, len(matched))
	for _, row := range matched {
		projected := make(sql.Row, len(indexes))
		for i, idx := range indexes {
			projected[i] = row[idx]
		}
		out = append(out, projected)
	}

	if sel.Limit != nil {
		out = applyLimit(out, sel.Limit)
	}
	return schema, sql.RowsToRowIter(out...), nil
}

// sortRows orders the rows by the given keys in place.
func sortRows(rows []sql.Row, keys []ast.SortKey, schema sql.Schema) error {
	var sortErr error
	sort.SliceStable(rows, func(a, b int) bool {
		for _, key := range keys {
			av, at, err := evalValue(key.Expr, schema, rows[a])
			if err != nil {
				sortErr = err
				return false
			}
			bv, _, err := evalValue(key.Expr, schema, rows[b])
			if err != nil {
				sortErr = err
				return false
			}
			cmp, err := at.Compare(av, bv)
			if err != nil {
				sortErr = err
				return false
			}
			if cmp == 0 {
				continue
			}
			if key.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return sortErr
}

// Exec implements the SourceConn interface. The memory source is read-only.
func (c *conn) Exec(ctx *sql.Context, query string) (int64, error) {
	return 0, sql.NewSourceError(c.db.Name(), false, fmt.Errorf("memory source is read-only"))
}

// Close implements the SourceConn interface.
func (c *conn) Close() error {
	c.closed = true
	return nil
}

func applyLimit(rows []sql.Row, l *ast.Limit) []sql.Row {
	if l.Offset > 0 {
		if l.Offset >= int64(len(rows)) {
			return nil
		}
		rows = rows[l.Offset:]
	}
	if l.Count >= 0 && l.Count < int64(len(rows)) {
		rows = rows[:l.Count]
	}
	return rows
}

func projectionOf(sel *ast.Select, table *Table) (sql.Schema, []int, error) {
	schema := table.Schema()
	var out sql.Schema
	var indexes []int
	for _, item := range sel.Projection {
		switch e := item.Expr.(type) {
		case *ast.Star:
			for i, col := range schema {
				out = append(out, col)
				indexes = append(indexes, i)
			}
		case *ast.Identifier:
			idx := columnIndex(schema, e.Name())
			if idx < 0 {
				return nil, nil, fmt.Errorf("column %s not found", e.Name())
			}
			out = append(out, schema[idx])
			indexes = append(indexes, idx)
		default:
			return nil, nil, fmt.Errorf("memory source cannot evaluate %T", e)
		}
	}
	return out, indexes, nil
}

func columnIndex(schema sql.Schema, name string) int {
	for i, col := range schema {
		if strings.EqualFold(col.Name, name) {
			return i
		}
	}
	return -1
}

// evalBool evaluates a pushed predicate against one row.
func evalBool(e ast.Expr, schema sql.Schema, row sql.Row) (bool, error) {
	switch e := e.(type) {
	case *ast.BinaryExpr:
		switch e.Op {
		case "AND":
			l, err := evalBool(e.Left, schema, row)
			if err != nil || !l {
				return false, err
			}
			return evalBool(e.Right, schema, row)
		case "OR":
			l, err := evalBool(e.Left, schema, row)
			if err != nil {
				return false, err
			}
			if l {
				return true, nil
			}
			return evalBool(e.Right, schema, row)
		case "=", "<>", "<", ">", "<=", ">=":
			lv, lt, err := evalValue(e.Left, schema, row)
			if err != nil {
				return false, err
			}
			rv, rt, err := evalValue(e.Right, schema, row)
			if err != nil {
				return false, err
			}
			if lv == nil || rv == nil {
				return false, nil
			}
			typ := lt
			if typ == sql.Null {
				typ = rt
			}
			cmp, err := typ.Compare(lv, rv)
			if err != nil {
				return false, err
			}
			switch e.Op {
			case "=":
				return cmp == 0, nil
			case "<>":
				return cmp != 0, nil
			case "<":
				return cmp < 0, nil
			case ">":
				return cmp > 0, nil
			case "<=":
				return cmp <= 0, nil
			default:
				return cmp >= 0, nil
			}
		}
	case *ast.UnaryExpr:
		switch e.Op {
		case "NOT":
			v, err := evalBool(e.Operand, schema, row)
			return !v, err
		case "IS NULL":
			v, _, err := evalValue(e.Operand, schema, row)
			return v == nil, err
		case "IS NOT NULL":
			v, _, err := evalValue(e.Operand, schema, row)
			return v != nil, err
		}
	}
	return false, fmt.Errorf("memory source cannot evaluate predicate %T", e)
}

func evalValue(e ast.Expr, schema sql.Schema, row sql.Row) (interface{}, sql.Type, error) {
	switch e := e.(type) {
	case *ast.Identifier:
		idx := columnIndex(schema, e.Name())
		if idx < 0 {
			return nil, sql.Null, fmt.Errorf("column %s not found", e.Name())
		}
		return row[idx], schema[idx].Type, nil
	case *ast.Literal:
		switch e.Kind {
		case ast.StringLiteral:
			return e.Value, sql.Text, nil
		case ast.NumberLiteral:
			if _, ok := e.Value.(int64); ok {
				return e.Value, sql.Int64, nil
			}
			return e.Value, sql.Float64, nil
		case ast.BoolLiteral:
			return e.Value, sql.Boolean, nil
		case ast.NullLiteral:
			return nil, sql.Null, nil
		}
	}
	return nil, sql.Null, fmt.Errorf("memory source cannot evaluate %T", e)
}
