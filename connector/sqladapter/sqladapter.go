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

// Package sqladapter implements the connector SPI over database/sql for
// relational sources.
package sqladapter

import (
	dbsql "database/sql"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/meshql/meshql/connector"
	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/dialect"
)

// driverAdapter is the shared database/sql implementation. Each supported
// source type instantiates it with its driver, dialect and discovery query
// set.
type driverAdapter struct {
	typ        connector.DataSourceType
	dialectID  dialect.ID
	driverName string
	dsn        func(connector.DataSourceConfig) string
	discover   func(ctx *sql.Context, db *dbsql.DB, cfg connector.DataSourceConfig) (*sql.Database, error)

	mu    sync.Mutex
	pools map[string]*dbsql.DB
}

func newDriverAdapter(
	typ connector.DataSourceType,
	d dialect.ID,
	driverName string,
	dsn func(connector.DataSourceConfig) string,
	discover func(ctx *sql.Context, db *dbsql.DB, cfg connector.DataSourceConfig) (*sql.Database, error),
) *driverAdapter {
	return &driverAdapter{
		typ:        typ,
		dialectID:  d,
		driverName: driverName,
		dsn:        dsn,
		discover:   discover,
		pools:      map[string]*dbsql.DB{},
	}
}

// Type implements the Adapter interface.
func (a *driverAdapter) Type() connector.DataSourceType { return a.typ }

// Dialect implements the Adapter interface.
func (a *driverAdapter) Dialect() dialect.ID { return a.dialectID }

// pool returns the connection pool of a configured source, opening it on
// first use.
func (a *driverAdapter) pool(cfg connector.DataSourceConfig) (*dbsql.DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if db, ok := a.pools[cfg.Name]; ok {
		return db, nil
	}

	db, err := dbsql.Open(a.driverName, a.dsn(cfg))
	if err != nil {
		return nil, sql.NewSourceError(cfg.Name, false, err)
	}
	if cfg.MaxPoolSize > 0 {
		db.SetMaxOpenConns(cfg.MaxPoolSize)
	}
	if cfg.ConnectionTimeoutMs > 0 {
		db.SetConnMaxIdleTime(time.Duration(cfg.ConnectionTimeoutMs) * time.Millisecond)
	}
	a.pools[cfg.Name] = db
	return db, nil
}

// Connect implements the Adapter interface.
func (a *driverAdapter) Connect(ctx *sql.Context, cfg connector.DataSourceConfig) (sql.SourceConn, error) {
	db, err := a.pool(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, classify(cfg.Name, err)
	}
	return &sourceConn{source: cfg.Name, conn: conn}, nil
}

// TestConnection implements the Adapter interface.
func (a *driverAdapter) TestConnection(ctx *sql.Context, cfg connector.DataSourceConfig) bool {
	db, err := a.pool(cfg)
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

// DiscoverSchema implements the Adapter interface.
func (a *driverAdapter) DiscoverSchema(ctx *sql.Context, cfg connector.DataSourceConfig) (*sql.Database, error) {
	db, err := a.pool(cfg)
	if err != nil {
		return nil, err
	}
	d, err := a.discover(ctx, db, cfg)
	if err != nil {
		return nil, classify(cfg.Name, err)
	}
	d.DataSourceName = cfg.Name
	return d, nil
}

// Close implements the Adapter interface.
func (a *driverAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var errs []string
	for name, db := range a.pools {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
	}
	a.pools = map[string]*dbsql.DB{}
	if len(errs) > 0 {
		return fmt.Errorf("closing pools: %s", strings.Join(errs, "; "))
	}
	return nil
}

// sourceConn adapts one database/sql connection to the engine contract.
type sourceConn struct {
	source string
	conn   *dbsql.Conn
	closed bool
}

// Query implements the SourceConn interface.
func (c *sourceConn) Query(ctx *sql.Context, query string) (sql.Schema, sql.RowIter, error) {
	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, classify(c.source, err)
	}

	names, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, nil, classify(c.source, err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		_ = rows.Close()
		return nil, nil, classify(c.source, err)
	}

	schema := make(sql.Schema, len(names))
	for i, name := range names {
		nullable := true
		if n, ok := types[i].Nullable(); ok {
			nullable = n
		}
		schema[i] = &sql.Column{
			Name:       name,
			Type:       sql.TypeFromName(types[i].DatabaseTypeName()),
			NativeType: types[i].DatabaseTypeName(),
			Nullable:   nullable,
		}
	}

	return schema, &rowsIter{source: c.source, rows: rows, width: len(names)}, nil
}

// Exec implements the SourceConn interface.
func (c *sourceConn) Exec(ctx *sql.Context, query string) (int64, error) {
	res, err := c.conn.ExecContext(ctx, query)
	if err != nil {
		return 0, classify(c.source, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Close implements the SourceConn interface.
func (c *sourceConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// rowsIter streams a database/sql result set as engine rows.
type rowsIter struct {
	source string
	rows   *dbsql.Rows
	width  int
}

func (i *rowsIter) Next(ctx *sql.Context) (sql.Row, error) {
	if err := ctx.Error(); err != nil {
		return nil, err
	}
	if !i.rows.Next() {
		if err := i.rows.Err(); err != nil {
			return nil, classify(i.source, err)
		}
		return nil, io.EOF
	}

	values := make([]interface{}, i.width)
	ptrs := make([]interface{}, i.width)
	for n := range values {
		ptrs[n] = &values[n]
	}
	if err := i.rows.Scan(ptrs...); err != nil {
		return nil, classify(i.source, err)
	}
	for n, v := range values {
		if b, ok := v.([]byte); ok {
			values[n] = string(b)
		}
	}
	return sql.NewRow(values...), nil
}

func (i *rowsIter) Close(*sql.Context) error {
	return i.rows.Close()
}

// classify tags a driver error with its source and whether a retry may
// succeed.
func classify(source string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*sql.SourceError); ok {
		return err
	}
	return sql.NewSourceError(source, isTransient(err), err)
}

// transientMarkers are substrings of driver errors that indicate a failure
// worth retrying.
var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"timeout expired",
	"bad connection",
	"try again",
	"too many connections",
	"server shutdown in progress",
}

func isTransient(err error) bool {
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return true
	}
	if err == dbsql.ErrConnDone {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
