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
	"fmt"
	"io"

	opentracing "github.com/opentracing/opentracing-go"

	"github.com/meshql/meshql/internal/retry"
	"github.com/meshql/meshql/sql"
)

// TableScan executes pushed-down SQL against one data source and exposes the
// resulting rows lazily. The connection is opened on the first pull and
// released on Close, also when iteration stops early.
type TableScan struct {
	source   string
	pushed   string
	schema   sql.Schema
	opener   sql.ConnOpener
	retry    retry.Policy
}

var _ sql.Node = (*TableScan)(nil)

// NewTableScan creates a table scan over the named source running the given
// pushed SQL. The schema is what planning predicted, and it is also the
// schema at runtime: the result metadata the source returns with the rows is
// not consulted.
func NewTableScan(source, pushed string, schema sql.Schema, opener sql.ConnOpener) *TableScan {
	return &TableScan{
		source: source,
		pushed: pushed,
		schema: schema,
		opener: opener,
		retry:  retry.DefaultPolicy(sql.IsTransient),
	}
}

// WithRetryPolicy returns a copy of the scan using the given retry policy.
func (t *TableScan) WithRetryPolicy(p retry.Policy) *TableScan {
	nt := *t
	nt.retry = p
	return &nt
}

// DataSource returns the configured name of the source this scan reads.
func (t *TableScan) DataSource() string { return t.source }

// PushedSQL returns the SQL string sent to the source.
func (t *TableScan) PushedSQL() string { return t.pushed }

// Resolved implements the Resolvable interface.
func (t *TableScan) Resolved() bool { return true }

// Schema implements the Node interface.
func (t *TableScan) Schema() sql.Schema { return t.schema }

// Children implements the Node interface.
func (t *TableScan) Children() []sql.Node { return nil }

// WithChildren implements the Node interface.
func (t *TableScan) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 0 {
		return nil, sql.ErrInvalidChildrenNumber.New(t, len(children), 0)
	}
	return t, nil
}

func (t *TableScan) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("TableScan(%s)", t.source)
	_ = p.WriteChildren(t.pushed)
	return p.String()
}

// RowIter implements the Node interface.
func (t *TableScan) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	span, ctx := ctx.Span("plan.TableScan", opentracing.Tags{
		"source": t.source,
		"query":  t.pushed,
	})
	return &tableScanIter{scan: t, span: span, ctx: ctx}, nil
}

// tableScanIter opens the connection lazily on the first Next, so
// construction never blocks on I/O.
type tableScanIter struct {
	scan   *TableScan
	span   opentracing.Span
	ctx    *sql.Context
	conn   sql.SourceConn
	rows   sql.RowIter
	opened bool
	closed bool
}

func (i *tableScanIter) open(ctx *sql.Context) error {
	err := i.scan.retry.Do(ctx, func() error {
		if cerr := ctx.Error(); cerr != nil {
			return cerr
		}
		conn, err := i.scan.opener(ctx, i.scan.source)
		if err != nil {
			return err
		}
		_, rows, err := conn.Query(ctx, i.scan.pushed)
		if err != nil {
			_ = conn.Close()
			return err
		}
		i.conn, i.rows = conn, rows
		return nil
	})
	if err != nil {
		return err
	}
	i.opened = true
	return nil
}

func (i *tableScanIter) Next(ctx *sql.Context) (sql.Row, error) {
	if i.closed {
		return nil, sql.ErrIteratorClosed.New()
	}
	if err := ctx.Error(); err != nil {
		return nil, err
	}
	if !i.opened {
		if err := i.open(ctx); err != nil {
			return nil, err
		}
	}

	row, err := i.rows.Next(ctx)
	if err != nil {
		if err != io.EOF {
			err = sourceError(i.scan.source, err)
		}
		return nil, err
	}
	return row, nil
}

func (i *tableScanIter) Close(ctx *sql.Context) error {
	if i.closed {
		return nil
	}
	i.closed = true
	defer i.span.Finish()

	var err error
	if i.rows != nil {
		err = i.rows.Close(ctx)
	}
	if i.conn != nil {
		if cerr := i.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// sourceError tags an error with its source unless it already is one.
func sourceError(source string, err error) error {
	if _, ok := err.(*sql.SourceError); ok {
		return err
	}
	return sql.NewSourceError(source, false, fmt.Errorf("%v", err))
}
