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
	"io"

	"github.com/meshql/meshql/internal/retry"
	"github.com/meshql/meshql/sql"
)

// PassThrough ships a DML statement to a single source unchanged and emits
// one row with the affected row count. Write federation beyond this does not
// exist.
type PassThrough struct {
	source string
	query  string
	opener sql.ConnOpener
	retry  retry.Policy
}

var passThroughSchema = sql.Schema{
	{Name: "rows_affected", Type: sql.Int64},
}

// NewPassThrough creates a pass-through DML node.
func NewPassThrough(source, query string, opener sql.ConnOpener) *PassThrough {
	return &PassThrough{
		source: source,
		query:  query,
		opener: opener,
		retry:  retry.DefaultPolicy(sql.IsTransient),
	}
}

// DataSource returns the source the statement runs at.
func (p *PassThrough) DataSource() string { return p.source }

// Resolved implements the Resolvable interface.
func (p *PassThrough) Resolved() bool { return true }

// Schema implements the Node interface.
func (p *PassThrough) Schema() sql.Schema { return passThroughSchema }

// Children implements the Node interface.
func (p *PassThrough) Children() []sql.Node { return nil }

// WithChildren implements the Node interface.
func (p *PassThrough) WithChildren(children ...sql.Node) (sql.Node, error) {
	return sql.NillaryWithChildren(p, children...)
}

func (p *PassThrough) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("PassThrough(%s)", p.source)
	_ = pr.WriteChildren(p.query)
	return pr.String()
}

// RowIter implements the Node interface.
func (p *PassThrough) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	return &passThroughIter{node: p}, nil
}

type passThroughIter struct {
	node *PassThrough
	ran  bool
}

func (i *passThroughIter) Next(ctx *sql.Context) (sql.Row, error) {
	if i.ran {
		return nil, io.EOF
	}
	if err := ctx.Error(); err != nil {
		return nil, err
	}
	i.ran = true

	var affected int64
	err := i.node.retry.Do(ctx, func() error {
		conn, err := i.node.opener(ctx, i.node.source)
		if err != nil {
			return err
		}
		defer conn.Close()
		n, err := conn.Exec(ctx, i.node.query)
		if err != nil {
			return err
		}
		affected = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sql.NewRow(affected), nil
}

func (i *passThroughIter) Close(*sql.Context) error { return nil }
