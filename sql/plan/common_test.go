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

	"github.com/meshql/meshql/sql"
)

// rowsNode is a leaf feeding fixed rows into operator tests.
type rowsNode struct {
	schema sql.Schema
	rows   []sql.Row
}

func newRowsNode(schema sql.Schema, rows ...sql.Row) *rowsNode {
	return &rowsNode{schema: schema, rows: rows}
}

func (n *rowsNode) Resolved() bool       { return true }
func (n *rowsNode) Schema() sql.Schema   { return n.schema }
func (n *rowsNode) Children() []sql.Node { return nil }
func (n *rowsNode) String() string       { return fmt.Sprintf("rows(%d)", len(n.rows)) }

func (n *rowsNode) WithChildren(children ...sql.Node) (sql.Node, error) {
	return sql.NillaryWithChildren(n, children...)
}

func (n *rowsNode) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	return sql.RowsToRowIter(n.rows...), nil
}

// generatedNode produces count synthetic single-column rows.
type generatedNode struct {
	count int
}

var generatedSchema = sql.Schema{{Name: "n", Type: sql.Int64}}

func (n *generatedNode) Resolved() bool       { return true }
func (n *generatedNode) Schema() sql.Schema   { return generatedSchema }
func (n *generatedNode) Children() []sql.Node { return nil }
func (n *generatedNode) String() string       { return fmt.Sprintf("generated(%d)", n.count) }

func (n *generatedNode) WithChildren(children ...sql.Node) (sql.Node, error) {
	return sql.NillaryWithChildren(n, children...)
}

func (n *generatedNode) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	return &generatedIter{count: n.count}, nil
}

type generatedIter struct {
	count int
	next  int
}

func (i *generatedIter) Next(ctx *sql.Context) (sql.Row, error) {
	if i.next >= i.count {
		return nil, io.EOF
	}
	row := sql.NewRow(int64(i.next))
	i.next++
	return row, nil
}

func (i *generatedIter) Close(*sql.Context) error { return nil }

var testSchema = sql.Schema{
	{Name: "id", Type: sql.Int64},
	{Name: "name", Type: sql.Text, Nullable: true},
}
