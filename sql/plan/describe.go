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
	"strings"

	"github.com/meshql/meshql/sql"
)

// Describe renders the child's plan tree as rows, one line each. It backs
// the EXPLAIN statement and never executes the child.
type Describe struct {
	UnaryNode
}

var describeSchema = sql.Schema{
	{Name: "plan", Type: sql.Text},
}

// NewDescribe creates a new Describe node.
func NewDescribe(child sql.Node) *Describe {
	return &Describe{UnaryNode{child}}
}

// Schema implements the Node interface.
func (d *Describe) Schema() sql.Schema { return describeSchema }

// WithChildren implements the Node interface.
func (d *Describe) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(d, len(children), 1)
	}
	return NewDescribe(children[0]), nil
}

func (d *Describe) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("Describe")
	_ = pr.WriteChildren(d.Child.String())
	return pr.String()
}

// RowIter implements the Node interface.
func (d *Describe) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	lines := strings.Split(strings.TrimRight(d.Child.String(), "\n"), "\n")
	rows := make([]sql.Row, len(lines))
	for i, line := range lines {
		rows[i] = sql.NewRow(line)
	}
	return sql.RowsToRowIter(rows...), nil
}
