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

	"github.com/meshql/meshql/sql"
)

// Values is a row constructor: it emits one row per tuple of expressions.
type Values struct {
	ExpressionTuples [][]sql.Expression
}

// NewValues creates a Values node.
func NewValues(tuples [][]sql.Expression) *Values {
	return &Values{ExpressionTuples: tuples}
}

// Schema implements the Node interface.
func (p *Values) Schema() sql.Schema {
	if len(p.ExpressionTuples) == 0 {
		return nil
	}
	first := p.ExpressionTuples[0]
	schema := make(sql.Schema, len(first))
	for i, e := range first {
		schema[i] = &sql.Column{
			Name:     fmt.Sprintf("column_%d", i+1),
			Type:     e.Type(),
			Nullable: e.IsNullable(),
		}
	}
	return schema
}

// Resolved implements the Resolvable interface.
func (p *Values) Resolved() bool {
	for _, tuple := range p.ExpressionTuples {
		for _, e := range tuple {
			if !e.Resolved() {
				return false
			}
		}
	}
	return true
}

// Children implements the Node interface.
func (p *Values) Children() []sql.Node { return nil }

// WithChildren implements the Node interface.
func (p *Values) WithChildren(children ...sql.Node) (sql.Node, error) {
	return sql.NillaryWithChildren(p, children...)
}

// Expressions implements the Expressioner interface.
func (p *Values) Expressions() []sql.Expression {
	var exprs []sql.Expression
	for _, tuple := range p.ExpressionTuples {
		exprs = append(exprs, tuple...)
	}
	return exprs
}

// WithExpressions implements the Expressioner interface.
func (p *Values) WithExpressions(exprs ...sql.Expression) (sql.Node, error) {
	var expected int
	for _, t := range p.ExpressionTuples {
		expected += len(t)
	}
	if len(exprs) != expected {
		return nil, sql.ErrInvalidExpressionNumber.New(p, len(exprs), expected)
	}

	tuples := make([][]sql.Expression, len(p.ExpressionTuples))
	var offset int
	for i, t := range p.ExpressionTuples {
		tuples[i] = exprs[offset : offset+len(t)]
		offset += len(t)
	}
	return NewValues(tuples), nil
}

func (p *Values) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("Values(%d rows)", len(p.ExpressionTuples))
	return pr.String()
}

// RowIter implements the Node interface.
func (p *Values) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	rows := make([]sql.Row, len(p.ExpressionTuples))
	for i, tuple := range p.ExpressionTuples {
		row := make(sql.Row, len(tuple))
		for j, e := range tuple {
			v, err := e.Eval(ctx, nil)
			if err != nil {
				return nil, err
			}
			row[j] = v
		}
		rows[i] = row
	}
	return sql.RowsToRowIter(rows...), nil
}
