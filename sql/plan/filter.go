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

	"github.com/meshql/meshql/sql"
)

// Filter skips rows that don't match a certain expression. Three-valued
// logic applies: a row whose predicate evaluates to NULL is not emitted.
type Filter struct {
	UnaryNode
	Expression sql.Expression
}

// NewFilter creates a new filter node.
func NewFilter(expression sql.Expression, child sql.Node) *Filter {
	return &Filter{
		UnaryNode:  UnaryNode{Child: child},
		Expression: expression,
	}
}

// Resolved implements the Resolvable interface.
func (p *Filter) Resolved() bool {
	return p.UnaryNode.Child.Resolved() && p.Expression.Resolved()
}

// RowIter implements the Node interface.
func (p *Filter) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	span, ctx := ctx.Span("plan.Filter")
	i, err := p.Child.RowIter(ctx)
	if err != nil {
		span.Finish()
		return nil, err
	}
	return &filterIter{cond: p.Expression, childIter: i, done: span.Finish}, nil
}

// WithChildren implements the Node interface.
func (p *Filter) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(p, len(children), 1)
	}
	return NewFilter(p.Expression, children[0]), nil
}

// Expressions implements the Expressioner interface.
func (p *Filter) Expressions() []sql.Expression {
	return []sql.Expression{p.Expression}
}

// WithExpressions implements the Expressioner interface.
func (p *Filter) WithExpressions(exprs ...sql.Expression) (sql.Node, error) {
	if len(exprs) != 1 {
		return nil, sql.ErrInvalidExpressionNumber.New(p, len(exprs), 1)
	}
	return NewFilter(exprs[0], p.Child), nil
}

func (p *Filter) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("Filter(%s)", p.Expression)
	_ = pr.WriteChildren(p.Child.String())
	return pr.String()
}

type filterIter struct {
	cond      sql.Expression
	childIter sql.RowIter
	done      func()
}

func (i *filterIter) Next(ctx *sql.Context) (sql.Row, error) {
	for {
		if err := ctx.Error(); err != nil {
			return nil, err
		}

		row, err := i.childIter.Next(ctx)
		if err != nil {
			return nil, err
		}

		res, err := i.cond.Eval(ctx, row)
		if err != nil {
			return nil, err
		}
		if res == true {
			return row, nil
		}
	}
}

func (i *filterIter) Close(ctx *sql.Context) error {
	if i.done != nil {
		i.done()
		i.done = nil
	}
	return i.childIter.Close(ctx)
}

// errorIter satisfies RowIter by failing on the first pull. Used where an
// error must surface through the iterator contract.
type errorIter struct {
	err error
}

func (i errorIter) Next(*sql.Context) (sql.Row, error) {
	if i.err != nil {
		return nil, i.err
	}
	return nil, io.EOF
}

func (i errorIter) Close(*sql.Context) error { return nil }
