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
	"github.com/meshql/meshql/sql/expression"
)

// Project is a projection of certain expressions from the rows of its child.
// Column names of the output come from expression aliases.
type Project struct {
	UnaryNode
	Projections []sql.Expression
}

// NewProject creates a projection.
func NewProject(expressions []sql.Expression, child sql.Node) *Project {
	return &Project{
		UnaryNode:   UnaryNode{child},
		Projections: expressions,
	}
}

// Schema implements the Node interface.
func (p *Project) Schema() sql.Schema {
	s := make(sql.Schema, len(p.Projections))
	for i, e := range p.Projections {
		s[i] = expressionToColumn(e)
	}
	return s
}

// expressionToColumn derives the output column of one projection item.
func expressionToColumn(e sql.Expression) *sql.Column {
	name := e.String()
	if n, ok := e.(sql.Nameable); ok {
		name = n.Name()
	}
	var table string
	if g, ok := e.(*expression.GetField); ok {
		table = g.Table()
	}
	return &sql.Column{
		Name:     name,
		Type:     e.Type(),
		Nullable: e.IsNullable(),
		Source:   table,
	}
}

// Resolved implements the Resolvable interface.
func (p *Project) Resolved() bool {
	if !p.UnaryNode.Child.Resolved() {
		return false
	}
	for _, e := range p.Projections {
		if !e.Resolved() {
			return false
		}
	}
	return true
}

// RowIter implements the Node interface.
func (p *Project) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	span, ctx := ctx.Span("plan.Project")
	i, err := p.Child.RowIter(ctx)
	if err != nil {
		span.Finish()
		return nil, err
	}
	return &projectIter{p: p, childIter: i, done: span.Finish}, nil
}

// WithChildren implements the Node interface.
func (p *Project) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(p, len(children), 1)
	}
	return NewProject(p.Projections, children[0]), nil
}

// Expressions implements the Expressioner interface.
func (p *Project) Expressions() []sql.Expression { return p.Projections }

// WithExpressions implements the Expressioner interface.
func (p *Project) WithExpressions(exprs ...sql.Expression) (sql.Node, error) {
	if len(exprs) != len(p.Projections) {
		return nil, sql.ErrInvalidExpressionNumber.New(p, len(exprs), len(p.Projections))
	}
	return NewProject(exprs, p.Child), nil
}

func (p *Project) String() string {
	pr := sql.NewTreePrinter()
	var exprs = make([]string, len(p.Projections))
	for i, expr := range p.Projections {
		exprs[i] = expr.String()
	}
	_ = pr.WriteNode("Project(%s)", strings.Join(exprs, ", "))
	_ = pr.WriteChildren(p.Child.String())
	return pr.String()
}

type projectIter struct {
	p         *Project
	childIter sql.RowIter
	done      func()
}

func (i *projectIter) Next(ctx *sql.Context) (sql.Row, error) {
	if err := ctx.Error(); err != nil {
		return nil, err
	}

	childRow, err := i.childIter.Next(ctx)
	if err != nil {
		return nil, err
	}

	fields := make(sql.Row, len(i.p.Projections))
	for idx, e := range i.p.Projections {
		f, err := e.Eval(ctx, childRow)
		if err != nil {
			return nil, err
		}
		fields[idx] = f
	}
	return fields, nil
}

func (i *projectIter) Close(ctx *sql.Context) error {
	if i.done != nil {
		i.done()
		i.done = nil
	}
	return i.childIter.Close(ctx)
}
