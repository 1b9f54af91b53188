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
	"strings"

	"github.com/mitchellh/hashstructure"

	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/expression"
)

// GroupBy is a hash aggregation. Output order is undefined unless a Sort
// follows. Aggregation state is guarded by the intermediate result limiter:
// once the number of distinct groups hits the cap, rows belonging to new
// groups are dropped with a truncation warning.
type GroupBy struct {
	UnaryNode
	Aggregate []sql.Expression
	Grouping  []sql.Expression
	Limiter   *ResultLimiter
}

// NewGroupBy creates a new GroupBy node.
func NewGroupBy(aggregate []sql.Expression, grouping []sql.Expression, child sql.Node) *GroupBy {
	return &GroupBy{
		UnaryNode: UnaryNode{Child: child},
		Aggregate: aggregate,
		Grouping:  grouping,
		Limiter:   NewResultLimiter(0),
	}
}

// Resolved implements the Resolvable interface.
func (p *GroupBy) Resolved() bool {
	return p.UnaryNode.Child.Resolved() &&
		expressionsResolved(p.Aggregate...) &&
		expressionsResolved(p.Grouping...)
}

func expressionsResolved(exprs ...sql.Expression) bool {
	for _, e := range exprs {
		if !e.Resolved() {
			return false
		}
	}
	return true
}

// Schema implements the Node interface.
func (p *GroupBy) Schema() sql.Schema {
	s := make(sql.Schema, len(p.Aggregate))
	for i, e := range p.Aggregate {
		s[i] = expressionToColumn(e)
	}
	return s
}

// RowIter implements the Node interface.
func (p *GroupBy) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	span, ctx := ctx.Span("plan.GroupBy")
	i, err := p.Child.RowIter(ctx)
	if err != nil {
		span.Finish()
		return nil, err
	}
	return &groupByIter{gb: p, childIter: i, done: span.Finish}, nil
}

// WithChildren implements the Node interface.
func (p *GroupBy) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(p, len(children), 1)
	}
	ng := NewGroupBy(p.Aggregate, p.Grouping, children[0])
	ng.Limiter = p.Limiter
	return ng, nil
}

// Expressions implements the Expressioner interface.
func (p *GroupBy) Expressions() []sql.Expression {
	var exprs []sql.Expression
	exprs = append(exprs, p.Aggregate...)
	exprs = append(exprs, p.Grouping...)
	return exprs
}

// WithExpressions implements the Expressioner interface.
func (p *GroupBy) WithExpressions(exprs ...sql.Expression) (sql.Node, error) {
	expected := len(p.Aggregate) + len(p.Grouping)
	if len(exprs) != expected {
		return nil, sql.ErrInvalidExpressionNumber.New(p, len(exprs), expected)
	}
	ng := NewGroupBy(exprs[:len(p.Aggregate)], exprs[len(p.Aggregate):], p.Child)
	ng.Limiter = p.Limiter
	return ng, nil
}

func (p *GroupBy) String() string {
	pr := sql.NewTreePrinter()
	var aggs = make([]string, len(p.Aggregate))
	for i, agg := range p.Aggregate {
		aggs[i] = agg.String()
	}
	var groupings = make([]string, len(p.Grouping))
	for i, g := range p.Grouping {
		groupings[i] = g.String()
	}
	_ = pr.WriteNode("GroupBy(%s, group: %s)",
		strings.Join(aggs, ", "), strings.Join(groupings, ", "))
	_ = pr.WriteChildren(p.Child.String())
	return pr.String()
}

type groupByIter struct {
	gb        *GroupBy
	childIter sql.RowIter
	rows      []sql.Row
	idx       int
	done      func()
}

func (i *groupByIter) Next(ctx *sql.Context) (sql.Row, error) {
	if i.rows == nil {
		if err := i.compute(ctx); err != nil {
			return nil, err
		}
	}
	if err := ctx.Error(); err != nil {
		return nil, err
	}
	if i.idx >= len(i.rows) {
		return nil, io.EOF
	}
	row := i.rows[i.idx]
	i.idx++
	return row, nil
}

func (i *groupByIter) Close(ctx *sql.Context) error {
	if i.done != nil {
		i.done()
		i.done = nil
	}
	i.rows = nil
	return i.childIter.Close(ctx)
}

func (i *groupByIter) compute(ctx *sql.Context) error {
	// Buffers per group, one slot per aggregate expression.
	buffers := make(map[uint64][]sql.Row)
	var order []uint64
	total := 0
	truncated := 0

	for {
		if err := ctx.Error(); err != nil {
			return err
		}
		row, err := i.childIter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		total++

		key, err := groupingKey(ctx, i.gb.Grouping, row)
		if err != nil {
			return err
		}

		buf, ok := buffers[key]
		if !ok {
			if len(buffers) >= i.gb.Limiter.Max {
				truncated++
				continue
			}
			buf = make([]sql.Row, len(i.gb.Aggregate))
			for j, a := range i.gb.Aggregate {
				if agg, ok := asAggregation(a); ok {
					buf[j] = agg.NewBuffer()
				} else {
					// Non-aggregate outputs evaluate against the first
					// row of the group.
					buf[j] = row
				}
			}
			buffers[key] = buf
			order = append(order, key)
		}

		for j, a := range i.gb.Aggregate {
			if agg, ok := asAggregation(a); ok {
				if err := agg.Update(ctx, buf[j], row); err != nil {
					return err
				}
			}
		}
	}

	if truncated > 0 {
		warn := truncationMessage(i.gb.Limiter.Max, total)
		ctx.Warn(TruncationWarning, "%s", warn)
		ctx.Logger().Warnf("%s", warn)
	}

	i.rows = make([]sql.Row, 0, len(order))
	for _, key := range order {
		buf := buffers[key]
		out := make(sql.Row, len(i.gb.Aggregate))
		for j, a := range i.gb.Aggregate {
			eval := a
			if agg, ok := asAggregation(a); ok {
				eval = agg
			}
			v, err := eval.Eval(ctx, buf[j])
			if err != nil {
				return err
			}
			out[j] = v
		}
		i.rows = append(i.rows, out)
	}
	return nil
}

// asAggregation unwraps aliases around an aggregation expression.
func asAggregation(e sql.Expression) (sql.Aggregation, bool) {
	switch e := e.(type) {
	case sql.Aggregation:
		return e, true
	case *expression.Alias:
		return asAggregation(e.Child)
	}
	return nil, false
}

// nullKey stands in for NULL values when hashing; hashstructure cannot hash
// a nil interface.
const nullKey = "\x00<null>"

// groupingKey hashes the grouping expression values of one row.
func groupingKey(ctx *sql.Context, grouping []sql.Expression, row sql.Row) (uint64, error) {
	if len(grouping) == 0 {
		return 0, nil
	}
	vals := make([]interface{}, len(grouping))
	for i, g := range grouping {
		v, err := g.Eval(ctx, row)
		if err != nil {
			return 0, err
		}
		if v == nil {
			v = nullKey
		}
		vals[i] = v
	}
	return hashstructure.Hash(vals, nil)
}
