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
	"sort"
	"strings"

	"github.com/meshql/meshql/sql"
)

// SortOrder is the direction of one sort field.
type SortOrder byte

const (
	// Ascending order.
	Ascending SortOrder = iota
	// Descending order.
	Descending
)

func (o SortOrder) String() string {
	if o == Descending {
		return "DESC"
	}
	return "ASC"
}

// SortField is one ORDER BY key.
type SortField struct {
	Column sql.Expression
	Order  SortOrder
}

// Sort is a fully materializing in-memory sort, guarded by the intermediate
// result limiter.
type Sort struct {
	UnaryNode
	SortFields []SortField
	Limiter    *ResultLimiter
}

// NewSort creates a new Sort node.
func NewSort(sortFields []SortField, child sql.Node) *Sort {
	return &Sort{
		UnaryNode:  UnaryNode{child},
		SortFields: sortFields,
		Limiter:    NewResultLimiter(0),
	}
}

// WithLimiter returns a copy of the sort using the given limiter.
func (s *Sort) WithLimiter(l *ResultLimiter) *Sort {
	ns := *s
	ns.Limiter = l
	return &ns
}

// Resolved implements the Resolvable interface.
func (s *Sort) Resolved() bool {
	if !s.UnaryNode.Child.Resolved() {
		return false
	}
	for _, f := range s.SortFields {
		if !f.Column.Resolved() {
			return false
		}
	}
	return true
}

// RowIter implements the Node interface.
func (s *Sort) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	span, ctx := ctx.Span("plan.Sort")
	i, err := s.Child.RowIter(ctx)
	if err != nil {
		span.Finish()
		return nil, err
	}
	return &sortIter{s: s, childIter: i, done: span.Finish}, nil
}

// WithChildren implements the Node interface.
func (s *Sort) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(s, len(children), 1)
	}
	ns := NewSort(s.SortFields, children[0])
	ns.Limiter = s.Limiter
	return ns, nil
}

// Expressions implements the Expressioner interface.
func (s *Sort) Expressions() []sql.Expression {
	exprs := make([]sql.Expression, len(s.SortFields))
	for i, f := range s.SortFields {
		exprs[i] = f.Column
	}
	return exprs
}

// WithExpressions implements the Expressioner interface.
func (s *Sort) WithExpressions(exprs ...sql.Expression) (sql.Node, error) {
	if len(exprs) != len(s.SortFields) {
		return nil, sql.ErrInvalidExpressionNumber.New(s, len(exprs), len(s.SortFields))
	}
	fields := make([]SortField, len(exprs))
	for i, e := range exprs {
		fields[i] = SortField{Column: e, Order: s.SortFields[i].Order}
	}
	ns := NewSort(fields, s.Child)
	ns.Limiter = s.Limiter
	return ns, nil
}

func (s *Sort) String() string {
	pr := sql.NewTreePrinter()
	var fields = make([]string, len(s.SortFields))
	for i, f := range s.SortFields {
		fields[i] = fmt.Sprintf("%s %s", f.Column, f.Order)
	}
	_ = pr.WriteNode("Sort(%s)", strings.Join(fields, ", "))
	_ = pr.WriteChildren(s.Child.String())
	return pr.String()
}

type sortIter struct {
	s          *Sort
	childIter  sql.RowIter
	sortedRows []sql.Row
	idx        int
	done       func()
}

func (i *sortIter) Next(ctx *sql.Context) (sql.Row, error) {
	if i.sortedRows == nil {
		if err := i.computeSortedRows(ctx); err != nil {
			return nil, err
		}
	}

	if i.idx >= len(i.sortedRows) {
		return nil, io.EOF
	}
	if err := ctx.Error(); err != nil {
		return nil, err
	}

	row := i.sortedRows[i.idx]
	i.idx++
	return row, nil
}

func (i *sortIter) Close(ctx *sql.Context) error {
	if i.done != nil {
		i.done()
		i.done = nil
	}
	i.sortedRows = nil
	return i.childIter.Close(ctx)
}

func (i *sortIter) computeSortedRows(ctx *sql.Context) error {
	collected, err := i.s.Limiter.Collect(ctx, i.childIter)
	if err != nil {
		return err
	}
	rows := collected.Rows

	var sortErr error
	sort.SliceStable(rows, func(a, b int) bool {
		if sortErr != nil {
			return false
		}
		less, err := lessRow(ctx, i.s.SortFields, rows[a], rows[b])
		if err != nil {
			sortErr = err
			return false
		}
		return less
	})
	if sortErr != nil {
		return sortErr
	}

	i.sortedRows = rows
	return nil
}

func lessRow(ctx *sql.Context, fields []SortField, a, b sql.Row) (bool, error) {
	for _, f := range fields {
		av, err := f.Column.Eval(ctx, a)
		if err != nil {
			return false, err
		}
		bv, err := f.Column.Eval(ctx, b)
		if err != nil {
			return false, err
		}

		cmp, err := f.Column.Type().Compare(av, bv)
		if err != nil {
			return false, err
		}
		if cmp == 0 {
			continue
		}
		if f.Order == Descending {
			return cmp > 0, nil
		}
		return cmp < 0, nil
	}
	return false, nil
}
