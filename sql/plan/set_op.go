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

	"github.com/mitchellh/hashstructure"

	"github.com/meshql/meshql/sql"
)

// Union of two queries. Without distinct it concatenates both inputs;
// with distinct, duplicate rows across both inputs collapse.
type Union struct {
	BinaryNode
	Distinct bool
}

// NewUnion creates a union node.
func NewUnion(left, right sql.Node, distinct bool) *Union {
	return &Union{BinaryNode: BinaryNode{Left: left, Right: right}, Distinct: distinct}
}

// Schema implements the Node interface.
func (u *Union) Schema() sql.Schema { return u.Left.Schema() }

// RowIter implements the Node interface.
func (u *Union) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	span, ctx := ctx.Span("plan.Union")
	var node sql.Node = u
	if u.Distinct {
		node = NewDistinct(NewUnion(u.Left, u.Right, false))
		iter, err := node.RowIter(ctx)
		if err != nil {
			span.Finish()
			return nil, err
		}
		return &spannedIter{iter: iter, done: span.Finish}, nil
	}

	li, err := u.Left.RowIter(ctx)
	if err != nil {
		span.Finish()
		return nil, err
	}
	return &unionIter{left: li, right: u.Right, done: span.Finish}, nil
}

// WithChildren implements the Node interface.
func (u *Union) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(u, len(children), 2)
	}
	return NewUnion(children[0], children[1], u.Distinct), nil
}

func (u *Union) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("Union")
	_ = pr.WriteChildren(u.Left.String(), u.Right.String())
	return pr.String()
}

type unionIter struct {
	left      sql.RowIter
	right     sql.Node
	rightIter sql.RowIter
	done      func()
}

func (i *unionIter) Next(ctx *sql.Context) (sql.Row, error) {
	if err := ctx.Error(); err != nil {
		return nil, err
	}
	if i.left != nil {
		row, err := i.left.Next(ctx)
		if err == io.EOF {
			if cerr := i.left.Close(ctx); cerr != nil {
				return nil, cerr
			}
			i.left = nil
		} else {
			return row, err
		}
	}

	if i.rightIter == nil {
		var err error
		i.rightIter, err = i.right.RowIter(ctx)
		if err != nil {
			return nil, err
		}
	}
	return i.rightIter.Next(ctx)
}

func (i *unionIter) Close(ctx *sql.Context) error {
	if i.done != nil {
		i.done()
		i.done = nil
	}
	var err error
	if i.left != nil {
		err = i.left.Close(ctx)
		i.left = nil
	}
	if i.rightIter != nil {
		if cerr := i.rightIter.Close(ctx); err == nil {
			err = cerr
		}
		i.rightIter = nil
	}
	return err
}

// spannedIter finishes a tracing span when closed.
type spannedIter struct {
	iter sql.RowIter
	done func()
}

func (i *spannedIter) Next(ctx *sql.Context) (sql.Row, error) { return i.iter.Next(ctx) }

func (i *spannedIter) Close(ctx *sql.Context) error {
	if i.done != nil {
		i.done()
		i.done = nil
	}
	return i.iter.Close(ctx)
}

// SetOpType distinguishes Intersect and Except.
type SetOpType byte

const (
	// SetOpIntersect keeps rows present in both inputs.
	SetOpIntersect SetOpType = iota
	// SetOpExcept keeps left rows absent from the right input.
	SetOpExcept
)

func (t SetOpType) String() string {
	if t == SetOpExcept {
		return "Except"
	}
	return "Intersect"
}

// SetOp implements INTERSECT and EXCEPT by hashing the right input, bounded
// by the intermediate result limiter.
type SetOp struct {
	BinaryNode
	Type    SetOpType
	Limiter *ResultLimiter
}

// NewSetOp creates an Intersect or Except node.
func NewSetOp(t SetOpType, left, right sql.Node) *SetOp {
	return &SetOp{
		BinaryNode: BinaryNode{Left: left, Right: right},
		Type:       t,
		Limiter:    NewResultLimiter(0),
	}
}

// Schema implements the Node interface.
func (s *SetOp) Schema() sql.Schema { return s.Left.Schema() }

// WithChildren implements the Node interface.
func (s *SetOp) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(s, len(children), 2)
	}
	ns := NewSetOp(s.Type, children[0], children[1])
	ns.Limiter = s.Limiter
	return ns, nil
}

func (s *SetOp) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("%s", s.Type)
	_ = pr.WriteChildren(s.Left.String(), s.Right.String())
	return pr.String()
}

// RowIter implements the Node interface.
func (s *SetOp) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	span, ctx := ctx.Span("plan." + s.Type.String())
	ri, err := s.Right.RowIter(ctx)
	if err != nil {
		span.Finish()
		return nil, err
	}
	collected, err := s.Limiter.Collect(ctx, ri)
	if err != nil {
		span.Finish()
		return nil, err
	}

	rightSet := make(map[uint64]bool)
	for _, row := range collected.Rows {
		key, err := hashRow(row)
		if err != nil {
			span.Finish()
			return nil, err
		}
		rightSet[key] = true
	}

	li, err := s.Left.RowIter(ctx)
	if err != nil {
		span.Finish()
		return nil, err
	}
	return &setOpIter{op: s.Type, left: li, rightSet: rightSet, emitted: map[uint64]bool{}, done: span.Finish}, nil
}

type setOpIter struct {
	op       SetOpType
	left     sql.RowIter
	rightSet map[uint64]bool
	emitted  map[uint64]bool
	done     func()
}

func (i *setOpIter) Next(ctx *sql.Context) (sql.Row, error) {
	for {
		if err := ctx.Error(); err != nil {
			return nil, err
		}
		row, err := i.left.Next(ctx)
		if err != nil {
			return nil, err
		}
		key, err := hashRow(row)
		if err != nil {
			return nil, err
		}
		if i.emitted[key] {
			continue
		}

		inRight := i.rightSet[key]
		if (i.op == SetOpIntersect) == inRight {
			i.emitted[key] = true
			return row, nil
		}
	}
}

func (i *setOpIter) Close(ctx *sql.Context) error {
	if i.done != nil {
		i.done()
		i.done = nil
	}
	return i.left.Close(ctx)
}

func hashRow(row sql.Row) (uint64, error) {
	vals := make([]interface{}, len(row))
	for i, v := range row {
		if v == nil {
			v = nullKey
		}
		vals[i] = v
	}
	return hashstructure.Hash(vals, nil)
}

// Distinct removes duplicate rows from its child, hashing rows as they
// stream. The seen-set is bounded by the intermediate result limiter.
type Distinct struct {
	UnaryNode
	Limiter *ResultLimiter
}

// NewDistinct creates a new Distinct node.
func NewDistinct(child sql.Node) *Distinct {
	return &Distinct{UnaryNode: UnaryNode{Child: child}, Limiter: NewResultLimiter(0)}
}

// RowIter implements the Node interface.
func (d *Distinct) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	span, ctx := ctx.Span("plan.Distinct")
	it, err := d.Child.RowIter(ctx)
	if err != nil {
		span.Finish()
		return nil, err
	}
	return &distinctIter{childIter: it, seen: map[uint64]bool{}, max: d.Limiter.Max, done: span.Finish}, nil
}

// WithChildren implements the Node interface.
func (d *Distinct) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(d, len(children), 1)
	}
	nd := NewDistinct(children[0])
	nd.Limiter = d.Limiter
	return nd, nil
}

func (d *Distinct) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("Distinct")
	_ = pr.WriteChildren(d.Child.String())
	return pr.String()
}

type distinctIter struct {
	childIter sql.RowIter
	seen      map[uint64]bool
	max       int
	warned    bool
	done      func()
}

func (i *distinctIter) Next(ctx *sql.Context) (sql.Row, error) {
	for {
		if err := ctx.Error(); err != nil {
			return nil, err
		}
		row, err := i.childIter.Next(ctx)
		if err != nil {
			return nil, err
		}

		key, err := hashRow(row)
		if err != nil {
			return nil, err
		}
		if i.seen[key] {
			continue
		}
		if len(i.seen) >= i.max {
			// Stop deduplicating rather than failing: rows keep flowing
			// but the seen-set no longer grows.
			if !i.warned {
				i.warned = true
				warn := truncationMessage(i.max, len(i.seen))
				ctx.Warn(TruncationWarning, "%s", warn)
			}
			return row, nil
		}
		i.seen[key] = true
		return row, nil
	}
}

func (i *distinctIter) Close(ctx *sql.Context) error {
	if i.done != nil {
		i.done()
		i.done = nil
	}
	i.seen = nil
	return i.childIter.Close(ctx)
}
