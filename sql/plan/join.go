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
	"github.com/meshql/meshql/sql/expression"
)

// JoinType is the kind of a join operator.
type JoinType byte

const (
	// JoinTypeInner is an inner join.
	JoinTypeInner JoinType = iota
	// JoinTypeLeft is a left outer join.
	JoinTypeLeft
	// JoinTypeRight is a right outer join.
	JoinTypeRight
	// JoinTypeFull is a full outer join.
	JoinTypeFull
	// JoinTypeCross is a cross join.
	JoinTypeCross
)

func (t JoinType) String() string {
	switch t {
	case JoinTypeLeft:
		return "LeftJoin"
	case JoinTypeRight:
		return "RightJoin"
	case JoinTypeFull:
		return "FullJoin"
	case JoinTypeCross:
		return "CrossJoin"
	default:
		return "InnerJoin"
	}
}

// Join combines the rows of two children. Equi-conditions run as a hash
// join whose build side is the smaller estimated input; everything else
// falls back to a nested loop. The build side is bounded by the intermediate
// result limiter.
type Join struct {
	BinaryNode
	JoinType JoinType
	Cond     sql.Expression
	// BuildLeft hints that the left input is the smaller one and should be
	// the hash build side. Set by the physical planner from its estimates.
	BuildLeft bool
	Limiter   *ResultLimiter
}

// NewJoin creates a join of the given type.
func NewJoin(t JoinType, cond sql.Expression, left, right sql.Node) *Join {
	return &Join{
		BinaryNode: BinaryNode{Left: left, Right: right},
		JoinType:   t,
		Cond:       cond,
		Limiter:    NewResultLimiter(0),
	}
}

// NewInnerJoin creates an inner join.
func NewInnerJoin(left, right sql.Node, cond sql.Expression) *Join {
	return NewJoin(JoinTypeInner, cond, left, right)
}

// NewCrossJoin creates a cross join.
func NewCrossJoin(left, right sql.Node) *Join {
	return NewJoin(JoinTypeCross, nil, left, right)
}

// Schema implements the Node interface.
func (j *Join) Schema() sql.Schema {
	left := j.Left.Schema()
	right := j.Right.Schema()
	schema := make(sql.Schema, 0, len(left)+len(right))
	for _, c := range left {
		nc := *c
		if j.JoinType == JoinTypeRight || j.JoinType == JoinTypeFull {
			nc.Nullable = true
		}
		schema = append(schema, &nc)
	}
	for _, c := range right {
		nc := *c
		if j.JoinType == JoinTypeLeft || j.JoinType == JoinTypeFull {
			nc.Nullable = true
		}
		schema = append(schema, &nc)
	}
	return schema
}

// Resolved implements the Resolvable interface.
func (j *Join) Resolved() bool {
	if !j.BinaryNode.Resolved() {
		return false
	}
	return j.Cond == nil || j.Cond.Resolved()
}

// WithChildren implements the Node interface.
func (j *Join) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(j, len(children), 2)
	}
	nj := NewJoin(j.JoinType, j.Cond, children[0], children[1])
	nj.BuildLeft = j.BuildLeft
	nj.Limiter = j.Limiter
	return nj, nil
}

// Expressions implements the Expressioner interface.
func (j *Join) Expressions() []sql.Expression {
	if j.Cond == nil {
		return nil
	}
	return []sql.Expression{j.Cond}
}

// WithExpressions implements the Expressioner interface.
func (j *Join) WithExpressions(exprs ...sql.Expression) (sql.Node, error) {
	expected := len(j.Expressions())
	if len(exprs) != expected {
		return nil, sql.ErrInvalidExpressionNumber.New(j, len(exprs), expected)
	}
	var cond sql.Expression
	if expected == 1 {
		cond = exprs[0]
	}
	nj := NewJoin(j.JoinType, cond, j.Left, j.Right)
	nj.BuildLeft = j.BuildLeft
	nj.Limiter = j.Limiter
	return nj, nil
}

func (j *Join) String() string {
	pr := sql.NewTreePrinter()
	if j.Cond != nil {
		_ = pr.WriteNode("%s(%s)", j.JoinType, j.Cond)
	} else {
		_ = pr.WriteNode("%s", j.JoinType)
	}
	_ = pr.WriteChildren(j.Left.String(), j.Right.String())
	return pr.String()
}

// equiPair is one left-column = right-column condition of a join. Indexes
// are relative to the concatenated left+right row.
type equiPair struct {
	left  *expression.GetField
	right *expression.GetField
}

// equiConditions splits the join condition into hashable equi pairs and the
// residual predicate. nil residual means the pairs cover the condition.
func (j *Join) equiConditions() ([]equiPair, sql.Expression) {
	if j.Cond == nil {
		return nil, nil
	}
	leftCols := len(j.Left.Schema())

	var pairs []equiPair
	var residual []sql.Expression
	for _, conj := range expression.SplitConjunction(j.Cond) {
		eq, ok := conj.(*expression.Equals)
		if !ok {
			residual = append(residual, conj)
			continue
		}
		l, lok := eq.Left.(*expression.GetField)
		r, rok := eq.Right.(*expression.GetField)
		if !lok || !rok {
			residual = append(residual, conj)
			continue
		}
		switch {
		case l.Index() < leftCols && r.Index() >= leftCols:
			pairs = append(pairs, equiPair{left: l, right: r})
		case r.Index() < leftCols && l.Index() >= leftCols:
			pairs = append(pairs, equiPair{left: r, right: l})
		default:
			residual = append(residual, conj)
		}
	}
	return pairs, expression.JoinAnd(residual...)
}

// RowIter implements the Node interface.
func (j *Join) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	span, ctx := ctx.Span("plan." + j.JoinType.String())

	pairs, residual := j.equiConditions()
	if len(pairs) > 0 {
		it := &hashJoinIter{join: j, pairs: pairs, residual: residual, done: span.Finish}
		return it, nil
	}
	return &loopJoinIter{join: j, done: span.Finish}, nil
}

// hashJoinIter builds a hash table over one side and probes it with the
// other. The probe side always streams; only the build side materializes.
type hashJoinIter struct {
	join     *Join
	pairs    []equiPair
	residual sql.Expression

	probe    sql.RowIter
	table    map[uint64][]sql.Row
	matched  map[uint64][]bool
	pending  []sql.Row
	leftover [][]sql.Row // unmatched build rows for FULL joins
	buildIsLeft bool
	leftCols int
	rightCols int
	closed   bool
	done     func()
}

func (i *hashJoinIter) init(ctx *sql.Context) error {
	j := i.join
	i.leftCols = len(j.Left.Schema())
	i.rightCols = len(j.Right.Schema())

	// The build side is the hinted smaller input, except that outer joins
	// must stream the outer side: a LEFT join builds right, a RIGHT join
	// builds left, a FULL join builds right and tracks matches.
	switch j.JoinType {
	case JoinTypeLeft, JoinTypeFull:
		i.buildIsLeft = false
	case JoinTypeRight:
		i.buildIsLeft = true
	default:
		i.buildIsLeft = j.BuildLeft
	}

	buildNode, probeNode := j.Right, j.Left
	if i.buildIsLeft {
		buildNode, probeNode = j.Left, j.Right
	}

	buildIter, err := buildNode.RowIter(ctx)
	if err != nil {
		return err
	}
	collected, err := j.Limiter.Collect(ctx, buildIter)
	if err != nil {
		return err
	}

	i.table = make(map[uint64][]sql.Row)
	i.matched = make(map[uint64][]bool)
	for _, row := range collected.Rows {
		key, err := i.buildKey(ctx, row)
		if err != nil {
			return err
		}
		i.table[key] = append(i.table[key], row)
		i.matched[key] = append(i.matched[key], false)
	}

	probe, err := probeNode.RowIter(ctx)
	if err != nil {
		return err
	}
	i.probe = probe
	return nil
}

// buildKey hashes the join key columns of a build-side row.
func (i *hashJoinIter) buildKey(ctx *sql.Context, row sql.Row) (uint64, error) {
	vals := make([]interface{}, len(i.pairs))
	for n, p := range i.pairs {
		field := p.right
		offset := i.leftCols
		if i.buildIsLeft {
			field = p.left
			offset = 0
		}
		idx := field.Index() - offset
		if idx < 0 || idx >= len(row) {
			return 0, sql.ErrPlan.New("join key index out of range")
		}
		v, err := normalizeKey(field.Type(), row[idx])
		if err != nil {
			return 0, err
		}
		if v == nil {
			v = nullKey
		}
		vals[n] = v
	}
	return hashstructure.Hash(vals, nil)
}

// probeKey hashes the join key columns of a probe-side row.
func (i *hashJoinIter) probeKey(ctx *sql.Context, row sql.Row) (uint64, error) {
	vals := make([]interface{}, len(i.pairs))
	for n, p := range i.pairs {
		field := p.left
		offset := 0
		if i.buildIsLeft {
			field = p.right
			offset = i.leftCols
		}
		idx := field.Index() - offset
		if idx < 0 || idx >= len(row) {
			return 0, sql.ErrPlan.New("join key index out of range")
		}
		v, err := normalizeKey(field.Type(), row[idx])
		if err != nil {
			return 0, err
		}
		if v == nil {
			v = nullKey
		}
		vals[n] = v
	}
	return hashstructure.Hash(vals, nil)
}

// normalizeKey converts a key value to the canonical representation of its
// column type so 1 and int64(1) hash alike.
func normalizeKey(t sql.Type, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	return t.Convert(v)
}

// combine concatenates probe and build rows back into left+right order.
func (i *hashJoinIter) combine(probe, build sql.Row) sql.Row {
	if i.buildIsLeft {
		return append(build.Copy(), probe...)
	}
	return append(probe.Copy(), build...)
}

func (i *hashJoinIter) Next(ctx *sql.Context) (sql.Row, error) {
	if i.closed {
		return nil, sql.ErrIteratorClosed.New()
	}
	if err := ctx.Error(); err != nil {
		return nil, err
	}
	if i.table == nil {
		if err := i.init(ctx); err != nil {
			return nil, err
		}
	}

	for {
		if len(i.pending) > 0 {
			row := i.pending[0]
			i.pending = i.pending[1:]
			return row, nil
		}

		probeRow, err := i.probe.Next(ctx)
		if err == io.EOF {
			return i.drainUnmatched(ctx)
		}
		if err != nil {
			return nil, err
		}

		key, err := i.probeKey(ctx, probeRow)
		if err != nil {
			return nil, err
		}

		matched := false
		for n, buildRow := range i.table[key] {
			full := i.combine(probeRow, buildRow)
			ok, err := i.condMatches(ctx, full)
			if err != nil {
				return nil, err
			}
			if ok {
				matched = true
				i.matched[key][n] = true
				i.pending = append(i.pending, full)
			}
		}

		if !matched && i.outerProbe() {
			i.pending = append(i.pending, i.padProbe(probeRow))
		}
	}
}

// condMatches checks the residual predicate, plus value equality of the key
// columns (the hash may collide).
func (i *hashJoinIter) condMatches(ctx *sql.Context, full sql.Row) (bool, error) {
	for _, p := range i.pairs {
		lv, err := p.left.Eval(ctx, full)
		if err != nil {
			return false, err
		}
		rv, err := p.right.Eval(ctx, full)
		if err != nil {
			return false, err
		}
		if lv == nil || rv == nil {
			return false, nil
		}
		cmp, err := p.left.Type().Compare(lv, rv)
		if err != nil {
			return false, err
		}
		if cmp != 0 {
			return false, nil
		}
	}
	if i.residual == nil {
		return true, nil
	}
	v, err := i.residual.Eval(ctx, full)
	if err != nil {
		return false, err
	}
	return v == true, nil
}

// outerProbe reports whether unmatched probe rows are emitted padded with
// NULLs.
func (i *hashJoinIter) outerProbe() bool {
	switch i.join.JoinType {
	case JoinTypeLeft, JoinTypeFull:
		return !i.buildIsLeft
	case JoinTypeRight:
		return i.buildIsLeft
	}
	return false
}

// padProbe pads an unmatched probe row with NULLs on the build side.
func (i *hashJoinIter) padProbe(probe sql.Row) sql.Row {
	if i.buildIsLeft {
		return append(nullRow(i.leftCols), probe...)
	}
	return append(probe.Copy(), nullRow(i.rightCols)...)
}

// drainUnmatched emits the unmatched build rows of a FULL join, padded with
// NULLs on the probe side, then finishes.
func (i *hashJoinIter) drainUnmatched(ctx *sql.Context) (sql.Row, error) {
	if i.join.JoinType != JoinTypeFull {
		return nil, io.EOF
	}
	if i.leftover == nil {
		i.leftover = [][]sql.Row{nil}
		var rows []sql.Row
		for key, buildRows := range i.table {
			for n, row := range buildRows {
				if !i.matched[key][n] {
					// Build side is right on FULL joins.
					rows = append(rows, append(nullRow(i.leftCols), row...))
				}
			}
		}
		i.pending = append(i.pending, rows...)
	}
	if len(i.pending) > 0 {
		row := i.pending[0]
		i.pending = i.pending[1:]
		return row, nil
	}
	return nil, io.EOF
}

func nullRow(n int) sql.Row {
	return make(sql.Row, n)
}

func (i *hashJoinIter) Close(ctx *sql.Context) error {
	if i.closed {
		return nil
	}
	i.closed = true
	if i.done != nil {
		i.done()
		i.done = nil
	}
	i.table = nil
	i.pending = nil
	if i.probe != nil {
		return i.probe.Close(ctx)
	}
	return nil
}

// loopJoinIter is the nested-loop fallback for joins without equi
// conditions. The right side materializes once, bounded by the limiter.
type loopJoinIter struct {
	join    *Join
	left    sql.RowIter
	right   []sql.Row
	leftRow sql.Row
	// leftMatched tracks whether the current left row found a match, for
	// outer padding.
	leftMatched  bool
	rightIdx     int
	rightMatched []bool
	drained      bool
	closed       bool
	done         func()
}

func (i *loopJoinIter) init(ctx *sql.Context) error {
	rightIter, err := i.join.Right.RowIter(ctx)
	if err != nil {
		return err
	}
	collected, err := i.join.Limiter.Collect(ctx, rightIter)
	if err != nil {
		return err
	}
	i.right = collected.Rows
	i.rightMatched = make([]bool, len(i.right))

	left, err := i.join.Left.RowIter(ctx)
	if err != nil {
		return err
	}
	i.left = left
	return nil
}

func (i *loopJoinIter) Next(ctx *sql.Context) (sql.Row, error) {
	if i.closed {
		return nil, sql.ErrIteratorClosed.New()
	}
	if i.right == nil && !i.drained {
		if err := i.init(ctx); err != nil {
			return nil, err
		}
	}

	for {
		if err := ctx.Error(); err != nil {
			return nil, err
		}

		if i.leftRow == nil {
			row, err := i.left.Next(ctx)
			if err == io.EOF {
				return i.drainRight(ctx)
			}
			if err != nil {
				return nil, err
			}
			i.leftRow = row
			i.leftMatched = false
			i.rightIdx = 0
		}

		for i.rightIdx < len(i.right) {
			idx := i.rightIdx
			i.rightIdx++
			full := append(i.leftRow.Copy(), i.right[idx]...)

			ok := true
			if i.join.Cond != nil {
				v, err := i.join.Cond.Eval(ctx, full)
				if err != nil {
					return nil, err
				}
				ok = v == true
			}
			if ok {
				i.leftMatched = true
				i.rightMatched[idx] = true
				return full, nil
			}
		}

		// Left row exhausted the right side.
		leftRow := i.leftRow
		matched := i.leftMatched
		i.leftRow = nil
		if !matched && (i.join.JoinType == JoinTypeLeft || i.join.JoinType == JoinTypeFull) {
			return append(leftRow.Copy(), nullRow(len(i.join.Right.Schema()))...), nil
		}
	}
}

// drainRight emits unmatched right rows for RIGHT and FULL joins.
func (i *loopJoinIter) drainRight(ctx *sql.Context) (sql.Row, error) {
	if i.join.JoinType != JoinTypeRight && i.join.JoinType != JoinTypeFull {
		return nil, io.EOF
	}
	for !i.drained {
		for idx, matched := range i.rightMatched {
			if !matched {
				i.rightMatched[idx] = true
				return append(nullRow(len(i.join.Left.Schema())), i.right[idx]...), nil
			}
		}
		i.drained = true
	}
	return nil, io.EOF
}

func (i *loopJoinIter) Close(ctx *sql.Context) error {
	if i.closed {
		return nil
	}
	i.closed = true
	if i.done != nil {
		i.done()
		i.done = nil
	}
	i.right = nil
	if i.left != nil {
		return i.left.Close(ctx)
	}
	return nil
}
