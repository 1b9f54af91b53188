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

// Limit skips Offset rows of its child and then emits up to Count rows.
// A negative Count means no count bound was given, only an offset.
type Limit struct {
	UnaryNode
	Count  int64
	Offset int64
}

// NewLimit creates a new Limit node.
func NewLimit(count, offset int64, child sql.Node) *Limit {
	return &Limit{
		UnaryNode: UnaryNode{Child: child},
		Count:     count,
		Offset:    offset,
	}
}

// RowIter implements the Node interface.
func (l *Limit) RowIter(ctx *sql.Context) (sql.RowIter, error) {
	span, ctx := ctx.Span("plan.Limit")
	li, err := l.Child.RowIter(ctx)
	if err != nil {
		span.Finish()
		return nil, err
	}
	return &limitIter{l: l, childIter: li, done: span.Finish}, nil
}

// WithChildren implements the Node interface.
func (l *Limit) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(l, len(children), 1)
	}
	return NewLimit(l.Count, l.Offset, children[0]), nil
}

func (l *Limit) String() string {
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("Limit(%d, %d)", l.Count, l.Offset)
	_ = pr.WriteChildren(l.Child.String())
	return pr.String()
}

type limitIter struct {
	l          *Limit
	childIter  sql.RowIter
	skipped    int64
	emitted    int64
	done       func()
}

func (li *limitIter) Next(ctx *sql.Context) (sql.Row, error) {
	if err := ctx.Error(); err != nil {
		return nil, err
	}
	if li.l.Count >= 0 && li.emitted >= li.l.Count {
		return nil, io.EOF
	}

	for li.skipped < li.l.Offset {
		if _, err := li.childIter.Next(ctx); err != nil {
			return nil, err
		}
		li.skipped++
	}

	row, err := li.childIter.Next(ctx)
	if err != nil {
		return nil, err
	}
	li.emitted++
	return row, nil
}

func (li *limitIter) Close(ctx *sql.Context) error {
	if li.done != nil {
		li.done()
		li.done = nil
	}
	return li.childIter.Close(ctx)
}
