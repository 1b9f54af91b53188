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

// Package aggregation implements the aggregate functions of the engine:
// COUNT, SUM, AVG, MIN and MAX.
package aggregation

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/expression"
)

// Count is the COUNT aggregation. It counts non-NULL evaluations of its
// child; NewCountAll gives it a constant child, so COUNT(*) counts every row.
type Count struct {
	expression.UnaryExpression
}

// NewCount creates a new Count node.
func NewCount(e sql.Expression) *Count {
	return &Count{expression.UnaryExpression{Child: e}}
}

// NewCountAll creates a COUNT(*) node.
func NewCountAll() *Count {
	return NewCount(expression.NewLiteral(int64(1), sql.Int64))
}

// Type implements the Expression interface.
func (*Count) Type() sql.Type { return sql.Int64 }

// IsNullable implements the Expression interface.
func (*Count) IsNullable() bool { return false }

func (c *Count) String() string {
	return fmt.Sprintf("COUNT(%s)", c.Child)
}

// NewBuffer implements the Aggregation interface.
func (c *Count) NewBuffer() sql.Row { return sql.NewRow(int64(0)) }

// Update implements the Aggregation interface.
func (c *Count) Update(ctx *sql.Context, buffer, row sql.Row) error {
	v, err := c.Child.Eval(ctx, row)
	if err != nil {
		return err
	}
	if v != nil {
		buffer[0] = buffer[0].(int64) + 1
	}
	return nil
}

// Eval implements the Expression interface: it reads the final count out of
// the aggregation buffer.
func (c *Count) Eval(ctx *sql.Context, buffer sql.Row) (interface{}, error) {
	return buffer[0], nil
}

// WithChildren implements the Expression interface.
func (c *Count) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(c, len(children), 1)
	}
	return NewCount(children[0]), nil
}

// Sum is the SUM aggregation. NULL values are ignored; the sum of no values
// is NULL.
type Sum struct {
	expression.UnaryExpression
}

// NewSum creates a new Sum node.
func NewSum(e sql.Expression) *Sum {
	return &Sum{expression.UnaryExpression{Child: e}}
}

// Type implements the Expression interface.
func (*Sum) Type() sql.Type { return sql.Float64 }

func (s *Sum) String() string {
	return fmt.Sprintf("SUM(%s)", s.Child)
}

// NewBuffer implements the Aggregation interface.
func (s *Sum) NewBuffer() sql.Row { return sql.NewRow(nil) }

// Update implements the Aggregation interface.
func (s *Sum) Update(ctx *sql.Context, buffer, row sql.Row) error {
	v, err := s.Child.Eval(ctx, row)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return sql.ErrInvalidType.New(v)
	}
	if buffer[0] == nil {
		buffer[0] = float64(0)
	}
	buffer[0] = buffer[0].(float64) + f
	return nil
}

// Eval implements the Expression interface.
func (s *Sum) Eval(ctx *sql.Context, buffer sql.Row) (interface{}, error) {
	return buffer[0], nil
}

// WithChildren implements the Expression interface.
func (s *Sum) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(s, len(children), 1)
	}
	return NewSum(children[0]), nil
}

// Avg is the AVG aggregation.
type Avg struct {
	expression.UnaryExpression
}

// NewAvg creates a new Avg node.
func NewAvg(e sql.Expression) *Avg {
	return &Avg{expression.UnaryExpression{Child: e}}
}

// Type implements the Expression interface.
func (*Avg) Type() sql.Type { return sql.Float64 }

func (a *Avg) String() string {
	return fmt.Sprintf("AVG(%s)", a.Child)
}

// NewBuffer implements the Aggregation interface: sum and count.
func (a *Avg) NewBuffer() sql.Row { return sql.NewRow(float64(0), int64(0)) }

// Update implements the Aggregation interface.
func (a *Avg) Update(ctx *sql.Context, buffer, row sql.Row) error {
	v, err := a.Child.Eval(ctx, row)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return sql.ErrInvalidType.New(v)
	}
	buffer[0] = buffer[0].(float64) + f
	buffer[1] = buffer[1].(int64) + 1
	return nil
}

// Eval implements the Expression interface.
func (a *Avg) Eval(ctx *sql.Context, buffer sql.Row) (interface{}, error) {
	count := buffer[1].(int64)
	if count == 0 {
		return nil, nil
	}
	return buffer[0].(float64) / float64(count), nil
}

// WithChildren implements the Expression interface.
func (a *Avg) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(a, len(children), 1)
	}
	return NewAvg(children[0]), nil
}

// Min is the MIN aggregation. NULL values are ignored.
type Min struct {
	expression.UnaryExpression
}

// NewMin creates a new Min node.
func NewMin(e sql.Expression) *Min {
	return &Min{expression.UnaryExpression{Child: e}}
}

// Type implements the Expression interface.
func (m *Min) Type() sql.Type { return m.Child.Type() }

func (m *Min) String() string {
	return fmt.Sprintf("MIN(%s)", m.Child)
}

// NewBuffer implements the Aggregation interface.
func (m *Min) NewBuffer() sql.Row { return sql.NewRow(nil) }

// Update implements the Aggregation interface.
func (m *Min) Update(ctx *sql.Context, buffer, row sql.Row) error {
	v, err := m.Child.Eval(ctx, row)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if buffer[0] == nil {
		buffer[0] = v
		return nil
	}
	cmp, err := m.Child.Type().Compare(v, buffer[0])
	if err != nil {
		return err
	}
	if cmp < 0 {
		buffer[0] = v
	}
	return nil
}

// Eval implements the Expression interface.
func (m *Min) Eval(ctx *sql.Context, buffer sql.Row) (interface{}, error) {
	return buffer[0], nil
}

// WithChildren implements the Expression interface.
func (m *Min) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(m, len(children), 1)
	}
	return NewMin(children[0]), nil
}

// Max is the MAX aggregation. NULL values are ignored.
type Max struct {
	expression.UnaryExpression
}

// NewMax creates a new Max node.
func NewMax(e sql.Expression) *Max {
	return &Max{expression.UnaryExpression{Child: e}}
}

// Type implements the Expression interface.
func (m *Max) Type() sql.Type { return m.Child.Type() }

func (m *Max) String() string {
	return fmt.Sprintf("MAX(%s)", m.Child)
}

// NewBuffer implements the Aggregation interface.
func (m *Max) NewBuffer() sql.Row { return sql.NewRow(nil) }

// Update implements the Aggregation interface.
func (m *Max) Update(ctx *sql.Context, buffer, row sql.Row) error {
	v, err := m.Child.Eval(ctx, row)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if buffer[0] == nil {
		buffer[0] = v
		return nil
	}
	cmp, err := m.Child.Type().Compare(v, buffer[0])
	if err != nil {
		return err
	}
	if cmp > 0 {
		buffer[0] = v
	}
	return nil
}

// Eval implements the Expression interface.
func (m *Max) Eval(ctx *sql.Context, buffer sql.Row) (interface{}, error) {
	return buffer[0], nil
}

// WithChildren implements the Expression interface.
func (m *Max) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(m, len(children), 1)
	}
	return NewMax(children[0]), nil
}
