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

package expression

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/meshql/meshql/sql"
)

// Arithmetic expressions (+, -, *, /, %, ||). Integer operands stay integer
// except for division, which always produces a float. A NULL operand
// produces NULL.
type Arithmetic struct {
	BinaryExpression
	Op string
}

// NewArithmetic creates an arithmetic expression with the given operator.
func NewArithmetic(left, right sql.Expression, op string) *Arithmetic {
	return &Arithmetic{BinaryExpression{left, right}, op}
}

// NewPlus creates a + expression.
func NewPlus(left, right sql.Expression) *Arithmetic { return NewArithmetic(left, right, "+") }

// NewMinus creates a - expression.
func NewMinus(left, right sql.Expression) *Arithmetic { return NewArithmetic(left, right, "-") }

// NewMult creates a * expression.
func NewMult(left, right sql.Expression) *Arithmetic { return NewArithmetic(left, right, "*") }

// NewDiv creates a / expression.
func NewDiv(left, right sql.Expression) *Arithmetic { return NewArithmetic(left, right, "/") }

// NewMod creates a % expression.
func NewMod(left, right sql.Expression) *Arithmetic { return NewArithmetic(left, right, "%") }

// NewConcat creates a || expression.
func NewConcat(left, right sql.Expression) *Arithmetic { return NewArithmetic(left, right, "||") }

// Type implements the Expression interface.
func (a *Arithmetic) Type() sql.Type {
	switch a.Op {
	case "||":
		return sql.Text
	case "/":
		return sql.Float64
	default:
		if a.Left.Type() == sql.Int64 && a.Right.Type() == sql.Int64 {
			return sql.Int64
		}
		return sql.Float64
	}
}

func (a *Arithmetic) String() string {
	return fmt.Sprintf("(%s %s %s)", a.Left, a.Op, a.Right)
}

// Eval implements the Expression interface.
func (a *Arithmetic) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	lval, err := a.Left.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	rval, err := a.Right.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if lval == nil || rval == nil {
		return nil, nil
	}

	if a.Op == "||" {
		return cast.ToString(lval) + cast.ToString(rval), nil
	}

	if a.Type() == sql.Int64 && a.Op != "/" {
		l, err := cast.ToInt64E(lval)
		if err != nil {
			return nil, sql.ErrInvalidType.New(lval)
		}
		r, err := cast.ToInt64E(rval)
		if err != nil {
			return nil, sql.ErrInvalidType.New(rval)
		}
		return intArithmetic(a.Op, l, r)
	}

	l, err := cast.ToFloat64E(lval)
	if err != nil {
		return nil, sql.ErrInvalidType.New(lval)
	}
	r, err := cast.ToFloat64E(rval)
	if err != nil {
		return nil, sql.ErrInvalidType.New(rval)
	}
	return floatArithmetic(a.Op, l, r)
}

func intArithmetic(op string, l, r int64) (interface{}, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "%":
		if r == 0 {
			return nil, nil
		}
		return l % r, nil
	}
	return nil, sql.ErrUnsupportedFeature.New("operator " + op)
}

func floatArithmetic(op string, l, r float64) (interface{}, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return nil, nil
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return nil, nil
		}
		return float64(int64(l) % int64(r)), nil
	}
	return nil, sql.ErrUnsupportedFeature.New("operator " + op)
}

// WithChildren implements the Expression interface.
func (a *Arithmetic) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(a, len(children), 2)
	}
	return NewArithmetic(children[0], children[1], a.Op), nil
}

// UnaryMinus negates a numeric expression.
type UnaryMinus struct {
	UnaryExpression
}

// NewUnaryMinus creates a new UnaryMinus expression.
func NewUnaryMinus(child sql.Expression) *UnaryMinus {
	return &UnaryMinus{UnaryExpression{child}}
}

// Type implements the Expression interface.
func (e *UnaryMinus) Type() sql.Type { return e.Child.Type() }

// Eval implements the Expression interface.
func (e *UnaryMinus) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	child, err := e.Child.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, nil
	}

	switch n := child.(type) {
	case int64:
		return -n, nil
	case float64:
		return -n, nil
	default:
		f, err := cast.ToFloat64E(child)
		if err != nil {
			return nil, sql.ErrInvalidType.New(child)
		}
		return -f, nil
	}
}

func (e *UnaryMinus) String() string {
	return fmt.Sprintf("-%s", e.Child)
}

// WithChildren implements the Expression interface.
func (e *UnaryMinus) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(e, len(children), 1)
	}
	return NewUnaryMinus(children[0]), nil
}
