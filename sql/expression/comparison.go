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
	"regexp"
	"strings"

	"github.com/meshql/meshql/sql"
)

// comparison is the shared base of all comparison expressions. A comparison
// with a NULL operand evaluates to NULL (three-valued logic).
type comparison struct {
	BinaryExpression
}

func newComparison(left, right sql.Expression) comparison {
	return comparison{BinaryExpression{left, right}}
}

// Compare the two operands of the comparison, nil result means one operand
// was NULL.
func (c *comparison) Compare(ctx *sql.Context, row sql.Row) (*int, error) {
	left, err := c.Left.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if left == nil {
		return nil, nil
	}

	right, err := c.Right.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if right == nil {
		return nil, nil
	}

	typ := c.Left.Type()
	if typ == sql.Null {
		typ = c.Right.Type()
	}
	cmp, err := typ.Compare(left, right)
	if err != nil {
		return nil, err
	}
	return &cmp, nil
}

// Type implements the Expression interface.
func (*comparison) Type() sql.Type { return sql.Boolean }

// Equals is a comparison that checks an expression is equal to another.
type Equals struct {
	comparison
}

// NewEquals returns a new Equals expression.
func NewEquals(left, right sql.Expression) *Equals {
	return &Equals{newComparison(left, right)}
}

// Eval implements the Expression interface.
func (e *Equals) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	cmp, err := e.Compare(ctx, row)
	if err != nil || cmp == nil {
		return nil, err
	}
	return *cmp == 0, nil
}

func (e *Equals) String() string {
	return fmt.Sprintf("%s = %s", e.Left, e.Right)
}

// WithChildren implements the Expression interface.
func (e *Equals) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(e, len(children), 2)
	}
	return NewEquals(children[0], children[1]), nil
}

// NotEquals is a comparison that checks an expression is not equal to
// another.
type NotEquals struct {
	comparison
}

// NewNotEquals returns a new NotEquals expression.
func NewNotEquals(left, right sql.Expression) *NotEquals {
	return &NotEquals{newComparison(left, right)}
}

// Eval implements the Expression interface.
func (e *NotEquals) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	cmp, err := e.Compare(ctx, row)
	if err != nil || cmp == nil {
		return nil, err
	}
	return *cmp != 0, nil
}

func (e *NotEquals) String() string {
	return fmt.Sprintf("%s <> %s", e.Left, e.Right)
}

// WithChildren implements the Expression interface.
func (e *NotEquals) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(e, len(children), 2)
	}
	return NewNotEquals(children[0], children[1]), nil
}

// GreaterThan is a comparison that checks an expression is greater than
// another.
type GreaterThan struct {
	comparison
}

// NewGreaterThan creates a new GreaterThan expression.
func NewGreaterThan(left, right sql.Expression) *GreaterThan {
	return &GreaterThan{newComparison(left, right)}
}

// Eval implements the Expression interface.
func (e *GreaterThan) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	cmp, err := e.Compare(ctx, row)
	if err != nil || cmp == nil {
		return nil, err
	}
	return *cmp > 0, nil
}

func (e *GreaterThan) String() string {
	return fmt.Sprintf("%s > %s", e.Left, e.Right)
}

// WithChildren implements the Expression interface.
func (e *GreaterThan) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(e, len(children), 2)
	}
	return NewGreaterThan(children[0], children[1]), nil
}

// LessThan is a comparison that checks an expression is less than another.
type LessThan struct {
	comparison
}

// NewLessThan creates a new LessThan expression.
func NewLessThan(left, right sql.Expression) *LessThan {
	return &LessThan{newComparison(left, right)}
}

// Eval implements the Expression interface.
func (e *LessThan) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	cmp, err := e.Compare(ctx, row)
	if err != nil || cmp == nil {
		return nil, err
	}
	return *cmp < 0, nil
}

func (e *LessThan) String() string {
	return fmt.Sprintf("%s < %s", e.Left, e.Right)
}

// WithChildren implements the Expression interface.
func (e *LessThan) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(e, len(children), 2)
	}
	return NewLessThan(children[0], children[1]), nil
}

// GreaterThanOrEqual is a comparison that checks an expression is greater
// than or equal to another.
type GreaterThanOrEqual struct {
	comparison
}

// NewGreaterThanOrEqual creates a new GreaterThanOrEqual expression.
func NewGreaterThanOrEqual(left, right sql.Expression) *GreaterThanOrEqual {
	return &GreaterThanOrEqual{newComparison(left, right)}
}

// Eval implements the Expression interface.
func (e *GreaterThanOrEqual) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	cmp, err := e.Compare(ctx, row)
	if err != nil || cmp == nil {
		return nil, err
	}
	return *cmp >= 0, nil
}

func (e *GreaterThanOrEqual) String() string {
	return fmt.Sprintf("%s >= %s", e.Left, e.Right)
}

// WithChildren implements the Expression interface.
func (e *GreaterThanOrEqual) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(e, len(children), 2)
	}
	return NewGreaterThanOrEqual(children[0], children[1]), nil
}

// LessThanOrEqual is a comparison that checks an expression is less than or
// equal to another.
type LessThanOrEqual struct {
	comparison
}

// NewLessThanOrEqual creates a new LessThanOrEqual expression.
func NewLessThanOrEqual(left, right sql.Expression) *LessThanOrEqual {
	return &LessThanOrEqual{newComparison(left, right)}
}

// Eval implements the Expression interface.
func (e *LessThanOrEqual) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	cmp, err := e.Compare(ctx, row)
	if err != nil || cmp == nil {
		return nil, err
	}
	return *cmp <= 0, nil
}

func (e *LessThanOrEqual) String() string {
	return fmt.Sprintf("%s <= %s", e.Left, e.Right)
}

// WithChildren implements the Expression interface.
func (e *LessThanOrEqual) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(e, len(children), 2)
	}
	return NewLessThanOrEqual(children[0], children[1]), nil
}

// Like performs pattern matching with the SQL LIKE operator. % matches any
// string of any length, _ matches exactly one character. Matching is
// case-insensitive.
type Like struct {
	comparison
	cached *regexp.Regexp
	pool   string
}

// NewLike creates a new LIKE expression.
func NewLike(left, right sql.Expression) *Like {
	return &Like{comparison: newComparison(left, right)}
}

// Eval implements the Expression interface.
func (e *Like) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	left, err := e.Left.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if left == nil {
		return nil, nil
	}
	right, err := e.Right.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if right == nil {
		return nil, nil
	}

	lStr, err := sql.Text.Convert(left)
	if err != nil {
		return nil, err
	}
	rStr, err := sql.Text.Convert(right)
	if err != nil {
		return nil, err
	}

	re, err := e.pattern(rStr.(string))
	if err != nil {
		return nil, err
	}
	return re.MatchString(lStr.(string)), nil
}

func (e *Like) pattern(p string) (*regexp.Regexp, error) {
	if e.cached != nil && e.pool == p {
		return e.cached, nil
	}
	re, err := regexp.Compile(LikeToRegexp(p))
	if err != nil {
		return nil, err
	}
	e.cached, e.pool = re, p
	return re, nil
}

func (e *Like) String() string {
	return fmt.Sprintf("%s LIKE %s", e.Left, e.Right)
}

// WithChildren implements the Expression interface.
func (e *Like) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(e, len(children), 2)
	}
	return NewLike(children[0], children[1]), nil
}

// LikeToRegexp converts a SQL LIKE pattern to an anchored, case-insensitive
// regular expression.
func LikeToRegexp(pattern string) string {
	var sb strings.Builder
	sb.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return sb.String()
}

// In checks whether the left expression is in the set of expressions on the
// right.
type In struct {
	comparison
}

// NewIn creates an In expression.
func NewIn(left sql.Expression, right sql.Expression) *In {
	return &In{newComparison(left, right)}
}

// Eval implements the Expression interface.
func (e *In) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	left, err := e.Left.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if left == nil {
		return nil, nil
	}

	tuple, ok := e.Right.(*Tuple)
	if !ok {
		return nil, sql.ErrInvalidType.New(e.Right)
	}

	typ := e.Left.Type()
	sawNull := false
	for _, el := range tuple.Exprs {
		v, err := el.Eval(ctx, row)
		if err != nil {
			return nil, err
		}
		if v == nil {
			sawNull = true
			continue
		}
		cmp, err := typ.Compare(left, v)
		if err != nil {
			return nil, err
		}
		if cmp == 0 {
			return true, nil
		}
	}
	if sawNull {
		return nil, nil
	}
	return false, nil
}

func (e *In) String() string {
	return fmt.Sprintf("%s IN %s", e.Left, e.Right)
}

// WithChildren implements the Expression interface.
func (e *In) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(e, len(children), 2)
	}
	return NewIn(children[0], children[1]), nil
}

// Tuple is a fixed list of expressions, the right operand of IN.
type Tuple struct {
	Exprs []sql.Expression
}

// NewTuple creates a new Tuple expression.
func NewTuple(exprs ...sql.Expression) *Tuple {
	return &Tuple{Exprs: exprs}
}

// Resolved implements the Resolvable interface.
func (t *Tuple) Resolved() bool {
	for _, e := range t.Exprs {
		if !e.Resolved() {
			return false
		}
	}
	return true
}

// IsNullable implements the Expression interface.
func (t *Tuple) IsNullable() bool { return false }

// Type implements the Expression interface.
func (t *Tuple) Type() sql.Type {
	if len(t.Exprs) > 0 {
		return t.Exprs[0].Type()
	}
	return sql.Null
}

// Eval implements the Expression interface.
func (t *Tuple) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	values := make([]interface{}, len(t.Exprs))
	for i, e := range t.Exprs {
		v, err := e.Eval(ctx, row)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (t *Tuple) String() string {
	strs := make([]string, len(t.Exprs))
	for i, e := range t.Exprs {
		strs[i] = e.String()
	}
	return "(" + strings.Join(strs, ", ") + ")"
}

// Children implements the Expression interface.
func (t *Tuple) Children() []sql.Expression { return t.Exprs }

// WithChildren implements the Expression interface.
func (t *Tuple) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != len(t.Exprs) {
		return nil, sql.ErrInvalidChildrenNumber.New(t, len(children), len(t.Exprs))
	}
	return NewTuple(children...), nil
}
