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

	"github.com/meshql/meshql/sql"
)

// UnaryExpression is an expression that has one child.
type UnaryExpression struct {
	Child sql.Expression
}

// Resolved implements the Resolvable interface.
func (p *UnaryExpression) Resolved() bool { return p.Child.Resolved() }

// Children implements the Expression interface.
func (p *UnaryExpression) Children() []sql.Expression { return []sql.Expression{p.Child} }

// IsNullable implements the Expression interface.
func (p *UnaryExpression) IsNullable() bool { return p.Child.IsNullable() }

// BinaryExpression is an expression that has two children.
type BinaryExpression struct {
	Left  sql.Expression
	Right sql.Expression
}

// Resolved implements the Resolvable interface.
func (p *BinaryExpression) Resolved() bool {
	return p.Left.Resolved() && p.Right.Resolved()
}

// Children implements the Expression interface.
func (p *BinaryExpression) Children() []sql.Expression {
	return []sql.Expression{p.Left, p.Right}
}

// IsNullable implements the Expression interface.
func (p *BinaryExpression) IsNullable() bool {
	return p.Left.IsNullable() || p.Right.IsNullable()
}

// Literal represents a literal expression (string, number, bool, nil).
type Literal struct {
	value     interface{}
	fieldType sql.Type
}

// NewLiteral creates a new Literal expression.
func NewLiteral(value interface{}, fieldType sql.Type) *Literal {
	return &Literal{value: value, fieldType: fieldType}
}

// Value returns the literal value.
func (l *Literal) Value() interface{} { return l.value }

// Resolved implements the Expression interface.
func (l *Literal) Resolved() bool { return true }

// IsNullable implements the Expression interface.
func (l *Literal) IsNullable() bool { return l.value == nil }

// Type implements the Expression interface.
func (l *Literal) Type() sql.Type { return l.fieldType }

// Eval implements the Expression interface.
func (l *Literal) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	return l.value, nil
}

func (l *Literal) String() string {
	switch v := l.value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case nil:
		return "NULL"
	default:
		return fmt.Sprint(v)
	}
}

// Children implements the Expression interface.
func (l *Literal) Children() []sql.Expression { return nil }

// WithChildren implements the Expression interface.
func (l *Literal) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 0 {
		return nil, sql.ErrInvalidChildrenNumber.New(l, len(children), 0)
	}
	return l, nil
}

// GetField is an expression to get the field of a row by index.
type GetField struct {
	fieldIndex int
	fieldType  sql.Type
	name       string
	table      string
	nullable   bool
}

// NewGetField creates a GetField expression.
func NewGetField(index int, fieldType sql.Type, fieldName string, nullable bool) *GetField {
	return NewGetFieldWithTable(index, fieldType, "", fieldName, nullable)
}

// NewGetFieldWithTable creates a GetField expression with table name.
func NewGetFieldWithTable(index int, fieldType sql.Type, table, fieldName string, nullable bool) *GetField {
	return &GetField{
		fieldIndex: index,
		fieldType:  fieldType,
		name:       fieldName,
		table:      table,
		nullable:   nullable,
	}
}

// Index returns the index where the GetField will look for the value from a
// row.
func (p *GetField) Index() int { return p.fieldIndex }

// Table returns the name of the field table.
func (p *GetField) Table() string { return p.table }

// Name returns the name of the field.
func (p *GetField) Name() string { return p.name }

// Resolved implements the Expression interface.
func (p *GetField) Resolved() bool { return true }

// IsNullable implements the Expression interface.
func (p *GetField) IsNullable() bool { return p.nullable }

// Type implements the Expression interface.
func (p *GetField) Type() sql.Type { return p.fieldType }

// Eval implements the Expression interface.
func (p *GetField) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	if p.fieldIndex < 0 || p.fieldIndex >= len(row) {
		return nil, sql.ErrSemantic.New(fmt.Sprintf("field index %d out of row bounds (%d)", p.fieldIndex, len(row)))
	}
	return row[p.fieldIndex], nil
}

func (p *GetField) String() string {
	if p.table == "" {
		return p.name
	}
	return p.table + "." + p.name
}

// WithIndex returns a copy of this expression with a new field index.
func (p *GetField) WithIndex(index int) *GetField {
	np := *p
	np.fieldIndex = index
	return &np
}

// Children implements the Expression interface.
func (p *GetField) Children() []sql.Expression { return nil }

// WithChildren implements the Expression interface.
func (p *GetField) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 0 {
		return nil, sql.ErrInvalidChildrenNumber.New(p, len(children), 0)
	}
	return p, nil
}

// Alias is a node that gives a name to an expression.
type Alias struct {
	UnaryExpression
	name string
}

// NewAlias returns a new Alias node.
func NewAlias(name string, expr sql.Expression) *Alias {
	return &Alias{UnaryExpression{expr}, name}
}

// Type implements the Expression interface.
func (e *Alias) Type() sql.Type { return e.Child.Type() }

// Eval implements the Expression interface.
func (e *Alias) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	return e.Child.Eval(ctx, row)
}

func (e *Alias) String() string {
	return fmt.Sprintf("%s AS %s", e.Child, e.name)
}

// Name implements the Nameable interface.
func (e *Alias) Name() string { return e.name }

// WithChildren implements the Expression interface.
func (e *Alias) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(e, len(children), 1)
	}
	return NewAlias(e.name, children[0]), nil
}
