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

// Package ast defines the dialect-independent syntax tree every parser
// produces and the unparser consumes. Nodes are plain tagged variants; there
// are no parent pointers, traversals pass context explicitly.
package ast

import "strings"

// Pos is a source position for diagnostics. Lines and columns are 1-based.
type Pos struct {
	Line   int
	Column int
}

// String renders the position as line:column.
func (p Pos) String() string {
	if p.Line == 0 {
		return "?"
	}
	return itoa(p.Line) + ":" + itoa(p.Column)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [8]byte
	n := len(b)
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	return string(b[n:])
}

// Comment is trivia preserved by the lexer, attached to the statement that
// follows it.
type Comment struct {
	Text string
	Pos  Pos
}

// Node is any element of the syntax tree.
type Node interface {
	// Pos returns the source position of the node.
	Pos() Pos
	// Children returns the child nodes. Never nil for non-leaf nodes.
	Children() []Node
}

// Statement is a top-level SQL statement.
type Statement interface {
	Node
	statementNode()
}

// Expr is a SQL expression.
type Expr interface {
	Node
	exprNode()
}

// IdentPart is one segment of a possibly compound identifier. Identifiers
// are case-preserving; unquoted parts compare case-insensitively.
type IdentPart struct {
	Name   string
	Quoted bool
}

// Matches reports whether the part names the given string, honoring the
// quoting rule.
func (p IdentPart) Matches(name string) bool {
	if p.Quoted {
		return p.Name == name
	}
	return strings.EqualFold(p.Name, name)
}

// Identifier is a possibly compound identifier such as db.table.column.
type Identifier struct {
	Parts    []IdentPart
	Position Pos
}

func (i *Identifier) Pos() Pos          { return i.Position }
func (i *Identifier) Children() []Node  { return []Node{} }
func (i *Identifier) exprNode()         {}

// Name returns the last part of the identifier.
func (i *Identifier) Name() string { return i.Parts[len(i.Parts)-1].Name }

// Qualifier returns everything but the last part, joined by dots, or empty.
func (i *Identifier) Qualifier() string {
	if len(i.Parts) < 2 {
		return ""
	}
	names := make([]string, len(i.Parts)-1)
	for j, p := range i.Parts[:len(i.Parts)-1] {
		names[j] = p.Name
	}
	return strings.Join(names, ".")
}

// PartNames returns the raw part names in order.
func (i *Identifier) PartNames() []string {
	names := make([]string, len(i.Parts))
	for j, p := range i.Parts {
		names[j] = p.Name
	}
	return names
}

// String joins the parts with dots, without quoting.
func (i *Identifier) String() string { return strings.Join(i.PartNames(), ".") }

// NewIdentifier builds an unquoted identifier from the given parts.
func NewIdentifier(pos Pos, parts ...string) *Identifier {
	ps := make([]IdentPart, len(parts))
	for i, p := range parts {
		ps[i] = IdentPart{Name: p}
	}
	return &Identifier{Parts: ps, Position: pos}
}

// LiteralKind tags the type of a literal value.
type LiteralKind byte

const (
	StringLiteral LiteralKind = iota
	NumberLiteral
	BoolLiteral
	NullLiteral
	IntervalLiteral
	DateLiteral
	TimeLiteral
	TimestampLiteral
)

// Literal is a literal value. Value holds the canonical Go representation:
// string, int64, float64, bool or nil.
type Literal struct {
	Kind     LiteralKind
	Value    interface{}
	// Raw is the literal exactly as written, for unparsing numbers without
	// reformatting.
	Raw      string
	Position Pos
}

func (l *Literal) Pos() Pos         { return l.Position }
func (l *Literal) Children() []Node { return []Node{} }
func (l *Literal) exprNode()        {}

// UnaryExpr is an operator applied to a single operand, e.g. NOT x or -x.
type UnaryExpr struct {
	Op       string
	Operand  Expr
	Position Pos
}

func (u *UnaryExpr) Pos() Pos         { return u.Position }
func (u *UnaryExpr) Children() []Node { return []Node{u.Operand} }
func (u *UnaryExpr) exprNode()        {}

// BinaryExpr is an infix operator call: comparisons, arithmetic, AND/OR,
// LIKE, IN and friends. Op is stored uppercase.
type BinaryExpr struct {
	Op       string
	Left     Expr
	Right    Expr
	Position Pos
}

func (b *BinaryExpr) Pos() Pos         { return b.Position }
func (b *BinaryExpr) Children() []Node { return []Node{b.Left, b.Right} }
func (b *BinaryExpr) exprNode()        {}

// FuncCall is a function call. Star is set for COUNT(*).
type FuncCall struct {
	Name     string
	Args     []Expr
	Star     bool
	Distinct bool
	Position Pos
}

func (f *FuncCall) Pos() Pos { return f.Position }
func (f *FuncCall) Children() []Node {
	children := make([]Node, len(f.Args))
	for i, a := range f.Args {
		children[i] = a
	}
	return children
}
func (f *FuncCall) exprNode() {}

// Star is the * projection, optionally qualified by a table.
type Star struct {
	Table    string
	Position Pos
}

func (s *Star) Pos() Pos         { return s.Position }
func (s *Star) Children() []Node { return []Node{} }
func (s *Star) exprNode()        {}

// Tuple is a parenthesized expression list, used by IN.
type Tuple struct {
	Exprs    []Expr
	Position Pos
}

func (t *Tuple) Pos() Pos { return t.Position }
func (t *Tuple) Children() []Node {
	children := make([]Node, len(t.Exprs))
	for i, e := range t.Exprs {
		children[i] = e
	}
	return children
}
func (t *Tuple) exprNode() {}

// CurrentTimestamp is the dialect-dependent "current time" token; the
// unparser renders NOW(), SYSDATE, GETDATE() or CURRENT_TIMESTAMP.
type CurrentTimestamp struct {
	Position Pos
}

func (c *CurrentTimestamp) Pos() Pos         { return c.Position }
func (c *CurrentTimestamp) Children() []Node { return []Node{} }
func (c *CurrentTimestamp) exprNode()        {}
