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

// Package parse turns SQL text of any supported dialect into the common AST.
package parse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/meshql/meshql/sql/ast"
	"github.com/meshql/meshql/sql/dialect"
)

// SyntaxError is a parse failure with the exact source position and, when
// known, the tokens that would have been accepted there.
type SyntaxError struct {
	Position ast.Pos
	Message  string
	Expected []string
}

func (e *SyntaxError) Error() string {
	if len(e.Expected) > 0 {
		return fmt.Sprintf("syntax error at %s: %s, expecting %s",
			e.Position, e.Message, strings.Join(e.Expected, " or "))
	}
	return fmt.Sprintf("syntax error at %s: %s", e.Position, e.Message)
}

// Parse parses a single statement written in the given dialect. The text may
// end with a semicolon; anything after it other than whitespace or comments
// is rejected.
func Parse(query string, d dialect.ID) (ast.Statement, error) {
	p := newParser(query, d)
	stmt, err := p.parseStatement(false)
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// ParseExtended parses a statement accepting the catalog introspection
// extensions (SHOW TABLES, SHOW SCHEMAS|DATABASES, SHOW COLUMNS, USE,
// EXPLAIN) regardless of dialect. A statement that does not start with one
// of the extension keywords parses exactly as Parse with the ANSI dialect.
func ParseExtended(query string) (ast.Statement, error) {
	p := newParser(query, dialect.ANSI)
	stmt, err := p.parseStatement(true)
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return stmt, nil
}

type parser struct {
	lexer   *Lexer
	dialect dialect.ID
	tok     Token
	ahead   *Token
}

func newParser(query string, d dialect.ID) *parser {
	p := &parser{lexer: NewLexer(query, d), dialect: d}
	p.next()
	return p
}

func (p *parser) next() {
	if p.ahead != nil {
		p.tok = *p.ahead
		p.ahead = nil
		return
	}
	p.tok = p.lexer.Next()
}

func (p *parser) peek() Token {
	if p.ahead == nil {
		t := p.lexer.Next()
		p.ahead = &t
	}
	return *p.ahead
}

func (p *parser) errorf(expected []string, format string, args ...interface{}) error {
	return &SyntaxError{
		Position: p.tok.Pos,
		Message:  fmt.Sprintf(format, args...),
		Expected: expected,
	}
}

func (p *parser) unexpected(expected ...string) error {
	what := p.tok.Value
	if p.tok.Type == EOFToken {
		what = "end of statement"
	}
	return p.errorf(expected, "unexpected %q", what)
}

func (p *parser) expectKeyword(kw string) error {
	if !p.tok.IsKeyword(kw) {
		return p.unexpected(kw)
	}
	p.next()
	return nil
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.tok.IsKeyword(kw) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expectType(t TokenType) (Token, error) {
	if p.tok.Type != t {
		return Token{}, p.unexpected(t.String())
	}
	tok := p.tok
	p.next()
	return tok, nil
}

// expectEnd checks that nothing but an optional semicolon remains.
func (p *parser) expectEnd() error {
	if p.tok.Type == SemicolonToken {
		p.next()
	}
	if p.tok.Type == ErrorToken {
		return p.errorf(nil, "%s", p.tok.Value)
	}
	if p.tok.Type != EOFToken {
		return p.errorf(nil, "unexpected trailing input %q", p.tok.Value)
	}
	return nil
}

func (p *parser) parseStatement(extended bool) (ast.Statement, error) {
	if p.tok.Type == ErrorToken {
		return nil, p.errorf(nil, "%s", p.tok.Value)
	}

	comments := p.tok.Comments

	var stmt ast.Statement
	var err error
	switch {
	case p.tok.IsKeyword("SELECT"):
		stmt, err = p.parseQuery()
	case p.tok.IsKeyword("VALUES"):
		stmt, err = p.parseValues()
	case p.tok.IsKeyword("INSERT"):
		stmt, err = p.parseInsert()
	case p.tok.IsKeyword("UPDATE"):
		stmt, err = p.parseUpdate()
	case p.tok.IsKeyword("DELETE"):
		stmt, err = p.parseDelete()
	case extended && p.tok.IsKeyword("SHOW"):
		stmt, err = p.parseShow()
	case extended && p.tok.IsKeyword("USE"):
		stmt, err = p.parseUse()
	case extended && (p.tok.IsKeyword("EXPLAIN") || p.tok.IsKeyword("DESCRIBE")):
		stmt, err = p.parseExplain()
	default:
		return nil, p.unexpected("SELECT", "INSERT", "UPDATE", "DELETE", "VALUES")
	}
	if err != nil {
		return nil, err
	}

	if sc, ok := stmt.(interface{ SetComments([]ast.Comment) }); ok && len(comments) > 0 {
		sc.SetComments(comments)
	}
	return stmt, nil
}

// parseQuery parses a select possibly combined by set operations. Set
// operations associate left.
func (p *parser) parseQuery() (ast.Statement, error) {
	left, err := p.parseSelect()
	if err != nil {
		return nil, err
	}

	var stmt ast.Statement = left
	for {
		var op ast.SetOpType
		pos := p.tok.Pos
		switch {
		case p.tok.IsKeyword("UNION"):
			p.next()
			op = ast.Union
			if p.acceptKeyword("ALL") {
				op = ast.UnionAll
			}
		case p.tok.IsKeyword("INTERSECT"):
			p.next()
			op = ast.Intersect
		case p.tok.IsKeyword("EXCEPT"):
			p.next()
			op = ast.Except
		default:
			return stmt, nil
		}

		right, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		setOp := &ast.SetOp{Type: op, Left: stmt, Right: right}
		setOp.Position = pos
		stmt = setOp
	}
}

func (p *parser) parseSelect() (*ast.Select, error) {
	pos := p.tok.Pos
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}

	sel := &ast.Select{}
	sel.Position = pos
	if p.acceptKeyword("DISTINCT") {
		sel.Distinct = true
	} else {
		p.acceptKeyword("ALL")
	}

	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		sel.Projection = append(sel.Projection, item)
		if p.tok.Type != CommaToken {
			break
		}
		p.next()
	}

	if p.acceptKeyword("FROM") {
		if p.acceptKeyword("DUAL") {
			// Oracle's empty-FROM marker; the AST keeps no FROM clause.
		} else {
			from, err := p.parseTableExpr()
			if err != nil {
				return nil, err
			}
			sel.From = from
		}
	}

	if p.acceptKeyword("WHERE") {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sel.Where = where
	}

	if p.tok.IsKeyword("GROUP") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			sel.GroupBy = append(sel.GroupBy, e)
			if p.tok.Type != CommaToken {
				break
			}
			p.next()
		}
	}

	if p.acceptKeyword("HAVING") {
		having, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sel.Having = having
	}

	if p.tok.IsKeyword("ORDER") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			key := ast.SortKey{Expr: e}
			if p.acceptKeyword("DESC") {
				key.Descending = true
			} else {
				p.acceptKeyword("ASC")
			}
			sel.OrderBy = append(sel.OrderBy, key)
			if p.tok.Type != CommaToken {
				break
			}
			p.next()
		}
	}

	limit, err := p.parseLimitClauses()
	if err != nil {
		return nil, err
	}
	sel.Limit = limit

	return sel, nil
}

// parseLimitClauses accepts every supported pagination spelling: LIMIT n
// [OFFSET k], LIMIT k, n, OFFSET k ROWS FETCH NEXT n ROWS ONLY, and FETCH
// FIRST n ROWS ONLY. They are accepted in any dialect; rendering them back
// is the converter's concern.
func (p *parser) parseLimitClauses() (*ast.Limit, error) {
	switch {
	case p.tok.IsKeyword("LIMIT"):
		p.next()
		n, err := p.parseNonNegativeInt()
		if err != nil {
			return nil, err
		}
		limit := &ast.Limit{Count: n}
		if p.tok.Type == CommaToken {
			// MySQL's LIMIT offset, count.
			p.next()
			count, err := p.parseNonNegativeInt()
			if err != nil {
				return nil, err
			}
			limit.Offset = limit.Count
			limit.Count = count
		} else if p.acceptKeyword("OFFSET") {
			off, err := p.parseNonNegativeInt()
			if err != nil {
				return nil, err
			}
			limit.Offset = off
		}
		return limit, nil

	case p.tok.IsKeyword("OFFSET"):
		p.next()
		off, err := p.parseNonNegativeInt()
		if err != nil {
			return nil, err
		}
		if !p.acceptKeyword("ROWS") {
			p.acceptKeyword("ROW")
		}
		limit := &ast.Limit{Count: -1, Offset: off}
		if p.acceptKeyword("FETCH") {
			if !p.acceptKeyword("NEXT") && !p.acceptKeyword("FIRST") {
				return nil, p.unexpected("NEXT", "FIRST")
			}
			n, err := p.parseNonNegativeInt()
			if err != nil {
				return nil, err
			}
			if !p.acceptKeyword("ROWS") {
				p.acceptKeyword("ROW")
			}
			if err := p.expectKeyword("ONLY"); err != nil {
				return nil, err
			}
			limit.Count = n
		}
		return limit, nil

	case p.tok.IsKeyword("FETCH"):
		p.next()
		if !p.acceptKeyword("FIRST") && !p.acceptKeyword("NEXT") {
			return nil, p.unexpected("FIRST", "NEXT")
		}
		n, err := p.parseNonNegativeInt()
		if err != nil {
			return nil, err
		}
		if !p.acceptKeyword("ROWS") {
			p.acceptKeyword("ROW")
		}
		if err := p.expectKeyword("ONLY"); err != nil {
			return nil, err
		}
		return &ast.Limit{Count: n}, nil
	}

	return nil, nil
}

func (p *parser) parseNonNegativeInt() (int64, error) {
	tok, err := p.expectType(IntToken)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.ParseInt(tok.Value, 10, 64)
	if convErr != nil || n < 0 {
		return 0, &SyntaxError{Position: tok.Pos, Message: fmt.Sprintf("invalid row count %q", tok.Value)}
	}
	return n, nil
}

func (p *parser) parseSelectItem() (ast.SelectItem, error) {
	if p.tok.IsOp("*") {
		pos := p.tok.Pos
		p.next()
		return ast.SelectItem{Expr: &ast.Star{Position: pos}}, nil
	}

	// A qualified star: ident.*
	if p.tok.Type == IdentifierToken && p.peek().Type == DotToken {
		save := p.tok
		// Look two tokens ahead without a full backtracking machine: the
		// identifier chain parser handles everything but the star case.
		p.next() // identifier
		if p.peek().IsOp("*") {
			p.next() // dot
			pos := save.Pos
			p.next() // star
			return ast.SelectItem{Expr: &ast.Star{Table: save.Value, Position: pos}}, nil
		}
		expr, err := p.parseIdentifierChainFrom(save)
		if err != nil {
			return ast.SelectItem{}, err
		}
		full, err := p.continueExpr(expr)
		if err != nil {
			return ast.SelectItem{}, err
		}
		return p.finishSelectItem(full)
	}

	expr, err := p.parseExpr()
	if err != nil {
		return ast.SelectItem{}, err
	}
	return p.finishSelectItem(expr)
}

func (p *parser) finishSelectItem(expr ast.Expr) (ast.SelectItem, error) {
	item := ast.SelectItem{Expr: expr}
	if p.acceptKeyword("AS") {
		alias, err := p.parseName()
		if err != nil {
			return ast.SelectItem{}, err
		}
		item.Alias = alias
	} else if p.tok.Type == IdentifierToken || p.tok.Type == QuotedIdentifierToken {
		item.Alias = p.tok.Value
		p.next()
	}
	return item, nil
}

// parseName accepts a plain or quoted identifier and returns its name.
func (p *parser) parseName() (string, error) {
	if p.tok.Type != IdentifierToken && p.tok.Type != QuotedIdentifierToken {
		return "", p.unexpected("identifier")
	}
	name := p.tok.Value
	p.next()
	return name, nil
}

func (p *parser) parseIdentifier() (*ast.Identifier, error) {
	if p.tok.Type != IdentifierToken && p.tok.Type != QuotedIdentifierToken {
		return nil, p.unexpected("identifier")
	}
	tok := p.tok
	p.next()
	return p.parseIdentifierChainFrom(tok)
}

// parseIdentifierChainFrom builds a compound identifier starting at an
// already consumed first part.
func (p *parser) parseIdentifierChainFrom(first Token) (*ast.Identifier, error) {
	ident := &ast.Identifier{
		Parts:    []ast.IdentPart{{Name: first.Value, Quoted: first.Type == QuotedIdentifierToken}},
		Position: first.Pos,
	}
	for p.tok.Type == DotToken {
		p.next()
		if p.tok.Type != IdentifierToken && p.tok.Type != QuotedIdentifierToken {
			return nil, p.unexpected("identifier")
		}
		ident.Parts = append(ident.Parts, ast.IdentPart{
			Name:   p.tok.Value,
			Quoted: p.tok.Type == QuotedIdentifierToken,
		})
		p.next()
	}
	return ident, nil
}

func (p *parser) parseTableExpr() (ast.TableExpr, error) {
	left, err := p.parseTablePrimary()
	if err != nil {
		return nil, err
	}

	for {
		joinType, isJoin, err := p.parseJoinType()
		if err != nil {
			return nil, err
		}
		if !isJoin {
			return left, nil
		}

		right, err := p.parseTablePrimary()
		if err != nil {
			return nil, err
		}

		join := &ast.Join{Type: joinType, Left: left, Right: right, Position: left.Pos()}
		if joinType != ast.CrossJoin {
			if err := p.expectKeyword("ON"); err != nil {
				return nil, err
			}
			on, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			join.On = on
		}
		left = join
	}
}

func (p *parser) parseJoinType() (ast.JoinType, bool, error) {
	switch {
	case p.tok.IsKeyword("JOIN"):
		p.next()
		return ast.InnerJoin, true, nil
	case p.tok.IsKeyword("INNER"):
		p.next()
		return ast.InnerJoin, true, p.expectKeyword("JOIN")
	case p.tok.IsKeyword("LEFT"):
		p.next()
		p.acceptKeyword("OUTER")
		return ast.LeftJoin, true, p.expectKeyword("JOIN")
	case p.tok.IsKeyword("RIGHT"):
		p.next()
		p.acceptKeyword("OUTER")
		return ast.RightJoin, true, p.expectKeyword("JOIN")
	case p.tok.IsKeyword("FULL"):
		p.next()
		p.acceptKeyword("OUTER")
		return ast.FullJoin, true, p.expectKeyword("JOIN")
	case p.tok.IsKeyword("CROSS"):
		p.next()
		return ast.CrossJoin, true, p.expectKeyword("JOIN")
	case p.tok.Type == CommaToken:
		// Implicit cross join.
		p.next()
		return ast.CrossJoin, true, nil
	}
	return 0, false, nil
}

func (p *parser) parseTablePrimary() (ast.TableExpr, error) {
	if p.tok.Type == LeftParenToken {
		pos := p.tok.Pos
		p.next()
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectType(RightParenToken); err != nil {
			return nil, err
		}
		ref := &ast.SubqueryRef{Query: sel, Position: pos}
		p.acceptKeyword("AS")
		if p.tok.Type == IdentifierToken || p.tok.Type == QuotedIdentifierToken {
			ref.Alias = p.tok.Value
			p.next()
		}
		return ref, nil
	}

	name, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	ref := &ast.TableRef{Name: name, Position: name.Position}
	if p.acceptKeyword("AS") {
		alias, err := p.parseName()
		if err != nil {
			return nil, err
		}
		ref.Alias = alias
	} else if p.tok.Type == IdentifierToken || p.tok.Type == QuotedIdentifierToken {
		ref.Alias = p.tok.Value
		p.next()
	}
	return ref, nil
}

// Expression parsing, by descending precedence: OR, AND, NOT, comparison,
// additive, multiplicative, unary, primary.

func (p *parser) parseExpr() (ast.Expr, error) {
	return p.parseOr()
}

// continueExpr resumes precedence climbing with an already parsed primary on
// the left. Used when the caller consumed lookahead deciding what to parse.
func (p *parser) continueExpr(left ast.Expr) (ast.Expr, error) {
	left, err := p.parseMultiplicativeRest(left)
	if err != nil {
		return nil, err
	}
	left, err = p.parseAdditiveRest(left)
	if err != nil {
		return nil, err
	}
	left, err = p.parseComparisonRest(left)
	if err != nil {
		return nil, err
	}
	return p.parseBoolRest(left)
}

func (p *parser) parseBoolRest(left ast.Expr) (ast.Expr, error) {
	for {
		switch {
		case p.tok.IsKeyword("AND"):
			pos := p.tok.Pos
			p.next()
			right, err := p.parseNot()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Op: "AND", Left: left, Right: right, Position: pos}
		case p.tok.IsKeyword("OR"):
			pos := p.tok.Pos
			p.next()
			right, err := p.parseAnd()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Op: "OR", Left: left, Right: right, Position: pos}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.IsKeyword("OR") {
		pos := p.tok.Pos
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: "OR", Left: left, Right: right, Position: pos}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.tok.IsKeyword("AND") {
		pos := p.tok.Pos
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: "AND", Left: left, Right: right, Position: pos}
	}
	return left, nil
}

func (p *parser) parseNot() (ast.Expr, error) {
	if p.tok.IsKeyword("NOT") {
		pos := p.tok.Pos
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: "NOT", Operand: operand, Position: pos}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return p.parseComparisonRest(left)
}

func (p *parser) parseComparisonRest(left ast.Expr) (ast.Expr, error) {
	for {
		switch {
		case p.tok.Type == OpToken && isComparisonOp(p.tok.Value):
			op := p.tok.Value
			pos := p.tok.Pos
			p.next()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			if op == "!=" {
				op = "<>"
			}
			left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Position: pos}

		case p.tok.IsKeyword("LIKE"):
			pos := p.tok.Pos
			p.next()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Op: "LIKE", Left: left, Right: right, Position: pos}

		case p.tok.IsKeyword("IS"):
			pos := p.tok.Pos
			p.next()
			negated := p.acceptKeyword("NOT")
			if err := p.expectKeyword("NULL"); err != nil {
				return nil, err
			}
			op := "IS NULL"
			if negated {
				op = "IS NOT NULL"
			}
			left = &ast.UnaryExpr{Op: op, Operand: left, Position: pos}

		case p.tok.IsKeyword("IN"):
			pos := p.tok.Pos
			p.next()
			tuple, err := p.parseTuple()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Op: "IN", Left: left, Right: tuple, Position: pos}

		case p.tok.IsKeyword("BETWEEN"):
			// BETWEEN lo AND hi folds to (x >= lo AND x <= hi); the folded
			// form is stable under re-parse.
			pos := p.tok.Pos
			p.next()
			lo, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			if err := p.expectKeyword("AND"); err != nil {
				return nil, err
			}
			hi, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{
				Op:       "AND",
				Left:     &ast.BinaryExpr{Op: ">=", Left: left, Right: lo, Position: pos},
				Right:    &ast.BinaryExpr{Op: "<=", Left: left, Right: hi, Position: pos},
				Position: pos,
			}

		default:
			return left, nil
		}
	}
}

func isComparisonOp(op string) bool {
	switch op {
	case "=", "<>", "!=", "<", ">", "<=", ">=":
		return true
	}
	return false
}

func (p *parser) parseTuple() (ast.Expr, error) {
	pos := p.tok.Pos
	if _, err := p.expectType(LeftParenToken); err != nil {
		return nil, err
	}
	tuple := &ast.Tuple{Position: pos}
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		tuple.Exprs = append(tuple.Exprs, e)
		if p.tok.Type != CommaToken {
			break
		}
		p.next()
	}
	if _, err := p.expectType(RightParenToken); err != nil {
		return nil, err
	}
	return tuple, nil
}

func (p *parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	return p.parseAdditiveRest(left)
}

func (p *parser) parseAdditiveRest(left ast.Expr) (ast.Expr, error) {
	for p.tok.IsOp("+") || p.tok.IsOp("-") || p.tok.IsOp("||") {
		op := p.tok.Value
		pos := p.tok.Pos
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Position: pos}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return p.parseMultiplicativeRest(left)
}

func (p *parser) parseMultiplicativeRest(left ast.Expr) (ast.Expr, error) {
	for p.tok.IsOp("*") || p.tok.IsOp("/") || p.tok.IsOp("%") {
		op := p.tok.Value
		pos := p.tok.Pos
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Position: pos}
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Expr, error) {
	if p.tok.IsOp("-") {
		pos := p.tok.Pos
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: "-", Operand: operand, Position: pos}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	pos := p.tok.Pos
	switch {
	case p.tok.Type == ErrorToken:
		return nil, p.errorf(nil, "%s", p.tok.Value)

	case p.tok.Type == IntToken:
		n, err := strconv.ParseInt(p.tok.Value, 10, 64)
		if err != nil {
			return nil, p.errorf(nil, "invalid integer %q", p.tok.Value)
		}
		lit := &ast.Literal{Kind: ast.NumberLiteral, Value: n, Raw: p.tok.Value, Position: pos}
		p.next()
		return lit, nil

	case p.tok.Type == FloatToken:
		f, err := strconv.ParseFloat(p.tok.Value, 64)
		if err != nil {
			return nil, p.errorf(nil, "invalid number %q", p.tok.Value)
		}
		lit := &ast.Literal{Kind: ast.NumberLiteral, Value: f, Raw: p.tok.Value, Position: pos}
		p.next()
		return lit, nil

	case p.tok.Type == StringToken:
		lit := &ast.Literal{Kind: ast.StringLiteral, Value: p.tok.Value, Raw: p.tok.Value, Position: pos}
		p.next()
		return lit, nil

	case p.tok.IsKeyword("TRUE"), p.tok.IsKeyword("FALSE"):
		val := strings.EqualFold(p.tok.Value, "TRUE")
		lit := &ast.Literal{Kind: ast.BoolLiteral, Value: val, Position: pos}
		p.next()
		return lit, nil

	case p.tok.IsKeyword("NULL"):
		p.next()
		return &ast.Literal{Kind: ast.NullLiteral, Position: pos}, nil

	case p.tok.IsKeyword("INTERVAL"):
		p.next()
		val, err := p.expectType(StringToken)
		if err != nil {
			return nil, err
		}
		unit, err := p.parseName()
		if err != nil {
			return nil, err
		}
		return &ast.Literal{
			Kind:     ast.IntervalLiteral,
			Value:    val.Value + " " + strings.ToUpper(unit),
			Raw:      val.Value,
			Position: pos,
		}, nil

	case p.tok.IsKeyword("DATE"), p.tok.IsKeyword("TIME"), p.tok.IsKeyword("TIMESTAMP"):
		kind := ast.DateLiteral
		if p.tok.IsKeyword("TIME") {
			kind = ast.TimeLiteral
		} else if p.tok.IsKeyword("TIMESTAMP") {
			kind = ast.TimestampLiteral
		}
		p.next()
		val, err := p.expectType(StringToken)
		if err != nil {
			return nil, err
		}
		return &ast.Literal{Kind: kind, Value: val.Value, Raw: val.Value, Position: pos}, nil

	case p.tok.IsKeyword("CURRENT_TIMESTAMP"):
		p.next()
		// Optional empty parens.
		if p.tok.Type == LeftParenToken {
			p.next()
			if _, err := p.expectType(RightParenToken); err != nil {
				return nil, err
			}
		}
		return &ast.CurrentTimestamp{Position: pos}, nil

	case p.tok.Type == LeftParenToken:
		p.next()
		if p.tok.IsKeyword("SELECT") {
			sel, err := p.parseSelect()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectType(RightParenToken); err != nil {
				return nil, err
			}
			return sel, nil
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectType(RightParenToken); err != nil {
			return nil, err
		}
		return e, nil

	case p.tok.Type == IdentifierToken || p.tok.Type == QuotedIdentifierToken:
		first := p.tok
		p.next()
		if p.tok.Type == LeftParenToken && first.Type == IdentifierToken {
			return p.parseFuncCall(first)
		}
		return p.parseIdentifierChainFrom(first)
	}

	return nil, p.unexpected("expression")
}

func (p *parser) parseFuncCall(name Token) (ast.Expr, error) {
	p.next() // '('
	call := &ast.FuncCall{Name: strings.ToUpper(name.Value), Position: name.Pos}

	if p.tok.IsOp("*") {
		p.next()
		call.Star = true
	} else if p.tok.Type != RightParenToken {
		if p.acceptKeyword("DISTINCT") {
			call.Distinct = true
		}
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if p.tok.Type != CommaToken {
				break
			}
			p.next()
		}
	}
	if _, err := p.expectType(RightParenToken); err != nil {
		return nil, err
	}

	// Normalize every dialect's "current time" function to the common node
	// so the converter can re-render it for any target.
	if len(call.Args) == 0 && !call.Star {
		switch call.Name {
		case "NOW", "SYSDATE", "GETDATE":
			return &ast.CurrentTimestamp{Position: name.Pos}, nil
		}
	}
	return call, nil
}

func (p *parser) parseValues() (*ast.Values, error) {
	pos := p.tok.Pos
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	values := &ast.Values{}
	values.Position = pos
	for {
		if _, err := p.expectType(LeftParenToken); err != nil {
			return nil, err
		}
		var row []ast.Expr
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			row = append(row, e)
			if p.tok.Type != CommaToken {
				break
			}
			p.next()
		}
		if _, err := p.expectType(RightParenToken); err != nil {
			return nil, err
		}
		values.Rows = append(values.Rows, row)
		if p.tok.Type != CommaToken {
			break
		}
		p.next()
	}
	return values, nil
}

func (p *parser) parseInsert() (*ast.Insert, error) {
	pos := p.tok.Pos
	p.next()
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	ins := &ast.Insert{Table: table}
	ins.Position = pos

	if p.tok.Type == LeftParenToken {
		p.next()
		for {
			col, err := p.parseName()
			if err != nil {
				return nil, err
			}
			ins.Columns = append(ins.Columns, col)
			if p.tok.Type != CommaToken {
				break
			}
			p.next()
		}
		if _, err := p.expectType(RightParenToken); err != nil {
			return nil, err
		}
	}

	switch {
	case p.tok.IsKeyword("VALUES"):
		src, err := p.parseValues()
		if err != nil {
			return nil, err
		}
		ins.Source = src
	case p.tok.IsKeyword("SELECT"):
		src, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		ins.Source = src
	default:
		return nil, p.unexpected("VALUES", "SELECT")
	}
	return ins, nil
}

func (p *parser) parseUpdate() (*ast.Update, error) {
	pos := p.tok.Pos
	p.next()
	table, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	upd := &ast.Update{Table: table}
	upd.Position = pos

	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	for {
		col, err := p.parseName()
		if err != nil {
			return nil, err
		}
		if !p.tok.IsOp("=") {
			return nil, p.unexpected("=")
		}
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		upd.Set = append(upd.Set, ast.Assignment{Column: col, Expr: e})
		if p.tok.Type != CommaToken {
			break
		}
		p.next()
	}

	if p.acceptKeyword("WHERE") {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		upd.Where = where
	}
	return upd, nil
}

func (p *parser) parseDelete() (*ast.Delete, error) {
	pos := p.tok.Pos
	p.next()
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	del := &ast.Delete{Table: table}
	del.Position = pos

	if p.acceptKeyword("WHERE") {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		del.Where = where
	}
	return del, nil
}
