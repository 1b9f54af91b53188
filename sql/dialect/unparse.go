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

package dialect

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/meshql/meshql/sql/ast"
)

// Option tweaks the rendering traits of one Unparse call.
type Option func(*Traits)

// WithLegacyPagination switches Oracle output to the pre-12c
// WHERE ROWNUM BETWEEN k+1 AND k+n pagination encoding.
func WithLegacyPagination() Option {
	return func(t *Traits) { t.LegacyPagination = true }
}

// Unparse renders the statement in the syntax of the target dialect. It
// fails with a translation error listing every feature of the tree the
// target cannot express.
func Unparse(stmt ast.Statement, target ID, opts ...Option) (string, error) {
	if unsupported := Check(stmt, target); len(unsupported) > 0 {
		return "", newTranslationError(target, unsupported)
	}
	traits := TraitsOf(target)
	for _, opt := range opts {
		opt(&traits)
	}
	u := &unparser{w: NewSqlWriter(), target: target, traits: traits}
	if err := u.statement(stmt); err != nil {
		return "", err
	}
	return u.w.String(), nil
}

// UnparseExpr renders a single expression in the target dialect.
func UnparseExpr(e ast.Expr, target ID) (string, error) {
	u := &unparser{w: NewSqlWriter(), target: target, traits: TraitsOf(target)}
	if err := u.expr(e, 0); err != nil {
		return "", err
	}
	return u.w.String(), nil
}

type unparser struct {
	w      SqlWriter
	target ID
	traits Traits
}

func (u *unparser) statement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.Select:
		return u.selectStmt(s)
	case *ast.SetOp:
		if err := u.statement(s.Left); err != nil {
			return err
		}
		u.w.WriteKeyword(s.Type.String())
		return u.statement(s.Right)
	case *ast.Values:
		return u.values(s)
	case *ast.Insert:
		return u.insert(s)
	case *ast.Update:
		return u.update(s)
	case *ast.Delete:
		return u.delete(s)
	case *ast.ShowTables:
		return u.showTables(s)
	case *ast.ShowSchemas:
		u.w.WriteKeyword("SHOW")
		if s.Databases {
			u.w.WriteKeyword("DATABASES")
		} else {
			u.w.WriteKeyword("SCHEMAS")
		}
		if s.HasLike() {
			u.w.WriteKeyword("LIKE")
			u.w.WriteToken(u.stringLit(s.LikePattern))
		}
		return nil
	case *ast.ShowColumns:
		u.w.WriteKeyword("SHOW")
		u.w.WriteKeyword("COLUMNS")
		u.w.WriteKeyword("FROM")
		u.identifier(s.Table)
		return nil
	case *ast.Use:
		u.w.WriteKeyword("USE")
		u.w.WriteToken(u.ident(s.Schema, false))
		return nil
	case *ast.Explain:
		u.w.WriteKeyword("EXPLAIN")
		return u.statement(s.Stmt)
	default:
		return errTranslation.New(u.target, fmt.Sprintf("unknown statement %T", stmt))
	}
}

func (u *unparser) selectStmt(s *ast.Select) error {
	u.w.WriteKeyword("SELECT")
	if s.Distinct {
		u.w.WriteKeyword("DISTINCT")
	}
	for i, item := range s.Projection {
		if i > 0 {
			u.w.WriteToken(",")
		}
		if err := u.expr(item.Expr, 0); err != nil {
			return err
		}
		if item.Alias != "" {
			u.w.WriteKeyword("AS")
			u.w.WriteToken(u.ident(item.Alias, false))
		}
	}

	if s.From != nil {
		u.w.WriteKeyword("FROM")
		if err := u.tableExpr(s.From); err != nil {
			return err
		}
	} else if u.traits.EmptyFrom != "" {
		u.w.WriteKeyword("FROM")
		u.w.WriteKeyword(u.traits.EmptyFrom)
	}

	legacyPaging := u.traits.LegacyPagination && u.target == Oracle && s.Limit != nil
	if s.Where != nil || legacyPaging {
		u.w.WriteKeyword("WHERE")
		if s.Where != nil {
			if err := u.expr(s.Where, 0); err != nil {
				return err
			}
		}
		if legacyPaging {
			if s.Where != nil {
				u.w.WriteKeyword("AND")
			}
			u.rownumRange(s.Limit)
		}
	}

	if len(s.GroupBy) > 0 {
		u.w.WriteKeyword("GROUP")
		u.w.WriteKeyword("BY")
		for i, g := range s.GroupBy {
			if i > 0 {
				u.w.WriteToken(",")
			}
			if err := u.expr(g, 0); err != nil {
				return err
			}
		}
	}

	if s.Having != nil {
		u.w.WriteKeyword("HAVING")
		if err := u.expr(s.Having, 0); err != nil {
			return err
		}
	}

	if len(s.OrderBy) > 0 {
		u.w.WriteKeyword("ORDER")
		u.w.WriteKeyword("BY")
		for i, k := range s.OrderBy {
			if i > 0 {
				u.w.WriteToken(",")
			}
			if err := u.expr(k.Expr, 0); err != nil {
				return err
			}
			if k.Descending {
				u.w.WriteKeyword("DESC")
			}
		}
	}

	if s.Limit != nil && !legacyPaging {
		u.pagination(s.Limit)
	}
	return nil
}

// rownumRange renders Oracle's legacy pagination predicate
// ROWNUM BETWEEN k+1 AND k+n.
func (u *unparser) rownumRange(l *ast.Limit) {
	u.w.WriteToken("ROWNUM")
	u.w.WriteKeyword("BETWEEN")
	u.w.WriteToken(strconv.FormatInt(l.Offset+1, 10))
	u.w.WriteKeyword("AND")
	u.w.WriteToken(strconv.FormatInt(l.Offset+l.Count, 10))
}

func (u *unparser) pagination(l *ast.Limit) {
	switch u.traits.Pagination {
	case LimitOffset:
		count := l.Count
		if count < 0 && u.target == MySQL {
			// MySQL cannot render a bare offset.
			count = math.MaxInt64
		}
		if count >= 0 {
			u.w.WriteKeyword("LIMIT")
			u.w.WriteToken(strconv.FormatInt(count, 10))
		}
		if l.Offset > 0 || l.Count < 0 {
			u.w.WriteKeyword("OFFSET")
			u.w.WriteToken(strconv.FormatInt(l.Offset, 10))
		}

	case OffsetFetch:
		u.w.WriteKeyword("OFFSET")
		u.w.WriteToken(strconv.FormatInt(l.Offset, 10))
		u.w.WriteKeyword("ROWS")
		if l.Count >= 0 {
			u.w.WriteKeyword("FETCH")
			u.w.WriteKeyword("NEXT")
			u.w.WriteToken(strconv.FormatInt(l.Count, 10))
			u.w.WriteKeyword("ROWS")
			u.w.WriteKeyword("ONLY")
		}

	case FetchFirst:
		if l.Count >= 0 {
			u.w.WriteKeyword("FETCH")
			u.w.WriteKeyword("FIRST")
			u.w.WriteToken(strconv.FormatInt(l.Count, 10))
			u.w.WriteKeyword("ROWS")
			u.w.WriteKeyword("ONLY")
		}

	case LimitOnly:
		if l.Count >= 0 {
			u.w.WriteKeyword("LIMIT")
			u.w.WriteToken(strconv.FormatInt(l.Count, 10))
		}
	}
}

func (u *unparser) tableExpr(t ast.TableExpr) error {
	switch t := t.(type) {
	case *ast.TableRef:
		u.identifier(t.Name)
		if t.Alias != "" {
			u.w.WriteKeyword("AS")
			u.w.WriteToken(u.ident(t.Alias, false))
		}
		return nil
	case *ast.SubqueryRef:
		u.w.WriteToken("(")
		if err := u.selectStmt(t.Query); err != nil {
			return err
		}
		u.w.WriteToken(")")
		if t.Alias != "" {
			u.w.WriteKeyword("AS")
			u.w.WriteToken(u.ident(t.Alias, false))
		}
		return nil
	case *ast.Join:
		if err := u.tableExpr(t.Left); err != nil {
			return err
		}
		u.w.WriteKeyword(t.Type.String())
		if err := u.tableExpr(t.Right); err != nil {
			return err
		}
		if t.On != nil {
			u.w.WriteKeyword("ON")
			return u.expr(t.On, 0)
		}
		return nil
	default:
		return errTranslation.New(u.target, fmt.Sprintf("unknown table expression %T", t))
	}
}

// Operator precedence used to decide parenthesization on emission.
func opPrecedence(op string) int {
	switch op {
	case "OR":
		return 1
	case "AND":
		return 2
	case "=", "<>", "<", ">", "<=", ">=", "LIKE", "IN":
		return 3
	case "+", "-", "||":
		return 4
	case "*", "/", "%":
		return 5
	default:
		return 6
	}
}

func (u *unparser) expr(e ast.Expr, parentPrec int) error {
	switch e := e.(type) {
	case *ast.Identifier:
		u.identifier(e)
		return nil

	case *ast.Literal:
		return u.literal(e)

	case *ast.Star:
		if e.Table != "" {
			u.w.WriteToken(u.ident(e.Table, false))
			u.w.WriteToken(".")
		}
		u.w.WriteToken("*")
		return nil

	case *ast.CurrentTimestamp:
		u.w.WriteToken(u.traits.NowToken)
		return nil

	case *ast.UnaryExpr:
		switch e.Op {
		case "IS NULL", "IS NOT NULL":
			if err := u.expr(e.Operand, 3); err != nil {
				return err
			}
			for _, kw := range strings.Fields(e.Op) {
				u.w.WriteKeyword(kw)
			}
			return nil
		case "NOT":
			u.w.WriteKeyword("NOT")
			return u.expr(e.Operand, 2)
		default:
			u.w.WriteToken(e.Op)
			return u.expr(e.Operand, 6)
		}

	case *ast.BinaryExpr:
		prec := opPrecedence(e.Op)
		if prec < parentPrec {
			u.w.WriteToken("(")
		}
		if err := u.expr(e.Left, prec); err != nil {
			return err
		}
		if e.Op == "AND" || e.Op == "OR" || e.Op == "LIKE" || e.Op == "IN" {
			u.w.WriteKeyword(e.Op)
		} else {
			u.w.WriteToken(e.Op)
		}
		// Right operands bind one level tighter so emission of
		// left-associative trees round-trips.
		if err := u.expr(e.Right, prec+1); err != nil {
			return err
		}
		if prec < parentPrec {
			u.w.WriteToken(")")
		}
		return nil

	case *ast.Tuple:
		u.w.WriteToken("(")
		for i, el := range e.Exprs {
			if i > 0 {
				u.w.WriteToken(",")
			}
			if err := u.expr(el, 0); err != nil {
				return err
			}
		}
		u.w.WriteToken(")")
		return nil

	case *ast.FuncCall:
		u.w.WriteToken(e.Name + "(")
		if e.Star {
			u.w.WriteToken("*")
		} else {
			if e.Distinct {
				u.w.WriteKeyword("DISTINCT")
			}
			for i, a := range e.Args {
				if i > 0 {
					u.w.WriteToken(",")
				}
				if err := u.expr(a, 0); err != nil {
					return err
				}
			}
		}
		u.w.WriteToken(")")
		return nil

	case *ast.Select:
		u.w.WriteToken("(")
		if err := u.selectStmt(e); err != nil {
			return err
		}
		u.w.WriteToken(")")
		return nil

	default:
		return errTranslation.New(u.target, fmt.Sprintf("unknown expression %T", e))
	}
}

func (u *unparser) literal(l *ast.Literal) error {
	switch l.Kind {
	case ast.StringLiteral:
		u.w.WriteToken(u.stringLit(l.Value.(string)))
	case ast.NumberLiteral:
		if l.Raw != "" {
			u.w.WriteToken(l.Raw)
		} else {
			u.w.WriteToken(fmt.Sprintf("%v", l.Value))
		}
	case ast.BoolLiteral:
		val := l.Value.(bool)
		switch {
		case u.traits.BoolAsInt && val:
			u.w.WriteToken("1")
		case u.traits.BoolAsInt:
			u.w.WriteToken("0")
		case val:
			u.w.WriteKeyword("TRUE")
		default:
			u.w.WriteKeyword("FALSE")
		}
	case ast.NullLiteral:
		u.w.WriteKeyword("NULL")
	case ast.IntervalLiteral:
		// Value is "<amount> <unit>".
		fields := strings.SplitN(l.Value.(string), " ", 2)
		u.w.WriteKeyword("INTERVAL")
		u.w.WriteToken(u.stringLit(fields[0]))
		if len(fields) > 1 {
			u.w.WriteKeyword(fields[1])
		}
	case ast.DateLiteral:
		u.w.WriteKeyword("DATE")
		u.w.WriteToken(u.stringLit(l.Value.(string)))
	case ast.TimeLiteral:
		u.w.WriteKeyword("TIME")
		u.w.WriteToken(u.stringLit(l.Value.(string)))
	case ast.TimestampLiteral:
		u.w.WriteKeyword("TIMESTAMP")
		u.w.WriteToken(u.stringLit(l.Value.(string)))
	default:
		return errTranslation.New(u.target, fmt.Sprintf("unknown literal kind %d", l.Kind))
	}
	return nil
}

func (u *unparser) stringLit(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (u *unparser) identifier(i *ast.Identifier) {
	for j, part := range i.Parts {
		if j > 0 {
			u.w.WriteToken(".")
		}
		u.w.WriteToken(u.ident(part.Name, part.Quoted))
	}
}

// ident quotes the name when the source quoted it or when it would not
// re-parse as an identifier unquoted.
func (u *unparser) ident(name string, quoted bool) string {
	if quoted || NeedsQuoting(name) {
		return QuoteIdentifier(name, u.target)
	}
	return name
}

func (u *unparser) values(v *ast.Values) error {
	u.w.WriteKeyword("VALUES")
	for i, row := range v.Rows {
		if i > 0 {
			u.w.WriteToken(",")
		}
		u.w.WriteToken("(")
		for j, e := range row {
			if j > 0 {
				u.w.WriteToken(",")
			}
			if err := u.expr(e, 0); err != nil {
				return err
			}
		}
		u.w.WriteToken(")")
	}
	return nil
}

func (u *unparser) insert(ins *ast.Insert) error {
	u.w.WriteKeyword("INSERT")
	u.w.WriteKeyword("INTO")
	u.identifier(ins.Table)
	if len(ins.Columns) > 0 {
		u.w.WriteToken("(")
		for i, c := range ins.Columns {
			if i > 0 {
				u.w.WriteToken(",")
			}
			u.w.WriteToken(u.ident(c, false))
		}
		u.w.WriteToken(")")
	}
	return u.statement(ins.Source)
}

func (u *unparser) update(upd *ast.Update) error {
	u.w.WriteKeyword("UPDATE")
	u.identifier(upd.Table)
	u.w.WriteKeyword("SET")
	for i, a := range upd.Set {
		if i > 0 {
			u.w.WriteToken(",")
		}
		u.w.WriteToken(u.ident(a.Column, false))
		u.w.WriteToken("=")
		if err := u.expr(a.Expr, 0); err != nil {
			return err
		}
	}
	if upd.Where != nil {
		u.w.WriteKeyword("WHERE")
		return u.expr(upd.Where, 0)
	}
	return nil
}

func (u *unparser) delete(del *ast.Delete) error {
	u.w.WriteKeyword("DELETE")
	u.w.WriteKeyword("FROM")
	u.identifier(del.Table)
	if del.Where != nil {
		u.w.WriteKeyword("WHERE")
		return u.expr(del.Where, 0)
	}
	return nil
}

func (u *unparser) showTables(s *ast.ShowTables) error {
	u.w.WriteKeyword("SHOW")
	u.w.WriteKeyword("TABLES")
	if s.Db != "" {
		u.w.WriteKeyword("FROM")
		u.w.WriteToken(u.ident(s.Db, false))
	}
	if s.HasLike() {
		u.w.WriteKeyword("LIKE")
		u.w.WriteToken(u.stringLit(s.LikePattern))
	}
	if s.Where != nil {
		u.w.WriteKeyword("WHERE")
		return u.expr(s.Where, 0)
	}
	return nil
}
