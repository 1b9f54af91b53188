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

package analyzer

import "github.com/meshql/meshql/sql/ast"

// rewriteExprs applies f bottom-up to every expression slot of the
// statement, including sub-queries. The tree is rewritten in place; each
// query owns a freshly parsed tree, so rules never alias state across
// queries.
func rewriteExprs(stmt ast.Statement, f func(ast.Expr) ast.Expr) {
	switch s := stmt.(type) {
	case *ast.Select:
		rewriteSelect(s, f)
	case *ast.SetOp:
		rewriteExprs(s.Left, f)
		rewriteExprs(s.Right, f)
	case *ast.Values:
		for _, row := range s.Rows {
			for i, e := range row {
				row[i] = rewriteExpr(e, f)
			}
		}
	case *ast.Insert:
		rewriteExprs(s.Source, f)
	case *ast.Update:
		for i := range s.Set {
			s.Set[i].Expr = rewriteExpr(s.Set[i].Expr, f)
		}
		if s.Where != nil {
			s.Where = rewriteExpr(s.Where, f)
		}
	case *ast.Delete:
		if s.Where != nil {
			s.Where = rewriteExpr(s.Where, f)
		}
	case *ast.ShowTables:
		if s.Where != nil {
			s.Where = rewriteExpr(s.Where, f)
		}
	case *ast.Explain:
		rewriteExprs(s.Stmt, f)
	}
}

func rewriteSelect(s *ast.Select, f func(ast.Expr) ast.Expr) {
	for i := range s.Projection {
		s.Projection[i].Expr = rewriteExpr(s.Projection[i].Expr, f)
	}
	if s.From != nil {
		rewriteTableExpr(s.From, f)
	}
	if s.Where != nil {
		s.Where = rewriteExpr(s.Where, f)
	}
	for i, g := range s.GroupBy {
		s.GroupBy[i] = rewriteExpr(g, f)
	}
	if s.Having != nil {
		s.Having = rewriteExpr(s.Having, f)
	}
	for i := range s.OrderBy {
		s.OrderBy[i].Expr = rewriteExpr(s.OrderBy[i].Expr, f)
	}
}

func rewriteTableExpr(t ast.TableExpr, f func(ast.Expr) ast.Expr) {
	switch t := t.(type) {
	case *ast.Join:
		rewriteTableExpr(t.Left, f)
		rewriteTableExpr(t.Right, f)
		if t.On != nil {
			t.On = rewriteExpr(t.On, f)
		}
	case *ast.SubqueryRef:
		rewriteSelect(t.Query, f)
	}
}

// rewriteExpr rebuilds the expression bottom-up through f.
func rewriteExpr(e ast.Expr, f func(ast.Expr) ast.Expr) ast.Expr {
	switch e := e.(type) {
	case *ast.UnaryExpr:
		e.Operand = rewriteExpr(e.Operand, f)
	case *ast.BinaryExpr:
		e.Left = rewriteExpr(e.Left, f)
		e.Right = rewriteExpr(e.Right, f)
	case *ast.FuncCall:
		for i, a := range e.Args {
			e.Args[i] = rewriteExpr(a, f)
		}
	case *ast.Tuple:
		for i, el := range e.Exprs {
			e.Exprs[i] = rewriteExpr(el, f)
		}
	case *ast.Select:
		rewriteSelect(e, f)
	}
	return f(e)
}

// exprReferences collects the table qualifiers referenced by an expression.
// Unqualified column references report as the empty string.
func exprReferences(e ast.Expr) map[string]bool {
	refs := map[string]bool{}
	ast.Inspect(e, func(n ast.Node) bool {
		if id, ok := n.(*ast.Identifier); ok {
			if len(id.Parts) == 1 {
				refs[""] = true
			} else {
				refs[id.Parts[len(id.Parts)-2].Name] = true
			}
		}
		return true
	})
	return refs
}

// splitConjuncts flattens an AND chain.
func splitConjuncts(e ast.Expr) []ast.Expr {
	if b, ok := e.(*ast.BinaryExpr); ok && b.Op == "AND" {
		return append(splitConjuncts(b.Left), splitConjuncts(b.Right)...)
	}
	return []ast.Expr{e}
}

// joinConjuncts rebuilds an AND chain, or returns nil for an empty list.
func joinConjuncts(exprs []ast.Expr) ast.Expr {
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	default:
		result := exprs[0]
		for _, e := range exprs[1:] {
			result = &ast.BinaryExpr{Op: "AND", Left: result, Right: e, Position: e.Pos()}
		}
		return result
	}
}

// tableExprName returns the name a table expression is referenced by in the
// enclosing query: its alias if present, else its table name. Empty for
// joins.
func tableExprName(t ast.TableExpr) string {
	switch t := t.(type) {
	case *ast.TableRef:
		if t.Alias != "" {
			return t.Alias
		}
		return t.Name.Name()
	case *ast.SubqueryRef:
		return t.Alias
	}
	return ""
}
