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

// cloneExpr deep-copies an expression so a rule can rewrite the copy without
// aliasing the original tree. Sub-queries are not copied; rules refuse to
// move expressions containing them.
func cloneExpr(e ast.Expr) ast.Expr {
	switch e := e.(type) {
	case *ast.Identifier:
		parts := make([]ast.IdentPart, len(e.Parts))
		copy(parts, e.Parts)
		return &ast.Identifier{Parts: parts, Position: e.Position}
	case *ast.Literal:
		ne := *e
		return &ne
	case *ast.Star:
		ne := *e
		return &ne
	case *ast.CurrentTimestamp:
		ne := *e
		return &ne
	case *ast.UnaryExpr:
		return &ast.UnaryExpr{Op: e.Op, Operand: cloneExpr(e.Operand), Position: e.Position}
	case *ast.BinaryExpr:
		return &ast.BinaryExpr{
			Op:       e.Op,
			Left:     cloneExpr(e.Left),
			Right:    cloneExpr(e.Right),
			Position: e.Position,
		}
	case *ast.FuncCall:
		args := make([]ast.Expr, len(e.Args))
		for i, a := range e.Args {
			args[i] = cloneExpr(a)
		}
		return &ast.FuncCall{Name: e.Name, Args: args, Star: e.Star, Distinct: e.Distinct, Position: e.Position}
	case *ast.Tuple:
		exprs := make([]ast.Expr, len(e.Exprs))
		for i, el := range e.Exprs {
			exprs[i] = cloneExpr(el)
		}
		return &ast.Tuple{Exprs: exprs, Position: e.Position}
	default:
		return e
	}
}
