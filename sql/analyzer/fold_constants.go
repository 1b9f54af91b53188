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

import (
	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/ast"
)

// foldConstants evaluates literal sub-expressions at plan time: arithmetic
// over numeric literals, string concatenation, and boolean AND/OR with a
// literal side.
func foldConstants(ctx *sql.Context, a *Analyzer, stmt ast.Statement) (ast.Statement, bool, error) {
	changed := false
	rewriteExprs(stmt, func(e ast.Expr) ast.Expr {
		folded := foldExpr(e)
		if folded != e {
			changed = true
		}
		return folded
	})
	return stmt, changed, nil
}

func foldExpr(e ast.Expr) ast.Expr {
	b, ok := e.(*ast.BinaryExpr)
	if !ok {
		return e
	}

	ll, lok := b.Left.(*ast.Literal)
	rl, rok := b.Right.(*ast.Literal)

	switch b.Op {
	case "+", "-", "*", "/", "%":
		if lok && rok && ll.Kind == ast.NumberLiteral && rl.Kind == ast.NumberLiteral {
			if v, ok := foldNumeric(b.Op, ll.Value, rl.Value); ok {
				return &ast.Literal{Kind: ast.NumberLiteral, Value: v, Position: b.Position}
			}
		}
	case "||":
		if lok && rok && ll.Kind == ast.StringLiteral && rl.Kind == ast.StringLiteral {
			return &ast.Literal{
				Kind:     ast.StringLiteral,
				Value:    ll.Value.(string) + rl.Value.(string),
				Position: b.Position,
			}
		}
	case "AND":
		if lok && ll.Kind == ast.BoolLiteral {
			if ll.Value.(bool) {
				return b.Right
			}
			return ll
		}
		if rok && rl.Kind == ast.BoolLiteral {
			if rl.Value.(bool) {
				return b.Left
			}
			return rl
		}
	case "OR":
		if lok && ll.Kind == ast.BoolLiteral {
			if !ll.Value.(bool) {
				return b.Right
			}
			return ll
		}
		if rok && rl.Kind == ast.BoolLiteral {
			if !rl.Value.(bool) {
				return b.Left
			}
			return rl
		}
	}
	return e
}

func foldNumeric(op string, l, r interface{}) (interface{}, bool) {
	li, lInt := l.(int64)
	ri, rInt := r.(int64)
	if lInt && rInt {
		switch op {
		case "+":
			return li + ri, true
		case "-":
			return li - ri, true
		case "*":
			return li * ri, true
		case "%":
			if ri == 0 {
				return nil, false
			}
			return li % ri, true
		case "/":
			if ri == 0 {
				return nil, false
			}
			return float64(li) / float64(ri), true
		}
		return nil, false
	}

	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if !lok || !rok {
		return nil, false
	}
	switch op {
	case "+":
		return lf + rf, true
	case "-":
		return lf - rf, true
	case "*":
		return lf * rf, true
	case "/":
		if rf == 0 {
			return nil, false
		}
		return lf / rf, true
	}
	return nil, false
}

func toFloat(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}
