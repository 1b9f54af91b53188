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

package physical

import (
	"strings"

	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/ast"
	"github.com/meshql/meshql/sql/expression"
	"github.com/meshql/meshql/sql/expression/aggregation"
)

// scopeColumn is one column visible to expression resolution, with the name
// it is reachable through.
type scopeColumn struct {
	qualifier string
	col       *sql.Column
}

// scope is the ordered set of columns an expression resolves against: the
// concatenated outputs of the FROM leaves, left to right.
type scope struct {
	cols []scopeColumn
}

func (s *scope) add(qualifier string, col *sql.Column) {
	s.cols = append(s.cols, scopeColumn{qualifier: qualifier, col: col})
}

func (s *scope) schema() sql.Schema {
	schema := make(sql.Schema, len(s.cols))
	for i, c := range s.cols {
		schema[i] = c.col
	}
	return schema
}

// resolve finds the column an identifier names. Unquoted names match
// case-insensitively, quoted ones exactly. More than one match is an
// ambiguous column reference.
func (s *scope) resolve(id *ast.Identifier) (int, *sql.Column, error) {
	last := id.Parts[len(id.Parts)-1]
	var qualifier string
	if len(id.Parts) > 1 {
		qualifier = id.Parts[len(id.Parts)-2].Name
	}

	matches := -1
	var col *sql.Column
	var homes []string
	for i, c := range s.cols {
		if qualifier != "" && !strings.EqualFold(c.qualifier, qualifier) {
			continue
		}
		nameMatch := strings.EqualFold(c.col.Name, last.Name)
		if last.Quoted {
			nameMatch = c.col.Name == last.Name
		}
		if nameMatch {
			if matches >= 0 {
				homes = append(homes, s.cols[matches].qualifier, c.qualifier)
				return 0, nil, sql.ErrAmbiguousColumnName.New(last.Name, homes)
			}
			matches, col = i, c.col
		}
	}
	if matches < 0 {
		return 0, nil, sql.ErrColumnNotFound.New(id.String())
	}
	return matches, col, nil
}

// aggregateNames are the aggregate functions the local executor evaluates.
var aggregateNames = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
}

// isAggregateCall reports whether the expression is an aggregate function
// call.
func isAggregateCall(e ast.Expr) bool {
	f, ok := e.(*ast.FuncCall)
	return ok && aggregateNames[f.Name]
}

// containsAggregate reports whether any aggregate call appears in the
// expression.
func containsAggregate(e ast.Expr) bool {
	found := false
	ast.Inspect(e, func(n ast.Node) bool {
		if f, ok := n.(*ast.FuncCall); ok && aggregateNames[f.Name] {
			found = true
			return false
		}
		return true
	})
	return found
}

// convertExpr lowers an AST expression to an evaluable one against the given
// scope. allowAggregates permits aggregate function calls (projection and
// HAVING positions).
func convertExpr(e ast.Expr, sc *scope, allowAggregates bool) (sql.Expression, error) {
	switch e := e.(type) {
	case *ast.Identifier:
		idx, col, err := sc.resolve(e)
		if err != nil {
			return nil, err
		}
		return expression.NewGetFieldWithTable(idx, col.Type, col.Source, col.Name, col.Nullable), nil

	case *ast.Literal:
		return convertLiteral(e)

	case *ast.CurrentTimestamp:
		return expression.NewCurrentTimestamp(), nil

	case *ast.UnaryExpr:
		child, err := convertExpr(e.Operand, sc, allowAggregates)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case "NOT":
			return expression.NewNot(child), nil
		case "-":
			return expression.NewUnaryMinus(child), nil
		case "IS NULL":
			return expression.NewIsNull(child), nil
		case "IS NOT NULL":
			return expression.NewNot(expression.NewIsNull(child)), nil
		}
		return nil, sql.ErrUnsupportedFeature.New("operator " + e.Op)

	case *ast.BinaryExpr:
		left, err := convertExpr(e.Left, sc, allowAggregates)
		if err != nil {
			return nil, err
		}
		right, err := convertExpr(e.Right, sc, allowAggregates)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case "=":
			return expression.NewEquals(left, right), nil
		case "<>":
			return expression.NewNotEquals(left, right), nil
		case "<":
			return expression.NewLessThan(left, right), nil
		case ">":
			return expression.NewGreaterThan(left, right), nil
		case "<=":
			return expression.NewLessThanOrEqual(left, right), nil
		case ">=":
			return expression.NewGreaterThanOrEqual(left, right), nil
		case "LIKE":
			return expression.NewLike(left, right), nil
		case "IN":
			return expression.NewIn(left, right), nil
		case "AND":
			return expression.NewAnd(left, right), nil
		case "OR":
			return expression.NewOr(left, right), nil
		case "+", "-", "*", "/", "%", "||":
			return expression.NewArithmetic(left, right, e.Op), nil
		}
		return nil, sql.ErrUnsupportedFeature.New("operator " + e.Op)

	case *ast.Tuple:
		exprs := make([]sql.Expression, len(e.Exprs))
		for i, el := range e.Exprs {
			var err error
			exprs[i], err = convertExpr(el, sc, allowAggregates)
			if err != nil {
				return nil, err
			}
		}
		return expression.NewTuple(exprs...), nil

	case *ast.FuncCall:
		return convertFuncCall(e, sc, allowAggregates)

	case *ast.Star:
		return nil, sql.ErrSemantic.New("* is only valid as a projection item")

	case *ast.Select:
		return nil, sql.ErrUnsupportedFeature.New("scalar subquery in local execution")
	}
	return nil, sql.ErrSemantic.New("unknown expression")
}

func convertLiteral(l *ast.Literal) (sql.Expression, error) {
	switch l.Kind {
	case ast.StringLiteral:
		return expression.NewLiteral(l.Value, sql.Text), nil
	case ast.NumberLiteral:
		if _, ok := l.Value.(int64); ok {
			return expression.NewLiteral(l.Value, sql.Int64), nil
		}
		return expression.NewLiteral(l.Value, sql.Float64), nil
	case ast.BoolLiteral:
		return expression.NewLiteral(l.Value, sql.Boolean), nil
	case ast.NullLiteral:
		return expression.NewLiteral(nil, sql.Null), nil
	case ast.DateLiteral:
		v, err := sql.Date.Convert(l.Value)
		if err != nil {
			return nil, sql.ErrSemantic.New("invalid date literal " + l.Raw)
		}
		return expression.NewLiteral(v, sql.Date), nil
	case ast.TimestampLiteral, ast.TimeLiteral:
		v, err := sql.Timestamp.Convert(l.Value)
		if err != nil {
			return nil, sql.ErrSemantic.New("invalid timestamp literal " + l.Raw)
		}
		return expression.NewLiteral(v, sql.Timestamp), nil
	case ast.IntervalLiteral:
		return nil, sql.ErrUnsupportedFeature.New("interval arithmetic in local execution")
	}
	return nil, sql.ErrSemantic.New("unknown literal")
}

func convertFuncCall(f *ast.FuncCall, sc *scope, allowAggregates bool) (sql.Expression, error) {
	if aggregateNames[f.Name] {
		if !allowAggregates {
			return nil, sql.ErrSemantic.New("aggregate function " + f.Name + " is not allowed here")
		}
		if f.Star {
			if f.Name != "COUNT" {
				return nil, sql.ErrSemantic.New(f.Name + "(*) is not valid")
			}
			return aggregation.NewCountAll(), nil
		}
		if len(f.Args) != 1 {
			return nil, sql.ErrSemantic.New(f.Name + " takes exactly one argument")
		}
		// Aggregate arguments see the pre-aggregation scope and never nest.
		arg, err := convertExpr(f.Args[0], sc, false)
		if err != nil {
			return nil, err
		}
		switch f.Name {
		case "COUNT":
			return aggregation.NewCount(arg), nil
		case "SUM":
			return aggregation.NewSum(arg), nil
		case "AVG":
			return aggregation.NewAvg(arg), nil
		case "MIN":
			return aggregation.NewMin(arg), nil
		case "MAX":
			return aggregation.NewMax(arg), nil
		}
	}
	return nil, sql.ErrUnsupportedFeature.New("function " + f.Name + " in local execution")
}
