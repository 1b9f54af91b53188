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
	"strings"

	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/ast"
)

// pruneProjections narrows sub-query projections to the columns the
// enclosing query actually references, so pushed-down SQL fetches less. A
// sub-query keeps its projection when the outer query selects its star or
// references it through unqualified names.
func pruneProjections(ctx *sql.Context, a *Analyzer, stmt ast.Statement) (ast.Statement, bool, error) {
	changed := false
	forEachSelect(stmt, func(s *ast.Select) {
		if s.From == nil {
			return
		}
		used, precise := usedColumns(s)
		if !precise {
			return
		}
		eachSubquery(s.From, func(sub *ast.SubqueryRef) {
			if sub.Alias == "" || sub.Query.Distinct {
				return
			}
			subUsed := used[strings.ToLower(sub.Alias)]
			if subUsed == nil {
				return
			}
			if pruneSubquery(sub.Query, subUsed) {
				changed = true
			}
		})
	})
	return stmt, changed, nil
}

// usedColumns maps each table qualifier of the query to the set of column
// names referenced through it. precise is false when a star or unqualified
// reference makes the set unknowable without schema binding.
func usedColumns(s *ast.Select) (map[string]map[string]bool, bool) {
	used := map[string]map[string]bool{}
	precise := true

	collect := func(e ast.Expr) {
		ast.Inspect(e, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.Select:
				// Nested scopes track their own usage.
				return false
			case *ast.Star:
				precise = false
				return false
			case *ast.Identifier:
				if len(n.Parts) < 2 {
					precise = false
					return false
				}
				qualifier := strings.ToLower(n.Parts[len(n.Parts)-2].Name)
				column := strings.ToLower(n.Parts[len(n.Parts)-1].Name)
				if used[qualifier] == nil {
					used[qualifier] = map[string]bool{}
				}
				used[qualifier][column] = true
			}
			return true
		})
	}

	for _, item := range s.Projection {
		if _, isStar := item.Expr.(*ast.Star); isStar {
			return nil, false
		}
		collect(item.Expr)
	}
	if s.Where != nil {
		collect(s.Where)
	}
	for _, g := range s.GroupBy {
		collect(g)
	}
	if s.Having != nil {
		collect(s.Having)
	}
	for _, k := range s.OrderBy {
		collect(k.Expr)
	}
	if j, ok := s.From.(*ast.Join); ok {
		collectJoinConds(j, collect)
	}

	return used, precise
}

func collectJoinConds(j *ast.Join, collect func(ast.Expr)) {
	if j.On != nil {
		collect(j.On)
	}
	if lj, ok := j.Left.(*ast.Join); ok {
		collectJoinConds(lj, collect)
	}
	if rj, ok := j.Right.(*ast.Join); ok {
		collectJoinConds(rj, collect)
	}
}

// pruneSubquery drops projection items the outer query never references.
// Star projections expand to nothing prunable here; they are left alone.
func pruneSubquery(q *ast.Select, used map[string]bool) bool {
	if len(q.GroupBy) > 0 || q.Having != nil {
		return false
	}

	var kept []ast.SelectItem
	for _, item := range q.Projection {
		switch e := item.Expr.(type) {
		case *ast.Star:
			return false
		case *ast.Identifier:
			name := item.Alias
			if name == "" {
				name = e.Name()
			}
			if used[strings.ToLower(name)] {
				kept = append(kept, item)
			}
		default:
			if item.Alias != "" && used[strings.ToLower(item.Alias)] {
				kept = append(kept, item)
			}
		}
	}

	if len(kept) == 0 || len(kept) == len(q.Projection) {
		return false
	}
	q.Projection = kept
	return true
}

// eachSubquery visits the sub-query references of a FROM tree.
func eachSubquery(t ast.TableExpr, f func(*ast.SubqueryRef)) {
	switch t := t.(type) {
	case *ast.SubqueryRef:
		f(t)
	case *ast.Join:
		eachSubquery(t.Left, f)
		eachSubquery(t.Right, f)
	}
}
