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

// defaultCardinality stands in for tables the catalog has no estimate for.
const defaultCardinality = 1000

// reorderJoins rewrites chains of inner joins into a left-deep tree ordered
// by increasing estimated cardinality, so the smallest inputs feed the
// earliest joins. Ties break toward keeping tables of the same data source
// adjacent, which lets the physical planner push more work to fewer
// sources. Outer joins pin their operand order and stop the rewrite.
func reorderJoins(ctx *sql.Context, a *Analyzer, stmt ast.Statement) (ast.Statement, bool, error) {
	changed := false
	forEachSelect(stmt, func(s *ast.Select) {
		join, ok := s.From.(*ast.Join)
		if !ok {
			return
		}

		leaves, conds, ok := flattenInnerJoins(join)
		if !ok || len(leaves) < 2 {
			return
		}

		type rel struct {
			leaf   ast.TableExpr
			name   string
			rows   float64
			source string
		}
		rels := make([]rel, len(leaves))
		for i, leaf := range leaves {
			r := rel{leaf: leaf, name: strings.ToLower(tableExprName(leaf)), rows: defaultCardinality}
			switch t := leaf.(type) {
			case *ast.TableRef:
				r.rows = a.estimatedRows(t.Name, defaultCardinality)
				r.source = a.sourceOf(t.Name)
			case *ast.SubqueryRef:
				if inner, ok := t.Query.From.(*ast.TableRef); ok {
					r.rows = a.estimatedRows(inner.Name, defaultCardinality)
					r.source = a.sourceOf(inner.Name)
					if t.Query.Where != nil {
						// A filtered sub-query produces fewer rows.
						r.rows /= 2
					}
				}
			}
			rels[i] = r
		}

		// Insertion sort by cardinality, breaking ties on the data source so
		// same-source inputs end up adjacent.
		order := make([]int, len(rels))
		for i := range order {
			order[i] = i
		}
		for i := 1; i < len(order); i++ {
			for j := i; j > 0; j-- {
				ri, rj := rels[order[j]], rels[order[j-1]]
				if ri.rows < rj.rows || (ri.rows == rj.rows && ri.source < rj.source) {
					order[j], order[j-1] = order[j-1], order[j]
				} else {
					break
				}
			}
		}

		reordered := false
		for i, idx := range order {
			if idx != i {
				reordered = true
				break
			}
		}
		if !reordered {
			return
		}

		// Rebuild a left-deep tree, attaching each condition at the first
		// join where all its references are in scope.
		available := map[string]bool{rels[order[0]].name: true}
		remaining := append([]ast.Expr(nil), conds...)
		tree := rels[order[0]].leaf
		for _, idx := range order[1:] {
			r := rels[idx]
			available[r.name] = true

			var attached, rest []ast.Expr
			for _, cond := range remaining {
				if condInScope(cond, available) {
					attached = append(attached, cond)
				} else {
					rest = append(rest, cond)
				}
			}
			remaining = rest

			joinType := ast.InnerJoin
			on := joinConjuncts(attached)
			if on == nil {
				joinType = ast.CrossJoin
			}
			tree = &ast.Join{Type: joinType, Left: tree, Right: r.leaf, On: on, Position: join.Position}
		}
		// Conditions that never came into scope stay as a filter.
		if leftover := joinConjuncts(remaining); leftover != nil {
			if s.Where == nil {
				s.Where = leftover
			} else {
				s.Where = &ast.BinaryExpr{Op: "AND", Left: s.Where, Right: leftover, Position: leftover.Pos()}
			}
		}

		s.From = tree
		changed = true
	})
	return stmt, changed, nil
}

// flattenInnerJoins decomposes a join tree of only inner and cross joins
// into its leaves and the conjuncts of every ON condition. Any outer join
// or unnamed leaf aborts.
func flattenInnerJoins(t ast.TableExpr) ([]ast.TableExpr, []ast.Expr, bool) {
	switch t := t.(type) {
	case *ast.Join:
		if t.Type != ast.InnerJoin && t.Type != ast.CrossJoin {
			return nil, nil, false
		}
		left, lconds, ok := flattenInnerJoins(t.Left)
		if !ok {
			return nil, nil, false
		}
		right, rconds, ok := flattenInnerJoins(t.Right)
		if !ok {
			return nil, nil, false
		}
		conds := append(lconds, rconds...)
		if t.On != nil {
			conds = append(conds, splitConjuncts(t.On)...)
		}
		return append(left, right...), conds, true
	default:
		if tableExprName(t) == "" {
			return nil, nil, false
		}
		return []ast.TableExpr{t}, nil, true
	}
}

// condInScope reports whether every qualified reference of the condition is
// among the available table names. Unqualified references never are.
func condInScope(cond ast.Expr, available map[string]bool) bool {
	refs := exprReferences(cond)
	for r := range refs {
		if r == "" || !available[strings.ToLower(r)] {
			return false
		}
	}
	return true
}

// sourceOf resolves the data source owning a table, or empty when unknown.
func (a *Analyzer) sourceOf(name *ast.Identifier) string {
	if a.Catalog == nil {
		return ""
	}
	quoted := name.Parts[len(name.Parts)-1].Quoted
	var db, table string
	switch len(name.Parts) {
	case 1:
		table = name.Parts[0].Name
	case 2:
		db, table = name.Parts[0].Name, name.Parts[1].Name
	default:
		return ""
	}
	d, _, err := a.Catalog.Table(db, table, quoted)
	if err != nil {
		return ""
	}
	return d.DataSourceName
}
