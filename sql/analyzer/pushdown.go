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

// pushdownPredicates moves WHERE conjuncts toward the tables they filter:
// into sub-queries when the conjunct only references that sub-query's
// columns, and onto one side of an inner join by wrapping that side in a
// sub-query carrying the predicate. Predicates never move past the nullable
// side of an outer join.
func pushdownPredicates(ctx *sql.Context, a *Analyzer, stmt ast.Statement) (ast.Statement, bool, error) {
	changed := false
	forEachSelect(stmt, func(s *ast.Select) {
		if s.Where == nil || s.From == nil {
			return
		}
		// No pushdown without a join: a single pushed table keeps its WHERE
		// at the statement level and the physical planner ships it whole.
		if _, isJoin := s.From.(*ast.Join); !isJoin {
			if sub, ok := s.From.(*ast.SubqueryRef); ok {
				changed = pushWhereIntoSubquery(s, sub) || changed
			}
			return
		}

		targets := pushdownTargets(&s.From)
		if len(targets) == 0 {
			return
		}

		conjuncts := splitConjuncts(s.Where)
		var kept []ast.Expr
		for _, conj := range conjuncts {
			slot := singleTarget(conj, targets)
			if slot == nil || !pushInto(slot, conj) {
				kept = append(kept, conj)
				continue
			}
			changed = true
		}
		if len(kept) != len(conjuncts) {
			s.Where = joinConjuncts(kept)
		}
	})
	return stmt, changed, nil
}

// pushWhereIntoSubquery moves pushable conjuncts of a single-table query
// into its one sub-query.
func pushWhereIntoSubquery(s *ast.Select, sub *ast.SubqueryRef) bool {
	changed := false
	conjuncts := splitConjuncts(s.Where)
	var kept []ast.Expr
	for _, conj := range conjuncts {
		if referencesOnly(conj, tableExprName(sub)) && pushIntoSubquery(sub, conj) {
			changed = true
			continue
		}
		kept = append(kept, conj)
	}
	if changed {
		s.Where = joinConjuncts(kept)
	}
	return changed
}

// slotted pairs a table expression with the settable location holding it, so
// a rule can replace the node in its parent.
type slotted struct {
	slot *ast.TableExpr
}

// pushdownTargets collects the settable locations of every named table
// expression predicates may move to. Sides under the nullable half of an
// outer join are excluded.
func pushdownTargets(root *ast.TableExpr) map[string]slotted {
	targets := map[string]slotted{}
	var walk func(slot *ast.TableExpr, allowed bool)
	walk = func(slot *ast.TableExpr, allowed bool) {
		switch t := (*slot).(type) {
		case *ast.Join:
			leftAllowed, rightAllowed := allowed, allowed
			switch t.Type {
			case ast.LeftJoin:
				rightAllowed = false
			case ast.RightJoin:
				leftAllowed = false
			case ast.FullJoin:
				leftAllowed, rightAllowed = false, false
			}
			walk(&t.Left, leftAllowed)
			walk(&t.Right, rightAllowed)
		default:
			if allowed {
				if name := tableExprName(t); name != "" {
					targets[strings.ToLower(name)] = slotted{slot: slot}
				}
			}
		}
	}
	walk(root, true)
	return targets
}

// singleTarget returns the one target every column reference of the conjunct
// belongs to, or nil. Unqualified references disqualify the conjunct: without
// schema binding they could belong to any side.
func singleTarget(conj ast.Expr, targets map[string]slotted) *slotted {
	refs := exprReferences(conj)
	if len(refs) != 1 || refs[""] {
		return nil
	}
	if containsSubquery(conj) {
		return nil
	}
	for name := range refs {
		if t, ok := targets[strings.ToLower(name)]; ok {
			return &t
		}
	}
	return nil
}

// referencesOnly reports whether every column reference of the conjunct is
// qualified with the given name.
func referencesOnly(conj ast.Expr, name string) bool {
	if name == "" || containsSubquery(conj) {
		return false
	}
	refs := exprReferences(conj)
	return len(refs) == 1 && hasRefFold(refs, name)
}

func hasRefFold(refs map[string]bool, name string) bool {
	for r := range refs {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}

// containsSubquery reports whether the expression contains a sub-query,
// which sees a different scope and must not move.
func containsSubquery(e ast.Expr) bool {
	found := false
	ast.Inspect(e, func(n ast.Node) bool {
		if _, ok := n.(*ast.Select); ok {
			found = true
			return false
		}
		return true
	})
	return found
}

// pushInto attaches the conjunct to the target slot, reporting success. A
// table reference is wrapped into a sub-query carrying the predicate; an
// existing sub-query receives the predicate into its WHERE when its
// projection is a simple pass-through.
func pushInto(target *slotted, conj ast.Expr) bool {
	switch t := (*target.slot).(type) {
	case *ast.TableRef:
		name := tableExprName(t)
		inner := &ast.Select{
			Projection: []ast.SelectItem{{Expr: &ast.Star{Position: t.Position}}},
			From:       t,
			Where:      conj,
		}
		inner.Position = t.Position
		*target.slot = &ast.SubqueryRef{Query: inner, Alias: name, Position: t.Position}
		return true
	case *ast.SubqueryRef:
		return pushIntoSubquery(t, conj)
	}
	return false
}

func pushIntoSubquery(t *ast.SubqueryRef, conj ast.Expr) bool {
	q := t.Query
	if q.Distinct || len(q.GroupBy) > 0 || q.Having != nil || q.Limit != nil {
		return false
	}
	aliases, ok := passthroughAliases(q)
	if !ok {
		return false
	}
	rewritten := rebindConjunct(conj, aliases)
	if q.Where == nil {
		q.Where = rewritten
	} else {
		q.Where = &ast.BinaryExpr{Op: "AND", Left: q.Where, Right: rewritten, Position: rewritten.Pos()}
	}
	return true
}

// passthroughAliases maps the output names of a simple projection to the
// underlying expressions. It fails when any item is computed, since a pushed
// predicate could then reference a value the source doesn't store.
func passthroughAliases(q *ast.Select) (map[string]ast.Expr, bool) {
	aliases := map[string]ast.Expr{}
	for _, item := range q.Projection {
		switch e := item.Expr.(type) {
		case *ast.Star:
			// Star passes everything through unchanged.
		case *ast.Identifier:
			name := item.Alias
			if name == "" {
				name = e.Name()
			}
			aliases[strings.ToLower(name)] = e
		default:
			return nil, false
		}
	}
	return aliases, true
}

// rebindConjunct strips the sub-query qualifier from the conjunct's column
// references and maps output names back to the underlying columns.
func rebindConjunct(conj ast.Expr, aliases map[string]ast.Expr) ast.Expr {
	return rewriteExpr(cloneExpr(conj), func(e ast.Expr) ast.Expr {
		id, isID := e.(*ast.Identifier)
		if !isID {
			return e
		}
		last := id.Parts[len(id.Parts)-1]
		if under, found := aliases[strings.ToLower(last.Name)]; found {
			return cloneExpr(under)
		}
		return &ast.Identifier{Parts: []ast.IdentPart{last}, Position: id.Position}
	})
}

// forEachSelect visits every SELECT of the statement, sub-queries included.
func forEachSelect(stmt ast.Statement, f func(*ast.Select)) {
	ast.Inspect(stmt, func(n ast.Node) bool {
		if s, ok := n.(*ast.Select); ok {
			f(s)
		}
		return true
	})
}
