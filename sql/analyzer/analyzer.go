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

// Package analyzer implements the rule-based optimizer. Rules are pure
// rewrites of the syntax tree, applied to a fixed point.
package analyzer

import (
	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/ast"
)

// maxAnalysisIterations is the loop guard of the fixed-point rule engine.
const maxAnalysisIterations = 64

// Rule is one named rewrite. Apply returns the rewritten tree and whether
// anything changed; a rule that reports no change is skipped on the next
// pass.
type Rule struct {
	Name  string
	Apply func(ctx *sql.Context, a *Analyzer, stmt ast.Statement) (ast.Statement, bool, error)
}

// DefaultRules are the rules of the default analyzer, in application order.
var DefaultRules = []Rule{
	{"fold_constants", foldConstants},
	{"pushdown_predicates", pushdownPredicates},
	{"prune_projections", pruneProjections},
	{"pushdown_limits", pushdownLimits},
	{"reorder_joins", reorderJoins},
}

// Analyzer applies the rules to a fixed point, with a bounded number of
// passes.
type Analyzer struct {
	Rules   []Rule
	Catalog *sql.Catalog
	// CostBased enables cost-based join-order selection downstream in the
	// physical planner; the rule-based rewrites always run.
	CostBased bool
}

// NewDefault creates an analyzer with the default rule set over the given
// catalog.
func NewDefault(catalog *sql.Catalog) *Analyzer {
	return &Analyzer{Rules: DefaultRules, Catalog: catalog}
}

// Analyze rewrites the statement with every rule until no rule changes the
// tree, or the iteration guard trips.
func (a *Analyzer) Analyze(ctx *sql.Context, stmt ast.Statement) (ast.Statement, error) {
	skip := make(map[string]bool, len(a.Rules))

	for i := 0; i < maxAnalysisIterations; i++ {
		changedAny := false
		for _, rule := range a.Rules {
			if skip[rule.Name] {
				continue
			}

			ns, changed, err := rule.Apply(ctx, a, stmt)
			if err != nil {
				return nil, err
			}
			if changed {
				ctx.Logger().Debugf("analyzer rule %s rewrote the tree", rule.Name)
				stmt = ns
				changedAny = true
				// A change can re-enable previously settled rules.
				for name := range skip {
					delete(skip, name)
				}
			} else {
				skip[rule.Name] = true
			}
		}
		if !changedAny {
			return stmt, nil
		}
	}

	ctx.Logger().Warnf("analyzer reached %d iterations without a fixed point", maxAnalysisIterations)
	return stmt, nil
}

// estimatedRows returns the catalog's row estimate for a table name, or the
// given default when unknown.
func (a *Analyzer) estimatedRows(name *ast.Identifier, def float64) float64 {
	if a.Catalog == nil {
		return def
	}
	quoted := name.Parts[len(name.Parts)-1].Quoted
	var db, table string
	switch len(name.Parts) {
	case 1:
		table = name.Parts[0].Name
	case 2:
		db, table = name.Parts[0].Name, name.Parts[1].Name
	default:
		return def
	}
	_, t, err := a.Catalog.Table(db, table, quoted)
	if err != nil || t.RowCount <= 0 {
		return def
	}
	return float64(t.RowCount)
}
