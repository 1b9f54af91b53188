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

// pushdownLimits copies an outer fetch bound into a single sub-query source,
// so the source stops producing rows the outer query will never emit. The
// outer limit stays in place; the inner bound is offset+count since the
// outer offset still skips locally.
func pushdownLimits(ctx *sql.Context, a *Analyzer, stmt ast.Statement) (ast.Statement, bool, error) {
	changed := false
	forEachSelect(stmt, func(s *ast.Select) {
		if s.Limit == nil || s.Limit.Count < 0 {
			return
		}
		// Anything that regroups, reorders or filters locally needs every
		// input row; the bound cannot move below it.
		if s.Where != nil || len(s.GroupBy) > 0 || s.Having != nil ||
			len(s.OrderBy) > 0 || s.Distinct {
			return
		}

		sub, ok := s.From.(*ast.SubqueryRef)
		if !ok {
			return
		}
		q := sub.Query
		if q.Limit != nil || q.Distinct || len(q.GroupBy) > 0 {
			return
		}

		q.Limit = &ast.Limit{Count: s.Limit.Count + s.Limit.Offset}
		changed = true
	})
	return stmt, changed, nil
}
