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

package expression

import "github.com/meshql/meshql/sql"

// Inspect traverses the expression tree in depth-first order calling f on
// every expression. If f returns false for an expression, its children are
// not visited.
func Inspect(e sql.Expression, f func(sql.Expression) bool) {
	if e == nil || !f(e) {
		return
	}
	for _, child := range e.Children() {
		Inspect(child, f)
	}
}

// TransformUp applies f to every expression of the tree bottom-up, returning
// the rebuilt tree.
func TransformUp(e sql.Expression, f func(sql.Expression) (sql.Expression, error)) (sql.Expression, error) {
	children := e.Children()
	if len(children) > 0 {
		newChildren := make([]sql.Expression, len(children))
		changed := false
		for i, child := range children {
			nc, err := TransformUp(child, f)
			if err != nil {
				return nil, err
			}
			if nc != child {
				changed = true
			}
			newChildren[i] = nc
		}
		if changed {
			var err error
			e, err = e.WithChildren(newChildren...)
			if err != nil {
				return nil, err
			}
		}
	}
	return f(e)
}
