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

package plan

import (
	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/expression"
)

// TransformUp applies f to every node of the tree bottom-up, returning the
// rebuilt tree.
func TransformUp(node sql.Node, f func(sql.Node) (sql.Node, error)) (sql.Node, error) {
	children := node.Children()
	if len(children) > 0 {
		newChildren := make([]sql.Node, len(children))
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
			node, err = node.WithChildren(newChildren...)
			if err != nil {
				return nil, err
			}
		}
	}
	return f(node)
}

// TransformExpressionsUp applies f to every expression of every node of the
// tree.
func TransformExpressionsUp(node sql.Node, f func(sql.Expression) (sql.Expression, error)) (sql.Node, error) {
	return TransformUp(node, func(n sql.Node) (sql.Node, error) {
		e, ok := n.(sql.Expressioner)
		if !ok {
			return n, nil
		}

		exprs := e.Expressions()
		newExprs := make([]sql.Expression, len(exprs))
		changed := false
		for i, expr := range exprs {
			ne, err := expression.TransformUp(expr, f)
			if err != nil {
				return nil, err
			}
			if ne != expr {
				changed = true
			}
			newExprs[i] = ne
		}
		if !changed {
			return n, nil
		}
		return e.WithExpressions(newExprs...)
	})
}

// Inspect traverses the plan tree in depth-first order calling f on every
// node. If f returns false for a node, its children are skipped.
func Inspect(node sql.Node, f func(sql.Node) bool) {
	if node == nil || !f(node) {
		return
	}
	for _, child := range node.Children() {
		Inspect(child, f)
	}
}

// InspectExpressions calls f on every expression of every node of the tree.
func InspectExpressions(node sql.Node, f func(sql.Expression) bool) {
	Inspect(node, func(n sql.Node) bool {
		if e, ok := n.(sql.Expressioner); ok {
			for _, expr := range e.Expressions() {
				expression.Inspect(expr, f)
			}
		}
		return true
	})
}
