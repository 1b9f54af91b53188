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

package ast

// Visit is the directive a visitor returns to steer traversal.
type Visit byte

const (
	// Continue descends into the node's children.
	Continue Visit = iota
	// SkipChildren visits the node but not its children.
	SkipChildren
	// Stop aborts the whole traversal.
	Stop
)

// Visitor receives every node of a traversal. Enter is called before the
// children, Leave after them.
type Visitor interface {
	Enter(n Node) Visit
	Leave(n Node) Visit
}

// Walk traverses the tree rooted at n in depth-first order, honoring the
// visitor's directives. It reports whether the traversal ran to completion
// (false means a visitor returned Stop).
func Walk(v Visitor, n Node) bool {
	if n == nil {
		return true
	}

	switch v.Enter(n) {
	case Stop:
		return false
	case SkipChildren:
		return v.Leave(n) != Stop
	}

	for _, child := range n.Children() {
		if !Walk(v, child) {
			return false
		}
	}

	return v.Leave(n) != Stop
}

// inspector adapts a function to the Visitor interface.
type inspector func(Node) bool

func (f inspector) Enter(n Node) Visit {
	if f(n) {
		return Continue
	}
	return SkipChildren
}

func (f inspector) Leave(Node) Visit { return Continue }

// Inspect traverses the tree calling f on every node. If f returns false the
// children of the node are skipped.
func Inspect(n Node, f func(Node) bool) {
	Walk(inspector(f), n)
}
