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

// Package plan implements the execution operators of the engine, each a
// pull-based row iterator over its children.
package plan

import (
	"github.com/meshql/meshql/sql"
)

// UnaryNode is a node that has one child.
type UnaryNode struct {
	Child sql.Node
}

// Schema implements the Node interface.
func (p *UnaryNode) Schema() sql.Schema { return p.Child.Schema() }

// Resolved implements the Resolvable interface.
func (p *UnaryNode) Resolved() bool { return p.Child.Resolved() }

// Children implements the Node interface.
func (p *UnaryNode) Children() []sql.Node { return []sql.Node{p.Child} }

// BinaryNode is a node with two children.
type BinaryNode struct {
	Left  sql.Node
	Right sql.Node
}

// Resolved implements the Resolvable interface.
func (p *BinaryNode) Resolved() bool {
	return p.Left.Resolved() && p.Right.Resolved()
}

// Children implements the Node interface.
func (p *BinaryNode) Children() []sql.Node { return []sql.Node{p.Left, p.Right} }

// nodeDataSources collects the distinct data source names under a node.
func nodeDataSources(n sql.Node) []string {
	seen := map[string]bool{}
	var sources []string
	var walk func(sql.Node)
	walk = func(n sql.Node) {
		if s, ok := n.(interface{ DataSource() string }); ok {
			name := s.DataSource()
			if name != "" && !seen[name] {
				seen[name] = true
				sources = append(sources, name)
			}
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(n)
	return sources
}
