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

package sql

import (
	"fmt"
	"strings"

	"gopkg.in/src-d/go-errors.v1"
)

// TreePrinter renders plan nodes as an indented tree for EXPLAIN output and
// debug logs.
type TreePrinter struct {
	buf          strings.Builder
	nodeWritten  bool
	childrenDone bool
}

var (
	// ErrNodeAlreadyWritten is returned when the node of the tree was
	// already written.
	ErrNodeAlreadyWritten = errors.NewKind("treeprinter: node already written")
	// ErrNodeNotWritten is returned when the children are written before
	// the node.
	ErrNodeNotWritten = errors.NewKind("treeprinter: node must be written before the children")
	// ErrChildrenAlreadyWritten is returned when the children of the tree
	// were already written.
	ErrChildrenAlreadyWritten = errors.NewKind("treeprinter: children already written")
)

// NewTreePrinter creates a new tree printer.
func NewTreePrinter() *TreePrinter {
	return &TreePrinter{}
}

// WriteNode writes the top node of the tree.
func (p *TreePrinter) WriteNode(format string, args ...interface{}) error {
	if p.nodeWritten {
		return ErrNodeAlreadyWritten.New()
	}
	p.buf.WriteString(fmt.Sprintf(format, args...))
	p.buf.WriteRune('\n')
	p.nodeWritten = true
	return nil
}

// WriteChildren writes the children of the node, which may be subtrees
// themselves.
func (p *TreePrinter) WriteChildren(children ...string) error {
	if !p.nodeWritten {
		return ErrNodeNotWritten.New()
	}
	if p.childrenDone {
		return ErrChildrenAlreadyWritten.New()
	}

	p.childrenDone = true
	for i, child := range children {
		last := i+1 == len(children)
		lines := strings.Split(strings.TrimRight(child, "\n"), "\n")
		for j, line := range lines {
			switch {
			case j == 0 && last:
				p.buf.WriteString(" └─ ")
			case j == 0:
				p.buf.WriteString(" ├─ ")
			case last:
				p.buf.WriteString("    ")
			default:
				p.buf.WriteString(" │  ")
			}
			p.buf.WriteString(line)
			p.buf.WriteRune('\n')
		}
	}
	return nil
}

// String returns the rendered tree.
func (p *TreePrinter) String() string {
	return p.buf.String()
}
