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

import "fmt"

// Nameable is something that has a name.
type Nameable interface {
	// Name returns the name.
	Name() string
}

// Resolvable is something that can be resolved or not.
type Resolvable interface {
	// Resolved returns whether the node is resolved.
	Resolved() bool
}

// Expression is a combination of one or more SQL expressions that can be
// evaluated against a row.
type Expression interface {
	Resolvable
	fmt.Stringer
	// Type returns the expression type.
	Type() Type
	// IsNullable returns whether the expression can be null.
	IsNullable() bool
	// Eval evaluates the given row and returns a result.
	Eval(ctx *Context, row Row) (interface{}, error)
	// Children returns the children expressions of this expression.
	Children() []Expression
	// WithChildren returns a copy of the expression with children replaced.
	// It must return an error if the number of children is wrong.
	WithChildren(children ...Expression) (Expression, error)
}

// Aggregation implements an aggregation expression, where an aggregation
// buffer is created for each grouping key and updated for each row.
type Aggregation interface {
	Expression
	// NewBuffer creates a new aggregation buffer for this aggregation.
	NewBuffer() Row
	// Update updates the given buffer with the given row.
	Update(ctx *Context, buffer, row Row) error
	// Eval the given buffer. Note the signature is Expression's Eval with
	// the buffer standing in for the row.
}

// Node is a node of the execution plan tree.
type Node interface {
	Resolvable
	fmt.Stringer
	// Schema of the node.
	Schema() Schema
	// Children nodes.
	Children() []Node
	// WithChildren returns a copy of the node with children replaced. It
	// must return an error if the number of children is wrong.
	WithChildren(children ...Node) (Node, error)
	// RowIter produces a row iterator from this node. The iterator drives
	// the node and, transitively, its children (pull model).
	RowIter(ctx *Context) (RowIter, error)
}

// Expressioner is a node that contains expressions.
type Expressioner interface {
	Node
	// Expressions returns the list of expressions contained by the node.
	Expressions() []Expression
	// WithExpressions returns a copy of the node with expressions replaced.
	// It must return an error if the number of expressions is wrong.
	WithExpressions(exprs ...Expression) (Node, error)
}

// SourcedNode is a node whose leaves are bound to data sources. It reports
// the set of distinct data source names under it, used by the physical
// planner to decide push-down.
type SourcedNode interface {
	Node
	// DataSources returns the configured names of every data source
	// referenced under this node.
	DataSources() []string
}

// SourceConn is a live connection to one data source, able to run pushed-down
// SQL. A connection is owned by a single operator tree and must never be
// shared between concurrently executing queries.
type SourceConn interface {
	// Query runs the given SQL at the source and exposes the result as a
	// lazy row stream. The returned schema comes from the source's result
	// metadata.
	Query(ctx *Context, query string) (Schema, RowIter, error)
	// Exec runs DML at the source and returns the number of affected rows.
	Exec(ctx *Context, query string) (int64, error)
	// Close releases the connection.
	Close() error
}

// ConnOpener opens a connection to the named data source on demand.
type ConnOpener func(ctx *Context, sourceName string) (SourceConn, error)

// NillaryWithChildren is a common implementation of WithChildren for nodes
// with no children.
func NillaryWithChildren(node Node, children ...Node) (Node, error) {
	if len(children) != 0 {
		return nil, ErrInvalidChildrenNumber.New(node, len(children), 0)
	}
	return node, nil
}
