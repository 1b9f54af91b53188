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

// statement carries what every statement shares: its position and any
// comment trivia that preceded it.
type statement struct {
	Position Pos
	Comments []Comment
}

func (s *statement) Pos() Pos       { return s.Position }
func (s *statement) statementNode() {}

// SetComments attaches leading comment trivia to the statement.
func (s *statement) SetComments(comments []Comment) { s.Comments = comments }

// LeadingComments returns the comment trivia preceding the statement.
func (s *statement) LeadingComments() []Comment { return s.Comments }

// SelectItem is one ordered projection item: an expression with an optional
// alias.
type SelectItem struct {
	Expr  Expr
	Alias string
}

// SortKey is one ORDER BY key.
type SortKey struct {
	Expr       Expr
	Descending bool
}

// JoinType enumerates the join variants.
type JoinType byte

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullJoin
	CrossJoin
)

func (t JoinType) String() string {
	switch t {
	case LeftJoin:
		return "LEFT JOIN"
	case RightJoin:
		return "RIGHT JOIN"
	case FullJoin:
		return "FULL JOIN"
	case CrossJoin:
		return "CROSS JOIN"
	default:
		return "INNER JOIN"
	}
}

// TableExpr is anything that can appear in a FROM clause.
type TableExpr interface {
	Node
	tableExprNode()
}

// TableRef is a named table with an optional alias.
type TableRef struct {
	Name     *Identifier
	Alias    string
	Position Pos
}

func (t *TableRef) Pos() Pos         { return t.Position }
func (t *TableRef) Children() []Node { return []Node{t.Name} }
func (t *TableRef) tableExprNode()   {}

// SubqueryRef is a parenthesized query in a FROM clause.
type SubqueryRef struct {
	Query    *Select
	Alias    string
	Position Pos
}

func (s *SubqueryRef) Pos() Pos         { return s.Position }
func (s *SubqueryRef) Children() []Node { return []Node{s.Query} }
func (s *SubqueryRef) tableExprNode()   {}

// Join combines two table expressions. On is nil for CROSS JOIN.
type Join struct {
	Type     JoinType
	Left     TableExpr
	Right    TableExpr
	On       Expr
	Position Pos
}

func (j *Join) Pos() Pos { return j.Position }
func (j *Join) Children() []Node {
	children := []Node{j.Left, j.Right}
	if j.On != nil {
		children = append(children, j.On)
	}
	return children
}
func (j *Join) tableExprNode() {}

// Limit is a fetch/offset pair. Count and Offset are non-negative; -1 for
// Count means no limit was given while an offset was.
type Limit struct {
	Count  int64
	Offset int64
}

// Select is a query statement.
type Select struct {
	statement
	Distinct   bool
	Projection []SelectItem
	From       TableExpr
	Where      Expr
	GroupBy    []Expr
	Having     Expr
	OrderBy    []SortKey
	Limit      *Limit
}

func (s *Select) Children() []Node {
	var children []Node
	for _, item := range s.Projection {
		children = append(children, item.Expr)
	}
	if s.From != nil {
		children = append(children, s.From)
	}
	if s.Where != nil {
		children = append(children, s.Where)
	}
	for _, g := range s.GroupBy {
		children = append(children, g)
	}
	if s.Having != nil {
		children = append(children, s.Having)
	}
	for _, k := range s.OrderBy {
		children = append(children, k.Expr)
	}
	if children == nil {
		children = []Node{}
	}
	return children
}

func (s *Select) exprNode() {}

// SetOpType enumerates set operations over queries.
type SetOpType byte

const (
	Union SetOpType = iota
	UnionAll
	Intersect
	Except
)

func (t SetOpType) String() string {
	switch t {
	case UnionAll:
		return "UNION ALL"
	case Intersect:
		return "INTERSECT"
	case Except:
		return "EXCEPT"
	default:
		return "UNION"
	}
}

// SetOp combines two queries with UNION, INTERSECT or EXCEPT.
type SetOp struct {
	statement
	Type  SetOpType
	Left  Statement
	Right Statement
}

func (s *SetOp) Children() []Node { return []Node{s.Left, s.Right} }

// Values is a literal row constructor statement.
type Values struct {
	statement
	Rows [][]Expr
}

func (v *Values) Children() []Node {
	children := []Node{}
	for _, row := range v.Rows {
		for _, e := range row {
			children = append(children, e)
		}
	}
	return children
}

// Insert is single-source DML pass-through.
type Insert struct {
	statement
	Table   *Identifier
	Columns []string
	Source  Statement
}

func (i *Insert) Children() []Node { return []Node{i.Table, i.Source} }

// Assignment is one SET column = expr pair of an UPDATE.
type Assignment struct {
	Column string
	Expr   Expr
}

// Update is single-source DML pass-through.
type Update struct {
	statement
	Table *Identifier
	Set   []Assignment
	Where Expr
}

func (u *Update) Children() []Node {
	children := []Node{u.Table}
	for _, a := range u.Set {
		children = append(children, a.Expr)
	}
	if u.Where != nil {
		children = append(children, u.Where)
	}
	return children
}

// Delete is single-source DML pass-through.
type Delete struct {
	statement
	Table *Identifier
	Where Expr
}

func (d *Delete) Children() []Node {
	children := []Node{d.Table}
	if d.Where != nil {
		children = append(children, d.Where)
	}
	return children
}

// ShowTables is the extended statement
// SHOW TABLES [(FROM|IN) ident] [LIKE pattern] [WHERE expr].
type ShowTables struct {
	statement
	Db          string
	LikePattern string
	hasLike     bool
	Where       Expr
}

func (s *ShowTables) Children() []Node {
	if s.Where != nil {
		return []Node{s.Where}
	}
	return []Node{}
}

// SetLike records the LIKE clause content.
func (s *ShowTables) SetLike(pattern string) {
	s.LikePattern = pattern
	s.hasLike = true
}

// HasLike reports whether a LIKE clause was present.
func (s *ShowTables) HasLike() bool { return s.hasLike }

// ShowSchemas is the extended statement SHOW (DATABASES|SCHEMAS) [LIKE pat].
type ShowSchemas struct {
	statement
	// Databases is true when the statement was spelled SHOW DATABASES.
	Databases   bool
	LikePattern string
	hasLike     bool
}

func (s *ShowSchemas) Children() []Node { return []Node{} }

// SetLike records the LIKE clause content.
func (s *ShowSchemas) SetLike(pattern string) {
	s.LikePattern = pattern
	s.hasLike = true
}

// HasLike reports whether a LIKE clause was present.
func (s *ShowSchemas) HasLike() bool { return s.hasLike }

// ShowColumns is the extended statement SHOW COLUMNS FROM tbl.
type ShowColumns struct {
	statement
	Table *Identifier
}

func (s *ShowColumns) Children() []Node { return []Node{s.Table} }

// Use switches the session's current schema.
type Use struct {
	statement
	Schema string
}

func (u *Use) Children() []Node { return []Node{} }

// Explain renders the execution plan of the wrapped statement.
type Explain struct {
	statement
	Stmt Statement
}

func (e *Explain) Children() []Node { return []Node{e.Stmt} }
