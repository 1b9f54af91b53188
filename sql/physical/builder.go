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

package physical

import (
	"fmt"
	"strings"

	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/ast"
	"github.com/meshql/meshql/sql/cost"
	"github.com/meshql/meshql/sql/dialect"
	"github.com/meshql/meshql/sql/expression"
	"github.com/meshql/meshql/sql/plan"
)

// Builder lowers an optimized statement into the physical plan. A sub-tree
// is pushed to a source iff all its leaves live at that one source, the
// source's dialect can express it, and the source is healthy.
type Builder struct {
	Catalog *sql.Catalog
	Opener  sql.ConnOpener
	// Dialects resolves the SQL dialect of a data source.
	Dialects func(source string) dialect.ID
	// Healthy reports whether a source is usable. nil means always.
	Healthy func(source string) bool
	// IntermediateLimit caps materialized intermediate results.
	IntermediateLimit int
	// CostBased enables join-order selection by enumerated cost instead of
	// the heuristic order.
	CostBased bool
}

// Build lowers the statement. It returns the executable root operator and
// the stage DAG describing it.
func (b *Builder) Build(ctx *sql.Context, stmt ast.Statement, queryID string) (sql.Node, *ExecutionPlan, error) {
	p := newExecutionPlan(queryID, b.limit())

	node, err := b.buildStatement(ctx, stmt, p)
	if err != nil {
		return nil, nil, err
	}

	root := &Stage{LocalOps: localOps(node)}
	var total cost.Cost
	for _, s := range p.Stages {
		total = total.Plus(s.EstimatedCost)
	}
	root.EstimatedCost = cost.LocalScan(0)
	p.addStage(root)
	p.setRoot(root)
	p.EstimatedCost = total

	return node, p, nil
}

func (b *Builder) limit() int {
	if b.IntermediateLimit <= 0 {
		return plan.MaxIntermediateRows
	}
	return b.IntermediateLimit
}

func (b *Builder) healthy(source string) bool {
	return b.Healthy == nil || b.Healthy(source)
}

func (b *Builder) dialectOf(source string) dialect.ID {
	if b.Dialects == nil {
		return dialect.ANSI
	}
	return b.Dialects(source)
}

func (b *Builder) buildStatement(ctx *sql.Context, stmt ast.Statement, p *ExecutionPlan) (sql.Node, error) {
	switch s := stmt.(type) {
	case *ast.Select:
		return b.buildQuery(ctx, s, p)
	case *ast.SetOp:
		return b.buildSetOp(ctx, s, p)
	case *ast.Values:
		return b.buildValues(s)
	case *ast.Insert, *ast.Update, *ast.Delete:
		return b.buildDML(ctx, stmt, p)
	case *ast.ShowTables:
		return b.buildShowTables(s)
	case *ast.ShowSchemas:
		node := plan.NewShowSchemas(b.Catalog)
		node.Pattern = s.LikePattern
		node.HasPattern = s.HasLike()
		return node, nil
	case *ast.ShowColumns:
		db, table, exact := splitTableName(s.Table)
		return plan.NewShowColumns(b.Catalog, db, table, exact), nil
	case *ast.Use:
		return plan.NewUse(b.Catalog, s.Schema), nil
	case *ast.Explain:
		child, err := b.buildStatement(ctx, s.Stmt, p)
		if err != nil {
			return nil, err
		}
		return plan.NewDescribe(child), nil
	default:
		return nil, sql.ErrPlan.New(fmt.Sprintf("no candidate plan for %T", stmt))
	}
}

func (b *Builder) buildShowTables(s *ast.ShowTables) (sql.Node, error) {
	node := plan.NewShowTables(b.Catalog, s.Db)
	node.Pattern = s.LikePattern
	node.HasPattern = s.HasLike()
	if s.Where != nil {
		sc := &scope{}
		sc.add("", &sql.Column{Name: "table_name", Type: sql.Text})
		filter, err := convertExpr(s.Where, sc, false)
		if err != nil {
			return nil, err
		}
		node.Filter = filter
	}
	return node, nil
}

func (b *Builder) buildValues(v *ast.Values) (sql.Node, error) {
	tuples := make([][]sql.Expression, len(v.Rows))
	for i, row := range v.Rows {
		tuple := make([]sql.Expression, len(row))
		for j, e := range row {
			conv, err := convertExpr(e, &scope{}, false)
			if err != nil {
				return nil, err
			}
			tuple[j] = conv
		}
		tuples[i] = tuple
	}
	return plan.NewValues(tuples), nil
}

// buildDML ships the statement to its single source unchanged.
func (b *Builder) buildDML(ctx *sql.Context, stmt ast.Statement, p *ExecutionPlan) (sql.Node, error) {
	var table *ast.Identifier
	switch s := stmt.(type) {
	case *ast.Insert:
		table = s.Table
	case *ast.Update:
		table = s.Table
	case *ast.Delete:
		table = s.Table
	}

	db, name, exact := splitTableName(table)
	d, _, err := b.Catalog.Table(db, name, exact)
	if err != nil {
		return nil, err
	}
	source := d.DataSourceName
	if !b.healthy(source) {
		return nil, sql.NewSourceError(source, false, fmt.Errorf("data source is not available"))
	}

	pushed, err := dialect.Unparse(stmt, b.dialectOf(source))
	if err != nil {
		return nil, err
	}
	p.addStage(&Stage{
		DataSourceID:  source,
		PushedSQL:     pushed,
		EstimatedRows: 1,
		EstimatedCost: cost.Scan(1),
	})
	return plan.NewPassThrough(source, pushed, b.Opener), nil
}

func (b *Builder) buildSetOp(ctx *sql.Context, s *ast.SetOp, p *ExecutionPlan) (sql.Node, error) {
	left, err := b.buildStatement(ctx, s.Left, p)
	if err != nil {
		return nil, err
	}
	right, err := b.buildStatement(ctx, s.Right, p)
	if err != nil {
		return nil, err
	}
	if len(left.Schema()) != len(right.Schema()) {
		return nil, sql.ErrSemantic.New("set operands have different column counts")
	}

	switch s.Type {
	case ast.Union:
		return plan.NewDistinct(plan.NewUnion(left, right, false)), nil
	case ast.UnionAll:
		return plan.NewUnion(left, right, false), nil
	case ast.Intersect:
		return plan.NewSetOp(plan.SetOpIntersect, left, right), nil
	default:
		return plan.NewSetOp(plan.SetOpExcept, left, right), nil
	}
}

// buildQuery lowers one SELECT: whole-statement push-down when every leaf
// lives at one healthy source whose dialect expresses the statement, local
// execution over per-leaf scans otherwise.
func (b *Builder) buildQuery(ctx *sql.Context, s *ast.Select, p *ExecutionPlan) (sql.Node, error) {
	if s.From != nil {
		sources, err := b.statementSources(s)
		if err != nil {
			return nil, err
		}
		if len(sources) == 1 && b.healthy(sources[0]) {
			d := b.dialectOf(sources[0])
			if len(dialect.Check(s, d)) == 0 {
				return b.pushWholeSelect(s, sources[0], d, p)
			}
		}
	}

	node, _, _, err := b.buildLocalSelect(ctx, s, p)
	return node, err
}

// statementSources resolves the set of data sources referenced by the query.
func (b *Builder) statementSources(s *ast.Select) ([]string, error) {
	seen := map[string]bool{}
	var sources []string
	var walkErr error
	ast.Inspect(s, func(n ast.Node) bool {
		t, ok := n.(*ast.TableRef)
		if !ok || walkErr != nil {
			return walkErr == nil
		}
		db, name, exact := splitTableName(t.Name)
		d, _, err := b.Catalog.Table(db, name, exact)
		if err != nil {
			walkErr = err
			return false
		}
		if !seen[d.DataSourceName] {
			seen[d.DataSourceName] = true
			sources = append(sources, d.DataSourceName)
		}
		return true
	})
	return sources, walkErr
}

// pushWholeSelect emits the entire statement as one pushed stage. The result
// streams straight to the consumer, so the intermediate cap does not apply.
func (b *Builder) pushWholeSelect(s *ast.Select, source string, d dialect.ID, p *ExecutionPlan) (sql.Node, error) {
	pushed, err := dialect.Unparse(s, d)
	if err != nil {
		return nil, err
	}

	schema, err := b.selectSchema(s)
	if err != nil {
		return nil, err
	}

	rows := b.estimateSelectRows(s)
	p.addStage(&Stage{
		DataSourceID:  source,
		PushedSQL:     pushed,
		EstimatedRows: rows,
		EstimatedCost: cost.Scan(rows),
	})
	return plan.NewTableScan(source, pushed, schema, b.Opener), nil
}

// estimateSelectRows is a coarse output estimate used for stage accounting.
func (b *Builder) estimateSelectRows(s *ast.Select) float64 {
	if s.Limit != nil && s.Limit.Count >= 0 {
		return float64(s.Limit.Count)
	}
	var rows float64
	ast.Inspect(s, func(n ast.Node) bool {
		if t, ok := n.(*ast.TableRef); ok {
			db, name, exact := splitTableName(t.Name)
			if _, tbl, err := b.Catalog.Table(db, name, exact); err == nil && tbl.RowCount > 0 {
				if float64(tbl.RowCount) > rows {
					rows = float64(tbl.RowCount)
				}
			}
		}
		return true
	})
	if rows == 0 {
		rows = 1000
	}
	if s.Where != nil {
		rows /= 2
	}
	return rows
}

// buildLocalSelect lowers a SELECT to local operators over per-leaf scans.
// It returns the root node, the scope of the FROM output, and the estimated
// input rows.
func (b *Builder) buildLocalSelect(ctx *sql.Context, s *ast.Select, p *ExecutionPlan) (sql.Node, *scope, float64, error) {
	if s.From == nil {
		// A FROM-less select evaluates its projection once.
		exprs := make([]sql.Expression, len(s.Projection))
		for i, item := range s.Projection {
			conv, err := convertExpr(item.Expr, &scope{}, false)
			if err != nil {
				return nil, nil, 0, err
			}
			exprs[i] = aliased(item, conv)
		}
		var node sql.Node = plan.NewProject(exprs, plan.NewValues([][]sql.Expression{{}}))
		node = b.applyLimit(s, node)
		return node, &scope{}, 1, nil
	}

	from := s.From
	if b.CostBased {
		from = b.costBasedOrder(from)
	}

	node, sc, rows, err := b.buildTableExpr(ctx, from, p)
	if err != nil {
		return nil, nil, 0, err
	}

	if s.Where != nil {
		if containsAggregate(s.Where) {
			return nil, nil, 0, sql.ErrSemantic.New("aggregate functions are not allowed in WHERE")
		}
		filter, err := convertExpr(s.Where, sc, false)
		if err != nil {
			return nil, nil, 0, err
		}
		node = plan.NewFilter(filter, node)
		rows /= 2
	}

	needsAgg := len(s.GroupBy) > 0 || projectionHasAggregate(s)
	if needsAgg {
		node, err = b.buildAggregation(s, sc, node)
		if err != nil {
			return nil, nil, 0, err
		}
	} else {
		node, err = b.buildProjection(s, sc, node)
		if err != nil {
			return nil, nil, 0, err
		}
		if s.Distinct {
			node = plan.NewDistinct(node)
		}
	}

	if len(s.OrderBy) > 0 {
		node, err = b.buildSort(s, sc, node)
		if err != nil {
			return nil, nil, 0, err
		}
	}

	node = b.applyLimit(s, node)
	return node, sc, rows, nil
}

func (b *Builder) applyLimit(s *ast.Select, node sql.Node) sql.Node {
	if s.Limit == nil {
		return node
	}
	return plan.NewLimit(s.Limit.Count, s.Limit.Offset, node)
}

func projectionHasAggregate(s *ast.Select) bool {
	for _, item := range s.Projection {
		if containsAggregate(item.Expr) {
			return true
		}
	}
	return s.Having != nil && containsAggregate(s.Having)
}

// buildTableExpr lowers one FROM element: scans for leaves, joins above.
func (b *Builder) buildTableExpr(ctx *sql.Context, t ast.TableExpr, p *ExecutionPlan) (sql.Node, *scope, float64, error) {
	switch t := t.(type) {
	case *ast.TableRef:
		return b.buildTableScan(t, p)

	case *ast.SubqueryRef:
		return b.buildSubquery(ctx, t, p)

	case *ast.Join:
		left, lsc, lrows, err := b.buildTableExpr(ctx, t.Left, p)
		if err != nil {
			return nil, nil, 0, err
		}
		right, rsc, rrows, err := b.buildTableExpr(ctx, t.Right, p)
		if err != nil {
			return nil, nil, 0, err
		}

		sc := &scope{}
		sc.cols = append(sc.cols, lsc.cols...)
		sc.cols = append(sc.cols, rsc.cols...)

		var cond sql.Expression
		if t.On != nil {
			cond, err = convertExpr(t.On, sc, false)
			if err != nil {
				return nil, nil, 0, err
			}
		}

		join := plan.NewJoin(joinType(t.Type), cond, left, right)
		join.BuildLeft = lrows < rrows
		join.Limiter = plan.NewResultLimiter(b.limit())

		selectivity := cost.ThetaJoinSelectivity
		if hasEquiCond(t.On) {
			selectivity = cost.EquiJoinSelectivity
		}
		outRows := lrows * rrows * selectivity
		if t.Type == ast.CrossJoin {
			outRows = lrows * rrows
		}
		return join, sc, outRows, nil

	default:
		return nil, nil, 0, sql.ErrPlan.New("unknown table expression")
	}
}

// buildTableScan pushes a bare table read to its source.
func (b *Builder) buildTableScan(t *ast.TableRef, p *ExecutionPlan) (sql.Node, *scope, float64, error) {
	db, name, exact := splitTableName(t.Name)
	d, table, err := b.Catalog.Table(db, name, exact)
	if err != nil {
		return nil, nil, 0, err
	}
	source := d.DataSourceName
	if !b.healthy(source) {
		return nil, nil, 0, sql.NewSourceError(source, false, fmt.Errorf("data source is not available"))
	}

	qualifier := t.Alias
	if qualifier == "" {
		qualifier = table.Name
	}

	// Rebuild a bare SELECT * in the source dialect rather than echoing the
	// reference, so quoting always fits the target.
	sel := &ast.Select{
		Projection: []ast.SelectItem{{Expr: &ast.Star{}}},
		From:       &ast.TableRef{Name: t.Name},
	}
	pushed, err := dialect.Unparse(sel, b.dialectOf(source))
	if err != nil {
		return err2(err)
	}

	sc := &scope{}
	schema := make(sql.Schema, len(table.Columns))
	for i, col := range table.Columns {
		nc := *col
		nc.Source = qualifier
		schema[i] = &nc
		sc.add(qualifier, &nc)
	}

	rows := float64(table.RowCount)
	if rows <= 0 {
		rows = 1000
	}
	p.addStage(&Stage{
		DataSourceID:  source,
		PushedSQL:     pushed,
		EstimatedRows: rows,
		EstimatedCost: cost.Scan(rows),
	})

	scan := plan.NewTableScan(source, pushed, schema, b.Opener)
	return scan, sc, rows, nil
}

// err2 adapts single-error returns to the 4-tuple signature.
func err2(err error) (sql.Node, *scope, float64, error) {
	return nil, nil, 0, err
}

// buildSubquery pushes the whole sub-query when it is single-source and
// expressible; otherwise it executes locally.
func (b *Builder) buildSubquery(ctx *sql.Context, t *ast.SubqueryRef, p *ExecutionPlan) (sql.Node, *scope, float64, error) {
	sources, err := b.statementSources(t.Query)
	if err != nil {
		return err2(err)
	}

	qualifier := t.Alias

	if len(sources) == 1 && b.healthy(sources[0]) {
		d := b.dialectOf(sources[0])
		if len(dialect.Check(t.Query, d)) == 0 {
			pushed, err := dialect.Unparse(t.Query, d)
			if err != nil {
				return err2(err)
			}
			schema, err := b.selectSchema(t.Query)
			if err != nil {
				return err2(err)
			}
			sc := &scope{}
			for i := range schema {
				nc := *schema[i]
				nc.Source = qualifier
				schema[i] = &nc
				sc.add(qualifier, &nc)
			}
			rows := b.estimateSelectRows(t.Query)
			p.addStage(&Stage{
				DataSourceID:  sources[0],
				PushedSQL:     pushed,
				EstimatedRows: rows,
				EstimatedCost: cost.Scan(rows),
			})
			return plan.NewTableScan(sources[0], pushed, schema, b.Opener), sc, rows, nil
		}
	}

	node, _, rows, err := b.buildLocalSelect(ctx, t.Query, p)
	if err != nil {
		return err2(err)
	}
	sc := &scope{}
	for _, col := range node.Schema() {
		nc := *col
		nc.Source = qualifier
		sc.add(qualifier, &nc)
	}
	return node, sc, rows, nil
}

// buildProjection expands stars and lowers the projection items.
func (b *Builder) buildProjection(s *ast.Select, sc *scope, child sql.Node) (sql.Node, error) {
	var exprs []sql.Expression
	for _, item := range s.Projection {
		switch e := item.Expr.(type) {
		case *ast.Star:
			for i, c := range sc.cols {
				if e.Table != "" && !strings.EqualFold(c.qualifier, e.Table) {
					continue
				}
				exprs = append(exprs, expression.NewGetFieldWithTable(
					i, c.col.Type, c.qualifier, c.col.Name, c.col.Nullable))
			}
		default:
			conv, err := convertExpr(item.Expr, sc, false)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, aliased(item, conv))
		}
	}
	if len(exprs) == 0 {
		return nil, sql.ErrSemantic.New("empty projection")
	}
	return plan.NewProject(exprs, child), nil
}

// aliased names a projection expression: an explicit alias wins, a bare
// column keeps its name.
func aliased(item ast.SelectItem, e sql.Expression) sql.Expression {
	if item.Alias != "" {
		return expression.NewAlias(item.Alias, e)
	}
	return e
}

// buildAggregation lowers grouping and aggregates into one GroupBy node,
// followed by the HAVING filter.
func (b *Builder) buildAggregation(s *ast.Select, sc *scope, child sql.Node) (sql.Node, error) {
	grouping := make([]sql.Expression, len(s.GroupBy))
	for i, g := range s.GroupBy {
		conv, err := convertExpr(g, sc, false)
		if err != nil {
			return nil, err
		}
		grouping[i] = conv
	}

	aggregate := make([]sql.Expression, 0, len(s.Projection))
	outputs := map[string]int{}
	for i, item := range s.Projection {
		if _, isStar := item.Expr.(*ast.Star); isStar {
			return nil, sql.ErrSemantic.New("* is not valid with GROUP BY")
		}
		conv, err := convertExpr(item.Expr, sc, true)
		if err != nil {
			return nil, err
		}
		aggregate = append(aggregate, aliased(item, conv))

		outputs[canonicalExprKey(item.Expr)] = i
		if item.Alias != "" {
			outputs[strings.ToLower(item.Alias)] = i
		}
	}

	gb := plan.NewGroupBy(aggregate, grouping, child)
	gb.Limiter = plan.NewResultLimiter(b.limit())
	var node sql.Node = gb

	if s.Having != nil {
		having, err := b.convertPostAggregate(s.Having, gb.Schema(), outputs, sc)
		if err != nil {
			return nil, err
		}
		node = plan.NewFilter(having, node)
	}
	if s.Distinct {
		node = plan.NewDistinct(node)
	}
	return node, nil
}

// convertPostAggregate lowers a HAVING expression against the aggregation
// output: aggregate calls and grouped columns resolve to output positions.
func (b *Builder) convertPostAggregate(e ast.Expr, outSchema sql.Schema, outputs map[string]int, inScope *scope) (sql.Expression, error) {
	if idx, ok := outputs[canonicalExprKey(e)]; ok {
		col := outSchema[idx]
		return expression.NewGetField(idx, col.Type, col.Name, col.Nullable), nil
	}
	if id, ok := e.(*ast.Identifier); ok && len(id.Parts) == 1 {
		if idx, ok := outputs[strings.ToLower(id.Name())]; ok {
			col := outSchema[idx]
			return expression.NewGetField(idx, col.Type, col.Name, col.Nullable), nil
		}
	}
	if isAggregateCall(e) {
		return nil, sql.ErrSemantic.New("HAVING aggregate must also appear in the projection")
	}

	switch e := e.(type) {
	case *ast.BinaryExpr:
		left, err := b.convertPostAggregate(e.Left, outSchema, outputs, inScope)
		if err != nil {
			return nil, err
		}
		right, err := b.convertPostAggregate(e.Right, outSchema, outputs, inScope)
		if err != nil {
			return nil, err
		}
		return rebuildBinary(e.Op, left, right)
	case *ast.UnaryExpr:
		child, err := b.convertPostAggregate(e.Operand, outSchema, outputs, inScope)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case "NOT":
			return expression.NewNot(child), nil
		case "IS NULL":
			return expression.NewIsNull(child), nil
		case "IS NOT NULL":
			return expression.NewNot(expression.NewIsNull(child)), nil
		case "-":
			return expression.NewUnaryMinus(child), nil
		}
		return nil, sql.ErrUnsupportedFeature.New("operator " + e.Op)
	case *ast.Literal:
		return convertLiteral(e)
	default:
		return nil, sql.ErrSemantic.New("HAVING references a column outside the aggregation output")
	}
}

func rebuildBinary(op string, left, right sql.Expression) (sql.Expression, error) {
	switch op {
	case "=":
		return expression.NewEquals(left, right), nil
	case "<>":
		return expression.NewNotEquals(left, right), nil
	case "<":
		return expression.NewLessThan(left, right), nil
	case ">":
		return expression.NewGreaterThan(left, right), nil
	case "<=":
		return expression.NewLessThanOrEqual(left, right), nil
	case ">=":
		return expression.NewGreaterThanOrEqual(left, right), nil
	case "AND":
		return expression.NewAnd(left, right), nil
	case "OR":
		return expression.NewOr(left, right), nil
	case "LIKE":
		return expression.NewLike(left, right), nil
	case "+", "-", "*", "/", "%", "||":
		return expression.NewArithmetic(left, right, op), nil
	}
	return nil, sql.ErrUnsupportedFeature.New("operator " + op)
}

// canonicalExprKey is the structural identity of an AST expression, used to
// match HAVING and ORDER BY terms against projection items.
func canonicalExprKey(e ast.Expr) string {
	s, err := dialect.UnparseExpr(e, dialect.ANSI)
	if err != nil {
		return fmt.Sprintf("%p", e)
	}
	return strings.ToLower(s)
}

// buildSort resolves the sort keys against the node's output schema. A key
// that names only a pre-projection column is a semantic error; the
// pre-projection scope is consulted only to tell that case apart from an
// unknown column.
func (b *Builder) buildSort(s *ast.Select, sc *scope, child sql.Node) (sql.Node, error) {
	outScope := &scope{}
	for _, col := range child.Schema() {
		outScope.add(col.Source, col)
	}

	fields := make([]plan.SortField, len(s.OrderBy))
	for i, key := range s.OrderBy {
		order := plan.Ascending
		if key.Descending {
			order = plan.Descending
		}

		conv, err := convertExpr(key.Expr, outScope, false)
		if err != nil {
			conv, err = convertExpr(key.Expr, sc, false)
			if err != nil {
				return nil, err
			}
			// The key resolves only against the input: there is no column
			// for it after projection, and sorting happens on the output of
			// the projection, so fail clearly.
			return nil, sql.ErrSemantic.New("ORDER BY references a column absent from the projection")
		}
		fields[i] = plan.SortField{Column: conv, Order: order}
	}

	sort := plan.NewSort(fields, child)
	sort.Limiter = plan.NewResultLimiter(b.limit())
	return sort, nil
}

// costBasedOrder re-orders an inner-join chain by enumerated cost. With no
// better order (or above the enumeration bound) the tree stays as the
// heuristic left it.
func (b *Builder) costBasedOrder(from ast.TableExpr) ast.TableExpr {
	join, ok := from.(*ast.Join)
	if !ok {
		return from
	}
	leaves, conds, ok := flattenJoins(join)
	if !ok || len(leaves) < 2 {
		return from
	}

	relations := make([]cost.Relation, len(leaves))
	names := make([]string, len(leaves))
	for i, leaf := range leaves {
		name := leafName(leaf)
		names[i] = strings.ToLower(name)
		rows := float64(1000)
		source := ""
		if t, ok := leaf.(*ast.TableRef); ok {
			db, tname, exact := splitTableName(t.Name)
			if d, tbl, err := b.Catalog.Table(db, tname, exact); err == nil {
				if tbl.RowCount > 0 {
					rows = float64(tbl.RowCount)
				}
				source = d.DataSourceName
			}
		}
		relations[i] = cost.Relation{Name: name, Rows: rows, Source: source}
	}
	for _, cond := range conds {
		l, r, ok := equiEdge(cond, names)
		if ok {
			relations[l].EquiEdges = append(relations[l].EquiEdges, r)
		}
	}

	order, _ := cost.BestOrder(relations)
	if order == nil {
		return from
	}

	available := map[string]bool{names[order[0]]: true}
	remaining := append([]ast.Expr(nil), conds...)
	tree := leaves[order[0]]
	for _, idx := range order[1:] {
		available[names[idx]] = true
		var attached, rest []ast.Expr
		for _, cond := range remaining {
			if condReferencesOnly(cond, available) {
				attached = append(attached, cond)
			} else {
				rest = append(rest, cond)
			}
		}
		remaining = rest

		jt := ast.InnerJoin
		var on ast.Expr
		if len(attached) > 0 {
			on = attached[0]
			for _, c := range attached[1:] {
				on = &ast.BinaryExpr{Op: "AND", Left: on, Right: c, Position: c.Pos()}
			}
		} else {
			jt = ast.CrossJoin
		}
		tree = &ast.Join{Type: jt, Left: tree, Right: leaves[idx], On: on, Position: join.Position}
	}
	if len(remaining) > 0 {
		// Conditions that never bound both sides keep the original tree.
		return from
	}
	return tree
}

func flattenJoins(t ast.TableExpr) ([]ast.TableExpr, []ast.Expr, bool) {
	switch t := t.(type) {
	case *ast.Join:
		if t.Type != ast.InnerJoin && t.Type != ast.CrossJoin {
			return nil, nil, false
		}
		left, lconds, ok := flattenJoins(t.Left)
		if !ok {
			return nil, nil, false
		}
		right, rconds, ok := flattenJoins(t.Right)
		if !ok {
			return nil, nil, false
		}
		conds := append(lconds, rconds...)
		if t.On != nil {
			conds = append(conds, splitAnd(t.On)...)
		}
		return append(left, right...), conds, true
	default:
		if leafName(t) == "" {
			return nil, nil, false
		}
		return []ast.TableExpr{t}, nil, true
	}
}

func splitAnd(e ast.Expr) []ast.Expr {
	if b, ok := e.(*ast.BinaryExpr); ok && b.Op == "AND" {
		return append(splitAnd(b.Left), splitAnd(b.Right)...)
	}
	return []ast.Expr{e}
}

func leafName(t ast.TableExpr) string {
	switch t := t.(type) {
	case *ast.TableRef:
		if t.Alias != "" {
			return t.Alias
		}
		return t.Name.Name()
	case *ast.SubqueryRef:
		return t.Alias
	}
	return ""
}

// equiEdge reports an equality condition linking two named relations.
func equiEdge(cond ast.Expr, names []string) (int, int, bool) {
	eq, ok := cond.(*ast.BinaryExpr)
	if !ok || eq.Op != "=" {
		return 0, 0, false
	}
	l, lok := eq.Left.(*ast.Identifier)
	r, rok := eq.Right.(*ast.Identifier)
	if !lok || !rok || len(l.Parts) < 2 || len(r.Parts) < 2 {
		return 0, 0, false
	}
	li := indexOfName(names, l.Parts[len(l.Parts)-2].Name)
	ri := indexOfName(names, r.Parts[len(r.Parts)-2].Name)
	if li < 0 || ri < 0 || li == ri {
		return 0, 0, false
	}
	return li, ri, true
}

func indexOfName(names []string, name string) int {
	for i, n := range names {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	return -1
}

func condReferencesOnly(cond ast.Expr, available map[string]bool) bool {
	ok := true
	ast.Inspect(cond, func(n ast.Node) bool {
		if id, isID := n.(*ast.Identifier); isID {
			if len(id.Parts) < 2 {
				ok = false
				return false
			}
			q := strings.ToLower(id.Parts[len(id.Parts)-2].Name)
			if !available[q] {
				ok = false
				return false
			}
		}
		return true
	})
	return ok
}

func hasEquiCond(on ast.Expr) bool {
	if on == nil {
		return false
	}
	found := false
	ast.Inspect(on, func(n ast.Node) bool {
		if b, ok := n.(*ast.BinaryExpr); ok && b.Op == "=" {
			found = true
			return false
		}
		return true
	})
	return found
}

// selectSchema derives the output schema of a query without executing it,
// for pushed stages whose local consumer needs a predicted shape.
func (b *Builder) selectSchema(s *ast.Select) (sql.Schema, error) {
	sc := &scope{}
	if s.From != nil {
		if err := b.fromScope(s.From, sc); err != nil {
			return nil, err
		}
	}

	var schema sql.Schema
	for _, item := range s.Projection {
		switch e := item.Expr.(type) {
		case *ast.Star:
			for _, c := range sc.cols {
				if e.Table != "" && !strings.EqualFold(c.qualifier, e.Table) {
					continue
				}
				nc := *c.col
				schema = append(schema, &nc)
			}
		default:
			schema = append(schema, b.itemColumn(item, sc))
		}
	}
	if len(schema) == 0 {
		return nil, sql.ErrSemantic.New("empty projection")
	}
	return schema, nil
}

// itemColumn predicts the output column of one projection item.
func (b *Builder) itemColumn(item ast.SelectItem, sc *scope) *sql.Column {
	name := item.Alias
	typ := sql.Text
	nullable := true

	switch e := item.Expr.(type) {
	case *ast.Identifier:
		if _, col, err := sc.resolve(e); err == nil {
			typ, nullable = col.Type, col.Nullable
			if name == "" {
				name = col.Name
			}
		} else if name == "" {
			name = e.Name()
		}
	case *ast.Literal:
		if conv, err := convertLiteral(e); err == nil {
			typ = conv.Type()
		}
	case *ast.FuncCall:
		switch e.Name {
		case "COUNT":
			typ, nullable = sql.Int64, false
		case "SUM", "AVG":
			typ = sql.Float64
		}
		if name == "" {
			name = strings.ToLower(e.Name)
		}
	}
	if name == "" {
		if key := canonicalExprKey(item.Expr); key != "" {
			name = key
		}
	}
	return &sql.Column{Name: name, Type: typ, Nullable: nullable}
}

// fromScope accumulates the visible columns of a FROM tree.
func (b *Builder) fromScope(t ast.TableExpr, sc *scope) error {
	switch t := t.(type) {
	case *ast.TableRef:
		db, name, exact := splitTableName(t.Name)
		_, table, err := b.Catalog.Table(db, name, exact)
		if err != nil {
			return err
		}
		qualifier := t.Alias
		if qualifier == "" {
			qualifier = table.Name
		}
		for _, col := range table.Columns {
			nc := *col
			nc.Source = qualifier
			sc.add(qualifier, &nc)
		}
		return nil
	case *ast.SubqueryRef:
		inner, err := b.selectSchema(t.Query)
		if err != nil {
			return err
		}
		for _, col := range inner {
			nc := *col
			nc.Source = t.Alias
			sc.add(t.Alias, &nc)
		}
		return nil
	case *ast.Join:
		if err := b.fromScope(t.Left, sc); err != nil {
			return err
		}
		return b.fromScope(t.Right, sc)
	}
	return sql.ErrPlan.New("unknown table expression")
}

// splitTableName decomposes a possibly qualified table identifier.
func splitTableName(id *ast.Identifier) (db, table string, exact bool) {
	exact = id.Parts[len(id.Parts)-1].Quoted
	switch len(id.Parts) {
	case 1:
		return "", id.Parts[0].Name, exact
	default:
		return id.Parts[len(id.Parts)-2].Name, id.Parts[len(id.Parts)-1].Name, exact
	}
}

func joinType(t ast.JoinType) plan.JoinType {
	switch t {
	case ast.LeftJoin:
		return plan.JoinTypeLeft
	case ast.RightJoin:
		return plan.JoinTypeRight
	case ast.FullJoin:
		return plan.JoinTypeFull
	case ast.CrossJoin:
		return plan.JoinTypeCross
	default:
		return plan.JoinTypeInner
	}
}

// localOps lists the local operator names of a tree, for the plan's root
// stage description.
func localOps(node sql.Node) []string {
	var ops []string
	plan.Inspect(node, func(n sql.Node) bool {
		switch n.(type) {
		case *plan.TableScan, *plan.PassThrough:
			return false
		default:
			name := fmt.Sprintf("%T", n)
			if i := strings.LastIndex(name, "."); i >= 0 {
				name = name[i+1:]
			}
			ops = append(ops, name)
			return true
		}
	})
	return ops
}
