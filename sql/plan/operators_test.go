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
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/expression"
	"github.com/meshql/meshql/sql/expression/aggregation"
)

func testRows() *rowsNode {
	return newRowsNode(testSchema,
		sql.NewRow(int64(1), "ada"),
		sql.NewRow(int64(2), "grace"),
		sql.NewRow(int64(3), nil),
		sql.NewRow(int64(4), "ada"),
	)
}

func TestFilter(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	f := NewFilter(
		expression.NewEquals(
			expression.NewGetField(1, sql.Text, "name", true),
			expression.NewLiteral("ada", sql.Text),
		),
		testRows(),
	)
	require.Equal(1, len(f.Children()))

	rows, err := collect(ctx, f)
	require.NoError(err)
	require.Len(rows, 2)
	require.Equal(int64(1), rows[0][0])
	require.Equal(int64(4), rows[1][0])
}

func TestFilterNullPredicateNotEmitted(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	// name = 'ada' is NULL for the row whose name is NULL; that row must
	// not pass the filter.
	f := NewFilter(
		expression.NewNot(expression.NewEquals(
			expression.NewGetField(1, sql.Text, "name", true),
			expression.NewLiteral("ada", sql.Text),
		)),
		testRows(),
	)

	rows, err := collect(ctx, f)
	require.NoError(err)
	require.Len(rows, 1)
	require.Equal(int64(2), rows[0][0])
}

func TestProject(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	p := NewProject(
		[]sql.Expression{
			expression.NewAlias("who", expression.NewGetField(1, sql.Text, "name", true)),
		},
		testRows(),
	)

	schema := p.Schema()
	require.Len(schema, 1)
	require.Equal("who", schema[0].Name)

	rows, err := collect(ctx, p)
	require.NoError(err)
	require.Len(rows, 4)
	require.Equal("ada", rows[0][0])
	require.Len(rows[0], 1)
}

func TestLimitAndOffset(t *testing.T) {
	cases := []struct {
		name     string
		count    int64
		offset   int64
		expected []int64
	}{
		{"limit 0", 0, 0, nil},
		{"limit 2", 2, 0, []int64{1, 2}},
		{"limit beyond input", 10, 0, []int64{1, 2, 3, 4}},
		{"offset skips", 2, 1, []int64{2, 3}},
		{"offset only", -1, 3, []int64{4}},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			ctx := sql.NewEmptyContext()

			rows, err := collect(ctx, NewLimit(tt.count, tt.offset, testRows()))
			require.NoError(err)
			require.Len(rows, len(tt.expected))
			for i, id := range tt.expected {
				require.Equal(id, rows[i][0])
			}
		})
	}
}

func TestSort(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	s := NewSort(
		[]SortField{{
			Column: expression.NewGetField(1, sql.Text, "name", true),
			Order:  Descending,
		}},
		testRows(),
	)

	rows, err := collect(ctx, s)
	require.NoError(err)
	require.Len(rows, 4)
	// NULL sorts first ascending, so last descending.
	require.Equal("grace", rows[0][1])
	require.Equal("ada", rows[1][1])
	require.Equal("ada", rows[2][1])
	require.Nil(rows[3][1])
}

func TestGroupBy(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	name := expression.NewGetField(1, sql.Text, "name", true)
	gb := NewGroupBy(
		[]sql.Expression{
			name,
			expression.NewAlias("total", aggregation.NewCountAll()),
		},
		[]sql.Expression{name},
		testRows(),
	)

	schema := gb.Schema()
	require.Len(schema, 2)
	require.Equal("total", schema[1].Name)

	rows, err := collect(ctx, gb)
	require.NoError(err)
	require.Len(rows, 3)

	counts := map[interface{}]int64{}
	for _, row := range rows {
		counts[row[0]] = row[1].(int64)
	}
	require.Equal(int64(2), counts["ada"])
	require.Equal(int64(1), counts["grace"])
	require.Equal(int64(1), counts[nil])
}

func TestGroupByAggregates(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	id := expression.NewGetField(0, sql.Int64, "id", false)
	gb := NewGroupBy(
		[]sql.Expression{
			aggregation.NewSum(id),
			aggregation.NewMin(id),
			aggregation.NewMax(id),
			aggregation.NewAvg(id),
		},
		nil,
		testRows(),
	)

	rows, err := collect(ctx, gb)
	require.NoError(err)
	require.Len(rows, 1)
	require.Equal(float64(10), rows[0][0])
	require.Equal(int64(1), rows[0][1])
	require.Equal(int64(4), rows[0][2])
	require.Equal(float64(2.5), rows[0][3])
}

func joinInputs() (sql.Node, sql.Node, sql.Expression) {
	users := newRowsNode(
		sql.Schema{
			{Name: "id", Type: sql.Int64, Source: "u"},
			{Name: "name", Type: sql.Text, Source: "u"},
		},
		sql.NewRow(int64(1), "ada"),
		sql.NewRow(int64(2), "grace"),
		sql.NewRow(int64(3), "alan"),
	)
	orders := newRowsNode(
		sql.Schema{
			{Name: "user_id", Type: sql.Int64, Source: "o"},
			{Name: "amount", Type: sql.Int64, Source: "o"},
		},
		sql.NewRow(int64(1), int64(10)),
		sql.NewRow(int64(1), int64(20)),
		sql.NewRow(int64(2), int64(30)),
		sql.NewRow(int64(9), int64(40)),
	)
	cond := expression.NewEquals(
		expression.NewGetFieldWithTable(0, sql.Int64, "u", "id", false),
		expression.NewGetFieldWithTable(2, sql.Int64, "o", "user_id", false),
	)
	return users, orders, cond
}

func TestInnerHashJoin(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	users, orders, cond := joinInputs()
	join := NewInnerJoin(users, orders, cond)
	require.Len(join.Schema(), 4)

	rows, err := collect(ctx, join)
	require.NoError(err)
	require.Len(rows, 3)
	for _, row := range rows {
		require.Equal(row[0], row[2])
	}
}

func TestLeftJoinPadsUnmatched(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	users, orders, cond := joinInputs()
	rows, err := collect(ctx, NewJoin(JoinTypeLeft, cond, users, orders))
	require.NoError(err)
	require.Len(rows, 4)

	var unmatched sql.Row
	for _, row := range rows {
		if row[1] == "alan" {
			unmatched = row
		}
	}
	require.NotNil(unmatched)
	require.Nil(unmatched[2])
	require.Nil(unmatched[3])
}

func TestRightJoinPadsUnmatched(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	users, orders, cond := joinInputs()
	rows, err := collect(ctx, NewJoin(JoinTypeRight, cond, users, orders))
	require.NoError(err)
	require.Len(rows, 4)

	var unmatched sql.Row
	for _, row := range rows {
		if row[3] == int64(40) {
			unmatched = row
		}
	}
	require.NotNil(unmatched)
	require.Nil(unmatched[0])
	require.Nil(unmatched[1])
}

func TestFullJoin(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	users, orders, cond := joinInputs()
	rows, err := collect(ctx, NewJoin(JoinTypeFull, cond, users, orders))
	require.NoError(err)
	// 3 matches + unmatched alan + unmatched order 40.
	require.Len(rows, 5)
}

func TestCrossJoin(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	users, orders, _ := joinInputs()
	rows, err := collect(ctx, NewCrossJoin(users, orders))
	require.NoError(err)
	require.Len(rows, 12)
}

func TestNestedLoopFallback(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	users, orders, _ := joinInputs()
	nonEqui := expression.NewGreaterThan(
		expression.NewGetFieldWithTable(0, sql.Int64, "u", "id", false),
		expression.NewGetFieldWithTable(2, sql.Int64, "o", "user_id", false),
	)
	rows, err := collect(ctx, NewJoin(JoinTypeInner, nonEqui, users, orders))
	require.NoError(err)
	// id > user_id: (2,1), (2,1), (3,1), (3,1), (3,2).
	require.Len(rows, 5)
}

func TestDistinct(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	child := newRowsNode(
		sql.Schema{{Name: "name", Type: sql.Text}},
		sql.NewRow("ada"),
		sql.NewRow("grace"),
		sql.NewRow("ada"),
	)
	rows, err := collect(ctx, NewDistinct(child))
	require.NoError(err)
	require.Len(rows, 2)
}

func TestUnionAndSetOps(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	left := newRowsNode(
		sql.Schema{{Name: "n", Type: sql.Int64}},
		sql.NewRow(int64(1)), sql.NewRow(int64(2)), sql.NewRow(int64(3)),
	)
	right := newRowsNode(
		sql.Schema{{Name: "n", Type: sql.Int64}},
		sql.NewRow(int64(2)), sql.NewRow(int64(3)), sql.NewRow(int64(4)),
	)

	rows, err := collect(ctx, NewUnion(left, right, false))
	require.NoError(err)
	require.Len(rows, 6)

	rows, err = collect(ctx, NewDistinct(NewUnion(left, right, false)))
	require.NoError(err)
	require.Len(rows, 4)

	rows, err = collect(ctx, NewSetOp(SetOpIntersect, left, right))
	require.NoError(err)
	require.Len(rows, 2)

	rows, err = collect(ctx, NewSetOp(SetOpExcept, left, right))
	require.NoError(err)
	require.Len(rows, 1)
	require.Equal(int64(1), rows[0][0])
}

func TestCancellationStopsPull(t *testing.T) {
	require := require.New(t)

	cancelCtx, cancel := context.WithCancel(context.Background())
	ctx := sql.NewContext(cancelCtx)

	f := NewFilter(
		expression.NewLiteral(true, sql.Boolean),
		&generatedNode{count: 1000000},
	)
	iter, err := f.RowIter(ctx)
	require.NoError(err)

	_, err = iter.Next(ctx)
	require.NoError(err)

	cancel()
	_, err = iter.Next(ctx)
	require.Error(err)
	require.True(sql.ErrCancelled.Is(err))
	require.NoError(iter.Close(ctx))
}

func TestCloseIsRepeatable(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	users, orders, cond := joinInputs()
	iter, err := NewInnerJoin(users, orders, cond).RowIter(ctx)
	require.NoError(err)

	_, err = iter.Next(ctx)
	require.NoError(err)
	require.NoError(iter.Close(ctx))
	require.NoError(iter.Close(ctx))

	_, err = iter.Next(ctx)
	require.Error(err)
	require.True(sql.ErrIteratorClosed.Is(err))
}

func collect(ctx *sql.Context, n sql.Node) ([]sql.Row, error) {
	iter, err := n.RowIter(ctx)
	if err != nil {
		return nil, err
	}
	var rows []sql.Row
	for {
		row, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = iter.Close(ctx)
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, iter.Close(ctx)
}
