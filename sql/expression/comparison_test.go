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

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meshql/meshql/sql"
)

func field(i int, t sql.Type) *GetField {
	return NewGetField(i, t, "f", true)
}

func TestComparisons(t *testing.T) {
	ctx := sql.NewEmptyContext()
	row := sql.NewRow(int64(5), "b")

	cases := []struct {
		expr     sql.Expression
		expected interface{}
	}{
		{NewEquals(field(0, sql.Int64), NewLiteral(int64(5), sql.Int64)), true},
		{NewEquals(field(0, sql.Int64), NewLiteral(int64(6), sql.Int64)), false},
		{NewNotEquals(field(0, sql.Int64), NewLiteral(int64(6), sql.Int64)), true},
		{NewLessThan(field(0, sql.Int64), NewLiteral(int64(6), sql.Int64)), true},
		{NewGreaterThan(field(0, sql.Int64), NewLiteral(int64(6), sql.Int64)), false},
		{NewLessThanOrEqual(field(0, sql.Int64), NewLiteral(int64(5), sql.Int64)), true},
		{NewGreaterThanOrEqual(field(0, sql.Int64), NewLiteral(int64(5), sql.Int64)), true},
		{NewEquals(field(1, sql.Text), NewLiteral("b", sql.Text)), true},
	}

	for _, tt := range cases {
		t.Run(tt.expr.String(), func(t *testing.T) {
			v, err := tt.expr.Eval(ctx, row)
			require.NoError(t, err)
			require.Equal(t, tt.expected, v)
		})
	}
}

func TestComparisonWithNullIsNull(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()
	row := sql.NewRow(nil)

	v, err := NewEquals(field(0, sql.Int64), NewLiteral(int64(5), sql.Int64)).Eval(ctx, row)
	require.NoError(err)
	require.Nil(v)

	v, err = NewLessThan(NewLiteral(int64(5), sql.Int64), field(0, sql.Int64)).Eval(ctx, row)
	require.NoError(err)
	require.Nil(v)
}

func TestLike(t *testing.T) {
	ctx := sql.NewEmptyContext()

	cases := []struct {
		value    interface{}
		pattern  string
		expected interface{}
	}{
		{"user_1", "user%", true},
		{"admin", "user%", false},
		{"abc", "a_c", true},
		{"Upper", "upper%", true},
		{nil, "x%", nil},
	}

	for _, tt := range cases {
		like := NewLike(
			NewLiteral(tt.value, sql.Text),
			NewLiteral(tt.pattern, sql.Text),
		)
		v, err := like.Eval(ctx, nil)
		require.NoError(t, err)
		require.Equal(t, tt.expected, v, "%v LIKE %v", tt.value, tt.pattern)
	}
}

func TestIn(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	in := NewIn(
		NewLiteral(int64(2), sql.Int64),
		NewTuple(
			NewLiteral(int64(1), sql.Int64),
			NewLiteral(int64(2), sql.Int64),
		),
	)
	v, err := in.Eval(ctx, nil)
	require.NoError(err)
	require.Equal(true, v)

	notIn := NewIn(
		NewLiteral(int64(9), sql.Int64),
		NewTuple(NewLiteral(int64(1), sql.Int64)),
	)
	v, err = notIn.Eval(ctx, nil)
	require.NoError(err)
	require.Equal(false, v)

	// 9 IN (1, NULL) is NULL, not FALSE.
	withNull := NewIn(
		NewLiteral(int64(9), sql.Int64),
		NewTuple(NewLiteral(int64(1), sql.Int64), NewLiteral(nil, sql.Null)),
	)
	v, err = withNull.Eval(ctx, nil)
	require.NoError(err)
	require.Nil(v)
}

func TestThreeValuedLogic(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	null := NewLiteral(nil, sql.Null)
	yes := NewLiteral(true, sql.Boolean)
	no := NewLiteral(false, sql.Boolean)

	v, err := NewAnd(no, null).Eval(ctx, nil)
	require.NoError(err)
	require.Equal(false, v)

	v, err = NewAnd(yes, null).Eval(ctx, nil)
	require.NoError(err)
	require.Nil(v)

	v, err = NewOr(yes, null).Eval(ctx, nil)
	require.NoError(err)
	require.Equal(true, v)

	v, err = NewOr(no, null).Eval(ctx, nil)
	require.NoError(err)
	require.Nil(v)

	v, err = NewNot(null).Eval(ctx, nil)
	require.NoError(err)
	require.Nil(v)

	v, err = NewIsNull(null).Eval(ctx, nil)
	require.NoError(err)
	require.Equal(true, v)
}

func TestArithmetic(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	five := NewLiteral(int64(5), sql.Int64)
	two := NewLiteral(int64(2), sql.Int64)

	v, err := NewPlus(five, two).Eval(ctx, nil)
	require.NoError(err)
	require.Equal(int64(7), v)

	v, err = NewMult(five, two).Eval(ctx, nil)
	require.NoError(err)
	require.Equal(int64(10), v)

	// Division always produces a float.
	v, err = NewDiv(five, two).Eval(ctx, nil)
	require.NoError(err)
	require.Equal(2.5, v)

	// Division by zero is NULL, not an error.
	v, err = NewDiv(five, NewLiteral(int64(0), sql.Int64)).Eval(ctx, nil)
	require.NoError(err)
	require.Nil(v)

	v, err = NewConcat(NewLiteral("a", sql.Text), NewLiteral("b", sql.Text)).Eval(ctx, nil)
	require.NoError(err)
	require.Equal("ab", v)

	v, err = NewUnaryMinus(five).Eval(ctx, nil)
	require.NoError(err)
	require.Equal(int64(-5), v)
}
