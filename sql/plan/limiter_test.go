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
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meshql/meshql/sql"
)

func TestLimiterUnderCap(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	iter, err := (&generatedNode{count: 10}).RowIter(ctx)
	require.NoError(err)

	result, err := NewResultLimiter(100).Collect(ctx, iter)
	require.NoError(err)
	require.Equal(10, result.RowCount)
	require.False(result.Truncated)
	require.Empty(result.Warning)
	require.Empty(ctx.Warnings())
}

func TestLimiterExactCap(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	iter, err := (&generatedNode{count: 100}).RowIter(ctx)
	require.NoError(err)

	result, err := NewResultLimiter(100).Collect(ctx, iter)
	require.NoError(err)
	require.Equal(100, result.RowCount)
	require.False(result.Truncated)
}

func TestLimiterTruncatesAtDefaultCap(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	iter, err := (&generatedNode{count: 150000}).RowIter(ctx)
	require.NoError(err)

	result, err := NewResultLimiter(0).Collect(ctx, iter)
	require.NoError(err)
	require.Equal(100000, result.RowCount)
	require.True(result.Truncated)
	require.Regexp(
		regexp.MustCompile(`Intermediate result limited to 100000 rows \(total: 150000\)`),
		result.Warning,
	)

	warnings := ctx.Warnings()
	require.Len(warnings, 1)
	require.Equal(result.Warning, warnings[0].Message)
}

func TestLimiterWarningIffTruncated(t *testing.T) {
	cases := []struct {
		input int
		cap   int
	}{
		{0, 10},
		{5, 10},
		{10, 10},
		{11, 10},
		{100, 10},
	}

	for _, tt := range cases {
		ctx := sql.NewEmptyContext()
		iter, err := (&generatedNode{count: tt.input}).RowIter(ctx)
		require.NoError(t, err)

		result, err := NewResultLimiter(tt.cap).Collect(ctx, iter)
		require.NoError(t, err)

		expected := tt.input
		if expected > tt.cap {
			expected = tt.cap
		}
		require.Equal(t, expected, result.RowCount)
		require.Equal(t, tt.input > tt.cap, result.Truncated)
		require.Equal(t, result.Truncated, result.Warning != "")
	}
}
