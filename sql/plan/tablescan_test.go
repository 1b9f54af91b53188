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
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meshql/meshql/internal/retry"
	"github.com/meshql/meshql/sql"
)

// countingConn tracks opens and closes so tests can verify connection
// lifecycles.
type countingConn struct {
	rows    []sql.Row
	failures *int
	closed  *int
}

func (c *countingConn) Query(ctx *sql.Context, query string) (sql.Schema, sql.RowIter, error) {
	if c.failures != nil && *c.failures > 0 {
		*c.failures--
		return nil, nil, sql.NewSourceError("test", true, fmt.Errorf("connection reset"))
	}
	return testSchema, sql.RowsToRowIter(c.rows...), nil
}

func (c *countingConn) Exec(ctx *sql.Context, query string) (int64, error) {
	return 0, nil
}

func (c *countingConn) Close() error {
	*c.closed++
	return nil
}

func testOpener(conn *countingConn, opens *int) sql.ConnOpener {
	return func(ctx *sql.Context, source string) (sql.SourceConn, error) {
		*opens++
		return conn, nil
	}
}

func TestTableScanStreamsRows(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	opens, closed := 0, 0
	conn := &countingConn{
		rows:   []sql.Row{sql.NewRow(int64(1), "ada"), sql.NewRow(int64(2), "grace")},
		closed: &closed,
	}
	scan := NewTableScan("db1", "SELECT * FROM users", testSchema, testOpener(conn, &opens))

	rows, err := collect(ctx, scan)
	require.NoError(err)
	require.Len(rows, 2)
	require.Equal(1, opens)
	require.Equal(1, closed)
}

func TestTableScanOpensLazily(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	opens, closed := 0, 0
	conn := &countingConn{closed: &closed}
	scan := NewTableScan("db1", "SELECT 1", testSchema, testOpener(conn, &opens))

	iter, err := scan.RowIter(ctx)
	require.NoError(err)
	require.Equal(0, opens)

	_, err = iter.Next(ctx)
	require.Equal(io.EOF, err)
	require.Equal(1, opens)
	require.NoError(iter.Close(ctx))
}

func TestTableScanCloseReleasesConnection(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	opens, closed := 0, 0
	conn := &countingConn{
		rows:   []sql.Row{sql.NewRow(int64(1), "a"), sql.NewRow(int64(2), "b"), sql.NewRow(int64(3), "c")},
		closed: &closed,
	}
	scan := NewTableScan("db1", "SELECT * FROM t", testSchema, testOpener(conn, &opens))

	iter, err := scan.RowIter(ctx)
	require.NoError(err)
	_, err = iter.Next(ctx)
	require.NoError(err)

	// Close after partial iteration must release the connection.
	require.NoError(iter.Close(ctx))
	require.Equal(1, closed)

	// And repeatedly closing must not double-release.
	require.NoError(iter.Close(ctx))
	require.Equal(1, closed)

	_, err = iter.Next(ctx)
	require.True(sql.ErrIteratorClosed.Is(err))
}

func TestTableScanRetriesTransientOpens(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	opens, closed, failures := 0, 0, 2
	conn := &countingConn{
		rows:     []sql.Row{sql.NewRow(int64(7), "x")},
		failures: &failures,
		closed:   &closed,
	}

	var delays []time.Duration
	policy := retry.DefaultPolicy(sql.IsTransient).WithSleep(
		func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		})
	scan := NewTableScan("db1", "SELECT * FROM t", testSchema, testOpener(conn, &opens)).
		WithRetryPolicy(policy)

	rows, err := collect(ctx, scan)
	require.NoError(err)
	require.Len(rows, 1)
	require.Equal(int64(7), rows[0][0])
	require.Equal([]time.Duration{time.Second, 2 * time.Second}, delays)
	require.Equal(3, opens)
}

func TestTableScanDoesNotRetryPermanentErrors(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	opens := 0
	opener := func(ctx *sql.Context, source string) (sql.SourceConn, error) {
		opens++
		return nil, sql.NewSourceError("db1", false, fmt.Errorf("access denied"))
	}
	scan := NewTableScan("db1", "SELECT * FROM t", testSchema, opener).
		WithRetryPolicy(retry.DefaultPolicy(sql.IsTransient).WithSleep(
			func(context.Context, time.Duration) error { return nil }))

	iter, err := scan.RowIter(ctx)
	require.NoError(err)
	_, err = iter.Next(ctx)
	require.Error(err)
	require.Equal(1, opens)
	require.NoError(iter.Close(ctx))
}
