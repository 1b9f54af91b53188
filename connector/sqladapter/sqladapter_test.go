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

package sqladapter

import (
	dbsql "database/sql"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/meshql/meshql/connector"
	"github.com/meshql/meshql/sql"
)

func mockConn(t *testing.T) (*sourceConn, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	conn, err := db.Conn(sql.NewEmptyContext())
	require.NoError(t, err)
	return &sourceConn{source: "mockdb", conn: conn}, mock, func() { _ = db.Close() }
}

func TestSourceConnQueryStreamsRows(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	conn, mock, done := mockConn(t)
	defer done()

	mock.ExpectQuery("SELECT id, name FROM users").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "ada").
			AddRow(int64(2), "grace"),
	)

	schema, iter, err := conn.Query(ctx, "SELECT id, name FROM users")
	require.NoError(err)
	require.Len(schema, 2)
	require.Equal("id", schema[0].Name)
	require.Equal("name", schema[1].Name)

	row, err := iter.Next(ctx)
	require.NoError(err)
	require.Equal(int64(1), row[0])
	require.Equal("ada", row[1])

	_, err = iter.Next(ctx)
	require.NoError(err)
	_, err = iter.Next(ctx)
	require.Equal(io.EOF, err)

	require.NoError(iter.Close(ctx))
	require.NoError(conn.Close())
	require.NoError(mock.ExpectationsWereMet())
}

func TestSourceConnQueryErrorIsClassified(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	conn, mock, done := mockConn(t)
	defer done()

	mock.ExpectQuery("SELECT broken").WillReturnError(fmt.Errorf("connection reset by peer"))

	_, _, err := conn.Query(ctx, "SELECT broken")
	require.Error(err)
	serr, ok := err.(*sql.SourceError)
	require.True(ok)
	require.Equal("mockdb", serr.SourceName)
	require.True(serr.Transient)
	require.NoError(conn.Close())
}

func TestSourceConnExec(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	conn, mock, done := mockConn(t)
	defer done()

	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := conn.Exec(ctx, "DELETE FROM users WHERE id > 0")
	require.NoError(err)
	require.Equal(int64(3), n)
	require.NoError(conn.Close())
}

func TestSourceConnCloseIsRepeatable(t *testing.T) {
	require := require.New(t)

	conn, _, done := mockConn(t)
	defer done()

	require.NoError(conn.Close())
	require.NoError(conn.Close())
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestTransientClassification(t *testing.T) {
	cases := []struct {
		err       error
		transient bool
	}{
		{timeoutErr{}, true},
		{dbsql.ErrConnDone, true},
		{fmt.Errorf("connection refused"), true},
		{fmt.Errorf("broken pipe while writing"), true},
		{fmt.Errorf("Too many connections"), true},
		{fmt.Errorf("syntax error near FROM"), false},
		{fmt.Errorf("access denied for user"), false},
	}

	for _, tt := range cases {
		require.Equal(t, tt.transient, isTransient(tt.err), tt.err.Error())
	}
}

func TestAdapterDialects(t *testing.T) {
	require := require.New(t)

	require.Equal("mysql", string(NewMySQL().Type()))
	require.Equal("postgresql", string(NewPostgres().Type()))
	require.Equal("sqlite", string(NewSQLite().Type()))
}

func TestDSNBuilders(t *testing.T) {
	require := require.New(t)

	dsn := mysqlDSN(configFor("tcp(localhost:3306)/shop", "root", "secret"))
	require.Equal("root:secret@tcp(localhost:3306)/shop", dsn)

	dsn = postgresDSN(configFor("host=localhost dbname=shop", "root", "secret"))
	require.Contains(dsn, "user=root")
	require.Contains(dsn, "password=secret")
}

func configFor(url, user, pass string) connector.DataSourceConfig {
	return connector.DataSourceConfig{
		URL:                 url,
		Username:            user,
		Password:            pass,
		ConnectionTimeoutMs: int(time.Second / time.Millisecond),
	}
}
