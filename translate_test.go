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

package meshql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meshql/meshql/sql/dialect"
)

func TestTranslateMySQLPaginationToOracle(t *testing.T) {
	require := require.New(t)

	out, err := Translate("SELECT * FROM users LIMIT 10 OFFSET 5", dialect.MySQL, dialect.Oracle)
	require.NoError(err)
	require.Contains(out, "OFFSET 5 ROWS FETCH NEXT 10 ROWS ONLY")
}

func TestTranslateMySQLPaginationToSQLServer(t *testing.T) {
	require := require.New(t)

	out, err := Translate("SELECT * FROM users LIMIT 10", dialect.MySQL, dialect.SQLServer)
	require.NoError(err)
	require.Contains(out, "OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY")
}

func TestTranslateQuoting(t *testing.T) {
	require := require.New(t)

	out, err := Translate("SELECT `order` FROM `select`", dialect.MySQL, dialect.Postgres)
	require.NoError(err)
	require.Contains(out, `"order"`)
	require.Contains(out, `"select"`)
}

func TestTranslateNowToken(t *testing.T) {
	require := require.New(t)

	out, err := Translate("SELECT NOW()", dialect.MySQL, dialect.Oracle)
	require.NoError(err)
	require.Contains(out, "SYSDATE")
	require.Contains(out, "FROM DUAL")
}

func TestTranslateBooleans(t *testing.T) {
	require := require.New(t)

	out, err := Translate("SELECT a FROM t WHERE b = TRUE", dialect.Postgres, dialect.SQLServer)
	require.NoError(err)
	require.Contains(out, "b = 1")
}

func TestTranslateReportsUnsupportedFeatures(t *testing.T) {
	require := require.New(t)

	_, err := Translate(
		"SELECT * FROM a FULL JOIN b ON a.id = b.id",
		dialect.Postgres, dialect.MySQL,
	)
	require.Error(err)
	require.True(dialect.IsTranslationError(err))
	require.Contains(err.Error(), "FULL JOIN")
}

func TestTranslateSyntaxErrorSurfaces(t *testing.T) {
	require := require.New(t)

	_, err := Translate("SELEC nope", dialect.MySQL, dialect.Oracle)
	require.Error(err)
}
