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

	_ "github.com/lib/pq"

	"github.com/meshql/meshql/connector"
	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/dialect"
)

func init() {
	connector.RegisterAdapterFactory(NewPostgres)
}

// NewPostgres creates the PostgreSQL adapter.
func NewPostgres() connector.Adapter {
	return newDriverAdapter("postgresql", dialect.Postgres, "postgres", postgresDSN, postgresDiscover)
}

func postgresDSN(cfg connector.DataSourceConfig) string {
	dsn := cfg.URL
	if cfg.Username != "" {
		dsn = fmt.Sprintf("%s user=%s password=%s", cfg.URL, cfg.Username, cfg.Password)
	}
	return dsn
}

const postgresTablesQuery = `
SELECT t.table_name, t.table_type, COALESCE(c.reltuples::bigint, 0)
FROM information_schema.tables t
LEFT JOIN pg_class c ON c.relname = t.table_name
WHERE t.table_schema = current_schema()`

const postgresColumnsQuery = `
SELECT column_name, data_type, is_nullable, ordinal_position
FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1
ORDER BY ordinal_position`

const postgresPrimaryKeyQuery = `
SELECT kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name
WHERE tc.table_schema = current_schema()
  AND tc.table_name = $1 AND tc.constraint_type = 'PRIMARY KEY'`

const postgresIndexesQuery = `
SELECT i.relname, ix.indisunique, a.attname
FROM pg_class t
JOIN pg_index ix ON t.oid = ix.indrelid
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
WHERE t.relname = $1
ORDER BY i.relname`

func postgresDiscover(ctx *sql.Context, db *dbsql.DB, cfg connector.DataSourceConfig) (*sql.Database, error) {
	var schemaName string
	if err := db.QueryRowContext(ctx, "SELECT current_schema()").Scan(&schemaName); err != nil {
		return nil, err
	}

	result := &sql.Database{Name: schemaName, Type: sql.DatabaseTypePhysical}

	rows, err := db.QueryContext(ctx, postgresTablesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, tableType string
		var rowCount int64
		if err := rows.Scan(&name, &tableType, &rowCount); err != nil {
			return nil, err
		}
		t := &sql.Table{Name: name, Schema: schemaName, Type: sql.TableTypeTable, RowCount: rowCount}
		if tableType == "VIEW" {
			t.Type = sql.TableTypeView
		}
		result.Tables = append(result.Tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range result.Tables {
		if err := postgresTableColumns(ctx, db, t); err != nil {
			return nil, err
		}
		if err := postgresTableIndexes(ctx, db, t); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func postgresTableColumns(ctx *sql.Context, db *dbsql.DB, t *sql.Table) error {
	pk := map[string]bool{}
	pkRows, err := db.QueryContext(ctx, postgresPrimaryKeyQuery, t.Name)
	if err != nil {
		return err
	}
	for pkRows.Next() {
		var name string
		if err := pkRows.Scan(&name); err != nil {
			_ = pkRows.Close()
			return err
		}
		pk[name] = true
	}
	if err := pkRows.Err(); err != nil {
		_ = pkRows.Close()
		return err
	}
	_ = pkRows.Close()

	rows, err := db.QueryContext(ctx, postgresColumnsQuery, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, dataType, nullable string
		var position int
		if err := rows.Scan(&name, &dataType, &nullable, &position); err != nil {
			return err
		}
		t.Columns = append(t.Columns, &sql.Column{
			Name:            name,
			Type:            sql.TypeFromName(dataType),
			NativeType:      dataType,
			Nullable:        nullable == "YES",
			PrimaryKey:      pk[name],
			OrdinalPosition: position,
		})
	}
	return rows.Err()
}

func postgresTableIndexes(ctx *sql.Context, db *dbsql.DB, t *sql.Table) error {
	rows, err := db.QueryContext(ctx, postgresIndexesQuery, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	indexes := map[string]*sql.Index{}
	var order []string
	for rows.Next() {
		var name, column string
		var unique bool
		if err := rows.Scan(&name, &unique, &column); err != nil {
			return err
		}
		idx, ok := indexes[name]
		if !ok {
			idx = &sql.Index{Name: name, Table: t.Name, Schema: t.Schema, Type: "BTREE", Unique: unique}
			indexes[name] = idx
			order = append(order, name)
		}
		idx.ColumnNames = append(idx.ColumnNames, column)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, name := range order {
		t.Indexes = append(t.Indexes, indexes[name])
	}
	return nil
}
