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

	_ "github.com/go-sql-driver/mysql"

	"github.com/meshql/meshql/connector"
	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/dialect"
)

func init() {
	connector.RegisterAdapterFactory(NewMySQL)
}

// NewMySQL creates the MySQL adapter.
func NewMySQL() connector.Adapter {
	return newDriverAdapter("mysql", dialect.MySQL, "mysql", mysqlDSN, mysqlDiscover)
}

func mysqlDSN(cfg connector.DataSourceConfig) string {
	// URL form: tcp(host:port)/schema
	return fmt.Sprintf("%s:%s@%s", cfg.Username, cfg.Password, cfg.URL)
}

const mysqlTablesQuery = `
SELECT table_name, table_type, IFNULL(table_rows, 0), IFNULL(table_comment, '')
FROM information_schema.tables
WHERE table_schema = DATABASE()`

const mysqlColumnsQuery = `
SELECT column_name, data_type, is_nullable, column_key, ordinal_position
FROM information_schema.columns
WHERE table_schema = DATABASE() AND table_name = ?
ORDER BY ordinal_position`

const mysqlIndexesQuery = `
SELECT index_name, non_unique, column_name
FROM information_schema.statistics
WHERE table_schema = DATABASE() AND table_name = ?
ORDER BY index_name, seq_in_index`

func mysqlDiscover(ctx *sql.Context, db *dbsql.DB, cfg connector.DataSourceConfig) (*sql.Database, error) {
	var schemaName string
	if err := db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&schemaName); err != nil {
		return nil, err
	}

	result := &sql.Database{Name: schemaName, Type: sql.DatabaseTypePhysical}

	rows, err := db.QueryContext(ctx, mysqlTablesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, tableType, remarks string
		var rowCount int64
		if err := rows.Scan(&name, &tableType, &rowCount, &remarks); err != nil {
			return nil, err
		}
		t := &sql.Table{
			Name:     name,
			Schema:   schemaName,
			Type:     sql.TableTypeTable,
			Remarks:  remarks,
			RowCount: rowCount,
		}
		if tableType == "VIEW" {
			t.Type = sql.TableTypeView
		}
		result.Tables = append(result.Tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range result.Tables {
		if err := mysqlTableColumns(ctx, db, t); err != nil {
			return nil, err
		}
		if err := mysqlTableIndexes(ctx, db, t); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func mysqlTableColumns(ctx *sql.Context, db *dbsql.DB, t *sql.Table) error {
	rows, err := db.QueryContext(ctx, mysqlColumnsQuery, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, dataType, nullable, key string
		var position int
		if err := rows.Scan(&name, &dataType, &nullable, &key, &position); err != nil {
			return err
		}
		t.Columns = append(t.Columns, &sql.Column{
			Name:            name,
			Type:            sql.TypeFromName(dataType),
			NativeType:      dataType,
			Nullable:        nullable == "YES",
			PrimaryKey:      key == "PRI",
			OrdinalPosition: position,
		})
	}
	return rows.Err()
}

func mysqlTableIndexes(ctx *sql.Context, db *dbsql.DB, t *sql.Table) error {
	rows, err := db.QueryContext(ctx, mysqlIndexesQuery, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	indexes := map[string]*sql.Index{}
	var order []string
	for rows.Next() {
		var name, column string
		var nonUnique int
		if err := rows.Scan(&name, &nonUnique, &column); err != nil {
			return err
		}
		idx, ok := indexes[name]
		if !ok {
			idx = &sql.Index{
				Name:   name,
				Table:  t.Name,
				Schema: t.Schema,
				Type:   "BTREE",
				Unique: nonUnique == 0,
			}
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
