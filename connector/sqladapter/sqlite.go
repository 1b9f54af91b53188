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

	_ "modernc.org/sqlite"

	"github.com/meshql/meshql/connector"
	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/dialect"
)

func init() {
	connector.RegisterAdapterFactory(NewSQLite)
}

// NewSQLite creates the embedded SQLite adapter. SQLite's syntax is close
// enough to ANSI that the converter's ANSI rendering works against it, limit
// clauses aside, which it accepts in the MySQL form too.
func NewSQLite() connector.Adapter {
	return newDriverAdapter("sqlite", dialect.ANSI, "sqlite", sqliteDSN, sqliteDiscover)
}

func sqliteDSN(cfg connector.DataSourceConfig) string {
	return cfg.URL
}

func sqliteDiscover(ctx *sql.Context, db *dbsql.DB, cfg connector.DataSourceConfig) (*sql.Database, error) {
	result := &sql.Database{Name: cfg.Name, Type: sql.DatabaseTypePhysical}

	rows, err := db.QueryContext(ctx,
		`SELECT name, type FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, err
		}
		t := &sql.Table{Name: name, Schema: cfg.Name, Type: sql.TableTypeTable}
		if typ == "view" {
			t.Type = sql.TableTypeView
		}
		result.Tables = append(result.Tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range result.Tables {
		if err := sqliteTableColumns(ctx, db, t); err != nil {
			return nil, err
		}
		var count int64
		if err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %q", t.Name)).Scan(&count); err == nil {
			t.RowCount = count
		}
	}
	return result, nil
}

func sqliteTableColumns(ctx *sql.Context, db *dbsql.DB, t *sql.Table) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", t.Name))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid, notNull, pk int
		var name, typ string
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return err
		}
		t.Columns = append(t.Columns, &sql.Column{
			Name:            name,
			Type:            sql.TypeFromName(typ),
			NativeType:      typ,
			Nullable:        notNull == 0,
			PrimaryKey:      pk > 0,
			OrdinalPosition: cid + 1,
			Default:         dflt,
		})
	}
	return rows.Err()
}
