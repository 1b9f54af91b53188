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

package meshql_test

import (
	"context"
	"fmt"

	meshql "github.com/meshql/meshql"
	"github.com/meshql/meshql/connector"
	"github.com/meshql/meshql/mem"
	"github.com/meshql/meshql/sql"
)

func Example() {
	ctx := sql.NewEmptyContext()

	table := mem.NewTable("users", sql.Schema{
		{Name: "id", Type: sql.Int64},
		{Name: "name", Type: sql.Text},
	})
	_ = table.Insert(ctx, sql.NewRow(int64(1), "ada"))
	_ = table.Insert(ctx, sql.NewRow(int64(2), "grace"))
	db := mem.NewDatabase("demo")
	db.AddTable(table)

	registry := connector.NewRegistry()
	registry.Register(mem.NewAdapter(db))
	registry.AddSource(connector.DataSourceConfig{Name: "demo", Type: "mem"})

	engine := meshql.New(registry, nil)
	defer engine.Close()

	ictx, cancel := engine.NewContext(context.Background(), "")
	defer cancel()
	if err := engine.Init(ictx); err != nil {
		panic(err)
	}

	result := engine.Execute(context.Background(), "SELECT name FROM users ORDER BY name")
	for _, row := range result.Rows {
		fmt.Println(row[0])
	}
	// Output:
	// ada
	// grace
}
