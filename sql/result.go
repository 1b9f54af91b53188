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

package sql

import "time"

// QueryResult is a fully materialized query outcome. Every row has exactly
// len(ColumnNames) cells and len(ColumnNames) == len(ColumnTypes).
type QueryResult struct {
	ColumnNames     []string
	ColumnTypes     []Type
	Rows            []Row
	RowCount        int
	ExecutionTimeMs int64
	Success         bool
	ErrorMessage    string
	Warnings        []*Warning
}

// NewQueryResult materializes the given iterator into a successful result.
func NewQueryResult(ctx *Context, schema Schema, iter RowIter) (*QueryResult, error) {
	start := time.Now()
	rows, err := RowIterToRows(ctx, iter)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(schema))
	types := make([]Type, len(schema))
	for i, col := range schema {
		names[i] = col.Name
		types[i] = col.Type
	}

	return &QueryResult{
		ColumnNames:     names,
		ColumnTypes:     types,
		Rows:            rows,
		RowCount:        len(rows),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		Success:         true,
		Warnings:        ctx.Warnings(),
	}, nil
}

// NewQueryFailure wraps an execution error into a failed result.
func NewQueryFailure(err error) *QueryResult {
	return &QueryResult{
		Success:      false,
		ErrorMessage: err.Error(),
	}
}

// LimitedResult is the shape observed by consumers of a materializing
// operator guarded by the intermediate result limiter. Truncation is a
// warning, not a failure.
type LimitedResult struct {
	Rows      []Row
	RowCount  int
	Truncated bool
	Warning   string
}
