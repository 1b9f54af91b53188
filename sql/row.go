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

import "io"

// Row is a tuple of values produced by an iterator. Rows are immutable once
// emitted; operators that change shape allocate a new row.
type Row []interface{}

// NewRow creates a row from the given values.
func NewRow(values ...interface{}) Row {
	row := make(Row, len(values))
	copy(row, values)
	return row
}

// Copy creates a new copy of this row.
func (r Row) Copy() Row {
	return NewRow(r...)
}

// Equals checks whether two rows are equal given a schema.
func (r Row) Equals(row Row, schema Schema) (bool, error) {
	if len(row) != len(r) || len(row) != len(schema) {
		return false, nil
	}

	for i, colLeft := range r {
		colRight := row[i]
		cmp, err := schema[i].Type.Compare(colLeft, colRight)
		if err != nil {
			return false, err
		}
		if cmp != 0 {
			return false, nil
		}
	}

	return true, nil
}

// RowIter is an iterator that produces rows. It is the pull contract every
// operator implements: the consumer drives evaluation by calling Next on the
// root until io.EOF. Close is safe to call more than once and must run even
// after a failed Next.
type RowIter interface {
	// Next retrieves the next row. It will return io.EOF if it's the last
	// row. After retrieving the last row, Close will be automatically closed.
	Next(ctx *Context) (Row, error)
	// Close the iterator and release any resources it holds.
	Close(ctx *Context) error
}

// RowIterToRows converts a row iterator to a slice of rows. The iterator is
// closed in every case, including error.
func RowIterToRows(ctx *Context, i RowIter) ([]Row, error) {
	var rows []Row
	for {
		row, err := i.Next(ctx)
		if err == io.EOF {
			break
		}

		if err != nil {
			_ = i.Close(ctx)
			return nil, err
		}

		rows = append(rows, row)
	}

	return rows, i.Close(ctx)
}

// RowsToRowIter creates an iterator over the given rows.
func RowsToRowIter(rows ...Row) RowIter {
	return &sliceRowIter{rows: rows}
}

type sliceRowIter struct {
	rows []Row
	idx  int
}

func (i *sliceRowIter) Next(*Context) (Row, error) {
	if i.idx >= len(i.rows) {
		return nil, io.EOF
	}

	r := i.rows[i.idx]
	i.idx++
	return r.Copy(), nil
}

func (i *sliceRowIter) Close(*Context) error {
	i.rows = nil
	return nil
}
