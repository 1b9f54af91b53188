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
	"fmt"
	"io"

	"github.com/meshql/meshql/sql"
)

// MaxIntermediateRows is the default cap on rows any single operator may
// materialize (sort input, hash join build side, aggregation state).
const MaxIntermediateRows = 100000

// TruncationWarning is the warning code attached to results whose
// intermediate data was cut at the cap.
const TruncationWarning = 1105

// ResultLimiter guards materializing operators. When an operator would
// ingest more than Max rows it keeps the first Max rows, drains the rest
// without keeping them, records a truncation warning, and continues with the
// partial set. This is a warning, not a
// failure.
type ResultLimiter struct {
	Max int
}

// NewResultLimiter creates a limiter with the given cap, or the default cap
// if max is 0 or less.
func NewResultLimiter(max int) *ResultLimiter {
	if max <= 0 {
		max = MaxIntermediateRows
	}
	return &ResultLimiter{Max: max}
}

// truncationMessage is the warning text attached when an operator cuts its
// intermediate data at the cap.
func truncationMessage(max, total int) string {
	return fmt.Sprintf("Intermediate result limited to %d rows (total: %d)", max, total)
}

// Collect drains the iterator into memory, stopping at the cap. When the cap
// is hit the rest of the input is drained without being kept, so the total
// count can be reported, and a warning is raised on the context. The
// returned result carries the rows kept, whether truncation happened, and
// the warning text.
func (l *ResultLimiter) Collect(ctx *sql.Context, iter sql.RowIter) (*sql.LimitedResult, error) {
	var rows []sql.Row
	total := 0
	for {
		if err := ctx.Error(); err != nil {
			_ = iter.Close(ctx)
			return nil, err
		}

		row, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = iter.Close(ctx)
			return nil, err
		}

		total++
		if total <= l.Max {
			rows = append(rows, row)
		}
	}
	if err := iter.Close(ctx); err != nil {
		return nil, err
	}

	result := &sql.LimitedResult{
		Rows:      rows,
		RowCount:  len(rows),
		Truncated: total > l.Max,
	}
	if result.Truncated {
		result.Warning = truncationMessage(l.Max, total)
		ctx.Warn(TruncationWarning, "%s", result.Warning)
		ctx.Logger().Warnf("%s", result.Warning)
	}
	return result, nil
}
