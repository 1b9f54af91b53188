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

package expression

import (
	"time"

	"github.com/meshql/meshql/sql"
)

// CurrentTimestamp evaluates to the wall-clock time of the pull that
// evaluates it.
type CurrentTimestamp struct{}

// NewCurrentTimestamp creates a CurrentTimestamp expression.
func NewCurrentTimestamp() *CurrentTimestamp { return &CurrentTimestamp{} }

// Resolved implements the Resolvable interface.
func (*CurrentTimestamp) Resolved() bool { return true }

// IsNullable implements the Expression interface.
func (*CurrentTimestamp) IsNullable() bool { return false }

// Type implements the Expression interface.
func (*CurrentTimestamp) Type() sql.Type { return sql.Timestamp }

// Eval implements the Expression interface.
func (*CurrentTimestamp) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	return time.Now().UTC(), nil
}

func (*CurrentTimestamp) String() string { return "CURRENT_TIMESTAMP" }

// Children implements the Expression interface.
func (*CurrentTimestamp) Children() []sql.Expression { return nil }

// WithChildren implements the Expression interface.
func (c *CurrentTimestamp) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 0 {
		return nil, sql.ErrInvalidChildrenNumber.New(c, len(children), 0)
	}
	return c, nil
}
