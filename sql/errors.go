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

import (
	"gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrSyntax is returned when a statement cannot be parsed. The message
	// carries the position and the expected tokens.
	ErrSyntax = errors.NewKind("syntax error at %s: %s")

	// ErrSemantic is returned for statements that parse but do not resolve,
	// such as type mismatches.
	ErrSemantic = errors.NewKind("semantic error: %s")

	// ErrTranslation is returned when the dialect converter cannot render an
	// AST for the requested target dialect.
	ErrTranslation = errors.NewKind("cannot translate to %s: %s")

	// ErrPlan is returned when the planner violates one of its invariants,
	// for example when no candidate plan exists for a query.
	ErrPlan = errors.NewKind("plan error: %s")

	// ErrSource wraps a remote data source failure. Transience is tagged
	// separately via SourceError.
	ErrSource = errors.NewKind("data source %s: %s")

	// ErrCancelled is returned when a query is cancelled cooperatively.
	ErrCancelled = errors.NewKind("query cancelled")

	// ErrTimeout is returned when a query exceeds its allotted time.
	ErrTimeout = errors.NewKind("query timed out after %s")

	// ErrDatabaseNotFound is returned when a database is not found.
	ErrDatabaseNotFound = errors.NewKind("database not found: %s%s")

	// ErrTableNotFound is returned when a table is not found.
	ErrTableNotFound = errors.NewKind("table not found: %s%s")

	// ErrColumnNotFound is returned when a column could not be resolved.
	ErrColumnNotFound = errors.NewKind("column %q could not be found in any table in scope")

	// ErrAmbiguousReference is returned when an identifier resolves to more
	// than one table or schema.
	ErrAmbiguousReference = errors.NewKind("ambiguous reference %q, present in %s")

	// ErrAmbiguousColumnName is returned when a column is present in more
	// than one table in scope.
	ErrAmbiguousColumnName = errors.NewKind("ambiguous column name %q, it's present in all these tables: %v")

	// ErrInvalidType is thrown when there is an unexpected type in an
	// expression or conversion.
	ErrInvalidType = errors.NewKind("invalid type: %v")

	// ErrUnsupportedFeature is thrown when something is not supported by the
	// engine yet.
	ErrUnsupportedFeature = errors.NewKind("unsupported feature: %s")

	// ErrInvalidOperandColumns is returned when the columns in the left
	// operand and the elements of the right operand don't match.
	ErrInvalidOperandColumns = errors.NewKind("operand should have %d columns, but has %d")

	// ErrInvalidChildrenNumber is returned when the WithChildren method of a
	// node or expression is called with an invalid number of arguments.
	ErrInvalidChildrenNumber = errors.NewKind("%v: invalid children number, got %d, expected %d")

	// ErrInvalidExpressionNumber is returned when the WithExpressions method
	// of a node is called with an invalid number of arguments.
	ErrInvalidExpressionNumber = errors.NewKind("%v: invalid expression number, got %d, expected %d")

	// ErrIteratorClosed is returned when Next is called on a closed
	// iterator.
	ErrIteratorClosed = errors.NewKind("iterator was closed")
)

// SourceError is an error originated at a data source, tagged with whether it
// is transient and therefore worth retrying.
type SourceError struct {
	// SourceName is the configured name of the failing source.
	SourceName string
	// Transient reports whether a retry may succeed.
	Transient bool
	// Cause is the underlying driver error.
	Cause error
}

func (e *SourceError) Error() string {
	return ErrSource.New(e.SourceName, e.Cause).Error()
}

// Unwrap returns the underlying driver error.
func (e *SourceError) Unwrap() error { return e.Cause }

// NewSourceError creates a SourceError for the given source.
func NewSourceError(sourceName string, transient bool, cause error) *SourceError {
	return &SourceError{SourceName: sourceName, Transient: transient, Cause: cause}
}

// IsTransient reports whether err is a SourceError marked transient.
func IsTransient(err error) bool {
	if se, ok := err.(*SourceError); ok {
		return se.Transient
	}
	return false
}
