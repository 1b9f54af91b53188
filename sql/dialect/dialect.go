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

// Package dialect owns everything that differs between SQL products:
// identifier quoting, pagination encoding, boolean and timestamp tokens, and
// the unparser that renders an AST in a target dialect.
package dialect

import (
	"strings"

	"gopkg.in/src-d/go-errors.v1"
)

// ID identifies a supported SQL dialect.
type ID byte

const (
	// ANSI is standard SQL, the default emission.
	ANSI ID = iota
	// MySQL dialect.
	MySQL
	// Postgres dialect.
	Postgres
	// Oracle dialect.
	Oracle
	// SQLServer is Transact-SQL.
	SQLServer
	// Hive is HiveQL.
	Hive
)

// ErrUnknownDialect is returned when a dialect name does not match any
// supported dialect.
var ErrUnknownDialect = errors.NewKind("unknown dialect: %s")

func (d ID) String() string {
	switch d {
	case MySQL:
		return "mysql"
	case Postgres:
		return "postgresql"
	case Oracle:
		return "oracle"
	case SQLServer:
		return "sqlserver"
	case Hive:
		return "hive"
	default:
		return "ansi"
	}
}

// FromName returns the dialect with the given name. Matching is
// case-insensitive and accepts common aliases.
func FromName(name string) (ID, error) {
	switch strings.ToLower(name) {
	case "ansi", "sql", "standard", "":
		return ANSI, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "postgresql", "postgres", "pg":
		return Postgres, nil
	case "oracle":
		return Oracle, nil
	case "sqlserver", "mssql", "tsql":
		return SQLServer, nil
	case "hive", "hiveql":
		return Hive, nil
	default:
		return ANSI, ErrUnknownDialect.New(name)
	}
}

// All returns every supported dialect.
func All() []ID {
	return []ID{ANSI, MySQL, Postgres, Oracle, SQLServer, Hive}
}

// PaginationStyle is how a dialect encodes fetch/offset.
type PaginationStyle byte

const (
	// LimitOffset renders LIMIT n OFFSET k.
	LimitOffset PaginationStyle = iota
	// OffsetFetch renders OFFSET k ROWS FETCH NEXT n ROWS ONLY.
	OffsetFetch
	// FetchFirst renders FETCH FIRST n ROWS ONLY; no offset support.
	FetchFirst
	// LimitOnly renders LIMIT n; no offset support.
	LimitOnly
)

// Traits describes the rendering policy of one dialect.
type Traits struct {
	// QuoteOpen and QuoteClose delimit quoted identifiers. Embedded closing
	// quotes are doubled.
	QuoteOpen  rune
	QuoteClose rune
	// Pagination is the fetch/offset encoding.
	Pagination PaginationStyle
	// BoolAsInt is true where TRUE/FALSE must render as 1/0.
	BoolAsInt bool
	// NowToken is the "current timestamp" spelling.
	NowToken string
	// EmptyFrom is emitted when a query has no FROM clause, or empty to
	// omit the clause.
	EmptyFrom string
	// SupportsFullJoin is false where FULL OUTER JOIN cannot be rendered.
	SupportsFullJoin bool
	// SupportsOffset is false where an OFFSET cannot be rendered.
	SupportsOffset bool
	// LegacyPagination switches Oracle to the pre-12c ROWNUM encoding.
	LegacyPagination bool
}

var traits = map[ID]Traits{
	ANSI: {
		QuoteOpen: '"', QuoteClose: '"',
		Pagination: FetchFirst,
		NowToken:   "CURRENT_TIMESTAMP",
		SupportsFullJoin: true,
	},
	MySQL: {
		QuoteOpen: '`', QuoteClose: '`',
		Pagination: LimitOffset,
		BoolAsInt:  true,
		NowToken:   "NOW()",
		SupportsOffset: true,
	},
	Postgres: {
		QuoteOpen: '"', QuoteClose: '"',
		Pagination: LimitOffset,
		NowToken:   "NOW()",
		SupportsFullJoin: true,
		SupportsOffset:   true,
	},
	Oracle: {
		QuoteOpen: '"', QuoteClose: '"',
		Pagination: OffsetFetch,
		BoolAsInt:  true,
		NowToken:   "SYSDATE",
		EmptyFrom:  "DUAL",
		SupportsFullJoin: true,
		SupportsOffset:   true,
	},
	SQLServer: {
		QuoteOpen: '[', QuoteClose: ']',
		Pagination: OffsetFetch,
		BoolAsInt:  true,
		NowToken:   "GETDATE()",
		SupportsFullJoin: true,
		SupportsOffset:   true,
	},
	Hive: {
		QuoteOpen: '`', QuoteClose: '`',
		Pagination: LimitOnly,
		NowToken:   "CURRENT_TIMESTAMP",
	},
}

// TraitsOf returns the rendering traits of the given dialect.
func TraitsOf(d ID) Traits {
	t, ok := traits[d]
	if !ok {
		return traits[ANSI]
	}
	return t
}

// QuoteIdentifier renders the identifier quoted for the dialect, doubling
// embedded closing quotes.
func QuoteIdentifier(name string, d ID) string {
	t := TraitsOf(d)
	escaped := strings.ReplaceAll(name, string(t.QuoteClose), string(t.QuoteClose)+string(t.QuoteClose))
	return string(t.QuoteOpen) + escaped + string(t.QuoteClose)
}

// reservedWords are the words every supported dialect may treat as keywords.
// An identifier spelled like one must always be quoted on emission.
var reservedWords = map[string]bool{
	"ALL": true, "AND": true, "AS": true, "ASC": true, "BETWEEN": true,
	"BY": true, "CASE": true, "COLUMNS": true, "CROSS": true,
	"CURRENT_TIMESTAMP": true, "DATABASES": true, "DATE": true,
	"DELETE": true, "DESC": true, "DESCRIBE": true, "DISTINCT": true,
	"DUAL": true, "ELSE": true, "END": true, "EXCEPT": true, "EXISTS": true,
	"EXPLAIN": true, "FALSE": true, "FETCH": true, "FIRST": true,
	"FROM": true, "FULL": true, "GROUP": true, "HAVING": true, "IN": true,
	"INNER": true, "INSERT": true, "INTERSECT": true, "INTERVAL": true,
	"INTO": true, "IS": true, "JOIN": true, "LEFT": true, "LIKE": true,
	"LIMIT": true, "NEXT": true, "NOT": true, "NULL": true, "OFFSET": true,
	"ON": true, "ONLY": true, "OR": true, "ORDER": true, "OUTER": true,
	"RIGHT": true, "ROW": true, "ROWS": true, "SCHEMAS": true,
	"SELECT": true, "SET": true, "SHOW": true, "TABLES": true, "THEN": true,
	"TIME": true, "TIMESTAMP": true, "TRUE": true, "UNION": true,
	"UPDATE": true, "USE": true, "USING": true, "VALUES": true,
	"WHEN": true, "WHERE": true,
}

// IsReservedWord reports whether the word is reserved in any supported
// dialect.
func IsReservedWord(word string) bool {
	return reservedWords[strings.ToUpper(word)]
}

// NeedsQuoting reports whether an identifier must be quoted to re-parse as
// an identifier: reserved words, empty names, and names with characters
// outside [A-Za-z0-9_$] or a leading digit.
func NeedsQuoting(name string) bool {
	if name == "" || IsReservedWord(name) {
		return true
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return true
			}
		default:
			return true
		}
	}
	return false
}
