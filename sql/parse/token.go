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

package parse

import (
	"strings"

	"github.com/meshql/meshql/sql/ast"
	"github.com/meshql/meshql/sql/dialect"
)

// TokenType classifies a lexed token.
type TokenType byte

const (
	ErrorToken TokenType = iota
	EOFToken
	KeywordToken
	IdentifierToken
	QuotedIdentifierToken
	StringToken
	IntToken
	FloatToken
	OpToken
	DotToken
	CommaToken
	LeftParenToken
	RightParenToken
	SemicolonToken
)

func (t TokenType) String() string {
	switch t {
	case EOFToken:
		return "end of statement"
	case KeywordToken:
		return "keyword"
	case IdentifierToken:
		return "identifier"
	case QuotedIdentifierToken:
		return "quoted identifier"
	case StringToken:
		return "string"
	case IntToken:
		return "integer"
	case FloatToken:
		return "number"
	case OpToken:
		return "operator"
	case DotToken:
		return "'.'"
	case CommaToken:
		return "','"
	case LeftParenToken:
		return "'('"
	case RightParenToken:
		return "')'"
	case SemicolonToken:
		return "';'"
	default:
		return "invalid token"
	}
}

// Token is one lexed unit. Comment trivia encountered before the token is
// attached to it, positioned where each comment started.
type Token struct {
	Type     TokenType
	Value    string
	Pos      ast.Pos
	Comments []ast.Comment
}

// IsKeyword reports whether the token is the given keyword, matched
// case-insensitively.
func (t Token) IsKeyword(kw string) bool {
	return t.Type == KeywordToken && strings.EqualFold(t.Value, kw)
}

// IsOp reports whether the token is the given operator.
func (t Token) IsOp(op string) bool {
	return t.Type == OpToken && t.Value == op
}

// IsKeywordName reports whether the given word is reserved. The word table
// is shared with the dialect converter, which uses it to decide when an
// identifier must be quoted.
func IsKeywordName(word string) bool {
	return dialect.IsReservedWord(word)
}
