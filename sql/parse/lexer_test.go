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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshql/meshql/sql/dialect"
)

func TestLexNumber(t *testing.T) {
	cases := []struct {
		input string
		value string
		typ   TokenType
	}{
		{"12", "12", IntToken},
		{"12.45", "12.45", FloatToken},
		{"1dkejrw", "1d", ErrorToken},
	}

	for _, tt := range cases {
		l := NewLexer(tt.input, dialect.ANSI)
		tok := l.Next()
		assert.Equal(t, tt.typ, tok.Type, tt.input)
		assert.Equal(t, tt.value, tok.Value, tt.input)
	}
}

func TestLexString(t *testing.T) {
	cases := []struct {
		input string
		value string
	}{
		{`'foo bar'`, "foo bar"},
		{`'it''s'`, "it's"},
		{`'a\tb'`, "a\tb"},
	}

	for _, tt := range cases {
		l := NewLexer(tt.input, dialect.ANSI)
		tok := l.Next()
		assert.Equal(t, StringToken, tok.Type, tt.input)
		assert.Equal(t, tt.value, tok.Value, tt.input)
	}
}

func TestLexQuotedIdentifierPerDialect(t *testing.T) {
	cases := []struct {
		input   string
		dialect dialect.ID
		value   string
	}{
		{`"order"`, dialect.Postgres, "order"},
		{"`order`", dialect.MySQL, "order"},
		{`[order]`, dialect.SQLServer, "order"},
		{`"emb""edded"`, dialect.ANSI, `emb"edded`},
	}

	for _, tt := range cases {
		l := NewLexer(tt.input, tt.dialect)
		tok := l.Next()
		assert.Equal(t, QuotedIdentifierToken, tok.Type, tt.input)
		assert.Equal(t, tt.value, tok.Value, tt.input)
	}
}

func TestLexLine(t *testing.T) {
	require := require.New(t)

	expected := []struct {
		typ TokenType
		val string
	}{
		{KeywordToken, "SELECT"},
		{IdentifierToken, "b"},
		{DotToken, "."},
		{IdentifierToken, "foo"},
		{CommaToken, ","},
		{IdentifierToken, "b"},
		{DotToken, "."},
		{IdentifierToken, "bar"},
		{KeywordToken, "FROM"},
		{IdentifierToken, "baz"},
		{KeywordToken, "AS"},
		{IdentifierToken, "b"},
		{KeywordToken, "WHERE"},
		{LeftParenToken, "("},
		{IdentifierToken, "b"},
		{DotToken, "."},
		{IdentifierToken, "a"},
		{OpToken, "="},
		{StringToken, "foo"},
		{RightParenToken, ")"},
		{KeywordToken, "ORDER"},
		{KeywordToken, "BY"},
		{IdentifierToken, "id"},
		{KeywordToken, "DESC"},
		{SemicolonToken, ";"},
		{EOFToken, ""},
	}

	l := NewLexer("SELECT b.foo, b.bar\nFROM baz AS b\nWHERE (b.a = 'foo') ORDER BY id DESC;", dialect.ANSI)
	for _, e := range expected {
		tok := l.Next()
		require.Equal(e.typ, tok.Type)
		require.Equal(e.val, tok.Value)
	}
}

func TestLexCommentsAttachToNextToken(t *testing.T) {
	require := require.New(t)

	l := NewLexer("/* block */ -- line\nSELECT", dialect.ANSI)
	tok := l.Next()
	require.Equal(KeywordToken, tok.Type)
	require.Len(tok.Comments, 2)
	require.Equal("/* block */", tok.Comments[0].Text)
	require.Equal("-- line", tok.Comments[1].Text)
}

func TestLexPositions(t *testing.T) {
	require := require.New(t)

	l := NewLexer("SELECT\n  a", dialect.ANSI)
	tok := l.Next()
	require.Equal(1, tok.Pos.Line)
	require.Equal(1, tok.Pos.Column)

	tok = l.Next()
	require.Equal(2, tok.Pos.Line)
	require.Equal(3, tok.Pos.Column)
}
