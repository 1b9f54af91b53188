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

package dialect

import "strings"

// SqlWriter is the emission contract of the pretty printer: keywords and
// tokens are emitted in order and the writer decides spacing and layout.
type SqlWriter interface {
	// WriteKeyword emits a SQL keyword, uppercased.
	WriteKeyword(kw string)
	// WriteToken emits a non-keyword token verbatim.
	WriteToken(tok string)
	// Indent increases the indent level of subsequent lines.
	Indent()
	// Dedent decreases the indent level.
	Dedent()
	// String returns everything written so far.
	String() string
}

// NewSqlWriter returns the default single-line writer.
func NewSqlWriter() SqlWriter {
	return &sqlWriter{}
}

type sqlWriter struct {
	buf    strings.Builder
	indent int
}

// noSpaceBefore are tokens that attach to the previous token.
var noSpaceBefore = map[string]bool{")": true, ",": true, ".": true}

// noSpaceAfter are tokens the next token attaches to.
var noSpaceAfter = map[string]bool{"(": true, ".": true}

func (w *sqlWriter) write(s string) {
	if w.buf.Len() > 0 && !noSpaceBefore[s] {
		prev := w.buf.String()
		last := prev[len(prev)-1:]
		if !noSpaceAfter[last] {
			w.buf.WriteByte(' ')
		}
	}
	w.buf.WriteString(s)
}

func (w *sqlWriter) WriteKeyword(kw string) { w.write(strings.ToUpper(kw)) }

func (w *sqlWriter) WriteToken(tok string) { w.write(tok) }

func (w *sqlWriter) Indent() { w.indent++ }

func (w *sqlWriter) Dedent() {
	if w.indent > 0 {
		w.indent--
	}
}

func (w *sqlWriter) String() string { return w.buf.String() }
