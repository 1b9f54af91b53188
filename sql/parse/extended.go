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
	"github.com/meshql/meshql/sql/ast"
)

// parseShow handles SHOW TABLES [(FROM|IN) ident] [LIKE pat] [WHERE expr],
// SHOW (DATABASES|SCHEMAS) [LIKE pat] and SHOW COLUMNS FROM tbl.
func (p *parser) parseShow() (ast.Statement, error) {
	pos := p.tok.Pos
	p.next() // SHOW

	switch {
	case p.tok.IsKeyword("TABLES"):
		p.next()
		show := &ast.ShowTables{}
		show.Position = pos

		if p.acceptKeyword("FROM") || p.acceptKeyword("IN") {
			db, err := p.parseName()
			if err != nil {
				return nil, err
			}
			show.Db = db
		}
		if p.acceptKeyword("LIKE") {
			pat, err := p.expectType(StringToken)
			if err != nil {
				return nil, err
			}
			show.SetLike(pat.Value)
		}
		if p.acceptKeyword("WHERE") {
			where, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			show.Where = where
		}
		return show, nil

	case p.tok.IsKeyword("DATABASES"), p.tok.IsKeyword("SCHEMAS"):
		show := &ast.ShowSchemas{Databases: p.tok.IsKeyword("DATABASES")}
		show.Position = pos
		p.next()
		if p.acceptKeyword("LIKE") {
			pat, err := p.expectType(StringToken)
			if err != nil {
				return nil, err
			}
			show.SetLike(pat.Value)
		}
		return show, nil

	case p.tok.IsKeyword("COLUMNS"):
		p.next()
		if !p.acceptKeyword("FROM") && !p.acceptKeyword("IN") {
			return nil, p.unexpected("FROM", "IN")
		}
		table, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		show := &ast.ShowColumns{Table: table}
		show.Position = pos
		return show, nil
	}

	return nil, p.unexpected("TABLES", "DATABASES", "SCHEMAS", "COLUMNS")
}

func (p *parser) parseUse() (ast.Statement, error) {
	pos := p.tok.Pos
	p.next() // USE
	name, err := p.parseName()
	if err != nil {
		return nil, err
	}
	use := &ast.Use{Schema: name}
	use.Position = pos
	return use, nil
}

// parseExplain handles EXPLAIN <stmt> and its DESCRIBE alias.
func (p *parser) parseExplain() (ast.Statement, error) {
	pos := p.tok.Pos
	p.next() // EXPLAIN or DESCRIBE
	stmt, err := p.parseStatement(true)
	if err != nil {
		return nil, err
	}
	explain := &ast.Explain{Stmt: stmt}
	explain.Position = pos
	return explain, nil
}
