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

import (
	"fmt"
	"strings"

	"gopkg.in/src-d/go-errors.v1"

	"github.com/meshql/meshql/sql/ast"
)

// errTranslation is the kind of every converter failure.
var errTranslation = errors.NewKind("cannot translate to %s: %s")

// IsTranslationError reports whether err came from the dialect converter.
func IsTranslationError(err error) bool {
	return errTranslation.Is(err)
}

// UnsupportedFeature is one syntax feature of a tree the target dialect
// cannot express, with the position it occurs at and a suggestion when one
// exists.
type UnsupportedFeature struct {
	Feature    string
	Position   ast.Pos
	Suggestion string
}

func (f UnsupportedFeature) String() string {
	s := fmt.Sprintf("%s at %s", f.Feature, f.Position)
	if f.Suggestion != "" {
		s += " (" + f.Suggestion + ")"
	}
	return s
}

func newTranslationError(target ID, features []UnsupportedFeature) error {
	strs := make([]string, len(features))
	for i, f := range features {
		strs[i] = f.String()
	}
	return errTranslation.New(target, strings.Join(strs, "; "))
}

// Check walks the tree and reports every syntax feature the target dialect
// does not support. An empty result means Unparse will succeed.
func Check(n ast.Node, target ID) []UnsupportedFeature {
	t := TraitsOf(target)
	var unsupported []UnsupportedFeature

	ast.Inspect(n, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.Join:
			if n.Type == ast.FullJoin && !t.SupportsFullJoin {
				unsupported = append(unsupported, UnsupportedFeature{
					Feature:    "FULL JOIN",
					Position:   n.Pos(),
					Suggestion: "rewrite as a UNION of LEFT and RIGHT joins",
				})
			}
		case *ast.SetOp:
			if (n.Type == ast.Intersect || n.Type == ast.Except) && (target == MySQL || target == Hive) {
				unsupported = append(unsupported, UnsupportedFeature{
					Feature:    n.Type.String(),
					Position:   n.Pos(),
					Suggestion: "rewrite with IN / NOT IN subqueries",
				})
			}
		case *ast.Select:
			if n.Limit != nil && n.Limit.Offset > 0 && !t.SupportsOffset && !t.LegacyPagination {
				unsupported = append(unsupported, UnsupportedFeature{
					Feature:    "OFFSET",
					Position:   n.Pos(),
					Suggestion: "apply the offset locally after fetching",
				})
			}
		}
		return true
	})

	return unsupported
}
