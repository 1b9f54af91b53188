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

package similartext

import (
	"fmt"
	"reflect"
	"strings"
)

// DistanceForStrings returns the Levenshtein edit distance between the two
// strings.
func DistanceForStrings(source, target []rune) int {
	if len(source) == 0 {
		return len(target)
	}
	if len(target) == 0 {
		return len(source)
	}

	prev := make([]int, len(target)+1)
	curr := make([]int, len(target)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(source); i++ {
		curr[0] = i
		for j := 1; j <= len(target); j++ {
			cost := 1
			if source[i-1] == target[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(target)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// MaxDistanceIgnored is the maximum Levenshtein distance from which
// we won't consider a string similar at all and thus will be ignored.
var MaxDistanceIgnored = 3

// Find returns a string with suggestions for name(s) in `names`
// similar to the string `src` until a max distance of `MaxDistanceIgnored`.
func Find(names []string, src string) string {
	if len(src) == 0 {
		return ""
	}

	minDistance := -1
	var matches []string
	for _, name := range names {
		dist := DistanceForStrings([]rune(strings.ToLower(name)), []rune(strings.ToLower(src)))
		if dist > MaxDistanceIgnored {
			continue
		}

		if minDistance == -1 || dist < minDistance {
			minDistance = dist
			matches = []string{name}
		} else if dist == minDistance {
			matches = append(matches, name)
		}
	}

	if len(matches) == 0 {
		return ""
	}

	return fmt.Sprintf(", maybe you mean %s?", strings.Join(matches, " or "))
}

// FindFromMap does the same as Find but taking a map instead
// of a string array as first argument.
func FindFromMap(names interface{}, src string) string {
	rnames := reflect.ValueOf(names)
	if rnames.Kind() != reflect.Map {
		panic("Implementation error: non map used as first argument " +
			"to FindFromMap")
	}

	t := rnames.Type()
	if t.Key().Kind() != reflect.String {
		panic("Implementation error: non string key for map used as " +
			"first argument to FindFromMap")
	}

	var namesList []string
	for _, kv := range rnames.MapKeys() {
		namesList = append(namesList, kv.String())
	}

	return Find(namesList, src)
}
