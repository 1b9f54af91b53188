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

package cost

// MaxEnumeratedRelations bounds the exhaustive join-order search. Above it
// the planner keeps the heuristic order.
const MaxEnumeratedRelations = 8

// Relation is one join input as the search sees it: its estimated row count,
// its data source, and which other relations it has equi-join edges to.
type Relation struct {
	Name      string
	Rows      float64
	Source    string
	EquiEdges []int
}

// BestOrder enumerates every left-deep order of the given relations and
// returns the indexes of the cheapest one together with its cost. With more
// than MaxEnumeratedRelations inputs (or fewer than two) it returns nil,
// meaning: keep the heuristic order.
func BestOrder(relations []Relation) ([]int, Cost) {
	n := len(relations)
	if n < 2 || n > MaxEnumeratedRelations {
		return nil, Zero
	}

	best := Infinite
	var bestOrder []int
	order := make([]int, 0, n)
	used := make([]bool, n)

	var recurse func(c Cost, rows float64)
	recurse = func(c Cost, rows float64) {
		if len(order) == n {
			if c.Less(best) {
				best = c
				bestOrder = append([]int(nil), order...)
			}
			return
		}
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			next := relations[i]
			var nc Cost
			var nrows float64
			if len(order) == 0 {
				nc = c.Plus(Scan(next.Rows))
				nrows = next.Rows
			} else {
				equi := hasEdge(relations, order, i)
				left := Cost{Rows: rows}
				right := Scan(next.Rows)
				nc = c.Plus(Join(left, right, equi))
				selectivity := ThetaJoinSelectivity
				if equi {
					selectivity = EquiJoinSelectivity
				}
				nrows = rows * next.Rows * selectivity
			}
			if !nc.Less(best) {
				continue // prune: already worse than the best full order
			}
			used[i] = true
			order = append(order, i)
			recurse(nc, nrows)
			order = order[:len(order)-1]
			used[i] = false
		}
	}
	recurse(Zero, 0)

	return bestOrder, best
}

func hasEdge(relations []Relation, placed []int, next int) bool {
	for _, p := range placed {
		for _, e := range relations[p].EquiEdges {
			if e == next {
				return true
			}
		}
		for _, e := range relations[next].EquiEdges {
			if e == p {
				return true
			}
		}
	}
	return false
}

// HeuristicOrder returns the relation indexes ordered by increasing
// estimated cardinality, the left-deep order the rule-based optimizer uses.
func HeuristicOrder(relations []Relation) []int {
	order := make([]int, len(relations))
	for i := range order {
		order[i] = i
	}
	// Insertion sort keeps the order stable for equal cardinalities.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && relations[order[j]].Rows < relations[order[j-1]].Rows; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}
