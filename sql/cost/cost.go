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

// Package cost implements the cost model of the planner: a weighted cost
// tuple and a bounded join-order search over it.
package cost

import (
	"fmt"
	"math"
)

// Weights of the scalar cost: total = cpu*WeightCPU + io*WeightIO +
// network*WeightNetwork + memory*WeightMemory.
const (
	WeightCPU     = 1.0
	WeightIO      = 10.0
	WeightNetwork = 100.0
	WeightMemory  = 0.1
)

// Selectivity factors applied to join cardinality estimates.
const (
	EquiJoinSelectivity  = 0.1
	ThetaJoinSelectivity = 0.3
)

// Cost is the estimated cost of a (sub)plan.
type Cost struct {
	Rows    float64
	CPU     float64
	IO      float64
	Network float64
	Memory  float64
}

// Zero is the cost of doing nothing.
var Zero = Cost{}

// Infinite is a sentinel cost that dominates and absorbs every operation.
var Infinite = Cost{
	Rows:    math.Inf(1),
	CPU:     math.Inf(1),
	IO:      math.Inf(1),
	Network: math.Inf(1),
	Memory:  math.Inf(1),
}

// Huge is a finite but dominating cost used to prune undesirable plans
// without making them unrepresentable.
var Huge = Cost{
	Rows:    1e12,
	CPU:     1e12,
	IO:      1e12,
	Network: 1e12,
	Memory:  1e12,
}

// IsInfinite reports whether the cost is the infinite sentinel.
func (c Cost) IsInfinite() bool {
	return math.IsInf(c.CPU, 1)
}

// Total is the weighted scalar of the tuple.
func (c Cost) Total() float64 {
	if c.IsInfinite() {
		return math.Inf(1)
	}
	return c.CPU*WeightCPU + c.IO*WeightIO + c.Network*WeightNetwork + c.Memory*WeightMemory
}

// Plus adds two costs component-wise. Infinity propagates.
func (c Cost) Plus(o Cost) Cost {
	if c.IsInfinite() || o.IsInfinite() {
		return Infinite
	}
	return Cost{
		Rows:    c.Rows + o.Rows,
		CPU:     c.CPU + o.CPU,
		IO:      c.IO + o.IO,
		Network: c.Network + o.Network,
		Memory:  c.Memory + o.Memory,
	}
}

// Times scales the cost by a factor. Infinity propagates.
func (c Cost) Times(f float64) Cost {
	if c.IsInfinite() {
		return Infinite
	}
	return Cost{
		Rows:    c.Rows * f,
		CPU:     c.CPU * f,
		IO:      c.IO * f,
		Network: c.Network * f,
		Memory:  c.Memory * f,
	}
}

// Less reports whether this cost's weighted total is lower than the other's.
func (c Cost) Less(o Cost) bool {
	return c.Total() < o.Total()
}

func (c Cost) String() string {
	if c.IsInfinite() {
		return "cost(inf)"
	}
	return fmt.Sprintf("cost(rows=%.0f cpu=%.1f io=%.1f net=%.1f mem=%.1f total=%.1f)",
		c.Rows, c.CPU, c.IO, c.Network, c.Memory, c.Total())
}

// Scan estimates the cost of reading n source-reported rows from a remote
// source: IO at the source plus network transfer.
func Scan(rows float64) Cost {
	return Cost{Rows: rows, IO: rows, Network: rows}
}

// LocalScan estimates the cost of reading n rows already in memory.
func LocalScan(rows float64) Cost {
	return Cost{Rows: rows, CPU: rows}
}

// Join estimates the cost of joining two inputs. Equi-joins are more
// selective than theta joins; the smaller input is assumed to be the hash
// build side and held in memory.
func Join(left, right Cost, equi bool) Cost {
	if left.IsInfinite() || right.IsInfinite() {
		return Infinite
	}
	selectivity := ThetaJoinSelectivity
	if equi {
		selectivity = EquiJoinSelectivity
	}
	out := left.Rows * right.Rows * selectivity
	build := math.Min(left.Rows, right.Rows)
	return left.Plus(right).Plus(Cost{
		Rows:   out - left.Rows - right.Rows,
		CPU:    left.Rows + right.Rows + out,
		Memory: build,
	})
}
