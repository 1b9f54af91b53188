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

// Package physical lowers the optimized syntax tree into an executable plan:
// a DAG of stages, each either pushed to one data source as SQL or run
// locally as an operator tree.
package physical

import (
	"fmt"

	uuid "github.com/satori/go.uuid"

	"github.com/meshql/meshql/sql/cost"
)

// Stage is one unit of the physical plan. A pushed stage carries the SQL
// string its source runs; a local stage carries the names of the operators
// it evaluates.
type Stage struct {
	ID string
	// DataSourceID is the configured name of the source for pushed stages,
	// empty for local stages.
	DataSourceID string
	PushedSQL    string
	LocalOps     []string
	EstimatedRows float64
	EstimatedCost cost.Cost
}

// Pushed reports whether the stage runs at a data source.
func (s *Stage) Pushed() bool { return s.DataSourceID != "" }

// ExecutionPlan is the stage DAG of one query. Stages hold no parent
// pointers; ParentOf records each stage's single consumer.
type ExecutionPlan struct {
	ID      string
	QueryID string
	Stages  []*Stage
	// RootStageID is the stage whose output is the query result.
	RootStageID string
	// ParentOf maps a stage id to the id of its consuming stage. The root
	// has no entry.
	ParentOf                map[string]string
	IntermediateResultLimit int
	EstimatedCost           cost.Cost
}

// newExecutionPlan creates an empty plan for the given query.
func newExecutionPlan(queryID string, limit int) *ExecutionPlan {
	return &ExecutionPlan{
		ID:                      uuid.NewV4().String(),
		QueryID:                 queryID,
		ParentOf:                map[string]string{},
		IntermediateResultLimit: limit,
	}
}

// addStage appends a stage and returns it.
func (p *ExecutionPlan) addStage(s *Stage) *Stage {
	s.ID = fmt.Sprintf("stage-%d", len(p.Stages))
	p.Stages = append(p.Stages, s)
	return s
}

// setRoot marks the root stage and re-parents every orphan stage to it.
func (p *ExecutionPlan) setRoot(s *Stage) {
	p.RootStageID = s.ID
	for _, stage := range p.Stages {
		if stage.ID == s.ID {
			continue
		}
		if _, ok := p.ParentOf[stage.ID]; !ok {
			p.ParentOf[stage.ID] = s.ID
		}
	}
}

// Stage returns the stage with the given id, or nil.
func (p *ExecutionPlan) Stage(id string) *Stage {
	for _, s := range p.Stages {
		if s.ID == id {
			return s
		}
	}
	return nil
}
