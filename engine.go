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

// Package meshql is a federated SQL engine: one statement, planned across
// heterogeneous data sources, answered as a single row stream.
package meshql

import (
	"context"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/meshql/meshql/connector"
	"github.com/meshql/meshql/sql"
	"github.com/meshql/meshql/sql/analyzer"
	"github.com/meshql/meshql/sql/ast"
	"github.com/meshql/meshql/sql/dialect"
	"github.com/meshql/meshql/sql/parse"
	"github.com/meshql/meshql/sql/physical"
)

// Config for the Engine.
type Config struct {
	// QueryTimeout bounds one query end to end. Zero means the default.
	QueryTimeout time.Duration
	// IntermediateResultLimit caps rows materialized between operators.
	// Zero means the default.
	IntermediateResultLimit int
	// CostBased turns on cost-based join-order selection.
	CostBased bool
	// HealthInitialDelay and HealthInterval drive the per-source health
	// checks. A zero interval disables scheduling.
	HealthInitialDelay time.Duration
	HealthInterval     time.Duration
	// Logger receives engine logs. nil uses the standard logger.
	Logger *logrus.Entry
	// Tracer receives spans. nil disables tracing.
	Tracer opentracing.Tracer
}

// Engine is a federated SQL engine.
type Engine struct {
	Catalog  *sql.Catalog
	Registry *connector.Registry
	Analyzer *analyzer.Analyzer
	Health   *connector.HealthScheduler

	builder *physical.Builder
	cfg     Config
	logger  *logrus.Entry
}

// New creates an engine over the given connector registry. Call Init to
// discover schemas and start health checks, and Close to release
// everything.
func New(registry *connector.Registry, cfg *Config) *Engine {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = sql.QueryTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	catalog := sql.NewCatalog()
	a := analyzer.NewDefault(catalog)
	a.CostBased = cfg.CostBased

	health := connector.NewHealthScheduler(connector.AdapterHealthChecker(registry), logger)

	e := &Engine{
		Catalog:  catalog,
		Registry: registry,
		Analyzer: a,
		Health:   health,
		cfg:      *cfg,
		logger:   logger,
	}
	e.builder = &physical.Builder{
		Catalog:           catalog,
		Opener:            registry.Connect,
		Dialects:          registry.SourceDialect,
		Healthy:           health.IsHealthy,
		IntermediateLimit: cfg.IntermediateResultLimit,
		CostBased:         cfg.CostBased,
	}

	// A source that goes down takes its cached schemas with it, so stale
	// plans stop being produced against it.
	health.SetListener(func(r connector.HealthCheckResult) {
		if r.Status == connector.Down {
			catalog.RemoveDataSource(r.Source)
		}
	})

	return e
}

// Init discovers every configured source's schema into the catalog and
// schedules its health checks.
func (e *Engine) Init(ctx *sql.Context) error {
	err := e.Registry.Discover(ctx, e.Catalog)

	if e.cfg.HealthInterval > 0 {
		for _, cfg := range e.Registry.Sources() {
			e.Health.Schedule(cfg.Name, cfg, e.cfg.HealthInitialDelay, e.cfg.HealthInterval)
		}
	}
	return err
}

// NewContext returns a query context carrying the engine's logger and
// tracer and the configured timeout. The returned cancel must be called
// when the query finishes.
func (e *Engine) NewContext(parent context.Context, query string) (*sql.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, e.cfg.QueryTimeout)
	opts := []sql.ContextOption{sql.WithLogger(e.logger), sql.WithQuery(query)}
	if e.cfg.Tracer != nil {
		opts = append(opts, sql.WithTracer(e.cfg.Tracer))
	}
	return sql.NewContext(ctx, opts...), cancel
}

// Query parses, plans and starts one statement, in the extended grammar.
// The result streams: rows are pulled from the sources as the caller
// consumes the iterator.
func (e *Engine) Query(ctx *sql.Context, query string) (sql.Schema, sql.RowIter, error) {
	return e.queryStatement(ctx, query, func() (ast.Statement, error) {
		return parse.ParseExtended(query)
	})
}

// QueryDialect is Query with the statement written in a specific dialect.
func (e *Engine) QueryDialect(ctx *sql.Context, query string, d dialect.ID) (sql.Schema, sql.RowIter, error) {
	return e.queryStatement(ctx, query, func() (ast.Statement, error) {
		return parse.Parse(query, d)
	})
}

func (e *Engine) queryStatement(ctx *sql.Context, query string, parseFn func() (ast.Statement, error)) (sql.Schema, sql.RowIter, error) {
	span, ctx := ctx.Span("query", opentracing.Tag{Key: "query", Value: query})
	defer span.Finish()

	stmt, err := parseFn()
	if err != nil {
		return nil, nil, err
	}

	optimized, err := e.Analyzer.Analyze(ctx, stmt)
	if err != nil {
		return nil, nil, err
	}

	node, plan, err := e.builder.Build(ctx, optimized, uuid.NewV4().String())
	if err != nil {
		return nil, nil, err
	}
	ctx.Logger().WithField("stages", len(plan.Stages)).Debugf("built plan %s", plan.ID)

	iter, err := node.RowIter(ctx)
	if err != nil {
		return nil, nil, err
	}
	return node.Schema(), iter, nil
}

// Execute runs a statement to completion and materializes the outcome.
// Errors become a failed QueryResult instead of an error return; truncation
// warnings ride on the successful result.
func (e *Engine) Execute(parent context.Context, query string) *sql.QueryResult {
	ctx, cancel := e.NewContext(parent, query)
	defer cancel()

	start := time.Now()
	schema, iter, err := e.Query(ctx, query)
	if err != nil {
		return sql.NewQueryFailure(err)
	}

	result, err := sql.NewQueryResult(ctx, schema, iter)
	if err != nil {
		return sql.NewQueryFailure(err)
	}
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	return result
}

// Translate renders a statement written in one dialect into another. The
// error lists every feature the target cannot express.
func Translate(query string, from, to dialect.ID) (string, error) {
	stmt, err := parse.Parse(query, from)
	if err != nil {
		return "", err
	}
	return dialect.Unparse(stmt, to)
}

// Close shuts down the health scheduler and every adapter.
func (e *Engine) Close() error {
	e.Health.Shutdown()
	return e.Registry.CloseAll()
}
