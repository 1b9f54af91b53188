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

package sql

import (
	"context"
	"fmt"
	"sync"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

// QueryTimeout is the default amount of time a query may run before its
// context is cancelled.
const QueryTimeout = 300 * time.Second

// Warning is a non-fatal condition raised during query execution, such as an
// intermediate result truncation.
type Warning struct {
	Code    int
	Message string
}

// warnings is shared by a root context and everything derived from it, so the
// result can report warnings regardless of which derived context raised them.
type warnings struct {
	mu    sync.Mutex
	warns []*Warning
}

func (w *warnings) add(code int, msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warns = append(w.warns, &Warning{Code: code, Message: msg})
}

func (w *warnings) all() []*Warning {
	w.mu.Lock()
	defer w.mu.Unlock()
	ws := make([]*Warning, len(w.warns))
	copy(ws, w.warns)
	return ws
}

// Context of the query execution. It carries the query id, the tracer, the
// logger and the cancellation signal every operator must honor at pull
// boundaries.
type Context struct {
	context.Context
	id     uuid.UUID
	query  string
	tracer opentracing.Tracer
	logger *logrus.Entry
	warns  *warnings
}

// ContextOption is a function to configure the context.
type ContextOption func(*Context)

// WithTracer adds the given tracer to the context.
func WithTracer(t opentracing.Tracer) ContextOption {
	return func(ctx *Context) {
		ctx.tracer = t
	}
}

// WithLogger adds the given logger entry to the context.
func WithLogger(l *logrus.Entry) ContextOption {
	return func(ctx *Context) {
		ctx.logger = l
	}
}

// WithQuery sets the query string being executed.
func WithQuery(q string) ContextOption {
	return func(ctx *Context) {
		ctx.query = q
	}
}

// NewContext creates a new query context.
func NewContext(ctx context.Context, opts ...ContextOption) *Context {
	c := &Context{
		Context: ctx,
		id:      uuid.NewV4(),
		tracer:  opentracing.NoopTracer{},
		warns:   &warnings{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	c.logger = c.logger.WithField("query_id", c.id.String())
	return c
}

// NewEmptyContext returns a default context with no timeout.
func NewEmptyContext() *Context { return NewContext(context.TODO()) }

// ID returns the unique id of this query context.
func (c *Context) ID() uuid.UUID { return c.id }

// Query returns the query string under execution, if set.
func (c *Context) Query() string { return c.query }

// Logger returns the logger for this context.
func (c *Context) Logger() *logrus.Entry { return c.logger }

// Span creates a new tracing span with the given operation name and options.
// It returns the span and a new context carrying it.
func (c *Context) Span(opName string, opts ...opentracing.StartSpanOption) (opentracing.Span, *Context) {
	parentSpan := opentracing.SpanFromContext(c.Context)
	if parentSpan != nil {
		opts = append(opts, opentracing.ChildOf(parentSpan.Context()))
	}
	span := c.tracer.StartSpan(opName, opts...)
	ctx := opentracing.ContextWithSpan(c.Context, span)

	return span, c.WithContext(ctx)
}

// WithContext returns a copy of this query context with the given standard
// context underneath. Warnings keep accumulating on the shared sink.
func (c *Context) WithContext(ctx context.Context) *Context {
	return &Context{
		Context: ctx,
		id:      c.id,
		query:   c.query,
		tracer:  c.tracer,
		logger:  c.logger,
		warns:   c.warns,
	}
}

// Warn adds a warning to this query.
func (c *Context) Warn(code int, msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	c.warns.add(code, msg)
}

// Warnings returns the warnings raised so far during this query.
func (c *Context) Warnings() []*Warning {
	return c.warns.all()
}

// Error translates the underlying context state into an engine error:
// ErrTimeout when the deadline passed, ErrCancelled when cancelled, nil
// otherwise. Operators call this at every pull boundary and before each
// remote round-trip.
func (c *Context) Error() error {
	switch c.Context.Err() {
	case nil:
		return nil
	case context.DeadlineExceeded:
		return ErrTimeout.New(QueryTimeout)
	default:
		return ErrCancelled.New()
	}
}
