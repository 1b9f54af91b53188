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

package connector

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meshql/meshql/sql"
)

// HealthStatus is the last known state of a data source.
type HealthStatus byte

const (
	// Up means the source answers normally.
	Up HealthStatus = iota
	// Down means the source does not answer.
	Down
	// Degraded means the source answers but slowly.
	Degraded
)

func (s HealthStatus) String() string {
	switch s {
	case Down:
		return "DOWN"
	case Degraded:
		return "DEGRADED"
	default:
		return "UP"
	}
}

// HealthCheckResult is the outcome of one check.
type HealthCheckResult struct {
	Source         string
	Status         HealthStatus
	ResponseTimeMs int64
	Timestamp      time.Time
	Detail         string
}

// HealthChecker runs one check against a source.
type HealthChecker interface {
	Check(ctx *sql.Context, config DataSourceConfig) HealthCheckResult
}

// HealthCheckerFunc adapts a function to the HealthChecker interface.
type HealthCheckerFunc func(ctx *sql.Context, config DataSourceConfig) HealthCheckResult

// Check implements the HealthChecker interface.
func (f HealthCheckerFunc) Check(ctx *sql.Context, config DataSourceConfig) HealthCheckResult {
	return f(ctx, config)
}

// degradedThreshold marks a source degraded when a check takes longer.
const degradedThreshold = 2 * time.Second

// AdapterHealthChecker checks a source through its adapter's TestConnection.
func AdapterHealthChecker(r *Registry) HealthChecker {
	return HealthCheckerFunc(func(ctx *sql.Context, cfg DataSourceConfig) HealthCheckResult {
		start := time.Now()
		result := HealthCheckResult{Source: cfg.Name, Timestamp: start}

		a, err := r.Adapter(cfg.Type)
		if err != nil {
			result.Status = Down
			result.Detail = err.Error()
			return result
		}

		ok := a.TestConnection(ctx, cfg)
		elapsed := time.Since(start)
		result.ResponseTimeMs = elapsed.Milliseconds()
		switch {
		case !ok:
			result.Status = Down
			result.Detail = "connection test failed"
		case elapsed > degradedThreshold:
			result.Status = Degraded
			result.Detail = "slow response"
		default:
			result.Status = Up
		}
		return result
	})
}

// shutdownGrace is how long Shutdown waits for workers before giving up.
const shutdownGrace = 10 * time.Second

// defaultPoolSize is the number of worker goroutines running checks.
const defaultPoolSize = 2

// task is one scheduled health check.
type task struct {
	name         string
	config       DataSourceConfig
	initialDelay time.Duration
	interval     time.Duration
	cancel       chan struct{}
}

// HealthScheduler periodically checks every scheduled source and caches the
// last result. Listeners observe every result synchronously on the worker
// that produced it.
type HealthScheduler struct {
	checker  HealthChecker
	logger   *logrus.Entry
	poolSize int

	mu       sync.Mutex
	tasks    map[string]*task
	results  map[string]HealthCheckResult
	listener func(HealthCheckResult)
	work     chan *task
	wg       sync.WaitGroup
	workerWg sync.WaitGroup
	shutdown bool
}

// NewHealthScheduler creates a scheduler running checks with the given
// checker.
func NewHealthScheduler(checker HealthChecker, logger *logrus.Entry) *HealthScheduler {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &HealthScheduler{
		checker:  checker,
		logger:   logger,
		poolSize: defaultPoolSize,
		tasks:    map[string]*task{},
		results:  map[string]HealthCheckResult{},
		work:     make(chan *task),
	}
	for i := 0; i < s.poolSize; i++ {
		s.workerWg.Add(1)
		go s.worker()
	}
	return s
}

func (s *HealthScheduler) worker() {
	defer s.workerWg.Done()
	for t := range s.work {
		result := s.checker.Check(sql.NewEmptyContext(), t.config)
		result.Source = t.name

		s.mu.Lock()
		s.results[t.name] = result
		listener := s.listener
		s.mu.Unlock()

		if result.Status != Up {
			s.logger.WithField("source", t.name).Warnf("health check %s: %s", result.Status, result.Detail)
		}
		if listener != nil {
			listener(result)
		}
	}
}

// SetListener registers the function receiving every result. It runs
// synchronously on the scheduler's workers, so it must not block for long.
func (s *HealthScheduler) SetListener(f func(HealthCheckResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = f
}

// Schedule starts periodic checks for a source. Scheduling the same name
// again is a no-op with a warning.
func (s *HealthScheduler) Schedule(name string, config DataSourceConfig, initialDelay, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		s.logger.Warnf("health scheduler is shut down; not scheduling %q", name)
		return
	}
	if _, exists := s.tasks[name]; exists {
		s.logger.Warnf("health check for %q is already scheduled", name)
		return
	}

	t := &task{
		name:         name,
		config:       config,
		initialDelay: initialDelay,
		interval:     interval,
		cancel:       make(chan struct{}),
	}
	s.tasks[name] = t

	s.wg.Add(1)
	go s.run(t)
}

// run drives one task's timing: initial delay, then every interval.
func (s *HealthScheduler) run(t *task) {
	defer s.wg.Done()

	timer := time.NewTimer(t.initialDelay)
	defer timer.Stop()
	select {
	case <-t.cancel:
		return
	case <-timer.C:
	}
	if !s.submit(t) {
		return
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.cancel:
			return
		case <-ticker.C:
			if !s.submit(t) {
				return
			}
		}
	}
}

// submit hands the task to a worker unless it was cancelled meanwhile.
func (s *HealthScheduler) submit(t *task) bool {
	select {
	case <-t.cancel:
		return false
	case s.work <- t:
		return true
	}
}

// Cancel stops the periodic checks of a source. Cancelling an unknown or
// already-cancelled name is harmless.
func (s *HealthScheduler) Cancel(name string) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	if ok {
		delete(s.tasks, name)
	}
	s.mu.Unlock()
	if ok {
		close(t.cancel)
	}
}

// LastResult returns the last result of a source's checks.
func (s *HealthScheduler) LastResult(name string) (HealthCheckResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[name]
	return r, ok
}

// IsHealthy reports whether the last check of a source did not find it
// down. Sources that were never checked count as healthy.
func (s *HealthScheduler) IsHealthy(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[name]
	return !ok || r.Status != Down
}

// Shutdown cancels every task and waits up to the grace period for workers
// to finish. Calling it more than once is harmless.
func (s *HealthScheduler) Shutdown() {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return
	}
	s.shutdown = true
	tasks := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.tasks = map[string]*task{}
	s.mu.Unlock()

	for _, t := range tasks {
		close(t.cancel)
	}
	s.wg.Wait()
	close(s.work)

	done := make(chan struct{})
	go func() {
		s.workerWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		s.logger.Warn("health scheduler workers did not stop within the grace period")
	}
}
