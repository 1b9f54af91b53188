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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meshql/meshql/sql"
)

func upChecker() HealthChecker {
	return HealthCheckerFunc(func(ctx *sql.Context, cfg DataSourceConfig) HealthCheckResult {
		return HealthCheckResult{Status: Up, Timestamp: time.Now()}
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestSchedulerRunsChecksAndCachesResults(t *testing.T) {
	require := require.New(t)

	s := NewHealthScheduler(upChecker(), nil)
	defer s.Shutdown()

	s.Schedule("db1", DataSourceConfig{Name: "db1"}, 0, 10*time.Millisecond)

	waitFor(t, func() bool {
		_, ok := s.LastResult("db1")
		return ok
	})

	result, ok := s.LastResult("db1")
	require.True(ok)
	require.Equal(Up, result.Status)
	require.True(s.IsHealthy("db1"))
}

func TestScheduleIsIdempotent(t *testing.T) {
	var mu sync.Mutex
	checks := map[string]int{}
	checker := HealthCheckerFunc(func(ctx *sql.Context, cfg DataSourceConfig) HealthCheckResult {
		mu.Lock()
		checks[cfg.Name]++
		mu.Unlock()
		return HealthCheckResult{Status: Up}
	})

	s := NewHealthScheduler(checker, nil)
	defer s.Shutdown()

	s.Schedule("db1", DataSourceConfig{Name: "db1"}, 0, time.Hour)
	s.Schedule("db1", DataSourceConfig{Name: "db1"}, 0, time.Hour)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return checks["db1"] >= 1
	})
	// A second schedule was a no-op: only the one task runs, and with an
	// hour interval it checked exactly once.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, checks["db1"])
}

func TestListenerReceivesEveryResult(t *testing.T) {
	require := require.New(t)

	var mu sync.Mutex
	var received []HealthCheckResult

	s := NewHealthScheduler(upChecker(), nil)
	defer s.Shutdown()
	s.SetListener(func(r HealthCheckResult) {
		mu.Lock()
		received = append(received, r)
		mu.Unlock()
	})

	s.Schedule("db1", DataSourceConfig{Name: "db1"}, 0, 10*time.Millisecond)
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) >= 2
	})

	mu.Lock()
	defer mu.Unlock()
	require.Equal("db1", received[0].Source)
}

func TestCancelToleratesUnknownAndRepeated(t *testing.T) {
	s := NewHealthScheduler(upChecker(), nil)
	defer s.Shutdown()

	s.Schedule("db1", DataSourceConfig{Name: "db1"}, 0, time.Hour)
	s.Cancel("db1")
	s.Cancel("db1")
	s.Cancel("never-scheduled")
}

func TestShutdownIsRepeatable(t *testing.T) {
	s := NewHealthScheduler(upChecker(), nil)
	s.Schedule("db1", DataSourceConfig{Name: "db1"}, 0, 10*time.Millisecond)
	s.Shutdown()
	s.Shutdown()

	// Scheduling after shutdown is ignored.
	s.Schedule("db2", DataSourceConfig{Name: "db2"}, 0, 10*time.Millisecond)
	_, ok := s.LastResult("db2")
	require.False(t, ok)
}

func TestDownResultsAreObservable(t *testing.T) {
	require := require.New(t)

	checker := HealthCheckerFunc(func(ctx *sql.Context, cfg DataSourceConfig) HealthCheckResult {
		return HealthCheckResult{Status: Down, Detail: "connection refused"}
	})
	s := NewHealthScheduler(checker, nil)
	defer s.Shutdown()

	s.Schedule("db1", DataSourceConfig{Name: "db1"}, 0, 10*time.Millisecond)
	waitFor(t, func() bool {
		r, ok := s.LastResult("db1")
		return ok && r.Status == Down
	})
	require.False(s.IsHealthy("db1"))
}
