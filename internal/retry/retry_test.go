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

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient failure")

func alwaysTransient(error) bool { return true }

func TestRetriesWithExponentialBackoff(t *testing.T) {
	require := require.New(t)

	var delays []time.Duration
	policy := DefaultPolicy(alwaysTransient).WithSleep(
		func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		})

	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		if attempts <= 2 {
			return errTransient
		}
		return nil
	})

	require.NoError(err)
	require.Equal(3, attempts)
	require.Equal([]time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestNonTransientFailsImmediately(t *testing.T) {
	require := require.New(t)

	permanent := errors.New("syntax error")
	policy := DefaultPolicy(func(err error) bool { return err != permanent }).
		WithSleep(func(context.Context, time.Duration) error {
			t.Fatal("should not sleep for a permanent error")
			return nil
		})

	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		return permanent
	})
	require.Equal(permanent, err)
	require.Equal(1, attempts)
}

func TestExhaustedRetriesReturnLastError(t *testing.T) {
	require := require.New(t)

	policy := DefaultPolicy(alwaysTransient).
		WithSleep(func(context.Context, time.Duration) error { return nil })

	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		return errTransient
	})
	require.Equal(errTransient, err)
	require.Equal(policy.MaxRetries+1, attempts)
}

func TestInterruptedSleep(t *testing.T) {
	require := require.New(t)

	policy := DefaultPolicy(alwaysTransient).
		WithSleep(func(ctx context.Context, d time.Duration) error {
			return context.Canceled
		})

	err := policy.Do(context.Background(), func() error { return errTransient })
	require.Error(err)
	require.True(ErrInterrupted.Is(err))
}

func TestRealSleepHonorsCancellation(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := DefaultPolicy(alwaysTransient)
	start := time.Now()
	err := policy.Do(ctx, func() error { return errTransient })
	require.True(ErrInterrupted.Is(err))
	require.Less(time.Since(start), time.Second)
}
