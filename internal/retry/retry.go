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

// Package retry runs source operations again on transient failures, with
// exponential backoff between attempts.
package retry

import (
	"context"
	"time"

	"gopkg.in/src-d/go-errors.v1"
)

// ErrInterrupted is returned when the backoff sleep is cut short by context
// cancellation. The last operation error is carried in the message.
var ErrInterrupted = errors.NewKind("retry interrupted: %s")

// Policy controls how many times an operation is retried and how long to
// sleep between attempts. The operation runs MaxRetries+1 times at most;
// retry k (counting from 0) sleeps InitialDelay * Multiplier^k beforehand.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   float64
	// Transient classifies an error as worth retrying. A nil classifier
	// retries nothing.
	Transient func(error) bool
	// sleep is replaceable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the default policy: 3 retries, 1s initial delay,
// doubling, with the given transient classifier.
func DefaultPolicy(transient func(error) bool) Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		Multiplier:   2.0,
		Transient:    transient,
	}
}

// WithSleep returns a copy of the policy using the given sleep function.
// Tests use it to observe delays without waiting.
func (p Policy) WithSleep(sleep func(ctx context.Context, d time.Duration) error) Policy {
	p.sleep = sleep
	return p
}

// Do runs op until it succeeds, fails permanently, or the attempts are
// exhausted. Non-transient errors propagate immediately. A cancelled sleep
// fails with ErrInterrupted.
func (p Policy) Do(ctx context.Context, op func() error) error {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	delay := p.InitialDelay
	var err error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			if serr := sleep(ctx, delay); serr != nil {
				return ErrInterrupted.New(err)
			}
			delay = time.Duration(float64(delay) * p.Multiplier)
		}

		err = op()
		if err == nil {
			return nil
		}
		if p.Transient == nil || !p.Transient(err) {
			return err
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
