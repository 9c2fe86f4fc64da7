// Copyright 2025 Open Resource Broker Authors
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

// Package resilience provides the retry, circuit breaker, and timeout
// wrappers composed around every outbound provider call, in the order
// mandated by spec.md §4.7: timeout inside retry inside circuit breaker.
package resilience

import (
	"context"
	"math/rand"
	"time"

	"github.com/awslabs/open-resource-broker/internal/brokerror"
)

// RetryConfig configures exponential backoff with jitter.
type RetryConfig struct {
	MaxAttempts int
	Base        time.Duration
	Growth      float64
	Cap         time.Duration
	Jitter      float64 // fraction of the computed delay, e.g. 0.1 adds up to +10%

	// RetryIf overrides the default brokerror.IsRetryable classification.
	RetryIf func(error) bool
}

// DefaultRetryConfig returns spec.md §4.7's defaults:
// base=1s, growth=2, cap=60s, max_attempts=3.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Base:        time.Second,
		Growth:      2,
		Cap:         60 * time.Second,
		Jitter:      0.1,
		RetryIf:     brokerror.IsRetryable,
	}
}

// Retry runs fn with exponential backoff and jitter, stopping as soon as
// fn succeeds, a non-retryable error is returned, or MaxAttempts is
// exhausted. Attempt i's delay is min(base*growth^i, cap) + U(0, jitter*delay),
// matching spec.md §4.7's formula exactly.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = brokerror.IsRetryable
	}

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryIf(err) {
			return zero, err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := backoffDelay(cfg, attempt)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, lastErr
}

func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	d := float64(cfg.Base) * pow(cfg.Growth, float64(attempt))
	if d > float64(cfg.Cap) {
		d = float64(cfg.Cap)
	}
	if cfg.Jitter > 0 {
		d += rand.Float64() * cfg.Jitter * d
	}
	return time.Duration(d)
}

func pow(base, exp float64) float64 {
	result := 1.0
	for exp > 0 {
		if int64(exp)%2 == 1 {
			result *= base
		}
		exp = float64(int64(exp) / 2)
		base *= base
	}
	return result
}
