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

package resilience

import (
	"context"
	"time"

	"github.com/awslabs/open-resource-broker/internal/brokerror"
)

// WithTimeout runs fn with a derived context that is cancelled after d.
// If fn does not return before the deadline, it returns a
// brokerror.Timeout error; fn is still running in the background at
// that point and must itself respect ctx cancellation to avoid leaking.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := fn(cctx)
		ch <- outcome{v, err}
	}()

	select {
	case o := <-ch:
		return o.val, o.err
	case <-cctx.Done():
		if ctx.Err() != nil {
			return zero, brokerror.Wrap(brokerror.Cancelled, "operation cancelled", ctx.Err())
		}
		return zero, brokerror.New(brokerror.Timeout, "operation timed out")
	}
}

// Call composes timeout-inside-retry-inside-breaker, the order
// mandated by spec.md §4.7: the breaker gates the whole retry loop, each
// individual attempt gets its own timeout.
func Call[T any](ctx context.Context, cb *CircuitBreaker, retryCfg RetryConfig, perAttemptTimeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	return Run(cb, ctx, func(ctx context.Context) (T, error) {
		return Retry(ctx, retryCfg, func(ctx context.Context) (T, error) {
			return WithTimeout(ctx, perAttemptTimeout, fn)
		})
	})
}
