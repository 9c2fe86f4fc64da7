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

package handlers

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// defaultPoolSize is SPEC_FULL.md §5's "bounded worker pool (default 16)"
// for fanning out sub-tasks (e.g. polling N machines concurrently)
// inside a single command.
const defaultPoolSize = 16

// runBounded runs every fn concurrently, at most poolSize at a time, and
// returns one error slot per fn (nil for a fn that succeeded). It is the
// bounded counterpart of the teacher's executeStepsParallel, which fans
// out with one goroutine per item and no concurrency cap; here an
// errgroup.Group plus SetLimit provides the semaphore instead of a raw
// channel, since a fn's own error is recorded per-slot rather than
// aborting the group.
func runBounded(ctx context.Context, poolSize int, fns []func(context.Context) error) []error {
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	errs := make([]error, len(fns))

	var g errgroup.Group
	g.SetLimit(poolSize)

	for i, fn := range fns {
		i, fn := i, fn
		g.Go(func() error {
			errs[i] = fn(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}
