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

// Package migrate moves every entity of one repository.Repository into
// another, batch by batch, reporting progress as it goes. Grounded on
// the teacher's Registry.ReloadFromStorage bulk-load (list everything
// from one backend, repopulate another), generalized from a read-only
// reload into a full source-to-target copy.
package migrate

import (
	"context"
	"fmt"

	"github.com/awslabs/open-resource-broker/internal/repository"
)

// Progress reports how many of Total items have been copied so far.
type Progress struct {
	Done  int
	Total int
}

const defaultBatchSize = 100

// Run copies every item in src into dst, fetching in batches of
// batchSize (a non-positive value falls back to defaultBatchSize) and
// emitting a Progress update after each batch on progressCh, if
// non-nil. Run first counts src's total by scanning with no filter; a
// source added to concurrently during migration may under- or
// over-report Total, but Done always reflects items actually copied.
//
// Run stops and returns an error as soon as a Save fails, leaving dst
// holding whatever prefix of src was already copied — callers that
// need all-or-nothing semantics should run Run against an empty or
// disposable target and swap it in only on success.
func Run[T any](ctx context.Context, src, dst repository.Repository[T], batchSize int, progressCh chan<- Progress) error {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	total, err := countAll(ctx, src)
	if err != nil {
		return fmt.Errorf("migrate: counting source items: %w", err)
	}

	done := 0
	for offset := 0; ; offset += batchSize {
		batch, err := src.GetAll(ctx, nil, batchSize, offset)
		if err != nil {
			return fmt.Errorf("migrate: reading source batch at offset %d: %w", offset, err)
		}
		if len(batch) == 0 {
			break
		}

		for _, item := range batch {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("migrate: context cancelled after %d/%d items: %w", done, total, err)
			}
			if err := dst.Save(ctx, item); err != nil {
				return fmt.Errorf("migrate: saving item %d: %w", done, err)
			}
			done++
		}

		if progressCh != nil {
			select {
			case progressCh <- Progress{Done: done, Total: total}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if len(batch) < batchSize {
			break
		}
	}

	return nil
}

// countAll fetches every item in src (GetAll with limit 0 means
// unlimited, the convention repository's backends share) just to count
// them. Backends that can't answer "how many rows" without a full scan
// pay that cost once, up front, rather than per batch.
func countAll[T any](ctx context.Context, src repository.Repository[T]) (int, error) {
	all, err := src.GetAll(ctx, nil, 0, 0)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}
