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

package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsTracker_EmptyWindowReportsFullSuccess(t *testing.T) {
	m := NewMetricsTracker()
	snap := m.Snapshot("unused")
	assert.Equal(t, 1.0, snap.SuccessRate)
}

func TestMetricsTracker_RecordsOutcomesAndLatency(t *testing.T) {
	m := NewMetricsTracker()

	done := m.BeginOperation("s1")
	assert.Equal(t, 1, m.ActiveOperations("s1"))
	done(true, 100*time.Millisecond)
	assert.Equal(t, 0, m.ActiveOperations("s1"))

	done2 := m.BeginOperation("s1")
	done2(false, 200*time.Millisecond)

	snap := m.Snapshot("s1")
	assert.Equal(t, 2, snap.Samples)
	assert.Equal(t, 0.5, snap.SuccessRate)
}

func TestMetricsTracker_WindowCapsAtSize(t *testing.T) {
	m := NewMetricsTracker()
	m.windowSize = 3

	for i := 0; i < 5; i++ {
		done := m.BeginOperation("s1")
		done(true, time.Millisecond)
	}

	snap := m.Snapshot("s1")
	assert.Equal(t, 3, snap.Samples)
}

func TestPercentile_P95OfSortedLatencies(t *testing.T) {
	sorted := []int64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	assert.Equal(t, int64(90), percentile(sorted, 0.95))
	assert.Equal(t, int64(50), percentile(sorted, 0.5))
}
