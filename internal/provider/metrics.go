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
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// defaultWindowSize is "last N samples" from SPEC_FULL.md §4.4.
const defaultWindowSize = 100

var (
	activeOperationsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "broker",
		Subsystem: "provider",
		Name:      "active_operations",
		Help:      "In-flight operations per provider strategy instance.",
	}, []string{"strategy"})

	successRateGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "broker",
		Subsystem: "provider",
		Name:      "success_rate",
		Help:      "Rolling success rate over the last window of operations.",
	}, []string{"strategy"})

	latencyP95Gauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "broker",
		Subsystem: "provider",
		Name:      "latency_p95_ms",
		Help:      "Rolling p95 operation latency in milliseconds.",
	}, []string{"strategy"})
)

func init() {
	prometheus.MustRegister(activeOperationsGauge, successRateGauge, latencyP95Gauge)
}

type sample struct {
	ok        bool
	latencyMS int64
}

// MetricsTracker keeps a fixed-size rolling window of outcomes per
// provider strategy, the way the teacher's routerMetricsTracker keeps a
// running average, generalized to support percentile reads for
// FASTEST_RESPONSE and threshold filters.
type MetricsTracker struct {
	mu         sync.RWMutex
	windowSize int
	samples    map[string][]sample
	active     map[string]int
}

// NewMetricsTracker constructs a tracker with the default window size.
func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{
		windowSize: defaultWindowSize,
		samples:    make(map[string][]sample),
		active:     make(map[string]int),
	}
}

// BeginOperation increments the in-flight counter for name and returns a
// func to call when the operation finishes, recording its outcome.
func (t *MetricsTracker) BeginOperation(name string) func(ok bool, latency time.Duration) {
	t.mu.Lock()
	t.active[name]++
	t.mu.Unlock()
	activeOperationsGauge.WithLabelValues(name).Inc()

	return func(ok bool, latency time.Duration) {
		t.mu.Lock()
		t.active[name]--
		window := append(t.samples[name], sample{ok: ok, latencyMS: latency.Milliseconds()})
		if len(window) > t.windowSize {
			window = window[len(window)-t.windowSize:]
		}
		t.samples[name] = window
		t.mu.Unlock()
		activeOperationsGauge.WithLabelValues(name).Dec()

		snap := t.Snapshot(name)
		successRateGauge.WithLabelValues(name).Set(snap.SuccessRate)
		latencyP95Gauge.WithLabelValues(name).Set(float64(snap.P95MS))
	}
}

// ActiveOperations reports the current in-flight count for name, read by
// LEAST_CONNECTIONS and the backpressure cap.
func (t *MetricsTracker) ActiveOperations(name string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active[name]
}

// Snapshot is a point-in-time read of a strategy's rolling metrics.
type Snapshot struct {
	SuccessRate float64
	P50MS       int64
	P95MS       int64
	Samples     int
}

// Snapshot computes the current rolling metrics for name from the
// retained window. An empty window reports a 100% success rate so a
// never-used strategy is not unfairly excluded by threshold filters.
func (t *MetricsTracker) Snapshot(name string) Snapshot {
	t.mu.RLock()
	window := append([]sample(nil), t.samples[name]...)
	t.mu.RUnlock()

	if len(window) == 0 {
		return Snapshot{SuccessRate: 1.0}
	}

	ok := 0
	latencies := make([]int64, 0, len(window))
	for _, s := range window {
		if s.ok {
			ok++
		}
		latencies = append(latencies, s.latencyMS)
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	return Snapshot{
		SuccessRate: float64(ok) / float64(len(window)),
		P50MS:       percentile(latencies, 0.50),
		P95MS:       percentile(latencies, 0.95),
		Samples:     len(window),
	}
}

func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
