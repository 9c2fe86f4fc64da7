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
	"math/rand"
	"sort"
	"sync"
	"time"
)

// SelectionPolicy is one of the nine ways the context can pick a
// strategy from the surviving candidate set.
type SelectionPolicy string

const (
	FirstAvailable     SelectionPolicy = "FIRST_AVAILABLE"
	RoundRobin         SelectionPolicy = "ROUND_ROBIN"
	WeightedRoundRobin SelectionPolicy = "WEIGHTED_ROUND_ROBIN"
	LeastConnections   SelectionPolicy = "LEAST_CONNECTIONS"
	FastestResponse    SelectionPolicy = "FASTEST_RESPONSE"
	HighestSuccessRate SelectionPolicy = "HIGHEST_SUCCESS_RATE"
	CapabilityBased    SelectionPolicy = "CAPABILITY_BASED"
	HealthBased        SelectionPolicy = "HEALTH_BASED"
	Random             SelectionPolicy = "RANDOM"
)

// Criteria narrows the candidate set before a policy picks among it, per
// SPEC_FULL.md §4.4 step 1-5.
type Criteria struct {
	RequiredCapabilities []string
	MinSuccessRate       float64
	MaxResponseTimeMS    int64
	RequireHealthy       bool
	ExcludeStrategies    []string
	PreferStrategies     []string
}

// Selector picks among candidate registrations using one of the nine
// policies. It is the generalized, multi-policy counterpart of the
// teacher's single-strategy ProviderSelector.
type Selector struct {
	policy SelectionPolicy
	random *rand.Rand

	mu       sync.Mutex
	cursors  map[SelectionPolicy]uint64 // round-robin cursor, one per policy in case callers switch policy at runtime
	randomMu sync.Mutex
}

// NewSelector constructs a Selector for the given policy.
func NewSelector(policy SelectionPolicy) *Selector {
	return &Selector{
		policy:  policy,
		random:  rand.New(rand.NewSource(time.Now().UnixNano())),
		cursors: make(map[SelectionPolicy]uint64),
	}
}

// SetPolicy updates the active policy at runtime (ConfigureProviderStrategy).
func (s *Selector) SetPolicy(policy SelectionPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = policy
}

// Policy returns the active policy.
func (s *Selector) Policy() SelectionPolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// candidate bundles a Registration with the metrics snapshot the
// threshold filters and ranking policies need.
type candidate struct {
	reg      Registration
	snapshot Snapshot
	active   int
}

// Filter applies steps 2-5 of SPEC_FULL.md §4.4 to the full candidate
// list, returning the surviving set.
func Filter(all []Registration, healthy func(string) bool, metrics *MetricsTracker, crit Criteria) []candidate {
	excluded := toSet(crit.ExcludeStrategies)

	candidates := make([]candidate, 0, len(all))
	for _, reg := range all {
		if excluded[reg.Name] {
			continue
		}
		if crit.RequireHealthy && !healthy(reg.Name) {
			continue
		}
		candidates = append(candidates, candidate{
			reg:      reg,
			snapshot: metrics.Snapshot(reg.Name),
			active:   metrics.ActiveOperations(reg.Name),
		})
	}

	if len(crit.RequiredCapabilities) > 0 {
		candidates = filterCapabilities(candidates, crit.RequiredCapabilities)
	}

	if crit.MinSuccessRate > 0 {
		candidates = filterFunc(candidates, func(c candidate) bool {
			return c.snapshot.SuccessRate >= crit.MinSuccessRate
		})
	}
	if crit.MaxResponseTimeMS > 0 {
		candidates = filterFunc(candidates, func(c candidate) bool {
			return c.snapshot.P95MS <= crit.MaxResponseTimeMS
		})
	}

	if len(crit.PreferStrategies) > 0 {
		prefer := toSet(crit.PreferStrategies)
		if preferred := filterFunc(candidates, func(c candidate) bool { return prefer[c.reg.Name] }); len(preferred) > 0 {
			candidates = preferred
		}
	}

	return candidates
}

func filterCapabilities(candidates []candidate, required []string) []candidate {
	out := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		have := toSet(c.reg.Capabilities)
		ok := true
		for _, r := range required {
			if !have[r] {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, c)
		}
	}
	return out
}

func filterFunc(candidates []candidate, keep func(candidate) bool) []candidate {
	out := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, i := range items {
		set[i] = true
	}
	return set
}

// sortByNameAsc orders candidates by name ascending, the final tie-break in
// every policy below.
func sortByNameAsc(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].reg.Name < candidates[j].reg.Name })
}

// Select applies the active policy to the surviving candidate set and
// returns the chosen strategy name. Callers are expected to have already
// applied Filter; Select itself only ranks and breaks ties.
func (s *Selector) Select(candidates []candidate) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoProviderAvailable(s.Policy())
	}
	sortByNameAsc(candidates)

	switch s.Policy() {
	case FirstAvailable:
		return selectByPriority(candidates), nil
	case RoundRobin:
		return s.selectRoundRobin(candidates), nil
	case WeightedRoundRobin:
		return s.selectWeighted(candidates), nil
	case LeastConnections:
		return selectMin(candidates, func(c candidate) float64 { return float64(c.active) }), nil
	case FastestResponse:
		return selectMin(candidates, func(c candidate) float64 { return float64(c.snapshot.P95MS) }), nil
	case HighestSuccessRate:
		return selectMax(candidates, func(c candidate) float64 { return c.snapshot.SuccessRate }), nil
	case CapabilityBased:
		return selectMin(candidates, func(c candidate) float64 { return float64(len(c.reg.Capabilities)) }), nil
	case HealthBased:
		return selectMax(candidates, func(c candidate) float64 { return c.snapshot.SuccessRate }), nil
	case Random:
		return s.selectRandom(candidates), nil
	default:
		return selectByPriority(candidates), nil
	}
}

// selectByPriority picks the lowest priority, ties broken by name
// (candidates is already name-sorted).
func selectByPriority(candidates []candidate) string {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.reg.Priority < best.reg.Priority {
			best = c
		}
	}
	return best.reg.Name
}

// selectMin picks the candidate with the lowest key value, ties broken
// by priority then name.
func selectMin(candidates []candidate, key func(candidate) float64) string {
	best := candidates[0]
	bestKey := key(best)
	for _, c := range candidates[1:] {
		k := key(c)
		if k < bestKey || (k == bestKey && c.reg.Priority < best.reg.Priority) {
			best, bestKey = c, k
		}
	}
	return best.reg.Name
}

// selectMax picks the candidate with the highest key value, ties broken
// by priority then name.
func selectMax(candidates []candidate, key func(candidate) float64) string {
	best := candidates[0]
	bestKey := key(best)
	for _, c := range candidates[1:] {
		k := key(c)
		if k > bestKey || (k == bestKey && c.reg.Priority < best.reg.Priority) {
			best, bestKey = c, k
		}
	}
	return best.reg.Name
}

func (s *Selector) selectRoundRobin(candidates []candidate) string {
	s.mu.Lock()
	idx := s.cursors[RoundRobin]
	s.cursors[RoundRobin] = idx + 1
	s.mu.Unlock()
	return candidates[int(idx)%len(candidates)].reg.Name
}

// selectWeighted performs weighted random selection over reg.Weight,
// the same algorithm as the teacher's selectWeighted but keyed on the
// Registration's static weight instead of an external weights map.
func (s *Selector) selectWeighted(candidates []candidate) string {
	total := 0
	for _, c := range candidates {
		w := c.reg.Weight
		if w <= 0 {
			w = 1
		}
		total += w
	}
	if total == 0 {
		return s.selectRandom(candidates)
	}

	s.randomMu.Lock()
	r := s.random.Float64() * float64(total)
	s.randomMu.Unlock()

	for _, c := range candidates {
		w := c.reg.Weight
		if w <= 0 {
			w = 1
		}
		r -= float64(w)
		if r <= 0 {
			return c.reg.Name
		}
	}
	return candidates[0].reg.Name
}

func (s *Selector) selectRandom(candidates []candidate) string {
	s.randomMu.Lock()
	defer s.randomMu.Unlock()
	return candidates[s.random.Intn(len(candidates))].reg.Name
}
