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
	"context"
	"time"

	"github.com/awslabs/open-resource-broker/internal/brokerror"
)

// Context is the provider context: the registry of strategies, the
// active selection policy, rolling metrics, and the failover loop. One
// Context is constructed per process and shared by every handler that
// needs to reach a cloud provider.
type Context struct {
	Registry *Registry
	Metrics  *MetricsTracker
	Selector *Selector

	// MaxFailoverAttempts bounds how many additional candidates a failed
	// operation will be retried against, per SPEC_FULL.md §4.4's
	// "up to a configured maximum".
	MaxFailoverAttempts int
}

// NewContext constructs a Context wired with the given policy and
// defaults: 3 failover attempts, matching §4.7's retry MaxAttempts so
// the two budgets stay easy to reason about together.
func NewContext(policy SelectionPolicy) *Context {
	return &Context{
		Registry:            NewRegistry(),
		Metrics:             NewMetricsTracker(),
		Selector:            NewSelector(policy),
		MaxFailoverAttempts: 3,
	}
}

// Execute selects a strategy per crit and runs fn against it, recording
// the outcome in the metrics tracker. On a retryable failure it selects
// again, excluding every strategy already tried for this operation, up
// to MaxFailoverAttempts additional tries.
func (c *Context) Execute(ctx context.Context, crit Criteria, fn func(context.Context, Strategy) (any, error)) (any, error) {
	tried := append([]string{}, crit.ExcludeStrategies...)

	var lastErr error
	for attempt := 0; attempt <= c.MaxFailoverAttempts; attempt++ {
		roundCrit := crit
		roundCrit.ExcludeStrategies = tried

		name, reg, err := c.selectOne(roundCrit)
		if err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		done := c.Metrics.BeginOperation(name)
		start := time.Now()
		result, err := fn(ctx, reg.Strategy)
		done(err == nil, time.Since(start))

		if err == nil {
			return result, nil
		}
		lastErr = err
		tried = append(tried, name)

		if !brokerror.IsRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// SelectStrategy runs the selection pipeline once and returns the chosen
// strategy's name without invoking it, for callers (e.g.
// SelectProviderStrategy) that only need the decision.
func (c *Context) SelectStrategy(crit Criteria) (string, error) {
	name, _, err := c.selectOne(crit)
	return name, err
}

// selectOne runs Filter+Select once.
func (c *Context) selectOne(crit Criteria) (string, Registration, error) {
	all := make([]Registration, 0, len(c.Registry.List()))
	for _, name := range c.Registry.List() {
		reg, ok := c.Registry.Get(name)
		if ok {
			all = append(all, reg)
		}
	}

	candidates := Filter(all, c.Registry.IsHealthy, c.Metrics, crit)
	name, err := c.Selector.Select(candidates)
	if err != nil {
		return "", Registration{}, err
	}
	reg, _ := c.Registry.Get(name)
	return name, reg, nil
}
