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

	"github.com/awslabs/open-resource-broker/internal/logging"
)

// HealthChecker runs every registered strategy's HealthCheck on an
// interval and feeds the result back into the registry, the way the
// teacher's StartPeriodicHealthCheck drives Registry.SetHealthy.
type HealthChecker struct {
	registry *Registry
	logger   *logging.Logger
	interval time.Duration
}

// NewHealthChecker constructs a checker for registry, polling every
// interval.
func NewHealthChecker(registry *Registry, interval time.Duration) *HealthChecker {
	return &HealthChecker{
		registry: registry,
		logger:   logging.New("provider.health"),
		interval: interval,
	}
}

// Run blocks, polling every strategy until ctx is cancelled. Intended to
// be started in its own goroutine from cmd/brokerd.
func (h *HealthChecker) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.checkOnce(ctx)
		}
	}
}

func (h *HealthChecker) checkOnce(ctx context.Context) {
	healthy, unhealthy := 0, 0
	for _, name := range h.registry.List() {
		reg, ok := h.registry.Get(name)
		if !ok {
			continue
		}

		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := reg.Strategy.HealthCheck(checkCtx)
		cancel()

		h.registry.RecordHealthCheck(name, err == nil, time.Now())
		if err == nil {
			healthy++
		} else {
			unhealthy++
			h.logger.Warn(ctx, "provider strategy health check failed", map[string]interface{}{"strategy": name, "error": err.Error()})
		}
	}
	if unhealthy > 0 {
		h.logger.Info(ctx, "provider health check completed", map[string]interface{}{"healthy": healthy, "unhealthy": unhealthy})
	}
}
