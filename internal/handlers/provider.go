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

	"github.com/awslabs/open-resource-broker/internal/brokerror"
	"github.com/awslabs/open-resource-broker/internal/bus"
	"github.com/awslabs/open-resource-broker/internal/provider"
)

// SelectProviderStrategy runs the selection pipeline for a template's
// required capabilities and returns the chosen instance name without
// invoking it.
func (h *Handlers) SelectProviderStrategy(ctx context.Context, q bus.SelectProviderStrategy) (bus.SelectProviderStrategyResult, error) {
	crit := provider.Criteria{}
	if q.TemplateID != "" {
		tpl, err := h.GetTemplate(ctx, bus.GetTemplate{TemplateID: q.TemplateID})
		if err != nil {
			return bus.SelectProviderStrategyResult{}, err
		}
		if tpl.ProviderType != "" {
			crit.RequiredCapabilities = []string{tpl.ProviderType}
		}
	}

	name, err := h.providers.SelectStrategy(crit)
	if err != nil {
		return bus.SelectProviderStrategyResult{}, brokerror.Wrap(brokerror.ProviderPermanent, "selecting provider strategy", err)
	}
	return bus.SelectProviderStrategyResult{ProviderInstance: name}, nil
}

// ExecuteProviderOperation invokes one named operation on a specific
// provider instance, wrapped in the context's failover loop.
func (h *Handlers) ExecuteProviderOperation(ctx context.Context, cmd bus.ExecuteProviderOperation) (bus.ExecuteProviderOperationResult, error) {
	crit := provider.Criteria{}
	if cmd.ProviderInstance != "" {
		crit.PreferStrategies = []string{cmd.ProviderInstance}
		crit.ExcludeStrategies = excludeAllBut(h.providers, cmd.ProviderInstance)
	}

	result, err := h.providers.Execute(ctx, crit, func(ctx context.Context, strat provider.Strategy) (any, error) {
		return invokeOperation(ctx, strat, cmd.Operation, cmd.Payload)
	})
	if err != nil {
		return bus.ExecuteProviderOperationResult{}, err
	}
	return bus.ExecuteProviderOperationResult{Result: result}, nil
}

// excludeAllBut returns every registered strategy name except keep, so a
// caller naming a specific provider instance is not silently failed over
// to another one.
func excludeAllBut(pctx *provider.Context, keep string) []string {
	var excluded []string
	for _, name := range pctx.Registry.List() {
		if name != keep {
			excluded = append(excluded, name)
		}
	}
	return excluded
}

// invokeOperation dispatches cmd's Operation name to the matching
// Strategy method, the way the scheduler's operation-name wire field
// selects among requestMachines/returnMachines/getRequestStatus.
func invokeOperation(ctx context.Context, strat provider.Strategy, operation string, payload any) (any, error) {
	switch operation {
	case "provision":
		req, ok := payload.(provider.ProvisionRequest)
		if !ok {
			return nil, brokerror.New(brokerror.Validation, "payload is not a ProvisionRequest")
		}
		return strat.ProvisionMachines(ctx, req)
	case "terminate":
		ids, ok := payload.([]string)
		if !ok {
			return nil, brokerror.New(brokerror.Validation, "payload is not a []string of instance ids")
		}
		return nil, strat.TerminateMachines(ctx, ids)
	case "status":
		ids, ok := payload.([]string)
		if !ok {
			return nil, brokerror.New(brokerror.Validation, "payload is not a []string of instance ids")
		}
		return strat.GetMachineStatus(ctx, ids)
	case "available_templates":
		return strat.GetAvailableTemplates(ctx)
	case "health_check":
		return nil, strat.HealthCheck(ctx)
	default:
		return nil, brokerror.New(brokerror.Validation, "unknown provider operation").WithField("operation", operation)
	}
}

// RegisterProviderStrategy instantiates and registers a new provider
// instance using the factory previously registered for ProviderType
// (normally at cmd/brokerd startup).
func (h *Handlers) RegisterProviderStrategy(_ context.Context, cmd bus.RegisterProviderStrategy) (bool, error) {
	h.mu.RLock()
	factory, ok := h.factories[cmd.ProviderType]
	h.mu.RUnlock()
	if !ok {
		return false, brokerror.New(brokerror.Validation, "no strategy factory registered for provider type").WithField("provider_type", cmd.ProviderType)
	}

	strat, err := factory(cmd.Config)
	if err != nil {
		return false, brokerror.Wrap(brokerror.Internal, "constructing provider strategy", err)
	}

	if err := h.providers.Registry.Register(provider.Registration{
		Name:     cmd.InstanceName,
		Strategy: strat,
	}); err != nil {
		return false, brokerror.Wrap(brokerror.Internal, "registering provider strategy", err)
	}

	h.mu.Lock()
	h.configs[cmd.InstanceName] = cmd.Config
	h.mu.Unlock()

	return true, nil
}

// UpdateProviderHealth records a health observation for a provider
// instance, normally produced by the background health checker but also
// reachable as a direct command for manual intervention.
func (h *Handlers) UpdateProviderHealth(_ context.Context, cmd bus.UpdateProviderHealth) (bool, error) {
	if _, ok := h.providers.Registry.Get(cmd.ProviderInstance); !ok {
		return false, brokerror.New(brokerror.NotFound, "provider instance not found").WithField("provider_instance", cmd.ProviderInstance)
	}
	h.providers.Registry.RecordHealthCheck(cmd.ProviderInstance, cmd.Healthy, h.now())
	return true, nil
}

// ConfigureProviderStrategy updates the active selection policy.
// Per-strategy weights are read from the registration made at
// RegisterProviderStrategy time; cmd.Weights is ignored here.
func (h *Handlers) ConfigureProviderStrategy(_ context.Context, cmd bus.ConfigureProviderStrategy) (bool, error) {
	if cmd.SelectionPolicy == "" {
		return false, brokerror.New(brokerror.Validation, "selection_policy is required")
	}
	h.providers.Selector.SetPolicy(provider.SelectionPolicy(cmd.SelectionPolicy))
	return true, nil
}

// GetProviderHealth reports the current health snapshot for a provider
// instance.
func (h *Handlers) GetProviderHealth(_ context.Context, q bus.GetProviderHealth) (bus.GetProviderHealthResult, error) {
	snap, ok := h.providers.Registry.Health(q.ProviderInstance)
	if !ok {
		return bus.GetProviderHealthResult{}, brokerror.New(brokerror.NotFound, "provider instance not found").WithField("provider_instance", q.ProviderInstance)
	}
	return bus.GetProviderHealthResult{
		Healthy:        snap.Healthy,
		LastCheckedAt:  snap.LastCheckedAt,
		ConsecutiveErr: snap.ConsecutiveErr,
	}, nil
}

// ListAvailableProviders lists every registered provider instance name.
func (h *Handlers) ListAvailableProviders(_ context.Context, _ bus.ListAvailableProviders) ([]string, error) {
	return h.providers.Registry.List(), nil
}

// GetProviderCapabilities reports the operations and instance families a
// provider instance supports.
func (h *Handlers) GetProviderCapabilities(_ context.Context, q bus.GetProviderCapabilities) ([]string, error) {
	reg, ok := h.providers.Registry.Get(q.ProviderInstance)
	if !ok {
		return nil, brokerror.New(brokerror.NotFound, "provider instance not found").WithField("provider_instance", q.ProviderInstance)
	}
	return reg.Capabilities, nil
}

// GetProviderMetrics reports the rolling metrics the selection policies
// read for a provider instance.
func (h *Handlers) GetProviderMetrics(_ context.Context, q bus.GetProviderMetrics) (bus.GetProviderMetricsResult, error) {
	if _, ok := h.providers.Registry.Get(q.ProviderInstance); !ok {
		return bus.GetProviderMetricsResult{}, brokerror.New(brokerror.NotFound, "provider instance not found").WithField("provider_instance", q.ProviderInstance)
	}
	snap := h.providers.Metrics.Snapshot(q.ProviderInstance)
	return bus.GetProviderMetricsResult{
		SuccessRate:      snap.SuccessRate,
		LatencyP50MS:     snap.P50MS,
		LatencyP95MS:     snap.P95MS,
		ActiveOperations: h.providers.Metrics.ActiveOperations(q.ProviderInstance),
	}, nil
}

// GetProviderConfig reports the stored configuration for a provider
// instance. Redacting secrets before this leaves the process is the
// caller's responsibility.
func (h *Handlers) GetProviderConfig(_ context.Context, q bus.GetProviderConfig) (map[string]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cfg, ok := h.configs[q.ProviderInstance]
	if !ok {
		return nil, brokerror.New(brokerror.NotFound, "provider instance not found").WithField("provider_instance", q.ProviderInstance)
	}
	return cfg, nil
}
