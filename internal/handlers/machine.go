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
	"github.com/awslabs/open-resource-broker/internal/domain"
	"github.com/awslabs/open-resource-broker/internal/provider"
)

const machineLockPrefix = "machine:"

// UpdateMachineStatus applies a provider-observed transition to a single
// machine. Repeat commands carrying the already-recorded status are
// no-ops, matching the at-most-once handling the request handlers use.
// On reaching a terminal state it opportunistically asks CompleteRequest
// to re-evaluate the owning request.
func (h *Handlers) UpdateMachineStatus(ctx context.Context, cmd bus.UpdateMachineStatus) (domain.MachineStatus, error) {
	var status domain.MachineStatus
	var handlerErr error
	var requestID string

	h.locks.WithLock(machineLockPrefix+cmd.MachineID, func() {
		m, ok, err := h.machines.GetByID(ctx, cmd.MachineID)
		if err != nil {
			handlerErr = brokerror.Wrap(brokerror.Internal, "loading machine", err)
			return
		}
		if !ok {
			handlerErr = brokerror.New(brokerror.NotFound, "machine not found").WithField("machine_id", cmd.MachineID)
			return
		}
		requestID = m.RequestID

		if m.Status == cmd.Status {
			status = m.Status
			return
		}

		if cmd.Status == domain.MachineFailed {
			m.Fail("PROVIDER_REPORTED_FAILURE", cmd.Reason, h.now())
		} else if err := m.Transition(cmd.Status, h.now()); err != nil {
			handlerErr = brokerror.Wrap(brokerror.Conflict, "updating machine status", err)
			return
		}

		if err := h.machines.Save(ctx, m); err != nil {
			handlerErr = brokerror.Wrap(brokerror.Internal, "saving machine", err)
			return
		}
		h.publish(m.Events())
		status = m.Status
	})

	if handlerErr == nil && status.IsTerminal() && requestID != "" {
		if _, err := h.CompleteRequest(ctx, bus.CompleteRequest{RequestID: requestID}); err != nil && brokerror.Of(err) != brokerror.NotFound {
			h.logger.Warn(ctx, "machine status update: completion re-check failed", map[string]interface{}{"request_id": requestID, "error": err.Error()})
		}
	}

	return status, handlerErr
}

// CleanupMachineResources asks the provider to release any resources
// (volumes, network interfaces) a terminated machine left behind. A
// machine that is not yet terminal is a conflict: cleanup only applies
// once a machine has stopped being the provider's responsibility.
func (h *Handlers) CleanupMachineResources(ctx context.Context, cmd bus.CleanupMachineResources) (bool, error) {
	m, ok, err := h.machines.GetByID(ctx, cmd.MachineID)
	if err != nil {
		return false, brokerror.Wrap(brokerror.Internal, "loading machine", err)
	}
	if !ok {
		return false, brokerror.New(brokerror.NotFound, "machine not found").WithField("machine_id", cmd.MachineID)
	}
	if !m.Status.IsTerminal() {
		return false, brokerror.New(brokerror.Conflict, "machine is not terminal").WithField("status", string(m.Status))
	}
	if m.ProviderInstanceID == "" {
		return true, nil
	}

	_, err = h.providers.Execute(ctx, provider.Criteria{}, func(ctx context.Context, strat provider.Strategy) (any, error) {
		return nil, strat.TerminateMachines(ctx, []string{m.ProviderInstanceID})
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetMachine fetches a single machine by id.
func (h *Handlers) GetMachine(ctx context.Context, q bus.GetMachine) (domain.Machine, error) {
	m, ok, err := h.machines.GetByID(ctx, q.MachineID)
	if err != nil {
		return domain.Machine{}, brokerror.Wrap(brokerror.Internal, "loading machine", err)
	}
	if !ok {
		return domain.Machine{}, brokerror.New(brokerror.NotFound, "machine not found").WithField("machine_id", q.MachineID)
	}
	return m, nil
}

// ListMachinesByRequest lists every machine attached to a request.
func (h *Handlers) ListMachinesByRequest(ctx context.Context, q bus.ListMachinesByRequest) ([]domain.Machine, error) {
	machines, err := h.machines.FindByRequest(ctx, q.RequestID)
	if err != nil {
		return nil, brokerror.Wrap(brokerror.Internal, "listing machines for request", err)
	}
	return machines, nil
}

// GetActiveMachineCount counts non-terminal machines, optionally scoped
// to a single template, for capacity/backpressure decisions.
func (h *Handlers) GetActiveMachineCount(ctx context.Context, q bus.GetActiveMachineCount) (int, error) {
	all, err := h.machines.GetAll(ctx, func(m domain.Machine) bool {
		if m.Status.IsTerminal() {
			return false
		}
		return q.TemplateID == "" || m.TemplateID == q.TemplateID
	}, 0, 0)
	if err != nil {
		return 0, brokerror.Wrap(brokerror.Internal, "counting active machines", err)
	}
	return len(all), nil
}
