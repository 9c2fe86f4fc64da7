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
	"strconv"

	"github.com/awslabs/open-resource-broker/internal/brokerror"
	"github.com/awslabs/open-resource-broker/internal/bus"
	"github.com/awslabs/open-resource-broker/internal/domain"
	"github.com/awslabs/open-resource-broker/internal/provider"
)

// CreateRequest persists a PENDING request and returns its id
// immediately, the same "accept now, provision asynchronously" contract
// the scheduler's requestMachines operation expects (SPEC_FULL.md §6).
// Provisioning itself runs in the background under the request's
// per-request_id lock; a caller checks progress with GetRequestStatus.
func (h *Handlers) CreateRequest(ctx context.Context, cmd bus.CreateRequest) (bus.CreateRequestResult, error) {
	reqType := cmd.RequestType
	if reqType == "" {
		reqType = domain.RequestProvision
	}

	count := cmd.MachineCount
	if reqType == domain.RequestReturn {
		count = len(cmd.MachineIDs)
	}
	if count < 1 {
		return bus.CreateRequestResult{}, brokerror.New(brokerror.Validation, "machine_count must be >= 1").WithField("machine_count", strconv.Itoa(count))
	}
	if reqType == domain.RequestProvision && cmd.TemplateID == "" {
		return bus.CreateRequestResult{}, brokerror.New(brokerror.Validation, "template_id is required")
	}

	if reqType == domain.RequestProvision {
		tpl, ok, err := h.templates.Get(ctx, cmd.TemplateID)
		if err != nil {
			return bus.CreateRequestResult{}, brokerror.Wrap(brokerror.Internal, "loading template", err)
		}
		if !ok {
			return bus.CreateRequestResult{}, brokerror.New(brokerror.NotFound, "template not found").WithField("template_id", cmd.TemplateID)
		}
		if count > tpl.MaxNumber {
			return bus.CreateRequestResult{}, brokerror.New(brokerror.Validation, "machine_count exceeds template max_number").
				WithField("machine_count", strconv.Itoa(count)).
				WithField("max_number", strconv.Itoa(tpl.MaxNumber))
		}
	}

	req := domain.NewRequest(cmd.TemplateID, reqType, count, cmd.Tags, cmd.Priority, h.now())
	if reqType == domain.RequestReturn {
		if err := req.AttachMachines(cmd.MachineIDs...); err != nil {
			return bus.CreateRequestResult{}, brokerror.Wrap(brokerror.Internal, "attaching machines to return request", err)
		}
	}

	if err := h.requests.Save(ctx, *req); err != nil {
		return bus.CreateRequestResult{}, brokerror.Wrap(brokerror.Internal, "saving request", err)
	}
	h.publish(req.Events())

	go h.runProvisioning(req.RequestID, reqType)

	return bus.CreateRequestResult{RequestID: req.RequestID, Status: req.Status}, nil
}

// ReturnMachines is a thin CreateRequest wrapper for the scheduler's
// returnMachines operation, which always produces a RequestReturn.
func (h *Handlers) ReturnMachines(ctx context.Context, cmd bus.ReturnMachines) (bus.CreateRequestResult, error) {
	return h.CreateRequest(ctx, bus.CreateRequest{
		RequestType: domain.RequestReturn,
		MachineIDs:  cmd.MachineIDs,
		Tags:        cmd.Tags,
	})
}

// runProvisioning drives a request from PENDING through to COMPLETED or
// FAILED, under the request's lock so repeated or concurrent commands
// for the same request_id never interleave (SPEC_FULL.md §5).
func (h *Handlers) runProvisioning(requestID string, reqType domain.RequestType) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultBackgroundTimeout)
	defer cancel()

	h.locks.WithLock(requestID, func() {
		req, ok, err := h.requests.GetByID(ctx, requestID)
		if err != nil || !ok {
			h.logger.Error(ctx, "provisioning: request not found at start", err, map[string]interface{}{"request_id": requestID})
			return
		}
		if req.Status.IsTerminal() {
			return
		}

		if err := req.StartProvisioning(h.now()); err != nil {
			h.logger.Error(ctx, "provisioning: cannot start", err, map[string]interface{}{"request_id": requestID})
			return
		}
		if err := h.requests.Save(ctx, req); err != nil {
			h.logger.Error(ctx, "provisioning: saving IN_PROGRESS failed", err, map[string]interface{}{"request_id": requestID})
			return
		}
		h.publish(req.Events())

		var runErr error
		if reqType == domain.RequestReturn {
			runErr = h.runReturn(ctx, &req)
		} else {
			runErr = h.runProvision(ctx, &req)
		}

		now := h.now()
		if runErr != nil {
			_ = req.FailTerminal(runErr.Error(), now)
			h.logger.Error(ctx, "provisioning failed", runErr, map[string]interface{}{"request_id": requestID})
		} else if err := req.Complete(now); err != nil {
			h.logger.Error(ctx, "provisioning: completing request failed", err, map[string]interface{}{"request_id": requestID})
			return
		}

		if err := h.requests.Save(ctx, req); err != nil {
			h.logger.Error(ctx, "provisioning: saving terminal status failed", err, map[string]interface{}{"request_id": requestID})
			return
		}
		h.publish(req.Events())
	})
}

// runProvision loads the request's template and drives machine
// provisioning through the provider context, attaching every returned
// machine id to req. An error here fails the request; partial success
// (fewer machines than requested, or any not RUNNING) is surfaced as a
// ProviderPermanent/ProviderTransient error so runProvisioning records
// it as the failure reason.
func (h *Handlers) runProvision(ctx context.Context, req *domain.Request) error {
	tpl, ok, err := h.templates.Get(ctx, req.TemplateID)
	if err != nil {
		return brokerror.Wrap(brokerror.Internal, "loading template", err)
	}
	if !ok {
		return brokerror.New(brokerror.NotFound, "template not found").WithField("template_id", req.TemplateID)
	}

	result, err := h.providers.Execute(ctx, provider.Criteria{}, func(ctx context.Context, strat provider.Strategy) (any, error) {
		return strat.ProvisionMachines(ctx, provider.ProvisionRequest{
			RequestID: req.RequestID,
			Template:  tpl,
			Count:     req.MachineCount,
			Tags:      req.Tags,
		})
	})
	if err != nil {
		return err
	}

	provisioned, _ := result.([]domain.Machine)
	ids := make([]string, 0, len(provisioned))
	for _, m := range provisioned {
		if err := h.machines.Save(ctx, m); err != nil {
			return brokerror.Wrap(brokerror.Internal, "saving provisioned machine", err)
		}
		ids = append(ids, m.MachineID)
	}
	if err := req.AttachMachines(ids...); err != nil {
		return brokerror.Wrap(brokerror.Internal, "attaching provisioned machines", err)
	}

	if len(provisioned) != req.MachineCount {
		return brokerror.New(brokerror.ProviderPermanent, "provider returned fewer machines than requested").
			WithField("requested", strconv.Itoa(req.MachineCount)).
			WithField("provisioned", strconv.Itoa(len(provisioned)))
	}
	for _, m := range provisioned {
		if m.Status != domain.MachineRunning {
			return brokerror.New(brokerror.ProviderTransient, "machine did not reach RUNNING during provisioning").WithField("machine_id", m.MachineID)
		}
	}
	return nil
}

// runReturn terminates every machine targeted by req, treating a
// missing or already-terminal machine as already satisfied (spec.md
// §4.3's "confirmed non-existent by the provider").
func (h *Handlers) runReturn(ctx context.Context, req *domain.Request) error {
	var toTerminate []domain.Machine
	var providerIDs []string

	for _, id := range req.MachineIDs {
		m, ok, err := h.machines.GetByID(ctx, id)
		if err != nil {
			return brokerror.Wrap(brokerror.Internal, "loading machine for return", err)
		}
		if !ok || m.Status.IsTerminal() {
			continue
		}
		toTerminate = append(toTerminate, m)
		if m.ProviderInstanceID != "" {
			providerIDs = append(providerIDs, m.ProviderInstanceID)
		}
	}

	if len(providerIDs) > 0 {
		_, err := h.providers.Execute(ctx, provider.Criteria{}, func(ctx context.Context, strat provider.Strategy) (any, error) {
			return nil, strat.TerminateMachines(ctx, providerIDs)
		})
		if err != nil {
			return err
		}
	}

	now := h.now()
	for _, m := range toTerminate {
		if m.Status == domain.MachineRunning {
			_ = m.Transition(domain.MachineStopping, now)
		}
		if err := m.Transition(domain.MachineTerminated, now); err != nil {
			h.logger.Warn(ctx, "return: machine could not be marked terminated", map[string]interface{}{"machine_id": m.MachineID, "status": string(m.Status)})
			continue
		}
		if err := h.machines.Save(ctx, m); err != nil {
			return brokerror.Wrap(brokerror.Internal, "saving terminated machine", err)
		}
		h.publish(m.Events())
	}
	return nil
}

// UpdateRequestStatus applies a provider- or poller-observed transition
// directly, for paths that do not go through runProvisioning (e.g. a
// capacity-denial detected before any machine was allocated).
func (h *Handlers) UpdateRequestStatus(ctx context.Context, cmd bus.UpdateRequestStatus) (domain.RequestStatus, error) {
	var status domain.RequestStatus
	var handlerErr error

	h.locks.WithLock(cmd.RequestID, func() {
		req, ok, err := h.requests.GetByID(ctx, cmd.RequestID)
		if err != nil {
			handlerErr = brokerror.Wrap(brokerror.Internal, "loading request", err)
			return
		}
		if !ok {
			handlerErr = brokerror.New(brokerror.NotFound, "request not found").WithField("request_id", cmd.RequestID)
			return
		}
		if req.Status == cmd.Status {
			status = req.Status
			return
		}

		var transitionErr error
		switch cmd.Status {
		case domain.RequestFailed:
			transitionErr = req.Fail(cmd.Reason, h.now())
		case domain.RequestCancelled:
			transitionErr = req.Cancel(h.now())
		case domain.RequestInProgress:
			transitionErr = req.StartProvisioning(h.now())
		default:
			transitionErr = brokerror.New(brokerror.Validation, "unsupported status transition").WithField("status", string(cmd.Status))
		}
		if transitionErr != nil {
			handlerErr = brokerror.Wrap(brokerror.Conflict, "updating request status", transitionErr)
			return
		}

		if err := h.requests.Save(ctx, req); err != nil {
			handlerErr = brokerror.Wrap(brokerror.Internal, "saving request", err)
			return
		}
		h.publish(req.Events())
		status = req.Status
	})

	return status, handlerErr
}

// CompleteRequest re-evaluates whether every machine a request spawned
// has reached a terminal launch/return state and, if so, marks the
// request COMPLETED or FAILED. It is the handler a background
// reconciler calls after observing machine status changes; calling it
// before every machine is ready is a no-op returning the current status
// (at-most-once per SPEC_FULL.md §4.3).
func (h *Handlers) CompleteRequest(ctx context.Context, cmd bus.CompleteRequest) (domain.RequestStatus, error) {
	var status domain.RequestStatus
	var handlerErr error

	h.locks.WithLock(cmd.RequestID, func() {
		req, ok, err := h.requests.GetByID(ctx, cmd.RequestID)
		if err != nil {
			handlerErr = brokerror.Wrap(brokerror.Internal, "loading request", err)
			return
		}
		if !ok {
			handlerErr = brokerror.New(brokerror.NotFound, "request not found").WithField("request_id", cmd.RequestID)
			return
		}
		if req.Status.IsTerminal() {
			status = req.Status
			return
		}
		if req.Status != domain.RequestInProgress {
			handlerErr = brokerror.New(brokerror.Conflict, "request is not IN_PROGRESS").WithField("status", string(req.Status))
			return
		}

		machines, err := h.loadMachines(ctx, req.MachineIDs)
		if err != nil {
			handlerErr = brokerror.Wrap(brokerror.Internal, "loading machines for request", err)
			return
		}

		ready, failed := evaluateCompletion(req, machines)
		if !ready {
			status = req.Status
			return
		}

		now := h.now()
		if failed {
			if err := req.FailTerminal("one or more machines did not reach the expected terminal state", now); err != nil {
				handlerErr = brokerror.Wrap(brokerror.Internal, "failing request", err)
				return
			}
		} else if err := req.Complete(now); err != nil {
			handlerErr = brokerror.Wrap(brokerror.Internal, "completing request", err)
			return
		}

		if err := h.requests.Save(ctx, req); err != nil {
			handlerErr = brokerror.Wrap(brokerror.Internal, "saving request", err)
			return
		}
		h.publish(req.Events())
		status = req.Status
	})

	return status, handlerErr
}

// loadMachines fetches every id in ids, fanning out across the bounded
// worker pool since a PROVISION or RETURN request's machine set can be
// large. ids for a RETURN request belonged to whichever request
// originally provisioned them, so this reads by id rather than
// FindByRequest(req.RequestID).
func (h *Handlers) loadMachines(ctx context.Context, ids []string) ([]domain.Machine, error) {
	machines := make([]domain.Machine, len(ids))
	fns := make([]func(context.Context) error, len(ids))
	for i, id := range ids {
		i, id := i, id
		fns[i] = func(ctx context.Context) error {
			m, ok, err := h.machines.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if ok {
				machines[i] = m
			}
			return nil
		}
	}

	for _, err := range runBounded(ctx, h.poolSize, fns) {
		if err != nil {
			return nil, err
		}
	}

	out := make([]domain.Machine, 0, len(ids))
	for _, m := range machines {
		if m.MachineID != "" {
			out = append(out, m)
		}
	}
	return out, nil
}

// evaluateCompletion reports whether every machine req spawned has
// reached a terminal state (ready) and, if so, whether the outcome is a
// failure (failed) per SPEC_FULL.md §4.3's PROVISION/RETURN completion
// rules.
func evaluateCompletion(req domain.Request, machines []domain.Machine) (ready bool, failed bool) {
	ready = true
	if req.RequestType != domain.RequestReturn && len(req.MachineIDs) != req.MachineCount {
		ready = false
	}

	for _, m := range machines {
		if req.RequestType == domain.RequestReturn {
			if !m.Status.IsTerminal() {
				ready = false
			}
			continue
		}
		switch m.Status {
		case domain.MachineRunning:
		case domain.MachineFailed, domain.MachineTerminated:
			failed = true
		default:
			ready = false
		}
	}
	return ready, failed
}

// GetRequest fetches a single request, translating a missing id into a
// NotFound error.
func (h *Handlers) GetRequest(ctx context.Context, q bus.GetRequest) (domain.Request, error) {
	req, ok, err := h.requests.GetByID(ctx, q.RequestID)
	if err != nil {
		return domain.Request{}, brokerror.Wrap(brokerror.Internal, "loading request", err)
	}
	if !ok {
		return domain.Request{}, brokerror.New(brokerror.NotFound, "request not found").WithField("request_id", q.RequestID)
	}
	return req, nil
}

// ListActiveRequests lists every non-terminal request.
func (h *Handlers) ListActiveRequests(ctx context.Context, _ bus.ListActiveRequests) ([]domain.Request, error) {
	all, err := h.requests.GetAll(ctx, func(r domain.Request) bool { return !r.Status.IsTerminal() }, 0, 0)
	if err != nil {
		return nil, brokerror.Wrap(brokerror.Internal, "listing active requests", err)
	}
	return all, nil
}

// GetRequestStatus answers the scheduler-facing status query; wire-level
// rendering of complete_with_error lives in internal/wire, not here.
func (h *Handlers) GetRequestStatus(ctx context.Context, q bus.GetRequestStatus) (bus.GetRequestStatusResult, error) {
	req, err := h.GetRequest(ctx, bus.GetRequest{RequestID: q.RequestID})
	if err != nil {
		return bus.GetRequestStatusResult{}, err
	}
	return bus.GetRequestStatusResult{
		RequestID:  req.RequestID,
		Status:     req.Status,
		MachineIDs: req.MachineIDs,
		Error:      req.Error,
	}, nil
}
