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

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestType distinguishes a provisioning request from a return request.
type RequestType string

const (
	RequestProvision RequestType = "PROVISION"
	RequestReturn    RequestType = "RETURN"
)

// RequestStatus is one of the five states a Request may occupy. There is
// no sixth "complete_with_error" status — see DESIGN.md, Open Question #1.
type RequestStatus string

const (
	RequestPending    RequestStatus = "PENDING"
	RequestInProgress RequestStatus = "IN_PROGRESS"
	RequestCompleted  RequestStatus = "COMPLETED"
	RequestFailed    RequestStatus = "FAILED"
	RequestCancelled  RequestStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are permitted from s.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestCompleted, RequestFailed, RequestCancelled:
		return true
	default:
		return false
	}
}

// ErrorSummary is a structured, JSON-roundtrippable failure summary
// attached to a terminal Request or Machine, in place of a raw error
// value (see SPEC_FULL.md §3).
type ErrorSummary struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Request is a unit of work submitted to the broker: provision N machines
// of a template, or return a specific set of machines.
type Request struct {
	RequestID   string
	TemplateID  string
	RequestType RequestType
	MachineCount int
	Status      RequestStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	Tags        Tags
	Priority    int
	MachineIDs  []string
	Error       *ErrorSummary

	events []Event
}

// requestIDPrefix returns "req-" for PROVISION and "ret-" for RETURN, per
// spec.md §3's request_id format.
func requestIDPrefix(t RequestType) string {
	if t == RequestReturn {
		return "ret-"
	}
	return "req-"
}

// NewRequest constructs a PENDING Request and records a RequestCreated
// event. machineCount must be >= 1 (validated by the caller before
// construction; see internal/handlers).
func NewRequest(templateID string, t RequestType, machineCount int, tags Tags, priority int, now time.Time) *Request {
	id := requestIDPrefix(t) + uuid.NewString()
	r := &Request{
		RequestID:    id,
		TemplateID:   templateID,
		RequestType:  t,
		MachineCount: machineCount,
		Status:       RequestPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		Tags:         tags.Clone(),
		Priority:     priority,
		MachineIDs:   []string{},
	}
	r.raise(Event{
		AggregateID: id,
		Type:        EventRequestCreated,
		At:          now,
		Payload: RequestCreatedPayload{
			RequestID:   id,
			TemplateID:  templateID,
			RequestType: t,
			Count:       machineCount,
		},
	})
	return r
}

// Events returns and clears the events accumulated since the last call,
// the way an aggregate hands its outbox to the publisher after a save.
func (r *Request) Events() []Event {
	ev := r.events
	r.events = nil
	return ev
}

func (r *Request) raise(e Event) {
	r.events = append(r.events, e)
}

func (r *Request) transition(to RequestStatus, now time.Time) error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("request %s is terminal (%s), cannot transition to %s", r.RequestID, r.Status, to)
	}
	from := r.Status
	r.Status = to
	r.UpdatedAt = now
	r.raise(Event{
		AggregateID: r.RequestID,
		Type:        EventRequestStatusChanged,
		At:          now,
		Payload:     RequestStatusChangedPayload{RequestID: r.RequestID, From: from, To: to},
	})
	return nil
}

// StartProvisioning moves PENDING -> IN_PROGRESS once a provider has been
// selected for this request.
func (r *Request) StartProvisioning(now time.Time) error {
	if r.Status != RequestPending {
		return fmt.Errorf("request %s: StartProvisioning requires PENDING, got %s", r.RequestID, r.Status)
	}
	return r.transition(RequestInProgress, now)
}

// Fail moves the request to FAILED (from PENDING or IN_PROGRESS) and
// records the reason. Idempotent: failing an already-FAILED request with
// the same at-most-once semantics is a no-op returning nil.
func (r *Request) Fail(reason string, now time.Time) error {
	if r.Status == RequestFailed {
		return nil
	}
	if r.Status.IsTerminal() {
		return fmt.Errorf("request %s is terminal (%s), cannot fail", r.RequestID, r.Status)
	}
	if err := r.transition(RequestFailed, now); err != nil {
		return err
	}
	r.Error = &ErrorSummary{Code: "PROVISIONING_FAILED", Message: reason, At: now}
	r.raise(Event{
		AggregateID: r.RequestID,
		Type:        EventRequestFailed,
		At:          now,
		Payload:     RequestFailedPayload{RequestID: r.RequestID, Reason: reason},
	})
	return nil
}

// Cancel moves PENDING -> CANCELLED. Per spec.md §5, cancelling a request
// after provisioning has begun (IN_PROGRESS) only transitions to CANCELLED
// if no machine has reached RUNNING; callers must check that externally
// and call Fail/Cancel accordingly, or schedule a RETURN instead.
func (r *Request) Cancel(now time.Time) error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("request %s is terminal (%s), cannot cancel", r.RequestID, r.Status)
	}
	return r.transition(RequestCancelled, now)
}

// AttachMachines appends newly allocated machine ids, enforcing
// machine_ids.length <= machine_count at all times.
func (r *Request) AttachMachines(ids ...string) error {
	if len(r.MachineIDs)+len(ids) > r.MachineCount {
		return fmt.Errorf("request %s: attaching %d machines would exceed machine_count %d", r.RequestID, len(ids), r.MachineCount)
	}
	r.MachineIDs = append(r.MachineIDs, ids...)
	return nil
}

// Complete moves IN_PROGRESS -> COMPLETED. Callers must have already
// verified the completion condition for the request type (see
// internal/handlers): for PROVISION, every machine in MachineIDs is
// RUNNING and len(MachineIDs) == MachineCount; for RETURN, every targeted
// machine is TERMINATED or confirmed non-existent.
func (r *Request) Complete(now time.Time) error {
	if r.Status != RequestInProgress {
		return fmt.Errorf("request %s: Complete requires IN_PROGRESS, got %s", r.RequestID, r.Status)
	}
	if err := r.transition(RequestCompleted, now); err != nil {
		return err
	}
	r.CompletedAt = &now
	r.raise(Event{
		AggregateID: r.RequestID,
		Type:        EventRequestCompleted,
		At:          now,
		Payload:     RequestCompletedPayload{RequestID: r.RequestID, MachineIDs: append([]string{}, r.MachineIDs...)},
	})
	return nil
}

// FailTerminal moves IN_PROGRESS -> FAILED and stamps CompletedAt, used
// when a PROVISION request partially succeeds (some but not all machines
// reached RUNNING) and spec.md §4.3's "COMPLETED or FAILED" choice lands
// on FAILED.
func (r *Request) FailTerminal(reason string, now time.Time) error {
	if err := r.Fail(reason, now); err != nil {
		return err
	}
	r.CompletedAt = &now
	return nil
}
