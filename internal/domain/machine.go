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

// MachineStatus is one of the states a Machine may occupy.
type MachineStatus string

const (
	MachinePending    MachineStatus = "PENDING"
	MachineRunning    MachineStatus = "RUNNING"
	MachineStopping   MachineStatus = "STOPPING"
	MachineTerminated MachineStatus = "TERMINATED"
	MachineFailed     MachineStatus = "FAILED"
	MachineUnknown    MachineStatus = "UNKNOWN"
)

// IsTerminal reports whether the machine is immutable at this status.
func (s MachineStatus) IsTerminal() bool {
	return s == MachineTerminated || s == MachineFailed
}

// allowedMachineTransitions enumerates every edge in spec.md §4.3's
// Machine state table; Transition rejects anything not listed here so "no
// state machine enters an un-enumerated state" holds by construction.
var allowedMachineTransitions = map[MachineStatus]map[MachineStatus]bool{
	MachinePending: {
		MachinePending:    true,
		MachineRunning:    true,
		MachineFailed:     true,
		MachineUnknown:    true,
		MachineTerminated: true,
	},
	MachineRunning: {
		MachineStopping:   true,
		MachineFailed:     true,
		MachineUnknown:    true,
		MachineTerminated: true,
	},
	MachineStopping: {
		MachineTerminated: true,
		MachineFailed:     true,
		MachineUnknown:    true,
	},
	MachineUnknown: {
		MachineRunning:    true,
		MachineTerminated: true,
		MachineFailed:     true,
		MachineUnknown:    true,
	},
}

// Machine is a single provisioned unit tracked by the broker, mapping 1:1
// to a cloud instance once ProviderInstanceID is set.
type Machine struct {
	MachineID          string
	ProviderInstanceID string
	RequestID          string
	TemplateID         string
	Status             MachineStatus
	InstanceType       string
	PrivateIP          string
	PublicIP           string
	LaunchTime         *time.Time
	ProviderData        map[string]string
	Tags               Tags
	Error              *ErrorSummary

	missedPolls int

	events []Event
}

// NewMachine constructs a PENDING Machine for the given request/template.
// ProviderInstanceID is empty until the handler's provisioning call
// returns one, per the invariant "provider_instance_id is set before
// status leaves PENDING".
func NewMachine(requestID, templateID string, tags Tags) *Machine {
	return &Machine{
		MachineID:  "m-" + uuid.NewString(),
		RequestID:  requestID,
		TemplateID: templateID,
		Status:     MachinePending,
		Tags:       tags.Clone(),
	}
}

// Events returns and clears the events accumulated since the last call.
func (m *Machine) Events() []Event {
	ev := m.events
	m.events = nil
	return ev
}

func (m *Machine) raise(e Event) {
	m.events = append(m.events, e)
}

// Transition moves the machine to status `to`, rejecting the move if it is
// not an allowed edge or if the machine is already terminal (terminated
// and failed machines are immutable).
func (m *Machine) Transition(to MachineStatus, now time.Time) error {
	if m.Status.IsTerminal() {
		return fmt.Errorf("machine %s is terminal (%s), cannot transition to %s", m.MachineID, m.Status, to)
	}
	if !allowedMachineTransitions[m.Status][to] {
		return fmt.Errorf("machine %s: %s -> %s is not an allowed transition", m.MachineID, m.Status, to)
	}
	from := m.Status
	m.Status = to
	m.raise(Event{
		AggregateID: m.MachineID,
		Type:        EventMachineStatusChanged,
		At:          now,
		Payload:     MachineStatusChangedPayload{MachineID: m.MachineID, From: from, To: to},
	})
	if to == MachineTerminated {
		m.raise(Event{
			AggregateID: m.MachineID,
			Type:        EventMachineTerminated,
			At:          now,
			Payload:     MachineTerminatedPayload{MachineID: m.MachineID, RequestID: m.RequestID},
		})
	}
	return nil
}

// AssignProviderInstance records the provider-assigned instance id and
// launch details. Must be called before the machine leaves PENDING.
func (m *Machine) AssignProviderInstance(instanceID, instanceType string, launchTime time.Time) {
	m.ProviderInstanceID = instanceID
	m.InstanceType = instanceType
	m.LaunchTime = &launchTime
}

// SetNetwork records the instance's private/public IP once known.
func (m *Machine) SetNetwork(privateIP, publicIP string) {
	m.PrivateIP = privateIP
	m.PublicIP = publicIP
}

// Fail marks the machine FAILED with a structured reason. Immutable once
// terminal: calling Fail on an already-terminal machine is a no-op.
func (m *Machine) Fail(code, message string, now time.Time) {
	if m.Status.IsTerminal() {
		return
	}
	_ = m.Transition(MachineFailed, now)
	m.Error = &ErrorSummary{Code: code, Message: message, At: now}
}

// RecordMissedPoll increments the consecutive-missed-poll counter used to
// decide the ">N polls missing" UNKNOWN transition (§4.3), returning the
// new count.
func (m *Machine) RecordMissedPoll() int {
	m.missedPolls++
	return m.missedPolls
}

// ResetMissedPolls clears the counter once the provider reports the
// instance again.
func (m *Machine) ResetMissedPolls() {
	m.missedPolls = 0
}
