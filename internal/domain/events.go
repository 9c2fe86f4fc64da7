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
	"sync"
	"time"
)

// EventType identifies the shape of an Event's Payload.
type EventType string

const (
	EventRequestCreated       EventType = "RequestCreated"
	EventRequestStatusChanged EventType = "RequestStatusChanged"
	EventRequestFailed        EventType = "RequestFailed"
	EventRequestCompleted     EventType = "RequestCompleted"
	EventMachineStatusChanged EventType = "MachineStatusChanged"
	EventMachineTerminated    EventType = "MachineTerminated"
)

// Event is the envelope for a single domain event raised by an aggregate
// mutator. Events for one aggregate are appended in transition order;
// across aggregates there is no ordering guarantee.
type Event struct {
	AggregateID string
	Type        EventType
	At          time.Time
	Payload     any
}

// RequestCreatedPayload is the Payload for EventRequestCreated.
type RequestCreatedPayload struct {
	RequestID   string
	TemplateID  string
	RequestType RequestType
	Count       int
}

// RequestStatusChangedPayload is the Payload for EventRequestStatusChanged.
type RequestStatusChangedPayload struct {
	RequestID string
	From      RequestStatus
	To        RequestStatus
}

// RequestFailedPayload is the Payload for EventRequestFailed.
type RequestFailedPayload struct {
	RequestID string
	Reason    string
}

// RequestCompletedPayload is the Payload for EventRequestCompleted.
type RequestCompletedPayload struct {
	RequestID  string
	MachineIDs []string
}

// MachineStatusChangedPayload is the Payload for EventMachineStatusChanged.
type MachineStatusChangedPayload struct {
	MachineID string
	From      MachineStatus
	To        MachineStatus
}

// MachineTerminatedPayload is the Payload for EventMachineTerminated.
type MachineTerminatedPayload struct {
	MachineID string
	RequestID string
}

// Publisher delivers events to zero or more subscribers, in the order
// they are appended by an aggregate. Persistence of the event log is
// optional and not provided by this package.
type Publisher interface {
	Publish(events ...Event)
	Subscribe(fn func(Event)) (unsubscribe func())
}

// InProcessPublisher is an in-process, synchronous fan-out publisher: each
// Publish call invokes every subscriber in registration order on the
// calling goroutine. It is safe for concurrent use.
type InProcessPublisher struct {
	mu   sync.Mutex
	subs []subscription
	next int
}

type subscription struct {
	id int
	fn func(Event)
}

func (p *InProcessPublisher) Publish(events ...Event) {
	p.mu.Lock()
	subs := make([]subscription, len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()

	for _, e := range events {
		for _, s := range subs {
			s.fn(e)
		}
	}
}

func (p *InProcessPublisher) Subscribe(fn func(Event)) func() {
	p.mu.Lock()
	id := p.next
	p.next++
	p.subs = append(p.subs, subscription{id: id, fn: fn})
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, s := range p.subs {
			if s.id == id {
				p.subs = append(p.subs[:i], p.subs[i+1:]...)
				return
			}
		}
	}
}

// NewInProcessPublisher creates an empty publisher.
func NewInProcessPublisher() *InProcessPublisher {
	return &InProcessPublisher{}
}
