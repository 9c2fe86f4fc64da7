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

package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/awslabs/open-resource-broker/internal/brokerror"
)

// State is one of the three circuit breaker states.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// CircuitBreakerConfig configures the failure threshold and the two
// timers: how long to stay OPEN before probing, and how long a
// HALF_OPEN probe is allowed to run before it reverts to OPEN.
type CircuitBreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	HalfOpenTimeout  time.Duration
}

// DefaultCircuitBreakerConfig returns spec.md §4.7's defaults:
// failure_threshold=5, reset_timeout=60s.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
		HalfOpenTimeout:  30 * time.Second,
	}
}

// CircuitBreaker guards a single provider operation path. It starts
// CLOSED, trips to OPEN after FailureThreshold consecutive failures,
// moves to HALF_OPEN once ResetTimeout has elapsed to admit one probe
// call, and either closes again on success or reopens on failure. A
// HALF_OPEN probe that neither succeeds nor fails within HalfOpenTimeout
// reverts to OPEN on its own, so a hung provider call cannot wedge the
// breaker open indefinitely.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu              sync.Mutex
	state           State
	consecutiveFail int
	openedAt        time.Time
	halfOpenSince   time.Time
	halfOpenInUse   bool
}

// NewCircuitBreaker constructs a breaker in the CLOSED state.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, state: StateClosed}
}

// State reports the breaker's current state, resolving any pending
// timer transitions (OPEN -> HALF_OPEN, stale HALF_OPEN -> OPEN) first.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.resolveTimers(time.Now())
	return cb.state
}

// resolveTimers must be called with cb.mu held.
func (cb *CircuitBreaker) resolveTimers(now time.Time) {
	switch cb.state {
	case StateOpen:
		if now.Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
			cb.state = StateHalfOpen
			cb.halfOpenInUse = false
		}
	case StateHalfOpen:
		if cb.halfOpenInUse && now.Sub(cb.halfOpenSince) >= cb.cfg.HalfOpenTimeout {
			cb.state = StateOpen
			cb.openedAt = now
			cb.halfOpenInUse = false
		}
	}
}

// Allow reports whether a new call may proceed, reserving the single
// HALF_OPEN probe slot if the breaker is in that state.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	now := time.Now()
	cb.resolveTimers(now)

	switch cb.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.halfOpenInUse {
			return false
		}
		cb.halfOpenInUse = true
		cb.halfOpenSince = now
		return true
	default: // StateOpen
		return false
	}
}

// RecordSuccess closes the breaker (from CLOSED or HALF_OPEN) and
// resets the failure counter.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFail = 0
	cb.state = StateClosed
	cb.halfOpenInUse = false
}

// RecordFailure increments the failure counter, tripping the breaker
// to OPEN if the threshold is reached or the failure happened during a
// HALF_OPEN probe.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	now := time.Now()

	if cb.state == StateHalfOpen {
		cb.state = StateOpen
		cb.openedAt = now
		cb.halfOpenInUse = false
		return
	}

	cb.consecutiveFail++
	if cb.consecutiveFail >= cb.cfg.FailureThreshold {
		cb.state = StateOpen
		cb.openedAt = now
	}
}

// Run executes fn if the breaker admits the call, recording the
// outcome. A rejected call returns brokerror.CircuitOpen without
// invoking fn.
func Run[T any](cb *CircuitBreaker, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if !cb.Allow() {
		return zero, brokerror.New(brokerror.CircuitOpen, "circuit breaker is open")
	}

	result, err := fn(ctx)
	if err != nil {
		cb.RecordFailure()
		return zero, err
	}
	cb.RecordSuccess()
	return result, nil
}
