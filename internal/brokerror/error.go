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

// Package brokerror defines the broker's error taxonomy: a single typed
// error carrying a Kind that every layer above the provider/repository
// boundary switches on, instead of inspecting error strings or concrete
// SDK error types.
package brokerror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry and presentation purposes.
type Kind string

const (
	Validation        Kind = "validation"
	NotFound          Kind = "not_found"
	Conflict          Kind = "conflict"
	ProviderTransient Kind = "provider_transient"
	ProviderPermanent Kind = "provider_permanent"
	CircuitOpen       Kind = "circuit_breaker_open"
	Timeout           Kind = "timeout"
	Cancelled         Kind = "cancelled"
	Internal          Kind = "internal"
)

// Error is the broker's single error type. Handlers at the provider and
// repository boundary translate low-level failures into one of these;
// everything above that boundary only ever sees a brokerror.Error.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the retry wrapper in internal/resilience should
// retry an operation that failed with this error. Only ProviderTransient
// and Timeout are retryable per the error handling design; Timeout is
// treated as ProviderTransient for retry purposes and converted to a
// terminal FAILED request only once retries are exhausted.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case ProviderTransient, Timeout:
		return true
	default:
		return false
	}
}

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind wrapping a lower-level cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithField returns a copy of the error with an additional diagnostic field
// (e.g. "field" -> "max_number" for a Validation error).
func (e *Error) WithField(key, value string) *Error {
	cp := *e
	cp.Fields = make(map[string]string, len(e.Fields)+1)
	for k, v := range e.Fields {
		cp.Fields[k] = v
	}
	cp.Fields[key] = value
	return &cp
}

// Of extracts the Kind of err if it is (or wraps) a *Error, otherwise
// returns Internal.
func Of(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return Internal
}

// IsRetryable reports whether err should be retried, per Error.Retryable.
// A non-brokerror error is treated as non-retryable.
func IsRetryable(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Retryable()
	}
	return false
}
