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

package bus

import (
	"time"

	"github.com/awslabs/open-resource-broker/internal/domain"
)

// GetRequest fetches a single request by id.
type GetRequest struct {
	RequestID string
}

// ListActiveRequests fetches every non-terminal request.
type ListActiveRequests struct{}

// GetRequestStatus is the scheduler-facing status query: cheaper than
// GetRequest, returns only what getRequestStatus needs on the wire.
type GetRequestStatus struct {
	RequestID string
}

// GetRequestStatusResult mirrors what the wire layer needs to render
// complete_with_error (see SPEC_FULL.md Open Question #1).
type GetRequestStatusResult struct {
	RequestID  string
	Status     domain.RequestStatus
	MachineIDs []string
	Error      *domain.ErrorSummary
}

// GetMachine fetches a single machine by id.
type GetMachine struct {
	MachineID string
}

// ListMachinesByRequest fetches every machine attached to a request.
type ListMachinesByRequest struct {
	RequestID string
}

// GetActiveMachineCount counts machines in a non-terminal state, used for
// capacity/backpressure decisions.
type GetActiveMachineCount struct {
	TemplateID string // empty means across all templates
}

// ListTemplates lists every currently loaded template, optionally
// filtered by provider API.
type ListTemplates struct {
	ProviderAPI string
}

// GetTemplate fetches a single template by id.
type GetTemplate struct {
	TemplateID string
}

// GetProviderHealth reports the current health snapshot for a provider
// instance.
type GetProviderHealth struct {
	ProviderInstance string
}

// GetProviderHealthResult is the provider context's health snapshot.
type GetProviderHealthResult struct {
	Healthy        bool
	LastCheckedAt  time.Time
	ConsecutiveErr int
}

// ListAvailableProviders lists every registered provider instance name.
type ListAvailableProviders struct{}

// GetProviderCapabilities reports the operations and instance families a
// provider instance supports.
type GetProviderCapabilities struct {
	ProviderInstance string
}

// GetProviderMetrics reports the rolling metrics the selection policies
// read (success rate, latency percentiles, active operation count).
type GetProviderMetrics struct {
	ProviderInstance string
}

// GetProviderMetricsResult mirrors internal/provider's MetricsTracker
// snapshot.
type GetProviderMetricsResult struct {
	SuccessRate      float64
	LatencyP50MS     int64
	LatencyP95MS     int64
	ActiveOperations int
}

// GetProviderConfig reports the stored configuration for a provider
// instance (redacting secrets is the caller's responsibility).
type GetProviderConfig struct {
	ProviderInstance string
}
