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

import "github.com/awslabs/open-resource-broker/internal/domain"

// CreateRequest asks the broker to provision MachineCount machines for
// TemplateID, or (RequestType RequestReturn) to return the machines named
// in MachineIDs.
type CreateRequest struct {
	TemplateID   string
	RequestType  domain.RequestType
	MachineCount int
	MachineIDs   []string // only meaningful for RequestReturn
	Tags         domain.Tags
	Priority     int
}

// CreateRequestResult is the outcome of CreateRequest.
type CreateRequestResult struct {
	RequestID string
	Status    domain.RequestStatus
}

// UpdateRequestStatus records a provider-driven status transition for an
// existing request (e.g. a poller observing capacity denial).
type UpdateRequestStatus struct {
	RequestID string
	Status    domain.RequestStatus
	Reason    string
}

// CompleteRequest marks a request COMPLETED or FAILED once every attached
// machine has reached a terminal launch/return state.
type CompleteRequest struct {
	RequestID string
}

// ReturnMachines schedules a RETURN request for a specific set of machine
// ids, independent of which request originally provisioned them.
type ReturnMachines struct {
	MachineIDs []string
	Tags       domain.Tags
}

// UpdateMachineStatus records a provider-observed status transition for a
// single machine.
type UpdateMachineStatus struct {
	MachineID string
	Status    domain.MachineStatus
	Reason    string
}

// CleanupMachineResources releases any provider-side resources (volumes,
// network interfaces) left behind by a terminated machine.
type CleanupMachineResources struct {
	MachineID string
}

// ValidateTemplate runs the full validation rule set (see
// internal/template) against a template body, without persisting it.
type ValidateTemplate struct {
	Template domain.Template
}

// ValidateTemplateResult mirrors spec.md §4.2's validate() contract.
type ValidateTemplateResult struct {
	IsValid           bool
	Errors            []string
	Warnings          []string
	SupportedFeatures []string
}

// CreateTemplate adds a new template definition to the active template
// source (used by administrative tooling, not the scheduler wire path).
type CreateTemplate struct {
	Template domain.Template
}

// UpdateTemplate replaces an existing template definition in place.
type UpdateTemplate struct {
	Template domain.Template
}

// DeleteTemplate removes a template definition by id.
type DeleteTemplate struct {
	TemplateID string
}

// SelectProviderStrategy asks the provider context to pick a strategy
// instance for a new operation, per the configured selection policy.
type SelectProviderStrategy struct {
	TemplateID string
}

// SelectProviderStrategyResult names the chosen provider instance.
type SelectProviderStrategyResult struct {
	ProviderInstance string
}

// ExecuteProviderOperation invokes one named operation (provision,
// terminate, status, validate) on a specific provider instance, wrapped
// in the resilience stack.
type ExecuteProviderOperation struct {
	ProviderInstance string
	Operation        string
	Payload          any
}

// ExecuteProviderOperationResult carries the operation's raw result.
type ExecuteProviderOperationResult struct {
	Result any
}

// RegisterProviderStrategy adds a new provider instance to the context's
// registry (e.g. a second AWS account/region pair).
type RegisterProviderStrategy struct {
	InstanceName string
	ProviderType string
	Config       map[string]string
}

// UpdateProviderHealth records a health observation for a provider
// instance, normally produced by the background health checker.
type UpdateProviderHealth struct {
	ProviderInstance string
	Healthy          bool
	LatencyMS        int64
}

// ConfigureProviderStrategy updates the selection policy used by the
// provider context. Weights is carried on the command but not applied by
// the handler: per-strategy weights come from each registration.
type ConfigureProviderStrategy struct {
	SelectionPolicy string
	Weights         map[string]int
}
