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

// Package wire holds the scheduler-facing request/response shapes named
// in spec.md §6 (requestMachines, getRequestStatus, returnMachines,
// getAvailableTemplates) and the conversions between them and the
// command/query bus's internal types.
package wire

import (
	"github.com/awslabs/open-resource-broker/internal/bus"
	"github.com/awslabs/open-resource-broker/internal/domain"
)

// RequestMachinesRequest is the inbound requestMachines payload. MaxNumber
// and MachineCount are the two accepted spellings for the same field
// (scheduler versions differ); ToCommand prefers MachineCount when both
// are set.
type RequestMachinesRequest struct {
	TemplateID   string            `json:"templateId"`
	MaxNumber    int               `json:"maxNumber,omitempty"`
	MachineCount int               `json:"machine_count,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
	Priority     int               `json:"priority,omitempty"`
}

// Count resolves the two accepted spellings of the requested machine
// count to a single value.
func (r RequestMachinesRequest) Count() int {
	if r.MachineCount > 0 {
		return r.MachineCount
	}
	return r.MaxNumber
}

// ToCommand converts an inbound requestMachines payload into a
// bus.CreateRequest for a PROVISION request.
func (r RequestMachinesRequest) ToCommand() bus.CreateRequest {
	return bus.CreateRequest{
		TemplateID:   r.TemplateID,
		RequestType:  domain.RequestProvision,
		MachineCount: r.Count(),
		Tags:         domain.Tags(r.Tags),
		Priority:     r.Priority,
	}
}

// RequestMachinesResponse is the outbound requestMachines response.
type RequestMachinesResponse struct {
	RequestID string `json:"requestId"`
}

// FromCreateRequestResult builds the outbound response from a dispatched
// CreateRequest's result.
func FromCreateRequestResult(result bus.CreateRequestResult) RequestMachinesResponse {
	return RequestMachinesResponse{RequestID: result.RequestID}
}

// ReturnMachinesRequest is the inbound returnMachines payload.
type ReturnMachinesRequest struct {
	MachineIDs []string `json:"machineIds"`
}

// ToCommand converts an inbound returnMachines payload into a
// bus.ReturnMachines command.
func (r ReturnMachinesRequest) ToCommand() bus.ReturnMachines {
	return bus.ReturnMachines{MachineIDs: r.MachineIDs}
}

// ReturnMachinesResponse is the outbound returnMachines response (a
// "ret-…" request id).
type ReturnMachinesResponse struct {
	RequestID string `json:"requestId"`
}

// FromReturnResult builds the outbound returnMachines response.
func FromReturnResult(result bus.CreateRequestResult) ReturnMachinesResponse {
	return ReturnMachinesResponse{RequestID: result.RequestID}
}
