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

package wire

import (
	"github.com/awslabs/open-resource-broker/internal/bus"
	"github.com/awslabs/open-resource-broker/internal/domain"
)

// GetRequestStatusRequest is the inbound getRequestStatus payload.
type GetRequestStatusRequest struct {
	RequestID string `json:"requestId"`
}

// ToQuery converts an inbound getRequestStatus payload into a
// bus.GetRequestStatus query.
func (r GetRequestStatusRequest) ToQuery() bus.GetRequestStatus {
	return bus.GetRequestStatus{RequestID: r.RequestID}
}

// MachineView is one entry of getRequestStatus's machines array.
type MachineView struct {
	MachineID  string  `json:"machineId"`
	PrivateIP  string  `json:"privateIp,omitempty"`
	PublicIP   string  `json:"publicIp,omitempty"`
	Status     string  `json:"status"`
	LaunchTime *string `json:"launchTime,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// GetRequestStatusResponse is the outbound getRequestStatus response.
// Status is one of running|pending|complete|complete_with_error|failed
// (spec.md §6); there is no sixth internal status backing
// complete_with_error — see statusString.
type GetRequestStatusResponse struct {
	RequestID   string        `json:"requestId"`
	Status      string        `json:"status"`
	MachineCount int          `json:"machineCount"`
	Machines    []MachineView `json:"machines"`
	Message     string        `json:"message,omitempty"`
}

// FromRequestStatus builds the outbound response from the status query's
// result plus the full machine set (fetched separately by the caller via
// ListMachinesByRequest, since GetRequestStatusResult only carries ids).
func FromRequestStatus(result bus.GetRequestStatusResult, machines []domain.Machine) GetRequestStatusResponse {
	resp := GetRequestStatusResponse{
		RequestID:    result.RequestID,
		Status:       statusString(result.Status, result.MachineIDs),
		MachineCount: len(result.MachineIDs),
		Machines:     make([]MachineView, 0, len(machines)),
	}
	if result.Error != nil {
		resp.Message = result.Error.Message
	}
	for _, m := range machines {
		resp.Machines = append(resp.Machines, machineView(m))
	}
	return resp
}

func machineView(m domain.Machine) MachineView {
	v := MachineView{
		MachineID: m.MachineID,
		PrivateIP: m.PrivateIP,
		PublicIP:  m.PublicIP,
		Status:    machineStatusString(m.Status),
	}
	if m.LaunchTime != nil {
		s := m.LaunchTime.UTC().Format("2006-01-02T15:04:05Z")
		v.LaunchTime = &s
	}
	if m.Error != nil {
		v.Error = m.Error.Message
	}
	return v
}

func machineStatusString(s domain.MachineStatus) string {
	switch s {
	case domain.MachinePending:
		return "pending"
	case domain.MachineRunning:
		return "running"
	case domain.MachineStopping:
		return "stopping"
	case domain.MachineTerminated:
		return "terminated"
	case domain.MachineFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// statusString derives the scheduler-facing status string for a request,
// including the complete_with_error presentation value: per
// DESIGN.md's Open Question #1 decision, complete_with_error is not a
// distinct domain.RequestStatus, only a view of FAILED with at least one
// machine id already attached (a partial success before the terminal
// failure).
func statusString(status domain.RequestStatus, machineIDs []string) string {
	switch status {
	case domain.RequestPending:
		return "pending"
	case domain.RequestInProgress:
		return "running"
	case domain.RequestCompleted:
		return "complete"
	case domain.RequestFailed:
		if len(machineIDs) > 0 {
			return "complete_with_error"
		}
		return "failed"
	case domain.RequestCancelled:
		return "failed"
	default:
		return "failed"
	}
}
