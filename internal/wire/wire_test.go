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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/open-resource-broker/internal/bus"
	"github.com/awslabs/open-resource-broker/internal/domain"
)

func TestRequestMachinesRequest_PrefersMachineCount(t *testing.T) {
	req := RequestMachinesRequest{TemplateID: "t1", MaxNumber: 2, MachineCount: 5}
	assert.Equal(t, 5, req.Count())

	cmd := req.ToCommand()
	assert.Equal(t, "t1", cmd.TemplateID)
	assert.Equal(t, domain.RequestProvision, cmd.RequestType)
	assert.Equal(t, 5, cmd.MachineCount)
}

func TestRequestMachinesRequest_FallsBackToMaxNumber(t *testing.T) {
	req := RequestMachinesRequest{TemplateID: "t1", MaxNumber: 3}
	assert.Equal(t, 3, req.Count())
}

func TestReturnMachinesRequest_ToCommand(t *testing.T) {
	req := ReturnMachinesRequest{MachineIDs: []string{"m-1", "m-2"}}
	cmd := req.ToCommand()
	assert.Equal(t, []string{"m-1", "m-2"}, cmd.MachineIDs)
}

func TestFromRequestStatus_Complete(t *testing.T) {
	launch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	result := bus.GetRequestStatusResult{
		RequestID:  "req-1",
		Status:     domain.RequestCompleted,
		MachineIDs: []string{"m-1"},
	}
	machines := []domain.Machine{
		{MachineID: "m-1", Status: domain.MachineRunning, PrivateIP: "10.0.0.1", LaunchTime: &launch},
	}

	resp := FromRequestStatus(result, machines)
	assert.Equal(t, "complete", resp.Status)
	assert.Equal(t, 1, resp.MachineCount)
	require.Len(t, resp.Machines, 1)
	assert.Equal(t, "running", resp.Machines[0].Status)
	assert.Equal(t, "10.0.0.1", resp.Machines[0].PrivateIP)
	assert.NotNil(t, resp.Machines[0].LaunchTime)
}

func TestFromRequestStatus_CompleteWithError(t *testing.T) {
	result := bus.GetRequestStatusResult{
		RequestID:  "req-2",
		Status:     domain.RequestFailed,
		MachineIDs: []string{"m-1"},
		Error:      &domain.ErrorSummary{Message: "provider returned fewer machines than requested"},
	}
	resp := FromRequestStatus(result, nil)
	assert.Equal(t, "complete_with_error", resp.Status)
	assert.Equal(t, "provider returned fewer machines than requested", resp.Message)
}

func TestFromRequestStatus_FailedNoMachines(t *testing.T) {
	result := bus.GetRequestStatusResult{RequestID: "req-3", Status: domain.RequestFailed}
	resp := FromRequestStatus(result, nil)
	assert.Equal(t, "failed", resp.Status)
}

func TestFromRequestStatus_Pending(t *testing.T) {
	result := bus.GetRequestStatusResult{RequestID: "req-4", Status: domain.RequestPending}
	resp := FromRequestStatus(result, nil)
	assert.Equal(t, "pending", resp.Status)
}

func TestFromTemplate_AttributesUseDoubleArrayForm(t *testing.T) {
	tpl := domain.Template{TemplateID: "t1", MaxNumber: 5, InstanceType: "m5.large"}
	view := FromTemplate(tpl)

	assert.Equal(t, "t1", view.TemplateID)
	assert.Equal(t, []interface{}{"String", "X86_64"}, view.Attributes["type"])
	assert.Equal(t, []interface{}{"Numeric", 2}, view.Attributes["ncpus"])
	assert.Equal(t, []interface{}{"Numeric", 8192}, view.Attributes["nram"])
}

func TestFromTemplate_UnknownInstanceTypeFallsBack(t *testing.T) {
	tpl := domain.Template{TemplateID: "t1", MaxNumber: 1, InstanceType: "exotic.custom"}
	view := FromTemplate(tpl)
	assert.Equal(t, []interface{}{"Numeric", 1}, view.Attributes["ncpus"])
}
