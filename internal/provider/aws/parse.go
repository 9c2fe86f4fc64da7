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

package aws

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/awslabs/open-resource-broker/internal/domain"
)

// machineFromInstance builds a domain.Machine from one EC2 instance
// record, the shared "parse responses into machine records" utility
// every handler uses once it has instance ids to describe.
func machineFromInstance(requestID, templateID string, inst types.Instance) domain.Machine {
	m := *domain.NewMachine(requestID, templateID, nil)
	m.ProviderInstanceID = *inst.InstanceId
	m.InstanceType = string(inst.InstanceType)

	if inst.PrivateIpAddress != nil {
		m.PrivateIP = *inst.PrivateIpAddress
	}
	if inst.PublicIpAddress != nil {
		m.PublicIP = *inst.PublicIpAddress
	}
	if inst.LaunchTime != nil {
		t := *inst.LaunchTime
		m.LaunchTime = &t
	}

	m.Status = machineStatusFromInstanceState(inst.State)
	return m
}

// machineStatusFromInstanceState maps an EC2 instance state name onto
// the broker's machine state machine.
func machineStatusFromInstanceState(state *types.InstanceState) domain.MachineStatus {
	if state == nil {
		return domain.MachineUnknown
	}
	switch state.Name {
	case types.InstanceStateNamePending:
		return domain.MachinePending
	case types.InstanceStateNameRunning:
		return domain.MachineRunning
	case types.InstanceStateNameStopping, types.InstanceStateNameShuttingDown:
		return domain.MachineStopping
	case types.InstanceStateNameTerminated:
		return domain.MachineTerminated
	case types.InstanceStateNameStopped:
		return domain.MachineFailed
	default:
		return domain.MachineUnknown
	}
}

// describeInstances fetches full instance records for ids, batching
// internally is unnecessary since DescribeInstances accepts up to 1000
// ids per call, well above any single request's machine_count.
func describeInstances(ctx context.Context, client ec2Client, ids []string) ([]types.Instance, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out, err := client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: ids})
	if err != nil {
		return nil, classifyError("DescribeInstances", err)
	}

	instances := make([]types.Instance, 0, len(ids))
	for _, r := range out.Reservations {
		instances = append(instances, r.Instances...)
	}
	return instances, nil
}

// terminateInstances is the shared termination path: EC2 termination
// semantics are identical regardless of which handler created the
// instance (RunInstances, a fleet, or an ASG's launch template).
func terminateInstances(ctx context.Context, client ec2Client, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: ids})
	return classifyError("TerminateInstances", err)
}

// describeInstanceStatus reports provider-observed machine status for a
// set of instance ids, independent of which handler created them.
// Ids that DescribeInstances does not return are reported as UNKNOWN
// rather than dropped.
func describeInstanceStatus(ctx context.Context, client ec2Client, ids []string) (map[string]domain.MachineStatus, error) {
	instances, err := describeInstances(ctx, client, ids)
	if err != nil {
		return nil, err
	}

	result := make(map[string]domain.MachineStatus, len(instances))
	for _, inst := range instances {
		if inst.InstanceId == nil {
			continue
		}
		result[*inst.InstanceId] = machineStatusFromInstanceState(inst.State)
	}
	for _, id := range ids {
		if _, ok := result[id]; !ok {
			result[id] = domain.MachineUnknown
		}
	}
	return result, nil
}

// waitForDiscoverable polls DescribeInstances until every id in ids is
// returned or the deadline elapses, per SPEC_FULL.md §4.5's "waits for
// instances to be discoverable (or for a provisioning-call timeout)".
func waitForDiscoverable(ctx context.Context, client ec2Client, ids []string, pollInterval, timeout time.Duration) ([]types.Instance, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		instances, err := describeInstances(ctx, client, ids)
		if err != nil {
			return nil, err
		}
		if len(instances) >= len(ids) {
			return instances, nil
		}
		if time.Now().After(deadline) {
			return instances, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
