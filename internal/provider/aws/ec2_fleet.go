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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/awslabs/open-resource-broker/internal/brokerror"
	"github.com/awslabs/open-resource-broker/internal/domain"
	"github.com/awslabs/open-resource-broker/internal/provider"
)

// EC2FleetHandler provisions through an instant EC2Fleet request. It is
// the default handler: chosen when use_fleet resolves true (the default
// when spot and auto-scaling are not requested) or price_type is
// heterogeneous.
type EC2FleetHandler struct {
	cfg Config
	ec2 ec2Client
}

// ProvisionInstances builds one LaunchTemplateConfig with one override
// per subnet (instance_type in each) and asks
// CreateFleet for req.Count instances in a single "instant" fleet
// request, then waits for the fleet's instances to be discoverable.
func (h *EC2FleetHandler) ProvisionInstances(ctx context.Context, req provider.ProvisionRequest) ([]domain.Machine, error) {
	tpl := req.Template

	overrides := make([]types.FleetLaunchTemplateOverridesRequest, 0, len(tpl.SubnetIDs))
	if len(tpl.SubnetIDs) == 0 {
		overrides = append(overrides, types.FleetLaunchTemplateOverridesRequest{
			InstanceType: types.InstanceType(tpl.InstanceType),
		})
	}
	for _, subnet := range tpl.SubnetIDs {
		overrides = append(overrides, types.FleetLaunchTemplateOverridesRequest{
			InstanceType: types.InstanceType(tpl.InstanceType),
			SubnetId:     aws.String(subnet),
		})
	}

	launchSpec := &types.FleetLaunchTemplateSpecificationRequest{}
	if tpl.LaunchTemplateID != "" {
		launchSpec.LaunchTemplateId = aws.String(tpl.LaunchTemplateID)
		launchSpec.Version = aws.String("$Latest")
	}

	input := &ec2.CreateFleetInput{
		Type: types.FleetTypeInstant,
		LaunchTemplateConfigs: []types.FleetLaunchTemplateConfigRequest{
			{
				LaunchTemplateSpecification: launchSpec,
				Overrides:                   overrides,
			},
		},
		TargetCapacitySpecification: &types.TargetCapacitySpecificationRequest{
			TotalTargetCapacity:       aws.Int32(int32(req.Count)),
			DefaultTargetCapacityType: types.DefaultTargetCapacityTypeOnDemand,
		},
		TagSpecifications: tagSpecifications(types.ResourceTypeFleet, req.RequestID, "EC2Fleet", tpl),
	}
	if tpl.AllocationStrategy != "" {
		input.TargetCapacitySpecification.OnDemandAllocationStrategy = types.FleetOnDemandAllocationStrategy(tpl.AllocationStrategy)
	}

	out, err := h.ec2.CreateFleet(ctx, input)
	if err != nil {
		return nil, classifyError("CreateFleet", err)
	}
	if len(out.Errors) > 0 && len(out.Instances) == 0 {
		return nil, brokerror.New(brokerror.ProviderTransient, "CreateFleet: "+aws.ToString(out.Errors[0].ErrorMessage))
	}
	fleetID := aws.ToString(out.FleetId)

	ids, err := h.waitForFleetInstances(ctx, fleetID, req.Count)
	if err != nil {
		return nil, err
	}

	instances, err := waitForDiscoverable(ctx, h.ec2, ids, pollInterval(h.cfg), provisionTimeout(h.cfg))
	if err != nil {
		return nil, classifyError("CreateFleet", err)
	}

	machines := make([]domain.Machine, 0, len(instances))
	for _, inst := range instances {
		machines = append(machines, machineFromInstance(req.RequestID, tpl.TemplateID, inst))
	}
	return machines, nil
}

// waitForFleetInstances polls DescribeFleetInstances until the fleet has
// handed out at least `want` instance ids or the provisioning timeout
// elapses.
func (h *EC2FleetHandler) waitForFleetInstances(ctx context.Context, fleetID string, want int) ([]string, error) {
	deadline := time.Now().Add(provisionTimeout(h.cfg))
	ticker := time.NewTicker(pollInterval(h.cfg))
	defer ticker.Stop()

	for {
		out, err := h.ec2.DescribeFleetInstances(ctx, &ec2.DescribeFleetInstancesInput{FleetId: aws.String(fleetID)})
		if err != nil {
			return nil, classifyError("DescribeFleetInstances", err)
		}

		ids := make([]string, 0, len(out.ActiveInstances))
		for _, ai := range out.ActiveInstances {
			if ai.InstanceId != nil {
				ids = append(ids, *ai.InstanceId)
			}
		}
		if len(ids) >= want || time.Now().After(deadline) {
			return ids, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// TerminateInstances delegates to the shared EC2 termination path; a
// fleet's instances terminate the same way any other EC2 instance does.
func (h *EC2FleetHandler) TerminateInstances(ctx context.Context, ids []string) error {
	return terminateInstances(ctx, h.ec2, ids)
}

// GetInstanceStatus delegates to the shared status path.
func (h *EC2FleetHandler) GetInstanceStatus(ctx context.Context, ids []string) (map[string]domain.MachineStatus, error) {
	return describeInstanceStatus(ctx, h.ec2, ids)
}

// ValidateTemplate checks the attributes this handler actually consumes.
func (h *EC2FleetHandler) ValidateTemplate(ctx context.Context, tpl domain.Template) ([]string, error) {
	var problems []string
	if tpl.InstanceType == "" && len(tpl.InstanceTypes) == 0 {
		problems = append(problems, "instance_type or instance_types is required")
	}
	if len(tpl.SubnetIDs) == 0 {
		problems = append(problems, "subnet_ids must contain at least one subnet")
	}
	return problems, nil
}
