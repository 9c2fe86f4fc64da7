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

	"github.com/awslabs/open-resource-broker/internal/domain"
	"github.com/awslabs/open-resource-broker/internal/provider"
)

// SpotFleetHandler provisions through a spot fleet request, honoring
// allocation_strategy and max_spot_price, for templates with
// use_spot_instances or price_type spot.
type SpotFleetHandler struct {
	cfg Config
	ec2 ec2Client
}

// ProvisionInstances submits a spot fleet request sized to req.Count and
// polls until the fleet reports enough active instances.
func (h *SpotFleetHandler) ProvisionInstances(ctx context.Context, req provider.ProvisionRequest) ([]domain.Machine, error) {
	tpl := req.Template

	specs := make([]types.SpotFleetLaunchSpecification, 0, len(tpl.SubnetIDs))
	base := types.SpotFleetLaunchSpecification{
		ImageId:          aws.String(tpl.ImageID),
		InstanceType:     types.InstanceType(tpl.InstanceType),
		SecurityGroups:   securityGroupIdentifiers(tpl.SecurityGroupIDs),
	}
	if tpl.UserData != "" {
		base.UserData = aws.String(tpl.UserData)
	}
	if tpl.InstanceProfile != "" {
		base.IamInstanceProfile = &types.IamInstanceProfileSpecification{Name: aws.String(tpl.InstanceProfile)}
	}
	if tpl.MaxSpotPrice != "" {
		base.SpotPrice = aws.String(tpl.MaxSpotPrice)
	}

	if len(tpl.SubnetIDs) == 0 {
		specs = append(specs, base)
	}
	for _, subnet := range tpl.SubnetIDs {
		spec := base
		spec.SubnetId = aws.String(subnet)
		specs = append(specs, spec)
	}

	input := &ec2.RequestSpotFleetInput{
		SpotFleetRequestConfig: &types.SpotFleetRequestConfigData{
			IamFleetRole:                     aws.String(tpl.FleetRole),
			TargetCapacity:                   aws.Int32(int32(req.Count)),
			LaunchSpecifications:             specs,
			Type:                             types.FleetTypeRequestMaintain,
			TerminateInstancesWithExpiration: aws.Bool(true),
		},
	}
	if tpl.AllocationStrategy != "" {
		input.SpotFleetRequestConfig.AllocationStrategy = types.AllocationStrategy(tpl.AllocationStrategy)
	}
	if tpl.PoolsCount > 0 {
		input.SpotFleetRequestConfig.InstancePoolsToUseCount = aws.Int32(int32(tpl.PoolsCount))
	}
	if tpl.SpotFleetRequestExpiry > 0 {
		expiry := time.Now().Add(time.Duration(tpl.SpotFleetRequestExpiry) * time.Minute)
		input.SpotFleetRequestConfig.ValidUntil = &expiry
	}

	out, err := h.ec2.RequestSpotFleet(ctx, input)
	if err != nil {
		return nil, classifyError("RequestSpotFleet", err)
	}
	fleetID := aws.ToString(out.SpotFleetRequestId)

	ids, err := h.waitForSpotFleetInstances(ctx, fleetID, req.Count)
	if err != nil {
		return nil, err
	}

	instances, err := waitForDiscoverable(ctx, h.ec2, ids, pollInterval(h.cfg), provisionTimeout(h.cfg))
	if err != nil {
		return nil, classifyError("RequestSpotFleet", err)
	}

	machines := make([]domain.Machine, 0, len(instances))
	for _, inst := range instances {
		machines = append(machines, machineFromInstance(req.RequestID, tpl.TemplateID, inst))
	}
	return machines, nil
}

func (h *SpotFleetHandler) waitForSpotFleetInstances(ctx context.Context, fleetID string, want int) ([]string, error) {
	deadline := time.Now().Add(provisionTimeout(h.cfg))
	ticker := time.NewTicker(pollInterval(h.cfg))
	defer ticker.Stop()

	for {
		out, err := h.ec2.DescribeSpotFleetInstances(ctx, &ec2.DescribeSpotFleetInstancesInput{SpotFleetRequestId: aws.String(fleetID)})
		if err != nil {
			return nil, classifyError("DescribeSpotFleetInstances", err)
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

// TerminateInstances terminates the given instances through the shared
// EC2 termination path. The spot fleet request itself is not cancelled
// or resized.
func (h *SpotFleetHandler) TerminateInstances(ctx context.Context, ids []string) error {
	return terminateInstances(ctx, h.ec2, ids)
}

// GetInstanceStatus delegates to the shared status path.
func (h *SpotFleetHandler) GetInstanceStatus(ctx context.Context, ids []string) (map[string]domain.MachineStatus, error) {
	return describeInstanceStatus(ctx, h.ec2, ids)
}

// ValidateTemplate checks the attributes this handler actually consumes.
func (h *SpotFleetHandler) ValidateTemplate(ctx context.Context, tpl domain.Template) ([]string, error) {
	var problems []string
	if tpl.ImageID == "" {
		problems = append(problems, "image_id is required")
	}
	if tpl.FleetRole == "" {
		problems = append(problems, "fleet_role is required for spot fleet requests")
	}
	if tpl.InstanceType == "" {
		problems = append(problems, "instance_type is required")
	}
	return problems, nil
}

func securityGroupIdentifiers(ids []string) []types.GroupIdentifier {
	out := make([]types.GroupIdentifier, 0, len(ids))
	for _, id := range ids {
		groupID := id
		out = append(out, types.GroupIdentifier{GroupId: &groupID})
	}
	return out
}
