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
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	asgtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"

	"github.com/awslabs/open-resource-broker/internal/domain"
	"github.com/awslabs/open-resource-broker/internal/provider"
)

// AutoScalingGroupHandler provisions by creating an Auto Scaling Group
// named for the request and sized to its count, for templates with
// use_auto_scaling set. One ASG is created per request rather than
// reused, since a request's machines are a fixed-size, one-shot batch.
type AutoScalingGroupHandler struct {
	cfg Config
	ec2 ec2Client
	asg asgClient
}

// ProvisionInstances creates a launch configuration and an Auto Scaling
// Group sized to req.Count, then polls until req.Count instances report
// InService.
func (h *AutoScalingGroupHandler) ProvisionInstances(ctx context.Context, req provider.ProvisionRequest) ([]domain.Machine, error) {
	tpl := req.Template
	asgName := "broker-" + req.RequestID
	lcName := asgName + "-lc"

	lcInput := &autoscaling.CreateLaunchConfigurationInput{
		LaunchConfigurationName: aws.String(lcName),
		ImageId:                 aws.String(tpl.ImageID),
		InstanceType:            aws.String(tpl.InstanceType),
		SecurityGroups:          tpl.SecurityGroupIDs,
	}
	if tpl.UserData != "" {
		lcInput.UserData = aws.String(tpl.UserData)
	}
	if tpl.InstanceProfile != "" {
		lcInput.IamInstanceProfile = aws.String(tpl.InstanceProfile)
	}
	if _, err := h.asg.CreateLaunchConfiguration(ctx, lcInput); err != nil {
		return nil, classifyError("CreateLaunchConfiguration", err)
	}

	asgInput := &autoscaling.CreateAutoScalingGroupInput{
		AutoScalingGroupName:    aws.String(asgName),
		LaunchConfigurationName: aws.String(lcName),
		MinSize:                 aws.Int32(int32(req.Count)),
		MaxSize:                 aws.Int32(int32(req.Count)),
		DesiredCapacity:         aws.Int32(int32(req.Count)),
		VPCZoneIdentifier:       aws.String(strings.Join(tpl.SubnetIDs, ",")),
		Tags:                    asgTags(req.RequestID, tpl),
	}
	if _, err := h.asg.CreateAutoScalingGroup(ctx, asgInput); err != nil {
		return nil, classifyError("CreateAutoScalingGroup", err)
	}

	ids, err := h.waitForInService(ctx, asgName, req.Count)
	if err != nil {
		return nil, err
	}

	instances, err := waitForDiscoverable(ctx, h.ec2, ids, pollInterval(h.cfg), provisionTimeout(h.cfg))
	if err != nil {
		return nil, classifyError("CreateAutoScalingGroup", err)
	}

	machines := make([]domain.Machine, 0, len(instances))
	for _, inst := range instances {
		machines = append(machines, machineFromInstance(req.RequestID, tpl.TemplateID, inst))
	}
	return machines, nil
}

func (h *AutoScalingGroupHandler) waitForInService(ctx context.Context, asgName string, want int) ([]string, error) {
	deadline := time.Now().Add(provisionTimeout(h.cfg))
	ticker := time.NewTicker(pollInterval(h.cfg))
	defer ticker.Stop()

	for {
		out, err := h.asg.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
			AutoScalingGroupNames: []string{asgName},
		})
		if err != nil {
			return nil, classifyError("DescribeAutoScalingGroups", err)
		}

		var ids []string
		if len(out.AutoScalingGroups) > 0 {
			for _, inst := range out.AutoScalingGroups[0].Instances {
				if inst.LifecycleState == asgtypes.LifecycleStateInService && inst.InstanceId != nil {
					ids = append(ids, *inst.InstanceId)
				}
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
// EC2 termination path. The Auto Scaling Group and its launch
// configuration are not deleted or resized.
func (h *AutoScalingGroupHandler) TerminateInstances(ctx context.Context, ids []string) error {
	return terminateInstances(ctx, h.ec2, ids)
}

// GetInstanceStatus delegates to the shared status path.
func (h *AutoScalingGroupHandler) GetInstanceStatus(ctx context.Context, ids []string) (map[string]domain.MachineStatus, error) {
	return describeInstanceStatus(ctx, h.ec2, ids)
}

// ValidateTemplate checks the attributes this handler actually consumes.
func (h *AutoScalingGroupHandler) ValidateTemplate(ctx context.Context, tpl domain.Template) ([]string, error) {
	var problems []string
	if tpl.ImageID == "" {
		problems = append(problems, "image_id is required")
	}
	if tpl.InstanceType == "" {
		problems = append(problems, "instance_type is required")
	}
	if len(tpl.SubnetIDs) == 0 {
		problems = append(problems, "subnet_ids must contain at least one subnet")
	}
	return problems, nil
}

func asgTags(requestID string, tpl domain.Template) []asgtypes.Tag {
	merged := tpl.Tags.Clone()
	if merged == nil {
		merged = domain.Tags{}
	}
	merged["RequestId"] = requestID
	merged["Handler"] = "AutoScalingGroup"

	tags := make([]asgtypes.Tag, 0, len(merged))
	for k, v := range merged {
		key, value := k, v
		tags = append(tags, asgtypes.Tag{Key: &key, Value: &value, PropagateAtLaunch: aws.Bool(true)})
	}
	return tags
}
