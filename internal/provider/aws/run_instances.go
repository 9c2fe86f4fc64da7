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

// RunInstancesHandler is the fallback handler: a direct RunInstances call
// with no fleet or scaling wrapper, used when use_fleet resolves false
// and no spot, auto-scaling or heterogeneous-price attribute applies.
type RunInstancesHandler struct {
	cfg Config
	ec2 ec2Client
}

// ProvisionInstances creates req.Count instances, split across calls no
// larger than cfg.MaxInstancesPerCall, then waits for them to become
// discoverable before returning machine records.
func (h *RunInstancesHandler) ProvisionInstances(ctx context.Context, req provider.ProvisionRequest) ([]domain.Machine, error) {
	tpl := req.Template
	input := &ec2.RunInstancesInput{
		ImageId:           aws.String(tpl.ImageID),
		InstanceType:      types.InstanceType(tpl.InstanceType),
		MinCount:          aws.Int32(1),
		SecurityGroupIds:  tpl.SecurityGroupIDs,
		TagSpecifications: tagSpecifications(types.ResourceTypeInstance, req.RequestID, "RunInstances", tpl),
	}
	if len(tpl.SubnetIDs) > 0 {
		input.SubnetId = aws.String(tpl.SubnetIDs[0])
	}
	if tpl.UserData != "" {
		input.UserData = aws.String(tpl.UserData)
	}
	if tpl.InstanceProfile != "" {
		input.IamInstanceProfile = &types.IamInstanceProfileSpecification{Name: aws.String(tpl.InstanceProfile)}
	}
	if tpl.RootVolume != nil {
		input.BlockDeviceMappings = []types.BlockDeviceMapping{rootVolumeMapping(*tpl.RootVolume)}
	}

	remaining := req.Count
	ids := make([]string, 0, req.Count)
	for remaining > 0 {
		batch := remaining
		if h.cfg.MaxInstancesPerCall > 0 && batch > h.cfg.MaxInstancesPerCall {
			batch = h.cfg.MaxInstancesPerCall
		}
		input.MaxCount = aws.Int32(int32(batch))

		out, err := h.ec2.RunInstances(ctx, input)
		if err != nil {
			return nil, classifyError("RunInstances", err)
		}
		for _, inst := range out.Instances {
			if inst.InstanceId != nil {
				ids = append(ids, *inst.InstanceId)
			}
		}
		remaining -= batch
	}

	instances, err := waitForDiscoverable(ctx, h.ec2, ids, pollInterval(h.cfg), provisionTimeout(h.cfg))
	if err != nil {
		return nil, classifyError("RunInstances", err)
	}

	machines := make([]domain.Machine, 0, len(instances))
	for _, inst := range instances {
		machines = append(machines, machineFromInstance(req.RequestID, tpl.TemplateID, inst))
	}
	return machines, nil
}

// TerminateInstances delegates to the shared EC2 termination path.
func (h *RunInstancesHandler) TerminateInstances(ctx context.Context, ids []string) error {
	return terminateInstances(ctx, h.ec2, ids)
}

// GetInstanceStatus delegates to the shared status path.
func (h *RunInstancesHandler) GetInstanceStatus(ctx context.Context, ids []string) (map[string]domain.MachineStatus, error) {
	return describeInstanceStatus(ctx, h.ec2, ids)
}

// ValidateTemplate checks the attributes this handler actually consumes.
func (h *RunInstancesHandler) ValidateTemplate(ctx context.Context, tpl domain.Template) ([]string, error) {
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

func rootVolumeMapping(rv domain.RootVolume) types.BlockDeviceMapping {
	ebs := &types.EbsBlockDevice{Encrypted: aws.Bool(rv.Encrypted)}
	if rv.SizeGB > 0 {
		ebs.VolumeSize = aws.Int32(int32(rv.SizeGB))
	}
	if rv.VolumeType != "" {
		ebs.VolumeType = types.VolumeType(rv.VolumeType)
	}
	return types.BlockDeviceMapping{DeviceName: aws.String("/dev/xvda"), Ebs: ebs}
}

func pollInterval(cfg Config) time.Duration {
	if cfg.PollInterval <= 0 {
		return 10 * time.Second
	}
	return time.Duration(cfg.PollInterval) * time.Second
}

func provisionTimeout(cfg Config) time.Duration {
	if cfg.ProvisionTimeoutSec <= 0 {
		return 600 * time.Second
	}
	return time.Duration(cfg.ProvisionTimeoutSec) * time.Second
}
