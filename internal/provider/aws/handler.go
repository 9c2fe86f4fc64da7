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

	"github.com/awslabs/open-resource-broker/internal/domain"
	"github.com/awslabs/open-resource-broker/internal/provider"
)

// instanceHandler is the internal contract every AWS provisioning
// strategy (RunInstances, EC2Fleet, SpotFleet, AutoScalingGroup)
// implements, per SPEC_FULL.md §4.5.
type instanceHandler interface {
	ProvisionInstances(ctx context.Context, req provider.ProvisionRequest) ([]domain.Machine, error)
	TerminateInstances(ctx context.Context, ids []string) error
	GetInstanceStatus(ctx context.Context, ids []string) (map[string]domain.MachineStatus, error)
	ValidateTemplate(ctx context.Context, tpl domain.Template) ([]string, error)
}

// HandlerFactory picks among the four handlers by template attribute,
// per the decision table in SPEC_FULL.md §4.5.
type HandlerFactory struct {
	runInstances     *RunInstancesHandler
	ec2Fleet         *EC2FleetHandler
	spotFleet        *SpotFleetHandler
	autoScalingGroup *AutoScalingGroupHandler
}

// NewHandlerFactory constructs the four handlers sharing one set of SDK
// clients and configuration.
func NewHandlerFactory(cfg Config, ec2c ec2Client, asgc asgClient) *HandlerFactory {
	return &HandlerFactory{
		runInstances:     &RunInstancesHandler{cfg: cfg, ec2: ec2c},
		ec2Fleet:         &EC2FleetHandler{cfg: cfg, ec2: ec2c},
		spotFleet:        &SpotFleetHandler{cfg: cfg, ec2: ec2c},
		autoScalingGroup: &AutoScalingGroupHandler{cfg: cfg, ec2: ec2c, asg: asgc},
	}
}

// Select applies the decision table:
//
//	use_spot_instances == true or price_type == spot   -> SpotFleet
//	use_auto_scaling == true                           -> AutoScalingGroup
//	use_fleet == true (default) or price_type heterogeneous -> EC2Fleet
//	otherwise                                          -> RunInstances
func (f *HandlerFactory) Select(tpl domain.Template) instanceHandler {
	switch {
	case tpl.UseSpotInstances || tpl.PriceType == domain.PriceSpot:
		return f.spotFleet
	case tpl.UseAutoScaling:
		return f.autoScalingGroup
	case tpl.UsesFleet() || tpl.PriceType == domain.PriceHeterogeneous:
		return f.ec2Fleet
	default:
		return f.runInstances
	}
}
