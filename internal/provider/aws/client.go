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

// Package aws implements the AWS provider.Strategy: handler selection by
// template attributes, four handler implementations (RunInstances,
// EC2Fleet, SpotFleet, AutoScalingGroup), and the shared tag/parse/error
// utilities they all use.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/awslabs/open-resource-broker/internal/domain"
	"github.com/awslabs/open-resource-broker/internal/logging"
	"github.com/awslabs/open-resource-broker/internal/provider"
)

// ec2Client and asgClient are the slices of the SDK clients our handlers
// actually call, narrowed to an interface so tests can supply a fake
// without standing up a real AWS account.
type ec2Client interface {
	RunInstances(ctx context.Context, in *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
	TerminateInstances(ctx context.Context, in *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	CreateFleet(ctx context.Context, in *ec2.CreateFleetInput, optFns ...func(*ec2.Options)) (*ec2.CreateFleetOutput, error)
	DescribeFleetInstances(ctx context.Context, in *ec2.DescribeFleetInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeFleetInstancesOutput, error)
	DeleteFleets(ctx context.Context, in *ec2.DeleteFleetsInput, optFns ...func(*ec2.Options)) (*ec2.DeleteFleetsOutput, error)
	RequestSpotFleet(ctx context.Context, in *ec2.RequestSpotFleetInput, optFns ...func(*ec2.Options)) (*ec2.RequestSpotFleetOutput, error)
	DescribeSpotFleetInstances(ctx context.Context, in *ec2.DescribeSpotFleetInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSpotFleetInstancesOutput, error)
	CancelSpotFleetRequests(ctx context.Context, in *ec2.CancelSpotFleetRequestsInput, optFns ...func(*ec2.Options)) (*ec2.CancelSpotFleetRequestsOutput, error)
	DescribeInstanceStatus(ctx context.Context, in *ec2.DescribeInstanceStatusInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceStatusOutput, error)
}

type asgClient interface {
	CreateAutoScalingGroup(ctx context.Context, in *autoscaling.CreateAutoScalingGroupInput, optFns ...func(*autoscaling.Options)) (*autoscaling.CreateAutoScalingGroupOutput, error)
	DescribeAutoScalingGroups(ctx context.Context, in *autoscaling.DescribeAutoScalingGroupsInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
	UpdateAutoScalingGroup(ctx context.Context, in *autoscaling.UpdateAutoScalingGroupInput, optFns ...func(*autoscaling.Options)) (*autoscaling.UpdateAutoScalingGroupOutput, error)
	DeleteAutoScalingGroup(ctx context.Context, in *autoscaling.DeleteAutoScalingGroupInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DeleteAutoScalingGroupOutput, error)
	CreateLaunchConfiguration(ctx context.Context, in *autoscaling.CreateLaunchConfigurationInput, optFns ...func(*autoscaling.Options)) (*autoscaling.CreateLaunchConfigurationOutput, error)
}

// Config configures the AWS Strategy instance: which region/profile to
// connect to, and the operational knobs the handlers need.
type Config struct {
	Region              string
	Profile             string
	MaxInstancesPerCall int
	PollInterval        int // seconds
	ProvisionTimeoutSec int
}

// DefaultConfig returns sane defaults for a single-account AWS strategy.
func DefaultConfig(region string) Config {
	return Config{
		Region:              region,
		MaxInstancesPerCall: 50,
		PollInterval:        10,
		ProvisionTimeoutSec: 600,
	}
}

// Strategy implements provider.Strategy against one AWS account/region.
// Handler selection per-request is delegated to HandlerFactory, so
// Strategy itself only owns the SDK clients and dispatches.
type Strategy struct {
	cfg     Config
	ec2     ec2Client
	asg     asgClient
	factory *HandlerFactory
	logger  *logging.Logger
}

// New constructs a Strategy using the default AWS credential chain, the
// way aws-sdk-go-v2 examples load config (awsconfig.LoadDefaultConfig).
func New(ctx context.Context, cfg Config) (*Strategy, error) {
	optFns := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		optFns = append(optFns, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("aws strategy: loading SDK config: %w", err)
	}

	ec2c := ec2.NewFromConfig(awsCfg)
	asgc := autoscaling.NewFromConfig(awsCfg)
	return newWithClients(cfg, ec2c, asgc), nil
}

// newWithClients builds a Strategy from already-constructed clients, the
// seam tests use to inject fakes.
func newWithClients(cfg Config, ec2c ec2Client, asgc asgClient) *Strategy {
	return &Strategy{
		cfg:     cfg,
		ec2:     ec2c,
		asg:     asgc,
		factory: NewHandlerFactory(cfg, ec2c, asgc),
		logger:  logging.New("provider.aws"),
	}
}

// ProvisionMachines selects a handler per req.Template's attributes and
// provisions req.Count machines through it.
func (s *Strategy) ProvisionMachines(ctx context.Context, req provider.ProvisionRequest) ([]domain.Machine, error) {
	h := s.factory.Select(req.Template)
	return h.ProvisionInstances(ctx, req)
}

// TerminateMachines routes to RunInstances-style termination; every
// handler shares the same terminate semantics (EC2 TerminateInstances),
// so this does not need the template to pick a handler.
func (s *Strategy) TerminateMachines(ctx context.Context, ids []string) error {
	return terminateInstances(ctx, s.ec2, ids)
}

// GetMachineStatus reports provider-observed status for the given
// provider instance ids, independent of which handler created them.
func (s *Strategy) GetMachineStatus(ctx context.Context, ids []string) (map[string]domain.MachineStatus, error) {
	return describeInstanceStatus(ctx, s.ec2, ids)
}

// ValidateTemplate runs the selected handler's static checks for the
// attributes it consumes (AMI/subnet/SG patterns are checked by
// internal/template). Nothing is checked against the live account.
func (s *Strategy) ValidateTemplate(ctx context.Context, tpl domain.Template) ([]string, error) {
	h := s.factory.Select(tpl)
	return h.ValidateTemplate(ctx, tpl)
}

// GetAvailableTemplates has no AWS-side source of truth; templates live
// in internal/template. The provider interface still requires the
// method so a Strategy is a drop-in replacement for any future provider
// that does source templates from the cloud (e.g. launch template
// catalogs).
func (s *Strategy) GetAvailableTemplates(ctx context.Context) ([]domain.Template, error) {
	return nil, nil
}

// HealthCheck performs a cheap, read-only account call to confirm
// credentials and connectivity are still good.
func (s *Strategy) HealthCheck(ctx context.Context) error {
	_, err := s.ec2.DescribeInstanceStatus(ctx, &ec2.DescribeInstanceStatusInput{MaxResults: aws.Int32(1)})
	return err
}
