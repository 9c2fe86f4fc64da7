package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// fakeEC2 implements ec2Client with one overridable func field per
// method; tests set only the fields a given scenario needs.
type fakeEC2 struct {
	runInstances               func(context.Context, *ec2.RunInstancesInput) (*ec2.RunInstancesOutput, error)
	terminateInstances         func(context.Context, *ec2.TerminateInstancesInput) (*ec2.TerminateInstancesOutput, error)
	describeInstances          func(context.Context, *ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error)
	createFleet                func(context.Context, *ec2.CreateFleetInput) (*ec2.CreateFleetOutput, error)
	describeFleetInstances     func(context.Context, *ec2.DescribeFleetInstancesInput) (*ec2.DescribeFleetInstancesOutput, error)
	deleteFleets               func(context.Context, *ec2.DeleteFleetsInput) (*ec2.DeleteFleetsOutput, error)
	requestSpotFleet           func(context.Context, *ec2.RequestSpotFleetInput) (*ec2.RequestSpotFleetOutput, error)
	describeSpotFleetInstances func(context.Context, *ec2.DescribeSpotFleetInstancesInput) (*ec2.DescribeSpotFleetInstancesOutput, error)
	cancelSpotFleetRequests    func(context.Context, *ec2.CancelSpotFleetRequestsInput) (*ec2.CancelSpotFleetRequestsOutput, error)
	describeInstanceStatus     func(context.Context, *ec2.DescribeInstanceStatusInput) (*ec2.DescribeInstanceStatusOutput, error)
}

func (f *fakeEC2) RunInstances(ctx context.Context, in *ec2.RunInstancesInput, _ ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error) {
	return f.runInstances(ctx, in)
}

func (f *fakeEC2) TerminateInstances(ctx context.Context, in *ec2.TerminateInstancesInput, _ ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	return f.terminateInstances(ctx, in)
}

func (f *fakeEC2) DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	return f.describeInstances(ctx, in)
}

func (f *fakeEC2) CreateFleet(ctx context.Context, in *ec2.CreateFleetInput, _ ...func(*ec2.Options)) (*ec2.CreateFleetOutput, error) {
	return f.createFleet(ctx, in)
}

func (f *fakeEC2) DescribeFleetInstances(ctx context.Context, in *ec2.DescribeFleetInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeFleetInstancesOutput, error) {
	return f.describeFleetInstances(ctx, in)
}

func (f *fakeEC2) DeleteFleets(ctx context.Context, in *ec2.DeleteFleetsInput, _ ...func(*ec2.Options)) (*ec2.DeleteFleetsOutput, error) {
	return f.deleteFleets(ctx, in)
}

func (f *fakeEC2) RequestSpotFleet(ctx context.Context, in *ec2.RequestSpotFleetInput, _ ...func(*ec2.Options)) (*ec2.RequestSpotFleetOutput, error) {
	return f.requestSpotFleet(ctx, in)
}

func (f *fakeEC2) DescribeSpotFleetInstances(ctx context.Context, in *ec2.DescribeSpotFleetInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeSpotFleetInstancesOutput, error) {
	return f.describeSpotFleetInstances(ctx, in)
}

func (f *fakeEC2) CancelSpotFleetRequests(ctx context.Context, in *ec2.CancelSpotFleetRequestsInput, _ ...func(*ec2.Options)) (*ec2.CancelSpotFleetRequestsOutput, error) {
	return f.cancelSpotFleetRequests(ctx, in)
}

func (f *fakeEC2) DescribeInstanceStatus(ctx context.Context, in *ec2.DescribeInstanceStatusInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstanceStatusOutput, error) {
	return f.describeInstanceStatus(ctx, in)
}

// fakeASG implements asgClient with one overridable func field per method.
type fakeASG struct {
	createAutoScalingGroup    func(context.Context, *autoscaling.CreateAutoScalingGroupInput) (*autoscaling.CreateAutoScalingGroupOutput, error)
	describeAutoScalingGroups func(context.Context, *autoscaling.DescribeAutoScalingGroupsInput) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
	updateAutoScalingGroup    func(context.Context, *autoscaling.UpdateAutoScalingGroupInput) (*autoscaling.UpdateAutoScalingGroupOutput, error)
	deleteAutoScalingGroup    func(context.Context, *autoscaling.DeleteAutoScalingGroupInput) (*autoscaling.DeleteAutoScalingGroupOutput, error)
	createLaunchConfiguration func(context.Context, *autoscaling.CreateLaunchConfigurationInput) (*autoscaling.CreateLaunchConfigurationOutput, error)
}

func (f *fakeASG) CreateAutoScalingGroup(ctx context.Context, in *autoscaling.CreateAutoScalingGroupInput, _ ...func(*autoscaling.Options)) (*autoscaling.CreateAutoScalingGroupOutput, error) {
	return f.createAutoScalingGroup(ctx, in)
}

func (f *fakeASG) DescribeAutoScalingGroups(ctx context.Context, in *autoscaling.DescribeAutoScalingGroupsInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error) {
	return f.describeAutoScalingGroups(ctx, in)
}

func (f *fakeASG) UpdateAutoScalingGroup(ctx context.Context, in *autoscaling.UpdateAutoScalingGroupInput, _ ...func(*autoscaling.Options)) (*autoscaling.UpdateAutoScalingGroupOutput, error) {
	return f.updateAutoScalingGroup(ctx, in)
}

func (f *fakeASG) DeleteAutoScalingGroup(ctx context.Context, in *autoscaling.DeleteAutoScalingGroupInput, _ ...func(*autoscaling.Options)) (*autoscaling.DeleteAutoScalingGroupOutput, error) {
	return f.deleteAutoScalingGroup(ctx, in)
}

func (f *fakeASG) CreateLaunchConfiguration(ctx context.Context, in *autoscaling.CreateLaunchConfigurationInput, _ ...func(*autoscaling.Options)) (*autoscaling.CreateLaunchConfigurationOutput, error) {
	return f.createLaunchConfiguration(ctx, in)
}
