package aws

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/open-resource-broker/internal/domain"
	"github.com/awslabs/open-resource-broker/internal/provider"
)

func TestSpotFleetHandler_ProvisionInstances_Success(t *testing.T) {
	fake := &fakeEC2{
		requestSpotFleet: func(_ context.Context, in *ec2.RequestSpotFleetInput) (*ec2.RequestSpotFleetOutput, error) {
			assert.Equal(t, int32(2), *in.SpotFleetRequestConfig.TargetCapacity)
			return &ec2.RequestSpotFleetOutput{SpotFleetRequestId: aws.String("sfr-1")}, nil
		},
		describeSpotFleetInstances: func(context.Context, *ec2.DescribeSpotFleetInstancesInput) (*ec2.DescribeSpotFleetInstancesOutput, error) {
			return &ec2.DescribeSpotFleetInstancesOutput{
				ActiveInstances: []types.ActiveInstance{
					{InstanceId: aws.String("i-1")},
					{InstanceId: aws.String("i-2")},
				},
			}, nil
		},
		describeInstances: func(_ context.Context, in *ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error) {
			instances := make([]types.Instance, len(in.InstanceIds))
			for i, id := range in.InstanceIds {
				instances[i] = types.Instance{InstanceId: aws.String(id), State: &types.InstanceState{Name: types.InstanceStateNameRunning}}
			}
			return &ec2.DescribeInstancesOutput{Reservations: []types.Reservation{{Instances: instances}}}, nil
		},
	}

	tpl := testTemplate()
	tpl.FleetRole = "arn:aws:iam::123:role/spot-fleet"
	tpl.AllocationStrategy = "lowestPrice"

	h := &SpotFleetHandler{cfg: DefaultConfig("us-east-1"), ec2: fake}
	machines, err := h.ProvisionInstances(context.Background(), provider.ProvisionRequest{
		RequestID: "req-1",
		Template:  tpl,
		Count:     2,
	})

	require.NoError(t, err)
	assert.Len(t, machines, 2)
}

func TestSpotFleetHandler_ValidateTemplate_RequiresFleetRole(t *testing.T) {
	h := &SpotFleetHandler{}
	problems, err := h.ValidateTemplate(context.Background(), domain.Template{ImageID: "ami-1", InstanceType: "m5.large"})
	require.NoError(t, err)
	assert.Contains(t, problems, "fleet_role is required for spot fleet requests")
}
