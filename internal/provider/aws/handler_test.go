package aws

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/awslabs/open-resource-broker/internal/domain"
)

func TestHandlerFactory_Select(t *testing.T) {
	f := NewHandlerFactory(DefaultConfig("us-east-1"), &fakeEC2{}, &fakeASG{})

	spotByFlag := domain.Template{UseSpotInstances: true}
	spotByFlag.Normalize(nil)
	assert.Same(t, f.spotFleet, f.Select(spotByFlag))

	spotByPrice := domain.Template{PriceType: domain.PriceSpot}
	spotByPrice.Normalize(nil)
	assert.Same(t, f.spotFleet, f.Select(spotByPrice))

	asgTpl := domain.Template{UseAutoScaling: true}
	asgTpl.Normalize(nil)
	assert.Same(t, f.autoScalingGroup, f.Select(asgTpl))

	fleetTpl := domain.Template{}
	fleetTpl.Normalize(nil)
	assert.Same(t, f.ec2Fleet, f.Select(fleetTpl))

	runTpl := domain.Template{}
	no := false
	runTpl.UseFleet = &no
	runTpl.Normalize(nil)
	assert.Same(t, f.runInstances, f.Select(runTpl))

	heteroTpl := domain.Template{PriceType: domain.PriceHeterogeneous}
	heteroTpl.UseFleet = &no
	heteroTpl.Normalize(nil)
	assert.Same(t, f.ec2Fleet, f.Select(heteroTpl))
}
