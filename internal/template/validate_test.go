package template

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/awslabs/open-resource-broker/internal/domain"
)

func validTemplate() domain.Template {
	return domain.Template{
		TemplateID:   "t1",
		ImageID:      "ami-0abc1234",
		MaxNumber:    5,
		SubnetIDs:    []string{"subnet-aaaa1111"},
		InstanceType: "m5.large",
		PriceType:    domain.PriceOnDemand,
	}
}

func TestValidate_ValidTemplatePasses(t *testing.T) {
	result := Validate(validTemplate(), time.Now())
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
}

func TestValidate_MissingTemplateID(t *testing.T) {
	tpl := validTemplate()
	tpl.TemplateID = ""
	result := Validate(tpl, time.Now())
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "template_id is required")
}

func TestValidate_MaxNumberOutOfRange(t *testing.T) {
	tpl := validTemplate()
	tpl.MaxNumber = 0
	result := Validate(tpl, time.Now())
	assert.False(t, result.IsValid)

	tpl.MaxNumber = 1001
	result = Validate(tpl, time.Now())
	assert.False(t, result.IsValid)
}

func TestValidate_BadAMIFormat(t *testing.T) {
	tpl := validTemplate()
	tpl.ImageID = "not-an-ami"
	result := Validate(tpl, time.Now())
	assert.False(t, result.IsValid)
}

func TestValidate_BadSubnetFormat(t *testing.T) {
	tpl := validTemplate()
	tpl.SubnetIDs = []string{"bad-subnet"}
	result := Validate(tpl, time.Now())
	assert.False(t, result.IsValid)
}

func TestValidate_BadSecurityGroupFormat(t *testing.T) {
	tpl := validTemplate()
	tpl.SecurityGroupIDs = []string{"bad-sg"}
	result := Validate(tpl, time.Now())
	assert.False(t, result.IsValid)
}

func TestValidate_HeterogeneousWithoutSplitFails(t *testing.T) {
	tpl := validTemplate()
	tpl.PriceType = domain.PriceHeterogeneous
	result := Validate(tpl, time.Now())
	assert.False(t, result.IsValid)
}

func TestValidate_HeterogeneousWithPercentOnDemandPasses(t *testing.T) {
	tpl := validTemplate()
	tpl.PriceType = domain.PriceHeterogeneous
	percent := 30
	tpl.PercentOnDemand = &percent
	result := Validate(tpl, time.Now())
	assert.True(t, result.IsValid)
}

func TestValidate_SpotParamsWithOnDemandPriceFails(t *testing.T) {
	tpl := validTemplate()
	tpl.FleetRole = "arn:aws:iam::123:role/fleet"
	result := Validate(tpl, time.Now())
	assert.False(t, result.IsValid)
}

func TestValidate_MissingInstanceTypeAndTypes(t *testing.T) {
	tpl := validTemplate()
	tpl.InstanceType = ""
	result := Validate(tpl, time.Now())
	assert.False(t, result.IsValid)
}
