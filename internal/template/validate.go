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

package template

import (
	"regexp"
	"time"

	"github.com/awslabs/open-resource-broker/internal/domain"
)

var (
	amiIDPattern = regexp.MustCompile(`^ami-[a-f0-9]{8,17}$`)
	subnetIDPattern = regexp.MustCompile(`^subnet-[a-f0-9]{8,17}$`)
	sgIDPattern = regexp.MustCompile(`^sg-[a-f0-9]{8,17}$`)
)

// ValidationResult is spec.md §4.2's validate() return shape.
type ValidationResult struct {
	IsValid           bool
	Errors            []string
	Warnings          []string
	SupportedFeatures []string
	ValidationTime    time.Time
	ProviderInstance  string
}

// Validate checks tpl against the rules spec.md §4.2 lists: required
// fields, max_number range, AMI/subnet/security-group id formats, and
// the heterogeneous-pricing split requirement.
func Validate(tpl domain.Template, now time.Time) ValidationResult {
	result := ValidationResult{ValidationTime: now, ProviderInstance: tpl.ProviderName}

	if tpl.TemplateID == "" {
		result.Errors = append(result.Errors, "template_id is required")
	}
	if tpl.ImageID == "" {
		result.Errors = append(result.Errors, "image_id is required")
	} else if !amiIDPattern.MatchString(tpl.ImageID) {
		result.Errors = append(result.Errors, "image_id does not match ami-[a-f0-9]{8,17}")
	}

	if tpl.MaxNumber < 1 || tpl.MaxNumber > 1000 {
		result.Errors = append(result.Errors, "max_number must be between 1 and 1000")
	}

	if len(tpl.SubnetIDs) == 0 {
		result.Errors = append(result.Errors, "at least one subnet_id is required")
	}
	for _, subnet := range tpl.SubnetIDs {
		if !subnetIDPattern.MatchString(subnet) {
			result.Errors = append(result.Errors, "subnet_id "+subnet+" does not match subnet-[a-f0-9]{8,17}")
		}
	}
	if len(tpl.SubnetIDs) > 2 {
		result.Warnings = append(result.Warnings, "more than 2 subnets specified; verify this is intentional")
	}

	for _, sg := range tpl.SecurityGroupIDs {
		if !sgIDPattern.MatchString(sg) {
			result.Errors = append(result.Errors, "security_group_id "+sg+" does not match sg-[a-f0-9]{8,17}")
		}
	}

	spotFieldsSet := tpl.MaxSpotPrice != "" || tpl.AllocationStrategy != "" || tpl.FleetRole != ""
	if spotFieldsSet && tpl.PriceType == domain.PriceOnDemand {
		result.Errors = append(result.Errors, "spot/fleet parameters require price_type != ondemand")
	}

	if tpl.RequiresOnDemandSplit() && !tpl.HasOnDemandSplit() {
		result.Errors = append(result.Errors, "price_type=heterogeneous requires instance_types_ondemand or percent_on_demand")
	}

	if tpl.InstanceType == "" && len(tpl.InstanceTypes) == 0 {
		result.Errors = append(result.Errors, "one of instance_type or instance_types is required")
	}

	result.SupportedFeatures = supportedFeatures(tpl)
	result.IsValid = len(result.Errors) == 0
	return result
}

// supportedFeatures reports which provisioning mechanisms tpl is
// compatible with, informational only.
func supportedFeatures(tpl domain.Template) []string {
	features := []string{"run_instances"}
	if tpl.UseSpotInstances || tpl.PriceType == domain.PriceSpot {
		features = append(features, "spot_fleet")
	}
	if tpl.UseAutoScaling {
		features = append(features, "auto_scaling_group")
	}
	if tpl.UsesFleet() {
		features = append(features, "ec2_fleet")
	}
	return features
}
