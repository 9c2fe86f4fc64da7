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

// fieldTable maps external field names to internal field names for one
// scheduler, or one (scheduler, provider) pair.
type fieldTable map[string]string

// schedulerRegistry holds the two-level field-name registry: a generic
// table applied to every provider of a scheduler, and provider-specific
// tables layered on top of it. Grounded on spec.md §4.2's "scheduler-
// provider registry" description.
type schedulerRegistry struct {
	generic  map[string]fieldTable // scheduler -> table
	provider map[string]fieldTable // scheduler+"/"+provider -> table
}

// newHostFactoryRegistry builds the registry with the generic and
// AWS-specific field tables spec.md §4.2 names as examples.
func newHostFactoryRegistry() *schedulerRegistry {
	r := &schedulerRegistry{
		generic:  make(map[string]fieldTable),
		provider: make(map[string]fieldTable),
	}

	r.generic["hostfactory"] = fieldTable{
		"templateId":    "template_id",
		"vmType":        "instance_type",
		"vmTypes":       "instance_types",
		"subnetId":      "subnet_ids",
		"subnetIds":     "subnet_ids",
		"maxNumber":     "max_number",
		"priceType":     "price_type",
		"instanceTags":  "tags",
		"imageId":       "image_id",
		"securityGroupIds": "security_group_ids",
	}

	r.provider["hostfactory/aws"] = fieldTable{
		"vmTypesOnDemand":      "instance_types_ondemand",
		"percentOnDemand":      "percent_on_demand",
		"fleetRole":            "fleet_role",
		"allocationStrategy":   "allocation_strategy",
		"spotPrice":            "max_spot_price",
		"launchTemplateId":     "launch_template_id",
		"instanceProfile":      "instance_profile",
		"userData":             "user_data",
		"spotFleetRequestExpiry": "spot_fleet_request_expiry",
		"poolsCount":           "pools_count",
	}

	return r
}

// lookup resolves an external field name to its internal name for the
// given scheduler/provider pair, consulting the provider-specific table
// first and falling back to the generic one. ok is false if neither
// table recognizes the field, in which case callers should pass the
// field through unchanged (forward compatibility with new fields).
func (r *schedulerRegistry) lookup(scheduler, provider, external string) (internal string, ok bool) {
	if table, exists := r.provider[scheduler+"/"+provider]; exists {
		if internal, ok = table[external]; ok {
			return internal, true
		}
	}
	if table, exists := r.generic[scheduler]; exists {
		if internal, ok = table[external]; ok {
			return internal, true
		}
	}
	return "", false
}

// reverse builds external->internal tables into internal->external for
// outbound responses (§8's round-trip law), scoped the same way lookup
// is: provider-specific entries take precedence over generic ones.
func (r *schedulerRegistry) reverse(scheduler, provider string) fieldTable {
	out := make(fieldTable)
	if table, exists := r.generic[scheduler]; exists {
		for ext, internal := range table {
			out[internal] = ext
		}
	}
	if table, exists := r.provider[scheduler+"/"+provider]; exists {
		for ext, internal := range table {
			out[internal] = ext
		}
	}
	return out
}
