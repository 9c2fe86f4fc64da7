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

package domain

// PriceType is the pricing model a Template requests instances under.
type PriceType string

const (
	PriceOnDemand     PriceType = "ondemand"
	PriceSpot         PriceType = "spot"
	PriceHeterogeneous PriceType = "heterogeneous"
)

// RootVolume describes the root EBS volume a launched instance should get.
type RootVolume struct {
	SizeGB     int    `json:"size_gb,omitempty"`
	VolumeType string `json:"volume_type,omitempty"`
	Encrypted  bool   `json:"encrypted,omitempty"`
}

// Template is configuration data describing how to provision a batch of
// cloud machines. Templates are loaded (or reloaded) from files, never
// mutated in place while cached, and always replaced atomically.
type Template struct {
	TemplateID   string `json:"template_id"`
	ProviderAPI  string `json:"provider_api"`
	ProviderType string `json:"provider_type,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`

	MaxNumber int `json:"max_number"`

	ImageID string `json:"image_id"`

	// Exactly one of InstanceType or InstanceTypes is authoritative on
	// input; Normalize derives InstanceType from InstanceTypes when the
	// former is empty, per the invariant in spec.md §3.
	InstanceType  string         `json:"instance_type,omitempty"`
	InstanceTypes map[string]int `json:"instance_types,omitempty"`

	SubnetIDs        []string `json:"subnet_ids"`
	SecurityGroupIDs []string `json:"security_group_ids,omitempty"`

	PriceType PriceType `json:"price_type"`

	MaxSpotPrice               string         `json:"max_spot_price,omitempty"`
	AllocationStrategy         string         `json:"allocation_strategy,omitempty"`
	InstanceTypesOnDemand      map[string]int `json:"instance_types_ondemand,omitempty"`
	PercentOnDemand            *int           `json:"percent_on_demand,omitempty"`
	AllocationStrategyOnDemand string         `json:"allocation_strategy_ondemand,omitempty"`
	FleetRole                  string         `json:"fleet_role,omitempty"`
	SpotFleetRequestExpiry     int            `json:"spot_fleet_request_expiry,omitempty"`
	PoolsCount                 int            `json:"pools_count,omitempty"`
	LaunchTemplateID           string         `json:"launch_template_id,omitempty"`
	InstanceProfile            string         `json:"instance_profile,omitempty"`
	UserData                   string         `json:"user_data,omitempty"`
	RootVolume                 *RootVolume    `json:"root_volume,omitempty"`

	UseSpotInstances bool `json:"use_spot_instances,omitempty"`
	UseAutoScaling   bool `json:"use_auto_scaling,omitempty"`

	// UseFleet is a tri-state: nil means "not specified in the source
	// file", which Normalize resolves to true (EC2Fleet is the default
	// handler, see DESIGN.md Open Question #3) unless spot or
	// auto-scaling already claimed the request. An explicit false
	// requests RunInstances.
	UseFleet *bool `json:"use_fleet,omitempty"`

	// Context is an opaque pass-through map for customer tagging and
	// metadata; no handler business logic depends on its contents.
	Context map[string]string `json:"context,omitempty"`

	Tags Tags `json:"tags,omitempty"`

	IsActive bool `json:"is_active"`

	// SourceFile and FilePriority record which file provided this
	// template's current value, for §4.2's discovery/override rules.
	SourceFile   string `json:"source_file,omitempty"`
	FilePriority int    `json:"file_priority,omitempty"`
}

// Normalize applies the invariants spec.md §3 requires of every loaded
// Template: InstanceType is derived from InstanceTypes when absent,
// SubnetIDs is always a list, and UseFleet defaults true unless
// UseSpotInstances or UseAutoScaling is set or PriceType is spot (see
// DESIGN.md, Open Question #3).
func (t *Template) Normalize(subnetOrder []string) {
	if t.InstanceType == "" && len(t.InstanceTypes) > 0 {
		t.InstanceType = firstKey(t.InstanceTypes, subnetOrder)
	}
	if t.SubnetIDs == nil {
		t.SubnetIDs = []string{}
	}
	if t.UseFleet == nil {
		useFleet := !t.UseSpotInstances && !t.UseAutoScaling && t.PriceType != PriceSpot
		t.UseFleet = &useFleet
	}
}

// UsesFleet reports the resolved use_fleet value, defaulting to false
// before Normalize has run.
func (t *Template) UsesFleet() bool {
	return t.UseFleet != nil && *t.UseFleet
}

// firstKey returns the first key of m according to a caller-supplied
// stable order (the order keys were first seen while parsing the source
// file), falling back to an arbitrary key if order doesn't cover m — Go
// maps have no iteration order of their own, so template parsing must
// track key order explicitly to satisfy "derived from the first key
// (stable iteration order over the input)".
func firstKey(m map[string]int, order []string) string {
	for _, k := range order {
		if _, ok := m[k]; ok {
			return k
		}
	}
	for k := range m {
		return k
	}
	return ""
}

// RequiresOnDemandSplit reports whether heterogeneous pricing requires
// either InstanceTypesOnDemand or PercentOnDemand to be set, per the
// Template invariant in spec.md §3.
func (t *Template) RequiresOnDemandSplit() bool {
	return t.PriceType == PriceHeterogeneous
}

// HasOnDemandSplit reports whether the heterogeneous-pricing invariant is
// satisfied.
func (t *Template) HasOnDemandSplit() bool {
	return len(t.InstanceTypesOnDemand) > 0 || t.PercentOnDemand != nil
}
