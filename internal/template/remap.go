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
	"fmt"
	"strconv"
	"strings"

	"github.com/awslabs/open-resource-broker/internal/domain"
)

// Remapper renames fields between a scheduler's external vocabulary and
// the broker's internal field names, and applies the small set of
// shape transforms spec.md §4.2 lists (scalar subnet -> list, tag
// string -> map, instance_type derivation). FromInternal applies the
// same registry in reverse and is exposed as Manager.RemapOutbound;
// internal/wire builds its responses without it.
type Remapper struct {
	registry *schedulerRegistry
}

// NewRemapper builds a Remapper preloaded with the hostfactory field
// tables spec.md §4.2 gives as examples.
func NewRemapper() *Remapper {
	return &Remapper{registry: newHostFactoryRegistry()}
}

// ToInternal renames raw's external fields to internal names for
// (scheduler, provider), applies the shape transforms, and decodes the
// result into a domain.Template. Unrecognized fields are passed through
// unchanged under their original name and land in neither the struct
// nor an error — forward-compatible with template attributes the
// broker doesn't yet model.
func (m *Remapper) ToInternal(raw RawTemplate, scheduler, provider string) (domain.Template, error) {
	internal := make(map[string]interface{}, len(raw.Fields))
	for ext, val := range raw.Fields {
		name := ext
		if mapped, ok := m.registry.lookup(scheduler, provider, ext); ok {
			name = mapped
		}
		internal[name] = val
	}

	applyTransforms(internal, raw.InstanceTypesOrder)

	tpl, err := decodeTemplate(internal)
	if err != nil {
		return domain.Template{}, fmt.Errorf("remapping template: %w", err)
	}
	tpl.ProviderAPI = provider
	tpl.SourceFile = raw.SourceFile
	tpl.FilePriority = raw.FilePriority
	tpl.Normalize(raw.InstanceTypesOrder)
	return tpl, nil
}

// FromInternal renames a domain.Template's fields back to (scheduler,
// provider)'s external vocabulary, for outbound responses (spec.md
// §8's round-trip law).
func (m *Remapper) FromInternal(tpl domain.Template, scheduler, provider string) map[string]interface{} {
	reverse := m.registry.reverse(scheduler, provider)
	internal := templateToMap(tpl)

	external := make(map[string]interface{}, len(internal))
	for name, val := range internal {
		key := name
		if ext, ok := reverse[name]; ok {
			key = ext
		}
		external[key] = val
	}
	return external
}

// applyTransforms mutates fields in place per §4.2: a scalar subnet_ids
// becomes a one-element list, a "k1=v1;k2=v2" tags string becomes a
// map, and instance_type is derived from instance_types' first key
// (using order) when instance_type itself is absent.
func applyTransforms(fields map[string]interface{}, instanceTypesOrder []string) {
	if v, ok := fields["subnet_ids"]; ok {
		if s, ok := v.(string); ok {
			fields["subnet_ids"] = []interface{}{s}
		}
	}

	if v, ok := fields["tags"]; ok {
		if s, ok := v.(string); ok {
			fields["tags"] = parseTagString(s)
		}
	}

	if _, hasType := fields["instance_type"]; !hasType {
		if types, ok := fields["instance_types"].(map[string]interface{}); ok && len(types) > 0 {
			fields["instance_type"] = firstOrderedKey(types, instanceTypesOrder)
		}
	}
}

// parseTagString parses the "k1=v1;k2=v2" tag-string shape §4.2 names
// into a map, skipping malformed segments rather than failing the
// whole template load.
func parseTagString(s string) map[string]string {
	tags := make(map[string]string)
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		tags[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return tags
}

func firstOrderedKey(m map[string]interface{}, order []string) string {
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

// decodeTemplate builds a domain.Template from a field map already
// keyed by internal names. It only reads fields it recognizes;
// everything else is silently ignored.
func decodeTemplate(f map[string]interface{}) (domain.Template, error) {
	var tpl domain.Template

	tpl.TemplateID, _ = f["template_id"].(string)
	tpl.ProviderType, _ = f["provider_type"].(string)
	tpl.ProviderName, _ = f["provider_name"].(string)
	tpl.ImageID, _ = f["image_id"].(string)
	tpl.InstanceType, _ = f["instance_type"].(string)
	tpl.FleetRole, _ = f["fleet_role"].(string)
	tpl.AllocationStrategy, _ = f["allocation_strategy"].(string)
	tpl.AllocationStrategyOnDemand, _ = f["allocation_strategy_ondemand"].(string)
	tpl.MaxSpotPrice, _ = f["max_spot_price"].(string)
	tpl.LaunchTemplateID, _ = f["launch_template_id"].(string)
	tpl.InstanceProfile, _ = f["instance_profile"].(string)
	tpl.UserData, _ = f["user_data"].(string)

	tpl.MaxNumber = intField(f["max_number"])
	tpl.SpotFleetRequestExpiry = intField(f["spot_fleet_request_expiry"])
	tpl.PoolsCount = intField(f["pools_count"])

	if v, ok := f["percent_on_demand"]; ok {
		p := intField(v)
		tpl.PercentOnDemand = &p
	}

	if v, ok := f["price_type"].(string); ok {
		tpl.PriceType = domain.PriceType(v)
	} else {
		tpl.PriceType = domain.PriceOnDemand
	}

	tpl.SubnetIDs = stringSlice(f["subnet_ids"])
	tpl.SecurityGroupIDs = stringSlice(f["security_group_ids"])

	tpl.InstanceTypes = intMap(f["instance_types"])
	tpl.InstanceTypesOnDemand = intMap(f["instance_types_ondemand"])

	tpl.Tags = stringMap(f["tags"])
	tpl.Context = stringMap(f["context"])
	tpl.RootVolume = rootVolume(f["root_volume"])

	if v, ok := f["use_spot_instances"].(bool); ok {
		tpl.UseSpotInstances = v
	}
	if v, ok := f["use_auto_scaling"].(bool); ok {
		tpl.UseAutoScaling = v
	}
	if v, ok := f["use_fleet"].(bool); ok {
		tpl.UseFleet = &v
	}
	if v, ok := f["is_active"].(bool); ok {
		tpl.IsActive = v
	} else {
		tpl.IsActive = true
	}

	return tpl, nil
}

// templateToMap is decodeTemplate's inverse, used by FromInternal.
func templateToMap(tpl domain.Template) map[string]interface{} {
	m := map[string]interface{}{
		"template_id":   tpl.TemplateID,
		"provider_type": tpl.ProviderType,
		"provider_name": tpl.ProviderName,
		"max_number":    tpl.MaxNumber,
		"image_id":      tpl.ImageID,
		"instance_type": tpl.InstanceType,
		"subnet_ids":    tpl.SubnetIDs,
		"price_type":    string(tpl.PriceType),
		"is_active":     tpl.IsActive,
	}
	if len(tpl.SecurityGroupIDs) > 0 {
		m["security_group_ids"] = tpl.SecurityGroupIDs
	}
	if len(tpl.InstanceTypes) > 0 {
		m["instance_types"] = tpl.InstanceTypes
	}
	if len(tpl.InstanceTypesOnDemand) > 0 {
		m["instance_types_ondemand"] = tpl.InstanceTypesOnDemand
	}
	if tpl.PercentOnDemand != nil {
		m["percent_on_demand"] = *tpl.PercentOnDemand
	}
	if tpl.FleetRole != "" {
		m["fleet_role"] = tpl.FleetRole
	}
	if len(tpl.Tags) > 0 {
		m["tags"] = tpl.Tags
	}
	return m
}

func intField(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}

func stringSlice(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case string:
		return []string{s}
	default:
		return nil
	}
}

func intMap(v interface{}) map[string]int {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, val := range m {
		out[k] = intField(val)
	}
	return out
}

func rootVolume(v interface{}) *domain.RootVolume {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	rv := &domain.RootVolume{}
	if size, ok := m["size_gb"]; ok {
		rv.SizeGB = intField(size)
	}
	if vt, ok := m["volume_type"].(string); ok {
		rv.VolumeType = vt
	}
	if enc, ok := m["encrypted"].(bool); ok {
		rv.Encrypted = enc
	}
	return rv
}

func stringMap(v interface{}) map[string]string {
	switch m := v.(type) {
	case map[string]string:
		return m
	case map[string]interface{}:
		out := make(map[string]string, len(m))
		for k, val := range m {
			if s, ok := val.(string); ok {
				out[k] = s
			} else {
				out[k] = fmt.Sprintf("%v", val)
			}
		}
		return out
	default:
		return nil
	}
}
