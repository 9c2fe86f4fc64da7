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
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/awslabs/open-resource-broker/internal/domain"
)

// buildTags merges the fixed RequestId/Handler tags every handler
// stamps with the template's own tags, per SPEC_FULL.md §4.5's "shared
// utilities build tags (RequestId, Handler, plus template tags)".
// Output is sorted by key so tag sets are deterministic for tests.
func buildTags(requestID, handler string, tpl domain.Template) []types.Tag {
	merged := tpl.Tags.Clone()
	if merged == nil {
		merged = domain.Tags{}
	}
	merged["RequestId"] = requestID
	merged["Handler"] = handler

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tags := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		key, value := k, merged[k]
		tags = append(tags, types.Tag{Key: &key, Value: &value})
	}
	return tags
}

// tagSpecifications wraps buildTags into the RunInstances/CreateFleet
// shape that asks EC2 to tag resources of a given type at creation time.
func tagSpecifications(resourceType types.ResourceType, requestID, handler string, tpl domain.Template) []types.TagSpecification {
	return []types.TagSpecification{
		{
			ResourceType: resourceType,
			Tags:         buildTags(requestID, handler, tpl),
		},
	}
}
