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

// Package template implements the template configuration manager:
// file discovery by priority, external-to-internal field remapping,
// TTL caching with single-flighted refresh, and validation. Grounded on
// the teacher's connectors/config package (file_loader.go, cache.go,
// runtime_config.go), generalized from MCP connector/LLM provider
// config to broker templates.
package template

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/awslabs/open-resource-broker/internal/domain"
)

// filePatterns lists the four file-name patterns §4.2 discovers, in
// priority order (highest first). %s is substituted with the provider
// API name (e.g. "aws").
var filePatterns = []string{
	"%sinst_templates",
	"%stype_templates",
	"%sprov_templates",
	"templates",
}

var fileExtensions = []string{".json", ".yml", ".yaml"}

// RawTemplate is one template object as read from a file, keyed by its
// external field names, plus the bookkeeping §4.2 requires: which file
// it came from, that file's priority, and (for instance_types) the
// order keys first appeared in the source, since Go maps don't
// preserve the insertion order decoders lose and spec.md §3's
// "instance_type derived from the first key (stable iteration order
// over the input)" invariant depends on it.
type RawTemplate struct {
	Fields             map[string]interface{}
	InstanceTypesOrder []string
	SourceFile         string
	FilePriority       int
}

// Loader discovers and parses template files from a directory (plus
// optional extra search paths), in the priority order spec.md §4.2
// defines.
type Loader struct {
	dir        string
	extraPaths []string
}

// NewLoader constructs a Loader rooted at dir, additionally searching
// extraPaths for the same file-name patterns.
func NewLoader(dir string, extraPaths ...string) *Loader {
	return &Loader{dir: dir, extraPaths: extraPaths}
}

// Load scans for every file matching providerAPI's four patterns across
// the configured directory and extra paths, parses each, and returns
// all templates found with source_file/file_priority populated. The
// caller (Manager) is responsible for merging by template_id using
// FilePriority; Load itself does no merging.
func (l *Loader) Load(providerAPI string) ([]RawTemplate, error) {
	var all []RawTemplate

	searchDirs := append([]string{l.dir}, l.extraPaths...)
	for priority, pattern := range filePatterns {
		// Highest priority is index 0 in filePatterns; invert so a
		// higher file_priority number means higher precedence, matching
		// the "higher-priority files override lower-priority files"
		// wording in spec.md §4.2.
		filePriority := len(filePatterns) - priority

		stem := pattern
		if pattern[0] == '%' {
			stem = fmt.Sprintf(pattern, providerAPI)
		}

		for _, dir := range searchDirs {
			for _, ext := range fileExtensions {
				path := filepath.Join(dir, stem+ext)
				data, err := os.ReadFile(path)
				if os.IsNotExist(err) {
					continue
				}
				if err != nil {
					return nil, fmt.Errorf("template loader: reading %s: %w", path, err)
				}

				raws, err := parseTemplateFile(data, path, filePriority)
				if err != nil {
					return nil, fmt.Errorf("template loader: parsing %s: %w", path, err)
				}
				all = append(all, raws...)
			}
		}
	}

	return all, nil
}

// parseTemplateFile parses a top-level list of template objects via
// yaml.v3, which accepts both JSON and YAML documents (JSON is a
// syntactic subset of YAML 1.2), decoding into yaml.Node so that
// mapping-key order is preserved for the instance_types object.
func parseTemplateFile(data []byte, sourceFile string, filePriority int) ([]RawTemplate, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("expected a top-level list of templates, got %v", root.Kind)
	}

	out := make([]RawTemplate, 0, len(root.Content))
	for _, item := range root.Content {
		if item.Kind != yaml.MappingNode {
			continue
		}
		raw, err := decodeMappingNode(item)
		if err != nil {
			return nil, err
		}
		raw.SourceFile = sourceFile
		raw.FilePriority = filePriority
		out = append(out, raw)
	}
	return out, nil
}

// decodeMappingNode turns a YAML/JSON mapping node into a RawTemplate,
// recording instance_types key order along the way.
func decodeMappingNode(node *yaml.Node) (RawTemplate, error) {
	raw := RawTemplate{Fields: make(map[string]interface{})}

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valNode := node.Content[i+1]

		var value interface{}
		if err := valNode.Decode(&value); err != nil {
			return raw, fmt.Errorf("decoding field %q: %w", keyNode.Value, err)
		}
		raw.Fields[keyNode.Value] = value

		if (keyNode.Value == "instance_types" || keyNode.Value == "vmTypes") && valNode.Kind == yaml.MappingNode {
			order := make([]string, 0, len(valNode.Content)/2)
			for j := 0; j+1 < len(valNode.Content); j += 2 {
				order = append(order, valNode.Content[j].Value)
			}
			raw.InstanceTypesOrder = order
		}
	}

	return raw, nil
}

// mergeByPriority collapses tpls (already remapped to internal field
// names, possibly loaded across many files) into one Template per
// template_id, keeping the highest-FilePriority version, per §4.2's
// "higher-priority files override lower-priority files by template_id"
// rule.
func mergeByPriority(tpls []domain.Template) map[string]domain.Template {
	merged := make(map[string]domain.Template)
	for _, tpl := range tpls {
		if tpl.TemplateID == "" {
			continue
		}
		existing, ok := merged[tpl.TemplateID]
		if !ok || tpl.FilePriority > existing.FilePriority {
			merged[tpl.TemplateID] = tpl
		}
	}
	return merged
}

// sortedIDs returns the keys of merged in a stable order, for
// deterministic listing.
func sortedIDs(merged map[string]domain.Template) []string {
	ids := make([]string, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
