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
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/awslabs/open-resource-broker/internal/domain"
)

// defaultScheduler is the only scheduler vocabulary this manager ships
// with field tables for; see internal/template/registry.go.
const defaultScheduler = "hostfactory"

// Manager is the single source of truth for template data: it
// discovers files, remaps external fields to internal ones, caches the
// merged result per template_id, and validates. Composes Loader,
// Remapper, and Cache the way the teacher's runtime_config.go composes
// its file loader and ConfigCache.
type Manager struct {
	loader   *Loader
	remapper *Remapper
	cache    *Cache

	mu          sync.RWMutex
	merged      map[string]domain.Template // template_id -> template, post-merge
	providerAPI string
}

// NewManager constructs a Manager that discovers files for providerAPI
// under dir (plus extraPaths), caching results for ttl.
func NewManager(dir string, providerAPI string, ttl time.Duration, extraPaths ...string) *Manager {
	return &Manager{
		loader:      NewLoader(dir, extraPaths...),
		remapper:    NewRemapper(),
		cache:       NewCache(ttl),
		merged:      make(map[string]domain.Template),
		providerAPI: providerAPI,
	}
}

// Reload re-scans the configured files, remaps and merges them by
// priority, and replaces the manager's in-memory template set
// atomically — templates are never mutated in place while cached, per
// spec.md §3. It also drops every cached entry, so the next Get for any
// id re-reads the freshly reloaded set rather than serving a value
// merged before the reload.
func (m *Manager) Reload() error {
	merged, err := m.loadAndMerge()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.merged = merged
	m.mu.Unlock()

	m.cache.InvalidateAll()
	return nil
}

// Get returns the template for id, serving from cache when fresh. On a
// miss or TTL expiry it refreshes by re-scanning the configured files
// from disk — the same work Reload does — so a file edit on disk is
// visible to callers without an explicit Reload, per spec.md §4.2
// ("otherwise refreshes from disk"). Concurrent refreshes of the same
// id collapse into one via the cache's singleflight group.
func (m *Manager) Get(_ context.Context, id string) (domain.Template, bool, error) {
	tpl, err := m.cache.GetOrLoad(id, func() (domain.Template, error) {
		merged, err := m.loadAndMerge()
		if err != nil {
			return domain.Template{}, err
		}

		m.mu.Lock()
		m.merged = merged
		m.mu.Unlock()

		t, ok := merged[id]
		if !ok {
			return domain.Template{}, errTemplateNotFound(id)
		}
		return t, nil
	})
	if err != nil {
		if _, isNotFound := err.(*notFoundError); isNotFound {
			return domain.Template{}, false, nil
		}
		return domain.Template{}, false, err
	}
	return tpl, true, nil
}

// loadAndMerge discovers template files for providerAPI, remaps each to
// internal field names, and merges the result by priority. Shared by
// Reload and Get's TTL-expiry refresh path so both read disk the same
// way.
func (m *Manager) loadAndMerge() (map[string]domain.Template, error) {
	raws, err := m.loader.Load(m.providerAPI)
	if err != nil {
		return nil, fmt.Errorf("template manager: loading %s templates: %w", m.providerAPI, err)
	}

	remapped := make([]domain.Template, 0, len(raws))
	for _, raw := range raws {
		tpl, err := m.remapper.ToInternal(raw, defaultScheduler, m.providerAPI)
		if err != nil {
			return nil, fmt.Errorf("template manager: remapping %s: %w", raw.SourceFile, err)
		}
		remapped = append(remapped, tpl)
	}

	return mergeByPriority(remapped), nil
}

// List returns every currently merged template, sorted by template_id.
func (m *Manager) List(_ context.Context) ([]domain.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := sortedIDs(m.merged)
	out := make([]domain.Template, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.merged[id])
	}
	return out, nil
}

// Validate runs spec.md §4.2's validation rules against tpl.
func (m *Manager) Validate(tpl domain.Template) ValidationResult {
	return Validate(tpl, time.Now())
}

// RemapInbound exposes the Remapper for handlers translating an
// inbound scheduler request (as opposed to a template file) to
// internal field names.
func (m *Manager) RemapInbound(raw RawTemplate, scheduler string) (domain.Template, error) {
	return m.remapper.ToInternal(raw, scheduler, m.providerAPI)
}

// RemapOutbound exposes the Remapper for handlers translating a
// domain.Template back to a scheduler's external vocabulary.
func (m *Manager) RemapOutbound(tpl domain.Template, scheduler string) map[string]interface{} {
	return m.remapper.FromInternal(tpl, scheduler, m.providerAPI)
}

type notFoundError struct {
	templateID string
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("template %s not found", e.templateID)
}

func errTemplateNotFound(id string) error {
	return &notFoundError{templateID: id}
}
