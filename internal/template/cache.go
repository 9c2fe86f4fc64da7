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
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/awslabs/open-resource-broker/internal/domain"
)

// CacheEntry is one cached template, grounded on the teacher's
// CacheEntry[T]/cached_at/ttl shape in connectors/config/cache.go,
// extended with the hit_count field spec.md §4.2 asks for.
type CacheEntry struct {
	Template  domain.Template
	CachedAt  time.Time
	TTL       time.Duration
	HitCount  int64
}

// IsExpired reports whether now - CachedAt > TTL.
func (e *CacheEntry) IsExpired(now time.Time) bool {
	return now.Sub(e.CachedAt) > e.TTL
}

// Cache is a thread-safe, TTL-based template cache keyed by template_id.
// A refresh in flight for a given key is single-flighted: concurrent
// GetOrLoad callers for the same key block on the one disk read, while
// callers for other keys, and callers that find a non-expired entry,
// are not blocked. An expired entry is never returned: during a
// refresh, Get reports a miss and GetOrLoad waits for the new value.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
	ttl     time.Duration
	group   singleflight.Group
}

// NewCache constructs an empty Cache with the given TTL. A non-positive
// ttl falls back to 30s, matching the teacher's ConfigCache default.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{entries: make(map[string]*CacheEntry), ttl: ttl}
}

// Get returns the cached template for id if present and not expired,
// incrementing its hit count. ok is false on a miss or an expired
// entry — callers are expected to refresh via GetOrLoad instead of
// calling Get directly when a fallback load is needed.
func (c *Cache) Get(id string) (domain.Template, bool) {
	c.mu.RLock()
	entry, exists := c.entries[id]
	c.mu.RUnlock()
	if !exists || entry.IsExpired(time.Now()) {
		return domain.Template{}, false
	}

	c.mu.Lock()
	entry.HitCount++
	c.mu.Unlock()
	return entry.Template, true
}

// GetOrLoad returns the cached template for id, refreshing from load
// if missing or expired. Concurrent GetOrLoad calls for the same id
// share one in-flight load via singleflight.
func (c *Cache) GetOrLoad(id string, load func() (domain.Template, error)) (domain.Template, error) {
	if tpl, ok := c.Get(id); ok {
		return tpl, nil
	}

	v, err, _ := c.group.Do(id, func() (interface{}, error) {
		// Re-check under the singleflight key: another goroutine may
		// have refreshed while we waited to enter Do.
		if tpl, ok := c.Get(id); ok {
			return tpl, nil
		}
		tpl, err := load()
		if err != nil {
			return domain.Template{}, err
		}
		c.Set(id, tpl)
		return tpl, nil
	})
	if err != nil {
		return domain.Template{}, err
	}
	return v.(domain.Template), nil
}

// Set stores tpl under id with a fresh TTL window.
func (c *Cache) Set(id string, tpl domain.Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = &CacheEntry{Template: tpl, CachedAt: time.Now(), TTL: c.ttl}
}

// Invalidate removes id from the cache, forcing the next GetOrLoad to
// refresh from disk.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// InvalidateAll clears the cache.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*CacheEntry)
}
