// Package cache holds the session-scoped read-model caches that the realtime
// dispatcher patches: a keyed query cache of list results and a memoizing
// user preload cache. Both are explicitly constructed and injected; lifecycle
// is tied to the running session, not to a package-level global.
package cache

import (
	"encoding/json"
	"strings"
	"sync"
)

// Item is one cached list element: the row id plus its serialized payload.
// Keeping the payload opaque lets one cache serve every table the realtime
// stream covers.
type Item struct {
	ID   uint64
	Data json.RawMessage
}

type entry struct {
	items []Item
	stale bool
}

// QueryCache is a keyed cache of query results (lists of rows). Two writers
// feed it: the local mutation path after server acknowledgment, and the
// realtime dispatcher on change-event receipt. Divergence between the two is
// resolved by staleness marking: a stale entry is refetched on next read.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewQueryCache() *QueryCache {
	return &QueryCache{entries: make(map[string]*entry)}
}

// Get returns the cached items for key and whether the entry is fresh. A
// stale entry is still returned so callers can render it while refetching.
func (c *QueryCache) Get(key string) (items []Item, fresh bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}
	out := make([]Item, len(e.items))
	copy(out, e.items)
	return out, !e.stale, true
}

// Set stores a fresh result for key.
func (c *QueryCache) Set(key string, items []Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]Item, len(items))
	copy(stored, items)
	c.entries[key] = &entry{items: stored}
}

// PatchInsert prepends item to every entry whose key starts with prefix.
// Inserts are deduplicated by id, which makes the patch idempotent under
// event replay.
func (c *QueryCache) PatchInsert(prefix string, item Item) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	patched := 0
	for key, e := range c.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if indexOf(e.items, item.ID) >= 0 {
			continue
		}
		e.items = append([]Item{item}, e.items...)
		patched++
	}
	return patched
}

// PatchUpdate replaces the id-matched item in every entry under prefix.
func (c *QueryCache) PatchUpdate(prefix string, item Item) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	patched := 0
	for key, e := range c.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if i := indexOf(e.items, item.ID); i >= 0 {
			e.items[i] = item
			patched++
		}
	}
	return patched
}

// PatchDelete removes the id-matched item from every entry under prefix.
func (c *QueryCache) PatchDelete(prefix string, id uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	patched := 0
	for key, e := range c.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if i := indexOf(e.items, id); i >= 0 {
			e.items = append(e.items[:i], e.items[i+1:]...)
			patched++
		}
	}
	return patched
}

// Invalidate marks every entry under prefix stale so the next natural read
// refetches and reconciles whatever the optimistic patches missed.
func (c *QueryCache) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			e.stale = true
		}
	}
}

// Clear drops everything. Called on logout.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

func indexOf(items []Item, id uint64) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
