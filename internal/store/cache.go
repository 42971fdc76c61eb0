package store

import (
	"os"
	"sync"
	"time"
)

// cacheEntry holds a decoded value plus the mtime it was decoded at.
type cacheEntry struct {
	modTime time.Time
	value   any
}

// Cache is an mtime-keyed decode cache. A read against a path whose mtime
// matches the cached entry's mtime skips re-decoding; any mismatch (file
// changed externally, or never cached) forces a fresh read.
//
// No LRU/caching library appears anywhere in the retrieved example pack
// (grepped for hashicorp/golang-lru and similar — none found), so this is
// a hand-rolled map guarded by a mutex, directly modeled on the teacher's
// own in-memory-map-plus-RWMutex shape (agent.Registry, engine.Engine)
// rather than on any third-party cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache creates an empty decode cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached value for path if its recorded mtime still
// matches the file's current mtime on disk. The bool is false on any
// cache miss (not present, stat failed, or mtime changed).
func (c *Cache) Get(path string) (any, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}

	c.mu.RLock()
	entry, ok := c.entries[path]
	c.mu.RUnlock()
	if !ok || !entry.modTime.Equal(info.ModTime()) {
		return nil, false
	}
	return entry.value, true
}

// Put records value as the decoded result for path at its current mtime.
func (c *Cache) Put(path string, value any) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.entries[path] = cacheEntry{modTime: info.ModTime(), value: value}
	c.mu.Unlock()
}

// Invalidate removes path from the cache, forcing the next read to decode
// from disk regardless of mtime. JSONStore.WriteAtomic does not call it;
// it repopulates the entry with Put instead.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}
