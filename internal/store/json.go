package store

import (
	"encoding/json"
	"fmt"
	"os"
)

// JSONStore reads and writes one JSON document of type T at a fixed path,
// cached on mtime. Every JSON-backed document in the on-disk layout
// (profiles.json, active.json, proxy.json, global.json, pricing.json, and
// each tool's native JSON files) is a JSONStore[T] for its own T.
type JSONStore[T any] struct {
	path  string
	cache *Cache
}

// NewJSON creates a JSONStore for path, sharing cache with other stores so
// a single Data Store instance has one cache keyed across all documents.
func NewJSON[T any](path string, cache *Cache) *JSONStore[T] {
	return &JSONStore[T]{path: path, cache: cache}
}

// ReadCached returns the decoded document, using the mtime cache when
// valid. If the file does not exist, returns the zero value of T and no
// error — callers apply their own defaults (see profile.Manager, etc.).
func (s *JSONStore[T]) ReadCached() (T, error) {
	var zero T
	if cached, ok := s.cache.Get(s.path); ok {
		if v, ok := cached.(T); ok {
			return v, nil
		}
	}
	return s.ReadUncached()
}

// ReadUncached always decodes from disk, bypassing the cache, and
// refreshes the cache entry on success.
func (s *JSONStore[T]) ReadUncached() (T, error) {
	var v T
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return v, nil
		}
		return v, fmt.Errorf("store: reading %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("store: parsing %s: %w", s.path, err)
	}
	s.cache.Put(s.path, v)
	return v, nil
}

// WriteAtomic marshals v as indented JSON and writes it atomically at
// 0600, then invalidates (and repopulates) the cache entry.
func (s *JSONStore[T]) WriteAtomic(v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshaling %s: %w", s.path, err)
	}
	if err := WriteAtomic(s.path, data); err != nil {
		return err
	}
	s.cache.Put(s.path, v)
	return nil
}

// Path returns the underlying file path, for components (Config Watcher)
// that need to know which file to watch.
func (s *JSONStore[T]) Path() string {
	return s.path
}
