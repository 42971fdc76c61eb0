package watch

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DiffKind classifies one changed path between two native snapshots.
type DiffKind string

const (
	Added   DiffKind = "added"
	Removed DiffKind = "removed"
	Changed DiffKind = "changed"
)

// DiffEntry is one leaf-level difference between a prior and current
// native snapshot.
type DiffEntry struct {
	Path string   `json:"path"`
	Kind DiffKind `json:"kind"`
}

// Snapshot is a set of native files, each a raw JSON document, keyed by
// the file's relative path — a local type with the same shape as
// profile.NativeSnapshot, which watcher.go converts to and from.
type Snapshot map[string]json.RawMessage

// Diff computes the path-and-kind differences between prior and current,
// walking every native file's JSON tree. Paths are dotted, prefixed with
// the file's relative path, e.g. "settings.json.env.ANTHROPIC_BASE_URL".
func Diff(prior, current Snapshot) ([]DiffEntry, error) {
	var entries []DiffEntry

	files := make(map[string]bool)
	for f := range prior {
		files[f] = true
	}
	for f := range current {
		files[f] = true
	}

	for f := range files {
		priorTree, err := decodeTree(prior[f])
		if err != nil {
			return nil, fmt.Errorf("watch: decoding prior %s: %w", f, err)
		}
		currentTree, err := decodeTree(current[f])
		if err != nil {
			return nil, fmt.Errorf("watch: decoding current %s: %w", f, err)
		}
		diffTree(f, priorTree, currentTree, &entries)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func decodeTree(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func diffTree(path string, prior, current any, out *[]DiffEntry) {
	priorMap, priorIsMap := prior.(map[string]any)
	currentMap, currentIsMap := current.(map[string]any)
	if priorIsMap && len(priorMap) > 0 && current == nil {
		currentMap, currentIsMap = map[string]any{}, true
	}
	if currentIsMap && len(currentMap) > 0 && prior == nil {
		priorMap, priorIsMap = map[string]any{}, true
	}

	if priorIsMap && currentIsMap {
		keys := make(map[string]bool)
		for k := range priorMap {
			keys[k] = true
		}
		for k := range currentMap {
			keys[k] = true
		}
		for k := range keys {
			diffTree(path+"."+k, priorMap[k], currentMap[k], out)
		}
		return
	}

	switch {
	case prior == nil && current == nil:
		return
	case prior == nil:
		*out = append(*out, DiffEntry{Path: path, Kind: Added})
	case current == nil:
		*out = append(*out, DiffEntry{Path: path, Kind: Removed})
	case !equalScalarOrSlice(prior, current):
		*out = append(*out, DiffEntry{Path: path, Kind: Changed})
	}
}

func equalScalarOrSlice(a, b any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ab) == string(bb)
}
