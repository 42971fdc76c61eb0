package profile

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/duckcoding/duckcoding/internal/store"
	"github.com/duckcoding/duckcoding/internal/tool"
)

// ReadNativeSnapshot is the exported form of readNativeSnapshot, used by
// the Config Watcher to take a fresh reading of a tool's native files for
// diffing against ActiveProfile.NativeSnapshot.
func ReadNativeSnapshot(home string, tid tool.ID) (NativeSnapshot, error) {
	return readNativeSnapshot(home, tid)
}

// RestoreSnapshot rewrites tid's native files to match snap, used by
// Config Watcher's block_external_change. JSON files are written back
// verbatim (lossless); TOML and .env files are patched key-by-key since
// only scalar leaves are ever blacklisted or treated as sensitive —
// nested table/structural changes in those formats are out of scope for
// restoration (§9 open questions note no such scenario is specified).
func RestoreSnapshot(home string, tid tool.ID, snap NativeSnapshot) error {
	d, err := tool.Get(tid)
	if err != nil {
		return err
	}
	for _, rel := range d.NativeConfigPaths {
		raw, ok := snap[rel]
		if !ok {
			continue
		}
		path := filepath.Join(home, rel)
		if err := restoreNativeFile(path, raw); err != nil {
			return fmt.Errorf("profile: restoring %s: %w", rel, err)
		}
	}
	return nil
}

func restoreNativeFile(path string, raw json.RawMessage) error {
	switch filepath.Ext(path) {
	case ".json":
		var v map[string]any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		return store.NewJSON[map[string]any](path, store.NewCache()).WriteAtomic(v)

	case ".toml":
		var v map[string]any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		doc := store.NewTOMLDocument(path)
		top := map[string]string{}
		for k, val := range v {
			if s, ok := val.(string); ok {
				top[k] = s
				continue
			}
			if table, ok := val.(map[string]any); ok {
				for tk, tv := range table {
					if inner, ok := tv.(map[string]any); ok {
						for leafKey, leafVal := range inner {
							if s, ok := leafVal.(string); ok {
								if err := doc.SetTableKey(k+"."+tk, leafKey, s); err != nil {
									return err
								}
							}
						}
					}
				}
			}
		}
		if len(top) > 0 {
			return doc.SetKeys(top)
		}
		return nil

	default:
		var v map[string]string
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		return store.NewEnvFile(path).SetKeys(v)
	}
}
