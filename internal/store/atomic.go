// Package store is the typed Data Store: a file manager over JSON, TOML,
// and .env encodings with an mtime-keyed read cache and atomic, 0600-
// permissioned writes. No other package touches these files directly —
// the same "no direct file I/O outside the owning component" discipline
// the teacher applies to its audit JSONL (always fsynced) and its
// config.Load/WriteDefault pair (single choke point for config.yaml).
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteAtomic writes data to path by writing to a sibling "path.tmp" file,
// fsyncing it, then renaming it into place. On POSIX the final file is
// chmod'd to 0600. Parent directories are created as needed.
//
// Grounded on the teacher's audit log discipline of "flush immediately —
// entries must survive crashes" (audit.AuditLog.writeToFile calls
// f.Sync()); generalized here to a full write-replace instead of an
// append, since Data Store documents are whole-file JSON/TOML/env blobs
// rather than an append-only log.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("store: creating directory %s: %w", dir, err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("store: opening temp file %s: %w", tmp, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("store: writing temp file %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("store: fsyncing temp file %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: closing temp file %s: %w", tmp, err)
	}

	if err := os.Chmod(tmp, 0o600); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: chmod temp file %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: renaming %s to %s: %w", tmp, path, err)
	}

	return nil
}
