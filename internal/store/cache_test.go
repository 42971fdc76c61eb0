package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCache_MissWhenAbsent(t *testing.T) {
	c := NewCache()
	if _, ok := c.Get(filepath.Join(t.TempDir(), "nope")); ok {
		t.Error("expected miss for file never stat'd")
	}
}

func TestCache_HitAfterPut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc")
	if err := os.WriteFile(path, []byte("v1"), 0o600); err != nil {
		t.Fatal(err)
	}
	c := NewCache()
	c.Put(path, "decoded-v1")

	v, ok := c.Get(path)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if v.(string) != "decoded-v1" {
		t.Errorf("got %v", v)
	}
}

func TestCache_MissAfterMtimeChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc")
	if err := os.WriteFile(path, []byte("v1"), 0o600); err != nil {
		t.Fatal(err)
	}
	c := NewCache()
	c.Put(path, "decoded-v1")

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get(path); ok {
		t.Error("expected miss after mtime changed")
	}
}

func TestCache_Invalidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc")
	if err := os.WriteFile(path, []byte("v1"), 0o600); err != nil {
		t.Fatal(err)
	}
	c := NewCache()
	c.Put(path, "decoded-v1")
	c.Invalidate(path)

	if _, ok := c.Get(path); ok {
		t.Error("expected miss after Invalidate")
	}
}
