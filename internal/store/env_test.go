package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnvFile_Read_MissingFile(t *testing.T) {
	lines, err := NewEnvFile(filepath.Join(t.TempDir(), ".env")).Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 0 {
		t.Errorf("got %d lines, want 0", len(lines))
	}
}

func TestEnvFile_Read_PreservesPassthrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# a comment\n\nGEMINI_API_KEY=abc123\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	lines, err := NewEnvFile(path).Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if !lines[0].IsPassthrough || lines[0].Raw != "# a comment" {
		t.Errorf("line 0: %+v", lines[0])
	}
	if !lines[1].IsPassthrough {
		t.Errorf("line 1 should be a passthrough blank line: %+v", lines[1])
	}
	if lines[2].IsPassthrough || lines[2].Key != "GEMINI_API_KEY" || lines[2].Value != "abc123" {
		t.Errorf("line 2: %+v", lines[2])
	}
}

func TestEnvFile_Lookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	os.WriteFile(path, []byte("FOO=bar\n"), 0o600)

	v, ok, err := NewEnvFile(path).Lookup("FOO")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || v != "bar" {
		t.Errorf("got (%q, %v), want (bar, true)", v, ok)
	}

	_, ok, err = NewEnvFile(path).Lookup("MISSING")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected MISSING to be absent")
	}
}

func TestEnvFile_SetKeys_UpdatesExistingPreservesComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	os.WriteFile(path, []byte("# keep me\nFOO=old\n"), 0o600)

	e := NewEnvFile(path)
	if err := e.SetKeys(map[string]string{"FOO": "new"}); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	got := string(data)
	if got != "# keep me\nFOO=new\n" {
		t.Errorf("got %q", got)
	}
}

func TestEnvFile_SetKeys_AppendsNewKeysSorted(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	e := NewEnvFile(path)
	if err := e.SetKeys(map[string]string{"ZEBRA": "1", "ALPHA": "2"}); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "ALPHA=2\nZEBRA=1\n" {
		t.Errorf("got %q", data)
	}
}

func TestEnvFile_SetKeys_QuotesValuesWithSpaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	e := NewEnvFile(path)
	if err := e.SetKeys(map[string]string{"MSG": "hello world"}); err != nil {
		t.Fatal(err)
	}

	v, ok, err := NewEnvFile(path).Lookup("MSG")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || v != "hello world" {
		t.Errorf("got (%q, %v)", v, ok)
	}
}
