package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTOMLDocument_Decode_MissingFile(t *testing.T) {
	var v struct{ Foo string }
	if err := NewTOMLDocument(filepath.Join(t.TempDir(), "config.toml")).Decode(&v); err != nil {
		t.Fatal(err)
	}
	if v.Foo != "" {
		t.Errorf("got %q, want empty", v.Foo)
	}
}

func TestTOMLDocument_SetKeys_PreservesCommentsAndOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "# header comment\nmodel_provider = \"openai\"\nother = \"unchanged\"\n"
	os.WriteFile(path, []byte(content), 0o600)

	d := NewTOMLDocument(path)
	if err := d.SetKeys(map[string]string{"model_provider": "anthropic"}); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	got := string(data)
	if !strings.Contains(got, "# header comment") {
		t.Errorf("comment dropped: %q", got)
	}
	if !strings.Contains(got, `model_provider = "anthropic"`) {
		t.Errorf("key not updated: %q", got)
	}
	if !strings.Contains(got, `other = "unchanged"`) {
		t.Errorf("unrelated key dropped: %q", got)
	}
}

func TestTOMLDocument_SetKeys_AppendsMissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	d := NewTOMLDocument(path)
	if err := d.SetKeys(map[string]string{"new_key": "v"}); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `new_key = "v"`) {
		t.Errorf("got %q", data)
	}
}

func TestTOMLDocument_SetTableKey_NewTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	d := NewTOMLDocument(path)
	if err := d.SetTableKey("model_providers.openai", "base_url", "https://api.openai.com/v1"); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	got := string(data)
	if !strings.Contains(got, "[model_providers.openai]") {
		t.Errorf("missing table header: %q", got)
	}
	if !strings.Contains(got, `base_url = "https://api.openai.com/v1"`) {
		t.Errorf("missing key: %q", got)
	}
}

func TestTOMLDocument_SetTableKey_ExistingTablePreservesOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[model_providers.openai]\nname = \"OpenAI\"\nbase_url = \"https://old\"\n\n[other]\nkey = \"v\"\n"
	os.WriteFile(path, []byte(content), 0o600)

	d := NewTOMLDocument(path)
	if err := d.SetTableKey("model_providers.openai", "base_url", "https://new"); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	got := string(data)
	if !strings.Contains(got, `name = "OpenAI"`) {
		t.Errorf("dropped unrelated key in same table: %q", got)
	}
	if !strings.Contains(got, `base_url = "https://new"`) {
		t.Errorf("key not updated: %q", got)
	}
	if !strings.Contains(got, "[other]") || !strings.Contains(got, `key = "v"`) {
		t.Errorf("dropped unrelated table: %q", got)
	}
}
