package session

import (
	"testing"
	"time"

	"github.com/duckcoding/duckcoding/internal/tool"
)

func TestDeriveID_ClaudeUsesMetadataUserID(t *testing.T) {
	body := []byte(`{"metadata":{"user_id":"session_aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"}}`)
	id, disp := DeriveID(tool.Claude, body, "1.2.3.4", time.Now())
	if id != "session_aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee" {
		t.Errorf("got id %q", id)
	}
	if disp != "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee" {
		t.Errorf("got display %q", disp)
	}
}

func TestDeriveID_ClaudeFallsBackToSyntheticWithoutUserID(t *testing.T) {
	id1, _ := DeriveID(tool.Claude, []byte(`{}`), "1.2.3.4", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	id2, _ := DeriveID(tool.Claude, []byte(`{}`), "1.2.3.4", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if id1 != id2 {
		t.Errorf("synthetic id should be deterministic for the same inputs: %q vs %q", id1, id2)
	}
	id3, _ := DeriveID(tool.Claude, []byte(`{}`), "5.6.7.8", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if id1 == id3 {
		t.Error("different client IPs should produce different synthetic ids")
	}
}

func TestDeriveID_CodexUsesPromptCacheKey(t *testing.T) {
	body := []byte(`{"prompt_cache_key":"abc123"}`)
	id, disp := DeriveID(tool.Codex, body, "", time.Now())
	if id != "abc123" {
		t.Errorf("got id %q", id)
	}
	if disp != "abc123" {
		t.Errorf("got display %q", disp)
	}
}

func TestDeriveID_GeminiUsesModelAndCacheID(t *testing.T) {
	body := []byte(`{"model":"gemini-2.5-pro","cacheId":"c1"}`)
	id, _ := DeriveID(tool.Gemini, body, "", time.Now())
	if id != "gemini-2.5-pro|c1" {
		t.Errorf("got id %q", id)
	}
}

func TestDeriveID_GeminiFallsBackToContentFingerprint(t *testing.T) {
	body := []byte(`{"contents":[{"role":"user","parts":[{"text":"hi"}]}]}`)
	id, _ := DeriveID(tool.Gemini, body, "", time.Now())
	if len(id) < len("fingerprint_") || id[:len("fingerprint_")] != "fingerprint_" {
		t.Errorf("got %q, want fingerprint_ prefix", id)
	}
}

func TestDeriveID_AmpUsesClaudeDerivation(t *testing.T) {
	body := []byte(`{"metadata":{"user_id":"some-user"}}`)
	id, _ := DeriveID(tool.Amp, body, "", time.Now())
	if id != "some-user" {
		t.Errorf("got %q", id)
	}
}

func TestShortDisplay_TruncatesLongStrings(t *testing.T) {
	if got := shortDisplay("0123456789abcdef"); got != "0123456789ab" {
		t.Errorf("got %q", got)
	}
	if got := shortDisplay("short"); got != "short" {
		t.Errorf("got %q, want unchanged", got)
	}
}
