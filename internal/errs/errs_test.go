package errs

import (
	"errors"
	"testing"
)

func TestNew_FormatsMessage(t *testing.T) {
	e := New(KindNotFound, "profile %q not found", "work")
	if e.Kind != KindNotFound {
		t.Errorf("got Kind %v, want KindNotFound", e.Kind)
	}
	want := `profile "work" not found`
	if e.Message != want {
		t.Errorf("got message %q, want %q", e.Message, want)
	}
	wantErr := "not_found: " + want
	if e.Error() != wantErr {
		t.Errorf("Error() = %q, want %q", e.Error(), wantErr)
	}
}

func TestWithDetails(t *testing.T) {
	e := New(KindConflict, "tool running").WithDetails(map[string]any{"reason": "proxy_running"})
	if e.Details["reason"] != "proxy_running" {
		t.Errorf("got details %v", e.Details)
	}
}

func TestAs_MatchesErrsError(t *testing.T) {
	var err error = New(KindPortBusy, "port in use")
	got, ok := As(err)
	if !ok {
		t.Fatal("expected As to match")
	}
	if got.Kind != KindPortBusy {
		t.Errorf("got Kind %v", got.Kind)
	}
}

func TestAs_RejectsForeignError(t *testing.T) {
	if _, ok := As(errors.New("plain error")); ok {
		t.Error("expected As to reject a non-errs error")
	}
}
