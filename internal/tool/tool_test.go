package tool

import "testing"

func TestGet_KnownTools(t *testing.T) {
	for _, id := range All {
		d, err := Get(id)
		if err != nil {
			t.Errorf("Get(%s): %v", id, err)
		}
		if d.ID != id {
			t.Errorf("Get(%s).ID = %s", id, d.ID)
		}
		if d.DefaultPort == 0 {
			t.Errorf("%s: DefaultPort unset", id)
		}
	}
}

func TestGet_UnknownTool(t *testing.T) {
	if _, err := Get(ID("not-a-tool")); err == nil {
		t.Error("expected error for unknown tool id")
	}
}

func TestValid(t *testing.T) {
	if !Valid(Claude) {
		t.Error("Claude should be valid")
	}
	if Valid(ID("bogus")) {
		t.Error("bogus should not be valid")
	}
}

func TestInternalProfileName(t *testing.T) {
	got := InternalProfileName(Claude)
	want := "dc_proxy_claude-code"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAmpHasNoNativeConfigPaths(t *testing.T) {
	d, err := Get(Amp)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.NativeConfigPaths) != 0 {
		t.Errorf("AMP should have no native config paths, got %v", d.NativeConfigPaths)
	}
}

func TestReservedPrefix(t *testing.T) {
	name := InternalProfileName(Codex)
	if len(name) < len(ReservedPrefix) || name[:len(ReservedPrefix)] != ReservedPrefix {
		t.Errorf("%q does not start with reserved prefix %q", name, ReservedPrefix)
	}
}
