package profile

import (
	"testing"

	"github.com/duckcoding/duckcoding/internal/errs"
	"github.com/duckcoding/duckcoding/internal/tool"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return New(t.TempDir(), t.TempDir())
}

func TestCreate_ThenList(t *testing.T) {
	m := newTestManager(t)
	p, err := m.Create(tool.Claude, "work", CreatePayload{APIKey: "k", BaseURL: "https://x"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "work" || p.Source.Kind != SourceCustom {
		t.Errorf("got %+v", p)
	}

	list, err := m.List(tool.Claude)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "work" {
		t.Errorf("got %+v", list)
	}
}

func TestCreate_RejectsReservedName(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Create(tool.Claude, tool.InternalProfileName(tool.Claude), CreatePayload{APIKey: "k", BaseURL: "https://x"})
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindReserved {
		t.Errorf("got %v, want KindReserved", err)
	}
}

func TestCreate_RejectsInvalidName(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Create(tool.Claude, "bad name!", CreatePayload{APIKey: "k", BaseURL: "https://x"})
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindInvalidArgument {
		t.Errorf("got %v, want KindInvalidArgument", err)
	}
}

func TestCreate_RequiresAPIKeyAndBaseURL(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Create(tool.Claude, "work", CreatePayload{}); err == nil {
		t.Error("expected error for missing api_key/base_url")
	}
}

func TestCreate_RejectsDuplicate(t *testing.T) {
	m := newTestManager(t)
	m.Create(tool.Claude, "work", CreatePayload{APIKey: "k", BaseURL: "https://x"})
	_, err := m.Create(tool.Claude, "work", CreatePayload{APIKey: "k2", BaseURL: "https://y"})
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindConflict {
		t.Errorf("got %v, want KindConflict", err)
	}
}

func TestList_NeverIncludesReservedProfiles(t *testing.T) {
	m := newTestManager(t)
	m.Create(tool.Claude, "work", CreatePayload{APIKey: "k", BaseURL: "https://x"})
	m.InstallDCProxyProfile(tool.Claude, UpstreamConfig{APIKey: "up", BaseURL: "https://up"})

	list, err := m.List(tool.Claude)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "work" {
		t.Errorf("got %+v, want only the non-reserved profile", list)
	}
}

func TestUpdate_PatchesOnlyGivenFields(t *testing.T) {
	m := newTestManager(t)
	orig, _ := m.Create(tool.Claude, "work", CreatePayload{APIKey: "k", BaseURL: "https://x", Model: "m1"})

	newKey := "k2"
	got, err := m.Update(tool.Claude, "work", UpdatePatch{APIKey: &newKey})
	if err != nil {
		t.Fatal(err)
	}
	if got.APIKey != "k2" {
		t.Errorf("got api key %q", got.APIKey)
	}
	if got.BaseURL != "https://x" || got.Model != "m1" {
		t.Errorf("unpatched fields changed: %+v", got)
	}
	if !got.CreatedAt.Equal(orig.CreatedAt) {
		t.Error("CreatedAt should be preserved across update")
	}
}

func TestUpdate_UnknownProfile(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Update(tool.Claude, "nope", UpdatePatch{})
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindNotFound {
		t.Errorf("got %v, want KindNotFound", err)
	}
}

func TestDelete_RemovesProfile(t *testing.T) {
	m := newTestManager(t)
	m.Create(tool.Claude, "work", CreatePayload{APIKey: "k", BaseURL: "https://x"})
	if err := m.Delete(tool.Claude, "work"); err != nil {
		t.Fatal(err)
	}
	list, _ := m.List(tool.Claude)
	if len(list) != 0 {
		t.Errorf("got %+v, want empty", list)
	}
}

func TestDelete_UnknownProfile(t *testing.T) {
	m := newTestManager(t)
	err := m.Delete(tool.Claude, "nope")
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindNotFound {
		t.Errorf("got %v, want KindNotFound", err)
	}
}

func TestDelete_RejectsActiveRunningProfile(t *testing.T) {
	m := newTestManager(t)
	m.SetRunningCheck(func(tool.ID) bool { return true })
	m.Create(tool.Amp, "work", CreatePayload{APIKey: "k", BaseURL: "https://x"})
	if _, err := m.Activate(tool.Amp, "work"); err == nil {
		t.Fatal("expected Activate to fail while running")
	}

	// Make "other" the active profile with the running check off, then turn
	// the check back on so the tool counts as running.
	m.SetRunningCheck(func(tool.ID) bool { return false })
	m.Create(tool.Amp, "other", CreatePayload{APIKey: "k", BaseURL: "https://x"})
	if _, err := m.Activate(tool.Amp, "other"); err != nil {
		t.Fatal(err)
	}
	m.SetRunningCheck(func(tool.ID) bool { return true })

	err := m.Delete(tool.Amp, "other")
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindConflict {
		t.Errorf("got %v, want KindConflict", err)
	}
}

func TestActivate_RejectsWhileRunning(t *testing.T) {
	m := newTestManager(t)
	m.SetRunningCheck(func(tool.ID) bool { return true })
	m.Create(tool.Amp, "work", CreatePayload{APIKey: "k", BaseURL: "https://x"})

	_, err := m.Activate(tool.Amp, "work")
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindConflict {
		t.Errorf("got %v, want KindConflict", err)
	}
}

func TestActivate_UnknownProfile(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Activate(tool.Amp, "nope")
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindNotFound {
		t.Errorf("got %v, want KindNotFound", err)
	}
}

func TestActivate_RecordsActiveProfile(t *testing.T) {
	m := newTestManager(t)
	m.Create(tool.Amp, "work", CreatePayload{APIKey: "k", BaseURL: "https://x"})

	a, err := m.Activate(tool.Amp, "work")
	if err != nil {
		t.Fatal(err)
	}
	if a.ProfileName != "work" {
		t.Errorf("got %+v", a)
	}

	got, err := m.GetActive(tool.Amp)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ProfileName != "work" {
		t.Errorf("got %+v", got)
	}
}

func TestInstallDCProxyProfile_UsesReservedName(t *testing.T) {
	m := newTestManager(t)
	a, err := m.InstallDCProxyProfile(tool.Amp, UpstreamConfig{APIKey: "up", BaseURL: "https://up"})
	if err != nil {
		t.Fatal(err)
	}
	want := tool.InternalProfileName(tool.Amp)
	if a.ProfileName != want {
		t.Errorf("got %q, want %q", a.ProfileName, want)
	}

	p, ok, err := m.GetProfile(tool.Amp, want)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || p.APIKey != "up" {
		t.Errorf("got %+v, %v", p, ok)
	}
}

func TestRestorePriorActive_NoopOnEmptyName(t *testing.T) {
	m := newTestManager(t)
	if err := m.RestorePriorActive(tool.Amp, ""); err != nil {
		t.Errorf("got %v, want nil", err)
	}
}

func TestRestorePriorActive_ReactivatesNamedProfile(t *testing.T) {
	m := newTestManager(t)
	m.Create(tool.Amp, "work", CreatePayload{APIKey: "k", BaseURL: "https://x"})
	m.Activate(tool.Amp, "work")
	m.InstallDCProxyProfile(tool.Amp, UpstreamConfig{APIKey: "up", BaseURL: "https://up"})

	if err := m.RestorePriorActive(tool.Amp, "work"); err != nil {
		t.Fatal(err)
	}
	got, err := m.GetActive(tool.Amp)
	if err != nil {
		t.Fatal(err)
	}
	if got.ProfileName != "work" {
		t.Errorf("got %+v", got)
	}
}

func TestRestorePriorActive_UnknownProfile(t *testing.T) {
	m := newTestManager(t)
	err := m.RestorePriorActive(tool.Amp, "nope")
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindNotFound {
		t.Errorf("got %v, want KindNotFound", err)
	}
}

func TestUpdateActiveSnapshot_RequiresActiveProfile(t *testing.T) {
	m := newTestManager(t)
	err := m.UpdateActiveSnapshot(tool.Amp, NativeSnapshot{})
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindNotFound {
		t.Errorf("got %v, want KindNotFound", err)
	}
}

func TestUpdateActiveSnapshot_OverwritesSnapshot(t *testing.T) {
	m := newTestManager(t)
	m.Create(tool.Amp, "work", CreatePayload{APIKey: "k", BaseURL: "https://x"})
	m.Activate(tool.Amp, "work")

	snap := NativeSnapshot{"fake.json": []byte(`{"a":1}`)}
	if err := m.UpdateActiveSnapshot(tool.Amp, snap); err != nil {
		t.Fatal(err)
	}
	got, err := m.GetActive(tool.Amp)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.NativeSnapshot["fake.json"]) != `{"a":1}` {
		t.Errorf("got %+v", got.NativeSnapshot)
	}
}

func TestValidName(t *testing.T) {
	cases := map[string]bool{
		"work":             true,
		"work-2.prod_A":    true,
		"bad name":         false,
		"":                 false,
		tool.ReservedPrefix + "x": false,
	}
	for name, want := range cases {
		if got := ValidName(name); got != want {
			t.Errorf("ValidName(%q) = %v, want %v", name, got, want)
		}
	}
}
