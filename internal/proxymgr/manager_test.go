package proxymgr

import (
	"fmt"
	"net"
	"path/filepath"
	"testing"

	"github.com/duckcoding/duckcoding/internal/errs"
	"github.com/duckcoding/duckcoding/internal/events"
	"github.com/duckcoding/duckcoding/internal/pricing"
	"github.com/duckcoding/duckcoding/internal/profile"
	"github.com/duckcoding/duckcoding/internal/session"
	"github.com/duckcoding/duckcoding/internal/stats"
	"github.com/duckcoding/duckcoding/internal/tool"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dataDir := t.TempDir()
	profiles := profile.New(dataDir, t.TempDir())
	db, err := stats.Open(filepath.Join(dataDir, "stats.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	sessions := session.New(db)
	t.Cleanup(sessions.Stop)
	pricingEngine, err := pricing.New(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	hub := events.NewHub()
	t.Cleanup(hub.Close)

	m, err := New(dataDir, profiles, sessions, pricingEngine, db, hub)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func enable(m *Manager, tid tool.ID, port int) {
	cfg := m.GetConfig(tid)
	cfg.Enabled = true
	cfg.Port = port
	cfg.LocalAPIKey = "local-secret"
	cfg.RealAPIKey = "upstream-key"
	cfg.RealBaseURL = "https://api.example.com"
	m.cfg[tid] = cfg
}

func TestNew_SeedsConfigForEveryTool(t *testing.T) {
	m := newTestManager(t)
	all := m.GetAllConfigs()
	for _, tid := range tool.All {
		if _, ok := all[tid]; !ok {
			t.Errorf("missing seeded config for %s", tid)
		}
	}
}

func TestStart_RejectsDisabledTool(t *testing.T) {
	m := newTestManager(t)
	err := m.Start(tool.Claude)
	if err == nil {
		t.Fatal("expected error starting a disabled tool")
	}
}

func TestStart_RejectsMissingLocalAPIKey(t *testing.T) {
	m := newTestManager(t)
	cfg := m.GetConfig(tool.Claude)
	cfg.Enabled = true
	cfg.Port = freePort(t)
	m.cfg[tool.Claude] = cfg

	if err := m.Start(tool.Claude); err == nil {
		t.Fatal("expected error with empty local_api_key")
	}
}

func TestStart_RejectsSelfReferentialRealBaseURL(t *testing.T) {
	m := newTestManager(t)
	port := freePort(t)
	enable(m, tool.Codex, port)
	cfg := m.GetConfig(tool.Codex)
	cfg.RealBaseURL = fmt.Sprintf("http://127.0.0.1:%d", port)
	m.cfg[tool.Codex] = cfg

	err := m.Start(tool.Codex)
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindLoopDetected {
		t.Fatalf("got %v, want KindLoopDetected", err)
	}
	if m.IsRunning(tool.Codex) {
		t.Error("expected no listener to be bound on loop detection")
	}
}

func TestStartThenStop_Lifecycle(t *testing.T) {
	m := newTestManager(t)
	enable(m, tool.Amp, freePort(t))

	if err := m.Start(tool.Amp); err != nil {
		t.Fatal(err)
	}
	if !m.IsRunning(tool.Amp) {
		t.Error("expected Amp to be running after Start")
	}

	if err := m.Stop(tool.Amp); err != nil {
		t.Fatal(err)
	}
	if m.IsRunning(tool.Amp) {
		t.Error("expected Amp to be stopped after Stop")
	}
}

func TestStart_RejectsAlreadyRunning(t *testing.T) {
	m := newTestManager(t)
	enable(m, tool.Amp, freePort(t))

	if err := m.Start(tool.Amp); err != nil {
		t.Fatal(err)
	}
	defer m.Stop(tool.Amp)

	if err := m.Start(tool.Amp); err == nil {
		t.Fatal("expected error starting an already-running tool")
	}
}

func TestUpdateConfig_RejectsWhileRunning(t *testing.T) {
	m := newTestManager(t)
	port := freePort(t)
	enable(m, tool.Amp, port)

	if err := m.Start(tool.Amp); err != nil {
		t.Fatal(err)
	}
	defer m.Stop(tool.Amp)

	err := m.UpdateConfig(tool.Amp, m.GetConfig(tool.Amp))
	if err == nil {
		t.Fatal("expected UpdateConfig to reject mutation while running")
	}
}

func TestUpdateConfig_PersistsWhileStopped(t *testing.T) {
	m := newTestManager(t)
	cfg := m.GetConfig(tool.Amp)
	cfg.AllowPublic = true
	if err := m.UpdateConfig(tool.Amp, cfg); err != nil {
		t.Fatal(err)
	}
	if got := m.GetConfig(tool.Amp); !got.AllowPublic {
		t.Errorf("got %+v", got)
	}
}

func TestStart_InstallsInternalProfileAndRestoresOnStop(t *testing.T) {
	m := newTestManager(t)
	m.profiles.Create(tool.Amp, "personal", profile.CreatePayload{APIKey: "p", BaseURL: "https://personal"})
	if _, err := m.profiles.Activate(tool.Amp, "personal"); err != nil {
		t.Fatal(err)
	}

	enable(m, tool.Amp, freePort(t))
	if err := m.Start(tool.Amp); err != nil {
		t.Fatal(err)
	}

	active, err := m.profiles.GetActive(tool.Amp)
	if err != nil {
		t.Fatal(err)
	}
	if active.ProfileName != tool.InternalProfileName(tool.Amp) {
		t.Errorf("got %q, want internal profile installed while running", active.ProfileName)
	}

	if err := m.Stop(tool.Amp); err != nil {
		t.Fatal(err)
	}
	active, err = m.profiles.GetActive(tool.Amp)
	if err != nil {
		t.Fatal(err)
	}
	if active.ProfileName != "personal" {
		t.Errorf("got %q, want prior active profile restored", active.ProfileName)
	}
}

func TestStop_IdempotentWhenNotRunning(t *testing.T) {
	m := newTestManager(t)
	if err := m.Stop(tool.Claude); err != nil {
		t.Errorf("got %v, want nil for stopping a never-started tool", err)
	}
}

func TestStatusAll_ReportsEveryTool(t *testing.T) {
	m := newTestManager(t)
	statuses := m.StatusAll()
	for _, tid := range tool.All {
		if _, ok := statuses[tid]; !ok {
			t.Errorf("missing status entry for %s", tid)
		}
	}
}

func TestAutoStartOnLaunch_StartsOnlyEligibleTools(t *testing.T) {
	m := newTestManager(t)
	enable(m, tool.Amp, freePort(t))
	cfg := m.GetConfig(tool.Amp)
	cfg.AutoStart = true
	m.cfg[tool.Amp] = cfg

	errsByTool := m.AutoStartOnLaunch()
	defer m.StopAll()

	if len(errsByTool) != 0 {
		t.Errorf("got errors %+v, want none", errsByTool)
	}
	if !m.IsRunning(tool.Amp) {
		t.Error("expected Amp to auto-start")
	}
	if m.IsRunning(tool.Claude) {
		t.Error("expected Claude (not configured for autostart) to remain stopped")
	}
}
