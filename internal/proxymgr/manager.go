package proxymgr

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"time"

	"github.com/duckcoding/duckcoding/internal/errs"
	"github.com/duckcoding/duckcoding/internal/events"
	"github.com/duckcoding/duckcoding/internal/pricing"
	"github.com/duckcoding/duckcoding/internal/profile"
	"github.com/duckcoding/duckcoding/internal/proxy"
	"github.com/duckcoding/duckcoding/internal/session"
	"github.com/duckcoding/duckcoding/internal/stats"
	"github.com/duckcoding/duckcoding/internal/store"
	"github.com/duckcoding/duckcoding/internal/tool"
)

// Manager is the Proxy Manager: Map<ToolId, *proxy.Instance> behind a
// single lock, plus the ToolProxyConfig document.
type Manager struct {
	mu        sync.Mutex
	instances map[tool.ID]*proxy.Instance
	priorActive map[tool.ID]string

	cfgPath string
	cfg     configDoc

	profiles *profile.Manager
	sessions *session.Manager
	pricing  *pricing.Engine
	stats    *stats.Store
	hub      *events.Hub
}

// New loads proxy.json from dataDir and wires the Proxy Manager to its
// collaborators. It also installs the running-check callback on profiles
// so Profile Manager's Delete/Activate can see which tools are running.
func New(dataDir string, profiles *profile.Manager, sessions *session.Manager, pr *pricing.Engine, st *stats.Store, hub *events.Hub) (*Manager, error) {
	cfg, err := loadConfigDoc(filepath.Join(dataDir, "proxy.json"))
	if err != nil {
		return nil, err
	}
	m := &Manager{
		instances:   make(map[tool.ID]*proxy.Instance),
		priorActive: make(map[tool.ID]string),
		cfgPath:     filepath.Join(dataDir, "proxy.json"),
		cfg:         cfg,
		profiles:    profiles,
		sessions:    sessions,
		pricing:     pr,
		stats:       st,
		hub:         hub,
	}
	profiles.SetRunningCheck(m.IsRunning)
	return m, nil
}

func (m *Manager) saveConfig() error {
	doc := store.NewJSON[configDoc](m.cfgPath, store.NewCache())
	if err := doc.WriteAtomic(m.cfg); err != nil {
		return errs.New(errs.KindIOError, "writing proxy.json: %v", err)
	}
	return nil
}

// IsRunning reports whether tid's instance is currently serving.
func (m *Manager) IsRunning(tid tool.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[tid]
	return ok && inst.StatusOf().Running
}

// GetConfig returns tid's current ToolProxyConfig.
func (m *Manager) GetConfig(tid tool.ID) Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg[tid]
}

// GetAllConfigs returns every tool's ToolProxyConfig.
func (m *Manager) GetAllConfigs() map[tool.ID]Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[tool.ID]Config, len(m.cfg))
	for k, v := range m.cfg {
		out[k] = v
	}
	return out
}

// UpdateConfig replaces tid's ToolProxyConfig. Forbidden while the
// instance is running (§5: runtime config mutation requires
// stop→write→start).
func (m *Manager) UpdateConfig(tid tool.ID, cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ok := m.instances[tid]; ok && inst.StatusOf().Running {
		return errs.New(errs.KindConflict, "tool %s proxy is running", tid)
	}
	m.cfg[tid] = cfg
	if err := m.saveConfig(); err != nil {
		return err
	}
	m.hub.Publish(events.ProxyConfigUpdated, map[string]any{"tool": tid})
	return nil
}

// Start implements §4.H start(tool).
func (m *Manager) Start(tid tool.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if inst, ok := m.instances[tid]; ok && inst.StatusOf().Running {
		return errs.New(errs.KindConflict, "tool %s proxy already running", tid).WithDetails(map[string]any{"reason": "already_running"})
	}

	cfg, ok := m.cfg[tid]
	if !ok || !cfg.Enabled {
		return errs.New(errs.KindInvalidArgument, "tool %s proxy is not enabled", tid)
	}
	if cfg.LocalAPIKey == "" {
		return errs.New(errs.KindInvalidArgument, "tool %s has no local_api_key set", tid)
	}
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return errs.New(errs.KindPortInvalid, "port %d out of range", cfg.Port)
	}
	if !portFree(cfg.Port) {
		return errs.New(errs.KindPortBusy, "port %d is in use", cfg.Port)
	}

	listenAddr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	if cfg.AllowPublic {
		listenAddr = fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	}

	if loop, err := proxy.DetectLoop(cfg.RealBaseURL, listenAddr, cfg.AllowPublic); err != nil {
		return errs.New(errs.KindInvalidArgument, "real_base_url %q: %v", cfg.RealBaseURL, err)
	} else if loop {
		return errs.New(errs.KindLoopDetected, "real_base_url %q resolves to this proxy's own listener", cfg.RealBaseURL)
	}

	if active, err := m.profiles.GetActive(tid); err == nil && active != nil && active.ProfileName != "" {
		m.priorActive[tid] = active.ProfileName
	}

	if _, err := m.profiles.InstallDCProxyProfile(tid, profile.UpstreamConfig{
		APIKey:  cfg.RealAPIKey,
		BaseURL: cfg.RealBaseURL,
		WireAPI: cfg.WireAPI,
	}); err != nil {
		return errs.New(errs.KindInvalidArgument, "installing internal profile: %v", err)
	}

	inst := proxy.New(proxy.Options{
		ToolID:                       tid,
		ListenAddr:                   listenAddr,
		LocalAPIKey:                  cfg.LocalAPIKey,
		AllowPublic:                  cfg.AllowPublic,
		SessionEndpointConfigEnabled: cfg.SessionEndpointConfigEnabled,
		PricingTemplateID:            effectiveTemplateID(cfg, tid),
		Profiles:                     m.profiles,
		Sessions:                     m.sessions,
		Pricing:                      m.pricing,
		Stats:                        m.stats,
		Hub:                          m.hub,
	})
	if err := inst.Start(); err != nil {
		return errs.New(errs.KindPortBusy, "%v", err)
	}
	m.instances[tid] = inst
	return nil
}

func effectiveTemplateID(cfg Config, tid tool.ID) string {
	if cfg.PricingTemplateID != "" {
		return cfg.PricingTemplateID
	}
	d, _ := tool.Get(tid)
	return d.DefaultPricingTemplate
}

// Stop implements §4.H stop(tool): graceful shutdown then restore the
// user's prior active profile. Idempotent.
func (m *Manager) Stop(tid tool.ID) error {
	m.mu.Lock()
	inst, ok := m.instances[tid]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := inst.Stop(ctx); err != nil {
		return errs.New(errs.KindInternal, "stopping %s: %v", tid, err)
	}

	m.mu.Lock()
	delete(m.instances, tid)
	prior := m.priorActive[tid]
	delete(m.priorActive, tid)
	m.mu.Unlock()

	if prior != "" {
		_ = m.profiles.RestorePriorActive(tid, prior)
	}
	return nil
}

// StatusEntry is one tool's entry in status_all().
type StatusEntry struct {
	Running   bool
	Port      int
	StartedAt time.Time
}

// StatusAll implements §4.H status_all().
func (m *Manager) StatusAll() map[tool.ID]StatusEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[tool.ID]StatusEntry, len(tool.All))
	for _, tid := range tool.All {
		if inst, ok := m.instances[tid]; ok {
			s := inst.StatusOf()
			out[tid] = StatusEntry{Running: s.Running, Port: s.Port, StartedAt: s.StartedAt}
		} else {
			out[tid] = StatusEntry{}
		}
	}
	return out
}

// AutoStartOnLaunch implements §4.H auto_start_on_launch(): starts every
// tool where enabled && auto_start && local_api_key != "". Errors from
// individual tools are collected, not fatal to the others.
func (m *Manager) AutoStartOnLaunch() map[tool.ID]error {
	m.mu.Lock()
	candidates := make([]tool.ID, 0, len(tool.All))
	for _, tid := range tool.All {
		cfg := m.cfg[tid]
		if cfg.Enabled && cfg.AutoStart && cfg.LocalAPIKey != "" {
			candidates = append(candidates, tid)
		}
	}
	m.mu.Unlock()

	errs := make(map[tool.ID]error)
	for _, tid := range candidates {
		if err := m.Start(tid); err != nil {
			errs[tid] = err
		}
	}
	return errs
}

// StopAll gracefully stops every running instance, used on process
// shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	ids := make([]tool.ID, 0, len(m.instances))
	for tid := range m.instances {
		ids = append(ids, tid)
	}
	m.mu.Unlock()
	for _, tid := range ids {
		_ = m.Stop(tid)
	}
}

func portFree(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
