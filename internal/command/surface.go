// Package command implements the Command Surface: the synchronous
// request/response handlers the UI and tray talk to. Handlers validate
// inputs, route to the owning component, and translate domain errors into
// the stable Kind taxonomy below. No command performs I/O outside the Data
// Store.
//
// Grounded on the teacher's cmd/ctrlai/main.go, where every subcommand
// (runAgents, runKill, runRevive, the rule subcommands) is a thin
// validate-then-delegate function over Registry/Engine/KillSwitch, plus
// internal/dashboard's APIHandler, which exposes the same subsystems over
// a typed REST surface for the notification half. Surface forwards async
// notifications to internal/events' hub, itself grounded on
// internal/dashboard/websocket.go's register/unregister/broadcast trio.
package command

import (
	"path/filepath"

	"github.com/duckcoding/duckcoding/internal/events"
	"github.com/duckcoding/duckcoding/internal/extractor"
	"github.com/duckcoding/duckcoding/internal/pricing"
	"github.com/duckcoding/duckcoding/internal/profile"
	"github.com/duckcoding/duckcoding/internal/proxymgr"
	"github.com/duckcoding/duckcoding/internal/session"
	"github.com/duckcoding/duckcoding/internal/stats"
	"github.com/duckcoding/duckcoding/internal/store"
	"github.com/duckcoding/duckcoding/internal/tool"
	"github.com/duckcoding/duckcoding/internal/watch"
)

// Surface is the Command Surface: one struct holding every component it
// dispatches to, with one method per named command in the table.
type Surface struct {
	dataDir  string
	Profiles *profile.Manager
	Proxies  *proxymgr.Manager
	Pricing  *pricing.Engine
	Sessions *session.Manager
	Stats    *stats.Store
	Watcher  *watch.Watcher
	Hub      *events.Hub
}

// New wires a Surface over already-constructed components. Component
// construction order (Data Store path → Profile Manager → Pricing Engine
// → Stats Store → Session Manager → Proxy Manager → Config Watcher) is
// the caller's responsibility (cmd/duckcoding's daemon entrypoint).
func New(dataDir string, profiles *profile.Manager, proxies *proxymgr.Manager, pr *pricing.Engine, sessions *session.Manager, st *stats.Store, watcher *watch.Watcher, hub *events.Hub) *Surface {
	return &Surface{
		dataDir:  dataDir,
		Profiles: profiles,
		Proxies:  proxies,
		Pricing:  pr,
		Sessions: sessions,
		Stats:    st,
		Watcher:  watcher,
		Hub:      hub,
	}
}

func parseToolID(raw string) (tool.ID, error) {
	tid := tool.ID(raw)
	if _, err := tool.Get(tid); err != nil {
		return "", New(KindInvalidArgument, "unknown tool %q", raw)
	}
	return tid, nil
}

// --- Profile Manager commands ---

func (s *Surface) ListProfiles(toolRaw string) ([]profile.Descriptor, error) {
	tid, err := parseToolID(toolRaw)
	if err != nil {
		return nil, err
	}
	return s.Profiles.List(tid)
}

func (s *Surface) CreateProfile(toolRaw, name string, payload profile.CreatePayload) (profile.Profile, error) {
	tid, err := parseToolID(toolRaw)
	if err != nil {
		return profile.Profile{}, err
	}
	return s.Profiles.Create(tid, name, payload)
}

func (s *Surface) UpdateProfile(toolRaw, name string, patch profile.UpdatePatch) (profile.Profile, error) {
	tid, err := parseToolID(toolRaw)
	if err != nil {
		return profile.Profile{}, err
	}
	return s.Profiles.Update(tid, name, patch)
}

func (s *Surface) DeleteProfile(toolRaw, name string) error {
	tid, err := parseToolID(toolRaw)
	if err != nil {
		return err
	}
	return s.Profiles.Delete(tid, name)
}

func (s *Surface) ActivateProfile(toolRaw, name string) (profile.ActiveProfile, error) {
	tid, err := parseToolID(toolRaw)
	if err != nil {
		return profile.ActiveProfile{}, err
	}
	if s.Proxies.IsRunning(tid) {
		return profile.ActiveProfile{}, New(KindConflict, "tool %s proxy is running", tid).WithDetails(map[string]any{"reason": "proxy_running"})
	}
	return s.Profiles.Activate(tid, name)
}

func (s *Surface) ImportFromNative(toolRaw, name string) (profile.Profile, error) {
	tid, err := parseToolID(toolRaw)
	if err != nil {
		return profile.Profile{}, err
	}
	return s.Profiles.ImportFromNative(tid, name)
}

func (s *Surface) GetActiveConfig(toolRaw string) (*profile.ActiveProfile, error) {
	tid, err := parseToolID(toolRaw)
	if err != nil {
		return nil, err
	}
	return s.Profiles.GetActive(tid)
}

// --- Global config commands ---

func (s *Surface) GetGlobalConfig() (GlobalConfig, error) {
	return LoadGlobalConfig(s.dataDir)
}

func (s *Surface) SaveGlobalConfig(cfg GlobalConfig) error {
	doc := store.NewJSON[GlobalConfig](filepath.Join(s.dataDir, "global.json"), store.NewCache())
	if err := doc.WriteAtomic(cfg); err != nil {
		return New(KindIOError, "writing global.json: %v", err)
	}
	if s.Watcher != nil {
		if err := s.Watcher.UpdateConfig(cfg.ConfigWatch); err != nil {
			return err
		}
	}
	return nil
}

// --- Proxy Manager commands ---

func (s *Surface) StartToolProxy(toolRaw string) error {
	tid, err := parseToolID(toolRaw)
	if err != nil {
		return err
	}
	return s.Proxies.Start(tid)
}

func (s *Surface) StopToolProxy(toolRaw string) error {
	tid, err := parseToolID(toolRaw)
	if err != nil {
		return err
	}
	return s.Proxies.Stop(tid)
}

func (s *Surface) GetAllProxyStatus() map[tool.ID]proxymgr.StatusEntry {
	return s.Proxies.StatusAll()
}

func (s *Surface) UpdateProxyConfig(toolRaw string, cfg proxymgr.Config) error {
	tid, err := parseToolID(toolRaw)
	if err != nil {
		return err
	}
	if err := s.Proxies.UpdateConfig(tid, cfg); err != nil {
		return err
	}
	s.Hub.Publish(events.ProxyConfigUpdated, map[string]any{"tool": tid})
	return nil
}

func (s *Surface) GetProxyConfig(toolRaw string) (proxymgr.Config, error) {
	tid, err := parseToolID(toolRaw)
	if err != nil {
		return proxymgr.Config{}, err
	}
	return s.Proxies.GetConfig(tid), nil
}

func (s *Surface) GetAllProxyConfigs() map[tool.ID]proxymgr.Config {
	return s.Proxies.GetAllConfigs()
}

// --- Config Watcher commands ---

func (s *Surface) BlockExternalChange(toolRaw string) error {
	tid, err := parseToolID(toolRaw)
	if err != nil {
		return err
	}
	return s.Watcher.BlockExternalChange(tid)
}

func (s *Surface) AllowExternalChange(toolRaw string) error {
	tid, err := parseToolID(toolRaw)
	if err != nil {
		return err
	}
	return s.Watcher.AllowExternalChange(tid)
}

func (s *Surface) GetWatchConfig() watch.Config {
	return s.Watcher.Config()
}

func (s *Surface) UpdateWatchConfig(cfg watch.Config) error {
	return s.Watcher.UpdateConfig(cfg)
}

// --- Stats Store commands ---

func (s *Surface) QueryTokenLogs(filters stats.LogFilters, page, pageSize int) ([]extractor.TokenLog, error) {
	if page < 1 || pageSize < 1 || pageSize > 1000 {
		return nil, New(KindInvalidArgument, "page and page_size must be positive, page_size <= 1000")
	}
	return s.Stats.QueryLogs(filters, page, pageSize)
}

// TokenStatsSummary is the rolled-up counters get_token_stats_summary
// returns — the all-time totals bucket for a filter set, with no time
// bucketing.
type TokenStatsSummary struct {
	Input         int64   `json:"input"`
	Output        int64   `json:"output"`
	CacheCreation int64   `json:"cache_creation"`
	CacheRead     int64   `json:"cache_read"`
	TotalCost     float64 `json:"total_cost"`
	RequestCount  int64   `json:"request_count"`
}

func (s *Surface) GetTokenStatsSummary(filters stats.LogFilters) (TokenStatsSummary, error) {
	buckets, err := s.Stats.Aggregate(filters, stats.Gran1mo)
	if err != nil {
		return TokenStatsSummary{}, err
	}
	var sum TokenStatsSummary
	for _, b := range buckets {
		sum.Input += b.Input
		sum.Output += b.Output
		sum.CacheCreation += b.CacheCreation
		sum.CacheRead += b.CacheRead
		sum.TotalCost += b.TotalCost
		sum.RequestCount += b.SuccessCount + b.FailCount
	}
	return sum, nil
}

func (s *Surface) QueryTokenTrends(filters stats.LogFilters, granularity stats.Granularity) ([]stats.Bucket, error) {
	return s.Stats.Aggregate(filters, granularity)
}

func (s *Surface) QueryCostSummary(filters stats.LogFilters, granularity stats.Granularity) ([]stats.Bucket, error) {
	return s.Stats.Aggregate(filters, granularity)
}

// --- Pricing Engine commands ---

func (s *Surface) ListPricingTemplates() []pricing.Template {
	return s.Pricing.ListTemplates()
}

func (s *Surface) SavePricingTemplate(t pricing.Template) error {
	return s.Pricing.SaveTemplate(t)
}

func (s *Surface) DeletePricingTemplate(id string) error {
	return s.Pricing.DeleteTemplate(id)
}

func (s *Surface) SetDefaultTemplate(toolRaw, templateID string) error {
	tid, err := parseToolID(toolRaw)
	if err != nil {
		return err
	}
	return s.Pricing.SetDefaultTemplate(tid, templateID)
}

// --- Session Manager / Stats Store session commands ---

func (s *Surface) GetSessionList(toolRaw string) ([]stats.SessionRecord, error) {
	tid, err := parseToolID(toolRaw)
	if err != nil {
		return nil, err
	}
	return s.Stats.ListSessions(string(tid))
}

// SessionStats is the per-session detail get_session_stats returns:
// the persisted record plus the live in-memory aggregate if the session
// is still active.
type SessionStats struct {
	Record stats.SessionRecord   `json:"record"`
	Live   *session.ProxySession `json:"live,omitempty"`
}

func (s *Surface) GetSessionStats(toolRaw, sessionID string) (SessionStats, error) {
	tid, err := parseToolID(toolRaw)
	if err != nil {
		return SessionStats{}, err
	}
	records, err := s.Stats.ListSessions(string(tid))
	if err != nil {
		return SessionStats{}, err
	}
	var out SessionStats
	found := false
	for _, r := range records {
		if r.SessionID == sessionID {
			out.Record = r
			found = true
			break
		}
	}
	if !found {
		return SessionStats{}, New(KindNotFound, "session %q not found", sessionID)
	}
	if live, ok := s.Sessions.Get(sessionID); ok {
		out.Live = &live
	}
	return out, nil
}

func (s *Surface) UpdateSessionNote(sessionID, note string) error {
	s.Sessions.SetNote(sessionID, note)
	return s.Stats.UpdateSessionNote(sessionID, note)
}

func (s *Surface) UpdateSessionConfig(sessionID, configMode, configProfileName string) error {
	return s.Stats.UpdateSessionConfig(sessionID, configMode, configProfileName)
}

func (s *Surface) DeleteSession(sessionID string) error {
	return s.Stats.DeleteSession(sessionID)
}

func (s *Surface) ClearAllSessions() error {
	return s.Stats.ClearAllSessions()
}

// StartupReport is what AutoStartOnLaunch's per-tool errors get
// formatted into for the CLI's startup log line.
type StartupReport struct {
	Tool  tool.ID
	Error error
}

// AutoStartOnLaunch starts every enabled/auto_start tool proxy without
// failing on individual tool errors: it returns one report per tool that
// failed to start and leaves logging to the caller — mirrors the teacher's
// daemon startup, which logs and continues rather than aborting the whole
// process over one misconfigured agent.
func (s *Surface) AutoStartOnLaunch() []StartupReport {
	errs := s.Proxies.AutoStartOnLaunch()
	reports := make([]StartupReport, 0, len(errs))
	for tid, err := range errs {
		reports = append(reports, StartupReport{Tool: tid, Error: err})
	}
	return reports
}

// Shutdown stops every running proxy and the background components that
// own goroutines, in dependency order (proxies before the things they
// write into).
func (s *Surface) Shutdown() {
	s.Proxies.StopAll()
	if s.Watcher != nil {
		s.Watcher.Stop()
	}
	s.Sessions.Stop()
	_ = s.Stats.Close()
}
