package watch

import (
	"sync"
	"time"

	"github.com/duckcoding/duckcoding/internal/events"
	"github.com/duckcoding/duckcoding/internal/profile"
	"github.com/duckcoding/duckcoding/internal/tool"
)

// State is one of the Config Watcher's three states per tool.
type State string

const (
	Idle      State = "idle"
	Scanning  State = "scanning"
	Notifying State = "notifying"
)

const ackTimeout = 60 * time.Second

// ExternalConfigChange is the payload published on events.ExternalConfigChange.
type ExternalConfigChange struct {
	Tool       tool.ID     `json:"tool"`
	Diffs      []DiffEntry `json:"diffs"`
	IsSensitive bool       `json:"is_sensitive"`
}

// Watcher is the Config Watcher: one scan loop per tool, serialized so the
// next scan cannot start until the previous notification is acknowledged
// or ackTimeout expires and the tool returns to Idle.
type Watcher struct {
	profiles *profile.Manager
	hub      *events.Hub

	cfgMu    sync.RWMutex
	cfg      Config
	patterns map[tool.ID]compiledPatterns

	stateMu sync.Mutex
	state   map[tool.ID]State
	ackTimer map[tool.ID]*time.Timer

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Watcher against profiles (read by every scan for the
// active profile's baseline snapshot) and hub (event sink).
func New(profiles *profile.Manager, hub *events.Hub, cfg Config) (*Watcher, error) {
	patterns, err := compilePatterns(cfg)
	if err != nil {
		return nil, err
	}
	state := make(map[tool.ID]State, len(tool.All))
	for _, tid := range tool.All {
		state[tid] = Idle
	}
	return &Watcher{
		profiles: profiles,
		hub:      hub,
		cfg:      cfg,
		patterns: patterns,
		state:    state,
		ackTimer: make(map[tool.ID]*time.Timer),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start spawns one scan-loop goroutine per supported tool. Stop honors the
// stop signal so the process exits cleanly.
func (w *Watcher) Start() {
	for _, tid := range tool.All {
		w.wg.Add(1)
		go w.loop(tid)
	}
}

// Stop signals every scan loop to exit and waits for them to return.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

func (w *Watcher) loop(tid tool.ID) {
	defer w.wg.Done()
	w.cfgMu.RLock()
	interval := time.Duration(w.cfg.ScanIntervalSeconds) * time.Second
	enabled := w.cfg.Enabled
	w.cfgMu.RUnlock()
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if !enabled {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.scan(tid)
		}
	}
}

func (w *Watcher) scan(tid tool.ID) {
	w.stateMu.Lock()
	if w.state[tid] != Idle {
		w.stateMu.Unlock()
		return
	}
	w.state[tid] = Scanning
	w.stateMu.Unlock()

	active, err := w.profiles.GetActive(tid)
	if err != nil || active == nil {
		w.setState(tid, Idle)
		return
	}

	current, err := profile.ReadNativeSnapshot(w.profiles.Home(), tid)
	if err != nil {
		w.setState(tid, Idle)
		return
	}

	diffs, err := Diff(Snapshot(active.NativeSnapshot), Snapshot(current))
	if err != nil || len(diffs) == 0 {
		w.setState(tid, Idle)
		return
	}

	w.cfgMu.RLock()
	cp := w.patterns[tid]
	mode := w.cfg.Mode
	w.cfgMu.RUnlock()

	filtered := filterEntries(diffs, cp, mode)
	if len(filtered) == 0 {
		w.setState(tid, Idle)
		return
	}

	w.stateMu.Lock()
	w.state[tid] = Notifying
	w.ackTimer[tid] = time.AfterFunc(ackTimeout, func() { w.setState(tid, Idle) })
	w.stateMu.Unlock()

	w.hub.Publish(events.ExternalConfigChange, ExternalConfigChange{
		Tool:        tid,
		Diffs:       filtered,
		IsSensitive: isSensitive(filtered, cp),
	})
}

func (w *Watcher) setState(tid tool.ID, s State) {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	w.state[tid] = s
	if t, ok := w.ackTimer[tid]; ok {
		t.Stop()
		delete(w.ackTimer, tid)
	}
}

// BlockExternalChange restores tid's native files from the last-recorded
// native_snapshot, discarding the external edit, and returns the watcher
// to Idle.
func (w *Watcher) BlockExternalChange(tid tool.ID) error {
	active, err := w.profiles.GetActive(tid)
	if err != nil || active == nil {
		w.setState(tid, Idle)
		return err
	}
	if err := profile.RestoreSnapshot(w.profiles.Home(), tid, active.NativeSnapshot); err != nil {
		return err
	}
	w.setState(tid, Idle)
	return nil
}

// AllowExternalChange accepts the external edit: it re-snapshots the
// current native files as the new baseline and returns the watcher to
// Idle.
func (w *Watcher) AllowExternalChange(tid tool.ID) error {
	current, err := profile.ReadNativeSnapshot(w.profiles.Home(), tid)
	if err != nil {
		return err
	}
	if err := w.profiles.UpdateActiveSnapshot(tid, current); err != nil {
		return err
	}
	w.setState(tid, Idle)
	return nil
}

// Config returns a copy of the current watch configuration.
func (w *Watcher) Config() Config {
	w.cfgMu.RLock()
	defer w.cfgMu.RUnlock()
	return w.cfg
}

// UpdateConfig replaces the watch configuration and recompiles its glob
// patterns.
func (w *Watcher) UpdateConfig(cfg Config) error {
	patterns, err := compilePatterns(cfg)
	if err != nil {
		return err
	}
	w.cfgMu.Lock()
	w.cfg = cfg
	w.patterns = patterns
	w.cfgMu.Unlock()
	return nil
}
