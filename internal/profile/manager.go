package profile

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/duckcoding/duckcoding/internal/errs"
	"github.com/duckcoding/duckcoding/internal/store"
	"github.com/duckcoding/duckcoding/internal/tool"
)

// UpstreamConfig is what Proxy Manager supplies when installing the
// internal dc_proxy_<tool> profile: the real upstream credentials the
// instance forwards to.
type UpstreamConfig struct {
	APIKey  string
	BaseURL string
	WireAPI string
	Model   string
}

// Manager is the Profile Manager: profiles.json + active.json under a
// single cache, with a per-tool lock serializing activation (Activate,
// InstallDCProxyProfile, RestorePriorActive) against concurrent callers;
// Create, Update and Delete take only the document mutex (teacher's agent.Registry uses one RWMutex
// for everything; profiles need per-tool granularity since activation
// touches native files outside the mutex's own document).
type Manager struct {
	home     string
	profiles *store.JSONStore[profilesDoc]
	active   *store.JSONStore[activeDoc]

	docMu sync.Mutex // guards read-modify-write of either document

	lockMu sync.Mutex
	locks  map[tool.ID]*sync.Mutex

	runningMu sync.Mutex
	running   func(tool.ID) bool
}

// New creates a Profile Manager. dataDir holds profiles.json/active.json;
// home is the user's home directory, the root tool-native files are
// resolved under.
func New(dataDir, home string) *Manager {
	cache := store.NewCache()
	return &Manager{
		home:     home,
		profiles: store.NewJSON[profilesDoc](filepath.Join(dataDir, "profiles.json"), cache),
		active:   store.NewJSON[activeDoc](filepath.Join(dataDir, "active.json"), cache),
		locks:    make(map[tool.ID]*sync.Mutex),
		running:  func(tool.ID) bool { return false },
	}
}

// SetRunningCheck installs the callback used to decide whether a tool's
// proxy instance is currently running, consulted by Delete and Activate.
// Proxy Manager supplies this at startup; defaults to "never running" so
// Profile Manager is independently testable.
func (m *Manager) SetRunningCheck(fn func(tool.ID) bool) {
	m.runningMu.Lock()
	m.running = fn
	m.runningMu.Unlock()
}

func (m *Manager) isRunning(tid tool.ID) bool {
	m.runningMu.Lock()
	fn := m.running
	m.runningMu.Unlock()
	return fn(tid)
}

func (m *Manager) lockFor(tid tool.ID) *sync.Mutex {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	l, ok := m.locks[tid]
	if !ok {
		l = &sync.Mutex{}
		m.locks[tid] = l
	}
	return l
}

func (m *Manager) readProfiles() (profilesDoc, error) {
	doc, err := m.profiles.ReadCached()
	if err != nil {
		return nil, errs.New(errs.KindIOError, "reading profiles: %v", err)
	}
	if doc == nil {
		doc = profilesDoc{}
	}
	return doc, nil
}

func (m *Manager) readActive() (activeDoc, error) {
	doc, err := m.active.ReadCached()
	if err != nil {
		return nil, errs.New(errs.KindIOError, "reading active profiles: %v", err)
	}
	if doc == nil {
		doc = activeDoc{}
	}
	return doc, nil
}

// List returns every non-internal profile for tid, credential-free.
func (m *Manager) List(tid tool.ID) ([]Descriptor, error) {
	m.docMu.Lock()
	defer m.docMu.Unlock()

	doc, err := m.readProfiles()
	if err != nil {
		return nil, err
	}
	var out []Descriptor
	for name, p := range doc[tid] {
		if IsReserved(name) {
			continue
		}
		out = append(out, p.toDescriptor())
	}
	return out, nil
}

// Create adds a new profile for tid.
func (m *Manager) Create(tid tool.ID, name string, payload CreatePayload) (Profile, error) {
	if IsReserved(name) {
		return Profile{}, errs.New(errs.KindReserved, "profile name %q uses the reserved dc_proxy_ prefix", name)
	}
	if !ValidName(name) {
		return Profile{}, errs.New(errs.KindInvalidArgument, "profile name %q is invalid", name)
	}
	if payload.APIKey == "" || payload.BaseURL == "" {
		return Profile{}, errs.New(errs.KindInvalidArgument, "api_key and base_url are required")
	}

	m.docMu.Lock()
	defer m.docMu.Unlock()

	doc, err := m.readProfiles()
	if err != nil {
		return Profile{}, err
	}
	if doc[tid] == nil {
		doc[tid] = map[string]Profile{}
	}
	if _, exists := doc[tid][name]; exists {
		return Profile{}, errs.New(errs.KindConflict, "profile %q already exists", name)
	}

	now := time.Now().UTC()
	p := Profile{
		Name:              name,
		APIKey:            payload.APIKey,
		BaseURL:           payload.BaseURL,
		WireAPI:           payload.WireAPI,
		Model:             payload.Model,
		PricingTemplateID: payload.PricingTemplateID,
		Source:            Source{Kind: SourceCustom},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	doc[tid][name] = p
	if err := m.profiles.WriteAtomic(doc); err != nil {
		return Profile{}, errs.New(errs.KindIOError, "writing profiles: %v", err)
	}
	return p, nil
}

// Update applies patch to an existing profile, preserving created_at.
func (m *Manager) Update(tid tool.ID, name string, patch UpdatePatch) (Profile, error) {
	m.docMu.Lock()
	defer m.docMu.Unlock()

	doc, err := m.readProfiles()
	if err != nil {
		return Profile{}, err
	}
	p, ok := doc[tid][name]
	if !ok {
		return Profile{}, errs.New(errs.KindNotFound, "profile %q not found", name)
	}

	if patch.APIKey != nil {
		p.APIKey = *patch.APIKey
	}
	if patch.BaseURL != nil {
		p.BaseURL = *patch.BaseURL
	}
	if patch.WireAPI != nil {
		p.WireAPI = *patch.WireAPI
	}
	if patch.Model != nil {
		p.Model = *patch.Model
	}
	if patch.PricingTemplateID != nil {
		p.PricingTemplateID = *patch.PricingTemplateID
	}
	p.UpdatedAt = time.Now().UTC()

	doc[tid][name] = p
	if err := m.profiles.WriteAtomic(doc); err != nil {
		return Profile{}, errs.New(errs.KindIOError, "writing profiles: %v", err)
	}
	return p, nil
}

// Delete removes a profile. Fails with conflict if it is the active
// profile and the tool's proxy is running.
func (m *Manager) Delete(tid tool.ID, name string) error {
	m.docMu.Lock()
	defer m.docMu.Unlock()

	active, err := m.readActive()
	if err != nil {
		return err
	}
	if a := active[tid]; a != nil && a.ProfileName == name && m.isRunning(tid) {
		return errs.New(errs.KindConflict, "profile %q is active and the proxy is running", name).WithDetails(map[string]any{"reason": "is_active"})
	}

	doc, err := m.readProfiles()
	if err != nil {
		return err
	}
	if _, ok := doc[tid][name]; !ok {
		return errs.New(errs.KindNotFound, "profile %q not found", name)
	}
	delete(doc[tid], name)
	if err := m.profiles.WriteAtomic(doc); err != nil {
		return errs.New(errs.KindIOError, "writing profiles: %v", err)
	}
	return nil
}

// Activate writes name's credentials into tid's native files, re-reads
// them to form a fresh native_snapshot, and records it as the active
// profile.
func (m *Manager) Activate(tid tool.ID, name string) (ActiveProfile, error) {
	lock := m.lockFor(tid)
	lock.Lock()
	defer lock.Unlock()

	if m.isRunning(tid) {
		return ActiveProfile{}, errs.New(errs.KindConflict, "tool %s proxy is running", tid).WithDetails(map[string]any{"reason": "proxy_running"})
	}

	m.docMu.Lock()
	doc, err := m.readProfiles()
	if err != nil {
		m.docMu.Unlock()
		return ActiveProfile{}, err
	}
	p, ok := doc[tid][name]
	m.docMu.Unlock()
	if !ok {
		return ActiveProfile{}, errs.New(errs.KindNotFound, "profile %q not found", name)
	}

	return m.activateLocked(tid, p)
}

// activateLocked performs the native write + snapshot + active.json
// update. Caller must hold tid's lock.
func (m *Manager) activateLocked(tid tool.ID, p Profile) (ActiveProfile, error) {
	if err := writeNative(m.home, tid, p); err != nil {
		return ActiveProfile{}, errs.New(errs.KindIOError, "writing native files: %v", err)
	}
	snap, err := readNativeSnapshot(m.home, tid)
	if err != nil {
		return ActiveProfile{}, errs.New(errs.KindIOError, "reading native snapshot: %v", err)
	}

	now := time.Now().UTC()
	a := ActiveProfile{ProfileName: p.Name, SwitchedAt: now, LastSyncedAt: now, NativeSnapshot: snap}

	m.docMu.Lock()
	defer m.docMu.Unlock()
	activeDoc, err := m.readActive()
	if err != nil {
		return ActiveProfile{}, err
	}
	activeDoc[tid] = &a
	if err := m.active.WriteAtomic(activeDoc); err != nil {
		return ActiveProfile{}, errs.New(errs.KindIOError, "writing active profile: %v", err)
	}
	return a, nil
}

// ImportFromNative reads tid's current native files and creates a new
// profile named name from whatever credentials it can recover.
func (m *Manager) ImportFromNative(tid tool.ID, name string) (Profile, error) {
	if IsReserved(name) {
		return Profile{}, errs.New(errs.KindReserved, "profile name %q uses the reserved dc_proxy_ prefix", name)
	}

	apiKey, baseURL, model, err := readNativeCredentials(m.home, tid)
	if err != nil {
		return Profile{}, errs.New(errs.KindIOError, "reading native files: %v", err)
	}

	return m.Create(tid, name, CreatePayload{APIKey: apiKey, BaseURL: baseURL, Model: model})
}

// GetProfile returns one named profile for tid, including its credential
// fields — used by Proxy Instance's per-session route override.
func (m *Manager) GetProfile(tid tool.ID, name string) (Profile, bool, error) {
	m.docMu.Lock()
	defer m.docMu.Unlock()
	doc, err := m.readProfiles()
	if err != nil {
		return Profile{}, false, err
	}
	p, ok := doc[tid][name]
	return p, ok, nil
}

// GetActive returns the current active profile for tid, if any.
func (m *Manager) GetActive(tid tool.ID) (*ActiveProfile, error) {
	m.docMu.Lock()
	defer m.docMu.Unlock()
	doc, err := m.readActive()
	if err != nil {
		return nil, err
	}
	return doc[tid], nil
}

// UpdateActiveSnapshot overwrites the recorded native_snapshot for tid's
// active profile without touching native files or profile.json. Used by
// Config Watcher's allow_external_change (re-snapshot current native
// files as the new baseline).
func (m *Manager) UpdateActiveSnapshot(tid tool.ID, snap NativeSnapshot) error {
	m.docMu.Lock()
	defer m.docMu.Unlock()

	doc, err := m.readActive()
	if err != nil {
		return err
	}
	a := doc[tid]
	if a == nil {
		return errs.New(errs.KindNotFound, "no active profile for %s", tid)
	}
	a.NativeSnapshot = snap
	a.LastSyncedAt = time.Now().UTC()
	if err := m.active.WriteAtomic(doc); err != nil {
		return errs.New(errs.KindIOError, "writing active profile: %v", err)
	}
	return nil
}

// Home returns the native-files home directory, for callers (Config
// Watcher) that need to read/write native files directly.
func (m *Manager) Home() string { return m.home }

// InstallDCProxyProfile installs (or replaces) the reserved internal
// profile carrying the real upstream credentials, then activates it.
// Callable only by Proxy Manager.
func (m *Manager) InstallDCProxyProfile(tid tool.ID, up UpstreamConfig) (ActiveProfile, error) {
	name := tool.InternalProfileName(tid)
	now := time.Now().UTC()

	m.docMu.Lock()
	doc, err := m.readProfiles()
	if err != nil {
		m.docMu.Unlock()
		return ActiveProfile{}, err
	}
	if doc[tid] == nil {
		doc[tid] = map[string]Profile{}
	}
	existing, existed := doc[tid][name]
	p := Profile{
		Name:      name,
		APIKey:    up.APIKey,
		BaseURL:   up.BaseURL,
		WireAPI:   up.WireAPI,
		Model:     up.Model,
		Source:    Source{Kind: SourceCustom},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existed {
		p.CreatedAt = existing.CreatedAt
	}
	doc[tid][name] = p
	werr := m.profiles.WriteAtomic(doc)
	m.docMu.Unlock()
	if werr != nil {
		return ActiveProfile{}, errs.New(errs.KindIOError, "writing profiles: %v", werr)
	}

	lock := m.lockFor(tid)
	lock.Lock()
	defer lock.Unlock()
	return m.activateLocked(tid, p)
}

// RestorePriorActive re-activates the user's profile that was active
// before InstallDCProxyProfile overwrote it, using the ActiveProfile
// record captured just before installation. Callable only by Proxy
// Manager, normally on stop().
func (m *Manager) RestorePriorActive(tid tool.ID, priorProfileName string) error {
	if priorProfileName == "" {
		return nil
	}
	lock := m.lockFor(tid)
	lock.Lock()
	defer lock.Unlock()

	m.docMu.Lock()
	doc, err := m.readProfiles()
	if err != nil {
		m.docMu.Unlock()
		return err
	}
	p, ok := doc[tid][priorProfileName]
	m.docMu.Unlock()
	if !ok {
		return errs.New(errs.KindNotFound, "prior active profile %q not found", priorProfileName)
	}

	_, err = m.activateLocked(tid, p)
	return err
}
