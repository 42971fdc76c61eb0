package session

import (
	"sync"
	"time"

	"github.com/duckcoding/duckcoding/internal/stats"
	"github.com/duckcoding/duckcoding/internal/tool"
)

const (
	flushInterval  = 100 * time.Millisecond
	flushBatchSize = 10
	activeWindow   = 5 * time.Minute

	retentionMaxAge   = 30 * 24 * time.Hour
	retentionMaxCount = 1000
)

// ConfigMode records whether a session's requests ran under the tool's
// global default profile or a per-session override.
type ConfigMode string

const (
	ConfigGlobal ConfigMode = "global"
	ConfigCustom ConfigMode = "custom"
)

// Counters are cumulative token counts for one session.
type Counters struct {
	Input         int64
	Output        int64
	CacheCreation int64
	CacheRead     int64
}

// ProxySession is one logical conversation's in-memory aggregate.
type ProxySession struct {
	SessionID         string
	DisplayID         string
	ToolID            tool.ID
	FirstSeenAt       time.Time
	LastSeenAt        time.Time
	RequestCount      int64
	Counters          Counters
	Note              string
	ConfigMode        ConfigMode
	ConfigProfileName string
}

// IsActive reports whether the session has been touched within the last
// 5 minutes.
func (s ProxySession) IsActive(now time.Time) bool {
	return now.Sub(s.LastSeenAt) < activeWindow
}

// Manager is the Session Manager: an in-memory map of live sessions plus
// a background task batching writes to the Stats Store.
//
// Grounded on the teacher's internal/agent.Registry (auto-create on first
// touch, cumulative counters, mutex-guarded map, explicit Save) with the
// single Save() replaced by a channel-driven micro-batched flush per
// §4.F's 100ms/10-item rule, since the Stats Store write path is now a
// SQLite insert rather than a whole-file YAML rewrite.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*ProxySession

	dirty  chan string
	stats  *stats.Store

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Session Manager writing batched upserts to store, and
// starts its flush and retention-sweep goroutines.
func New(store *stats.Store) *Manager {
	m := &Manager{
		sessions: make(map[string]*ProxySession),
		dirty:    make(chan string, 4096),
		stats:    store,
		stopCh:   make(chan struct{}),
	}
	m.wg.Add(2)
	go m.flushLoop()
	go m.retentionLoop()
	return m
}

// Stop halts the flush and retention goroutines, flushing any pending
// sessions first.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

// Touch creates a ProxySession if new, updates its counters and
// last_seen_at, and enqueues it for a batched Stats Store upsert.
func (m *Manager) Touch(tid tool.ID, sessionID, displayID string, counters Counters, configMode ConfigMode, configProfileName string) *ProxySession {
	now := time.Now().UTC()

	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		s = &ProxySession{
			SessionID:   sessionID,
			DisplayID:   displayID,
			ToolID:      tid,
			FirstSeenAt: now,
		}
		m.sessions[sessionID] = s
	}
	s.LastSeenAt = now
	s.RequestCount++
	s.Counters.Input += counters.Input
	s.Counters.Output += counters.Output
	s.Counters.CacheCreation += counters.CacheCreation
	s.Counters.CacheRead += counters.CacheRead
	s.ConfigMode = configMode
	s.ConfigProfileName = configProfileName
	snapshot := *s
	m.mu.Unlock()

	select {
	case m.dirty <- sessionID:
	default:
		// Buffer full: the next natural touch (or the ticker-driven flush
		// of whatever's already queued) will pick this session up, since
		// Touch always holds the latest aggregate in m.sessions regardless
		// of whether this particular enqueue succeeded.
	}
	return &snapshot
}

func (m *Manager) flushLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	pending := make(map[string]bool)
	flush := func() {
		for id := range pending {
			m.flushOne(id)
		}
		pending = make(map[string]bool)
	}

	for {
		select {
		case <-m.stopCh:
			flush()
			return
		case id := <-m.dirty:
			pending[id] = true
			if len(pending) >= flushBatchSize {
				flush()
			}
		case <-ticker.C:
			if len(pending) > 0 {
				flush()
			}
		}
	}
}

func (m *Manager) flushOne(sessionID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	var snapshot ProxySession
	if ok {
		snapshot = *s
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	_ = m.stats.UpsertSession(stats.SessionRecord{
		SessionID:         snapshot.SessionID,
		DisplayID:         snapshot.DisplayID,
		ToolID:            string(snapshot.ToolID),
		FirstSeenAt:       snapshot.FirstSeenAt,
		LastSeenAt:        snapshot.LastSeenAt,
		RequestCount:      snapshot.RequestCount,
		Input:             snapshot.Counters.Input,
		Output:            snapshot.Counters.Output,
		CacheCreation:     snapshot.Counters.CacheCreation,
		CacheRead:         snapshot.Counters.CacheRead,
		Note:              snapshot.Note,
		ConfigMode:        string(snapshot.ConfigMode),
		ConfigProfileName: snapshot.ConfigProfileName,
	})
}

func (m *Manager) retentionLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			_ = m.stats.CleanupSessions(retentionMaxAge, retentionMaxCount)
			m.pruneLocal()
		}
	}
}

// pruneLocal drops in-memory sessions older than the retention window so
// the live map doesn't grow without bound between Stats Store sweeps.
func (m *Manager) pruneLocal() {
	cutoff := time.Now().Add(-retentionMaxAge)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.LastSeenAt.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}

// Get returns the live in-memory session, if present.
func (m *Manager) Get(sessionID string) (ProxySession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ProxySession{}, false
	}
	return *s, true
}

// SetNote updates a session's note, both in memory and (on next flush) in
// the Stats Store.
func (m *Manager) SetNote(sessionID, note string) bool {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		s.Note = note
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case m.dirty <- sessionID:
	default:
	}
	return true
}
