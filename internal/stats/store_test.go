package stats

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/duckcoding/duckcoding/internal/extractor"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleLog(sessionID string) extractor.TokenLog {
	return extractor.TokenLog{
		Timestamp:     time.Now().UTC(),
		ToolID:        "claude-code",
		SessionID:     sessionID,
		Model:         "claude-opus-4",
		ConfigName:    "work",
		RequestStatus: extractor.StatusSuccess,
		Input:         100,
		Output:        50,
	}
}

// waitForLogs polls QueryLogs until at least one row appears or the
// deadline passes, since AppendLog hands off to the writer goroutine
// asynchronously.
func waitForLogs(t *testing.T, s *Store, filters LogFilters) []extractor.TokenLog {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		logs, err := s.QueryLogs(filters, 1, 50)
		if err != nil {
			t.Fatal(err)
		}
		if len(logs) > 0 {
			return logs
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for appended log to land")
	return nil
}

func TestAppendLog_ThenQueryLogs(t *testing.T) {
	s := newTestStore(t)
	s.AppendLog(sampleLog("sess-1"))

	logs := waitForLogs(t, s, LogFilters{Session: "sess-1"})
	if logs[0].SessionID != "sess-1" || logs[0].Model != "claude-opus-4" {
		t.Errorf("got %+v", logs[0])
	}
}

func TestQueryLogs_FiltersByTool(t *testing.T) {
	s := newTestStore(t)
	a := sampleLog("sess-a")
	b := sampleLog("sess-b")
	b.ToolID = "codex"
	s.AppendLog(a)
	s.AppendLog(b)

	waitForLogs(t, s, LogFilters{Session: "sess-a"})
	waitForLogs(t, s, LogFilters{Session: "sess-b"})

	logs, err := s.QueryLogs(LogFilters{Tool: "codex"}, 1, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].SessionID != "sess-b" {
		t.Errorf("got %+v", logs)
	}
}

func TestQueryLogs_FiltersByStatus(t *testing.T) {
	s := newTestStore(t)
	ok := sampleLog("sess-ok")
	fail := sampleLog("sess-fail")
	fail.RequestStatus = extractor.StatusFailed
	s.AppendLog(ok)
	s.AppendLog(fail)

	waitForLogs(t, s, LogFilters{Session: "sess-ok"})
	waitForLogs(t, s, LogFilters{Session: "sess-fail"})

	logs, err := s.QueryLogs(LogFilters{Status: "failed"}, 1, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].SessionID != "sess-fail" {
		t.Errorf("got %+v", logs)
	}
}

func TestAggregate_BucketsByGranularity(t *testing.T) {
	s := newTestStore(t)
	s.AppendLog(sampleLog("sess-agg"))
	waitForLogs(t, s, LogFilters{Session: "sess-agg"})

	buckets, err := s.Aggregate(LogFilters{}, Gran1h)
	if err != nil {
		t.Fatal(err)
	}
	if len(buckets) == 0 {
		t.Fatal("expected at least one bucket")
	}
	if buckets[0].Input != 100 || buckets[0].Output != 50 {
		t.Errorf("got %+v", buckets[0])
	}
}

func TestUpsertSession_InsertThenUpdate(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	rec := SessionRecord{
		SessionID: "sess-1", DisplayID: "disp-1", ToolID: "claude-code",
		FirstSeenAt: now, LastSeenAt: now, RequestCount: 1, Input: 10,
	}
	if err := s.UpsertSession(rec); err != nil {
		t.Fatal(err)
	}

	rec.RequestCount = 2
	rec.Input = 20
	rec.LastSeenAt = now.Add(time.Minute)
	if err := s.UpsertSession(rec); err != nil {
		t.Fatal(err)
	}

	sessions, err := s.ListSessions("claude-code")
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1 (upsert should replace, not duplicate)", len(sessions))
	}
	if sessions[0].RequestCount != 2 || sessions[0].Input != 20 {
		t.Errorf("got %+v", sessions[0])
	}
}

func TestListSessions_FiltersByTool(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	s.UpsertSession(SessionRecord{SessionID: "a", ToolID: "claude-code", FirstSeenAt: now, LastSeenAt: now})
	s.UpsertSession(SessionRecord{SessionID: "b", ToolID: "codex", FirstSeenAt: now, LastSeenAt: now})

	got, err := s.ListSessions("codex")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].SessionID != "b" {
		t.Errorf("got %+v", got)
	}
}

func TestUpdateSessionNote(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	s.UpsertSession(SessionRecord{SessionID: "a", ToolID: "claude-code", FirstSeenAt: now, LastSeenAt: now})

	if err := s.UpdateSessionNote("a", "flaky key"); err != nil {
		t.Fatal(err)
	}
	sessions, _ := s.ListSessions("claude-code")
	if sessions[0].Note != "flaky key" {
		t.Errorf("got %+v", sessions[0])
	}
}

func TestDeleteSession_RemovesRow(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	s.UpsertSession(SessionRecord{SessionID: "a", ToolID: "claude-code", FirstSeenAt: now, LastSeenAt: now})

	if err := s.DeleteSession("a"); err != nil {
		t.Fatal(err)
	}
	sessions, _ := s.ListSessions("claude-code")
	if len(sessions) != 0 {
		t.Errorf("got %+v, want empty", sessions)
	}
}

func TestClearAllSessions(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	s.UpsertSession(SessionRecord{SessionID: "a", ToolID: "claude-code", FirstSeenAt: now, LastSeenAt: now})
	s.UpsertSession(SessionRecord{SessionID: "b", ToolID: "codex", FirstSeenAt: now, LastSeenAt: now})

	if err := s.ClearAllSessions(); err != nil {
		t.Fatal(err)
	}
	sessions, _ := s.ListSessions("")
	if len(sessions) != 0 {
		t.Errorf("got %+v, want empty", sessions)
	}
}

func TestDroppedCount_StartsAtZero(t *testing.T) {
	s := newTestStore(t)
	if s.DroppedCount() != 0 {
		t.Errorf("got %d, want 0", s.DroppedCount())
	}
}
