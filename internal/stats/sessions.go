package stats

import (
	"fmt"
	"time"
)

// SessionRecord is the sessions-table row Session Manager upserts.
type SessionRecord struct {
	SessionID         string
	DisplayID         string
	ToolID            string
	FirstSeenAt       time.Time
	LastSeenAt        time.Time
	RequestCount      int64
	Input             int64
	Output            int64
	CacheCreation     int64
	CacheRead         int64
	Note              string
	ConfigMode        string
	ConfigProfileName string
}

// UpsertSession inserts or replaces one session row, called by Session
// Manager's buffered flush.
func (s *Store) UpsertSession(r SessionRecord) error {
	_, err := s.db.Exec(`INSERT INTO sessions
		(session_id, display_id, tool_id, first_seen_at, last_seen_at, request_count,
		 input_tokens, output_tokens, cache_creation, cache_read, note, config_mode, config_profile_name)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(session_id) DO UPDATE SET
			last_seen_at=excluded.last_seen_at,
			request_count=excluded.request_count,
			input_tokens=excluded.input_tokens,
			output_tokens=excluded.output_tokens,
			cache_creation=excluded.cache_creation,
			cache_read=excluded.cache_read,
			note=excluded.note,
			config_mode=excluded.config_mode,
			config_profile_name=excluded.config_profile_name`,
		r.SessionID, r.DisplayID, r.ToolID, r.FirstSeenAt.Unix(), r.LastSeenAt.Unix(), r.RequestCount,
		r.Input, r.Output, r.CacheCreation, r.CacheRead, r.Note, r.ConfigMode, r.ConfigProfileName,
	)
	if err != nil {
		return fmt.Errorf("stats: upserting session: %w", err)
	}
	return nil
}

// ListSessions returns every session for tool (or all tools if empty),
// most recently seen first.
func (s *Store) ListSessions(toolID string) ([]SessionRecord, error) {
	query := `SELECT session_id, display_id, tool_id, first_seen_at, last_seen_at, request_count,
		input_tokens, output_tokens, cache_creation, cache_read, note, config_mode, config_profile_name
		FROM sessions`
	var args []any
	if toolID != "" {
		query += " WHERE tool_id = ?"
		args = append(args, toolID)
	}
	query += " ORDER BY last_seen_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("stats: listing sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var first, last int64
		if err := rows.Scan(&r.SessionID, &r.DisplayID, &r.ToolID, &first, &last, &r.RequestCount,
			&r.Input, &r.Output, &r.CacheCreation, &r.CacheRead, &r.Note, &r.ConfigMode, &r.ConfigProfileName); err != nil {
			return nil, fmt.Errorf("stats: scanning session row: %w", err)
		}
		r.FirstSeenAt = time.Unix(first, 0).UTC()
		r.LastSeenAt = time.Unix(last, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateSessionNote sets a session's note field.
func (s *Store) UpdateSessionNote(sessionID, note string) error {
	_, err := s.db.Exec(`UPDATE sessions SET note = ? WHERE session_id = ?`, note, sessionID)
	return err
}

// UpdateSessionConfig rebinds a session to a different config mode/profile.
func (s *Store) UpdateSessionConfig(sessionID, configMode, configProfileName string) error {
	_, err := s.db.Exec(`UPDATE sessions SET config_mode = ?, config_profile_name = ? WHERE session_id = ?`,
		configMode, configProfileName, sessionID)
	return err
}

// DeleteSession removes one session row.
func (s *Store) DeleteSession(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = ?`, sessionID)
	return err
}

// ClearAllSessions removes every session row.
func (s *Store) ClearAllSessions() error {
	_, err := s.db.Exec(`DELETE FROM sessions`)
	return err
}

// CleanupSessions deletes sessions whose last_seen_at is older than
// maxAge, then trims to the most recent maxCount. The Session Manager's
// retention loop runs it hourly.
func (s *Store) CleanupSessions(maxAge time.Duration, maxCount int) error {
	cutoff := time.Now().Add(-maxAge).Unix()
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE last_seen_at < ?`, cutoff); err != nil {
		return fmt.Errorf("stats: cleaning up sessions by age: %w", err)
	}
	_, err := s.db.Exec(`DELETE FROM sessions WHERE session_id NOT IN (
		SELECT session_id FROM sessions ORDER BY last_seen_at DESC LIMIT ?
	)`, maxCount)
	if err != nil {
		return fmt.Errorf("stats: trimming sessions: %w", err)
	}
	return nil
}
