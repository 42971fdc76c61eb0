// Package stats implements the Stats Store: a SQLite-backed append-only
// token_logs table and a sessions table, behind a single writer goroutine
// draining a bounded channel so producers (Proxy Instance request tasks)
// never block on disk I/O.
//
// Directly grounded on the teacher's internal/audit.sqliteIndex: same
// driver (glebarez/go-sqlite, pure Go, no cgo), same
// "_journal_mode=WAL&_busy_timeout=5000" DSN, same CREATE TABLE IF NOT
// EXISTS + secondary indexes + dynamic WHERE-clause query builder shape.
// The hash-chain/genesis/tamper-evidence machinery around that index is
// not carried forward — nothing in the spec's data model calls for
// tamper-evident logs, only indexed range/group queries.
package stats

import (
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/duckcoding/duckcoding/internal/extractor"
)

const writeBufferCapacity = 1024

// Store is the Stats Store: one SQLite database, one writer goroutine.
type Store struct {
	db *sql.DB

	writeCh chan extractor.TokenLog
	dropped uint64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Open opens (creating if needed) the SQLite database at path and starts
// the writer goroutine.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("stats: opening %s: %w", path, err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:      db,
		writeCh: make(chan extractor.TokenLog, writeBufferCapacity),
		stopCh:  make(chan struct{}),
	}
	s.wg.Add(1)
	go s.writerLoop()
	return s, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS token_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			tool_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			message_id TEXT,
			model TEXT,
			config_name TEXT,
			client_ip TEXT,
			request_status TEXT NOT NULL,
			error_type TEXT,
			error_detail TEXT,
			response_type TEXT,
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			cache_creation INTEGER NOT NULL DEFAULT 0,
			cache_read INTEGER NOT NULL DEFAULT 0,
			cost_input REAL NOT NULL DEFAULT 0,
			cost_output REAL NOT NULL DEFAULT 0,
			cost_cache_write REAL NOT NULL DEFAULT 0,
			cost_cache_read REAL NOT NULL DEFAULT 0,
			cost_total REAL NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_token_logs_tool_ts ON token_logs(tool_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_token_logs_session_ts ON token_logs(session_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			display_id TEXT NOT NULL,
			tool_id TEXT NOT NULL,
			first_seen_at INTEGER NOT NULL,
			last_seen_at INTEGER NOT NULL,
			request_count INTEGER NOT NULL DEFAULT 0,
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			cache_creation INTEGER NOT NULL DEFAULT 0,
			cache_read INTEGER NOT NULL DEFAULT 0,
			note TEXT,
			config_mode TEXT,
			config_profile_name TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_last_seen ON sessions(last_seen_at)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("stats: migrating: %w", err)
		}
	}
	return nil
}

// Close stops the writer goroutine and closes the database.
func (s *Store) Close() error {
	close(s.stopCh)
	s.wg.Wait()
	return s.db.Close()
}

// AppendLog enqueues log for the writer goroutine. Never blocks: if the
// buffer is full, the oldest unsent log is dropped and DroppedCount is
// incremented.
func (s *Store) AppendLog(log extractor.TokenLog) {
	select {
	case s.writeCh <- log:
		return
	default:
	}
	select {
	case <-s.writeCh:
	default:
	}
	select {
	case s.writeCh <- log:
	default:
	}
	atomic.AddUint64(&s.dropped, 1)
}

// DroppedCount returns how many logs have been dropped due to a full
// write buffer since the store opened.
func (s *Store) DroppedCount() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

func (s *Store) writerLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			s.drain()
			return
		case log := <-s.writeCh:
			s.insertLog(log)
		}
	}
}

func (s *Store) drain() {
	for {
		select {
		case log := <-s.writeCh:
			s.insertLog(log)
		default:
			return
		}
	}
}

func (s *Store) insertLog(log extractor.TokenLog) {
	_, _ = s.db.Exec(`INSERT INTO token_logs
		(timestamp, tool_id, session_id, message_id, model, config_name, client_ip,
		 request_status, error_type, error_detail, response_type,
		 input_tokens, output_tokens, cache_creation, cache_read,
		 cost_input, cost_output, cost_cache_write, cost_cache_read, cost_total)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		log.Timestamp.Unix(), log.ToolID, log.SessionID, log.MessageID, log.Model, log.ConfigName, log.ClientIP,
		log.RequestStatus, log.ErrorType, log.ErrorDetail, log.ResponseType,
		log.Input, log.Output, log.CacheCreation, log.CacheRead,
		log.Cost.Input, log.Cost.Output, log.Cost.CacheWrite, log.Cost.CacheRead, log.Cost.Total,
	)
}

// Cleanup deletes token_logs rows older than retentionDays, then trims to
// the most recent maxRows. Intended to be run hourly by the caller.
func (s *Store) Cleanup(retentionDays int, maxRows int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays).Unix()
	if _, err := s.db.Exec(`DELETE FROM token_logs WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("stats: cleanup age: %w", err)
	}
	_, err := s.db.Exec(`DELETE FROM token_logs WHERE id NOT IN (
		SELECT id FROM token_logs ORDER BY timestamp DESC LIMIT ?
	)`, maxRows)
	if err != nil {
		return fmt.Errorf("stats: cleanup trim: %w", err)
	}
	return nil
}
