// Package history provides SQLite-based call logging for justcall.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// schema is the call log schema, applied idempotently on open.
const schema = `
CREATE TABLE IF NOT EXISTS calls (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    target_id    TEXT NOT NULL,
    target_label TEXT NOT NULL,
    room_id      TEXT NOT NULL,
    started_at   INTEGER NOT NULL,
    ended_at     INTEGER,
    outcome      TEXT NOT NULL DEFAULT 'unknown'
);

CREATE INDEX IF NOT EXISTS idx_calls_started_at ON calls(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_calls_target ON calls(target_id);
`

// Call is one logged call session. EndedAt is nil while the call is
// open or when the daemon died mid-call.
type Call struct {
	ID          int64
	TargetID    string
	TargetLabel string
	RoomID      string
	StartedAt   time.Time
	EndedAt     *time.Time
	Outcome     string
}

// Store is the call log.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the call log at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CallStarted records a new call session and returns its row id.
func (s *Store) CallStarted(targetID, targetLabel, roomID string, at time.Time) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO calls (target_id, target_label, room_id, started_at) VALUES (?, ?, ?, ?)`,
		targetID, targetLabel, roomID, at.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert call: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("call row id: %w", err)
	}
	return id, nil
}

// CallEnded closes out a call session with its outcome.
func (s *Store) CallEnded(id int64, at time.Time, outcome string) error {
	_, err := s.db.Exec(
		`UPDATE calls SET ended_at = ?, outcome = ? WHERE id = ?`,
		at.UnixMilli(), outcome, id,
	)
	if err != nil {
		return fmt.Errorf("close call %d: %w", id, err)
	}
	return nil
}

// Recent returns the most recent calls, newest first.
func (s *Store) Recent(limit int) ([]Call, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, target_id, target_label, room_id, started_at, ended_at, outcome
		 FROM calls ORDER BY started_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var calls []Call
	for rows.Next() {
		var (
			c       Call
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.TargetID, &c.TargetLabel, &c.RoomID, &started, &ended, &c.Outcome); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		c.StartedAt = time.UnixMilli(started).UTC()
		if ended.Valid {
			t := time.UnixMilli(ended.Int64).UTC()
			c.EndedAt = &t
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// Prune deletes calls older than the cutoff and returns how many went.
func (s *Store) Prune(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM calls WHERE started_at < ?`, olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune calls: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune count: %w", err)
	}
	return n, nil
}
