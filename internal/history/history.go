// Package history keeps a local ledger of completed jobs in a sqlite
// database: what was processed, how many items, with how many workers
// and how long it took. The ledger is informational; failures to
// record are never allowed to affect the pipeline.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one completed job.
type Entry struct {
	Job        string
	Items      int
	Written    int
	Skipped    int
	Workers    int
	Duration   time.Duration
	FinishedAt time.Time
}

// Store wraps the sqlite ledger.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	query := `CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job TEXT NOT NULL,
		items INTEGER NOT NULL,
		written INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		workers INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history table: %w", err)
	}

	return &Store{db: db}, nil
}

// Record appends one completed job to the ledger.
func (s *Store) Record(e Entry) error {
	query := `INSERT INTO jobs (job, items, written, skipped, workers, duration_ms, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query,
		e.Job, e.Items, e.Written, e.Skipped, e.Workers,
		e.Duration.Milliseconds(), e.FinishedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to record job history: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first.
func (s *Store) List(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT job, items, written, skipped, workers, duration_ms, finished_at
		FROM jobs ORDER BY id DESC LIMIT ?`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query job history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var durationMs, finishedAt int64
		if err := rows.Scan(&e.Job, &e.Items, &e.Written, &e.Skipped,
			&e.Workers, &durationMs, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.FinishedAt = time.Unix(finishedAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
