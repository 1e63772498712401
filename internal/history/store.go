// Package history persists completed merge runs in a local SQLite
// database so `bindery history` can show what was merged, when, and how
// it went. A file lock serializes writers across processes; several
// CLIs recording at once is a normal situation when merges are
// scripted.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// Status values recorded for a run.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Record is one merge run.
type Record struct {
	ID              int64
	SessionID       string
	OutputPath      string
	Status          string
	InputCount      int
	InputBytes      int64
	OutputBytes     int64
	DurationSeconds float64
	ElapsedSeconds  float64
	ErrorMessage    string
	CreatedAt       time.Time
}

// Store manages history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	path string
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history: database path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:   db,
		lock: flock.New(path + ".lock"),
		path: path,
	}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS merge_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    output_path TEXT NOT NULL,
    status TEXT NOT NULL,
    input_count INTEGER NOT NULL DEFAULT 0,
    input_bytes INTEGER NOT NULL DEFAULT 0,
    output_bytes INTEGER NOT NULL DEFAULT 0,
    duration_seconds REAL NOT NULL DEFAULT 0,
    elapsed_seconds REAL NOT NULL DEFAULT 0,
    error_message TEXT,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_merge_runs_created_at ON merge_runs (created_at);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply history schema: %w", err)
	}
	return nil
}

// Add inserts a run record and returns it with its assigned ID.
func (s *Store) Add(ctx context.Context, record Record) (Record, error) {
	if err := s.lock.Lock(); err != nil {
		return Record{}, fmt.Errorf("acquire history lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO merge_runs (
            session_id, output_path, status, input_count, input_bytes,
            output_bytes, duration_seconds, elapsed_seconds, error_message, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.SessionID,
		record.OutputPath,
		record.Status,
		record.InputCount,
		record.InputBytes,
		record.OutputBytes,
		record.DurationSeconds,
		record.ElapsedSeconds,
		nullableString(record.ErrorMessage),
		record.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert merge run: %w", err)
	}
	record.ID, err = res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("last insert id: %w", err)
	}
	return record, nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, output_path, status, input_count, input_bytes,
                output_bytes, duration_seconds, elapsed_seconds, error_message, created_at
         FROM merge_runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query merge runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		record    Record
		errMsg    sql.NullString
		createdAt string
	)
	if err := rows.Scan(
		&record.ID,
		&record.SessionID,
		&record.OutputPath,
		&record.Status,
		&record.InputCount,
		&record.InputBytes,
		&record.OutputBytes,
		&record.DurationSeconds,
		&record.ElapsedSeconds,
		&errMsg,
		&createdAt,
	); err != nil {
		return Record{}, fmt.Errorf("scan merge run: %w", err)
	}
	record.ErrorMessage = errMsg.String
	if parsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		record.CreatedAt = parsed
	}
	return record, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
