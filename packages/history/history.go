// Package history records generated reports in a local SQLite database so
// earlier runs can be listed and compared.
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

	"github.com/abdul-hamid-achik/trialxml/packages/core/trial"
	"github.com/google/uuid"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id         TEXT PRIMARY KEY,
	trial      TEXT NOT NULL,
	tests      INTEGER NOT NULL,
	failures   INTEGER NOT NULL,
	format     TEXT NOT NULL,
	path       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_created ON reports (created_at);
`

// Entry is one recorded report
type Entry struct {
	ID        string
	Trial     string
	Tests     int
	Failures  int
	Format    string
	Path      string
	CreatedAt time.Time
}

// Passed reports whether the recorded trial had no failures
func (e Entry) Passed() bool {
	return e.Failures == 0
}

// Store is a report history database
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the history database named by a
// connection string of the form sqlite://path or sqlite:path.
func Open(ctx context.Context, connectionString string) (*Store, error) {
	path, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create history directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores a report generated for t
func (s *Store) Record(ctx context.Context, t trial.Trial, format, path string) (Entry, error) {
	e := Entry{
		ID:        uuid.NewString(),
		Trial:     t.Name(),
		Tests:     t.TestCount(),
		Failures:  t.FailureCount(),
		Format:    format,
		Path:      path,
		CreatedAt: s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (id, trial, tests, failures, format, path, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Trial, e.Tests, e.Failures, e.Format, e.Path, e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("recording report: %w", err)
	}
	return e, nil
}

// List returns the most recent entries first. limit <= 0 returns everything.
// A non-empty name restricts the result to that trial.
func (s *Store) List(ctx context.Context, name string, limit int) ([]Entry, error) {
	query := `SELECT id, trial, tests, failures, format, path, created_at FROM reports`
	var args []any
	if name != "" {
		query += ` WHERE trial = ?`
		args = append(args, name)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Trial, &e.Tests, &e.Failures, &e.Format, &e.Path, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// Last returns the most recent entry for a trial, or nil when none exists
func (s *Store) Last(ctx context.Context, name string) (*Entry, error) {
	entries, err := s.List(ctx, name, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// parseConnectionString extracts the database path.
// Supported formats:
// - sqlite://path/to/history.db
// - sqlite:./history.db
func parseConnectionString(connStr string) (string, error) {
	connStr = strings.TrimSpace(connStr)

	var path string
	switch {
	case strings.HasPrefix(connStr, "sqlite://"):
		path = strings.TrimPrefix(connStr, "sqlite://")
	case strings.HasPrefix(connStr, "sqlite:"):
		path = strings.TrimPrefix(connStr, "sqlite:")
	default:
		return "", fmt.Errorf("unsupported history database %q (use sqlite://path)", connStr)
	}

	if path == "" {
		return "", errors.New("history database path is empty")
	}
	return path, nil
}
