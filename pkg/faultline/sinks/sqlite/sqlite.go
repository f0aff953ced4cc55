// Package sqlite provides a sink that persists error records to a SQLite
// database. Records upsert by fingerprint, so the table mirrors the
// tracker's aggregate state and survives restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/solsnap/faultline/pkg/faultline"
)

// Sink persists error records to SQLite.
type Sink struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewSink opens (or creates) the database at path and prepares the schema.
func NewSink(path string) (*Sink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create sink directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Sink{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// migrate creates or updates the database schema.
func (s *Sink) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS errors (
			fingerprint     TEXT PRIMARY KEY,
			id              TEXT NOT NULL,
			severity        TEXT NOT NULL,
			category        TEXT NOT NULL,
			message         TEXT NOT NULL,
			exception_type  TEXT NOT NULL,
			stack_trace     TEXT NOT NULL DEFAULT '',
			count           INTEGER NOT NULL DEFAULT 1,
			first_seen      TIMESTAMP NOT NULL,
			last_seen       TIMESTAMP NOT NULL,
			resolved        BOOLEAN NOT NULL DEFAULT FALSE,
			resolution_note TEXT NOT NULL DEFAULT '',
			resolved_at     TIMESTAMP,
			context_json    TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_errors_severity ON errors(severity);
		CREATE INDEX IF NOT EXISTS idx_errors_category ON errors(category);
		CREATE INDEX IF NOT EXISTS idx_errors_last_seen ON errors(last_seen);
		CREATE INDEX IF NOT EXISTS idx_errors_resolved ON errors(resolved);
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Write upserts the record snapshot by fingerprint. The tracker writes the
// full aggregate state on every occurrence, so the newest snapshot wins.
func (s *Sink) Write(ctx context.Context, rec faultline.ErrorRecord) error {
	contextJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("serialize context: %w", err)
	}

	var resolvedAt any
	if rec.ResolvedAt != nil {
		resolvedAt = *rec.ResolvedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO errors (
			fingerprint, id, severity, category, message, exception_type,
			stack_trace, count, first_seen, last_seen,
			resolved, resolution_note, resolved_at, context_json
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			id              = excluded.id,
			severity        = excluded.severity,
			category        = excluded.category,
			message         = excluded.message,
			exception_type  = excluded.exception_type,
			count           = excluded.count,
			last_seen       = excluded.last_seen,
			resolved        = excluded.resolved,
			resolution_note = excluded.resolution_note,
			resolved_at     = excluded.resolved_at,
			context_json    = excluded.context_json
	`,
		rec.Fingerprint,
		rec.ID,
		string(rec.Severity),
		string(rec.Category),
		rec.Message,
		rec.ErrorType,
		rec.StackTrace,
		rec.Count,
		rec.FirstSeen,
		rec.LastSeen,
		rec.Resolved,
		rec.ResolutionNote,
		resolvedAt,
		string(contextJSON),
	)
	if err != nil {
		return fmt.Errorf("store record: %w", err)
	}
	return nil
}

// Flush is a no-op; writes are synchronous.
func (s *Sink) Flush(ctx context.Context) error {
	return nil
}

// Close closes the database connection.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Recent returns stored records ordered by most recent occurrence.
// A non-positive limit returns up to 100 records.
func (s *Sink) Recent(ctx context.Context, limit int) ([]faultline.ErrorRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT fingerprint, id, severity, category, message, exception_type,
			stack_trace, count, first_seen, last_seen,
			resolved, resolution_note, resolved_at, context_json
		FROM errors
		ORDER BY last_seen DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []faultline.ErrorRecord
	for rows.Next() {
		var (
			rec         faultline.ErrorRecord
			severity    string
			category    string
			resolvedAt  sql.NullTime
			contextJSON string
		)
		err := rows.Scan(
			&rec.Fingerprint,
			&rec.ID,
			&severity,
			&category,
			&rec.Message,
			&rec.ErrorType,
			&rec.StackTrace,
			&rec.Count,
			&rec.FirstSeen,
			&rec.LastSeen,
			&rec.Resolved,
			&rec.ResolutionNote,
			&resolvedAt,
			&contextJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		rec.Severity = faultline.Severity(severity)
		rec.Category = faultline.Category(category)
		if resolvedAt.Valid {
			at := resolvedAt.Time
			rec.ResolvedAt = &at
		}
		if contextJSON != "" {
			// A context that fails to parse leaves the field empty.
			_ = json.Unmarshal([]byte(contextJSON), &rec.Context)
		}

		records = append(records, rec)
	}
	return records, rows.Err()
}

// Unresolved returns the number of stored records not yet resolved.
func (s *Sink) Unresolved(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM errors WHERE resolved = FALSE",
	).Scan(&n)
	return n, err
}

// Prune deletes resolved records whose last occurrence predates the
// retention window. Returns the number of deleted records.
func (s *Sink) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-retention)
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM errors WHERE resolved = TRUE AND last_seen < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("prune records: %w", err)
	}
	return result.RowsAffected()
}

// Path returns the database file path.
func (s *Sink) Path() string {
	return s.path
}
