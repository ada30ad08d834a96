// Package storage persists the catalogue and the progress ledger and wraps
// the Azure and Redis services the API and worker depend on.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dmachibya/faithexercises-api/domain"
)

const currentVersion = 2

// timestampLayout has a fixed fraction width so stored timestamps sort
// lexicographically.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Store is the relational store backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}
	if version < 2 {
		if err := s.migrateV2(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS exercises (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		sort_order  INTEGER,
		created_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		exercise_id   INTEGER NOT NULL REFERENCES exercises(id) ON DELETE CASCADE,
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		schedule      TEXT NOT NULL CHECK (schedule IN ('single', 'daily', 'weekly')),
		duration_days INTEGER,
		start_date    TEXT,
		is_active     INTEGER NOT NULL DEFAULT 0,
		sort_order    INTEGER,
		created_at    TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_exercise ON tasks(exercise_id, is_active);

	CREATE TABLE IF NOT EXISTS task_progresses (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    TEXT NOT NULL,
		task_id    INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		period     TEXT NOT NULL,
		period_key TEXT NOT NULL,
		done_at    TEXT NOT NULL,
		UNIQUE(user_id, task_id, period, period_key)
	);

	CREATE INDEX IF NOT EXISTS idx_progress_task    ON task_progresses(task_id);
	CREATE INDEX IF NOT EXISTS idx_progress_done_at ON task_progresses(done_at);

	CREATE TABLE IF NOT EXISTS reflections (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		title          TEXT NOT NULL,
		type           TEXT NOT NULL CHECK (type IN ('text', 'audio', 'quote', 'verse')),
		content        TEXT NOT NULL DEFAULT '',
		media_url      TEXT NOT NULL DEFAULT '',
		author         TEXT NOT NULL DEFAULT '',
		reference      TEXT NOT NULL DEFAULT '',
		scheduled_date TEXT NOT NULL UNIQUE,
		created_at     TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS custom_notifications (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		content     TEXT NOT NULL,
		image_url   TEXT NOT NULL DEFAULT '',
		sent_at     TEXT,
		created_at  TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

func (s *Store) migrateV2() error {
	const ddl = `
	ALTER TABLE tasks ADD COLUMN announced_at TEXT;

	CREATE TABLE IF NOT EXISTS journal_entries (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    TEXT NOT NULL,
		task_id    INTEGER REFERENCES tasks(id) ON DELETE SET NULL,
		entry_date TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_journal_user_date ON journal_entries(user_id, entry_date);
	CREATE INDEX IF NOT EXISTS idx_journal_task      ON journal_entries(task_id);

	CREATE TABLE IF NOT EXISTS identities (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    TEXT NOT NULL,
		statement  TEXT NOT NULL,
		category   TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_identities_user ON identities(user_id);
	`
	_, err := s.db.Exec(ddl)
	return err
}

func nullID(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func idPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullDate(d *domain.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func datePtr(v sql.NullString) *domain.Date {
	if !v.Valid {
		return nil
	}
	d, err := domain.ParseDate(v.String, time.UTC)
	if err != nil {
		return nil
	}
	return &d
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// translate maps driver errors to domain errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
		}
	}
	return err
}
