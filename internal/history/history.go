// Package history keeps a local sqlite log of role changes so the front-end
// can show what the device did while nobody was looking.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/strct-org/minicp/internal/errs"
	"github.com/strct-org/minicp/internal/events"
)

type Repository struct {
	db *sql.DB
}

// Open creates the database file and schema if needed. Use ":memory:" in tests.
func Open(ctx context.Context, path string) (*Repository, error) {
	const op errs.Op = "history.Open"

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, errs.E(op, errs.KindIO, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.E(op, errs.KindIO, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	r := &Repository{db: db}
	if err := r.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, errs.E(op, errs.KindIO, err)
	}
	return r, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) migrate(ctx context.Context) error {
	statements := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			at TEXT NOT NULL,
			component TEXT NOT NULL,
			subject TEXT NOT NULL,
			action TEXT NOT NULL,
			ok INTEGER NOT NULL,
			detail TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_at ON events(at);`,
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
	}
	return nil
}

// Handle makes the repository an events.Sink.
func (r *Repository) Handle(ctx context.Context, e events.Event) error {
	return r.Record(ctx, e)
}

func (r *Repository) Record(ctx context.Context, e events.Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO events (id, at, component, subject, action, ok, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.At.UTC().Format(time.RFC3339Nano), e.Component, e.Subject, e.Action, boolToInt(e.OK), e.Detail,
	)
	if err != nil {
		return errs.E(errs.Op("history.Record"), errs.KindIO, err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]events.Event, error) {
	const op errs.Op = "history.Recent"
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, at, component, subject, action, ok, detail FROM events ORDER BY at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errs.E(op, errs.KindIO, err)
	}
	defer rows.Close()

	out := make([]events.Event, 0, limit)
	for rows.Next() {
		var (
			e  events.Event
			at string
			ok int
		)
		if err := rows.Scan(&e.ID, &at, &e.Component, &e.Subject, &e.Action, &ok, &e.Detail); err != nil {
			return nil, errs.E(op, errs.KindIO, err)
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		e.OK = ok != 0
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.E(op, errs.KindIO, err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
