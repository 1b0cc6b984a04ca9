package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the "sqlite" driver.

	"github.com/oshokin/camera-funnel/internal/domain/trigger"
)

const (
	// DefaultRecentLimit caps Recent when the caller passes a non-positive limit.
	DefaultRecentLimit = 50
	// MaxRecentLimit is the largest page Recent returns.
	MaxRecentLimit = 500
)

// Entry is one stored forwarded event.
type Entry struct {
	ID          int64     `json:"id"`
	Channel     string    `json:"channel"`
	TriggerType string    `json:"trigger_type"`
	Camera      string    `json:"camera"`
	State       bool      `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
}

// Journal is a sqlite-backed event sink.
type Journal struct {
	db *sql.DB
}

// ErrClosed is returned when the journal is used after Close.
var ErrClosed = errors.New("journal is closed")

// Open opens (or creates) the journal database at path and applies migrations.
func Open(ctx context.Context, path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	// One writer keeps sqlite from returning SQLITE_BUSY under concurrent lanes.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	j := &Journal{db: db}
	if err := j.migrate(ctx); err != nil {
		_ = db.Close()

		return nil, err
	}

	return j, nil
}

// Close releases the database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}

	return j.db.Close()
}

func (j *Journal) migrate(ctx context.Context) error {
	statements := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			channel TEXT NOT NULL,
			trigger_type TEXT NOT NULL,
			camera TEXT NOT NULL,
			state INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_camera ON events(camera);`,
	}

	for _, stmt := range statements {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate journal: %w", err)
		}
	}

	return nil
}

// Handle stores a forwarded event.
func (j *Journal) Handle(ctx context.Context, event trigger.Event) error {
	if j == nil || j.db == nil {
		return ErrClosed
	}

	state := 0
	if event.State {
		state = 1
	}

	_, err := j.db.ExecContext(
		ctx,
		`INSERT INTO events (channel, trigger_type, camera, state, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(event.Channel),
		string(event.Type),
		event.Camera,
		state,
		event.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	return nil
}

// Recent returns up to limit most recent events, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, ErrClosed
	}

	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	limit = min(limit, MaxRecentLimit)

	rows, err := j.db.QueryContext(
		ctx,
		`SELECT id, channel, trigger_type, camera, state, created_at FROM events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	entries := make([]Entry, 0)

	for rows.Next() {
		var (
			entry     Entry
			state     int
			createdAt string
		)

		if err := rows.Scan(&entry.ID, &entry.Channel, &entry.TriggerType, &entry.Camera, &state, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		entry.State = state != 0

		entry.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse event time: %w", err)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return entries, nil
}
