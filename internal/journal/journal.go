// Package journal records which imported iCalendar occurrences have already
// been created upstream, so re-running an import does not duplicate them.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaName = "calgateway"

// Entry links an imported occurrence to the upstream event created for it.
type Entry struct {
	Key        string
	EventID    string
	Source     string
	ImportedAt time.Time
}

// Journal is a sqlite-backed store of Entries. It is safe for concurrent use.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the journal database at path and brings
// its schema up to date. Use ":memory:" for a throwaway journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, now: time.Now}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) migrate() error {
	if _, err := j.db.Exec(`CREATE TABLE IF NOT EXISTS db_version (
		name TEXT PRIMARY KEY,
		version INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create db_version table: %w", err)
	}

	var version int
	err := j.db.QueryRow(`SELECT version FROM db_version WHERE name = ?`, schemaName).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := j.db.Exec(`INSERT INTO db_version (name, version) VALUES (?, 0)`, schemaName); err != nil {
			return fmt.Errorf("failed to initialize db_version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version < 1 {
		if _, err := j.db.Exec(`CREATE TABLE IF NOT EXISTS imported_events (
			occurrence_key TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			imported_at TIMESTAMP NOT NULL
		)`); err != nil {
			return fmt.Errorf("failed to create imported_events table: %w", err)
		}
		if _, err := j.db.Exec(`UPDATE db_version SET version = 1 WHERE name = ?`, schemaName); err != nil {
			return fmt.Errorf("failed to update db_version: %w", err)
		}
	}
	return nil
}

// Lookup returns the entry for key, or ok=false if key was never recorded.
func (j *Journal) Lookup(ctx context.Context, key string) (Entry, bool, error) {
	e := Entry{Key: key}
	err := j.db.QueryRowContext(ctx,
		`SELECT event_id, source, imported_at FROM imported_events WHERE occurrence_key = ?`, key,
	).Scan(&e.EventID, &e.Source, &e.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to look up %q: %w", key, err)
	}
	return e, true, nil
}

// Record stores that key was created upstream as eventID, replacing any
// previous entry for key.
func (j *Journal) Record(ctx context.Context, key, eventID, source string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO imported_events (occurrence_key, event_id, source, imported_at) VALUES (?, ?, ?, ?)`,
		key, eventID, source, j.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record %q: %w", key, err)
	}
	return nil
}

// List returns every entry recorded for source, oldest first. An empty
// source lists all entries.
func (j *Journal) List(ctx context.Context, source string) ([]Entry, error) {
	query := `SELECT occurrence_key, event_id, source, imported_at FROM imported_events`
	var args []any
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY imported_at, occurrence_key`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.EventID, &e.Source, &e.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
