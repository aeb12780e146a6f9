// Package sqlite persists resolved hotspot names across runs in a local SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// registers the "sqlite" driver
	_ "modernc.org/sqlite"
)

// timeFormat is fixed-width so fetched_at values sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is a cached hotspot name.
type Entry struct {
	LocationID string
	Name       string
	FetchedAt  time.Time
}

// Store wraps the SQLite database holding the hotspot_names table.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and initializes the schema.
// Missing parent directories are created.
func Open(ctx context.Context, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open name cache: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect name cache: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.configure(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) configure(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS hotspot_names (
		location_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		fetched_at TEXT NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create hotspot_names table: %w", err)
	}
	return nil
}

// Get returns the cached entry for locationID. ok is false when there is none.
func (s *Store) Get(ctx context.Context, locationID string) (Entry, bool, error) {
	var (
		e         = Entry{LocationID: locationID}
		fetchedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT name, fetched_at FROM hotspot_names WHERE location_id = ?", locationID,
	).Scan(&e.Name, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("query hotspot name %s: %w", locationID, err)
	}

	e.FetchedAt, err = time.Parse(timeFormat, fetchedAt)
	if err != nil {
		return Entry{}, false, fmt.Errorf("hotspot name %s: fetched_at %q: %w", locationID, fetchedAt, err)
	}
	return e, true, nil
}

// Put inserts or replaces an entry.
func (s *Store) Put(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO hotspot_names (location_id, name, fetched_at) VALUES (?, ?, ?)
	ON CONFLICT(location_id) DO UPDATE SET name = excluded.name, fetched_at = excluded.fetched_at`,
		e.LocationID, e.Name, e.FetchedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("store hotspot name %s: %w", e.LocationID, err)
	}
	return nil
}

// List returns every cached entry ordered by location ID.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT location_id, name, fetched_at FROM hotspot_names ORDER BY location_id")
	if err != nil {
		return nil, fmt.Errorf("list hotspot names: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			fetchedAt string
		)
		if err := rows.Scan(&e.LocationID, &e.Name, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scan hotspot name: %w", err)
		}
		if e.FetchedAt, err = time.Parse(timeFormat, fetchedAt); err != nil {
			return nil, fmt.Errorf("hotspot name %s: fetched_at %q: %w", e.LocationID, fetchedAt, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune removes entries fetched before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM hotspot_names WHERE fetched_at < ?",
		cutoff.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("prune hotspot names: %w", err)
	}
	return res.RowsAffected()
}
