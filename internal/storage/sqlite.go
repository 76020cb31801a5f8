// Package storage persists the scraper's fetch cache and dedup state in
// SQLite, so interrupted scrape runs resume without re-fetching profiles.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store is the scraper's local SQLite state.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the scrape state database at dbPath. Use
// ":memory:" for tests.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("dbPath cannot be empty")
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetCachedProfile returns the cached HTML for a profile identifier, with
// ok=false on a cache miss.
func (s *Store) GetCachedProfile(ctx context.Context, profileID string) (string, bool, error) {
	var html string
	err := s.db.QueryRowContext(ctx,
		`SELECT html FROM profile_cache WHERE profile_id = ?`, profileID).Scan(&html)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read profile cache: %w", err)
	}
	return html, true, nil
}

// SaveCachedProfile stores fetched profile HTML, replacing any previous
// entry for the same identifier.
func (s *Store) SaveCachedProfile(ctx context.Context, profileID, url, html string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO profile_cache (profile_id, url, html, fetched_at)
		 VALUES (?, ?, ?, ?)`,
		profileID, url, html, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save profile cache: %w", err)
	}
	return nil
}

// MarkSeen records a (source, name, url) listing and reports whether it was
// newly added. Re-runs and paginated duplicates come back false.
func (s *Store) MarkSeen(ctx context.Context, source, name, url string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO seen_profiles (source, name, url, first_seen_at)
		 VALUES (?, ?, ?, ?)`,
		source, name, url, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to mark profile seen: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check insert result: %w", err)
	}
	return n > 0, nil
}

// SeenCount returns how many distinct listings have been recorded for a
// source.
func (s *Store) SeenCount(ctx context.Context, source string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seen_profiles WHERE source = ?`, source).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count seen profiles: %w", err)
	}
	return n, nil
}
