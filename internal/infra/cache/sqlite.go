package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS video_refs (
	track_id   TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	video_ref  TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore persists entries in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the SQLite database at path.
// The path can be ":memory:" for an in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	store := &SQLiteStore{db: db}
	if err := store.EnsureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// EnsureSchema creates the cache table if it does not exist.
func (s *SQLiteStore) EnsureSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Wrap(err, "failed to create schema")
	}
	return nil
}

// Get returns the entry for trackID, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, trackID string) (*Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("cache: missing database connection")
	}

	var (
		entry     Entry
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT track_id, title, video_ref, updated_at FROM video_refs WHERE track_id = ?`,
		trackID,
	).Scan(&entry.TrackID, &entry.Title, &entry.VideoRef, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get cache entry: track_id=%s", trackID)
	}
	entry.UpdatedAt = time.Unix(updatedAt, 0)
	return &entry, nil
}

// Put inserts or replaces the entry for entry.TrackID.
func (s *SQLiteStore) Put(ctx context.Context, entry Entry) error {
	if s == nil || s.db == nil {
		return errors.New("cache: missing database connection")
	}
	if entry.TrackID == "" || entry.VideoRef == "" {
		return errors.New("cache: track id and video ref are required")
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO video_refs (track_id, title, video_ref, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET
			title=excluded.title,
			video_ref=excluded.video_ref,
			updated_at=excluded.updated_at
	`, entry.TrackID, entry.Title, entry.VideoRef, entry.UpdatedAt.Unix())
	if err != nil {
		return errors.Wrapf(err, "failed to put cache entry: track_id=%s", entry.TrackID)
	}
	return nil
}

// Count returns the number of cached entries.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM video_refs`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count cache entries")
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
