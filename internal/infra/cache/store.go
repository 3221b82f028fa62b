// Package cache provides key/value stores mapping track IDs to resolved video references.
package cache

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned when no entry exists for a track ID.
var ErrNotFound = errors.New("cache entry not found")

// Entry represents a cached resolution.
type Entry struct {
	TrackID   string
	Title     string // Display title, kept for diagnostics
	VideoRef  string
	UpdatedAt time.Time
}

// Store is a track ID keyed store. Put is an upsert.
type Store interface {
	Get(ctx context.Context, trackID string) (*Entry, error)
	Put(ctx context.Context, entry Entry) error
}
