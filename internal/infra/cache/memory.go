package cache

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemorySize is the default number of entries kept in memory.
const DefaultMemorySize = 512

// MemoryStore is a bounded in-process LRU store. Entries do not survive restarts.
type MemoryStore struct {
	entries *lru.Cache[string, Entry]
}

// NewMemoryStore creates a store holding at most size entries.
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}
	entries, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create lru cache")
	}
	return &MemoryStore{entries: entries}, nil
}

// Get returns the entry for trackID, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, trackID string) (*Entry, error) {
	entry, ok := s.entries.Get(trackID)
	if !ok {
		return nil, ErrNotFound
	}
	return &entry, nil
}

// Put inserts or replaces the entry for entry.TrackID.
func (s *MemoryStore) Put(_ context.Context, entry Entry) error {
	if entry.TrackID == "" || entry.VideoRef == "" {
		return errors.New("cache: track id and video ref are required")
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}
	s.entries.Add(entry.TrackID, entry)
	return nil
}

// Len returns the number of entries held.
func (s *MemoryStore) Len() int {
	return s.entries.Len()
}
