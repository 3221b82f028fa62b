package cache

import (
	"context"

	zlog "github.com/rs/zerolog/log"
)

// Tiered fronts a slower store with a faster one.
// Reads fall through to back and warm front on hit; writes go to both.
type Tiered struct {
	front Store
	back  Store
}

// NewTiered creates a tiered store.
func NewTiered(front, back Store) *Tiered {
	return &Tiered{front: front, back: back}
}

// Get returns the entry for trackID from the first tier that has it.
func (t *Tiered) Get(ctx context.Context, trackID string) (*Entry, error) {
	if entry, err := t.front.Get(ctx, trackID); err == nil {
		return entry, nil
	}

	entry, err := t.back.Get(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if err := t.front.Put(ctx, *entry); err != nil {
		zlog.Debug().Msgf("failed to warm front cache: track_id=%s error=%v", trackID, err)
	}
	return entry, nil
}

// Put writes the entry to both tiers. The back tier's error is returned.
func (t *Tiered) Put(ctx context.Context, entry Entry) error {
	if err := t.front.Put(ctx, entry); err != nil {
		zlog.Debug().Msgf("failed to write front cache: track_id=%s error=%v", entry.TrackID, err)
	}
	return t.back.Put(ctx, entry)
}
