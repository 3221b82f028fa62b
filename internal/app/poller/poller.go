// Package poller feeds the sync engine from the Spotify "currently playing" endpoint.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nowtify/internal/domain/command"
	"github.com/osa030/nowtify/internal/domain/track"
)

// DefaultInterval is used when no interval is configured.
const DefaultInterval = time.Second

// Source reports what the listener's player is doing.
type Source interface {
	CurrentlyPlaying(ctx context.Context) (track.Snapshot, error)
}

// Handler processes a snapshot.
type Handler interface {
	HandleStatus(ctx context.Context, snap track.Snapshot) (command.Command, error)
}

// Poller polls a Source on a fixed interval. Fetches are sequential;
// snapshot handling runs concurrently so a slow resolution does not delay the next tick.
type Poller struct {
	source   Source
	handler  Handler
	interval time.Duration

	inflight sync.WaitGroup
}

// New creates a poller.
func New(source Source, handler Handler, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		source:   source,
		handler:  handler,
		interval: interval,
	}
}

// Run polls until ctx is canceled, then waits for in-flight snapshots.
func (p *Poller) Run(ctx context.Context) {
	zlog.Info().Msgf("spotify poller started: interval=%v", p.interval)
	defer zlog.Info().Msg("spotify poller stopped")
	defer p.inflight.Wait()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	snap, err := p.source.CurrentlyPlaying(ctx)
	if err != nil {
		if ctx.Err() == nil {
			zlog.Warn().Msgf("failed to fetch currently playing: %v", err)
		}
		return
	}

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		if _, err := p.handler.HandleStatus(ctx, snap); err != nil && !errors.Is(err, context.Canceled) {
			zlog.Debug().Msgf("polled snapshot not applied: %v", err)
		}
	}()
}
