// Package playback provides the sync engine that turns player snapshots into viewer commands.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nowtify/internal/app/session/state"
	"github.com/osa030/nowtify/internal/domain/command"
	"github.com/osa030/nowtify/internal/domain/track"
)

// ErrSuperseded is returned when a newer snapshot was processed while a
// resolution was in flight. Nothing is broadcast in that case.
var ErrSuperseded = errors.New("resolution superseded by a newer snapshot")

// NoWait makes a load skip in-flight lyrics; a negative LyricsWait waits without limit.
const NoWait time.Duration = 0

// ReferenceResolver maps a track to a playable video reference.
type ReferenceResolver interface {
	Resolve(ctx context.Context, displayTitle, trackID string) (string, bool)
}

// LyricsResolver produces a lyrics payload. It must not fail.
type LyricsResolver interface {
	Resolve(ctx context.Context, displayTitle string, durationMs int) *command.Lyrics
}

// Broadcaster delivers a command to every connected viewer.
type Broadcaster interface {
	Broadcast(cmd command.Command)
}

// Config holds engine configuration.
type Config struct {
	LyricsWait   time.Duration // Max wait for lyrics once the reference resolved; 0 skips them, negative waits without limit
	RetryBackoff time.Duration // Min delay before re-resolving a track that failed; 0 retries on the next snapshot
}

// Engine consumes snapshots and emits exactly one command per processed snapshot.
// Resolutions run concurrently; the state commit and the broadcast are serialized.
type Engine struct {
	mu sync.Mutex

	state  *state.Manager
	refs   ReferenceResolver
	lyrics LyricsResolver // nil disables lyrics
	out    Broadcaster
	config Config

	// requestedURI is the track the latest snapshot asked for.
	// A resolution commits only while it still matches.
	requestedURI string

	lastFailedURI string
	lastFailedAt  time.Time

	eventCh chan Event
	now     func() time.Time
}

// NewEngine creates a sync engine. lyrics may be nil.
func NewEngine(config Config, st *state.Manager, refs ReferenceResolver, lyrics LyricsResolver, out Broadcaster) *Engine {
	return &Engine{
		state:   st,
		refs:    refs,
		lyrics:  lyrics,
		out:     out,
		config:  config,
		eventCh: make(chan Event, 32),
		now:     time.Now,
	}
}

// Events returns the event channel. Events are dropped when nobody reads.
func (e *Engine) Events() <-chan Event {
	return e.eventCh
}

// State returns a copy of the session state.
func (e *Engine) State() state.Snapshot {
	return e.state.Snapshot()
}

// HandleStatus processes one snapshot and returns the command it broadcast.
// Resolution outlives ctx; when ctx is done before the commit the result is
// discarded and ctx's error is returned. ErrSuperseded means a newer snapshot
// took over. Nothing is broadcast in either case.
func (e *Engine) HandleStatus(ctx context.Context, snap track.Snapshot) (command.Command, error) {
	if snap.IsStopped() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.requestedURI = ""
		e.state.Clear()
		return e.emitLocked(EventStopped, "", command.Stop()), nil
	}

	t := snap.Track
	displayTitle := t.DisplayTitle()

	e.mu.Lock()
	e.requestedURI = t.URI
	if t.URI == e.state.CurrentTrackURI() {
		defer e.mu.Unlock()
		cmd := command.Transport(snap.IsPlaying, e.state.CurrentVideoRef(), snap.ProgressMs, t.DurationMs, displayTitle, t.AlbumArtURL)
		return e.emitLocked(EventStateChanged, t.URI, cmd), nil
	}
	if e.backingOffLocked(t.URI) {
		defer e.mu.Unlock()
		zlog.Debug().Msgf("resolution backing off: uri=%s", t.URI)
		e.state.Clear()
		return e.emitLocked(EventUnresolved, t.URI, command.Stop()), nil
	}
	e.mu.Unlock()

	zlog.Info().Msgf("track changed: uri=%s title=%q", t.URI, displayTitle)
	return e.load(ctx, snap, displayTitle)
}

// load resolves a new track and commits the result unless superseded.
func (e *Engine) load(ctx context.Context, snap track.Snapshot, displayTitle string) (command.Command, error) {
	t := snap.Track
	// A reporter going away must not read as a failed lookup.
	resolveCtx := context.WithoutCancel(ctx)

	var lyricsCh chan *command.Lyrics
	if e.lyrics != nil {
		lyricsCh = make(chan *command.Lyrics, 1)
		go func() {
			lyricsCh <- e.lyrics.Resolve(resolveCtx, displayTitle, t.DurationMs)
		}()
	}

	ref, found := e.refs.Resolve(resolveCtx, displayTitle, t.ID)

	var lyrics *command.Lyrics
	if found && lyricsCh != nil {
		lyrics = e.awaitLyrics(ctx, lyricsCh)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.requestedURI != t.URI {
		zlog.Debug().Msgf("resolution superseded: uri=%s requested=%s", t.URI, e.requestedURI)
		e.sendEventLocked(Event{Type: EventSuperseded, TrackURI: t.URI})
		return command.Command{}, ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		zlog.Debug().Msgf("reporter gone before commit, discarding: uri=%s error=%v", t.URI, err)
		e.sendEventLocked(Event{Type: EventSuperseded, TrackURI: t.URI})
		return command.Command{}, errors.Wrap(err, "status report abandoned")
	}

	if !found {
		zlog.Info().Msgf("track unresolved, stopping viewers: uri=%s title=%q", t.URI, displayTitle)
		e.state.Clear()
		e.lastFailedURI = t.URI
		e.lastFailedAt = e.now()
		return e.emitLocked(EventUnresolved, t.URI, command.Stop()), nil
	}

	e.state.Load(t.URI, ref, displayTitle)
	zlog.Debug().Msgf("track loaded: uri=%s ref=%s lyrics=%t", t.URI, ref, lyrics.Found())
	if e.lastFailedURI == t.URI {
		e.lastFailedURI = ""
	}
	cmd := command.Load(ref, snap.ProgressMs, t.DurationMs, displayTitle, t.AlbumArtURL, lyrics)
	return e.emitLocked(EventLoaded, t.URI, cmd), nil
}

// awaitLyrics waits for the lyrics result at most LyricsWait.
func (e *Engine) awaitLyrics(ctx context.Context, lyricsCh <-chan *command.Lyrics) *command.Lyrics {
	if e.config.LyricsWait == NoWait {
		select {
		case lyrics := <-lyricsCh:
			return lyrics
		default:
			return nil
		}
	}

	var timeout <-chan time.Time
	if e.config.LyricsWait > 0 {
		timer := time.NewTimer(e.config.LyricsWait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case lyrics := <-lyricsCh:
		return lyrics
	case <-timeout:
		zlog.Debug().Msgf("lyrics not ready, loading without: wait=%v", e.config.LyricsWait)
		return nil
	case <-ctx.Done():
		return nil
	}
}

// backingOffLocked must be called with e.mu held.
func (e *Engine) backingOffLocked(uri string) bool {
	if e.config.RetryBackoff <= 0 || e.lastFailedURI != uri {
		return false
	}
	return e.now().Sub(e.lastFailedAt) < e.config.RetryBackoff
}

// emitLocked broadcasts cmd and reports it; must be called with e.mu held.
func (e *Engine) emitLocked(eventType EventType, uri string, cmd command.Command) command.Command {
	e.out.Broadcast(cmd)
	e.sendEventLocked(Event{Type: eventType, TrackURI: uri, Command: cmd})
	return cmd
}

// sendEventLocked sends an event without blocking.
func (e *Engine) sendEventLocked(event Event) {
	select {
	case e.eventCh <- event:
	default:
		zlog.Debug().Msgf("engine event dropped: type=%s", event.Type)
	}
}
