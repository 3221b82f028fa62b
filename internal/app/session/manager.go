// Package session provides the session manager.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nowtify/internal/app/notification"
	"github.com/osa030/nowtify/internal/app/playback"
	"github.com/osa030/nowtify/internal/app/poller"
	"github.com/osa030/nowtify/internal/app/session/state"
	"github.com/osa030/nowtify/internal/domain/command"
	"github.com/osa030/nowtify/internal/domain/track"
	"github.com/osa030/nowtify/internal/infra/config"
)

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("session is closed")

// Manager owns the single sync session: its state, engine, viewers and
// the optional server-side poller.
type Manager struct {
	mu sync.RWMutex

	// Configuration
	config *config.Config

	// Components
	stateMgr     *state.Manager
	engine       *playback.Engine
	notification *notification.Manager
	poller       *poller.Poller // nil unless Spotify polling is enabled

	// Diagnostics
	stats       Stats
	lastEventAt time.Time

	// Lifecycle
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	workers   sync.WaitGroup
}

// Stats counts processed snapshots by outcome.
type Stats struct {
	Loaded       int
	Unresolved   int
	Stopped      int
	StateChanged int
	Superseded   int
}

// NewManager creates a new session manager.
// lyrics and source may be nil to disable lyrics and server-side polling.
func NewManager(
	cfg *config.Config,
	refs playback.ReferenceResolver,
	lyrics playback.LyricsResolver,
	source poller.Source,
) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	stateMgr := state.New()
	notif := notification.NewManager()

	m := &Manager{
		config:       cfg,
		stateMgr:     stateMgr,
		notification: notif,
		engine: playback.NewEngine(playback.Config{
			LyricsWait:   cfg.LyricsWait(),
			RetryBackoff: cfg.RetryBackoff(),
		}, stateMgr, refs, lyrics, notif),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	if source != nil {
		m.poller = poller.New(source, m.engine, cfg.PollInterval())
	}

	return m
}

// Start starts the event loop and, when configured, the Spotify poller.
func (m *Manager) Start(ctx context.Context) error {
	select {
	case <-m.done:
		return ErrSessionClosed
	default:
	}

	m.workers.Add(1)
	go func() {
		defer m.workers.Done()
		m.eventLoop()
	}()

	if m.poller != nil {
		m.workers.Add(1)
		go func() {
			defer m.workers.Done()
			m.poller.Run(m.ctx)
		}()
	}

	zlog.Info().Msgf("session started: polling=%t", m.poller != nil)
	return nil
}

// Done returns a channel that is closed when the session is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// HandleStatus feeds a listener-reported snapshot to the engine.
func (m *Manager) HandleStatus(ctx context.Context, snap track.Snapshot) (command.Command, error) {
	select {
	case <-m.done:
		return command.Command{}, ErrSessionClosed
	default:
	}
	return m.engine.HandleStatus(ctx, snap)
}

// Subscribe registers a viewer stream and returns its subscription ID.
func (m *Manager) Subscribe(stream notification.Stream) string {
	return m.notification.Subscribe(stream)
}

// Unsubscribe removes a viewer stream.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.notification.Unsubscribe(subscriptionID)
}

// Status represents the current session status.
type Status struct {
	State       state.Snapshot
	ViewerCount int
	Polling     bool
	Stats       Stats
	LastEventAt time.Time
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() *Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return &Status{
		State:       m.stateMgr.Snapshot(),
		ViewerCount: m.notification.SubscriberCount(),
		Polling:     m.poller != nil,
		Stats:       m.stats,
		LastEventAt: m.lastEventAt,
	}
}

// eventLoop records engine events.
func (m *Manager) eventLoop() {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("event loop panicked: %v", r)
			// Restart loop to keep diagnostics alive
			zlog.Info().Msg("restarting event loop")
			m.workers.Add(1)
			go func() {
				defer m.workers.Done()
				m.eventLoop()
			}()
		}
	}()

	for {
		select {
		case <-m.ctx.Done():
			return
		case event := <-m.engine.Events():
			m.handleEngineEvent(event)
		}
	}
}

// handleEngineEvent handles engine events.
func (m *Manager) handleEngineEvent(event playback.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastEventAt = time.Now()
	switch event.Type {
	case playback.EventLoaded:
		m.stats.Loaded++
		zlog.Info().Msgf("viewers loaded track: uri=%s video_ref=%s viewers=%d",
			event.TrackURI, event.Command.VideoRef, m.notification.SubscriberCount())
	case playback.EventUnresolved:
		m.stats.Unresolved++
	case playback.EventStopped:
		m.stats.Stopped++
	case playback.EventStateChanged:
		m.stats.StateChanged++
	case playback.EventSuperseded:
		m.stats.Superseded++
	}
}

// Close stops the poller and the event loop and drops every viewer.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.cancel()
		m.workers.Wait()
		m.notification.Close()
		close(m.done)
		zlog.Info().Msg("session closed")
	})
}
