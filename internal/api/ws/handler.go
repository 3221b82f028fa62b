// Package ws provides the browser WebSocket transport: listener status
// updates in, sync commands out.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	apiconnect "github.com/osa030/nowtify/internal/api/connect"
	"github.com/osa030/nowtify/internal/app/notification"
	"github.com/osa030/nowtify/internal/app/playback"
	"github.com/osa030/nowtify/internal/domain/command"
	"github.com/osa030/nowtify/internal/domain/track"
)

// Event names carried in the envelope.
const (
	EventStatusUpdate = "statusUpdate"
	EventSyncCommand  = "syncCommand"
)

// TokenQueryParam is the query parameter alternative to the listener token header.
const TokenQueryParam = "token"

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxFrame   = 64 << 10
)

// Envelope is a single WebSocket frame.
type Envelope struct {
	Event string          `json:"event"`
	Seq   uint64          `json:"seq,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Session is the part of the session manager the socket needs.
type Session interface {
	HandleStatus(ctx context.Context, snap track.Snapshot) (command.Command, error)
	Subscribe(stream notification.Stream) string
	Unsubscribe(subscriptionID string)
	Done() <-chan struct{}
}

// Handler upgrades connections and serves one socket per viewer.
// Every socket receives commands; only sockets presenting the listener
// token (when one is configured) may send status updates.
type Handler struct {
	session       Session
	listenerToken string
	upgrader      websocket.Upgrader
}

// NewHandler creates a WebSocket handler.
func NewHandler(session Session, listenerToken string) *Handler {
	return &Handler{
		session:       session,
		listenerToken: listenerToken,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Viewers are served from any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Debug().Msgf("websocket upgrade failed: remote=%s error=%v", r.RemoteAddr, err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &client{
		conn:     conn,
		canWrite: h.authorized(r),
	}
	defer func() {
		cancel()
		c.wg.Wait()
		_ = conn.Close()
	}()

	subscriptionID := h.session.Subscribe(c)
	defer h.session.Unsubscribe(subscriptionID)
	zlog.Debug().Msgf("websocket connected: remote=%s listener=%t", r.RemoteAddr, c.canWrite)

	go c.pingLoop(ctx)
	go func() {
		select {
		case <-ctx.Done():
		case <-h.session.Done():
			c.closeWithReason(websocket.CloseGoingAway, "server shutting down")
		}
	}()

	h.readLoop(ctx, c)
	zlog.Debug().Msgf("websocket disconnected: remote=%s", r.RemoteAddr)
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.listenerToken == "" {
		return true
	}
	presented := r.Header.Get(apiconnect.ListenerTokenHeader)
	if presented == "" {
		presented = r.URL.Query().Get(TokenQueryParam)
	}
	return apiconnect.TokenMatches(h.listenerToken, presented)
}

// readLoop dispatches status updates until the connection fails.
// Each update is handled concurrently so a slow resolution does not block reads.
func (h *Handler) readLoop(ctx context.Context, c *client) {
	c.conn.SetReadLimit(maxFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zlog.Debug().Msgf("websocket read failed: %v", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			zlog.Debug().Msgf("malformed websocket frame ignored: %v", err)
			continue
		}
		if env.Event != EventStatusUpdate {
			continue
		}
		if !c.canWrite {
			zlog.Warn().Msg("status update without listener token ignored")
			continue
		}

		// Payloads that do not decode are treated as "nothing playing".
		var report apiconnect.StatusReport
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &report); err != nil {
				zlog.Debug().Msgf("malformed status update treated as stop: %v", err)
				report = apiconnect.StatusReport{}
			}
		}

		c.wg.Add(1)
		go func(snap track.Snapshot) {
			defer c.wg.Done()
			if _, err := h.session.HandleStatus(ctx, snap); err != nil && !errors.Is(err, playback.ErrSuperseded) {
				zlog.Debug().Msgf("status update not applied: %v", err)
			}
		}(report.Snapshot())
	}
}

// client is one socket. Writes are serialized; gorilla connections allow a
// single concurrent writer.
type client struct {
	conn     *websocket.Conn
	canWrite bool

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

// Send implements notification.Stream.
func (c *client) Send(msg *notification.Message) error {
	data, err := json.Marshal(msg.Command)
	if err != nil {
		return errors.Wrap(err, "failed to encode command")
	}
	return c.write(Envelope{Event: EventSyncCommand, Seq: msg.SequenceNo, Data: data})
}

func (c *client) write(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(env)
}

func (c *client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *client) closeWithReason(code int, reason string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	_ = c.conn.Close()
}
