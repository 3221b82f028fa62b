// Package notification provides the broadcast channel that fans commands out to viewers.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nowtify/internal/domain/command"
)

// DefaultSendTimeout bounds a single subscriber send during a broadcast.
const DefaultSendTimeout = 500 * time.Millisecond

// Message is a broadcast command stamped with its sequence number.
type Message struct {
	SequenceNo uint64          `json:"seq"`
	Command    command.Command `json:"data"`
}

// Stream represents a delivery target for one connected viewer.
type Stream interface {
	Send(*Message) error
}

// subscription represents a viewer's subscription.
type subscription struct {
	id     string
	stream Stream
}

// Manager manages viewer subscriptions and broadcasting.
// Late subscribers receive nothing until the next broadcast.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	sendTimeout   time.Duration
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   DefaultSendTimeout,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	zlog.Debug().Msgf("viewer subscribed: id=%s total=%d", id, len(m.subscriptions))
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
	zlog.Debug().Msgf("viewer unsubscribed: id=%s total=%d", subscriptionID, len(m.subscriptions))
}

// Broadcast sends a command to all subscribers without acknowledgment or retry.
// Each stream send runs in its own goroutine and is abandoned after the send timeout.
// Broadcast returns once every send has finished or timed out. A send abandoned
// by timeout may land after a later broadcast; viewers order by SequenceNo.
// Streams must tolerate concurrent Send calls for that reason.
func (m *Manager) Broadcast(cmd command.Command) {
	m.sequenceNoMu.Lock()
	m.sequenceNo++
	msg := &Message{SequenceNo: m.sequenceNo, Command: cmd}
	m.sequenceNoMu.Unlock()

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(msg)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("send to viewer failed: id=%s error=%v", s.id, err)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("send to viewer timed out: id=%s", s.id)
			}
		}(sub)
	}

	wg.Wait()
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
