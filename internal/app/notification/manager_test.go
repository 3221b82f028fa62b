package notification

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/nowtify/internal/domain/command"
)

type recordingStream struct {
	mu       sync.Mutex
	messages []*Message
	err      error
	block    chan struct{}
}

func (s *recordingStream) Send(msg *Message) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *recordingStream) received() []*Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Message(nil), s.messages...)
}

func TestManager_BroadcastReachesAllSubscribers(t *testing.T) {
	m := NewManager()
	a := &recordingStream{}
	b := &recordingStream{}
	m.Subscribe(a)
	m.Subscribe(b)
	require.Equal(t, 2, m.SubscriberCount())

	m.Broadcast(command.Stop())
	m.Broadcast(command.Transport(true, "", 1000, 2000, "Y - X", ""))

	for _, s := range []*recordingStream{a, b} {
		msgs := s.received()
		require.Len(t, msgs, 2)
		assert.Equal(t, uint64(1), msgs[0].SequenceNo)
		assert.Equal(t, command.KindStop, msgs[0].Command.Kind)
		assert.Equal(t, uint64(2), msgs[1].SequenceNo)
		assert.Equal(t, command.KindPlay, msgs[1].Command.Kind)
	}
}

func TestManager_LateSubscriberGetsNoReplay(t *testing.T) {
	m := NewManager()
	m.Broadcast(command.Stop())

	late := &recordingStream{}
	m.Subscribe(late)
	assert.Empty(t, late.received())

	m.Broadcast(command.Transport(false, "", 5000, 200000, "Y - X", ""))
	msgs := late.received()
	require.Len(t, msgs, 1)
	assert.Equal(t, command.KindPause, msgs[0].Command.Kind)
}

func TestManager_UnsubscribeStopsDelivery(t *testing.T) {
	m := NewManager()
	s := &recordingStream{}
	id := m.Subscribe(s)
	m.Unsubscribe(id)

	m.Broadcast(command.Stop())

	assert.Empty(t, s.received())
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_FailingOrSlowSubscriberDoesNotBlock(t *testing.T) {
	m := NewManager()
	m.sendTimeout = 20 * time.Millisecond

	failing := &recordingStream{err: errors.New("broken pipe")}
	slow := &recordingStream{block: make(chan struct{})}
	defer close(slow.block)
	healthy := &recordingStream{}
	m.Subscribe(failing)
	m.Subscribe(slow)
	m.Subscribe(healthy)

	start := time.Now()
	m.Broadcast(command.Stop())

	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, healthy.received(), 1)
	assert.Empty(t, failing.received())
}

func TestManager_Close(t *testing.T) {
	m := NewManager()
	m.Subscribe(&recordingStream{})
	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}
