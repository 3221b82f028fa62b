package playback

import "github.com/osa030/nowtify/internal/domain/command"

// EventType represents an engine outcome.
type EventType int

const (
	EventStopped      EventType = iota // Nothing playing, session cleared
	EventLoaded                        // New track resolved and loaded
	EventUnresolved                    // New track could not be resolved
	EventStateChanged                  // Same track, play/pause update
	EventSuperseded                    // Resolution discarded for a newer snapshot
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStopped:
		return "stopped"
	case EventLoaded:
		return "loaded"
	case EventUnresolved:
		return "unresolved"
	case EventStateChanged:
		return "state_changed"
	case EventSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Event represents one processed snapshot.
type Event struct {
	Type     EventType
	TrackURI string          // Snapshot track uri ("" when stopped)
	Command  command.Command // Broadcast command (zero for EventSuperseded)
}
