// Package state provides the single-session synchronization state.
package state

// Phase represents the session phase.
type Phase int

const (
	PhaseIdle   Phase = iota // No track loaded on viewers
	PhaseLoaded              // A resolved track is loaded on viewers
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	Phase        Phase
	TrackURI     string
	VideoRef     string
	DisplayTitle string
}
