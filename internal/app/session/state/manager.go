package state

import "sync"

// Manager holds the identity of the track currently loaded on every viewer.
// The zero value is not usable; create it with New.
type Manager struct {
	mu sync.RWMutex

	trackURI     string
	videoRef     string
	displayTitle string
}

// New creates an idle state manager.
func New() *Manager {
	return &Manager{}
}

// CurrentTrackURI returns the uri of the loaded track, or "" when stopped.
func (m *Manager) CurrentTrackURI() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trackURI
}

// CurrentVideoRef returns the resolved reference of the loaded track, or "" when stopped.
func (m *Manager) CurrentVideoRef() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.videoRef
}

// Load records a resolved track. An empty uri or reference clears the state instead,
// so a reference can never outlive its track.
func (m *Manager) Load(trackURI, videoRef, displayTitle string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if trackURI == "" || videoRef == "" {
		m.clearLocked()
		return
	}
	m.trackURI = trackURI
	m.videoRef = videoRef
	m.displayTitle = displayTitle
}

// Clear resets the state to idle.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
}

// Snapshot returns a consistent copy of the state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Phase:        m.phaseLocked(),
		TrackURI:     m.trackURI,
		VideoRef:     m.videoRef,
		DisplayTitle: m.displayTitle,
	}
}

// clearLocked must be called with m.mu held.
func (m *Manager) clearLocked() {
	m.trackURI = ""
	m.videoRef = ""
	m.displayTitle = ""
}

// phaseLocked must be called with m.mu held (either RLock or Lock).
func (m *Manager) phaseLocked() Phase {
	if m.trackURI == "" {
		return PhaseIdle
	}
	return PhaseLoaded
}
