package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_InitialStateIsIdle(t *testing.T) {
	m := New()

	assert.Empty(t, m.CurrentTrackURI())
	assert.Empty(t, m.CurrentVideoRef())
	assert.Equal(t, Snapshot{Phase: PhaseIdle}, m.Snapshot())
}

func TestManager_LoadAndClear(t *testing.T) {
	m := New()

	m.Load("spotify:track:a", "v1", "Y - X")
	assert.Equal(t, Snapshot{
		Phase:        PhaseLoaded,
		TrackURI:     "spotify:track:a",
		VideoRef:     "v1",
		DisplayTitle: "Y - X",
	}, m.Snapshot())

	m.Clear()
	assert.Equal(t, Snapshot{Phase: PhaseIdle}, m.Snapshot())
}

func TestManager_LoadWithoutReferenceClears(t *testing.T) {
	tests := []struct {
		name     string
		trackURI string
		videoRef string
	}{
		{name: "missing reference", trackURI: "spotify:track:b", videoRef: ""},
		{name: "missing uri", trackURI: "", videoRef: "v2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.Load("spotify:track:a", "v1", "Y - X")

			m.Load(tt.trackURI, tt.videoRef, "title")

			assert.Equal(t, Snapshot{Phase: PhaseIdle}, m.Snapshot())
		})
	}
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "loaded", PhaseLoaded.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
