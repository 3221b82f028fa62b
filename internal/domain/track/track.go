// Package track provides the Track and Snapshot domain entities.
package track

import "strings"

// DisplayTitleSeparator separates the artist part from the title part of a display title.
const DisplayTitleSeparator = " - "

// Track represents a track reported by the source player.
type Track struct {
	URI         string   // Stable provider URI (spotify:track:...)
	ID          string   // Short track ID, used as cache key
	Name        string   // Track name
	Artists     []string // Artist names, in provider order
	AlbumArtURL string   // Album art URL (empty if unknown)
	DurationMs  int      // Track duration in milliseconds
}

// Snapshot is a single point-in-time report of what the source player is doing.
// A nil Track means nothing is playing.
type Snapshot struct {
	Track      *Track
	IsPlaying  bool
	ProgressMs int
}

// DisplayTitle returns "<artists joined by ', '> - <name>".
func (t *Track) DisplayTitle() string {
	return strings.Join(t.Artists, ", ") + DisplayTitleSeparator + t.Name
}

// IsStopped reports whether the snapshot should be treated as "nothing playing".
// Both an absent track and a paused player at position zero count as stopped,
// since providers report a freshly stopped player either way.
func (s Snapshot) IsStopped() bool {
	if s.Track == nil {
		return true
	}
	return !s.IsPlaying && s.ProgressMs == 0
}

// SplitDisplayTitle splits a display title on the first separator.
// If there is no separator, artist is empty and title is the whole input.
func SplitDisplayTitle(displayTitle string) (artist, title string) {
	artist, title, found := strings.Cut(displayTitle, DisplayTitleSeparator)
	if !found {
		return "", strings.TrimSpace(displayTitle)
	}
	return strings.TrimSpace(artist), strings.TrimSpace(title)
}
