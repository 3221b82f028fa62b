package connect

import (
	"github.com/osa030/nowtify/internal/app/session"
	"github.com/osa030/nowtify/internal/domain/command"
	"github.com/osa030/nowtify/internal/domain/track"
)

// StatusReport is a playback status in the shape of the Spotify Web API
// "currently playing" response. Unknown fields are ignored.
type StatusReport struct {
	Item       *ReportedTrack `json:"item"`
	IsPlaying  bool           `json:"is_playing"`
	ProgressMs int            `json:"progress_ms"`
}

// ReportedTrack is the "item" object of a status report.
type ReportedTrack struct {
	URI        string           `json:"uri"`
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Artists    []ReportedArtist `json:"artists"`
	Album      *ReportedAlbum   `json:"album,omitempty"`
	DurationMs int              `json:"duration_ms"`
}

// ReportedArtist is an artist of a reported track.
type ReportedArtist struct {
	Name string `json:"name"`
}

// ReportedAlbum is the album of a reported track.
type ReportedAlbum struct {
	Images []ReportedImage `json:"images"`
}

// ReportedImage is an album image; the first one is used as album art.
type ReportedImage struct {
	URL string `json:"url"`
}

// Snapshot converts the report to a domain snapshot.
// Missing optional fields become empty; negative numbers are clamped to zero.
func (r *StatusReport) Snapshot() track.Snapshot {
	if r == nil {
		return track.Snapshot{}
	}

	snap := track.Snapshot{
		IsPlaying:  r.IsPlaying,
		ProgressMs: max(r.ProgressMs, 0),
	}
	if r.Item == nil {
		return snap
	}

	artists := make([]string, 0, len(r.Item.Artists))
	for _, a := range r.Item.Artists {
		artists = append(artists, a.Name)
	}

	var albumArt string
	if r.Item.Album != nil && len(r.Item.Album.Images) > 0 {
		albumArt = r.Item.Album.Images[0].URL
	}

	snap.Track = &track.Track{
		URI:         r.Item.URI,
		ID:          r.Item.ID,
		Name:        r.Item.Name,
		Artists:     artists,
		AlbumArtURL: albumArt,
		DurationMs:  max(r.Item.DurationMs, 0),
	}
	return snap
}

// ReportStatusResponse carries the command broadcast for a report.
// Superseded is set, and Command is nil, when a newer report won.
type ReportStatusResponse struct {
	Command    *command.Command `json:"command,omitempty"`
	Superseded bool             `json:"superseded,omitempty"`
}

// SubscribeRequest opens a viewer command stream.
type SubscribeRequest struct{}

// GetStateRequest requests the session diagnostics.
type GetStateRequest struct{}

// GetStateResponse is a read-only view of the session.
type GetStateResponse struct {
	Phase        string `json:"phase"`
	TrackURI     string `json:"trackUri,omitempty"`
	VideoRef     string `json:"videoId,omitempty"`
	DisplayTitle string `json:"trackTitle,omitempty"`
	ViewerCount  int    `json:"viewerCount"`
	Polling      bool   `json:"polling"`
	Loaded       int    `json:"loaded"`
	Unresolved   int    `json:"unresolved"`
	Stopped      int    `json:"stopped"`
	StateChanged int    `json:"stateChanged"`
	Superseded   int    `json:"superseded"`
}

func newGetStateResponse(status *session.Status) *GetStateResponse {
	return &GetStateResponse{
		Phase:        status.State.Phase.String(),
		TrackURI:     status.State.TrackURI,
		VideoRef:     status.State.VideoRef,
		DisplayTitle: status.State.DisplayTitle,
		ViewerCount:  status.ViewerCount,
		Polling:      status.Polling,
		Loaded:       status.Stats.Loaded,
		Unresolved:   status.Stats.Unresolved,
		Stopped:      status.Stats.Stopped,
		StateChanged: status.Stats.StateChanged,
		Superseded:   status.Stats.Superseded,
	}
}
