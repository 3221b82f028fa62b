// Package command provides the transport commands broadcast to viewers.
package command

// Kind identifies the command variant.
type Kind string

const (
	KindStop  Kind = "stop"
	KindLoad  Kind = "load"
	KindPlay  Kind = "play"
	KindPause Kind = "pause"
)

// LyricsFormat describes how a lyrics payload is encoded.
type LyricsFormat string

const (
	LyricsSynced   LyricsFormat = "synced"    // LRC with per-line timestamps
	LyricsPlain    LyricsFormat = "plain"     // plain text behind a single [00:00.00] tag
	LyricsNotFound LyricsFormat = "not_found" // placeholder text
)

// Lyrics is a displayable lyrics payload in LRC form.
type Lyrics struct {
	Format LyricsFormat `json:"format"`
	LRC    string       `json:"lrc"`
}

// Found reports whether the payload carries real lyrics rather than a placeholder.
func (l *Lyrics) Found() bool {
	return l != nil && l.Format != LyricsNotFound
}

// Command is a transient transport instruction for every viewer.
// Fields not meaningful for a Kind are left zero and omitted on the wire.
type Command struct {
	Kind         Kind    `json:"command"`
	VideoRef     string  `json:"videoId,omitempty"`
	ProgressMs   int     `json:"progress"`
	DurationMs   int     `json:"duration"`
	DisplayTitle string  `json:"trackTitle,omitempty"`
	AlbumArtURL  string  `json:"albumImgUrl,omitempty"`
	Lyrics       *Lyrics `json:"lyrics,omitempty"`
}

// Stop returns a stop command.
func Stop() Command {
	return Command{Kind: KindStop}
}

// Load returns a load command for a freshly resolved track.
func Load(videoRef string, progressMs, durationMs int, displayTitle, albumArtURL string, lyrics *Lyrics) Command {
	return Command{
		Kind:         KindLoad,
		VideoRef:     videoRef,
		ProgressMs:   progressMs,
		DurationMs:   durationMs,
		DisplayTitle: displayTitle,
		AlbumArtURL:  albumArtURL,
		Lyrics:       lyrics,
	}
}

// Transport returns a play command when playing is true, otherwise pause.
// videoRef repeats the loaded reference so a viewer that missed the load can still cue it.
func Transport(playing bool, videoRef string, progressMs, durationMs int, displayTitle, albumArtURL string) Command {
	kind := KindPause
	if playing {
		kind = KindPlay
	}
	return Command{
		Kind:         kind,
		VideoRef:     videoRef,
		ProgressMs:   progressMs,
		DurationMs:   durationMs,
		DisplayTitle: displayTitle,
		AlbumArtURL:  albumArtURL,
	}
}
