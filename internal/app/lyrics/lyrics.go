// Package lyrics resolves display titles to LRC lyrics payloads.
package lyrics

import (
	"context"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nowtify/internal/domain/command"
	"github.com/osa030/nowtify/internal/domain/track"
	"github.com/osa030/nowtify/internal/infra/lrclib"
)

// NotFoundText is the placeholder shown when no lyrics are available.
const NotFoundText = "[00:00.00] Lyrics not found"

// plainTag prefixes unsynced lyrics so players can treat them as LRC.
const plainTag = "[00:00.00] "

// featuring matches "(feat. X)", "[ft. X]", "(featuring X)" annotations.
var featuring = regexp.MustCompile(`(?i)\s*[\(\[]\s*(feat\.?|ft\.?|featuring)\s[^\)\]]*[\)\]]`)

// Finder looks up lyrics for an artist and title.
type Finder interface {
	Find(ctx context.Context, artist, title string, durationSec int) (*lrclib.Record, error)
}

// Resolver produces a lyrics payload for a track. It never fails.
type Resolver struct {
	finder Finder
}

// New creates a Resolver. A nil finder makes every lookup a miss.
func New(finder Finder) *Resolver {
	return &Resolver{finder: finder}
}

// Resolve returns synced lyrics when available, plain lyrics behind a zero
// timestamp otherwise, and a not-found placeholder on any failure.
func (r *Resolver) Resolve(ctx context.Context, displayTitle string, durationMs int) *command.Lyrics {
	artist, title := SplitQuery(displayTitle)
	if r.finder == nil || title == "" {
		return notFound()
	}

	record, err := r.finder.Find(ctx, artist, title, durationMs/1000)
	if err != nil {
		if errors.Is(err, lrclib.ErrNotFound) {
			zlog.Debug().Msgf("lyrics not found: artist=%s title=%s", artist, title)
		} else {
			zlog.Warn().Msgf("lyrics lookup failed: artist=%s title=%s error=%v", artist, title, err)
		}
		return notFound()
	}

	switch {
	case strings.TrimSpace(record.SyncedLyrics) != "":
		return &command.Lyrics{Format: command.LyricsSynced, LRC: record.SyncedLyrics}
	case strings.TrimSpace(record.PlainLyrics) != "":
		return &command.Lyrics{Format: command.LyricsPlain, LRC: plainTag + record.PlainLyrics}
	default:
		return notFound()
	}
}

// SplitQuery derives the lyrics query from a display title: the primary
// artist with featured-artist annotations removed, and the track title.
func SplitQuery(displayTitle string) (artist, title string) {
	artists, title := track.SplitDisplayTitle(displayTitle)
	primary, _, _ := strings.Cut(artists, ",")
	return StripFeaturing(primary), strings.TrimSpace(title)
}

// StripFeaturing removes parenthetical featured-artist annotations.
func StripFeaturing(s string) string {
	return strings.TrimSpace(featuring.ReplaceAllString(s, ""))
}

func notFound() *command.Lyrics {
	return &command.Lyrics{Format: command.LyricsNotFound, LRC: NotFoundText}
}
