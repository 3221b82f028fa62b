// Package spotify provides a client for the Spotify player API.
package spotify

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/nowtify/internal/domain/track"
)

// Scopes are the scopes needed to read the listener's playback state.
var Scopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
}

// Client is a Spotify API client.
type Client struct {
	client     *spotify.Client
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(Scopes...),
	)

	// Create token from refresh token
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	// Get HTTP client with auto-refresh capability
	httpClient := auth.Client(ctx, token)

	return &Client{
		client:     spotify.New(httpClient),
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// CurrentlyPlaying returns a snapshot of the listener's player.
func (c *Client) CurrentlyPlaying(ctx context.Context) (track.Snapshot, error) {
	var result *spotify.CurrentlyPlaying
	err := c.retry(ctx, func() error {
		cp, err := c.client.PlayerCurrentlyPlaying(ctx)
		if err != nil {
			return err
		}
		result = cp
		return nil
	})
	if err != nil {
		return track.Snapshot{}, errors.Wrap(err, "failed to get currently playing")
	}

	return convertSnapshot(result), nil
}

// convertSnapshot converts Spotify's currently-playing object to a domain Snapshot.
func convertSnapshot(cp *spotify.CurrentlyPlaying) track.Snapshot {
	if cp == nil {
		return track.Snapshot{}
	}

	snapshot := track.Snapshot{
		IsPlaying:  cp.Playing,
		ProgressMs: int(cp.Progress),
	}
	if cp.Item != nil && cp.Item.URI != "" {
		snapshot.Track = convertTrack(cp.Item)
	}
	return snapshot
}

// convertTrack converts a Spotify FullTrack to domain Track.
func convertTrack(t *spotify.FullTrack) *track.Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}

	var albumArt string
	if len(t.Album.Images) > 0 {
		albumArt = t.Album.Images[0].URL
	}

	return &track.Track{
		URI:         string(t.URI),
		ID:          string(t.ID),
		Name:        t.Name,
		Artists:     artists,
		AlbumArtURL: albumArt,
		DurationMs:  int(t.Duration),
	}
}

// retry retries an operation with linear backoff. Waiting stops when ctx is done.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "retry interrupted")
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}
