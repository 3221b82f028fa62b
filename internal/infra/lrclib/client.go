// Package lrclib provides a client for the LRCLIB lyrics API.
package lrclib

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public LRCLIB endpoint.
const DefaultBaseURL = "https://lrclib.net/api/"

// ErrNotFound is returned when LRCLIB has no record for a track.
var ErrNotFound = errors.New("lyrics not found")

// Client is an LRCLIB API client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// Config represents LRCLIB client configuration.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Record represents a lyrics record.
type Record struct {
	ID           int     `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// HasLyrics reports whether the record carries any lyrics text.
func (r *Record) HasLyrics() bool {
	return r.SyncedLyrics != "" || r.PlainLyrics != ""
}

// apiError represents an error response from LRCLIB.
type apiError struct {
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// New creates a new LRCLIB client.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "nowtify"
	}

	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Find looks up lyrics by exact signature first and falls back to a search.
// durationSec is ignored when <= 0.
func (c *Client) Find(ctx context.Context, artist, title string, durationSec int) (*Record, error) {
	if title == "" {
		return nil, errors.New("track title is required")
	}

	record, err := c.Get(ctx, artist, title, durationSec)
	if err == nil && record.HasLyrics() {
		return record, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	zlog.Debug().Msgf("lrclib exact match missing, searching: artist=%s title=%s", artist, title)
	records, err := c.Search(ctx, artist, title)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].HasLyrics() {
			return &records[i], nil
		}
	}
	return nil, ErrNotFound
}

// Get retrieves a record by track signature.
// Reference: https://lrclib.net/docs (GET /api/get)
func (c *Client) Get(ctx context.Context, artist, title string, durationSec int) (*Record, error) {
	params := url.Values{}
	params.Set("artist_name", artist)
	params.Set("track_name", title)
	if durationSec > 0 {
		params.Set("duration", strconv.Itoa(durationSec))
	}

	var record Record
	if err := c.do(ctx, "get", params, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Search retrieves records matching artist and title.
// Reference: https://lrclib.net/docs (GET /api/search)
func (c *Client) Search(ctx context.Context, artist, title string) ([]Record, error) {
	params := url.Values{}
	params.Set("track_name", title)
	if artist != "" {
		params.Set("artist_name", artist)
	}

	var records []Record
	if err := c.do(ctx, "search", params, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values, result any) error {
	reqURL := c.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
			return errors.Errorf("lrclib API error %d (%s): %s", resp.StatusCode, apiErr.Name, apiErr.Message)
		}
		return errors.Errorf("lrclib API error: status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}
