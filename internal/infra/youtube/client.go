// Package youtube provides a client for the YouTube Data API v3 search endpoint.
package youtube

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"
)

// KindVideo is the resource kind of a video search result.
const KindVideo = "youtube#video"

// ErrMissingAPIKey is returned when the client has no API key.
var ErrMissingAPIKey = errors.New("youtube API key is required")

// Client is a YouTube Data API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Config represents YouTube client configuration.
type Config struct {
	APIKey            string
	RequestsPerSecond float64 // <= 0 disables client-side limiting
	Timeout           time.Duration
}

// SearchResult represents a single search hit.
type SearchResult struct {
	Kind         string
	VideoID      string
	Title        string
	ChannelTitle string
}

// searchResponse represents the response from search.list.
type searchResponse struct {
	Items []struct {
		ID struct {
			Kind    string `json:"kind"`
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

// APIError represents an error response from the YouTube API.
type APIError struct {
	Err struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// Reason returns the first machine-readable reason, e.g. "quotaExceeded".
func (e *APIError) Reason() string {
	if len(e.Err.Errors) == 0 {
		return ""
	}
	return e.Err.Errors[0].Reason
}

// New creates a new YouTube client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    "https://www.googleapis.com/youtube/v3/",
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}, nil
}

// Search runs search.list restricted to videos.
// Reference: https://developers.google.com/youtube/v3/docs/search/list
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}
	if maxResults <= 0 {
		maxResults = 1
	}
	if maxResults > 50 {
		maxResults = 50
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter")
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("key", c.apiKey)

	reqURL := c.baseURL + "search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiError APIError
		if err := json.Unmarshal(body, &apiError); err == nil && apiError.Err.Code != 0 {
			return nil, errors.Errorf("youtube API error %d (%s): %s",
				apiError.Err.Code, apiError.Reason(), apiError.Err.Message)
		}
		return nil, errors.Errorf("youtube API error: status %d", resp.StatusCode)
	}

	var response searchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}

	results := make([]SearchResult, 0, len(response.Items))
	for _, item := range response.Items {
		results = append(results, SearchResult{
			Kind:         item.ID.Kind,
			VideoID:      item.ID.VideoID,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
		})
	}

	return results, nil
}
