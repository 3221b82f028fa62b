package resolver

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/nowtify/internal/infra/youtube"
)

// YouTubeClient defines the interface for YouTube Data API operations.
type YouTubeClient interface {
	Search(ctx context.Context, query string, maxResults int) ([]youtube.SearchResult, error)
}

// YouTubeProviderConfig is decoded from a provider's settings map.
type YouTubeProviderConfig struct {
	APIKey            string  `yaml:"api_key" mapstructure:"api_key"`
	MaxResults        int     `yaml:"max_results" mapstructure:"max_results" default:"1" validate:"gte=1,lte=50"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" default:"0" validate:"gte=0"`
	TimeoutMs         int     `yaml:"timeout_ms" mapstructure:"timeout_ms" default:"10000" validate:"gte=0"`
}

// YouTubeProvider searches with the YouTube Data API v3.
type YouTubeProvider struct {
	client     YouTubeClient
	maxResults int
}

// NewYouTubeProvider creates a provider from settings.
// A missing api_key yields youtube.ErrMissingAPIKey.
func NewYouTubeProvider(settings map[string]any) (*YouTubeProvider, error) {
	var config YouTubeProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	client, err := youtube.New(youtube.Config{
		APIKey:            config.APIKey,
		RequestsPerSecond: config.RequestsPerSecond,
		Timeout:           time.Duration(config.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}

	return newYouTubeProvider(client, config.MaxResults), nil
}

func newYouTubeProvider(client YouTubeClient, maxResults int) *YouTubeProvider {
	return &YouTubeProvider{client: client, maxResults: maxResults}
}

// Search implements Provider.
func (p *YouTubeProvider) Search(ctx context.Context, query string) ([]Result, error) {
	hits, err := p.client.Search(ctx, query, p.maxResults)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			Kind:    h.Kind,
			VideoID: h.VideoID,
			Title:   h.Title,
		})
	}
	return results, nil
}

// Name implements Provider.
func (p *YouTubeProvider) Name() string {
	return "youtube"
}
