package resolver

import (
	"context"

	"github.com/ppalone/ytsearch"
)

// YTSearchProvider searches YouTube without an API key by scraping result pages.
type YTSearchProvider struct {
	client *ytsearch.Client
}

// NewYTSearchProvider creates a keyless search provider.
func NewYTSearchProvider() *YTSearchProvider {
	return &YTSearchProvider{client: ytsearch.NewClient(nil)}
}

// Search implements Provider. Every hit is a video.
func (p *YTSearchProvider) Search(ctx context.Context, query string) ([]Result, error) {
	res, err := p.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(res.Results))
	for _, v := range res.Results {
		results = append(results, Result{
			Kind:    KindVideo,
			VideoID: v.VideoID,
			Title:   v.Title,
		})
	}
	return results, nil
}

// Name implements Provider.
func (p *YTSearchProvider) Name() string {
	return "ytsearch"
}
