package resolver

import (
	"context"

	"github.com/raitonoberu/ytmusic"
)

// YTMusicProvider searches the YouTube Music song catalogue.
type YTMusicProvider struct{}

// NewYTMusicProvider creates a YouTube Music search provider.
func NewYTMusicProvider() *YTMusicProvider {
	return &YTMusicProvider{}
}

// Search implements Provider. The library has no context support, so ctx is
// only checked before the request.
func (p *YTMusicProvider) Search(ctx context.Context, query string) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := ytmusic.TrackSearch(query).Next()
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(res.Tracks))
	for _, v := range res.Tracks {
		if v.VideoID == "" {
			continue
		}
		results = append(results, Result{
			Kind:    KindVideo,
			VideoID: v.VideoID,
			Title:   v.Title,
		})
	}
	return results, nil
}

// Name implements Provider.
func (p *YTMusicProvider) Name() string {
	return "ytmusic"
}
