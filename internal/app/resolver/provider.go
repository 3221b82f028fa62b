// Package resolver resolves tracks to playable video references.
package resolver

import "context"

// KindVideo is the result kind accepted as a playable reference.
const KindVideo = "youtube#video"

// Result represents a single search hit.
type Result struct {
	Kind    string
	VideoID string
	Title   string
}

// Provider is the interface for video search providers.
// Different implementations can search through various backends
// (e.g., the official Data API, keyless scraping).
type Provider interface {
	// Search returns hits for query in provider order.
	Search(ctx context.Context, query string) ([]Result, error)

	// Name returns the provider name (used in config).
	Name() string
}

// firstVideo returns the first result of kind video.
func firstVideo(results []Result) (Result, bool) {
	for _, r := range results {
		if r.Kind == KindVideo && r.VideoID != "" {
			return r, true
		}
	}
	return Result{}, false
}
