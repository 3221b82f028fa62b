package resolver

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ProviderWithMetadata wraps a provider with its metadata.
type ProviderWithMetadata struct {
	Provider    Provider
	DisplayName string
}

// ProviderChain tries multiple providers in order until one returns a video.
type ProviderChain struct {
	providers []ProviderWithMetadata
}

// NewProviderChain creates a new provider chain.
func NewProviderChain(providers []ProviderWithMetadata) *ProviderChain {
	return &ProviderChain{
		providers: providers,
	}
}

// Search returns the results of the first provider that yields a video.
// If no provider does, the last provider error (if any) is returned.
func (c *ProviderChain) Search(ctx context.Context, query string) ([]Result, error) {
	var lastErr error

	for i, pm := range c.providers {
		zlog.Debug().Msgf("trying search provider: index=%d total=%d name=%s provider_type=%s",
			i+1, len(c.providers), pm.DisplayName, pm.Provider.Name())

		results, err := pm.Provider.Search(ctx, query)
		if err != nil {
			zlog.Warn().Msgf("search provider failed, trying next: provider=%s error=%v", pm.DisplayName, err)
			lastErr = errors.Wrapf(err, "provider %s", pm.DisplayName)
			continue
		}

		if _, ok := firstVideo(results); !ok {
			zlog.Debug().Msgf("search provider returned no video: provider=%s results=%d", pm.DisplayName, len(results))
			continue
		}

		return results, nil
	}

	return nil, lastErr
}

// Len returns the number of providers in the chain.
func (c *ProviderChain) Len() int {
	return len(c.providers)
}

// Name returns the chain name.
func (c *ProviderChain) Name() string {
	return "provider_chain"
}
