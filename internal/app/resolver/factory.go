package resolver

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nowtify/internal/infra/config"
	"github.com/osa030/nowtify/internal/infra/youtube"
)

// ProviderInfo describes a supported provider type.
type ProviderInfo struct {
	Type        string
	Description string
	NeedsKey    bool
}

// AvailableProviders lists the provider types accepted in search.providers.
func AvailableProviders() []ProviderInfo {
	return []ProviderInfo{
		{Type: "youtube", Description: "YouTube Data API v3 search (quota limited)", NeedsKey: true},
		{Type: "ytsearch", Description: "keyless YouTube result page search", NeedsKey: false},
		{Type: "ytmusic", Description: "YouTube Music song search", NeedsKey: false},
	}
}

// NewProviderChainFromConfig creates a provider chain from configuration.
// A youtube provider without an API key is skipped with a warning, so a chain
// may end up empty; an empty chain never finds anything.
func NewProviderChainFromConfig(cfg *config.Config) (*ProviderChain, error) {
	var providers []ProviderWithMetadata

	for i, pcfg := range cfg.Search.Providers {
		var provider Provider
		var err error
		zlog.Debug().Msgf("creating search provider: index=%d type=%s", i+1, pcfg.Type)
		switch pcfg.Type {
		case "youtube":
			provider, err = NewYouTubeProvider(pcfg.Settings)
			if errors.Is(err, youtube.ErrMissingAPIKey) {
				zlog.Warn().Msgf("search provider disabled, no API key: index=%d type=%s", i+1, pcfg.Type)
				continue
			}

		case "ytsearch":
			provider = NewYTSearchProvider()

		case "ytmusic":
			provider = NewYTMusicProvider()

		default:
			return nil, errors.Newf("unsupported provider type: %s (provider index %d)", pcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider (index %d, type %s)", i, pcfg.Type)
		}

		displayName := pcfg.DisplayName
		if displayName == "" {
			displayName = pcfg.Type
		}
		providers = append(providers, ProviderWithMetadata{
			Provider:    provider,
			DisplayName: displayName,
		})

		zlog.Info().Msgf("registered search provider: index=%d type=%s display_name=%s", i+1, pcfg.Type, displayName)
	}

	if len(providers) == 0 {
		zlog.Warn().Msg("no search provider available, tracks will not resolve unless cached")
	}

	return NewProviderChain(providers), nil
}
