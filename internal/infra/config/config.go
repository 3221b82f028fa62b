// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Cache drivers.
const (
	CacheDriverNone   = "none"
	CacheDriverMemory = "memory"
	CacheDriverSQLite = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Sync    SyncConfig    `yaml:"sync"`
	Search  SearchConfig  `yaml:"search"`
	Lyrics  LyricsConfig  `yaml:"lyrics"`
	Cache   CacheConfig   `yaml:"cache"`
	Spotify SpotifyConfig `yaml:"spotify"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr          string      `yaml:"addr" default:":8888"`
	ListenerToken string      `yaml:"listener_token"` // Empty accepts status reports from anyone
	StaticDir     string      `yaml:"static_dir"`     // Viewer page directory served at "/"
	Hooks         HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

const defaultLyricsWaitMs = 2000

// SyncConfig represents sync engine configuration.
type SyncConfig struct {
	// LyricsWaitMs bounds how long a load waits for lyrics after the video resolved.
	// 0 loads without waiting, -1 waits until lyrics resolve.
	LyricsWaitMs   *int `yaml:"lyrics_wait_ms" default:"2000" validate:"omitempty,gte=-1,lte=30000"`
	RetryBackoffMs int `yaml:"retry_backoff_ms" default:"0" validate:"gte=0,lte=600000"`
}

// SearchConfig represents video search configuration.
type SearchConfig struct {
	QuerySuffix string           `yaml:"query_suffix"`
	Providers   []ProviderConfig `yaml:"providers" validate:"dive"`
}

// ProviderConfig represents a single search provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required"`
	DisplayName string         `yaml:"display_name"`
	Settings    map[string]any `yaml:"settings"`
}

// LyricsConfig represents lyrics provider configuration.
type LyricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url" default:"https://lrclib.net/api/" validate:"omitempty,url"`
	TimeoutMs int    `yaml:"timeout_ms" default:"10000" validate:"gte=0"`
}

// CacheConfig represents reference cache configuration.
type CacheConfig struct {
	Driver     string `yaml:"driver" default:"memory" validate:"oneof=none memory sqlite"`
	Path       string `yaml:"path" default:"nowtify.db" validate:"required_if=Driver sqlite"`
	MemorySize int    `yaml:"memory_size" default:"512" validate:"gte=1"`
}

// SpotifyConfig represents Spotify API configuration.
// Credentials are only required when the server polls Spotify itself.
type SpotifyConfig struct {
	Enabled        bool   `yaml:"enabled"`
	ClientID       string `yaml:"client_id" validate:"required_if=Enabled true"`
	ClientSecret   string `yaml:"client_secret" validate:"required_if=Enabled true"`
	RefreshToken   string `yaml:"refresh_token" validate:"required_if=Enabled true"`
	PollIntervalMs int    `yaml:"poll_interval_ms" default:"1000" validate:"gte=250"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return cfg, nil
}

// Read loads configuration like Load without validating it. Tools that need
// only part of the configuration check what they use themselves.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		c.setYouTubeAPIKey(v)
	}
	if v := os.Getenv("LISTENER_TOKEN"); v != "" {
		c.Server.ListenerToken = v
	}
	if v := os.Getenv("CACHE_PATH"); v != "" {
		c.Cache.Path = v
	}
}

// setYouTubeAPIKey sets the key on the first youtube provider, adding one in
// front of the chain when none is configured.
func (c *Config) setYouTubeAPIKey(key string) {
	for i := range c.Search.Providers {
		if c.Search.Providers[i].Type != "youtube" {
			continue
		}
		if c.Search.Providers[i].Settings == nil {
			c.Search.Providers[i].Settings = map[string]any{}
		}
		c.Search.Providers[i].Settings["api_key"] = key
		return
	}
	c.Search.Providers = append([]ProviderConfig{{
		Type:     "youtube",
		Settings: map[string]any{"api_key": key},
	}}, c.Search.Providers...)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// LyricsWait returns the sync lyrics wait. Zero loads without waiting and a
// negative value waits until lyrics resolve. Unset means the default 2s.
func (c *Config) LyricsWait() time.Duration {
	ms := defaultLyricsWaitMs
	if c.Sync.LyricsWaitMs != nil {
		ms = *c.Sync.LyricsWaitMs
	}
	if ms < 0 {
		return -1
	}
	return time.Duration(ms) * time.Millisecond
}

// RetryBackoff returns the minimum delay before re-resolving a failed track.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Sync.RetryBackoffMs) * time.Millisecond
}

// PollInterval returns the Spotify polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Spotify.PollIntervalMs) * time.Millisecond
}

// LyricsTimeout returns the lyrics request timeout.
func (c *Config) LyricsTimeout() time.Duration {
	return time.Duration(c.Lyrics.TimeoutMs) * time.Millisecond
}
