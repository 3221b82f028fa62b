package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func intPtr(v int) *int {
	return &v
}

func TestLoad_LyricsWait(t *testing.T) {
	tests := []struct {
		name string
		body string
		want time.Duration
	}{
		{name: "unset uses default", body: "sync: {}\n", want: 2 * time.Second},
		{name: "zero skips waiting", body: "sync:\n  lyrics_wait_ms: 0\n", want: 0},
		{name: "bounded", body: "sync:\n  lyrics_wait_ms: 150\n", want: 150 * time.Millisecond},
		{name: "unbounded", body: "sync:\n  lyrics_wait_ms: -1\n", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.LyricsWait())
		})
	}
}

func TestRead_SkipsValidation(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "id-from-env")
	t.Setenv("SPOTIFY_REFRESH_TOKEN", "")
	path := writeConfig(t, "spotify:\n  enabled: true\n  client_secret: \"secret\"\n")

	_, err := Load(path)
	require.Error(t, err)

	cfg, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "id-from-env", cfg.Spotify.ClientID)
	assert.Equal(t, "secret", cfg.Spotify.ClientSecret)
	assert.Empty(t, cfg.Spotify.RefreshToken)
	assert.Equal(t, 1000, cfg.Spotify.PollIntervalMs)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  addr: \":9090\"\n"))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	require.NotNil(t, cfg.Sync.LyricsWaitMs)
	assert.Equal(t, 2000, *cfg.Sync.LyricsWaitMs)
	assert.Equal(t, 0, cfg.Sync.RetryBackoffMs)
	assert.Equal(t, CacheDriverMemory, cfg.Cache.Driver)
	assert.Equal(t, 512, cfg.Cache.MemorySize)
	assert.Equal(t, "https://lrclib.net/api/", cfg.Lyrics.BaseURL)
	assert.False(t, cfg.Lyrics.Enabled)
	assert.False(t, cfg.Spotify.Enabled)
	assert.Equal(t, time.Second, cfg.PollInterval())
	assert.Equal(t, 2*time.Second, cfg.LyricsWait())
	assert.Empty(t, cfg.Search.Providers)
}

func TestLoad_FullConfig(t *testing.T) {
	body := `
server:
  addr: ":8080"
  listener_token: "secret"
  static_dir: "web"
  hooks:
    on_started: ["echo started"]
sync:
  lyrics_wait_ms: -1
  retry_backoff_ms: 5000
search:
  query_suffix: "official audio"
  providers:
    - type: youtube
      display_name: "Data API"
      settings:
        api_key: "from-file"
        max_results: 5
    - type: ytsearch
lyrics:
  enabled: true
  timeout_ms: 3000
cache:
  driver: sqlite
  path: "/var/lib/nowtify/cache.db"
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Server.ListenerToken)
	assert.Equal(t, []string{"echo started"}, cfg.Server.Hooks.OnStarted)
	assert.Less(t, cfg.LyricsWait(), time.Duration(0))
	assert.Equal(t, 5*time.Second, cfg.RetryBackoff())
	assert.Equal(t, 3*time.Second, cfg.LyricsTimeout())
	require.Len(t, cfg.Search.Providers, 2)
	assert.Equal(t, "from-file", cfg.Search.Providers[0].Settings["api_key"])
	assert.Equal(t, 5, cfg.Search.Providers[0].Settings["max_results"])
	assert.Equal(t, CacheDriverSQLite, cfg.Cache.Driver)
	assert.True(t, cfg.Lyrics.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "env-key")
	t.Setenv("LISTENER_TOKEN", "env-token")
	t.Setenv("CACHE_PATH", "/tmp/env.db")
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")
	t.Setenv("SPOTIFY_REFRESH_TOKEN", "refresh")

	body := `
search:
  providers:
    - type: ytsearch
    - type: youtube
spotify:
  enabled: true
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)

	require.Len(t, cfg.Search.Providers, 2)
	assert.Equal(t, "env-key", cfg.Search.Providers[1].Settings["api_key"])
	assert.Equal(t, "env-token", cfg.Server.ListenerToken)
	assert.Equal(t, "/tmp/env.db", cfg.Cache.Path)
	assert.Equal(t, "id", cfg.Spotify.ClientID)
}

func TestLoad_EnvKeyAddsYouTubeProvider(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "env-key")

	cfg, err := Load(writeConfig(t, "search:\n  providers:\n    - type: ytmusic\n"))
	require.NoError(t, err)

	require.Len(t, cfg.Search.Providers, 2)
	assert.Equal(t, "youtube", cfg.Search.Providers[0].Type)
	assert.Equal(t, "env-key", cfg.Search.Providers[0].Settings["api_key"])
	assert.Equal(t, "ytmusic", cfg.Search.Providers[1].Type)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:  ServerConfig{Addr: ":8080"},
			Sync:    SyncConfig{LyricsWaitMs: intPtr(2000)},
			Cache:   CacheConfig{Driver: CacheDriverMemory, MemorySize: 16},
			Spotify: SpotifyConfig{PollIntervalMs: 1000},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{
			name:    "spotify enabled without credentials",
			mutate:  func(c *Config) { c.Spotify.Enabled = true },
			wantErr: true,
			errMsg:  "ClientID",
		},
		{
			name: "spotify enabled with credentials",
			mutate: func(c *Config) {
				c.Spotify = SpotifyConfig{Enabled: true, ClientID: "i", ClientSecret: "s", RefreshToken: "r", PollIntervalMs: 1000}
			},
		},
		{
			name:    "unknown cache driver",
			mutate:  func(c *Config) { c.Cache.Driver = "redis" },
			wantErr: true,
			errMsg:  "Driver",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Cache.Driver = CacheDriverSQLite },
			wantErr: true,
			errMsg:  "Path",
		},
		{
			name:    "provider without type",
			mutate:  func(c *Config) { c.Search.Providers = []ProviderConfig{{DisplayName: "x"}} },
			wantErr: true,
			errMsg:  "Type",
		},
		{
			name:    "poll interval too short",
			mutate:  func(c *Config) { c.Spotify.PollIntervalMs = 10 },
			wantErr: true,
			errMsg:  "PollIntervalMs",
		},
		{
			name:    "lyrics wait below -1",
			mutate:  func(c *Config) { c.Sync.LyricsWaitMs = intPtr(-5) },
			wantErr: true,
			errMsg:  "LyricsWaitMs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
