// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/nowtify/internal/api/connect"
	"github.com/osa030/nowtify/internal/api/ws"
	"github.com/osa030/nowtify/internal/app/lyrics"
	"github.com/osa030/nowtify/internal/app/playback"
	"github.com/osa030/nowtify/internal/app/poller"
	"github.com/osa030/nowtify/internal/app/resolver"
	"github.com/osa030/nowtify/internal/app/session"
	"github.com/osa030/nowtify/internal/infra/cache"
	"github.com/osa030/nowtify/internal/infra/config"
	"github.com/osa030/nowtify/internal/infra/logger"
	"github.com/osa030/nowtify/internal/infra/lrclib"
	"github.com/osa030/nowtify/internal/infra/spotify"
)

var (
	app        = kingpin.New("nowtify-server", "nowtify playback sync server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-providers command
	listProvidersCmd = app.Command("list-providers", "List available search providers and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Handle list-providers command
	if command == listProvidersCmd.FullCommand() {
		printProviders()
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closeLog()

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// Run server (defer ensures shutdown hook is called)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		closeLog()
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	// Create reference resolver (cache + search provider chain)
	refs, closeCache, err := newResolver(cfg)
	if err != nil {
		return fmt.Errorf("failed to create resolver: %w", err)
	}
	defer closeCache()
	defer refs.Flush()
	if !refs.HasSearcher() {
		zlog.Warn().Msg("no search provider configured: uncached tracks will stop viewers")
	}
	zlog.Info().Msgf("resolver ready: cache=%t search=%t", refs.HasCache(), refs.HasSearcher())

	// Create lyrics resolver
	var lyricsResolver playback.LyricsResolver
	if cfg.Lyrics.Enabled {
		lyricsResolver = lyrics.New(lrclib.New(lrclib.Config{
			BaseURL: cfg.Lyrics.BaseURL,
			Timeout: cfg.LyricsTimeout(),
		}))
		zlog.Info().Msgf("lyrics enabled: base_url=%s", cfg.Lyrics.BaseURL)
	}

	// Create Spotify poller source
	var source poller.Source
	if cfg.Spotify.Enabled {
		spotifyClient, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
		})
		if err != nil {
			return fmt.Errorf("failed to create Spotify client: %w", err)
		}
		source = spotifyClient
	}

	// Create session manager
	sessionMgr := session.NewManager(cfg, refs, lyricsResolver, source)

	// Create HTTP mux
	mux := http.NewServeMux()

	// Register services
	syncPath, syncHandler := apiconnect.NewSyncServiceHandler(
		apiconnect.NewSyncService(sessionMgr),
		connect.WithInterceptors(apiconnect.NewListenerTokenInterceptor(cfg.Server.ListenerToken)),
	)
	mux.Handle(syncPath, syncHandler)
	mux.Handle("/ws", ws.NewHandler(sessionMgr, cfg.Server.ListenerToken))
	if cfg.Server.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.Server.StaticDir)))
		zlog.Info().Msgf("serving viewer page: dir=%s", cfg.Server.StaticDir)
	}

	// Determine server address
	serverAddr := cfg.Server.Addr
	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    serverAddr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start session
	if err := sessionMgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", serverAddr)
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		sessionMgr.Close()
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close session manager first to terminate active connections/streams
	sessionMgr.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// newResolver builds the reference resolver from the cache and search settings.
// The returned function closes the cache store.
func newResolver(cfg *config.Config) (*resolver.Resolver, func(), error) {
	chain, err := resolver.NewProviderChainFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []resolver.Option{resolver.WithQuerySuffix(cfg.Search.QuerySuffix)}
	if chain.Len() > 0 {
		opts = append(opts, resolver.WithSearcher(chain))
	}

	closeFn := func() {}
	switch cfg.Cache.Driver {
	case config.CacheDriverMemory:
		mem, err := cache.NewMemoryStore(cfg.Cache.MemorySize)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, resolver.WithCache(mem))
		zlog.Info().Msgf("reference cache: driver=memory size=%d", cfg.Cache.MemorySize)

	case config.CacheDriverSQLite:
		store, err := cache.OpenSQLite(cfg.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		mem, err := cache.NewMemoryStore(cfg.Cache.MemorySize)
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		opts = append(opts, resolver.WithCache(cache.NewTiered(mem, store)))
		closeFn = func() {
			if err := store.Close(); err != nil {
				zlog.Warn().Msgf("failed to close cache: %v", err)
			}
		}
		if n, err := store.Count(context.Background()); err == nil {
			zlog.Info().Msgf("reference cache: driver=sqlite path=%s entries=%d", cfg.Cache.Path, n)
		}

	default:
		zlog.Info().Msg("reference cache disabled")
	}

	return resolver.New(opts...), closeFn, nil
}

// printProviders prints available search providers.
func printProviders() {
	fmt.Println("Available Search Providers:")
	for _, p := range resolver.AvailableProviders() {
		key := ""
		if p.NeedsKey {
			key = " [api_key required]"
		}
		fmt.Printf("  %-10s - %s%s\n", p.Type, p.Description, key)
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
