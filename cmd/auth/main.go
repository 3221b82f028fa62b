// Package main provides the tool that authorizes nowtify to read a Spotify player.
//
// Client credentials come from the server config (or SPOTIFY_CLIENT_ID /
// SPOTIFY_CLIENT_SECRET). The resulting refresh token is checked against the
// player API and printed as a config snippet.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"

	"github.com/osa030/nowtify/internal/domain/track"
	"github.com/osa030/nowtify/internal/infra/config"
	"github.com/osa030/nowtify/internal/infra/logger"
	"github.com/osa030/nowtify/internal/infra/spotify"
)

var (
	app        = kingpin.New("nowtify-auth", "Authorize nowtify to read your Spotify player")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	port       = app.Flag("port", "Callback server port").Default("8889").Int()
	timeout    = app.Flag("timeout", "How long to wait for the browser callback").Default("5m").Duration()
	skipVerify = app.Flag("skip-verify", "Do not call the player API with the new token").Bool()
)

func main() {
	_ = godotenv.Load()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	closeLog, err := logger.Init(logger.Config{Output: "stderr", Level: "info"})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closeLog()

	if err := run(); err != nil {
		zlog.Error().Msgf("Authorization failed: %v", err)
		closeLog()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Read(*configPath)
	if err != nil {
		return err
	}
	if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
		return errors.New("spotify.client_id and spotify.client_secret are required (config file or SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redirectURL := fmt.Sprintf("http://127.0.0.1:%d/callback", *port)
	flow := newCallbackFlow(spotifyauth.New(
		spotifyauth.WithRedirectURL(redirectURL),
		spotifyauth.WithClientID(cfg.Spotify.ClientID),
		spotifyauth.WithClientSecret(cfg.Spotify.ClientSecret),
		spotifyauth.WithScopes(spotify.Scopes...),
	))

	mux := http.NewServeMux()
	mux.Handle("/callback", flow)
	server := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", *port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			flow.fail(errors.Wrap(err, "callback server failed"))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Warn().Msgf("Failed to shutdown callback server: %v", err)
		}
	}()

	zlog.Info().Msgf("Open this URL to authorize nowtify: url=%s", flow.authURL())

	waitCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	token, err := flow.wait(waitCtx)
	if err != nil {
		return err
	}
	if token.RefreshToken == "" {
		return errors.New("spotify returned no refresh token")
	}

	if !*skipVerify {
		if err := verify(ctx, cfg, token.RefreshToken, os.Stdout); err != nil {
			return err
		}
	}

	return printSettings(os.Stdout, *configPath, token.RefreshToken)
}

// callbackFlow handles the single OAuth redirect of an authorization attempt.
type callbackFlow struct {
	auth   *spotifyauth.Authenticator
	state  string
	tokens chan *oauth2.Token
	errs   chan error
}

func newCallbackFlow(auth *spotifyauth.Authenticator) *callbackFlow {
	return &callbackFlow{
		auth:   auth,
		state:  uuid.NewString(),
		tokens: make(chan *oauth2.Token, 1),
		errs:   make(chan error, 1),
	}
}

func (f *callbackFlow) authURL() string {
	return f.auth.AuthURL(f.state)
}

func (f *callbackFlow) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if got := r.FormValue("state"); got != f.state {
		http.Error(w, "state mismatch", http.StatusForbidden)
		zlog.Warn().Msgf("Callback with unexpected state ignored: state=%q", got)
		return
	}
	if reason := r.FormValue("error"); reason != "" {
		http.Error(w, "authorization denied", http.StatusForbidden)
		f.fail(errors.Newf("authorization denied: %s", reason))
		return
	}

	token, err := f.auth.Token(r.Context(), f.state, r)
	if err != nil {
		http.Error(w, "token exchange failed", http.StatusBadGateway)
		f.fail(errors.Wrap(err, "token exchange failed"))
		return
	}

	fmt.Fprintln(w, "nowtify is authorized. You can close this window and return to the terminal.")
	select {
	case f.tokens <- token:
	default:
	}
}

// fail records the first error; later ones are dropped.
func (f *callbackFlow) fail(err error) {
	select {
	case f.errs <- err:
	default:
	}
}

func (f *callbackFlow) wait(ctx context.Context) (*oauth2.Token, error) {
	select {
	case token := <-f.tokens:
		return token, nil
	case err := <-f.errs:
		return nil, err
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "no authorization callback received")
	}
}

// playerSource is the part of the Spotify client verify needs.
type playerSource interface {
	CurrentlyPlaying(ctx context.Context) (track.Snapshot, error)
}

// verify reads the player once with the new token, the way the server poller will.
func verify(ctx context.Context, cfg *config.Config, refreshToken string, w io.Writer) error {
	client, err := spotify.New(ctx, spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RefreshToken: refreshToken,
	})
	if err != nil {
		return err
	}
	return reportPlayer(ctx, client, w)
}

func reportPlayer(ctx context.Context, source playerSource, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	snap, err := source.CurrentlyPlaying(ctx)
	if err != nil {
		return errors.Wrap(err, "token verification failed")
	}
	if snap.Track == nil {
		fmt.Fprintln(w, "Token verified: nothing is playing right now.")
		return nil
	}
	fmt.Fprintf(w, "Token verified: now playing %q\n", snap.Track.DisplayTitle())
	return nil
}

type spotifySettings struct {
	Spotify struct {
		Enabled      bool   `yaml:"enabled"`
		RefreshToken string `yaml:"refresh_token"`
	} `yaml:"spotify"`
}

// printSettings writes the config snippet and env export for the refresh token.
func printSettings(w io.Writer, configFile, refreshToken string) error {
	var settings spotifySettings
	settings.Spotify.Enabled = true
	settings.Spotify.RefreshToken = refreshToken

	snippet, err := yaml.Marshal(&settings)
	if err != nil {
		return errors.Wrap(err, "failed to render config snippet")
	}

	fmt.Fprintf(w, "\nAdd this to %s:\n\n%s\nor export it:\n\nexport SPOTIFY_REFRESH_TOKEN=%q\n", configFile, snippet, refreshToken)
	return nil
}
