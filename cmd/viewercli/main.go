// Package main provides the viewer/listener CLI for testing.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/nowtify/internal/api/connect"
	"github.com/osa030/nowtify/internal/app/notification"
	"github.com/osa030/nowtify/internal/domain/command"
)

var (
	app    = kingpin.New("nowtify-viewercli", "nowtify viewer client for testing")
	server = app.Flag("server", "Server address").Default("http://localhost:8888").String()

	// subscribe command
	subscribeCmd = app.Command("subscribe", "Subscribe to sync commands")

	// report command
	reportCmd      = app.Command("report", "Report a playback status as the listener")
	reportToken    = reportCmd.Flag("token", "Listener token").Envar("LISTENER_TOKEN").String()
	reportStop     = reportCmd.Flag("stop", "Report that nothing is playing").Bool()
	reportPaused   = reportCmd.Flag("paused", "Report the player as paused").Bool()
	reportProgress = reportCmd.Flag("progress", "Playback position in ms").Default("0").Int()
	reportDuration = reportCmd.Flag("duration", "Track duration in ms").Default("0").Int()
	reportArt      = reportCmd.Flag("album-art", "Album art URL").String()
	reportURI      = reportCmd.Arg("uri", "Spotify track URI (spotify:track:<id>)").String()
	reportName     = reportCmd.Arg("name", "Track name").String()
	reportArtists  = reportCmd.Arg("artists", "Artist names").Strings()

	// state command
	stateCmd = app.Command("state", "Show the session state")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Create client
	client := apiconnect.NewSyncServiceClient(
		http.DefaultClient,
		*server,
	)

	ctx := context.Background()

	// Execute command
	switch cmd {
	case subscribeCmd.FullCommand():
		subscribe(ctx, client)
	case reportCmd.FullCommand():
		report(ctx, client)
	case stateCmd.FullCommand():
		showState(ctx, client)
	}
}

func report(ctx context.Context, client *apiconnect.SyncServiceClient) {
	status := &apiconnect.StatusReport{
		IsPlaying:  !*reportPaused,
		ProgressMs: *reportProgress,
	}
	if !*reportStop {
		if *reportURI == "" || *reportName == "" {
			fmt.Println("Error: uri and name are required unless --stop is given")
			os.Exit(1)
		}
		status.Item = buildTrack(*reportURI, *reportName, *reportArtists, *reportDuration, *reportArt)
	}

	req := connect.NewRequest(status)
	if *reportToken != "" {
		req.Header().Set(apiconnect.ListenerTokenHeader, *reportToken)
	}

	resp, err := client.ReportStatus(ctx, req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if resp.Msg.Superseded {
		fmt.Println("Superseded by a newer report")
		return
	}
	fmt.Println("Broadcast:")
	printCommand(resp.Msg.Command)
}

func buildTrack(uri, name string, artists []string, durationMs int, albumArt string) *apiconnect.ReportedTrack {
	t := &apiconnect.ReportedTrack{
		URI:        uri,
		ID:         uri[strings.LastIndex(uri, ":")+1:],
		Name:       name,
		DurationMs: durationMs,
	}
	for _, a := range artists {
		t.Artists = append(t.Artists, apiconnect.ReportedArtist{Name: a})
	}
	if albumArt != "" {
		t.Album = &apiconnect.ReportedAlbum{Images: []apiconnect.ReportedImage{{URL: albumArt}}}
	}
	return t
}

func showState(ctx context.Context, client *apiconnect.SyncServiceClient) {
	resp, err := client.GetState(ctx, connect.NewRequest(&apiconnect.GetStateRequest{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	s := resp.Msg
	fmt.Println("Session State:")
	fmt.Printf("  Phase: %s\n", s.Phase)
	fmt.Printf("  Track URI: %s\n", s.TrackURI)
	fmt.Printf("  Video ID: %s\n", s.VideoRef)
	fmt.Printf("  Title: %s\n", s.DisplayTitle)
	fmt.Printf("  Viewers: %d\n", s.ViewerCount)
	fmt.Printf("  Spotify polling: %v\n", s.Polling)
	fmt.Printf("  Loaded/Unresolved/Stopped/StateChanged/Superseded: %d/%d/%d/%d/%d\n",
		s.Loaded, s.Unresolved, s.Stopped, s.StateChanged, s.Superseded)
}

func subscribe(ctx context.Context, client *apiconnect.SyncServiceClient) {
	stream, err := client.Subscribe(ctx, connect.NewRequest(&apiconnect.SubscribeRequest{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Subscribed to sync commands. Press Ctrl+C to exit.")

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nUnsubscribing...")
		os.Exit(0)
	}()

	// Receive commands
	for stream.Receive() {
		printMessage(stream.Msg())
	}

	if err := stream.Err(); err != nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printMessage(msg *notification.Message) {
	fmt.Printf("\n[Sequence: %d] ", msg.SequenceNo)
	printCommand(&msg.Command)
}

func printCommand(c *command.Command) {
	if c == nil {
		fmt.Println("  (none)")
		return
	}

	switch c.Kind {
	case command.KindLoad:
		fmt.Println("=== LOAD ===")
	case command.KindPlay:
		fmt.Println("=== PLAY ===")
	case command.KindPause:
		fmt.Println("=== PAUSE ===")
	case command.KindStop:
		fmt.Println("=== STOP ===")
		return
	default:
		fmt.Printf("=== UNKNOWN COMMAND (%s) ===\n", c.Kind)
	}

	fmt.Printf("  Title: %s\n", c.DisplayTitle)
	fmt.Printf("  Video ID: %s\n", c.VideoRef)
	fmt.Printf("  Progress: %d / %d ms\n", c.ProgressMs, c.DurationMs)
	if c.AlbumArtURL != "" {
		fmt.Printf("  Album Art URL: %s\n", c.AlbumArtURL)
	}
	if c.Lyrics != nil {
		fmt.Printf("  Lyrics (%s):\n", c.Lyrics.Format)
		for _, line := range strings.Split(c.Lyrics.LRC, "\n") {
			fmt.Printf("    %s\n", line)
		}
	}
}
