package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/nowtify/internal/app/notification"
	"github.com/osa030/nowtify/internal/app/session"
	"github.com/osa030/nowtify/internal/domain/command"
	"github.com/osa030/nowtify/internal/infra/config"
)

type tableResolver map[string]string

func (r tableResolver) Resolve(_ context.Context, _ string, trackID string) (string, bool) {
	ref, ok := r[trackID]
	return ref, ok
}

func newTestServer(t *testing.T, token string) (*SyncServiceClient, *session.Manager) {
	t.Helper()

	cfg := &config.Config{Spotify: config.SpotifyConfig{PollIntervalMs: 1000}}
	mgr := session.NewManager(cfg, tableResolver{"1": "v1"}, nil, nil)
	require.NoError(t, mgr.Start(context.Background()))

	mux := http.NewServeMux()
	path, handler := NewSyncServiceHandler(
		NewSyncService(mgr),
		connect.WithInterceptors(NewListenerTokenInterceptor(token)),
	)
	mux.Handle(path, handler)

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		mgr.Close()
		server.Close()
	})

	return NewSyncServiceClient(server.Client(), server.URL), mgr
}

func report(uri, id string, playing bool, progress int) *StatusReport {
	return &StatusReport{
		Item: &ReportedTrack{
			URI:        uri,
			ID:         id,
			Name:       "X",
			Artists:    []ReportedArtist{{Name: "Y"}},
			Album:      &ReportedAlbum{Images: []ReportedImage{{URL: "https://i.scdn.co/image/a"}}},
			DurationMs: 200000,
		},
		IsPlaying:  playing,
		ProgressMs: progress,
	}
}

func TestSyncService_ReportAndSubscribe(t *testing.T) {
	client, _ := newTestServer(t, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.Subscribe(ctx, connect.NewRequest(&SubscribeRequest{}))
	require.NoError(t, err)
	defer stream.Close()

	require.Eventually(t, func() bool {
		res, err := client.GetState(ctx, connect.NewRequest(&GetStateRequest{}))
		return err == nil && res.Msg.ViewerCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	res, err := client.ReportStatus(ctx, connect.NewRequest(report("a", "1", true, 0)))
	require.NoError(t, err)
	require.NotNil(t, res.Msg.Command)
	assert.Equal(t, command.KindLoad, res.Msg.Command.Kind)
	assert.Equal(t, "v1", res.Msg.Command.VideoRef)
	assert.Equal(t, "Y - X", res.Msg.Command.DisplayTitle)
	assert.Equal(t, "https://i.scdn.co/image/a", res.Msg.Command.AlbumArtURL)

	_, err = client.ReportStatus(ctx, connect.NewRequest(report("a", "1", false, 5000)))
	require.NoError(t, err)

	require.True(t, stream.Receive(), "stream error: %v", stream.Err())
	assert.Equal(t, uint64(1), stream.Msg().SequenceNo)
	assert.Equal(t, command.KindLoad, stream.Msg().Command.Kind)

	require.True(t, stream.Receive(), "stream error: %v", stream.Err())
	assert.Equal(t, uint64(2), stream.Msg().SequenceNo)
	assert.Equal(t, command.KindPause, stream.Msg().Command.Kind)
	assert.Equal(t, 5000, stream.Msg().Command.ProgressMs)

	state, err := client.GetState(ctx, connect.NewRequest(&GetStateRequest{}))
	require.NoError(t, err)
	assert.Equal(t, "loaded", state.Msg.Phase)
	assert.Equal(t, "a", state.Msg.TrackURI)
	assert.Equal(t, "v1", state.Msg.VideoRef)
}

func TestSyncService_EmptyReportStops(t *testing.T) {
	client, mgr := newTestServer(t, "")

	res, err := client.ReportStatus(context.Background(), connect.NewRequest(&StatusReport{}))
	require.NoError(t, err)
	assert.Equal(t, command.KindStop, res.Msg.Command.Kind)
	assert.Empty(t, mgr.GetStatus().State.TrackURI)
}

func TestSyncService_ListenerToken(t *testing.T) {
	client, _ := newTestServer(t, "s3cret")
	ctx := context.Background()

	_, err := client.ReportStatus(ctx, connect.NewRequest(report("a", "1", true, 0)))
	require.Error(t, err)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	wrong := connect.NewRequest(report("a", "1", true, 0))
	wrong.Header().Set(ListenerTokenHeader, "guess")
	_, err = client.ReportStatus(ctx, wrong)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	ok := connect.NewRequest(report("a", "1", true, 0))
	ok.Header().Set(ListenerTokenHeader, "s3cret")
	res, err := client.ReportStatus(ctx, ok)
	require.NoError(t, err)
	assert.Equal(t, command.KindLoad, res.Msg.Command.Kind)

	_, err = client.GetState(ctx, connect.NewRequest(&GetStateRequest{}))
	assert.NoError(t, err, "viewers and diagnostics are never authenticated")
}

func TestSyncService_ClosedSession(t *testing.T) {
	client, mgr := newTestServer(t, "")
	mgr.Close()

	_, err := client.ReportStatus(context.Background(), connect.NewRequest(report("a", "1", true, 0)))
	assert.Equal(t, connect.CodeUnavailable, connect.CodeOf(err))
}

func TestStatusReport_Snapshot(t *testing.T) {
	tests := []struct {
		name        string
		report      *StatusReport
		wantTrack   bool
		wantTitle   string
		wantArt     string
		wantProg    int
		wantStopped bool
	}{
		{name: "nil report", report: nil, wantStopped: true},
		{name: "no item", report: &StatusReport{IsPlaying: true, ProgressMs: 10}, wantProg: 10, wantStopped: true},
		{
			name:      "full item",
			report:    report("a", "1", true, 100),
			wantTrack: true,
			wantTitle: "Y - X",
			wantArt:   "https://i.scdn.co/image/a",
			wantProg:  100,
		},
		{
			name: "missing album and artists",
			report: &StatusReport{
				Item:       &ReportedTrack{URI: "a", ID: "1", Name: "X"},
				IsPlaying:  true,
				ProgressMs: 100,
			},
			wantTrack: true,
			wantTitle: " - X",
			wantProg:  100,
		},
		{
			name: "negative progress",
			report: &StatusReport{
				Item:       &ReportedTrack{URI: "a", Name: "X", Album: &ReportedAlbum{}},
				IsPlaying:  true,
				ProgressMs: -5,
			},
			wantTrack: true,
			wantTitle: " - X",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := tt.report.Snapshot()
			assert.Equal(t, tt.wantTrack, snap.Track != nil)
			assert.Equal(t, tt.wantProg, snap.ProgressMs)
			assert.Equal(t, tt.wantStopped, snap.IsStopped())
			if snap.Track != nil {
				assert.Equal(t, tt.wantTitle, snap.Track.DisplayTitle())
				assert.Equal(t, tt.wantArt, snap.Track.AlbumArtURL)
			}
		})
	}
}

type overlapSender struct {
	active  atomic.Int32
	overlap atomic.Bool
}

func (s *overlapSender) Send(*notification.Message) error {
	if s.active.Add(1) > 1 {
		s.overlap.Store(true)
	}
	time.Sleep(5 * time.Millisecond)
	s.active.Add(-1)
	return nil
}

func TestNotificationStreamAdapter_SerializesSends(t *testing.T) {
	sender := &overlapSender{}
	adapter := &notificationStreamAdapter{stream: sender}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seq uint64) {
			defer wg.Done()
			assert.NoError(t, adapter.Send(&notification.Message{SequenceNo: seq}))
		}(uint64(i))
	}
	wg.Wait()

	assert.False(t, sender.overlap.Load())
}
