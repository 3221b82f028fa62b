// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/nowtify/internal/app/notification"
	"github.com/osa030/nowtify/internal/app/playback"
	"github.com/osa030/nowtify/internal/app/session"
)

// SyncServiceName is the fully-qualified name of the SyncService.
const SyncServiceName = "nowtify.v1.SyncService"

// Procedure paths of the SyncService.
const (
	SyncServiceReportStatusProcedure = "/" + SyncServiceName + "/ReportStatus"
	SyncServiceSubscribeProcedure    = "/" + SyncServiceName + "/Subscribe"
	SyncServiceGetStateProcedure     = "/" + SyncServiceName + "/GetState"
)

// SyncService implements the SyncService RPC.
type SyncService struct {
	session *session.Manager
}

// NewSyncService creates a new SyncService.
func NewSyncService(session *session.Manager) *SyncService {
	return &SyncService{session: session}
}

// NewSyncServiceHandler builds an HTTP handler for the service and returns
// the path to mount it on.
func NewSyncServiceHandler(svc *SyncService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(opts, WithJSON())

	reportStatus := connect.NewUnaryHandler(SyncServiceReportStatusProcedure, svc.ReportStatus, opts...)
	subscribe := connect.NewServerStreamHandler(SyncServiceSubscribeProcedure, svc.Subscribe, opts...)
	getState := connect.NewUnaryHandler(SyncServiceGetStateProcedure, svc.GetState, opts...)

	return "/" + SyncServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case SyncServiceReportStatusProcedure:
			reportStatus.ServeHTTP(w, r)
		case SyncServiceSubscribeProcedure:
			subscribe.ServeHTTP(w, r)
		case SyncServiceGetStateProcedure:
			getState.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// ReportStatus feeds a listener status report to the session.
func (s *SyncService) ReportStatus(
	ctx context.Context,
	req *connect.Request[StatusReport],
) (*connect.Response[ReportStatusResponse], error) {
	cmd, err := s.session.HandleStatus(ctx, req.Msg.Snapshot())
	if errors.Is(err, playback.ErrSuperseded) {
		return connect.NewResponse(&ReportStatusResponse{Superseded: true}), nil
	}
	if errors.Is(err, session.ErrSessionClosed) {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	if errors.Is(err, context.Canceled) {
		return nil, connect.NewError(connect.CodeCanceled, err)
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&ReportStatusResponse{Command: &cmd}), nil
}

// Subscribe streams every broadcast command to a viewer. Nothing is replayed:
// the first message is the next command broadcast after subscribing.
func (s *SyncService) Subscribe(
	ctx context.Context,
	req *connect.Request[SubscribeRequest],
	stream *connect.ServerStream[notification.Message],
) error {
	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID := s.session.Subscribe(adapter)

	// Wait for context cancellation or session end
	select {
	case <-ctx.Done():
	case <-s.session.Done():
	}

	// Unsubscribe when done
	s.session.Unsubscribe(subscriptionID)

	return nil
}

// GetState returns session diagnostics.
func (s *SyncService) GetState(
	ctx context.Context,
	req *connect.Request[GetStateRequest],
) (*connect.Response[GetStateResponse], error) {
	return connect.NewResponse(newGetStateResponse(s.session.GetStatus())), nil
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// Sends are serialized; a timed-out send may still be writing when the next
// broadcast arrives.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream sender
}

// sender is the part of connect.ServerStream the adapter uses.
type sender interface {
	Send(msg *notification.Message) error
}

func (a *notificationStreamAdapter) Send(msg *notification.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream.Send(msg)
}
