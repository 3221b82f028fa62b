package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/osa030/nowtify/internal/app/notification"
)

// SyncServiceClient is a client for the SyncService.
type SyncServiceClient struct {
	reportStatus *connect.Client[StatusReport, ReportStatusResponse]
	subscribe    *connect.Client[SubscribeRequest, notification.Message]
	getState     *connect.Client[GetStateRequest, GetStateResponse]
}

// NewSyncServiceClient constructs a client for the SyncService at baseURL
// (e.g. http://localhost:8888).
func NewSyncServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SyncServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append(opts, WithJSON())
	return &SyncServiceClient{
		reportStatus: connect.NewClient[StatusReport, ReportStatusResponse](
			httpClient, baseURL+SyncServiceReportStatusProcedure, opts...),
		subscribe: connect.NewClient[SubscribeRequest, notification.Message](
			httpClient, baseURL+SyncServiceSubscribeProcedure, opts...),
		getState: connect.NewClient[GetStateRequest, GetStateResponse](
			httpClient, baseURL+SyncServiceGetStateProcedure, opts...),
	}
}

// ReportStatus calls nowtify.v1.SyncService.ReportStatus.
func (c *SyncServiceClient) ReportStatus(ctx context.Context, req *connect.Request[StatusReport]) (*connect.Response[ReportStatusResponse], error) {
	return c.reportStatus.CallUnary(ctx, req)
}

// Subscribe calls nowtify.v1.SyncService.Subscribe.
func (c *SyncServiceClient) Subscribe(ctx context.Context, req *connect.Request[SubscribeRequest]) (*connect.ServerStreamForClient[notification.Message], error) {
	return c.subscribe.CallServerStream(ctx, req)
}

// GetState calls nowtify.v1.SyncService.GetState.
func (c *SyncServiceClient) GetState(ctx context.Context, req *connect.Request[GetStateRequest]) (*connect.Response[GetStateResponse], error) {
	return c.getState.CallUnary(ctx, req)
}
