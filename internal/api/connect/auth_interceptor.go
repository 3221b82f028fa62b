package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"
)

const (
	// ListenerTokenHeader is the header name for the listener token.
	ListenerTokenHeader = "X-Listener-Token"
)

// NewListenerTokenInterceptor creates an interceptor that rejects status
// reports without the configured listener token. Other procedures and an
// empty token pass through.
func NewListenerTokenInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token == "" || req.Spec().Procedure != SyncServiceReportStatusProcedure {
				return next(ctx, req)
			}

			if !TokenMatches(token, req.Header().Get(ListenerTokenHeader)) {
				return nil, connect.NewError(connect.CodeUnauthenticated, nil)
			}

			// Call next handler
			return next(ctx, req)
		}
	}
}

// TokenMatches compares a presented token with the expected one in constant time.
func TokenMatches(expected, presented string) bool {
	if presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}
