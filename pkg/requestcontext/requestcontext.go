// Package requestcontext carries per-request values through context.Context.
package requestcontext

import "context"

type contextKey string

const requestIDKey contextKey = "request_id"

// HeaderRequestID is the header used to propagate request IDs across services.
const HeaderRequestID = "X-Request-ID"

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request ID stored in the context, or "" when absent.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
