// Package requestcontext carries request-scoped values (caller identity,
// client metadata, request id and clock) from middleware to services
// without services importing net/http.
//
// Tests set the clock with WithTime; everything else falls back to the
// zero value when middleware did not run.
package requestcontext

import (
	"context"
	"time"

	id "verigate/pkg/domain"
)

type key int

const (
	userIDKey key = iota
	sessionIDKey
	reviewerIDKey
	clientIPKey
	userAgentKey
	requestIDKey
	requestTimeKey
)

func value[T any](ctx context.Context, k key) T {
	v, _ := ctx.Value(k).(T)
	return v
}

func UserID(ctx context.Context) id.UserID { return value[id.UserID](ctx, userIDKey) }

func WithUserID(ctx context.Context, v id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey, v)
}

func SessionID(ctx context.Context) id.SessionID { return value[id.SessionID](ctx, sessionIDKey) }

func WithSessionID(ctx context.Context, v id.SessionID) context.Context {
	return context.WithValue(ctx, sessionIDKey, v)
}

// ReviewerID is set only on review routes, by the reviewer token middleware.
func ReviewerID(ctx context.Context) id.ReviewerID { return value[id.ReviewerID](ctx, reviewerIDKey) }

func WithReviewerID(ctx context.Context, v id.ReviewerID) context.Context {
	return context.WithValue(ctx, reviewerIDKey, v)
}

func ClientIP(ctx context.Context) string { return value[string](ctx, clientIPKey) }
func UserAgent(ctx context.Context) string { return value[string](ctx, userAgentKey) }

func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey, clientIP)
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func RequestID(ctx context.Context) string { return value[string](ctx, requestIDKey) }

func WithRequestID(ctx context.Context, v string) context.Context {
	return context.WithValue(ctx, requestIDKey, v)
}

// Now returns the time pinned at the start of the request, or the wall clock
// for workers and other callers outside a request.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}
