package testutil

import (
	"net/http"

	id "verigate/pkg/domain"
	"verigate/pkg/requestcontext"
)

// WithAuth adds user and session IDs to the request context, as the auth
// middleware would. Invalid IDs are silently ignored.
func WithAuth(req *http.Request, userID, sessionID string) *http.Request {
	ctx := req.Context()
	if parsed, err := id.ParseUserID(userID); err == nil {
		ctx = requestcontext.WithUserID(ctx, parsed)
	}
	if parsed, err := id.ParseSessionID(sessionID); err == nil {
		ctx = requestcontext.WithSessionID(ctx, parsed)
	}
	return req.WithContext(ctx)
}

// WithReviewer adds a reviewer identity to the request context.
func WithReviewer(req *http.Request, reviewerID string) *http.Request {
	if parsed, err := id.ParseReviewerID(reviewerID); err == nil {
		return req.WithContext(requestcontext.WithReviewerID(req.Context(), parsed))
	}
	return req
}
