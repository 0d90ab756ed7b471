// Package reviewer guards the reviewer surface with a shared operator token and
// records which reviewer is acting.
package reviewer

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "verigate/pkg/domain-errors"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/httputil"
	"verigate/pkg/requestcontext"
)

const (
	HeaderToken      = "X-Reviewer-Token"
	HeaderReviewerID = "X-Reviewer-ID"
)

// RequireReviewerToken checks the shared reviewer token and injects the
// reviewer identity from X-Reviewer-ID.
func RequireReviewerToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token := r.Header.Get(HeaderToken)
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				logger.WarnContext(ctx, "reviewer token mismatch",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "reviewer token required"))
				return
			}

			reviewerID, err := id.ParseReviewerID(r.Header.Get(HeaderReviewerID))
			if err != nil {
				logger.WarnContext(ctx, "missing reviewer identity",
					"request_id", requestID,
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "reviewer identity required"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithReviewerID(ctx, reviewerID)))
		})
	}
}
