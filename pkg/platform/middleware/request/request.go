// Package request assigns every request a correlation ID.
package request

import (
	"net/http"

	"github.com/google/uuid"

	"verigate/pkg/requestcontext"
)

const HeaderRequestID = "X-Request-ID"

// maxInboundIDLen bounds caller-supplied IDs before they reach logs.
const maxInboundIDLen = 128

// RequestID reuses a caller-supplied X-Request-ID or mints a new one, echoes it
// on the response and stores it in the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" || len(reqID) > maxInboundIDLen {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), reqID)))
	})
}
