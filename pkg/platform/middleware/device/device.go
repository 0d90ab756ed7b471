// Package device derives a human-readable device label from the User-Agent so
// role sessions can show where they were last switched from.
package device

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"verigate/pkg/requestcontext"
)

type contextKeyDeviceName struct{}

// ParseUserAgent renders "Browser on OS" for a raw User-Agent string.
func ParseUserAgent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "Unknown Device"
	}
	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	platform := ua.OS()
	if platform == "" {
		platform = ua.Platform()
	}
	if platform == "" {
		platform = "Unknown OS"
	}
	return strings.TrimSpace(fmt.Sprintf("%s on %s", browser, platform))
}

// Middleware stores the parsed device label in the context. It must run after
// the metadata middleware.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ParseUserAgent(requestcontext.UserAgent(r.Context()))
		next.ServeHTTP(w, r.WithContext(WithDeviceName(r.Context(), name)))
	})
}

// DeviceName returns the device label, or an empty string when unset.
func DeviceName(ctx context.Context) string {
	if name, ok := ctx.Value(contextKeyDeviceName{}).(string); ok {
		return name
	}
	return ""
}

// WithDeviceName injects a device label into a context.
func WithDeviceName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, contextKeyDeviceName{}, name)
}
