// Package httpserver builds the public listener.
package httpserver

import (
	"net/http"
	"time"

	"verigate/internal/platform/config"
)

// New returns a server bounded on every phase of the request. Request bodies
// are small JSON documents, so the read budget stays tight.
func New(cfg config.Server, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    64 << 10,
	}
}
