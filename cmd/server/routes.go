package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"verigate/pkg/platform/httputil"
	authmw "verigate/pkg/platform/middleware/auth"
	"verigate/pkg/platform/middleware/device"
	"verigate/pkg/platform/middleware/metadata"
	"verigate/pkg/platform/middleware/request"
	"verigate/pkg/platform/middleware/requesttime"
	"verigate/pkg/platform/middleware/reviewer"
)

func (a *app) router() http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(device.Middleware)
	r.Use(a.httpMetrics.Middleware)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", a.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(a.jwt, a.logger))
		a.verification.Register(r)
		a.roles.Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(reviewer.RequireReviewerToken(a.cfg.Auth.ReviewerToken, a.logger))
		a.verification.RegisterReview(r)
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealth pings each configured backend. Any failure reports 503.
func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	record := func(name string, err error) {
		if err != nil {
			healthy = false
			checks[name] = err.Error()
			return
		}
		checks[name] = "ok"
	}
	if a.db != nil {
		record("postgres", a.db.PingContext(ctx))
	}
	if a.redis != nil {
		record("redis", a.redis.Health(ctx))
	}
	if a.producer != nil {
		record("kafka", a.producer.Health(ctx))
	}

	if !healthy {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Checks: checks})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Checks: checks})
}
