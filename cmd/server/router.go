package main

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	decisionhandler "github.com/TylerGelinas/socure/internal/decision/handler"
	"github.com/TylerGelinas/socure/internal/platform/health"
	"github.com/TylerGelinas/socure/pkg/platform/middleware/auth"
	"github.com/TylerGelinas/socure/pkg/platform/middleware/device"
	"github.com/TylerGelinas/socure/pkg/platform/middleware/metadata"
	"github.com/TylerGelinas/socure/pkg/platform/middleware/request"
	"github.com/TylerGelinas/socure/pkg/platform/validation"
)

type routerDeps struct {
	logger         *slog.Logger
	registry       *prometheus.Registry
	health         *health.Handler
	decision       *decisionhandler.Handler
	validator      auth.JWTValidator
	trustedProxies []netip.Prefix
}

// newRouter mounts health and metrics publicly and the decision API behind
// bearer authentication.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(d.logger))
	r.Use(request.RequestID)
	r.Use(metadata.NewMiddleware(&metadata.Config{TrustedProxies: d.trustedProxies}).Handler)
	r.Use(device.Middleware)
	r.Use(request.Logger(d.logger))
	r.Use(request.Latency(request.NewMetrics(d.registry)))

	d.health.Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{Registry: d.registry}))

	r.Group(func(r chi.Router) {
		r.Use(request.BodyLimit(validation.MaxBodySize))
		r.Use(request.ContentTypeJSON)
		r.Use(auth.RequireAuth(d.validator, d.logger))
		d.decision.Register(r)
	})

	return r
}
