// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/trackwatch/internal/config"
	"github.com/tomtom215/trackwatch/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler so it can be used with r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router wires handlers and middleware into the HTTP route tree.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router with middleware derived from the API config.
func NewRouter(cfg *config.Config, handler *Handler) *Router {
	mc := DefaultChiMiddlewareConfig()
	if cfg != nil {
		if len(cfg.API.CORSOrigins) > 0 {
			mc.CORSAllowedOrigins = cfg.API.CORSOrigins
		}
		if cfg.API.RateLimitReqs > 0 {
			mc.RateLimitRequests = cfg.API.RateLimitReqs
		}
		if cfg.API.RateLimitWindow > 0 {
			mc.RateLimitWindow = cfg.API.RateLimitWindow
		}
	}

	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(mc),
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	// CORS must be global to handle OPTIONS preflight.
	r.Use(router.chiMiddleware.CORS())

	// Health endpoints get permissive rate limiting so monitoring can
	// poll frequently without tripping the API limit.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	// Scan endpoints carry request bodies up to the configured limit,
	// so they get stricter rate limiting than reads.
	r.Route("/api/v1/track", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitScan())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Post("/anomalies", router.handler.TrackAnomalies)
		r.Post("/segments", router.handler.TrackSegments)
	})

	r.Route("/api/v1/devices", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Get("/{deviceID}/anomalies", router.handler.DeviceAnomalies)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Get("/ws", router.handler.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
