// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package api

import (
	"net/http"
	"time"
)

// HealthStatus reports overall service health and per-component state.
type HealthStatus struct {
	Status        string          `json:"status"`
	Timestamp     time.Time       `json:"timestamp"`
	UptimeSeconds float64         `json:"uptime_seconds"`
	Components    map[string]bool `json:"components"`
}

// Health reports service health with per-component connectivity.
//
// GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	components := map[string]bool{
		"report_store":  h.reports != nil,
		"websocket_hub": h.hub != nil,
	}

	sourceConfigured := h.source != nil && h.source.Configured()
	components["track_source"] = sourceConfigured
	if sourceConfigured {
		components["track_source"] = h.source.Ping(r.Context()) == nil
	}

	status := "healthy"
	for name, ok := range components {
		// An unconfigured source is a deployment choice, not a fault.
		if name == "track_source" && !sourceConfigured {
			continue
		}
		if !ok {
			status = "degraded"
		}
	}

	rw.Success(HealthStatus{
		Status:        status,
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Components:    components,
	})
}

// HealthLive is the liveness probe. It always returns 200 while the
// process is able to serve requests.
//
// GET /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status":         "alive",
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady is the readiness probe. The service is ready once the
// report store is open; the upstream source is optional.
//
// GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.reports == nil {
		rw.ServiceUnavailable("report store not ready")
		return
	}

	rw.Success(map[string]string{"status": "ready"})
}
