// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/trackwatch/internal/config"
	"github.com/tomtom215/trackwatch/internal/logging"
	"github.com/tomtom215/trackwatch/internal/metrics"
	"github.com/tomtom215/trackwatch/internal/source"
	"github.com/tomtom215/trackwatch/internal/store"
	"github.com/tomtom215/trackwatch/internal/track"
	ws "github.com/tomtom215/trackwatch/internal/websocket"
)

// validate is the shared validator for request parameter structs.
var validate = validator.New()

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	cfg     *config.Config
	hub     *ws.Hub
	source  *source.Client
	reports *store.ReportStore

	startTime time.Time
}

// NewHandler creates a Handler. hub, src and reports may be nil in
// reduced deployments; the affected endpoints report unavailability.
func NewHandler(cfg *config.Config, hub *ws.Hub, src *source.Client, reports *store.ReportStore) *Handler {
	return &Handler{
		cfg:       cfg,
		hub:       hub,
		source:    src,
		reports:   reports,
		startTime: time.Now(),
	}
}

// AnomalyScanResponse is the payload of a completed anomaly scan.
type AnomalyScanResponse struct {
	Profile               string                 `json:"profile"`
	InputRecords          int                    `json:"input_records"`
	Points                int                    `json:"points"`
	MissingCoordinates    int                    `json:"missing_coordinates"`
	UnparseableTimestamps int                    `json:"unparseable_timestamps"`
	Anomalies             []track.Anomaly        `json:"anomalies"`
	Grouped               []track.GroupedAnomaly `json:"grouped,omitempty"`
}

// SegmentAnalysisResponse is the payload of a segment analysis pass.
type SegmentAnalysisResponse struct {
	InputRecords          int                  `json:"input_records"`
	Points                int                  `json:"points"`
	MissingCoordinates    int                  `json:"missing_coordinates"`
	UnparseableTimestamps int                  `json:"unparseable_timestamps"`
	SatelliteThreshold    int                  `json:"satellite_threshold"`
	Segments              []track.TrackSegment `json:"segments"`
}

// scan normalizes raw records and runs the pairwise anomaly scan,
// recording engine metrics.
func (h *Handler) scan(records []track.RawRecord, profile track.Profile) ([]track.Anomaly, track.NormalizeReport) {
	points, report := track.Normalize(records)
	recordNormalization(report)

	start := time.Now()
	anomalies := track.DetectAnomalies(points, profile)

	byType := make(map[string]int)
	for _, a := range anomalies {
		byType[string(a.Type)]++
	}
	metrics.RecordScan(profile.Name, time.Since(start), byType)

	return anomalies, report
}

// writeDecodeError maps body decode failures onto the right status code.
func (h *Handler) writeDecodeError(rw *ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		rw.PayloadTooLarge(err.Error())
		return
	}
	rw.BadRequest(err.Error())
}

func recordNormalization(report track.NormalizeReport) {
	metrics.PointsNormalized.Add(float64(report.Points))
	if report.MissingCoordinates > 0 {
		metrics.PointsExcluded.WithLabelValues("missing_coordinates").Add(float64(report.MissingCoordinates))
	}
	if report.UnparseableTimestamps > 0 {
		metrics.PointsExcluded.WithLabelValues("unparseable_timestamp").Add(float64(report.UnparseableTimestamps))
	}
}

// TrackAnomalies scans a posted point batch for anomalies.
//
// POST /api/v1/track/anomalies?profile=normal|raw&grouped=true
func (h *Handler) TrackAnomalies(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	records, err := decodeRawRecords(w, r, h.cfg.API.MaxBodyBytes, h.cfg.API.MaxPoints)
	if err != nil {
		h.writeDecodeError(rw, err)
		return
	}

	profile := h.cfg.Track.Profile(profileName(r))
	anomalies, report := h.scan(records, profile)

	resp := AnomalyScanResponse{
		Profile:               profile.Name,
		InputRecords:          report.Input,
		Points:                report.Points,
		MissingCoordinates:    report.MissingCoordinates,
		UnparseableTimestamps: report.UnparseableTimestamps,
		Anomalies:             anomalies,
	}
	if r.URL.Query().Get("grouped") == "true" {
		resp.Grouped = track.GroupConsecutive(anomalies)
	}

	logging.Ctx(r.Context()).Info().
		Str("profile", profile.Name).
		Int("points", report.Points).
		Int("anomalies", len(anomalies)).
		Msg("anomaly scan completed")

	rw.Success(resp)
}

// TrackSegments runs segment analysis over a posted point batch.
//
// POST /api/v1/track/segments?satellite_threshold=&min_duration=&merge_gap=
func (h *Handler) TrackSegments(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	q, err := parseSegmentQuery(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if err := validate.Struct(q); err != nil {
		rw.ValidationError("invalid segment parameters", err.Error())
		return
	}

	records, err := decodeRawRecords(w, r, h.cfg.API.MaxBodyBytes, h.cfg.API.MaxPoints)
	if err != nil {
		h.writeDecodeError(rw, err)
		return
	}

	opts := q.apply(h.cfg.Track.SegmentOptions())

	points, report := track.Normalize(records)
	recordNormalization(report)

	segments := track.AnalyzeSegments(points, opts)
	metrics.SegmentsBuilt.Add(float64(len(segments)))

	logging.Ctx(r.Context()).Info().
		Int("points", report.Points).
		Int("segments", len(segments)).
		Msg("segment analysis completed")

	rw.Success(SegmentAnalysisResponse{
		InputRecords:          report.Input,
		Points:                report.Points,
		MissingCoordinates:    report.MissingCoordinates,
		UnparseableTimestamps: report.UnparseableTimestamps,
		SatelliteThreshold:    opts.SatelliteThreshold,
		Segments:              segments,
	})
}

// DeviceAnomalies fetches a device's track from the upstream source,
// scans it, caches the report, and pushes the result to websocket clients.
//
// GET /api/v1/devices/{deviceID}/anomalies?from=&to=&profile=
func (h *Handler) DeviceAnomalies(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	deviceID := chi.URLParam(r, "deviceID")
	if deviceID == "" {
		rw.BadRequest("device ID is required")
		return
	}

	from, to, err := parseTimeRange(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	profile := h.cfg.Track.Profile(profileName(r))

	if h.reports != nil {
		if cached, err := h.reports.Get(deviceID, profile.Name, from, to); err == nil {
			rw.SuccessWithMeta(reportResponse(cached), &APIMeta{Cached: true})
			return
		}
	}

	if h.source == nil || !h.source.Configured() {
		rw.ServiceUnavailable("no upstream track source configured")
		return
	}

	h.broadcastScanProgress(r.Context(), "running", deviceID, map[string]interface{}{
		"from": from, "to": to, "profile": profile.Name,
	}, nil)

	records, err := h.source.FetchPoints(r.Context(), deviceID, from, to)
	if err != nil {
		h.broadcastScanProgress(r.Context(), "error", deviceID, nil, err)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			rw.ServiceUnavailable("upstream track source temporarily unavailable")
			return
		}
		rw.ExternalServiceError("track-source", err)
		return
	}

	anomalies, normReport := h.scan(records, profile)

	report := &store.Report{
		DeviceID:    deviceID,
		Profile:     profile.Name,
		From:        from,
		To:          to,
		GeneratedAt: time.Now().UTC(),
		PointCount:  normReport.Points,
		Anomalies:   anomalies,
	}

	if h.reports != nil {
		if err := h.reports.Put(report); err != nil {
			// A failed cache write degrades to a rescan next time
			logging.Ctx(r.Context()).Warn().Err(err).Str("device_id", deviceID).Msg("failed to cache anomaly report")
		}
	}

	h.broadcastScanProgress(r.Context(), "completed", deviceID, map[string]interface{}{
		"points": normReport.Points, "anomalies": len(anomalies),
	}, nil)

	if h.hub != nil {
		h.hub.BroadcastAnomalyReport(deviceID, profile.Name, len(anomalies), anomalies)
	}

	logging.Ctx(r.Context()).Info().
		Str("device_id", deviceID).
		Str("profile", profile.Name).
		Int("points", normReport.Points).
		Int("anomalies", len(anomalies)).
		Msg("device anomaly scan completed")

	rw.Success(reportResponse(report))
}

// broadcastScanProgress pushes an analysis_progress update for a device
// scan to websocket clients, tagged with the request's correlation ID.
func (h *Handler) broadcastScanProgress(ctx context.Context, status, deviceID string, progress interface{}, scanErr error) {
	if h.hub == nil {
		return
	}
	data := ws.AnalysisProgressData{
		Operation:     "anomaly_scan",
		Status:        status,
		DeviceID:      deviceID,
		Progress:      progress,
		CorrelationID: logging.CorrelationIDFromContext(ctx),
	}
	if scanErr != nil {
		data.Error = scanErr.Error()
	}
	h.hub.BroadcastAnalysisProgress(data)
}

// DeviceReportResponse is the payload of a device-scoped scan.
type DeviceReportResponse struct {
	DeviceID    string          `json:"device_id"`
	Profile     string          `json:"profile"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	GeneratedAt time.Time       `json:"generated_at"`
	Points      int             `json:"points"`
	Anomalies   []track.Anomaly `json:"anomalies"`
}

func reportResponse(r *store.Report) DeviceReportResponse {
	return DeviceReportResponse{
		DeviceID:    r.DeviceID,
		Profile:     r.Profile,
		From:        r.From,
		To:          r.To,
		GeneratedAt: r.GeneratedAt,
		Points:      r.PointCount,
		Anomalies:   r.Anomalies,
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout against slow clients.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins.
// Browser WebSockets always include Origin; an empty header means a
// non-browser client and is rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if h.cfg == nil {
		return true
	}

	for _, allowed := range h.cfg.API.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket upgrades the connection and registers the client with the hub.
//
// GET /api/v1/ws
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		NewResponseWriter(w, r).ServiceUnavailable("websocket hub not running")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}
