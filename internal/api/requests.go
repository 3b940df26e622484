// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trackwatch/internal/track"
)

// errBodyTooLarge marks a rejected oversize body so handlers can answer
// 413 instead of a generic 400.
var errBodyTooLarge = errors.New("request body too large")

// decodeRawRecords reads a JSON array of raw point records from the request
// body, enforcing the configured body size and point count limits.
func decodeRawRecords(w http.ResponseWriter, r *http.Request, maxBytes int64, maxPoints int) ([]track.RawRecord, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	var records []track.RawRecord
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&records); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, maxBytes)
		}
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	if len(records) > maxPoints {
		return nil, fmt.Errorf("track has %d points, limit is %d", len(records), maxPoints)
	}
	return records, nil
}

// segmentQuery carries the query-tunable segment analysis calibration.
// Zero values mean "use the configured default".
type segmentQuery struct {
	SatelliteThreshold int           `validate:"gte=0,lte=50"`
	MinDuration        time.Duration `validate:"gte=0"`
	MergeGap           time.Duration `validate:"gte=0"`
}

// parseSegmentQuery extracts segment calibration overrides from query
// parameters. Durations accept Go duration syntax ("90s", "2m").
func parseSegmentQuery(r *http.Request) (segmentQuery, error) {
	var q segmentQuery

	if v := r.URL.Query().Get("satellite_threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, fmt.Errorf("invalid satellite_threshold %q: %w", v, err)
		}
		q.SatelliteThreshold = n
	}

	if v := r.URL.Query().Get("min_duration"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return q, fmt.Errorf("invalid min_duration %q: %w", v, err)
		}
		q.MinDuration = d
	}

	if v := r.URL.Query().Get("merge_gap"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return q, fmt.Errorf("invalid merge_gap %q: %w", v, err)
		}
		q.MergeGap = d
	}

	return q, nil
}

// apply overlays the query overrides on the configured options.
func (q segmentQuery) apply(opts track.SegmentOptions) track.SegmentOptions {
	if q.SatelliteThreshold > 0 {
		opts.SatelliteThreshold = q.SatelliteThreshold
	}
	if q.MinDuration > 0 {
		opts.MinDuration = q.MinDuration
	}
	if q.MergeGap > 0 {
		opts.MergeGap = q.MergeGap
	}
	return opts
}

// profileName returns the requested profile name, defaulting to normal.
// Unknown names fall back to normal; config.TrackConfig.Profile applies
// the same fallback so both agree on what was scanned.
func profileName(r *http.Request) string {
	name := r.URL.Query().Get("profile")
	if name != track.ProfileRaw {
		return track.ProfileNormal
	}
	return track.ProfileRaw
}

// parseTimeRange reads from/to RFC3339 query parameters. Both must be
// present and ordered.
func parseTimeRange(r *http.Request) (from, to time.Time, err error) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" || toStr == "" {
		return from, to, errors.New("from and to query parameters are required")
	}

	from, err = time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return from, to, fmt.Errorf("invalid from %q: %w", fromStr, err)
	}
	to, err = time.Parse(time.RFC3339, toStr)
	if err != nil {
		return from, to, fmt.Errorf("invalid to %q: %w", toStr, err)
	}

	if !to.After(from) {
		return from, to, errors.New("to must be after from")
	}
	return from, to, nil
}
