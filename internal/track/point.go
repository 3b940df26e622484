// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package track

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// errMissingCoordinates marks records that carry no latitude or longitude
// field under any recognized spelling. Normalize counts such records in
// NormalizationReport.MissingCoordinates rather than returning the error,
// so the sentinel stays internal. Suspicious but present values
// (non-numeric strings, out-of-range numbers) are NOT parse errors; they
// become out-of-bounds anomaly input instead.
var errMissingCoordinates = errors.New("track: record has no coordinate fields")

// RawRecord is one upstream row as decoded from JSON. Upstream sources
// disagree on field naming, so the record stays schemaless until Normalize
// maps it onto a canonical TrackPoint at the boundary.
type RawRecord map[string]any

// Field-name candidates per canonical field, lowest index wins. Matching is
// case-insensitive, so LATITUDE/Latitude/latitude all hit "latitude".
var (
	latitudeKeys   = []string{"latitude", "lat", "lat_deg", "y"}
	longitudeKeys  = []string{"longitude", "lon", "lng", "long", "lon_deg", "x"}
	timestampKeys  = []string{"timestamp", "time", "ts", "datetime", "date_time", "fixtime", "dt"}
	speedKeys      = []string{"speed", "speed_kph", "speed_kmh", "spd", "velocity"}
	satellitesKeys = []string{"satellites", "sats", "sat_count", "satellite_count"}
	ignitionKeys   = []string{"ignition", "ign", "acc"}
	movingKeys     = []string{"moving", "is_moving", "ismoving", "in_motion"}
	voltageKeys    = []string{"voltage", "volt", "vbat", "power_voltage"}
)

// NormalizeReport accounts for what the boundary adapter did with the raw
// rows, so callers can surface exclusions instead of silently losing data.
type NormalizeReport struct {
	// Input is the number of raw records received.
	Input int `json:"input"`

	// Points is the number of canonical points produced.
	Points int `json:"points"`

	// MissingCoordinates counts records skipped because no coordinate
	// field was present at all.
	MissingCoordinates int `json:"missing_coordinates"`

	// UnparseableTimestamps counts points whose timestamp string defeated
	// every parser. These points are kept but sorted to the end of the
	// sequence, where the scan ignores them.
	UnparseableTimestamps int `json:"unparseable_timestamps"`
}

// Normalize maps raw upstream records onto canonical TrackPoints sorted
// ascending by timestamp, ties broken by input order.
// Records without any coordinate field are skipped and counted;
// points with unusable timestamps are placed after all timestamped points.
func Normalize(records []RawRecord) ([]TrackPoint, NormalizeReport) {
	report := NormalizeReport{Input: len(records)}
	points := make([]TrackPoint, 0, len(records))

	for i, rec := range records {
		pt, err := normalizeRecord(rec)
		if err != nil {
			report.MissingCoordinates++
			continue
		}
		pt.seq = i
		if !pt.HasTimestamp() {
			report.UnparseableTimestamps++
		}
		points = append(points, pt)
	}

	sortPoints(points)
	report.Points = len(points)
	return points, report
}

// sortPoints orders points ascending by timestamp, with ties broken by
// input order via seq. Points without a usable timestamp sort after
// everything else, again in input order.
func sortPoints(points []TrackPoint) {
	sort.Slice(points, func(i, j int) bool {
		a, b := points[i], points[j]
		switch {
		case a.HasTimestamp() != b.HasTimestamp():
			return a.HasTimestamp()
		case a.Timestamp.Equal(b.Timestamp):
			return a.seq < b.seq
		default:
			return a.Timestamp.Before(b.Timestamp)
		}
	})
}

// normalizeRecord maps a single raw record onto a TrackPoint.
func normalizeRecord(rec RawRecord) (TrackPoint, error) {
	lower := make(map[string]any, len(rec))
	for k, v := range rec {
		lower[strings.ToLower(k)] = v
	}

	latRaw, latOK := lookup(lower, latitudeKeys)
	lonRaw, lonOK := lookup(lower, longitudeKeys)
	if !latOK || !lonOK {
		return TrackPoint{}, fmt.Errorf("%w: keys %v", errMissingCoordinates, recordKeys(rec))
	}

	pt := TrackPoint{
		// A present but non-numeric coordinate becomes NaN, which the
		// scan classifies as out of bounds rather than failing the parse.
		Latitude:  coerceFloat(latRaw),
		Longitude: coerceFloat(lonRaw),
	}

	if raw, ok := lookup(lower, timestampKeys); ok {
		pt.Timestamp = ParseTimestamp(coerceString(raw))
	}
	if raw, ok := lookup(lower, speedKeys); ok {
		if v := coerceFloat(raw); !math.IsNaN(v) {
			pt.SpeedKph = &v
		}
	}
	if raw, ok := lookup(lower, satellitesKeys); ok {
		if v := coerceFloat(raw); !math.IsNaN(v) {
			n := int(v)
			pt.Satellites = &n
		}
	}
	if raw, ok := lookup(lower, ignitionKeys); ok {
		if v, ok := coerceBool(raw); ok {
			pt.Ignition = &v
		}
	}
	if raw, ok := lookup(lower, movingKeys); ok {
		if v, ok := coerceBool(raw); ok {
			pt.Moving = &v
		}
	}
	if raw, ok := lookup(lower, voltageKeys); ok {
		if v := coerceFloat(raw); !math.IsNaN(v) {
			pt.Voltage = &v
		}
	}

	return pt, nil
}

func lookup(lower map[string]any, candidates []string) (any, bool) {
	for _, key := range candidates {
		if v, ok := lower[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func recordKeys(rec RawRecord) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// coerceFloat converts JSON scalar shapes to float64, returning NaN for
// anything that cannot be read as a number.
func coerceFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func coerceBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, true
	case int:
		return t != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "on":
			return true, true
		case "0", "false", "no", "off":
			return false, true
		}
	}
	return false, false
}

// dottedShortYear matches "DD.MM.YY HH:mm:ss".
var dottedShortYear = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{2} \d{2}:\d{2}:\d{2}$`)

// dottedLongYear matches "DD.MM.YYYY HH:mm:ss".
var dottedLongYear = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4} \d{2}:\d{2}:\d{2}$`)

// isoNoZone matches "YYYY-MM-DDTHH:mm:ss" with optional fractional seconds
// and no timezone suffix.
var isoNoZone = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?$`)

// fallbackLayouts are tried last, in order, against local time.
var fallbackLayouts = []string{
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"02.01.2006 15:04",
	time.RFC1123,
	time.ANSIC,
}

// ParseTimestamp runs the format-detection chain over a timestamp string:
//
//  1. "DD.MM.YY HH:mm:ss" with the two-digit year prefixed by "20"
//  2. "DD.MM.YYYY HH:mm:ss"
//  3. zone-less ISO ("2006-01-02T15:04:05"), interpreted as LOCAL wall
//     clock time. The upstream server emits local time with no zone
//     marker; reading it as UTC would skew every anomaly timestamp by
//     the local offset.
//  4. ISO with an explicit offset or Z, parsed as given
//  5. a short list of generic layouts
//
// An unrecognized string yields the zero time, which sorts to the end of
// the sequence and is excluded from the pairwise scan.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	if dottedShortYear.MatchString(s) {
		// Two-digit year is always 20xx for this fleet.
		full := s[:6] + "20" + s[6:]
		if t, err := time.ParseInLocation("02.01.2006 15:04:05", full, time.Local); err == nil {
			return t
		}
	}

	if dottedLongYear.MatchString(s) {
		if t, err := time.ParseInLocation("02.01.2006 15:04:05", s, time.Local); err == nil {
			return t
		}
	}

	if isoNoZone.MatchString(s) {
		if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.Local); err == nil {
			return t
		}
	}

	// ISO-like string with time separator: honor whatever offset it carries.
	if strings.Contains(s, "T") && strings.Contains(s, ":") {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}

	return time.Time{}
}
