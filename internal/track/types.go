// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package track

import (
	"fmt"
	"time"
)

// TrackPoint is one canonical GPS fix. It is produced by Normalize from a
// raw upstream record and never mutated afterwards.
type TrackPoint struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`

	// SpeedKph is the device-reported instantaneous speed in km/h.
	// Nil when the upstream record carried no speed field.
	SpeedKph *float64 `json:"speed_kph,omitempty"`

	// Satellites is the reported satellite count, nil when absent.
	Satellites *int `json:"satellites,omitempty"`

	// Ignition reports whether the vehicle ignition was on, nil when absent.
	Ignition *bool `json:"ignition,omitempty"`

	// Moving is the device's own movement flag, nil when absent.
	Moving *bool `json:"moving,omitempty"`

	// Voltage is the supply voltage, nil when absent. Only used for
	// segment statistics.
	Voltage *float64 `json:"voltage,omitempty"`

	// seq is the record's position in the original input, used as the
	// stable tie-break when timestamps collide.
	seq int
}

// HasTimestamp reports whether the point carries a usable timestamp.
// Points whose timestamp string failed every parser keep a zero Timestamp
// and are sorted to the end of the sequence rather than dropped silently.
func (p TrackPoint) HasTimestamp() bool {
	return !p.Timestamp.IsZero()
}

// ReportedSpeed returns the device-reported speed, treating an absent
// speed field as 0 km/h the way the legacy scanners did.
func (p TrackPoint) ReportedSpeed() float64 {
	if p.SpeedKph == nil {
		return 0
	}
	return *p.SpeedKph
}

// IsMoving reports whether the point should be considered in motion.
// The explicit movement flag wins; without one, any nonzero reported
// speed counts as movement.
func (p TrackPoint) IsMoving() bool {
	if p.Moving != nil {
		return *p.Moving
	}
	return p.ReportedSpeed() > 0
}

// AnomalyType identifies the kind of detected track irregularity.
type AnomalyType string

const (
	// AnomalyTimeGap flags an adjacent pair whose time delta exceeds the
	// profile's gap threshold.
	AnomalyTimeGap AnomalyType = "TIME_GAP"

	// AnomalySpeedSpike flags an adjacent pair whose computed speed exceeds
	// the profile's spike threshold.
	AnomalySpeedSpike AnomalyType = "SPEED_SPIKE"

	// AnomalyPositionJump flags a large positional displacement that the
	// device's own reported speed does not corroborate (a GPS glitch, not
	// genuine fast travel).
	AnomalyPositionJump AnomalyType = "POSITION_JUMP"

	// AnomalyOutOfBounds flags points outside the configured geographic
	// rectangle, or points whose coordinates are not finite numbers.
	AnomalyOutOfBounds AnomalyType = "OUT_OF_BOUNDS"
)

// Anomaly is one detected event over a sub-range of points. StartPoint and
// EndPoint bound the anomaly; for OUT_OF_BOUNDS runs they may degenerate to
// a single point. Invariant: StartPoint.Timestamp <= EndPoint.Timestamp.
type Anomaly struct {
	Type       AnomalyType `json:"type"`
	StartPoint TrackPoint  `json:"start_point"`
	EndPoint   TrackPoint  `json:"end_point"`

	// ComputedSpeedKph is the speed implied by distance over time delta.
	// Nil for OUT_OF_BOUNDS anomalies, where no meaningful speed exists.
	ComputedSpeedKph *float64 `json:"computed_speed_kph,omitempty"`

	// ReportedSpeedKph is the device-reported speed on the end point.
	ReportedSpeedKph float64 `json:"reported_speed_kph"`

	// DurationHuman is the display form of the anomaly's time span.
	DurationHuman string `json:"duration_human"`

	// DistanceKm is the great-circle distance between the bounding points.
	DistanceKm float64 `json:"distance_km"`
}

// ComputedSpeedDisplay returns the computed speed for display, "N/A" when
// no speed could be derived.
func (a Anomaly) ComputedSpeedDisplay() string {
	if a.ComputedSpeedKph == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f km/h", *a.ComputedSpeedKph)
}

// Duration returns the anomaly's time span.
func (a Anomaly) Duration() time.Duration {
	return a.EndPoint.Timestamp.Sub(a.StartPoint.Timestamp)
}

// GroupedAnomaly is a run of consecutive same-type anomalies, purely
// derived for display. It must always be re-derivable from the underlying
// anomaly list and is never the system of record.
type GroupedAnomaly struct {
	Type         AnomalyType `json:"type"`
	FirstAnomaly Anomaly     `json:"first_anomaly"`
	LastAnomaly  Anomaly     `json:"last_anomaly"`
	Count        int         `json:"count"`
	StartPoint   TrackPoint  `json:"start_point"`
	EndPoint     TrackPoint  `json:"end_point"`
	Description  string      `json:"description"`
}

// IssueFlags is the composite per-point quality classification used by
// segment building. Zero means no issue.
type IssueFlags uint8

const (
	// IssueIgnitionOffMoving marks the contradiction of a device claiming
	// motion with the ignition off.
	IssueIgnitionOffMoving IssueFlags = 1 << iota

	// IssueLowSatellites marks a satellite count below the configured
	// threshold.
	IssueLowSatellites
)

// Has reports whether the flag set contains the given flag.
func (f IssueFlags) Has(flag IssueFlags) bool {
	return f&flag != 0
}

// Strings returns the human-readable issue labels in stable order.
func (f IssueFlags) Strings() []string {
	var out []string
	if f.Has(IssueIgnitionOffMoving) {
		out = append(out, "no ignition while moving")
	}
	if f.Has(IssueLowSatellites) {
		out = append(out, "low satellites")
	}
	return out
}

// SegmentStats aggregates per-segment measurements.
type SegmentStats struct {
	AvgSpeedKph   float64 `json:"avg_speed_kph"`
	MaxSpeedKph   float64 `json:"max_speed_kph"`
	AvgVoltage    float64 `json:"avg_voltage"`
	AvgSatellites float64 `json:"avg_satellites"`
	DistanceKm    float64 `json:"distance_km"`

	// BearingDeg is the initial great-circle bearing in degrees [0, 360)
	// from the segment's first point toward its last. Zero when the
	// endpoints coincide.
	BearingDeg float64 `json:"bearing_deg"`
}

// TrackSegment is a maximal contiguous run of points sharing the same
// composite issue classification. Segments are contiguous, non-overlapping,
// and in order reconstruct the sorted input stream except for points
// re-sliced out by out-of-bounds exclusion.
type TrackSegment struct {
	Points    []TrackPoint  `json:"points"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Issues    IssueFlags    `json:"issues"`
	Stats     *SegmentStats `json:"stats,omitempty"`
}

// Duration returns the segment's time span.
func (s TrackSegment) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// LatLon is a bare coordinate pair used by mileage segments.
type LatLon struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MileageSegment is a server-side movement run consumed, not produced, by
// this engine. The engine only derives the gaps between consecutive
// segments so a renderer can draw connector lines.
type MileageSegment struct {
	Moving      bool          `json:"moving"`
	Coordinates []LatLon      `json:"coordinates"`
	StartTime   time.Time     `json:"start_time"`
	Duration    time.Duration `json:"duration"`
	Marker      string        `json:"marker,omitempty"`
}

// EndTime returns when the segment ends.
func (m MileageSegment) EndTime() time.Time {
	return m.StartTime.Add(m.Duration)
}

// ConnectorGap is the spatial/temporal gap between two consecutive mileage
// segments.
type ConnectorGap struct {
	From     LatLon    `json:"from"`
	To       LatLon    `json:"to"`
	FromTime time.Time `json:"from_time"`
	ToTime   time.Time `json:"to_time"`
}

// BoundingBox is the legal geographic rectangle for a fleet's region.
type BoundingBox struct {
	MinLatitude  float64 `json:"min_latitude"`
	MaxLatitude  float64 `json:"max_latitude"`
	MinLongitude float64 `json:"min_longitude"`
	MaxLongitude float64 `json:"max_longitude"`
}

// Contains reports whether the coordinates fall inside the box. Non-finite
// coordinates never do.
func (b BoundingBox) Contains(lat, lon float64) bool {
	if !finiteCoordinate(lat) || !finiteCoordinate(lon) {
		return false
	}
	return lat >= b.MinLatitude && lat <= b.MaxLatitude &&
		lon >= b.MinLongitude && lon <= b.MaxLongitude
}

// DefaultBounds returns the default sanity rectangle. It deliberately spans
// almost the whole globe so that only structurally broken coordinates
// (lat 999, non-finite values) are flagged until an operator configures the
// fleet's real region.
func DefaultBounds() BoundingBox {
	return BoundingBox{
		MinLatitude:  -85,
		MaxLatitude:  85,
		MinLongitude: -180,
		MaxLongitude: 180,
	}
}

// Profile is one named calibration table for the anomaly scan. Profiles
// exist so the mobile and web consumers read a single set of constants
// instead of hand-copying thresholds.
type Profile struct {
	// Name identifies the profile ("normal" or "raw").
	Name string `json:"name"`

	// GapThreshold is the maximum ordinary time between fixes. A pair with
	// a strictly larger delta is a TIME_GAP.
	GapThreshold time.Duration `json:"gap_threshold"`

	// SpikeSpeedKph is the computed-speed ceiling. A pair strictly above
	// it is a SPEED_SPIKE.
	SpikeSpeedKph float64 `json:"spike_speed_kph"`

	// JumpSpeedKph is the computed-speed floor for POSITION_JUMP when
	// JumpDistanceM is zero.
	JumpSpeedKph float64 `json:"jump_speed_kph"`

	// JumpDistanceM switches POSITION_JUMP to a displacement test: a pair
	// strictly farther apart than this is a jump candidate. Zero keeps the
	// speed-based test.
	JumpDistanceM float64 `json:"jump_distance_m"`

	// RealSpeedKph is the jump suppression ceiling: a jump candidate is
	// only flagged when the device's reported speed is strictly below it.
	RealSpeedKph float64 `json:"real_speed_kph"`

	// MinDisplacementM suppresses TIME_GAP and SPEED_SPIKE pairs whose
	// physical displacement is strictly below it, so stationary-device
	// clock jitter is not flagged. Zero disables the filter.
	MinDisplacementM float64 `json:"min_displacement_m"`

	// Bounds is the legal geographic rectangle for OUT_OF_BOUNDS.
	Bounds BoundingBox `json:"bounds"`
}

// ProfileNormal is the calibration used for the mileage/normal track view.
const ProfileNormal = "normal"

// ProfileRaw is the calibration used for the raw track view.
const ProfileRaw = "raw"

// NormalProfile returns the calibration for normal track scans:
// 10 minute gap, 200 km/h spike, 50 km/h jump with reported-speed
// suppression below 10 km/h.
func NormalProfile() Profile {
	return Profile{
		Name:             ProfileNormal,
		GapThreshold:     10 * time.Minute,
		SpikeSpeedKph:    200,
		JumpSpeedKph:     50,
		JumpDistanceM:    0,
		RealSpeedKph:     10,
		MinDisplacementM: 0,
		Bounds:           DefaultBounds(),
	}
}

// RawProfile returns the calibration for raw track scans: 5 minute gap,
// 150 km/h spike, distance-based jump above 500m. Reported-speed
// suppression applies here too; the legacy raw scanner omitted it and
// flagged legitimate highway bursts after short data gaps.
func RawProfile() Profile {
	return Profile{
		Name:             ProfileRaw,
		GapThreshold:     5 * time.Minute,
		SpikeSpeedKph:    150,
		JumpSpeedKph:     0,
		JumpDistanceM:    500,
		RealSpeedKph:     10,
		MinDisplacementM: 0,
		Bounds:           DefaultBounds(),
	}
}

// ProfileByName returns the named profile, defaulting to the normal
// calibration for unknown names.
func ProfileByName(name string) Profile {
	if name == ProfileRaw {
		return RawProfile()
	}
	return NormalProfile()
}

// HumanDuration formats a duration for the anomaly panel: seconds below a
// minute, fractional minutes below an hour, fractional hours beyond.
func HumanDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0f s", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1f m", d.Minutes())
	default:
		return fmt.Sprintf("%.1f h", d.Hours())
	}
}
