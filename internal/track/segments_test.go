// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package track

import (
	"testing"
	"time"
)

func analysisPoint(t time.Time, ignition bool, moving bool, sats int) TrackPoint {
	return TrackPoint{
		Latitude:   53.9,
		Longitude:  27.5,
		Timestamp:  t,
		Ignition:   &ignition,
		Moving:     &moving,
		Satellites: &sats,
	}
}

func TestAnalyzeSegments_DegenerateInput(t *testing.T) {
	opts := DefaultSegmentOptions()
	if got := AnalyzeSegments(nil, opts); len(got) != 0 {
		t.Errorf("nil input: got %d segments, want 0", len(got))
	}
	single := []TrackPoint{analysisPoint(scanBase, true, true, 12)}
	if got := AnalyzeSegments(single, opts); len(got) != 0 {
		t.Errorf("single point: got %d segments, want 0", len(got))
	}
}

func TestAnalyzeSegments_Classification(t *testing.T) {
	opts := DefaultSegmentOptions()

	points := []TrackPoint{
		analysisPoint(scanBase, true, true, 12),                     // clean
		analysisPoint(scanBase.Add(1*time.Minute), true, true, 12),  // clean
		analysisPoint(scanBase.Add(2*time.Minute), false, true, 12), // ignition contradiction
		analysisPoint(scanBase.Add(3*time.Minute), false, true, 4),  // contradiction + low sats
		analysisPoint(scanBase.Add(4*time.Minute), true, false, 4),  // low sats only
		analysisPoint(scanBase.Add(5*time.Minute), true, true, 12),  // clean
	}

	segments := AnalyzeSegments(points, opts)
	wantIssues := []IssueFlags{
		0,
		IssueIgnitionOffMoving,
		IssueIgnitionOffMoving | IssueLowSatellites,
		IssueLowSatellites,
		0,
	}
	if len(segments) != len(wantIssues) {
		t.Fatalf("got %d segments, want %d", len(segments), len(wantIssues))
	}
	for i, want := range wantIssues {
		if segments[i].Issues != want {
			t.Errorf("segment %d: issues = %b, want %b", i, segments[i].Issues, want)
		}
	}
}

func TestAnalyzeSegments_CoverageInvariant(t *testing.T) {
	// Without out-of-bounds exclusions, segment point sets in order must
	// reconstruct the input exactly.
	var points []TrackPoint
	for i := 0; i < 20; i++ {
		points = append(points, analysisPoint(
			scanBase.Add(time.Duration(i)*time.Minute),
			i%3 != 0, // ignition toggles
			true,
			8+i%6,
		))
	}

	segments := AnalyzeSegments(points, DefaultSegmentOptions())

	var reconstructed []TrackPoint
	for _, seg := range segments {
		reconstructed = append(reconstructed, seg.Points...)
	}
	if len(reconstructed) != len(points) {
		t.Fatalf("reconstructed %d points, want %d", len(reconstructed), len(points))
	}
	for i := range points {
		if !reconstructed[i].Timestamp.Equal(points[i].Timestamp) {
			t.Errorf("position %d: timestamp %v, want %v", i, reconstructed[i].Timestamp, points[i].Timestamp)
		}
	}

	// Contiguity: each segment starts where classification changed, and
	// bounds match its own points.
	for i, seg := range segments {
		if !seg.StartTime.Equal(seg.Points[0].Timestamp) || !seg.EndTime.Equal(seg.Points[len(seg.Points)-1].Timestamp) {
			t.Errorf("segment %d: bounds do not match points", i)
		}
	}
}

func TestAnalyzeSegments_OutOfBoundsExclusion(t *testing.T) {
	opts := DefaultSegmentOptions()

	points := []TrackPoint{
		analysisPoint(scanBase, false, true, 12),
		analysisPoint(scanBase.Add(1*time.Minute), false, true, 12),
		analysisPoint(scanBase.Add(2*time.Minute), false, true, 12),
		analysisPoint(scanBase.Add(3*time.Minute), false, true, 12),
	}
	// Put the third row outside the bounds; it and the row before it (the
	// anomaly's left boundary) must be re-sliced out of the segment.
	points[2].Longitude = 999

	segments := AnalyzeSegments(points, opts)
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}
	seg := segments[0]
	if len(seg.Points) != 2 {
		t.Fatalf("got %d points in segment, want 2", len(seg.Points))
	}
	if !seg.StartTime.Equal(scanBase) || !seg.EndTime.Equal(scanBase.Add(3*time.Minute)) {
		t.Errorf("recomputed bounds = %v..%v", seg.StartTime, seg.EndTime)
	}
	for _, p := range seg.Points {
		if p.Timestamp.Equal(scanBase.Add(1*time.Minute)) || p.Timestamp.Equal(scanBase.Add(2*time.Minute)) {
			t.Errorf("excluded row %v leaked into segment", p.Timestamp)
		}
	}
}

func TestAnalyzeSegments_MinDurationDropsShortRuns(t *testing.T) {
	opts := DefaultSegmentOptions()
	opts.MinDuration = 5 * time.Minute

	points := []TrackPoint{
		analysisPoint(scanBase, true, true, 12),
		analysisPoint(scanBase.Add(1*time.Minute), false, true, 12), // 1-minute blip
		analysisPoint(scanBase.Add(2*time.Minute), false, true, 12),
		analysisPoint(scanBase.Add(3*time.Minute), true, true, 12),
	}

	segments := AnalyzeSegments(points, opts)
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1 after demotion", len(segments))
	}
	if segments[0].Issues != 0 {
		t.Errorf("issues = %b, want none", segments[0].Issues)
	}
	if len(segments[0].Points) != 4 {
		t.Errorf("got %d points, want all 4", len(segments[0].Points))
	}
}

func TestAnalyzeSegments_MergeAcrossGaps(t *testing.T) {
	opts := DefaultSegmentOptions()
	opts.MergeGap = 3 * time.Minute

	points := []TrackPoint{
		analysisPoint(scanBase, false, true, 12),                    // issue A
		analysisPoint(scanBase.Add(1*time.Minute), false, true, 12), // issue A
		analysisPoint(scanBase.Add(2*time.Minute), true, true, 12),  // clean gap
		analysisPoint(scanBase.Add(3*time.Minute), true, true, 4),   // issue B
		analysisPoint(scanBase.Add(4*time.Minute), true, true, 4),   // issue B
	}

	segments := AnalyzeSegments(points, opts)
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1 merged", len(segments))
	}
	seg := segments[0]
	want := IssueIgnitionOffMoving | IssueLowSatellites
	if seg.Issues != want {
		t.Errorf("issues = %b, want union %b", seg.Issues, want)
	}
	if len(seg.Points) != 5 {
		t.Errorf("got %d points, want all 5 including the gap", len(seg.Points))
	}
}

func TestAnalyzeSegments_Stats(t *testing.T) {
	speeds := []float64{10, 20, 30}
	volts := []float64{12.0, 12.4, 12.8}

	var points []TrackPoint
	for i := 0; i < 3; i++ {
		p := analysisPoint(scanBase.Add(time.Duration(i)*time.Minute), true, true, 10+i)
		p.SpeedKph = &speeds[i]
		p.Voltage = &volts[i]
		p.Latitude = 53.9 + degreesForMeters(float64(i)*100)
		points = append(points, p)
	}

	segments := AnalyzeSegments(points, DefaultSegmentOptions())
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}
	stats := segments[0].Stats
	if stats == nil {
		t.Fatal("stats missing")
	}
	if stats.AvgSpeedKph != 20 {
		t.Errorf("avg speed = %v, want 20", stats.AvgSpeedKph)
	}
	if stats.MaxSpeedKph != 30 {
		t.Errorf("max speed = %v, want 30", stats.MaxSpeedKph)
	}
	if stats.AvgVoltage < 12.39 || stats.AvgVoltage > 12.41 {
		t.Errorf("avg voltage = %v, want ~12.4", stats.AvgVoltage)
	}
	if stats.AvgSatellites != 11 {
		t.Errorf("avg satellites = %v, want 11", stats.AvgSatellites)
	}
	if stats.DistanceKm < 0.19 || stats.DistanceKm > 0.21 {
		t.Errorf("distance = %v km, want ~0.2", stats.DistanceKm)
	}
}

func TestAnalyzeSegments_StatsBearing(t *testing.T) {
	// Eastbound run: longitude increases, latitude fixed.
	var eastbound []TrackPoint
	for i := 0; i < 3; i++ {
		p := analysisPoint(scanBase.Add(time.Duration(i)*time.Minute), true, true, 12)
		p.Longitude = 27.5 + degreesForMeters(float64(i)*100)
		eastbound = append(eastbound, p)
	}

	segments := AnalyzeSegments(eastbound, DefaultSegmentOptions())
	if len(segments) != 1 {
		t.Fatalf("eastbound: got %d segments, want 1", len(segments))
	}
	stats := segments[0].Stats
	if stats == nil {
		t.Fatal("eastbound: stats missing")
	}
	if stats.BearingDeg < 89 || stats.BearingDeg > 91 {
		t.Errorf("eastbound bearing = %v, want ~90", stats.BearingDeg)
	}

	// A parked run starts and ends on the same coordinate; no bearing.
	var parked []TrackPoint
	for i := 0; i < 3; i++ {
		parked = append(parked, analysisPoint(scanBase.Add(time.Duration(i)*time.Minute), false, false, 12))
	}
	segments = AnalyzeSegments(parked, DefaultSegmentOptions())
	if len(segments) != 1 {
		t.Fatalf("parked: got %d segments, want 1", len(segments))
	}
	if segments[0].Stats == nil {
		t.Fatal("parked: stats missing")
	}
	if segments[0].Stats.BearingDeg != 0 {
		t.Errorf("parked bearing = %v, want 0", segments[0].Stats.BearingDeg)
	}
}
