// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package track

import (
	"sort"
	"time"
)

// DetectAnomalies scans a sorted point sequence pairwise, left to right,
// and returns every detected anomaly in ascending start-time order.
//
// Classification precedence per pair, first match wins:
//
//  1. OUT_OF_BOUNDS - either point outside the profile's bounding box or
//     carrying non-finite coordinates. Evaluated independently of the time
//     delta; runs of consecutive out-of-bounds points coalesce into one
//     anomaly. Out-of-bounds points do not feed the remaining checks.
//  2. TIME_GAP - time delta strictly above the profile's gap threshold.
//  3. SPEED_SPIKE - computed speed strictly above the spike threshold.
//  4. POSITION_JUMP - implausible displacement that the device's reported
//     speed does not corroborate.
//
// Degenerate input (fewer than two points) yields an empty result. Points
// without a usable timestamp are ignored; they sit at the tail of the
// sorted sequence and cannot participate in pairwise deltas.
func DetectAnomalies(points []TrackPoint, profile Profile) []Anomaly {
	usable := timestamped(points)
	if len(usable) < 2 {
		return nil
	}

	var anomalies []Anomaly

	outOfBounds := func(p TrackPoint) bool {
		return !profile.Bounds.Contains(p.Latitude, p.Longitude)
	}

	// Out-of-bounds run coalescing. A run spans from the last in-bounds
	// point before it (if any) to the last point inside the run.
	runStart := -1 // index of first out-of-bounds point in the open run
	closeRun := func(end int) {
		startIdx := runStart
		if runStart > 0 {
			startIdx = runStart - 1
		}
		anomalies = append(anomalies, outOfBoundsAnomaly(usable[startIdx], usable[end]))
		runStart = -1
	}

	for i, pt := range usable {
		if outOfBounds(pt) {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 {
			closeRun(i - 1)
		}
	}
	if runStart >= 0 {
		closeRun(len(usable) - 1)
	}

	// Pairwise scan for the time/speed/jump checks. Pairs touching an
	// out-of-bounds point are already covered by the run above.
	for i := 1; i < len(usable); i++ {
		prev, curr := usable[i-1], usable[i]
		if outOfBounds(prev) || outOfBounds(curr) {
			continue
		}

		if a, ok := classifyPair(prev, curr, profile); ok {
			anomalies = append(anomalies, a)
		}
	}

	// The pairwise portion is already chronological, but out-of-bounds
	// runs were emitted as they closed; restore global start-time order.
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].StartPoint.Timestamp.Before(anomalies[j].StartPoint.Timestamp)
	})

	return anomalies
}

// classifyPair applies the time-gap, speed-spike and position-jump checks
// to one adjacent in-bounds pair. First match wins.
func classifyPair(prev, curr TrackPoint, profile Profile) (Anomaly, bool) {
	delta := curr.Timestamp.Sub(prev.Timestamp)
	distanceM := haversineMeters(prev.Latitude, prev.Longitude, curr.Latitude, curr.Longitude)

	// Speed is only computable for a strictly positive delta; duplicated
	// or reordered timestamps yield 0 and skip the speed-based checks.
	var speedKph float64
	if delta > 0 {
		speedKph = distanceM / 1000.0 / delta.Hours()
	}

	suppressed := profile.MinDisplacementM > 0 && distanceM < profile.MinDisplacementM

	if delta > profile.GapThreshold && !suppressed {
		return pairAnomaly(AnomalyTimeGap, prev, curr, speedKph, delta, distanceM), true
	}

	if delta > 0 && speedKph > profile.SpikeSpeedKph && !suppressed {
		return pairAnomaly(AnomalySpeedSpike, prev, curr, speedKph, delta, distanceM), true
	}

	if delta > 0 && isJump(profile, speedKph, distanceM) && curr.ReportedSpeed() < profile.RealSpeedKph {
		return pairAnomaly(AnomalyPositionJump, prev, curr, speedKph, delta, distanceM), true
	}

	return Anomaly{}, false
}

// isJump applies the profile's jump candidate test: distance-based when the
// profile carries a jump distance, computed-speed-based otherwise.
func isJump(profile Profile, speedKph, distanceM float64) bool {
	if profile.JumpDistanceM > 0 {
		return distanceM > profile.JumpDistanceM
	}
	return profile.JumpSpeedKph > 0 && speedKph > profile.JumpSpeedKph
}

func pairAnomaly(t AnomalyType, prev, curr TrackPoint, speedKph float64, delta time.Duration, distanceM float64) Anomaly {
	computed := speedKph
	return Anomaly{
		Type:             t,
		StartPoint:       prev,
		EndPoint:         curr,
		ComputedSpeedKph: &computed,
		ReportedSpeedKph: curr.ReportedSpeed(),
		DurationHuman:    HumanDuration(delta),
		DistanceKm:       distanceM / 1000.0,
	}
}

func outOfBoundsAnomaly(start, end TrackPoint) Anomaly {
	var distanceKm float64
	if finiteCoordinate(start.Latitude) && finiteCoordinate(start.Longitude) &&
		finiteCoordinate(end.Latitude) && finiteCoordinate(end.Longitude) {
		distanceKm = haversineMeters(start.Latitude, start.Longitude, end.Latitude, end.Longitude) / 1000.0
	}
	return Anomaly{
		Type:             AnomalyOutOfBounds,
		StartPoint:       start,
		EndPoint:         end,
		ComputedSpeedKph: nil, // no meaningful speed across an excursion
		ReportedSpeedKph: end.ReportedSpeed(),
		DurationHuman:    HumanDuration(end.Timestamp.Sub(start.Timestamp)),
		DistanceKm:       distanceKm,
	}
}

// timestamped returns the leading portion of the sorted sequence that
// carries usable timestamps.
func timestamped(points []TrackPoint) []TrackPoint {
	n := len(points)
	for n > 0 && !points[n-1].HasTimestamp() {
		n--
	}
	return points[:n]
}
