// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package track

import "time"

// SegmentOptions tunes the analysis-mode segment pass.
type SegmentOptions struct {
	// SatelliteThreshold is the satellite count below which a point is
	// flagged IssueLowSatellites.
	SatelliteThreshold int `json:"satellite_threshold"`

	// MinDuration drops issue runs shorter than this by demoting them to
	// clean track. Zero keeps every run.
	MinDuration time.Duration `json:"min_duration"`

	// MergeGap merges two consecutive issue segments whose separating
	// clean gap is at most this long, unioning flags and point lists.
	// Zero disables merging. Out-of-bounds exclusions never merge.
	MergeGap time.Duration `json:"merge_gap"`

	// Bounds re-slices rows inside out-of-bounds excursions out of the
	// quality segments; those rows surface only as the anomaly.
	Bounds BoundingBox `json:"bounds"`
}

// DefaultSegmentOptions returns the calibration the analysis view uses.
func DefaultSegmentOptions() SegmentOptions {
	return SegmentOptions{
		SatelliteThreshold: 10,
		MinDuration:        0,
		MergeGap:           0,
		Bounds:             DefaultBounds(),
	}
}

// AnalyzeSegments partitions a sorted point sequence into maximal
// contiguous runs sharing the same composite issue classification. The
// pass is independent of anomaly detection except that rows inside
// out-of-bounds excursions are excluded up front: those rows surface only
// through the OUT_OF_BOUNDS anomaly, and segment bounds, counts and stats
// are recomputed from the surviving points, not masked.
//
// With no out-of-bounds exclusion, the returned segments are contiguous,
// non-overlapping, and their concatenation reproduces the input exactly.
// Degenerate input (fewer than one usable point) yields an empty result.
func AnalyzeSegments(points []TrackPoint, opts SegmentOptions) []TrackSegment {
	usable := timestamped(points)
	if len(usable) < 2 {
		return nil
	}

	kept := excludeOutOfBounds(usable, opts.Bounds)
	if len(kept) == 0 {
		return nil
	}

	segments := buildRuns(kept, opts)
	if opts.MinDuration > 0 {
		segments = dropShortRuns(segments, opts.MinDuration)
	}
	if opts.MergeGap > 0 {
		segments = mergeAcrossGaps(segments, opts.MergeGap)
	}

	for i := range segments {
		segments[i].Stats = segmentStats(segments[i].Points)
	}
	return segments
}

// classifyPoint computes the composite issue flags for one point.
func classifyPoint(p TrackPoint, satelliteThreshold int) IssueFlags {
	var flags IssueFlags
	if p.Ignition != nil && !*p.Ignition && p.IsMoving() {
		flags |= IssueIgnitionOffMoving
	}
	if p.Satellites != nil && *p.Satellites < satelliteThreshold {
		flags |= IssueLowSatellites
	}
	return flags
}

// excludeOutOfBounds removes rows that fall inside an out-of-bounds
// excursion's time range, including the in-bounds row that bounds the run
// on the left, mirroring the anomaly's reported span.
func excludeOutOfBounds(points []TrackPoint, bounds BoundingBox) []TrackPoint {
	kept := make([]TrackPoint, 0, len(points))
	lastKept := -1
	for i, pt := range points {
		if !bounds.Contains(pt.Latitude, pt.Longitude) {
			// Also retroactively drop the left boundary row.
			if lastKept == i-1 && len(kept) > 0 {
				kept = kept[:len(kept)-1]
				lastKept = -1
			}
			continue
		}
		kept = append(kept, pt)
		lastKept = i
	}
	return kept
}

// buildRuns partitions points into maximal runs of identical flags.
func buildRuns(points []TrackPoint, opts SegmentOptions) []TrackSegment {
	var segments []TrackSegment
	var current *TrackSegment

	for _, pt := range points {
		flags := classifyPoint(pt, opts.SatelliteThreshold)
		if current != nil && current.Issues == flags {
			current.Points = append(current.Points, pt)
			current.EndTime = pt.Timestamp
			continue
		}
		segments = append(segments, TrackSegment{
			Points:    []TrackPoint{pt},
			StartTime: pt.Timestamp,
			EndTime:   pt.Timestamp,
			Issues:    flags,
		})
		current = &segments[len(segments)-1]
	}
	return segments
}

// dropShortRuns demotes issue runs shorter than the minimum to clean
// track and re-coalesces neighbors that end up with identical flags.
func dropShortRuns(segments []TrackSegment, minDuration time.Duration) []TrackSegment {
	for i := range segments {
		if segments[i].Issues != 0 && segments[i].Duration() < minDuration {
			segments[i].Issues = 0
		}
	}
	return coalesce(segments)
}

// mergeAcrossGaps merges consecutive issue segments separated by a clean
// gap of at most mergeGap, absorbing the gap's rows and unioning flags.
func mergeAcrossGaps(segments []TrackSegment, mergeGap time.Duration) []TrackSegment {
	for {
		merged := false
		for i := 0; i+2 < len(segments); i++ {
			left, gap, right := segments[i], segments[i+1], segments[i+2]
			if left.Issues == 0 || right.Issues == 0 || gap.Issues != 0 {
				continue
			}
			if right.StartTime.Sub(left.EndTime) > mergeGap {
				continue
			}

			union := TrackSegment{
				Points:    append(append(append([]TrackPoint{}, left.Points...), gap.Points...), right.Points...),
				StartTime: left.StartTime,
				EndTime:   right.EndTime,
				Issues:    left.Issues | right.Issues,
			}
			segments = append(segments[:i], append([]TrackSegment{union}, segments[i+3:]...)...)
			merged = true
			break
		}
		if !merged {
			return segments
		}
	}
}

// coalesce re-joins adjacent segments that share identical flags.
func coalesce(segments []TrackSegment) []TrackSegment {
	if len(segments) == 0 {
		return segments
	}
	out := segments[:1]
	for _, seg := range segments[1:] {
		last := &out[len(out)-1]
		if last.Issues == seg.Issues {
			last.Points = append(last.Points, seg.Points...)
			last.EndTime = seg.EndTime
			continue
		}
		out = append(out, seg)
	}
	return out
}

// segmentStats aggregates speed, voltage, satellite and distance figures
// over a segment's points.
func segmentStats(points []TrackPoint) *SegmentStats {
	if len(points) == 0 {
		return nil
	}

	stats := &SegmentStats{}
	var speedSum, voltageSum, satSum float64
	var speedN, voltageN, satN int

	for i, pt := range points {
		if pt.SpeedKph != nil {
			speedSum += *pt.SpeedKph
			speedN++
			if *pt.SpeedKph > stats.MaxSpeedKph {
				stats.MaxSpeedKph = *pt.SpeedKph
			}
		}
		if pt.Voltage != nil {
			voltageSum += *pt.Voltage
			voltageN++
		}
		if pt.Satellites != nil {
			satSum += float64(*pt.Satellites)
			satN++
		}
		if i > 0 {
			stats.DistanceKm += haversineMeters(
				points[i-1].Latitude, points[i-1].Longitude,
				pt.Latitude, pt.Longitude,
			) / 1000.0
		}
	}

	if speedN > 0 {
		stats.AvgSpeedKph = speedSum / float64(speedN)
	}
	if voltageN > 0 {
		stats.AvgVoltage = voltageSum / float64(voltageN)
	}
	if satN > 0 {
		stats.AvgSatellites = satSum / float64(satN)
	}

	first, last := points[0], points[len(points)-1]
	if !sameCoordinate(first.Latitude, last.Latitude) || !sameCoordinate(first.Longitude, last.Longitude) {
		stats.BearingDeg = initialBearing(first.Latitude, first.Longitude, last.Latitude, last.Longitude)
	}
	return stats
}
