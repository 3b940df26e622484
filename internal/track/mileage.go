// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package track

// ConnectorGaps derives the spatial gaps between consecutive mileage
// segments. The segments themselves come from the server-side start/stop
// accumulation; this engine only tells the renderer where connector lines
// belong. Segments without coordinates are skipped.
func ConnectorGaps(segments []MileageSegment) []ConnectorGap {
	var gaps []ConnectorGap
	lastIdx := -1

	for i, seg := range segments {
		if len(seg.Coordinates) == 0 {
			continue
		}
		if lastIdx >= 0 {
			prev := segments[lastIdx]
			from := prev.Coordinates[len(prev.Coordinates)-1]
			to := seg.Coordinates[0]
			// Touching segments need no connector.
			if !sameCoordinate(from.Latitude, to.Latitude) || !sameCoordinate(from.Longitude, to.Longitude) {
				gaps = append(gaps, ConnectorGap{
					From:     from,
					To:       to,
					FromTime: prev.EndTime(),
					ToTime:   seg.StartTime,
				})
			}
		}
		lastIdx = i
	}
	return gaps
}
