// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package track

import "math"

// earthRadiusM is the mean Earth radius used for great-circle distances.
const earthRadiusM = 6371000.0

// CoordinateEpsilon is the threshold for considering two coordinates equal.
// DETERMINISM: direct float equality on IEEE 754 coordinates is unreliable;
// 1e-7 degrees is about 1.1cm at the equator, well below GPS accuracy.
const CoordinateEpsilon = 1e-7

// haversineMeters calculates the great-circle distance between two points
// using the Haversine formula. Returns distance in meters.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// initialBearing computes the initial bearing in degrees [0, 360) from the
// first point toward the second.
func initialBearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	dLonRad := (lon2 - lon1) * math.Pi / 180.0

	y := math.Sin(dLonRad) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) -
		math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(dLonRad)

	deg := math.Atan2(y, x) * 180.0 / math.Pi
	return math.Mod(deg+360.0, 360.0)
}

// finiteCoordinate reports whether a coordinate value is a usable finite
// number. NaN and infinities come from unparseable upstream values and are
// classified as out of bounds rather than rejected at the parse boundary.
func finiteCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// sameCoordinate reports whether two coordinate values are equal within
// CoordinateEpsilon.
func sameCoordinate(a, b float64) bool {
	return math.Abs(a-b) < CoordinateEpsilon
}
