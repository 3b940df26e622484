// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package track

import (
	"math"
	"testing"
)

func TestHaversineMeters(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantM                  float64
		tolerance              float64
	}{
		{"same point", 53.9, 27.5, 53.9, 27.5, 0, 0.001},
		{"one degree of latitude", 53.0, 27.5, 54.0, 27.5, 111195, 100},
		{"minsk to vilnius", 53.9006, 27.5590, 54.6872, 25.2797, 172000, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := haversineMeters(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.wantM) > tt.tolerance {
				t.Errorf("got %.1f m, want %.1f ± %.1f", got, tt.wantM, tt.tolerance)
			}
		})
	}
}

func TestInitialBearing(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		{"due north", 53.0, 27.5, 54.0, 27.5, 0},
		{"due south", 54.0, 27.5, 53.0, 27.5, 180},
		{"due east on equator", 0, 27.5, 0, 28.5, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := initialBearing(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > 0.5 {
				t.Errorf("got %.2f°, want %.2f°", got, tt.want)
			}
		})
	}
}

func TestBoundingBoxContains(t *testing.T) {
	box := BoundingBox{MinLatitude: 50, MaxLatitude: 57, MinLongitude: 23, MaxLongitude: 33}

	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"inside", 53.9, 27.5, true},
		{"on the edge", 50, 23, true},
		{"north of box", 60, 27.5, false},
		{"west of box", 53.9, 10, false},
		{"nan latitude", math.NaN(), 27.5, false},
		{"infinite longitude", 53.9, math.Inf(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := box.Contains(tt.lat, tt.lon); got != tt.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}
