// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package track

import (
	"testing"
	"time"
)

var scanBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// degreesForMeters converts a northward displacement in meters to degrees
// of latitude, close enough for test geometry.
func degreesForMeters(m float64) float64 {
	return m / 111194.93
}

func fix(t time.Time, lat, lon float64) TrackPoint {
	return TrackPoint{Latitude: lat, Longitude: lon, Timestamp: t}
}

func fixWithSpeed(t time.Time, lat, lon, speedKph float64) TrackPoint {
	p := fix(t, lat, lon)
	p.SpeedKph = &speedKph
	return p
}

func TestDetectAnomalies_DegenerateInput(t *testing.T) {
	profile := NormalProfile()

	if got := DetectAnomalies(nil, profile); len(got) != 0 {
		t.Errorf("nil input: got %d anomalies, want 0", len(got))
	}
	if got := DetectAnomalies([]TrackPoint{}, profile); len(got) != 0 {
		t.Errorf("empty input: got %d anomalies, want 0", len(got))
	}

	single := []TrackPoint{fix(scanBase, 53.9, 27.5)}
	if got := DetectAnomalies(single, profile); len(got) != 0 {
		t.Errorf("single point: got %d anomalies, want 0", len(got))
	}

	// A lone out-of-bounds point is still degenerate input.
	oob := []TrackPoint{fix(scanBase, 53.9, 999)}
	if got := DetectAnomalies(oob, profile); len(got) != 0 {
		t.Errorf("single out-of-bounds point: got %d anomalies, want 0", len(got))
	}
}

func TestDetectAnomalies_TimeGapScenario(t *testing.T) {
	// Two points 11 minutes and ~100m apart.
	points := []TrackPoint{
		fix(scanBase, 53.9, 27.5),
		fix(scanBase.Add(11*time.Minute), 53.9+degreesForMeters(100), 27.5),
	}

	for _, profileName := range []string{ProfileNormal, ProfileRaw} {
		got := DetectAnomalies(points, ProfileByName(profileName))
		if len(got) != 1 {
			t.Fatalf("profile %s: got %d anomalies, want 1", profileName, len(got))
		}
		if got[0].Type != AnomalyTimeGap {
			t.Errorf("profile %s: got type %s, want TIME_GAP", profileName, got[0].Type)
		}
		if got[0].DurationHuman != "11.0 m" {
			t.Errorf("profile %s: got duration %q, want %q", profileName, got[0].DurationHuman, "11.0 m")
		}
	}
}

func TestDetectAnomalies_SpeedSpikeScenario(t *testing.T) {
	// Two points 2 seconds and ~500m apart: computed speed is ~900 km/h,
	// above both profile thresholds.
	points := []TrackPoint{
		fix(scanBase, 53.9, 27.5),
		fix(scanBase.Add(2*time.Second), 53.9+degreesForMeters(500), 27.5),
	}

	for _, profileName := range []string{ProfileNormal, ProfileRaw} {
		got := DetectAnomalies(points, ProfileByName(profileName))
		if len(got) != 1 {
			t.Fatalf("profile %s: got %d anomalies, want 1", profileName, len(got))
		}
		if got[0].Type != AnomalySpeedSpike {
			t.Errorf("profile %s: got type %s, want SPEED_SPIKE", profileName, got[0].Type)
		}
		if got[0].ComputedSpeedKph == nil || *got[0].ComputedSpeedKph < 850 || *got[0].ComputedSpeedKph > 950 {
			t.Errorf("profile %s: computed speed %v, want ~900", profileName, got[0].ComputedSpeedKph)
		}
	}
}

func TestDetectAnomalies_GapThresholdBoundary(t *testing.T) {
	profile := NormalProfile()

	tests := []struct {
		name   string
		delta  time.Duration
		expect int
	}{
		{"delta exactly at threshold", profile.GapThreshold, 0},
		{"delta one millisecond over", profile.GapThreshold + time.Millisecond, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := []TrackPoint{
				fix(scanBase, 53.9, 27.5),
				fix(scanBase.Add(tt.delta), 53.9+degreesForMeters(50), 27.5),
			}
			got := DetectAnomalies(points, profile)
			if len(got) != tt.expect {
				t.Errorf("got %d anomalies, want %d", len(got), tt.expect)
			}
		})
	}
}

func TestDetectAnomalies_SpeedThresholdBoundary(t *testing.T) {
	prev := fix(scanBase, 53.9, 27.5)
	curr := fixWithSpeed(scanBase.Add(time.Minute), 53.9+degreesForMeters(1000), 27.5, 80)

	distanceM := haversineMeters(prev.Latitude, prev.Longitude, curr.Latitude, curr.Longitude)
	exactSpeed := distanceM / 1000.0 / time.Minute.Hours()

	profile := NormalProfile()
	profile.JumpSpeedKph = 0 // isolate the spike check

	// Threshold equal to the computed speed: strict > must not flag.
	profile.SpikeSpeedKph = exactSpeed
	if got := DetectAnomalies([]TrackPoint{prev, curr}, profile); len(got) != 0 {
		t.Errorf("speed exactly at threshold: got %d anomalies, want 0", len(got))
	}

	// Threshold just below: must flag.
	profile.SpikeSpeedKph = exactSpeed * 0.999
	got := DetectAnomalies([]TrackPoint{prev, curr}, profile)
	if len(got) != 1 || got[0].Type != AnomalySpeedSpike {
		t.Errorf("speed above threshold: got %+v, want one SPEED_SPIKE", got)
	}
}

func TestDetectAnomalies_PositionJumpSuppression(t *testing.T) {
	tests := []struct {
		name          string
		reportedSpeed float64
		expectJump    bool
	}{
		{"slow reported speed flags jump", 2, true},
		{"fast reported speed suppresses jump", 90, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// ~1500m in 60s: 90 km/h computed, above the 50 km/h jump
			// floor but below the 200 km/h spike ceiling.
			points := []TrackPoint{
				fix(scanBase, 53.9, 27.5),
				fixWithSpeed(scanBase.Add(time.Minute), 53.9+degreesForMeters(1500), 27.5, tt.reportedSpeed),
			}
			got := DetectAnomalies(points, NormalProfile())
			if tt.expectJump {
				if len(got) != 1 || got[0].Type != AnomalyPositionJump {
					t.Fatalf("got %+v, want one POSITION_JUMP", got)
				}
				return
			}
			if len(got) != 0 {
				t.Errorf("got %d anomalies, want 0 (jump suppressed)", len(got))
			}
		})
	}
}

func TestDetectAnomalies_RawProfileDistanceJump(t *testing.T) {
	profile := RawProfile()

	tests := []struct {
		name      string
		distanceM float64
		expect    int
	}{
		{"below jump distance", 400, 0},
		{"above jump distance", 700, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 60s apart keeps computed speed below the spike threshold.
			points := []TrackPoint{
				fix(scanBase, 53.9, 27.5),
				fixWithSpeed(scanBase.Add(time.Minute), 53.9+degreesForMeters(tt.distanceM), 27.5, 0),
			}
			got := DetectAnomalies(points, profile)
			if len(got) != tt.expect {
				t.Fatalf("got %d anomalies, want %d", len(got), tt.expect)
			}
			if tt.expect == 1 && got[0].Type != AnomalyPositionJump {
				t.Errorf("got type %s, want POSITION_JUMP", got[0].Type)
			}
		})
	}
}

func TestDetectAnomalies_MinDisplacementSuppression(t *testing.T) {
	profile := NormalProfile()
	profile.MinDisplacementM = 500

	// 11 minute gap but only ~100m displacement: stationary clock jitter.
	points := []TrackPoint{
		fix(scanBase, 53.9, 27.5),
		fix(scanBase.Add(11*time.Minute), 53.9+degreesForMeters(100), 27.5),
	}
	if got := DetectAnomalies(points, profile); len(got) != 0 {
		t.Errorf("displacement below minimum: got %d anomalies, want 0", len(got))
	}

	// Same gap at ~600m must still flag.
	points[1] = fix(scanBase.Add(11*time.Minute), 53.9+degreesForMeters(600), 27.5)
	got := DetectAnomalies(points, profile)
	if len(got) != 1 || got[0].Type != AnomalyTimeGap {
		t.Errorf("displacement above minimum: got %+v, want one TIME_GAP", got)
	}
}

func TestDetectAnomalies_OutOfBounds(t *testing.T) {
	t.Run("leading single point degenerates to itself", func(t *testing.T) {
		points := []TrackPoint{
			fix(scanBase, 53.9, 999),
			fix(scanBase.Add(time.Minute), 53.9, 27.5),
		}
		got := DetectAnomalies(points, NormalProfile())
		if len(got) != 1 || got[0].Type != AnomalyOutOfBounds {
			t.Fatalf("got %+v, want one OUT_OF_BOUNDS", got)
		}
		if !got[0].StartPoint.Timestamp.Equal(got[0].EndPoint.Timestamp) {
			t.Errorf("expected degenerate single-point span, got %v..%v",
				got[0].StartPoint.Timestamp, got[0].EndPoint.Timestamp)
		}
		if got[0].ComputedSpeedKph != nil {
			t.Errorf("out-of-bounds computed speed should be nil, got %v", *got[0].ComputedSpeedKph)
		}
		if got[0].ComputedSpeedDisplay() != "N/A" {
			t.Errorf("display = %q, want N/A", got[0].ComputedSpeedDisplay())
		}
	})

	t.Run("run coalesces and spans from previous in-bounds point", func(t *testing.T) {
		points := []TrackPoint{
			fix(scanBase, 53.9, 27.5),
			fix(scanBase.Add(1*time.Minute), 53.9, 999),
			fix(scanBase.Add(2*time.Minute), 53.9, 998),
			fix(scanBase.Add(3*time.Minute), 53.9, 27.5),
		}
		got := DetectAnomalies(points, NormalProfile())
		if len(got) != 1 || got[0].Type != AnomalyOutOfBounds {
			t.Fatalf("got %+v, want one coalesced OUT_OF_BOUNDS", got)
		}
		if !got[0].StartPoint.Timestamp.Equal(scanBase) {
			t.Errorf("run start = %v, want the preceding in-bounds point", got[0].StartPoint.Timestamp)
		}
		if !got[0].EndPoint.Timestamp.Equal(scanBase.Add(2 * time.Minute)) {
			t.Errorf("run end = %v, want last out-of-bounds point", got[0].EndPoint.Timestamp)
		}
	})

	t.Run("non-finite coordinates are out of bounds", func(t *testing.T) {
		nan := coerceFloat("not-a-number")
		points := []TrackPoint{
			fix(scanBase, 53.9, 27.5),
			fix(scanBase.Add(time.Minute), nan, 27.5),
			fix(scanBase.Add(2*time.Minute), 53.9, 27.5),
		}
		got := DetectAnomalies(points, NormalProfile())
		if len(got) != 1 || got[0].Type != AnomalyOutOfBounds {
			t.Fatalf("got %+v, want one OUT_OF_BOUNDS", got)
		}
	})

	t.Run("takes precedence over a time gap on the same pair", func(t *testing.T) {
		points := []TrackPoint{
			fix(scanBase, 53.9, 27.5),
			fix(scanBase.Add(30*time.Minute), 53.9, 999),
			fix(scanBase.Add(31*time.Minute), 53.9, 27.5),
		}
		got := DetectAnomalies(points, NormalProfile())
		if len(got) != 1 || got[0].Type != AnomalyOutOfBounds {
			t.Fatalf("got %+v, want only OUT_OF_BOUNDS", got)
		}
	})
}

func TestDetectAnomalies_NonPositiveDeltaSkipsSpeedChecks(t *testing.T) {
	// Duplicated timestamp with a huge displacement: no speed is
	// computable, so neither spike nor jump may fire.
	points := []TrackPoint{
		fix(scanBase, 53.9, 27.5),
		fix(scanBase, 54.9, 27.5),
	}
	if got := DetectAnomalies(points, NormalProfile()); len(got) != 0 {
		t.Errorf("got %d anomalies, want 0 for zero delta", len(got))
	}
}

func TestDetectAnomalies_OrderingInvariant(t *testing.T) {
	// A mixed track: spike, out-of-bounds excursion, then a gap.
	points := []TrackPoint{
		fix(scanBase, 53.9, 27.5),
		fix(scanBase.Add(2*time.Second), 53.9+degreesForMeters(500), 27.5),
		fix(scanBase.Add(time.Minute), 53.9, 999),
		fix(scanBase.Add(2*time.Minute), 53.9, 27.5),
		fix(scanBase.Add(20*time.Minute), 53.9+degreesForMeters(700), 27.5),
	}

	got := DetectAnomalies(points, NormalProfile())
	if len(got) < 3 {
		t.Fatalf("got %d anomalies, want at least 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].StartPoint.Timestamp.Before(got[i-1].StartPoint.Timestamp) {
			t.Errorf("anomaly %d starts before anomaly %d", i, i-1)
		}
	}
	for _, a := range got {
		if a.EndPoint.Timestamp.Before(a.StartPoint.Timestamp) {
			t.Errorf("anomaly %s: end before start", a.Type)
		}
	}
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45 s"},
		{660 * time.Second, "11.0 m"},
		{90 * time.Minute, "1.5 h"},
	}
	for _, tt := range tests {
		if got := HumanDuration(tt.d); got != tt.want {
			t.Errorf("HumanDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
