// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package config

import (
	"testing"
	"time"

	"github.com/tomtom215/trackwatch/internal/track"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestDefaultProfilesMatchEngineCalibration(t *testing.T) {
	cfg := defaultConfig()

	normal := cfg.Track.Profile(track.ProfileNormal)
	if normal.GapThreshold != 10*time.Minute {
		t.Errorf("normal gap = %v, want 10m", normal.GapThreshold)
	}
	if normal.SpikeSpeedKph != 200 || normal.JumpSpeedKph != 50 {
		t.Errorf("normal thresholds = %v/%v, want 200/50", normal.SpikeSpeedKph, normal.JumpSpeedKph)
	}

	raw := cfg.Track.Profile(track.ProfileRaw)
	if raw.GapThreshold != 5*time.Minute {
		t.Errorf("raw gap = %v, want 5m", raw.GapThreshold)
	}
	if raw.SpikeSpeedKph != 150 || raw.JumpDistanceM != 500 {
		t.Errorf("raw thresholds = %v/%v, want 150/500", raw.SpikeSpeedKph, raw.JumpDistanceM)
	}

	// Unknown profile names fall back to the normal calibration.
	fallback := cfg.Track.Profile("bogus")
	if fallback.Name != track.ProfileNormal {
		t.Errorf("fallback profile = %s, want normal", fallback.Name)
	}
}

func TestValidateRejectsBrokenConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"inverted latitude bounds", func(c *Config) {
			c.Track.Bounds.MinLatitude = 60
			c.Track.Bounds.MaxLatitude = 50
		}},
		{"inverted longitude bounds", func(c *Config) {
			c.Track.Bounds.MinLongitude = 30
			c.Track.Bounds.MaxLongitude = 20
		}},
		{"profile without jump calibration", func(c *Config) {
			c.Track.Normal.JumpSpeedKph = 0
			c.Track.Normal.JumpDistanceM = 0
		}},
		{"zero gap threshold", func(c *Config) { c.Track.Raw.GapThreshold = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"TRACKWATCH_SERVER_PORT", "server.port"},
		{"TRACKWATCH_LOGGING_LEVEL", "logging.level"},
		{"TRACKWATCH_TRACK_BOUNDS_MIN_LATITUDE", "track.bounds.min_latitude"},
		{"TRACKWATCH_TRACK_RAW_SPIKE_SPEED_KPH", "track.raw.spike_speed_kph"},
		{"TRACKWATCH_TRACK_SEGMENTS_SATELLITE_THRESHOLD", "track.segments.satellite_threshold"},
		{"TRACKWATCH_SOURCE_BASE_URL", "source.base_url"},
		{"TRACKWATCH_API_RATE_LIMIT_REQS", "api.rate_limit_reqs"},
	}

	for _, tt := range tests {
		if got := envTransform(tt.input); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSegmentOptionsFromConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.Track.Segments.SatelliteThreshold = 6
	cfg.Track.Segments.MergeGap = 2 * time.Minute

	opts := cfg.Track.SegmentOptions()
	if opts.SatelliteThreshold != 6 {
		t.Errorf("satellite threshold = %d, want 6", opts.SatelliteThreshold)
	}
	if opts.MergeGap != 2*time.Minute {
		t.Errorf("merge gap = %v, want 2m", opts.MergeGap)
	}
	if !opts.Bounds.Contains(53.9, 27.5) {
		t.Error("default bounds should contain ordinary coordinates")
	}
}
