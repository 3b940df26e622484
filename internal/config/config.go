// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

// Package config loads and validates the Trackwatch configuration from
// layered sources: built-in defaults, an optional YAML file, and
// environment variables, in ascending precedence.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/trackwatch/internal/track"
)

// Config is the root configuration for the Trackwatch server.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
	Track   TrackConfig   `koanf:"track"`
	Source  SourceConfig  `koanf:"source"`
	Store   StoreConfig   `koanf:"store"`
	API     APIConfig     `koanf:"api"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures the zerolog global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// BoundsConfig is the fleet's legal geographic rectangle.
type BoundsConfig struct {
	MinLatitude  float64 `koanf:"min_latitude" validate:"gte=-90,lte=90"`
	MaxLatitude  float64 `koanf:"max_latitude" validate:"gte=-90,lte=90"`
	MinLongitude float64 `koanf:"min_longitude" validate:"gte=-180,lte=180"`
	MaxLongitude float64 `koanf:"max_longitude" validate:"gte=-180,lte=180"`
}

// ProfileConfig is one named calibration table for the anomaly scan.
// Both front ends read these values through the API, so the constants
// live in exactly one place.
type ProfileConfig struct {
	GapThreshold     time.Duration `koanf:"gap_threshold" validate:"gt=0"`
	SpikeSpeedKph    float64       `koanf:"spike_speed_kph" validate:"gt=0"`
	JumpSpeedKph     float64       `koanf:"jump_speed_kph" validate:"gte=0"`
	JumpDistanceM    float64       `koanf:"jump_distance_m" validate:"gte=0"`
	RealSpeedKph     float64       `koanf:"real_speed_kph" validate:"gte=0"`
	MinDisplacementM float64       `koanf:"min_displacement_m" validate:"gte=0"`
}

// SegmentsConfig tunes analysis-mode segment building.
type SegmentsConfig struct {
	SatelliteThreshold int           `koanf:"satellite_threshold" validate:"gte=0"`
	MinDuration        time.Duration `koanf:"min_duration" validate:"gte=0"`
	MergeGap           time.Duration `koanf:"merge_gap" validate:"gte=0"`
}

// TrackConfig carries the engine calibration.
type TrackConfig struct {
	Bounds   BoundsConfig   `koanf:"bounds"`
	Normal   ProfileConfig  `koanf:"normal"`
	Raw      ProfileConfig  `koanf:"raw"`
	Segments SegmentsConfig `koanf:"segments"`
}

// SourceConfig configures the upstream track data source client.
type SourceConfig struct {
	BaseURL         string        `koanf:"base_url"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	RequestsPerSec  float64       `koanf:"requests_per_sec" validate:"gt=0"`
	Burst           int           `koanf:"burst" validate:"gte=1"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"gte=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// StoreConfig configures the badger-backed report cache.
type StoreConfig struct {
	Path     string        `koanf:"path"`
	InMemory bool          `koanf:"in_memory"`
	TTL      time.Duration `koanf:"ttl" validate:"gte=0"`
}

// APIConfig configures request handling limits.
type APIConfig struct {
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes" validate:"gte=1024"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	MaxPoints       int           `koanf:"max_points" validate:"gte=1"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and environment.
func defaultConfig() *Config {
	normal := track.NormalProfile()
	raw := track.RawProfile()
	bounds := track.DefaultBounds()
	segments := track.DefaultSegmentOptions()

	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8642,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Track: TrackConfig{
			Bounds: BoundsConfig{
				MinLatitude:  bounds.MinLatitude,
				MaxLatitude:  bounds.MaxLatitude,
				MinLongitude: bounds.MinLongitude,
				MaxLongitude: bounds.MaxLongitude,
			},
			Normal: ProfileConfig{
				GapThreshold:     normal.GapThreshold,
				SpikeSpeedKph:    normal.SpikeSpeedKph,
				JumpSpeedKph:     normal.JumpSpeedKph,
				JumpDistanceM:    normal.JumpDistanceM,
				RealSpeedKph:     normal.RealSpeedKph,
				MinDisplacementM: normal.MinDisplacementM,
			},
			Raw: ProfileConfig{
				GapThreshold:     raw.GapThreshold,
				SpikeSpeedKph:    raw.SpikeSpeedKph,
				JumpSpeedKph:     raw.JumpSpeedKph,
				JumpDistanceM:    raw.JumpDistanceM,
				RealSpeedKph:     raw.RealSpeedKph,
				MinDisplacementM: raw.MinDisplacementM,
			},
			Segments: SegmentsConfig{
				SatelliteThreshold: segments.SatelliteThreshold,
				MinDuration:        segments.MinDuration,
				MergeGap:           segments.MergeGap,
			},
		},
		Source: SourceConfig{
			BaseURL:         "",
			Timeout:         30 * time.Second,
			RequestsPerSec:  5,
			Burst:           10,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Store: StoreConfig{
			Path:     "/data/trackwatch/reports",
			InMemory: false,
			TTL:      15 * time.Minute,
		},
		API: APIConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			MaxBodyBytes:    16 << 20, // tracks can run to tens of thousands of points
			CORSOrigins:     []string{"*"},
			MaxPoints:       200000,
		},
	}
}

// BoundingBox converts the configured rectangle to the engine type.
func (t TrackConfig) BoundingBox() track.BoundingBox {
	return track.BoundingBox{
		MinLatitude:  t.Bounds.MinLatitude,
		MaxLatitude:  t.Bounds.MaxLatitude,
		MinLongitude: t.Bounds.MinLongitude,
		MaxLongitude: t.Bounds.MaxLongitude,
	}
}

// Profile materializes the named engine profile with configured overrides.
func (t TrackConfig) Profile(name string) track.Profile {
	pc := t.Normal
	if name == track.ProfileRaw {
		pc = t.Raw
	} else {
		name = track.ProfileNormal
	}
	return track.Profile{
		Name:             name,
		GapThreshold:     pc.GapThreshold,
		SpikeSpeedKph:    pc.SpikeSpeedKph,
		JumpSpeedKph:     pc.JumpSpeedKph,
		JumpDistanceM:    pc.JumpDistanceM,
		RealSpeedKph:     pc.RealSpeedKph,
		MinDisplacementM: pc.MinDisplacementM,
		Bounds:           t.BoundingBox(),
	}
}

// SegmentOptions materializes the configured segment calibration.
func (t TrackConfig) SegmentOptions() track.SegmentOptions {
	return track.SegmentOptions{
		SatelliteThreshold: t.Segments.SatelliteThreshold,
		MinDuration:        t.Segments.MinDuration,
		MergeGap:           t.Segments.MergeGap,
		Bounds:             t.BoundingBox(),
	}
}

// validate is the shared validator instance; struct tag validation is
// stateless and safe for concurrent use.
var validate = validator.New()

// Validate checks the configuration for structural and semantic errors.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if c.Track.Bounds.MinLatitude >= c.Track.Bounds.MaxLatitude {
		return fmt.Errorf("config validation: bounds min_latitude %v must be below max_latitude %v",
			c.Track.Bounds.MinLatitude, c.Track.Bounds.MaxLatitude)
	}
	if c.Track.Bounds.MinLongitude >= c.Track.Bounds.MaxLongitude {
		return fmt.Errorf("config validation: bounds min_longitude %v must be below max_longitude %v",
			c.Track.Bounds.MinLongitude, c.Track.Bounds.MaxLongitude)
	}

	for name, pc := range map[string]ProfileConfig{"normal": c.Track.Normal, "raw": c.Track.Raw} {
		if pc.JumpSpeedKph == 0 && pc.JumpDistanceM == 0 {
			return fmt.Errorf("config validation: profile %s needs either jump_speed_kph or jump_distance_m", name)
		}
	}

	return nil
}
