// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, first match wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/trackwatch/config.yaml",
	"/etc/trackwatch/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "TRACKWATCH_CONFIG"

// envPrefix namespaces the environment variables read by Load.
const envPrefix = "TRACKWATCH_"

// Load builds the configuration from layered sources:
//
//  1. built-in defaults
//  2. an optional YAML config file
//  3. TRACKWATCH_* environment variables (highest priority)
//
// Environment names map onto nested keys by replacing underscores after
// the first segment: TRACKWATCH_SERVER_PORT -> server.port,
// TRACKWATCH_TRACK_BOUNDS_MIN_LATITUDE -> track.bounds.min_latitude.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// knownSections are the top-level config keys used to split an env name
// into a nested path.
var knownSections = []string{"server", "logging", "track", "source", "store", "api"}

// knownSubsections are the second-level keys under track.
var knownSubsections = []string{"bounds", "normal", "raw", "segments"}

// envTransform converts TRACKWATCH_SECTION_REST_OF_KEY to section.rest_of_key,
// descending one more level for the track subsections.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	for _, section := range knownSections {
		rest, ok := strings.CutPrefix(key, section+"_")
		if !ok {
			continue
		}
		if section == "track" {
			for _, sub := range knownSubsections {
				if leaf, ok := strings.CutPrefix(rest, sub+"_"); ok {
					return section + "." + sub + "." + leaf
				}
			}
		}
		return section + "." + rest
	}
	return key
}
