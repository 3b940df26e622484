// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

// Package source fetches raw track point batches from the upstream fleet
// backend. Fetches are rate limited client-side and wrapped in a circuit
// breaker so an unavailable or slow backend cannot cascade into the
// analysis pipeline. Decoding is deliberately loose: records come back as
// raw maps and the track package's normalization pass deals with the
// field-name and formatting variance between tracker firmwares.
package source
