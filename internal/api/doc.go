// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

// Package api provides the HTTP surface of the analysis engine: anomaly
// scans and segment analysis over posted point batches, device-scoped
// scans backed by the upstream source and the report cache, health
// probes, Prometheus metrics, and the websocket upgrade endpoint.
package api
