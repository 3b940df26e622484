// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

// Package supervisor provides Suture-based process supervision for
// Trackwatch. The tree isolates failures by layer: a crashing WebSocket
// hub restarts without taking down the HTTP server, and vice versa.
package supervisor
