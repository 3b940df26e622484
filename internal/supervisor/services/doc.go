// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

// Package services wraps Trackwatch components as suture.Service
// implementations so the supervisor tree can manage their lifecycles.
// Each wrapper accepts a small interface rather than the concrete type,
// which keeps the package free of dependency cycles and testable with
// mocks.
package services
