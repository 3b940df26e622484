// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

// Package store persists anomaly reports in BadgerDB so repeated dashboard
// requests for the same device and time range do not re-fetch and re-scan
// the upstream track. Entries carry a TTL; Badger evicts them on its own
// schedule and reads treat expired entries as misses.
package store
