// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

// Package track implements the anomaly detection and segmentation engine
// for fleet GPS tracks.
//
// The engine is a pure, single-threaded computation over an in-memory list
// of points. It has three entry points:
//
//   - DetectAnomalies: a single pairwise scan over a sorted point sequence
//     producing a chronological list of discrete anomaly events (time gaps,
//     speed spikes, position jumps, out-of-bounds runs).
//   - AnalyzeSegments: an independent pass partitioning the same sequence
//     into contiguous movement/quality segments.
//   - GroupConsecutive: a presentation-only transform that merges adjacent
//     anomalies of the same type for display.
//
// Raw upstream records reach the engine through Normalize, which tolerates
// inconsistent field naming and timestamp formats at the boundary so the
// engine itself only ever sees canonical TrackPoint values.
//
// The package performs no I/O and holds no shared mutable state. Inputs are
// immutable snapshots and outputs are fresh lists, so calls are safe from
// any goroutine.
package track
