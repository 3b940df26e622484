// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

// Package websocket implements the push channel for live analysis results.
//
// The Hub fans out anomaly reports and analysis progress updates to all
// connected dashboard clients. Communication is push-only: clients may send
// ping messages to keep the connection alive, but the server never acts on
// other inbound payloads.
package websocket
