// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package services

import (
	"context"
)

// ContextHub matches *websocket.Hub's RunWithContext method without
// importing the websocket package.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// HubService wraps the WebSocket hub as a supervised service. The hub's
// RunWithContext method already follows the suture.Service pattern, so
// the wrapper only delegates and names the service for logging.
//
// Example usage:
//
//	hub := websocket.NewHub()
//	svc := services.NewHubService(hub)
//	tree.AddMessagingService(svc)
type HubService struct {
	hub  ContextHub
	name string
}

// NewHubService creates a new WebSocket hub service wrapper.
func NewHubService(hub ContextHub) *HubService {
	return &HubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve implements suture.Service. It returns ctx.Err() on normal
// shutdown after the hub has closed all clients.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer; suture uses it to identify the service
// in log messages.
func (s *HubService) String() string {
	return s.name
}
