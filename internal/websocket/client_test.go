// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package websocket

import (
	"testing"
)

func TestNewClient_AssignsUniqueIDs(t *testing.T) {
	hub := NewHub()

	c1 := NewClient(hub, nil)
	c2 := NewClient(hub, nil)
	c3 := NewClient(hub, nil)

	if c1.ID() == c2.ID() || c2.ID() == c3.ID() || c1.ID() == c3.ID() {
		t.Errorf("client IDs not unique: %d, %d, %d", c1.ID(), c2.ID(), c3.ID())
	}

	if !(c1.ID() < c2.ID() && c2.ID() < c3.ID()) {
		t.Errorf("client IDs not monotonically increasing: %d, %d, %d", c1.ID(), c2.ID(), c3.ID())
	}
}

func TestNewClient_SendChannelBuffered(t *testing.T) {
	hub := NewHub()
	client := NewClient(hub, nil)

	if client.send == nil {
		t.Fatal("send channel not initialized")
	}
	if cap(client.send) == 0 {
		t.Error("send channel should be buffered")
	}
	if client.hub != hub {
		t.Error("client not bound to hub")
	}
}
