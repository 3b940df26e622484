// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// mockHub implements ContextHub for testing.
type mockHub struct {
	runErr   error
	runCount atomic.Int32
}

func (m *mockHub) RunWithContext(ctx context.Context) error {
	m.runCount.Add(1)
	if m.runErr != nil {
		return m.runErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestHubService_ImplementsSutureService(t *testing.T) {
	var _ suture.Service = NewHubService(&mockHub{})
}

func TestHubService_Delegates(t *testing.T) {
	hub := &mockHub{}
	svc := NewHubService(hub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancellation")
	}

	if got := hub.runCount.Load(); got != 1 {
		t.Errorf("RunWithContext calls = %d, want 1", got)
	}
}

func TestHubService_PropagatesError(t *testing.T) {
	hub := &mockHub{runErr: errors.New("hub crashed")}
	svc := NewHubService(hub)

	if err := svc.Serve(context.Background()); !errors.Is(err, hub.runErr) {
		t.Errorf("Serve() error = %v, want hub error", err)
	}
}

func TestHubService_String(t *testing.T) {
	svc := NewHubService(&mockHub{})
	if svc.String() != "websocket-hub" {
		t.Errorf("String() = %q, want %q", svc.String(), "websocket-hub")
	}
}
