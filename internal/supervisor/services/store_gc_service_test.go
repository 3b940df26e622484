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

// mockGC implements GarbageCollector for testing.
type mockGC struct {
	runs atomic.Int32
}

func (m *mockGC) RunGC() {
	m.runs.Add(1)
}

func TestStoreGCService_ImplementsSutureService(t *testing.T) {
	var _ suture.Service = NewStoreGCService(&mockGC{}, time.Minute)
}

func TestStoreGCService_RunsPeriodically(t *testing.T) {
	gc := &mockGC{}
	svc := NewStoreGCService(gc, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Wait long enough for multiple ticks.
	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancellation")
	}

	if got := gc.runs.Load(); got < 2 {
		t.Errorf("GC runs = %d, want at least 2", got)
	}
}

func TestStoreGCService_DefaultInterval(t *testing.T) {
	svc := NewStoreGCService(&mockGC{}, 0)
	if svc.interval != defaultGCInterval {
		t.Errorf("interval = %v, want %v", svc.interval, defaultGCInterval)
	}
}

func TestStoreGCService_String(t *testing.T) {
	svc := NewStoreGCService(&mockGC{}, time.Minute)
	if svc.String() != "store-gc" {
		t.Errorf("String() = %q, want %q", svc.String(), "store-gc")
	}
}
