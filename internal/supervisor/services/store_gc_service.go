// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package services

import (
	"context"
	"time"
)

// GarbageCollector matches *store.ReportStore's RunGC method without
// importing the store package.
type GarbageCollector interface {
	RunGC()
}

// defaultGCInterval spaces badger value log GC passes. TTL-expired
// reports only reclaim disk once GC runs, so the interval trades disk
// usage against background I/O.
const defaultGCInterval = 5 * time.Minute

// StoreGCService periodically runs report store garbage collection as a
// supervised service.
//
// Example usage:
//
//	svc := services.NewStoreGCService(reports, 0)
//	tree.AddStorageService(svc)
type StoreGCService struct {
	gc       GarbageCollector
	interval time.Duration
	name     string
}

// NewStoreGCService creates a store GC service wrapper. A non-positive
// interval selects the default.
func NewStoreGCService(gc GarbageCollector, interval time.Duration) *StoreGCService {
	if interval <= 0 {
		interval = defaultGCInterval
	}
	return &StoreGCService{
		gc:       gc,
		interval: interval,
		name:     "store-gc",
	}
}

// Serve implements suture.Service. It runs a GC pass every interval
// until the context is canceled.
func (s *StoreGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.gc.RunGC()
		}
	}
}

// String implements fmt.Stringer; suture uses it to identify the service
// in log messages.
func (s *StoreGCService) String() string {
	return s.name
}
