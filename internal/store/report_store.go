// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/trackwatch/internal/config"
	"github.com/tomtom215/trackwatch/internal/logging"
	"github.com/tomtom215/trackwatch/internal/metrics"
	"github.com/tomtom215/trackwatch/internal/track"
)

// ErrReportNotFound is returned when no cached report exists for the key.
var ErrReportNotFound = errors.New("store: report not found")

const reportKeyPrefix = "report:"

// Report is a cached anomaly scan result for one device and time range.
type Report struct {
	DeviceID    string          `json:"device_id"`
	Profile     string          `json:"profile"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	GeneratedAt time.Time       `json:"generated_at"`
	PointCount  int             `json:"point_count"`
	Anomalies   []track.Anomaly `json:"anomalies"`
}

// ReportStore caches anomaly reports in BadgerDB.
type ReportStore struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (or creates) the badger database described by cfg.
func Open(cfg config.StoreConfig) (*ReportStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = nil // Badger's logger is too chatty; failures surface as errors

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Dur("ttl", cfg.TTL).Msg("report store opened")
	return &ReportStore{db: db, ttl: cfg.TTL}, nil
}

// Close closes the underlying database.
func (s *ReportStore) Close() error {
	return s.db.Close()
}

// reportKey builds the cache key for a device, profile and time range.
// Timestamps are truncated to the second so clients asking for the same
// logical range hit the same entry.
func reportKey(deviceID, profile string, from, to time.Time) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%d:%d", reportKeyPrefix, deviceID, profile, from.Unix(), to.Unix()))
}

// Put stores a report under its device, profile and range key. Entries
// expire after the configured TTL; a zero TTL disables expiry.
func (s *ReportStore) Put(report *Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	key := reportKey(report.DeviceID, report.Profile, report.From, report.To)

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, data)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Get retrieves a cached report, returning ErrReportNotFound on miss or
// expiry. Cache hit/miss counters are updated as a side effect.
func (s *ReportStore) Get(deviceID, profile string, from, to time.Time) (*Report, error) {
	var report Report

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(reportKey(deviceID, profile, from, to))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrReportNotFound
		}
		if err != nil {
			return fmt.Errorf("get report: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &report)
		})
	})

	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			metrics.ReportCacheMisses.Inc()
		}
		return nil, err
	}

	metrics.ReportCacheHits.Inc()
	return &report, nil
}

// DeleteDevice removes all cached reports for a device. Returns the number
// of entries removed.
func (s *ReportStore) DeleteDevice(deviceID string) (int, error) {
	var keys [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(reportKeyPrefix + deviceID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan reports: %w", err)
	}

	count := 0
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete report: %w", err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Count returns the number of cached reports.
func (s *ReportStore) Count() (int, error) {
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(reportKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}

// RunGC runs badger value log garbage collection until it reports nothing
// left to collect. Intended to be called periodically from a background
// goroutine.
func (s *ReportStore) RunGC() {
	for {
		if err := s.db.RunValueLogGC(0.5); err != nil {
			return
		}
	}
}
