// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

// Package main is the entry point for the Trackwatch server.
//
// Trackwatch analyzes fleet vehicle GPS tracks for anomalies (time gaps,
// speed spikes, position jumps, out-of-bounds excursions) and partitions
// tracks into quality segments. It serves scan results over a REST API
// and pushes completed device reports to WebSocket subscribers.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: settings from environment variables and config files (Koanf v2)
//  2. Report store: BadgerDB cache for device scan reports
//  3. Source client: rate-limited upstream track fetcher with circuit breaker
//  4. WebSocket hub: real-time report delivery to connected clients
//  5. Supervisor tree: Suture-managed lifecycles with per-layer isolation
//  6. HTTP server: REST API with Prometheus metrics
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables (TRACKWATCH_ prefix), a config
// file, then built-in defaults.
//
// Common settings:
//   - TRACKWATCH_SERVER_PORT: HTTP listen port (default 8642)
//   - TRACKWATCH_SOURCE_BASE_URL: upstream track API (empty disables device scans)
//   - TRACKWATCH_STORE_PATH: report cache directory
//   - TRACKWATCH_STORE_IN_MEMORY: keep the cache off disk
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, waits for in-flight requests to complete
// (bounded by the shutdown timeout), closes WebSocket clients, and
// closes the report store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/trackwatch/internal/api"
	"github.com/tomtom215/trackwatch/internal/config"
	"github.com/tomtom215/trackwatch/internal/logging"
	"github.com/tomtom215/trackwatch/internal/source"
	"github.com/tomtom215/trackwatch/internal/store"
	"github.com/tomtom215/trackwatch/internal/supervisor"
	"github.com/tomtom215/trackwatch/internal/supervisor/services"
	ws "github.com/tomtom215/trackwatch/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Trackwatch with supervisor tree")

	if cfg.Source.BaseURL != "" {
		logging.Info().
			Str("source_url", cfg.Source.BaseURL).
			Str("store_path", cfg.Store.Path).
			Msg("Configuration loaded")
	} else {
		logging.Info().
			Bool("source_enabled", false).
			Str("store_path", cfg.Store.Path).
			Msg("Configuration loaded (scan-only mode, no upstream source)")
	}

	reports, err := store.Open(cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open report store")
	}
	defer func() {
		if err := reports.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing report store")
		}
	}()
	logging.Info().Bool("in_memory", cfg.Store.InMemory).Msg("Report store opened")

	// The source client is created unconditionally; an empty base URL
	// leaves it unconfigured and device scan requests answer 503.
	src := source.NewClient(cfg.Source)
	if src.Configured() {
		if err := src.Ping(context.Background()); err != nil {
			logging.Warn().Err(err).Msg("Failed to reach track source (will retry)")
		} else {
			logging.Info().Msg("Connected to track source")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog compatibility.
	slogLogger := logging.NewSlogLogger()

	tree := supervisor.NewTree(slogLogger, supervisor.DefaultTreeConfig())

	hub := ws.NewHub()
	tree.AddMessagingService(services.NewHubService(hub))

	if !cfg.Store.InMemory {
		tree.AddStorageService(services.NewStoreGCService(reports, 0))
	}

	handler := api.NewHandler(cfg, hub, src, reports)
	router := api.NewRouter(cfg, handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().
		Str("addr", server.Addr).
		Msg("HTTP server configured")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain the error channel so shutdown errors surface in the log.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
