// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/trackwatch/internal/config"
	"github.com/tomtom215/trackwatch/internal/logging"
	"github.com/tomtom215/trackwatch/internal/metrics"
	"github.com/tomtom215/trackwatch/internal/track"
)

// ErrNotConfigured is returned when no upstream base URL has been set.
// Deployments that only use the POST analysis endpoints run without a
// configured source.
var ErrNotConfigured = errors.New("source: no upstream base URL configured")

const (
	maxRetries     = 3
	retryBaseDelay = time.Second
	maxResponseMB  = 64
)

// Client fetches track point batches from the fleet backend.
//
// DETERMINISM NOTE: The circuit breaker uses real time (via sony/gobreaker)
// for its interval and timeout calculations. This is intentional for
// production resilience; tests should exercise the HTTP path directly
// rather than waiting out breaker state transitions.
//
// Thread Safety: Safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]track.RawRecord]
}

// NewClient creates a fleet backend client from configuration. The breaker
// opens after the configured number of consecutive failures and probes
// again after the configured timeout.
func NewClient(cfg config.SourceConfig) *Client {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	cb := gobreaker.NewCircuitBreaker[[]track.RawRecord](gobreaker.Settings{
		Name:        "track-source",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("source circuit breaker state transition")
		},
	})

	return &Client{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		cb:      cb,
	}
}

// Configured reports whether an upstream base URL is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// FetchPoints retrieves the raw point records recorded by a device within
// [from, to]. Records are returned undecoded; callers run them through
// track.Normalize.
func (c *Client) FetchPoints(ctx context.Context, deviceID string, from, to time.Time) ([]track.RawRecord, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	start := time.Now()
	records, err := c.cb.Execute(func() ([]track.RawRecord, error) {
		return c.fetch(ctx, deviceID, from, to)
	})
	metrics.SourceFetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.SourceFetches.WithLabelValues("breaker_open").Inc()
			logging.Warn().Str("device_id", deviceID).Err(err).Msg("source fetch rejected by circuit breaker")
		} else {
			metrics.SourceFetches.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	metrics.SourceFetches.WithLabelValues("ok").Inc()
	logging.Debug().
		Str("device_id", deviceID).
		Int("records", len(records)).
		Dur("elapsed", time.Since(start)).
		Msg("fetched track points")
	return records, nil
}

// fetch performs a single rate-limited request with 429 retry handling.
func (c *Client) fetch(ctx context.Context, deviceID string, from, to time.Time) ([]track.RawRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	params := url.Values{}
	params.Set("from", from.UTC().Format(time.RFC3339))
	params.Set("to", to.UTC().Format(time.RFC3339))
	reqURL := fmt.Sprintf("%s/api/devices/%s/track?%s", c.baseURL, url.PathEscape(deviceID), params.Encode())

	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("track fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var records []track.RawRecord
	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxResponseMB<<20))
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode track response: %w", err)
	}
	return records, nil
}

// doRequestWithRateLimit performs an HTTP request with automatic rate limit
// handling. Implements exponential backoff for HTTP 429 responses, honoring
// Retry-After when present. The context is used for cancellation during
// backoff waits.
func (c *Client) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close()

		if attempt == maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", maxRetries)
			break
		}

		delay := retryBaseDelay * time.Duration(1<<uint(attempt))

		// Honor Retry-After (RFC 6585) when the backend supplies it
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// Ping verifies connectivity to the fleet backend. Used by the readiness
// probe; the breaker is bypassed so a probe cannot consume its budget.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create ping request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping failed with status %d", resp.StatusCode)
	}
	return nil
}

// readBodyForError reads up to 1KB of a response body for error messages.
func readBodyForError(r io.Reader) []byte {
	body, _ := io.ReadAll(io.LimitReader(r, 1024))
	return body
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
