// Package timeouts provides centralized timeout values for store and
// handler operations.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks and connectivity verification
//   - Short: single-document reads, Redis lookups
//   - Medium: list queries and live-stream reloads
//   - Long: dual writes and cascades touching several collections
//   - Geocode: one call to the geocoding service
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing    = 2 * time.Second
	DefaultShort   = 5 * time.Second
	DefaultMedium  = 10 * time.Second
	DefaultLong    = 30 * time.Second
	DefaultGeocode = 10 * time.Second
)

var mu sync.RWMutex

var (
	ping    = DefaultPing
	short   = DefaultShort
	medium  = DefaultMedium
	long    = DefaultLong
	geocode = DefaultGeocode
)

// Ping returns the timeout for health checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Short returns the timeout for simple lookups.
func Short() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return short
}

// Medium returns the timeout for list queries.
func Medium() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return medium
}

// Long returns the timeout for multi-collection writes.
func Long() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return long
}

// Geocode returns the bound on a single geocoding request.
func Geocode() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return geocode
}

// Config holds timeout configuration values.
// Zero values are ignored (defaults are kept).
type Config struct {
	Ping    time.Duration
	Short   time.Duration
	Medium  time.Duration
	Long    time.Duration
	Geocode time.Duration
}

// Configure sets custom timeout values. Call it during startup, before
// handlers are registered.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Short > 0 {
		short = cfg.Short
	}
	if cfg.Medium > 0 {
		medium = cfg.Medium
	}
	if cfg.Long > 0 {
		long = cfg.Long
	}
	if cfg.Geocode > 0 {
		geocode = cfg.Geocode
	}
}

// Reset restores all timeouts to their default values.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	short = DefaultShort
	medium = DefaultMedium
	long = DefaultLong
	geocode = DefaultGeocode
}

// Current returns the current timeout configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Short: short, Medium: medium, Long: long, Geocode: geocode}
}

// WithTimeout creates a context with timeout and returns a cancel function that
// logs a warning if the context ended because the deadline passed.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete group")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
