// Package worker provides background cache warming for the weerpunt service.
package worker

import (
	"os"
	"strconv"
	"time"
)

// Window is one observation period to warm, inclusive on both ends.
type Window struct {
	Start time.Time
	End   time.Time
}

// PrefetchConfig holds configuration for the prefetch job.
type PrefetchConfig struct {
	// LookbackDays is how many whole days before today to warm.
	// Default: 7
	LookbackDays int

	// Concurrency is the number of windows fetched in parallel.
	// Default: 2; the upstream rate limits aggressive clients.
	Concurrency int

	// Timeout is the per-window fetch timeout.
	// Default: 60 seconds
	Timeout time.Duration
}

// DefaultPrefetchConfig returns the default prefetch configuration.
func DefaultPrefetchConfig() PrefetchConfig {
	return PrefetchConfig{
		LookbackDays: 7,
		Concurrency:  2,
		Timeout:      60 * time.Second,
	}
}

// PrefetchConfigFromEnv creates a PrefetchConfig from environment variables,
// falling back to defaults for unset or invalid values.
func PrefetchConfigFromEnv() PrefetchConfig {
	cfg := DefaultPrefetchConfig()

	if v, err := strconv.Atoi(os.Getenv("PREFETCH_LOOKBACK_DAYS")); err == nil && v > 0 {
		cfg.LookbackDays = v
	}
	if v, err := strconv.Atoi(os.Getenv("PREFETCH_CONCURRENCY")); err == nil && v > 0 {
		cfg.Concurrency = v
	}
	if v, err := time.ParseDuration(os.Getenv("PREFETCH_TIMEOUT")); err == nil && v > 0 {
		cfg.Timeout = v
	}

	return cfg
}

// Windows returns one whole-day window per lookback day, newest first.
// Each window spans 01:00 through 24:00 in the upstream's hour encoding,
// which maps to 01:00 of the day through 00:00 of the next.
func (c PrefetchConfig) Windows(now time.Time) []Window {
	windows := make([]Window, 0, c.LookbackDays)
	day := now.UTC().Truncate(24 * time.Hour)

	for i := 1; i <= c.LookbackDays; i++ {
		start := day.AddDate(0, 0, -i).Add(time.Hour)
		windows = append(windows, Window{
			Start: start,
			End:   start.Add(23 * time.Hour),
		})
	}
	return windows
}
