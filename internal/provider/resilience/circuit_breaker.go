// Package resilience wraps outbound provider calls with circuit breaking
// and retry behavior.
package resilience

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	// Name identifies the breaker for logging and health reporting.
	Name string

	// MaxRequests is the number of probe requests allowed while half-open.
	// Default: 1.
	MaxRequests uint32

	// Timeout is how long the breaker stays open before probing.
	// Default: 60 seconds.
	Timeout time.Duration

	// ReadyToTrip decides when the breaker opens. If nil, DefaultReadyToTrip
	// is used.
	ReadyToTrip func(counts gobreaker.Counts) bool
}

// DefaultReadyToTrip opens the breaker once at least 5 requests have been
// seen and half of them failed.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < 5 {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
}

// NewCircuitBreaker creates a circuit breaker from the given configuration.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = DefaultReadyToTrip
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: cfg.ReadyToTrip,
	})
}
