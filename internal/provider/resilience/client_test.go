package resilience_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weerpunt/weerpunt/internal/provider/resilience"
)

func fastClient(overrides func(*resilience.ClientConfig)) *resilience.Client {
	cfg := resilience.ClientConfig{
		Name:            "test",
		Timeout:         time.Second,
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
	if overrides != nil {
		overrides(&cfg)
	}
	return resilience.NewClient(cfg)
}

func TestClientDo(t *testing.T) {
	t.Run("passes through a successful response", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := fastClient(nil).Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("retries server errors until success", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := fastClient(nil).Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := fastClient(nil).Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("returns the last response when retries are exhausted", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		client := fastClient(func(cfg *resilience.ClientConfig) {
			cfg.MaxRetries = 2
			// Keep the breaker out of the way for this case.
			cfg.CircuitBreaker = &resilience.CircuitBreakerConfig{
				Name:        "test",
				ReadyToTrip: func(gobreaker.Counts) bool { return false },
			}
		})

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("open breaker short-circuits without calling upstream", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := fastClient(func(cfg *resilience.ClientConfig) {
			cfg.MaxRetries = 1
			cfg.CircuitBreaker = &resilience.CircuitBreakerConfig{
				Name:        "test",
				Timeout:     time.Minute,
				ReadyToTrip: func(counts gobreaker.Counts) bool { return counts.TotalFailures >= 1 },
			}
		})

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		// First call fails and trips the breaker.
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, gobreaker.StateOpen, client.BreakerState())

		upstreamCalls := attempts.Load()

		_, err = client.Do(req)
		assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
		assert.Equal(t, upstreamCalls, attempts.Load())
	})
}
