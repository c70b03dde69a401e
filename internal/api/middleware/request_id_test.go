package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weerpunt/weerpunt/internal/api/middleware"
)

func TestRequestID(t *testing.T) {
	t.Run("generates an id when none is provided", func(t *testing.T) {
		var captured string
		handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = middleware.GetRequestID(r.Context())
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.True(t, strings.HasPrefix(captured, "req_"))
		assert.Equal(t, captured, rec.Header().Get("X-Request-Id"))
	})

	t.Run("propagates an incoming id", func(t *testing.T) {
		var captured string
		handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = middleware.GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", "req_client_chosen")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "req_client_chosen", captured)
		assert.Equal(t, "req_client_chosen", rec.Header().Get("X-Request-Id"))
	})

	t.Run("replaces unusable incoming ids", func(t *testing.T) {
		for name, id := range map[string]string{
			"control characters": "req_\x00evil",
			"embedded space":     "two words",
			"oversized":          strings.Repeat("x", 200),
		} {
			t.Run(name, func(t *testing.T) {
				var captured string
				handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					captured = middleware.GetRequestID(r.Context())
				}))

				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.Header.Set("X-Request-Id", id)

				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)

				assert.NotEqual(t, id, captured)
				assert.True(t, strings.HasPrefix(captured, "req_"))
			})
		}
	})

	t.Run("empty without the middleware", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Empty(t, middleware.GetRequestID(req.Context()))
	})
}
