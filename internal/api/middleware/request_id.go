// Package middleware provides HTTP middleware for the weerpunt API.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// maxInboundRequestIDLength bounds how much client-chosen text is echoed
// back in headers and logs.
const maxInboundRequestIDLength = 64

// requestIDKey is the context key for the request ID.
type requestIDKey struct{}

// RequestID propagates the caller's X-Request-Id when it is usable, or
// assigns a fresh one. The ID is stored in the context and echoed on the
// response so clients and logs can correlate.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if !usableRequestID(requestID) {
			requestID = "req_" + uuid.NewString()[:22]
		}

		w.Header().Set("X-Request-Id", requestID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context, or "" if unset.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// usableRequestID accepts printable ASCII IDs of bounded length. Anything
// else (control characters, spaces, oversized values) is replaced rather
// than reflected back to the client.
func usableRequestID(id string) bool {
	if id == "" || len(id) > maxInboundRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}
