package middleware

import (
	"net/http"
	"strings"

	"github.com/weerpunt/weerpunt/internal/api/models"
)

// ContentTypeJSON rejects request bodies that are not application/json.
// GET, HEAD and DELETE requests pass through unchecked.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if r.ContentLength > 0 {
				contentType := r.Header.Get("Content-Type")
				if !strings.HasPrefix(contentType, "application/json") {
					problem := models.NewProblem(
						models.ProblemTypeValidation,
						"Unsupported media type",
						http.StatusUnsupportedMediaType,
						GetRequestID(r.Context()),
					)
					problem.Detail = "request body must be application/json"
					problem.Instance = r.URL.Path
					problem.Write(w)
					return
				}
			}
		}

		next.ServeHTTP(w, r)
	})
}
