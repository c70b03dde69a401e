package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/weerpunt/weerpunt/internal/api/middleware"
	"github.com/weerpunt/weerpunt/internal/api/models"
	"github.com/weerpunt/weerpunt/internal/api/response"
)

// CacheAdmin is the subset of the estimation service the admin endpoints use.
type CacheAdmin interface {
	RefreshWindow(ctx context.Context, start, end time.Time) error
	InvalidateCache(ctx context.Context) error
}

// AdminHandler serves the token-protected administrative endpoints.
type AdminHandler struct {
	service CacheAdmin
	logger  zerolog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(service CacheAdmin, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{service: service, logger: logger}
}

// InvalidateCache handles POST /v1/admin/cache/invalidate.
func (h *AdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if err := h.service.InvalidateCache(r.Context()); err != nil {
		h.logger.Error().Err(err).
			Str("caller", middleware.GetCaller(r.Context())).
			Msg("cache invalidation failed")
		response.InternalError(w, r, "could not invalidate cache")
		return
	}

	h.logger.Info().
		Str("caller", middleware.GetCaller(r.Context())).
		Msg("cache invalidated")
	response.NoContent(w, r)
}

// Prefetch handles POST /v1/admin/prefetch. The fetch runs in the background;
// the response only acknowledges the request.
func (h *AdminHandler) Prefetch(w http.ResponseWriter, r *http.Request) {
	var req models.PrefetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	if req.Start.IsZero() || req.End.IsZero() {
		response.BadRequest(w, r, "start and end are required", nil)
		return
	}
	if req.Start.After(req.End) {
		response.BadRequest(w, r, "start must not be after end", nil)
		return
	}

	caller := middleware.GetCaller(r.Context())
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Minute)
		defer cancel()

		if err := h.service.RefreshWindow(ctx, req.Start, req.End); err != nil {
			h.logger.Error().Err(err).
				Time("start", req.Start).
				Time("end", req.End).
				Str("caller", caller).
				Msg("prefetch failed")
			return
		}
		h.logger.Info().
			Time("start", req.Start).
			Time("end", req.End).
			Str("caller", caller).
			Msg("prefetch completed")
	}()

	response.Accepted(w, r, map[string]string{"status": "accepted"})
}
