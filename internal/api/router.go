// Package api wires the HTTP surface of the weerpunt service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/weerpunt/weerpunt/internal/api/handler"
	"github.com/weerpunt/weerpunt/internal/api/middleware"
	"github.com/weerpunt/weerpunt/internal/api/models"
	"github.com/weerpunt/weerpunt/internal/api/response"
	"github.com/weerpunt/weerpunt/internal/auth"
	"github.com/weerpunt/weerpunt/internal/provider/resilience"
	"github.com/weerpunt/weerpunt/internal/weather"
)

// RouterConfig holds the dependencies of the HTTP router.
type RouterConfig struct {
	Service  *weather.Service
	Registry *resilience.Registry
	Tokens   *auth.TokenService
	DB       handler.Pinger
	Logger   zerolog.Logger

	// Metrics may be nil when telemetry is disabled.
	Metrics *middleware.Metrics
}

// NewRouter builds the chi router with the full middleware chain and all
// versioned routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing("weerpunt-api"))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.ContentTypeJSON)

	ops := handler.NewOpsHandler(cfg.Registry, cfg.DB)
	estimates := handler.NewEstimateHandler(cfg.Service, cfg.Logger)
	stations := handler.NewStationHandler(cfg.Service, cfg.Logger)
	admin := handler.NewAdminHandler(cfg.Service, cfg.Logger)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", ops.Health)
			r.Get("/ready", ops.Ready)
			r.Get("/status", ops.Status)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.EstimateRateLimit))
			r.Get("/estimates/{variable}", estimates.Estimate)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.StandardRateLimit))
			r.Get("/stations/nearest", stations.Nearest)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.StandardRateLimit))
			r.Use(middleware.ServiceAuth(cfg.Tokens))
			r.Post("/cache/invalidate", admin.InvalidateCache)
			r.Post("/prefetch", admin.Prefetch)
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.NotFound(w, req, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		problem := models.NewProblem(
			models.ProblemTypeValidation,
			"Method not allowed",
			http.StatusMethodNotAllowed,
			middleware.GetRequestID(req.Context()),
		)
		response.Error(w, req, problem)
	})

	return r
}
