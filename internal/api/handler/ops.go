// Package handler contains the HTTP handlers for the weerpunt API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/weerpunt/weerpunt/internal/api/models"
	"github.com/weerpunt/weerpunt/internal/api/response"
	"github.com/weerpunt/weerpunt/internal/provider/resilience"
)

// Pinger verifies connectivity to a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandler serves the operational endpoints.
type OpsHandler struct {
	registry *resilience.Registry
	db       Pinger
}

// NewOpsHandler creates an OpsHandler. db may be nil when the service runs
// without a database.
func NewOpsHandler(registry *resilience.Registry, db Pinger) *OpsHandler {
	return &OpsHandler{registry: registry, db: db}
}

// Health handles liveness checks.
func (h *OpsHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   time.Now().UTC(),
	})
}

// Ready handles readiness checks. It reports degraded with a 503 when the
// database is unreachable.
func (h *OpsHandler) Ready(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status:  models.HealthStatusOK,
		Time:    time.Now().UTC(),
		Details: map[string]interface{}{},
	}

	status := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			health.Status = models.HealthStatusDown
			health.Details["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			health.Details["database"] = "ok"
		}
	}

	response.JSON(w, r, status, health)
}

// Status reports the health of every registered upstream provider.
func (h *OpsHandler) Status(w http.ResponseWriter, r *http.Request) {
	all := h.registry.AllHealth()

	overall := models.HealthStatusOK
	providers := make([]models.ProviderStatus, 0, len(all))
	for _, p := range all {
		status := models.HealthStatusOK
		if !p.IsHealthy() {
			status = models.HealthStatusDegraded
			overall = models.HealthStatusDegraded
		}
		providers = append(providers, models.ProviderStatus{
			Provider:      p.Name,
			Status:        status,
			LastSuccessAt: p.LastSuccessAt,
			LastFailureAt: p.LastFailureAt,
			LastError:     p.LastError,
		})
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:    overall,
		Time:      time.Now().UTC(),
		Providers: providers,
	})
}
