package models

import (
	"time"

	"github.com/weerpunt/weerpunt/internal/weather"
)

// HealthStatus values.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
	HealthStatusDown     = "down"
)

// Health is the response body for liveness and readiness checks.
type Health struct {
	Status  string                 `json:"status"`
	Time    time.Time              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ProviderStatus describes one upstream provider's health.
type ProviderStatus struct {
	Provider      string     `json:"provider"`
	Status        string     `json:"status"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt *time.Time `json:"lastFailureAt,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
}

// SystemStatus is the response body for the ops status endpoint.
type SystemStatus struct {
	Status    string           `json:"status"`
	Time      time.Time        `json:"time"`
	Providers []ProviderStatus `json:"providers"`
}

// EstimateResponse is the response body for an estimate query.
type EstimateResponse struct {
	Variable string                   `json:"variable"`
	Lon      float64                  `json:"lon"`
	Lat      float64                  `json:"lat"`
	Start    time.Time                `json:"start"`
	End      time.Time                `json:"end"`
	Stations int                      `json:"stations"`
	Samples  []weather.EstimateSample `json:"samples"`
}

// RankedStation is the wire form of a proximity-ranked station.
type RankedStation struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Lon        float64 `json:"lon"`
	Lat        float64 `json:"lat"`
	Altitude   float64 `json:"altitude"`
	DistanceKm float64 `json:"distanceKm"`
}

// NearestStationsResponse is the response body for a nearest-stations query.
type NearestStationsResponse struct {
	Lon      float64         `json:"lon"`
	Lat      float64         `json:"lat"`
	Stations []RankedStation `json:"stations"`
}

// PrefetchRequest is the request body for an admin prefetch trigger.
type PrefetchRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
