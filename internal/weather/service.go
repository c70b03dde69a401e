package weather

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Provider is an upstream source of station metadata and hourly observations.
type Provider interface {
	// Name identifies the provider for logging and health reporting.
	Name() string

	// FetchStations retrieves the station metadata.
	FetchStations(ctx context.Context) ([]*Station, error)

	// FetchObservations retrieves unit-normalized hourly observations
	// covering the inclusive window [start, end].
	FetchObservations(ctx context.Context, start, end time.Time) ([]*Observation, error)
}

// Query describes one estimation request.
type Query struct {
	Lon      float64
	Lat      float64
	Variable Variable
	Start    time.Time
	End      time.Time

	// Neighbors is the number of nearest stations per fit.
	// Zero means DefaultNeighbors.
	Neighbors int
}

// ServiceConfig holds configuration for the estimation service.
type ServiceConfig struct {
	// Provider is the upstream observation source.
	Provider Provider

	// Repository caches fetched observation windows. Required; use
	// NewMemoryRepository when no database is configured.
	Repository ObservationRepository

	// Logger for service operations.
	Logger zerolog.Logger

	// StationsTTL is how long fetched station metadata is reused
	// (default: 12 hours). Station locations change rarely.
	StationsTTL time.Duration
}

// Service answers estimation queries. It resolves the observation window
// through the repository with a provider fallback, filters out incomplete
// stations once per window, and delegates to the Interpolator.
type Service struct {
	provider    Provider
	repository  ObservationRepository
	logger      zerolog.Logger
	stationsTTL time.Duration

	mu            sync.RWMutex
	stations      []*Station
	stationExpiry time.Time
}

// NewService creates a new estimation service.
func NewService(cfg ServiceConfig) *Service {
	stationsTTL := cfg.StationsTTL
	if stationsTTL == 0 {
		stationsTTL = 12 * time.Hour
	}

	return &Service{
		provider:    cfg.Provider,
		repository:  cfg.Repository,
		logger:      cfg.Logger,
		stationsTTL: stationsTTL,
	}
}

// Estimate runs a query and returns its hourly sample series.
// Irradiation estimates are rounded to 5 decimal places, matching the
// precision of the ingested source values.
func (s *Service) Estimate(ctx context.Context, q Query) ([]EstimateSample, error) {
	if q.Start.After(q.End) {
		return nil, ErrInvalidRange
	}

	catalog, dataset, err := s.window(ctx, q.Start, q.End)
	if err != nil {
		return nil, err
	}

	interp := NewInterpolator(catalog, dataset, InterpolatorConfig{Neighbors: q.Neighbors})
	samples, err := interp.Estimate(q.Lon, q.Lat, q.Variable, q.Start, q.End)
	if err != nil {
		return nil, err
	}

	if q.Variable == VariableIrradiation {
		for n := range samples {
			samples[n].Value = round5(samples[n].Value)
		}
	}

	s.logger.Debug().
		Str("variable", string(q.Variable)).
		Float64("lon", q.Lon).
		Float64("lat", q.Lat).
		Int("samples", len(samples)).
		Msg("estimate computed")

	return samples, nil
}

// EstimateTemperature estimates the temperature series in °C.
func (s *Service) EstimateTemperature(ctx context.Context, lon, lat float64, start, end time.Time) ([]EstimateSample, error) {
	return s.Estimate(ctx, Query{Lon: lon, Lat: lat, Variable: VariableTemperature, Start: start, End: end})
}

// EstimateWindSpeed estimates the wind speed series in m/s.
func (s *Service) EstimateWindSpeed(ctx context.Context, lon, lat float64, start, end time.Time) ([]EstimateSample, error) {
	return s.Estimate(ctx, Query{Lon: lon, Lat: lat, Variable: VariableWindSpeed, Start: start, End: end})
}

// EstimateIrradiation estimates the global horizontal irradiation series.
func (s *Service) EstimateIrradiation(ctx context.Context, lon, lat float64, start, end time.Time) ([]EstimateSample, error) {
	return s.Estimate(ctx, Query{Lon: lon, Lat: lat, Variable: VariableIrradiation, Start: start, End: end})
}

// NearestStations ranks the k stations closest to (lon, lat). Ranking uses
// the unfiltered catalog: proximity is a property of the network, not of any
// particular observation window.
func (s *Service) NearestStations(ctx context.Context, lon, lat float64, k int) ([]RankedStation, error) {
	stations, err := s.stationList(ctx)
	if err != nil {
		return nil, err
	}
	return NewCatalog(stations).Nearest(lon, lat, k)
}

// RefreshWindow fetches a window from the provider and stores it in the
// repository, regardless of any cached copy. Used by the prefetch worker.
func (s *Service) RefreshWindow(ctx context.Context, start, end time.Time) error {
	rows, err := s.provider.FetchObservations(ctx, start, end)
	if err != nil {
		return fmt.Errorf("fetch observations from %s: %w", s.provider.Name(), err)
	}
	if err := s.repository.SaveWindow(ctx, start, end, rows); err != nil {
		return fmt.Errorf("save window: %w", err)
	}

	s.logger.Info().
		Time("start", start).
		Time("end", end).
		Int("rows", len(rows)).
		Msg("observation window refreshed")
	return nil
}

// InvalidateCache drops all cached windows and station metadata.
func (s *Service) InvalidateCache(ctx context.Context) error {
	s.mu.Lock()
	s.stations = nil
	s.stationExpiry = time.Time{}
	s.mu.Unlock()

	return s.repository.Purge(ctx)
}

// window resolves the filtered catalog/dataset pair for a time range.
func (s *Service) window(ctx context.Context, start, end time.Time) (*Catalog, *Dataset, error) {
	stations, err := s.stationList(ctx)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.repository.GetWindow(ctx, start, end)
	if err != nil {
		if err != ErrWindowNotCached {
			s.logger.Warn().Err(err).Msg("observation cache lookup failed, falling back to provider")
		}
		rows, err = s.provider.FetchObservations(ctx, start, end)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch observations from %s: %w", s.provider.Name(), err)
		}
		if saveErr := s.repository.SaveWindow(ctx, start, end, rows); saveErr != nil {
			// The estimate can still be answered from the fetched rows.
			s.logger.Warn().Err(saveErr).Msg("failed to cache observation window")
		}
	}

	catalog, dataset := FilterComplete(NewCatalog(stations), NewDataset(rows), RequiredVariables)
	return catalog, dataset, nil
}

// stationList returns station metadata, refreshing it when the cached copy
// has expired.
func (s *Service) stationList(ctx context.Context) ([]*Station, error) {
	s.mu.RLock()
	if s.stations != nil && time.Now().Before(s.stationExpiry) {
		stations := s.stations
		s.mu.RUnlock()
		return stations, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine might have refreshed while we waited.
	if s.stations != nil && time.Now().Before(s.stationExpiry) {
		return s.stations, nil
	}

	stations, err := s.provider.FetchStations(ctx)
	if err != nil {
		if s.stations != nil {
			s.logger.Warn().Err(err).Msg("serving stale station metadata after fetch failure")
			return s.stations, nil
		}
		return nil, fmt.Errorf("fetch stations from %s: %w", s.provider.Name(), err)
	}

	s.stations = stations
	s.stationExpiry = time.Now().Add(s.stationsTTL)

	s.logger.Info().Int("stations", len(stations)).Msg("station metadata refreshed")
	return stations, nil
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
