package weather_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weerpunt/weerpunt/internal/weather"
)

// mockProvider is a scripted observation provider for testing.
type mockProvider struct {
	mu sync.Mutex

	stations []*weather.Station
	rows     []*weather.Observation

	stationErr error
	obsErr     error

	stationCalls int
	obsCalls     int
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) FetchStations(_ context.Context) ([]*weather.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stationCalls++
	if m.stationErr != nil {
		return nil, m.stationErr
	}
	return m.stations, nil
}

func (m *mockProvider) FetchObservations(_ context.Context, _, _ time.Time) ([]*weather.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obsCalls++
	if m.obsErr != nil {
		return nil, m.obsErr
	}
	return m.rows, nil
}

func (m *mockProvider) calls() (stations, observations int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stationCalls, m.obsCalls
}

func newTestService(t *testing.T, provider *mockProvider) *weather.Service {
	t.Helper()
	return weather.NewService(weather.ServiceConfig{
		Provider:   provider,
		Repository: weather.NewMemoryRepository(0),
		Logger:     zerolog.Nop(),
	})
}

func TestServiceEstimate(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	values := map[string]float64{"a": 10, "b": 12, "c": 14}

	provider := &mockProvider{
		stations: planeStations(),
		rows:     hourlyRows(values, start, start),
	}
	service := newTestService(t, provider)

	t.Run("computes the planar estimate", func(t *testing.T) {
		samples, err := service.EstimateTemperature(context.Background(), 0.5, 0.5, start, start)
		require.NoError(t, err)
		require.Len(t, samples, 1)
		assert.InDelta(t, 13.0, samples[0].Value, 1e-9)
	})

	t.Run("rejects inverted range before any fetch", func(t *testing.T) {
		_, obsBefore := provider.calls()
		_, err := service.EstimateTemperature(context.Background(), 0.5, 0.5, start.Add(time.Hour), start)
		assert.ErrorIs(t, err, weather.ErrInvalidRange)
		_, obsAfter := provider.calls()
		assert.Equal(t, obsBefore, obsAfter)
	})
}

func TestServiceEstimateIrradiationRounding(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

	// Values chosen so the fit at (1/3, 1/3) is a repeating decimal.
	values := map[string]float64{"a": 10, "b": 11, "c": 12}
	provider := &mockProvider{
		stations: planeStations(),
		rows:     hourlyRows(values, start, start),
	}
	service := newTestService(t, provider)

	irr, err := service.EstimateIrradiation(context.Background(), 1.0/3, 1.0/3, start, start)
	require.NoError(t, err)

	// v = 2·lon + 1·lat + 10 → 10.999999... rounded to 5 decimals.
	assert.Equal(t, 11.0, irr[0].Value)

	// Temperature keeps full precision.
	temp, err := service.EstimateTemperature(context.Background(), 1.0/3, 1.0/3, start, start)
	require.NoError(t, err)
	assert.InDelta(t, 11.0, temp[0].Value, 1e-9)
}

func TestServiceWindowCaching(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	values := map[string]float64{"a": 10, "b": 12, "c": 14}

	provider := &mockProvider{
		stations: planeStations(),
		rows:     hourlyRows(values, start, start),
	}
	service := newTestService(t, provider)

	_, err := service.EstimateTemperature(context.Background(), 0.5, 0.5, start, start)
	require.NoError(t, err)
	_, err = service.EstimateWindSpeed(context.Background(), 0.5, 0.5, start, start)
	require.NoError(t, err)

	_, obsCalls := provider.calls()
	assert.Equal(t, 1, obsCalls, "second query for the same window must hit the cache")
}

func TestServiceStationCaching(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	values := map[string]float64{"a": 10, "b": 12, "c": 14}

	provider := &mockProvider{
		stations: planeStations(),
		rows:     hourlyRows(values, start, start),
	}
	service := newTestService(t, provider)

	_, err := service.NearestStations(context.Background(), 0.5, 0.5, 2)
	require.NoError(t, err)
	_, err = service.NearestStations(context.Background(), 0.5, 0.5, 2)
	require.NoError(t, err)

	stationCalls, _ := provider.calls()
	assert.Equal(t, 1, stationCalls)

	t.Run("stale metadata is served when a refresh fails", func(t *testing.T) {
		require.NoError(t, service.InvalidateCache(context.Background()))

		// Prime the cache, then break the provider. The TTL has not passed,
		// so the cached copy is used without a fetch attempt.
		_, err := service.NearestStations(context.Background(), 0.5, 0.5, 2)
		require.NoError(t, err)

		provider.mu.Lock()
		provider.stationErr = errors.New("upstream down")
		provider.mu.Unlock()

		ranked, err := service.NearestStations(context.Background(), 0.5, 0.5, 2)
		require.NoError(t, err)
		assert.Len(t, ranked, 2)
	})
}

func TestServiceIncompleteStationsFiltered(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

	// Four stations; the one closest to the query point has a missing wind
	// reading, so the fit must fall back to the other three.
	stations := append(planeStations(), &weather.Station{ID: "near", Lon: 0.5, Lat: 0.5})

	rows := hourlyRows(map[string]float64{"a": 10, "b": 12, "c": 14}, start, start)
	rows = append(rows, &weather.Observation{
		StationID: "near",
		Date:      20230601,
		Hour:      10,
		Values: map[weather.Variable]float64{
			weather.VariableTemperature: 99,
			weather.VariableIrradiation: 99,
		},
	})

	provider := &mockProvider{stations: stations, rows: rows}
	service := newTestService(t, provider)

	samples, err := service.EstimateTemperature(context.Background(), 0.5, 0.5, start, start)
	require.NoError(t, err)
	assert.InDelta(t, 13.0, samples[0].Value, 1e-9)
}

func TestServiceProviderFailure(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

	provider := &mockProvider{
		stations: planeStations(),
		obsErr:   errors.New("upstream down"),
	}
	service := newTestService(t, provider)

	_, err := service.EstimateTemperature(context.Background(), 0.5, 0.5, start, start)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mock")
}

func TestServiceRefreshWindow(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	values := map[string]float64{"a": 10, "b": 12, "c": 14}

	provider := &mockProvider{
		stations: planeStations(),
		rows:     hourlyRows(values, start, start),
	}
	service := newTestService(t, provider)

	require.NoError(t, service.RefreshWindow(context.Background(), start, start))

	// The estimate should now be served from the cache.
	_, err := service.EstimateTemperature(context.Background(), 0.5, 0.5, start, start)
	require.NoError(t, err)

	_, obsCalls := provider.calls()
	assert.Equal(t, 1, obsCalls)
}

func TestServiceInvalidateCache(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	values := map[string]float64{"a": 10, "b": 12, "c": 14}

	provider := &mockProvider{
		stations: planeStations(),
		rows:     hourlyRows(values, start, start),
	}
	service := newTestService(t, provider)

	_, err := service.EstimateTemperature(context.Background(), 0.5, 0.5, start, start)
	require.NoError(t, err)

	require.NoError(t, service.InvalidateCache(context.Background()))

	_, err = service.EstimateTemperature(context.Background(), 0.5, 0.5, start, start)
	require.NoError(t, err)

	_, obsCalls := provider.calls()
	assert.Equal(t, 2, obsCalls, "invalidation must force a refetch")
}
