package weather_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weerpunt/weerpunt/internal/weather"
)

func row(stationID string, date, hour int, temp, wind, irrad float64) *weather.Observation {
	return &weather.Observation{
		StationID: stationID,
		Date:      date,
		Hour:      hour,
		Values: map[weather.Variable]float64{
			weather.VariableTemperature: temp,
			weather.VariableWindSpeed:   wind,
			weather.VariableIrradiation: irrad,
		},
	}
}

func TestDatasetAt(t *testing.T) {
	dataset := weather.NewDataset([]*weather.Observation{
		row("260", 20230601, 12, 18.5, 3.2, 450),
		row("240", 20230601, 12, 17.9, 4.1, 430),
		row("260", 20230601, 13, 19.1, 3.0, 470),
	})

	t.Run("returns rows for requested stations only", func(t *testing.T) {
		rows := dataset.At(20230601, 12, []string{"260"})
		require.Len(t, rows, 1)
		assert.Equal(t, "260", rows[0].StationID)
	})

	t.Run("stations without a row are absent", func(t *testing.T) {
		rows := dataset.At(20230601, 12, []string{"260", "310"})
		assert.Len(t, rows, 1)
	})

	t.Run("no rows for an uncovered hour", func(t *testing.T) {
		assert.Empty(t, dataset.At(20230601, 20, []string{"260", "240"}))
	})
}

func TestNewDatasetDeduplicates(t *testing.T) {
	first := row("260", 20230601, 12, 18.5, 3.2, 450)
	second := row("260", 20230601, 12, 99, 99, 99)

	dataset := weather.NewDataset([]*weather.Observation{first, second})

	assert.Equal(t, 1, dataset.Len())
	rows := dataset.At(20230601, 12, []string{"260"})
	require.Len(t, rows, 1)
	temp, _ := rows[0].Value(weather.VariableTemperature)
	assert.Equal(t, 18.5, temp)
}

func TestFilterComplete(t *testing.T) {
	stations := []*weather.Station{
		{ID: "260", Lon: 5.18, Lat: 52.1},
		{ID: "240", Lon: 4.79, Lat: 52.318},
		{ID: "310", Lon: 3.596, Lat: 51.442},
	}

	missing := &weather.Observation{
		StationID: "240",
		Date:      20230601,
		Hour:      13,
		Values: map[weather.Variable]float64{
			weather.VariableTemperature: 18.0,
			// wind speed absent
			weather.VariableIrradiation: 440,
		},
	}

	rows := []*weather.Observation{
		row("260", 20230601, 12, 18.5, 3.2, 450),
		row("260", 20230601, 13, 19.1, 3.0, 470),
		row("240", 20230601, 12, 17.9, 4.1, 430),
		missing,
		row("310", 20230601, 12, 17.0, 5.5, 420),
		row("310", 20230601, 13, 17.4, 5.1, 440),
	}

	t.Run("drops a station entirely when any row is incomplete", func(t *testing.T) {
		catalog, dataset := weather.FilterComplete(
			weather.NewCatalog(stations), weather.NewDataset(rows), weather.RequiredVariables)

		assert.Equal(t, 2, catalog.Len())
		assert.Nil(t, catalog.Station("240"))

		// The station's complete rows go with it.
		assert.Empty(t, dataset.At(20230601, 12, []string{"240"}))
		assert.Equal(t, 4, dataset.Len())
	})

	t.Run("treats NaN as missing", func(t *testing.T) {
		nanRows := []*weather.Observation{
			row("260", 20230601, 12, math.NaN(), 3.2, 450),
			row("310", 20230601, 12, 17.0, 5.5, 420),
		}
		catalog, _ := weather.FilterComplete(
			weather.NewCatalog(stations), weather.NewDataset(nanRows), weather.RequiredVariables)

		assert.Nil(t, catalog.Station("260"))
		assert.NotNil(t, catalog.Station("310"))
	})

	t.Run("filtering twice changes nothing", func(t *testing.T) {
		catalog1, dataset1 := weather.FilterComplete(
			weather.NewCatalog(stations), weather.NewDataset(rows), weather.RequiredVariables)
		catalog2, dataset2 := weather.FilterComplete(catalog1, dataset1, weather.RequiredVariables)

		assert.Equal(t, catalog1.Len(), catalog2.Len())
		assert.Equal(t, dataset1.Len(), dataset2.Len())
	})

	t.Run("inputs are left untouched", func(t *testing.T) {
		catalog := weather.NewCatalog(stations)
		dataset := weather.NewDataset(rows)
		weather.FilterComplete(catalog, dataset, weather.RequiredVariables)

		assert.Equal(t, 3, catalog.Len())
		assert.Equal(t, 6, dataset.Len())
	})

	t.Run("station with no rows at all is kept", func(t *testing.T) {
		// Completeness is about the rows a station has, not coverage.
		catalog, _ := weather.FilterComplete(
			weather.NewCatalog(stations),
			weather.NewDataset([]*weather.Observation{row("260", 20230601, 12, 18.5, 3.2, 450)}),
			weather.RequiredVariables)

		assert.NotNil(t, catalog.Station("310"))
	})
}
