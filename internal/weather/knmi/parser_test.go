package knmi_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weerpunt/weerpunt/internal/weather"
	"github.com/weerpunt/weerpunt/internal/weather/knmi"
)

func TestParseStations(t *testing.T) {
	t.Run("parses stations with comments and spacing", func(t *testing.T) {
		input := strings.Join([]string{
			"# STN,LON(east),LAT(north),ALT(m),NAME",
			"",
			"210, 4.430, 52.171, -0.20, Valkenburg",
			"260, 5.180, 52.100,  1.90, De Bilt",
			"330, 4.122, 51.992, 11.90, Hoek van Holland",
		}, "\n")

		stations, err := knmi.ParseStations(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, stations, 3)

		assert.Equal(t, "210", stations[0].ID)
		assert.Equal(t, "Valkenburg", stations[0].Name)
		assert.InDelta(t, 4.430, stations[0].Lon, 1e-9)
		assert.InDelta(t, 52.171, stations[0].Lat, 1e-9)
		assert.InDelta(t, -0.20, stations[0].Altitude, 1e-9)

		assert.Equal(t, "De Bilt", stations[1].Name)
		assert.Equal(t, "Hoek van Holland", stations[2].Name)
	})

	t.Run("rejects short lines", func(t *testing.T) {
		_, err := knmi.ParseStations(strings.NewReader("210,4.430,52.171"))
		assert.Error(t, err)
	})

	t.Run("rejects unparseable coordinates", func(t *testing.T) {
		_, err := knmi.ParseStations(strings.NewReader("210,east,52.171,0,Valkenburg"))
		assert.Error(t, err)
	})
}

func TestParseObservations(t *testing.T) {
	t.Run("normalizes units", func(t *testing.T) {
		// STN,YYYYMMDD,HH,DD,FH,FF,FX,T,T10N,TD,SQ,Q,...
		input := "260,20230601,12,180,30,32,50,185,,120,8,270,0,0,10150,80,4,60,0,0,0,0,0,0,0"

		rows, err := knmi.ParseObservations(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, rows, 1)

		obs := rows[0]
		assert.Equal(t, "260", obs.StationID)
		assert.Equal(t, 20230601, obs.Date)
		assert.Equal(t, 12, obs.Hour)

		temp, ok := obs.Value(weather.VariableTemperature)
		require.True(t, ok)
		assert.InDelta(t, 18.5, temp, 1e-9)

		wind, ok := obs.Value(weather.VariableWindSpeed)
		require.True(t, ok)
		assert.InDelta(t, 3.2, wind, 1e-9)

		// 270 J/cm² over an hour is 270·25/9 = 750 W/m².
		irrad, ok := obs.Value(weather.VariableIrradiation)
		require.True(t, ok)
		assert.InDelta(t, 750.0, irrad, 1e-9)
	})

	t.Run("rounds irradiation to five decimals", func(t *testing.T) {
		input := "260,20230601,12,180,30,32,50,185,,120,8,1,0,0,10150,80,4,60,0,0,0,0,0,0,0"

		rows, err := knmi.ParseObservations(strings.NewReader(input))
		require.NoError(t, err)

		// 1·25/9 = 2.77777... → 2.77778
		irrad, ok := rows[0].Value(weather.VariableIrradiation)
		require.True(t, ok)
		assert.Equal(t, 2.77778, irrad)
	})

	t.Run("empty fields are missing values", func(t *testing.T) {
		input := "260,20230601,12,180,30,,50,,,120,8,,0,0,10150,80,4,60,0,0,0,0,0,0,0"

		rows, err := knmi.ParseObservations(strings.NewReader(input))
		require.NoError(t, err)

		_, ok := rows[0].Value(weather.VariableTemperature)
		assert.False(t, ok)
		_, ok = rows[0].Value(weather.VariableWindSpeed)
		assert.False(t, ok)
		_, ok = rows[0].Value(weather.VariableIrradiation)
		assert.False(t, ok)
	})

	t.Run("skips comment header", func(t *testing.T) {
		input := strings.Join([]string{
			"# STN,YYYYMMDD,HH,DD,FH,FF,FX,T,T10N,TD,SQ,Q,DR,RH,P,VV,N,U,WW,IX,M,R,S,O,Y",
			"260, 20230601, 1, 180, 30, 32, 50, 185, , 120, 8, 270, 0, 0, 10150, 80, 4, 60, 0, 0, 0, 0, 0, 0, 0",
		}, "\n")

		rows, err := knmi.ParseObservations(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, 1, rows[0].Hour)
	})

	t.Run("rejects short lines", func(t *testing.T) {
		_, err := knmi.ParseObservations(strings.NewReader("260,20230601,12"))
		assert.Error(t, err)
	})

	t.Run("rejects a non-numeric reading", func(t *testing.T) {
		input := "260,20230601,12,180,30,bad,50,185,,120,8,270,0,0,10150,80,4,60,0,0,0,0,0,0,0"
		_, err := knmi.ParseObservations(strings.NewReader(input))
		assert.Error(t, err)
	})
}
