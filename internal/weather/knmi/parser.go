package knmi

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/weerpunt/weerpunt/internal/weather"
)

// Column positions in the KNMI hourly data format. The full header is
// STN,YYYYMMDD,HH,DD,FH,FF,FX,T,T10N,TD,SQ,Q,DR,RH,P,VV,N,U,WW,IX,M,R,S,O,Y.
const (
	colStation = 0
	colDate    = 1
	colHour    = 2
	colWind    = 5  // FF, hourly mean wind speed in 0.1 m/s
	colTemp    = 7  // T, temperature in 0.1 °C
	colIrrad   = 11 // Q, global radiation in J/cm²

	minObservationColumns = 12
)

// ParseStations parses KNMI station metadata (columns STN, LON(east),
// LAT(north), ALT(m), NAME). Lines starting with '#' are comments. Fields
// are padded for alignment, so each is trimmed individually; interior
// spaces in the station name are kept ("De Bilt" stays "De Bilt").
func ParseStations(r io.Reader) ([]*weather.Station, error) {
	var stations []*weather.Station

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < 5 {
			return nil, fmt.Errorf("stations line %d: expected 5 fields, got %d", lineNo, len(fields))
		}
		for n := range fields {
			fields[n] = strings.TrimSpace(fields[n])
		}

		lon, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("stations line %d: parse longitude: %w", lineNo, err)
		}
		lat, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("stations line %d: parse latitude: %w", lineNo, err)
		}
		alt, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("stations line %d: parse altitude: %w", lineNo, err)
		}

		stations = append(stations, &weather.Station{
			ID:       fields[0],
			Name:     fields[4],
			Lon:      lon,
			Lat:      lat,
			Altitude: alt,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stations: %w", err)
	}

	return stations, nil
}

// ParseObservations parses a KNMI hourly data response body into observation
// rows. Units are normalized here, once: temperature and wind speed arrive in
// tenths (0.1 °C, 0.1 m/s) and irradiation in J/cm², which is converted to
// W/m² averaged over the hour (×25/9) and rounded to 5 decimals. Empty
// fields become missing values.
func ParseObservations(r io.Reader) ([]*weather.Observation, error) {
	var observations []*weather.Observation

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.ReplaceAll(scanner.Text(), " ", "")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < minObservationColumns {
			return nil, fmt.Errorf("observations line %d: expected at least %d fields, got %d",
				lineNo, minObservationColumns, len(fields))
		}

		date, err := strconv.Atoi(fields[colDate])
		if err != nil {
			return nil, fmt.Errorf("observations line %d: parse date: %w", lineNo, err)
		}
		hour, err := strconv.Atoi(fields[colHour])
		if err != nil {
			return nil, fmt.Errorf("observations line %d: parse hour: %w", lineNo, err)
		}

		obs := &weather.Observation{
			StationID: fields[colStation],
			Date:      date,
			Hour:      hour,
			Values:    make(map[weather.Variable]float64, 3),
		}

		if v, ok, err := parseReading(fields[colTemp]); err != nil {
			return nil, fmt.Errorf("observations line %d: parse temperature: %w", lineNo, err)
		} else if ok {
			obs.Values[weather.VariableTemperature] = v / 10
		}

		if v, ok, err := parseReading(fields[colWind]); err != nil {
			return nil, fmt.Errorf("observations line %d: parse wind speed: %w", lineNo, err)
		} else if ok {
			obs.Values[weather.VariableWindSpeed] = v / 10
		}

		if v, ok, err := parseReading(fields[colIrrad]); err != nil {
			return nil, fmt.Errorf("observations line %d: parse irradiation: %w", lineNo, err)
		} else if ok {
			obs.Values[weather.VariableIrradiation] = math.Round(v*(25.0/9.0)*1e5) / 1e5
		}

		observations = append(observations, obs)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read observations: %w", err)
	}

	return observations, nil
}

// parseReading parses one numeric field; an empty field is a missing value.
func parseReading(field string) (float64, bool, error) {
	if field == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}
