// Package weather provides point-weather estimation from a sparse network
// of fixed observation stations.
package weather

import (
	"errors"
	"fmt"
	"time"
)

// Estimation errors.
var (
	// ErrNoStations is returned when the station catalog is empty at query time.
	ErrNoStations = errors.New("station catalog is empty")

	// ErrInvalidNeighborCount is returned when fewer than one neighbor is requested.
	ErrInvalidNeighborCount = errors.New("neighbor count must be at least 1")

	// ErrInvalidRange is returned when a query's start time is after its end time.
	ErrInvalidRange = errors.New("start time is after end time")
)

// NoDataForHourError is returned when no observation rows match a required
// hour among the selected stations. A gap invalidates the whole requested
// series, so this aborts the query rather than skipping the hour.
type NoDataForHourError struct {
	Date int // YYYYMMDD
	Hour int // 1-24
}

func (e *NoDataForHourError) Error() string {
	return fmt.Sprintf("no observations for date %d hour %d", e.Date, e.Hour)
}

// UnderdeterminedFitError is returned when a planar fit has fewer than three
// usable points, or when the points are collinear.
type UnderdeterminedFitError struct {
	Date   int
	Hour   int
	Points int
}

func (e *UnderdeterminedFitError) Error() string {
	return fmt.Sprintf("planar fit underdetermined for date %d hour %d (%d points)", e.Date, e.Hour, e.Points)
}

// Variable identifies an estimated weather variable.
type Variable string

const (
	VariableTemperature Variable = "temperature" // °C
	VariableWindSpeed   Variable = "wind_speed"  // m/s
	VariableIrradiation Variable = "irradiation" // global horizontal, W/m²
)

// RequiredVariables lists the variables every retained station must report
// for every hour in the active window.
var RequiredVariables = []Variable{VariableTemperature, VariableWindSpeed, VariableIrradiation}

// Station is a fixed-location weather sensor.
type Station struct {
	ID       string
	Name     string
	Lon      float64 // degrees East
	Lat      float64 // degrees North
	Altitude float64 // meters; not used by the estimation itself
}

// Observation holds one station's readings for one hour. Hour is encoded
// 1-24, where 24 is midnight at the end of Date (so 00:00 of the next day
// is stored as hour 24 of the previous one, following the KNMI convention).
type Observation struct {
	StationID string
	Date      int // YYYYMMDD
	Hour      int // 1-24
	Values    map[Variable]float64
}

// Value returns the reading for a variable and whether it is present.
func (o *Observation) Value(v Variable) (float64, bool) {
	val, ok := o.Values[v]
	return val, ok
}

// RankedStation is a station annotated with its great-circle distance to a
// query point. Recomputed per query.
type RankedStation struct {
	Station  *Station
	Distance float64 // km
}

// EstimateSample is one estimated value in an hourly series.
type EstimateSample struct {
	Index     int       `json:"index"`
	Value     float64   `json:"value"`
	Time      time.Time `json:"time"`
	Timestamp int64     `json:"timestamp"` // epoch seconds, convenience duplicate of Time
}
