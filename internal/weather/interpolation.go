package weather

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// DefaultNeighbors is the number of nearby stations used for a fit when the
// caller does not ask for a specific count.
const DefaultNeighbors = 3

// InterpolatorConfig holds configuration for the spatial interpolator.
type InterpolatorConfig struct {
	// Neighbors is the number of nearest stations whose readings feed each
	// hourly fit. Default: DefaultNeighbors.
	Neighbors int
}

// Interpolator estimates a weather variable at an arbitrary point by fitting
// a planar surface to nearby station readings, one fit per hour.
//
// The same plane-plus-clamp model is used for all variables. Clamping
// negative fits to zero is physically motivated for wind speed and
// irradiation; applying it to temperature as well is an accepted limitation
// of sharing one model.
type Interpolator struct {
	catalog *Catalog
	dataset *Dataset
	config  InterpolatorConfig
}

// NewInterpolator creates an interpolator over a filtered catalog/dataset
// pair. Callers should pass the views produced by FilterComplete.
func NewInterpolator(catalog *Catalog, dataset *Dataset, cfg InterpolatorConfig) *Interpolator {
	if cfg.Neighbors <= 0 {
		cfg.Neighbors = DefaultNeighbors
	}
	return &Interpolator{
		catalog: catalog,
		dataset: dataset,
		config:  cfg,
	}
}

// Estimate returns one sample per hour from start to end inclusive.
//
// Station ranking does not depend on time, so the nearest stations are
// resolved once per query. Each hour is then fit independently: the loop is
// a strictly ordered sequence of per-hour computations, and any failure
// aborts the whole series rather than producing partial results.
func (i *Interpolator) Estimate(lon, lat float64, variable Variable, start, end time.Time) ([]EstimateSample, error) {
	if start.After(end) {
		return nil, ErrInvalidRange
	}

	nearest, err := i.catalog.Nearest(lon, lat, i.config.Neighbors)
	if err != nil {
		return nil, err
	}
	stationIDs := make([]string, len(nearest))
	for n, rs := range nearest {
		stationIDs[n] = rs.Station.ID
	}

	var samples []EstimateSample
	for t := start; !t.After(end); t = t.Add(time.Hour) {
		date, hour := DateHour(t)

		rows := i.dataset.At(date, hour, stationIDs)
		if len(rows) == 0 {
			return nil, &NoDataForHourError{Date: date, Hour: hour}
		}

		value, err := i.fitHour(lon, lat, variable, date, hour, rows)
		if err != nil {
			return nil, err
		}
		if value < 0 {
			value = 0
		}

		samples = append(samples, EstimateSample{
			Index:     len(samples),
			Value:     value,
			Time:      t,
			Timestamp: t.Unix(),
		})
	}

	return samples, nil
}

// fitHour fits value ≈ a·lon + b·lat + c over one hour's rows by least
// squares and evaluates the plane at the query point. Three free parameters
// need at least three non-collinear points.
func (i *Interpolator) fitHour(lon, lat float64, variable Variable, date, hour int, rows []*Observation) (float64, error) {
	type point struct {
		lon, lat, value float64
	}

	points := make([]point, 0, len(rows))
	for _, row := range rows {
		value, ok := row.Value(variable)
		if !ok {
			continue
		}
		station := i.catalog.Station(row.StationID)
		if station == nil {
			continue
		}
		points = append(points, point{lon: station.Lon, lat: station.Lat, value: value})
	}

	if len(points) < 3 {
		return 0, &UnderdeterminedFitError{Date: date, Hour: hour, Points: len(points)}
	}

	design := mat.NewDense(len(points), 3, nil)
	observed := mat.NewVecDense(len(points), nil)
	for n, p := range points {
		design.Set(n, 0, p.lon)
		design.Set(n, 1, p.lat)
		design.Set(n, 2, 1)
		observed.SetVec(n, p.value)
	}

	var qr mat.QR
	qr.Factorize(design)

	var coef mat.VecDense
	if err := qr.SolveVecTo(&coef, false, observed); err != nil {
		// Singular design matrix: the points are collinear.
		return 0, &UnderdeterminedFitError{Date: date, Hour: hour, Points: len(points)}
	}

	return coef.AtVec(0)*lon + coef.AtVec(1)*lat + coef.AtVec(2), nil
}
