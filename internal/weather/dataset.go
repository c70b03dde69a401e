package weather

import "math"

// obsKey uniquely identifies an observation row.
type obsKey struct {
	stationID string
	date      int
	hour      int
}

// Dataset holds per-station hourly observation rows. At most one row exists
// per (station, date, hour). Like Catalog, a Dataset is read-only after
// construction.
type Dataset struct {
	rows      []*Observation
	index     map[obsKey]*Observation
	byStation map[string][]*Observation
}

// NewDataset creates a dataset from the given rows. On duplicate
// (station, date, hour) keys the first row wins.
func NewDataset(rows []*Observation) *Dataset {
	d := &Dataset{
		rows:      make([]*Observation, 0, len(rows)),
		index:     make(map[obsKey]*Observation, len(rows)),
		byStation: make(map[string][]*Observation),
	}
	for _, row := range rows {
		key := obsKey{stationID: row.StationID, date: row.Date, hour: row.Hour}
		if _, ok := d.index[key]; ok {
			continue
		}
		d.index[key] = row
		d.rows = append(d.rows, row)
		d.byStation[row.StationID] = append(d.byStation[row.StationID], row)
	}
	return d
}

// Len returns the number of observation rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Rows returns all observation rows in insertion order.
func (d *Dataset) Rows() []*Observation {
	out := make([]*Observation, len(d.rows))
	copy(out, d.rows)
	return out
}

// At returns the observation rows for (date, hour) restricted to the given
// station IDs. Stations without a matching row are simply absent from the
// result; callers decide whether that is an error.
func (d *Dataset) At(date, hour int, stationIDs []string) []*Observation {
	var matched []*Observation
	for _, id := range stationIDs {
		if row, ok := d.index[obsKey{stationID: id, date: date, hour: hour}]; ok {
			matched = append(matched, row)
		}
	}
	return matched
}

// FilterComplete removes stations with incomplete data. A station missing a
// value for any required variable in any of its rows is excluded entirely:
// from the catalog and from the dataset, not just for the affected hours.
// The interpolator assumes any station ranked by Nearest has usable data for
// any hour; partial coverage would otherwise surface as a fit failure deep
// inside the per-hour loop.
//
// New filtered views are returned; the inputs are left untouched, which also
// makes repeated filtering a no-op.
func FilterComplete(catalog *Catalog, dataset *Dataset, required []Variable) (*Catalog, *Dataset) {
	complete := func(id string) bool {
		for _, row := range dataset.byStation[id] {
			for _, v := range required {
				val, ok := row.Values[v]
				if !ok || math.IsNaN(val) {
					return false
				}
			}
		}
		return true
	}

	var keptStations []*Station
	kept := make(map[string]bool, catalog.Len())
	for _, s := range catalog.stations {
		if complete(s.ID) {
			kept[s.ID] = true
			keptStations = append(keptStations, s)
		}
	}

	var keptRows []*Observation
	for _, row := range dataset.rows {
		if kept[row.StationID] {
			keptRows = append(keptRows, row)
		}
	}

	return NewCatalog(keptStations), NewDataset(keptRows)
}
