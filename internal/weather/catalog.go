package weather

import (
	"math"
	"sort"
)

// earthRadiusKm approximates the Earth as a sphere. Station spacing spans
// tens to hundreds of kilometers, so spherical great-circle distance is
// accurate enough for ranking; full ellipsoidal geodesy is not needed.
const earthRadiusKm = 6373.0

// Catalog holds station metadata and ranks stations by proximity to a query
// point. It is read-only after construction; completeness filtering produces
// a new Catalog rather than mutating this one.
type Catalog struct {
	stations []*Station
	byID     map[string]*Station
}

// NewCatalog creates a catalog from the given stations. Station IDs are
// unique within a catalog; on duplicates the first entry wins.
func NewCatalog(stations []*Station) *Catalog {
	c := &Catalog{
		stations: make([]*Station, 0, len(stations)),
		byID:     make(map[string]*Station, len(stations)),
	}
	for _, s := range stations {
		if _, ok := c.byID[s.ID]; ok {
			continue
		}
		c.byID[s.ID] = s
		c.stations = append(c.stations, s)
	}
	return c
}

// Len returns the number of stations in the catalog.
func (c *Catalog) Len() int {
	return len(c.stations)
}

// Station returns the station with the given ID, or nil if absent.
func (c *Catalog) Station(id string) *Station {
	return c.byID[id]
}

// Stations returns all stations in catalog order.
func (c *Catalog) Stations() []*Station {
	out := make([]*Station, len(c.stations))
	copy(out, c.stations)
	return out
}

// Nearest returns the k stations closest to (lon, lat), ascending by
// great-circle distance with catalog order breaking ties. If k exceeds the
// catalog size, all stations are returned.
func (c *Catalog) Nearest(lon, lat float64, k int) ([]RankedStation, error) {
	if k < 1 {
		return nil, ErrInvalidNeighborCount
	}
	if len(c.stations) == 0 {
		return nil, ErrNoStations
	}

	ranked := make([]RankedStation, 0, len(c.stations))
	for _, s := range c.stations {
		ranked = append(ranked, RankedStation{
			Station:  s,
			Distance: Distance(lon, lat, s.Lon, s.Lat),
		})
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Distance < ranked[b].Distance
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k], nil
}

// Distance returns the haversine great-circle distance in kilometers
// between two lon/lat points given in degrees.
func Distance(lon1, lat1, lon2, lat2 float64) float64 {
	lon1Rad := lon1 * math.Pi / 180
	lat1Rad := lat1 * math.Pi / 180
	lon2Rad := lon2 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180

	deltaLon := lon2Rad - lon1Rad
	deltaLat := lat2Rad - lat1Rad

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
