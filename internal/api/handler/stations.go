package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/weerpunt/weerpunt/internal/api/models"
	"github.com/weerpunt/weerpunt/internal/api/response"
	"github.com/weerpunt/weerpunt/internal/weather"
)

const defaultNearestCount = 5

// StationHandler serves station queries.
type StationHandler struct {
	service *weather.Service
	logger  zerolog.Logger
}

// NewStationHandler creates a StationHandler.
func NewStationHandler(service *weather.Service, logger zerolog.Logger) *StationHandler {
	return &StationHandler{service: service, logger: logger}
}

// Nearest handles GET /v1/stations/nearest.
func (h *StationHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	lon, lat, fieldErrs := parseCoordinates(r)

	k := defaultNearestCount
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fieldErrs = append(fieldErrs, models.FieldError{
				Field:   "k",
				Message: "must be a positive integer",
				Code:    "invalid",
			})
		} else {
			k = n
		}
	}

	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid query parameters", fieldErrs)
		return
	}

	ranked, err := h.service.NearestStations(r.Context(), lon, lat, k)
	if err != nil {
		if errors.Is(err, weather.ErrNoStations) {
			response.ServiceUnavailable(w, r, "no station metadata available")
			return
		}
		h.logger.Error().Err(err).Msg("nearest stations query failed")
		response.ServiceUnavailable(w, r, "could not retrieve station metadata")
		return
	}

	stations := make([]models.RankedStation, 0, len(ranked))
	for _, rs := range ranked {
		stations = append(stations, models.RankedStation{
			ID:         rs.Station.ID,
			Name:       rs.Station.Name,
			Lon:        rs.Station.Lon,
			Lat:        rs.Station.Lat,
			Altitude:   rs.Station.Altitude,
			DistanceKm: rs.Distance,
		})
	}

	response.JSON(w, r, http.StatusOK, models.NearestStationsResponse{
		Lon:      lon,
		Lat:      lat,
		Stations: stations,
	})
}
