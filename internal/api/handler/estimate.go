package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/weerpunt/weerpunt/internal/api/models"
	"github.com/weerpunt/weerpunt/internal/api/response"
	"github.com/weerpunt/weerpunt/internal/provider/resilience"
	"github.com/weerpunt/weerpunt/internal/weather"
)

// maxWindowHours caps the length of a single estimate query.
const maxWindowHours = 31 * 24

// EstimateHandler serves estimate queries.
type EstimateHandler struct {
	service *weather.Service
	logger  zerolog.Logger
}

// NewEstimateHandler creates an EstimateHandler.
func NewEstimateHandler(service *weather.Service, logger zerolog.Logger) *EstimateHandler {
	return &EstimateHandler{service: service, logger: logger}
}

// variableFromPath maps the URL path segment to a weather variable.
func variableFromPath(segment string) (weather.Variable, bool) {
	switch segment {
	case "temperature":
		return weather.VariableTemperature, true
	case "wind-speed":
		return weather.VariableWindSpeed, true
	case "irradiation":
		return weather.VariableIrradiation, true
	}
	return "", false
}

// Estimate handles GET /v1/estimates/{variable}.
func (h *EstimateHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	variable, ok := variableFromPath(chi.URLParam(r, "variable"))
	if !ok {
		response.NotFound(w, r, "unknown variable; expected temperature, wind-speed or irradiation")
		return
	}

	lon, lat, fieldErrs := parseCoordinates(r)

	start, end, timeErrs := parseWindow(r)
	fieldErrs = append(fieldErrs, timeErrs...)

	neighbors := 0
	if raw := r.URL.Query().Get("stations"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fieldErrs = append(fieldErrs, models.FieldError{
				Field:   "stations",
				Message: "must be a positive integer",
				Code:    "invalid",
			})
		} else {
			neighbors = n
		}
	}

	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid query parameters", fieldErrs)
		return
	}

	samples, err := h.service.Estimate(r.Context(), weather.Query{
		Lon:       lon,
		Lat:       lat,
		Variable:  variable,
		Start:     start,
		End:       end,
		Neighbors: neighbors,
	})
	if err != nil {
		h.writeEstimateError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.EstimateResponse{
		Variable: string(variable),
		Lon:      lon,
		Lat:      lat,
		Start:    start,
		End:      end,
		Stations: neighbors,
		Samples:  samples,
	})
}

// writeEstimateError maps domain errors onto problem responses. Configuration
// mistakes are the caller's fault, data gaps are unprocessable, and upstream
// outages are unavailability.
func (h *EstimateHandler) writeEstimateError(w http.ResponseWriter, r *http.Request, err error) {
	var noData *weather.NoDataForHourError
	var underdetermined *weather.UnderdeterminedFitError

	switch {
	case errors.Is(err, weather.ErrInvalidRange):
		response.BadRequest(w, r, "start must not be after end", nil)
	case errors.Is(err, weather.ErrInvalidNeighborCount):
		response.BadRequest(w, r, "station count must be at least 1", nil)
	case errors.As(err, &noData):
		response.Unprocessable(w, r,
			fmt.Sprintf("no observations available for date %d hour %d", noData.Date, noData.Hour))
	case errors.As(err, &underdetermined):
		response.Unprocessable(w, r,
			fmt.Sprintf("too few usable observations for date %d hour %d to fit a plane", underdetermined.Date, underdetermined.Hour))
	case errors.Is(err, weather.ErrNoStations):
		response.ServiceUnavailable(w, r, "no station metadata available")
	case errors.Is(err, resilience.ErrCircuitOpen):
		response.ServiceUnavailable(w, r, "weather data provider is temporarily unavailable")
	default:
		h.logger.Error().Err(err).Msg("estimate query failed")
		response.ServiceUnavailable(w, r, "could not retrieve weather observations")
	}
}

// parseCoordinates reads and validates lon/lat query parameters.
func parseCoordinates(r *http.Request) (lon, lat float64, fieldErrs []models.FieldError) {
	q := r.URL.Query()

	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		fieldErrs = append(fieldErrs, models.FieldError{
			Field:   "lon",
			Message: "must be a number between -180 and 180",
			Code:    "invalid",
		})
	}

	lat, err = strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		fieldErrs = append(fieldErrs, models.FieldError{
			Field:   "lat",
			Message: "must be a number between -90 and 90",
			Code:    "invalid",
		})
	}

	return lon, lat, fieldErrs
}

// parseWindow reads and validates the start/end query parameters (RFC3339).
func parseWindow(r *http.Request) (start, end time.Time, fieldErrs []models.FieldError) {
	q := r.URL.Query()

	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		fieldErrs = append(fieldErrs, models.FieldError{
			Field:   "start",
			Message: "must be an RFC3339 timestamp",
			Code:    "invalid",
		})
	}

	end, err = time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		fieldErrs = append(fieldErrs, models.FieldError{
			Field:   "end",
			Message: "must be an RFC3339 timestamp",
			Code:    "invalid",
		})
	}

	if len(fieldErrs) == 0 && end.Sub(start) > maxWindowHours*time.Hour {
		fieldErrs = append(fieldErrs, models.FieldError{
			Field:   "end",
			Message: fmt.Sprintf("window must not exceed %d hours", maxWindowHours),
			Code:    "too_long",
		})
	}

	return start, end, fieldErrs
}
