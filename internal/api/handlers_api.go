package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lox/surfsup/internal/models"
	"github.com/lox/surfsup/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine and parsing errors onto HTTP statuses. Server-side
// failures are logged in full and reported generically.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.logFor(r)
	switch {
	case errors.Is(err, models.ErrMalformedDate):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error() + "; use YYYY-M-D or YYYY-MM-DD"})
	case errors.Is(err, context.Canceled):
		log.Debugf("request cancelled: %v", err)
	case errors.Is(err, store.ErrUnavailable):
		log.Errorf("%s: %v", r.URL.Path, err)
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: http.StatusText(http.StatusServiceUnavailable)})
	default:
		log.Errorf("%s: %v", r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: http.StatusText(http.StatusInternalServerError)})
	}
}

func (s *Server) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	readings, err := s.queries.RecentPrecipitation(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := s.queries.ListStations(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stations)
}

func (s *Server) handleTobs(w http.ResponseWriter, r *http.Request) {
	temps, err := s.queries.MostActiveStationRecentTemps(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, temps)
}

// handleTempStats serves both /{start} and /{start}/{end}. The aggregate is
// wrapped in a one-element array.
func (s *Server) handleTempStats(w http.ResponseWriter, r *http.Request) {
	start, err := models.ParseDate(r.PathValue("start"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var end *models.Date
	if raw := r.PathValue("end"); raw != "" {
		parsed, err := models.ParseDate(raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		end = &parsed
	}

	stats, err := s.queries.TemperatureStats(r.Context(), start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, []models.TemperatureStats{stats})
}

type healthStatus struct {
	Status       string `json:"status"`
	Measurements int64  `json:"measurements"`
	Stations     int64  `json:"stations"`
	Error        string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := healthStatus{Status: "ok"}
	if s.health == nil {
		writeJSON(w, http.StatusOK, health)
		return
	}

	measurements, stations, err := s.health.Counts(r.Context())
	if err != nil {
		s.logFor(r).Warnf("health: %v", err)
		health.Status = "error"
		health.Error = http.StatusText(http.StatusServiceUnavailable)
		writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	health.Measurements = measurements
	health.Stations = stations
	if measurements == 0 {
		health.Status = "empty"
	}
	writeJSON(w, http.StatusOK, health)
}
