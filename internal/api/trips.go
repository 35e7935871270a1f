package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/banshee-data/speedwatch/internal/db"
	"github.com/banshee-data/speedwatch/internal/httputil"
	"github.com/banshee-data/speedwatch/internal/report"
	"github.com/banshee-data/speedwatch/internal/units"
)

func (s *Server) listTrips(w http.ResponseWriter, r *http.Request) {
	if s.cfg.DB == nil {
		httputil.ServiceUnavailable(w, "Recording disabled")
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	trips, err := s.cfg.DB.ListTrips(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list trips: %v", err))
		return
	}
	httputil.WriteJSONOK(w, trips)
}

// loadTrip resolves {id} and the requested units, writing an error response
// and returning ok=false when either is unusable.
func (s *Server) loadTrip(w http.ResponseWriter, r *http.Request) (trip *db.Trip, records []db.SampleRecord, unit string, ok bool) {
	if s.cfg.DB == nil {
		httputil.ServiceUnavailable(w, "Recording disabled")
		return nil, nil, "", false
	}
	unit, ok = s.unitsFor(r)
	if !ok {
		httputil.BadRequest(w, fmt.Sprintf("Invalid units. Must be one of: %s", units.GetValidUnitsString()))
		return nil, nil, "", false
	}

	id := r.PathValue("id")
	trip, err := s.cfg.DB.GetTrip(id)
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, fmt.Sprintf("Trip %s not found", id))
		return nil, nil, "", false
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to load trip: %v", err))
		return nil, nil, "", false
	}

	records, err = s.cfg.DB.TripSamples(id)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to load samples: %v", err))
		return nil, nil, "", false
	}
	return trip, records, unit, true
}

type tripResponse struct {
	*db.Trip
	Stats report.Stats `json:"stats"`
}

func (s *Server) showTrip(w http.ResponseWriter, r *http.Request) {
	trip, records, unit, ok := s.loadTrip(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, tripResponse{Trip: trip, Stats: report.Compute(records, unit)})
}

func (s *Server) listTripSamples(w http.ResponseWriter, r *http.Request) {
	_, records, _, ok := s.loadTrip(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, records)
}

func (s *Server) showTripStats(w http.ResponseWriter, r *http.Request) {
	_, records, unit, ok := s.loadTrip(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, report.Compute(records, unit))
}

func (s *Server) showTripGeoJSON(w http.ResponseWriter, r *http.Request) {
	trip, records, _, ok := s.loadTrip(w, r)
	if !ok {
		return
	}
	body, err := report.TripGeoJSON(trip, records).MarshalJSON()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to encode GeoJSON: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(body)
}

func (s *Server) showTripChart(w http.ResponseWriter, r *http.Request) {
	trip, records, unit, ok := s.loadTrip(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.RenderChart(&buf, trip, records, unit, s.cfg.Timezone); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) showTripPlot(w http.ResponseWriter, r *http.Request) {
	_, records, unit, ok := s.loadTrip(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WritePlotPNG(&buf, records, unit); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to render plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}
