package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/banshee-data/speedwatch/internal/geo"
	"github.com/banshee-data/speedwatch/internal/httputil"
	"github.com/banshee-data/speedwatch/internal/tracker"
	"github.com/banshee-data/speedwatch/internal/units"
	"github.com/banshee-data/speedwatch/internal/version"
)

// maxPushBody bounds a posted fix or error report.
const maxPushBody = 4 << 10

// statusResponse is the tracker snapshot plus display values in the
// requested units.
type statusResponse struct {
	tracker.Snapshot
	Source    string `json:"source"`
	TripID    string `json:"trip_id,omitempty"`
	Units     string `json:"units"`
	UnitLabel string `json:"unit_label"`
	// Speed is omitted when there is no estimate.
	Speed *float64 `json:"speed,omitempty"`
	// LimitDisplay is omitted for unlimited roads.
	LimitDisplay *float64 `json:"limit_display,omitempty"`
}

func (s *Server) status(snap tracker.Snapshot, unit string) statusResponse {
	resp := statusResponse{
		Snapshot:  snap,
		Source:    s.cfg.Source,
		TripID:    s.cfg.TripID,
		Units:     unit,
		UnitLabel: units.Label(unit),
	}
	if est := snap.Estimate(); est.Valid {
		v := units.ConvertSpeed(est.KMH, unit)
		resp.Speed = &v
	}
	if !snap.Limit.Unlimited {
		v := units.ConvertSpeed(snap.Limit.KMH, unit)
		resp.LimitDisplay = &v
	}
	return resp
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	unit, ok := s.unitsFor(r)
	if !ok {
		httputil.BadRequest(w, fmt.Sprintf("Invalid units. Must be one of: %s", units.GetValidUnitsString()))
		return
	}
	httputil.WriteJSONOK(w, s.status(s.cfg.Tracker.Snapshot(), unit))
}

// streamEvents is a Server-Sent Events stream of status updates. The
// current status is sent first.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	unit, ok := s.unitsFor(r)
	if !ok {
		httputil.BadRequest(w, fmt.Sprintf("Invalid units. Must be one of: %s", units.GetValidUnitsString()))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.InternalServerError(w, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	id, events := s.cfg.Tracker.Subscribe()
	defer s.cfg.Tracker.Unsubscribe(id)

	if err := writeEvent(w, tracker.EventState, s.status(s.cfg.Tracker.Snapshot(), unit)); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, e.Kind, s.status(e.Snapshot, unit)); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, kind tracker.EventKind, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", kind, payload)
	return err
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, version.Info())
}

func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]any{"services": servicesList()})
}

// positionRequest is a fix as reported by the browser geolocation API.
type positionRequest struct {
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Timestamp int64    `json:"timestamp"`
	Accuracy  float64  `json:"accuracy"`
}

func (s *Server) pushPosition(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Push == nil {
		httputil.WriteJSONError(w, http.StatusConflict, "Push source not enabled; start with --source=push")
		return
	}

	var req positionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPushBody)).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}
	if req.Lat == nil || req.Lon == nil {
		httputil.BadRequest(w, "lat and lon are required")
		return
	}

	sample, err := s.cfg.Push.Push(geo.Sample{
		Lat:             *req.Lat,
		Lon:             *req.Lon,
		TimestampMillis: req.Timestamp,
		AccuracyM:       req.Accuracy,
	})
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, sample)
}

type positionErrorRequest struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func (s *Server) pushPositionError(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Push == nil {
		httputil.WriteJSONError(w, http.StatusConflict, "Push source not enabled; start with --source=push")
		return
	}

	var req positionErrorRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPushBody)).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}
	if err := s.cfg.Push.PushError(req.Code); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
