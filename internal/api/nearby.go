package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/banshee-data/speedwatch/internal/geo"
	"github.com/banshee-data/speedwatch/internal/httputil"
	"github.com/banshee-data/speedwatch/internal/monitoring"
	"github.com/banshee-data/speedwatch/internal/nearby"
	"github.com/banshee-data/speedwatch/internal/position"
)

func servicesList() []string {
	return nearby.Services()
}

type nearbyResponse struct {
	Service string         `json:"service"`
	Lat     float64        `json:"lat"`
	Lng     float64        `json:"lng"`
	Places  []nearby.Place `json:"places"`
}

// wantsHTML reports whether the client navigated here from a browser rather
// than calling the JSON API.
func wantsHTML(r *http.Request) bool {
	switch r.URL.Query().Get("format") {
	case "html":
		return true
	case "json":
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// showNearby lists named places of ?service= around ?lat=&lng=.
func (s *Server) showNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	service := q.Get("service")
	html := wantsHTML(r)

	p, err := geo.ParsePoint(q.Get("lat"), q.Get("lng"))
	if err != nil {
		if html {
			s.renderNearby(w, http.StatusBadRequest, nearby.PageData{Service: service, Error: err.Error()})
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}
	if s.cfg.Finder == nil {
		httputil.ServiceUnavailable(w, "Nearby lookup disabled")
		return
	}

	places, err := s.cfg.Finder.Find(r.Context(), service, p)
	if err != nil {
		monitoring.Logf("nearby: %s around %s: %v", service, p, err)
		if html {
			s.renderNearby(w, http.StatusBadGateway, nearby.PageData{Service: service, Lat: p.Lat, Lng: p.Lon, Error: "Lookup failed, try again later."})
			return
		}
		httputil.WriteJSONError(w, http.StatusBadGateway, fmt.Sprintf("Lookup failed: %v", err))
		return
	}

	if html {
		s.renderNearby(w, http.StatusOK, nearby.PageData{Service: service, Lat: p.Lat, Lng: p.Lon, Places: places})
		return
	}
	httputil.WriteJSONOK(w, nearbyResponse{Service: service, Lat: p.Lat, Lng: p.Lon, Places: places})
}

func (s *Server) renderNearby(w http.ResponseWriter, status int, data nearby.PageData) {
	var buf bytes.Buffer
	if err := nearby.RenderPage(&buf, data); err != nil {
		httputil.InternalServerError(w, "Failed to render template")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// navigateNearby takes a one-shot fix and redirects to the nearby page for
// ?service= at that position.
func (s *Server) navigateNearby(w http.ResponseWriter, r *http.Request) {
	service := r.URL.Query().Get("service")
	if service == "" {
		httputil.BadRequest(w, "service is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.LocateTimeout)
	defer cancel()
	sample, err := s.cfg.Tracker.CurrentPosition(ctx)
	if err != nil {
		monitoring.Logf("navigate: error fetching location: %v", err)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": fmt.Sprintf("Error fetching location: %v", err),
			"code":  position.ErrorCode(err),
		})
		return
	}
	http.Redirect(w, r, "/"+nearby.RedirectURL(service, sample.Point()), http.StatusFound)
}
