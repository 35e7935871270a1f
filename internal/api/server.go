// Package api serves the tracker's live state, the browser position feed,
// recorded trips and the nearby-services pages over HTTP.
package api

import (
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/speedwatch/internal/db"
	"github.com/banshee-data/speedwatch/internal/nearby"
	"github.com/banshee-data/speedwatch/internal/position"
	"github.com/banshee-data/speedwatch/internal/tracker"
	"github.com/banshee-data/speedwatch/internal/units"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Config wires a Server. Tracker is required; the rest may be nil to
// disable the routes that need them.
type Config struct {
	Tracker *tracker.Tracker
	DB      *db.DB
	Finder  *nearby.Finder
	// Push accepts browser fixes when the push source is selected.
	Push *position.PushSource
	// Static is served at /.
	Static fs.FS
	// Source names the active position source for /api/status.
	Source string
	// TripID is the trip being recorded, if any.
	TripID   string
	Units    string
	Timezone *time.Location
	// LocateTimeout bounds the one-shot fix of the navigation redirect.
	LocateTimeout time.Duration
}

type Server struct {
	cfg Config
}

func NewServer(cfg Config) *Server {
	if !units.IsValid(cfg.Units) {
		cfg.Units = units.KPH
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.LocateTimeout <= 0 {
		cfg.LocateTimeout = 10 * time.Second
	}
	return &Server{cfg: cfg}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.showStatus)
	mux.HandleFunc("GET /api/events", s.streamEvents)
	mux.HandleFunc("GET /api/version", s.showVersion)
	mux.HandleFunc("GET /api/services", s.listServices)

	mux.HandleFunc("POST /api/positions", s.pushPosition)
	mux.HandleFunc("POST /api/positions/error", s.pushPositionError)

	mux.HandleFunc("GET /api/trips", s.listTrips)
	mux.HandleFunc("GET /api/trips/{id}", s.showTrip)
	mux.HandleFunc("GET /api/trips/{id}/samples", s.listTripSamples)
	mux.HandleFunc("GET /api/trips/{id}/stats", s.showTripStats)
	mux.HandleFunc("GET /api/trips/{id}/geojson", s.showTripGeoJSON)
	mux.HandleFunc("GET /api/trips/{id}/chart", s.showTripChart)
	mux.HandleFunc("GET /api/trips/{id}/plot.png", s.showTripPlot)

	mux.HandleFunc("GET /nearby", s.showNearby)
	mux.HandleFunc("GET /api/navigate/nearby", s.navigateNearby)

	if s.cfg.Static != nil {
		// Method-less: a GET pattern here would conflict with /debug/.
		mux.Handle("/", http.FileServerFS(s.cfg.Static))
	}
	return mux
}

// unitsFor returns the units requested with ?units=, or the server default.
func (s *Server) unitsFor(r *http.Request) (string, bool) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return s.cfg.Units, true
	}
	return u, units.IsValid(u)
}
