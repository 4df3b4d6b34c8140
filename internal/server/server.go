// Package server exposes the discovery and enrichment pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/roamvest/scout-api/internal/discovery"
	"github.com/roamvest/scout-api/internal/drivetime"
	"github.com/roamvest/scout-api/internal/enrich"
	"github.com/roamvest/scout-api/internal/metrics"
	"github.com/roamvest/scout-api/internal/model"
	"github.com/roamvest/scout-api/pkg/geo"
)

// Discoverer finds nearby locations around an origin.
type Discoverer interface {
	FindNearby(ctx context.Context, origin geo.Point, radiusKm float64) (*discovery.Result, error)
}

// DriveTimer resolves the driving time between two points.
type DriveTimer interface {
	DrivingTime(ctx context.Context, origin, destination geo.Point) (*drivetime.Estimate, error)
}

// Enricher turns discovered locations into investment opportunities.
type Enricher interface {
	Enrich(ctx context.Context, locations []model.NearbyLocation, origin geo.Point, f enrich.Filters) ([]model.Opportunity, error)
}

// Options tunes the HTTP surface.
type Options struct {
	// AllowedOrigins is the CORS allow-list for the SPA. Empty means "*".
	AllowedOrigins []string

	// MapboxConfigured reports whether the upstream credential is present.
	// When false, API routes answer with a configuration error instead of
	// issuing unauthenticated upstream calls.
	MapboxConfigured bool

	// DefaultRadiusKm applies when the radius query parameter is omitted.
	DefaultRadiusKm float64

	// DefaultMaxDrivingMin applies when maxDrivingTime is omitted on the
	// opportunities route.
	DefaultMaxDrivingMin int
}

// Server holds the handler dependencies.
type Server struct {
	discoverer Discoverer
	drive      DriveTimer
	enricher   Enricher
	opts       Options
}

// New creates a Server. Zero-value option fields fall back to sensible
// defaults.
func New(d Discoverer, dt DriveTimer, e Enricher, opts Options) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.DefaultRadiusKm <= 0 {
		opts.DefaultRadiusKm = 100
	}
	if opts.DefaultMaxDrivingMin <= 0 {
		opts.DefaultMaxDrivingMin = 120
	}
	return &Server{discoverer: d, drive: dt, enricher: e, opts: opts}
}

// Router builds the chi router with the full middleware chain and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(durationMetric)
		r.Use(s.requireUpstream)
		r.Get("/locations/nearby", s.handleNearby)
		r.Post("/driving-time", s.handleDrivingTime)
		r.Get("/opportunities", s.handleOpportunities)
	})

	return r
}

// requireUpstream rejects API calls when the routing provider credential is
// absent. The failure is explicit so misconfiguration never degrades into
// silent empty responses.
func (s *Server) requireUpstream(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.opts.MapboxConfigured {
			writeError(w, http.StatusInternalServerError, "configuration_error",
				"mapbox token is not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"mapboxConfigured": s.opts.MapboxConfigured,
	})
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
