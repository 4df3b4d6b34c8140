package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/roamvest/scout-api/internal/discovery"
	"github.com/roamvest/scout-api/internal/drivetime"
	"github.com/roamvest/scout-api/internal/enrich"
	"github.com/roamvest/scout-api/internal/model"
	"github.com/roamvest/scout-api/pkg/geo"
)

type nearbyResponse struct {
	Locations []model.NearbyLocation `json:"locations"`
	Cached    bool                   `json:"cached"`

	// Timestamp is epoch milliseconds and only present on cached responses,
	// telling the client when the list was computed.
	Timestamp int64 `json:"timestamp,omitempty"`
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	origin, radius, ok := s.parseSearchParams(w, r)
	if !ok {
		return
	}

	result, err := s.discoverer.FindNearby(r.Context(), origin, radius)
	if err != nil {
		var verr *discovery.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, "invalid_request", verr.Error())
			return
		}
		zap.L().Error("nearby discovery failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error",
			"failed to discover nearby locations")
		return
	}

	locations := result.Locations
	if locations == nil {
		locations = []model.NearbyLocation{}
	}
	resp := nearbyResponse{
		Locations: locations,
		Cached:    result.Cached,
	}
	if result.Cached {
		resp.Timestamp = result.Timestamp.UnixMilli()
	}
	writeJSON(w, http.StatusOK, resp)
}

type drivingTimeRequest struct {
	Origin      *geo.Point `json:"origin"`
	Destination *geo.Point `json:"destination"`
}

type drivingTimeResponse struct {
	Duration int     `json:"duration"`
	Distance float64 `json:"distance"`
	Cached   bool    `json:"cached"`
}

func (s *Server) handleDrivingTime(w http.ResponseWriter, r *http.Request) {
	var req drivingTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Origin == nil || req.Destination == nil {
		writeError(w, http.StatusBadRequest, "invalid_request",
			"origin and destination are required")
		return
	}

	est, err := s.drive.DrivingTime(r.Context(), *req.Origin, *req.Destination)
	if err != nil {
		var verr *drivetime.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, "invalid_request", verr.Error())
		case errors.Is(err, drivetime.ErrNoRoute):
			writeError(w, http.StatusNotFound, "no_route",
				"no drivable route between origin and destination")
		default:
			zap.L().Error("driving time lookup failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "upstream_error",
				"failed to resolve driving time")
		}
		return
	}

	writeJSON(w, http.StatusOK, drivingTimeResponse{
		Duration: est.DurationMin,
		Distance: est.DistanceKm,
	})
}

type opportunitiesResponse struct {
	Opportunities []model.Opportunity `json:"opportunities"`
	Cached        bool                `json:"cached"`
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	origin, radius, ok := s.parseSearchParams(w, r)
	if !ok {
		return
	}

	maxDriving := s.opts.DefaultMaxDrivingMin
	if raw := r.URL.Query().Get("maxDrivingTime"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request",
				"maxDrivingTime must be a non-negative integer")
			return
		}
		maxDriving = v
	}
	devMode := r.URL.Query().Get("dev") == "true"

	result, err := s.discoverer.FindNearby(r.Context(), origin, radius)
	if err != nil {
		var verr *discovery.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, "invalid_request", verr.Error())
			return
		}
		zap.L().Error("opportunity discovery failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error",
			"failed to discover nearby locations")
		return
	}

	opportunities, err := s.enricher.Enrich(r.Context(), result.Locations, origin, enrich.Filters{
		MaxDrivingTimeMin: maxDriving,
		DevMode:           devMode,
	})
	if err != nil {
		zap.L().Error("opportunity enrichment failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error",
			"failed to enrich opportunities")
		return
	}
	if opportunities == nil {
		opportunities = []model.Opportunity{}
	}

	writeJSON(w, http.StatusOK, opportunitiesResponse{
		Opportunities: opportunities,
		Cached:        result.Cached,
	})
}

// parseSearchParams reads lat, lng and the optional radius query parameters.
// On failure it writes a 400 response and returns ok=false.
func (s *Server) parseSearchParams(w http.ResponseWriter, r *http.Request) (geo.Point, float64, bool) {
	q := r.URL.Query()

	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		writeError(w, http.StatusBadRequest, "invalid_request",
			"lat and lng must be valid numbers")
		return geo.Point{}, 0, false
	}

	radius := s.opts.DefaultRadiusKm
	if raw := q.Get("radius"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request",
				"radius must be a valid number")
			return geo.Point{}, 0, false
		}
		radius = v
	}

	return geo.Point{Lat: lat, Lng: lng}, radius, true
}
