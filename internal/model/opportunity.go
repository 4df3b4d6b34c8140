// Package model defines the domain types shared across discovery and
// enrichment.
package model

import (
	"time"

	"github.com/roamvest/scout-api/pkg/geo"
)

// DataAvailability classifies how well a city is covered by market data.
type DataAvailability string

const (
	AvailabilityHigh   DataAvailability = "high"
	AvailabilityMedium DataAvailability = "medium"
	AvailabilityLow    DataAvailability = "low"
)

// DriveSource records which path produced a driving-time figure.
type DriveSource string

const (
	// DriveSourceAPI means the routing provider returned a real route.
	DriveSourceAPI DriveSource = "api"
	// DriveSourceHeuristic means the distance-based estimate was substituted
	// after the provider lookup failed.
	DriveSourceHeuristic DriveSource = "heuristic"
)

// PlaceCandidate is a raw place returned by the gazetteer for a sampled
// point, before filtering. Transient within one discovery call.
type PlaceCandidate struct {
	ExternalID  string
	Name        string
	Region      string
	CountryCode string
	CountryName string
	Coordinates geo.Point
}

// NearbyLocation is a validated, filtered place ready for enrichment.
type NearbyLocation struct {
	ID          string    `json:"id"`
	City        string    `json:"city"`
	Region      string    `json:"region,omitempty"`
	Country     string    `json:"country"`
	Coordinates geo.Point `json:"coordinates"`

	// DistanceKm is the great-circle distance from the search origin,
	// recomputed by the discovery service rather than trusted from the
	// gazetteer.
	DistanceKm float64 `json:"distanceKm"`
}

// PreviewMetrics holds the rough financial preview attached to an
// opportunity before a full analysis is run.
type PreviewMetrics struct {
	EstimatedMonthlyRevenue int     `json:"estimatedMonthlyRevenue"`
	EstimatedROI            float64 `json:"estimatedROI"`
}

// Opportunity is the enriched, user-facing record: a nearby location with
// driving time and preview investment metrics attached. Never mutated after
// creation; re-derived on every query.
type Opportunity struct {
	ID               string           `json:"id"`
	Coordinates      geo.Point        `json:"coordinates"`
	City             string           `json:"city"`
	Region           string           `json:"region"`
	Country          string           `json:"country"`
	DistanceKm       float64          `json:"distanceKm"`
	DrivingTimeMin   int              `json:"drivingTimeMin"`
	DriveSource      DriveSource      `json:"driveSource"`
	PreviewMetrics   PreviewMetrics   `json:"previewMetrics"`
	DataAvailability DataAvailability `json:"dataAvailability"`
	LastUpdated      time.Time        `json:"lastUpdated"`
}
