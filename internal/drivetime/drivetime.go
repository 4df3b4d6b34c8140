// Package drivetime exposes point-to-point driving durations from the
// routing provider. The client is stateless: no caching and no retries —
// both are the caller's concern.
package drivetime

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/singleflight"

	"github.com/roamvest/scout-api/internal/metrics"
	"github.com/roamvest/scout-api/pkg/geo"
	"github.com/roamvest/scout-api/pkg/mapbox"
)

// Router is the directions lookup the client wraps. mapbox.Client
// satisfies it.
type Router interface {
	Route(ctx context.Context, origin, destination geo.Point) (*mapbox.Route, error)
}

// Estimate is a driving-time lookup result in user-facing units.
type Estimate struct {
	DurationMin int     `json:"duration"`
	DistanceKm  float64 `json:"distance"`
}

// ErrNoRoute means the provider found no drivable path between the points.
// Callers may substitute a heuristic; it is not a hard failure.
var ErrNoRoute = mapbox.ErrNoRoute

// ValidationError marks a caller-side input problem: the heuristic must NOT
// be substituted for these.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "drivetime: " + e.Reason
}

// Client resolves driving times. Identical concurrent lookups are collapsed
// into a single upstream request via singleflight; results are never cached
// beyond that.
type Client struct {
	router Router
	group  singleflight.Group
}

// NewClient creates a driving-time client over the given router.
func NewClient(router Router) *Client {
	return &Client{router: router}
}

// DrivingTime returns the fastest driving route between origin and
// destination. Fails with ValidationError for out-of-range coordinates,
// ErrNoRoute when no drivable path exists, and a wrapped upstream error
// otherwise.
func (c *Client) DrivingTime(ctx context.Context, origin, destination geo.Point) (*Estimate, error) {
	if !origin.Valid() || !destination.Valid() {
		return nil, &ValidationError{Reason: "origin and destination must both be valid coordinates"}
	}

	metrics.DrivingTimeRequestsTotal.Inc()

	key := fmt.Sprintf("%.6f,%.6f;%.6f,%.6f", origin.Lat, origin.Lng, destination.Lat, destination.Lng)
	v, err, _ := c.group.Do(key, func() (any, error) {
		route, err := c.router.Route(ctx, origin, destination)
		if err != nil {
			if errors.Is(err, mapbox.ErrNoRoute) {
				return nil, err
			}
			return nil, eris.Wrap(err, "drivetime: route lookup")
		}
		return &Estimate{
			DurationMin: route.DurationMin(),
			DistanceKm:  route.DistanceKm(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Estimate), nil
}
