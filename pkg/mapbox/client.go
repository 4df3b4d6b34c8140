// Package mapbox provides a client for the Mapbox Geocoding and Directions
// APIs: reverse place lookup around a coordinate and point-to-point driving
// routes.
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/roamvest/scout-api/pkg/geo"
)

// Client defines the Mapbox operations used by discovery and enrichment.
type Client interface {
	// ReversePlaces returns up to limit named places near the given point.
	ReversePlaces(ctx context.Context, pt geo.Point, limit int) ([]Place, error)

	// Route returns the fastest driving route between origin and destination.
	// Returns ErrNoRoute when the provider reports zero drivable routes.
	Route(ctx context.Context, origin, destination geo.Point) (*Route, error)
}

// Place is a single gazetteer feature with its context chain flattened.
type Place struct {
	ID          string
	Name        string
	Region      string
	CountryCode string // ISO 3166-1 alpha-2, upper case
	CountryName string
	Center      geo.Point
}

// Route holds the driving route summary in provider units.
type Route struct {
	DurationSec float64
	DistanceM   float64
}

// DurationMin returns the route duration rounded to whole minutes.
func (r *Route) DurationMin() int {
	return int(math.Round(r.DurationSec / 60))
}

// DistanceKm returns the route distance in kilometers rounded to 1 decimal.
func (r *Route) DistanceKm() float64 {
	return math.Round(r.DistanceM/1000*10) / 10
}

// ErrNoRoute is returned when Mapbox finds no drivable path between the two
// points. Callers may treat this as a soft miss rather than a failure.
var ErrNoRoute = eris.New("mapbox: no drivable route found")

// UpstreamError wraps a non-success response from the Mapbox API.
type UpstreamError struct {
	StatusCode int
	Status     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("mapbox: upstream status %d %s", e.StatusCode, e.Status)
}

// HTTPStatus exposes the upstream status code for retry classification.
func (e *UpstreamError) HTTPStatus() int {
	return e.StatusCode
}

// Option configures the Mapbox client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the requests-per-second limit for geocoding calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Mapbox client authenticated with the given secret
// token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: "https://api.mapbox.com",
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(10, 10), // Mapbox geocoding free tier headroom
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) get(ctx context.Context, reqURL string) ([]byte, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, "", eris.Wrap(err, "mapbox: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, "", eris.Wrap(err, "mapbox: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, resp.Status, eris.Wrap(err, "mapbox: read response body")
	}
	return body, resp.StatusCode, resp.Status, nil
}

func (c *httpClient) ReversePlaces(ctx context.Context, pt geo.Point, limit int) ([]Place, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "mapbox: geocoding rate limit")
	}

	params := url.Values{
		"access_token": {c.token},
		"types":        {"place"},
		"limit":        {fmt.Sprintf("%d", limit)},
		"language":     {"en"},
	}
	reqURL := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%f,%f.json?%s",
		c.baseURL, pt.Lng, pt.Lat, params.Encode())

	body, statusCode, status, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if statusCode != http.StatusOK {
		return nil, &UpstreamError{StatusCode: statusCode, Status: status}
	}

	var parsed geocodeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "mapbox: unmarshal geocoding response")
	}

	places := make([]Place, 0, len(parsed.Features))
	for _, f := range parsed.Features {
		places = append(places, f.toPlace())
	}
	return places, nil
}

func (c *httpClient) Route(ctx context.Context, origin, destination geo.Point) (*Route, error) {
	params := url.Values{
		"access_token": {c.token},
		"geometries":   {"geojson"},
		"overview":     {"false"},
		"steps":        {"false"},
	}
	reqURL := fmt.Sprintf("%s/directions/v5/mapbox/driving/%f,%f;%f,%f?%s",
		c.baseURL, origin.Lng, origin.Lat, destination.Lng, destination.Lat, params.Encode())

	body, statusCode, status, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if statusCode != http.StatusOK {
		return nil, &UpstreamError{StatusCode: statusCode, Status: status}
	}

	var parsed directionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "mapbox: unmarshal directions response")
	}

	if len(parsed.Routes) == 0 {
		return nil, ErrNoRoute
	}

	return &Route{
		DurationSec: parsed.Routes[0].Duration,
		DistanceM:   parsed.Routes[0].Distance,
	}, nil
}
