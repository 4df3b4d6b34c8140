// Package discovery finds candidate cities around an origin point. A single
// reverse lookup at the origin would only return the nearest place, so the
// service approximates an area search by sampling a multi-ring grid of
// points and merging the gazetteer results.
package discovery

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roamvest/scout-api/internal/cache"
	"github.com/roamvest/scout-api/internal/metrics"
	"github.com/roamvest/scout-api/internal/model"
	"github.com/roamvest/scout-api/pkg/geo"
	"github.com/roamvest/scout-api/pkg/mapbox"
)

// Gazetteer is the reverse place lookup the service samples against.
// mapbox.Client satisfies it.
type Gazetteer interface {
	ReversePlaces(ctx context.Context, pt geo.Point, limit int) ([]mapbox.Place, error)
}

// ValidationError marks caller-supplied input as invalid. Surfaced as a 400
// by the HTTP layer; no external call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "discovery: " + e.Reason
}

// Options holds the discovery tunables. The grid geometry and result caps
// are deliberately configurable: 4 rings x 8 bearings covers mid-density
// regions well but sparse ones may need a denser grid.
type Options struct {
	// Rings are the sampled distance fractions of the requested radius.
	Rings []float64

	// BearingsPerRing is how many equally spaced bearings each ring samples.
	BearingsPerRing int

	// PerPointLimit caps the places requested per sample point.
	PerPointLimit int

	// MaxResults truncates the final sorted list.
	MaxResults int

	// AllowedCountries is the ISO country-code allow-list of markets served.
	AllowedCountries []string

	// MinRadiusKm and MaxRadiusKm bound the accepted search radius.
	MinRadiusKm float64
	MaxRadiusKm float64

	// LookupConcurrency bounds the concurrent gazetteer lookups.
	LookupConcurrency int
}

// DefaultOptions returns the production tuning: 33 sample points, 10 places
// each, top 20 results, the 16 European markets the product serves.
func DefaultOptions() Options {
	return Options{
		Rings:           []float64{0.25, 0.5, 0.75, 1.0},
		BearingsPerRing: 8,
		PerPointLimit:   10,
		MaxResults:      20,
		AllowedCountries: []string{
			"IT", "FR", "ES", "DE", "PT", "GB", "IE", "NL", "BE",
			"AT", "CH", "GR", "DK", "SE", "NO", "FI",
		},
		MinRadiusKm:       1,
		MaxRadiusKm:       500,
		LookupConcurrency: 8,
	}
}

// Result is one discovery response.
type Result struct {
	Locations []model.NearbyLocation
	Cached    bool
	Timestamp time.Time
}

// Service discovers nearby locations. It is stateless apart from the
// injected cache store.
type Service struct {
	gazetteer Gazetteer
	store     cache.Store
	opts      Options
	allowed   map[string]struct{}
}

// NewService creates a discovery service. Zero-value option fields fall back
// to the defaults.
func NewService(gazetteer Gazetteer, store cache.Store, opts Options) *Service {
	def := DefaultOptions()
	if len(opts.Rings) == 0 {
		opts.Rings = def.Rings
	}
	if opts.BearingsPerRing <= 0 {
		opts.BearingsPerRing = def.BearingsPerRing
	}
	if opts.PerPointLimit <= 0 {
		opts.PerPointLimit = def.PerPointLimit
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = def.MaxResults
	}
	if len(opts.AllowedCountries) == 0 {
		opts.AllowedCountries = def.AllowedCountries
	}
	if opts.MinRadiusKm <= 0 {
		opts.MinRadiusKm = def.MinRadiusKm
	}
	if opts.MaxRadiusKm <= 0 {
		opts.MaxRadiusKm = def.MaxRadiusKm
	}
	if opts.LookupConcurrency <= 0 {
		opts.LookupConcurrency = def.LookupConcurrency
	}

	allowed := make(map[string]struct{}, len(opts.AllowedCountries))
	for _, cc := range opts.AllowedCountries {
		allowed[cc] = struct{}{}
	}

	return &Service{
		gazetteer: gazetteer,
		store:     store,
		opts:      opts,
		allowed:   allowed,
	}
}

// FindNearby returns allow-listed places within radiusKm of origin, sorted
// nearest-first and capped at MaxResults. Partial gazetteer failures degrade
// to reduced coverage; total failure yields an empty result, not an error.
func (s *Service) FindNearby(ctx context.Context, origin geo.Point, radiusKm float64) (*Result, error) {
	if err := s.validate(origin, radiusKm); err != nil {
		return nil, err
	}

	metrics.DiscoveryRequestsTotal.Inc()
	log := zap.L().With(
		zap.Float64("lat", origin.Lat),
		zap.Float64("lng", origin.Lng),
		zap.Float64("radius_km", radiusKm),
	)

	key := CacheKey(origin, radiusKm)
	entry, err := s.store.Get(ctx, key)
	if err == nil {
		metrics.DiscoveryCacheHitsTotal.Inc()
		log.Debug("discovery: cache hit", zap.String("key", key))
		return &Result{
			Locations: entry.Locations,
			Cached:    true,
			Timestamp: entry.Timestamp,
		}, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		// A broken cache backend must not take discovery down.
		log.Warn("discovery: cache read failed", zap.Error(err))
	}
	metrics.DiscoveryCacheMissesTotal.Inc()

	candidates := s.lookupGrid(ctx, origin, radiusKm)
	locations := s.filterAndRank(origin, radiusKm, candidates)

	if len(candidates) == 0 {
		// Nothing came back from any sample point, which usually means a
		// gazetteer outage. Caching the empty result would pin it for the
		// full TTL; leave the slot empty so the next request retries.
		log.Warn("discovery: all sample lookups returned nothing; skipping cache write")
		return &Result{
			Locations: locations,
			Cached:    false,
			Timestamp: time.Now(),
		}, nil
	}

	if err := s.store.Put(ctx, key, locations); err != nil {
		log.Warn("discovery: cache write failed", zap.Error(err))
	}

	log.Info("discovery: complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("locations", len(locations)),
	)

	return &Result{
		Locations: locations,
		Cached:    false,
		Timestamp: time.Now(),
	}, nil
}

func (s *Service) validate(origin geo.Point, radiusKm float64) error {
	if !origin.Valid() {
		return &ValidationError{Reason: "coordinates out of valid range"}
	}
	if radiusKm < s.opts.MinRadiusKm || radiusKm > s.opts.MaxRadiusKm {
		return &ValidationError{Reason: "radius out of valid range"}
	}
	return nil
}

// lookupGrid reverse-geocodes every sample point concurrently and merges the
// returned places, deduplicated by feature id. Individual lookup failures
// are swallowed: they cost coverage, never the whole result.
func (s *Service) lookupGrid(ctx context.Context, origin geo.Point, radiusKm float64) []model.PlaceCandidate {
	points := s.samplePoints(origin, radiusKm)

	var (
		mu         sync.Mutex
		candidates []model.PlaceCandidate
		seen       = make(map[string]struct{})
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.LookupConcurrency)

	for _, pt := range points {
		g.Go(func() error {
			metrics.GazetteerLookupsTotal.Inc()
			places, err := s.gazetteer.ReversePlaces(gCtx, pt, s.opts.PerPointLimit)
			if err != nil {
				metrics.GazetteerFailuresTotal.Inc()
				zap.L().Debug("discovery: sample lookup failed",
					zap.Float64("lat", pt.Lat),
					zap.Float64("lng", pt.Lng),
					zap.Error(err),
				)
				return nil
			}

			mu.Lock()
			for _, p := range places {
				if _, ok := seen[p.ID]; ok {
					continue
				}
				seen[p.ID] = struct{}{}
				candidates = append(candidates, model.PlaceCandidate{
					ExternalID:  p.ID,
					Name:        p.Name,
					Region:      p.Region,
					CountryCode: p.CountryCode,
					CountryName: p.CountryName,
					Coordinates: p.Center,
				})
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return candidates
}

// samplePoints returns the origin plus one projected point per ring/bearing
// combination.
func (s *Service) samplePoints(origin geo.Point, radiusKm float64) []geo.Point {
	points := make([]geo.Point, 0, len(s.opts.Rings)*s.opts.BearingsPerRing+1)
	points = append(points, origin)

	for _, ring := range s.opts.Rings {
		distKm := radiusKm * ring
		for i := 0; i < s.opts.BearingsPerRing; i++ {
			bearing := 2 * math.Pi * float64(i) / float64(s.opts.BearingsPerRing)
			points = append(points, geo.Project(origin, distKm, bearing))
		}
	}
	return points
}

// filterAndRank keeps allow-listed candidates whose recomputed great-circle
// distance is within the radius, sorts nearest-first, and truncates. The
// gazetteer's own notion of "nearby" is not trusted.
func (s *Service) filterAndRank(origin geo.Point, radiusKm float64, candidates []model.PlaceCandidate) []model.NearbyLocation {
	locations := make([]model.NearbyLocation, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := s.allowed[c.CountryCode]; !ok {
			continue
		}
		dist := geo.Distance(origin, c.Coordinates)
		if dist > radiusKm {
			continue
		}
		locations = append(locations, model.NearbyLocation{
			ID:          c.ExternalID,
			City:        c.Name,
			Region:      c.Region,
			Country:     c.CountryName,
			Coordinates: c.Coordinates,
			DistanceKm:  math.Round(dist*10) / 10,
		})
	}

	sort.Slice(locations, func(i, j int) bool {
		if locations[i].DistanceKm != locations[j].DistanceKm {
			return locations[i].DistanceKm < locations[j].DistanceKm
		}
		// Tie-break on id so output is deterministic regardless of lookup
		// completion order.
		return locations[i].ID < locations[j].ID
	})

	if len(locations) > s.opts.MaxResults {
		locations = locations[:s.opts.MaxResults]
	}
	return locations
}
