// Package enrich turns discovered locations into displayable opportunities:
// real driving time where the routing provider cooperates, a heuristic
// estimate where it does not, plus preview investment metrics.
package enrich

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roamvest/scout-api/internal/drivetime"
	"github.com/roamvest/scout-api/internal/metrics"
	"github.com/roamvest/scout-api/internal/model"
	"github.com/roamvest/scout-api/internal/resilience"
	"github.com/roamvest/scout-api/pkg/geo"
)

// DriveTimer resolves driving time between two points. *drivetime.Client
// satisfies it.
type DriveTimer interface {
	DrivingTime(ctx context.Context, origin, destination geo.Point) (*drivetime.Estimate, error)
}

// Options holds the enrichment tunables. The financial constants are
// business assumptions, not derived figures, so they stay configurable.
type Options struct {
	// BaseMonthlyRevenue is the reference gross monthly revenue in EUR for
	// a multiplier of 1.0.
	BaseMonthlyRevenue float64

	// ReferenceInvestment is the assumed purchase price in EUR used for the
	// ROI preview.
	ReferenceInvestment float64

	// NetMargin is the share of gross revenue assumed to remain as profit.
	NetMargin float64

	// CityMultipliers scales the base revenue per city; unlisted cities use
	// 1.0.
	CityMultipliers map[string]float64

	// HighCoverageCities are the markets with good data coverage.
	HighCoverageCities []string

	// Retry is the per-candidate routing retry policy.
	Retry resilience.RetryConfig

	// Concurrency bounds the parallel driving-time lookups. Zero means one
	// per candidate (the discovery list is already capped).
	Concurrency int
}

// DefaultOptions returns the standard assumptions: EUR 2000/month base,
// EUR 200k purchase, 50% net margin.
func DefaultOptions() Options {
	return Options{
		BaseMonthlyRevenue:  2000,
		ReferenceInvestment: 200000,
		NetMargin:           0.5,
		CityMultipliers: map[string]float64{
			"Rome":      1.3,
			"Barcelona": 1.2,
			"Amsterdam": 1.4,
			"Paris":     1.5,
			"Milan":     1.1,
			"Lisbon":    1.0,
		},
		HighCoverageCities: []string{
			"Rome", "Barcelona", "Amsterdam", "Paris", "Milan", "Lisbon",
		},
		Retry: resilience.DefaultRetryConfig(),
	}
}

// Filters controls which enriched candidates survive.
type Filters struct {
	// MaxDrivingTimeMin drops candidates beyond this one-way driving time.
	// Zero is a real cutoff: only zero-minute drives survive it. Callers
	// supply the configured default when the user gave no value.
	MaxDrivingTimeMin int

	// DevMode disables the driving-time cutoff, for testing coverage
	// without real-world constraints.
	DevMode bool
}

// Pipeline enriches nearby locations into opportunities.
type Pipeline struct {
	drive        DriveTimer
	opts         Options
	highCoverage map[string]struct{}
	now          func() time.Time // injectable for testing
}

// NewPipeline creates an enrichment pipeline. Zero-value option fields fall
// back to the defaults.
func NewPipeline(drive DriveTimer, opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.BaseMonthlyRevenue <= 0 {
		opts.BaseMonthlyRevenue = def.BaseMonthlyRevenue
	}
	if opts.ReferenceInvestment <= 0 {
		opts.ReferenceInvestment = def.ReferenceInvestment
	}
	if opts.NetMargin <= 0 {
		opts.NetMargin = def.NetMargin
	}
	if opts.CityMultipliers == nil {
		opts.CityMultipliers = def.CityMultipliers
	}
	if opts.HighCoverageCities == nil {
		opts.HighCoverageCities = def.HighCoverageCities
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = def.Retry
	}

	highCoverage := make(map[string]struct{}, len(opts.HighCoverageCities))
	for _, city := range opts.HighCoverageCities {
		highCoverage[city] = struct{}{}
	}

	return &Pipeline{
		drive:        drive,
		opts:         opts,
		highCoverage: highCoverage,
		now:          time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (p *Pipeline) WithNow(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Enrich attaches driving time and preview metrics to every location,
// drops candidates beyond the driving-time cutoff (unless DevMode), and
// returns opportunities in the input order. A routing failure for one
// candidate degrades that candidate to the heuristic estimate; it never
// fails the pipeline.
func (p *Pipeline) Enrich(ctx context.Context, locations []model.NearbyLocation, origin geo.Point, f Filters) ([]model.Opportunity, error) {
	if len(locations) == 0 {
		return []model.Opportunity{}, nil
	}

	type drive struct {
		durationMin int
		distanceKm  float64
		source      model.DriveSource
	}
	drives := make([]drive, len(locations))

	g, gCtx := errgroup.WithContext(ctx)
	if p.opts.Concurrency > 0 {
		g.SetLimit(p.opts.Concurrency)
	}

	for i, loc := range locations {
		g.Go(func() error {
			est, err := resilience.DoVal(gCtx, p.opts.Retry, func(ctx context.Context) (*drivetime.Estimate, error) {
				return p.drive.DrivingTime(ctx, origin, loc.Coordinates)
			})
			if err == nil {
				drives[i] = drive{
					durationMin: est.DurationMin,
					distanceKm:  est.DistanceKm,
					source:      model.DriveSourceAPI,
				}
				return nil
			}

			// A validation error means we fed the client garbage; that is
			// a bug, not an upstream hiccup, and must not be papered over
			// with a heuristic.
			var verr *drivetime.ValidationError
			if errors.As(err, &verr) {
				return err
			}

			metrics.DrivingTimeFallbacksTotal.Inc()
			zap.L().Debug("enrich: driving time unavailable, using heuristic",
				zap.String("city", loc.City),
				zap.Error(err),
			)

			dist := geo.Distance(origin, loc.Coordinates)
			drives[i] = drive{
				durationMin: geo.EstimateDrivingTime(dist),
				distanceKm:  math.Round(dist*10) / 10,
				source:      model.DriveSourceHeuristic,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	opportunities := make([]model.Opportunity, 0, len(locations))
	for i, loc := range locations {
		d := drives[i]
		if !f.DevMode && d.durationMin > f.MaxDrivingTimeMin {
			continue
		}

		availability := model.AvailabilityMedium
		if _, ok := p.highCoverage[loc.City]; ok {
			availability = model.AvailabilityHigh
		}

		opportunities = append(opportunities, model.Opportunity{
			ID:               loc.ID,
			Coordinates:      loc.Coordinates,
			City:             loc.City,
			Region:           loc.Region,
			Country:          loc.Country,
			DistanceKm:       d.distanceKm,
			DrivingTimeMin:   d.durationMin,
			DriveSource:      d.source,
			PreviewMetrics:   p.previewMetrics(loc.City),
			DataAvailability: availability,
			LastUpdated:      p.now(),
		})
	}

	return opportunities, nil
}

// previewMetrics computes the rough revenue and ROI preview for a city.
func (p *Pipeline) previewMetrics(city string) model.PreviewMetrics {
	multiplier, ok := p.opts.CityMultipliers[city]
	if !ok {
		multiplier = 1.0
	}

	monthly := p.opts.BaseMonthlyRevenue * multiplier
	annualNet := monthly * 12 * p.opts.NetMargin
	roi := annualNet / p.opts.ReferenceInvestment * 100

	return model.PreviewMetrics{
		EstimatedMonthlyRevenue: int(math.Round(monthly)),
		EstimatedROI:            math.Round(roi*10) / 10,
	}
}
