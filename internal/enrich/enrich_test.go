package enrich

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamvest/scout-api/internal/drivetime"
	"github.com/roamvest/scout-api/internal/model"
	"github.com/roamvest/scout-api/internal/resilience"
	"github.com/roamvest/scout-api/pkg/geo"
	"github.com/roamvest/scout-api/pkg/mapbox"
)

var romeOrigin = geo.Point{Lat: 41.9028, Lng: 12.4964}

// fakeDriveTimer returns a canned estimate or error per destination city
// key, and counts calls per key.
type fakeDriveTimer struct {
	mu    sync.Mutex
	byKey map[geo.Point]*drivetime.Estimate
	errs  map[geo.Point]error
	calls map[geo.Point]int
}

func newFakeDriveTimer() *fakeDriveTimer {
	return &fakeDriveTimer{
		byKey: make(map[geo.Point]*drivetime.Estimate),
		errs:  make(map[geo.Point]error),
		calls: make(map[geo.Point]int),
	}
}

func (f *fakeDriveTimer) DrivingTime(_ context.Context, _, dest geo.Point) (*drivetime.Estimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[dest]++
	if err, ok := f.errs[dest]; ok {
		return nil, err
	}
	if est, ok := f.byKey[dest]; ok {
		return est, nil
	}
	return &drivetime.Estimate{DurationMin: 30, DistanceKm: 25}, nil
}

func (f *fakeDriveTimer) callCount(dest geo.Point) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[dest]
}

func quickOptions() Options {
	opts := DefaultOptions()
	opts.Retry = resilience.RetryConfig{MaxAttempts: 2, Delay: time.Millisecond}
	return opts
}

func locationsFixture() []model.NearbyLocation {
	return []model.NearbyLocation{
		{ID: "place.rome", City: "Rome", Country: "Italy",
			Coordinates: geo.Point{Lat: 41.9028, Lng: 12.4964}, DistanceKm: 0},
		{ID: "place.tivoli", City: "Tivoli", Region: "Lazio", Country: "Italy",
			Coordinates: geo.Point{Lat: 41.9633, Lng: 12.7981}, DistanceKm: 25.8},
		{ID: "place.viterbo", City: "Viterbo", Region: "Lazio", Country: "Italy",
			Coordinates: geo.Point{Lat: 42.4207, Lng: 12.1077}, DistanceKm: 66.1},
	}
}

func TestEnrich_AttachesMetricsAndOrder(t *testing.T) {
	t.Parallel()

	locs := locationsFixture()
	drive := newFakeDriveTimer()
	drive.byKey[locs[0].Coordinates] = &drivetime.Estimate{DurationMin: 0, DistanceKm: 0}
	drive.byKey[locs[1].Coordinates] = &drivetime.Estimate{DurationMin: 45, DistanceKm: 36.2}
	drive.byKey[locs[2].Coordinates] = &drivetime.Estimate{DurationMin: 75, DistanceKm: 81.4}

	fixed := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	p := NewPipeline(drive, quickOptions()).WithNow(func() time.Time { return fixed })

	got, err := p.Enrich(context.Background(), locs, romeOrigin, Filters{MaxDrivingTimeMin: 120})
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Order is inherited from the input (already distance-sorted).
	assert.Equal(t, "Rome", got[0].City)
	assert.Equal(t, "Tivoli", got[1].City)
	assert.Equal(t, "Viterbo", got[2].City)

	rome := got[0]
	assert.Equal(t, model.DriveSourceAPI, rome.DriveSource)
	assert.Equal(t, 2600, rome.PreviewMetrics.EstimatedMonthlyRevenue) // 2000 x 1.3
	assert.InDelta(t, 7.8, rome.PreviewMetrics.EstimatedROI, 1e-9)     // 2600*12*0.5/200k
	assert.Equal(t, model.AvailabilityHigh, rome.DataAvailability)
	assert.Equal(t, fixed, rome.LastUpdated)

	tivoli := got[1]
	assert.Equal(t, 2000, tivoli.PreviewMetrics.EstimatedMonthlyRevenue) // unlisted city
	assert.InDelta(t, 6.0, tivoli.PreviewMetrics.EstimatedROI, 1e-9)
	assert.Equal(t, model.AvailabilityMedium, tivoli.DataAvailability)
	assert.Equal(t, 45, tivoli.DrivingTimeMin)
	assert.InDelta(t, 36.2, tivoli.DistanceKm, 1e-9)
	assert.Equal(t, "Lazio", tivoli.Region)
}

func TestEnrich_HeuristicFallbackOnUpstreamFailure(t *testing.T) {
	t.Parallel()

	locs := locationsFixture()
	drive := newFakeDriveTimer()
	drive.errs[locs[1].Coordinates] = &mapbox.UpstreamError{StatusCode: 503, Status: "503 Service Unavailable"}

	p := NewPipeline(drive, quickOptions())

	got, err := p.Enrich(context.Background(), locs, romeOrigin, Filters{MaxDrivingTimeMin: 240})
	require.NoError(t, err)
	require.Len(t, got, 3)

	tivoli := got[1]
	assert.Equal(t, model.DriveSourceHeuristic, tivoli.DriveSource)
	// Rome-Tivoli great-circle is ~25.8 km; heuristic is km/50*60 minutes.
	assert.InDelta(t, 25.8, tivoli.DistanceKm, 0.5)
	assert.InDelta(t, 31, tivoli.DrivingTimeMin, 1)

	// Transient upstream failure gets exactly one retry before falling back.
	assert.Equal(t, 2, drive.callCount(locs[1].Coordinates))

	// The other candidates kept their API results.
	assert.Equal(t, model.DriveSourceAPI, got[0].DriveSource)
	assert.Equal(t, model.DriveSourceAPI, got[2].DriveSource)
}

func TestEnrich_NoRouteFallsBackWithoutRetry(t *testing.T) {
	t.Parallel()

	locs := locationsFixture()[:1]
	drive := newFakeDriveTimer()
	drive.errs[locs[0].Coordinates] = mapbox.ErrNoRoute

	p := NewPipeline(drive, quickOptions())

	got, err := p.Enrich(context.Background(), locs, romeOrigin, Filters{MaxDrivingTimeMin: 240})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.DriveSourceHeuristic, got[0].DriveSource)

	// No drivable route will not change on retry.
	assert.Equal(t, 1, drive.callCount(locs[0].Coordinates))
}

func TestEnrich_ValidationErrorPropagates(t *testing.T) {
	t.Parallel()

	locs := locationsFixture()[:1]
	drive := newFakeDriveTimer()
	drive.errs[locs[0].Coordinates] = &drivetime.ValidationError{Reason: "bad coordinates"}

	p := NewPipeline(drive, quickOptions())

	_, err := p.Enrich(context.Background(), locs, romeOrigin, Filters{MaxDrivingTimeMin: 240})
	var verr *drivetime.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestEnrich_DrivingTimeCutoff(t *testing.T) {
	t.Parallel()

	locs := locationsFixture()
	drive := newFakeDriveTimer()
	drive.byKey[locs[0].Coordinates] = &drivetime.Estimate{DurationMin: 10, DistanceKm: 5}
	drive.byKey[locs[1].Coordinates] = &drivetime.Estimate{DurationMin: 45, DistanceKm: 36.2}
	drive.byKey[locs[2].Coordinates] = &drivetime.Estimate{DurationMin: 95, DistanceKm: 81.4}

	p := NewPipeline(drive, quickOptions())

	got, err := p.Enrich(context.Background(), locs, romeOrigin, Filters{MaxDrivingTimeMin: 60})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Rome", got[0].City)
	assert.Equal(t, "Tivoli", got[1].City)

	// DevMode keeps the over-limit candidate.
	got, err = p.Enrich(context.Background(), locs, romeOrigin, Filters{MaxDrivingTimeMin: 60, DevMode: true})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Viterbo", got[2].City)
	assert.Equal(t, 95, got[2].DrivingTimeMin)
}

func TestEnrich_ZeroCutoffIsEnforced(t *testing.T) {
	t.Parallel()

	locs := locationsFixture()
	drive := newFakeDriveTimer() // every lookup answers 30 min

	p := NewPipeline(drive, quickOptions())

	// An explicit zero cutoff filters, it does not disable the filter.
	got, err := p.Enrich(context.Background(), locs, romeOrigin, Filters{MaxDrivingTimeMin: 0})
	require.NoError(t, err)
	assert.Empty(t, got)

	// A zero-minute drive is within a zero cutoff.
	drive.byKey[locs[0].Coordinates] = &drivetime.Estimate{DurationMin: 0, DistanceKm: 0}
	got, err = p.Enrich(context.Background(), locs, romeOrigin, Filters{MaxDrivingTimeMin: 0})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Rome", got[0].City)
}

func TestEnrich_EmptyInput(t *testing.T) {
	t.Parallel()

	p := NewPipeline(newFakeDriveTimer(), quickOptions())

	got, err := p.Enrich(context.Background(), nil, romeOrigin, Filters{MaxDrivingTimeMin: 120})
	require.NoError(t, err)
	assert.Empty(t, got)
}
