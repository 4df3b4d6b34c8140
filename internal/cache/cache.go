// Package cache stores discovery results keyed by rounded origin and radius,
// with a fixed TTL. Backends: an in-process map for single-instance
// deployments and Redis for multi-instance ones.
package cache

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/roamvest/scout-api/internal/model"
)

// DefaultTTL is how long a discovery result stays valid.
const DefaultTTL = 24 * time.Hour

// DefaultMaxEntries is the in-memory entry ceiling above which a sweep runs.
const DefaultMaxEntries = 100

// ErrMiss is returned by Get when no live entry exists for the key. It
// distinguishes absence from a backend failure.
var ErrMiss = eris.New("cache: miss")

// Entry is one cached discovery result.
type Entry struct {
	Key       string                 `json:"key"`
	Locations []model.NearbyLocation `json:"locations"`
	Timestamp time.Time              `json:"timestamp"`
}

// Store is the cache abstraction injected into the discovery service.
type Store interface {
	// Get returns the live entry for key, or ErrMiss if absent or expired.
	Get(ctx context.Context, key string) (*Entry, error)

	// Put stores locations under key with the current timestamp. Last
	// writer wins.
	Put(ctx context.Context, key string, locations []model.NearbyLocation) error

	// Sweep removes expired entries and returns how many were deleted.
	// Backends with native expiry may make this a no-op.
	Sweep(ctx context.Context) (int, error)
}
