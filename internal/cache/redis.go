package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/roamvest/scout-api/internal/model"
)

const redisKeyPrefix = "scout:nearby:"

// Redis is a Store backed by a Redis instance, for deployments running more
// than one API replica. Entries carry their own timestamp so the cached
// response can still report when it was computed; expiry is delegated to
// Redis TTLs, so Sweep is a no-op.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis creates a Redis-backed cache store.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) (*Entry, error) {
	raw, err := r.rdb.Get(ctx, redisKeyPrefix+key).Result()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, eris.Wrap(err, "cache: redis get")
	}

	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, eris.Wrap(err, "cache: unmarshal redis entry")
	}
	return &e, nil
}

// Put implements Store.
func (r *Redis) Put(ctx context.Context, key string, locations []model.NearbyLocation) error {
	e := Entry{
		Key:       key,
		Locations: locations,
		Timestamp: time.Now(),
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return eris.Wrap(err, "cache: marshal redis entry")
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+key, raw, r.ttl).Err(); err != nil {
		return eris.Wrap(err, "cache: redis set")
	}
	return nil
}

// Sweep implements Store. Redis expires keys itself.
func (r *Redis) Sweep(context.Context) (int, error) {
	return 0, nil
}
