package main

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/roamvest/scout-api/internal/cache"
	"github.com/roamvest/scout-api/internal/config"
	"github.com/roamvest/scout-api/internal/discovery"
	"github.com/roamvest/scout-api/internal/drivetime"
	"github.com/roamvest/scout-api/internal/enrich"
	"github.com/roamvest/scout-api/pkg/mapbox"
)

// services holds the wired pipeline shared by the serve and one-shot
// commands.
type services struct {
	discovery *discovery.Service
	drive     *drivetime.Client
	enrich    *enrich.Pipeline
}

func buildServices(cfg *config.Config) *services {
	mb := mapbox.NewClient(cfg.Mapbox.SecretToken,
		mapbox.WithBaseURL(cfg.Mapbox.BaseURL),
		mapbox.WithRateLimit(cfg.Mapbox.RateLimit),
	)

	opts := discovery.DefaultOptions()
	opts.MaxResults = cfg.Discovery.MaxResults
	opts.PerPointLimit = cfg.Discovery.PerPointLimit
	opts.BearingsPerRing = cfg.Discovery.BearingsPerRing
	opts.LookupConcurrency = cfg.Discovery.LookupConcurrency
	if len(cfg.Discovery.AllowedCountries) > 0 {
		opts.AllowedCountries = cfg.Discovery.AllowedCountries
	}

	enrichOpts := enrich.DefaultOptions()
	enrichOpts.BaseMonthlyRevenue = cfg.Enrich.BaseMonthlyRevenue
	enrichOpts.ReferenceInvestment = cfg.Enrich.ReferenceInvestment
	enrichOpts.NetMargin = cfg.Enrich.NetMargin

	drive := drivetime.NewClient(mb)

	return &services{
		discovery: discovery.NewService(mb, buildStore(cfg), opts),
		drive:     drive,
		enrich:    enrich.NewPipeline(drive, enrichOpts),
	}
}

func enrichFilters() enrich.Filters {
	return enrich.Filters{MaxDrivingTimeMin: cfg.Enrich.DefaultMaxDrivingMin}
}

func buildStore(cfg *config.Config) cache.Store {
	ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour

	if cfg.Cache.Backend == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		zap.L().Info("using redis cache", zap.String("addr", cfg.Cache.Redis.Addr))
		return cache.NewRedis(rdb, ttl)
	}

	return cache.NewMemory(
		cache.WithTTL(ttl),
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
	)
}
