// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Mapbox    MapboxConfig    `yaml:"mapbox" mapstructure:"mapbox"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MapboxConfig holds the routing/gazetteer provider credential and tuning.
// The secret token is server-side only; a missing token is a configuration
// error surfaced to operators, never silently worked around.
type MapboxConfig struct {
	SecretToken string  `yaml:"secret_token" mapstructure:"secret_token"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// CacheConfig selects and tunes the discovery cache backend.
type CacheConfig struct {
	// Backend is "memory" for single-instance deployments or "redis" for
	// multi-instance ones.
	Backend    string      `yaml:"backend" mapstructure:"backend"`
	TTLHours   int         `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	MaxEntries int         `yaml:"max_entries" mapstructure:"max_entries"`
	Redis      RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// DiscoveryConfig tunes the sampling grid and result caps.
type DiscoveryConfig struct {
	MaxResults        int      `yaml:"max_results" mapstructure:"max_results"`
	PerPointLimit     int      `yaml:"per_point_limit" mapstructure:"per_point_limit"`
	BearingsPerRing   int      `yaml:"bearings_per_ring" mapstructure:"bearings_per_ring"`
	LookupConcurrency int      `yaml:"lookup_concurrency" mapstructure:"lookup_concurrency"`
	AllowedCountries  []string `yaml:"allowed_countries" mapstructure:"allowed_countries"`
	DefaultRadiusKm   float64  `yaml:"default_radius_km" mapstructure:"default_radius_km"`
}

// EnrichConfig holds the preview-metric assumptions and filter defaults.
type EnrichConfig struct {
	BaseMonthlyRevenue   float64 `yaml:"base_monthly_revenue" mapstructure:"base_monthly_revenue"`
	ReferenceInvestment  float64 `yaml:"reference_investment" mapstructure:"reference_investment"`
	NetMargin            float64 `yaml:"net_margin" mapstructure:"net_margin"`
	DefaultMaxDrivingMin int     `yaml:"default_max_driving_min" mapstructure:"default_max_driving_min"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	// .env is optional and only used for local development.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The Mapbox secret keeps its historical variable name.
	_ = v.BindEnv("mapbox.secret_token", "SECRET_MAPBOX_TOKEN", "SCOUT_MAPBOX_SECRET_TOKEN")

	// Defaults
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("mapbox.base_url", "https://api.mapbox.com")
	v.SetDefault("mapbox.rate_limit", 10)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("cache.max_entries", 100)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("discovery.max_results", 20)
	v.SetDefault("discovery.per_point_limit", 10)
	v.SetDefault("discovery.bearings_per_ring", 8)
	v.SetDefault("discovery.lookup_concurrency", 8)
	v.SetDefault("discovery.default_radius_km", 100)
	v.SetDefault("enrich.base_monthly_revenue", 2000)
	v.SetDefault("enrich.reference_investment", 200000)
	v.SetDefault("enrich.net_margin", 0.5)
	v.SetDefault("enrich.default_max_driving_min", 120)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the loaded configuration for the given run mode.
// The Mapbox token is deliberately not required at startup: its absence is
// reported per-request as a configuration error so the health endpoint can
// still answer.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "cli":
		// One-shot commands bind no port.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		problems = append(problems, "cache.backend must be memory or redis")
	}
	if c.Cache.TTLHours <= 0 {
		problems = append(problems, "cache.ttl_hours must be > 0")
	}
	if c.Enrich.NetMargin <= 0 || c.Enrich.NetMargin > 1 {
		problems = append(problems, "enrich.net_margin must be in (0, 1]")
	}
	if c.Enrich.ReferenceInvestment <= 0 {
		problems = append(problems, "enrich.reference_investment must be > 0")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
