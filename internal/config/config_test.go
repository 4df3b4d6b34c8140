package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "https://api.mapbox.com", cfg.Mapbox.BaseURL)
	assert.InDelta(t, 10, cfg.Mapbox.RateLimit, 0.001)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 24, cfg.Cache.TTLHours)
	assert.Equal(t, 100, cfg.Cache.MaxEntries)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 20, cfg.Discovery.MaxResults)
	assert.Equal(t, 10, cfg.Discovery.PerPointLimit)
	assert.Equal(t, 8, cfg.Discovery.BearingsPerRing)
	assert.InDelta(t, 100, cfg.Discovery.DefaultRadiusKm, 0.001)
	assert.InDelta(t, 2000, cfg.Enrich.BaseMonthlyRevenue, 0.001)
	assert.InDelta(t, 200000, cfg.Enrich.ReferenceInvestment, 0.001)
	assert.InDelta(t, 0.5, cfg.Enrich.NetMargin, 0.001)
	assert.Equal(t, 120, cfg.Enrich.DefaultMaxDrivingMin)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
cache:
  backend: redis
  redis:
    addr: redis.internal:6379
log:
  level: debug
  format: console
server:
  port: 9090
discovery:
  max_results: 30
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Discovery.MaxResults)
	// Defaults still apply for unset values
	assert.Equal(t, 24, cfg.Cache.TTLHours)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
cache:
  backend: memory
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SCOUT_LOG_LEVEL", "warn")
	t.Setenv("SCOUT_CACHE_BACKEND", "redis")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "redis", cfg.Cache.Backend)
}

func TestLoadMapboxTokenEnv(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("SECRET_MAPBOX_TOKEN", "sk.test-token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk.test-token", cfg.Mapbox.SecretToken)
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateCLIIgnoresPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0
	assert.NoError(t, cfg.Validate("cli"))
}

func TestValidateCacheBackend(t *testing.T) {
	cfg := validDefaults()
	cfg.Cache.Backend = "memcached"

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.backend must be memory or redis")
}

func TestValidateEnrichBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Enrich.NetMargin = 1.5
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "net_margin")

	cfg = validDefaults()
	cfg.Enrich.ReferenceInvestment = 0
	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference_investment")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("worker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config populated like the shipped defaults.
func validDefaults() *Config {
	return &Config{
		Server: ServerConfig{Port: 8081},
		Cache:  CacheConfig{Backend: "memory", TTLHours: 24, MaxEntries: 100},
		Enrich: EnrichConfig{
			BaseMonthlyRevenue:   2000,
			ReferenceInvestment:  200000,
			NetMargin:            0.5,
			DefaultMaxDrivingMin: 120,
		},
	}
}
