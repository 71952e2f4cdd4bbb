package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/appraisal-api/internal/valuation"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4002, c.HTTP.Port)
	assert.Equal(t, 100, c.HTTP.RateLimit)
	assert.Equal(t, time.Hour, c.Cache.TTL)
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, valuation.DefaultConfig(), c.Valuation)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appraisal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  port: 8080
database:
  dsn: postgres://file
cache:
  ttl: 10m
valuation:
  fallback_price_per_sqft: 185
marketsync:
  zips: ["78701", "78702"]
`), 0o600))

	t.Setenv("APPRAISAL_DATABASE_DSN", "postgres://env")
	t.Setenv("APPRAISAL_REFRESH_WORKERS", "6")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, c.HTTP.Port)
	assert.Equal(t, "postgres://env", c.Database.DSN)
	assert.Equal(t, 6, c.Refresh.Workers)
	assert.Equal(t, 10*time.Minute, c.Cache.TTL)
	assert.Equal(t, 185.0, c.Valuation.FallbackPricePerSqft)
	assert.Equal(t, 60.0, c.Valuation.EconomicLifeYears)
	assert.Equal(t, []string{"78701", "78702"}, c.MarketSync.Zips)
}

func TestLoad_ZipsFromEnv(t *testing.T) {
	t.Setenv("APPRAISAL_MARKETSYNC_ZIPS", "76102,76104")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"76102", "76104"}, c.MarketSync.Zips)
}

func TestLoad_RejectsInvalidValuationConstants(t *testing.T) {
	t.Setenv("APPRAISAL_VALUATION_ECONOMIC_LIFE_YEARS", "0")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valuation")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestRequire(t *testing.T) {
	assert.NoError(t, Require(map[string]string{"database.dsn": "postgres://x"}))
	err := Require(map[string]string{"database.dsn": "", "attom.api_key": " ", "redis.addr": "localhost:6379"})
	require.Error(t, err)
	assert.Equal(t, "missing required config: attom.api_key, database.dsn", err.Error())
}
