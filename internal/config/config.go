// Package config loads service configuration from defaults, an optional YAML
// file and APPRAISAL_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/yourorg/appraisal-api/internal/valuation"
)

type Config struct {
	HTTP       HTTPConfig       `mapstructure:"http"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Attom      AttomConfig      `mapstructure:"attom"`
	Refresh    RefreshConfig    `mapstructure:"refresh"`
	MarketSync MarketSyncConfig `mapstructure:"marketsync"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Valuation  valuation.Config `mapstructure:"valuation"`
}

type HTTPConfig struct {
	Port      int `mapstructure:"port"`
	RateLimit int `mapstructure:"rate_limit"` // requests per IP per minute
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type AttomConfig struct {
	APIKey  string  `mapstructure:"api_key"`
	BaseURL string  `mapstructure:"base_url"`
	RPS     float64 `mapstructure:"rps"`
}

type RefreshConfig struct {
	Workers int           `mapstructure:"workers"`
	Queue   int           `mapstructure:"queue"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MarketSyncConfig struct {
	Zips                 []string      `mapstructure:"zips"`
	Interval             time.Duration `mapstructure:"interval"`
	PageSize             int           `mapstructure:"page_size"`
	MaxPages             int           `mapstructure:"max_pages"`
	PauseBetweenRequests time.Duration `mapstructure:"pause"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	RunOnce              bool          `mapstructure:"run_once"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EnvPrefix namespaces environment overrides, e.g. APPRAISAL_DATABASE_DSN.
const EnvPrefix = "APPRAISAL"

// SetDefaults registers every known key so environment overrides apply even
// when no config file exists.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 4002)
	v.SetDefault("http.rate_limit", 100)
	v.SetDefault("database.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("attom.api_key", "")
	v.SetDefault("attom.base_url", "https://api.gateway.attomdata.com")
	v.SetDefault("attom.rps", 2.0)
	v.SetDefault("refresh.workers", 2)
	v.SetDefault("refresh.queue", 256)
	v.SetDefault("refresh.timeout", 15*time.Second)
	v.SetDefault("marketsync.zips", []string{})
	v.SetDefault("marketsync.interval", 6*time.Hour)
	v.SetDefault("marketsync.page_size", 50)
	v.SetDefault("marketsync.max_pages", 5)
	v.SetDefault("marketsync.pause", 1500*time.Millisecond)
	v.SetDefault("marketsync.request_timeout", 12*time.Second)
	v.SetDefault("marketsync.run_once", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	d := valuation.DefaultConfig()
	v.SetDefault("valuation.fallback_price_per_sqft", d.FallbackPricePerSqft)
	v.SetDefault("valuation.bedroom_baseline", d.BedroomBaseline)
	v.SetDefault("valuation.bedroom_premium", d.BedroomPremium)
	v.SetDefault("valuation.bathroom_baseline", d.BathroomBaseline)
	v.SetDefault("valuation.bathroom_premium", d.BathroomPremium)
	v.SetDefault("valuation.new_construction_max_age", d.NewConstructionMaxAge)
	v.SetDefault("valuation.new_construction_factor", d.NewConstructionFactor)
	v.SetDefault("valuation.recent_max_age", d.RecentMaxAge)
	v.SetDefault("valuation.recent_factor", d.RecentFactor)
	v.SetDefault("valuation.aged_min_age", d.AgedMinAge)
	v.SetDefault("valuation.aged_factor", d.AgedFactor)
	v.SetDefault("valuation.sqft_per_acre", d.SqftPerAcre)
	v.SetDefault("valuation.economic_life_years", d.EconomicLifeYears)
	v.SetDefault("valuation.max_depreciation", d.MaxDepreciation)
}

// Load reads configuration into a fresh viper instance. file may be empty, in
// which case ./appraisal.yaml is used when present.
func Load(file string) (Config, error) {
	return LoadWith(viper.New(), file)
}

// LoadWith is Load against a caller-supplied viper, so flags bound to v apply.
func LoadWith(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("appraisal")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	}
	if err := c.Valuation.Validate(); err != nil {
		return fmt.Errorf("valuation: %w", err)
	}
	return nil
}

// Require returns an error naming every empty required setting.
func Require(settings map[string]string) error {
	var missing []string
	for k, v := range settings {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
}
