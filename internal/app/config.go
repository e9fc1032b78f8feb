package app

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	playground "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/charlesng35/promptgallery/pkg/validator"
)

// Config represents the runtime configuration for the prompt gallery backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Notion      NotionConfig      `mapstructure:"notion"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	Image       ImageConfig       `mapstructure:"image"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int             `mapstructure:"port" validate:"gte=0,lte=65535"`
	LogLevel  string          `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string          `mapstructure:"log_format" validate:"omitempty,oneof=json console"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	HSTS      bool            `mapstructure:"hsts"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig controls the per-client token bucket. A zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=0"`
}

// NotionConfig describes how the prompt database is queried.
type NotionConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	Token            string        `mapstructure:"token"`
	DatabaseID       string        `mapstructure:"database_id"`
	Version          string        `mapstructure:"version"`
	PageSize         int           `mapstructure:"page_size" validate:"gte=0,lte=100"`
	FollowPagination bool          `mapstructure:"follow_pagination"`
	MaxPages         int           `mapstructure:"max_pages" validate:"gte=0"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// GeminiConfig selects the image model and request shape.
type GeminiConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	API     string        `mapstructure:"api" validate:"omitempty,oneof=generate_images generate_content"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ImageConfig controls caching and the daily generation quota.
type ImageConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Quota    QuotaConfig   `mapstructure:"quota"`
}

// QuotaConfig bounds upstream generations per UTC day.
type QuotaConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Limit     int64         `mapstructure:"limit" validate:"gte=0"`
	Atomic    bool          `mapstructure:"atomic"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	Window    time.Duration `mapstructure:"window"`
}

// CacheConfig describes the key-value backend for images and quota counters.
type CacheConfig struct {
	Driver  string           `mapstructure:"driver" validate:"oneof=kv_rest redis database memory"`
	Timeout time.Duration    `mapstructure:"timeout"`
	KVRest  KVRestConfig     `mapstructure:"kv_rest"`
	Redis   RedisCacheConfig `mapstructure:"redis"`
}

// KVRestConfig holds the REST gateway endpoint and token.
type KVRestConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Address   string        `mapstructure:"address"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db" validate:"gte=0"`
	TLS       bool          `mapstructure:"tls"`
	Timeout   time.Duration `mapstructure:"timeout"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// DatabaseConfig describes connection options for the SQL cache backend.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver" validate:"omitempty,oneof=sqlite postgres postgresql mysql"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
	Summary    SummaryConfig    `mapstructure:"summary"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SummaryConfig exposes the JSON monitoring snapshot. Off by default since the API has no auth.
type SummaryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MaintenanceConfig schedules background jobs.
type MaintenanceConfig struct {
	CachePurge CachePurgeConfig `mapstructure:"cache_purge"`
}

// CachePurgeConfig removes expired rows when the database cache driver is used.
type CachePurgeConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"omitempty,cron_spec"`
}

// envBindings maps config keys to the bare variable names used by hosted deployments.
var envBindings = map[string]string{
	"notion.token":        "NOTION_TOKEN",
	"notion.database_id":  "DATABASE_ID",
	"gemini.api_key":      "GEMINI_API_KEY",
	"cache.kv_rest.url":   "KV_REST_API_URL",
	"cache.kv_rest.token": "KV_REST_API_TOKEN",
}

const envPrefix = "PROMPTGALLERY"

var (
	registerRules sync.Once
	rulesErr      error
)

// LoadConfig reads configuration from disk (if present) and the environment.
// Precedence: PROMPTGALLERY_* variables, bare deployment variables, config file, defaults.
func LoadConfig(paths ...string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, bare := range envBindings {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, bare); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", bare, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	config.normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks enumerations and ranges. Missing credentials are not an error here;
// the affected endpoint reports them per request.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil config")
	}
	registerRules.Do(func() {
		rulesErr = validator.RegisterValidation("cron_spec", func(fl playground.FieldLevel) bool {
			_, err := cron.ParseStandard(fl.Field().String())
			return err == nil
		})
	})
	if rulesErr != nil {
		return fmt.Errorf("config: register rules: %w", rulesErr)
	}
	if err := validator.ValidateStruct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) normalize() {
	c.Cache.Driver = strings.ToLower(strings.TrimSpace(c.Cache.Driver))
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Gemini.API = strings.ToLower(strings.TrimSpace(c.Gemini.API))
	c.Notion.Token = strings.TrimSpace(c.Notion.Token)
	c.Notion.DatabaseID = strings.TrimSpace(c.Notion.DatabaseID)
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)

	origins := c.Server.CORS.AllowedOrigins[:0]
	for _, origin := range c.Server.CORS.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	c.Server.CORS.AllowedOrigins = origins
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit.requests_per_second", 0)
	v.SetDefault("server.rate_limit.burst", 20)
	v.SetDefault("server.hsts", false)

	v.SetDefault("notion.base_url", "https://api.notion.com/v1")
	v.SetDefault("notion.version", "2022-06-28")
	v.SetDefault("notion.page_size", 0)
	v.SetDefault("notion.follow_pagination", false)
	v.SetDefault("notion.max_pages", 10)
	v.SetDefault("notion.timeout", "15s")

	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.api", "generate_images")
	v.SetDefault("gemini.timeout", "60s")

	v.SetDefault("image.cache_ttl", "2160h") // 90 days
	v.SetDefault("image.quota.enabled", true)
	v.SetDefault("image.quota.limit", 50)
	v.SetDefault("image.quota.atomic", false)
	v.SetDefault("image.quota.key_prefix", "gemini_daily_count:")
	v.SetDefault("image.quota.window", "24h")

	v.SetDefault("cache.driver", "kv_rest")
	v.SetDefault("cache.timeout", "5s")
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/promptgallery.sqlite")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
	v.SetDefault("monitoring.summary.enabled", false)

	v.SetDefault("maintenance.cache_purge.enabled", true)
	v.SetDefault("maintenance.cache_purge.schedule", "@hourly")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
