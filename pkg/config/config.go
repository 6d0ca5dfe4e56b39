package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Upstream  UpstreamConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Selection SelectionConfig
	Prefetch  PrefetchConfig
	Telemetry TelemetryConfig
	CORS      CORSConfig
	Log       LogConfig
	Features  FeatureConfig
}

// UpstreamConfig points the request executor at the remote REST API.
type UpstreamConfig struct {
	BaseURL    string
	RolePrefix string
	Token      string
	Timeout    time.Duration
}

// CacheConfig tunes the resource cache store and its optional persistence.
type CacheConfig struct {
	TTL           time.Duration
	MaxEntries    int
	Persist       bool
	PersistPrefix string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SelectionConfig decides how child selections without a parent are treated.
type SelectionConfig struct {
	AllowOrphans bool
}

// PrefetchConfig controls background loading of the next hierarchy level.
type PrefetchConfig struct {
	Enabled    bool
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// TelemetryConfig gates OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// FeatureConfig toggles optional gateway surfaces.
type FeatureConfig struct {
	Adoptions bool
	Exports   bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Upstream = UpstreamConfig{
		BaseURL:    strings.TrimRight(v.GetString("UPSTREAM_BASE_URL"), "/"),
		RolePrefix: normalizePrefix(v.GetString("UPSTREAM_ROLE_PREFIX")),
		Token:      v.GetString("UPSTREAM_TOKEN"),
		Timeout:    parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 15*time.Second),
	}

	maxEntries := v.GetInt("CACHE_MAX_ENTRIES")
	if maxEntries <= 0 {
		maxEntries = 512
	}
	cfg.Cache = CacheConfig{
		TTL:           parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
		MaxEntries:    maxEntries,
		Persist:       v.GetBool("CACHE_PERSIST"),
		PersistPrefix: v.GetString("CACHE_PERSIST_PREFIX"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Selection = SelectionConfig{AllowOrphans: v.GetBool("SELECTION_ALLOW_ORPHANS")}

	workers := v.GetInt("PREFETCH_WORKERS")
	if workers <= 0 {
		workers = 1
	}
	cfg.Prefetch = PrefetchConfig{
		Enabled:    v.GetBool("PREFETCH_ENABLED"),
		Workers:    workers,
		MaxRetries: v.GetInt("PREFETCH_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("PREFETCH_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Telemetry = TelemetryConfig{
		Enabled:     v.GetBool("OTEL_ENABLED"),
		Endpoint:    v.GetString("OTEL_ENDPOINT"),
		ServiceName: v.GetString("OTEL_SERVICE_NAME"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Features = FeatureConfig{
		Adoptions: v.GetBool("ENABLE_ADOPTIONS"),
		Exports:   v.GetBool("ENABLE_EXPORTS"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8090)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("UPSTREAM_BASE_URL", "http://localhost:8000/api")
	v.SetDefault("UPSTREAM_ROLE_PREFIX", "/admin-cabang")
	v.SetDefault("UPSTREAM_TOKEN", "")
	v.SetDefault("UPSTREAM_TIMEOUT", "15s")

	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("CACHE_MAX_ENTRIES", 512)
	v.SetDefault("CACHE_PERSIST", false)
	v.SetDefault("CACHE_PERSIST_PREFIX", "curriculum:cache:")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SELECTION_ALLOW_ORPHANS", false)

	v.SetDefault("PREFETCH_ENABLED", true)
	v.SetDefault("PREFETCH_WORKERS", 2)
	v.SetDefault("PREFETCH_MAX_RETRIES", 2)
	v.SetDefault("PREFETCH_RETRY_DELAY", "2s")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_ENDPOINT", "")
	v.SetDefault("OTEL_SERVICE_NAME", "curriculum-gateway")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_ADOPTIONS", true)
	v.SetDefault("ENABLE_EXPORTS", true)
}

func isMissingFile(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func normalizePrefix(raw string) string {
	trimmed := strings.Trim(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return ""
	}
	return "/" + trimmed
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
