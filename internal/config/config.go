// Package config loads process settings from the environment and optional .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"smarthika/internal/blob"
	"smarthika/internal/core"
)

// DefaultLocationSource lists Indian states with their districts.
const DefaultLocationSource = "https://raw.githubusercontent.com/sab99r/Indian-States-And-Districts/master/states-and-districts.json"

// Location cache drivers.
const (
	CacheLRU   = "lru"
	CacheRedis = "redis"
)

// Metrics drivers.
const (
	MetricsPrometheus = "prometheus"
	MetricsExpvar     = "expvar"
	MetricsNone       = "none"
)

// Config is the full runtime configuration.
type Config struct {
	HTTPAddr        string        `env:"SMARTHIKA_HTTP_ADDR,default=:8080"`
	ShutdownTimeout time.Duration `env:"SMARTHIKA_SHUTDOWN_TIMEOUT,default=10s"`

	// SheetsWebhookURL is the spreadsheet web-hook. A missing value surfaces at
	// submit time, not at startup.
	SheetsWebhookURL string        `env:"SMARTHIKA_SHEETS_WEBHOOK_URL"`
	SubmitTimeout    time.Duration `env:"SMARTHIKA_SUBMIT_TIMEOUT,default=30s"`
	SubmitPerMinute  float64       `env:"SMARTHIKA_SUBMIT_PER_MINUTE,default=30"`
	SubmitBurst      int           `env:"SMARTHIKA_SUBMIT_BURST,default=5"`

	LocationSourceURL string        `env:"SMARTHIKA_LOCATION_SOURCE_URL"`
	LocationTimeout   time.Duration `env:"SMARTHIKA_LOCATION_TIMEOUT,default=10s"`
	LocationCache     string        `env:"SMARTHIKA_LOCATION_CACHE,default=lru"`
	LocationCacheTTL  time.Duration `env:"SMARTHIKA_LOCATION_CACHE_TTL,default=24h"`
	RedisAddr         string        `env:"SMARTHIKA_REDIS_ADDR,default=localhost:6379"`
	RedisPassword     string        `env:"SMARTHIKA_REDIS_PASSWORD"`
	RedisDB           int           `env:"SMARTHIKA_REDIS_DB,default=0"`

	MapLoadTimeout time.Duration `env:"SMARTHIKA_MAP_TIMEOUT,default=10s"`
	ArchiveQueue   int           `env:"SMARTHIKA_ARCHIVE_QUEUE,default=32"`
	RulesFile      string        `env:"SMARTHIKA_RULES_FILE"`

	LogLevel  string `env:"SMARTHIKA_LOG_LEVEL,default=info"`
	LogFormat string `env:"SMARTHIKA_LOG_FORMAT,default=json"`
	Metrics   string `env:"SMARTHIKA_METRICS,default=prometheus"`

	Storage core.StorageConfig
	Blob    blob.Config
}

// Load reads envFiles (missing files are skipped) into the process environment
// without overriding variables that are already set, then decodes Config.
func Load(envFiles ...string) (Config, error) {
	for _, file := range envFiles {
		if strings.TrimSpace(file) == "" {
			continue
		}
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	if cfg.LocationSourceURL == "" {
		cfg.LocationSourceURL = DefaultLocationSource
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	var errs []error
	switch c.LocationCache {
	case "", CacheLRU, CacheRedis:
	default:
		errs = append(errs, fmt.Errorf("SMARTHIKA_LOCATION_CACHE: unknown cache %q", c.LocationCache))
	}
	switch c.Metrics {
	case "", MetricsPrometheus, MetricsExpvar, MetricsNone:
	default:
		errs = append(errs, fmt.Errorf("SMARTHIKA_METRICS: unknown driver %q", c.Metrics))
	}
	if c.SubmitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("SMARTHIKA_SUBMIT_PER_MINUTE must not be negative"))
	}
	if c.SubmitBurst < 0 {
		errs = append(errs, fmt.Errorf("SMARTHIKA_SUBMIT_BURST must not be negative"))
	}
	return errors.Join(errs...)
}
