// Package config loads service settings from .env files, an optional YAML
// file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/yourorg/hoa-scout/internal/env"
	"github.com/yourorg/hoa-scout/internal/logger"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort               = 4002
	defaultRateLimitPerMinute = 100
	defaultAnalysisWorkers    = 2
	defaultAnalysisQueueSize  = 256
	defaultEnricherBatchSize  = 50
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Log        logger.Config    `yaml:"log"`
	Perplexity PerplexityConfig `yaml:"perplexity"`
	Cache      CacheConfig      `yaml:"cache"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Enricher   EnricherConfig   `yaml:"enricher"`
}

type ServerConfig struct {
	Port               int           `yaml:"port"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL     string `yaml:"url"`
	Migrate bool   `yaml:"migrate"`
}

// RedisConfig leaves Addr empty to run without the report page cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PerplexityConfig struct {
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	Model             string        `yaml:"model"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

type CacheConfig struct {
	CitiesTTL           time.Duration `yaml:"cities_ttl"`
	ReportTTL           time.Duration `yaml:"report_ttl"`
	EnrichmentFreshness time.Duration `yaml:"enrichment_freshness"`
}

type AnalysisConfig struct {
	Workers   int           `yaml:"workers"`
	QueueSize int           `yaml:"queue_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

type EnricherConfig struct {
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
	Pause     time.Duration `yaml:"pause"`
	RunOnce   bool          `yaml:"run_once"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:               defaultPort,
			RateLimitPerMinute: defaultRateLimitPerMinute,
			ShutdownTimeout:    15 * time.Second,
		},
		Log: logger.Config{Level: "info"},
		Perplexity: PerplexityConfig{
			Timeout:           20 * time.Second,
			MaxRetries:        2,
			RequestsPerSecond: 1,
		},
		Cache: CacheConfig{
			CitiesTTL:           time.Hour,
			ReportTTL:           10 * time.Minute,
			EnrichmentFreshness: 30 * 24 * time.Hour,
		},
		Analysis: AnalysisConfig{
			Workers:   defaultAnalysisWorkers,
			QueueSize: defaultAnalysisQueueSize,
			Timeout:   60 * time.Second,
		},
		Enricher: EnricherConfig{
			Interval:  6 * time.Hour,
			BatchSize: defaultEnricherBatchSize,
			Pause:     2 * time.Second,
		},
	}
}

// Load reads .env (or ENV_FILE), then CONFIG_FILE when set, then applies
// environment overrides and validates the result.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile never overrides variables that are already set. A missing
// default .env is not an error.
func loadEnvFile() error {
	if f := os.Getenv("ENV_FILE"); f != "" {
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func overrideFromEnv(cfg *Config) {
	cfg.Server.Port = env.GetInt("PORT", cfg.Server.Port)
	cfg.Server.RateLimitPerMinute = env.GetInt("RATE_LIMIT_PER_MINUTE", cfg.Server.RateLimitPerMinute)
	cfg.Server.ShutdownTimeout = env.GetDuration("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Database.URL = env.Get("DATABASE_URL", cfg.Database.URL)
	cfg.Database.Migrate = env.GetBool("DATABASE_MIGRATE", cfg.Database.Migrate)

	cfg.Redis.Addr = env.Get("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = env.Get("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = env.GetInt("REDIS_DB", cfg.Redis.DB)

	cfg.Log.Level = env.Get("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Development = env.GetBool("LOG_DEVELOPMENT", cfg.Log.Development)

	cfg.Perplexity.APIKey = env.Get("PERPLEXITY_API_KEY", cfg.Perplexity.APIKey)
	cfg.Perplexity.BaseURL = env.Get("PERPLEXITY_BASE_URL", cfg.Perplexity.BaseURL)
	cfg.Perplexity.Model = env.Get("PERPLEXITY_MODEL", cfg.Perplexity.Model)
	cfg.Perplexity.Timeout = env.GetDuration("PERPLEXITY_TIMEOUT", cfg.Perplexity.Timeout)
	cfg.Perplexity.RequestsPerSecond = env.GetFloat("PERPLEXITY_RPS", cfg.Perplexity.RequestsPerSecond)

	cfg.Cache.CitiesTTL = env.GetDuration("CITIES_CACHE_TTL", cfg.Cache.CitiesTTL)
	cfg.Cache.ReportTTL = env.GetDuration("REPORT_CACHE_TTL", cfg.Cache.ReportTTL)
	cfg.Cache.EnrichmentFreshness = env.GetDuration("ENRICHMENT_FRESHNESS", cfg.Cache.EnrichmentFreshness)

	cfg.Analysis.Workers = env.GetInt("ANALYSIS_WORKERS", cfg.Analysis.Workers)
	cfg.Analysis.QueueSize = env.GetInt("ANALYSIS_QUEUE_SIZE", cfg.Analysis.QueueSize)
	cfg.Analysis.Timeout = env.GetDuration("ANALYSIS_TIMEOUT", cfg.Analysis.Timeout)

	cfg.Enricher.Interval = env.GetDuration("ENRICHER_INTERVAL", cfg.Enricher.Interval)
	cfg.Enricher.BatchSize = env.GetInt("ENRICHER_BATCH_SIZE", cfg.Enricher.BatchSize)
	cfg.Enricher.Pause = env.GetDuration("ENRICHER_PAUSE", cfg.Enricher.Pause)
	cfg.Enricher.RunOnce = env.GetBool("ENRICHER_RUN_ONCE", cfg.Enricher.RunOnce)
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.Perplexity.APIKey == "" {
		return errors.New("PERPLEXITY_API_KEY is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Server.Port)
	}
	if c.Server.RateLimitPerMinute <= 0 {
		return errors.New("rate limit per minute must be positive")
	}
	if c.Analysis.Workers <= 0 || c.Analysis.QueueSize <= 0 {
		return errors.New("analysis workers and queue size must be positive")
	}
	if c.Cache.EnrichmentFreshness <= 0 {
		return errors.New("enrichment freshness must be positive")
	}
	return nil
}
