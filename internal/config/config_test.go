package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", "")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/hoa")
	t.Setenv("PERPLEXITY_API_KEY", "pplx-test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4002, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Server.RateLimitPerMinute)
	assert.Equal(t, time.Hour, cfg.Cache.CitiesTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Cache.EnrichmentFreshness)
	assert.Equal(t, 60*time.Second, cfg.Analysis.Timeout)
	assert.Equal(t, 20*time.Second, cfg.Perplexity.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
redis:
  addr: "localhost:6379"
cache:
  cities_ttl: 5m
analysis:
  workers: 4
log:
  level: debug
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ANALYSIS_WORKERS", "8")
	t.Setenv("REPORT_CACHE_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Cache.CitiesTTL)
	assert.Equal(t, 30*time.Second, cfg.Cache.ReportTTL)
	assert.Equal(t, 8, cfg.Analysis.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched by either source
	assert.Equal(t, defaultAnalysisQueueSize, cfg.Analysis.QueueSize)
}

func TestLoad_EnvFile(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PERPLEXITY_MODEL=sonar-pro\nPERPLEXITY_API_KEY=from-file\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	// godotenv only fills unset variables; Setenv registers the restore.
	t.Setenv("PERPLEXITY_MODEL", "")
	require.NoError(t, os.Unsetenv("PERPLEXITY_MODEL"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "pplx-test", cfg.Perplexity.APIKey)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	setRequired(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yml"))

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := defaults()
	base.Database.URL = "postgres://x"
	base.Perplexity.APIKey = "k"
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing database", func(c *Config) { c.Database.URL = "" }},
		{"missing api key", func(c *Config) { c.Perplexity.APIKey = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"no workers", func(c *Config) { c.Analysis.Workers = 0 }},
		{"zero freshness", func(c *Config) { c.Cache.EnrichmentFreshness = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
