package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PRICELENS_SERVER_PORT",
	"PRICELENS_SERVER_ENVIRONMENT",
	"PRICELENS_SERVER_ALLOWED_ORIGINS",
	"PRICELENS_GEMINI_API_KEY",
	"PRICELENS_GEMINI_MODEL",
	"PRICELENS_GEMINI_REQUESTS_PER_MINUTE",
	"PRICELENS_PREDICTOR_ENABLED",
	"PRICELENS_PREDICTOR_BASE_URL",
	"PRICELENS_PREDICTOR_TIMEOUT",
	"PRICELENS_ANALYSIS_REFINEMENT_MODE",
	"PRICELENS_ANALYSIS_MAX_CONCURRENCY",
	"PRICELENS_ANALYSIS_TIMEOUT",
	"PRICELENS_CACHE_TYPE",
	"PRICELENS_CACHE_TTL",
	"PRICELENS_RATELIMIT_PER_IP",
	"PRICELENS_LOG_LEVEL",
	"PRICELENS_LOG_FORMAT",
}

// clearEnv unsets every PRICELENS variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "development", cfg.Server.Environment)
		assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
		assert.Equal(t, 10, cfg.Gemini.RequestsPerMinute)
		assert.True(t, cfg.Predictor.Enabled)
		assert.Equal(t, "http://localhost:5000", cfg.Predictor.BaseURL)
		assert.Equal(t, 10*time.Second, cfg.Predictor.Timeout)
		assert.Equal(t, "per_item", cfg.Analysis.RefinementMode)
		assert.Zero(t, cfg.Analysis.MaxConcurrency)
		assert.Zero(t, cfg.Analysis.Timeout)
		assert.Equal(t, "memory", cfg.Cache.Type)
		assert.Equal(t, time.Hour, cfg.Cache.TTL)
		assert.Equal(t, 60, cfg.RateLimit.PerIP)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "console", cfg.Log.Format)

		assert.Error(t, cfg.RequireAPIKey())
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PRICELENS_SERVER_PORT", "3000")
		t.Setenv("PRICELENS_SERVER_ENVIRONMENT", "production")
		t.Setenv("PRICELENS_GEMINI_API_KEY", "test-key")
		t.Setenv("PRICELENS_GEMINI_MODEL", "gemini-2.5-pro")
		t.Setenv("PRICELENS_PREDICTOR_ENABLED", "false")
		t.Setenv("PRICELENS_ANALYSIS_REFINEMENT_MODE", "collective")
		t.Setenv("PRICELENS_ANALYSIS_MAX_CONCURRENCY", "4")
		t.Setenv("PRICELENS_ANALYSIS_TIMEOUT", "90s")
		t.Setenv("PRICELENS_CACHE_TTL", "30m")
		t.Setenv("PRICELENS_LOG_FORMAT", "json")

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "3000", cfg.Server.Port)
		assert.Equal(t, "production", cfg.Server.Environment)
		assert.Equal(t, "test-key", cfg.Gemini.APIKey)
		assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
		assert.False(t, cfg.Predictor.Enabled)
		assert.Equal(t, "collective", cfg.Analysis.RefinementMode)
		assert.Equal(t, 4, cfg.Analysis.MaxConcurrency)
		assert.Equal(t, 90*time.Second, cfg.Analysis.Timeout)
		assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
		assert.Equal(t, "json", cfg.Log.Format)

		assert.NoError(t, cfg.RequireAPIKey())
	})

	t.Run("reads an explicit config file", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "pricelens.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
  allowed_origins:
    - https://app.example
gemini:
  api_key: file-key
cache:
  type: none
`), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, []string{"https://app.example"}, cfg.Server.AllowedOrigins)
		assert.Equal(t, "file-key", cfg.Gemini.APIKey)
		assert.Equal(t, "none", cfg.Cache.Type)
	})

	t.Run("environment overrides the config file", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "pricelens.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o600))
		t.Setenv("PRICELENS_SERVER_PORT", "7070")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "7070", cfg.Server.Port)
	})
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Predictor: PredictorConfig{Enabled: true, BaseURL: "http://localhost:5000"},
			Analysis:  AnalysisConfig{RefinementMode: "per_item"},
			Cache:     CacheConfig{Type: "memory"},
			Log:       LogConfig{Format: "console"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"cache disabled", func(c *Config) { c.Cache.Type = "none" }, false},
		{"unknown cache type", func(c *Config) { c.Cache.Type = "redis" }, true},
		{"collective refinement", func(c *Config) { c.Analysis.RefinementMode = "collective" }, false},
		{"unknown refinement mode", func(c *Config) { c.Analysis.RefinementMode = "eventually" }, true},
		{"negative concurrency", func(c *Config) { c.Analysis.MaxConcurrency = -1 }, true},
		{"predictor without URL", func(c *Config) { c.Predictor.BaseURL = "" }, true},
		{"disabled predictor without URL", func(c *Config) { c.Predictor.Enabled = false; c.Predictor.BaseURL = "" }, false},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := validate(&cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
