package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
ledger:
  api_key: "abc"
matching:
  window_days: 10
  override_notes: true
sync:
  write_delay: 250ms
  schedule_enabled: true
  interval: 12h
providers:
  amazon:
    enabled: true
    merchant: "Amazon Marketplace"
    profile: household
  costco:
    enabled: true
    token: "tok"
    warehouse_number: "123"
api:
  port: 9000
  allowed_origins: ["http://localhost:3000"]
observability:
  logging:
    level: debug
    format: json
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Ledger.APIKey)
	assert.Equal(t, 10, cfg.Matching.WindowDays)
	assert.True(t, cfg.Matching.OverrideNotes)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.WriteDelay)
	assert.Equal(t, 12*time.Hour, cfg.Sync.Interval)
	assert.True(t, cfg.Sync.ScheduleEnabled)
	assert.Equal(t, "household", cfg.Providers.Amazon.Profile)
	assert.Equal(t, "123", cfg.Providers.Costco.WarehouseNumber)
	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.API.AllowedOrigins)
	assert.Equal(t, "json", cfg.Observability.Logging.Format)
	assert.Equal(t, []string{"amazon", "costco"}, cfg.EnabledProviders())
	assert.Equal(t, map[string]string{"amazon": "Amazon Marketplace"}, cfg.Merchants())

	// Unset values pick up defaults
	assert.Equal(t, DefaultLookbackMonths, cfg.Sync.LookbackMonths)
	assert.Equal(t, DefaultDatabasePath, cfg.Storage.DatabasePath)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "ledger: [unterminated")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ITEMIZE_DB_PATH", "test.db")
	t.Setenv("MONARCH_TOKEN", "test-token")
	t.Setenv("SYNC_WRITE_DELAY", "2s")
	t.Setenv("WALMART_ENABLED", "true")
	t.Setenv("API_ALLOWED_ORIGINS", "http://a, http://b")

	cfg := LoadFromEnv()

	assert.Equal(t, "test.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "test-token", cfg.Ledger.APIKey)
	assert.Equal(t, 2*time.Second, cfg.Sync.WriteDelay)
	assert.True(t, cfg.Providers.Walmart.Enabled)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.API.AllowedOrigins)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("ITEMIZE_DB_PATH", "")
	t.Setenv("SYNC_WRITE_DELAY", "not-a-duration")
	t.Setenv("MATCH_WINDOW_DAYS", "")

	cfg := LoadFromEnv()

	assert.Equal(t, DefaultDatabasePath, cfg.Storage.DatabasePath)
	assert.Equal(t, DefaultWriteDelay, cfg.Sync.WriteDelay)
	assert.Equal(t, DefaultWindowDays, cfg.Matching.WindowDays)
	assert.False(t, cfg.Matching.OverrideNotes)
	assert.Equal(t, DefaultInterval, cfg.Sync.Interval)
}

func TestLoadOrEnv_FallbackToEnv(t *testing.T) {
	t.Setenv("ITEMIZE_DB_PATH", "fallback.db")

	cfg := LoadOrEnv_WithPath("nonexistent.yaml")

	assert.NotNil(t, cfg)
	assert.Equal(t, "fallback.db", cfg.Storage.DatabasePath)
}

func TestEnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "expanded.db")
	t.Setenv("TEST_MONARCH_TOKEN", "expanded-token")

	path := writeConfig(t, `
storage:
  database_path: "${TEST_DB_PATH}"
ledger:
  api_key: "${TEST_MONARCH_TOKEN}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "expanded-token", cfg.Ledger.APIKey)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Providers.Amazon.Enabled = true
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"negative window", func(c *Config) { c.Matching.WindowDays = -1 }, "window_days"},
		{"negative delay", func(c *Config) { c.Sync.WriteDelay = -time.Second }, "write_delay"},
		{"short schedule", func(c *Config) { c.Sync.ScheduleEnabled = true; c.Sync.Interval = time.Second }, "sync.interval"},
		{"bad port", func(c *Config) { c.API.Port = 70000 }, "api.port"},
		{"no providers", func(c *Config) { c.Providers.Amazon.Enabled = false }, "at least one provider"},
		{"bad log format", func(c *Config) { c.Observability.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	cfg.Matching.WindowDays = -3

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "window_days")
	assert.Contains(t, err.Error(), "at least one provider")
}

func TestGetAPIKey(t *testing.T) {
	t.Setenv("ALT_KEY", "from-env")
	cfg := &Config{}

	assert.Equal(t, "explicit", cfg.GetAPIKey("explicit", "ALT_KEY"))
	assert.Equal(t, "from-env", cfg.GetAPIKey("", "MISSING_KEY", "ALT_KEY"))
	assert.Empty(t, cfg.GetAPIKey("", "MISSING_KEY"))
}
