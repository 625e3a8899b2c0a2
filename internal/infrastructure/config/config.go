// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	monarchToken := cfg.Ledger.APIKey
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied to any value left unset
const (
	DefaultWindowDays     = 7
	DefaultWriteDelay     = 500 * time.Millisecond
	DefaultInterval       = 24 * time.Hour
	DefaultLookbackMonths = 3
	DefaultConcurrency    = 4
	DefaultDatabasePath   = "itemize.db"
	DefaultAPIPort        = 8085
)

// Config represents the entire application configuration
type Config struct {
	Ledger        LedgerConfig        `yaml:"ledger"`
	Matching      MatchingConfig      `yaml:"matching"`
	Sync          SyncConfig          `yaml:"sync"`
	Providers     ProvidersConfig     `yaml:"providers"`
	Storage       StorageConfig       `yaml:"storage"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LedgerConfig holds Monarch Money API configuration
type LedgerConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// MatchingConfig tunes the transaction matcher
type MatchingConfig struct {
	WindowDays    int  `yaml:"window_days"`
	OverrideNotes bool `yaml:"override_notes"`
}

// SyncConfig controls the sync pipeline and its schedule
type SyncConfig struct {
	WriteDelay      time.Duration `yaml:"write_delay"`
	ScheduleEnabled bool          `yaml:"schedule_enabled"`
	Interval        time.Duration `yaml:"interval"`
	LookbackMonths  int           `yaml:"lookback_months"`
	Concurrency     int           `yaml:"concurrency"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// APIConfig holds HTTP server configuration
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ProvidersConfig holds provider-specific configuration
type ProvidersConfig struct {
	Amazon  AmazonConfig  `yaml:"amazon"`
	Walmart WalmartConfig `yaml:"walmart"`
	Costco  CostcoConfig  `yaml:"costco"`
}

// AmazonConfig holds Amazon-specific settings
type AmazonConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Merchant  string `yaml:"merchant"`
	Profile   string `yaml:"profile"` // For multi-account support (optional)
	Headless  bool   `yaml:"headless"`
	MaxOrders int    `yaml:"max_orders"`
}

// WalmartConfig holds Walmart-specific settings
type WalmartConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Merchant    string `yaml:"merchant"`
	BaseURL     string `yaml:"base_url"`
	Cookie      string `yaml:"cookie"`
	Concurrency int    `yaml:"concurrency"`
	MaxOrders   int    `yaml:"max_orders"`
}

// CostcoConfig holds Costco-specific settings
type CostcoConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Merchant        string `yaml:"merchant"`
	Endpoint        string `yaml:"endpoint"`
	Token           string `yaml:"token"`
	WarehouseNumber string `yaml:"warehouse_number"`
	Concurrency     int    `yaml:"concurrency"`
	MaxOrders       int    `yaml:"max_orders"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${MONARCH_TOKEN})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Ledger: LedgerConfig{
			APIKey:  os.Getenv("MONARCH_TOKEN"),
			BaseURL: os.Getenv("MONARCH_BASE_URL"),
		},
		Matching: MatchingConfig{
			WindowDays:    getEnvInt("MATCH_WINDOW_DAYS", DefaultWindowDays),
			OverrideNotes: getEnvBool("OVERRIDE_NOTES", false),
		},
		Sync: SyncConfig{
			WriteDelay:      getEnvDuration("SYNC_WRITE_DELAY", DefaultWriteDelay),
			ScheduleEnabled: getEnvBool("SYNC_SCHEDULE_ENABLED", false),
			Interval:        getEnvDuration("SYNC_INTERVAL", DefaultInterval),
			LookbackMonths:  getEnvInt("SYNC_LOOKBACK_MONTHS", DefaultLookbackMonths),
			Concurrency:     getEnvInt("SYNC_CONCURRENCY", DefaultConcurrency),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("ITEMIZE_DB_PATH", DefaultDatabasePath),
		},
		API: APIConfig{
			Port:           getEnvInt("API_PORT", DefaultAPIPort),
			AllowedOrigins: getEnvList("API_ALLOWED_ORIGINS"),
		},
		Providers: ProvidersConfig{
			Amazon: AmazonConfig{
				Enabled:   getEnvBool("AMAZON_ENABLED", true),
				Merchant:  getEnv("AMAZON_MERCHANT", ""),
				Profile:   getEnv("AMAZON_PROFILE", ""),
				Headless:  getEnvBool("AMAZON_HEADLESS", true),
				MaxOrders: getEnvInt("AMAZON_MAX_ORDERS", 0),
			},
			Walmart: WalmartConfig{
				Enabled:   getEnvBool("WALMART_ENABLED", false),
				Merchant:  getEnv("WALMART_MERCHANT", ""),
				Cookie:    os.Getenv("WALMART_COOKIE"),
				MaxOrders: getEnvInt("WALMART_MAX_ORDERS", 0),
			},
			Costco: CostcoConfig{
				Enabled:         getEnvBool("COSTCO_ENABLED", false),
				Merchant:        getEnv("COSTCO_MERCHANT", ""),
				Token:           os.Getenv("COSTCO_TOKEN"),
				WarehouseNumber: getEnv("COSTCO_WAREHOUSE_NUMBER", ""),
				MaxOrders:       getEnvInt("COSTCO_MAX_ORDERS", 0),
			},
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "maven"),
			},
		},
	}

	cfg.ApplyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnv_WithPath("config.yaml")
}

// LoadOrEnv_WithPath tries to load from specified path, falls back to environment variables
func LoadOrEnv_WithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// ApplyDefaults fills zero values with their defaults
func (c *Config) ApplyDefaults() {
	if c.Matching.WindowDays == 0 {
		c.Matching.WindowDays = DefaultWindowDays
	}
	if c.Sync.WriteDelay == 0 {
		c.Sync.WriteDelay = DefaultWriteDelay
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = DefaultInterval
	}
	if c.Sync.LookbackMonths == 0 {
		c.Sync.LookbackMonths = DefaultLookbackMonths
	}
	if c.Sync.Concurrency == 0 {
		c.Sync.Concurrency = DefaultConcurrency
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = DefaultDatabasePath
	}
	if c.API.Port == 0 {
		c.API.Port = DefaultAPIPort
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

// EnabledProviders returns the enabled provider names in sync order
func (c *Config) EnabledProviders() []string {
	var names []string
	if c.Providers.Amazon.Enabled {
		names = append(names, "amazon")
	}
	if c.Providers.Walmart.Enabled {
		names = append(names, "walmart")
	}
	if c.Providers.Costco.Enabled {
		names = append(names, "costco")
	}
	return names
}

// Merchants maps each provider with a configured merchant name to that name
func (c *Config) Merchants() map[string]string {
	merchants := make(map[string]string)
	if m := c.Providers.Amazon.Merchant; m != "" {
		merchants["amazon"] = m
	}
	if m := c.Providers.Walmart.Merchant; m != "" {
		merchants["walmart"] = m
	}
	if m := c.Providers.Costco.Merchant; m != "" {
		merchants["costco"] = m
	}
	return merchants
}

// Validate reports every configuration problem found
func (c *Config) Validate() error {
	var errs []error

	if c.Matching.WindowDays < 0 {
		errs = append(errs, fmt.Errorf("matching.window_days must not be negative, got %d", c.Matching.WindowDays))
	}
	if c.Sync.WriteDelay < 0 {
		errs = append(errs, fmt.Errorf("sync.write_delay must not be negative, got %s", c.Sync.WriteDelay))
	}
	if c.Sync.ScheduleEnabled && c.Sync.Interval < time.Minute {
		errs = append(errs, fmt.Errorf("sync.interval must be at least 1m when scheduling is enabled, got %s", c.Sync.Interval))
	}
	if c.Sync.LookbackMonths < 0 {
		errs = append(errs, fmt.Errorf("sync.lookback_months must not be negative, got %d", c.Sync.LookbackMonths))
	}
	if c.Sync.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("sync.concurrency must not be negative, got %d", c.Sync.Concurrency))
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port out of range: %d", c.API.Port))
	}
	if len(c.EnabledProviders()) == 0 {
		errs = append(errs, errors.New("at least one provider must be enabled"))
	}

	switch strings.ToLower(c.Observability.Logging.Format) {
	case "", "text", "json", "maven":
	default:
		errs = append(errs, fmt.Errorf("observability.logging.format must be text, json or maven, got %q", c.Observability.Logging.Format))
	}

	return errors.Join(errs...)
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.Atoi(val); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.ParseBool(val); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if result, err := time.ParseDuration(val); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvList splits a comma-separated environment variable
func getEnvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// GetAPIKey retrieves an API key from config first, then tries multiple environment variable names
// Usage: GetAPIKey(cfg.Ledger.APIKey, "MONARCH_TOKEN", "MONARCH_API_KEY")
func (c *Config) GetAPIKey(configValue string, envVarNames ...string) string {
	// First, try the config value
	if configValue != "" {
		return configValue
	}

	// Then try each environment variable in order
	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}

	return ""
}
