package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Folio
type Config struct {
	Environment  string            `toml:"environment"`
	BaseCurrency string            `toml:"base_currency"`
	Storage      StorageConfig     `toml:"storage"`
	Clients      ClientsConfig     `toml:"clients"`
	Logging      LoggingConfig     `toml:"logging"`
	Calculation  CalculationConfig `toml:"calculation"`
}

// StorageConfig holds the file store location
type StorageConfig struct {
	Path string `toml:"path"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD EODHDConfig `toml:"eodhd"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// CalculationConfig holds defaults for a calculation run
type CalculationConfig struct {
	XIRRMethod          string `toml:"xirr_method"`
	CurrentHoldingsOnly bool   `toml:"current_holdings_only"`
	CacheSnapshots      bool   `toml:"cache_snapshots"`
	PriceCacheTTL       string `toml:"price_cache_ttl"`
}

// GetPriceCacheTTL parses and returns the in-memory price cache lifetime
func (c *CalculationConfig) GetPriceCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.PriceCacheTTL)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:  "development",
		BaseCurrency: "SEK",
		Storage: StorageConfig{
			Path: "data",
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		Calculation: CalculationConfig{
			XIRRMethod:     "portfolio",
			CacheSnapshots: true,
			PriceCacheTTL:  "15m",
		},
	}
}

// LoadConfig loads configuration from files with .env and environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// A missing .env is normal outside development
	_ = godotenv.Load()

	applyEnvOverrides(config)

	config.BaseCurrency = strings.ToUpper(strings.TrimSpace(config.BaseCurrency))
	if config.BaseCurrency == "" {
		config.BaseCurrency = "SEK"
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FOLIO_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("FOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if format := os.Getenv("FOLIO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	if path := os.Getenv("FOLIO_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if bc := os.Getenv("FOLIO_BASE_CURRENCY"); bc != "" {
		config.BaseCurrency = strings.ToUpper(bc)
	}

	if m := os.Getenv("FOLIO_XIRR_METHOD"); m != "" {
		config.Calculation.XIRRMethod = m
	}

	if v := os.Getenv("FOLIO_CACHE_SNAPSHOTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Calculation.CacheSnapshots = b
		}
	}

	for _, name := range []string{"EODHD_API_KEY", "FOLIO_EODHD_API_KEY"} {
		if key := os.Getenv(name); key != "" {
			config.Clients.EODHD.APIKey = key
			break
		}
	}
}

// ValidateRequired returns the names of settings that must be present for
// network-backed price lookups.
func (c *Config) ValidateRequired() []string {
	var missing []string
	if strings.TrimSpace(c.Clients.EODHD.APIKey) == "" {
		missing = append(missing, "clients.eodhd.api_key")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		missing = append(missing, "storage.path")
	}
	return missing
}
