// Package config loads the callisto YAML configuration and applies
// environment variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for callisto.
type Config struct {
	Storage  Storage  `yaml:"storage"`
	Alpaca   Alpaca   `yaml:"alpaca"`
	Logging  Logging  `yaml:"logging"`
	Backtest Backtest `yaml:"backtest"`
	Optimize Optimize `yaml:"optimize"`
	Fetch    Fetch    `yaml:"fetch"`
}

// Storage selects and locates the local bar store.
type Storage struct {
	// Backend is "parquet" or "sqlite".
	Backend    string `yaml:"backend"`
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca data and trading
// APIs.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Backtest holds the simulation parameters for a single run.
type Backtest struct {
	InitialCash float64  `yaml:"initial_cash"`
	Commission  float64  `yaml:"commission"`
	Stake       int64    `yaml:"stake"`
	FastPeriod  int      `yaml:"fast_period"`
	SlowPeriod  int      `yaml:"slow_period"`
	Symbols     []string `yaml:"symbols"`
	Market      string   `yaml:"market"`
	StartDate   string   `yaml:"start_date"`
	EndDate     string   `yaml:"end_date"`
}

// Optimize holds the parameter grid for the optimizer.
type Optimize struct {
	FastPeriods []int  `yaml:"fast_periods"`
	SlowPeriods []int  `yaml:"slow_periods"`
	Workers     int    `yaml:"workers"`
	OutputCSV   string `yaml:"output_csv"`
}

// Fetch holds parameters for the data fetch command.
type Fetch struct {
	StartDate       string `yaml:"start_date"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	MaxAttempts     int    `yaml:"max_attempts"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at path, applies defaults and
// environment variable overrides, and returns the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "parquet"
	}
	if cfg.Backtest.InitialCash == 0 {
		cfg.Backtest.InitialCash = 100000
	}
	if cfg.Backtest.Commission == 0 {
		cfg.Backtest.Commission = 0.001
	}
	if cfg.Backtest.Stake == 0 {
		cfg.Backtest.Stake = 100
	}
	if cfg.Backtest.FastPeriod == 0 {
		cfg.Backtest.FastPeriod = 10
	}
	if cfg.Backtest.SlowPeriod == 0 {
		cfg.Backtest.SlowPeriod = 30
	}
	if cfg.Backtest.Market == "" {
		cfg.Backtest.Market = "us"
	}
	if cfg.Fetch.RateLimitPerMin == 0 {
		cfg.Fetch.RateLimitPerMin = 200
	}
	if cfg.Fetch.MaxAttempts == 0 {
		cfg.Fetch.MaxAttempts = 3
	}
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	// Canonical Alpaca env vars take precedence; these are the names the SDK
	// itself reads.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
