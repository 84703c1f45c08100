// Package config loads and validates pipeline configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the pipeline.
type Config struct {
	Seasons     []string          `yaml:"seasons"`
	Provider    ProviderConfig    `yaml:"provider"`
	Quality     QualityConfig     `yaml:"quality"`
	Incremental IncrementalConfig `yaml:"incremental"`
	Storage     StorageConfig     `yaml:"storage"`
	Snowflake   SnowflakeConfig   `yaml:"snowflake"`
	Watermark   WatermarkConfig   `yaml:"watermark"`
	Archive     ArchiveConfig     `yaml:"archive"`
	LogLevel    string            `yaml:"log_level"`
}

// ProviderConfig holds NBA stats API client settings.
type ProviderConfig struct {
	BaseURL          string `yaml:"base_url"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	MaxAttempts      int    `yaml:"max_attempts"`
	BaseDelaySeconds int    `yaml:"base_delay_seconds"`
}

// Timeout returns the HTTP timeout as a duration.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// BaseDelay returns the initial retry backoff as a duration.
func (p ProviderConfig) BaseDelay() time.Duration {
	return time.Duration(p.BaseDelaySeconds) * time.Second
}

// QualityConfig holds data quality gate thresholds.
type QualityConfig struct {
	MinRows            int     `yaml:"min_rows"`
	MaxMissingFraction float64 `yaml:"max_missing_fraction"`
}

// IncrementalConfig controls the watermark-based freshness short-circuit.
// Note: "incremental" skips redundant refetching when the watermark is fresh;
// the upstream API has no delta query, so this is not a row-level delta fetch.
type IncrementalConfig struct {
	Enabled      bool `yaml:"enabled"`
	LookbackDays int  `yaml:"lookback_days"`
}

// Lookback returns the watermark freshness window as a duration.
func (i IncrementalConfig) Lookback() time.Duration {
	return time.Duration(i.LookbackDays) * 24 * time.Hour
}

// StorageConfig holds local CSV storage paths.
type StorageConfig struct {
	RawDir       string `yaml:"raw_dir"`
	ProcessedDir string `yaml:"processed_dir"`
}

// SnowflakeConfig holds warehouse sink settings. When ConnectionString is set
// it takes precedence over the individual fields.
type SnowflakeConfig struct {
	Enabled          bool   `yaml:"enabled"`
	ConnectionString string `yaml:"connection_string"`
	Account          string `yaml:"account"`
	User             string `yaml:"user"`
	Password         string `yaml:"password"`
	Database         string `yaml:"database"`
	Schema           string `yaml:"schema"`
	Warehouse        string `yaml:"warehouse"`
}

// WatermarkConfig selects the watermark store backend.
type WatermarkConfig struct {
	Backend   string `yaml:"backend"` // "file" or "redis"
	Dir       string `yaml:"dir"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
}

// ArchiveConfig holds optional S3 archival of processed files.
type ArchiveConfig struct {
	Enabled    bool   `yaml:"enabled"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	AWSProfile string `yaml:"aws_profile"`
	KeyPrefix  string `yaml:"key_prefix"`
}

// Default returns the built-in configuration. Values mirror the historical
// pipeline defaults: three recent seasons, min 10 rows, max 10% missing cells,
// 7-day lookback.
func Default() *Config {
	return &Config{
		Seasons: []string{"2023-24", "2022-23", "2021-22"},
		Provider: ProviderConfig{
			BaseURL:          "https://stats.nba.com/stats",
			TimeoutSeconds:   30,
			MaxAttempts:      3,
			BaseDelaySeconds: 1,
		},
		Quality: QualityConfig{
			MinRows:            10,
			MaxMissingFraction: 0.1,
		},
		Incremental: IncrementalConfig{
			Enabled:      true,
			LookbackDays: 7,
		},
		Storage: StorageConfig{
			RawDir:       "data/raw",
			ProcessedDir: "data/processed",
		},
		Watermark: WatermarkConfig{
			Backend: "file",
			Dir:     "data/raw",
		},
		LogLevel: "info",
	}
}

// Load reads configuration from a YAML file layered over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from the given YAML file (optional) and
// applies environment variable overrides for credentials. A .env file in the
// working directory is honored if present.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v := os.Getenv("SNOWFLAKE_CONNECTION_STRING"); v != "" {
		cfg.Snowflake.ConnectionString = v
		cfg.Snowflake.Enabled = true
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Snowflake.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Watermark.Backend = "redis"
		cfg.Watermark.RedisAddr = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.Watermark.RedisDB = db
	}
	if v := os.Getenv("ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.Enabled = true
		cfg.Archive.S3Bucket = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var seasonPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// ValidSeason reports whether s is a well-formed season identifier
// ("YYYY-YY" where YY is the year after YYYY, e.g. "2023-24").
func ValidSeason(s string) bool {
	m := seasonPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return (start+1)%100 == end
}

// Validate checks the configuration and fails fast on invalid values rather
// than silently falling back to defaults.
func (c *Config) Validate() error {
	if len(c.Seasons) == 0 {
		return fmt.Errorf("config: at least one season is required")
	}
	for _, s := range c.Seasons {
		if !ValidSeason(s) {
			return fmt.Errorf("config: invalid season %q (want YYYY-YY)", s)
		}
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("config: provider base_url is required")
	}
	if c.Provider.MaxAttempts < 1 {
		return fmt.Errorf("config: provider max_attempts must be >= 1, got %d", c.Provider.MaxAttempts)
	}
	if c.Provider.BaseDelaySeconds < 0 {
		return fmt.Errorf("config: provider base_delay_seconds must be >= 0, got %d", c.Provider.BaseDelaySeconds)
	}
	if c.Quality.MinRows < 0 {
		return fmt.Errorf("config: quality min_rows must be >= 0, got %d", c.Quality.MinRows)
	}
	if c.Quality.MaxMissingFraction < 0 || c.Quality.MaxMissingFraction > 1 {
		return fmt.Errorf("config: quality max_missing_fraction must be in [0,1], got %g", c.Quality.MaxMissingFraction)
	}
	if c.Incremental.Enabled && c.Incremental.LookbackDays < 1 {
		return fmt.Errorf("config: incremental lookback_days must be >= 1, got %d", c.Incremental.LookbackDays)
	}
	if c.Storage.RawDir == "" || c.Storage.ProcessedDir == "" {
		return fmt.Errorf("config: storage raw_dir and processed_dir are required")
	}
	switch c.Watermark.Backend {
	case "file":
		if c.Watermark.Dir == "" {
			return fmt.Errorf("config: watermark dir is required for file backend")
		}
	case "redis":
		if c.Watermark.RedisAddr == "" {
			return fmt.Errorf("config: watermark redis_addr is required for redis backend")
		}
	default:
		return fmt.Errorf("config: unknown watermark backend %q", c.Watermark.Backend)
	}
	if c.Snowflake.Enabled && c.Snowflake.ConnectionString == "" {
		if c.Snowflake.Account == "" || c.Snowflake.User == "" || c.Snowflake.Database == "" {
			return fmt.Errorf("config: snowflake account, user and database are required when enabled")
		}
	}
	if c.Archive.Enabled {
		if c.Archive.S3Bucket == "" || c.Archive.S3Region == "" {
			return fmt.Errorf("config: archive s3_bucket and s3_region are required when enabled")
		}
	}
	return nil
}
