package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Import      ImportConfig    `toml:"import"`
	Logging     LoggingConfig   `toml:"logging"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Type   string       `toml:"type"` // "badger" (durable) or "memory" (fallback, expiring)
	Badger BadgerConfig `toml:"badger"`
	Memory MemoryConfig `toml:"memory"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// MemoryConfig configures the in-memory job store fallback
type MemoryConfig struct {
	ExpireAfter string `toml:"expire_after"` // Inactivity window before entries are dropped, e.g. "30m"
}

// ImportConfig controls the chunked import pipeline
type ImportConfig struct {
	ChunkSize         int    `toml:"chunk_size"`           // Records per progress update (default: 100)
	MaxConcurrentJobs int    `toml:"max_concurrent_jobs"`  // Jobs processed in parallel across owners
	MaxRecords        int    `toml:"max_records"`          // Upper bound on records per submission
	UpsertRateLimit   int    `toml:"upsert_rate_limit"`    // Catalog writes per second, 0 = unlimited
	StaleThreshold    string `toml:"stale_threshold"`      // Inactivity before an active job reports as stalled, e.g. "10m"
	DefaultListLimit  int    `toml:"default_list_limit"`   // Default page size for job listings
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// SchedulerConfig controls the maintenance sweep for stalled jobs
type SchedulerConfig struct {
	Enabled       bool   `toml:"enabled"`
	SweepSchedule string `toml:"sweep_schedule"` // Cron schedule (default: every 5 minutes)
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings are exposed in copia.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Type: "badger",
			Badger: BadgerConfig{
				Path: "./data",
			},
			Memory: MemoryConfig{
				ExpireAfter: "30m",
			},
		},
		Import: ImportConfig{
			ChunkSize:         100,
			MaxConcurrentJobs: 4,
			MaxRecords:        10000,
			UpsertRateLimit:   0, // Unlimited by default; the catalog store is local
			StaleThreshold:    "10m",
			DefaultListLimit:  10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Scheduler: SchedulerConfig{
			Enabled:       true,
			SweepSchedule: "*/5 * * * *",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier
// files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("COPIA_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("COPIA_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("COPIA_HOST"); host != "" {
		config.Server.Host = host
	}
	if path := os.Getenv("COPIA_DATA_DIR"); path != "" {
		config.Storage.Badger.Path = path
	}
	if level := os.Getenv("COPIA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if storageType := os.Getenv("COPIA_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = storageType
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// StaleThresholdDuration returns the parsed stale threshold, falling back
// to 10 minutes when the configured value is missing or malformed.
func (c *ImportConfig) StaleThresholdDuration() time.Duration {
	return parseDurationOr(c.StaleThreshold, 10*time.Minute)
}

// ExpireAfterDuration returns the parsed expiry window for the in-memory
// store, defaulting to 30 minutes.
func (c *MemoryConfig) ExpireAfterDuration() time.Duration {
	return parseDurationOr(c.ExpireAfter, 30*time.Minute)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
