// Package config provides configuration management for skew-aware join
// execution. Configuration is an explicit value handed to the engine for a
// single invocation; there is no process-wide mutable configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/paveg/skewjoin/internal/errors"
)

// Config holds all recognized options for one join invocation.
type Config struct {
	// Skew handling configuration
	HeavyAbsThreshold    int64   `json:"heavy_abs_threshold" yaml:"heavy_abs_threshold"`       // Absolute row count above which a key is HEAVY
	HeavyRelThreshold    float64 `json:"heavy_rel_threshold" yaml:"heavy_rel_threshold"`       // Fraction of total rows above which a key is HEAVY, in (0,1]
	SaltFanout           int     `json:"salt_fanout" yaml:"salt_fanout"`                       // Number of salt values per heavy key, >= 1
	BroadcastBudgetBytes int64   `json:"broadcast_budget_bytes" yaml:"broadcast_budget_bytes"` // Memory budget for broadcasting the small side
	SampleFraction       float64 `json:"sample_fraction" yaml:"sample_fraction"`               // Profiler sampling fraction, in (0,1]; 1 = exact

	// Execution configuration
	Partitions     int `json:"partitions" yaml:"partitions"`             // Shuffle partition count (0 = auto)
	WorkerPoolSize int `json:"worker_pool_size" yaml:"worker_pool_size"` // Number of worker goroutines (0 = auto-detect)

	// Debugging configuration
	VerboseLogging    bool `json:"verbose_logging" yaml:"verbose_logging"`       // Enable verbose structured logging
	MetricsCollection bool `json:"metrics_collection" yaml:"metrics_collection"` // Enable per-stage metrics collection
}

// Default configuration values.
const (
	DefaultHeavyAbsThreshold    = 100000
	DefaultHeavyRelThreshold    = 0.2
	DefaultSaltFanout           = 8
	DefaultBroadcastBudgetBytes = 64 << 20
	DefaultSampleFraction       = 1.0
	DefaultPartitions           = 8
)

// NewConfig creates a new configuration with default values.
func NewConfig() Config {
	return Config{
		HeavyAbsThreshold:    DefaultHeavyAbsThreshold,
		HeavyRelThreshold:    DefaultHeavyRelThreshold,
		SaltFanout:           DefaultSaltFanout,
		BroadcastBudgetBytes: DefaultBroadcastBudgetBytes,
		SampleFraction:       DefaultSampleFraction,
		Partitions:           DefaultPartitions,
		WorkerPoolSize:       0, // Auto-detect
	}
}

// Validate validates the configuration and returns a configuration error
// before any data pass if a value is out of range.
func (c *Config) Validate() error {
	if c.HeavyAbsThreshold < 0 {
		return errors.NewConfigurationError("Validate",
			fmt.Sprintf("heavy_abs_threshold must be non-negative, got %d", c.HeavyAbsThreshold))
	}
	if c.HeavyRelThreshold <= 0 || c.HeavyRelThreshold > 1 {
		return errors.NewConfigurationError("Validate",
			fmt.Sprintf("heavy_rel_threshold must be in (0,1], got %f", c.HeavyRelThreshold))
	}
	if c.SaltFanout < 1 {
		return errors.NewConfigurationError("Validate",
			fmt.Sprintf("salt_fanout must be >= 1, got %d", c.SaltFanout))
	}
	if c.BroadcastBudgetBytes < 0 {
		return errors.NewConfigurationError("Validate",
			fmt.Sprintf("broadcast_budget_bytes must be non-negative, got %d", c.BroadcastBudgetBytes))
	}
	if c.SampleFraction <= 0 || c.SampleFraction > 1 {
		return errors.NewConfigurationError("Validate",
			fmt.Sprintf("sample_fraction must be in (0,1], got %f", c.SampleFraction))
	}
	if c.Partitions < 0 {
		return errors.NewConfigurationError("Validate",
			fmt.Sprintf("partitions must be non-negative, got %d", c.Partitions))
	}
	if c.WorkerPoolSize < 0 {
		return errors.NewConfigurationError("Validate",
			fmt.Sprintf("worker_pool_size must be non-negative, got %d", c.WorkerPoolSize))
	}
	return nil
}

// WithDefaults returns a new configuration with default values filled in for
// zero values.
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.HeavyAbsThreshold == 0 {
		c.HeavyAbsThreshold = defaults.HeavyAbsThreshold
	}
	if c.HeavyRelThreshold == 0 {
		c.HeavyRelThreshold = defaults.HeavyRelThreshold
	}
	if c.SaltFanout == 0 {
		c.SaltFanout = defaults.SaltFanout
	}
	if c.BroadcastBudgetBytes == 0 {
		c.BroadcastBudgetBytes = defaults.BroadcastBudgetBytes
	}
	if c.SampleFraction == 0 {
		c.SampleFraction = defaults.SampleFraction
	}
	if c.Partitions == 0 {
		c.Partitions = defaults.Partitions
	}

	// Boolean fields are intentionally left as-is so an explicitly set false
	// stays distinguishable from unset.

	return c
}

// EffectiveWorkers resolves the worker pool size, falling back to the CPU
// count when unset.
func (c Config) EffectiveWorkers() int {
	if c.WorkerPoolSize > 0 {
		return c.WorkerPoolSize
	}
	return runtime.NumCPU()
}

// LoadFromJSON loads configuration from JSON data.
func LoadFromJSON(data []byte) (Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a file (supports JSON and YAML).
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config.WithDefaults(), nil
}

// LoadFromEnv loads configuration from SKEWJOIN_* environment variables,
// starting from defaults.
func LoadFromEnv() Config {
	config := NewConfig()

	if val := os.Getenv("SKEWJOIN_HEAVY_ABS_THRESHOLD"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.HeavyAbsThreshold = parsed
		}
	}

	if val := os.Getenv("SKEWJOIN_HEAVY_REL_THRESHOLD"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.HeavyRelThreshold = parsed
		}
	}

	if val := os.Getenv("SKEWJOIN_SALT_FANOUT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.SaltFanout = parsed
		}
	}

	if val := os.Getenv("SKEWJOIN_BROADCAST_BUDGET_BYTES"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.BroadcastBudgetBytes = parsed
		}
	}

	if val := os.Getenv("SKEWJOIN_SAMPLE_FRACTION"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.SampleFraction = parsed
		}
	}

	if val := os.Getenv("SKEWJOIN_PARTITIONS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.Partitions = parsed
		}
	}

	if val := os.Getenv("SKEWJOIN_WORKER_POOL_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.WorkerPoolSize = parsed
		}
	}

	if val := os.Getenv("SKEWJOIN_VERBOSE_LOGGING"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.VerboseLogging = parsed
		}
	}

	if val := os.Getenv("SKEWJOIN_METRICS_COLLECTION"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.MetricsCollection = parsed
		}
	}

	return config
}
