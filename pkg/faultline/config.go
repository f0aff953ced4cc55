// config.go loads and validates tracker configuration from YAML files and
// environment overrides.

package faultline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Queue overflow policies.
const (
	// PolicyDropOldest discards the oldest queued occurrence to admit a new
	// one when the queue is full.
	PolicyDropOldest = "drop_oldest"

	// PolicyBlock waits up to BlockTimeout for queue space; on timeout the
	// new occurrence is dropped and counted.
	PolicyBlock = "block"
)

// Config captures the settings for a Tracker.
type Config struct {
	// MaxErrors bounds the number of resident error records.
	MaxErrors int `yaml:"maxErrors"`

	// HistorySize bounds the occurrence history used for rates and trends.
	HistorySize int `yaml:"historySize"`

	// RateWindow is the trailing window for error rate and critical counts.
	RateWindow time.Duration `yaml:"rateWindow"`

	// AggregationWindow is the bucket used for spike detection. It never
	// affects fingerprint grouping.
	AggregationWindow time.Duration `yaml:"aggregationWindow"`

	Queue      QueueConfig      `yaml:"queue"`
	Alerts     AlertThresholds  `yaml:"alerts"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Sanitizer  SanitizerConfig  `yaml:"sanitizer"`
	Export     ExportConfig     `yaml:"export"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// QueueConfig controls background ingestion.
type QueueConfig struct {
	// Size is the bounded queue capacity.
	Size int `yaml:"size"`

	// Policy selects the overflow behavior: drop_oldest or block.
	Policy string `yaml:"policy"`

	// BlockTimeout bounds the wait under the block policy.
	BlockTimeout time.Duration `yaml:"blockTimeout"`

	// DrainTimeout bounds the queue drain during shutdown when the caller
	// passes a context without a deadline.
	DrainTimeout time.Duration `yaml:"drainTimeout"`
}

// ExportConfig controls error exports.
type ExportConfig struct {
	// Schedule is an optional cron expression; when set, background
	// processing exports on that cadence.
	Schedule string `yaml:"schedule"`

	// Path is the destination file for scheduled exports.
	Path string `yaml:"path"`

	// Format is json or csv.
	Format string `yaml:"format"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxErrors:         10000,
		HistorySize:       50000,
		RateWindow:        time.Hour,
		AggregationWindow: 10 * time.Minute,
		Queue: QueueConfig{
			Size:         1000,
			Policy:       PolicyDropOldest,
			BlockTimeout: 100 * time.Millisecond,
			DrainTimeout: 5 * time.Second,
		},
		Alerts:     DefaultAlertThresholds(),
		Normalizer: DefaultNormalizerConfig(),
		Sanitizer:  DefaultSanitizerConfig(),
		Export: ExportConfig{
			Format: "json",
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

// withDefaults fills zero-valued fields from DefaultConfig so a partially
// specified Config behaves sensibly.
func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.MaxErrors <= 0 {
		c.MaxErrors = def.MaxErrors
	}
	if c.HistorySize <= 0 {
		c.HistorySize = def.HistorySize
	}
	if c.RateWindow <= 0 {
		c.RateWindow = def.RateWindow
	}
	if c.AggregationWindow <= 0 {
		c.AggregationWindow = def.AggregationWindow
	}
	if c.Queue.Size <= 0 {
		c.Queue.Size = def.Queue.Size
	}
	if c.Queue.Policy == "" {
		c.Queue.Policy = def.Queue.Policy
	}
	if c.Queue.BlockTimeout <= 0 {
		c.Queue.BlockTimeout = def.Queue.BlockTimeout
	}
	if c.Queue.DrainTimeout <= 0 {
		c.Queue.DrainTimeout = def.Queue.DrainTimeout
	}
	if c.Alerts == (AlertThresholds{}) {
		c.Alerts = def.Alerts
	}
	if c.Normalizer == (NormalizerConfig{}) {
		c.Normalizer = def.Normalizer
	}
	if c.Sanitizer == (SanitizerConfig{}) {
		c.Sanitizer = def.Sanitizer
	}
	if c.Export.Format == "" {
		c.Export.Format = def.Export.Format
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	return c
}

// LoadConfig initialises Config from a YAML file and optional environment
// overrides. An empty path falls back to the FAULTLINE_CONFIG environment
// variable; with neither set, defaults apply.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("FAULTLINE_CONFIG")
	}

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FAULTLINE_MAX_ERRORS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxErrors = n
		}
	}
	if v := os.Getenv("FAULTLINE_HISTORY_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HistorySize = n
		}
	}
	if v := os.Getenv("FAULTLINE_RATE_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RateWindow = d
		}
	}
	if v := os.Getenv("FAULTLINE_AGGREGATION_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.AggregationWindow = d
		}
	}
	if v := os.Getenv("FAULTLINE_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Queue.Size = n
		}
	}
	if v := os.Getenv("FAULTLINE_QUEUE_POLICY"); v != "" {
		cfg.Queue.Policy = v
	}
	if v := os.Getenv("FAULTLINE_QUEUE_BLOCK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Queue.BlockTimeout = d
		}
	}
	if v := os.Getenv("FAULTLINE_EXPORT_SCHEDULE"); v != "" {
		cfg.Export.Schedule = v
	}
	if v := os.Getenv("FAULTLINE_EXPORT_PATH"); v != "" {
		cfg.Export.Path = v
	}
	if v := os.Getenv("FAULTLINE_EXPORT_FORMAT"); v != "" {
		cfg.Export.Format = v
	}
	if v := os.Getenv("FAULTLINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FAULTLINE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}

// Validate reports configuration errors before the tracker starts.
func (c *Config) Validate() error {
	if c.MaxErrors <= 0 {
		return fmt.Errorf("maxErrors must be positive, got %d", c.MaxErrors)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("historySize must be positive, got %d", c.HistorySize)
	}
	if c.RateWindow <= 0 {
		return fmt.Errorf("rateWindow must be positive, got %s", c.RateWindow)
	}
	if c.AggregationWindow <= 0 {
		return fmt.Errorf("aggregationWindow must be positive, got %s", c.AggregationWindow)
	}
	if c.Queue.Size <= 0 {
		return fmt.Errorf("queue.size must be positive, got %d", c.Queue.Size)
	}
	switch c.Queue.Policy {
	case PolicyDropOldest, PolicyBlock:
	default:
		return fmt.Errorf("queue.policy must be %s or %s, got %q", PolicyDropOldest, PolicyBlock, c.Queue.Policy)
	}
	if c.Queue.Policy == PolicyBlock && c.Queue.BlockTimeout <= 0 {
		return fmt.Errorf("queue.blockTimeout must be positive under the block policy")
	}
	switch c.Export.Format {
	case "json", "csv":
	default:
		return fmt.Errorf("export.format must be json or csv, got %q", c.Export.Format)
	}
	if c.Export.Schedule != "" && c.Export.Path == "" {
		return fmt.Errorf("export.path is required when export.schedule is set")
	}
	if c.Alerts.ErrorRate < 0 || c.Alerts.CriticalErrors < 0 || c.Alerts.ErrorSpike < 0 {
		return fmt.Errorf("alert thresholds must not be negative")
	}
	return nil
}
