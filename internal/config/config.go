package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warroomstack/warroom-rca/internal/utils"
)

// Config captures the settings required to boot the analysis service.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Detector    DetectorConfig    `yaml:"detector"`
	Correlation CorrelationConfig `yaml:"correlation"`
	Rules       RulesConfig       `yaml:"rules"`
	Storage     StorageConfig     `yaml:"storage"`
	Cache       CacheConfig       `yaml:"cache"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// DetectorConfig selects and parameterises the anomaly detector strategy.
type DetectorConfig struct {
	Kind        string            `yaml:"kind"`
	Threshold   ThresholdConfig   `yaml:"threshold"`
	Statistical StatisticalConfig `yaml:"statistical"`
}

// ThresholdConfig holds static bounds, optionally per metric name.
type ThresholdConfig struct {
	DefaultUpper *float64         `yaml:"defaultUpper"`
	DefaultLower *float64         `yaml:"defaultLower"`
	PerMetric    map[string]Bound `yaml:"perMetric"`
}

// Bound is an optional upper/lower pair for a single metric.
type Bound struct {
	Upper *float64 `yaml:"upper"`
	Lower *float64 `yaml:"lower"`
}

// StatisticalConfig parameterises the rolling k-sigma detector.
type StatisticalConfig struct {
	Window int     `yaml:"window"`
	Sigma  float64 `yaml:"sigma"`
}

// CorrelationConfig bounds the chained clustering window.
type CorrelationConfig struct {
	Window time.Duration `yaml:"window"`
}

// RulesConfig controls knowledge-table loading for the recommender.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig controls report history persistence.
type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
}

// CacheConfig controls the in-process report cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
// Validation failures abort before any processing starts.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("WARROOM_RCA_CONFIG")
	}

	cfg := defaultConfig()

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

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8085",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Detector: DetectorConfig{
			Kind:        "threshold",
			Statistical: StatisticalConfig{Window: 10, Sigma: 3},
		},
		Correlation: CorrelationConfig{Window: 5 * time.Second},
		Rules:       RulesConfig{Path: "configs/rules/default.yaml"},
		Storage:     StorageConfig{Enabled: false, Driver: "sqlite"},
		Cache:       CacheConfig{Enabled: true, Size: 256, TTL: 5 * time.Minute},
		Logging:     LoggingConfig{Level: "info", JSON: false},
	}
}

// Validate checks the loaded configuration, wrapping failures in
// utils.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	switch c.Detector.Kind {
	case "threshold", "statistical", "composite":
	default:
		return utils.InvalidConfig("config.Validate", fmt.Sprintf("unknown detector kind %q", c.Detector.Kind))
	}
	if c.Detector.Statistical.Window < 2 {
		return utils.InvalidConfig("config.Validate", fmt.Sprintf("statistical window must be at least 2, got %d", c.Detector.Statistical.Window))
	}
	if c.Detector.Statistical.Sigma <= 0 {
		return utils.InvalidConfig("config.Validate", fmt.Sprintf("statistical sigma must be positive, got %g", c.Detector.Statistical.Sigma))
	}
	if c.Correlation.Window < 0 {
		return utils.InvalidConfig("config.Validate", fmt.Sprintf("correlation window must be non-negative, got %s", c.Correlation.Window))
	}
	if c.Storage.Enabled {
		switch strings.ToLower(c.Storage.Driver) {
		case "sqlite", "postgres", "postgresql":
		default:
			return utils.InvalidConfig("config.Validate", fmt.Sprintf("unsupported storage driver %q", c.Storage.Driver))
		}
	}
	if c.Cache.Enabled && c.Cache.Size <= 0 {
		return utils.InvalidConfig("config.Validate", fmt.Sprintf("cache size must be positive, got %d", c.Cache.Size))
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WARROOM_RCA_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("WARROOM_RCA_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("WARROOM_RCA_DETECTOR_KIND"); v != "" {
		cfg.Detector.Kind = v
	}
	if v := os.Getenv("WARROOM_RCA_STAT_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Detector.Statistical.Window = n
		}
	}
	if v := os.Getenv("WARROOM_RCA_STAT_SIGMA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Detector.Statistical.Sigma = f
		}
	}
	if v := os.Getenv("WARROOM_RCA_CORRELATION_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Correlation.Window = d
		}
	}
	if v := os.Getenv("WARROOM_RCA_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("WARROOM_RCA_STORAGE_ENABLED"); v != "" {
		cfg.Storage.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("WARROOM_RCA_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("WARROOM_RCA_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("WARROOM_RCA_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("WARROOM_RCA_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.Size = n
		}
	}
	if v := os.Getenv("WARROOM_RCA_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("WARROOM_RCA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WARROOM_RCA_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}
