package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/panbanda/quarterly/pkg/analyzer/benchmark"
	"github.com/panbanda/quarterly/pkg/models"
	"github.com/panbanda/quarterly/pkg/period"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration options for quarterly.
type Config struct {
	// Change thresholds for significance and anomaly flags
	Thresholds ThresholdConfig `koanf:"thresholds" toml:"thresholds"`

	// Per-metric benchmark overrides merged onto the nonprofit defaults
	Benchmarks map[string]BenchmarkOverride `koanf:"benchmarks" toml:"benchmarks"`

	Report ReportConfig `koanf:"report" toml:"report"`

	Trend TrendConfig `koanf:"trend" toml:"trend"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`

	// Snapshot and client profile locations
	Data DataConfig `koanf:"data" toml:"data"`

	PageSpeed PageSpeedConfig `koanf:"pagespeed" toml:"pagespeed"`

	Server ServerConfig `koanf:"server" toml:"server"`
}

// ThresholdConfig defines change thresholds in percent.
type ThresholdConfig struct {
	Significant float64 `koanf:"significant" toml:"significant"`
	Anomaly     float64 `koanf:"anomaly" toml:"anomaly"`
}

// BenchmarkOverride replaces or adds one benchmark entry.
type BenchmarkOverride struct {
	Value         float64 `koanf:"value" toml:"value"`
	Unit          string  `koanf:"unit" toml:"unit"`
	LowerIsBetter bool    `koanf:"lower_is_better" toml:"lower_is_better"`
	Description   string  `koanf:"description" toml:"description"`
}

// ReportConfig controls report generation.
type ReportConfig struct {
	Comparison        string `koanf:"comparison" toml:"comparison"` // yoy, qoq
	TopKeywords       int    `koanf:"top_keywords" toml:"top_keywords"`
	TopPages          int    `koanf:"top_pages" toml:"top_pages"`
	Recommendations   int    `koanf:"recommendations" toml:"recommendations"`
	IncludePageSpeed  bool   `koanf:"include_pagespeed" toml:"include_pagespeed"`
	OutputDir         string `koanf:"output_dir" toml:"output_dir"`
	SourceConcurrency int    `koanf:"source_concurrency" toml:"source_concurrency"`
	ValidateSnapshots bool   `koanf:"validate_snapshots" toml:"validate_snapshots"`
}

// TrendConfig controls trend and anomaly detection.
type TrendConfig struct {
	Sensitivity  float64 `koanf:"sensitivity" toml:"sensitivity"`
	MinDeviation float64 `koanf:"min_deviation" toml:"min_deviation"` // 0 uses sensitivity*50
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

// DataConfig locates snapshot files and client profiles.
type DataConfig struct {
	Dir        string `koanf:"dir" toml:"dir"`
	ClientsDir string `koanf:"clients_dir" toml:"clients_dir"`
}

// PageSpeedConfig configures the PageSpeed Insights client.
type PageSpeedConfig struct {
	APIKey         string  `koanf:"api_key" toml:"api_key"`
	BaseURL        string  `koanf:"base_url" toml:"base_url"`
	RequestsPerSec float64 `koanf:"requests_per_second" toml:"requests_per_second"`
	TimeoutSeconds int     `koanf:"timeout_seconds" toml:"timeout_seconds"`
}

// ServerConfig configures the report HTTP server.
type ServerConfig struct {
	Addr string `koanf:"addr" toml:"addr"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Thresholds: ThresholdConfig{
			Significant: 10,
			Anomaly:     25,
		},
		Benchmarks: map[string]BenchmarkOverride{},
		Report: ReportConfig{
			Comparison:        string(models.ComparisonYoY),
			TopKeywords:       25,
			TopPages:          20,
			Recommendations:   5,
			IncludePageSpeed:  false,
			OutputDir:         "reports",
			SourceConcurrency: 4,
			ValidateSnapshots: true,
		},
		Trend: TrendConfig{
			Sensitivity: 2.0,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".quarterly/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
		},
		Data: DataConfig{
			Dir:        "data",
			ClientsDir: "clients",
		},
		PageSpeed: PageSpeedConfig{
			BaseURL:        "https://www.googleapis.com/pagespeedonline/v5/runPagespeed",
			RequestsPerSec: 1,
			TimeoutSeconds: 60,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// LoadResult is a loaded config and the file it came from. Source is
// empty when defaults were used.
type LoadResult struct {
	Config *Config
	Source string
}

type loadOptions struct {
	path string
	dirs []string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

// WithPath loads exactly this file instead of searching.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithSearchDirs overrides the directories searched for a config file.
func WithSearchDirs(dirs ...string) LoadOption {
	return func(o *loadOptions) {
		o.dirs = dirs
	}
}

var configNames = []string{
	"quarterly.toml",
	"quarterly.yaml",
	"quarterly.yml",
	"quarterly.json",
	".quarterly.toml",
	".quarterly.yaml",
	".quarterly.yml",
	".quarterly.json",
}

// LoadConfig loads an explicit file or the first config found in the
// search directories. Unlike LoadOrDefault, a file that exists but fails
// to parse or validate is an error.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := &loadOptions{dirs: []string{".", ".quarterly"}}
	for _, opt := range opts {
		opt(o)
	}

	if o.path != "" {
		cfg, err := Load(o.path)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Config: cfg, Source: o.path}, nil
	}

	for _, dir := range o.dirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				return nil, err
			}
			return &LoadResult{Config: cfg, Source: path}, nil
		}
	}

	return &LoadResult{Config: DefaultConfig()}, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	result, err := LoadConfig()
	if err != nil {
		return DefaultConfig()
	}
	return result.Config
}

var outputFormats = map[string]bool{
	"text":     true,
	"markdown": true,
	"json":     true,
	"toon":     true,
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Thresholds.Significant <= 0:
		return fmt.Errorf("%w: thresholds.significant must be positive, got %g", ErrInvalidConfig, c.Thresholds.Significant)
	case c.Thresholds.Anomaly < c.Thresholds.Significant:
		return fmt.Errorf("%w: thresholds.anomaly (%g) must be >= thresholds.significant (%g)",
			ErrInvalidConfig, c.Thresholds.Anomaly, c.Thresholds.Significant)
	case c.Trend.Sensitivity <= 0:
		return fmt.Errorf("%w: trend.sensitivity must be positive, got %g", ErrInvalidConfig, c.Trend.Sensitivity)
	case c.Trend.MinDeviation < 0:
		return fmt.Errorf("%w: trend.min_deviation must not be negative", ErrInvalidConfig)
	case !outputFormats[c.Output.Format]:
		return fmt.Errorf("%w: unknown output.format %q", ErrInvalidConfig, c.Output.Format)
	case c.Report.TopKeywords < 0 || c.Report.TopPages < 0:
		return fmt.Errorf("%w: report limits must not be negative", ErrInvalidConfig)
	case c.PageSpeed.RequestsPerSec <= 0:
		return fmt.Errorf("%w: pagespeed.requests_per_second must be positive", ErrInvalidConfig)
	}
	if _, err := period.ParseComparison(c.Report.Comparison); err != nil {
		return fmt.Errorf("%w: report.comparison: %v", ErrInvalidConfig, err)
	}
	for name, b := range c.Benchmarks {
		if b.Value < 0 {
			return fmt.Errorf("%w: benchmark %q has negative value", ErrInvalidConfig, name)
		}
	}
	return nil
}

// BenchmarkTable returns the default nonprofit table with overrides applied.
func (c *Config) BenchmarkTable() benchmark.Table {
	overrides := make(benchmark.Table, len(c.Benchmarks))
	for name, b := range c.Benchmarks {
		overrides[name] = models.Benchmark{
			Value:         b.Value,
			Unit:          b.Unit,
			LowerIsBetter: b.LowerIsBetter,
			Description:   b.Description,
		}
	}
	return benchmark.DefaultTable().Merge(overrides)
}

// Comparison returns the configured default comparison mode.
func (c *Config) Comparison() models.ComparisonType {
	ct, err := period.ParseComparison(c.Report.Comparison)
	if err != nil {
		return models.ComparisonYoY
	}
	return ct
}
