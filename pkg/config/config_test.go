package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml"

	"github.com/panbanda/quarterly/pkg/models"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}
	if cfg.Thresholds.Significant != 10 {
		t.Errorf("Thresholds.Significant = %v, want 10", cfg.Thresholds.Significant)
	}
	if cfg.Thresholds.Anomaly != 25 {
		t.Errorf("Thresholds.Anomaly = %v, want 25", cfg.Thresholds.Anomaly)
	}
	if cfg.Report.TopKeywords != 25 {
		t.Errorf("Report.TopKeywords = %d, want 25", cfg.Report.TopKeywords)
	}
	if cfg.Report.TopPages != 20 {
		t.Errorf("Report.TopPages = %d, want 20", cfg.Report.TopPages)
	}
	if cfg.Trend.Sensitivity != 2.0 {
		t.Errorf("Trend.Sensitivity = %v, want 2.0", cfg.Trend.Sensitivity)
	}
	if !cfg.Cache.Enabled {
		t.Error("Cache.Enabled should be true by default")
	}
	if cfg.Cache.TTL != 24 {
		t.Errorf("Cache.TTL = %d, want 24", cfg.Cache.TTL)
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Output.Format = %s, want text", cfg.Output.Format)
	}
	if cfg.Comparison() != models.ComparisonYoY {
		t.Errorf("Comparison() = %s, want yoy", cfg.Comparison())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "quarterly.toml")

	content := `
[thresholds]
significant = 15.0
anomaly = 40.0

[report]
comparison = "qoq"
top_keywords = 10

[benchmarks.bounce_rate]
value = 50.0
unit = "%"
lower_is_better = true

[output]
format = "json"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Thresholds.Significant != 15 {
		t.Errorf("Thresholds.Significant = %v, want 15", cfg.Thresholds.Significant)
	}
	if cfg.Thresholds.Anomaly != 40 {
		t.Errorf("Thresholds.Anomaly = %v, want 40", cfg.Thresholds.Anomaly)
	}
	if cfg.Comparison() != models.ComparisonQoQ {
		t.Errorf("Comparison() = %s, want qoq", cfg.Comparison())
	}
	if cfg.Report.TopKeywords != 10 {
		t.Errorf("Report.TopKeywords = %d, want 10", cfg.Report.TopKeywords)
	}
	// Unset keys keep defaults
	if cfg.Report.TopPages != 20 {
		t.Errorf("Report.TopPages = %d, want default 20", cfg.Report.TopPages)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %s, want json", cfg.Output.Format)
	}

	table := cfg.BenchmarkTable()
	if got := table["bounce_rate"].Value; got != 50 {
		t.Errorf("bounce_rate benchmark = %v, want 50", got)
	}
	if !table["bounce_rate"].LowerIsBetter {
		t.Error("bounce_rate override should keep lower_is_better")
	}
	if got := table["organic_traffic_share"].Value; got != 40 {
		t.Errorf("organic_traffic_share = %v, want default 40", got)
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "quarterly.yaml")

	content := `
thresholds:
  significant: 5
  anomaly: 20

trend:
  sensitivity: 3

benchmarks:
  donation_conversion:
    value: 1.5
    unit: "%"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Thresholds.Significant != 5 {
		t.Errorf("Thresholds.Significant = %v, want 5", cfg.Thresholds.Significant)
	}
	if cfg.Trend.Sensitivity != 3 {
		t.Errorf("Trend.Sensitivity = %v, want 3", cfg.Trend.Sensitivity)
	}

	table := cfg.BenchmarkTable()
	if _, ok := table["donation_conversion"]; !ok {
		t.Error("custom benchmark should be added to the table")
	}
	if len(table) != 13 {
		t.Errorf("len(table) = %d, want 13", len(table))
	}
}

func TestLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "quarterly.json")

	content := `{
  "data": {"dir": "snapshots"},
  "pagespeed": {"api_key": "abc", "requests_per_second": 2}
}`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Data.Dir != "snapshots" {
		t.Errorf("Data.Dir = %s, want snapshots", cfg.Data.Dir)
	}
	if cfg.PageSpeed.APIKey != "abc" {
		t.Errorf("PageSpeed.APIKey = %s, want abc", cfg.PageSpeed.APIKey)
	}
	if cfg.PageSpeed.RequestsPerSec != 2 {
		t.Errorf("PageSpeed.RequestsPerSec = %v, want 2", cfg.PageSpeed.RequestsPerSec)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/quarterly.toml")
	if err == nil {
		t.Error("Load() should return error for non-existent file")
	}
}

func TestLoadInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "quarterly.toml")

	content := `[thresholds
invalid toml`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() should return error for invalid config")
	}
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "quarterly.toml")

	content := `
[thresholds]
significant = 30.0
anomaly = 20.0
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero significant", func(c *Config) { c.Thresholds.Significant = 0 }},
		{"anomaly below significant", func(c *Config) { c.Thresholds.Anomaly = 5 }},
		{"zero sensitivity", func(c *Config) { c.Trend.Sensitivity = 0 }},
		{"negative min deviation", func(c *Config) { c.Trend.MinDeviation = -1 }},
		{"unknown format", func(c *Config) { c.Output.Format = "xml" }},
		{"negative top pages", func(c *Config) { c.Report.TopPages = -1 }},
		{"unknown comparison", func(c *Config) { c.Report.Comparison = "mom" }},
		{"zero rate", func(c *Config) { c.PageSpeed.RequestsPerSec = 0 }},
		{"negative benchmark", func(c *Config) {
			c.Benchmarks["bounce_rate"] = BenchmarkOverride{Value: -1}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Thresholds.Anomaly = cfg.Thresholds.Significant
	if err := cfg.Validate(); err != nil {
		t.Errorf("equal thresholds should validate: %v", err)
	}
}

func TestLoadConfigSearch(t *testing.T) {
	tmpDir := t.TempDir()
	hidden := filepath.Join(tmpDir, ".quarterly")
	if err := os.MkdirAll(hidden, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "[report]\ntop_pages = 7\n"
	if err := os.WriteFile(filepath.Join(hidden, "quarterly.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := LoadConfig(WithSearchDirs(tmpDir, hidden))
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if result.Source != filepath.Join(hidden, "quarterly.toml") {
		t.Errorf("Source = %q", result.Source)
	}
	if result.Config.Report.TopPages != 7 {
		t.Errorf("TopPages = %d, want 7", result.Config.Report.TopPages)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	result, err := LoadConfig(WithSearchDirs(t.TempDir()))
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if result.Source != "" {
		t.Errorf("Source = %q, want empty", result.Source)
	}
	if result.Config.Report.TopPages != 20 {
		t.Errorf("TopPages = %d, want 20", result.Config.Report.TopPages)
	}
}

func TestLoadConfigExplicitPathError(t *testing.T) {
	if _, err := LoadConfig(WithPath("/nonexistent/quarterly.toml")); err == nil {
		t.Error("LoadConfig() should fail for a missing explicit path")
	}
}

func TestLoadOrDefault(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd)

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}

	cfg := LoadOrDefault()
	if cfg == nil {
		t.Fatal("LoadOrDefault() returned nil")
	}
	if cfg.Thresholds.Significant != 10 {
		t.Errorf("LoadOrDefault() returned non-default Significant: %v", cfg.Thresholds.Significant)
	}
}

func TestLoadOrDefaultWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd)

	content := "[report]\ntop_keywords = 99\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "quarterly.toml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}

	cfg := LoadOrDefault()
	if cfg.Report.TopKeywords != 99 {
		t.Errorf("LoadOrDefault() should load from file, got TopKeywords=%d", cfg.Report.TopKeywords)
	}
}

func TestDefaultConfigRoundTripsThroughTOML(t *testing.T) {
	content, err := toml.Marshal(DefaultConfig())
	if err != nil {
		t.Fatalf("toml.Marshal() error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "quarterly.toml")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of generated config error: %v", err)
	}
	if cfg.Cache.Dir != ".quarterly/cache" {
		t.Errorf("Cache.Dir = %s", cfg.Cache.Dir)
	}
}
