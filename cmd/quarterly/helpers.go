package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/quarterly/internal/cache"
	"github.com/panbanda/quarterly/internal/output"
	"github.com/panbanda/quarterly/internal/pagespeed"
	"github.com/panbanda/quarterly/internal/report"
	"github.com/panbanda/quarterly/internal/snapshot"
	"github.com/panbanda/quarterly/pkg/config"
	"github.com/panbanda/quarterly/pkg/models"
	"github.com/panbanda/quarterly/pkg/period"
)

const (
	metaConfig = "config"
	metaLogger = "logger"
)

// setup builds the logger shared by every command.
func setup(c *cli.Context) error {
	if c.Bool("no-color") {
		color.NoColor = true
	}

	level := zerolog.WarnLevel
	if c.Bool("verbose") {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen, NoColor: color.NoColor}).
		Level(level).
		With().Timestamp().
		Logger()
	c.App.Metadata[metaLogger] = logger
	return nil
}

// commandContext returns the command context carrying the logger.
func commandContext(c *cli.Context) context.Context {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if logger, ok := c.App.Metadata[metaLogger].(zerolog.Logger); ok {
		return logger.WithContext(ctx)
	}
	return ctx
}

// loadConfig loads the config once per run and applies global flag
// overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.Config); ok {
		return cfg, nil
	}

	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	result, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, err
	}

	cfg := result.Config
	if dir := c.String("data-dir"); dir != "" {
		cfg.Data.Dir = dir
	}
	if dir := c.String("clients-dir"); dir != "" {
		cfg.Data.ClientsDir = dir
	}
	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}
	if c.Bool("verbose") {
		cfg.Output.Verbose = true
	}
	if result.Source != "" {
		zerolog.Ctx(commandContext(c)).Debug().Str("path", result.Source).Msg("loaded config")
	}

	c.App.Metadata[metaConfig] = cfg
	return cfg, nil
}

// newFormatter creates the output formatter from the global flags.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	name := c.String("format")
	if name == "" {
		name = cfg.Output.Format
	}
	colored := cfg.Output.Color && !color.NoColor
	return output.NewFormatter(output.ParseFormat(name), c.String("output"), colored)
}

// newStore opens the snapshot store, validating documents when enabled.
func newStore(cfg *config.Config) (*snapshot.Store, error) {
	var opts []snapshot.Option
	if cfg.Report.ValidateSnapshots {
		v, err := snapshot.NewValidator()
		if err != nil {
			return nil, err
		}
		opts = append(opts, snapshot.WithValidator(v))
	}
	return snapshot.NewStore(cfg.Data.Dir, opts...), nil
}

// newCache opens the response cache, optionally scoped to one client.
func newCache(cfg *config.Config, client string) (*cache.Cache, error) {
	ch, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled)
	if err != nil {
		return nil, err
	}
	if client == "" {
		return ch, nil
	}
	return ch.Namespace(client)
}

// newPageSpeed returns a PageSpeed client, or nil when no API key is set.
func newPageSpeed(cfg *config.Config, key, client string) (*pagespeed.Client, error) {
	if key == "" {
		key = cfg.PageSpeed.APIKey
	}
	if key == "" {
		return nil, nil
	}
	ch, err := newCache(cfg, client)
	if err != nil {
		return nil, err
	}
	return pagespeed.New(
		pagespeed.WithAPIKey(key),
		pagespeed.WithBaseURL(cfg.PageSpeed.BaseURL),
		pagespeed.WithTimeout(time.Duration(cfg.PageSpeed.TimeoutSeconds)*time.Second),
		pagespeed.WithRateLimit(cfg.PageSpeed.RequestsPerSec),
		pagespeed.WithCache(ch),
	), nil
}

// loadClient reads a client profile, falling back to defaults when none
// exists.
func loadClient(ctx context.Context, cfg *config.Config, name string) (*config.ClientConfig, error) {
	client, err := config.LoadClient(cfg.Data.ClientsDir, name)
	if errors.Is(err, config.ErrClientNotFound) {
		zerolog.Ctx(ctx).Warn().Str("client", name).Msg("no client profile, using defaults")
		return config.NewClientConfig(name), nil
	}
	return client, err
}

// quarterArgs parses optional "Q YEAR" positional arguments. Without
// arguments it returns the last completed quarter.
func quarterArgs(c *cli.Context, now time.Time) (period.Quarter, int, error) {
	switch c.Args().Len() {
	case 0:
		q, year := period.LastCompleted(now)
		return q, year, nil
	case 2:
		q, err := period.ParseQuarter(c.Args().Get(0))
		if err != nil {
			return 0, 0, err
		}
		year, err := strconv.Atoi(c.Args().Get(1))
		if err != nil || year < 1 {
			return 0, 0, fmt.Errorf("invalid year %q", c.Args().Get(1))
		}
		return q, year, nil
	default:
		return 0, 0, fmt.Errorf("expected QUARTER YEAR, got %d arguments", c.Args().Len())
	}
}

// comparisonFlag parses --comparison, defaulting to the configured mode.
func comparisonFlag(c *cli.Context, cfg *config.Config) (models.ComparisonType, error) {
	if s := c.String("comparison"); s != "" {
		return period.ParseComparison(s)
	}
	return cfg.Comparison(), nil
}

// generatorOptions maps config and flags onto report generator options.
func generatorOptions(cfg *config.Config, perf report.PerformanceSource) []report.Option {
	opts := append(report.FromConfig(cfg), report.WithVersion(version))
	if perf != nil {
		opts = append(opts, report.WithPerformance(perf))
	}
	return opts
}
