package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/quarterly/internal/mcpserver"
	"github.com/panbanda/quarterly/internal/output"
	"github.com/panbanda/quarterly/internal/progress"
	"github.com/panbanda/quarterly/internal/report"
)

var exportModes = map[string]bool{"all": true, "json": true, "html": true, "none": true}

func generateCmd() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Aliases:   []string{"gen"},
		Usage:     "Generate a quarterly report for a client",
		ArgsUsage: "[QUARTER YEAR]",
		Description: `Builds the report for QUARTER YEAR (default: the last completed quarter),
prints a summary, and exports JSON and HTML files.

Examples:
  quarterly generate Q3 2024 --client hope_house
  quarterly generate Q1 2025 --client hope_house --comparison qoq --export html
  quarterly -f markdown generate Q2 2025 --client river_trust --export none`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "client",
				Aliases:  []string{"n"},
				Usage:    "Client name",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "comparison",
				Usage: "Comparison mode: yoy or qoq (default from config)",
			},
			&cli.StringFlag{
				Name:  "export",
				Value: "all",
				Usage: "Files to write: all, json, html, none",
			},
			&cli.StringFlag{
				Name:  "output-dir",
				Usage: "Directory for exported files (default from config)",
			},
			&cli.BoolFlag{
				Name:  "pagespeed",
				Usage: "Include a PageSpeed audit of the client's site",
			},
			&cli.StringFlag{
				Name:    "pagespeed-key",
				Usage:   "PageSpeed Insights API key",
				EnvVars: []string{mcpserver.PageSpeedKeyEnv},
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Hide the progress bar",
			},
		},
		Action: runGenerateCmd,
	}
}

func runGenerateCmd(c *cli.Context) error {
	ctx := commandContext(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	export := c.String("export")
	if !exportModes[export] {
		return fmt.Errorf("invalid --export %q (use all, json, html or none)", export)
	}
	q, year, err := quarterArgs(c, time.Now())
	if err != nil {
		return err
	}
	mode, err := comparisonFlag(c, cfg)
	if err != nil {
		return err
	}
	client, err := loadClient(ctx, cfg, c.String("client"))
	if err != nil {
		return err
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	var perf report.PerformanceSource
	if c.Bool("pagespeed") || cfg.Report.IncludePageSpeed {
		ps, err := newPageSpeed(cfg, c.String("pagespeed-key"), client.Name)
		if err != nil {
			return err
		}
		if ps == nil {
			return fmt.Errorf("pagespeed requested but no API key set (use --pagespeed-key or %s)", mcpserver.PageSpeedKeyEnv)
		}
		perf = ps
	}

	var tracker *progress.Tracker
	opts := generatorOptions(cfg, perf)
	opts = append(opts, report.WithProgress(func() { tracker.Tick() }))
	gen := report.New(store, opts...)
	if !c.Bool("no-progress") {
		tracker = progress.NewTracker(fmt.Sprintf("Loading %s %d", q, year), gen.SourceCount(client))
	}

	r, err := gen.Generate(ctx, report.Request{Client: client, Quarter: q, Year: year, Comparison: mode})
	if err != nil {
		tracker.FinishError(err)
		return err
	}
	tracker.FinishPartial(r.Metadata.MissingSources)

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Output(report.NewSummary(r)); err != nil {
		return err
	}
	return exportReport(c, cfg.Report.OutputDir, export, r, report.ClientTheme(client))
}

func exportReport(c *cli.Context, defaultDir, mode string, r *report.Report, theme report.Theme) error {
	dir := c.String("output-dir")
	if dir == "" {
		dir = defaultDir
	}

	var saved []string
	if mode == "all" || mode == "json" {
		path, err := report.SaveJSON(dir, r)
		if err != nil {
			return fmt.Errorf("export json: %w", err)
		}
		saved = append(saved, path)
	}
	if mode == "all" || mode == "html" {
		renderer, err := report.NewRenderer(report.WithTheme(theme))
		if err != nil {
			return err
		}
		path, err := report.SaveHTML(dir, r, renderer)
		if err != nil {
			return fmt.Errorf("export html: %w", err)
		}
		saved = append(saved, path)
	}

	// Status lines go to stderr.
	status := output.NewWriterFormatter(output.FormatText, c.App.ErrWriter, !color.NoColor)
	for _, path := range saved {
		status.Success("Saved %s", path)
	}
	return nil
}
