package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func newApp() *cli.App {
	return &cli.App{
		Name:     "quarterly",
		Usage:    "Quarterly website analytics reports for nonprofits",
		Version:  version,
		Metadata: make(map[string]interface{}),
		Description: `Quarterly compares a client's web analytics and search data for a
quarter against the same quarter last year (or the previous quarter),
checks the results against nonprofit benchmarks, and writes a report with
plain-language insights and recommendations.

Snapshots are read from <data-dir>/<client>/<start>_<end>/{ga4,gsc}.json.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"QUARTERLY_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon (default from config)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Snapshot directory (overrides data.dir)",
				EnvVars: []string{"QUARTERLY_DATA_DIR"},
			},
			&cli.StringFlag{
				Name:    "clients-dir",
				Usage:   "Client profile directory (overrides data.clients_dir)",
				EnvVars: []string{"QUARTERLY_CLIENTS_DIR"},
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable caching",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			generateCmd(),
			periodsCmd(),
			benchmarksCmd(),
			clientsCmd(),
			cacheCmd(),
			configCmd(),
			serveCmd(),
			mcpCmd(),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		color.Red("Error: %v", err)
		stop()
		os.Exit(1)
	}
}
