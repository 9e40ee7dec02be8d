package main

import (
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/quarterly/internal/mcpserver"
	"github.com/panbanda/quarterly/internal/report"
	"github.com/panbanda/quarterly/internal/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve reports over HTTP",
		Description: `Generates reports on request from the snapshot directory.

Routes:
  GET /?client=NAME&quarter=Q3&year=2024       HTML report
  GET /api/report?client=NAME                  JSON report (last completed quarter)
  GET /api/insights?client=NAME&comparison=qoq Benchmarks and insights only
  GET /api/clients                             Client profiles
  GET /api/clients/NAME                        One client profile
  GET /healthz`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Listen address (default from config)",
				EnvVars: []string{"QUARTERLY_ADDR"},
			},
			&cli.StringFlag{
				Name:    "pagespeed-key",
				Usage:   "PageSpeed Insights API key; enables performance sections",
				EnvVars: []string{mcpserver.PageSpeedKeyEnv},
			},
		},
		Action: runServeCmd,
	}
}

func runServeCmd(c *cli.Context) error {
	ctx := commandContext(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	var perf report.PerformanceSource
	ps, err := newPageSpeed(cfg, c.String("pagespeed-key"), "")
	if err != nil {
		return err
	}
	if ps != nil {
		perf = ps
	}

	addr := c.String("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}

	logger := zerolog.Ctx(ctx).Level(zerolog.InfoLevel)
	if cfg.Output.Verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}
	api := server.NewWebAPI(logger, server.Config{
		Addr: addr,
		Dependencies: server.Dependencies{
			Reporter:   report.New(store, generatorOptions(cfg, perf)...),
			ClientsDir: cfg.Data.ClientsDir,
		},
	})

	logger.Info().Str("addr", addr).Str("data_dir", cfg.Data.Dir).Msg("serving reports")
	return api.Start(logger.WithContext(ctx))
}
