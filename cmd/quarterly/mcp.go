package main

import (
	"github.com/urfave/cli/v2"

	"github.com/panbanda/quarterly/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes the report
calculations as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "quarterly": {
        "command": "quarterly",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - resolve_periods     Date ranges for a quarter and comparison mode
  - calculate_change    Percent change, direction and significance
  - compare_benchmarks  Metrics against nonprofit benchmarks
  - generate_insights   Plain-language findings from snapshot data
  - list_clients        Configured client profiles
  - analyze_report      Full quarterly report from stored snapshots`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP registry manifest (server.json)",
				Action: runMCPManifestCmd,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	server := mcpserver.NewServer(version,
		mcpserver.WithConfig(cfg),
		mcpserver.WithSource(store),
		mcpserver.WithClientsDir(cfg.Data.ClientsDir),
	)
	return server.Run(commandContext(c))
}

func runMCPManifestCmd(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(append(data, '\n'))
	return err
}
