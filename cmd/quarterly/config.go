package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/quarterly/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "Write a config file with the default settings",
				ArgsUsage: "[PATH]",
				Description: `Creates PATH (default quarterly.toml) with every setting at its default.

Examples:
  quarterly config init                           # Creates quarterly.toml
  quarterly config init .quarterly/quarterly.toml
  quarterly config init --force                   # Overwrite an existing file`,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "Overwrite existing config file"},
				},
				Action: runConfigInitCmd,
			},
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Description: `Shows the merged configuration from defaults and config file.

Examples:
  quarterly config show
  quarterly -c quarterly.toml config show`,
				Action: runConfigShowCmd,
			},
			{
				Name:  "validate",
				Usage: "Validate a configuration file",
				Description: `Checks a config file for syntax errors and invalid values.

Examples:
  quarterly config validate                   # Validates default config locations
  quarterly -c quarterly.toml config validate`,
				Action: runConfigValidateCmd,
			},
		},
	}
}

func runConfigInitCmd(c *cli.Context) error {
	path := "quarterly.toml"
	if c.Args().Len() > 0 {
		path = c.Args().First()
	}

	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	content, err := defaultConfigTOML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	color.Green("Created %s", path)
	fmt.Fprintln(c.App.Writer, "Edit this file to adjust thresholds, benchmarks and output.")
	return nil
}

func defaultConfigTOML() (string, error) {
	content, err := toml.Marshal(config.DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("failed to marshal config to TOML: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# Quarterly report configuration\n")
	buf.WriteString("# Benchmark overrides go under [benchmarks.<metric>] with value, unit,\n")
	buf.WriteString("# lower_is_better and description.\n\n")
	buf.Write(content)
	return buf.String(), nil
}

func configLoadOptions(c *cli.Context) []config.LoadOption {
	if path := c.String("config"); path != "" {
		return []config.LoadOption{config.WithPath(path)}
	}
	return nil
}

func runConfigShowCmd(c *cli.Context) error {
	result, err := config.LoadConfig(configLoadOptions(c)...)
	if err != nil {
		return err
	}

	w := c.App.Writer
	if result.Source != "" {
		fmt.Fprintf(w, "# Configuration from: %s\n\n", result.Source)
	} else {
		fmt.Fprintln(w, "# Default configuration (no config file found)")
	}

	content, err := toml.Marshal(result.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = w.Write(content)
	return err
}

func runConfigValidateCmd(c *cli.Context) error {
	result, err := config.LoadConfig(configLoadOptions(c)...)
	if err != nil {
		color.Red("Configuration validation failed:")
		fmt.Fprintf(c.App.ErrWriter, "  - %s\n", err)
		return err
	}

	if result.Source != "" {
		color.Green("Configuration valid: %s", result.Source)
	} else {
		color.Yellow("No config file found. Default configuration is valid.")
	}
	return nil
}
