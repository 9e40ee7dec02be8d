package main

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/quarterly/internal/output"
	"github.com/panbanda/quarterly/pkg/config"
	"github.com/panbanda/quarterly/pkg/period"
)

var (
	clientNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	hexColorPattern   = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

func clientsCmd() *cli.Command {
	return &cli.Command{
		Name:  "clients",
		Usage: "Manage client profiles",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List client profiles and the snapshot periods on disk",
				Action: runClientsListCmd,
			},
			{
				Name:      "setup",
				Usage:     "Create or update a client profile",
				ArgsUsage: "NAME",
				Description: `Writes <clients-dir>/NAME.yaml. Unset flags keep existing values, or the
defaults for a new profile.

Examples:
  quarterly clients setup hope_house --display-name "Hope House" --site https://hopehouse.org
  quarterly clients setup hope_house --primary-color "#1D4ED8"`,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "display-name", Usage: "Organization name shown in reports"},
					&cli.StringFlag{Name: "site", Usage: "Search console site URL, also used for PageSpeed"},
					&cli.StringFlag{Name: "ga4-property", Usage: "Analytics property ID"},
					&cli.StringFlag{Name: "credentials", Usage: "Path to service account credentials"},
					&cli.StringFlag{Name: "primary-color", Usage: "Brand color as #RRGGBB"},
					&cli.StringFlag{Name: "secondary-color", Usage: "Secondary brand color as #RRGGBB"},
					&cli.StringFlag{Name: "timezone", Usage: "IANA timezone, e.g. America/Chicago"},
					&cli.StringSliceFlag{Name: "homepage", Usage: "Homepage path (repeatable)"},
					&cli.StringSliceFlag{Name: "exclude", Usage: "Excluded path prefix (repeatable)"},
				},
				Action: runClientsSetupCmd,
			},
		},
	}
}

func runClientsListCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	names, err := config.ListClients(cfg.Data.ClientsDir)
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if len(names) == 0 {
		formatter.Warning("No client profiles in %s", cfg.Data.ClientsDir)
		return nil
	}

	type clientRow struct {
		Name        string   `json:"name"`
		DisplayName string   `json:"display_name"`
		Site        string   `json:"site,omitempty"`
		Periods     []string `json:"periods"`
	}
	var data []clientRow
	var rows [][]string
	for _, name := range names {
		client, err := config.LoadClient(cfg.Data.ClientsDir, name)
		if err != nil {
			return err
		}
		periods, err := store.Periods(name)
		if err != nil {
			return err
		}
		labels := make([]string, 0, len(periods))
		for _, p := range periods {
			q, year := period.QuarterOf(p.Start)
			labels = append(labels, fmt.Sprintf("%s %d", q, year))
		}
		data = append(data, clientRow{Name: name, DisplayName: client.Title(), Site: client.GSCSiteURL, Periods: labels})
		rows = append(rows, []string{name, client.Title(), client.GSCSiteURL, fmt.Sprintf("%d", len(periods))})
	}

	table := output.NewTable("Clients",
		[]string{"Name", "Display Name", "Site", "Periods"},
		rows,
		[]string{fmt.Sprintf("%d clients", len(names)), "", "", ""},
		data,
	)
	table.Numeric = []int{3}
	return formatter.Output(table)
}

func runClientsSetupCmd(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("expected exactly one client NAME")
	}
	name := c.Args().First()
	if !clientNamePattern.MatchString(name) {
		return fmt.Errorf("invalid client name %q (use lowercase letters, digits, - and _)", name)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	client, err := config.LoadClient(cfg.Data.ClientsDir, name)
	created := errors.Is(err, config.ErrClientNotFound)
	if created {
		client = config.NewClientConfig(name)
	} else if err != nil {
		return err
	}

	for flag, dst := range map[string]*string{
		"display-name":    &client.DisplayName,
		"site":            &client.GSCSiteURL,
		"ga4-property":    &client.GA4PropertyID,
		"credentials":     &client.CredentialsFile,
		"primary-color":   &client.PrimaryColor,
		"secondary-color": &client.SecondaryColor,
		"timezone":        &client.Timezone,
	} {
		if c.IsSet(flag) {
			*dst = c.String(flag)
		}
	}
	if c.IsSet("homepage") {
		client.HomepagePaths = c.StringSlice("homepage")
	}
	if c.IsSet("exclude") {
		client.ExcludePaths = c.StringSlice("exclude")
	}

	for _, hex := range []string{client.PrimaryColor, client.SecondaryColor} {
		if !hexColorPattern.MatchString(hex) {
			return fmt.Errorf("invalid color %q (expected #RRGGBB)", hex)
		}
	}

	path, err := config.SaveClient(cfg.Data.ClientsDir, client)
	if err != nil {
		return err
	}
	if created {
		color.Green("Created %s", path)
	} else {
		color.Green("Updated %s", path)
	}
	return nil
}
