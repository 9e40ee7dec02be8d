package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/quarterly/internal/output"
	"github.com/panbanda/quarterly/pkg/format"
)

func cacheCmd() *cli.Command {
	clientFlag := &cli.StringFlag{
		Name:    "client",
		Aliases: []string{"n"},
		Usage:   "Limit to one client's cached responses",
	}
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear cached PageSpeed responses",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache size and entry ages",
				Flags:  []cli.Flag{clientFlag},
				Action: runCacheStatsCmd,
			},
			{
				Name:   "clear",
				Usage:  "Delete cached entries",
				Flags:  []cli.Flag{clientFlag},
				Action: runCacheClearCmd,
			},
		},
	}
}

func runCacheStatsCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ch, err := newCache(cfg, c.String("client"))
	if err != nil {
		return err
	}
	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if !ch.Enabled() {
		formatter.Info("Cache is disabled")
		return nil
	}
	stats, err := ch.GetStats()
	if err != nil {
		return err
	}

	age := func(d time.Duration) string {
		if stats.Entries == 0 {
			return "-"
		}
		return d.Round(time.Second).String()
	}
	table := output.NewTable("Cache: "+ch.Dir(),
		[]string{"Entries", "Size", "Oldest", "Newest"},
		[][]string{{
			fmt.Sprintf("%d", stats.Entries),
			format.Bytes(stats.TotalSize),
			age(stats.OldestAge),
			age(stats.NewestAge),
		}},
		nil,
		stats,
	)
	table.Numeric = []int{0, 1}
	return formatter.Output(table)
}

func runCacheClearCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ch, err := newCache(cfg, c.String("client"))
	if err != nil {
		return err
	}
	if !ch.Enabled() {
		color.Yellow("Cache is disabled, nothing to clear")
		return nil
	}
	if err := ch.Clear(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	color.Green("Cleared %s", ch.Dir())
	return nil
}
