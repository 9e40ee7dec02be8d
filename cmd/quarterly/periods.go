package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/quarterly/internal/output"
	"github.com/panbanda/quarterly/internal/report"
	"github.com/panbanda/quarterly/pkg/analyzer/benchmark"
	"github.com/panbanda/quarterly/pkg/format"
	"github.com/panbanda/quarterly/pkg/models"
	"github.com/panbanda/quarterly/pkg/period"
)

func periodsCmd() *cli.Command {
	return &cli.Command{
		Name:      "periods",
		Usage:     "Show the date ranges a report compares",
		ArgsUsage: "[QUARTER YEAR]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "comparison",
				Usage: "Comparison mode: yoy or qoq (default from config)",
			},
		},
		Action: runPeriodsCmd,
	}
}

func runPeriodsCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	q, year, err := quarterArgs(c, time.Now())
	if err != nil {
		return err
	}
	mode, err := comparisonFlag(c, cfg)
	if err != nil {
		return err
	}

	periods, err := period.Resolve(q, year, mode)
	if err != nil {
		return err
	}
	months, err := period.Months(q, year)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	row := func(name string, p models.DatePeriod) []string {
		return []string{name, p.Label, p.StartDate(), p.EndDate(), fmt.Sprintf("%d", p.Days())}
	}
	rows := [][]string{
		row("Current", periods.Current),
		row("Previous", periods.Previous),
	}
	for _, m := range months {
		rows = append(rows, row("Month", m))
	}

	table := output.NewTable(
		fmt.Sprintf("%s %d, %s", q, year, periods.Type.Label()),
		[]string{"Period", "Label", "Start", "End", "Days"},
		rows,
		nil,
		struct {
			models.ComparisonPeriods
			Months []models.DatePeriod `json:"months"`
		}{periods, months},
	)
	table.Numeric = []int{4}
	return formatter.Output(table)
}

func benchmarksCmd() *cli.Command {
	return &cli.Command{
		Name:  "benchmarks",
		Usage: "List nonprofit benchmarks, or compare a saved report against them",
		Description: `Without --report, lists the benchmark table (defaults merged with any
[benchmarks] overrides from the config file).

With --report, loads a JSON report written by "generate" and shows how its
metrics compare.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "report",
				Usage: "Path to a saved JSON report",
			},
		},
		Action: runBenchmarksCmd,
	}
}

func runBenchmarksCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	table := cfg.BenchmarkTable()
	if path := c.String("report"); path != "" {
		r, err := report.LoadJSON(path)
		if err != nil {
			return err
		}
		cmp := benchmark.New(benchmark.WithTable(table))
		comparisons := cmp.AnalyzeAll(report.BenchmarkMetrics(r.GA4, r.GSC))
		return formatter.Output(comparisonTable(r, comparisons, formatter.Colored()))
	}
	return formatter.Output(benchmarkListTable(table))
}

func benchmarkListTable(table benchmark.Table) *output.Table {
	names := table.Names()
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		b := table[name]
		better := "higher"
		if b.LowerIsBetter {
			better = "lower"
		}
		rows = append(rows, []string{name, format.Decimal(b.Value, 1), b.Unit, better, b.Description})
	}
	t := output.NewTable("Nonprofit Benchmarks",
		[]string{"Metric", "Value", "Unit", "Better", "Description"},
		rows,
		[]string{fmt.Sprintf("%d benchmarks", len(names)), "", "", "", ""},
		table,
	)
	t.Numeric = []int{1}
	return t
}

func comparisonTable(r *report.Report, comparisons map[string]models.BenchmarkComparison, colored bool) *output.Table {
	names := make([]string, 0, len(comparisons))
	for name := range comparisons {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		cmp := comparisons[name]
		outcome := strings.ReplaceAll(string(cmp.Outcome()), "_", " ")
		if colored {
			outcome = output.StatusColor(string(cmp.Outcome()), outcome)
		}
		rows = append(rows, []string{
			name,
			format.Decimal(cmp.CurrentValue, 1),
			format.Decimal(cmp.BenchmarkValue, 1),
			format.SignedPercent(cmp.DifferencePct),
			outcome,
		})
	}

	summary := benchmark.Summarize(comparisons)
	t := output.NewTable(
		fmt.Sprintf("%s %s %d vs Benchmarks", r.Metadata.ClientDisplayName, r.Metadata.Quarter, r.Metadata.Year),
		[]string{"Metric", "Yours", "Benchmark", "Difference", "Result"},
		rows,
		[]string{
			fmt.Sprintf("%d compared", summary.TotalCompared), "", "", "",
			fmt.Sprintf("%d ahead, %d behind", summary.OutperformingCount, summary.UnderperformingCount),
		},
		map[string]any{"comparisons": comparisons, "summary": summary},
	)
	t.Numeric = []int{1, 2, 3}
	return t
}
