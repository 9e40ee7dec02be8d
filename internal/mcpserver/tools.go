package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/panbanda/quarterly/internal/output"
	"github.com/panbanda/quarterly/internal/report"
	"github.com/panbanda/quarterly/pkg/analyzer/benchmark"
	"github.com/panbanda/quarterly/pkg/analyzer/change"
	"github.com/panbanda/quarterly/pkg/analyzer/insights"
	"github.com/panbanda/quarterly/pkg/config"
	"github.com/panbanda/quarterly/pkg/models"
	"github.com/panbanda/quarterly/pkg/period"
)

// FormatInput selects how a tool result is encoded.
type FormatInput struct {
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// PeriodInput identifies a reporting quarter.
type PeriodInput struct {
	FormatInput
	Quarter    string `json:"quarter" jsonschema:"Quarter to report on: Q1, Q2, Q3 or Q4."`
	Year       int    `json:"year" jsonschema:"Four digit year of the quarter."`
	Comparison string `json:"comparison,omitempty" jsonschema:"Comparison mode: yoy (same quarter last year, default) or qoq (previous quarter)."`
}

// ChangeInput is a single period-over-period comparison.
type ChangeInput struct {
	FormatInput
	Current     float64 `json:"current" jsonschema:"Value for the current period."`
	Previous    float64 `json:"previous" jsonschema:"Value for the previous period."`
	Inverse     bool    `json:"inverse,omitempty" jsonschema:"Set for metrics where lower is better, such as bounce rate or search position."`
	Significant float64 `json:"significant_threshold,omitempty" jsonschema:"Percent change that counts as significant. Defaults to the configured threshold."`
	Anomaly     float64 `json:"anomaly_threshold,omitempty" jsonschema:"Percent change that counts as an anomaly. Defaults to the configured threshold."`
}

// BenchmarkInput is a set of metric values to compare with benchmarks.
type BenchmarkInput struct {
	FormatInput
	Metrics    map[string]float64 `json:"metrics" jsonschema:"Metric values keyed by benchmark name, e.g. bounce_rate or organic_traffic_share."`
	Benchmarks map[string]float64 `json:"benchmarks,omitempty" jsonschema:"Custom benchmark values overriding the nonprofit defaults."`
}

// InsightsInput carries inline snapshots for both periods.
type InsightsInput struct {
	FormatInput
	GA4Current  *models.GA4Snapshot  `json:"ga4_current,omitempty" jsonschema:"Web analytics snapshot for the current period."`
	GA4Previous *models.GA4Snapshot  `json:"ga4_previous,omitempty" jsonschema:"Web analytics snapshot for the previous period."`
	GSCCurrent  *models.GSCSnapshot  `json:"gsc_current,omitempty" jsonschema:"Search console snapshot for the current period."`
	GSCPrevious *models.GSCSnapshot  `json:"gsc_previous,omitempty" jsonschema:"Search console snapshot for the previous period."`
	Comparison  string               `json:"comparison,omitempty" jsonschema:"Comparison mode used in summary wording: yoy (default) or qoq."`
	Homepages   []string             `json:"homepage_paths,omitempty" jsonschema:"Paths treated as the homepage when judging content concentration."`
}

// ReportInput selects a client and quarter for a full report.
type ReportInput struct {
	PeriodInput
	Client string `json:"client" jsonschema:"Client name as used in the data and clients directories."`
	Full   bool   `json:"full,omitempty" jsonschema:"Return the complete report including raw snapshots instead of the summary."`
}

// ListClientsInput has no parameters besides format.
type ListClientsInput struct {
	FormatInput
}

func getFormat(input FormatInput) output.Format {
	switch strings.ToLower(input.Format) {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	var sb strings.Builder
	switch format {
	case output.FormatJSON:
		if err := output.WriteJSON(&sb, data); err != nil {
			return "", err
		}
		return sb.String(), nil
	case output.FormatMarkdown:
		if r, ok := data.(output.Renderable); ok {
			if err := r.RenderMarkdown(&sb); err != nil {
				return "", err
			}
			return sb.String(), nil
		}
		out, err := output.MarshalTOON(data)
		if err != nil {
			return "", err
		}
		return "```\n" + out + "\n```", nil
	default:
		if r, ok := data.(output.Renderable); ok {
			data = r.RenderData()
		}
		return output.MarshalTOON(data)
	}
}

func toolResult(ctx context.Context, data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	zerolog.Ctx(ctx).Debug().
		Str("format", string(format)).
		Str("tokens", output.FormatTokenCount(output.EstimateTokens(text))).
		Msg("tool result")
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) comparison(mode string) (models.ComparisonType, error) {
	if mode == "" {
		return s.cfg.Comparison(), nil
	}
	return period.ParseComparison(mode)
}

func (s *Server) resolve(in PeriodInput) (period.Quarter, models.ComparisonPeriods, error) {
	q, err := period.ParseQuarter(in.Quarter)
	if err != nil {
		return 0, models.ComparisonPeriods{}, err
	}
	mode, err := s.comparison(in.Comparison)
	if err != nil {
		return 0, models.ComparisonPeriods{}, err
	}
	periods, err := period.Resolve(q, in.Year, mode)
	return q, periods, err
}

// Tool handlers

func (s *Server) handleResolvePeriods(ctx context.Context, req *mcp.CallToolRequest, input PeriodInput) (*mcp.CallToolResult, any, error) {
	q, periods, err := s.resolve(input)
	if err != nil {
		return toolError(err.Error())
	}
	months, err := period.Months(q, input.Year)
	if err != nil {
		return toolError(err.Error())
	}

	out := struct {
		Current        models.DatePeriod     `json:"current" toon:"current"`
		Previous       models.DatePeriod     `json:"previous" toon:"previous"`
		ComparisonType models.ComparisonType `json:"comparison_type" toon:"comparison_type"`
		Label          string                `json:"label" toon:"label"`
		Months         []models.DatePeriod   `json:"months" toon:"months"`
	}{periods.Current, periods.Previous, periods.Type, periods.String(), months}
	return toolResult(ctx, out, getFormat(input.FormatInput))
}

func (s *Server) handleCalculateChange(ctx context.Context, req *mcp.CallToolRequest, input ChangeInput) (*mcp.CallToolResult, any, error) {
	significant := s.cfg.Thresholds.Significant
	if input.Significant > 0 {
		significant = input.Significant
	}
	anomaly := s.cfg.Thresholds.Anomaly
	if input.Anomaly > 0 {
		anomaly = input.Anomaly
	}
	if anomaly < significant {
		return toolError(fmt.Sprintf("anomaly threshold %.1f is below significant threshold %.1f", anomaly, significant))
	}

	result := change.Calculate(input.Current, input.Previous,
		change.WithThresholds(significant, anomaly),
		change.WithInverse(input.Inverse),
	)
	return toolResult(ctx, result, getFormat(input.FormatInput))
}

func (s *Server) handleCompareBenchmarks(ctx context.Context, req *mcp.CallToolRequest, input BenchmarkInput) (*mcp.CallToolResult, any, error) {
	if len(input.Metrics) == 0 {
		return toolError("metrics are required")
	}

	table := s.cfg.BenchmarkTable()
	cmp := benchmark.New(benchmark.WithTable(table))

	comparisons := make(map[string]models.BenchmarkComparison, len(input.Metrics))
	var unknown []string
	for name, value := range input.Metrics {
		if custom, ok := input.Benchmarks[name]; ok {
			comparisons[name] = cmp.CompareWith(name, value, custom)
			continue
		}
		if c, ok := cmp.Compare(name, value); ok {
			comparisons[name] = c
			continue
		}
		unknown = append(unknown, name)
	}

	out := struct {
		Comparisons map[string]models.BenchmarkComparison `json:"comparisons" toon:"comparisons"`
		Summary     models.BenchmarkSummary               `json:"summary" toon:"summary"`
		Unknown     []string                              `json:"unknown_metrics,omitempty" toon:"unknown_metrics"`
		Available   []string                              `json:"available_benchmarks,omitempty" toon:"available_benchmarks"`
	}{
		Comparisons: comparisons,
		Summary:     benchmark.Summarize(comparisons),
		Unknown:     unknown,
	}
	if len(unknown) > 0 {
		out.Available = table.Names()
	}
	return toolResult(ctx, out, getFormat(input.FormatInput))
}

func (s *Server) handleGenerateInsights(ctx context.Context, req *mcp.CallToolRequest, input InsightsInput) (*mcp.CallToolResult, any, error) {
	if input.GA4Current == nil && input.GSCCurrent == nil {
		return toolError("at least one current-period snapshot is required")
	}
	mode, err := s.comparison(input.Comparison)
	if err != nil {
		return toolError(err.Error())
	}

	opts := []insights.Option{
		insights.WithThresholds(s.cfg.Thresholds.Significant, s.cfg.Thresholds.Anomaly),
		insights.WithBenchmarks(s.cfg.BenchmarkTable()),
		insights.WithComparison(mode),
	}
	if len(input.Homepages) > 0 {
		opts = append(opts, insights.WithHomepagePaths(input.Homepages...))
	}
	result := insights.New(opts...).Analyze(input.GA4Current, input.GA4Previous, input.GSCCurrent, input.GSCPrevious)

	summary := result.Summary()
	summary.KeyRecommendations = result.KeyRecommendations(s.cfg.Report.Recommendations)
	return toolResult(ctx, summary, getFormat(input.FormatInput))
}

func (s *Server) handleListClients(ctx context.Context, req *mcp.CallToolRequest, input ListClientsInput) (*mcp.CallToolResult, any, error) {
	names, err := config.ListClients(s.clientsDir)
	if err != nil {
		return toolError(err.Error())
	}

	type clientInfo struct {
		Name        string `json:"name" toon:"name"`
		DisplayName string `json:"display_name" toon:"display_name"`
		Site        string `json:"site,omitempty" toon:"site"`
	}
	clients := make([]clientInfo, 0, len(names))
	for _, name := range names {
		c, err := config.LoadClient(s.clientsDir, name)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("client", name).Msg("skipping client profile")
			continue
		}
		clients = append(clients, clientInfo{Name: c.Name, DisplayName: c.Title(), Site: c.GSCSiteURL})
	}
	return toolResult(ctx, map[string]any{"clients": clients}, getFormat(input.FormatInput))
}

func (s *Server) loadClient(name string) (*config.ClientConfig, error) {
	c, err := config.LoadClient(s.clientsDir, name)
	if errors.Is(err, config.ErrClientNotFound) {
		return config.NewClientConfig(name), nil
	}
	return c, err
}

func (s *Server) handleAnalyzeReport(ctx context.Context, req *mcp.CallToolRequest, input ReportInput) (*mcp.CallToolResult, any, error) {
	if input.Client == "" {
		return toolError("client is required")
	}
	q, err := period.ParseQuarter(input.Quarter)
	if err != nil {
		return toolError(err.Error())
	}
	mode, err := s.comparison(input.Comparison)
	if err != nil {
		return toolError(err.Error())
	}
	client, err := s.loadClient(input.Client)
	if err != nil {
		return toolError(err.Error())
	}

	opts := append(report.FromConfig(s.cfg), report.WithVersion(s.version))
	gen := report.New(s.source, opts...)
	r, err := gen.Generate(ctx, report.Request{Client: client, Quarter: q, Year: input.Year, Comparison: mode})
	if err != nil {
		return toolError(err.Error())
	}

	if input.Full {
		return toolResult(ctx, r, getFormat(input.FormatInput))
	}
	out := struct {
		Metadata   report.Metadata   `json:"metadata" toon:"metadata"`
		Comparison report.Comparison `json:"comparison" toon:"comparison"`
		Benchmarks report.Benchmarks `json:"benchmarks" toon:"benchmarks"`
		Insights   insights.Summary  `json:"insights" toon:"insights"`
	}{r.Metadata, r.Comparison, r.Benchmarks, r.Insights}

	if getFormat(input.FormatInput) == output.FormatMarkdown {
		return toolResult(ctx, report.NewSummary(r), output.FormatMarkdown)
	}
	return toolResult(ctx, out, getFormat(input.FormatInput))
}
