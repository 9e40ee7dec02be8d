package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/panbanda/quarterly/internal/output"
	"github.com/panbanda/quarterly/internal/snapshot"
	"github.com/panbanda/quarterly/pkg/config"
	"github.com/panbanda/quarterly/pkg/models"
	"github.com/panbanda/quarterly/pkg/period"
)

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

// resultText returns a func that takes a handler's results and returns
// the text of a successful tool result.
func resultText(t *testing.T) func(*mcp.CallToolResult, any, error) string {
	t.Helper()
	return func(result *mcp.CallToolResult, _ any, err error) string {
		t.Helper()
		return toolText(t, result, err)
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult, err error) string {
	t.Helper()
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result == nil {
		t.Fatal("handler returned nil result")
	}
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is not TextContent: %T", result.Content[0])
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", text.Text)
	}
	return text.Text
}

func decode(t *testing.T, text string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, text)
	}
}

func jsonFormat() FormatInput { return FormatInput{Format: "json"} }

func TestServerCreation(t *testing.T) {
	server := NewServer("1.0.0-test")
	if server == nil {
		t.Fatal("NewServer() returned nil")
	}
	if server.server == nil {
		t.Fatal("NewServer().server is nil")
	}
	if server.clientsDir != "clients" {
		t.Errorf("clientsDir = %q, want default from config", server.clientsDir)
	}
}

func TestServerCreationEmptyVersion(t *testing.T) {
	server := NewServer("")
	if server.version != "dev" {
		t.Errorf("version = %q, want dev", server.version)
	}
}

func TestToolDescriptions(t *testing.T) {
	descriptions := map[string]func() string{
		"resolve_periods":    describeResolvePeriods,
		"calculate_change":   describeCalculateChange,
		"compare_benchmarks": describeCompareBenchmarks,
		"generate_insights":  describeGenerateInsights,
		"list_clients":       describeListClients,
		"analyze_report":     describeAnalyzeReport,
	}

	for name, fn := range descriptions {
		t.Run(name, func(t *testing.T) {
			desc := fn()
			for _, section := range []string{"USE WHEN:", "INTERPRETING RESULTS:", "METRICS RETURNED:"} {
				if !strings.Contains(desc, section) {
					t.Errorf("%s description missing %s section", name, section)
				}
			}
		})
	}
}

func TestGetFormat(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		expected output.Format
	}{
		{"empty defaults to toon", "", output.FormatTOON},
		{"json format", "json", output.FormatJSON},
		{"uppercase json", "JSON", output.FormatJSON},
		{"markdown format", "markdown", output.FormatMarkdown},
		{"md alias", "md", output.FormatMarkdown},
		{"unknown defaults to toon", "xml", output.FormatTOON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getFormat(FormatInput{Format: tt.format}); got != tt.expected {
				t.Errorf("getFormat(%q) = %v, want %v", tt.format, got, tt.expected)
			}
		})
	}
}

func TestToolError(t *testing.T) {
	result, _, err := toolError("test error message")
	if err != nil {
		t.Fatalf("toolError returned unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("toolError result.IsError should be true")
	}
	text := result.Content[0].(*mcp.TextContent).Text
	if text != "Error: test error message" {
		t.Errorf("toolError text = %q", text)
	}
}

func TestToolResultFormats(t *testing.T) {
	data := map[string]any{"key": "value", "num": 42}

	text := resultText(t)(toolResult(testContext(t), data, output.FormatJSON))
	var decoded map[string]any
	decode(t, text, &decoded)
	if decoded["key"] != "value" {
		t.Errorf("decoded = %v", decoded)
	}

	text = resultText(t)(toolResult(testContext(t), data, output.FormatTOON))
	if !strings.Contains(text, "key: value") {
		t.Errorf("toon output missing key: %q", text)
	}

	text = resultText(t)(toolResult(testContext(t), data, output.FormatMarkdown))
	if !strings.HasPrefix(text, "```") {
		t.Errorf("markdown output of plain data should be fenced: %q", text)
	}
}

func TestHandleResolvePeriods(t *testing.T) {
	s := NewServer("test")
	input := PeriodInput{FormatInput: jsonFormat(), Quarter: "Q1", Year: 2025, Comparison: "qoq"}

	text := resultText(t)(s.handleResolvePeriods(testContext(t), nil, input))

	var out struct {
		Current        models.DatePeriod   `json:"current"`
		Previous       models.DatePeriod   `json:"previous"`
		ComparisonType string              `json:"comparison_type"`
		Months         []models.DatePeriod `json:"months"`
	}
	decode(t, text, &out)

	if out.Current.StartDate() != "2025-01-01" || out.Current.EndDate() != "2025-03-31" {
		t.Errorf("current = %s", out.Current)
	}
	if out.Previous.StartDate() != "2024-10-01" || out.Previous.EndDate() != "2024-12-31" {
		t.Errorf("previous = %s", out.Previous)
	}
	if out.ComparisonType != "qoq" {
		t.Errorf("comparison_type = %q", out.ComparisonType)
	}
	if len(out.Months) != 3 {
		t.Errorf("months = %d, want 3", len(out.Months))
	}
}

func TestHandleResolvePeriodsInvalid(t *testing.T) {
	s := NewServer("test")
	for _, input := range []PeriodInput{
		{Quarter: "Q5", Year: 2024},
		{Quarter: "Q1", Year: 2024, Comparison: "mom"},
	} {
		result, _, err := s.handleResolvePeriods(testContext(t), nil, input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Errorf("expected tool error for %+v", input)
		}
	}
}

func TestHandleCalculateChange(t *testing.T) {
	s := NewServer("test")

	text := resultText(t)(s.handleCalculateChange(testContext(t), nil,
		ChangeInput{FormatInput: jsonFormat(), Current: 40, Previous: 50, Inverse: true}))

	var out models.ChangeMetric
	decode(t, text, &out)
	if out.ChangePct != -20 {
		t.Errorf("change_pct = %v, want -20", out.ChangePct)
	}
	if out.Direction != models.DirectionUp {
		t.Errorf("direction = %q, want up for an inverse decrease", out.Direction)
	}
	if !out.IsSignificant || out.IsAnomaly {
		t.Errorf("flags = significant:%v anomaly:%v", out.IsSignificant, out.IsAnomaly)
	}
}

func TestHandleCalculateChangeThresholds(t *testing.T) {
	s := NewServer("test")

	text := resultText(t)(s.handleCalculateChange(testContext(t), nil,
		ChangeInput{FormatInput: jsonFormat(), Current: 115, Previous: 100, Significant: 20, Anomaly: 30}))
	var out models.ChangeMetric
	decode(t, text, &out)
	if out.IsSignificant {
		t.Error("15% change should not be significant with a 20% threshold")
	}

	result, _, err := s.handleCalculateChange(testContext(t), nil, ChangeInput{Current: 1, Previous: 1, Significant: 30, Anomaly: 20})
	if err != nil || !result.IsError {
		t.Error("anomaly below significant should be a tool error")
	}
}

func TestHandleCompareBenchmarks(t *testing.T) {
	s := NewServer("test")
	input := BenchmarkInput{
		FormatInput: jsonFormat(),
		Metrics: map[string]float64{
			"bounce_rate":     30,
			"engagement_rate": 50,
			"made_up_metric":  1,
		},
		Benchmarks: map[string]float64{"engagement_rate": 40},
	}

	text := resultText(t)(s.handleCompareBenchmarks(testContext(t), nil, input))

	var out struct {
		Comparisons map[string]models.BenchmarkComparison `json:"comparisons"`
		Summary     models.BenchmarkSummary               `json:"summary"`
		Unknown     []string                              `json:"unknown_metrics"`
		Available   []string                              `json:"available_benchmarks"`
	}
	decode(t, text, &out)

	if got := out.Comparisons["bounce_rate"].Outcome(); got != models.OutcomeOutperforming {
		t.Errorf("bounce_rate outcome = %q, want outperforming", got)
	}
	if got := out.Comparisons["engagement_rate"].BenchmarkValue; got != 40 {
		t.Errorf("custom benchmark = %v, want 40", got)
	}
	if out.Summary.TotalCompared != 2 {
		t.Errorf("total_compared = %d, want 2", out.Summary.TotalCompared)
	}
	if len(out.Unknown) != 1 || out.Unknown[0] != "made_up_metric" {
		t.Errorf("unknown = %v", out.Unknown)
	}
	if len(out.Available) == 0 {
		t.Error("available benchmarks should be listed when a metric is unknown")
	}
}

func TestHandleCompareBenchmarksEmpty(t *testing.T) {
	result, _, _ := NewServer("test").handleCompareBenchmarks(testContext(t), nil, BenchmarkInput{})
	if !result.IsError {
		t.Error("empty metrics should be a tool error")
	}
}

func snapshots() (*models.GA4Snapshot, *models.GA4Snapshot, *models.GSCSnapshot, *models.GSCSnapshot) {
	ga4Current := &models.GA4Snapshot{
		TrafficOverview: &models.TrafficOverview{TotalUsers: 13000, NewUsers: 9000, Sessions: 16000, BounceRate: 45, EngagementRate: 62},
		Channels:        []models.ChannelRow{{Channel: "Organic Search", Sessions: 7000, SessionShare: 44}},
	}
	ga4Previous := &models.GA4Snapshot{
		TrafficOverview: &models.TrafficOverview{TotalUsers: 10000, NewUsers: 7000, Sessions: 12000, BounceRate: 50, EngagementRate: 55},
	}
	gscCurrent := &models.GSCSnapshot{
		Overview: &models.SearchOverview{TotalClicks: 2000, TotalImpressions: 70000, AvgCTR: 2.9, AvgPosition: 11},
	}
	gscPrevious := &models.GSCSnapshot{
		Overview: &models.SearchOverview{TotalClicks: 1500, TotalImpressions: 50000, AvgCTR: 3, AvgPosition: 13},
	}
	return ga4Current, ga4Previous, gscCurrent, gscPrevious
}

func TestHandleGenerateInsights(t *testing.T) {
	s := NewServer("test")
	ga4c, ga4p, gscc, gscp := snapshots()

	text := resultText(t)(s.handleGenerateInsights(testContext(t), nil, InsightsInput{
		FormatInput: jsonFormat(),
		GA4Current:  ga4c, GA4Previous: ga4p,
		GSCCurrent: gscc, GSCPrevious: gscp,
	}))

	var out struct {
		ExecutiveSummary   string           `json:"executive_summary"`
		KeyRecommendations []string         `json:"key_recommendations"`
		Insights           []models.Insight `json:"insights"`
	}
	decode(t, text, &out)

	if !strings.Contains(out.ExecutiveSummary, "30.0%") {
		t.Errorf("executive summary should mention user growth: %q", out.ExecutiveSummary)
	}
	if len(out.Insights) == 0 {
		t.Fatal("expected insights")
	}
	for i := 1; i < len(out.Insights); i++ {
		if out.Insights[i].Priority < out.Insights[i-1].Priority {
			t.Errorf("insights not sorted by priority at %d", i)
		}
	}
}

func TestHandleGenerateInsightsRequiresData(t *testing.T) {
	result, _, _ := NewServer("test").handleGenerateInsights(testContext(t), nil, InsightsInput{})
	if !result.IsError {
		t.Error("missing snapshots should be a tool error")
	}
}

func TestHandleListClients(t *testing.T) {
	dir := t.TempDir()
	hope := config.NewClientConfig("hope_house")
	hope.DisplayName = "Hope House"
	hope.GSCSiteURL = "https://hopehouse.org"
	if _, err := config.SaveClient(dir, hope); err != nil {
		t.Fatal(err)
	}
	if _, err := config.SaveClient(dir, config.NewClientConfig("river_trust")); err != nil {
		t.Fatal(err)
	}

	s := NewServer("test", WithClientsDir(dir))
	text := resultText(t)(s.handleListClients(testContext(t), nil, ListClientsInput{FormatInput: jsonFormat()}))

	var out struct {
		Clients []struct {
			Name        string `json:"name"`
			DisplayName string `json:"display_name"`
			Site        string `json:"site"`
		} `json:"clients"`
	}
	decode(t, text, &out)

	if len(out.Clients) != 2 {
		t.Fatalf("clients = %d, want 2", len(out.Clients))
	}
	if out.Clients[0].DisplayName != "Hope House" || out.Clients[0].Site != "https://hopehouse.org" {
		t.Errorf("first client = %+v", out.Clients[0])
	}
}

func TestHandleListClientsMissingDir(t *testing.T) {
	s := NewServer("test", WithClientsDir(t.TempDir()+"/nope"))
	text := resultText(t)(s.handleListClients(testContext(t), nil, ListClientsInput{FormatInput: jsonFormat()}))
	if !strings.Contains(text, `"clients": []`) {
		t.Errorf("expected empty client list, got %s", text)
	}
}

func seedStore(t *testing.T) *snapshot.Store {
	t.Helper()
	store := snapshot.NewStore(t.TempDir())
	periods, err := period.Resolve(period.Q2, 2025, models.ComparisonYoY)
	if err != nil {
		t.Fatal(err)
	}
	ga4c, ga4p, gscc, gscp := snapshots()
	for _, s := range []struct {
		kind snapshot.Kind
		p    models.DatePeriod
		snap any
	}{
		{snapshot.KindGA4, periods.Current, ga4c},
		{snapshot.KindGA4, periods.Previous, ga4p},
		{snapshot.KindGSC, periods.Current, gscc},
		{snapshot.KindGSC, periods.Previous, gscp},
	} {
		if _, err := store.Save("hope_house", s.kind, s.p, s.snap); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestHandleAnalyzeReport(t *testing.T) {
	s := NewServer("test", WithSource(seedStore(t)), WithClientsDir(t.TempDir()))
	input := ReportInput{
		PeriodInput: PeriodInput{FormatInput: jsonFormat(), Quarter: "Q2", Year: 2025},
		Client:      "hope_house",
	}

	text := resultText(t)(s.handleAnalyzeReport(testContext(t), nil, input))

	var out struct {
		Metadata struct {
			Client         string   `json:"client_name"`
			Quarter        string   `json:"quarter"`
			MissingSources []string `json:"missing_sources"`
			Version        string   `json:"version"`
		} `json:"metadata"`
		Comparison struct {
			Traffic map[string]models.ChangeMetric `json:"traffic_overview"`
		} `json:"comparison"`
		Insights struct {
			KeyRecommendations []string `json:"key_recommendations"`
		} `json:"insights"`
		GA4 json.RawMessage `json:"ga4"`
	}
	decode(t, text, &out)

	if out.Metadata.Client != "hope_house" || out.Metadata.Quarter != "Q2" {
		t.Errorf("metadata = %+v", out.Metadata)
	}
	if out.Metadata.Version != "test" {
		t.Errorf("version = %q, want server version", out.Metadata.Version)
	}
	if len(out.Metadata.MissingSources) != 0 {
		t.Errorf("missing sources = %v", out.Metadata.MissingSources)
	}
	if got := out.Comparison.Traffic["total_users"].ChangePct; got != 30 {
		t.Errorf("total_users change = %v, want 30", got)
	}
	if len(out.GA4) != 0 {
		t.Error("summary output should omit raw snapshots")
	}
}

func TestHandleAnalyzeReportMarkdown(t *testing.T) {
	s := NewServer("test", WithSource(seedStore(t)), WithClientsDir(t.TempDir()))
	input := ReportInput{
		PeriodInput: PeriodInput{FormatInput: FormatInput{Format: "markdown"}, Quarter: "Q2", Year: 2025},
		Client:      "hope_house",
	}

	text := resultText(t)(s.handleAnalyzeReport(testContext(t), nil, input))
	if !strings.HasPrefix(text, "# hope_house: Q2 2025 Website Report") {
		t.Errorf("unexpected markdown heading: %q", strings.SplitN(text, "\n", 2)[0])
	}
	if !strings.Contains(text, "## Executive Summary") {
		t.Error("markdown should include the executive summary")
	}
}

func TestHandleAnalyzeReportErrors(t *testing.T) {
	s := NewServer("test", WithSource(seedStore(t)), WithClientsDir(t.TempDir()))
	for name, input := range map[string]ReportInput{
		"no client":   {PeriodInput: PeriodInput{Quarter: "Q2", Year: 2025}},
		"bad quarter": {PeriodInput: PeriodInput{Quarter: "Q9", Year: 2025}, Client: "hope_house"},
		"bad mode":    {PeriodInput: PeriodInput{Quarter: "Q2", Year: 2025, Comparison: "wow"}, Client: "hope_house"},
		"path client": {PeriodInput: PeriodInput{Quarter: "Q2", Year: 2025}, Client: "../hope_house"},
	} {
		t.Run(name, func(t *testing.T) {
			result, _, err := s.handleAnalyzeReport(testContext(t), nil, input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.IsError {
				t.Error("expected tool error")
			}
		})
	}
}

func TestParseFrontmatter(t *testing.T) {
	content := []byte("---\ndescription: Test prompt\narguments:\n  - name: client\n    required: true\n---\nHello {{client}}\n")
	fm, body := parseFrontmatter(content)
	if fm.Description != "Test prompt" {
		t.Errorf("description = %q", fm.Description)
	}
	if len(fm.Arguments) != 1 || !fm.Arguments[0].Required {
		t.Errorf("arguments = %+v", fm.Arguments)
	}
	if body != "Hello {{client}}\n" {
		t.Errorf("body = %q", body)
	}

	fm, body = parseFrontmatter([]byte("no frontmatter"))
	if fm.Description != "" || body != "no frontmatter" {
		t.Errorf("plain content parsed as %+v %q", fm, body)
	}
}

func TestExpandPrompt(t *testing.T) {
	fm := promptFrontmatter{Arguments: []promptArgument{
		{Name: "client", Required: true},
		{Name: "focus"},
	}}

	got, err := expandPrompt("Review {{client}}.\n", fm, map[string]string{"client": "Hope House", "focus": "search"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Review Hope House.") || !strings.Contains(got, "- focus: search") {
		t.Errorf("expanded = %q", got)
	}

	if _, err := expandPrompt("Review {{client}}.", fm, nil); err == nil {
		t.Error("missing required argument should fail")
	}
}

func TestRegisteredPrompts(t *testing.T) {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded prompts")
	}
	for _, entry := range entries {
		t.Run(entry.Name(), func(t *testing.T) {
			content, err := promptFiles.ReadFile("prompts/" + entry.Name())
			if err != nil {
				t.Fatal(err)
			}
			fm, body := parseFrontmatter(content)
			if fm.Description == "" {
				t.Error("prompt has no description")
			}
			args := map[string]string{"client": "hope_house", "quarter": "Q3", "year": "2025"}
			text, err := makePromptHandler(fm, body)(context.Background(), &mcp.GetPromptRequest{
				Params: &mcp.GetPromptParams{Name: entry.Name(), Arguments: args},
			})
			if err != nil {
				t.Fatal(err)
			}
			msg := text.Messages[0].Content.(*mcp.TextContent).Text
			if strings.Contains(msg, "{{") {
				t.Errorf("unexpanded placeholder in %s", entry.Name())
			}
		})
	}
}

func TestGenerateManifest(t *testing.T) {
	data, err := GenerateManifest("1.4.0")
	if err != nil {
		t.Fatal(err)
	}
	var m Manifest
	decode(t, string(data), &m)
	if m.Name != "io.github.panbanda/quarterly" || m.Version != "1.4.0" {
		t.Errorf("manifest = %+v", m)
	}
	if len(m.Packages) != 1 || m.Packages[0].Identifier != "ghcr.io/panbanda/quarterly:1.4.0" {
		t.Errorf("packages = %+v", m.Packages)
	}
	if m.Packages[0].EnvironmentVariables[0].Name != PageSpeedKeyEnv {
		t.Error("manifest should declare the PageSpeed key variable")
	}

	data, _ = GenerateManifest("")
	decode(t, string(data), &m)
	if m.Version != "0.0.0" {
		t.Errorf("empty version = %q", m.Version)
	}
}
