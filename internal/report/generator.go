// Package report assembles quarterly reports from snapshot sources and
// renders them as JSON, HTML and terminal summaries.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/panbanda/quarterly/internal/pagespeed"
	"github.com/panbanda/quarterly/internal/snapshot"
	"github.com/panbanda/quarterly/pkg/analyzer/benchmark"
	"github.com/panbanda/quarterly/pkg/analyzer/change"
	"github.com/panbanda/quarterly/pkg/analyzer/insights"
	"github.com/panbanda/quarterly/pkg/analyzer/trend"
	"github.com/panbanda/quarterly/pkg/config"
	"github.com/panbanda/quarterly/pkg/models"
	"github.com/panbanda/quarterly/pkg/period"
)

// Source supplies analytics snapshots for a client and period.
type Source interface {
	GA4(ctx context.Context, client string, p models.DatePeriod) (*models.GA4Snapshot, snapshot.Meta, error)
	GSC(ctx context.Context, client string, p models.DatePeriod) (*models.GSCSnapshot, snapshot.Meta, error)
}

// PerformanceSource supplies site performance audits.
type PerformanceSource interface {
	Overview(ctx context.Context, site string) (*pagespeed.Overview, error)
}

// Generator builds reports. It holds only read-only configuration and is
// safe for concurrent use.
type Generator struct {
	source          Source
	performance     PerformanceSource
	significant     float64
	anomaly         float64
	benchmarks      benchmark.Table
	trend           *trend.Analyzer
	minDeviation    *float64
	topKeywords     int
	topPages        int
	recommendations int
	workers         int
	version         string
	onProgress      func()
	now             func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithThresholds sets the significant and anomaly change thresholds.
func WithThresholds(significant, anomaly float64) Option {
	return func(g *Generator) {
		g.significant = significant
		g.anomaly = anomaly
	}
}

// WithBenchmarks replaces the benchmark table.
func WithBenchmarks(t benchmark.Table) Option {
	return func(g *Generator) {
		g.benchmarks = t
	}
}

// WithTrendSensitivity sets the anomaly sensitivity in standard deviations.
func WithTrendSensitivity(s float64) Option {
	return func(g *Generator) {
		g.trend = trend.New(trend.WithSensitivity(s))
	}
}

// WithMinDeviation sets the minimum percent deviation for an anomaly.
func WithMinDeviation(pct float64) Option {
	return func(g *Generator) {
		g.minDeviation = &pct
	}
}

// WithPerformance adds PageSpeed audits for clients with a site URL.
func WithPerformance(p PerformanceSource) Option {
	return func(g *Generator) {
		g.performance = p
	}
}

// WithLimits caps keyword opportunities and top pages kept in the report.
// Zero keeps everything.
func WithLimits(keywords, pages int) Option {
	return func(g *Generator) {
		g.topKeywords = keywords
		g.topPages = pages
	}
}

// WithRecommendationLimit sets how many recommendations the summary keeps.
func WithRecommendationLimit(n int) Option {
	return func(g *Generator) {
		g.recommendations = n
	}
}

// WithWorkers caps concurrent source requests.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithVersion records the producing version in report metadata.
func WithVersion(v string) Option {
	return func(g *Generator) {
		g.version = v
	}
}

// WithProgress is called once per finished source request.
func WithProgress(fn func()) Option {
	return func(g *Generator) {
		g.onProgress = fn
	}
}

// WithClock overrides the generation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// FromConfig maps configuration onto generator options.
func FromConfig(cfg *config.Config) []Option {
	opts := []Option{
		WithThresholds(cfg.Thresholds.Significant, cfg.Thresholds.Anomaly),
		WithBenchmarks(cfg.BenchmarkTable()),
		WithTrendSensitivity(cfg.Trend.Sensitivity),
		WithLimits(cfg.Report.TopKeywords, cfg.Report.TopPages),
		WithRecommendationLimit(cfg.Report.Recommendations),
		WithWorkers(cfg.Report.SourceConcurrency),
	}
	if cfg.Trend.MinDeviation > 0 {
		opts = append(opts, WithMinDeviation(cfg.Trend.MinDeviation))
	}
	return opts
}

// New creates a generator reading from source.
func New(source Source, opts ...Option) *Generator {
	g := &Generator{
		source:          source,
		significant:     change.DefaultSignificantThreshold,
		anomaly:         change.DefaultAnomalyThreshold,
		benchmarks:      benchmark.DefaultTable(),
		trend:           trend.New(),
		recommendations: insights.DefaultRecommendationLimit,
		workers:         4,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SourceCount returns how many source requests Generate makes for client,
// for sizing progress bars.
func (g *Generator) SourceCount(client *config.ClientConfig) int {
	n := 4
	if g.performance != nil && client.GSCSiteURL != "" {
		n++
	}
	return n
}

// Request selects the client and quarter to report on.
type Request struct {
	Client     *config.ClientConfig
	Quarter    period.Quarter
	Year       int
	Comparison models.ComparisonType
}

// Generate resolves the periods, collects every source concurrently and
// runs the analysis pipeline. Sources that report ErrUnavailable are
// recorded as missing; any other source error fails the report.
func (g *Generator) Generate(ctx context.Context, req Request) (*Report, error) {
	if req.Client == nil {
		return nil, errors.New("client is required")
	}
	if req.Comparison == "" {
		req.Comparison = models.ComparisonYoY
	}
	periods, err := period.Resolve(req.Quarter, req.Year, req.Comparison)
	if err != nil {
		return nil, err
	}

	log := zerolog.Ctx(ctx).With().Str("client", req.Client.Name).Str("periods", periods.String()).Logger()
	ctx = log.WithContext(ctx)
	log.Info().Msg("generating report")

	r := &Report{
		Metadata: Metadata{
			ID:                uuid.NewString(),
			Client:            req.Client.Name,
			ClientDisplayName: req.Client.Title(),
			Quarter:           req.Quarter.String(),
			Year:              req.Year,
			GeneratedAt:       g.now().UTC(),
			CurrentPeriod:     periods.Current,
			PreviousPeriod:    periods.Previous,
			ComparisonType:    periods.Type,
			Version:           g.version,
		},
	}

	if err := g.collect(ctx, req.Client, periods, r); err != nil {
		return nil, err
	}

	g.trim(req.Client, r)
	r.Comparison = g.compare(r)
	r.Benchmarks = g.benchmark(r)

	engine := insights.New(
		insights.WithThresholds(g.significant, g.anomaly),
		insights.WithBenchmarks(g.benchmarks),
		insights.WithComparison(periods.Type),
		insights.WithHomepagePaths(req.Client.HomepagePaths...),
	)
	result := engine.Analyze(r.GA4, r.GA4Previous, r.GSC, r.GSCPrevious)
	r.Insights = result.Summary()
	r.Insights.KeyRecommendations = result.KeyRecommendations(g.recommendations)

	r.SearchTrend = g.searchTrend(r.GSC)

	log.Info().
		Int("insights", result.Len()).
		Strs("missing", r.Metadata.MissingSources).
		Msg("report generated")
	return r, nil
}

type collected struct {
	mu      sync.Mutex
	sources []snapshot.Meta
	missing []string
}

func (c *collected) found(meta snapshot.Meta) {
	c.mu.Lock()
	c.sources = append(c.sources, meta)
	c.mu.Unlock()
}

func (c *collected) miss(name string) {
	c.mu.Lock()
	c.missing = append(c.missing, name)
	c.mu.Unlock()
}

func (g *Generator) collect(ctx context.Context, client *config.ClientConfig, periods models.ComparisonPeriods, r *Report) error {
	var c collected
	p := pool.New().WithMaxGoroutines(g.workers).WithContext(ctx)

	tick := func() {
		if g.onProgress != nil {
			g.onProgress()
		}
	}

	// handle records a source outcome; only unexpected errors stop the report.
	handle := func(ctx context.Context, name string, meta snapshot.Meta, err error) error {
		defer tick()
		switch {
		case err == nil:
			c.found(meta)
			return nil
		case errors.Is(err, snapshot.ErrUnavailable):
			zerolog.Ctx(ctx).Warn().Str("source", name).Msg("source unavailable")
			c.miss(name)
			return nil
		default:
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	p.Go(func(ctx context.Context) error {
		snap, meta, err := g.source.GA4(ctx, client.Name, periods.Current)
		r.GA4 = snap
		return handle(ctx, "ga4_current", meta, err)
	})
	p.Go(func(ctx context.Context) error {
		snap, meta, err := g.source.GA4(ctx, client.Name, periods.Previous)
		r.GA4Previous = snap
		return handle(ctx, "ga4_previous", meta, err)
	})
	p.Go(func(ctx context.Context) error {
		snap, meta, err := g.source.GSC(ctx, client.Name, periods.Current)
		r.GSC = snap
		return handle(ctx, "gsc_current", meta, err)
	})
	p.Go(func(ctx context.Context) error {
		snap, meta, err := g.source.GSC(ctx, client.Name, periods.Previous)
		r.GSCPrevious = snap
		return handle(ctx, "gsc_previous", meta, err)
	})
	if g.performance != nil && client.GSCSiteURL != "" {
		p.Go(func(ctx context.Context) error {
			defer tick()
			overview, err := g.performance.Overview(ctx, client.GSCSiteURL)
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("pagespeed unavailable")
				c.miss("pagespeed")
				return nil
			}
			r.PageSpeed = overview
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return err
	}

	sort.Slice(c.sources, func(i, j int) bool {
		if c.sources[i].Kind != c.sources[j].Kind {
			return c.sources[i].Kind < c.sources[j].Kind
		}
		return c.sources[i].Period < c.sources[j].Period
	})
	sort.Strings(c.missing)
	r.Metadata.Sources = c.sources
	r.Metadata.MissingSources = c.missing
	return nil
}

// trim drops excluded pages and applies the configured row limits. The
// snapshots are copied first since sources may share them between reports.
func (g *Generator) trim(client *config.ClientConfig, r *Report) {
	if r.GA4 != nil && len(r.GA4.TopPages) > 0 {
		ga4 := *r.GA4
		pages := make([]models.PageRow, 0, len(ga4.TopPages))
		for _, page := range ga4.TopPages {
			if !client.Excluded(page.PagePath) {
				pages = append(pages, page)
			}
		}
		if g.topPages > 0 && len(pages) > g.topPages {
			pages = pages[:g.topPages]
		}
		ga4.TopPages = pages
		r.GA4 = &ga4
	}
	if r.GSC != nil && g.topKeywords > 0 && len(r.GSC.KeywordOpportunities) > g.topKeywords {
		gsc := *r.GSC
		gsc.KeywordOpportunities = gsc.KeywordOpportunities[:g.topKeywords:g.topKeywords]
		r.GSC = &gsc
	}
}

func (g *Generator) compare(r *Report) Comparison {
	calc := change.New(g.significant, g.anomaly)
	cmp := Comparison{
		Traffic: map[string]models.ChangeMetric{},
		Search:  map[string]models.ChangeMetric{},
	}

	if r.GA4 != nil && r.GA4.TrafficOverview != nil {
		prev := map[string]float64{}
		if r.GA4Previous != nil && r.GA4Previous.TrafficOverview != nil {
			prev = r.GA4Previous.TrafficOverview.Metrics()
		}
		cmp.Traffic = calc.CompareAll(r.GA4.TrafficOverview.Metrics(), prev, "bounce_rate")
	}
	if r.GSC != nil && r.GSC.Overview != nil {
		prev := map[string]float64{}
		if r.GSCPrevious != nil && r.GSCPrevious.Overview != nil {
			prev = r.GSCPrevious.Overview.Metrics()
		}
		cmp.Search = calc.CompareAll(r.GSC.Overview.Metrics(), prev, "avg_position")
	}
	if r.GA4 != nil && r.GA4Previous != nil {
		cmp.MonthlySessions = trend.ComparePeriods(monthlySessions(r.GA4), monthlySessions(r.GA4Previous))
	}
	return cmp
}

func monthlySessions(s *models.GA4Snapshot) []float64 {
	values := make([]float64, 0, len(s.Months))
	for _, m := range s.Months {
		values = append(values, m.Sessions)
	}
	return values
}

// channelAliases maps GA4 default channel groups onto benchmark names.
var channelAliases = map[string]string{
	"organic_search_traffic_share": "organic_traffic_share",
	"organic_social_traffic_share": "social_traffic_share",
}

// BenchmarkMetrics collects the current-period values that have a
// nonprofit benchmark counterpart.
func BenchmarkMetrics(ga4 *models.GA4Snapshot, gsc *models.GSCSnapshot) map[string]float64 {
	metrics := map[string]float64{}
	if ga4 != nil {
		if t := ga4.TrafficOverview; t != nil {
			metrics["bounce_rate"] = t.BounceRate
			metrics["avg_session_duration"] = t.AvgSessionDuration
			metrics["pages_per_session"] = t.PagesPerSession
			metrics["engagement_rate"] = t.EngagementRate
			if t.TotalUsers > 0 {
				metrics["new_visitor_rate"] = t.NewUserPercentage()
			}
		}
		for _, ch := range ga4.Channels {
			if ch.Channel == "" {
				continue
			}
			key := ch.MetricKey()
			if alias, ok := channelAliases[key]; ok {
				key = alias
			}
			metrics[key] = ch.SessionShare
		}
		if mobile, ok := ga4.Device("mobile"); ok {
			metrics["mobile_traffic_share"] = mobile.UserShare
		}
	}
	if gsc != nil && gsc.Overview != nil {
		if gsc.Overview.AvgPosition > 0 {
			metrics["avg_search_position"] = gsc.Overview.AvgPosition
		}
		metrics["search_ctr"] = gsc.Overview.AvgCTR
	}
	return metrics
}

func (g *Generator) benchmark(r *Report) Benchmarks {
	cmp := benchmark.New(benchmark.WithTable(g.benchmarks))
	comparisons := cmp.AnalyzeAll(BenchmarkMetrics(r.GA4, r.GSC))
	return Benchmarks{
		Comparisons: comparisons,
		Summary:     benchmark.Summarize(comparisons),
	}
}

func (g *Generator) searchTrend(gsc *models.GSCSnapshot) *SearchTrend {
	if gsc == nil || len(gsc.Daily) == 0 {
		return nil
	}
	points := make([]trend.Point, 0, len(gsc.Daily))
	for _, d := range gsc.Daily {
		points = append(points, trend.Point{Label: d.Date, Value: d.Clicks})
	}

	var opts []trend.AnomalyOption
	if g.minDeviation != nil {
		opts = append(opts, trend.WithMinDeviation(*g.minDeviation))
	}
	return &SearchTrend{
		Clicks:    g.trend.AnalyzeTrend(points),
		Anomalies: g.trend.DetectAnomalies("clicks", points, opts...),
		Summary:   trend.PeriodSummary(trend.Values(points)),
	}
}
