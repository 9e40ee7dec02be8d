// Package insights turns period snapshots into ranked, templated
// findings with recommendations and an executive summary.
package insights

import (
	"sort"

	"github.com/panbanda/quarterly/pkg/analyzer/benchmark"
	"github.com/panbanda/quarterly/pkg/analyzer/change"
	"github.com/panbanda/quarterly/pkg/models"
)

// DefaultRecommendationLimit is the number of recommendations returned
// when the caller does not ask for a specific count.
const DefaultRecommendationLimit = 5

// Engine runs a fixed battery of rule-based passes over snapshots. It
// holds only read-only configuration, so one engine may serve many
// concurrent Analyze calls.
type Engine struct {
	significant   float64
	anomaly       float64
	benchmarks    benchmark.Table
	comparison    models.ComparisonType
	homepagePaths []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithThresholds sets the significant and anomaly change thresholds.
func WithThresholds(significant, anomaly float64) Option {
	return func(e *Engine) {
		e.significant = significant
		e.anomaly = anomaly
	}
}

// WithBenchmarks replaces the benchmark table used for engagement and
// acquisition passes.
func WithBenchmarks(t benchmark.Table) Option {
	return func(e *Engine) {
		e.benchmarks = t
	}
}

// WithComparison sets the comparison mode named in headlines.
func WithComparison(c models.ComparisonType) Option {
	return func(e *Engine) {
		e.comparison = c
	}
}

// WithHomepagePaths sets the page paths counted as the homepage.
func WithHomepagePaths(paths ...string) Option {
	return func(e *Engine) {
		if len(paths) > 0 {
			e.homepagePaths = paths
		}
	}
}

// New creates an engine with default thresholds and benchmarks.
func New(opts ...Option) *Engine {
	e := &Engine{
		significant:   change.DefaultSignificantThreshold,
		anomaly:       change.DefaultAnomalyThreshold,
		benchmarks:    benchmark.DefaultTable(),
		comparison:    models.ComparisonYoY,
		homepagePaths: []string{"/"},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pass inspects the snapshots and appends zero or more insights.
type pass func(e *Engine, in *input, out *[]models.Insight)

// passes run in registration order; ties in priority keep this order.
var passes = []pass{
	trafficPass,
	engagementPass,
	acquisitionPass,
	contentPass,
	searchPass,
	opportunityPass,
}

type input struct {
	ga4Current  *models.GA4Snapshot
	ga4Previous *models.GA4Snapshot
	gscCurrent  *models.GSCSnapshot
	gscPrevious *models.GSCSnapshot
}

// Analyze runs every pass and returns the findings sorted by priority.
// Any snapshot may be nil; missing sections contribute no insights.
func (e *Engine) Analyze(ga4Current, ga4Previous *models.GA4Snapshot, gscCurrent, gscPrevious *models.GSCSnapshot) *Result {
	in := &input{
		ga4Current:  ga4Current,
		ga4Previous: ga4Previous,
		gscCurrent:  gscCurrent,
		gscPrevious: gscPrevious,
	}

	var found []models.Insight
	for _, p := range passes {
		p(e, in, &found)
	}

	found = dedupe(found)
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Priority < found[j].Priority
	})

	return &Result{insights: found, comparison: e.comparison}
}

func (e *Engine) benchmarkValue(name string, fallback float64) float64 {
	if v, ok := e.benchmarks.Value(name); ok {
		return v
	}
	return fallback
}

func (e *Engine) calc(current, previous float64, inverse bool) models.ChangeMetric {
	return change.Calculate(current, previous,
		change.WithThresholds(e.significant, e.anomaly),
		change.WithInverse(inverse))
}

func dedupe(insights []models.Insight) []models.Insight {
	type key struct {
		category models.InsightCategory
		headline string
	}
	seen := make(map[key]bool, len(insights))
	out := insights[:0]
	for _, in := range insights {
		k := key{in.Category, in.Headline}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, in)
	}
	return out
}
