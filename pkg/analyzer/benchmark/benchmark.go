// Package benchmark compares metric values against nonprofit industry
// reference values.
package benchmark

import (
	"fmt"
	"math"
	"sort"

	"github.com/panbanda/quarterly/pkg/models"
)

// atBenchmarkBand is the absolute percent difference treated as on par.
const atBenchmarkBand = 5.0

// Table maps metric names to their benchmarks.
type Table map[string]models.Benchmark

// DefaultTable returns the built-in nonprofit benchmarks.
func DefaultTable() Table {
	return Table{
		// Traffic & engagement
		"bounce_rate":          {Value: 55, Unit: "%", LowerIsBetter: true, Description: "Nonprofit average bounce rate"},
		"avg_session_duration": {Value: 120, Unit: "seconds", Description: "Nonprofit average session duration"},
		"pages_per_session":    {Value: 2.5, Unit: "pages", Description: "Nonprofit average pages per session"},
		"engagement_rate":      {Value: 55, Unit: "%", Description: "GA4 engagement rate benchmark"},

		// Acquisition
		"organic_traffic_share":  {Value: 40, Unit: "%", Description: "Typical organic search traffic share"},
		"direct_traffic_share":   {Value: 25, Unit: "%", Description: "Typical direct traffic share"},
		"referral_traffic_share": {Value: 15, Unit: "%", Description: "Typical referral traffic share"},
		"social_traffic_share":   {Value: 10, Unit: "%", Description: "Typical social media traffic share"},

		// Audience
		"new_visitor_rate":     {Value: 70, Unit: "%", Description: "Typical new visitor percentage"},
		"mobile_traffic_share": {Value: 55, Unit: "%", Description: "Typical mobile traffic share"},

		// Search
		"avg_search_position": {Value: 15, Unit: "position", LowerIsBetter: true, Description: "Typical average search position"},
		"search_ctr":          {Value: 3, Unit: "%", Description: "Typical search CTR"},
	}
}

// Merge returns a new table with overrides applied on top of t.
func (t Table) Merge(overrides Table) Table {
	out := make(Table, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Value returns the benchmark value for name, if present.
func (t Table) Value(name string) (float64, bool) {
	b, ok := t[name]
	return b.Value, ok
}

// Names returns the metric names in sorted order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for k := range t {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Comparator compares values against a read-only benchmark table.
type Comparator struct {
	table Table
}

// Option configures a Comparator.
type Option func(*Comparator)

// WithTable replaces the benchmark table entirely.
func WithTable(t Table) Option {
	return func(c *Comparator) {
		c.table = t
	}
}

// WithOverrides layers custom benchmarks over the current table.
func WithOverrides(overrides Table) Option {
	return func(c *Comparator) {
		c.table = c.table.Merge(overrides)
	}
}

// New creates a comparator using the default table unless overridden.
func New(opts ...Option) *Comparator {
	c := &Comparator{table: DefaultTable()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Table returns the comparator's benchmark table.
func (c *Comparator) Table() Table {
	return c.table
}

// Compare compares value against the table entry for name. The second
// return value is false when no benchmark exists for the metric.
func (c *Comparator) Compare(name string, value float64) (models.BenchmarkComparison, bool) {
	b, ok := c.table[name]
	if !ok {
		return models.BenchmarkComparison{}, false
	}
	return compare(name, value, b.Value, b.LowerIsBetter), true
}

// CompareWith compares value against a caller-supplied benchmark. The
// metric's preferred direction still comes from the table when known.
func (c *Comparator) CompareWith(name string, value, benchmark float64) models.BenchmarkComparison {
	return compare(name, value, benchmark, c.table[name].LowerIsBetter)
}

// AnalyzeAll compares every metric that has a benchmark and silently
// skips the rest.
func (c *Comparator) AnalyzeAll(metrics map[string]float64) map[string]models.BenchmarkComparison {
	out := make(map[string]models.BenchmarkComparison, len(metrics))
	for name, value := range metrics {
		if cmp, ok := c.Compare(name, value); ok {
			out[name] = cmp
		}
	}
	return out
}

// Summarize buckets comparisons by outcome. Names within each bucket
// are sorted.
func Summarize(comparisons map[string]models.BenchmarkComparison) models.BenchmarkSummary {
	s := models.BenchmarkSummary{
		Outperforming:   []string{},
		Underperforming: []string{},
		AtBenchmark:     []string{},
		TotalCompared:   len(comparisons),
	}
	for name, cmp := range comparisons {
		switch cmp.Outcome() {
		case models.OutcomeOutperforming:
			s.Outperforming = append(s.Outperforming, name)
		case models.OutcomeUnderperforming:
			s.Underperforming = append(s.Underperforming, name)
		default:
			s.AtBenchmark = append(s.AtBenchmark, name)
		}
	}
	sort.Strings(s.Outperforming)
	sort.Strings(s.Underperforming)
	sort.Strings(s.AtBenchmark)
	s.OutperformingCount = len(s.Outperforming)
	s.UnderperformingCount = len(s.Underperforming)
	s.AtBenchmarkCount = len(s.AtBenchmark)
	return s
}

func compare(name string, value, benchmark float64, lowerIsBetter bool) models.BenchmarkComparison {
	diff := value - benchmark
	var diffPct float64
	if benchmark != 0 {
		diffPct = diff / benchmark * 100
	}

	perf := models.PerformanceAt
	if math.Abs(diffPct) >= atBenchmarkBand {
		if diff > 0 {
			perf = models.PerformanceAbove
		} else {
			perf = models.PerformanceBelow
		}
	}

	cmp := models.BenchmarkComparison{
		MetricName:     name,
		CurrentValue:   value,
		BenchmarkValue: benchmark,
		Difference:     diff,
		DifferencePct:  diffPct,
		Performance:    perf,
		LowerIsBetter:  lowerIsBetter,
	}
	cmp.Interpretation = interpret(cmp)
	return cmp
}

func interpret(cmp models.BenchmarkComparison) string {
	switch cmp.Outcome() {
	case models.OutcomeAtBenchmark:
		return fmt.Sprintf("Performing at industry benchmark (%.1f)", cmp.BenchmarkValue)
	case models.OutcomeOutperforming:
		return fmt.Sprintf("Outperforming benchmark by %.1f%% (%.1f vs %.1f)",
			math.Abs(cmp.DifferencePct), cmp.CurrentValue, cmp.BenchmarkValue)
	default:
		return fmt.Sprintf("Below benchmark by %.1f%% (%.1f vs %.1f)",
			math.Abs(cmp.DifferencePct), cmp.CurrentValue, cmp.BenchmarkValue)
	}
}
