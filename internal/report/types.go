package report

import (
	"time"

	"github.com/panbanda/quarterly/internal/pagespeed"
	"github.com/panbanda/quarterly/internal/snapshot"
	"github.com/panbanda/quarterly/pkg/analyzer/insights"
	"github.com/panbanda/quarterly/pkg/models"
)

// Metadata identifies a generated report.
type Metadata struct {
	ID                string                `json:"id"`
	Client            string                `json:"client_name"`
	ClientDisplayName string                `json:"client_display_name"`
	Quarter           string                `json:"quarter"`
	Year              int                   `json:"year"`
	GeneratedAt       time.Time             `json:"generated_at"`
	CurrentPeriod     models.DatePeriod     `json:"current_period"`
	PreviousPeriod    models.DatePeriod     `json:"previous_period"`
	ComparisonType    models.ComparisonType `json:"comparison_type"`
	Sources           []snapshot.Meta       `json:"sources,omitempty"`
	MissingSources    []string              `json:"missing_sources,omitempty"`
	Version           string                `json:"version,omitempty"`
}

// Periods returns the resolved current and previous periods.
func (m Metadata) Periods() models.ComparisonPeriods {
	return models.ComparisonPeriods{
		Current:  m.CurrentPeriod,
		Previous: m.PreviousPeriod,
		Type:     m.ComparisonType,
	}
}

// Comparison holds period-over-period changes.
type Comparison struct {
	Traffic         map[string]models.ChangeMetric `json:"traffic_overview"`
	Search          map[string]models.ChangeMetric `json:"search_overview"`
	MonthlySessions map[string]float64             `json:"monthly_sessions,omitempty"`
}

// Benchmarks holds the benchmark run over current-period metrics.
type Benchmarks struct {
	Comparisons map[string]models.BenchmarkComparison `json:"comparisons"`
	Summary     models.BenchmarkSummary               `json:"summary"`
}

// SearchTrend describes daily search clicks across the current period.
type SearchTrend struct {
	Clicks    models.TrendResult     `json:"clicks"`
	Anomalies []models.AnomalyResult `json:"anomalies"`
	Summary   map[string]float64     `json:"summary"`
}

// Report is a complete quarterly report.
type Report struct {
	Metadata    Metadata            `json:"metadata"`
	GA4         *models.GA4Snapshot `json:"ga4,omitempty"`
	GA4Previous *models.GA4Snapshot `json:"ga4_previous,omitempty"`
	GSC         *models.GSCSnapshot `json:"gsc,omitempty"`
	GSCPrevious *models.GSCSnapshot `json:"gsc_previous,omitempty"`
	Comparison  Comparison          `json:"comparison"`
	Benchmarks  Benchmarks          `json:"benchmarks"`
	Insights    insights.Summary    `json:"insights"`
	SearchTrend *SearchTrend        `json:"search_trend,omitempty"`
	PageSpeed   *pagespeed.Overview `json:"pagespeed,omitempty"`
}
