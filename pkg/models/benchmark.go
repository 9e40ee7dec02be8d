package models

// Benchmark is an industry reference value for a metric.
type Benchmark struct {
	Value         float64 `json:"value" toml:"value"`
	Unit          string  `json:"unit" toml:"unit"`
	LowerIsBetter bool    `json:"lower_is_better" toml:"lower_is_better"`
	Description   string  `json:"description" toml:"description"`
}

// Performance is the raw arithmetic position of a value against its benchmark.
type Performance string

const (
	PerformanceAbove Performance = "above"
	PerformanceBelow Performance = "below"
	PerformanceAt    Performance = "at"
)

// Outcome is the favorability of a benchmark comparison once the
// metric's preferred direction is taken into account.
type Outcome string

const (
	OutcomeOutperforming   Outcome = "outperforming"
	OutcomeUnderperforming Outcome = "underperforming"
	OutcomeAtBenchmark     Outcome = "at_benchmark"
)

// BenchmarkComparison is the result of comparing a value to a benchmark.
type BenchmarkComparison struct {
	MetricName     string      `json:"metric_name"`
	CurrentValue   float64     `json:"current_value"`
	BenchmarkValue float64     `json:"benchmark_value"`
	Difference     float64     `json:"difference"`
	DifferencePct  float64     `json:"difference_pct"`
	Performance    Performance `json:"performance"`
	LowerIsBetter  bool        `json:"lower_is_better"`
	Interpretation string      `json:"interpretation"`
}

// Outcome classifies the comparison as good, bad or on par. Interpretation
// text and summary bucketing both derive from this.
func (b BenchmarkComparison) Outcome() Outcome {
	switch b.Performance {
	case PerformanceAt:
		return OutcomeAtBenchmark
	case PerformanceAbove:
		if b.LowerIsBetter {
			return OutcomeUnderperforming
		}
		return OutcomeOutperforming
	default:
		if b.LowerIsBetter {
			return OutcomeOutperforming
		}
		return OutcomeUnderperforming
	}
}

// BenchmarkSummary buckets a set of comparisons by outcome.
type BenchmarkSummary struct {
	Outperforming        []string `json:"outperforming"`
	Underperforming      []string `json:"underperforming"`
	AtBenchmark          []string `json:"at_benchmark"`
	OutperformingCount   int      `json:"outperforming_count"`
	UnderperformingCount int      `json:"underperforming_count"`
	AtBenchmarkCount     int      `json:"at_benchmark_count"`
	TotalCompared        int      `json:"total_compared"`
}
