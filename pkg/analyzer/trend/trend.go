// Package trend fits linear trends to metric series and flags points
// that deviate from them.
package trend

import (
	"fmt"
	"math"

	"github.com/panbanda/quarterly/pkg/format"
	"github.com/panbanda/quarterly/pkg/models"
	"github.com/panbanda/quarterly/pkg/stats"
)

const (
	// DefaultSensitivity is the number of standard deviations a point
	// must sit from the mean to count as an anomaly.
	DefaultSensitivity = 2.0

	minTrendPoints   = 3
	minAnomalyPoints = 5

	volatileCV       = 0.5
	stableRelSlope   = 1.0
	significantSlope = 5.0
	significantRSq   = 0.3

	// minDeviationPerSigma scales sensitivity into the default minimum
	// percent deviation.
	minDeviationPerSigma = 50.0
)

// Point is one observation in an ordered series. Only order matters to
// the fit; labels are carried through to anomalies.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Values extracts the values of points in order.
func Values(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// Analyzer analyzes ordered metric series.
type Analyzer struct {
	sensitivity float64
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithSensitivity sets the anomaly sensitivity in standard deviations.
func WithSensitivity(s float64) Option {
	return func(a *Analyzer) {
		a.sensitivity = s
	}
}

// New creates a trend analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{sensitivity: DefaultSensitivity}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Sensitivity returns the configured anomaly sensitivity.
func (a *Analyzer) Sensitivity() float64 { return a.sensitivity }

// AnalyzeTrend fits a least-squares line against the point index.
//
// Slope is reported relative to the mean, in percent per step. A
// coefficient of variation above 0.5 marks the series volatile
// regardless of slope; otherwise a relative slope under 1% is stable.
// A trend is significant only when the relative slope exceeds 5% and
// R² exceeds 0.3.
func (a *Analyzer) AnalyzeTrend(points []Point) models.TrendResult {
	if len(points) < minTrendPoints {
		return models.TrendResult{
			Direction:   models.TrendStable,
			Description: "Insufficient data for trend analysis",
		}
	}

	values := Values(points)
	fit := stats.FitIndex(values)
	mean := stats.Mean(values)

	var relSlope, cv float64
	if mean != 0 {
		relSlope = fit.Slope / mean * 100
		cv = stats.PopStdDev(values) / mean
	}

	var direction models.TrendDirection
	switch {
	case cv > volatileCV:
		direction = models.TrendVolatile
	case math.Abs(relSlope) < stableRelSlope:
		direction = models.TrendStable
	case fit.Slope > 0:
		direction = models.TrendIncreasing
	default:
		direction = models.TrendDecreasing
	}

	var desc string
	switch direction {
	case models.TrendStable:
		desc = fmt.Sprintf("Metric remained relatively stable around %s", format.Number(math.Round(mean)))
	case models.TrendVolatile:
		desc = fmt.Sprintf("High volatility detected (CV: %.1f%%)", cv*100)
	case models.TrendIncreasing:
		desc = fmt.Sprintf("Metric increased by approximately %.1f%% over the period", math.Abs(relSlope))
	default:
		desc = fmt.Sprintf("Metric decreased by approximately %.1f%% over the period", math.Abs(relSlope))
	}

	return models.TrendResult{
		Direction:   direction,
		Strength:    fit.RSquared,
		Slope:       relSlope,
		Description: desc,
		Significant: math.Abs(relSlope) > significantSlope && fit.RSquared > significantRSq,
	}
}

type anomalyConfig struct {
	minDeviation *float64
}

// AnomalyOption configures a single anomaly scan.
type AnomalyOption func(*anomalyConfig)

// WithMinDeviation sets the minimum absolute percent deviation from the
// mean a point needs to be reported. Defaults to sensitivity × 50.
func WithMinDeviation(pct float64) AnomalyOption {
	return func(c *anomalyConfig) {
		c.minDeviation = &pct
	}
}

// DetectAnomalies flags points further than sensitivity standard
// deviations from the mean that also deviate by at least the minimum
// percentage. Series shorter than five points, or with no variance,
// have no anomalies.
func (a *Analyzer) DetectAnomalies(metric string, points []Point, opts ...AnomalyOption) []models.AnomalyResult {
	if len(points) < minAnomalyPoints {
		return nil
	}

	cfg := anomalyConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	minDev := a.sensitivity * minDeviationPerSigma
	if cfg.minDeviation != nil {
		minDev = *cfg.minDeviation
	}

	values := Values(points)
	mean := stats.Mean(values)
	std := stats.PopStdDev(values)
	if std == 0 {
		return nil
	}
	threshold := a.sensitivity * std

	var anomalies []models.AnomalyResult
	for _, p := range points {
		if math.Abs(p.Value-mean) <= threshold {
			continue
		}
		var devPct float64
		if mean != 0 {
			devPct = (p.Value - mean) / mean * 100
		}
		if math.Abs(devPct) < minDev {
			continue
		}
		kind := models.AnomalyDrop
		if p.Value > mean {
			kind = models.AnomalySpike
		}
		anomalies = append(anomalies, models.AnomalyResult{
			Date:          p.Label,
			Metric:        metric,
			Value:         p.Value,
			ExpectedRange: [2]float64{mean - std, mean + std},
			DeviationPct:  devPct,
			Type:          kind,
		})
	}
	return anomalies
}

// ComparePeriods compares two series by mean and total. Returns an
// empty map when either series is empty.
func ComparePeriods(current, previous []float64) map[string]float64 {
	if len(current) == 0 || len(previous) == 0 {
		return map[string]float64{}
	}

	curMean, prevMean := stats.Mean(current), stats.Mean(previous)
	curTotal, prevTotal := stats.Sum(current), stats.Sum(previous)

	return map[string]float64{
		"current_mean":     curMean,
		"previous_mean":    prevMean,
		"mean_change_pct":  percentChange(curMean, prevMean),
		"current_total":    curTotal,
		"previous_total":   prevTotal,
		"total_change_pct": percentChange(curTotal, prevTotal),
		"current_min":      stats.Min(current),
		"current_max":      stats.Max(current),
		"previous_min":     stats.Min(previous),
		"previous_max":     stats.Max(previous),
	}
}

// PeriodSummary describes a single series. Returns an empty map for an
// empty series.
func PeriodSummary(values []float64) map[string]float64 {
	if len(values) == 0 {
		return map[string]float64{}
	}
	lo, hi := stats.Min(values), stats.Max(values)
	return map[string]float64{
		"count":  float64(len(values)),
		"sum":    stats.Sum(values),
		"mean":   stats.Mean(values),
		"median": stats.Median(values),
		"std":    stats.PopStdDev(values),
		"min":    lo,
		"max":    hi,
		"range":  hi - lo,
	}
}

func percentChange(cur, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}
