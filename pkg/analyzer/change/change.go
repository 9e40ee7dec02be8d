// Package change computes period-over-period change records.
package change

import (
	"math"

	"github.com/panbanda/quarterly/pkg/format"
	"github.com/panbanda/quarterly/pkg/models"
)

const (
	// DefaultSignificantThreshold is the absolute percent change that
	// makes a change significant.
	DefaultSignificantThreshold = 10.0
	// DefaultAnomalyThreshold is the absolute percent change that makes a
	// change an anomaly.
	DefaultAnomalyThreshold = 25.0

	// neutralBand is the absolute percent change below which a change has
	// no direction.
	neutralBand = 0.5
)

type calculation struct {
	significant float64
	anomaly     float64
	inverse     bool
}

// Option configures a single calculation.
type Option func(*calculation)

// WithSignificantThreshold overrides the significance threshold.
func WithSignificantThreshold(pct float64) Option {
	return func(c *calculation) {
		c.significant = pct
	}
}

// WithAnomalyThreshold overrides the anomaly threshold.
func WithAnomalyThreshold(pct float64) Option {
	return func(c *calculation) {
		c.anomaly = pct
	}
}

// WithThresholds sets both thresholds at once.
func WithThresholds(significant, anomaly float64) Option {
	return func(c *calculation) {
		c.significant = significant
		c.anomaly = anomaly
	}
}

// WithInverse marks the metric as one where a decrease is favorable,
// such as bounce rate or search position.
func WithInverse(inverse bool) Option {
	return func(c *calculation) {
		c.inverse = inverse
	}
}

// Calculate compares current against previous.
//
// A zero previous value yields 0% when current is also zero and 100%
// otherwise. Direction is neutral inside the ±0.5% band; outside it the
// raw sign decides, flipped for inverse metrics. ChangePct itself is
// never flipped. Both thresholds are inclusive.
func Calculate(current, previous float64, opts ...Option) models.ChangeMetric {
	c := calculation{
		significant: DefaultSignificantThreshold,
		anomaly:     DefaultAnomalyThreshold,
	}
	for _, opt := range opts {
		opt(&c)
	}

	var pct float64
	switch {
	case previous == 0 && current == 0:
		pct = 0
	case previous == 0:
		pct = 100
	default:
		pct = (current - previous) / previous * 100
	}

	abs := math.Abs(pct)
	direction := models.DirectionNeutral
	if abs >= neutralBand {
		up := pct > 0
		if c.inverse {
			up = !up
		}
		if up {
			direction = models.DirectionUp
		} else {
			direction = models.DirectionDown
		}
	}

	return models.ChangeMetric{
		Current:           current,
		Previous:          previous,
		ChangePct:         pct,
		ChangeAbs:         current - previous,
		Direction:         direction,
		IsSignificant:     abs >= c.significant,
		IsAnomaly:         abs >= c.anomaly,
		FormattedChange:   format.SignedPercent(pct),
		FormattedCurrent:  format.Number(current),
		FormattedPrevious: format.Number(previous),
	}
}

// Calculator applies a fixed set of thresholds to many metrics.
type Calculator struct {
	significant float64
	anomaly     float64
}

// New creates a calculator with the given thresholds.
func New(significant, anomaly float64) *Calculator {
	return &Calculator{significant: significant, anomaly: anomaly}
}

// Default creates a calculator with the default thresholds.
func Default() *Calculator {
	return New(DefaultSignificantThreshold, DefaultAnomalyThreshold)
}

// SignificantThreshold returns the configured significance threshold.
func (c *Calculator) SignificantThreshold() float64 { return c.significant }

// AnomalyThreshold returns the configured anomaly threshold.
func (c *Calculator) AnomalyThreshold() float64 { return c.anomaly }

// Change calculates a single change with the calculator's thresholds.
func (c *Calculator) Change(current, previous float64, inverse bool) models.ChangeMetric {
	return Calculate(current, previous, WithThresholds(c.significant, c.anomaly), WithInverse(inverse))
}

// CompareAll calculates changes for every metric present in current.
// Metrics missing from previous are compared against zero. Names listed
// in inverse are treated as lower-is-better.
func (c *Calculator) CompareAll(current, previous map[string]float64, inverse ...string) map[string]models.ChangeMetric {
	inv := make(map[string]bool, len(inverse))
	for _, name := range inverse {
		inv[name] = true
	}
	out := make(map[string]models.ChangeMetric, len(current))
	for name, cur := range current {
		out[name] = c.Change(cur, previous[name], inv[name])
	}
	return out
}
