package models

// TrendDirection classifies the shape of a series.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
	TrendVolatile   TrendDirection = "volatile"
)

// TrendResult summarizes a linear fit over an ordered series.
type TrendResult struct {
	Direction   TrendDirection `json:"direction"`
	Strength    float64        `json:"strength"` // R² of the fit, 0-1
	Slope       float64        `json:"slope"`    // percent of mean per step
	Description string         `json:"description"`
	Significant bool           `json:"significant"`
}

// AnomalyType says which side of the mean an anomaly fell on.
type AnomalyType string

const (
	AnomalySpike AnomalyType = "spike"
	AnomalyDrop  AnomalyType = "drop"
)

// AnomalyResult is a single point that deviated from the series.
type AnomalyResult struct {
	Date          string      `json:"date"`
	Metric        string      `json:"metric"`
	Value         float64     `json:"value"`
	ExpectedRange [2]float64  `json:"expected_range"`
	DeviationPct  float64     `json:"deviation_pct"`
	Type          AnomalyType `json:"anomaly_type"`
}
