package models

// InsightCategory groups insights by the area of the site they describe.
type InsightCategory string

const (
	CategoryTraffic     InsightCategory = "traffic"
	CategoryEngagement  InsightCategory = "engagement"
	CategoryAcquisition InsightCategory = "acquisition"
	CategoryContent     InsightCategory = "content"
	CategorySearch      InsightCategory = "search"
	CategoryOpportunity InsightCategory = "opportunity"
	CategoryPerformance InsightCategory = "performance"
)

// InsightType is the tone of an insight.
type InsightType string

const (
	InsightPositive    InsightType = "positive"
	InsightNegative    InsightType = "negative"
	InsightNeutral     InsightType = "neutral"
	InsightOpportunity InsightType = "opportunity"
)

// Priority ranges from 1 (highest) to 5 (lowest).
const (
	PriorityHighest = 1
	PriorityLowest  = 5
)

// Insight is a templated observation about the report data.
type Insight struct {
	Category       InsightCategory    `json:"category"`
	Type           InsightType        `json:"type"`
	Priority       int                `json:"priority"`
	Headline       string             `json:"headline"`
	Detail         string             `json:"detail"`
	MetricName     string             `json:"metric_name,omitempty"`
	MetricValue    float64            `json:"metric_value,omitempty"`
	MetricChange   *ChangeMetric      `json:"metric_change,omitempty"`
	Recommendation string             `json:"recommendation,omitempty"`
	DataPoints     map[string]float64 `json:"data_points,omitempty"`
}

// HasRecommendation reports whether the insight carries an action.
func (i Insight) HasRecommendation() bool { return i.Recommendation != "" }

// InsightBrief is the condensed form used in per-category listings.
type InsightBrief struct {
	Headline string      `json:"headline"`
	Type     InsightType `json:"type"`
	Priority int         `json:"priority"`
}
