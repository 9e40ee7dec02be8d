package insights

import (
	"fmt"
	"math"
	"strings"

	"github.com/panbanda/quarterly/pkg/format"
	"github.com/panbanda/quarterly/pkg/models"
)

// FallbackSummary is returned when there are no insights to summarize.
const FallbackSummary = "Insufficient data to generate executive summary."

// Result holds the insights from a single Analyze call.
type Result struct {
	insights   []models.Insight
	comparison models.ComparisonType
}

// Insights returns the findings sorted by ascending priority.
func (r *Result) Insights() []models.Insight {
	out := make([]models.Insight, len(r.insights))
	copy(out, r.insights)
	return out
}

// Len returns the number of findings.
func (r *Result) Len() int { return len(r.insights) }

// ExecutiveSummary composes a short paragraph: a lead sentence on
// traffic, then the first strength, the first opportunity and the first
// high-priority issue, skipping any that are absent.
func (r *Result) ExecutiveSummary() string {
	if len(r.insights) == 0 {
		return FallbackSummary
	}

	var parts []string
	if lead, ok := r.first(func(i models.Insight) bool {
		return i.MetricName == "total_users" && i.MetricChange != nil
	}); ok {
		word := "declined"
		if lead.MetricChange.ChangePct > 0 {
			word = "grew"
		}
		parts = append(parts, fmt.Sprintf("Website traffic %s by %.1f%% %s, with %s total visitors this quarter.",
			word, math.Abs(lead.MetricChange.ChangePct), strings.ToLower(r.comparison.Label()),
			format.Number(lead.MetricValue)))
	}
	if win, ok := r.first(func(i models.Insight) bool { return i.Type == models.InsightPositive }); ok {
		parts = append(parts, fmt.Sprintf("Key strength: %s.", win.Headline))
	}
	if opp, ok := r.first(func(i models.Insight) bool { return i.Type == models.InsightOpportunity }); ok {
		parts = append(parts, fmt.Sprintf("Primary opportunity: %s.", opp.Headline))
	}
	if crit, ok := r.first(func(i models.Insight) bool { return i.Priority <= 2 }); ok {
		parts = append(parts, fmt.Sprintf("Requires attention: %s.", crit.Headline))
	}
	return strings.Join(parts, " ")
}

// KeyRecommendations returns up to limit recommendations in priority
// order. A non-positive limit uses DefaultRecommendationLimit.
// Identical recommendations are not collapsed.
func (r *Result) KeyRecommendations(limit int) []string {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	recs := make([]string, 0, limit)
	for _, i := range r.insights {
		if len(recs) == limit {
			break
		}
		if i.HasRecommendation() {
			recs = append(recs, i.Recommendation)
		}
	}
	return recs
}

// ByCategory groups condensed insights by category, keeping priority
// order within each group.
func (r *Result) ByCategory() map[string][]models.InsightBrief {
	grouped := make(map[string][]models.InsightBrief)
	for _, i := range r.insights {
		key := string(i.Category)
		grouped[key] = append(grouped[key], models.InsightBrief{
			Headline: i.Headline,
			Type:     i.Type,
			Priority: i.Priority,
		})
	}
	return grouped
}

// Summary is the serializable form consumed by exporters.
type Summary struct {
	ExecutiveSummary   string                           `json:"executive_summary"`
	KeyRecommendations []string                         `json:"key_recommendations"`
	Insights           []models.Insight                 `json:"insights"`
	ByCategory         map[string][]models.InsightBrief `json:"insights_by_category"`
}

// Summary flattens the result for export.
func (r *Result) Summary() Summary {
	return Summary{
		ExecutiveSummary:   r.ExecutiveSummary(),
		KeyRecommendations: r.KeyRecommendations(DefaultRecommendationLimit),
		Insights:           r.Insights(),
		ByCategory:         r.ByCategory(),
	}
}

func (r *Result) first(match func(models.Insight) bool) (models.Insight, bool) {
	for _, i := range r.insights {
		if match(i) {
			return i, true
		}
	}
	return models.Insight{}, false
}

// Record is a flat, display-ready row for tabular exporters.
type Record struct {
	Priority       int    `json:"priority"`
	Category       string `json:"category"`
	Type           string `json:"type"`
	Headline       string `json:"headline"`
	Detail         string `json:"detail"`
	Change         string `json:"change,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

// Records flattens the insights in priority order.
func (r *Result) Records() []Record {
	out := make([]Record, 0, len(r.insights))
	for _, i := range r.insights {
		rec := Record{
			Priority:       i.Priority,
			Category:       string(i.Category),
			Type:           string(i.Type),
			Headline:       i.Headline,
			Detail:         i.Detail,
			Recommendation: i.Recommendation,
		}
		if i.MetricChange != nil {
			rec.Change = i.MetricChange.FormattedChange
		}
		out = append(out, rec)
	}
	return out
}
