package insights

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/panbanda/quarterly/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullScenario() (*models.GA4Snapshot, *models.GA4Snapshot, *models.GSCSnapshot, *models.GSCSnapshot) {
	cur := &models.GA4Snapshot{
		TrafficOverview: &models.TrafficOverview{
			TotalUsers:         11000,
			NewUsers:           6000,
			BounceRate:         70,
			AvgSessionDuration: 200,
		},
		Channels: []models.ChannelRow{
			{Channel: "Organic Search", SessionShare: 20},
			{Channel: "Direct", SessionShare: 45},
		},
		Devices: []models.DeviceRow{
			{DeviceCategory: "mobile", UserShare: 60, BounceRate: 75},
			{DeviceCategory: "desktop", UserShare: 40, BounceRate: 55},
		},
	}
	prev := &models.GA4Snapshot{
		TrafficOverview: &models.TrafficOverview{TotalUsers: 10000, BounceRate: 65},
	}
	gscCur := &models.GSCSnapshot{Overview: &models.SearchOverview{TotalClicks: 500, AvgPosition: 8}}
	gscPrev := &models.GSCSnapshot{Overview: &models.SearchOverview{TotalClicks: 500, AvgPosition: 9}}
	return cur, prev, gscCur, gscPrev
}

func TestInsightsSortedByPriority(t *testing.T) {
	r := New().Analyze(fullScenario())
	insights := r.Insights()
	require.NotEmpty(t, insights)

	for i := 1; i < len(insights); i++ {
		assert.LessOrEqual(t, insights[i-1].Priority, insights[i].Priority)
	}

	// Ties keep pass registration order: engagement before acquisition.
	var order []string
	for _, i := range insights {
		if i.Priority == 2 {
			order = append(order, i.MetricName)
		}
	}
	assert.Equal(t, []string{"bounce_rate", "organic_share"}, order)
	assert.Equal(t, "mobile_bounce_rate", insights[0].MetricName)
}

func TestExecutiveSummary(t *testing.T) {
	cur := ga4(&models.TrafficOverview{
		TotalUsers:         11000,
		NewUsers:           6000,
		BounceRate:         70,
		AvgSessionDuration: 200,
	})
	prev := ga4(&models.TrafficOverview{TotalUsers: 10000, BounceRate: 70})

	r := New().Analyze(cur, prev, nil, nil)
	want := "Website traffic grew by 10.0% year-over-year, with 11,000 total visitors this quarter. " +
		"Key strength: Website traffic increased by 10.0% YoY. " +
		"Requires attention: Bounce rate (70.0%) significantly above nonprofit average."
	assert.Equal(t, want, r.ExecutiveSummary())
}

func TestExecutiveSummaryFullScenario(t *testing.T) {
	r := New().Analyze(fullScenario())
	summary := r.ExecutiveSummary()

	assert.Contains(t, summary, "Website traffic grew by 10.0% year-over-year")
	assert.Contains(t, summary, "Key strength: Website traffic increased by 10.0% YoY.")
	assert.Contains(t, summary, "Primary opportunity: Organic search opportunity (20.0% of traffic).")
	assert.Contains(t, summary, "Requires attention: Mobile experience needs attention.")
}

func TestExecutiveSummaryWithoutTrafficLead(t *testing.T) {
	r := New(WithComparison(models.ComparisonQoQ)).Analyze(nil, nil,
		&models.GSCSnapshot{Overview: &models.SearchOverview{TotalClicks: 100, AvgPosition: 25}}, nil)

	// Clicks rose from zero, which is significant and listed first.
	assert.Equal(t,
		"Key strength: Search clicks increased 100.0% QoQ. "+
			"Primary opportunity: Average search position needs improvement (25.0). "+
			"Requires attention: Search clicks increased 100.0% QoQ.",
		r.ExecutiveSummary())
}

func TestKeyRecommendations(t *testing.T) {
	r := New().Analyze(fullScenario())

	all := r.KeyRecommendations(100)
	for _, rec := range all {
		assert.NotEmpty(t, rec)
	}
	withRec := 0
	for _, i := range r.Insights() {
		if i.HasRecommendation() {
			withRec++
		}
	}
	assert.Len(t, all, withRec)

	top := r.KeyRecommendations(2)
	require.Len(t, top, 2)
	assert.Equal(t, all[:2], top)
	assert.Contains(t, top[0], "Prioritize mobile experience")

	assert.Len(t, r.KeyRecommendations(0), min(DefaultRecommendationLimit, withRec))
}

func TestKeyRecommendationsNotDeduplicated(t *testing.T) {
	r := &Result{insights: []models.Insight{
		{Priority: 1, Headline: "a", Recommendation: "same"},
		{Priority: 2, Headline: "b"},
		{Priority: 3, Headline: "c", Recommendation: "same"},
	}}
	assert.Equal(t, []string{"same", "same"}, r.KeyRecommendations(5))
}

func TestByCategory(t *testing.T) {
	r := New().Analyze(fullScenario())
	grouped := r.ByCategory()

	require.Contains(t, grouped, "acquisition")
	acq := grouped["acquisition"]
	require.Len(t, acq, 2)
	assert.Equal(t, "Organic search opportunity (20.0% of traffic)", acq[0].Headline)
	assert.Equal(t, models.InsightOpportunity, acq[0].Type)
	assert.Equal(t, 2, acq[0].Priority)
	assert.Equal(t, 4, acq[1].Priority)

	total := 0
	for _, briefs := range grouped {
		total += len(briefs)
	}
	assert.Equal(t, r.Len(), total)
}

func TestSummaryJSON(t *testing.T) {
	r := New().Analyze(fullScenario())
	data, err := json.Marshal(r.Summary())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"executive_summary", "key_recommendations", "insights", "insights_by_category"} {
		assert.Contains(t, decoded, key)
	}
}

func TestDedupe(t *testing.T) {
	in := []models.Insight{
		{Category: models.CategoryTraffic, Headline: "x", Priority: 3},
		{Category: models.CategoryTraffic, Headline: "x", Priority: 2},
		{Category: models.CategorySearch, Headline: "x", Priority: 2},
	}
	out := dedupe(in)
	require.Len(t, out, 2)
	assert.Equal(t, 3, out[0].Priority, "first occurrence wins")
}

func TestAnalyzeIsSafeForConcurrentUse(t *testing.T) {
	e := New()
	want := e.Analyze(fullScenario()).Insights()

	var wg sync.WaitGroup
	results := make([][]models.Insight, 8)
	for n := range results {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n] = e.Analyze(fullScenario()).Insights()
		}(n)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestRecords(t *testing.T) {
	r := New().Analyze(fullScenario())
	records := r.Records()
	require.Len(t, records, r.Len())

	for i, rec := range records {
		ins := r.Insights()[i]
		assert.Equal(t, ins.Headline, rec.Headline)
		assert.Equal(t, string(ins.Category), rec.Category)
		if ins.MetricChange != nil {
			assert.Equal(t, ins.MetricChange.FormattedChange, rec.Change)
		} else {
			assert.Empty(t, rec.Change)
		}
	}
}
