package models

import "strings"

// TrafficOverview holds the site-wide analytics totals for a period.
type TrafficOverview struct {
	TotalUsers         float64 `json:"total_users"`
	NewUsers           float64 `json:"new_users"`
	Sessions           float64 `json:"sessions"`
	Pageviews          float64 `json:"pageviews"`
	BounceRate         float64 `json:"bounce_rate"`          // 0-100
	AvgSessionDuration float64 `json:"avg_session_duration"` // seconds
	PagesPerSession    float64 `json:"pages_per_session"`
	EngagementRate     float64 `json:"engagement_rate"` // 0-100
}

// NewUserPercentage returns new users as a share of all users, or 0 when
// there were no users.
func (t TrafficOverview) NewUserPercentage() float64 {
	if t.TotalUsers <= 0 {
		return 0
	}
	return t.NewUsers / t.TotalUsers * 100
}

// Metrics returns the overview as named values for comparison tables.
func (t TrafficOverview) Metrics() map[string]float64 {
	return map[string]float64{
		"total_users":          t.TotalUsers,
		"new_users":            t.NewUsers,
		"sessions":             t.Sessions,
		"pageviews":            t.Pageviews,
		"bounce_rate":          t.BounceRate,
		"avg_session_duration": t.AvgSessionDuration,
		"pages_per_session":    t.PagesPerSession,
		"engagement_rate":      t.EngagementRate,
	}
}

// ChannelRow is one acquisition channel's share of sessions.
type ChannelRow struct {
	Channel      string  `json:"channel_name"`
	Sessions     float64 `json:"sessions"`
	SessionShare float64 `json:"session_share"` // 0-100
}

// MetricKey converts the channel name into a benchmark key, e.g.
// "Organic Search" becomes "organic_search_traffic_share".
func (c ChannelRow) MetricKey() string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(c.Channel)), " ", "_") + "_traffic_share"
}

// PageRow is one page's share of pageviews.
type PageRow struct {
	PagePath   string  `json:"page_path"`
	Pageviews  float64 `json:"pageviews"`
	PctOfTotal float64 `json:"pct_of_total"`
}

// DeviceRow is one device category's engagement.
type DeviceRow struct {
	DeviceCategory string  `json:"device_category"`
	BounceRate     float64 `json:"bounce_rate"`
	UserShare      float64 `json:"user_share"`
}

// MonthRow holds monthly totals keyed by a YYYYMM string.
type MonthRow struct {
	Month     string  `json:"month"`
	Users     float64 `json:"users"`
	Sessions  float64 `json:"sessions"`
	Pageviews float64 `json:"pageviews"`
}

// GA4Snapshot is everything the web analytics collaborator supplies for
// one period. Absent sections are nil or empty.
type GA4Snapshot struct {
	TrafficOverview *TrafficOverview `json:"traffic_overview,omitempty"`
	Channels        []ChannelRow     `json:"traffic_by_channel,omitempty"`
	TopPages        []PageRow        `json:"top_pages,omitempty"`
	Devices         []DeviceRow      `json:"device_breakdown,omitempty"`
	Months          []MonthRow       `json:"traffic_by_month,omitempty"`
}

// Channel returns the row whose name matches case-insensitively.
func (s *GA4Snapshot) Channel(name string) (ChannelRow, bool) {
	if s == nil {
		return ChannelRow{}, false
	}
	for _, row := range s.Channels {
		if strings.EqualFold(row.Channel, name) {
			return row, true
		}
	}
	return ChannelRow{}, false
}

// Device returns the row for the given device category.
func (s *GA4Snapshot) Device(category string) (DeviceRow, bool) {
	if s == nil {
		return DeviceRow{}, false
	}
	for _, row := range s.Devices {
		if strings.EqualFold(row.DeviceCategory, category) {
			return row, true
		}
	}
	return DeviceRow{}, false
}

// SearchOverview holds the search console totals for a period.
type SearchOverview struct {
	TotalClicks      float64 `json:"total_clicks"`
	TotalImpressions float64 `json:"total_impressions"`
	AvgCTR           float64 `json:"avg_ctr"` // percent
	AvgPosition      float64 `json:"avg_position"`
}

// Metrics returns the overview as named values for comparison tables.
func (s SearchOverview) Metrics() map[string]float64 {
	return map[string]float64{
		"total_clicks":      s.TotalClicks,
		"total_impressions": s.TotalImpressions,
		"avg_ctr":           s.AvgCTR,
		"avg_position":      s.AvgPosition,
	}
}

// KeywordOpportunity is a query with many impressions but a weak CTR.
type KeywordOpportunity struct {
	Query            string  `json:"query"`
	Clicks           float64 `json:"clicks"`
	Impressions      float64 `json:"impressions"`
	CTR              float64 `json:"ctr"`
	Position         float64 `json:"position"`
	OpportunityScore float64 `json:"opportunity_score"`
}

// DailySearchRow is one day of search performance.
type DailySearchRow struct {
	Date        string  `json:"date"`
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
	CTR         float64 `json:"ctr"`
	Position    float64 `json:"position"`
}

// GSCSnapshot is everything the search console collaborator supplies for
// one period.
type GSCSnapshot struct {
	Overview             *SearchOverview      `json:"overview,omitempty"`
	KeywordOpportunities []KeywordOpportunity `json:"keyword_opportunities,omitempty"`
	Daily                []DailySearchRow     `json:"daily_performance,omitempty"`
}
