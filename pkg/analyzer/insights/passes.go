package insights

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/panbanda/quarterly/pkg/analyzer/change"
	"github.com/panbanda/quarterly/pkg/format"
	"github.com/panbanda/quarterly/pkg/models"
)

// Trigger levels for the rule battery.
const (
	newUserHighPct        = 80.0
	newUserLowPct         = 50.0
	bounceMargin          = 10.0
	durationHighFactor    = 1.5
	durationLowFactor     = 0.5
	organicMargin         = 15.0
	directHighPct         = 40.0
	homepageHighPct       = 50.0
	topPagesHighPct       = 70.0
	topPagesCount         = 3
	clicksSignificantPct  = 10.0
	positionPoor          = 20.0
	positionStrong        = 10.0
	minKeywordOpportunity = 5
	mobileShareHighPct    = 50.0
	mobileBounceMargin    = 10.0
)

// trafficPass reports significant swings in visitors and the new versus
// returning mix.
func trafficPass(e *Engine, in *input, out *[]models.Insight) {
	cur := overview(in.ga4Current)
	if cur == nil {
		return
	}
	var prevUsers float64
	if prev := overview(in.ga4Previous); prev != nil {
		prevUsers = prev.TotalUsers
	}

	users := e.calc(cur.TotalUsers, prevUsers, false)
	if users.IsSignificant {
		increased := users.ChangePct > 0
		word, kind := "decreased", models.InsightNegative
		if increased {
			word, kind = "increased", models.InsightPositive
		}
		priority := 3
		if users.IsAnomaly {
			priority = 2
		}
		*out = append(*out, models.Insight{
			Category: models.CategoryTraffic,
			Type:     kind,
			Priority: priority,
			Headline: fmt.Sprintf("Website traffic %s by %.1f%% %s", word, math.Abs(users.ChangePct), e.comparison.Short()),
			Detail: fmt.Sprintf("Total visitors went from %s to %s. This represents a %s user difference.",
				users.FormattedPrevious, users.FormattedCurrent, format.Number(math.Round(math.Abs(users.ChangeAbs)))),
			MetricName:     "total_users",
			MetricValue:    cur.TotalUsers,
			MetricChange:   &users,
			Recommendation: trafficRecommendation(users),
			DataPoints: map[string]float64{
				"current":  users.Current,
				"previous": users.Previous,
			},
		})
	}

	if cur.TotalUsers <= 0 {
		return
	}
	newPct := cur.NewUserPercentage()
	switch {
	case newPct > newUserHighPct:
		*out = append(*out, models.Insight{
			Category: models.CategoryTraffic,
			Type:     models.InsightOpportunity,
			Priority: 3,
			Headline: fmt.Sprintf("%.0f%% of visitors are new users", newPct),
			Detail: "High new user percentage indicates strong awareness-building but potential " +
				"opportunity to improve retention and return visits.",
			MetricName:  "new_user_percentage",
			MetricValue: newPct,
			Recommendation: "Consider implementing email newsletter signup, retargeting campaigns, " +
				"or engaging content series to bring visitors back.",
		})
	case newPct < newUserLowPct:
		*out = append(*out, models.Insight{
			Category: models.CategoryTraffic,
			Type:     models.InsightPositive,
			Priority: 4,
			Headline: "Strong returning visitor base",
			Detail: fmt.Sprintf("Only %.0f%% of visitors are new, indicating high engagement "+
				"and loyalty from existing audience.", newPct),
			MetricName:  "new_user_percentage",
			MetricValue: newPct,
			Recommendation: "Focus on expanding reach to new audiences while maintaining " +
				"engagement with loyal visitors.",
		})
	}
}

func trafficRecommendation(c models.ChangeMetric) string {
	if c.ChangePct < 0 {
		if c.IsAnomaly {
			return "Urgent: Investigate significant traffic decline. Check for technical issues, " +
				"algorithm updates, or seasonal factors. Review acquisition channels to identify source."
		}
		return "Monitor traffic trends and review marketing channel performance. " +
			"Consider increasing promotion or content freshness."
	}
	return "Maintain momentum by analyzing what's working. Document successful strategies " +
		"and apply learnings to underperforming areas."
}

// engagementPass compares bounce rate and session duration to their
// benchmarks. A zero value means the metric was not reported.
func engagementPass(e *Engine, in *input, out *[]models.Insight) {
	cur := overview(in.ga4Current)
	if cur == nil {
		return
	}
	prev := overview(in.ga4Previous)
	if prev == nil {
		prev = &models.TrafficOverview{}
	}

	if bounce := cur.BounceRate; bounce > 0 {
		bm := e.benchmarkValue("bounce_rate", 55)
		bounceChange := e.calc(bounce, prev.BounceRate, true)
		switch {
		case bounce > bm+bounceMargin:
			*out = append(*out, models.Insight{
				Category: models.CategoryEngagement,
				Type:     models.InsightNegative,
				Priority: 2,
				Headline: fmt.Sprintf("Bounce rate (%.1f%%) significantly above nonprofit average", bounce),
				Detail: fmt.Sprintf("The current bounce rate is %.1f%% higher than the typical nonprofit "+
					"benchmark of %s%%. This may indicate content mismatch or poor user experience.",
					bounce-bm, plain(bm)),
				MetricName:   "bounce_rate",
				MetricValue:  bounce,
				MetricChange: &bounceChange,
				Recommendation: "Review top landing pages for relevance, improve page load speed, " +
					"and ensure clear calls-to-action above the fold.",
				DataPoints: map[string]float64{"benchmark": bm},
			})
		case bounce < bm-bounceMargin:
			*out = append(*out, models.Insight{
				Category: models.CategoryEngagement,
				Type:     models.InsightPositive,
				Priority: 4,
				Headline: fmt.Sprintf("Excellent bounce rate at %.1f%%", bounce),
				Detail: fmt.Sprintf("Bounce rate is %.1f%% better than the nonprofit average of %s%%. "+
					"Visitors are engaging with content.", bm-bounce, plain(bm)),
				MetricName:   "bounce_rate",
				MetricValue:  bounce,
				MetricChange: &bounceChange,
				DataPoints:   map[string]float64{"benchmark": bm},
			})
		}
	}

	if duration := cur.AvgSessionDuration; duration > 0 {
		bm := e.benchmarkValue("avg_session_duration", 120)
		switch {
		case duration > bm*durationHighFactor:
			*out = append(*out, models.Insight{
				Category: models.CategoryEngagement,
				Type:     models.InsightPositive,
				Priority: 3,
				Headline: fmt.Sprintf("Above-average session duration (%.1f min)", duration/60),
				Detail: "Visitors are spending significantly more time on the site than typical, " +
					"indicating high-quality, engaging content.",
				MetricName:  "avg_session_duration",
				MetricValue: duration,
				Recommendation: "Identify top-performing content and apply similar patterns " +
					"to underperforming pages.",
				DataPoints: map[string]float64{"benchmark": bm},
			})
		case duration < bm*durationLowFactor:
			*out = append(*out, models.Insight{
				Category: models.CategoryEngagement,
				Type:     models.InsightNegative,
				Priority: 2,
				Headline: fmt.Sprintf("Low session duration (%.1f min)", duration/60),
				Detail: fmt.Sprintf("Average session duration of %.0f seconds is below the benchmark of "+
					"%s seconds. Visitors may not be finding what they need.", duration, plain(bm)),
				MetricName:  "avg_session_duration",
				MetricValue: duration,
				Recommendation: "Improve content depth, add internal linking, and create " +
					"clear pathways to keep visitors engaged.",
				DataPoints: map[string]float64{"benchmark": bm},
			})
		}
	}
}

// acquisitionPass looks at organic search and direct channel shares.
func acquisitionPass(e *Engine, in *input, out *[]models.Insight) {
	if in.ga4Current == nil || len(in.ga4Current.Channels) == 0 {
		return
	}

	if organic, ok := in.ga4Current.Channel("organic search"); ok {
		share := organic.SessionShare
		bm := e.benchmarkValue("organic_traffic_share", 40)
		switch {
		case share > bm+organicMargin:
			*out = append(*out, models.Insight{
				Category: models.CategoryAcquisition,
				Type:     models.InsightPositive,
				Priority: 3,
				Headline: fmt.Sprintf("Strong organic search presence (%.1f%% of traffic)", share),
				Detail: "Organic search is driving a significant portion of traffic, " +
					"indicating good SEO performance and content visibility.",
				MetricName:  "organic_share",
				MetricValue: share,
				DataPoints:  map[string]float64{"benchmark": bm},
			})
		case share < bm-organicMargin:
			*out = append(*out, models.Insight{
				Category: models.CategoryAcquisition,
				Type:     models.InsightOpportunity,
				Priority: 2,
				Headline: fmt.Sprintf("Organic search opportunity (%.1f%% of traffic)", share),
				Detail: fmt.Sprintf("Organic search accounts for only %.1f%% of traffic, below the "+
					"nonprofit average of %s%%. SEO improvements could significantly increase reach.",
					share, plain(bm)),
				MetricName:  "organic_share",
				MetricValue: share,
				Recommendation: "Invest in content marketing, keyword optimization, and " +
					"technical SEO to improve organic visibility.",
				DataPoints: map[string]float64{"benchmark": bm},
			})
		}
	}

	if direct, ok := in.ga4Current.Channel("direct"); ok && direct.SessionShare > directHighPct {
		*out = append(*out, models.Insight{
			Category: models.CategoryAcquisition,
			Type:     models.InsightNeutral,
			Priority: 4,
			Headline: fmt.Sprintf("High direct traffic (%.1f%%)", direct.SessionShare),
			Detail: "High direct traffic often indicates strong brand recognition, " +
				"but may also include untracked referrals or dark social shares.",
			MetricName:  "direct_share",
			MetricValue: direct.SessionShare,
			Recommendation: "Ensure proper UTM tagging on all campaigns and consider " +
				"implementing link tracking for better attribution.",
		})
	}
}

// contentPass checks how concentrated pageviews are on the homepage and
// on the top few pages.
func contentPass(e *Engine, in *input, out *[]models.Insight) {
	if in.ga4Current == nil || len(in.ga4Current.TopPages) == 0 {
		return
	}
	pages := in.ga4Current.TopPages

	var homeShare float64
	var homeFound bool
	for _, p := range pages {
		if e.isHomepage(p.PagePath) {
			homeShare += p.PctOfTotal
			homeFound = true
		}
	}
	if homeFound && homeShare > homepageHighPct {
		*out = append(*out, models.Insight{
			Category: models.CategoryContent,
			Type:     models.InsightOpportunity,
			Priority: 3,
			Headline: fmt.Sprintf("High homepage concentration (%.1f%% of pageviews)", homeShare),
			Detail: "More than half of all pageviews go to the homepage. This may indicate " +
				"weak internal linking or underperforming deeper content.",
			MetricName:  "homepage_share",
			MetricValue: homeShare,
			Recommendation: "Strengthen calls-to-action on homepage, improve internal linking, " +
				"and promote specific content/programs more prominently.",
		})
	}

	if len(pages) < topPagesCount {
		return
	}
	ranked := make([]models.PageRow, len(pages))
	copy(ranked, pages)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Pageviews > ranked[j].Pageviews
	})
	var topShare float64
	for _, p := range ranked[:topPagesCount] {
		topShare += p.PctOfTotal
	}
	if topShare > topPagesHighPct {
		*out = append(*out, models.Insight{
			Category: models.CategoryContent,
			Type:     models.InsightOpportunity,
			Priority: 3,
			Headline: fmt.Sprintf("Traffic concentrated in top 3 pages (%.1f%%)", topShare),
			Detail: "The majority of traffic goes to just 3 pages. There may be an " +
				"opportunity to promote other valuable content.",
			MetricName:  "top_3_concentration",
			MetricValue: topShare,
			Recommendation: "Review analytics for underperforming pages with high-value content. " +
				"Consider refreshing or repromoting them.",
		})
	}
}

func (e *Engine) isHomepage(path string) bool {
	for _, h := range e.homepagePaths {
		if path == h {
			return true
		}
	}
	return false
}

// searchPass reports click swings, average position and keyword
// opportunities from search console data.
func searchPass(e *Engine, in *input, out *[]models.Insight) {
	if in.gscCurrent == nil {
		return
	}

	if cur := in.gscCurrent.Overview; cur != nil {
		prev := &models.SearchOverview{}
		if in.gscPrevious != nil && in.gscPrevious.Overview != nil {
			prev = in.gscPrevious.Overview
		}

		clicks := change.Calculate(cur.TotalClicks, prev.TotalClicks,
			change.WithThresholds(clicksSignificantPct, e.anomaly))
		if clicks.IsSignificant {
			word, kind := "decreased", models.InsightNegative
			if clicks.ChangePct > 0 {
				word, kind = "increased", models.InsightPositive
			}
			*out = append(*out, models.Insight{
				Category: models.CategorySearch,
				Type:     kind,
				Priority: 2,
				Headline: fmt.Sprintf("Search clicks %s %.1f%% %s", word, math.Abs(clicks.ChangePct), e.comparison.Short()),
				Detail: fmt.Sprintf("Total search clicks went from %s to %s. This reflects changes in search visibility.",
					clicks.FormattedPrevious, clicks.FormattedCurrent),
				MetricName:   "total_clicks",
				MetricValue:  cur.TotalClicks,
				MetricChange: &clicks,
			})
		}

		if pos := cur.AvgPosition; pos > 0 {
			posChange := e.calc(pos, prev.AvgPosition, true)
			switch {
			case pos > positionPoor:
				*out = append(*out, models.Insight{
					Category: models.CategorySearch,
					Type:     models.InsightOpportunity,
					Priority: 2,
					Headline: fmt.Sprintf("Average search position needs improvement (%.1f)", pos),
					Detail: "Average position is beyond page 2 of search results. Most clicks " +
						"happen on page 1 (positions 1-10).",
					MetricName:   "avg_position",
					MetricValue:  pos,
					MetricChange: &posChange,
					Recommendation: "Focus on improving rankings for high-impression keywords. " +
						"Consider content optimization and link building.",
				})
			case pos <= positionStrong:
				*out = append(*out, models.Insight{
					Category:     models.CategorySearch,
					Type:         models.InsightPositive,
					Priority:     3,
					Headline:     fmt.Sprintf("Strong search visibility (avg position: %.1f)", pos),
					Detail:       "Average position is on page 1 of search results, where most clicks occur.",
					MetricName:   "avg_position",
					MetricValue:  pos,
					MetricChange: &posChange,
				})
			}
		}
	}

	if opps := in.gscCurrent.KeywordOpportunities; len(opps) >= minKeywordOpportunity {
		var impressions float64
		for _, k := range opps {
			impressions += k.Impressions
		}
		*out = append(*out, models.Insight{
			Category: models.CategorySearch,
			Type:     models.InsightOpportunity,
			Priority: 2,
			Headline: fmt.Sprintf("Found %d keyword opportunities", len(opps)),
			Detail: fmt.Sprintf("Identified keywords with high impressions but low CTR that could "+
				"drive additional traffic with optimization. Combined monthly impressions: %s.",
				format.Number(impressions)),
			MetricName:  "keyword_opportunities",
			MetricValue: float64(len(opps)),
			Recommendation: "Review these keywords and optimize title tags, meta descriptions, " +
				"and content to improve click-through rates.",
			DataPoints: map[string]float64{"impressions": impressions},
		})
	}
}

// opportunityPass cross-checks device data for a mobile experience gap.
func opportunityPass(_ *Engine, in *input, out *[]models.Insight) {
	mobile, ok := in.ga4Current.Device("mobile")
	if !ok {
		return
	}
	desktop, ok := in.ga4Current.Device("desktop")
	if !ok {
		return
	}
	if mobile.UserShare <= mobileShareHighPct || mobile.BounceRate <= desktop.BounceRate+mobileBounceMargin {
		return
	}
	*out = append(*out, models.Insight{
		Category: models.CategoryOpportunity,
		Type:     models.InsightNegative,
		Priority: models.PriorityHighest,
		Headline: "Mobile experience needs attention",
		Detail: fmt.Sprintf("Mobile makes up %.0f%% of traffic but has a bounce rate %.1f%% higher than desktop. "+
			"Mobile: %.1f%%, Desktop: %.1f%%.",
			mobile.UserShare, mobile.BounceRate-desktop.BounceRate, mobile.BounceRate, desktop.BounceRate),
		MetricName:  "mobile_bounce_rate",
		MetricValue: mobile.BounceRate,
		Recommendation: "Prioritize mobile experience improvements: faster load times, " +
			"responsive design, touch-friendly navigation, and readable text.",
		DataPoints: map[string]float64{
			"mobile_share":   mobile.UserShare,
			"desktop_bounce": desktop.BounceRate,
		},
	})
}

func overview(s *models.GA4Snapshot) *models.TrafficOverview {
	if s == nil {
		return nil
	}
	return s.TrafficOverview
}

// plain formats a benchmark without trailing zeros, e.g. 55 or 2.5.
func plain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
