package pagespeed

import "math"

// Metrics holds the lab Core Web Vitals. Times are seconds except TBT,
// which is milliseconds.
type Metrics struct {
	FCP float64 `json:"fcp"`
	LCP float64 `json:"lcp"`
	TBT float64 `json:"tbt"`
	CLS float64 `json:"cls"`
	SI  float64 `json:"si"`
	TTI float64 `json:"tti"`
}

// Opportunity is a failing audit with estimated savings.
type Opportunity struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	SavingsMs   float64 `json:"savings_ms"`
	Score       float64 `json:"score"`
}

// Diagnostic is a selected informational audit.
type Diagnostic struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	DisplayValue string   `json:"display_value"`
	Score        *float64 `json:"score"`
}

// Result is one parsed audit.
type Result struct {
	URL           string        `json:"url"`
	Strategy      Strategy      `json:"strategy"`
	Score         int           `json:"performance_score"`
	Metrics       Metrics       `json:"metrics"`
	Opportunities []Opportunity `json:"opportunities"`
	Diagnostics   []Diagnostic  `json:"diagnostics"`
	PassedAudits  int           `json:"passed_audits"`
	FailedAudits  int           `json:"failed_audits"`
}

// Status grades a score or metric against Core Web Vitals thresholds.
type Status string

const (
	StatusGood             Status = "good"
	StatusNeedsImprovement Status = "needs_improvement"
	StatusPoor             Status = "poor"
)

// ScoreStatus grades a 0-100 performance score.
func ScoreStatus(score int) Status {
	switch {
	case score >= 90:
		return StatusGood
	case score >= 50:
		return StatusNeedsImprovement
	}
	return StatusPoor
}

// LCPStatus grades Largest Contentful Paint in seconds.
func LCPStatus(lcp float64) Status {
	switch {
	case lcp <= 2.5:
		return StatusGood
	case lcp <= 4.0:
		return StatusNeedsImprovement
	}
	return StatusPoor
}

// CLSStatus grades Cumulative Layout Shift.
func CLSStatus(cls float64) Status {
	switch {
	case cls <= 0.1:
		return StatusGood
	case cls <= 0.25:
		return StatusNeedsImprovement
	}
	return StatusPoor
}

// StrategySummary is the rounded view of one strategy's audit.
type StrategySummary struct {
	Score         int           `json:"score"`
	FCP           float64       `json:"fcp"`
	LCP           float64       `json:"lcp"`
	TBT           float64       `json:"tbt"`
	CLS           float64       `json:"cls"`
	TTI           float64       `json:"tti"`
	Opportunities []Opportunity `json:"opportunities"`
}

// Summarize rounds a result for display.
func Summarize(r *Result) *StrategySummary {
	if r == nil {
		return nil
	}
	return &StrategySummary{
		Score:         r.Score,
		FCP:           round(r.Metrics.FCP, 2),
		LCP:           round(r.Metrics.LCP, 2),
		TBT:           round(r.Metrics.TBT, 0),
		CLS:           round(r.Metrics.CLS, 3),
		TTI:           round(r.Metrics.TTI, 2),
		Opportunities: r.Opportunities,
	}
}

// OverviewSummary carries the status labels. Mobile values take
// precedence; desktop fills what mobile could not provide.
type OverviewSummary struct {
	MobileScore    *int   `json:"mobile_score,omitempty"`
	MobileStatus   Status `json:"mobile_status,omitempty"`
	DesktopScore   *int   `json:"desktop_score,omitempty"`
	DesktopStatus  Status `json:"desktop_status,omitempty"`
	LCPStatus      Status `json:"lcp_status,omitempty"`
	CLSStatus      Status `json:"cls_status,omitempty"`
	TopOpportunity string `json:"top_opportunity,omitempty"`
}

// Overview combines the mobile and desktop audits of a site.
type Overview struct {
	Available bool             `json:"available"`
	Mobile    *StrategySummary `json:"mobile"`
	Desktop   *StrategySummary `json:"desktop"`
	Summary   OverviewSummary  `json:"summary"`
}

// NewOverview builds an overview from whichever audits succeeded.
func NewOverview(mobile, desktop *Result) *Overview {
	o := &Overview{
		Available: mobile != nil || desktop != nil,
		Mobile:    Summarize(mobile),
		Desktop:   Summarize(desktop),
	}

	if mobile != nil {
		score := mobile.Score
		o.Summary.MobileScore = &score
		o.Summary.MobileStatus = ScoreStatus(mobile.Score)
		o.Summary.LCPStatus = LCPStatus(mobile.Metrics.LCP)
		o.Summary.CLSStatus = CLSStatus(mobile.Metrics.CLS)
		if len(mobile.Opportunities) > 0 {
			o.Summary.TopOpportunity = mobile.Opportunities[0].Title
		}
	}
	if desktop != nil {
		score := desktop.Score
		o.Summary.DesktopScore = &score
		o.Summary.DesktopStatus = ScoreStatus(desktop.Score)
		if mobile == nil {
			o.Summary.LCPStatus = LCPStatus(desktop.Metrics.LCP)
			o.Summary.CLSStatus = CLSStatus(desktop.Metrics.CLS)
			if len(desktop.Opportunities) > 0 {
				o.Summary.TopOpportunity = desktop.Opportunities[0].Title
			}
		}
	}
	return o
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
