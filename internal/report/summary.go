package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/panbanda/quarterly/internal/output"
	"github.com/panbanda/quarterly/pkg/format"
	"github.com/panbanda/quarterly/pkg/models"
)

// Summary renders a report for the terminal and markdown, and as the
// full report for JSON and TOON.
type Summary struct {
	report *Report
}

// NewSummary wraps a report for output.Formatter.
func NewSummary(r *Report) *Summary {
	return &Summary{report: r}
}

func (s *Summary) RenderData() any { return s.report }

func (s *Summary) RenderText(w io.Writer, colored bool) error {
	return s.document(colored).RenderText(w, colored)
}

func (s *Summary) RenderMarkdown(w io.Writer) error {
	return s.document(false).RenderMarkdown(w)
}

func (s *Summary) document(colored bool) *output.Report {
	r := s.report
	m := r.Metadata
	doc := &output.Report{
		Title: fmt.Sprintf("%s: %s %d Website Report", m.ClientDisplayName, m.Quarter, m.Year),
		Subtitle: fmt.Sprintf("%s to %s, %s",
			m.CurrentPeriod.StartDate(), m.CurrentPeriod.EndDate(), m.ComparisonType.Label()),
	}

	doc.Parts = append(doc.Parts, &output.Section{
		Title:   "Executive Summary",
		Content: r.Insights.ExecutiveSummary,
	})
	if len(r.Insights.KeyRecommendations) > 0 {
		doc.Parts = append(doc.Parts, &output.Section{
			Title:   "Key Recommendations",
			Items:   r.Insights.KeyRecommendations,
			Ordered: true,
		})
	}
	if len(m.MissingSources) > 0 {
		doc.Parts = append(doc.Parts, &output.Section{
			Title: "Missing Data",
			Items: m.MissingSources,
		})
	}

	if rows := metricRows(trafficSpecs, r.Comparison.Traffic); len(rows) > 0 {
		doc.Parts = append(doc.Parts, changeTable("Website Traffic", m, rows, colored))
	}
	if rows := metricRows(searchSpecs, r.Comparison.Search); len(rows) > 0 {
		doc.Parts = append(doc.Parts, changeTable("Search Performance", m, rows, colored))
	}
	if len(r.Benchmarks.Comparisons) > 0 {
		doc.Parts = append(doc.Parts, benchmarkTable(r.Benchmarks, colored))
	}
	if r.GSC != nil && len(r.GSC.KeywordOpportunities) > 0 {
		doc.Parts = append(doc.Parts, keywordTable(r.GSC.KeywordOpportunities))
	}
	if ps := r.PageSpeed; ps != nil && ps.Available {
		doc.Parts = append(doc.Parts, pageSpeedSection(ps.Summary.MobileScore, ps.Summary.DesktopScore, ps.Summary.TopOpportunity))
	}
	if len(r.Insights.Insights) > 0 {
		doc.Parts = append(doc.Parts, insightTable(r.Insights.Insights, colored))
	}
	return doc
}

func changeTable(title string, m Metadata, rows []MetricRow, colored bool) *output.Table {
	t := &output.Table{
		Title:   title,
		Headers: []string{"Metric", m.CurrentPeriod.Label, m.PreviousPeriod.Label, "Change", ""},
		Numeric: []int{1, 2, 3},
	}
	for _, row := range rows {
		change := row.Change
		if colored {
			change = output.StatusColor(string(row.Direction), change)
		}
		t.Rows = append(t.Rows, []string{row.Label, row.Current, row.Previous, change, row.Marker})
	}
	return t
}

func benchmarkTable(b Benchmarks, colored bool) *output.Table {
	names := make([]string, 0, len(b.Comparisons))
	for name := range b.Comparisons {
		names = append(names, name)
	}
	sort.Strings(names)

	t := &output.Table{
		Title:   "Nonprofit Benchmarks",
		Headers: []string{"Metric", "Yours", "Benchmark", "Result"},
		Numeric: []int{1, 2},
		Footer: []string{
			fmt.Sprintf("%d compared", b.Summary.TotalCompared), "", "",
			fmt.Sprintf("%d ahead, %d behind", b.Summary.OutperformingCount, b.Summary.UnderperformingCount),
		},
	}
	for _, name := range names {
		c := b.Comparisons[name]
		outcome := strings.ReplaceAll(string(c.Outcome()), "_", " ")
		if colored {
			outcome = output.StatusColor(string(c.Outcome()), outcome)
		}
		t.Rows = append(t.Rows, []string{
			strings.ReplaceAll(name, "_", " "),
			format.Decimal(c.CurrentValue, 1),
			format.Decimal(c.BenchmarkValue, 1),
			outcome,
		})
	}
	return t
}

func keywordTable(keywords []models.KeywordOpportunity) *output.Table {
	t := &output.Table{
		Title:   "Keyword Opportunities",
		Headers: []string{"Query", "Impressions", "Clicks", "CTR", "Position"},
		Numeric: []int{1, 2, 3, 4},
	}
	for _, k := range keywords {
		t.Rows = append(t.Rows, []string{
			format.Truncate(k.Query, 48),
			format.Number(k.Impressions),
			format.Number(k.Clicks),
			format.CTR(k.CTR),
			format.Position(k.Position),
		})
	}
	return t
}

func pageSpeedSection(mobile, desktop *int, top string) *output.Section {
	s := &output.Section{Title: "Site Speed"}
	if mobile != nil {
		s.Items = append(s.Items, fmt.Sprintf("Mobile score: %d", *mobile))
	}
	if desktop != nil {
		s.Items = append(s.Items, fmt.Sprintf("Desktop score: %d", *desktop))
	}
	if top != "" {
		s.Items = append(s.Items, "Top improvement: "+top)
	}
	return s
}

func insightTable(insights []models.Insight, colored bool) *output.Table {
	t := &output.Table{
		Title:   "Insights",
		Headers: []string{"P", "Category", "Type", "Headline"},
	}
	for _, i := range insights {
		kind := string(i.Type)
		if colored {
			kind = output.StatusColor(kind, kind)
		}
		t.Rows = append(t.Rows, []string{
			fmt.Sprintf("%d", i.Priority),
			string(i.Category),
			kind,
			i.Headline,
		})
	}
	return t
}
