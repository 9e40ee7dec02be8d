package report

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/panbanda/quarterly/internal/pagespeed"
	"github.com/panbanda/quarterly/pkg/config"
	"github.com/panbanda/quarterly/pkg/format"
	"github.com/panbanda/quarterly/pkg/models"
	"github.com/panbanda/quarterly/pkg/period"
)

//go:embed template.html
var templateFS embed.FS

// Theme holds the client brand colors used by the HTML report.
type Theme struct {
	Primary   string
	Secondary string
}

// DefaultTheme matches the default client profile colors.
var DefaultTheme = Theme{Primary: "#F4C430", Secondary: "#2D5016"}

// ClientTheme returns the client's brand colors.
func ClientTheme(c *config.ClientConfig) Theme {
	if c == nil {
		return DefaultTheme
	}
	return Theme{Primary: c.PrimaryColor, Secondary: c.SecondaryColor}
}

type metricKind int

const (
	kindCount metricKind = iota
	kindPercent
	kindSeconds
	kindDecimal
	kindPosition
)

type metricSpec struct {
	key   string
	label string
	kind  metricKind
}

var trafficSpecs = []metricSpec{
	{"total_users", "Total Users", kindCount},
	{"new_users", "New Users", kindCount},
	{"sessions", "Sessions", kindCount},
	{"pageviews", "Pageviews", kindCount},
	{"bounce_rate", "Bounce Rate", kindPercent},
	{"avg_session_duration", "Avg. Session Duration", kindSeconds},
	{"pages_per_session", "Pages / Session", kindDecimal},
	{"engagement_rate", "Engagement Rate", kindPercent},
}

var searchSpecs = []metricSpec{
	{"total_clicks", "Clicks", kindCount},
	{"total_impressions", "Impressions", kindCount},
	{"avg_ctr", "Average CTR", kindPercent},
	{"avg_position", "Average Position", kindPosition},
}

func (s metricSpec) format(v float64) string {
	switch s.kind {
	case kindPercent:
		return format.Percent(v, 1)
	case kindSeconds:
		return format.Duration(v)
	case kindDecimal:
		return format.Decimal(v, 2)
	case kindPosition:
		return format.Position(v)
	}
	return format.Number(v)
}

// MetricRow is one line of a comparison table.
type MetricRow struct {
	format.MetricDisplay
	Label string
	Color string
}

func metricRows(specs []metricSpec, changes map[string]models.ChangeMetric) []MetricRow {
	var rows []MetricRow
	for _, spec := range specs {
		c, ok := changes[spec.key]
		if !ok {
			continue
		}
		d := format.Display(spec.key, c, "")
		d.Current = spec.format(c.Current)
		d.Previous = spec.format(c.Previous)
		rows = append(rows, MetricRow{
			MetricDisplay: d,
			Label:         spec.label,
			Color:         format.TrendColor(c.Direction),
		})
	}
	return rows
}

// BarPoint is one bar of a simple inline chart, Width in percent of the
// largest value.
type BarPoint struct {
	Label string
	Value float64
	Width float64
}

func bars(labels []string, values []float64) []BarPoint {
	var max float64
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	points := make([]BarPoint, len(values))
	for i, v := range values {
		points[i] = BarPoint{Label: labels[i], Value: v}
		if max > 0 {
			points[i].Width = v / max * 100
		}
	}
	return points
}

// RenderData is the view model passed to the HTML template.
type RenderData struct {
	Report          *Report
	Theme           Theme
	Traffic         []MetricRow
	Search          []MetricRow
	Benchmarks      []models.BenchmarkComparison
	MonthlySessions []BarPoint
	MonthlyPrevious []BarPoint
}

// NewRenderData prepares a report for the template.
func NewRenderData(r *Report, theme Theme) *RenderData {
	data := &RenderData{
		Report:  r,
		Theme:   theme,
		Traffic: metricRows(trafficSpecs, r.Comparison.Traffic),
		Search:  metricRows(searchSpecs, r.Comparison.Search),
	}

	names := make([]string, 0, len(r.Benchmarks.Comparisons))
	for name := range r.Benchmarks.Comparisons {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		data.Benchmarks = append(data.Benchmarks, r.Benchmarks.Comparisons[name])
	}

	data.MonthlySessions = monthBars(r.GA4)
	data.MonthlyPrevious = monthBars(r.GA4Previous)
	return data
}

func monthBars(s *models.GA4Snapshot) []BarPoint {
	if s == nil || len(s.Months) == 0 {
		return nil
	}
	labels := make([]string, len(s.Months))
	values := make([]float64, len(s.Months))
	for i, m := range s.Months {
		labels[i] = period.FormatMonth(m.Month)
		values[i] = m.Sessions
	}
	return bars(labels, values)
}

// Renderer handles HTML report generation.
type Renderer struct {
	tmpl  *template.Template
	theme Theme
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithTheme sets the brand colors. Empty values keep the defaults.
func WithTheme(t Theme) RendererOption {
	return func(r *Renderer) {
		if t.Primary != "" {
			r.theme.Primary = t.Primary
		}
		if t.Secondary != "" {
			r.theme.Secondary = t.Secondary
		}
	}
}

// NewRenderer creates a new renderer with the embedded template.
func NewRenderer(opts ...RendererOption) (*Renderer, error) {
	printer := message.NewPrinter(language.English)
	funcMap := template.FuncMap{
		"title": cases.Title(language.English).String,
		"lower": strings.ToLower,
		"humanize": func(s string) string {
			return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
		},
		"num": func(n interface{}) string {
			switch v := n.(type) {
			case int:
				return printer.Sprintf("%d", v)
			case int64:
				return printer.Sprintf("%d", v)
			case float64:
				return printer.Sprintf("%d", int64(v))
			default:
				return "0"
			}
		},
		"decimal":  format.Decimal,
		"percent":  func(v float64) string { return format.Percent(v, 1) },
		"duration": format.Duration,
		"ctr":      format.CTR,
		"position": format.Position,
		"signed":   format.SignedPercent,
		"truncate": format.Truncate,
		"month":    period.FormatMonth,
		"outcomeClass": func(o models.Outcome) string {
			switch o {
			case models.OutcomeOutperforming:
				return "good"
			case models.OutcomeUnderperforming:
				return "danger"
			}
			return "neutral"
		},
		"insightClass": func(t models.InsightType) string {
			switch t {
			case models.InsightPositive:
				return "good"
			case models.InsightNegative:
				return "danger"
			case models.InsightOpportunity:
				return "warning"
			}
			return "neutral"
		},
		"statusClass": func(s pagespeed.Status) string {
			switch s {
			case pagespeed.StatusGood:
				return "good"
			case pagespeed.StatusNeedsImprovement:
				return "warning"
			case pagespeed.StatusPoor:
				return "danger"
			}
			return "neutral"
		},
		"json": func(v interface{}) template.JS {
			b, _ := json.Marshal(v)
			return template.JS(b)
		},
	}

	tmplContent, err := templateFS.ReadFile("template.html")
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("report").Funcs(funcMap).Parse(string(tmplContent))
	if err != nil {
		return nil, err
	}

	r := &Renderer{tmpl: tmpl, theme: DefaultTheme}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Render writes the report as HTML.
func (r *Renderer) Render(w io.Writer, rep *Report) error {
	return r.tmpl.Execute(w, NewRenderData(rep, r.theme))
}

// RenderToFile writes the report as HTML to a file.
func (r *Renderer) RenderToFile(rep *Report, outputPath string) error {
	return writeFile(outputPath, func(w io.Writer) error {
		return r.Render(w, rep)
	})
}
