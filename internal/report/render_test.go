package report

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/quarterly/internal/output"
	"github.com/panbanda/quarterly/internal/pagespeed"
	"github.com/panbanda/quarterly/pkg/config"
)

func sampleReport(t *testing.T) *Report {
	t.Helper()
	client := config.NewClientConfig("hope_house")
	client.DisplayName = "Hope House"
	req := q3Request()
	req.Client = client

	r, err := New(fullSource(), WithClock(func() time.Time { return fixedNow })).Generate(testContext(t), req)
	require.NoError(t, err)
	return r
}

func TestBaseName(t *testing.T) {
	r := &Report{Metadata: Metadata{Client: "Hope House/East", Quarter: "Q2", Year: 2025}}
	assert.Equal(t, "hope_house-east_report_Q2_2025", BaseName(r))
}

func TestSaveAndLoadJSON(t *testing.T) {
	r := sampleReport(t)
	dir := filepath.Join(t.TempDir(), "reports")

	path, err := SaveJSON(dir, r)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "hope_house_report_Q3_2024.json"), path)

	loaded, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, r.Metadata.ID, loaded.Metadata.ID)
	assert.Equal(t, r.Metadata.CurrentPeriod.StartDate(), loaded.Metadata.CurrentPeriod.StartDate())
	assert.Equal(t, r.Insights.ExecutiveSummary, loaded.Insights.ExecutiveSummary)
	assert.Equal(t, r.Comparison.Traffic["sessions"].ChangePct, loaded.Comparison.Traffic["sessions"].ChangePct)
}

func TestLoadJSONErrors(t *testing.T) {
	_, err := LoadJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadJSON(bad)
	assert.Error(t, err)
}

func TestWriteJSONKeys(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport(t)))

	for _, key := range []string{`"metadata"`, `"client_name": "hope_house"`, `"traffic_overview"`, `"executive_summary"`, `"search_trend"`} {
		assert.Contains(t, buf.String(), key)
	}
}

func TestRenderHTML(t *testing.T) {
	r := sampleReport(t)
	score := 64
	r.PageSpeed = &pagespeed.Overview{
		Available: true,
		Mobile:    &pagespeed.StrategySummary{Score: 64},
		Summary: pagespeed.OverviewSummary{
			MobileScore:    &score,
			MobileStatus:   pagespeed.StatusNeedsImprovement,
			LCPStatus:      pagespeed.StatusPoor,
			CLSStatus:      pagespeed.StatusGood,
			TopOpportunity: "Defer offscreen images",
		},
	}

	renderer, err := NewRenderer(WithTheme(Theme{Primary: "#123456"}))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, renderer.Render(&buf, r))
	html := buf.String()

	for _, want := range []string{
		"<title>Hope House | Q3 2024 Website Report</title>",
		"--primary: #123456",
		"--secondary: #2D5016",
		"Executive Summary",
		"Total Users",
		"12,000",
		"&#43;20.0%", // html/template escapes the plus sign
		"Sessions by Month",
		"Jul 2024",
		"food bank near me",
		"Organic Traffic Share",
		"Defer offscreen images",
		"2024-07-10",
		r.Metadata.ID,
	} {
		assert.Contains(t, html, want)
	}
	assert.NotContains(t, html, "/admin/login", "excluded pages are not rendered")
}

func TestRenderHTMLMinimal(t *testing.T) {
	r, err := New(newFakeSource()).Generate(testContext(t), q3Request())
	require.NoError(t, err)

	renderer, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, renderer.Render(&buf, r))
	html := buf.String()

	assert.Contains(t, html, "Insufficient data to generate executive summary.")
	assert.Contains(t, html, "Ga4 Current")
	assert.NotContains(t, html, `id="traffic"`)
	assert.NotContains(t, html, `id="pagespeed"`)
}

// failingClose buffers writes and fails on Close, like a file whose
// final flush is rejected.
type failingClose struct{ bytes.Buffer }

func (*failingClose) Close() error { return errors.New("disk full") }

func TestExportReportsCloseError(t *testing.T) {
	orig := createFile
	t.Cleanup(func() { createFile = orig })
	createFile = func(string) (io.WriteCloser, error) { return &failingClose{}, nil }

	r := sampleReport(t)
	_, err := SaveJSON(t.TempDir(), r)
	assert.ErrorContains(t, err, "disk full")

	renderer, err := NewRenderer()
	require.NoError(t, err)
	_, err = SaveHTML(t.TempDir(), r, renderer)
	assert.ErrorContains(t, err, "disk full")
}

func TestSaveHTML(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	path, err := SaveHTML(t.TempDir(), sampleReport(t), renderer)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "hope_house_report_Q3_2024.html"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<!DOCTYPE html>")
}

func TestSummaryFormats(t *testing.T) {
	s := NewSummary(sampleReport(t))

	var text bytes.Buffer
	require.NoError(t, output.NewWriterFormatter(output.FormatText, &text, false).Output(s))
	for _, want := range []string{"Hope House: Q3 2024 Website Report", "Executive Summary", "Website Traffic", "Nonprofit Benchmarks", "Keyword Opportunities"} {
		assert.Contains(t, text.String(), want)
	}

	var md bytes.Buffer
	require.NoError(t, output.NewWriterFormatter(output.FormatMarkdown, &md, false).Output(s))
	assert.True(t, strings.HasPrefix(md.String(), "# Hope House: Q3 2024 Website Report"))
	assert.Contains(t, md.String(), "## Key Recommendations")
	assert.Contains(t, md.String(), "| Total Users | 12,000 | 10,000 | +20.0% |")

	var js bytes.Buffer
	require.NoError(t, output.NewWriterFormatter(output.FormatJSON, &js, false).Output(s))
	assert.Contains(t, js.String(), `"client_display_name": "Hope House"`)
}
