package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/quarterly/pkg/config"
	"github.com/panbanda/quarterly/pkg/models"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	return logger.WithContext(context.Background())
}

func q4(year int) models.DatePeriod {
	return models.NewDatePeriod(
		time.Date(year, 10, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
		"Q4",
	)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newValidatedStore(t *testing.T) *Store {
	t.Helper()
	v, err := NewValidator()
	require.NoError(t, err)
	return NewStore(t.TempDir(), WithValidator(v))
}

func TestLoadJSONSnapshot(t *testing.T) {
	s := newValidatedStore(t)
	p := q4(2024)
	writeFile(t, filepath.Join(s.Dir("bees", p), "ga4.json"), `{
  "traffic_overview": {"total_users": 1200, "new_users": 900, "bounce_rate": 48.5},
  "traffic_by_channel": [{"channel_name": "Organic Search", "sessions": 400, "session_share": 33.3}],
  "device_breakdown": [{"device_category": "mobile", "bounce_rate": 60, "user_share": 58}]
}`)

	snap, meta, err := s.GA4(testContext(t), "bees", p)
	require.NoError(t, err)

	require.NotNil(t, snap.TrafficOverview)
	assert.Equal(t, 1200.0, snap.TrafficOverview.TotalUsers)
	assert.Equal(t, 48.5, snap.TrafficOverview.BounceRate)
	require.Len(t, snap.Channels, 1)
	assert.Equal(t, "organic_search_traffic_share", snap.Channels[0].MetricKey())
	mobile, ok := snap.Device("Mobile")
	require.True(t, ok)
	assert.Equal(t, 58.0, mobile.UserShare)

	assert.Equal(t, KindGA4, meta.Kind)
	assert.Len(t, meta.Digest, 64)
	assert.Equal(t, "ga4.json", filepath.Base(meta.Path))
}

func TestLoadYAMLSnapshot(t *testing.T) {
	s := newValidatedStore(t)
	p := q4(2024)
	writeFile(t, filepath.Join(s.Dir("bees", p), "gsc.yaml"), `
overview:
  total_clicks: 350
  total_impressions: 12000
  avg_ctr: 2.9
  avg_position: 18.2
keyword_opportunities:
  - query: bee sanctuary near me
    impressions: 900
    position: 11.5
daily_performance:
  - date: "2024-10-01"
    clicks: 4
`)

	snap, meta, err := s.GSC(testContext(t), "bees", p)
	require.NoError(t, err)

	require.NotNil(t, snap.Overview)
	assert.Equal(t, 18.2, snap.Overview.AvgPosition)
	require.Len(t, snap.KeywordOpportunities, 1)
	assert.Equal(t, "bee sanctuary near me", snap.KeywordOpportunities[0].Query)
	require.Len(t, snap.Daily, 1)
	assert.Equal(t, "2024-10-01", snap.Daily[0].Date)
	assert.Equal(t, KindGSC, meta.Kind)
}

func TestMissingSnapshotIsUnavailable(t *testing.T) {
	s := NewStore(t.TempDir())

	_, _, err := s.GA4(testContext(t), "bees", q4(2023))
	assert.True(t, errors.Is(err, ErrUnavailable), "got %v", err)
}

func TestClientOutsideRootIsRejected(t *testing.T) {
	root := t.TempDir()
	p := q4(2023)
	writeFile(t, filepath.Join(root, "secret", PeriodDir(p), "ga4.json"), `{"traffic_overview":{"total_users":4242}}`)
	s := NewStore(filepath.Join(root, "data"))

	_, _, err := s.GA4(testContext(t), "../secret", p)
	assert.ErrorIs(t, err, config.ErrInvalidClientName)

	_, err = s.Save("../secret", KindGSC, p, &models.GSCSnapshot{})
	assert.ErrorIs(t, err, config.ErrInvalidClientName)

	_, err = s.Periods("..")
	assert.ErrorIs(t, err, config.ErrInvalidClientName)
}

func TestSchemaViolationIsInvalid(t *testing.T) {
	s := newValidatedStore(t)
	p := q4(2024)
	writeFile(t, filepath.Join(s.Dir("bees", p), "ga4.json"), `{"traffic_overview": {"bounce_rate": 140}}`)

	_, _, err := s.GA4(testContext(t), "bees", p)
	assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestMalformedDocumentIsInvalid(t *testing.T) {
	s := NewStore(t.TempDir())
	p := q4(2024)
	writeFile(t, filepath.Join(s.Dir("bees", p), "gsc.json"), `{"overview": `)

	_, _, err := s.GSC(testContext(t), "bees", p)
	assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
}

func TestEmptyYAMLIsEmptySnapshot(t *testing.T) {
	s := newValidatedStore(t)
	p := q4(2024)
	writeFile(t, filepath.Join(s.Dir("bees", p), "ga4.yml"), "")

	snap, _, err := s.GA4(testContext(t), "bees", p)
	require.NoError(t, err)
	assert.Nil(t, snap.TrafficOverview)
}

func TestCancelledContext(t *testing.T) {
	s := NewStore(t.TempDir())
	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	_, _, err := s.GA4(ctx, "bees", q4(2024))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveRoundTrip(t *testing.T) {
	s := newValidatedStore(t)
	p := q4(2024)
	in := &models.GA4Snapshot{
		TrafficOverview: &models.TrafficOverview{TotalUsers: 10, Sessions: 12},
		Months:          []models.MonthRow{{Month: "202410", Sessions: 4}},
	}

	path, err := s.Save("bees", KindGA4, p, in)
	require.NoError(t, err)
	assert.FileExists(t, path)

	out, _, err := s.GA4(testContext(t), "bees", p)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestClientsAndPeriods(t *testing.T) {
	s := NewStore(t.TempDir())
	for _, p := range []models.DatePeriod{q4(2024), q4(2023)} {
		_, err := s.Save("bees", KindGSC, p, &models.GSCSnapshot{})
		require.NoError(t, err)
	}
	_, err := s.Save("arts", KindGA4, q4(2024), &models.GA4Snapshot{})
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "bees", "scratch"), 0o755))

	clients, err := s.Clients()
	require.NoError(t, err)
	assert.Equal(t, []string{"arts", "bees"}, clients)

	periods, err := s.Periods("bees")
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, "2023-10-01", periods[0].StartDate())
	assert.Equal(t, "2024-12-31", periods[1].EndDate())

	none, err := s.Periods("ghost")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestValidatorUnknownKind(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)
	assert.ErrorIs(t, v.Validate(Kind("ads"), []byte(`{}`)), ErrInvalid)
}
