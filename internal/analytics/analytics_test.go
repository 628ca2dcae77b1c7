package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linktally/internal/analytics"
	"linktally/internal/clicks"
	"linktally/internal/testsupport"
	"linktally/internal/timeframe"
)

func windowOf(t *testing.T, days int) *timeframe.Window {
	t.Helper()
	w, err := timeframe.NewWindow(timeframe.WindowParams{Days: days})
	require.NoError(t, err)
	return w
}

func TestConversionRate(t *testing.T) {
	assert.Equal(t, 0.0, analytics.ConversionRate(0, 0))
	assert.Equal(t, 100.0, analytics.ConversionRate(10, 10))
	assert.Equal(t, 50.0, analytics.ConversionRate(10, 5))
	assert.Equal(t, 33.33, analytics.ConversionRate(3, 1))
}

func TestAverageConversion(t *testing.T) {
	assert.Equal(t, "0%", analytics.AverageConversion(10, 0))
	assert.Equal(t, "100%", analytics.AverageConversion(10, 10))
	assert.Equal(t, "200%", analytics.AverageConversion(10, 5))
	assert.Equal(t, "150%", analytics.AverageConversion(3, 2))
	assert.Equal(t, "166.67%", analytics.AverageConversion(5, 3))
}

func TestGetDashboardSummary(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	link := testsupport.CreateTestLink(t, db, "https://example.com/a", "sum001")
	now := time.Now().UTC()

	testsupport.CreateTestClick(t, db, link.ID, "visitor-a", now)
	testsupport.CreateTestClick(t, db, link.ID, "visitor-a", now.Add(-time.Hour))
	testsupport.CreateTestClick(t, db, link.ID, "visitor-b", now.Add(-24*time.Hour))

	summary, err := analytics.GetDashboardSummary(db, windowOf(t, 7))
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalClicks)
	assert.Equal(t, 2, summary.UniqueVisitors)
	assert.EqualValues(t, 1, summary.ActiveLinks)
	assert.Equal(t, "150%", summary.AvgConversion)
	assert.False(t, summary.CounterFallback)
}

func TestGetDashboardSummaryWindowExcludesOldClicks(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	link := testsupport.CreateTestLink(t, db, "https://example.com/b", "sum002")
	now := time.Now().UTC()

	testsupport.CreateTestClick(t, db, link.ID, "visitor-a", now)
	testsupport.CreateTestClick(t, db, link.ID, "visitor-b", now.AddDate(0, 0, -20))

	summary, err := analytics.GetDashboardSummary(db, windowOf(t, 7))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalClicks)
	assert.Equal(t, 1, summary.UniqueVisitors)
}

func TestGetDashboardSummaryCounterFallback(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	// Counters say clicks happened, but the event store has no rows for
	// the window (as after retention pruning).
	link := testsupport.CreateTestLink(t, db, "https://example.com/c", "sum003")
	require.NoError(t, db.Model(link).Updates(map[string]interface{}{
		"total_clicks":    42,
		"unique_visitors": 17,
	}).Error)

	summary, err := analytics.GetDashboardSummary(db, windowOf(t, 7))
	require.NoError(t, err)

	assert.True(t, summary.CounterFallback)
	assert.Equal(t, 42, summary.TotalClicks)
	assert.Equal(t, 17, summary.UniqueVisitors)
}

func TestGetDashboardSummaryEmpty(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	summary, err := analytics.GetDashboardSummary(db, windowOf(t, 7))
	require.NoError(t, err)

	assert.Zero(t, summary.TotalClicks)
	assert.Zero(t, summary.UniqueVisitors)
	assert.False(t, summary.CounterFallback)
	assert.Equal(t, "0%", summary.AvgConversion)
}

func TestGetClicksOverTime(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	link := testsupport.CreateTestLink(t, db, "https://example.com/d", "ts0001")
	now := time.Now().UTC()

	testsupport.CreateTestClick(t, db, link.ID, "visitor-a", now)
	testsupport.CreateTestClick(t, db, link.ID, "visitor-b", now)
	testsupport.CreateTestClick(t, db, link.ID, "visitor-c", now.AddDate(0, 0, -2))

	series, err := analytics.GetClicksOverTime(db, windowOf(t, 7))
	require.NoError(t, err)

	require.Len(t, series, 7)
	assert.Equal(t, 2, series[6].Count)
	assert.Equal(t, 1, series[4].Count)
	assert.Equal(t, 0, series[5].Count)

	total := 0
	for _, point := range series {
		total += point.Count
	}
	assert.Equal(t, 3, total)
}

func TestGetTopLinksOrdering(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	now := time.Now().UTC()

	busy := testsupport.CreateTestLink(t, db, "https://example.com/busy", "top001")
	quiet := testsupport.CreateTestLink(t, db, "https://example.com/quiet", "top002")
	idle := testsupport.CreateTestLink(t, db, "https://example.com/idle", "top003")

	for i := 0; i < 3; i++ {
		testsupport.CreateTestClick(t, db, busy.ID, "visitor-a", now)
	}
	testsupport.CreateTestClick(t, db, quiet.ID, "visitor-a", now)
	testsupport.CreateTestClick(t, db, quiet.ID, "visitor-b", now)

	top, err := analytics.GetTopLinks(db, windowOf(t, 7), 10)
	require.NoError(t, err)

	require.Len(t, top, 3)
	assert.Equal(t, busy.ID, top[0].LinkID)
	assert.Equal(t, 3, top[0].TotalClicks)
	assert.Equal(t, 1, top[0].UniqueVisitors)
	assert.Equal(t, 33.33, top[0].ConversionRate)

	assert.Equal(t, quiet.ID, top[1].LinkID)
	assert.Equal(t, 100.0, top[1].ConversionRate)

	// Links without window clicks still appear, zero-valued
	assert.Equal(t, idle.ID, top[2].LinkID)
	assert.Zero(t, top[2].TotalClicks)
	assert.Equal(t, 0.0, top[2].ConversionRate)
}

func TestGetTopLinksLimit(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CreateTestLink(t, db, "https://example.com/1", "lim001")
	testsupport.CreateTestLink(t, db, "https://example.com/2", "lim002")
	testsupport.CreateTestLink(t, db, "https://example.com/3", "lim003")

	top, err := analytics.GetTopLinks(db, windowOf(t, 7), 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

func TestGetTopReferrers(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	link := testsupport.CreateTestLink(t, db, "https://example.com/e", "ref001")
	now := time.Now().UTC()

	insert := func(referrer string) {
		event := testsupport.CreateTestClick(t, db, link.ID, "visitor-a", now)
		require.NoError(t, db.Model(event).Update("referrer", referrer).Error)
	}
	insert("https://news.ycombinator.com/item?id=1")
	insert("https://news.ycombinator.com/item?id=1")
	insert("https://www.google.com/")
	insert("") // direct traffic stays out of the panel
	insert("")

	top, err := analytics.GetTopReferrers(db, windowOf(t, 7), 10)
	require.NoError(t, err)

	require.Len(t, top, 2)
	assert.Equal(t, "https://news.ycombinator.com/item?id=1", top[0].Referrer)
	assert.Equal(t, "news.ycombinator.com", top[0].Domain)
	assert.Equal(t, "Hacker News", top[0].Source)
	assert.Equal(t, 2, top[0].Count)
	assert.Equal(t, "www.google.com", top[1].Domain)
	assert.Equal(t, "Google", top[1].Source)
}

func TestGetBreakdown(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	link := testsupport.CreateTestLink(t, db, "https://example.com/f", "brk001")
	now := time.Now().UTC()

	testsupport.CreateTestClick(t, db, link.ID, "visitor-a", now)
	testsupport.CreateTestClick(t, db, link.ID, "visitor-b", now)
	blank := testsupport.CreateTestClick(t, db, link.ID, "visitor-c", now)
	require.NoError(t, db.Model(blank).Update("device_type", "").Error)

	items, err := analytics.GetBreakdown(db, windowOf(t, 7), analytics.DimensionDeviceType, 10)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, analytics.BreakdownItem{Value: "Desktop", Count: 2}, items[0])
	assert.Equal(t, analytics.BreakdownItem{Value: analytics.UnknownLabel, Count: 1}, items[1])
}

func TestParseDimension(t *testing.T) {
	for _, raw := range []string{"device_type", "browser", "os", "country"} {
		dim, err := analytics.ParseDimension(raw)
		require.NoError(t, err)
		assert.EqualValues(t, raw, dim)
	}

	_, err := analytics.ParseDimension("visitor_id; DROP TABLE links")
	assert.Error(t, err)
	_, err = analytics.ParseDimension("")
	assert.Error(t, err)
}

func TestGetLinkStats(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	link := testsupport.CreateTestLink(t, db, "https://example.com/g", "pls001")

	_, err := clicks.RecordClick(logger, db, clicks.RecordClickInput{
		Link:      link,
		IPAddress: "203.0.113.5",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0",
	})
	require.NoError(t, err)

	stats, err := analytics.GetLinkStats(db, link.ID)
	require.NoError(t, err)

	assert.Equal(t, link.ID, stats.LinkID)
	assert.Equal(t, "pls001", stats.ShortCode)
	assert.Equal(t, 1, stats.TotalClicks)
	assert.Equal(t, 1, stats.UniqueVisitors)
	assert.Equal(t, "100%", stats.AvgConversion)
	assert.NotNil(t, stats.LastClickedAt)
}

func TestValidateDataPassesOnConsistentData(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	link := testsupport.CreateTestLink(t, db, "https://example.com/h", "val001")

	for _, ip := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.2"} {
		_, err := clicks.RecordClick(logger, db, clicks.RecordClickInput{
			Link:      link,
			IPAddress: ip,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0",
			Referrer:  "https://news.ycombinator.com/",
		})
		require.NoError(t, err)
	}

	report, err := analytics.ValidateData(db, windowOf(t, 7))
	require.NoError(t, err)

	assert.Equal(t, analytics.StatusPassed, report.OverallStatus)
	assert.Empty(t, report.IssuesFound)
	assert.Empty(t, report.Warnings)
	assert.NotEmpty(t, report.Panels["summary"])
	assert.NotEmpty(t, report.CrossChecks)
}

func TestValidateDataWarnsOnCounterFallback(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	link := testsupport.CreateTestLink(t, db, "https://example.com/i", "val002")
	require.NoError(t, db.Model(link).Updates(map[string]interface{}{
		"total_clicks":    10,
		"unique_visitors": 4,
	}).Error)

	report, err := analytics.ValidateData(db, windowOf(t, 7))
	require.NoError(t, err)

	assert.Equal(t, analytics.StatusWarning, report.OverallStatus)
	assert.NotEmpty(t, report.Warnings)
}

func TestValidateDataFailsOnCorruptCounters(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	// No events, so the summary falls back to counters claiming more
	// unique visitors than clicks
	link := testsupport.CreateTestLink(t, db, "https://example.com/j", "val003")
	require.NoError(t, db.Model(link).Updates(map[string]interface{}{
		"total_clicks":    5,
		"unique_visitors": 9,
	}).Error)

	report, err := analytics.ValidateData(db, windowOf(t, 7))
	require.NoError(t, err)

	assert.Equal(t, analytics.StatusFailed, report.OverallStatus)
	assert.NotEmpty(t, report.IssuesFound)
}
