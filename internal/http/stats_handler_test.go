package http_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linktally/internal/testsupport"
)

func TestStatsSummaryEndpoint(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)
	app := testsupport.CreateMinimalTestApp(t, db)

	link := testsupport.CreateTestLink(t, db, "https://example.com/a", "sum101")
	now := time.Now().UTC()
	testsupport.CreateTestClick(t, db, link.ID, "visitor-a", now)
	testsupport.CreateTestClick(t, db, link.ID, "visitor-b", now)

	resp, body := doJSON(t, app, "GET", "/api/v1/stats/summary?days=7", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, float64(2), body["total_clicks"])
	assert.Equal(t, float64(2), body["unique_visitors"])
	assert.Equal(t, float64(1), body["active_links"])
	assert.Equal(t, "100%", body["avg_conversion"])
}

func TestStatsEndpointsRejectBadWindow(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)
	app := testsupport.CreateMinimalTestApp(t, db)

	for _, path := range []string{
		"/api/v1/stats/summary?days=0",
		"/api/v1/stats/summary?days=abc",
		"/api/v1/stats/timeseries?date_from=2025-03-01",
		"/api/v1/stats/top-links?date_from=2025-03-10&date_to=2025-03-01",
	} {
		resp, body := doJSON(t, app, "GET", path, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "path %s", path)
		assert.Equal(t, "INVALID_WINDOW", body["code"], "path %s", path)
	}
}

func TestStatsTimeSeriesEndpoint(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)
	app := testsupport.CreateMinimalTestApp(t, db)

	link := testsupport.CreateTestLink(t, db, "https://example.com/b", "ts0101")
	testsupport.CreateTestClick(t, db, link.ID, "visitor-a", time.Now().UTC())

	resp, body := doJSON(t, app, "GET", "/api/v1/stats/timeseries?days=7", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	series, ok := body["clicks_over_time"].([]interface{})
	require.True(t, ok)
	assert.Len(t, series, 7)

	last := series[6].(map[string]interface{})
	assert.Equal(t, float64(1), last["clicks"])
}

func TestStatsTopLinksEndpoint(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)
	app := testsupport.CreateMinimalTestApp(t, db)

	link := testsupport.CreateTestLink(t, db, "https://example.com/c", "top101")
	testsupport.CreateTestClick(t, db, link.ID, "visitor-a", time.Now().UTC())

	resp, body := doJSON(t, app, "GET", "/api/v1/stats/top-links?days=7&limit=5", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	top, ok := body["top_links"].([]interface{})
	require.True(t, ok)
	require.Len(t, top, 1)

	row := top[0].(map[string]interface{})
	assert.Equal(t, "top101", row["short_code"])
	assert.Equal(t, float64(1), row["total_clicks"])
}

func TestStatsBreakdownEndpoint(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)
	app := testsupport.CreateMinimalTestApp(t, db)

	link := testsupport.CreateTestLink(t, db, "https://example.com/d", "brk101")
	testsupport.CreateTestClick(t, db, link.ID, "visitor-a", time.Now().UTC())

	resp, body := doJSON(t, app, "GET", "/api/v1/stats/breakdown/device_type?days=7", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "device_type", body["dimension"])

	items, ok := body["breakdown"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "Desktop", items[0].(map[string]interface{})["value"])
}

func TestStatsBreakdownKeepsAppleOSLabels(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)
	app := testsupport.CreateMinimalTestApp(t, db)

	link := testsupport.CreateTestLink(t, db, "https://example.com/os", "osl101")
	now := time.Now().UTC()
	testsupport.CreateTestClick(t, db, link.ID, "visitor-a", now)
	testsupport.CreateTestClick(t, db, link.ID, "visitor-b", now)
	testsupport.CreateTestClick(t, db, link.ID, "visitor-c", now)
	require.NoError(t, db.Exec("UPDATE click_events SET os = 'iOS' WHERE visitor_id = 'visitor-a'").Error)
	require.NoError(t, db.Exec("UPDATE click_events SET os = 'Mac OS' WHERE visitor_id = 'visitor-b'").Error)
	// Legacy rows were stored lowercase and still get title-cased
	require.NoError(t, db.Exec("UPDATE click_events SET os = 'windows' WHERE visitor_id = 'visitor-c'").Error)

	resp, body := doJSON(t, app, "GET", "/api/v1/stats/breakdown/os?days=7", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	items, ok := body["breakdown"].([]interface{})
	require.True(t, ok)

	values := make([]string, 0, len(items))
	for _, item := range items {
		values = append(values, item.(map[string]interface{})["value"].(string))
	}
	assert.ElementsMatch(t, []string{"iOS", "Mac OS", "Windows"}, values)
}

func TestStatsBreakdownRejectsUnknownDimension(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)
	app := testsupport.CreateMinimalTestApp(t, db)

	resp, body := doJSON(t, app, "GET", "/api/v1/stats/breakdown/visitor_id?days=7", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_DIMENSION", body["code"])
}

func TestStatsValidateEndpoint(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)
	app := testsupport.CreateMinimalTestApp(t, db)

	resp, body := doJSON(t, app, "GET", "/api/v1/stats/validate?days=7", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, []interface{}{"PASSED", "WARNING", "FAILED"}, body["overall_status"])
	assert.NotNil(t, body["panel_validations"])
}

func TestStatsDashboardEndpoint(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)
	app := testsupport.CreateMinimalTestApp(t, db)

	link := testsupport.CreateTestLink(t, db, "https://example.com/e", "dash01")
	testsupport.CreateTestClick(t, db, link.ID, "visitor-a", time.Now().UTC())

	// A burst of simultaneous first loads, the shape the race detector
	// watches during cache initialization
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest("GET", "/api/v1/stats/dashboard?days=7", nil)
			resp, err := app.Test(req, 30000)
			if err != nil {
				t.Errorf("dashboard request: %v", err)
				return
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("dashboard request: status %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	resp, body := doJSON(t, app, "GET", "/api/v1/stats/dashboard?days=7", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	summary, ok := body["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), summary["total_clicks"])

	series, ok := body["clicks_over_time"].([]interface{})
	require.True(t, ok)
	assert.Len(t, series, 7)

	assert.NotNil(t, body["top_links"])
	assert.NotNil(t, body["devices"])
	assert.NotNil(t, body["generated_at"])
}
