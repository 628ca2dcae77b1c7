package http

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/cache"
	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"linktally/internal/analytics"
	"linktally/internal/config"
	"linktally/internal/pkg/async"
	"linktally/internal/timeframe"
)

// DashboardResponse is the combined payload the dashboard loads in one
// request.
type DashboardResponse struct {
	Summary          *analytics.Summary        `json:"summary"`
	ClicksOverTime   []timeframe.DateStat      `json:"clicks_over_time"`
	TopLinks         []analytics.TopLink       `json:"top_links"`
	TopReferrers     []analytics.TopReferrer   `json:"top_referrers"`
	Devices          []analytics.BreakdownItem `json:"devices"`
	Browsers         []analytics.BreakdownItem `json:"browsers"`
	OperatingSystems []analytics.BreakdownItem `json:"operating_systems"`
	Countries        []analytics.BreakdownItem `json:"countries"`
	GeneratedAt      time.Time                 `json:"generated_at"`
}

// parseWindow reads the window query parameters shared by every stats
// endpoint.
func parseWindow(ctx *cartridge.Context) (*timeframe.Window, error) {
	days := 0
	if raw := ctx.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return nil, &timeframe.InvalidWindowError{Reason: "days must be a positive integer"}
		}
		days = parsed
	}
	return timeframe.NewWindow(timeframe.WindowParams{
		Days:     days,
		DateFrom: ctx.Query("date_from"),
		DateTo:   ctx.Query("date_to"),
	})
}

// queryLimit reads the optional limit parameter, falling back to the panel
// default.
func queryLimit(ctx *cartridge.Context) int {
	if raw := ctx.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return analytics.DefaultLimit
}

func badWindow(ctx *cartridge.Context, err error) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": err.Error(),
		"code":  "INVALID_WINDOW",
	})
}

// StatsSummaryAction serves the headline totals panel.
func StatsSummaryAction(ctx *cartridge.Context) error {
	window, err := parseWindow(ctx)
	if err != nil {
		return badWindow(ctx, err)
	}

	summary, err := analytics.GetDashboardSummary(ctx.DB(), window)
	if err != nil {
		ctx.Logger.Error("Failed to compute summary", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute summary"})
	}
	return ctx.JSON(summary)
}

// StatsTimeSeriesAction serves the clicks-over-time panel.
func StatsTimeSeriesAction(ctx *cartridge.Context) error {
	window, err := parseWindow(ctx)
	if err != nil {
		return badWindow(ctx, err)
	}

	series, err := analytics.GetClicksOverTime(ctx.DB(), window)
	if err != nil {
		ctx.Logger.Error("Failed to compute time series", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute time series"})
	}
	return ctx.JSON(fiber.Map{"clicks_over_time": series})
}

// StatsTopLinksAction serves the top performing links panel.
func StatsTopLinksAction(ctx *cartridge.Context) error {
	window, err := parseWindow(ctx)
	if err != nil {
		return badWindow(ctx, err)
	}

	topLinks, err := analytics.GetTopLinks(ctx.DB(), window, queryLimit(ctx))
	if err != nil {
		ctx.Logger.Error("Failed to compute top links", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute top links"})
	}
	return ctx.JSON(fiber.Map{"top_links": topLinks})
}

// StatsTopReferrersAction serves the top referrers panel.
func StatsTopReferrersAction(ctx *cartridge.Context) error {
	window, err := parseWindow(ctx)
	if err != nil {
		return badWindow(ctx, err)
	}

	referrers, err := analytics.GetTopReferrers(ctx.DB(), window, queryLimit(ctx))
	if err != nil {
		ctx.Logger.Error("Failed to compute top referrers", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute top referrers"})
	}
	return ctx.JSON(fiber.Map{"top_referrers": referrers})
}

// StatsBreakdownAction serves one dimension breakdown panel.
func StatsBreakdownAction(ctx *cartridge.Context) error {
	dimension, err := analytics.ParseDimension(ctx.Params("dimension"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "INVALID_DIMENSION",
		})
	}

	window, err := parseWindow(ctx)
	if err != nil {
		return badWindow(ctx, err)
	}

	items, err := analytics.GetBreakdown(ctx.DB(), window, dimension, queryLimit(ctx))
	if err != nil {
		ctx.Logger.Error("Failed to compute breakdown",
			slog.String("dimension", string(dimension)), slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute breakdown"})
	}

	switch dimension {
	case analytics.DimensionCountry:
		items = convertCountryBreakdown(items)
	case analytics.DimensionOS:
		items = normalizeOSBreakdown(items)
	default:
		items = titleCaseBreakdown(items)
	}
	return ctx.JSON(fiber.Map{"breakdown": items, "dimension": dimension})
}

// StatsValidateAction runs the full cross-validation report.
func StatsValidateAction(ctx *cartridge.Context) error {
	window, err := parseWindow(ctx)
	if err != nil {
		return badWindow(ctx, err)
	}

	report, err := analytics.ValidateData(ctx.DB(), window)
	if err != nil {
		ctx.Logger.Error("Failed to validate data", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to validate data"})
	}
	return ctx.JSON(report)
}

var (
	dashboardCache     *cache.Cache[string, *DashboardResponse]
	dashboardCacheOnce sync.Once
)

// StatsDashboardAction serves the combined dashboard payload, fanning the
// panel queries out over a worker pool and caching the assembled result
// briefly.
func StatsDashboardAction(ctx *cartridge.Context) error {
	window, err := parseWindow(ctx)
	if err != nil {
		return badWindow(ctx, err)
	}

	dashboardCacheOnce.Do(func() {
		initDashboardCache(ctx.DB(), ctx.Logger)
	})

	key := fmt.Sprintf("dashboard:%s:%s",
		window.From.Format("2006-01-02"), window.To.Format("2006-01-02"))
	response, err := dashboardCache.Get(key)
	if err != nil {
		ctx.Logger.Error("Failed to assemble dashboard", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to assemble dashboard"})
	}
	return ctx.JSON(response)
}

func initDashboardCache(db *gorm.DB, logger *slog.Logger) {
	ttl := time.Duration(config.GetConfig().DashboardCacheTTLSeconds) * time.Second
	fetch := func(key string) (*DashboardResponse, error) {
		window, err := windowFromCacheKey(key)
		if err != nil {
			return nil, err
		}
		return assembleDashboard(db, logger, window)
	}
	dashboardCache = cache.NewCache[string, *DashboardResponse](logger, ttl, fetch)
}

func windowFromCacheKey(key string) (*timeframe.Window, error) {
	var from, to string
	if _, err := fmt.Sscanf(key, "dashboard:%10s:%10s", &from, &to); err != nil {
		return nil, fmt.Errorf("malformed dashboard cache key %q: %w", key, err)
	}
	return timeframe.NewWindow(timeframe.WindowParams{DateFrom: from, DateTo: to})
}

// assembleDashboard runs every panel query concurrently and merges the
// results.
func assembleDashboard(db *gorm.DB, logger *slog.Logger, window *timeframe.Window) (*DashboardResponse, error) {
	tasks := []async.Task{
		{Name: "summary", Execute: func() (interface{}, error) {
			return analytics.GetDashboardSummary(db, window)
		}},
		{Name: "clicks_over_time", Execute: func() (interface{}, error) {
			return analytics.GetClicksOverTime(db, window)
		}},
		{Name: "top_links", Execute: func() (interface{}, error) {
			return analytics.GetTopLinks(db, window, analytics.DefaultLimit)
		}},
		{Name: "top_referrers", Execute: func() (interface{}, error) {
			return analytics.GetTopReferrers(db, window, analytics.DefaultLimit)
		}},
		{Name: "devices", Execute: func() (interface{}, error) {
			return analytics.GetBreakdown(db, window, analytics.DimensionDeviceType, analytics.DefaultLimit)
		}},
		{Name: "browsers", Execute: func() (interface{}, error) {
			return analytics.GetBreakdown(db, window, analytics.DimensionBrowser, analytics.DefaultLimit)
		}},
		{Name: "operating_systems", Execute: func() (interface{}, error) {
			return analytics.GetBreakdown(db, window, analytics.DimensionOS, analytics.DefaultLimit)
		}},
		{Name: "countries", Execute: func() (interface{}, error) {
			return analytics.GetBreakdown(db, window, analytics.DimensionCountry, analytics.DefaultLimit)
		}},
	}

	pool := async.NewPool(4)
	taskCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	results := pool.Execute(taskCtx, tasks)

	for name, result := range results {
		if result.Err != nil {
			return nil, fmt.Errorf("dashboard task %s failed: %w", name, result.Err)
		}
	}

	response := &DashboardResponse{GeneratedAt: time.Now().UTC()}
	if data, ok := results["summary"].Data.(*analytics.Summary); ok {
		response.Summary = data
	}
	if data, ok := results["clicks_over_time"].Data.([]timeframe.DateStat); ok {
		response.ClicksOverTime = data
	}
	if data, ok := results["top_links"].Data.([]analytics.TopLink); ok {
		response.TopLinks = ensureTopLinks(data)
	}
	if data, ok := results["top_referrers"].Data.([]analytics.TopReferrer); ok {
		response.TopReferrers = ensureTopReferrers(data)
	}
	if data, ok := results["devices"].Data.([]analytics.BreakdownItem); ok {
		response.Devices = titleCaseBreakdown(data)
	}
	if data, ok := results["browsers"].Data.([]analytics.BreakdownItem); ok {
		response.Browsers = titleCaseBreakdown(data)
	}
	if data, ok := results["operating_systems"].Data.([]analytics.BreakdownItem); ok {
		response.OperatingSystems = normalizeOSBreakdown(data)
	}
	if data, ok := results["countries"].Data.([]analytics.BreakdownItem); ok {
		response.Countries = convertCountryBreakdown(data)
	}

	logger.Debug("Assembled dashboard",
		slog.Time("from", window.From), slog.Time("to", window.To))

	return response, nil
}

// titleCaseBreakdown normalizes label casing so legacy lowercase rows render
// like current ones.
func titleCaseBreakdown(items []analytics.BreakdownItem) []analytics.BreakdownItem {
	caser := cases.Title(language.AmericanEnglish)
	result := make([]analytics.BreakdownItem, len(items))
	for i, item := range items {
		result[i] = analytics.BreakdownItem{
			Value: caser.String(item.Value),
			Count: item.Count,
		}
	}
	return result
}

// normalizeOSBreakdown title-cases legacy lowercase rows while keeping the
// Apple labels that blanket title casing would mangle ("iOS" is not "Ios").
func normalizeOSBreakdown(items []analytics.BreakdownItem) []analytics.BreakdownItem {
	caser := cases.Title(language.AmericanEnglish)
	result := make([]analytics.BreakdownItem, len(items))
	for i, item := range items {
		name := item.Value
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "ios", "iphone os":
			name = "iOS"
		case "ipados":
			name = "iPadOS"
		case "macos", "mac os", "mac os x", "darwin":
			name = "Mac OS"
		default:
			name = caser.String(name)
		}
		result[i] = analytics.BreakdownItem{Value: name, Count: item.Count}
	}
	return result
}

// convertCountryBreakdown maps ISO country codes to display names.
func convertCountryBreakdown(items []analytics.BreakdownItem) []analytics.BreakdownItem {
	countries := gountries.New()

	result := make([]analytics.BreakdownItem, len(items))
	for i, item := range items {
		name := item.Value
		if name != analytics.UnknownLabel {
			if country, err := countries.FindCountryByAlpha(name); err == nil {
				name = country.Name.Common
			}
		}
		result[i] = analytics.BreakdownItem{Value: name, Count: item.Count}
	}
	return result
}

func ensureTopLinks(items []analytics.TopLink) []analytics.TopLink {
	if items == nil {
		return []analytics.TopLink{}
	}
	return items
}

func ensureTopReferrers(items []analytics.TopReferrer) []analytics.TopReferrer {
	if items == nil {
		return []analytics.TopReferrer{}
	}
	return items
}

