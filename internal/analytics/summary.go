package analytics

import (
	"fmt"

	"gorm.io/gorm"

	"linktally/internal/links"
	"linktally/internal/timeframe"
)

// Summary is the dashboard headline block.
type Summary struct {
	TotalClicks    int    `json:"total_clicks"`
	UniqueVisitors int    `json:"unique_visitors"`
	ActiveLinks    int64  `json:"active_links"`
	AvgConversion  string `json:"avg_conversion"`
	// CounterFallback marks totals summed from all-time link counters
	// because the event store had no rows for the window. The window does
	// not apply to counter sums.
	CounterFallback bool `json:"counter_fallback,omitempty"`
}

type summaryRow struct {
	TotalClicks    int
	UniqueVisitors int
}

// GetDashboardSummary computes window totals from the event store, falling
// back to the all-time denormalized link counters when the window holds no
// events.
func GetDashboardSummary(db *gorm.DB, window *timeframe.Window) (*Summary, error) {
	var row summaryRow
	query := `
		SELECT
			COUNT(*) AS total_clicks,
			COUNT(DISTINCT visitor_id) AS unique_visitors
		FROM click_events
		WHERE click_time >= ? AND click_time <= ?
	`
	if err := db.Raw(query, window.From, window.To).Scan(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to query click totals: %w", err)
	}

	summary := &Summary{
		TotalClicks:    row.TotalClicks,
		UniqueVisitors: row.UniqueVisitors,
	}

	if summary.TotalClicks == 0 {
		fallback := `
			SELECT
				COALESCE(SUM(total_clicks), 0) AS total_clicks,
				COALESCE(SUM(unique_visitors), 0) AS unique_visitors
			FROM links
			WHERE deleted_at IS NULL
		`
		if err := db.Raw(fallback).Scan(&row).Error; err != nil {
			return nil, fmt.Errorf("failed to query link counter totals: %w", err)
		}
		if row.TotalClicks > 0 {
			summary.TotalClicks = row.TotalClicks
			summary.UniqueVisitors = row.UniqueVisitors
			summary.CounterFallback = true
		}
	}

	activeLinks, err := links.CountActiveLinks(db)
	if err != nil {
		return nil, err
	}
	summary.ActiveLinks = activeLinks
	summary.AvgConversion = AverageConversion(summary.TotalClicks, summary.UniqueVisitors)

	return summary, nil
}
