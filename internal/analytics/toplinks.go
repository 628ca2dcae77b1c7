package analytics

import (
	"fmt"

	"gorm.io/gorm"

	"linktally/internal/timeframe"
)

// TopLink is one row of the top performing links panel.
type TopLink struct {
	LinkID         uint    `json:"link_id"`
	ShortCode      string  `json:"short_code"`
	DestinationURL string  `json:"destination_url"`
	Campaign       string  `json:"campaign,omitempty"`
	TotalClicks    int     `json:"total_clicks"`
	UniqueVisitors int     `json:"unique_visitors"`
	ConversionRate float64 `json:"conversion_rate"`
}

// GetTopLinks joins every live link with its click and distinct-visitor
// counts for the window, sorted by clicks descending and truncated to
// limit. Links without clicks in the window still appear with zero counts
// (until pushed out by the limit).
func GetTopLinks(db *gorm.DB, window *timeframe.Window, limit int) ([]TopLink, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var results []TopLink
	query := `
		SELECT
			l.id AS link_id,
			l.short_code,
			l.destination_url,
			l.campaign,
			COUNT(e.id) AS total_clicks,
			COUNT(DISTINCT e.visitor_id) AS unique_visitors
		FROM links l
		LEFT JOIN click_events e
			ON e.link_id = l.id
			AND e.click_time >= ? AND e.click_time <= ?
		WHERE l.deleted_at IS NULL
		GROUP BY l.id, l.short_code, l.destination_url, l.campaign
		ORDER BY total_clicks DESC, l.id ASC
		LIMIT ?
	`
	if err := db.Raw(query, window.From, window.To, limit).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to query top links: %w", err)
	}

	for i := range results {
		results[i].ConversionRate = ConversionRate(results[i].TotalClicks, results[i].UniqueVisitors)
	}

	return results, nil
}
