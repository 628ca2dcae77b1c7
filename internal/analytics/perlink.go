package analytics

import (
	"time"

	"gorm.io/gorm"

	"linktally/internal/links"
)

// LinkStats is the all-time statistics block for one link, served from the
// denormalized counters.
type LinkStats struct {
	LinkID         uint       `json:"link_id"`
	ShortCode      string     `json:"short_code"`
	TotalClicks    int        `json:"total_clicks"`
	UniqueVisitors int        `json:"unique_visitors"`
	AvgConversion  string     `json:"avg_conversion"`
	LastClickedAt  *time.Time `json:"last_clicked_at,omitempty"`
}

// GetLinkStats returns the counter-backed statistics for a single link.
func GetLinkStats(db *gorm.DB, linkID uint) (*LinkStats, error) {
	link, err := links.GetLinkByID(db, linkID)
	if err != nil {
		return nil, err
	}

	return &LinkStats{
		LinkID:         link.ID,
		ShortCode:      link.ShortCode,
		TotalClicks:    link.TotalClicks,
		UniqueVisitors: link.UniqueVisitors,
		AvgConversion:  AverageConversion(link.TotalClicks, link.UniqueVisitors),
		LastClickedAt:  link.LastClickedAt,
	}, nil
}
