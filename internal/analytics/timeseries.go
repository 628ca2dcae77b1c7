package analytics

import (
	"fmt"

	"gorm.io/gorm"

	"linktally/internal/timeframe"
)

// GetClicksOverTime returns one entry per calendar day of the window,
// zero-filled and ascending.
func GetClicksOverTime(db *gorm.DB, window *timeframe.Window) ([]timeframe.DateStat, error) {
	var raw []timeframe.DateStat
	query := fmt.Sprintf(`
		SELECT
			%s AS date,
			COUNT(*) AS count
		FROM click_events
		WHERE click_time >= ? AND click_time <= ?
		GROUP BY date
		ORDER BY date ASC
	`, timeframe.SQLiteDayExpression("click_time"))

	if err := db.Raw(query, window.From, window.To).Scan(&raw).Error; err != nil {
		return nil, fmt.Errorf("failed to query clicks over time: %w", err)
	}

	return window.BuildDailySeries(raw), nil
}
