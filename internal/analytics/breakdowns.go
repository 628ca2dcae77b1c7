package analytics

import (
	"fmt"

	"gorm.io/gorm"

	"linktally/internal/timeframe"
)

// Dimension names a click event column breakdowns may group by.
type Dimension string

// Supported breakdown dimensions.
const (
	DimensionDeviceType Dimension = "device_type"
	DimensionBrowser    Dimension = "browser"
	DimensionOS         Dimension = "os"
	DimensionCountry    Dimension = "country"
)

// breakdownColumns whitelists the dimension-to-column mapping; dimension
// values never reach SQL without passing through it.
var breakdownColumns = map[Dimension]string{
	DimensionDeviceType: "device_type",
	DimensionBrowser:    "browser",
	DimensionOS:         "os",
	DimensionCountry:    "country",
}

// ParseDimension validates a caller-supplied dimension name.
func ParseDimension(raw string) (Dimension, error) {
	dim := Dimension(raw)
	if _, ok := breakdownColumns[dim]; !ok {
		return "", fmt.Errorf("unknown breakdown dimension: %q", raw)
	}
	return dim, nil
}

// BreakdownItem is one bucket of a dimension breakdown.
type BreakdownItem struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// GetBreakdown groups window clicks by the given dimension, mapping empty
// values to Unknown, sorted by count descending.
func GetBreakdown(db *gorm.DB, window *timeframe.Window, dimension Dimension, limit int) ([]BreakdownItem, error) {
	column, ok := breakdownColumns[dimension]
	if !ok {
		return nil, fmt.Errorf("unknown breakdown dimension: %q", dimension)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	var results []BreakdownItem
	query := fmt.Sprintf(`
		SELECT
			CASE WHEN TRIM(%s) = '' THEN ? ELSE %s END AS value,
			COUNT(*) AS count
		FROM click_events
		WHERE click_time >= ? AND click_time <= ?
		GROUP BY value
		ORDER BY count DESC
		LIMIT ?
	`, column, column)

	if err := db.Raw(query, UnknownLabel, window.From, window.To, limit).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s breakdown: %w", dimension, err)
	}

	return results, nil
}
