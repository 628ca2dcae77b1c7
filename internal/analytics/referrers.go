package analytics

import (
	"fmt"
	"net/url"

	"gorm.io/gorm"

	"linktally/internal/pkg/referrers"
	"linktally/internal/timeframe"
)

// TopReferrer is one row of the top referrers panel.
type TopReferrer struct {
	Referrer string `json:"referrer"`
	Domain   string `json:"domain"`
	Source   string `json:"source"`
	Count    int    `json:"count"`
}

// GetTopReferrers groups window clicks by exact referrer string, excluding
// clicks without a referrer entirely, sorted by count descending.
func GetTopReferrers(db *gorm.DB, window *timeframe.Window, limit int) ([]TopReferrer, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var results []TopReferrer
	query := `
		SELECT
			referrer,
			COUNT(*) AS count
		FROM click_events
		WHERE click_time >= ? AND click_time <= ?
			AND referrer != ''
		GROUP BY referrer
		ORDER BY count DESC
		LIMIT ?
	`
	if err := db.Raw(query, window.From, window.To, limit).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to query top referrers: %w", err)
	}

	for i := range results {
		results[i].Domain = referrerDomain(results[i].Referrer)
		results[i].Source = referrers.FriendlyName(results[i].Domain)
	}

	return results, nil
}

// referrerDomain extracts the host from a referrer URL, falling back to the
// raw string when it does not parse as a URL with a host.
func referrerDomain(referrer string) string {
	parsed, err := url.Parse(referrer)
	if err != nil || parsed.Host == "" {
		return referrer
	}
	return parsed.Host
}
