// Package analytics aggregates the click event store into dashboard-ready
// summaries, time series and breakdowns, and cross-checks the denormalized
// link counters against raw aggregates.
//
// All queries are read-only and never fail on empty data: empty windows
// yield zero-valued aggregates and dense zero-filled series.
package analytics

import (
	"math"
	"strconv"
)

// DefaultLimit bounds ranked result sets (top links, top referrers,
// breakdowns) unless the caller asks for less.
const DefaultLimit = 10

// UnknownLabel is the bucket for missing or empty dimension values.
const UnknownLabel = "Unknown"

// roundRate rounds a percentage to two decimals.
func roundRate(value float64) float64 {
	return math.Round(value*100) / 100
}

// formatPercent renders a rate the way the dashboard displays it: two
// decimals at most, no trailing zeros, percent sign attached.
func formatPercent(value float64) string {
	return strconv.FormatFloat(roundRate(value), 'f', -1, 64) + "%"
}

// ConversionRate is unique visitors per click, as a percentage. Zero clicks
// yield zero rather than an error.
func ConversionRate(totalClicks, uniqueVisitors int) float64 {
	if totalClicks == 0 {
		return 0
	}
	return roundRate(float64(uniqueVisitors) / float64(totalClicks) * 100)
}

// AverageConversion is clicks per unique visitor, as a display string.
// Returns "0%" when there are no unique visitors.
func AverageConversion(totalClicks, uniqueVisitors int) string {
	if uniqueVisitors == 0 {
		return "0%"
	}
	return formatPercent(float64(totalClicks) / float64(uniqueVisitors) * 100)
}
