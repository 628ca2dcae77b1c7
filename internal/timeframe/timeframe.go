// Package timeframe parses analytics windows and builds dense daily series.
//
// A window is either "the last N days" (inclusive of today) or an explicit
// inclusive [from, to] date range. The explicit range wins when both are
// supplied. All computation is in UTC.
package timeframe

import (
	"fmt"
	"time"
)

const (
	// DefaultWindowDays is the window applied when the caller specifies
	// nothing.
	DefaultWindowDays = 30

	dateLayout = "2006-01-02"
)

// InvalidWindowError reports unusable window inputs. No partial parsing is
// returned alongside it.
type InvalidWindowError struct {
	Reason string
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid analytics window: %s", e.Reason)
}

// Window is a resolved UTC time range, From at start of day and To at end
// of day.
type Window struct {
	From time.Time
	To   time.Time
}

// WindowParams carries the raw caller inputs for a window.
type WindowParams struct {
	Days     int
	DateFrom string
	DateTo   string
}

// NewWindow resolves the caller inputs to a concrete window. An explicit
// date range takes precedence over Days; Days <= 0 falls back to the
// default.
func NewWindow(params WindowParams) (*Window, error) {
	return newWindowAt(params, time.Now().UTC())
}

// newWindowAt is the clock-injected implementation backing NewWindow.
func newWindowAt(params WindowParams, now time.Time) (*Window, error) {
	if params.DateFrom != "" || params.DateTo != "" {
		if params.DateFrom == "" || params.DateTo == "" {
			return nil, &InvalidWindowError{Reason: "date_from and date_to must be supplied together"}
		}

		from, err := time.ParseInLocation(dateLayout, params.DateFrom, time.UTC)
		if err != nil {
			return nil, &InvalidWindowError{Reason: fmt.Sprintf("malformed date_from %q", params.DateFrom)}
		}
		to, err := time.ParseInLocation(dateLayout, params.DateTo, time.UTC)
		if err != nil {
			return nil, &InvalidWindowError{Reason: fmt.Sprintf("malformed date_to %q", params.DateTo)}
		}
		if to.Before(from) {
			return nil, &InvalidWindowError{Reason: "date_to precedes date_from"}
		}

		return &Window{From: from, To: endOfDay(to)}, nil
	}

	days := params.Days
	if days <= 0 {
		days = DefaultWindowDays
	}

	today := startOfDay(now)
	return &Window{
		From: today.AddDate(0, 0, -(days - 1)),
		To:   endOfDay(today),
	}, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, time.UTC)
}

// Days returns the number of calendar days the window spans.
func (w *Window) Days() int {
	return int(startOfDay(w.To).Sub(startOfDay(w.From))/(24*time.Hour)) + 1
}

// SQLiteDayExpression returns the SQLite expression grouping a timestamp
// column into calendar days.
func SQLiteDayExpression(column string) string {
	return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", column)
}

// DateStat is one day's click count for the time series.
type DateStat struct {
	Date  string `json:"date"`
	Count int    `json:"clicks"`
}

// GenerateDatePoints lists every calendar day of the window in ascending
// order, formatted as YYYY-MM-DD.
func (w *Window) GenerateDatePoints() []string {
	points := make([]string, 0, w.Days())
	for day := startOfDay(w.From); !day.After(w.To); day = day.AddDate(0, 0, 1) {
		points = append(points, day.Format(dateLayout))
	}
	return points
}

// BuildDailySeries spreads sparse per-day counts over the full window,
// zero-filling days without data. The result is dense and ascending.
func (w *Window) BuildDailySeries(raw []DateStat) []DateStat {
	counts := make(map[string]int, len(raw))
	for _, stat := range raw {
		counts[stat.Date] = stat.Count
	}

	points := w.GenerateDatePoints()
	series := make([]DateStat, 0, len(points))
	for _, date := range points {
		series = append(series, DateStat{Date: date, Count: counts[date]})
	}
	return series
}
