package analytics

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"linktally/internal/pkg/useragent"
	"linktally/internal/timeframe"
)

// Validation statuses, worst wins for the overall verdict.
const (
	StatusPassed  = "PASSED"
	StatusWarning = "WARNING"
	StatusFailed  = "FAILED"
)

// crossCheckTolerance absorbs boundary rounding between independently
// computed aggregates.
const crossCheckTolerance = 1

// ValidationCheck is one named consistency check.
type ValidationCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ValidationReport is the structured result of a full data cross-check.
// Diagnostic tooling only; nothing on the request path depends on it.
type ValidationReport struct {
	Timestamp     time.Time                    `json:"validation_timestamp"`
	Window        string                       `json:"window"`
	OverallStatus string                       `json:"overall_status"`
	IssuesFound   []string                     `json:"issues_found"`
	Warnings      []string                     `json:"warnings"`
	Panels        map[string][]ValidationCheck `json:"panel_validations"`
	CrossChecks   []ValidationCheck            `json:"cross_validation"`
}

func (r *ValidationReport) add(panel string, check ValidationCheck) {
	r.Panels[panel] = append(r.Panels[panel], check)
	r.observe(check)
}

func (r *ValidationReport) addCross(check ValidationCheck) {
	r.CrossChecks = append(r.CrossChecks, check)
	r.observe(check)
}

func (r *ValidationReport) observe(check ValidationCheck) {
	switch check.Status {
	case StatusFailed:
		r.IssuesFound = append(r.IssuesFound, check.Message)
		r.OverallStatus = StatusFailed
	case StatusWarning:
		r.Warnings = append(r.Warnings, check.Message)
		if r.OverallStatus != StatusFailed {
			r.OverallStatus = StatusWarning
		}
	}
}

func passed(name, message string) ValidationCheck {
	return ValidationCheck{Name: name, Status: StatusPassed, Message: message}
}

func warning(name, message string) ValidationCheck {
	return ValidationCheck{Name: name, Status: StatusWarning, Message: message}
}

func failed(name, message string) ValidationCheck {
	return ValidationCheck{Name: name, Status: StatusFailed, Message: message}
}

// knownDeviceTypes guards the device breakdown against the corruption class
// where OS-like values leak into the device column.
var knownDeviceTypes = map[string]bool{
	useragent.DeviceDesktop: true,
	useragent.DeviceMobile:  true,
	useragent.DeviceTablet:  true,
	UnknownLabel:            true,
}

// ValidateData recomputes every dashboard aggregate for the window and
// cross-checks them against each other and against the invariants of the
// data model.
func ValidateData(db *gorm.DB, window *timeframe.Window) (*ValidationReport, error) {
	report := &ValidationReport{
		Timestamp:     time.Now().UTC(),
		Window:        fmt.Sprintf("%s to %s", window.From.Format("2006-01-02"), window.To.Format("2006-01-02")),
		OverallStatus: StatusPassed,
		IssuesFound:   []string{},
		Warnings:      []string{},
		Panels:        map[string][]ValidationCheck{},
		CrossChecks:   []ValidationCheck{},
	}

	summary, err := GetDashboardSummary(db, window)
	if err != nil {
		return nil, err
	}
	series, err := GetClicksOverTime(db, window)
	if err != nil {
		return nil, err
	}
	topLinks, err := GetTopLinks(db, window, DefaultLimit)
	if err != nil {
		return nil, err
	}
	topReferrers, err := GetTopReferrers(db, window, DefaultLimit)
	if err != nil {
		return nil, err
	}
	devices, err := GetBreakdown(db, window, DimensionDeviceType, DefaultLimit)
	if err != nil {
		return nil, err
	}

	// Summary panel
	if summary.UniqueVisitors > summary.TotalClicks {
		report.add("summary", failed("unique_not_above_total",
			fmt.Sprintf("summary unique visitors (%d) exceed total clicks (%d)",
				summary.UniqueVisitors, summary.TotalClicks)))
	} else {
		report.add("summary", passed("unique_not_above_total", "unique visitors within total clicks"))
	}
	if summary.CounterFallback {
		report.add("summary", warning("counter_fallback",
			"summary totals come from all-time link counters; the window does not apply"))
	}

	// Top links panel
	linksOK := true
	for _, row := range topLinks {
		if row.UniqueVisitors > row.TotalClicks {
			linksOK = false
			report.add("top_links", failed("unique_not_above_total",
				fmt.Sprintf("link %d has %d unique visitors but only %d clicks",
					row.LinkID, row.UniqueVisitors, row.TotalClicks)))
		}
	}
	if linksOK {
		report.add("top_links", passed("unique_not_above_total", "every link keeps unique visitors within clicks"))
	}

	// Referrers panel
	referrersOK := true
	for _, row := range topReferrers {
		if row.Referrer == "" {
			referrersOK = false
			report.add("top_referrers", failed("no_empty_referrers", "empty referrer present in top referrers"))
		}
	}
	if referrersOK {
		report.add("top_referrers", passed("no_empty_referrers", "no empty referrers reported"))
	}

	// Device panel
	devicesOK := true
	for _, item := range devices {
		if !knownDeviceTypes[item.Value] {
			devicesOK = false
			report.add("devices", warning("known_device_types",
				fmt.Sprintf("unexpected device type value %q in breakdown", item.Value)))
		}
	}
	if devicesOK {
		report.add("devices", passed("known_device_types", "all device type values are canonical"))
	}

	// Cross-validation
	seriesTotal := 0
	for _, point := range series {
		seriesTotal += point.Count
	}
	report.addCross(toleranceCheck("timeline_vs_summary", seriesTotal, summary.TotalClicks,
		"clicks over time", "summary total clicks"))

	topLinksTotal := 0
	for _, row := range topLinks {
		topLinksTotal += row.TotalClicks
	}
	report.addCross(toleranceCheck("top_links_vs_summary", topLinksTotal, summary.TotalClicks,
		"top links", "summary total clicks"))

	return report, nil
}

func toleranceCheck(name string, got, want int, gotLabel, wantLabel string) ValidationCheck {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	if diff <= crossCheckTolerance {
		return passed(name, fmt.Sprintf("%s (%d) matches %s (%d)", gotLabel, got, wantLabel, want))
	}
	return warning(name, fmt.Sprintf("%s sums to %d but %s is %d (tolerance %d exceeded)",
		gotLabel, got, wantLabel, want, crossCheckTolerance))
}
