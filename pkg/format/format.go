// Package format renders report numbers for people: thousands
// separators, percentages, durations and trend markers.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/panbanda/quarterly/pkg/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Number formats v as a thousands-separated integer, truncating any
// fractional part (1234.9 becomes "1,234").
func Number(v float64) string {
	return printer.Sprintf("%d", int64(math.Trunc(v)))
}

// Decimal formats v with thousands separators and the given precision.
func Decimal(v float64, places int) string {
	if places <= 0 {
		return Number(v)
	}
	return printer.Sprintf(fmt.Sprintf("%%.%df", places), v)
}

// Percent formats an already-scaled percentage, e.g. 12.345 -> "12.3%".
func Percent(v float64, places int) string {
	return fmt.Sprintf("%.*f%%", places, v)
}

// SignedPercent formats a change with an explicit plus sign for positive
// values and one decimal place.
func SignedPercent(v float64) string {
	sign := ""
	if v > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.1f%%", sign, v)
}

// Duration renders seconds as "45s", "2m 5s" or "1h 3m".
func Duration(seconds float64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", int(seconds))
	case seconds < 3600:
		return fmt.Sprintf("%dm %ds", int(seconds)/60, int(seconds)%60)
	default:
		total := int(seconds)
		return fmt.Sprintf("%dh %dm", total/3600, (total%3600)/60)
	}
}

// Bytes renders a size as "512 B", "1.5 KB" or "2.0 MB".
func Bytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// CTR formats a click-through rate percentage with two decimals.
func CTR(ctr float64) string {
	return fmt.Sprintf("%.2f%%", ctr)
}

// Position formats an average search position.
func Position(position float64) string {
	return fmt.Sprintf("%.1f", position)
}

// TrendMarker returns an arrow for the direction, or a louder marker
// when the change was an anomaly.
func TrendMarker(direction models.Direction, anomaly bool) string {
	switch direction {
	case models.DirectionUp:
		if anomaly {
			return "🚀"
		}
		return "↑"
	case models.DirectionDown:
		if anomaly {
			return "⚠️"
		}
		return "↓"
	}
	return "→"
}

// TrendColor maps a direction to a hex color: green for favorable, red
// for unfavorable, gray for neutral. Direction is already adjusted for
// inverse metrics.
func TrendColor(direction models.Direction) string {
	switch direction {
	case models.DirectionUp:
		return "#22C55E"
	case models.DirectionDown:
		return "#EF4444"
	}
	return "#888888"
}

// Truncate shortens s to at most max runes, ending in "...".
func Truncate(s string, max int) string {
	const suffix = "..."
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= len(suffix) {
		return string(r[:max])
	}
	return string(r[:max-len(suffix)]) + suffix
}

var filenameReplacer = strings.NewReplacer(
	" ", "_",
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "",
	"?", "",
	`"`, "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFilename replaces characters that are unsafe in file names.
func SanitizeFilename(name string) string {
	return filenameReplacer.Replace(name)
}

// MetricDisplay is a change prepared for a dashboard row.
type MetricDisplay struct {
	Name          string           `json:"name"`
	Current       string           `json:"current"`
	Previous      string           `json:"previous"`
	Change        string           `json:"change"`
	Marker        string           `json:"trend_marker"`
	Direction     models.Direction `json:"direction"`
	IsSignificant bool             `json:"is_significant"`
	IsAnomaly     bool             `json:"is_anomaly"`
}

// Display prepares a change metric for presentation, appending unit to
// both values.
func Display(name string, c models.ChangeMetric, unit string) MetricDisplay {
	return MetricDisplay{
		Name:          name,
		Current:       c.FormattedCurrent + unit,
		Previous:      c.FormattedPrevious + unit,
		Change:        c.FormattedChange,
		Marker:        TrendMarker(c.Direction, c.IsAnomaly),
		Direction:     c.Direction,
		IsSignificant: c.IsSignificant,
		IsAnomaly:     c.IsAnomaly,
	}
}
