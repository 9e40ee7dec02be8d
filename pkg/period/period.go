// Package period resolves reporting quarters into concrete date ranges
// and pairs them with the period they are compared against.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/panbanda/quarterly/pkg/models"
)

var (
	// ErrInvalidQuarter is returned for quarters outside Q1-Q4.
	ErrInvalidQuarter = errors.New("invalid quarter")
	// ErrInvalidComparison is returned for comparison modes other than yoy and qoq.
	ErrInvalidComparison = errors.New("unknown comparison type")
)

// Quarter is a calendar quarter.
type Quarter int

const (
	Q1 Quarter = iota + 1
	Q2
	Q3
	Q4
)

func (q Quarter) String() string {
	return fmt.Sprintf("Q%d", int(q))
}

// Valid reports whether q is one of Q1-Q4.
func (q Quarter) Valid() bool {
	return q >= Q1 && q <= Q4
}

// FirstMonth returns the month the quarter starts in.
func (q Quarter) FirstMonth() time.Month {
	return time.Month((int(q)-1)*3 + 1)
}

// ParseQuarter accepts "Q1".."Q4" (any case) or "1".."4".
func ParseQuarter(s string) (Quarter, error) {
	v := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "Q")
	if len(v) == 1 && v[0] >= '1' && v[0] <= '4' {
		return Quarter(v[0] - '0'), nil
	}
	return 0, fmt.Errorf("%w: %q (expected Q1, Q2, Q3 or Q4)", ErrInvalidQuarter, s)
}

// ParseComparison accepts "yoy" or "qoq" in any case.
func ParseComparison(s string) (models.ComparisonType, error) {
	switch models.ComparisonType(strings.ToLower(strings.TrimSpace(s))) {
	case models.ComparisonYoY:
		return models.ComparisonYoY, nil
	case models.ComparisonQoQ:
		return models.ComparisonQoQ, nil
	}
	return "", fmt.Errorf("%w: %q (use 'yoy' or 'qoq')", ErrInvalidComparison, s)
}

// QuarterDates returns the calendar quarter as a labeled period, e.g. "Q4 2024".
func QuarterDates(q Quarter, year int) (models.DatePeriod, error) {
	if !q.Valid() {
		return models.DatePeriod{}, fmt.Errorf("%w: %d", ErrInvalidQuarter, int(q))
	}
	start := time.Date(year, q.FirstMonth(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, -1)
	return models.NewDatePeriod(start, end, fmt.Sprintf("%s %d", q, year)), nil
}

// Previous returns the quarter immediately before q, wrapping Q1 into Q4
// of the prior year.
func Previous(q Quarter, year int) (Quarter, int) {
	if q == Q1 {
		return Q4, year - 1
	}
	return q - 1, year
}

// Resolve returns the reporting quarter and the period it is compared
// against. Year-over-year compares with the same quarter a year earlier;
// quarter-over-quarter with the preceding quarter.
func Resolve(q Quarter, year int, mode models.ComparisonType) (models.ComparisonPeriods, error) {
	current, err := QuarterDates(q, year)
	if err != nil {
		return models.ComparisonPeriods{}, err
	}

	var prevQ Quarter
	var prevYear int
	switch mode {
	case models.ComparisonYoY:
		prevQ, prevYear = q, year-1
	case models.ComparisonQoQ:
		prevQ, prevYear = Previous(q, year)
	default:
		return models.ComparisonPeriods{}, fmt.Errorf("%w: %q", ErrInvalidComparison, mode)
	}

	previous, err := QuarterDates(prevQ, prevYear)
	if err != nil {
		return models.ComparisonPeriods{}, err
	}
	return models.ComparisonPeriods{
		Current:  current,
		Previous: previous,
		Type:     mode,
	}, nil
}

// Months splits a quarter into its three calendar months, labeled like
// "January 2024".
func Months(q Quarter, year int) ([]models.DatePeriod, error) {
	if !q.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuarter, int(q))
	}
	months := make([]models.DatePeriod, 0, 3)
	for i := 0; i < 3; i++ {
		start := time.Date(year, q.FirstMonth()+time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, -1)
		months = append(months, models.NewDatePeriod(start, end, start.Format("January 2006")))
	}
	return months, nil
}

// YearToDate returns January 1st of year through now, or through
// December 31st when now is in a later year.
func YearToDate(year int, now time.Time) models.DatePeriod {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := now
	if now.Year() != year {
		end = time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	return models.NewDatePeriod(start, end, fmt.Sprintf("YTD %d", year))
}

// Custom builds an arbitrary period. An empty label defaults to
// "<start> to <end>".
func Custom(start, end time.Time, label string) (models.DatePeriod, error) {
	if end.Before(start) {
		return models.DatePeriod{}, fmt.Errorf("period end %s is before start %s",
			end.Format(models.DateLayout), start.Format(models.DateLayout))
	}
	if label == "" {
		label = fmt.Sprintf("%s to %s", start.Format(models.DateLayout), end.Format(models.DateLayout))
	}
	return models.NewDatePeriod(start, end, label), nil
}

// QuarterOf returns the quarter and year a date falls in.
func QuarterOf(t time.Time) (Quarter, int) {
	return Quarter((int(t.Month())-1)/3 + 1), t.Year()
}

// Current returns the quarter containing now.
func Current(now time.Time) (Quarter, int) {
	return QuarterOf(now)
}

// LastCompleted returns the most recent quarter that has fully ended
// before now.
func LastCompleted(now time.Time) (Quarter, int) {
	q, year := QuarterOf(now)
	return Previous(q, year)
}

// FormatMonth converts a YYYYMM key into "Jan 2024". Unparseable input
// is returned unchanged.
func FormatMonth(yyyymm string) string {
	t, err := time.Parse("200601", yyyymm)
	if err != nil {
		return yyyymm
	}
	return t.Format("Jan 2006")
}
