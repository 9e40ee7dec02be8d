package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire layout for period boundaries.
const DateLayout = "2006-01-02"

// ComparisonType selects which previous period a report compares against.
type ComparisonType string

const (
	ComparisonYoY ComparisonType = "yoy"
	ComparisonQoQ ComparisonType = "qoq"
)

// Label returns the human-readable name of the comparison.
func (c ComparisonType) Label() string {
	switch c {
	case ComparisonQoQ:
		return "Quarter-over-Quarter"
	default:
		return "Year-over-Year"
	}
}

// Short returns the abbreviated suffix used in insight headlines.
func (c ComparisonType) Short() string {
	if c == ComparisonQoQ {
		return "QoQ"
	}
	return "YoY"
}

// DatePeriod is an inclusive calendar date range.
type DatePeriod struct {
	Start time.Time
	End   time.Time
	Label string
}

// NewDatePeriod builds a period from calendar dates in UTC.
func NewDatePeriod(start, end time.Time, label string) DatePeriod {
	return DatePeriod{
		Start: truncateDay(start),
		End:   truncateDay(end),
		Label: label,
	}
}

// StartDate returns the start formatted as YYYY-MM-DD.
func (p DatePeriod) StartDate() string { return p.Start.Format(DateLayout) }

// EndDate returns the end formatted as YYYY-MM-DD.
func (p DatePeriod) EndDate() string { return p.End.Format(DateLayout) }

// Days returns the number of days covered, both ends included.
func (p DatePeriod) Days() int {
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}

// Contains reports whether t falls on a day inside the period.
func (p DatePeriod) Contains(t time.Time) bool {
	d := truncateDay(t)
	return !d.Before(p.Start) && !d.After(p.End)
}

func (p DatePeriod) String() string {
	return fmt.Sprintf("%s (%s to %s)", p.Label, p.StartDate(), p.EndDate())
}

type datePeriodJSON struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Label     string `json:"label"`
	Days      int    `json:"days"`
}

// MarshalJSON encodes the period with date-only boundaries.
func (p DatePeriod) MarshalJSON() ([]byte, error) {
	return json.Marshal(datePeriodJSON{
		StartDate: p.StartDate(),
		EndDate:   p.EndDate(),
		Label:     p.Label,
		Days:      p.Days(),
	})
}

// UnmarshalJSON decodes a period written by MarshalJSON.
func (p *DatePeriod) UnmarshalJSON(data []byte) error {
	var raw datePeriodJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := time.Parse(DateLayout, raw.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start_date: %w", err)
	}
	end, err := time.Parse(DateLayout, raw.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end_date: %w", err)
	}
	*p = NewDatePeriod(start, end, raw.Label)
	return nil
}

// ComparisonPeriods pairs the reporting period with its comparison period.
type ComparisonPeriods struct {
	Current  DatePeriod     `json:"current"`
	Previous DatePeriod     `json:"previous"`
	Type     ComparisonType `json:"comparison_type"`
}

func (c ComparisonPeriods) String() string {
	return fmt.Sprintf("%s vs %s", c.Current.Label, c.Previous.Label)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
