package models

// Direction is the favorability-adjusted direction of a change.
type Direction string

const (
	DirectionUp      Direction = "up"
	DirectionDown    Direction = "down"
	DirectionNeutral Direction = "neutral"
)

// ChangeMetric describes how a metric moved between two periods.
// ChangePct keeps the raw arithmetic sign even for inverse metrics;
// only Direction is flipped.
type ChangeMetric struct {
	Current           float64   `json:"current"`
	Previous          float64   `json:"previous"`
	ChangePct         float64   `json:"change_pct"`
	ChangeAbs         float64   `json:"change_abs"`
	Direction         Direction `json:"direction"`
	IsSignificant     bool      `json:"is_significant"`
	IsAnomaly         bool      `json:"is_anomaly"`
	FormattedChange   string    `json:"formatted_change"`
	FormattedCurrent  string    `json:"formatted_current"`
	FormattedPrevious string    `json:"formatted_previous"`
}

// Improved reports whether the change moved in the favorable direction.
func (c ChangeMetric) Improved() bool { return c.Direction == DirectionUp }

// Declined reports whether the change moved in the unfavorable direction.
func (c ChangeMetric) Declined() bool { return c.Direction == DirectionDown }
