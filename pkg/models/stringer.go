package models

// String methods for all custom string types.
// These are required for toon serialization, which uses fmt.Stringer.

// ComparisonType
func (c ComparisonType) String() string { return string(c) }

// Direction
func (d Direction) String() string { return string(d) }

// Performance
func (p Performance) String() string { return string(p) }

// Outcome
func (o Outcome) String() string { return string(o) }

// InsightCategory
func (c InsightCategory) String() string { return string(c) }

// InsightType
func (t InsightType) String() string { return string(t) }

// TrendDirection
func (t TrendDirection) String() string { return string(t) }

// AnomalyType
func (a AnomalyType) String() string { return string(a) }
