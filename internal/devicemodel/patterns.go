package devicemodel

// Trend is a qualitative label over a recent/baseline ratio.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
	TrendAbsent    Trend = "absent"
)

// ZoneRoutine is a per-zone typical arrive/leave time, "HH:MM" or empty.
type ZoneRoutine struct {
	Zone          string `json:"zone"`
	TypicalArrive string `json:"typicalArrive,omitempty"`
	TypicalLeave  string `json:"typicalLeave,omitempty"`
}

// LocationRoutines partitions zone routines by weekday vs. weekend.
type LocationRoutines struct {
	Weekday []ZoneRoutine `json:"weekday"`
	Weekend []ZoneRoutine `json:"weekend"`
}

// MetricTrend is a 7-day/30-day average pair plus its trend label.
type MetricTrend struct {
	Avg7d   *float64 `json:"avg7d,omitempty"`
	Avg30d  *float64 `json:"avg30d,omitempty"`
	Trend   Trend    `json:"trend"`
}

// HealthTrends holds the per-metric trend summaries.
type HealthTrends struct {
	Steps            MetricTrend `json:"steps"`
	Sleep            MetricTrend `json:"sleep"`
	RestingHeartRate MetricTrend `json:"restingHeartRate"`
}

// BatteryPatterns is F's battery-specific analytics. avgDrainPerHour and
// typicalChargeTime are declared by spec.md but left uncomputed per the
// documented Open Question resolution (see DESIGN.md); callers needing a
// drain estimate use the 0.04 constant fallback directly.
type BatteryPatterns struct {
	AvgDrainPerHour     *float64 `json:"avgDrainPerHour,omitempty"`
	TypicalChargeTime   string   `json:"typicalChargeTime,omitempty"`
	LowBatteryFrequency *float64 `json:"lowBatteryFrequency,omitempty"`
}

// SourceCount is one entry of eventStats.topSources.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// EventStats is F's 7-day rollup of log activity.
type EventStats struct {
	EventsPerDay float64       `json:"eventsPerDay"`
	PushesPerDay float64       `json:"pushesPerDay"`
	DropRate     float64       `json:"dropRate"`
	TopSources   []SourceCount `json:"topSources"`
}

// Patterns is F's persisted output, read-only to G and get_context.
type Patterns struct {
	LocationRoutines LocationRoutines  `json:"locationRoutines"`
	HealthTrends     HealthTrends      `json:"healthTrends"`
	BatteryPatterns  BatteryPatterns   `json:"batteryPatterns"`
	EventStats       EventStats        `json:"eventStats"`
	TriggerCooldowns map[string]float64 `json:"triggerCooldowns"`
	ComputedAt       float64           `json:"computedAt"`
}

// EmptyPatterns returns the zero-value patterns document used when
// patterns.json is missing or corrupt.
func EmptyPatterns() Patterns {
	return Patterns{TriggerCooldowns: make(map[string]float64)}
}
