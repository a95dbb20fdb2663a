package proactive

import (
	"fmt"
	"time"

	"betterclaw/internal/devicemodel"
)

// defaultDrainPerHour is the fallback drain estimate when
// batteryPatterns.avgDrainPerHour is absent — always, per the documented
// Open Question resolution (see DESIGN.md): the pattern engine never
// computes this field.
const defaultDrainPerHour = 0.04

func localHourOf(t time.Time) int {
	return t.Local().Hour()
}

func localFractionalHourOf(t time.Time) float64 {
	lt := t.Local()
	return float64(lt.Hour()) + float64(lt.Minute())/60
}

// LowBatteryAway fires iff battery is present, below 30%, and the device
// is away from "Home". Priority escalates to high under 15%.
func LowBatteryAway(ctx devicemodel.DeviceContext, patterns devicemodel.Patterns, now time.Time) *Insight {
	battery := ctx.Device.Battery
	if battery == nil {
		return nil
	}
	if battery.Level >= 0.3 {
		return nil
	}
	if ctx.Activity.CurrentZone == "Home" {
		return nil
	}

	drain := defaultDrainPerHour
	if patterns.BatteryPatterns.AvgDrainPerHour != nil && *patterns.BatteryPatterns.AvgDrainPerHour > 0 {
		drain = *patterns.BatteryPatterns.AvgDrainPerHour
	}
	hoursRemaining := int(battery.Level/drain + 0.5)

	priority := "normal"
	if battery.Level < 0.15 {
		priority = "high"
	}

	return &Insight{
		Message:  fmt.Sprintf("🔋 Battery at %.0f%% and you're away from home — roughly %dh remaining.", battery.Level*100, hoursRemaining),
		Priority: priority,
	}
}

// UnusualInactivity fires after noon local time when today's step count is
// well below the expected pace for the hour, against the 7-day average.
func UnusualInactivity(ctx devicemodel.DeviceContext, patterns devicemodel.Patterns, now time.Time) *Insight {
	if localHourOf(now) < 12 {
		return nil
	}
	health := ctx.Device.Health
	if health == nil || health.StepsToday == nil {
		return nil
	}
	avg7d := patterns.HealthTrends.Steps.Avg7d
	if avg7d == nil {
		return nil
	}

	hour := float64(localHourOf(now))
	expectedByNow := *avg7d * (hour / 24)
	if *health.StepsToday >= 0.5*expectedByNow {
		return nil
	}

	return &Insight{
		Message:  fmt.Sprintf("🚶 Only %.0f steps today so far, well below your usual pace.", *health.StepsToday),
		Priority: "normal",
	}
}

// SleepDeficit fires in the morning local window when last night's sleep
// duration falls at least an hour short of the 7-day average.
func SleepDeficit(ctx devicemodel.DeviceContext, patterns devicemodel.Patterns, now time.Time) *Insight {
	hour := localHourOf(now)
	if hour < 7 || hour > 10 {
		return nil
	}
	health := ctx.Device.Health
	if health == nil || health.SleepDurationSeconds == nil {
		return nil
	}
	avg7d := patterns.HealthTrends.Sleep.Avg7d
	if avg7d == nil {
		return nil
	}

	deficit := *avg7d - *health.SleepDurationSeconds
	if deficit < 3600 {
		return nil
	}

	return &Insight{
		Message:  fmt.Sprintf("😴 Slept %.1fh less than your usual average last night.", deficit/3600),
		Priority: "normal",
	}
}

// RoutineDeviation fires on weekdays when the device is still in a zone
// well past its typical departure time.
func RoutineDeviation(ctx devicemodel.DeviceContext, patterns devicemodel.Patterns, now time.Time) *Insight {
	weekday := now.Local().Weekday()
	if weekday == time.Sunday || weekday == time.Saturday {
		return nil
	}
	if ctx.Activity.CurrentZone == "" {
		return nil
	}

	nowHour := localFractionalHourOf(now)
	for _, routine := range patterns.LocationRoutines.Weekday {
		if routine.Zone != ctx.Activity.CurrentZone || routine.TypicalLeave == "" {
			continue
		}
		typicalLeave, err := parseHHMM(routine.TypicalLeave)
		if err != nil {
			continue
		}
		if nowHour > typicalLeave+1.5 {
			return &Insight{
				Message:  fmt.Sprintf("⏰ Still at %s, later than your usual %s departure.", routine.Zone, routine.TypicalLeave),
				Priority: "normal",
			}
		}
	}
	return nil
}

// HealthWeeklyDigest fires Sunday mornings, composing a digest from trends
// and event stats.
func HealthWeeklyDigest(ctx devicemodel.DeviceContext, patterns devicemodel.Patterns, now time.Time) *Insight {
	if now.Local().Weekday() != time.Sunday {
		return nil
	}
	hour := localHourOf(now)
	if hour < 9 || hour > 11 {
		return nil
	}

	return &Insight{
		Message: fmt.Sprintf(
			"📊 Weekly digest — steps trend: %s, sleep trend: %s, resting HR trend: %s. %.1f events/day, %.0f%% drop rate.",
			patterns.HealthTrends.Steps.Trend,
			patterns.HealthTrends.Sleep.Trend,
			patterns.HealthTrends.RestingHeartRate.Trend,
			patterns.EventStats.EventsPerDay,
			patterns.EventStats.DropRate*100,
		),
		Priority: "normal",
	}
}

func parseHHMM(s string) (float64, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%2d:%2d", &h, &m); err != nil {
		return 0, err
	}
	return float64(h) + float64(m)/60, nil
}
