package patterns

import (
	"strings"

	"betterclaw/internal/devicemodel"
)

const (
	window7Days  = 7 * 86400
	window30Days = 30 * 86400
)

// computeHealthTrends averages steps/sleep/resting-HR over 7-day and 30-day
// windows and classifies each against its ratio, per spec.md §4.F.
func computeHealthTrends(entries []devicemodel.EventLogEntry, nowEpoch float64) devicemodel.HealthTrends {
	since7 := nowEpoch - window7Days
	since30 := nowEpoch - window30Days

	var steps7, steps30, sleep7, sleep30, rhr7, rhr30 []float64

	for _, entry := range entries {
		if !strings.HasPrefix(entry.Event.Source, "health") {
			continue
		}
		t := entry.Event.FiredAt
		if t < since30 {
			continue
		}
		within7 := t >= since7

		if v, ok := entry.Event.DataFloat("stepsToday"); ok {
			steps30 = append(steps30, v)
			if within7 {
				steps7 = append(steps7, v)
			}
		}
		if v, ok := entry.Event.DataFloat("sleepDurationSeconds"); ok {
			sleep30 = append(sleep30, v)
			if within7 {
				sleep7 = append(sleep7, v)
			}
		}
		if v, ok := entry.Event.DataFloat("restingHeartRate"); ok {
			rhr30 = append(rhr30, v)
			if within7 {
				rhr7 = append(rhr7, v)
			}
		}
	}

	return devicemodel.HealthTrends{
		Steps:            trendFor(steps7, steps30, false),
		Sleep:            trendFor(sleep7, sleep30, false),
		RestingHeartRate: trendFor(rhr7, rhr30, true),
	}
}

func average(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// trendFor classifies recent-vs-baseline averages. invertedThresholds
// flips the improving/declining direction for metrics like resting heart
// rate where lower is better.
func trendFor(recentValues, baselineValues []float64, invertedThresholds bool) devicemodel.MetricTrend {
	recent, hasRecent := average(recentValues)
	baseline, hasBaseline := average(baselineValues)
	if !hasRecent || !hasBaseline || baseline == 0 {
		mt := devicemodel.MetricTrend{Trend: devicemodel.TrendAbsent}
		if hasRecent {
			mt.Avg7d = &recent
		}
		if hasBaseline {
			mt.Avg30d = &baseline
		}
		return mt
	}

	ratio := recent / baseline
	trend := devicemodel.TrendStable
	switch {
	case ratio > 1.1:
		trend = devicemodel.TrendImproving
	case ratio < 0.9:
		trend = devicemodel.TrendDeclining
	}
	if invertedThresholds {
		switch trend {
		case devicemodel.TrendImproving:
			trend = devicemodel.TrendDeclining
		case devicemodel.TrendDeclining:
			trend = devicemodel.TrendImproving
		}
	}

	return devicemodel.MetricTrend{Avg7d: &recent, Avg30d: &baseline, Trend: trend}
}
