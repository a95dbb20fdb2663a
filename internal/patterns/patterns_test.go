package patterns

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"betterclaw/internal/devicectx"
	"betterclaw/internal/devicemodel"
	"betterclaw/internal/eventlog"
)

func TestRules_S5_TrendClassification(t *testing.T) {
	now := float64(time.Now().Unix())
	var entries []devicemodel.EventLogEntry

	// 7 entries inside the 7-day window at stepsToday=10000.
	for i := 0; i < 7; i++ {
		ts := now - float64(i)*3600
		entries = append(entries, devicemodel.EventLogEntry{
			Event:    devicemodel.DeviceEvent{Source: "health.summary", FiredAt: ts, Data: map[string]float64{"stepsToday": 10000}},
			Decision: devicemodel.DecisionPush,
			Timestamp: ts,
		})
	}
	// 23 more entries inside the 30-day but outside the 7-day window at stepsToday=7000.
	for i := 0; i < 23; i++ {
		ts := now - (8+float64(i))*86400
		entries = append(entries, devicemodel.EventLogEntry{
			Event:    devicemodel.DeviceEvent{Source: "health.summary", FiredAt: ts, Data: map[string]float64{"stepsToday": 7000}},
			Decision: devicemodel.DecisionPush,
			Timestamp: ts,
		})
	}

	trends := computeHealthTrends(entries, now)
	if trends.Steps.Trend != devicemodel.TrendImproving {
		t.Fatalf("expected improving trend, got %v (avg7d=%v avg30d=%v)", trends.Steps.Trend, trends.Steps.Avg7d, trends.Steps.Avg30d)
	}
}

func TestTrendFor_RestingHeartRateThresholdsInvert(t *testing.T) {
	recent := []float64{50, 50, 50}
	baseline := []float64{60, 60, 60} // ratio ~0.83 < 0.9
	mt := trendFor(recent, baseline, true)
	if mt.Trend != devicemodel.TrendImproving {
		t.Fatalf("expected improving for resting HR with ratio<0.9, got %v", mt.Trend)
	}
}

func TestTrendFor_AbsentWhenEitherSideMissing(t *testing.T) {
	mt := trendFor(nil, []float64{1, 2, 3}, false)
	if mt.Trend != devicemodel.TrendAbsent {
		t.Fatalf("expected absent trend, got %v", mt.Trend)
	}
}

func TestCompute_SetsComputedAt(t *testing.T) {
	dir := t.TempDir()
	log := eventlog.New(filepath.Join(dir, "events.jsonl"), nil)
	ctxStore := devicectx.New(filepath.Join(dir, "context.json"), filepath.Join(dir, "patterns.json"), nil)

	now := time.Now()
	for i := 0; i < 20; i++ {
		_ = log.Append(devicemodel.EventLogEntry{Timestamp: float64(now.Unix())})
	}

	engine := New(log, ctxStore, 14, nil)
	if err := engine.Compute(context.Background(), now); err != nil {
		t.Fatalf("Compute: %v", err)
	}

	p := ctxStore.ReadPatterns()
	if p.ComputedAt == 0 {
		t.Fatal("expected computedAt to be set")
	}
}

func TestCompute_PreservesTriggerCooldowns(t *testing.T) {
	dir := t.TempDir()
	log := eventlog.New(filepath.Join(dir, "events.jsonl"), nil)
	ctxStore := devicectx.New(filepath.Join(dir, "context.json"), filepath.Join(dir, "patterns.json"), nil)

	seed := devicemodel.EmptyPatterns()
	seed.TriggerCooldowns["low-battery-away"] = 12345
	if err := ctxStore.WritePatterns(seed); err != nil {
		t.Fatal(err)
	}

	engine := New(log, ctxStore, 14, nil)
	if err := engine.Compute(context.Background(), time.Now()); err != nil {
		t.Fatalf("Compute: %v", err)
	}

	p := ctxStore.ReadPatterns()
	if p.TriggerCooldowns["low-battery-away"] != 12345 {
		t.Fatalf("expected triggerCooldowns preserved, got %v", p.TriggerCooldowns)
	}
}

func TestComputeEventStats_TopSourcesLimitedToFive(t *testing.T) {
	now := float64(time.Now().Unix())
	var entries []devicemodel.EventLogEntry
	sources := []string{"a", "b", "c", "d", "e", "f", "g"}
	for i, s := range sources {
		for j := 0; j <= i; j++ {
			entries = append(entries, devicemodel.EventLogEntry{
				Event:    devicemodel.DeviceEvent{Source: s, FiredAt: now},
				Decision: devicemodel.DecisionPush,
			})
		}
	}
	stats := computeEventStats(entries, now)
	if len(stats.TopSources) != 5 {
		t.Fatalf("expected top 5 sources, got %d", len(stats.TopSources))
	}
}
