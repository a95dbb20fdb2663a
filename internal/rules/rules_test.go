package rules

import (
	"strings"
	"testing"
	"time"

	"betterclaw/internal/devicemodel"
)

func TestRules_S1_DebugPassthrough(t *testing.T) {
	e := New(10)
	event := devicemodel.DeviceEvent{
		SubscriptionID: "default.battery-low",
		Data:           map[string]float64{"level": 0.15, "_debugFired": 1.0},
		FiredAt:        1740000000,
	}
	v := e.Evaluate(event, devicemodel.DeviceContext{})
	if v.Action != devicemodel.DecisionPush || !strings.Contains(v.Reason, "debug") {
		t.Fatalf("expected debug push, got %+v", v)
	}
}

func TestRules_S2_CriticalBatteryAlways(t *testing.T) {
	e := New(10)
	event := devicemodel.DeviceEvent{
		SubscriptionID: "default.battery-critical",
		Data:           map[string]float64{"level": 0.08},
		FiredAt:        1740000000,
	}
	v := e.Evaluate(event, devicemodel.DeviceContext{})
	if v.Action != devicemodel.DecisionPush {
		t.Fatalf("expected push, got %+v", v)
	}
}

func TestRules_S3_DailyHealthDefersAtNoonUTC(t *testing.T) {
	// Pin the test's expectation to the local offset: if local noon-UTC
	// coincidentally lands within 6-10, the test environment isn't
	// representative; the scenario assumes a timezone where it does not.
	firedAt := float64(time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC).Unix())
	localHr := localHour(firedAt)
	if localHr >= 6 && localHr <= 10 {
		t.Skip("local timezone places noon UTC inside the morning window")
	}

	e := New(10)
	event := devicemodel.DeviceEvent{
		SubscriptionID: "default.daily-health",
		Source:         "health.summary",
		Data:           map[string]float64{"stepsToday": 5000},
		FiredAt:        firedAt,
	}
	v := e.Evaluate(event, devicemodel.DeviceContext{})
	if v.Action != devicemodel.DecisionDefer {
		t.Fatalf("expected defer, got %+v", v)
	}
}

func TestRules_S4_DedupWithinCooldown(t *testing.T) {
	e := New(10)
	e.RecordFired("default.battery-low", 1740000000)

	within := devicemodel.DeviceEvent{SubscriptionID: "default.battery-low", Data: map[string]float64{"level": 0.2}, FiredAt: 1740001800}
	v := e.Evaluate(within, devicemodel.DeviceContext{})
	if v.Action != devicemodel.DecisionDrop || !strings.Contains(v.Reason, "dedup") {
		t.Fatalf("expected dedup drop, got %+v", v)
	}

	after := devicemodel.DeviceEvent{SubscriptionID: "default.battery-low", Data: map[string]float64{"level": 0.2}, FiredAt: 1740003700}
	v = e.Evaluate(after, devicemodel.DeviceContext{})
	if v.Action == devicemodel.DecisionDrop {
		t.Fatalf("expected push past cooldown, got %+v", v)
	}
}

func TestRules_DedupBoundaryIsStrictLessThan(t *testing.T) {
	e := New(10)
	e.RecordFired("default.battery-low", 1000)
	atExactCooldown := devicemodel.DeviceEvent{
		SubscriptionID: "default.battery-low",
		Data:           map[string]float64{"level": 0.5},
		FiredAt:        1000 + defaultCooldowns["battery-low"],
	}
	v := e.Evaluate(atExactCooldown, devicemodel.DeviceContext{})
	if v.Action == devicemodel.DecisionDrop {
		t.Fatalf("expected event allowed at exact cooldown boundary, got %+v", v)
	}
}

func TestRules_PushBudgetExhausted(t *testing.T) {
	e := New(3)
	ctx := devicemodel.DeviceContext{}
	ctx.Meta.PushesToday = 3
	event := devicemodel.DeviceEvent{SubscriptionID: "custom.thing", Source: "custom.source", FiredAt: 5000}
	v := e.Evaluate(event, ctx)
	if v.Action != devicemodel.DecisionDrop || !strings.Contains(v.Reason, "budget") {
		t.Fatalf("expected budget drop, got %+v", v)
	}
}

func TestRules_UnmatchedIsAmbiguous(t *testing.T) {
	e := New(10)
	event := devicemodel.DeviceEvent{SubscriptionID: "custom.thing", Source: "custom.source", FiredAt: 5000}
	v := e.Evaluate(event, devicemodel.DeviceContext{})
	if !v.IsAmbiguous() {
		t.Fatalf("expected ambiguous, got %+v", v)
	}
}

func TestRules_BatteryLowUnchangedLevelDropped(t *testing.T) {
	e := New(10)
	first := devicemodel.DeviceEvent{SubscriptionID: "default.battery-low", Data: map[string]float64{"level": 0.20}, FiredAt: 1000}
	e.Evaluate(first, devicemodel.DeviceContext{})
	e.RecordFired("default.battery-low", 1000)

	second := devicemodel.DeviceEvent{SubscriptionID: "default.battery-low", Data: map[string]float64{"level": 0.205}, FiredAt: 1000 + defaultCooldowns["battery-low"]}
	v := e.Evaluate(second, devicemodel.DeviceContext{})
	if v.Action != devicemodel.DecisionDrop || !strings.Contains(v.Reason, "unchanged") {
		t.Fatalf("expected unchanged-level drop, got %+v", v)
	}
}

func TestRestoreCooldowns_TakesMaxFiredPerSubscription(t *testing.T) {
	e := New(10)
	e.RestoreCooldowns([]devicemodel.EventLogEntry{
		{Decision: devicemodel.DecisionPush, Event: devicemodel.DeviceEvent{SubscriptionID: "default.battery-low", FiredAt: 100}},
		{Decision: devicemodel.DecisionPush, Event: devicemodel.DeviceEvent{SubscriptionID: "default.battery-low", FiredAt: 500}},
		{Decision: devicemodel.DecisionDrop, Event: devicemodel.DeviceEvent{SubscriptionID: "default.battery-low", FiredAt: 900}},
	})

	// An event right after the max push (500), well within cooldown, should drop.
	event := devicemodel.DeviceEvent{SubscriptionID: "default.battery-low", Data: map[string]float64{"level": 0.5}, FiredAt: 600}
	v := e.Evaluate(event, devicemodel.DeviceContext{})
	if v.Action != devicemodel.DecisionDrop {
		t.Fatalf("expected dedup drop from restored cooldown, got %+v", v)
	}
}
