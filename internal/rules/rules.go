// Package rules implements component C: the synchronous event classifier.
// lastFired is bounded with an LRU (github.com/hashicorp/golang-lru/v2)
// rather than an unbounded map, since a long-uptime device can mint many
// ad-hoc subscription IDs over time.
package rules

import (
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"betterclaw/internal/devicemodel"
)

const lastFiredCapacity = 10000

const (
	subBatteryCritical = "default.battery-critical"
	subBatteryLow       = "default.battery-low"
	subDailyHealth      = "default.daily-health"
)

var defaultCooldowns = map[string]float64{
	"battery-low":      3600,
	"battery-critical": 1800,
	"daily-health":      82800,
	"geofence":          300,
}

const fallbackCooldown = 1800

// Engine is component C.
type Engine struct {
	lastFired *lru.Cache[string, float64]
	// lastBatteryLevel tracks the prior battery level per subscription so
	// default.battery-low can suppress unchanged readings (rule 5).
	lastBatteryLevel map[string]float64
	pushBudget       int
}

// New constructs the rules engine with the given daily push budget.
func New(pushBudget int) *Engine {
	cache, _ := lru.New[string, float64](lastFiredCapacity)
	return &Engine{
		lastFired:        cache,
		lastBatteryLevel: make(map[string]float64),
		pushBudget:       pushBudget,
	}
}

// Evaluate classifies event against context, first-match-wins per spec §4.C.
func (e *Engine) Evaluate(event devicemodel.DeviceEvent, ctx devicemodel.DeviceContext) devicemodel.Verdict {
	if debug, ok := event.DataFloat("_debugFired"); ok && debug == 1.0 {
		return devicemodel.Verdict{Action: devicemodel.DecisionPush, Reason: "debug event — always push"}
	}

	cooldown := cooldownForEvent(event)
	if lastFired, ok := e.lastFired.Get(event.SubscriptionID); ok {
		elapsed := event.FiredAt - lastFired
		if elapsed < cooldown {
			return devicemodel.Verdict{
				Action: devicemodel.DecisionDrop,
				Reason: fmt.Sprintf("dedup: %.0fs elapsed, cooldown %.0fs", elapsed, cooldown),
			}
		}
	}

	if event.SubscriptionID == subBatteryCritical {
		return devicemodel.Verdict{Action: devicemodel.DecisionPush, Reason: "battery critical"}
	}

	if event.Source == "geofence.triggered" {
		return devicemodel.Verdict{Action: devicemodel.DecisionPush, Reason: "geofence transition"}
	}

	if event.SubscriptionID == subBatteryLow {
		level, hasLevel := event.DataFloat("level")
		prior, hadPrior := e.lastBatteryLevel[event.SubscriptionID]
		if hasLevel {
			e.lastBatteryLevel[event.SubscriptionID] = level
		}
		if hadPrior && hasLevel && math.Abs(level-prior) < 0.02 {
			return devicemodel.Verdict{Action: devicemodel.DecisionDrop, Reason: "level unchanged"}
		}
		return devicemodel.Verdict{Action: devicemodel.DecisionPush, Reason: "battery low"}
	}

	if event.SubscriptionID == subDailyHealth {
		hour := localHour(event.FiredAt)
		if hour >= 6 && hour <= 10 {
			return devicemodel.Verdict{Action: devicemodel.DecisionPush, Reason: "daily health digest window"}
		}
		return devicemodel.Verdict{Action: devicemodel.DecisionDefer, Reason: "outside morning window"}
	}

	if ctx.Meta.PushesToday >= e.pushBudget {
		return devicemodel.Verdict{Action: devicemodel.DecisionDrop, Reason: "push budget exhausted"}
	}

	return devicemodel.Ambiguous("no matching rule")
}

// PushBudget returns the configured daily push budget.
func (e *Engine) PushBudget() int {
	return e.pushBudget
}

func cooldownForEvent(event devicemodel.DeviceEvent) float64 {
	switch {
	case event.SubscriptionID == subBatteryLow:
		return defaultCooldowns["battery-low"]
	case event.SubscriptionID == subBatteryCritical:
		return defaultCooldowns["battery-critical"]
	case event.SubscriptionID == subDailyHealth:
		return defaultCooldowns["daily-health"]
	case event.Source == "geofence.triggered":
		return defaultCooldowns["geofence"]
	}
	return fallbackCooldown
}

// RecordFired updates lastFired; must be called only when the pipeline
// actually pushes.
func (e *Engine) RecordFired(subscriptionID string, firedAt float64) {
	e.lastFired.Add(subscriptionID, firedAt)
}

// RestoreCooldowns rebuilds lastFired from past push log entries on
// startup, taking the max firedAt per subscription.
func (e *Engine) RestoreCooldowns(entries []devicemodel.EventLogEntry) {
	maxFired := make(map[string]float64)
	for _, entry := range entries {
		if entry.Decision != devicemodel.DecisionPush {
			continue
		}
		id := entry.Event.SubscriptionID
		if entry.Event.FiredAt > maxFired[id] {
			maxFired[id] = entry.Event.FiredAt
		}
	}
	for id, firedAt := range maxFired {
		e.lastFired.Add(id, firedAt)
	}
}

func localHour(epochSeconds float64) int {
	return time.Unix(int64(epochSeconds), 0).Local().Hour()
}
