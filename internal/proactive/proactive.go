// Package proactive implements component G: the periodic scanner that
// evaluates combined-signal predicates against context + patterns and
// pushes insights, with per-trigger cooldowns written before delivery.
package proactive

import (
	"context"
	"time"

	"github.com/google/uuid"

	"go.opentelemetry.io/otel/attribute"

	"betterclaw/internal/delivery"
	"betterclaw/internal/devicectx"
	"betterclaw/internal/devicemodel"
	"betterclaw/internal/logging"
	"betterclaw/internal/observability"
)

// Insight is what a trigger predicate produces when it fires.
type Insight struct {
	ID       string
	Message  string
	Priority string // "high" or "normal"
}

// Trigger is one entry of the fixed, ordered trigger table (spec.md §9
// Design Notes: "a tagged-variant or strategy-table representation is
// natural").
type Trigger struct {
	ID       string
	Cooldown time.Duration
	Predicate func(ctx devicemodel.DeviceContext, patterns devicemodel.Patterns, now time.Time) *Insight
}

const defaultTriggerCooldown = time.Hour

// Table is the declared, ordered list of triggers evaluated each tick.
var Table = []Trigger{
	{ID: "low-battery-away", Cooldown: 4 * time.Hour, Predicate: LowBatteryAway},
	{ID: "unusual-inactivity", Cooldown: 6 * time.Hour, Predicate: UnusualInactivity},
	{ID: "sleep-deficit", Cooldown: 24 * time.Hour, Predicate: SleepDeficit},
	{ID: "routine-deviation", Cooldown: 4 * time.Hour, Predicate: RoutineDeviation},
	{ID: "health-weekly-digest", Cooldown: 7 * 24 * time.Hour, Predicate: HealthWeeklyDigest},
}

// Engine is component G.
type Engine struct {
	ctxStore *devicectx.Store
	delivery *delivery.Deliverer
	logger   logging.Logger
	table    []Trigger
}

// New constructs the proactive engine over the default trigger table.
func New(ctxStore *devicectx.Store, deliverer *delivery.Deliverer, logger logging.Logger) *Engine {
	return &Engine{ctxStore: ctxStore, delivery: deliverer, logger: logging.OrNop(logger), table: Table}
}

// Scan runs one tick: iterate the trigger table in order, skip triggers
// still in cooldown, evaluate the rest, and for each firing trigger write
// its cooldown before attempting delivery (spec.md §4.G step 3 — this
// ordering prevents runaway retries on delivery failure).
func (e *Engine) Scan(ctx context.Context, now time.Time) {
	ctx, span := observability.StartSpan(ctx, observability.SpanProactiveScan)
	defer observability.EndSpan(span, nil)

	deviceCtx := e.ctxStore.Get()
	patterns := e.ctxStore.ReadPatterns()
	nowEpoch := float64(now.Unix())

	for _, trigger := range e.table {
		cooldown := trigger.Cooldown
		if cooldown <= 0 {
			cooldown = defaultTriggerCooldown
		}
		if lastFired, ok := patterns.TriggerCooldowns[trigger.ID]; ok {
			if nowEpoch-lastFired < cooldown.Seconds() {
				continue
			}
		}

		insight := trigger.Predicate(deviceCtx, patterns, now)
		if insight == nil {
			continue
		}
		if insight.ID == "" {
			insight.ID = uuid.NewString()
		}

		patterns.TriggerCooldowns[trigger.ID] = nowEpoch
		if err := e.ctxStore.WritePatterns(patterns); err != nil {
			e.logger.Error("proactive: failed to persist cooldown for %s: %v", trigger.ID, err)
			continue
		}

		span.SetAttributes(attribute.String(observability.AttrTriggerID, trigger.ID))

		if e.delivery != nil {
			if err := e.delivery.Deliver(ctx, insight.Message); err != nil {
				e.logger.Error("proactive: delivery failed for %s: %v", trigger.ID, err)
			}
		}
	}
}
