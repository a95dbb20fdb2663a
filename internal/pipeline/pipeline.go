// Package pipeline implements component E: the orchestrator composing
// context update, rule evaluation, judgment, logging, and delivery behind a
// single serialization lane. Grounded on the teacher's async.Go panic-safe
// goroutine helper and its single-consumer worker idiom.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"betterclaw/internal/async"
	"betterclaw/internal/delivery"
	"betterclaw/internal/devicectx"
	"betterclaw/internal/devicemodel"
	"betterclaw/internal/errorsx"
	"betterclaw/internal/eventlog"
	"betterclaw/internal/judgment"
	"betterclaw/internal/logging"
	"betterclaw/internal/observability"
	"betterclaw/internal/rules"
)

// queueDepth bounds the serialization lane; a burst larger than this blocks
// the producer rather than growing memory without limit.
const queueDepth = 256

// Pipeline is component E. Submit is safe to call concurrently: every
// submitted event is funneled through a single consumer goroutine so context mutation,
// rule evaluation, logging, and persistence apply as an indivisible unit
// per event (spec.md §5).
type Pipeline struct {
	ctxStore  *devicectx.Store
	rules     *rules.Engine
	judgment  *judgment.Layer
	log       *eventlog.Log
	delivery  *delivery.Deliverer
	logger    logging.Logger
	metrics   *observability.Metrics

	lane chan devicemodel.DeviceEvent
	done chan struct{}
}

// New constructs the pipeline and its single-consumer lane; events are
// processed once the caller starts Run. metrics may be nil, in which case
// counters are skipped.
func New(ctxStore *devicectx.Store, rulesEngine *rules.Engine, judgmentLayer *judgment.Layer, log *eventlog.Log, deliverer *delivery.Deliverer, logger logging.Logger, metrics *observability.Metrics) *Pipeline {
	p := &Pipeline{
		ctxStore: ctxStore,
		rules:    rulesEngine,
		judgment: judgmentLayer,
		log:      log,
		delivery: deliverer,
		logger:   logging.OrNop(logger),
		metrics:  metrics,
		lane:     make(chan devicemodel.DeviceEvent, queueDepth),
		done:     make(chan struct{}),
	}
	return p
}

// Run drains the serialization lane until ctx is cancelled, processing one
// event at a time. Intended to run in its own goroutine for the lifetime of
// the process.
func (p *Pipeline) Run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			p.drain(ctx)
			return
		case event := <-p.lane:
			p.processEvent(ctx, event)
		}
	}
}

// drain processes any events still queued at shutdown rather than
// discarding them, mirroring the teacher's graceful-drain scheduler idiom.
func (p *Pipeline) drain(ctx context.Context) {
	for {
		select {
		case event := <-p.lane:
			p.processEvent(context.Background(), event)
		default:
			return
		}
	}
}

// Submit enqueues event for asynchronous processing. The intake endpoint
// calls this and responds "accepted" immediately (spec.md §6); Submit
// itself blocks only if the lane is saturated, which callers should treat
// as backpressure rather than an error.
func (p *Pipeline) Submit(event devicemodel.DeviceEvent) {
	p.lane <- event
}

// Wait blocks until Run has returned after ctx cancellation.
func (p *Pipeline) Wait() {
	<-p.done
}

// processEvent runs the strict six-step sequence from spec.md §4.E. Panics
// are recovered so one bad event cannot kill the consumer goroutine.
func (p *Pipeline) processEvent(ctx context.Context, event devicemodel.DeviceEvent) {
	defer async.Recover(p.logger, "pipeline.processEvent")

	ctx, span := observability.StartSpan(ctx, observability.SpanProcessEvent,
		attribute.String(observability.AttrSubscriptionID, event.SubscriptionID))
	var spanErr error
	defer func() { observability.EndSpan(span, spanErr) }()

	now := time.Now()

	// 1. Apply context mutation.
	p.ctxStore.UpdateFromEvent(event)

	// 2. Evaluate rules against the freshly-updated snapshot.
	verdict := p.rules.Evaluate(event, p.ctxStore.Get())

	// 3. Resolve ambiguous verdicts via judgment.
	if verdict.IsAmbiguous() {
		if p.judgment != nil {
			verdict = p.judgment.Evaluate(ctx, event, p.ctxStore.Get(), p.pushBudgetHint(), now)
			if p.metrics != nil {
				p.metrics.JudgmentCalls.Add(ctx, 1)
				if strings.HasPrefix(verdict.Reason, "llm: ") && strings.Contains(verdict.Reason, "fail open") {
					p.metrics.JudgmentFailOpens.Add(ctx, 1)
				}
			}
		} else {
			verdict = devicemodel.Verdict{Action: devicemodel.DecisionPush, Reason: "llm: judgment unavailable — fail open"}
		}
		if strings.Contains(verdict.Reason, "fail open") {
			p.ctxStore.RecordError(verdict.Reason)
		}
	}

	loggedDecision := collapseDecision(verdict.Action)
	span.SetAttributes(attribute.String(observability.AttrDecision, string(loggedDecision)))
	if p.metrics != nil {
		p.metrics.EventsProcessed.Add(ctx, 1)
		switch loggedDecision {
		case devicemodel.DecisionPush:
			p.metrics.Pushes.Add(ctx, 1)
		case devicemodel.DecisionDrop:
			p.metrics.Drops.Add(ctx, 1)
		case devicemodel.DecisionDefer:
			p.metrics.Defers.Add(ctx, 1)
		}
	}

	// 4. Append to the event log before any delivery side effect.
	entry := devicemodel.EventLogEntry{Event: event, Decision: loggedDecision, Reason: verdict.Reason, Timestamp: float64(now.Unix())}
	if err := p.log.Append(entry); err != nil {
		p.logger.Error("pipeline: event log append failed: %v", &errorsx.PermanentError{Op: "eventlog.append", Err: err})
	}

	// 5. On push: record cooldown/counter state, then deliver.
	if loggedDecision == devicemodel.DecisionPush {
		p.rules.RecordFired(event.SubscriptionID, event.FiredAt)
		p.ctxStore.RecordPush(float64(now.Unix()))

		message := BuildMessage(event, p.ctxStore.Get())
		if p.delivery != nil {
			if err := p.delivery.Deliver(ctx, message); err != nil {
				summary := errorsx.FormatForLLM(&errorsx.PermanentError{Op: "delivery.deliver", Err: err})
				p.logger.Error("pipeline: delivery failed: %v", err)
				p.ctxStore.RecordError(summary)
				if p.metrics != nil {
					p.metrics.DeliveryFailures.Add(ctx, 1)
				}
			}
		}
	}

	// 6. Persist the context snapshot.
	if err := p.ctxStore.Save(); err != nil {
		spanErr = err
		p.logger.Error("pipeline: context save failed: %v", err)
	}
}

// pushBudgetHint returns the daily push budget for the judgment prompt: the
// rules engine already knows the budget, but the judgment layer's prompt
// needs it too, so the pipeline passes through the same value the rules
// engine was constructed with.
func (p *Pipeline) pushBudgetHint() int {
	return p.rules.PushBudget()
}

func collapseDecision(action devicemodel.Decision) devicemodel.Decision {
	switch action {
	case devicemodel.DecisionPush, devicemodel.DecisionDrop, devicemodel.DecisionDefer:
		return action
	default:
		return devicemodel.DecisionDrop
	}
}

// BuildMessage composes the emoji-prefixed per-source body plus a context
// summary, per spec.md §4.E step 5c. The debug prefix differs from the
// live prefix.
func BuildMessage(event devicemodel.DeviceEvent, ctx devicemodel.DeviceContext) string {
	prefix := "📡"
	if debug, ok := event.DataFloat("_debugFired"); ok && debug == 1.0 {
		prefix = "🐞 [debug]"
	}

	body := sourceBody(event)
	summary := contextSummary(ctx)
	return fmt.Sprintf("%s %s\n%s", prefix, body, summary)
}

func sourceBody(event devicemodel.DeviceEvent) string {
	switch {
	case event.Source == "device.battery":
		level, _ := event.DataFloat("level")
		return fmt.Sprintf("🔋 Battery update: %.0f%%", level*100)
	case event.Source == "geofence.triggered":
		zone, _ := event.MetaString("zoneName")
		transition, _ := event.MetaString("transition")
		return fmt.Sprintf("📍 Geofence %s: %s", transition, zone)
	default:
		return fmt.Sprintf("ℹ️ %s event", event.Source)
	}
}

func contextSummary(ctx devicemodel.DeviceContext) string {
	battery := "unknown"
	if ctx.Device.Battery != nil {
		battery = fmt.Sprintf("%.0f%%", ctx.Device.Battery.Level*100)
	}
	zone := "none"
	if ctx.Activity.CurrentZone != "" {
		zone = ctx.Activity.CurrentZone
	}
	return fmt.Sprintf("Context: battery=%s zone=%s eventsToday=%d pushesToday=%d", battery, zone, ctx.Meta.EventsToday, ctx.Meta.PushesToday)
}
