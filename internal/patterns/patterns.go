// Package patterns implements component F: the periodic offline analyzer
// over the event log producing routines, health trends, and statistics.
// The four analytical passes are independent read-only scans over the same
// window of log entries, computed concurrently with
// golang.org/x/sync/errgroup the way the teacher's react agent runs
// independent tool calls concurrently.
package patterns

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"betterclaw/internal/devicectx"
	"betterclaw/internal/devicemodel"
	"betterclaw/internal/eventlog"
	"betterclaw/internal/logging"
	"betterclaw/internal/observability"
)

const lowBatteryLevelThreshold = 0.2

// Engine is component F.
type Engine struct {
	log        *eventlog.Log
	ctxStore   *devicectx.Store
	windowDays int
	logger     logging.Logger
}

// New constructs the pattern engine. windowDays is patternWindowDays from
// configuration (default 14, spec.md §6).
func New(log *eventlog.Log, ctxStore *devicectx.Store, windowDays int, logger logging.Logger) *Engine {
	if windowDays <= 0 {
		windowDays = 14
	}
	return &Engine{log: log, ctxStore: ctxStore, windowDays: windowDays, logger: logging.OrNop(logger)}
}

// Compute runs one tick of the pattern engine per spec.md §4.F: read the
// window, compute the four analytics concurrently, preserve
// triggerCooldowns from the prior document, write, then rotate the log.
func (e *Engine) Compute(ctx context.Context, now time.Time) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanPatternCompute)
	defer func() { observability.EndSpan(span, err) }()

	nowEpoch := float64(now.Unix())
	since := nowEpoch - float64(e.windowDays)*86400

	entries, err := e.log.ReadSince(since)
	if err != nil {
		return err
	}

	prior := e.ctxStore.ReadPatterns()

	var (
		routines   devicemodel.LocationRoutines
		trends     devicemodel.HealthTrends
		battery    devicemodel.BatteryPatterns
		eventStats devicemodel.EventStats
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		routines = computeLocationRoutines(entries)
		return nil
	})
	g.Go(func() error {
		trends = computeHealthTrends(entries, nowEpoch)
		return nil
	})
	g.Go(func() error {
		battery = computeBatteryPatterns(entries)
		return nil
	})
	g.Go(func() error {
		eventStats = computeEventStats(entries, nowEpoch)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	next := devicemodel.Patterns{
		LocationRoutines: routines,
		HealthTrends:     trends,
		BatteryPatterns:  battery,
		EventStats:       eventStats,
		TriggerCooldowns: prior.TriggerCooldowns,
		ComputedAt:       nowEpoch,
	}
	if next.TriggerCooldowns == nil {
		next.TriggerCooldowns = make(map[string]float64)
	}

	if err := e.ctxStore.WritePatterns(next); err != nil {
		return err
	}

	if dropped, err := e.log.Rotate(nowEpoch); err != nil {
		e.logger.Warn("patterns: rotate failed: %v", err)
	} else if dropped > 0 {
		e.logger.Info("patterns: rotated %d stale event log entries", dropped)
	}

	return nil
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func fractionalHour(epochSeconds float64) float64 {
	t := time.Unix(int64(epochSeconds), 0).Local()
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}

func hhmm(fractionalHr float64) string {
	h := int(fractionalHr)
	m := int((fractionalHr - float64(h)) * 60)
	return fmt.Sprintf("%02d:%02d", h, m)
}

func isWeekend(epochSeconds float64) bool {
	day := time.Unix(int64(epochSeconds), 0).Local().Weekday()
	return day == time.Sunday || day == time.Saturday
}
