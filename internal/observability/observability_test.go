package observability

import (
	"context"
	"errors"
	"testing"
)

func TestStartAndEndSpan_NoPanicWithoutErr(t *testing.T) {
	_, span := StartSpan(context.Background(), SpanProcessEvent)
	EndSpan(span, nil)
}

func TestStartAndEndSpan_RecordsError(t *testing.T) {
	_, span := StartSpan(context.Background(), SpanPatternCompute)
	EndSpan(span, errors.New("boom"))
}

func TestNewMetrics_ConstructsAllCounters(t *testing.T) {
	provider, err := NewMeterProvider()
	if err != nil {
		t.Fatalf("NewMeterProvider: %v", err)
	}
	metrics, err := NewMetrics(provider)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	if metrics.EventsProcessed == nil || metrics.Pushes == nil || metrics.Drops == nil {
		t.Fatal("expected all counters to be non-nil")
	}
}
