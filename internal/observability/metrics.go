package observability

import (
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics bundles the counters the host scrapes via the Prometheus exporter.
type Metrics struct {
	EventsProcessed  metric.Int64Counter
	Pushes           metric.Int64Counter
	Drops            metric.Int64Counter
	Defers           metric.Int64Counter
	JudgmentCalls    metric.Int64Counter
	JudgmentFailOpens metric.Int64Counter
	DeliveryFailures metric.Int64Counter
}

// NewMeterProvider builds an SDK MeterProvider backed by a Prometheus
// exporter (go.opentelemetry.io/otel/exporters/prometheus, backed by
// github.com/prometheus/client_golang's default registry).
func NewMeterProvider() (*sdkmetric.MeterProvider, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)), nil
}

// NewMetrics constructs the counters used throughout the pipeline.
func NewMetrics(provider *sdkmetric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(tracerName)

	eventsProcessed, err := meter.Int64Counter("betterclaw_events_processed_total")
	if err != nil {
		return nil, err
	}
	pushes, err := meter.Int64Counter("betterclaw_pushes_total")
	if err != nil {
		return nil, err
	}
	drops, err := meter.Int64Counter("betterclaw_drops_total")
	if err != nil {
		return nil, err
	}
	defers, err := meter.Int64Counter("betterclaw_defers_total")
	if err != nil {
		return nil, err
	}
	judgmentCalls, err := meter.Int64Counter("betterclaw_judgment_calls_total")
	if err != nil {
		return nil, err
	}
	judgmentFailOpens, err := meter.Int64Counter("betterclaw_judgment_fail_opens_total")
	if err != nil {
		return nil, err
	}
	deliveryFailures, err := meter.Int64Counter("betterclaw_delivery_failures_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		EventsProcessed:   eventsProcessed,
		Pushes:            pushes,
		Drops:             drops,
		Defers:            defers,
		JudgmentCalls:     judgmentCalls,
		JudgmentFailOpens: judgmentFailOpens,
		DeliveryFailures:  deliveryFailures,
	}, nil
}
