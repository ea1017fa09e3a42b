package boot

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Metrics holds the metrics instruments and tracer for boot runs.
type Metrics struct {
	appLaunches       metric.Int64Counter
	appDuration       metric.Float64Histogram
	remounts          metric.Int64Counter
	networkConfigures metric.Int64Counter
	tracer            trace.Tracer
}

// NewMetrics creates boot metrics instruments.
// If meter is nil, returns nil (metrics and tracing disabled).
func NewMetrics(meter metric.Meter, tracer trace.Tracer) (*Metrics, error) {
	if meter == nil {
		return nil, nil
	}

	appLaunches, err := meter.Int64Counter(
		"autorun_app_launches_total",
		metric.WithDescription("Total number of application entries processed, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	appDuration, err := meter.Float64Histogram(
		"autorun_app_duration_seconds",
		metric.WithDescription("Time an application command ran"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	remounts, err := meter.Int64Counter(
		"autorun_remounts_total",
		metric.WithDescription("Total number of read-write remounts"),
	)
	if err != nil {
		return nil, err
	}

	networkConfigures, err := meter.Int64Counter(
		"autorun_network_configure_total",
		metric.WithDescription("Total number of network configuration attempts"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		appLaunches:       appLaunches,
		appDuration:       appDuration,
		remounts:          remounts,
		networkConfigures: networkConfigures,
		tracer:            tracer,
	}, nil
}

func (m *Metrics) recordApp(ctx context.Context, res AppResult) {
	if m == nil {
		return
	}
	m.appLaunches.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(res.Status))))
	if res.Status == AppSucceeded || res.Status == AppFailed {
		m.appDuration.Record(ctx, res.Duration.Seconds(),
			metric.WithAttributes(attribute.String("status", string(res.Status))))
	}
}

func (m *Metrics) recordRemount(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.remounts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", statusOf(err))))
}

func (m *Metrics) recordNetwork(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.networkConfigures.Add(ctx, 1, metric.WithAttributes(attribute.String("status", statusOf(err))))
}

// startSpan starts a span when tracing is configured. The returned end func
// is always safe to call.
func (m *Metrics) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if m == nil || m.tracer == nil {
		return ctx, func(error) {}
	}
	ctx, span := m.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
