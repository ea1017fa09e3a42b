// Package otel initializes OpenTelemetry for a boot run. When disabled, the
// provider hands out the global no-op tracer and meter.
//
// autorun is a one-shot process: it configures the device, runs the
// applications and exits. Nothing is exported on a timer that a boot run
// would outlive, so the shutdown function returned by Init flushes every
// signal before closing the exporters and must run before the process exits.
package otel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

// Config holds OpenTelemetry configuration.
// ServiceInstanceID identifies the device; it defaults to the host name.
type Config struct {
	Enabled           bool
	Endpoint          string
	ServiceName       string
	ServiceInstanceID string
	Insecure          bool
	Version           string
	Env               string
}

// Provider holds initialized OTel providers.
type Provider struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	LogHandler     slog.Handler
	bootStart      time.Time
}

// DefaultServiceName is used when Config.ServiceName is empty.
const DefaultServiceName = "autorun"

// exporters are the three OTLP sinks of a boot run.
type exporters struct {
	spans   sdktrace.SpanExporter
	metrics sdkmetric.Exporter
	logs    sdklog.Exporter
}

// Init initializes OpenTelemetry with the given configuration.
// Returns a shutdown function that flushes and closes all providers; it
// should be called on exit. If OTel is disabled, the shutdown function is a
// no-op.
func Init(ctx context.Context, cfg Config) (*Provider, func(context.Context) error, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
	if !cfg.Enabled {
		return &Provider{
			Tracer:    otel.Tracer(cfg.ServiceName),
			Meter:     otel.Meter(cfg.ServiceName),
			bootStart: time.Now(),
		}, func(context.Context) error { return nil }, nil
	}

	if cfg.ServiceInstanceID == "" {
		cfg.ServiceInstanceID, _ = os.Hostname()
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create resource: %w", err)
	}

	exp, err := newOTLPExporters(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	provider, err := newProvider(cfg, res, exp)
	if err != nil {
		return nil, nil, err
	}

	otel.SetTracerProvider(provider.TracerProvider)
	otel.SetMeterProvider(provider.MeterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return provider, provider.Shutdown, nil
}

func newResource(cfg Config) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
			semconv.ServiceInstanceID(cfg.ServiceInstanceID),
			semconv.DeploymentEnvironmentName(cfg.Env),
		),
	)
}

// newOTLPExporters creates the gRPC exporters. A failure closes the ones
// already created.
func newOTLPExporters(ctx context.Context, cfg Config) (exporters, error) {
	var exp exporters

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		logOpts = append(logOpts, otlploggrpc.WithInsecure())
	}

	var err error
	if exp.spans, err = otlptracegrpc.New(ctx, traceOpts...); err != nil {
		return exp, fmt.Errorf("create trace exporter: %w", err)
	}
	if exp.metrics, err = otlpmetricgrpc.New(ctx, metricOpts...); err != nil {
		_ = exp.spans.Shutdown(ctx)
		return exp, fmt.Errorf("create metric exporter: %w", err)
	}
	if exp.logs, err = otlploggrpc.New(ctx, logOpts...); err != nil {
		_ = exp.spans.Shutdown(ctx)
		_ = exp.metrics.Shutdown(ctx)
		return exp, fmt.Errorf("create log exporter: %w", err)
	}
	return exp, nil
}

// newProvider wires the exporters into providers and registers the boot
// instruments. Globals are left untouched.
func newProvider(cfg Config, res *resource.Resource, exp exporters) (*Provider, error) {
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp.spans),
		sdktrace.WithResource(res),
	)
	// The periodic interval is longer than a typical boot; what a run records
	// leaves with the collection made by Flush.
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp.metrics)),
		sdkmetric.WithResource(res),
	)
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp.logs)),
		sdklog.WithResource(res),
	)

	p := &Provider{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
		LoggerProvider: loggerProvider,
		Tracer:         tracerProvider.Tracer(cfg.ServiceName),
		Meter:          meterProvider.Meter(cfg.ServiceName),
		LogHandler:     otelslog.NewHandler(cfg.ServiceName, otelslog.WithLoggerProvider(loggerProvider)),
		bootStart:      time.Now(),
	}

	if err := p.registerBootMetrics(cfg); err != nil {
		_ = p.Shutdown(context.Background())
		return nil, fmt.Errorf("register boot metrics: %w", err)
	}
	return p, nil
}

// registerBootMetrics registers the build info and boot start gauges. Both
// are observed once per collection, which for a boot run means at Flush.
func (p *Provider) registerBootMetrics(cfg Config) error {
	// Always 1, labelled with the version
	info, err := p.Meter.Int64ObservableGauge(
		"autorun_info",
		metric.WithDescription("Autorun build information"),
	)
	if err != nil {
		return fmt.Errorf("create info gauge: %w", err)
	}

	bootStart, err := p.Meter.Float64ObservableGauge(
		"autorun_boot_start_timestamp_seconds",
		metric.WithDescription("Unix time at which the boot run started"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create boot start gauge: %w", err)
	}

	_, err = p.Meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(info, 1,
				metric.WithAttributes(
					semconv.ServiceVersion(cfg.Version),
					semconv.TelemetrySDKLanguageGo,
				),
			)
			o.ObserveFloat64(bootStart, float64(p.bootStart.UnixNano())/1e9)
			return nil
		},
		info,
		bootStart,
	)
	if err != nil {
		return fmt.Errorf("register callback: %w", err)
	}
	return nil
}

// Flush exports everything recorded so far: spans first, then metrics, then
// log records. It is a no-op when telemetry is disabled.
func (p *Provider) Flush(ctx context.Context) error {
	if p.TracerProvider == nil {
		return nil
	}
	var errs []error
	if err := p.TracerProvider.ForceFlush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush spans: %w", err))
	}
	if err := p.MeterProvider.ForceFlush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush metrics: %w", err))
	}
	if err := p.LoggerProvider.ForceFlush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush logs: %w", err))
	}
	return errors.Join(errs...)
}

// Shutdown flushes and then closes the providers and their exporters.
// Shutdown is attempted even when the flush fails.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.TracerProvider == nil {
		return nil
	}
	errs := []error{p.Flush(ctx)}
	if err := p.TracerProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
	}
	if err := p.MeterProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown meter: %w", err))
	}
	if err := p.LoggerProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown logger: %w", err))
	}
	return errors.Join(errs...)
}

// globalLogHandler holds the OTel log handler for use by the logger package.
var globalLogHandler slog.Handler

// SetGlobalLogHandler sets the global OTel log handler.
func SetGlobalLogHandler(h slog.Handler) {
	globalLogHandler = h
}

// GetGlobalLogHandler returns the global OTel log handler.
func GetGlobalLogHandler() slog.Handler {
	return globalLogHandler
}
