package exec

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metrics instruments for command execution.
type Metrics struct {
	commandsTotal metric.Int64Counter
	duration      metric.Float64Histogram
}

// ExecMetrics is the global metrics instance for the exec package.
// Set this via SetMetrics() during application initialization.
var ExecMetrics *Metrics

// SetMetrics sets the global metrics instance.
func SetMetrics(m *Metrics) {
	ExecMetrics = m
}

// NewMetrics creates exec metrics instruments.
// If meter is nil, returns nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		return nil, nil
	}

	commandsTotal, err := meter.Int64Counter(
		"autorun_exec_commands_total",
		metric.WithDescription("Total number of external commands run"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"autorun_exec_duration_seconds",
		metric.WithDescription("External command duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		commandsTotal: commandsTotal,
		duration:      duration,
	}, nil
}

// RecordCommand records metrics for a finished command.
func (m *Metrics) RecordCommand(ctx context.Context, command string, start time.Time, exitCode int) {
	if m == nil {
		return
	}

	status := "success"
	if exitCode != 0 {
		status = "error"
	}

	m.commandsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("command", command),
			attribute.String("status", status),
			attribute.Int("exit_code", exitCode),
		))

	m.duration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(
			attribute.String("command", command),
			attribute.String("status", status),
		))
}
