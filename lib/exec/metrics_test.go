package exec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetricsNilMeter(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	// Recording on nil metrics is a no-op
	m.RecordCommand(context.Background(), "sh", time.Now(), 0)
}

func TestRecordCommand(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)
	SetMetrics(m)
	t.Cleanup(func() { SetMetrics(nil) })

	ctx := context.Background()
	_, err = NewRunner().Run(ctx, ExecOptions{Command: []string{"/bin/sh", "-c", "true"}})
	require.NoError(t, err)
	_, err = NewRunner().Run(ctx, ExecOptions{Command: []string{"/bin/sh", "-c", "exit 1"}})
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var total int64
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name != "autorun_exec_commands_total" {
				continue
			}
			found = true
			sum, ok := metric.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	require.True(t, found, "commands counter should be exported")
	assert.Equal(t, int64(2), total)
}
