package network

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metrics instruments for network operations.
type Metrics struct {
	linkOperations metric.Int64Counter
}

// NewMetrics creates network metrics instruments.
// If meter is nil, returns nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		return nil, nil
	}

	linkOperations, err := meter.Int64Counter(
		"autorun_network_link_operations_total",
		metric.WithDescription("Total number of netlink operations applied to the boot interface"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		linkOperations: linkOperations,
	}, nil
}

// recordLinkOperation records a netlink operation (addr_replace, link_up, route_replace).
func (c *configurator) recordLinkOperation(ctx context.Context, operation string, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.linkOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		))
}
