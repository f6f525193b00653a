package order

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Additional-Code/menumate/internal/entity"
)

var meter = otel.Meter("github.com/Additional-Code/menumate/service/order")

// Metrics holds the ordering counters.
type Metrics struct {
	submitted   metric.Int64Counter
	allocations metric.Int64Counter
}

// NewMetrics registers the counters on the global meter provider.
func NewMetrics() (*Metrics, error) {
	submitted, err := meter.Int64Counter("orders.submitted",
		metric.WithDescription("Order submissions by final state"))
	if err != nil {
		return nil, err
	}
	allocations, err := meter.Int64Counter("orders.allocations",
		metric.WithDescription("Order number allocations by path and confidence"))
	if err != nil {
		return nil, err
	}
	return &Metrics{submitted: submitted, allocations: allocations}, nil
}

func (m *Metrics) recordSubmission(ctx context.Context, state State) {
	if m == nil {
		return
	}
	m.submitted.Add(ctx, 1, metric.WithAttributes(attribute.String("state", string(state))))
}

func (m *Metrics) recordAllocation(ctx context.Context, path string, confidence entity.Confidence) {
	if m == nil {
		return
	}
	m.allocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("confidence", string(confidence)),
	))
}
