package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/menumate/internal/messaging"
	ordersvc "github.com/Additional-Code/menumate/internal/service/order"
	"github.com/Additional-Code/menumate/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/menumate/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderPlacedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// Invalidator drops cached per-tenant order summaries.
type Invalidator interface {
	InvalidateTenant(ctx context.Context, tenantID string) error
}

// NewOrderPlacedHandler refreshes the tenant's order summary whenever an
// order is placed, including orders placed through another instance.
func NewOrderPlacedHandler(svc *ordersvc.Service, client messaging.Client, logger *zap.Logger) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Topic:   client.Topic(),
		Handler: orderPlaced(svc, logger),
	}
}

func orderPlaced(inv Invalidator, logger *zap.Logger) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.placed", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.OrderPlacedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			// redelivery cannot fix a malformed payload
			logger.Error("dropping undecodable order placed event", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return nil
		}
		span.SetAttributes(
			attribute.String("order.id", event.OrderID),
			attribute.String("tenant.id", event.TenantID),
		)

		if err := inv.InvalidateTenant(ctx, event.TenantID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalidate failed")
			return err
		}

		logger.Info("order placed event processed",
			zap.String("order", event.OrderID),
			zap.String("tenant", event.TenantID),
			zap.String("number", event.DisplayNumber),
			zap.String("confidence", string(event.Confidence)),
		)
		return nil
	}
}
