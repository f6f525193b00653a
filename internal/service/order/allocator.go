package order

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/menumate/internal/backend"
	"github.com/Additional-Code/menumate/internal/config"
	"github.com/Additional-Code/menumate/internal/entity"
	"github.com/Additional-Code/menumate/internal/retry"
)

// Allocation paths reported in metrics and spans.
const (
	pathAtomic   = "atomic"
	pathLegacy   = "legacy_repair"
	pathFallback = "fallback"
)

// Outcome is the result of allocating a number for a new order row.
type Outcome struct {
	OrderID    string
	Number     int64
	Confidence entity.Confidence
}

// Allocator creates the order row and obtains its per-tenant number.
//
// The preferred path is the backend's atomic create. When that only returns
// the id, or is unavailable, the allocator computes max+1 itself. That
// fallback is not serialised across sessions: two concurrent submissions for
// one tenant can receive the same number.
type Allocator struct {
	gateway  backend.Gateway
	logger   *zap.Logger
	metrics  *Metrics
	fallback bool
	read     retry.Policy
	repair   retry.Policy
}

// NewAllocator builds an allocator from the ordering configuration.
func NewAllocator(gateway backend.Gateway, cfg config.Config, metrics *Metrics, logger *zap.Logger) *Allocator {
	return &Allocator{
		gateway:  gateway,
		logger:   logger,
		metrics:  metrics,
		fallback: cfg.Ordering.FallbackEnabled,
		read:     retry.FromConfig(cfg.Ordering.AllocationRead),
		repair:   retry.FromConfig(cfg.Ordering.RepairWrite),
	}
}

// Allocate creates an order row and returns its number. An error means no
// row was created.
func (a *Allocator) Allocate(ctx context.Context, order backend.NewOrder) (Outcome, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderAllocator.Allocate", trace.WithAttributes(attribute.String("tenant.id", order.TenantID)))
	defer span.End()

	path := pathAtomic
	outcome, err := a.allocate(ctx, order, &path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "allocation failed")
		return Outcome{}, err
	}

	span.SetAttributes(
		attribute.String("allocation.path", path),
		attribute.String("order.id", outcome.OrderID),
		attribute.Int64("order.number", outcome.Number),
		attribute.String("order.confidence", string(outcome.Confidence)),
	)
	a.metrics.recordAllocation(ctx, path, outcome.Confidence)
	return outcome, nil
}

func (a *Allocator) allocate(ctx context.Context, order backend.NewOrder, path *string) (Outcome, error) {
	res, err := a.gateway.CreateOrderAtomic(ctx, order)
	if err == nil {
		if n, ok := res.Number(); ok {
			return Outcome{OrderID: res.OrderID(), Number: n, Confidence: entity.Confirmed}, nil
		}
		*path = pathLegacy
		return a.repairLegacy(ctx, order.TenantID, res.OrderID()), nil
	}

	if errors.Is(err, backend.ErrUnsupported) {
		a.logger.Info("atomic order create unavailable", zap.String("tenant", order.TenantID), zap.Error(err))
	} else {
		a.logger.Warn("atomic order create failed", zap.String("tenant", order.TenantID), zap.Error(err))
	}
	if !a.fallback {
		return Outcome{}, newAllocationError(StepAtomic, err)
	}

	*path = pathFallback
	candidate := a.candidate(ctx, order.TenantID)
	orderID, err := a.gateway.CreateOrder(ctx, order)
	if err != nil {
		return Outcome{}, newAllocationError(StepCreateRow, err)
	}
	return a.assign(ctx, orderID, candidate), nil
}

// repairLegacy completes an atomic create that returned only the id. Older
// procedures may or may not have numbered the row.
func (a *Allocator) repairLegacy(ctx context.Context, tenantID, orderID string) Outcome {
	if stored, ok := a.readStored(ctx, orderID); ok {
		return Outcome{OrderID: orderID, Number: stored, Confidence: entity.Confirmed}
	}
	return a.assign(ctx, orderID, a.candidate(ctx, tenantID))
}

// candidate reads the tenant's highest number and returns the next one. A
// failed or hidden read counts as no orders.
func (a *Allocator) candidate(ctx context.Context, tenantID string) int64 {
	highest := backend.NullNumber()
	err := a.read.Do(ctx, func(ctx context.Context) error {
		n, err := a.gateway.ReadMaxOrderNumber(ctx, tenantID)
		if err != nil {
			return retryIfTransient(err)
		}
		highest = n
		return nil
	})
	if err != nil {
		a.logger.Warn("read max order number failed", zap.String("tenant", tenantID), zap.Error(err))
	}
	return highest.Next()
}

// assign writes candidate onto the row and reads back what was stored.
func (a *Allocator) assign(ctx context.Context, orderID string, candidate int64) Outcome {
	err := a.repair.Do(ctx, func(ctx context.Context) error {
		return retryIfTransient(a.gateway.UpdateOrderNumber(ctx, orderID, candidate))
	})
	if err != nil {
		a.logger.Warn("write order number failed", zap.String("order", orderID), zap.Int64("candidate", candidate), zap.Error(err))
	}

	if stored, ok := a.readStored(ctx, orderID); ok {
		return Outcome{OrderID: orderID, Number: stored, Confidence: entity.Confirmed}
	}
	return Outcome{OrderID: orderID, Number: candidate, Confidence: entity.Assumed}
}

func (a *Allocator) readStored(ctx context.Context, orderID string) (int64, bool) {
	var stored *int64
	err := a.read.Do(ctx, func(ctx context.Context) error {
		n, err := a.gateway.ReadOrderNumber(ctx, orderID)
		if err != nil {
			return retryIfTransient(err)
		}
		stored = n
		return nil
	})
	if err != nil {
		a.logger.Warn("read order number failed", zap.String("order", orderID), zap.Error(err))
	}
	if stored == nil {
		return 0, false
	}
	return *stored, true
}

func retryIfTransient(err error) error {
	if err != nil && backend.Transient(err) {
		return retry.Retryable(err)
	}
	return err
}
