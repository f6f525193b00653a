package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Additional-Code/menumate/internal/backend"
	"github.com/Additional-Code/menumate/internal/cache"
	"github.com/Additional-Code/menumate/internal/config"
	"github.com/Additional-Code/menumate/internal/entity"
	"github.com/Additional-Code/menumate/internal/messaging"
	"github.com/Additional-Code/menumate/internal/session"
	"github.com/Additional-Code/menumate/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/menumate/service/order")

// PaymentMethods lists the accepted payment method codes.
var PaymentMethods = []string{"qr", "upi", "cash", "card"}

// Submission identifies the cart being turned into an order.
type Submission struct {
	SessionID     string
	TenantID      string
	PaymentMethod string
}

// Service coordinates order submission and the order read paths.
type Service struct {
	gateway   backend.Gateway
	allocator *Allocator
	verifier  *Verifier
	sessions  *session.Store
	cache     cache.Store
	publisher messaging.Client
	metrics   *Metrics
	logger    *zap.Logger

	submitTimeout  time.Duration
	publishTimeout time.Duration
	summaryTTL     time.Duration
	summaryLimit   int

	background sync.WaitGroup
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Gateway   backend.Gateway
	Allocator *Allocator
	Verifier  *Verifier
	Sessions  *session.Store
	Cache     cache.Store
	Publisher messaging.Client
	Metrics   *Metrics
	Config    config.Config
	Logger    *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		gateway:        p.Gateway,
		allocator:      p.Allocator,
		verifier:       p.Verifier,
		sessions:       p.Sessions,
		cache:          p.Cache,
		publisher:      p.Publisher,
		metrics:        p.Metrics,
		logger:         p.Logger,
		submitTimeout:  p.Config.Ordering.SubmitTimeout,
		publishTimeout: p.Config.Ordering.PublishTimeout,
		summaryTTL:     p.Config.Ordering.SummaryTTL,
		summaryLimit:   p.Config.Ordering.SummaryLimit,
	}
}

// ValidPaymentMethod reports whether method is an accepted code.
func ValidPaymentMethod(method string) bool {
	method = strings.ToLower(strings.TrimSpace(method))
	for _, m := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

// Submit turns the session's cart into an order.
//
// The work is detached from the caller's cancellation so a client that goes
// away cannot abandon a half-written order; it is bounded by the submit
// timeout instead. When only some items could be written the receipt is
// still returned, together with a KindItemsPartiallyPersisted error.
func (s *Service) Submit(ctx context.Context, sub Submission) (entity.Receipt, error) {
	ctx = context.WithoutCancel(ctx)
	if s.submitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.submitTimeout)
		defer cancel()
	}

	ctx, span := serviceTracer.Start(ctx, "OrderService.Submit", trace.WithAttributes(attribute.String("tenant.id", sub.TenantID)))
	defer span.End()

	logger := s.logger.With(zap.String("tenant", sub.TenantID), zap.String("session", sub.SessionID))
	tracker := NewTracker(logger)
	defer func() { s.metrics.recordSubmission(ctx, tracker.State()) }()

	method := strings.ToLower(strings.TrimSpace(sub.PaymentMethod))
	if !ValidPaymentMethod(method) {
		return entity.Receipt{}, errorbank.BadRequest("unsupported payment method", errorbank.WithDetail("allowed", PaymentMethods))
	}

	cart, err := s.sessions.Cart(ctx, sub.SessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cart unavailable")
		return entity.Receipt{}, errorbank.Unavailable("cart unavailable", errorbank.WithCause(err))
	}
	if cart.Empty() {
		return entity.Receipt{}, &SubmissionError{Kind: KindEmptyCart}
	}
	total := cart.Total()

	mustAdvance(tracker, StateNumberRequested)
	outcome, err := s.allocator.Allocate(ctx, backend.NewOrder{
		TenantID:      sub.TenantID,
		TotalAmount:   total,
		PaymentMethod: method,
	})
	if err != nil {
		kind, state := KindAllocationFailed, StateAllocationFailed
		var allocErr *AllocationError
		if errors.As(err, &allocErr) && allocErr.Step == StepCreateRow {
			kind, state = KindOrderRowPersistFailed, StateOrderRowPersistFailed
		}
		mustAdvance(tracker, state)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		logger.Error("order submission failed", zap.String("state", string(state)), zap.Error(err))
		return entity.Receipt{}, &SubmissionError{Kind: kind, Err: err}
	}
	mustAdvance(tracker, StateNumberObtained)
	mustAdvance(tracker, StateOrderRowPersisted)
	span.SetAttributes(attribute.String("order.id", outcome.OrderID))

	items := make([]entity.OrderItem, 0, len(cart))
	for _, line := range cart.Lines() {
		items = append(items, entity.OrderItem{
			OrderID:   outcome.OrderID,
			DishID:    line.DishID,
			DishName:  line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		})
	}

	mustAdvance(tracker, StateItemsPersisting)
	failed, itemErr := s.persistItems(ctx, items)
	if failed > 0 {
		mustAdvance(tracker, StateItemsPartiallyFailed)
		logger.Warn("order items partially persisted",
			zap.String("order", outcome.OrderID),
			zap.Int("failed", failed),
			zap.Int("total", len(items)),
			zap.Error(itemErr),
		)
	} else {
		mustAdvance(tracker, StateItemsPersisted)
	}

	// a confirmed number needs no read-back, but still passes through verifying
	mustAdvance(tracker, StateVerifying)
	number, confidence := outcome.Number, outcome.Confidence
	if confidence == entity.Assumed {
		verified := s.verifier.Verify(ctx, outcome.OrderID, outcome.Number)
		number, confidence = verified.Number, verified.Confidence
	}
	if confidence == entity.Confirmed {
		mustAdvance(tracker, StateVerified)
	} else {
		mustAdvance(tracker, StateAssumedSuccess)
	}

	receipt := entity.Receipt{
		OrderID:            outcome.OrderID,
		TenantID:           sub.TenantID,
		OrderNumber:        number,
		DisplayOrderNumber: entity.FormatOrderNumber(number),
		Confidence:         confidence,
		TotalAmount:        total,
		PaymentMethod:      method,
		CreatedAt:          time.Now().UTC(),
		Items:              items,
		ItemsPersisted:     failed == 0,
	}

	s.deliver(ctx, logger, sub.SessionID, receipt)
	mustAdvance(tracker, StateDelivered)

	if err := s.InvalidateTenant(ctx, sub.TenantID); err != nil {
		logger.Warn("invalidate tenant summary failed", zap.Error(err))
	}
	s.publishOrderPlaced(receipt)

	span.SetAttributes(
		attribute.Int64("order.number", number),
		attribute.String("order.confidence", string(confidence)),
	)
	logger.Info("order submitted",
		zap.String("order", receipt.OrderID),
		zap.String("number", receipt.DisplayOrderNumber),
		zap.String("confidence", string(confidence)),
		tracker.Field(),
	)

	if failed > 0 {
		return receipt, &SubmissionError{
			Kind:        KindItemsPartiallyPersisted,
			OrderID:     outcome.OrderID,
			FailedItems: failed,
			Err:         itemErr,
		}
	}
	return receipt, nil
}

// persistItems writes every item concurrently and waits for all of them.
// It returns how many failed and the first failure.
func (s *Service) persistItems(ctx context.Context, items []entity.OrderItem) (int, error) {
	var (
		g      errgroup.Group
		failed atomic.Int32
	)
	for _, item := range items {
		item := item
		g.Go(func() error {
			if err := s.gateway.CreateOrderItem(ctx, item); err != nil {
				failed.Add(1)
				return fmt.Errorf("item %q: %w", item.DishName, err)
			}
			return nil
		})
	}
	err := g.Wait()
	return int(failed.Load()), err
}

// deliver records the receipt in the session mirror and clears the cart.
// The order already exists, so failures here are logged only.
func (s *Service) deliver(ctx context.Context, logger *zap.Logger, sid string, receipt entity.Receipt) {
	if err := s.sessions.Record(ctx, sid, receipt); err != nil {
		logger.Error("mirror order receipt failed", zap.String("order", receipt.OrderID), zap.Error(err))
	}
	if err := s.sessions.ClearCart(ctx, sid); err != nil {
		logger.Warn("clear cart failed", zap.Error(err))
	}
	if err := s.sessions.MarkHasOrders(ctx, sid); err != nil {
		logger.Warn("mark has orders failed", zap.Error(err))
	}
}

func (s *Service) publishOrderPlaced(receipt entity.Receipt) {
	if s.publisher == nil || !s.publisher.Enabled() {
		return
	}
	payload, err := json.Marshal(newOrderPlacedEvent(receipt))
	if err != nil {
		s.logger.Error("marshal order placed", zap.Error(err))
		return
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()

		ctx := context.Background()
		if s.publishTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.publishTimeout)
			defer cancel()
		}
		if err := s.publisher.Publish(ctx, []byte(receipt.TenantID), payload); err != nil {
			s.logger.Warn("publish order placed failed", zap.String("order", receipt.OrderID), zap.Error(err))
		}
	}()
}

// Drain waits for background publishes to finish or ctx to end.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get loads an order with its items.
func (s *Service) Get(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := s.gateway.GetOrder(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway error")
		return nil, toAppError(err, "failed to load order")
	}
	return order, nil
}

// ListForTenant returns the tenant's recent orders, newest first, through a
// short-lived cache.
func (s *Service) ListForTenant(ctx context.Context, tenantID string) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListForTenant", trace.WithAttributes(attribute.String("tenant.id", tenantID)))
	defer span.End()

	key := summaryKey(tenantID)
	if raw, err := s.cache.Get(ctx, key); err == nil {
		var orders []entity.Order
		if err := json.Unmarshal(raw, &orders); err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return orders, nil
		}
		s.logger.Warn("discarding undecodable order summary", zap.String("tenant", tenantID))
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("order summary cache read failed", zap.String("tenant", tenantID), zap.Error(err))
	}

	orders, err := s.gateway.ListOrders(ctx, tenantID, s.summaryLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway error")
		return nil, toAppError(err, "failed to list orders")
	}

	if raw, err := json.Marshal(orders); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.summaryTTL); err != nil {
			s.logger.Warn("order summary cache write failed", zap.String("tenant", tenantID), zap.Error(err))
		}
	}
	return orders, nil
}

// InvalidateTenant drops the cached order summary for the tenant.
func (s *Service) InvalidateTenant(ctx context.Context, tenantID string) error {
	return s.cache.Delete(ctx, summaryKey(tenantID))
}

// NextNumber reports the number the fallback path would assign next.
func (s *Service) NextNumber(ctx context.Context, tenantID string) (int64, error) {
	highest, err := s.gateway.ReadMaxOrderNumber(ctx, tenantID)
	if err != nil {
		return 0, toAppError(err, "failed to read order numbers")
	}
	return highest.Next(), nil
}

// Mine lists the receipts mirrored for the session, newest first.
func (s *Service) Mine(ctx context.Context, sid string) ([]entity.Receipt, error) {
	receipts, err := s.sessions.List(ctx, sid)
	if err != nil {
		return nil, errorbank.Unavailable("session store unavailable", errorbank.WithCause(err))
	}
	return receipts, nil
}

// HasOrders reports whether the session has placed an order, even when its
// mirrored receipts have since been trimmed.
func (s *Service) HasOrders(ctx context.Context, sid string) (bool, error) {
	has, err := s.sessions.HasOrders(ctx, sid)
	if err != nil {
		return false, errorbank.Unavailable("session store unavailable", errorbank.WithCause(err))
	}
	return has, nil
}

// Latest returns the most recent mirrored receipt for the session.
func (s *Service) Latest(ctx context.Context, sid string) (entity.Receipt, error) {
	receipt, ok, err := s.sessions.MostRecent(ctx, sid)
	if err != nil {
		return entity.Receipt{}, errorbank.Unavailable("session store unavailable", errorbank.WithCause(err))
	}
	if !ok {
		return entity.Receipt{}, errorbank.NotFound("no orders placed in this session")
	}
	return receipt, nil
}

func summaryKey(tenantID string) string {
	return fmt.Sprintf("tenants:%s:orders", tenantID)
}

func toAppError(err error, msg string) *errorbank.AppError {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return errorbank.NotFound("order not found", errorbank.WithCause(err))
	case errors.Is(err, backend.ErrPermissionDenied):
		return errorbank.Forbidden(msg, errorbank.WithCause(err))
	case errors.Is(err, backend.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return errorbank.Timeout(msg, errorbank.WithCause(err))
	case errors.Is(err, backend.ErrUnavailable):
		return errorbank.Unavailable(msg, errorbank.WithCause(err))
	default:
		return errorbank.Internal(msg, errorbank.WithCause(err))
	}
}

// mustAdvance reports an illegal transition through DPanic, which panics in
// development builds only.
func mustAdvance(t *Tracker, next State) {
	if err := t.Advance(next); err != nil {
		t.logger.DPanic("submission state machine", zap.Error(err))
	}
}
