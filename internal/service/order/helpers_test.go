package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/menumate/internal/backend"
	"github.com/Additional-Code/menumate/internal/backend/memory"
	"github.com/Additional-Code/menumate/internal/cache"
	"github.com/Additional-Code/menumate/internal/config"
	"github.com/Additional-Code/menumate/internal/entity"
	"github.com/Additional-Code/menumate/internal/messaging"
	"github.com/Additional-Code/menumate/internal/session"
)

func testConfig() config.Config {
	fast := config.RetryPolicy{Attempts: 3, Spacing: time.Millisecond, Backoff: "constant", Timeout: 500 * time.Millisecond}
	return config.Config{
		Session: config.Session{TTL: time.Hour, MirrorLimit: 50},
		Ordering: config.Ordering{
			FallbackEnabled:  true,
			SubmitTimeout:    5 * time.Second,
			PublishTimeout:   time.Second,
			SummaryTTL:       time.Minute,
			SummaryLimit:     100,
			AllocationRead:   fast,
			VerificationRead: fast,
			RepairWrite:      fast,
		},
	}
}

type harness struct {
	svc       *Service
	sessions  *session.Store
	gateway   backend.Gateway
	publisher *recordingPublisher
	logs      *observer.ObservedLogs
}

func newHarness(t *testing.T, gateway backend.Gateway, mutate func(*config.Config)) *harness {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	observed, logs := observer.New(zap.DebugLevel)
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, observed)
	})))
	metrics, err := NewMetrics()
	require.NoError(t, err)

	sessions := session.NewStore(cache.NewMemoryStore(0), cfg)
	publisher := &recordingPublisher{}
	svc := NewService(Params{
		Gateway:   gateway,
		Allocator: NewAllocator(gateway, cfg, metrics, logger),
		Verifier:  NewVerifier(gateway, cfg, logger),
		Sessions:  sessions,
		Cache:     cache.NewMemoryStore(0),
		Publisher: publisher,
		Metrics:   metrics,
		Config:    cfg,
		Logger:    logger,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = svc.Drain(ctx)
	})
	return &harness{svc: svc, sessions: sessions, gateway: gateway, publisher: publisher, logs: logs}
}

func (h *harness) fillCart(t *testing.T, sid string) {
	t.Helper()
	ctx := context.Background()
	_, err := h.sessions.PutLine(ctx, sid, session.NewLine("dosa", nil, "Masala Dosa", "₹120", 2))
	require.NoError(t, err)
	_, err = h.sessions.PutLine(ctx, sid, session.NewLine("coffee", nil, "Filter Coffee", 40, 1))
	require.NoError(t, err)
}

func (h *harness) submit(t *testing.T, sid, tenant string) (entity.Receipt, error) {
	t.Helper()
	h.fillCart(t, sid)
	return h.svc.Submit(context.Background(), Submission{SessionID: sid, TenantID: tenant, PaymentMethod: "upi"})
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

var _ messaging.Client = (*recordingPublisher)(nil)

func (r *recordingPublisher) Publish(_ context.Context, _ []byte, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, append([]byte(nil), value...))
	return nil
}

func (r *recordingPublisher) Consume(ctx context.Context, _ messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (r *recordingPublisher) Topic() string { return "orders.placed" }
func (r *recordingPublisher) Enabled() bool { return true }

func (r *recordingPublisher) published() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.messages...)
}

// faultyGateway injects failures in front of the in-memory backend.
type faultyGateway struct {
	*memory.Backend

	atomicErr error
	createErr error
	itemErr   func(entity.OrderItem) error
	maxNumber *backend.RawNumber
	hideReads int

	mu    sync.Mutex
	reads int
}

func (f *faultyGateway) CreateOrderAtomic(ctx context.Context, order backend.NewOrder) (backend.AtomicResult, error) {
	if f.atomicErr != nil {
		return backend.AtomicResult{}, f.atomicErr
	}
	return f.Backend.CreateOrderAtomic(ctx, order)
}

func (f *faultyGateway) CreateOrder(ctx context.Context, order backend.NewOrder) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.Backend.CreateOrder(ctx, order)
}

func (f *faultyGateway) CreateOrderItem(ctx context.Context, item entity.OrderItem) error {
	if f.itemErr != nil {
		if err := f.itemErr(item); err != nil {
			return err
		}
	}
	return f.Backend.CreateOrderItem(ctx, item)
}

func (f *faultyGateway) ReadMaxOrderNumber(ctx context.Context, tenantID string) (backend.RawNumber, error) {
	if f.maxNumber != nil {
		return *f.maxNumber, nil
	}
	return f.Backend.ReadMaxOrderNumber(ctx, tenantID)
}

// ReadOrderNumber hides the number for the first hideReads calls.
func (f *faultyGateway) ReadOrderNumber(ctx context.Context, orderID string) (*int64, error) {
	f.mu.Lock()
	f.reads++
	hidden := f.reads <= f.hideReads
	f.mu.Unlock()
	if hidden {
		return nil, nil
	}
	return f.Backend.ReadOrderNumber(ctx, orderID)
}

func (f *faultyGateway) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}
