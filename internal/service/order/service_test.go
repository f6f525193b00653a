package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/menumate/internal/backend"
	"github.com/Additional-Code/menumate/internal/backend/memory"
	"github.com/Additional-Code/menumate/internal/config"
	"github.com/Additional-Code/menumate/internal/entity"
	"github.com/Additional-Code/menumate/pkg/errorbank"
)

func TestSubmitAssignsSequentialNumbers(t *testing.T) {
	t.Parallel()

	h := newHarness(t, memory.New(memory.Options{AtomicMode: memory.AtomicNumbered}), nil)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		sid := fmt.Sprintf("session-%d", i)
		receipt, err := h.submit(t, sid, "tenant-a")
		require.NoError(t, err)

		assert.Equal(t, int64(i), receipt.OrderNumber)
		assert.Equal(t, fmt.Sprintf("%02d", i), receipt.DisplayOrderNumber)
		assert.Equal(t, entity.Confirmed, receipt.Confidence)
		assert.True(t, receipt.ItemsPersisted)
		assert.True(t, receipt.TotalAmount.Equal(decimal.NewFromInt(280)))
		assert.Len(t, receipt.Items, 2)

		cart, err := h.sessions.Cart(ctx, sid)
		require.NoError(t, err)
		assert.True(t, cart.Empty(), "cart is cleared after submission")

		latest, ok, err := h.sessions.MostRecent(ctx, sid)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, receipt.OrderID, latest.OrderID)

		has, err := h.sessions.HasOrders(ctx, sid)
		require.NoError(t, err)
		assert.True(t, has)
	}

	stored, err := h.gateway.GetOrder(ctx, mustLatest(t, h, "session-3").OrderID)
	require.NoError(t, err)
	require.NotNil(t, stored.OrderNumber)
	assert.Equal(t, int64(3), *stored.OrderNumber)
	assert.Len(t, stored.Items, 2)
}

func TestSubmitConfirmedPassesThroughVerifying(t *testing.T) {
	t.Parallel()

	h := newHarness(t, memory.New(memory.Options{AtomicMode: memory.AtomicNumbered}), nil)
	receipt, err := h.submit(t, "s1", "tenant-a")
	require.NoError(t, err)
	require.Equal(t, entity.Confirmed, receipt.Confidence)

	entries := h.logs.FilterMessage("order submitted").All()
	require.Len(t, entries, 1)
	assert.Equal(t, []any{
		"draft",
		"number_requested",
		"number_obtained",
		"order_row_persisted",
		"items_persisting",
		"items_persisted",
		"verifying",
		"verified",
		"delivered",
	}, entries[0].ContextMap()["states"])
}

func mustLatest(t *testing.T, h *harness, sid string) entity.Receipt {
	t.Helper()
	receipt, err := h.svc.Latest(context.Background(), sid)
	require.NoError(t, err)
	return receipt
}

func TestSubmitNumbersTenantsIndependently(t *testing.T) {
	t.Parallel()

	h := newHarness(t, memory.New(memory.Options{}), nil)

	a1, err := h.submit(t, "s1", "tenant-a")
	require.NoError(t, err)
	a2, err := h.submit(t, "s2", "tenant-a")
	require.NoError(t, err)
	b1, err := h.submit(t, "s3", "tenant-b")
	require.NoError(t, err)

	assert.Equal(t, int64(1), a1.OrderNumber)
	assert.Equal(t, int64(2), a2.OrderNumber)
	assert.Equal(t, int64(1), b1.OrderNumber, "first order of a tenant is 1")
}

func TestSubmitAcrossBackendCapabilities(t *testing.T) {
	t.Parallel()

	for _, mode := range []memory.AtomicMode{memory.AtomicLegacy, memory.AtomicLegacyUnnumbered, memory.AtomicUnavailable} {
		mode := mode
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, memory.New(memory.Options{AtomicMode: mode}), nil)

			first, err := h.submit(t, "s1", "tenant-a")
			require.NoError(t, err)
			second, err := h.submit(t, "s2", "tenant-a")
			require.NoError(t, err)

			assert.Equal(t, int64(1), first.OrderNumber)
			assert.Equal(t, int64(2), second.OrderNumber)
			assert.Equal(t, entity.Confirmed, first.Confidence)
			assert.Equal(t, entity.Confirmed, second.Confidence)

			stored, err := h.gateway.ReadOrderNumber(context.Background(), second.OrderID)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, int64(2), *stored)
		})
	}
}

func TestSubmitWithHiddenWritesIsAssumed(t *testing.T) {
	t.Parallel()

	h := newHarness(t, memory.New(memory.Options{AtomicMode: memory.AtomicUnavailable, HideOwnWrites: true}), nil)

	start := time.Now()
	receipt, err := h.submit(t, "s1", "tenant-a")
	require.NoError(t, err)

	assert.Equal(t, int64(1), receipt.OrderNumber)
	assert.Equal(t, "01", receipt.DisplayOrderNumber)
	assert.Equal(t, entity.Assumed, receipt.Confidence)
	assert.Less(t, time.Since(start), 2*time.Second)

	latest := mustLatest(t, h, "s1")
	assert.Equal(t, receipt.OrderID, latest.OrderID, "mirror is independent of backend visibility")
}

func TestSubmitEmptyCart(t *testing.T) {
	t.Parallel()

	h := newHarness(t, memory.New(memory.Options{}), nil)

	_, err := h.svc.Submit(context.Background(), Submission{SessionID: "s1", TenantID: "tenant-a", PaymentMethod: "cash"})
	assert.ErrorIs(t, err, ErrEmptyCart)

	orders, err := h.gateway.ListOrders(context.Background(), "tenant-a", 0)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestSubmitRejectsUnknownPaymentMethod(t *testing.T) {
	t.Parallel()

	h := newHarness(t, memory.New(memory.Options{}), nil)
	h.fillCart(t, "s1")

	_, err := h.svc.Submit(context.Background(), Submission{SessionID: "s1", TenantID: "tenant-a", PaymentMethod: "cheque"})
	assert.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
}

func TestSubmitRowFailurePreservesCart(t *testing.T) {
	t.Parallel()

	gw := &faultyGateway{
		Backend:   memory.New(memory.Options{}),
		atomicErr: fmt.Errorf("insert_order: %w", backend.ErrUnsupported),
		createErr: fmt.Errorf("insert orders: %w", backend.ErrPermissionDenied),
	}
	h := newHarness(t, gw, nil)

	_, err := h.submit(t, "s1", "tenant-a")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOrderRowPersistFailed)

	var allocErr *AllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, FailurePermissionDenied, allocErr.Kind)
	assert.Equal(t, StepCreateRow, allocErr.Step)

	cart, err := h.sessions.Cart(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, cart, 2, "cart is kept for a retry")

	_, ok, err := h.sessions.MostRecent(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmitAtomicFailureWithoutFallback(t *testing.T) {
	t.Parallel()

	gw := &faultyGateway{
		Backend:   memory.New(memory.Options{}),
		atomicErr: fmt.Errorf("insert_order: %w", backend.ErrTimeout),
	}
	h := newHarness(t, gw, func(cfg *config.Config) { cfg.Ordering.FallbackEnabled = false })

	_, err := h.submit(t, "s1", "tenant-a")
	assert.ErrorIs(t, err, ErrAllocationFailed)

	var allocErr *AllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, FailureTimeout, allocErr.Kind)
	assert.Equal(t, StepAtomic, allocErr.Step)

	cart, err := h.sessions.Cart(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, cart.Empty())
}

func TestSubmitPartialItemFailure(t *testing.T) {
	t.Parallel()

	errDenied := fmt.Errorf("insert order_items: %w", backend.ErrPermissionDenied)
	gw := &faultyGateway{
		Backend: memory.New(memory.Options{}),
		itemErr: func(item entity.OrderItem) error {
			if item.DishName == "Filter Coffee" {
				return errDenied
			}
			return nil
		},
	}
	h := newHarness(t, gw, nil)

	receipt, err := h.submit(t, "s1", "tenant-a")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrItemsPartiallyPersisted)
	assert.ErrorIs(t, err, backend.ErrPermissionDenied)

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, receipt.OrderID, subErr.OrderID)
	assert.Equal(t, 1, subErr.FailedItems)

	assert.Equal(t, int64(1), receipt.OrderNumber)
	assert.False(t, receipt.ItemsPersisted)

	latest := mustLatest(t, h, "s1")
	assert.Equal(t, receipt.OrderID, latest.OrderID)
	assert.Equal(t, int64(1), latest.OrderNumber)

	stored, err := gw.GetOrder(context.Background(), receipt.OrderID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1, "the order is not retracted")
}

func TestConcurrentFallbackSubmissions(t *testing.T) {
	t.Parallel()

	h := newHarness(t, memory.New(memory.Options{AtomicMode: memory.AtomicUnavailable, Latency: 5 * time.Millisecond}), nil)
	h.fillCart(t, "s1")
	h.fillCart(t, "s2")

	var wg sync.WaitGroup
	receipts := make([]entity.Receipt, 2)
	errs := make([]error, 2)
	for i, sid := range []string{"s1", "s2"} {
		i, sid := i, sid
		wg.Add(1)
		go func() {
			defer wg.Done()
			receipts[i], errs[i] = h.svc.Submit(context.Background(), Submission{SessionID: sid, TenantID: "tenant-a", PaymentMethod: "cash"})
		}()
	}
	wg.Wait()

	for i := range receipts {
		require.NoError(t, errs[i])
		assert.Contains(t, []int64{1, 2}, receipts[i].OrderNumber)
	}
	assert.NotEqual(t, receipts[0].OrderID, receipts[1].OrderID)
}

func TestSubmitSurvivesCallerCancellation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, memory.New(memory.Options{Latency: 2 * time.Millisecond}), nil)
	h.fillCart(t, "s1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	receipt, err := h.svc.Submit(ctx, Submission{SessionID: "s1", TenantID: "tenant-a", PaymentMethod: "card"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), receipt.OrderNumber)
}

func TestSubmitPublishesOrderPlaced(t *testing.T) {
	t.Parallel()

	h := newHarness(t, memory.New(memory.Options{}), nil)

	receipt, err := h.submit(t, "s1", "tenant-a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.svc.Drain(ctx))

	published := h.publisher.published()
	require.Len(t, published, 1)

	var event OrderPlacedEvent
	require.NoError(t, json.Unmarshal(published[0], &event))
	assert.Equal(t, receipt.OrderID, event.OrderID)
	assert.Equal(t, "tenant-a", event.TenantID)
	assert.Equal(t, int64(1), event.OrderNumber)
	assert.Equal(t, "01", event.DisplayNumber)
	assert.Equal(t, "upi", event.PaymentMethod)
}

func TestListForTenantIsInvalidatedBySubmit(t *testing.T) {
	t.Parallel()

	h := newHarness(t, memory.New(memory.Options{}), nil)
	ctx := context.Background()

	_, err := h.submit(t, "s1", "tenant-a")
	require.NoError(t, err)

	orders, err := h.svc.ListForTenant(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, orders, 1)

	_, err = h.submit(t, "s2", "tenant-a")
	require.NoError(t, err)

	orders, err = h.svc.ListForTenant(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.NotNil(t, orders[0].OrderNumber)
	assert.Equal(t, int64(2), *orders[0].OrderNumber)

	next, err := h.svc.NextNumber(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), next)
}

func TestGetAndLatestErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t, memory.New(memory.Options{}), nil)
	ctx := context.Background()

	_, err := h.svc.Get(ctx, "missing")
	assert.True(t, errorbank.IsKind(err, errorbank.KindNotFound))

	_, err = h.svc.Latest(ctx, "nobody")
	assert.True(t, errorbank.IsKind(err, errorbank.KindNotFound))

	mine, err := h.svc.Mine(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestToAppError(t *testing.T) {
	t.Parallel()

	cases := map[error]errorbank.Kind{
		backend.ErrNotFound:                     errorbank.KindNotFound,
		backend.ErrPermissionDenied:             errorbank.KindForbidden,
		backend.ErrTimeout:                      errorbank.KindTimeout,
		backend.ErrUnavailable:                  errorbank.KindUnavailable,
		errors.New("something else"):            errorbank.KindInternal,
		fmt.Errorf("x: %w", backend.ErrTimeout): errorbank.KindTimeout,
	}
	for err, kind := range cases {
		assert.Equal(t, kind, toAppError(err, "msg").Kind(), err.Error())
	}
}
