package order

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/menumate/internal/backend"
	"github.com/Additional-Code/menumate/internal/backend/memory"
	"github.com/Additional-Code/menumate/internal/entity"
)

func newTestAllocator(t *testing.T, gw backend.Gateway) *Allocator {
	t.Helper()
	metrics, err := NewMetrics()
	require.NoError(t, err)
	return NewAllocator(gw, testConfig(), metrics, zaptest.NewLogger(t))
}

func TestAllocatorContinuesLegacyTextualNumbers(t *testing.T) {
	t.Parallel()

	legacy := backend.TextNumber("ORD-1012")
	gw := &faultyGateway{Backend: memory.New(memory.Options{AtomicMode: memory.AtomicUnavailable}), maxNumber: &legacy}

	out, err := newTestAllocator(t, gw).Allocate(context.Background(), backend.NewOrder{TenantID: "tenant-a", PaymentMethod: "cash"})
	require.NoError(t, err)

	assert.Equal(t, int64(13), out.Number)
	assert.Equal(t, entity.Confirmed, out.Confidence)
}

func TestAllocatorRepairsLegacyUnnumberedRow(t *testing.T) {
	t.Parallel()

	gw := memory.New(memory.Options{AtomicMode: memory.AtomicLegacyUnnumbered})
	gw.Seed(entity.Order{TenantID: "tenant-a", OrderNumber: int64Ptr(41)})

	out, err := newTestAllocator(t, gw).Allocate(context.Background(), backend.NewOrder{TenantID: "tenant-a", PaymentMethod: "cash"})
	require.NoError(t, err)

	assert.Equal(t, int64(42), out.Number)
	assert.Equal(t, entity.Confirmed, out.Confidence)

	stored, err := gw.ReadOrderNumber(context.Background(), out.OrderID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(42), *stored)
}

func TestAllocatorKeepsExistingNumberOnRepair(t *testing.T) {
	t.Parallel()

	gw := memory.New(memory.Options{AtomicMode: memory.AtomicLegacy})
	a := newTestAllocator(t, gw)

	first, err := a.Allocate(context.Background(), backend.NewOrder{TenantID: "tenant-a"})
	require.NoError(t, err)
	second, err := a.Allocate(context.Background(), backend.NewOrder{TenantID: "tenant-a"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Number)
	assert.Equal(t, int64(2), second.Number)
}

func TestAllocatorTransientMaxReadIsRetried(t *testing.T) {
	t.Parallel()

	gw := &flakyMaxGateway{Backend: memory.New(memory.Options{AtomicMode: memory.AtomicUnavailable}), failures: 2}
	gw.Seed(entity.Order{TenantID: "tenant-a", OrderNumber: int64Ptr(4)})

	out, err := newTestAllocator(t, gw).Allocate(context.Background(), backend.NewOrder{TenantID: "tenant-a"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), out.Number)
	assert.Equal(t, 3, gw.calls)
}

func TestAllocationErrorClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want AllocationFailure
	}{
		{backend.ErrPermissionDenied, FailurePermissionDenied},
		{backend.ErrTimeout, FailureTimeout},
		{context.DeadlineExceeded, FailureTimeout},
		{backend.ErrUnavailable, FailureBackendUnavailable},
		{errors.New("boom"), FailureBackendUnavailable},
	}
	for _, tc := range cases {
		got := newAllocationError(StepCreateRow, tc.err)
		assert.Equal(t, tc.want, got.Kind, tc.err.Error())
		assert.ErrorIs(t, got, tc.err)
	}
}

func int64Ptr(n int64) *int64 { return &n }

type flakyMaxGateway struct {
	*memory.Backend

	failures int
	calls    int
}

func (f *flakyMaxGateway) ReadMaxOrderNumber(ctx context.Context, tenantID string) (backend.RawNumber, error) {
	f.calls++
	if f.calls <= f.failures {
		return backend.NullNumber(), backend.ErrUnavailable
	}
	return f.Backend.ReadMaxOrderNumber(ctx, tenantID)
}
