package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/menumate/internal/backend"
	"github.com/Additional-Code/menumate/internal/backend/memory"
	"github.com/Additional-Code/menumate/internal/entity"
)

func createNumbered(t *testing.T, gw backend.Gateway, tenant string) (string, int64) {
	t.Helper()
	res, err := gw.CreateOrderAtomic(context.Background(), backend.NewOrder{TenantID: tenant, PaymentMethod: "cash"})
	require.NoError(t, err)
	n, ok := res.Number()
	require.True(t, ok)
	return res.OrderID(), n
}

func TestVerifierConfirmsAfterHiddenReads(t *testing.T) {
	t.Parallel()

	gw := &faultyGateway{Backend: memory.New(memory.Options{}), hideReads: 2}
	id, n := createNumbered(t, gw, "tenant-a")

	out := NewVerifier(gw, testConfig(), zaptest.NewLogger(t)).Verify(context.Background(), id, n)

	assert.Equal(t, entity.Confirmed, out.Confidence)
	assert.Equal(t, n, out.Number)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, gw.readCount())
}

func TestVerifierFallsBackToAssumed(t *testing.T) {
	t.Parallel()

	gw := &faultyGateway{Backend: memory.New(memory.Options{}), hideReads: 100}
	id, _ := createNumbered(t, gw, "tenant-a")

	out := NewVerifier(gw, testConfig(), zaptest.NewLogger(t)).Verify(context.Background(), id, 9)

	assert.Equal(t, entity.Assumed, out.Confidence)
	assert.Equal(t, int64(9), out.Number)
	assert.Equal(t, 3, out.Attempts)
}

func TestVerifierPrefersStoredNumber(t *testing.T) {
	t.Parallel()

	gw := memory.New(memory.Options{})
	createNumbered(t, gw, "tenant-a")
	id, n := createNumbered(t, gw, "tenant-a")
	require.Equal(t, int64(2), n)

	out := NewVerifier(gw, testConfig(), zaptest.NewLogger(t)).Verify(context.Background(), id, 1)

	assert.Equal(t, entity.Confirmed, out.Confidence)
	assert.Equal(t, int64(2), out.Number, "the stored number wins over the expected one")
	assert.Equal(t, 1, out.Attempts)
}
