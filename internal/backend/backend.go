// Package backend defines the operations the ordering core consumes from the
// order store, together with the value types decoded at that boundary.
package backend

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/menumate/internal/entity"
)

// Error classes every gateway maps its driver errors onto. Gateways wrap the
// original error so callers can still inspect it.
var (
	ErrPermissionDenied = errors.New("backend: permission denied")
	ErrUnavailable      = errors.New("backend: unavailable")
	ErrTimeout          = errors.New("backend: timeout")
	ErrUnsupported      = errors.New("backend: operation not supported")
	ErrNotFound         = errors.New("backend: not found")
)

// NewOrder carries the fields needed to create an order row.
type NewOrder struct {
	TenantID      string
	TotalAmount   decimal.Decimal
	PaymentMethod string
	// OrderNumber, when set, is stored as given by CreateOrderAtomic instead
	// of the tenant's next number. CreateOrder ignores it.
	OrderNumber *int64
}

// Gateway is the order store as seen by the ordering core. None of its
// operations span a client-visible transaction.
type Gateway interface {
	// CreateOrderAtomic creates the order and assigns the tenant's next order
	// number in one server-side step. Older backends only return the id.
	CreateOrderAtomic(ctx context.Context, order NewOrder) (AtomicResult, error)
	// CreateOrder creates an order row without a number.
	CreateOrder(ctx context.Context, order NewOrder) (string, error)
	CreateOrderItem(ctx context.Context, item entity.OrderItem) error
	// ReadMaxOrderNumber returns the highest number assigned for the tenant,
	// or a null value when none is visible.
	ReadMaxOrderNumber(ctx context.Context, tenantID string) (RawNumber, error)
	// ReadOrderNumber returns the stored number, or nil when it is unset or the
	// row is not visible to the caller.
	ReadOrderNumber(ctx context.Context, orderID string) (*int64, error)
	// UpdateOrderNumber sets the number on a row that has none yet. Rows that
	// already carry a number are left untouched.
	UpdateOrderNumber(ctx context.Context, orderID string, number int64) error
	// GetOrder loads an order with its items.
	GetOrder(ctx context.Context, orderID string) (*entity.Order, error)
	// ListOrders returns the tenant's orders with items, newest first.
	ListOrders(ctx context.Context, tenantID string, limit int) ([]entity.Order, error)
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// Transient reports whether err is worth retrying.
func Transient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}
