// Package memory implements the order gateway in process. It can impersonate
// the backend versions the ordering core must cope with: a numbered atomic
// create, legacy id-only variants, no atomic create at all, and a visibility
// policy that hides rows from the session that wrote them.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Additional-Code/menumate/internal/backend"
	"github.com/Additional-Code/menumate/internal/entity"
)

// AtomicMode selects how CreateOrderAtomic behaves.
type AtomicMode string

const (
	// AtomicNumbered assigns the number and returns it with the id.
	AtomicNumbered AtomicMode = "numbered"
	// AtomicLegacy assigns the number but returns only the id.
	AtomicLegacy AtomicMode = "legacy"
	// AtomicLegacyUnnumbered creates the row without a number and returns the id.
	AtomicLegacyUnnumbered AtomicMode = "legacy_unnumbered"
	// AtomicUnavailable rejects the call as unsupported.
	AtomicUnavailable AtomicMode = "unavailable"
)

// Options configure the in-memory backend.
type Options struct {
	AtomicMode AtomicMode
	// HideOwnWrites hides every order row from reads and updates, as a row
	// visibility policy does for anonymous sessions.
	HideOwnWrites bool
	// Latency is added before every operation touches the data.
	Latency time.Duration
}

var _ backend.Gateway = (*Backend)(nil)

// Backend is a concurrency-safe in-memory order store.
type Backend struct {
	opts Options

	mu     sync.Mutex
	orders map[string]*entity.Order
	seq    []string
	itemID int64
}

// New constructs an empty backend.
func New(opts Options) *Backend {
	if opts.AtomicMode == "" {
		opts.AtomicMode = AtomicNumbered
	}
	return &Backend{
		opts:   opts,
		orders: make(map[string]*entity.Order),
	}
}

// Seed inserts an order as-is, bypassing numbering. Used to preload data.
func (b *Backend) Seed(order entity.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	stored := order
	b.orders[stored.ID] = &stored
	b.seq = append(b.seq, stored.ID)
}

// CreateOrderAtomic implements backend.Gateway.
func (b *Backend) CreateOrderAtomic(ctx context.Context, order backend.NewOrder) (backend.AtomicResult, error) {
	if err := b.wait(ctx); err != nil {
		return backend.AtomicResult{}, err
	}
	if b.opts.AtomicMode == AtomicUnavailable {
		return backend.AtomicResult{}, fmt.Errorf("insert_order: %w", backend.ErrUnsupported)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	row := b.insertLocked(order)
	switch b.opts.AtomicMode {
	case AtomicLegacyUnnumbered:
		return backend.Legacy(row.ID), nil
	case AtomicLegacy:
		n := b.nextLocked(order)
		row.OrderNumber = &n
		return backend.Legacy(row.ID), nil
	default:
		n := b.nextLocked(order)
		row.OrderNumber = &n
		return backend.WithNumber(row.ID, n), nil
	}
}

// nextLocked prefers a caller-supplied number over the tenant's next one.
func (b *Backend) nextLocked(order backend.NewOrder) int64 {
	if order.OrderNumber != nil {
		return *order.OrderNumber
	}
	return b.maxLocked(order.TenantID) + 1
}

// CreateOrder implements backend.Gateway.
func (b *Backend) CreateOrder(ctx context.Context, order backend.NewOrder) (string, error) {
	if err := b.wait(ctx); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.insertLocked(order).ID, nil
}

// CreateOrderItem implements backend.Gateway.
func (b *Backend) CreateOrderItem(ctx context.Context, item entity.OrderItem) error {
	if err := b.wait(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	order, ok := b.orders[item.OrderID]
	if !ok {
		return fmt.Errorf("order %s: %w", item.OrderID, backend.ErrNotFound)
	}
	b.itemID++
	item.ID = b.itemID
	order.Items = append(order.Items, item)
	return nil
}

// ReadMaxOrderNumber implements backend.Gateway.
func (b *Backend) ReadMaxOrderNumber(ctx context.Context, tenantID string) (backend.RawNumber, error) {
	if err := b.wait(ctx); err != nil {
		return backend.NullNumber(), err
	}
	if b.opts.HideOwnWrites {
		return backend.NullNumber(), nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasNumberLocked(tenantID) {
		return backend.NullNumber(), nil
	}
	return backend.IntNumber(b.maxLocked(tenantID)), nil
}

// ReadOrderNumber implements backend.Gateway.
func (b *Backend) ReadOrderNumber(ctx context.Context, orderID string) (*int64, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	if b.opts.HideOwnWrites {
		return nil, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	order, ok := b.orders[orderID]
	if !ok || order.OrderNumber == nil {
		return nil, nil
	}
	n := *order.OrderNumber
	return &n, nil
}

// UpdateOrderNumber implements backend.Gateway.
func (b *Backend) UpdateOrderNumber(ctx context.Context, orderID string, number int64) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	if b.opts.HideOwnWrites {
		return fmt.Errorf("update orders: %w", backend.ErrPermissionDenied)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	order, ok := b.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, backend.ErrNotFound)
	}
	if order.OrderNumber == nil {
		n := number
		order.OrderNumber = &n
	}
	return nil
}

// GetOrder implements backend.Gateway. It reads with privileged access and
// ignores the visibility policy.
func (b *Backend) GetOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	order, ok := b.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, backend.ErrNotFound)
	}
	return cloneOrder(order), nil
}

// ListOrders implements backend.Gateway with privileged access.
func (b *Backend) ListOrders(ctx context.Context, tenantID string, limit int) ([]entity.Order, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]entity.Order, 0)
	for i := len(b.seq) - 1; i >= 0; i-- {
		order := b.orders[b.seq[i]]
		if order.TenantID != tenantID {
			continue
		}
		out = append(out, *cloneOrder(order))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Ping implements backend.Gateway.
func (b *Backend) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (b *Backend) wait(ctx context.Context) error {
	if b.opts.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(b.opts.Latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", backend.ErrTimeout, ctx.Err())
	case <-t.C:
		return nil
	}
}

func (b *Backend) insertLocked(order backend.NewOrder) *entity.Order {
	row := &entity.Order{
		ID:            uuid.NewString(),
		TenantID:      order.TenantID,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		CreatedAt:     time.Now().UTC(),
	}
	b.orders[row.ID] = row
	b.seq = append(b.seq, row.ID)
	return row
}

func (b *Backend) maxLocked(tenantID string) int64 {
	var highest int64
	for _, order := range b.orders {
		if order.TenantID == tenantID && order.OrderNumber != nil && *order.OrderNumber > highest {
			highest = *order.OrderNumber
		}
	}
	return highest
}

func (b *Backend) hasNumberLocked(tenantID string) bool {
	for _, order := range b.orders {
		if order.TenantID == tenantID && order.OrderNumber != nil {
			return true
		}
	}
	return false
}

func cloneOrder(order *entity.Order) *entity.Order {
	out := *order
	if order.OrderNumber != nil {
		n := *order.OrderNumber
		out.OrderNumber = &n
	}
	out.Items = append([]entity.OrderItem(nil), order.Items...)
	return &out
}
