package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/Additional-Code/menumate/internal/cache"
	"github.com/Additional-Code/menumate/internal/config"
	"github.com/Additional-Code/menumate/internal/entity"
)

// Module provides the session store to Fx.
var Module = fx.Provide(NewStore)

// Store keeps per-session state: the cart, the resolved tenant and the
// mirror of orders placed from the session. The mirror does not depend on
// backend read visibility and is what "your order" surfaces read.
type Store struct {
	kv          cache.Store
	ttl         time.Duration
	mirrorLimit int
}

// NewStore builds a session store over the cache backend.
func NewStore(kv cache.Store, cfg config.Config) *Store {
	return &Store{
		kv:          kv,
		ttl:         cfg.Session.TTL,
		mirrorLimit: cfg.Session.MirrorLimit,
	}
}

func key(sid, part string) string {
	return fmt.Sprintf("session:%s:%s", sid, part)
}

// Cart returns the session's cart; a missing cart is empty.
func (s *Store) Cart(ctx context.Context, sid string) (Cart, error) {
	cart := Cart{}
	if _, err := s.load(ctx, key(sid, "cart"), &cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// PutLine inserts or replaces a line.
func (s *Store) PutLine(ctx context.Context, sid string, line CartLine) (Cart, error) {
	cart, err := s.Cart(ctx, sid)
	if err != nil {
		return nil, err
	}
	cart[line.Key] = line
	return cart, s.save(ctx, key(sid, "cart"), cart)
}

// RemoveLine drops a line; removing a missing line is not an error.
func (s *Store) RemoveLine(ctx context.Context, sid, lineKey string) (Cart, error) {
	cart, err := s.Cart(ctx, sid)
	if err != nil {
		return nil, err
	}
	delete(cart, lineKey)
	return cart, s.save(ctx, key(sid, "cart"), cart)
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context, sid string) error {
	return s.kv.Delete(ctx, key(sid, "cart"))
}

// Tenant returns the tenant persisted for the session, or "" when none is.
func (s *Store) Tenant(ctx context.Context, sid string) (string, error) {
	var tenant string
	if _, err := s.load(ctx, key(sid, "tenant"), &tenant); err != nil {
		return "", err
	}
	return tenant, nil
}

// SetTenant persists the tenant for later requests.
func (s *Store) SetTenant(ctx context.Context, sid, tenant string) error {
	return s.save(ctx, key(sid, "tenant"), tenant)
}

// Record prepends the receipt to the mirror, replacing an earlier entry for
// the same order, and trims the mirror to its limit.
func (s *Store) Record(ctx context.Context, sid string, receipt entity.Receipt) error {
	receipts, err := s.List(ctx, sid)
	if err != nil {
		return err
	}

	out := make([]entity.Receipt, 0, len(receipts)+1)
	out = append(out, receipt)
	for _, r := range receipts {
		if r.OrderID != receipt.OrderID {
			out = append(out, r)
		}
	}
	if s.mirrorLimit > 0 && len(out) > s.mirrorLimit {
		out = out[:s.mirrorLimit]
	}
	return s.save(ctx, key(sid, "orders"), out)
}

// List returns mirrored receipts, newest first.
func (s *Store) List(ctx context.Context, sid string) ([]entity.Receipt, error) {
	var receipts []entity.Receipt
	if _, err := s.load(ctx, key(sid, "orders"), &receipts); err != nil {
		return nil, err
	}
	return receipts, nil
}

// MostRecent returns the last recorded receipt.
func (s *Store) MostRecent(ctx context.Context, sid string) (entity.Receipt, bool, error) {
	receipts, err := s.List(ctx, sid)
	if err != nil || len(receipts) == 0 {
		return entity.Receipt{}, false, err
	}
	return receipts[0], true, nil
}

// HasOrders reports whether the session has ever placed an order.
func (s *Store) HasOrders(ctx context.Context, sid string) (bool, error) {
	var flag bool
	if _, err := s.load(ctx, key(sid, "has_orders"), &flag); err != nil {
		return false, err
	}
	return flag, nil
}

// MarkHasOrders sets the has-orders flag.
func (s *Store) MarkHasOrders(ctx context.Context, sid string) error {
	return s.save(ctx, key(sid, "has_orders"), true)
}

func (s *Store) load(ctx context.Context, k string, dst any) (bool, error) {
	raw, err := s.kv.Get(ctx, k)
	if errors.Is(err, cache.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", k, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", k, err)
	}
	return true, nil
}

func (s *Store) save(ctx context.Context, k string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k, err)
	}
	if err := s.kv.Set(ctx, k, raw, s.ttl); err != nil {
		return fmt.Errorf("save %s: %w", k, err)
	}
	return nil
}
