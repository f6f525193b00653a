package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Order is a customer order placed against a tenant. OrderNumber stays nil
// until a number has been assigned and never changes afterwards.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID            string          `bun:"id,pk" json:"id"`
	TenantID      string          `bun:"tenant_id,notnull" json:"tenant_id"`
	OrderNumber   *int64          `bun:"order_number" json:"order_number"`
	TotalAmount   decimal.Decimal `bun:"total_amount,type:numeric(12,2),notnull" json:"total_amount"`
	PaymentMethod string          `bun:"payment_method,notnull" json:"payment_method"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`

	Items []OrderItem `bun:"rel:has-many,join:id=order_id" json:"items,omitempty"`
}

// OrderItem is a single cart line persisted with its order. Items are written
// once and never updated.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID        int64           `bun:",pk,autoincrement" json:"id"`
	OrderID   string          `bun:"order_id,notnull" json:"order_id"`
	DishID    *string         `bun:"dish_id" json:"dish_id,omitempty"`
	DishName  string          `bun:"dish_name,notnull" json:"dish_name"`
	UnitPrice decimal.Decimal `bun:"price,type:numeric(12,2),notnull" json:"price"`
	Quantity  int             `bun:"quantity,notnull" json:"quantity"`
}

// Subtotal is the line amount.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
