package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/menumate/internal/entity"
)

// OrderPlacedEvent is published after a submission is delivered.
type OrderPlacedEvent struct {
	OrderID       string            `json:"order_id"`
	TenantID      string            `json:"tenant_id"`
	OrderNumber   int64             `json:"order_number"`
	DisplayNumber string            `json:"display_number"`
	Confidence    entity.Confidence `json:"confidence"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	PaymentMethod string            `json:"payment_method"`
	CreatedAt     time.Time         `json:"created_at"`
}

func newOrderPlacedEvent(r entity.Receipt) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:       r.OrderID,
		TenantID:      r.TenantID,
		OrderNumber:   r.OrderNumber,
		DisplayNumber: r.DisplayOrderNumber,
		Confidence:    r.Confidence,
		TotalAmount:   r.TotalAmount,
		PaymentMethod: r.PaymentMethod,
		CreatedAt:     r.CreatedAt,
	}
}
