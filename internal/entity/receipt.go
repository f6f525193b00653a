package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Confidence tags how an order number was obtained.
type Confidence string

const (
	// Confirmed numbers were read back from, or returned by, the backend.
	Confirmed Confidence = "confirmed"
	// Assumed numbers were computed locally and could not be read back.
	Assumed Confidence = "assumed"
)

// Receipt is what a customer keeps after submitting an order.
type Receipt struct {
	OrderID            string          `json:"order_id"`
	TenantID           string          `json:"tenant_id"`
	OrderNumber        int64           `json:"order_number"`
	DisplayOrderNumber string          `json:"display_order_number"`
	Confidence         Confidence      `json:"confidence"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	PaymentMethod      string          `json:"payment_method"`
	CreatedAt          time.Time       `json:"created_at"`
	Items              []OrderItem     `json:"items"`
	ItemsPersisted     bool            `json:"items_persisted"`
}

// FormatOrderNumber renders n zero-padded to at least two digits: 1 → "01",
// 12 → "12", 100 → "100".
func FormatOrderNumber(n int64) string {
	return fmt.Sprintf("%02d", n)
}

// DisplayNumber formats an optional order number, using "N/A" while the
// number is unassigned.
func DisplayNumber(n *int64) string {
	if n == nil {
		return "N/A"
	}
	return FormatOrderNumber(*n)
}
