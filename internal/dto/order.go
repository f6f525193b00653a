package dto

import (
	"strings"
	"time"

	"github.com/Additional-Code/menumate/internal/entity"
)

// ItemResponse is an order line as exposed via transport layers.
type ItemResponse struct {
	DishID   *string `json:"dish_id,omitempty"`
	Name     string  `json:"name"`
	Price    string  `json:"price"`
	Quantity int     `json:"quantity"`
	Subtotal string  `json:"subtotal"`
}

// ReceiptResponse is what a customer sees after placing an order.
type ReceiptResponse struct {
	OrderID            string         `json:"order_id"`
	OrderNumber        int64          `json:"order_number"`
	DisplayOrderNumber string         `json:"display_order_number"`
	Confidence         string         `json:"confidence"`
	TotalAmount        string         `json:"total_amount"`
	PaymentMethod      string         `json:"payment_method"`
	PaymentLabel       string         `json:"payment_label"`
	CreatedAt          time.Time      `json:"created_at"`
	Items              []ItemResponse `json:"items"`
}

// OrderResponse is a stored order as exposed to staff.
type OrderResponse struct {
	ID            string         `json:"id"`
	TenantID      string         `json:"tenant_id"`
	OrderNumber   *int64         `json:"order_number"`
	DisplayNumber string         `json:"display_number"`
	TotalAmount   string         `json:"total_amount"`
	PaymentMethod string         `json:"payment_method"`
	PaymentLabel  string         `json:"payment_label"`
	CreatedAt     time.Time      `json:"created_at"`
	Items         []ItemResponse `json:"items"`
}

// PaymentLabel maps a payment method code to the label shown to staff.
func PaymentLabel(method string) string {
	switch strings.ToLower(method) {
	case "qr", "card":
		return "Card"
	case "upi":
		return "UPI"
	case "cash":
		return "Pay at Counter"
	default:
		return method
	}
}

// FromReceipt converts a receipt.
func FromReceipt(r entity.Receipt) ReceiptResponse {
	return ReceiptResponse{
		OrderID:            r.OrderID,
		OrderNumber:        r.OrderNumber,
		DisplayOrderNumber: r.DisplayOrderNumber,
		Confidence:         string(r.Confidence),
		TotalAmount:        r.TotalAmount.StringFixed(2),
		PaymentMethod:      r.PaymentMethod,
		PaymentLabel:       PaymentLabel(r.PaymentMethod),
		CreatedAt:          r.CreatedAt,
		Items:              fromItems(r.Items),
	}
}

// FromReceipts converts a list of receipts, preserving order.
func FromReceipts(receipts []entity.Receipt) []ReceiptResponse {
	out := make([]ReceiptResponse, 0, len(receipts))
	for _, r := range receipts {
		out = append(out, FromReceipt(r))
	}
	return out
}

// FromOrder converts a stored order.
func FromOrder(o entity.Order) OrderResponse {
	return OrderResponse{
		ID:            o.ID,
		TenantID:      o.TenantID,
		OrderNumber:   o.OrderNumber,
		DisplayNumber: entity.DisplayNumber(o.OrderNumber),
		TotalAmount:   o.TotalAmount.StringFixed(2),
		PaymentMethod: o.PaymentMethod,
		PaymentLabel:  PaymentLabel(o.PaymentMethod),
		CreatedAt:     o.CreatedAt,
		Items:         fromItems(o.Items),
	}
}

// FromOrders converts a list of stored orders, preserving order.
func FromOrders(orders []entity.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, FromOrder(o))
	}
	return out
}

func fromItems(items []entity.OrderItem) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, ItemResponse{
			DishID:   it.DishID,
			Name:     it.DishName,
			Price:    it.UnitPrice.StringFixed(2),
			Quantity: it.Quantity,
			Subtotal: it.Subtotal().StringFixed(2),
		})
	}
	return out
}
