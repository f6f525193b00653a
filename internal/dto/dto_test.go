package dto

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/menumate/internal/entity"
	"github.com/Additional-Code/menumate/internal/session"
)

func TestPaymentLabel(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"qr":     "Card",
		"card":   "Card",
		"UPI":    "UPI",
		"cash":   "Pay at Counter",
		"cheque": "cheque",
	}
	for in, want := range cases {
		assert.Equal(t, want, PaymentLabel(in), in)
	}
}

func TestFromOrderWithoutNumber(t *testing.T) {
	t.Parallel()

	resp := FromOrder(entity.Order{
		ID:            "o-1",
		TotalAmount:   decimal.RequireFromString("280"),
		PaymentMethod: "cash",
		Items: []entity.OrderItem{
			{DishName: "Masala Dosa", UnitPrice: decimal.NewFromInt(120), Quantity: 2},
		},
	})

	assert.Equal(t, "N/A", resp.DisplayNumber)
	assert.Equal(t, "280.00", resp.TotalAmount)
	assert.Equal(t, "Pay at Counter", resp.PaymentLabel)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "240.00", resp.Items[0].Subtotal)
}

func TestFromCart(t *testing.T) {
	t.Parallel()

	cart := session.Cart{
		"b": session.NewLine("b", nil, "Coffee", "₹40", 2),
		"a": session.NewLine("a", nil, "Dosa", 120.5, 1),
	}
	resp := FromCart(cart)

	require.Len(t, resp.Lines, 2)
	assert.Equal(t, "a", resp.Lines[0].Key)
	assert.Equal(t, "200.50", resp.Total)
	assert.Equal(t, 3, resp.Count)
}
