package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Additional-Code/menumate/internal/entity"
)

func TestWriteOrders(t *testing.T) {
	t.Parallel()

	n := int64(3)
	orders := []entity.Order{
		{
			ID:            "o-3",
			OrderNumber:   &n,
			TotalAmount:   decimal.NewFromInt(280),
			PaymentMethod: "upi",
			CreatedAt:     time.Date(2026, 10, 1, 12, 30, 0, 0, time.UTC),
			Items: []entity.OrderItem{
				{DishName: "Masala Dosa", Quantity: 2, UnitPrice: decimal.NewFromInt(120)},
				{DishName: "Filter Coffee", Quantity: 1, UnitPrice: decimal.NewFromInt(40)},
			},
		},
		{
			ID:            "o-x",
			TotalAmount:   decimal.NewFromInt(50),
			PaymentMethod: "cash",
			CreatedAt:     time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteOrders(&buf, orders))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(Sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Order #", "Created", "Payment", "Items", "Total"}, rows[0])
	assert.Equal(t, []string{"03", "2026-10-01 12:30", "UPI", "2x Masala Dosa, 1x Filter Coffee", "280.00"}, rows[1])
	assert.Equal(t, "N/A", rows[2][0])
	assert.Equal(t, "Pay at Counter", rows[2][2])
}
