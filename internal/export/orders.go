// Package export renders a tenant's order summary as a spreadsheet.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Additional-Code/menumate/internal/dto"
	"github.com/Additional-Code/menumate/internal/entity"
)

// Sheet is the name of the worksheet holding the summary.
const Sheet = "Orders"

// ContentType is the MIME type of the written workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []any{"Order #", "Created", "Payment", "Items", "Total"}

// WriteOrders writes one row per order, in the order given.
func WriteOrders(w io.Writer, orders []entity.Order) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", Sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(Sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, o := range orders {
		resp := dto.FromOrder(o)
		row := []any{
			resp.DisplayNumber,
			o.CreatedAt.Format("2006-01-02 15:04"),
			resp.PaymentLabel,
			itemSummary(o.Items),
			resp.TotalAmount,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(Sheet, cell, &row); err != nil {
			return fmt.Errorf("write order %s: %w", o.ID, err)
		}
	}

	return f.Write(w)
}

func itemSummary(items []entity.OrderItem) string {
	var out string
	for i, it := range items {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%dx %s", it.Quantity, it.DishName)
	}
	return out
}
