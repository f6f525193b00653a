package session

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// UnknownItem names cart lines submitted without a dish name.
const UnknownItem = "Unknown Item"

// CartLine is one dish in a customer's cart.
type CartLine struct {
	Key       string          `json:"key"`
	DishID    *string         `json:"dish_id,omitempty"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"qty"`
}

// Subtotal is the line amount.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart maps a line key to its line.
type Cart map[string]CartLine

// Lines returns the lines ordered by key.
func (c Cart) Lines() []CartLine {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]CartLine, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, c[k])
	}
	return lines
}

// Total sums the line subtotals, rounded to two decimal places.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c {
		total = total.Add(line.Subtotal())
	}
	return total.Round(2)
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool { return len(c) == 0 }

// NewLine builds a normalised cart line: blank names become UnknownItem,
// quantities below one become one and prices are parsed with ParsePrice.
func NewLine(key string, dishID *string, name string, price any, qty int) CartLine {
	name = strings.TrimSpace(name)
	if name == "" {
		name = UnknownItem
	}
	if qty < 1 {
		qty = 1
	}
	if dishID != nil && strings.TrimSpace(*dishID) == "" {
		dishID = nil
	}
	return CartLine{
		Key:       key,
		DishID:    dishID,
		Name:      name,
		UnitPrice: ParsePrice(price),
		Quantity:  qty,
	}
}

var priceNoise = strings.NewReplacer("₹", "", "$", "", ",", "", " ", "", "Rs.", "", "Rs", "")

// ParsePrice accepts numbers and display strings such as "₹1,200.50".
// Anything unparseable or negative is zero.
func ParsePrice(v any) decimal.Decimal {
	var (
		d   decimal.Decimal
		err error
	)
	switch p := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		d = p
	case float64:
		d = decimal.NewFromFloat(p)
	case float32:
		d = decimal.NewFromFloat32(p)
	case int:
		d = decimal.NewFromInt(int64(p))
	case int64:
		d = decimal.NewFromInt(p)
	case json.Number:
		d, err = decimal.NewFromString(p.String())
	case string:
		d, err = decimal.NewFromString(priceNoise.Replace(strings.TrimSpace(p)))
	default:
		return decimal.Zero
	}
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}
