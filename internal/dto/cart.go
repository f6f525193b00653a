package dto

import "github.com/Additional-Code/menumate/internal/session"

// CartLineRequest is the body of PUT /cart/items/:key. Price may be a
// number or a formatted string such as "₹1,200.00".
type CartLineRequest struct {
	DishID   *string `json:"dish_id"`
	Name     string  `json:"name"`
	Price    any     `json:"price"`
	Quantity int     `json:"qty"`
}

// CartLineResponse is one line of the session cart.
type CartLineResponse struct {
	Key       string  `json:"key"`
	DishID    *string `json:"dish_id,omitempty"`
	Name      string  `json:"name"`
	UnitPrice string  `json:"price"`
	Quantity  int     `json:"qty"`
	Subtotal  string  `json:"subtotal"`
}

// CartResponse is the session cart with its total.
type CartResponse struct {
	Lines []CartLineResponse `json:"lines"`
	Total string             `json:"total"`
	Count int                `json:"count"`
}

// FromCart converts a cart, with lines sorted by key.
func FromCart(cart session.Cart) CartResponse {
	lines := cart.Lines()
	out := CartResponse{
		Lines: make([]CartLineResponse, 0, len(lines)),
		Total: cart.Total().StringFixed(2),
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, CartLineResponse{
			Key:       l.Key,
			DishID:    l.DishID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal().StringFixed(2),
		})
		out.Count += l.Quantity
	}
	return out
}

// SubmitRequest is the body of POST /orders.
type SubmitRequest struct {
	PaymentMethod string `json:"payment_method"`
}
