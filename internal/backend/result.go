package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ResultShape distinguishes the two return shapes of the atomic create.
type ResultShape int

const (
	// ShapeLegacy results only carry the order id.
	ShapeLegacy ResultShape = iota + 1
	// ShapeWithNumber results carry the id and the assigned order number.
	ShapeWithNumber
)

func (s ResultShape) String() string {
	switch s {
	case ShapeLegacy:
		return "legacy"
	case ShapeWithNumber:
		return "with_number"
	default:
		return "unknown"
	}
}

// AtomicResult is the decoded result of CreateOrderAtomic.
type AtomicResult struct {
	shape   ResultShape
	orderID string
	number  int64
}

// Legacy builds a result that only identifies the created row.
func Legacy(orderID string) AtomicResult {
	return AtomicResult{shape: ShapeLegacy, orderID: orderID}
}

// WithNumber builds a result carrying the assigned order number.
func WithNumber(orderID string, number int64) AtomicResult {
	return AtomicResult{shape: ShapeWithNumber, orderID: orderID, number: number}
}

// Shape reports which form the backend returned.
func (r AtomicResult) Shape() ResultShape { return r.shape }

// OrderID returns the created row's id.
func (r AtomicResult) OrderID() string { return r.orderID }

// Number returns the assigned number when the backend supplied one.
func (r AtomicResult) Number() (int64, bool) {
	return r.number, r.shape == ShapeWithNumber
}

// ErrMalformedResult is returned when an atomic create result cannot be decoded.
var ErrMalformedResult = errors.New("backend: malformed atomic result")

type atomicPayload struct {
	OrderID     string          `json:"order_id"`
	OrderNumber json.RawMessage `json:"order_number"`
}

// DecodeAtomicResult decodes the raw value returned by the insert_order
// procedure. Current versions return {"order_id": ..., "order_number": ...};
// older ones return the id alone, either as text or as a JSON string.
func DecodeAtomicResult(raw []byte) (AtomicResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return AtomicResult{}, ErrMalformedResult
	}

	switch trimmed[0] {
	case '{':
		var payload atomicPayload
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return AtomicResult{}, fmt.Errorf("%w: %v", ErrMalformedResult, err)
		}
		if payload.OrderID == "" {
			return AtomicResult{}, fmt.Errorf("%w: missing order_id", ErrMalformedResult)
		}
		number := decodeJSONNumber(payload.OrderNumber)
		if number.IsNull() {
			return Legacy(payload.OrderID), nil
		}
		n, ok := number.Int()
		if !ok {
			return Legacy(payload.OrderID), nil
		}
		return WithNumber(payload.OrderID, n), nil
	case '"':
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return AtomicResult{}, fmt.Errorf("%w: %v", ErrMalformedResult, err)
		}
		if id == "" {
			return AtomicResult{}, ErrMalformedResult
		}
		return Legacy(id), nil
	default:
		id := strings.TrimSpace(string(trimmed))
		if strings.ContainsAny(id, "[]{}") {
			return AtomicResult{}, fmt.Errorf("%w: unexpected value %q", ErrMalformedResult, id)
		}
		return Legacy(id), nil
	}
}

func decodeJSONNumber(raw json.RawMessage) RawNumber {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return NullNumber()
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return NullNumber()
		}
		return TextNumber(text)
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return NullNumber()
	}
	return IntNumber(n)
}
