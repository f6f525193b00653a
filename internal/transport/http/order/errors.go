package order

import (
	"errors"

	service "github.com/Additional-Code/menumate/internal/service/order"
	"github.com/Additional-Code/menumate/pkg/errorbank"
)

// toAppError maps submission failures onto transport error kinds.
func toAppError(err error) error {
	var subErr *service.SubmissionError
	if !errors.As(err, &subErr) {
		return err
	}

	switch subErr.Kind {
	case service.KindEmptyCart:
		return errorbank.BadRequest("cart is empty", errorbank.WithCause(err))
	case service.KindAllocationFailed, service.KindOrderRowPersistFailed:
		msg := "could not place the order, please try again"
		var allocErr *service.AllocationError
		if errors.As(err, &allocErr) {
			switch allocErr.Kind {
			case service.FailurePermissionDenied:
				return errorbank.Forbidden(msg, errorbank.WithCause(err), errorbank.WithDetail("reason", string(subErr.Kind)))
			case service.FailureTimeout:
				return errorbank.Timeout(msg, errorbank.WithCause(err), errorbank.WithDetail("reason", string(subErr.Kind)))
			}
		}
		return errorbank.Unavailable(msg, errorbank.WithCause(err), errorbank.WithDetail("reason", string(subErr.Kind)))
	default:
		return errorbank.Internal("order submission failed", errorbank.WithCause(err))
	}
}
