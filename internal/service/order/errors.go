package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/Additional-Code/menumate/internal/backend"
)

// AllocationFailure classifies why an order row could not be created.
type AllocationFailure string

const (
	FailurePermissionDenied   AllocationFailure = "permission_denied"
	FailureBackendUnavailable AllocationFailure = "backend_unavailable"
	FailureTimeout            AllocationFailure = "timeout"
)

// AllocationStep names the allocator step that failed.
type AllocationStep string

const (
	// StepAtomic is the server-side create-and-number call, fatal only when
	// the fallback path is disabled.
	StepAtomic AllocationStep = "atomic"
	// StepCreateRow is the fallback's plain row insert.
	StepCreateRow AllocationStep = "create_row"
)

// AllocationError is returned when no order row exists after allocation.
type AllocationError struct {
	Kind AllocationFailure
	Step AllocationStep
	Err  error
}

func newAllocationError(step AllocationStep, err error) *AllocationError {
	kind := FailureBackendUnavailable
	switch {
	case errors.Is(err, backend.ErrPermissionDenied):
		kind = FailurePermissionDenied
	case errors.Is(err, backend.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		kind = FailureTimeout
	}
	return &AllocationError{Kind: kind, Step: step, Err: err}
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate order number (%s, %s): %v", e.Step, e.Kind, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// SubmissionFailure classifies a failed or degraded submission.
type SubmissionFailure string

const (
	KindEmptyCart               SubmissionFailure = "empty_cart"
	KindAllocationFailed        SubmissionFailure = "allocation_failed"
	KindOrderRowPersistFailed   SubmissionFailure = "order_row_persist_failed"
	KindItemsPartiallyPersisted SubmissionFailure = "items_partially_persisted"
)

// SubmissionError reports a submission outcome other than clean success.
// For KindItemsPartiallyPersisted the order exists and OrderID is set.
type SubmissionError struct {
	Kind        SubmissionFailure
	OrderID     string
	FailedItems int
	Err         error
}

// Sentinels for errors.Is; matching compares Kind only.
var (
	ErrEmptyCart               = &SubmissionError{Kind: KindEmptyCart}
	ErrAllocationFailed        = &SubmissionError{Kind: KindAllocationFailed}
	ErrOrderRowPersistFailed   = &SubmissionError{Kind: KindOrderRowPersistFailed}
	ErrItemsPartiallyPersisted = &SubmissionError{Kind: KindItemsPartiallyPersisted}
)

func (e *SubmissionError) Error() string {
	msg := "submit order: " + string(e.Kind)
	if e.OrderID != "" {
		msg += " (order " + e.OrderID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SubmissionError) Unwrap() error { return e.Err }

func (e *SubmissionError) Is(target error) bool {
	t, ok := target.(*SubmissionError)
	return ok && t.Kind == e.Kind
}
