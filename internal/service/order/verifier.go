package order

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/menumate/internal/backend"
	"github.com/Additional-Code/menumate/internal/config"
	"github.com/Additional-Code/menumate/internal/entity"
	"github.com/Additional-Code/menumate/internal/retry"
)

var errNumberNotVisible = errors.New("order number not visible")

// VerifiedOutcome is the number a submission reports after reconciliation.
type VerifiedOutcome struct {
	Number     int64
	Confidence entity.Confidence
	Attempts   int
}

// Verifier re-reads an order's stored number within a bounded budget.
type Verifier struct {
	gateway backend.Gateway
	policy  retry.Policy
	logger  *zap.Logger
}

// NewVerifier builds a verifier using the verification read policy.
func NewVerifier(gateway backend.Gateway, cfg config.Config, logger *zap.Logger) *Verifier {
	return &Verifier{
		gateway: gateway,
		policy:  retry.FromConfig(cfg.Ordering.VerificationRead),
		logger:  logger,
	}
}

// Verify never fails: a stored number is Confirmed, and when none can be
// read the expected number is returned as Assumed.
func (v *Verifier) Verify(ctx context.Context, orderID string, expected int64) VerifiedOutcome {
	ctx, span := serviceTracer.Start(ctx, "OrderVerifier.Verify", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.Int64("order.expected_number", expected),
	))
	defer span.End()

	attempts := 0
	var stored *int64
	err := v.policy.Do(ctx, func(ctx context.Context) error {
		attempts++
		n, err := v.gateway.ReadOrderNumber(ctx, orderID)
		if err != nil {
			return retry.Retryable(err)
		}
		if n == nil {
			return retry.Retryable(errNumberNotVisible)
		}
		stored = n
		return nil
	})
	span.SetAttributes(attribute.Int("verify.attempts", attempts))

	if stored == nil {
		v.logger.Debug("order number not verified", zap.String("order", orderID), zap.Int("attempts", attempts), zap.Error(err))
		return VerifiedOutcome{Number: expected, Confidence: entity.Assumed, Attempts: attempts}
	}
	if *stored != expected {
		v.logger.Warn("stored order number differs from allocation",
			zap.String("order", orderID),
			zap.Int64("expected", expected),
			zap.Int64("stored", *stored),
		)
	}
	return VerifiedOutcome{Number: *stored, Confidence: entity.Confirmed, Attempts: attempts}
}
