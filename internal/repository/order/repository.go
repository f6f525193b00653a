package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/menumate/internal/backend"
	"github.com/Additional-Code/menumate/internal/database"
	"github.com/Additional-Code/menumate/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/menumate/repository/order")

var _ backend.Gateway = (*Repository)(nil)

// Repository is the SQL implementation of backend.Gateway.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// CreateOrderAtomic calls the insert_order function installed by the
// postgres migrations. Other dialects have no such function.
func (r *Repository) CreateOrderAtomic(ctx context.Context, order backend.NewOrder) (backend.AtomicResult, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CreateOrderAtomic", trace.WithAttributes(attribute.String("tenant.id", order.TenantID)))
	defer span.End()

	if r.writer.Dialect().Name() != dialect.PG {
		span.SetStatus(codes.Error, "unsupported dialect")
		return backend.AtomicResult{}, fmt.Errorf("insert_order on %s: %w", r.writer.Dialect().Name(), backend.ErrUnsupported)
	}

	var raw sql.NullString
	var number sql.NullInt64
	if order.OrderNumber != nil {
		number = sql.NullInt64{Int64: *order.OrderNumber, Valid: true}
	}
	err := r.writer.NewRaw("SELECT insert_order(?, ?, ?, ?::bigint)::text",
		order.TenantID, order.TotalAmount, order.PaymentMethod, number).
		Scan(ctx, &raw)
	if err != nil {
		return backend.AtomicResult{}, fail(span, "insert_order failed", classify(err))
	}

	res, err := backend.DecodeAtomicResult([]byte(raw.String))
	if err != nil {
		return backend.AtomicResult{}, fail(span, "decode failed", err)
	}
	span.SetAttributes(attribute.String("order.id", res.OrderID()), attribute.String("result.shape", res.Shape().String()))
	return res, nil
}

// CreateOrder inserts an order row without a number.
func (r *Repository) CreateOrder(ctx context.Context, order backend.NewOrder) (string, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CreateOrder", trace.WithAttributes(attribute.String("tenant.id", order.TenantID)))
	defer span.End()

	row := &entity.Order{
		ID:            uuid.NewString(),
		TenantID:      order.TenantID,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := r.writer.NewInsert().Model(row).Exec(ctx); err != nil {
		return "", fail(span, "insert failed", classify(err))
	}
	return row.ID, nil
}

// CreateOrderItem inserts a single order line.
func (r *Repository) CreateOrderItem(ctx context.Context, item entity.OrderItem) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CreateOrderItem", trace.WithAttributes(attribute.String("order.id", item.OrderID)))
	defer span.End()

	if _, err := r.writer.NewInsert().Model(&item).Exec(ctx); err != nil {
		return fail(span, "insert failed", classify(err))
	}
	return nil
}

// ReadMaxOrderNumber reads the aggregate with its driver type intact. Integer
// columns yield an integer; only values actually stored as text, as older
// deployments did with "ORD-1012" codes, are treated as legacy text.
func (r *Repository) ReadMaxOrderNumber(ctx context.Context, tenantID string) (backend.RawNumber, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ReadMaxOrderNumber", trace.WithAttributes(attribute.String("tenant.id", tenantID)))
	defer span.End()

	var highest any
	err := r.writer.QueryRowContext(ctx, "SELECT MAX(order_number) FROM orders WHERE tenant_id = ?", tenantID).
		Scan(&highest)
	if errors.Is(err, sql.ErrNoRows) {
		return backend.NullNumber(), nil
	}
	if err != nil {
		return backend.NullNumber(), fail(span, "select failed", classify(err))
	}
	return r.rawNumber(highest), nil
}

func (r *Repository) rawNumber(v any) backend.RawNumber {
	switch n := v.(type) {
	case nil:
		return backend.NullNumber()
	case int64:
		return backend.IntNumber(n)
	case int32:
		return backend.IntNumber(int64(n))
	case float64:
		return backend.IntNumber(int64(n))
	case []byte:
		return r.textNumber(string(n))
	case string:
		return r.textNumber(n)
	default:
		return backend.TextNumber(fmt.Sprint(n))
	}
}

// textNumber handles aggregates that arrive as text. MySQL's text protocol
// reports BIGINT aggregates as digits, so plain integers from it are native.
func (r *Repository) textNumber(s string) backend.RawNumber {
	if r.writer.Dialect().Name() == dialect.MySQL {
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return backend.IntNumber(n)
		}
	}
	return backend.TextNumber(s)
}

// ReadOrderNumber reads from the writer so a replica never hides a number
// that was just assigned.
func (r *Repository) ReadOrderNumber(ctx context.Context, orderID string) (*int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ReadOrderNumber", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	var number sql.NullInt64
	err := r.writer.NewSelect().
		Model((*entity.Order)(nil)).
		Column("o.order_number").
		Where("o.id = ?", orderID).
		Scan(ctx, &number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fail(span, "select failed", classify(err))
	}
	if !number.Valid {
		return nil, nil
	}
	n := number.Int64
	return &n, nil
}

// UpdateOrderNumber only touches rows whose number is still unset.
func (r *Repository) UpdateOrderNumber(ctx context.Context, orderID string, number int64) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateOrderNumber", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.Int64("order.number", number),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("order_number = ?", number).
		Where("id = ?", orderID).
		Where("order_number IS NULL").
		Exec(ctx)
	if err != nil {
		return fail(span, "update failed", classify(err))
	}
	if affected, err := res.RowsAffected(); err == nil {
		span.SetAttributes(attribute.Int64("rows.affected", affected))
	}
	return nil
}

// GetOrder loads an order and its items.
func (r *Repository) GetOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetOrder", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().
		Model(order).
		Relation("Items").
		Where("o.id = ?", orderID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, fmt.Errorf("order %s: %w", orderID, backend.ErrNotFound)
	}
	if err != nil {
		return nil, fail(span, "select failed", classify(err))
	}
	return order, nil
}

// ListOrders returns the tenant's orders newest first.
func (r *Repository) ListOrders(ctx context.Context, tenantID string, limit int) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListOrders", trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.Int("limit", limit),
	))
	defer span.End()

	orders := make([]entity.Order, 0)
	q := r.reader.NewSelect().
		Model(&orders).
		Relation("Items").
		Where("o.tenant_id = ?", tenantID).
		Order("o.created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fail(span, "select failed", classify(err))
	}
	return orders, nil
}

// Ping checks the writer connection.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.writer.PingContext(ctx); err != nil {
		return classify(err)
	}
	return nil
}

func fail(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return err
}
