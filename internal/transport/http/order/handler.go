package order

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/menumate/internal/dto"
	"github.com/Additional-Code/menumate/internal/export"
	"github.com/Additional-Code/menumate/internal/presentation/http/response"
	service "github.com/Additional-Code/menumate/internal/service/order"
	"github.com/Additional-Code/menumate/internal/session"
	"github.com/Additional-Code/menumate/internal/tenant"
	"github.com/Additional-Code/menumate/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/menumate/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc     *service.Service
	tenants *tenant.Resolver
	logger  *zap.Logger
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service, tenants *tenant.Resolver, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, tenants: tenants, logger: logger}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.POST("", h.submit)
	g.GET("/mine", h.mine)
	g.GET("/mine/latest", h.latest)
	g.GET("/:id", h.getByID)

	e.GET("/tenants/:tenant/orders", h.listForTenant)
}

func (h *Handler) submit(c echo.Context) error {
	b := response.New(c)

	var payload dto.SubmitRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.PaymentMethod == "" {
		return b.WithError(errorbank.BadRequest("payment_method is required")).Build()
	}

	tenantID, err := h.tenants.Resolve(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.submit", trace.WithAttributes(attribute.String("tenant.id", tenantID)))
	defer span.End()

	receipt, err := h.svc.Submit(ctx, service.Submission{
		SessionID:     session.ID(c),
		TenantID:      tenantID,
		PaymentMethod: payload.PaymentMethod,
	})
	if err != nil && !errors.Is(err, service.ErrItemsPartiallyPersisted) {
		return b.WithError(toAppError(err)).Build()
	}
	if err != nil {
		h.logger.Warn("order placed with missing items", zap.String("order", receipt.OrderID), zap.Error(err))
		var subErr *service.SubmissionError
		if errors.As(err, &subErr) {
			b.WithWarning(string(subErr.Kind),
				fmt.Sprintf("%d of %d items could not be saved", subErr.FailedItems, len(receipt.Items)))
		}
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.FromReceipt(receipt)).Build()
}

func (h *Handler) mine(c echo.Context) error {
	b := response.New(c)

	ctx, sid := c.Request().Context(), session.ID(c)
	receipts, err := h.svc.Mine(ctx, sid)
	if err != nil {
		return b.WithError(err).Build()
	}
	has, err := h.svc.HasOrders(ctx, sid)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromReceipts(receipts)).
		WithMeta("count", len(receipts)).
		WithMeta("has_orders", has).
		Build()
}

func (h *Handler) latest(c echo.Context) error {
	b := response.New(c)

	receipt, err := h.svc.Latest(c.Request().Context(), session.ID(c))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromReceipt(receipt)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id := c.Param("id")
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrder(*order)).Build()
}

func (h *Handler) listForTenant(c echo.Context) error {
	b := response.New(c)

	tenantID := c.Param("tenant")
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.listForTenant", trace.WithAttributes(attribute.String("tenant.id", tenantID)))
	defer span.End()

	orders, err := h.svc.ListForTenant(ctx, tenantID)
	if err != nil {
		return b.WithError(err).Build()
	}

	if c.QueryParam("format") == "xlsx" {
		res := c.Response()
		res.Header().Set(echo.HeaderContentType, export.ContentType)
		res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", tenantID+"-orders.xlsx"))
		res.WriteHeader(http.StatusOK)
		return export.WriteOrders(res, orders)
	}

	return b.WithData(dto.FromOrders(orders)).WithMeta("count", len(orders)).Build()
}
