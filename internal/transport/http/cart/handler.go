// Package cart exposes the session cart over HTTP.
package cart

import (
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/Additional-Code/menumate/internal/dto"
	"github.com/Additional-Code/menumate/internal/presentation/http/response"
	"github.com/Additional-Code/menumate/internal/session"
	"github.com/Additional-Code/menumate/pkg/errorbank"
)

// Module wires HTTP cart handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(func(e *echo.Echo, h *Handler) {
		Register(e, h)
	}),
)

// Handler serves the cart of the calling session.
type Handler struct {
	sessions *session.Store
}

// NewHandler constructs a cart Handler.
func NewHandler(sessions *session.Store) *Handler {
	return &Handler{sessions: sessions}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/cart")
	g.GET("", h.get)
	g.DELETE("", h.clear)
	g.PUT("/items/:key", h.putLine)
	g.DELETE("/items/:key", h.removeLine)
}

func (h *Handler) get(c echo.Context) error {
	b := response.New(c)

	cart, err := h.sessions.Cart(c.Request().Context(), session.ID(c))
	if err != nil {
		return b.WithError(unavailable(err)).Build()
	}
	return b.WithData(dto.FromCart(cart)).Build()
}

func (h *Handler) putLine(c echo.Context) error {
	b := response.New(c)

	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		return b.WithError(errorbank.BadRequest("line key is required")).Build()
	}
	var payload dto.CartLineRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	line := session.NewLine(key, payload.DishID, payload.Name, payload.Price, payload.Quantity)
	cart, err := h.sessions.PutLine(c.Request().Context(), session.ID(c), line)
	if err != nil {
		return b.WithError(unavailable(err)).Build()
	}
	return b.WithData(dto.FromCart(cart)).Build()
}

func (h *Handler) removeLine(c echo.Context) error {
	b := response.New(c)

	cart, err := h.sessions.RemoveLine(c.Request().Context(), session.ID(c), c.Param("key"))
	if err != nil {
		return b.WithError(unavailable(err)).Build()
	}
	return b.WithData(dto.FromCart(cart)).Build()
}

func (h *Handler) clear(c echo.Context) error {
	b := response.New(c)

	if err := h.sessions.ClearCart(c.Request().Context(), session.ID(c)); err != nil {
		return b.WithError(unavailable(err)).Build()
	}
	return b.WithData(dto.FromCart(session.Cart{})).Build()
}

func unavailable(err error) error {
	return errorbank.Unavailable("session store unavailable", errorbank.WithCause(err))
}
