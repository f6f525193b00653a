package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/menumate/pkg/errorbank"
)

// Warning is a non-fatal problem reported next to a successful payload.
type Warning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Builder renders the envelope shared by the cart, order and tenant
// endpoints: {success, data, meta} on success and {success, error, meta} on
// failure.
type Builder struct {
	ctx      echo.Context
	status   int
	data     any
	err      error
	meta     map[string]any
	warnings []Warning
}

func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus ignores non-positive codes. On the error path a code below 400
// gives way to the status of the error kind.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

// WithError switches the response to the error envelope. Errors that are not
// already errorbank errors render as internal.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// WithMeta sets meta[key], e.g. the receipt count or has_orders of a session.
func (b *Builder) WithMeta(key string, value any) *Builder {
	if key == "" {
		return b
	}
	if b.meta == nil {
		b.meta = make(map[string]any)
	}
	b.meta[key] = value
	return b
}

// WithWarning keeps the response successful but lists the problem under
// meta.warnings, as for an order placed with some of its items missing.
func (b *Builder) WithWarning(kind, message string) *Builder {
	b.warnings = append(b.warnings, Warning{Kind: kind, Message: message})
	return b
}

// Build writes the response. The request id set by the server middleware is
// echoed as meta.request_id so a receipt can be traced back to its logs.
func (b *Builder) Build() error {
	if rid := b.ctx.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
		b.WithMeta("request_id", rid)
	}
	if b.err != nil {
		return b.buildError()
	}
	if len(b.warnings) > 0 {
		b.WithMeta("warnings", b.warnings)
	}
	return b.ctx.JSON(b.status, struct {
		Success bool           `json:"success"`
		Data    any            `json:"data,omitempty"`
		Meta    map[string]any `json:"meta,omitempty"`
	}{true, b.data, b.meta})
}

type errorBody struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (b *Builder) buildError() error {
	appErr := errorbank.From(b.err)
	status := b.status
	if status < 400 {
		status = appErr.StatusCode()
	}
	return b.ctx.JSON(status, struct {
		Success bool           `json:"success"`
		Error   errorBody      `json:"error"`
		Meta    map[string]any `json:"meta,omitempty"`
	}{
		Error: errorBody{
			Kind:    string(appErr.Kind()),
			Message: appErr.Message(),
			Details: appErr.Details(),
		},
		Meta: b.meta,
	})
}
