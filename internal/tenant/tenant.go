// Package tenant resolves which restaurant a request is ordering from.
package tenant

import (
	"strings"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/menumate/internal/session"
	"github.com/Additional-Code/menumate/pkg/errorbank"
)

// Header carries the tenant id for API clients.
const Header = "X-Tenant-ID"

const maxIDLength = 128

// ErrMissing is returned when no tenant can be resolved.
var ErrMissing = errorbank.BadRequest("restaurant information not found")

// Module provides the resolver to Fx.
var Module = fx.Provide(NewResolver)

// Resolver finds the tenant for a request: the admin_id (or tenant_id) query
// parameter, then the X-Tenant-ID header, then the value remembered for the
// session. A tenant found on the request is remembered for the session.
type Resolver struct {
	sessions *session.Store
	logger   *zap.Logger
}

// NewResolver builds a resolver over the session store.
func NewResolver(sessions *session.Store, logger *zap.Logger) *Resolver {
	return &Resolver{sessions: sessions, logger: logger}
}

// Resolve returns the tenant id for the request.
func (r *Resolver) Resolve(c echo.Context) (string, error) {
	ctx := c.Request().Context()
	sid := session.ID(c)

	if id := fromRequest(c); id != "" {
		if len(id) > maxIDLength {
			return "", errorbank.BadRequest("invalid restaurant id")
		}
		if sid != "" {
			if err := r.sessions.SetTenant(ctx, sid, id); err != nil {
				r.logger.Warn("persist session tenant failed", zap.String("tenant", id), zap.Error(err))
			}
		}
		return id, nil
	}

	if sid == "" {
		return "", ErrMissing
	}
	id, err := r.sessions.Tenant(ctx, sid)
	if err != nil {
		return "", errorbank.Unavailable("session store unavailable", errorbank.WithCause(err))
	}
	if id == "" {
		return "", ErrMissing
	}
	return id, nil
}

func fromRequest(c echo.Context) string {
	for _, v := range []string{
		c.QueryParam("admin_id"),
		c.QueryParam("tenant_id"),
		c.Request().Header.Get(Header),
	} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
