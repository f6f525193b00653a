package session

import (
	"net/http"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v4"

	"github.com/Additional-Code/menumate/internal/config"
)

const contextKey = "session.id"

// Middleware resolves the session id from the configured header or cookie,
// issuing a new one when the request carries none, and echoes it back on the
// response.
func Middleware(cfg config.Session) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := c.Request().Header.Get(cfg.Header)
			if sid == "" {
				if cookie, err := c.Cookie(cfg.CookieName); err == nil {
					sid = cookie.Value
				}
			}
			if _, err := uuid.Parse(sid); err != nil {
				sid = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     cfg.CookieName,
					Value:    sid,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			c.Response().Header().Set(cfg.Header, sid)
			c.Set(contextKey, sid)
			return next(c)
		}
	}
}

// ID returns the session id resolved by Middleware, or "" outside it.
func ID(c echo.Context) string {
	sid, _ := c.Get(contextKey).(string)
	return sid
}
