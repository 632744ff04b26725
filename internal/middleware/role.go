package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/university-events/internal/model"
	"github.com/iliyamo/university-events/internal/policy"
	"github.com/iliyamo/university-events/internal/service"
)

// Authorize returns a middleware that lets the request through only when
// the logged-in user's role may perform action.  It must run after
// LoadSession; a request without a role is treated like any other role
// that is not allowed.
func Authorize(action policy.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(ctxRole).(model.Role)
			if !policy.IsAllowed(role, action) {
				return c.JSON(http.StatusForbidden, echo.Map{"errors": service.ErrForbidden.Messages})
			}
			return next(c)
		}
	}
}

// CurrentRole returns the logged-in user's role, or "" when anonymous.
func CurrentRole(c echo.Context) model.Role {
	role, _ := c.Get(ctxRole).(model.Role)
	return role
}

// CurrentUserID returns the logged-in user's id, or 0 when anonymous.
func CurrentUserID(c echo.Context) uint64 {
	id, _ := c.Get(ctxUserID).(uint64)
	return id
}
