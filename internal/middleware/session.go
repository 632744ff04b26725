package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/university-events/internal/service"
	"github.com/iliyamo/university-events/internal/session"
)

// SessionCookie is the name of the cookie carrying the signed session id.
const SessionCookie = "session"

// Context keys set by LoadSession.
const (
	ctxSession = "session"
	ctxUserID  = "user_id"
	ctxRole    = "role"
)

// SessionResolver turns a cookie value into the live session behind it.
type SessionResolver interface {
	Resolve(ctx context.Context, raw string) (session.Session, error)
}

// LoadSession looks up the session named by the cookie, if any, and puts
// it in the context.  Requests without a valid session pass through
// untouched; RequireLogin decides whether that is acceptable.
func LoadSession(resolver SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(SessionCookie)
			if err != nil || ck.Value == "" {
				return next(c)
			}
			sess, err := resolver.Resolve(c.Request().Context(), ck.Value)
			if errors.Is(err, session.ErrNotFound) {
				return next(c)
			}
			if err != nil {
				logrus.WithError(err).Error("session lookup failed")
				return c.JSON(http.StatusInternalServerError, echo.Map{"errors": service.MessagesOf(err)})
			}
			c.Set(ctxSession, sess)
			if sess.Authenticated() {
				c.Set(ctxUserID, sess.UserID)
				c.Set(ctxRole, sess.Role)
			}
			return next(c)
		}
	}
}

// RequireLogin rejects requests that carry no logged-in session.
func RequireLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if sess, ok := CurrentSession(c); !ok || !sess.Authenticated() {
				return c.JSON(http.StatusUnauthorized, echo.Map{"errors": service.ErrLoginRequired.Messages})
			}
			return next(c)
		}
	}
}

// CurrentSession returns the session LoadSession stored, if any.
func CurrentSession(c echo.Context) (session.Session, bool) {
	sess, ok := c.Get(ctxSession).(session.Session)
	return sess, ok
}

// SetSession replaces the session in the context, for handlers that start
// or rotate one mid-request.
func SetSession(c echo.Context, sess session.Session) {
	c.Set(ctxSession, sess)
}

// userID returns the logged-in user id as a string, or "anon".
func userID(c echo.Context) string {
	if id, ok := c.Get(ctxUserID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
