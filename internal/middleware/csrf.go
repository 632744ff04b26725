package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/university-events/internal/service"
	"github.com/iliyamo/university-events/internal/session"
)

// CSRFHeader and CSRFField are where a client may present its token.
const (
	CSRFHeader = "X-CSRF-Token"
	CSRFField  = "csrf_token"
)

// CSRFVerifier checks a presented token against the session's.
type CSRFVerifier interface {
	VerifyCSRF(sess session.Session, presented string) error
}

// RequireCSRF rejects unsafe requests whose token does not match the
// session's before the handler runs, so nothing is written.  A request
// with no session at all has no token to match and is rejected too.
func RequireCSRF(v CSRFVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}
			presented := c.Request().Header.Get(CSRFHeader)
			if presented == "" {
				presented = c.FormValue(CSRFField)
			}
			sess, _ := CurrentSession(c)
			if err := v.VerifyCSRF(sess, presented); err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{"errors": service.ErrInvalidCSRF.Messages})
			}
			return next(c)
		}
	}
}
