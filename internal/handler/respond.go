package handler // package handler contains the HTTP handlers of the JSON API

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/university-events/internal/service"
)

// dbTimeout bounds the storage work done for a single request.
const dbTimeout = 5 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// statusFor maps a service error kind to the HTTP status it is served with.
func statusFor(k service.Kind) int {
	switch k {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindUnauthenticated:
		return http.StatusUnauthorized
	case service.KindForbidden, service.KindInvalidCSRF:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict, service.KindSoldOut:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail renders err as {"errors": [...]}.  Storage failures are logged
// with their cause; the client only sees the generic message.
func fail(c echo.Context, err error) error {
	kind := service.KindOf(err)
	if kind == service.KindStorage {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}).Error("request failed")
	}
	return c.JSON(statusFor(kind), echo.Map{"errors": service.MessagesOf(err)})
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"errors": []string{"Invalid request body."}})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func badID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"errors": []string{"Invalid id."}})
}
