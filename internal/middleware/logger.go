package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Logger writes one structured line per request once the handler has
// finished.
func Logger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			entry := logrus.WithFields(logrus.Fields{
				"method":     c.Request().Method,
				"path":       c.Request().URL.Path,
				"status":     status,
				"duration":   time.Since(start),
				"client_ip":  c.RealIP(),
				"user_id":    userID(c),
				"user_agent": c.Request().UserAgent(),
			})
			if status >= 500 {
				entry.Error("Request failed")
			} else {
				entry.Info("Request processed")
			}
			return nil
		}
	}
}
