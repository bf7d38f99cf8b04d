package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"rbac-console/internal/ports"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger logs one line per request. Server errors log at error level,
// client errors at warn.
func RequestLogger(logger ports.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			started := time.Now()
			reqID := c.Request().Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Response().Header().Set(RequestIDHeader, reqID)

			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			ctx := c.Request().Context()
			args := []any{
				"request_id", reqID,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"route_pattern", c.Path(),
				"status", status,
				"duration", time.Since(started).String(),
			}
			switch {
			case status >= 500:
				logger.Error(ctx, "http request", append(args, "error", err)...)
			case status >= 400:
				logger.Warn(ctx, "http request", args...)
			default:
				logger.Info(ctx, "http request", args...)
			}
			return nil
		}
	}
}
