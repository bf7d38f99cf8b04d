package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ConsoleKeyHeader carries the shared operator key when AUTH_MODE=api_key.
const ConsoleKeyHeader = "X-Console-Key"

type Mode string

const (
	ModeNone   Mode = "none"
	ModeAPIKey Mode = "api_key"
)

func ParseAuthMode(s string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "", ModeNone:
		return ModeNone, nil
	case ModeAPIKey:
		return mode, nil
	default:
		return "", errors.New("invalid auth mode")
	}
}

// AuthMiddleware gates the console surface itself. It never inspects the
// backend token; that stays the backend's job.
func AuthMiddleware(mode Mode, apiKey string) (echo.MiddlewareFunc, error) {
	if mode == ModeAPIKey && apiKey == "" {
		return nil, errors.New("console api key is required when AUTH_MODE=api_key")
	}
	want := []byte(apiKey)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch mode {
			case ModeNone:
				return next(c)
			case ModeAPIKey:
				got := []byte(c.Request().Header.Get(ConsoleKeyHeader))
				if subtle.ConstantTimeCompare(got, want) != 1 {
					return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid console key")
				}
				return next(c)
			default:
				return echo.NewHTTPError(http.StatusInternalServerError, "invalid auth mode")
			}
		}
	}, nil
}
