package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"rbac-console/internal/application"
)

// RedirectBody is returned to API callers a guard turned away.
type RedirectBody struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

func RequireAuthenticated(s application.SessionReader) echo.MiddlewareFunc {
	return guard(application.GuardAuthenticated, s)
}

func RequireAdmin(s application.SessionReader) echo.MiddlewareFunc {
	return guard(application.GuardAdmin, s)
}

// RedirectIfAuthenticated keeps logged-in operators off the public pages.
func RedirectIfAuthenticated(s application.SessionReader) echo.MiddlewareFunc {
	return guard(application.GuardPublic, s)
}

// guard answers page requests with 303 See Other. Requests under /api get a
// JSON body instead: 401 when a login is needed, 403 for a wrong role.
func guard(kind application.GuardKind, s application.SessionReader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := application.EvaluateGuard(kind, s)
			if d.State == application.GuardAuthorized {
				return next(c)
			}
			if !strings.HasPrefix(c.Request().URL.Path, "/api/") {
				return c.Redirect(http.StatusSeeOther, d.Route)
			}
			status, msg := http.StatusForbidden, "insufficient role"
			if d.Route == application.RouteSignIn {
				status, msg = http.StatusUnauthorized, "authentication required"
			}
			return c.JSON(status, RedirectBody{Error: msg, Redirect: d.Route})
		}
	}
}
