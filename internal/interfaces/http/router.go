package http

import (
	stdhttp "net/http"
	"slices"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	adaptermiddleware "rbac-console/internal/adapters/http/middleware"
	"rbac-console/internal/application"
)

type Middleware struct {
	Auth          echo.MiddlewareFunc
	XRay          echo.MiddlewareFunc
	RequestLogger echo.MiddlewareFunc
	Metrics       echo.MiddlewareFunc
}

type Handlers struct {
	Auth  *AuthHandler
	Apps  *AppsHandler
	Roles *RolesHandler
	Users *UsersHandler
}

func newEcho(m Middleware) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	for _, mw := range []echo.MiddlewareFunc{m.XRay, m.RequestLogger, m.Metrics} {
		if mw != nil {
			e.Use(mw)
		}
	}
	return e
}

// NewRouter builds the console surface. Health and metrics stay outside the
// operator auth; every other route sits behind it and a session guard.
// Guards are attached per route so unknown paths still answer 404.
func NewRouter(h Handlers, sessions application.SessionReader, gatherer prometheus.Gatherer, m Middleware) *echo.Echo {
	e := newEcho(m)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(stdhttp.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	var base []echo.MiddlewareFunc
	if m.Auth != nil {
		base = append(base, m.Auth)
	}
	with := func(guard echo.MiddlewareFunc) []echo.MiddlewareFunc {
		out := slices.Clone(base)
		if guard != nil {
			out = append(out, guard)
		}
		return out
	}
	public := with(adaptermiddleware.RedirectIfAuthenticated(sessions))
	authed := with(adaptermiddleware.RequireAuthenticated(sessions))
	admin := with(adaptermiddleware.RequireAdmin(sessions))
	open := with(nil)

	e.GET("/admin-signin", h.Auth.Page("admin-signin"), public...)
	e.GET("/signup", h.Auth.Page("signup"), public...)
	e.POST("/api/auth/login", h.Auth.Login, public...)
	e.POST("/api/auth/admin/login", h.Auth.AdminLogin, public...)

	e.POST("/api/account/password-reset", h.Users.RequestPasswordReset, open...)
	e.PUT("/api/account/password", h.Users.ChangePassword, open...)
	e.POST("/api/account/verification", h.Users.Verify, open...)
	// Logged-out operators poll this too, to pick up a pending redirect.
	e.GET("/api/session", h.Auth.Session, open...)

	e.GET("/dashboard", h.Auth.Page("dashboard"), authed...)
	e.POST("/api/auth/logout", h.Auth.Logout, authed...)
	e.POST("/api/auth/refresh", h.Auth.Refresh, authed...)
	e.POST("/api/auth/verify", h.Auth.Verify, authed...)

	e.GET("/admin-dashboard", h.Auth.Page("admin-dashboard"), admin...)

	e.GET("/api/admins", h.Apps.ListAdmins, admin...)
	e.GET("/api/admins/:id", h.Apps.GetAdmin, admin...)
	e.POST("/api/admins", h.Apps.CreateAdmin, admin...)
	e.POST("/api/register", h.Apps.Register, admin...)

	e.GET("/api/apps", h.Apps.List, admin...)
	e.POST("/api/apps", h.Apps.Create, admin...)
	e.GET("/api/apps/:id", h.Apps.Get, admin...)
	e.PATCH("/api/apps/:id", h.Apps.Update, admin...)

	e.GET("/api/roles", h.Roles.List, admin...)
	e.POST("/api/roles", h.Roles.Create, admin...)
	e.GET("/api/roles/:id", h.Roles.Get, admin...)
	e.PUT("/api/roles/:id", h.Roles.Update, admin...)
	e.DELETE("/api/roles/:id", h.Roles.Delete, admin...)
	e.GET("/api/roles/:id/screens", h.Roles.Screens, admin...)
	e.POST("/api/roles/:id/screens", h.Roles.AssignScreen, admin...)
	e.PATCH("/api/roles/:id/screens", h.Roles.UpdateScreen, admin...)
	e.DELETE("/api/roles/:id/screens", h.Roles.DeleteScreen, admin...)

	e.GET("/api/users", h.Users.List, admin...)
	e.POST("/api/users", h.Users.Enroll, admin...)
	e.GET("/api/users/:id", h.Users.Get, admin...)
	e.PATCH("/api/users/:id", h.Users.Update, admin...)
	e.DELETE("/api/users/:id", h.Users.Deactivate, admin...)
	return e
}
