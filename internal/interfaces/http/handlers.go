package http

import (
	"context"
	"errors"
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	"rbac-console/internal/application"
	"rbac-console/internal/domain"
	"rbac-console/internal/ports"
)

type errorBody struct {
	Error    string `json:"error"`
	Kind     string `json:"kind,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

func handleError(c echo.Context, err error) error {
	body := errorBody{Error: err.Error()}
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		body.Error = apiErr.Display()
		body.Kind = string(apiErr.Kind)
	}

	var status int
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrNoToken):
		status = stdhttp.StatusUnauthorized
		body.Redirect = application.RouteSignIn
	case errors.Is(err, domain.ErrDuplicateScreen), errors.Is(err, domain.ErrMutationInFlight):
		status = stdhttp.StatusConflict
	case errors.Is(err, domain.ErrValidationFailed), errors.Is(err, domain.ErrInvalidInput):
		status = stdhttp.StatusBadRequest
	case errors.Is(err, domain.ErrPermissionDeny):
		status = stdhttp.StatusForbidden
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrScreenNotAssigned):
		status = stdhttp.StatusNotFound
	case errors.Is(err, domain.ErrServer), errors.Is(err, domain.ErrTransport):
		status = stdhttp.StatusBadGateway
	default:
		c.Logger().Error(err)
		status = stdhttp.StatusInternalServerError
		body = errorBody{Error: "internal error"}
	}
	return c.JSON(status, body)
}

func badPayload(c echo.Context) error {
	return c.JSON(stdhttp.StatusBadRequest, errorBody{Error: "invalid payload"})
}

type AuthHandler struct {
	sessions *application.SessionStore
	auth     *application.AuthService
	redirect *PendingRedirect
	logger   ports.Logger
}

func NewAuthHandler(sessions *application.SessionStore, auth *application.AuthService, redirect *PendingRedirect, logger ports.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, auth: auth, redirect: redirect, logger: logger}
}

type loginResponse struct {
	Profile  domain.UserProfile `json:"profile"`
	UserType domain.UserType    `json:"user_type"`
	Redirect string             `json:"redirect"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	return h.login(c, h.auth.Login)
}

func (h *AuthHandler) AdminLogin(c echo.Context) error {
	return h.login(c, h.auth.AdminLogin)
}

func (h *AuthHandler) login(c echo.Context, fn func(ctx context.Context, creds domain.Credentials) (domain.Session, error)) error {
	var creds domain.Credentials
	if err := c.Bind(&creds); err != nil {
		return badPayload(c)
	}
	sess, err := fn(c.Request().Context(), creds)
	if err != nil {
		h.logger.Warn(c.Request().Context(), "login rejected", "email", creds.Email, "error", err)
		return handleError(c, err)
	}
	h.redirect.Take()
	userType := h.sessions.UserType()
	return c.JSON(stdhttp.StatusOK, loginResponse{
		Profile:  sess.Profile,
		UserType: userType,
		Redirect: application.DashboardFor(userType),
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context()); err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, map[string]string{"redirect": application.RouteSignIn})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	if _, err := h.auth.Refresh(c.Request().Context()); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(stdhttp.StatusNoContent)
}

func (h *AuthHandler) Verify(c echo.Context) error {
	var req struct {
		Permission string `json:"permission"`
	}
	if err := c.Bind(&req); err != nil {
		return badPayload(c)
	}
	res, err := h.auth.VerifyAuth(c.Request().Context(), req.Permission)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, res)
}

type sessionResponse struct {
	application.SessionView
	Redirect string `json:"redirect,omitempty"`
}

// Session reports the current session and hands over a redirect scheduled
// by session expiry, if any.
func (h *AuthHandler) Session(c echo.Context) error {
	return c.JSON(stdhttp.StatusOK, sessionResponse{SessionView: h.sessions.View(), Redirect: h.redirect.Take()})
}

type page struct {
	Page    string                  `json:"page"`
	Session application.SessionView `json:"session"`
}

// Page serves the guarded console routes. The console renders no HTML;
// each route answers with the state its page renders from.
func (h *AuthHandler) Page(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(stdhttp.StatusOK, page{Page: name, Session: h.sessions.View()})
	}
}
