package http

import (
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	"rbac-console/internal/application"
	"rbac-console/internal/domain"
)

type AppsHandler struct {
	admins *application.AdminService
	apps   *application.AppService
}

func NewAppsHandler(admins *application.AdminService, apps *application.AppService) *AppsHandler {
	return &AppsHandler{admins: admins, apps: apps}
}

func (h *AppsHandler) ListAdmins(c echo.Context) error {
	admins, err := h.admins.List(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, admins)
}

func (h *AppsHandler) GetAdmin(c echo.Context) error {
	admin, err := h.admins.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, admin)
}

func (h *AppsHandler) CreateAdmin(c echo.Context) error {
	var req domain.CreateAdminRequest
	if err := c.Bind(&req); err != nil {
		return badPayload(c)
	}
	admin, err := h.admins.Create(c.Request().Context(), req)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusCreated, admin)
}

// List returns the operator's own applications; ?scope=all lists every one.
func (h *AppsHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		apps []domain.Application
		err  error
	)
	if c.QueryParam("scope") == "all" {
		apps, err = h.apps.ListAll(ctx, c.QueryParam("status"))
	} else {
		apps, err = h.apps.ListMine(ctx)
	}
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, apps)
}

func (h *AppsHandler) Get(c echo.Context) error {
	app, err := h.apps.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, app)
}

func (h *AppsHandler) Create(c echo.Context) error {
	var req domain.CreateAppRequest
	if err := c.Bind(&req); err != nil {
		return badPayload(c)
	}
	app, err := h.apps.Create(c.Request().Context(), req)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusCreated, app)
}

// Update answers 202 when the change was only applied locally.
func (h *AppsHandler) Update(c echo.Context) error {
	var req domain.UpdateAppRequest
	if err := c.Bind(&req); err != nil {
		return badPayload(c)
	}
	res, err := h.apps.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return handleError(c, err)
	}
	if !res.Persisted {
		return c.JSON(stdhttp.StatusAccepted, res)
	}
	return c.JSON(stdhttp.StatusOK, res)
}

func (h *AppsHandler) Register(c echo.Context) error {
	var req struct {
		Admin domain.CreateAdminRequest `json:"admin"`
		App   domain.CreateAppRequest   `json:"app"`
	}
	if err := c.Bind(&req); err != nil {
		return badPayload(c)
	}
	admin, app, err := h.apps.RegisterApplication(c.Request().Context(), req.Admin, req.App)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusCreated, map[string]any{"admin": admin, "app": app})
}

type RolesHandler struct {
	roles   *application.RoleService
	catalog *application.Catalog
	screens *application.ScreenSynchronizer
}

func NewRolesHandler(roles *application.RoleService, catalog *application.Catalog, screens *application.ScreenSynchronizer) *RolesHandler {
	return &RolesHandler{roles: roles, catalog: catalog, screens: screens}
}

// List returns the operator's roles with application names; ?scope=all
// returns every role unjoined.
func (h *RolesHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	if c.QueryParam("scope") == "all" {
		roles, err := h.roles.List(ctx)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(stdhttp.StatusOK, roles)
	}
	views, err := h.catalog.RolesWithApps(ctx)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, views)
}

func (h *RolesHandler) Get(c echo.Context) error {
	role, err := h.roles.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, role)
}

func (h *RolesHandler) Create(c echo.Context) error {
	var req domain.CreateRoleRequest
	if err := c.Bind(&req); err != nil {
		return badPayload(c)
	}
	role, err := h.roles.Create(c.Request().Context(), req)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusCreated, role)
}

func (h *RolesHandler) Update(c echo.Context) error {
	var req domain.UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		return badPayload(c)
	}
	role, err := h.roles.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, role)
}

func (h *RolesHandler) Delete(c echo.Context) error {
	if err := h.roles.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(stdhttp.StatusNoContent)
}

func (h *RolesHandler) Screens(c echo.Context) error {
	st, err := h.screens.Current(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, st)
}

// stateFor reuses the synchronizer's view of roleID when it is complete and
// loads it otherwise.
func (h *RolesHandler) stateFor(c echo.Context, roleID string) (application.ScreenState, error) {
	st := h.screens.State()
	if st.RoleID == roleID && st.AppID != "" && st.Err == nil {
		return st, nil
	}
	return h.screens.Current(c.Request().Context(), roleID)
}

type screenRequest struct {
	Path    string `json:"path"`
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
}

func (h *RolesHandler) AssignScreen(c echo.Context) error {
	var req screenRequest
	if err := c.Bind(&req); err != nil {
		return badPayload(c)
	}
	roleID := c.Param("id")
	st, err := h.stateFor(c, roleID)
	if err != nil {
		return handleError(c, err)
	}
	st, err = h.screens.Assign(c.Request().Context(), req.Path, roleID, st.AppID, st.Screens)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, st)
}

func (h *RolesHandler) UpdateScreen(c echo.Context) error {
	var req screenRequest
	if err := c.Bind(&req); err != nil {
		return badPayload(c)
	}
	roleID := c.Param("id")
	st, err := h.stateFor(c, roleID)
	if err != nil {
		return handleError(c, err)
	}
	st, err = h.screens.UpdateByPath(c.Request().Context(), req.OldPath, req.NewPath, roleID, st.AppID, st.Screens)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, st)
}

func (h *RolesHandler) DeleteScreen(c echo.Context) error {
	roleID := c.Param("id")
	st, err := h.stateFor(c, roleID)
	if err != nil {
		return handleError(c, err)
	}
	st, err = h.screens.DeleteByPath(c.Request().Context(), c.QueryParam("path"), roleID, st.AppID, st.Screens)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, st)
}

type UsersHandler struct {
	users   *application.UserService
	catalog *application.Catalog
}

func NewUsersHandler(users *application.UserService, catalog *application.Catalog) *UsersHandler {
	return &UsersHandler{users: users, catalog: catalog}
}

func (h *UsersHandler) List(c echo.Context) error {
	users, err := h.catalog.UsersWithRoleNames(c.Request().Context(), c.QueryParam("app_id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, users)
}

func (h *UsersHandler) Get(c echo.Context) error {
	user, err := h.users.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, user)
}

func (h *UsersHandler) Enroll(c echo.Context) error {
	var req domain.EnrollUserRequest
	if err := c.Bind(&req); err != nil {
		return badPayload(c)
	}
	if err := h.users.Enroll(c.Request().Context(), req); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(stdhttp.StatusCreated)
}

func (h *UsersHandler) Update(c echo.Context) error {
	var req domain.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return badPayload(c)
	}
	user, err := h.users.UpdateAppAccess(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, user)
}

func (h *UsersHandler) Deactivate(c echo.Context) error {
	if err := h.users.Deactivate(c.Request().Context(), c.Param("id")); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(stdhttp.StatusNoContent)
}

func (h *UsersHandler) RequestPasswordReset(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return badPayload(c)
	}
	if err := h.users.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(stdhttp.StatusAccepted)
}

func (h *UsersHandler) ChangePassword(c echo.Context) error {
	var req domain.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return badPayload(c)
	}
	if err := h.users.ChangePassword(c.Request().Context(), req); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(stdhttp.StatusNoContent)
}

func (h *UsersHandler) Verify(c echo.Context) error {
	var req domain.VerificationRequest
	if err := c.Bind(&req); err != nil {
		return badPayload(c)
	}
	if err := h.users.Verify(c.Request().Context(), req); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(stdhttp.StatusNoContent)
}
