package application

import (
	"context"

	"golang.org/x/sync/errgroup"
	"rbac-console/internal/domain"
)

// RoleView is a role with its application's name resolved.
type RoleView struct {
	domain.Role
	AppName string `json:"app_name"`
}

type UserAppView struct {
	domain.UserApp
	AppName  string `json:"app_name"`
	RoleName string `json:"role_name"`
}

type UserView struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Email  string        `json:"email"`
	Status string        `json:"status,omitempty"`
	Apps   []UserAppView `json:"apps"`
}

// Catalog joins the bare list endpoints by id for display.
type Catalog struct {
	apps  *AppService
	roles *RoleService
	users *UserService
}

func NewCatalog(apps *AppService, roles *RoleService, users *UserService) *Catalog {
	return &Catalog{apps: apps, roles: roles, users: users}
}

func (c *Catalog) RolesWithApps(ctx context.Context) ([]RoleView, error) {
	var (
		roles []domain.Role
		apps  []domain.Application
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		roles, err = c.roles.ListForAdmin(gctx)
		return err
	})
	g.Go(func() (err error) {
		apps, err = c.apps.ListAll(gctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := appNames(apps)
	out := make([]RoleView, 0, len(roles))
	for _, r := range roles {
		out = append(out, RoleView{Role: r, AppName: names[r.AppID]})
	}
	return out, nil
}

// UsersWithRoleNames lists users of appID (all users when empty) with app and
// role ids resolved to names. Unknown ids resolve to "".
func (c *Catalog) UsersWithRoleNames(ctx context.Context, appID string) ([]UserView, error) {
	var (
		users []domain.User
		roles []domain.Role
		apps  []domain.Application
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = c.users.List(gctx, appID)
		return err
	})
	g.Go(func() (err error) {
		roles, err = c.roles.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		apps, err = c.apps.ListAll(gctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	appByID := appNames(apps)
	roleByID := make(map[string]string, len(roles))
	for _, r := range roles {
		roleByID[r.ID] = r.Name
	}
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		v := UserView{ID: u.ID, Name: u.Name, Email: u.Email, Status: string(u.Status), Apps: make([]UserAppView, 0, len(u.Apps))}
		for _, a := range u.Apps {
			v.Apps = append(v.Apps, UserAppView{UserApp: a, AppName: appByID[a.App], RoleName: roleByID[a.Role]})
		}
		out = append(out, v)
	}
	return out, nil
}

func appNames(apps []domain.Application) map[string]string {
	m := make(map[string]string, len(apps))
	for _, a := range apps {
		m[a.ID] = a.Name
	}
	return m
}
