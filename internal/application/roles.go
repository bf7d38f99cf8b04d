package application

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"rbac-console/internal/domain"
	"rbac-console/internal/ports"
)

type RoleService struct {
	api    ports.Transport
	store  *SessionStore
	auth   *AuthService
	apps   *AppService
	logger ports.Logger
	group  singleflight.Group
}

func NewRoleService(api ports.Transport, store *SessionStore, auth *AuthService, apps *AppService, logger ports.Logger) *RoleService {
	return &RoleService{api: api, store: store, auth: auth, apps: apps, logger: logger}
}

func (s *RoleService) List(ctx context.Context) ([]domain.Role, error) {
	return shared(ctx, &s.group, "roles", func(ctx context.Context) ([]domain.Role, error) {
		var out []domain.Role
		err := s.api.Do(ctx, ports.Request{Method: http.MethodGet, Path: "/rol"}, &out)
		return nonNil(out), err
	})
}

// ListForAdmin returns the roles owned by the logged-in admin: those whose
// admin_id or created_by is the token subject, or whose application the
// admin owns. Roles and applications are fetched concurrently.
func (s *RoleService) ListForAdmin(ctx context.Context) ([]domain.Role, error) {
	adminID := s.auth.Subject(ctx)
	if !s.store.IsAuthenticated() || adminID == "" {
		return []domain.Role{}, nil
	}

	var (
		roles []domain.Role
		apps  []domain.Application
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roles, err = s.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		apps, err = s.apps.ListMine(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	owned := make(map[string]struct{}, len(apps))
	for _, a := range apps {
		owned[a.ID] = struct{}{}
	}
	mine := make([]domain.Role, 0, len(roles))
	for _, r := range roles {
		_, appOwned := owned[r.AppID]
		if r.AdminID == adminID || r.CreatedBy == adminID || (r.AppID != "" && appOwned) {
			mine = append(mine, r)
		}
	}
	if len(mine) == 0 && len(roles) > 0 {
		s.logger.Debug(ctx, "no roles matched admin", "admin_id", adminID, "total", len(roles))
	}
	return mine, nil
}

func (s *RoleService) Get(ctx context.Context, id string) (domain.Role, error) {
	if id == "" {
		return domain.Role{}, domain.ErrInvalidInput
	}
	var out domain.Role
	err := s.api.Do(ctx, ports.Request{Method: http.MethodGet, Path: "/rol/" + url.PathEscape(id)}, &out)
	return out, err
}

func (s *RoleService) Create(ctx context.Context, req domain.CreateRoleRequest) (domain.Role, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.AppID == "" {
		return domain.Role{}, domain.ErrInvalidInput
	}
	if err := validatePermissions(req.Permissions); err != nil {
		return domain.Role{}, err
	}
	if subject := s.auth.Subject(ctx); subject != "" {
		if req.AdminID == "" {
			req.AdminID = subject
		}
		if req.CreatedBy == "" {
			req.CreatedBy = subject
		}
	}
	var out domain.Role
	if err := s.api.Do(ctx, ports.Request{Method: http.MethodPost, Path: "/rol", Body: req}, &out); err != nil {
		return domain.Role{}, err
	}
	s.logger.Info(ctx, "role created", "role_id", out.ID, "app_id", req.AppID)
	return out, nil
}

func (s *RoleService) Update(ctx context.Context, id string, req domain.UpdateRoleRequest) (domain.Role, error) {
	if id == "" {
		return domain.Role{}, domain.ErrInvalidInput
	}
	if err := validatePermissions(req.Permissions); err != nil {
		return domain.Role{}, err
	}
	if err := s.auth.RefreshIfExpiring(ctx); err != nil {
		return domain.Role{}, err
	}
	var out domain.Role
	err := s.api.Do(ctx, ports.Request{Method: http.MethodPut, Path: "/rol/" + url.PathEscape(id), Body: req}, &out)
	if err != nil {
		return domain.Role{}, err
	}
	if out.ID == "" {
		out.ID = id
	}
	return out, nil
}

func (s *RoleService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidInput
	}
	if err := s.auth.RefreshIfExpiring(ctx); err != nil {
		return err
	}
	if err := s.api.Do(ctx, ports.Request{Method: http.MethodDelete, Path: "/rol/" + url.PathEscape(id)}, nil); err != nil {
		return err
	}
	s.logger.Info(ctx, "role deleted", "role_id", id)
	return nil
}

func validatePermissions(perms []string) error {
	for _, p := range perms {
		if !domain.ValidPermission(p) {
			return fmt.Errorf("unknown permission %q: %w", p, domain.ErrInvalidInput)
		}
	}
	return nil
}
