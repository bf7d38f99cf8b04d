package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"
	"rbac-console/internal/domain"
	"rbac-console/internal/ports"
)

type AdminService struct {
	api ports.Transport
}

func NewAdminService(api ports.Transport) *AdminService {
	return &AdminService{api: api}
}

func (s *AdminService) List(ctx context.Context, status string) ([]domain.Administrator, error) {
	var out []domain.Administrator
	if err := s.api.Do(ctx, ports.Request{Method: http.MethodGet, Path: "/admin", Query: statusQuery(status)}, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

func (s *AdminService) Get(ctx context.Context, id string) (domain.Administrator, error) {
	if id == "" {
		return domain.Administrator{}, domain.ErrInvalidInput
	}
	var out domain.Administrator
	err := s.api.Do(ctx, ports.Request{Method: http.MethodGet, Path: "/admin/" + url.PathEscape(id)}, &out)
	return out, err
}

func (s *AdminService) Create(ctx context.Context, req domain.CreateAdminRequest) (domain.Administrator, error) {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return domain.Administrator{}, domain.ErrInvalidInput
	}
	if req.Status == "" {
		req.Status = domain.AppActive
	}
	if !req.Status.Valid() {
		return domain.Administrator{}, domain.ErrInvalidInput
	}
	var out domain.Administrator
	err := s.api.Do(ctx, ports.Request{Method: http.MethodPost, Path: "/admin", Body: req}, &out)
	return out, err
}

type AppConfig struct {
	// SimulateOnTransportFailure returns a non-persisted local record when
	// every update attempt fails before reaching the backend.
	SimulateOnTransportFailure bool
}

type AppService struct {
	api    ports.Transport
	store  *SessionStore
	auth   *AuthService
	admins *AdminService
	logger ports.Logger
	cfg    AppConfig
	group  singleflight.Group
}

func NewAppService(api ports.Transport, store *SessionStore, auth *AuthService, admins *AdminService, logger ports.Logger, cfg AppConfig) *AppService {
	return &AppService{api: api, store: store, auth: auth, admins: admins, logger: logger, cfg: cfg}
}

// ListAll fetches every application. Concurrent identical calls share one request.
func (s *AppService) ListAll(ctx context.Context, status string) ([]domain.Application, error) {
	if !s.store.IsAuthenticated() {
		return []domain.Application{}, nil
	}
	return shared(ctx, &s.group, "apps?status="+status, func(ctx context.Context) ([]domain.Application, error) {
		var out []domain.Application
		err := s.api.Do(ctx, ports.Request{Method: http.MethodGet, Path: "/apps", Query: statusQuery(status)}, &out)
		return nonNil(out), err
	})
}

// ListMine returns the applications owned by the logged-in admin. There is
// no server-side filter, so all applications are fetched and matched on
// admin_id. A missing or unreadable token yields an empty list.
func (s *AppService) ListMine(ctx context.Context) ([]domain.Application, error) {
	adminID := s.auth.Subject(ctx)
	if adminID == "" {
		return []domain.Application{}, nil
	}
	all, err := s.ListAll(ctx, "")
	if err != nil {
		return nil, err
	}
	mine := make([]domain.Application, 0, len(all))
	for _, app := range all {
		if app.AdminID == adminID {
			mine = append(mine, app)
		}
	}
	return mine, nil
}

func (s *AppService) Get(ctx context.Context, id string) (domain.Application, error) {
	if id == "" {
		return domain.Application{}, domain.ErrInvalidInput
	}
	var out domain.Application
	err := s.api.Do(ctx, ports.Request{Method: http.MethodGet, Path: "/apps/" + url.PathEscape(id)}, &out)
	return out, err
}

func (s *AppService) Create(ctx context.Context, req domain.CreateAppRequest) (domain.Application, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.AdminID == "" {
		req.AdminID = s.auth.Subject(ctx)
	}
	if req.Status == "" {
		req.Status = domain.AppActive
	}
	if req.Name == "" || req.AdminID == "" || !req.Status.Valid() {
		return domain.Application{}, domain.ErrInvalidInput
	}
	var out domain.Application
	err := s.api.Do(ctx, ports.Request{Method: http.MethodPost, Path: "/apps", Body: req}, &out)
	return out, err
}

type updateAttempt struct {
	method string
	header http.Header
}

var updateAttempts = []updateAttempt{
	{method: http.MethodPatch},
	{method: http.MethodPut},
	{method: http.MethodPost, header: http.Header{"X-HTTP-Method-Override": {http.MethodPatch}}},
}

// Update tries PATCH, then PUT, then POST with a method override, moving on
// only when the backend answers 405 or the request never reached it.
func (s *AppService) Update(ctx context.Context, id string, patch domain.UpdateAppRequest) (domain.UpdateResult, error) {
	if id == "" {
		return domain.UpdateResult{}, domain.ErrInvalidInput
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return domain.UpdateResult{}, domain.ErrInvalidInput
	}
	path := "/apps/" + url.PathEscape(id)
	transportOnly := true
	var lastErr error
	for _, a := range updateAttempts {
		var app domain.Application
		err := s.api.Do(ctx, ports.Request{Method: a.method, Path: path, Body: patch, Header: a.header}, &app)
		if err == nil {
			if app.ID == "" {
				app.ID = id
			}
			return domain.UpdateResult{App: app, Persisted: true, Method: a.method}, nil
		}
		lastErr = err
		if errors.Is(err, domain.ErrTransport) {
			s.logger.Warn(ctx, "application update attempt did not reach backend", "app_id", id, "method", a.method, "error", err)
			continue
		}
		transportOnly = false
		if domain.StatusIs(err, http.StatusMethodNotAllowed) {
			s.logger.Debug(ctx, "application update method not allowed", "app_id", id, "method", a.method)
			continue
		}
		return domain.UpdateResult{}, err
	}
	if transportOnly && s.cfg.SimulateOnTransportFailure {
		s.logger.Warn(ctx, "application update NOT saved to server; returning local copy", "app_id", id)
		return domain.UpdateResult{App: patch.Apply(domain.Application{ID: id}), Persisted: false}, nil
	}
	return domain.UpdateResult{}, lastErr
}

// RegisterApplication creates an administrator and then an application owned by it.
func (s *AppService) RegisterApplication(ctx context.Context, admin domain.CreateAdminRequest, app domain.CreateAppRequest) (domain.Administrator, domain.Application, error) {
	created, err := s.admins.Create(ctx, admin)
	if err != nil {
		return domain.Administrator{}, domain.Application{}, fmt.Errorf("create admin: %w", err)
	}
	if created.ID == "" {
		return created, domain.Application{}, fmt.Errorf("create admin: backend returned no id: %w", domain.ErrServer)
	}
	app.AdminID = created.ID
	out, err := s.Create(ctx, app)
	if err != nil {
		return created, domain.Application{}, fmt.Errorf("create application: %w", err)
	}
	return created, out, nil
}

func statusQuery(status string) url.Values {
	if status == "" {
		return nil
	}
	return url.Values{"status": {status}}
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

// shared joins concurrent fetches under key. The fetch runs without the
// callers' cancellation, bounded by the client timeout; each caller stops
// waiting when its own ctx ends.
func shared[T any](ctx context.Context, g *singleflight.Group, key string, fetch func(context.Context) (T, error)) (T, error) {
	ch := g.DoChan(key, func() (any, error) {
		return fetch(context.WithoutCancel(ctx))
	})
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
