package application

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"rbac-console/internal/domain"
	"rbac-console/internal/ports"
)

type UserService struct {
	api    ports.Transport
	logger ports.Logger
}

func NewUserService(api ports.Transport, logger ports.Logger) *UserService {
	return &UserService{api: api, logger: logger}
}

// List returns users, optionally restricted to one application.
func (s *UserService) List(ctx context.Context, appID string) ([]domain.User, error) {
	var q url.Values
	if appID != "" {
		q = url.Values{"app_id": {appID}}
	}
	var out []domain.User
	if err := s.api.Do(ctx, ports.Request{Method: http.MethodGet, Path: "/user", Query: q}, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	if id == "" {
		return domain.User{}, domain.ErrInvalidInput
	}
	var out domain.User
	err := s.api.Do(ctx, ports.Request{Method: http.MethodGet, Path: "/user/" + url.PathEscape(id)}, &out)
	return out, err
}

func (s *UserService) Enroll(ctx context.Context, req domain.EnrollUserRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" || len(req.Apps) == 0 {
		return domain.ErrInvalidInput
	}
	if err := s.api.Do(ctx, ports.Request{Method: http.MethodPost, Path: "/user/enrollment", Body: req}, nil); err != nil {
		return err
	}
	s.logger.Info(ctx, "user enrolled", "email", req.Email, "apps", len(req.Apps))
	return nil
}

// UpdateAppAccess changes the user's status, role or session flag inside one application.
func (s *UserService) UpdateAppAccess(ctx context.Context, id string, req domain.UpdateUserRequest) (domain.User, error) {
	if id == "" || req.AppID == "" {
		return domain.User{}, domain.ErrInvalidInput
	}
	switch req.Status {
	case "", domain.UserActive, domain.UserPending, domain.UserInactive:
	default:
		return domain.User{}, domain.ErrInvalidInput
	}
	var out domain.User
	err := s.api.Do(ctx, ports.Request{Method: http.MethodPatch, Path: "/user/" + url.PathEscape(id), Body: req}, &out)
	return out, err
}

func (s *UserService) Deactivate(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidInput
	}
	return s.api.Do(ctx, ports.Request{Method: http.MethodDelete, Path: "/user/" + url.PathEscape(id)}, nil)
}

func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.ErrInvalidInput
	}
	body := map[string]string{"email": email}
	return s.api.Do(ctx, ports.Request{Method: http.MethodPost, Path: "/user/password", Body: body}, nil)
}

func (s *UserService) ChangePassword(ctx context.Context, req domain.ChangePasswordRequest) error {
	if req.Email == "" || req.OldPassword == "" || req.NewPassword == "" {
		return domain.ErrInvalidInput
	}
	if req.ConfirmPassword != req.NewPassword {
		return domain.ErrValidationFailed
	}
	return s.api.Do(ctx, ports.Request{Method: http.MethodPut, Path: "/user/password", Body: req}, nil)
}

func (s *UserService) Verify(ctx context.Context, req domain.VerificationRequest) error {
	if req.Email == "" || req.Code <= 0 {
		return domain.ErrInvalidInput
	}
	return s.api.Do(ctx, ports.Request{Method: http.MethodPost, Path: "/user/verification", Body: req}, nil)
}
