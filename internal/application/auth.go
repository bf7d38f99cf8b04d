package application

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"rbac-console/internal/domain"
	"rbac-console/internal/ports"
)

type AuthConfig struct {
	DefaultApp    string
	RefreshWindow time.Duration
}

// AuthService is the only writer of the SessionStore.
type AuthService struct {
	api    ports.Transport
	store  *SessionStore
	expiry *SessionExpiry
	claims ports.ClaimsDecoder
	logger ports.Logger
	cfg    AuthConfig
	now    func() time.Time
}

func NewAuthService(api ports.Transport, store *SessionStore, expiry *SessionExpiry, claims ports.ClaimsDecoder, logger ports.Logger, cfg AuthConfig) *AuthService {
	return &AuthService{api: api, store: store, expiry: expiry, claims: claims, logger: logger, cfg: cfg, now: time.Now}
}

func (s *AuthService) Login(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	if creds.App == "" {
		creds.App = s.cfg.DefaultApp
	}
	return s.login(ctx, "/auth/login", creds)
}

// AdminLogin uses the admin endpoint, which takes no app field.
func (s *AuthService) AdminLogin(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	creds.App = ""
	return s.login(ctx, "/auth/admin/login", creds)
}

func (s *AuthService) login(ctx context.Context, path string, creds domain.Credentials) (domain.Session, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return domain.Session{}, &domain.AuthError{Reason: domain.ErrValidationFailed, Cause: domain.ErrInvalidInput}
	}
	var data domain.LoginData
	if err := s.api.Do(ctx, ports.Request{Method: http.MethodPost, Path: path, Body: creds}, &data); err != nil {
		return domain.Session{}, loginError(err)
	}
	if data.Token == "" {
		s.logger.Warn(ctx, "login response carried no token", "email", creds.Email)
		return domain.Session{}, domain.ErrNoToken
	}
	sess := data.Session()
	if err := s.store.Save(ctx, sess); err != nil {
		return domain.Session{}, err
	}
	if s.expiry != nil {
		s.expiry.Rearm()
	}
	s.logger.Info(ctx, "login succeeded", "email", sess.Profile.Email, "user_type", s.store.UserType())
	return sess, nil
}

func loginError(err error) error {
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Status == http.StatusUnauthorized:
		return &domain.AuthError{Reason: domain.ErrInvalidCredentials, Cause: err}
	case apiErr.Kind == domain.KindValidation:
		return &domain.AuthError{Reason: domain.ErrValidationFailed, Cause: err}
	default:
		return err
	}
}

// Logout asks the backend to invalidate the session and then clears local
// state whatever the outcome of that call.
func (s *AuthService) Logout(ctx context.Context) error {
	profile, _ := s.store.Profile()
	if s.store.IsAuthenticated() && profile.Email != "" {
		body := map[string]string{"email": profile.Email}
		if err := s.api.Do(ctx, ports.Request{Method: http.MethodPost, Path: "/auth/logout", Body: body}, nil); err != nil {
			s.logger.Warn(ctx, "logout call failed; clearing local session anyway", "error", err)
		}
	}
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error(ctx, "failed to clear session storage", "error", err)
		return err
	}
	s.logger.Info(ctx, "logged out")
	return nil
}

func (s *AuthService) Refresh(ctx context.Context) (string, error) {
	if !s.store.IsAuthenticated() {
		return "", domain.ErrNoToken
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := s.api.Do(ctx, ports.Request{Method: http.MethodPost, Path: "/auth/refresh"}, &data); err != nil {
		return "", err
	}
	if data.Token == "" {
		return "", domain.ErrNoToken
	}
	if err := s.store.SetToken(ctx, data.Token); err != nil {
		return "", err
	}
	s.logger.Debug(ctx, "token refreshed")
	return data.Token, nil
}

// RefreshIfExpiring refreshes when the token's exp claim falls inside the
// configured window. Undecodable tokens are left for the backend to judge.
func (s *AuthService) RefreshIfExpiring(ctx context.Context) error {
	token := s.store.Token()
	if token == "" {
		return domain.ErrNoToken
	}
	claims, err := s.claims.Decode(token)
	if err != nil {
		return nil
	}
	if !claims.ExpiresWithin(s.now(), s.cfg.RefreshWindow) {
		return nil
	}
	_, err = s.Refresh(ctx)
	return err
}

func (s *AuthService) VerifyAuth(ctx context.Context, permission string) (domain.VerifyAuthResult, error) {
	if !s.store.IsAuthenticated() {
		return domain.VerifyAuthResult{}, domain.ErrNoToken
	}
	var out domain.VerifyAuthResult
	body := map[string]string{"permission": permission}
	err := s.api.Do(ctx, ports.Request{Method: http.MethodPost, Path: "/auth/verify_auth", Body: body}, &out)
	return out, err
}

// Subject returns the identifier decoded from the token, or "" when the token
// is absent or unreadable.
func (s *AuthService) Subject(ctx context.Context) string {
	token := s.store.Token()
	if token == "" {
		return ""
	}
	claims, err := s.claims.Decode(token)
	if err != nil {
		s.logger.Warn(ctx, "could not decode token payload", "error", err)
		return ""
	}
	return claims.SubjectID
}
