package application

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"rbac-console/internal/domain"
	"rbac-console/internal/ports"
)

// Fixed storage keys for the session.
const (
	TokenKey   = "auth_token"
	ProfileKey = "user_data"
)

// SessionStore is the single source of truth for who is logged in. Reads are
// served from memory; writes go through to the key-value store.
type SessionStore struct {
	kv     ports.KeyValueStore
	logger ports.Logger

	mu      sync.RWMutex
	token   string
	profile *domain.UserProfile
}

func NewSessionStore(kv ports.KeyValueStore, logger ports.Logger) *SessionStore {
	return &SessionStore{kv: kv, logger: logger}
}

// Hydrate loads a previously persisted session. A corrupt profile is dropped
// but the token is kept; the backend decides whether it is still valid.
func (s *SessionStore) Hydrate(ctx context.Context) error {
	token, _, err := s.kv.Get(ctx, TokenKey)
	if err != nil {
		return err
	}
	raw, ok, err := s.kv.Get(ctx, ProfileKey)
	if err != nil {
		return err
	}
	var profile *domain.UserProfile
	if ok && raw != "" {
		var p domain.UserProfile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			s.logger.Warn(ctx, "discarding unreadable cached profile", "error", err)
		} else {
			profile = &p
		}
	}
	s.mu.Lock()
	s.token = token
	s.profile = profile
	s.mu.Unlock()
	s.logger.Debug(ctx, "session hydrated", "authenticated", token != "")
	return nil
}

func (s *SessionStore) Save(ctx context.Context, sess domain.Session) error {
	if sess.Token == "" {
		return domain.ErrNoToken
	}
	raw, err := json.Marshal(sess.Profile)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, TokenKey, sess.Token); err != nil {
		return err
	}
	if err := s.kv.Set(ctx, ProfileKey, string(raw)); err != nil {
		return err
	}
	profile := sess.Profile
	s.mu.Lock()
	s.token = sess.Token
	s.profile = &profile
	s.mu.Unlock()
	return nil
}

// SetToken replaces the token after a refresh, keeping the profile.
func (s *SessionStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrNoToken
	}
	if err := s.kv.Set(ctx, TokenKey, token); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Clear tears the session down. The in-memory state is always cleared, even
// when the backing store fails.
func (s *SessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.profile = nil
	s.mu.Unlock()
	return s.kv.Delete(ctx, TokenKey, ProfileKey)
}

func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated checks token presence only; expiry is the backend's call.
func (s *SessionStore) IsAuthenticated() bool {
	return s.Token() != ""
}

func (s *SessionStore) Profile() (domain.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return domain.UserProfile{}, false
	}
	return *s.profile, true
}

// UserType is the only admin check in the console.
func (s *SessionStore) UserType() domain.UserType {
	p, ok := s.Profile()
	switch {
	case !ok:
		return domain.UserTypeNone
	case p.IsAdmin:
		return domain.UserTypeAdmin
	default:
		return domain.UserTypeUser
	}
}

func (s *SessionStore) Permissions() []string {
	p, _ := s.Profile()
	return slices.Clone(p.Role.Permissions)
}

func (s *SessionStore) HasPermission(permission string) bool {
	p, _ := s.Profile()
	return slices.Contains(p.Role.Permissions, permission)
}

// SessionView is the read model exposed to the console surface.
type SessionView struct {
	Authenticated bool                `json:"authenticated"`
	UserType      domain.UserType     `json:"user_type,omitempty"`
	Profile       *domain.UserProfile `json:"profile,omitempty"`
	Permissions   []string            `json:"permissions"`
}

func (s *SessionStore) View() SessionView {
	v := SessionView{Authenticated: s.IsAuthenticated(), UserType: s.UserType(), Permissions: s.Permissions()}
	if p, ok := s.Profile(); ok {
		v.Profile = &p
	}
	if v.Permissions == nil {
		v.Permissions = []string{}
	}
	return v
}

// SessionExpiry reacts to a 401 on an authenticated request: it clears the
// session and schedules one navigation to the sign-in route. It is re-armed
// by the next successful login.
type SessionExpiry struct {
	store  *SessionStore
	nav    ports.Navigator
	logger ports.Logger
	delay  time.Duration

	mu    sync.Mutex
	armed bool
	timer *time.Timer
}

func NewSessionExpiry(store *SessionStore, nav ports.Navigator, logger ports.Logger, delay time.Duration) *SessionExpiry {
	return &SessionExpiry{store: store, nav: nav, logger: logger, delay: delay, armed: true}
}

func (e *SessionExpiry) Handle(ctx context.Context) {
	e.mu.Lock()
	if !e.armed {
		e.mu.Unlock()
		return
	}
	e.armed = false
	e.mu.Unlock()

	if err := e.store.Clear(ctx); err != nil {
		e.logger.Error(ctx, "failed to clear expired session", "error", err)
	}
	e.logger.Warn(ctx, "session expired; redirecting to sign-in", "delay", e.delay.String())

	navCtx := context.WithoutCancel(ctx)
	e.mu.Lock()
	e.timer = time.AfterFunc(e.delay, func() { e.nav.Navigate(navCtx, RouteSignIn) })
	e.mu.Unlock()
}

// Rearm cancels a pending redirect and allows the next expiry to be handled.
func (e *SessionExpiry) Rearm() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.armed = true
}

func (e *SessionExpiry) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
	}
}
