package application

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"rbac-console/internal/domain"
	"rbac-console/internal/infrastructure/storage"
	"rbac-console/internal/ports"
)

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Debug(context.Context, string, ...any) {}

type transportMock struct{ mock.Mock }

func (m *transportMock) Do(ctx context.Context, req ports.Request, out any) error {
	args := m.Called(ctx, req, out)
	return args.Error(0)
}

// respond returns a Run function that copies v into the out argument.
func respond(t *testing.T, v any) func(mock.Arguments) {
	return func(args mock.Arguments) {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, args.Get(2)))
	}
}

func call(method, path string) any {
	return mock.MatchedBy(func(r ports.Request) bool { return r.Method == method && r.Path == path })
}

type claimsStub map[string]domain.TokenClaims

func (c claimsStub) Decode(token string) (domain.TokenClaims, error) {
	if cl, ok := c[token]; ok {
		return cl, nil
	}
	return domain.TokenClaims{}, domain.ErrNoToken
}

type recordingNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (n *recordingNavigator) Navigate(_ context.Context, route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

func (n *recordingNavigator) Routes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

// loggedIn returns a store holding token with the given role name.
func loggedIn(t *testing.T, token, role string) *SessionStore {
	t.Helper()
	store := NewSessionStore(storage.NewMemory(), nopLogger{})
	sess := domain.LoginData{Email: "admin@example.com", Role: domain.RoleInfo{Name: role}, Token: token}.Session()
	require.NoError(t, store.Save(context.Background(), sess))
	return store
}

func newAuth(api ports.Transport, store *SessionStore, claims ports.ClaimsDecoder) *AuthService {
	return NewAuthService(api, store, nil, claims, nopLogger{}, AuthConfig{DefaultApp: "console", RefreshWindow: 2 * time.Minute})
}
