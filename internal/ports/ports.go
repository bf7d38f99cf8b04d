package ports

import (
	"context"
	"net/http"
	"net/url"

	"rbac-console/internal/domain"
)

type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Debug(ctx context.Context, msg string, args ...any)
}

// KeyValueStore persists the session under fixed keys.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// TokenSource yields the current bearer token, or "" when logged out.
type TokenSource interface {
	Token() string
}

// Request describes one backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Transport performs backend calls and unwraps the response envelope's data into out.
// out may be nil when the caller does not need the data.
type Transport interface {
	Do(ctx context.Context, req Request, out any) error
}

type ClaimsDecoder interface {
	Decode(token string) (domain.TokenClaims, error)
}

// Navigator moves the operator to a console route.
type Navigator interface {
	Navigate(ctx context.Context, route string)
}
