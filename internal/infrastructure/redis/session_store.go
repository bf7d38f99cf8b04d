package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Commands is the subset of go-redis used by the session store.
type Commands interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
}

// SessionStore keeps session keys under a per-console prefix. A zero ttl keeps
// keys until logout.
type SessionStore struct {
	cmds   Commands
	prefix string
	ttl    time.Duration
}

func NewSessionStore(cmds Commands, namespace string, ttl time.Duration) *SessionStore {
	if namespace == "" {
		namespace = "default"
	}
	return &SessionStore{cmds: cmds, prefix: "rbac-console:" + namespace + ":", ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.cmds.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SessionStore) Set(ctx context.Context, key, value string) error {
	return s.cmds.Set(ctx, s.prefix+key, value, s.ttl).Err()
}

func (s *SessionStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	return s.cmds.Del(ctx, full...).Err()
}
