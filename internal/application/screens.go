package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/semaphore"
	"rbac-console/internal/domain"
	"rbac-console/internal/ports"
)

const screensPath = "/rol/screens"

type ScreenService struct {
	api ports.Transport
}

func NewScreenService(api ports.Transport) *ScreenService {
	return &ScreenService{api: api}
}

// ListByRole fetches a role's screens. A role the backend does not know has no screens.
func (s *ScreenService) ListByRole(ctx context.Context, roleID string) (domain.ScreenList, error) {
	if roleID == "" {
		return domain.ScreenList{}, domain.ErrInvalidInput
	}
	var raw json.RawMessage
	err := s.api.Do(ctx, ports.Request{Method: http.MethodGet, Path: screensPath + "/role/" + url.PathEscape(roleID)}, &raw)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewScreenList(), nil
	}
	if err != nil {
		return domain.ScreenList{}, err
	}
	return decodeScreens(raw)
}

// decodeScreens accepts ["/a"], {"screens":["/a"]} and [{"screens":["/a"]}] or [{"path":"/a"}].
func decodeScreens(raw json.RawMessage) (domain.ScreenList, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return domain.NewScreenList(), nil
	}
	var paths []string
	if err := json.Unmarshal(raw, &paths); err == nil {
		return domain.NewScreenList(paths...), nil
	}
	type entry struct {
		Screens []string `json:"screens"`
		Path    string   `json:"path"`
	}
	var one entry
	if err := json.Unmarshal(raw, &one); err == nil {
		if one.Path != "" {
			one.Screens = append(one.Screens, one.Path)
		}
		return domain.NewScreenList(one.Screens...), nil
	}
	var many []entry
	if err := json.Unmarshal(raw, &many); err != nil {
		return domain.ScreenList{}, fmt.Errorf("decode screens: %w", domain.ErrServer)
	}
	for _, e := range many {
		paths = append(paths, e.Screens...)
		if e.Path != "" {
			paths = append(paths, e.Path)
		}
	}
	return domain.NewScreenList(paths...), nil
}

func (s *ScreenService) Create(ctx context.Context, a domain.ScreenAssignment) error {
	return s.write(ctx, http.MethodPost, a)
}

func (s *ScreenService) Update(ctx context.Context, a domain.ScreenAssignment) error {
	return s.write(ctx, http.MethodPatch, a)
}

func (s *ScreenService) Delete(ctx context.Context, a domain.ScreenAssignment) error {
	return s.write(ctx, http.MethodDelete, a)
}

func (s *ScreenService) write(ctx context.Context, method string, a domain.ScreenAssignment) error {
	if a.RoleID == "" || a.AppID == "" {
		return domain.ErrInvalidInput
	}
	return s.api.Do(ctx, ports.Request{Method: method, Path: screensPath, Body: a}, nil)
}

// ScreenState is the synchronizer's view of one role.
type ScreenState struct {
	RoleID   string            `json:"role_id"`
	AppID    string            `json:"app_id"`
	Screens  domain.ScreenList `json:"screens"`
	Err      error             `json:"-"`
	Revision uint64            `json:"revision"`
}

// RoleLookup resolves the application a role belongs to.
type RoleLookup interface {
	Get(ctx context.Context, id string) (domain.Role, error)
}

// ScreenSynchronizer keeps a role's screen list consistent with a backend
// that only accepts whole lists. Every mutation is followed by a reload and
// the reloaded list replaces local state.
type ScreenSynchronizer struct {
	screens *ScreenService
	roles   RoleLookup
	logger  ports.Logger

	mu    sync.Mutex
	state ScreenState
	locks map[string]*semaphore.Weighted
}

func NewScreenSynchronizer(screens *ScreenService, roles RoleLookup, logger ports.Logger) *ScreenSynchronizer {
	return &ScreenSynchronizer{screens: screens, roles: roles, logger: logger, locks: make(map[string]*semaphore.Weighted)}
}

func (s *ScreenSynchronizer) State() ScreenState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load fetches roleID's screens. On failure the previous list is kept when
// the role is unchanged and cleared otherwise; the error is recorded and returned.
func (s *ScreenSynchronizer) Load(ctx context.Context, roleID string) (ScreenState, error) {
	list, err := s.screens.ListByRole(ctx, roleID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.RoleID != roleID {
		s.state = ScreenState{RoleID: roleID, Revision: s.state.Revision}
	}
	s.state.Revision++
	if err != nil {
		s.state.Err = err
		return s.state, err
	}
	s.state.Screens = list
	s.state.Err = nil
	return s.state, nil
}

// Current loads roleID and resolves its application when not yet known.
func (s *ScreenSynchronizer) Current(ctx context.Context, roleID string) (ScreenState, error) {
	st, err := s.Load(ctx, roleID)
	if err != nil || st.AppID != "" {
		return st, err
	}
	role, err := s.roles.Get(ctx, roleID)
	if err != nil {
		return st, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.RoleID == roleID {
		s.state.AppID = role.AppID
	}
	return s.state, nil
}

// Assign submits current plus path. A path already in current is rejected
// without any backend call.
func (s *ScreenSynchronizer) Assign(ctx context.Context, path, roleID, appID string, current domain.ScreenList) (ScreenState, error) {
	next, err := current.With(path)
	if err != nil {
		return s.State(), err
	}
	return s.mutate(ctx, roleID, appID, next, func(a domain.ScreenAssignment) error {
		return s.screens.Create(ctx, a)
	}, domain.ScreenAssignment{})
}

// UpdateByPath submits current with oldPath replaced by newPath, plus both markers.
func (s *ScreenSynchronizer) UpdateByPath(ctx context.Context, oldPath, newPath, roleID, appID string, current domain.ScreenList) (ScreenState, error) {
	next, err := current.Replace(oldPath, newPath)
	if err != nil {
		return s.State(), err
	}
	return s.mutate(ctx, roleID, appID, next, func(a domain.ScreenAssignment) error {
		return s.screens.Update(ctx, a)
	}, domain.ScreenAssignment{OldPath: oldPath, NewPath: newPath})
}

// DeleteByPath submits current without path.
func (s *ScreenSynchronizer) DeleteByPath(ctx context.Context, path, roleID, appID string, current domain.ScreenList) (ScreenState, error) {
	next, err := current.Without(path)
	if err != nil {
		return s.State(), err
	}
	return s.mutate(ctx, roleID, appID, next, func(a domain.ScreenAssignment) error {
		return s.screens.Delete(ctx, a)
	}, domain.ScreenAssignment{})
}

func (s *ScreenSynchronizer) mutate(ctx context.Context, roleID, appID string, next domain.ScreenList, submit func(domain.ScreenAssignment) error, markers domain.ScreenAssignment) (ScreenState, error) {
	if roleID == "" || appID == "" {
		return s.State(), domain.ErrInvalidInput
	}
	lock := s.lockFor(roleID)
	if !lock.TryAcquire(1) {
		return s.State(), domain.ErrMutationInFlight
	}
	defer lock.Release(1)

	markers.RoleID, markers.AppID, markers.Screens = roleID, appID, next
	if err := submit(markers); err != nil {
		s.logger.Error(ctx, "screen mutation failed", "role_id", roleID, "error", err)
		s.recordError(roleID, err)
		return s.State(), err
	}

	st, err := s.Load(ctx, roleID)
	if err != nil {
		return st, fmt.Errorf("reload after mutation: %w", err)
	}
	s.mu.Lock()
	if s.state.RoleID == roleID {
		s.state.AppID = appID
	}
	st = s.state
	s.mu.Unlock()

	if !st.Screens.Equal(next) {
		s.logger.Warn(ctx, "server screen list differs from submitted list",
			"role_id", roleID, "submitted", next.Paths(), "stored", st.Screens.Paths())
	}
	return st, nil
}

func (s *ScreenSynchronizer) recordError(roleID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.RoleID == roleID {
		s.state.Err = err
	}
}

func (s *ScreenSynchronizer) lockFor(roleID string) *semaphore.Weighted {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[roleID]
	if !ok {
		l = semaphore.NewWeighted(1)
		s.locks[roleID] = l
	}
	return l
}
