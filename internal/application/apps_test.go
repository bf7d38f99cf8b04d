package application

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"rbac-console/internal/domain"
	"rbac-console/internal/infrastructure/storage"
	"rbac-console/internal/ports"
)

var adminClaims = claimsStub{"adm-token": {SubjectID: "adm-1"}}

func newAppService(api ports.Transport, store *SessionStore, fallback bool) *AppService {
	auth := newAuth(api, store, adminClaims)
	return NewAppService(api, store, auth, NewAdminService(api), nopLogger{}, AppConfig{SimulateOnTransportFailure: fallback})
}

func methodNotAllowed() error {
	return &domain.APIError{Kind: domain.KindUnknown, Status: http.StatusMethodNotAllowed, Message: "method not allowed"}
}

func TestAppService_ListMineFiltersByAdmin(t *testing.T) {
	api := new(transportMock)
	svc := newAppService(api, loggedIn(t, "adm-token", "admin"), true)
	api.On("Do", mock.Anything, call(http.MethodGet, "/apps"), mock.Anything).Run(respond(t, []domain.Application{
		{ID: "a1", Name: "Mine", AdminID: "adm-1"},
		{ID: "a2", Name: "Theirs", AdminID: "adm-2"},
		{ID: "a3", Name: "Also mine", AdminID: "adm-1"},
	})).Return(nil).Once()

	apps, err := svc.ListMine(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "a1", apps[0].ID)
	assert.Equal(t, "a3", apps[1].ID)
}

func TestAppService_ListMineEmptyWithoutUsableToken(t *testing.T) {
	for name, store := range map[string]*SessionStore{
		"missing":   NewSessionStore(storage.NewMemory(), nopLogger{}),
		"malformed": loggedIn(t, "not-a-jwt", "admin"),
	} {
		t.Run(name, func(t *testing.T) {
			api := new(transportMock)
			svc := newAppService(api, store, true)

			apps, err := svc.ListMine(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, apps)
			assert.Empty(t, apps)
			api.AssertNotCalled(t, "Do", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAppService_ListAllSharedFetchIgnoresCancelledCaller(t *testing.T) {
	api := new(transportMock)
	svc := newAppService(api, loggedIn(t, "adm-token", "admin"), true)
	started, release := make(chan struct{}), make(chan struct{})
	var fetchErr error
	api.On("Do", mock.Anything, call(http.MethodGet, "/apps"), mock.Anything).Run(func(args mock.Arguments) {
		close(started)
		<-release
		fetchErr = args.Get(0).(context.Context).Err()
		respond(t, []domain.Application{{ID: "a1", AdminID: "adm-1"}})(args)
	}).Return(nil).Once()

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.ListAll(ctxA, "")
		errA <- err
	}()
	<-started

	type result struct {
		apps []domain.Application
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		apps, err := svc.ListAll(context.Background(), "")
		resB <- result{apps, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)
	close(release)

	b := <-resB
	require.NoError(t, b.err)
	require.Len(t, b.apps, 1)
	assert.Equal(t, "a1", b.apps[0].ID)
	assert.NoError(t, fetchErr)
	api.AssertExpectations(t)
}

func TestAppService_ListMinePropagatesBackendError(t *testing.T) {
	api := new(transportMock)
	svc := newAppService(api, loggedIn(t, "adm-token", "admin"), true)
	api.On("Do", mock.Anything, call(http.MethodGet, "/apps"), mock.Anything).
		Return(&domain.APIError{Kind: domain.KindServer, Status: 502, Message: "bad gateway"})

	_, err := svc.ListMine(context.Background())
	assert.ErrorIs(t, err, domain.ErrServer)
}

func TestAppService_CreateDefaults(t *testing.T) {
	api := new(transportMock)
	svc := newAppService(api, loggedIn(t, "adm-token", "admin"), true)
	api.On("Do", mock.Anything, mock.MatchedBy(func(r ports.Request) bool {
		req, ok := r.Body.(domain.CreateAppRequest)
		return ok && r.Path == "/apps" && req.AdminID == "adm-1" && req.Status == domain.AppActive && req.Name == "Billing"
	}), mock.Anything).Run(respond(t, domain.Application{ID: "a9", Name: "Billing", AdminID: "adm-1"})).Return(nil).Once()

	app, err := svc.Create(context.Background(), domain.CreateAppRequest{Name: " Billing "})
	require.NoError(t, err)
	assert.Equal(t, "a9", app.ID)

	_, err = svc.Create(context.Background(), domain.CreateAppRequest{Name: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	api.AssertExpectations(t)
}

func TestAppService_UpdateFallsThroughMethodChain(t *testing.T) {
	api := new(transportMock)
	svc := newAppService(api, loggedIn(t, "adm-token", "admin"), true)
	name := "Renamed"

	api.On("Do", mock.Anything, call(http.MethodPatch, "/apps/a1"), mock.Anything).Return(methodNotAllowed()).Once()
	api.On("Do", mock.Anything, call(http.MethodPut, "/apps/a1"), mock.Anything).Return(methodNotAllowed()).Once()
	api.On("Do", mock.Anything, mock.MatchedBy(func(r ports.Request) bool {
		return r.Method == http.MethodPost && r.Path == "/apps/a1" && r.Header.Get("X-HTTP-Method-Override") == http.MethodPatch
	}), mock.Anything).Run(respond(t, domain.Application{ID: "a1", Name: "Renamed", AdminID: "adm-1"})).Return(nil).Once()

	res, err := svc.Update(context.Background(), "a1", domain.UpdateAppRequest{Name: &name})
	require.NoError(t, err)
	assert.True(t, res.Persisted)
	assert.Equal(t, http.MethodPost, res.Method)
	assert.Equal(t, "adm-1", res.App.AdminID, "server record, not a local copy")
	api.AssertExpectations(t)
}

func TestAppService_UpdateStopsOnOtherErrors(t *testing.T) {
	api := new(transportMock)
	svc := newAppService(api, loggedIn(t, "adm-token", "admin"), true)
	api.On("Do", mock.Anything, call(http.MethodPatch, "/apps/a1"), mock.Anything).
		Return(&domain.APIError{Kind: domain.KindValidation, Status: 422, Message: "name: too short"}).Once()

	_, err := svc.Update(context.Background(), "a1", domain.UpdateAppRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	api.AssertNumberOfCalls(t, "Do", 1)
}

func TestAppService_UpdateTransportFallback(t *testing.T) {
	name := "Offline"
	transportErr := fmt.Errorf("%w: connection refused", domain.ErrTransport)

	t.Run("enabled returns a non-persisted record", func(t *testing.T) {
		api := new(transportMock)
		svc := newAppService(api, loggedIn(t, "adm-token", "admin"), true)
		api.On("Do", mock.Anything, mock.Anything, mock.Anything).Return(transportErr)

		res, err := svc.Update(context.Background(), "a1", domain.UpdateAppRequest{Name: &name})
		require.NoError(t, err)
		assert.False(t, res.Persisted)
		assert.Equal(t, "a1", res.App.ID)
		assert.Equal(t, "Offline", res.App.Name)
		api.AssertNumberOfCalls(t, "Do", 3)
	})

	t.Run("disabled surfaces the transport error", func(t *testing.T) {
		api := new(transportMock)
		svc := newAppService(api, loggedIn(t, "adm-token", "admin"), false)
		api.On("Do", mock.Anything, mock.Anything, mock.Anything).Return(transportErr)

		_, err := svc.Update(context.Background(), "a1", domain.UpdateAppRequest{Name: &name})
		assert.ErrorIs(t, err, domain.ErrTransport)
	})

	t.Run("mixed failures never synthesize", func(t *testing.T) {
		api := new(transportMock)
		svc := newAppService(api, loggedIn(t, "adm-token", "admin"), true)
		api.On("Do", mock.Anything, call(http.MethodPatch, "/apps/a1"), mock.Anything).Return(methodNotAllowed())
		api.On("Do", mock.Anything, mock.Anything, mock.Anything).Return(transportErr)

		_, err := svc.Update(context.Background(), "a1", domain.UpdateAppRequest{Name: &name})
		assert.ErrorIs(t, err, domain.ErrTransport)
	})
}

func TestAppService_RegisterApplication(t *testing.T) {
	api := new(transportMock)
	svc := newAppService(api, loggedIn(t, "adm-token", "admin"), true)
	api.On("Do", mock.Anything, call(http.MethodPost, "/admin"), mock.Anything).
		Run(respond(t, domain.Administrator{ID: "adm-7", Email: "new@b.com", Status: domain.AppActive})).Return(nil).Once()
	api.On("Do", mock.Anything, mock.MatchedBy(func(r ports.Request) bool {
		req, ok := r.Body.(domain.CreateAppRequest)
		return ok && r.Path == "/apps" && req.AdminID == "adm-7"
	}), mock.Anything).Run(respond(t, domain.Application{ID: "a7", AdminID: "adm-7"})).Return(nil).Once()

	admin, app, err := svc.RegisterApplication(context.Background(),
		domain.CreateAdminRequest{Email: "new@b.com", Password: "pw"},
		domain.CreateAppRequest{Name: "Shop"})
	require.NoError(t, err)
	assert.Equal(t, "adm-7", admin.ID)
	assert.Equal(t, "a7", app.ID)
	api.AssertExpectations(t)
}

func TestAdminService_List(t *testing.T) {
	api := new(transportMock)
	svc := NewAdminService(api)
	api.On("Do", mock.Anything, mock.MatchedBy(func(r ports.Request) bool {
		return r.Path == "/admin" && r.Query.Get("status") == "active"
	}), mock.Anything).Run(respond(t, []domain.Administrator{{ID: "adm-1"}})).Return(nil)

	admins, err := svc.List(context.Background(), "active")
	require.NoError(t, err)
	assert.Len(t, admins, 1)

	_, err = svc.Create(context.Background(), domain.CreateAdminRequest{Email: "x@y.z", Password: "pw", Status: "weird"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
