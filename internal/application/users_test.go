package application

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"rbac-console/internal/domain"
	"rbac-console/internal/ports"
)

func TestUserService_ListByApp(t *testing.T) {
	api := new(transportMock)
	svc := NewUserService(api, nopLogger{})
	api.On("Do", mock.Anything, mock.MatchedBy(func(r ports.Request) bool {
		return r.Path == "/user" && r.Query.Get("app_id") == "a1"
	}), mock.Anything).Run(respond(t, []domain.User{{
		ID: "u1", Email: "u@b.com",
		Apps: []domain.UserApp{{App: "a1", Role: "r1", Status: domain.UserPending}},
	}})).Return(nil).Once()

	users, err := svc.List(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, users, 1)
	status, ok := users[0].StatusIn("a1")
	assert.True(t, ok)
	assert.Equal(t, domain.UserPending, status)
}

func TestUserService_UpdateAppAccess(t *testing.T) {
	api := new(transportMock)
	svc := NewUserService(api, nopLogger{})
	api.On("Do", mock.Anything, call(http.MethodPatch, "/user/u1"), mock.Anything).
		Run(respond(t, domain.User{ID: "u1"})).Return(nil).Once()

	_, err := svc.UpdateAppAccess(context.Background(), "u1", domain.UpdateUserRequest{AppID: "a1", Status: domain.UserActive})
	require.NoError(t, err)

	_, err = svc.UpdateAppAccess(context.Background(), "u1", domain.UpdateUserRequest{AppID: "a1", Status: "Banned"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.UpdateAppAccess(context.Background(), "u1", domain.UpdateUserRequest{Status: domain.UserActive})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "app id is required")
	api.AssertExpectations(t)
}

func TestUserService_Enroll(t *testing.T) {
	api := new(transportMock)
	svc := NewUserService(api, nopLogger{})
	api.On("Do", mock.Anything, call(http.MethodPost, "/user/enrollment"), nil).Return(nil).Once()

	err := svc.Enroll(context.Background(), domain.EnrollUserRequest{
		Name: "U", Email: "u@b.com", Password: "pw",
		Apps: []domain.EnrollmentApp{{App: "a1", Role: "r1"}},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Enroll(context.Background(), domain.EnrollUserRequest{Email: "u@b.com", Password: "pw"}), domain.ErrInvalidInput)
	api.AssertExpectations(t)
}

func TestUserService_PasswordFlows(t *testing.T) {
	api := new(transportMock)
	svc := NewUserService(api, nopLogger{})
	api.On("Do", mock.Anything, call(http.MethodPost, "/user/password"), nil).Return(nil).Once()
	api.On("Do", mock.Anything, call(http.MethodPut, "/user/password"), nil).Return(nil).Once()
	api.On("Do", mock.Anything, call(http.MethodPost, "/user/verification"), nil).Return(nil).Once()
	api.On("Do", mock.Anything, call(http.MethodDelete, "/user/u1"), nil).Return(nil).Once()

	ctx := context.Background()
	require.NoError(t, svc.RequestPasswordReset(ctx, "u@b.com"))
	require.NoError(t, svc.ChangePassword(ctx, domain.ChangePasswordRequest{
		Email: "u@b.com", OldPassword: "a", NewPassword: "b", ConfirmPassword: "b",
	}))
	require.NoError(t, svc.Verify(ctx, domain.VerificationRequest{Email: "u@b.com", Code: 123456}))
	require.NoError(t, svc.Deactivate(ctx, "u1"))

	assert.ErrorIs(t, svc.ChangePassword(ctx, domain.ChangePasswordRequest{
		Email: "u@b.com", OldPassword: "a", NewPassword: "b", ConfirmPassword: "c",
	}), domain.ErrValidationFailed)
	assert.ErrorIs(t, svc.Verify(ctx, domain.VerificationRequest{Email: "u@b.com"}), domain.ErrInvalidInput)
	api.AssertExpectations(t)
}
