package apiclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"rbac-console/internal/domain"
)

func TestHandleError_MessageShapes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
		kind   domain.ErrorKind
	}{
		{"message", 400, `{"message":"name is required"}`, "name is required", domain.KindValidation},
		{"error", 401, `{"error":"token expired"}`, "token expired", domain.KindAuth},
		{"detail", 403, `{"detail":"not your app"}`, "not your app", domain.KindForbidden},
		{"msg", 404, `{"msg":"role not found"}`, "role not found", domain.KindNotFound},
		{"errors list", 422, `{"errors":["email invalid","password short"]}`, "email invalid; password short", domain.KindValidation},
		{"nested validation", 422, `{"message":{"email":["Not a valid email."],"name":"Missing"}}`, "email: Not a valid email.; name: Missing", domain.KindValidation},
		{"fastapi detail", 422, `{"detail":[{"loc":["body","email"],"msg":"field required"}]}`, "email: field required", domain.KindValidation},
		{"empty message falls through", 500, `{"message":"","error":"db down"}`, "db down", domain.KindServer},
		{"non json", 502, `<html>bad gateway</html>`, "Error 502: Bad Gateway", domain.KindServer},
		{"empty", 409, ``, "Error 409: Conflict", domain.KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := HandleError(tc.status, []byte(tc.body))
			assert.Equal(t, tc.want, err.Message)
			assert.Equal(t, tc.kind, err.Kind)
			assert.Equal(t, tc.status, err.Status)
		})
	}
}

func TestHandleError_DisplayDecoration(t *testing.T) {
	assert.Equal(t, "Validation error: bad", HandleError(400, []byte(`{"message":"bad"}`)).Display())
	assert.Equal(t, "Server error: boom", HandleError(500, []byte(`{"error":"boom"}`)).Display())
	assert.Equal(t, "Error 418: I'm a teapot", HandleError(418, nil).Display())
}
