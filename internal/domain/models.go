package domain

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

type AppStatus string

const (
	AppActive   AppStatus = "active"
	AppInactive AppStatus = "inactive"
)

func (s AppStatus) Valid() bool {
	return s == AppActive || s == AppInactive
}

type Administrator struct {
	ID           string    `json:"_id,omitempty"`
	Email        string    `json:"admin_email"`
	Status       AppStatus `json:"status"`
	CreationDate string    `json:"creation_date,omitempty"`
}

type CreateAdminRequest struct {
	Email    string    `json:"admin_email"`
	Password string    `json:"password"`
	Status   AppStatus `json:"status"`
}

type Application struct {
	ID           string    `json:"_id,omitempty"`
	Name         string    `json:"name"`
	RedirectURL  string    `json:"redirect_url"`
	Status       AppStatus `json:"status"`
	AdminID      string    `json:"admin_id"`
	CreationDate string    `json:"creation_date,omitempty"`
}

type CreateAppRequest struct {
	Name        string    `json:"name"`
	RedirectURL string    `json:"redirect_url"`
	Status      AppStatus `json:"status"`
	AdminID     string    `json:"admin_id"`
}

// UpdateAppRequest is a partial update; nil fields are left untouched.
type UpdateAppRequest struct {
	Name        *string    `json:"name,omitempty"`
	RedirectURL *string    `json:"redirect_url,omitempty"`
	Status      *AppStatus `json:"status,omitempty"`
}

// Apply returns app with the non-nil fields of the request applied.
func (r UpdateAppRequest) Apply(app Application) Application {
	if r.Name != nil {
		app.Name = *r.Name
	}
	if r.RedirectURL != nil {
		app.RedirectURL = *r.RedirectURL
	}
	if r.Status != nil {
		app.Status = *r.Status
	}
	return app
}

// UpdateResult reports whether an application update reached the backend.
// Persisted is false only for the locally synthesized fallback record.
type UpdateResult struct {
	App       Application `json:"app"`
	Persisted bool        `json:"persisted"`
	Method    string      `json:"method,omitempty"`
}

type Role struct {
	ID           string   `json:"_id,omitempty"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Permissions  []string `json:"permissions"`
	AppID        string   `json:"app_id,omitempty"`
	Screens      []string `json:"screens,omitempty"`
	AdminID      string   `json:"admin_id,omitempty"`
	CreatedBy    string   `json:"created_by,omitempty"`
	IsActive     *bool    `json:"is_active,omitempty"`
	DefaultRole  bool     `json:"default_role,omitempty"`
	CreationDate string   `json:"creation_date,omitempty"`
	ModDate      string   `json:"mod_date,omitempty"`
}

type CreateRoleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions,omitempty"`
	AppID       string   `json:"app_id"`
	AdminID     string   `json:"admin_id,omitempty"`
	CreatedBy   string   `json:"created_by,omitempty"`
}

type UpdateRoleRequest struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

type UserStatus string

const (
	UserActive   UserStatus = "Active"
	UserPending  UserStatus = "Pending"
	UserInactive UserStatus = "Inactive"
)

// UserApp is a user's membership in one application; status is tracked per app.
type UserApp struct {
	App           string     `json:"app"`
	Role          string     `json:"role"`
	Status        UserStatus `json:"status"`
	SessionActive bool       `json:"is_session_active"`
}

type User struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Status UserStatus `json:"status,omitempty"`
	Apps   []UserApp  `json:"apps"`
}

// StatusIn returns the user's status inside the given application.
func (u User) StatusIn(appID string) (UserStatus, bool) {
	for _, a := range u.Apps {
		if a.App == appID {
			return a.Status, true
		}
	}
	return "", false
}

type EnrollmentApp struct {
	App  string `json:"app"`
	Role string `json:"role"`
}

type EnrollUserRequest struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Apps     []EnrollmentApp `json:"apps"`
}

type UpdateUserRequest struct {
	AppID         string     `json:"app_id"`
	Status        UserStatus `json:"status,omitempty"`
	Role          string     `json:"role,omitempty"`
	SessionActive *bool      `json:"is_session_active,omitempty"`
}

type ChangePasswordRequest struct {
	Email           string `json:"user_email"`
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type VerificationRequest struct {
	Email string `json:"user_email"`
	Code  int    `json:"verification_code"`
}

// Envelope is the backend's response wrapper.
type Envelope struct {
	Data        json.RawMessage `json:"data"`
	Message     string          `json:"message"`
	MessageCode string          `json:"message_code"`
}

// Permission vocabulary accepted for roles.
const (
	PermWrite           = "write"
	PermRead            = "read"
	PermDelete          = "delete"
	PermUpdate          = "update"
	PermLostObjectMgmt  = "LostOBJECTMNG"
	PermIssueManagement = "issue_managment"
)

var Permissions = []string{PermWrite, PermRead, PermDelete, PermUpdate, PermLostObjectMgmt, PermIssueManagement}

func ValidPermission(p string) bool {
	return slices.Contains(Permissions, p)
}

// TokenClaims are the unverified hints decoded from a JWT payload.
type TokenClaims struct {
	SubjectID string
	RoleName  string
	ExpiresAt time.Time
}

// ExpiresWithin reports whether the token expires before now+window.
// Tokens without an exp claim never expire client-side.
func (c TokenClaims) ExpiresWithin(now time.Time, window time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(window).Before(c.ExpiresAt)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
