package domain

import "slices"

type UserType string

const (
	UserTypeNone  UserType = ""
	UserTypeAdmin UserType = "admin"
	UserTypeUser  UserType = "user"
)

type RoleInfo struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	Screens     []string `json:"screens"`
	IsActive    bool     `json:"is_active"`
}

// UserProfile is cached alongside the token. IsAdmin is computed once by DetectAdmin.
type UserProfile struct {
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	Status  string   `json:"status"`
	Role    RoleInfo `json:"role"`
	IsAdmin bool     `json:"isAdmin"`
}

type Session struct {
	Token   string      `json:"token"`
	Profile UserProfile `json:"profile"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	App      string `json:"app,omitempty"`
}

// LoginData is the data member of a login response.
type LoginData struct {
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	Status  string   `json:"status"`
	Role    RoleInfo `json:"role"`
	Token   string   `json:"token"`
	IsAdmin *bool    `json:"isAdmin,omitempty"`
}

func (d LoginData) Session() Session {
	return Session{
		Token: d.Token,
		Profile: UserProfile{
			Email:   d.Email,
			Name:    d.Name,
			Status:  d.Status,
			Role:    d.Role,
			IsAdmin: DetectAdmin(d),
		},
	}
}

var (
	adminRoleNames   = []string{"administrator", "admin", "superadmin", "user_admin"}
	adminPermissions = []string{"admin:all", "admin:*", "user_admin", "super_admin"}
)

// DetectAdmin is the only place admin status is derived: an explicit isAdmin
// flag wins, then an admin role name, an admin permission, or a wildcard screen.
func DetectAdmin(d LoginData) bool {
	if d.IsAdmin != nil {
		return *d.IsAdmin
	}
	if slices.Contains(adminRoleNames, normalizeName(d.Role.Name)) {
		return true
	}
	for _, p := range d.Role.Permissions {
		if slices.Contains(adminPermissions, p) {
			return true
		}
	}
	return slices.Contains(d.Role.Screens, "*") || slices.Contains(d.Role.Screens, "all")
}

type VerifyAuthResult struct {
	Identity string `json:"identity"`
	RoleName string `json:"rolName"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Status   string `json:"status"`
}

