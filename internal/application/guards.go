package application

import "rbac-console/internal/domain"

const (
	RouteSignIn         = "/admin-signin"
	RouteDashboard      = "/dashboard"
	RouteAdminDashboard = "/admin-dashboard"
)

type GuardKind int

const (
	// GuardAuthenticated admits any logged-in operator.
	GuardAuthenticated GuardKind = iota
	// GuardAdmin admits admins; other logged-in users go to their dashboard.
	GuardAdmin
	// GuardPublic is the reverse guard for sign-in and sign-up pages.
	GuardPublic
)

func (k GuardKind) String() string {
	switch k {
	case GuardAuthenticated:
		return "authenticated"
	case GuardAdmin:
		return "admin"
	case GuardPublic:
		return "public"
	default:
		return "unknown"
	}
}

type GuardState string

const (
	GuardChecking   GuardState = "checking"
	GuardAuthorized GuardState = "authorized"
	GuardRedirected GuardState = "redirected"
)

type Decision struct {
	State GuardState
	Route string
}

type SessionReader interface {
	IsAuthenticated() bool
	UserType() domain.UserType
}

// EvaluateGuard moves a guard out of the checking state.
func EvaluateGuard(kind GuardKind, s SessionReader) Decision {
	authenticated := s.IsAuthenticated()
	switch kind {
	case GuardAuthenticated:
		if !authenticated {
			return redirect(RouteSignIn)
		}
	case GuardAdmin:
		if !authenticated {
			return redirect(RouteSignIn)
		}
		if s.UserType() != domain.UserTypeAdmin {
			return redirect(RouteDashboard)
		}
	case GuardPublic:
		if authenticated {
			return redirect(DashboardFor(s.UserType()))
		}
	default:
		return redirect(RouteSignIn)
	}
	return Decision{State: GuardAuthorized}
}

// DashboardFor is the landing route for a user type.
func DashboardFor(t domain.UserType) string {
	if t == domain.UserTypeAdmin {
		return RouteAdminDashboard
	}
	return RouteDashboard
}

func redirect(route string) Decision {
	return Decision{State: GuardRedirected, Route: route}
}
