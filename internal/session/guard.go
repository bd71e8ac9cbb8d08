package session

import "github.com/raine/storefront/internal/auth"

// Guard decides whether a session may enter a route. Check is a pure
// predicate: it never mutates state or performs I/O.
type Guard struct {
	Name     string
	Allow    func(s *auth.Session) bool
	Redirect Route
	Message  string
}

// Decision is the outcome of a guard check.
type Decision struct {
	Allowed  bool
	Redirect Route
	Message  string
}

// Check evaluates the guard against s. A nil session is logged out.
func (g Guard) Check(s *auth.Session) Decision {
	if g.Allow(s) {
		return Decision{Allowed: true}
	}
	return Decision{Redirect: g.Redirect, Message: g.Message}
}

var (
	// RequireAuthenticated admits any session and sends everyone else to login.
	RequireAuthenticated = Guard{
		Name:     "authenticated",
		Allow:    func(s *auth.Session) bool { return s != nil },
		Redirect: RouteLogin,
		Message:  "You must log in to access this page",
	}

	// RequirePrivileged admits staff sessions and sends everyone else home.
	RequirePrivileged = Guard{
		Name:     "privileged",
		Allow:    func(s *auth.Session) bool { return s != nil && s.IsPrivileged },
		Redirect: RouteHome,
		Message:  "Access denied. Administrator permissions are required.",
	}
)
