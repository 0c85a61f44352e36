package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"github.com/jw6ventures/fitverse/internal/api"
)

// Decision is the state of a route guard for one request.
type Decision int

const (
	Checking Decision = iota
	Authorized
	Denied
)

func (d Decision) String() string {
	switch d {
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	default:
		return "checking"
	}
}

// Guard gates routes on the session and the backend role.
type Guard struct {
	roles *RoleResolver
}

func NewGuard(roles *RoleResolver) *Guard {
	return &Guard{roles: roles}
}

// Check resolves the decision for ctx. With no allowed roles any signed-in
// user is authorized. Lookup failures deny.
func (g *Guard) Check(ctx context.Context, allowed ...api.Role) (Decision, api.Role) {
	sess, ok := SessionFromContext(ctx)
	if !ok {
		return Denied, api.RoleUnauthenticated
	}
	role, err := g.roles.Role(ctx, sess.Email)
	if err != nil {
		slog.Warn("auth_event", "kind", "role_lookup_failed", "email", sess.Email, "error", err)
		g.roles.Forget(sess.Email)
		return Denied, api.RoleUnauthenticated
	}
	if len(allowed) == 0 || slices.Contains(allowed, role) {
		return Authorized, role
	}
	return Denied, role
}

// Require redirects denied requests to loginPath with the requested location
// in the next parameter.
func (g *Guard) Require(loginPath string, allowed ...api.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, role := g.Check(r.Context(), allowed...)
			if decision != Authorized {
				target := loginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithRole(r.Context(), role)))
		})
	}
}

// Optional resolves the role for signed-in users without gating the route.
func (g *Guard) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); ok {
			if decision, role := g.Check(r.Context()); decision == Authorized {
				r = r.WithContext(WithRole(r.Context(), role))
			}
		}
		next.ServeHTTP(w, r)
	})
}
