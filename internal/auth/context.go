package auth

import (
	"context"

	"github.com/jw6ventures/fitverse/internal/api"
)

type contextKey string

const (
	contextKeySession contextKey = "session"
	contextKeyRole    contextKey = "role"
)

func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKeySession, sess)
}

// SessionFromContext returns the signed-in session, if any.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKeySession).(*Session)
	return s, ok && s != nil
}

// WithRole records the role a guard resolved for this request.
func WithRole(ctx context.Context, role api.Role) context.Context {
	return context.WithValue(ctx, contextKeyRole, role)
}

// RoleFromContext returns the role resolved by a guard, or
// RoleUnauthenticated when no guard ran.
func RoleFromContext(ctx context.Context) api.Role {
	if r, ok := ctx.Value(contextKeyRole).(api.Role); ok {
		return r
	}
	return api.RoleUnauthenticated
}
