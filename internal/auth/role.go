package auth

import (
	"context"

	"github.com/jw6ventures/fitverse/internal/api"
	"github.com/jw6ventures/fitverse/internal/cache"
)

// UserKey is the cache key of a server-side profile.
func UserKey(email string) cache.Key {
	return cache.ByEmail(cache.ResUser, email)
}

// RoleResolver reads roles from the backend profile through the cache. The
// role is never taken from the session.
type RoleResolver struct {
	cache    *cache.Cache
	profiles ProfileAPI
}

func NewRoleResolver(c *cache.Cache, profiles ProfileAPI) *RoleResolver {
	return &RoleResolver{cache: c, profiles: profiles}
}

// Profile returns the cached server profile for email.
func (r *RoleResolver) Profile(ctx context.Context, email string) (*api.User, error) {
	return cache.Read(ctx, r.cache, UserKey(email), func(ctx context.Context) (*api.User, error) {
		return r.profiles.GetUser(ctx, email)
	})
}

func (r *RoleResolver) Role(ctx context.Context, email string) (api.Role, error) {
	user, err := r.Profile(ctx, email)
	if err != nil {
		return api.RoleUnauthenticated, err
	}
	return api.ParseRole(string(user.Role)), nil
}

// Forget drops a failed lookup so the user's next navigation tries again.
func (r *RoleResolver) Forget(email string) {
	r.cache.Expire(UserKey(email))
}

// ExpireOn drops the cached profile of every user whose session changes, so
// the next guarded request reads the role afresh.
func (r *RoleResolver) ExpireOn(svc *Service) func() {
	return svc.Subscribe(func(ev Event) {
		if ev.Email != "" {
			r.cache.Expire(UserKey(ev.Email))
		}
	})
}
