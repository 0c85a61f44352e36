package ui

import (
	"context"
	"net/http"

	"github.com/jw6ventures/fitverse/internal/api"
	"github.com/jw6ventures/fitverse/internal/cache"
)

// Every page reads backend data through the cache so that writes elsewhere
// invalidate what the next render shows.

// load reads key through the cache. On a retry request a remembered fetch
// failure is dropped first, so the backend is asked again instead of the
// error being served until it ages out.
func load[T any](ctx context.Context, h *Handler, key cache.Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	if retrying(ctx) {
		if status, ok := h.cache.Status(key); ok && status == cache.StatusError {
			h.cache.Expire(key)
		}
	}
	return cache.Read(ctx, h.cache, key, fetch)
}

type retryKey struct{}

// RetryFailed marks requests carrying retry=1, the link the error page
// offers after a failed backend read.
func RetryFailed(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("retry") == "1" {
			r = r.WithContext(context.WithValue(r.Context(), retryKey{}, true))
		}
		next.ServeHTTP(w, r)
	})
}

func retrying(ctx context.Context) bool {
	v, _ := ctx.Value(retryKey{}).(bool)
	return v
}

// retryURL is the current page with retry=1 set.
func retryURL(r *http.Request) string {
	q := r.URL.Query()
	q.Set("retry", "1")
	q.Del("error")
	q.Del("status")
	return r.URL.Path + "?" + q.Encode()
}

func (h *Handler) trainers(ctx context.Context) ([]api.Trainer, error) {
	return load(ctx, h, cache.K(cache.ResTrainers), h.api.ListTrainers)
}

func (h *Handler) trainer(ctx context.Context, id string) (*api.Trainer, error) {
	return load(ctx, h, cache.K(cache.ResTrainer, id), func(ctx context.Context) (*api.Trainer, error) {
		return h.api.GetTrainer(ctx, id)
	})
}

func (h *Handler) pendingTrainers(ctx context.Context) ([]api.Trainer, error) {
	return load(ctx, h, cache.K(cache.ResPendingTrainers), h.api.ListPendingTrainers)
}

func (h *Handler) classes(ctx context.Context) ([]api.Class, error) {
	return load(ctx, h, cache.K(cache.ResClasses), h.api.ListClasses)
}

func (h *Handler) class(ctx context.Context, id string) (*api.Class, error) {
	return load(ctx, h, cache.K(cache.ResClass, id), func(ctx context.Context) (*api.Class, error) {
		return h.api.GetClass(ctx, id)
	})
}

func (h *Handler) forums(ctx context.Context) ([]api.Forum, error) {
	return load(ctx, h, cache.K(cache.ResForums), h.api.ListForums)
}

func (h *Handler) forum(ctx context.Context, id string) (*api.Forum, error) {
	return load(ctx, h, cache.K(cache.ResForum, id), func(ctx context.Context) (*api.Forum, error) {
		return h.api.GetForum(ctx, id)
	})
}

func (h *Handler) reviews(ctx context.Context) ([]api.Review, error) {
	return load(ctx, h, cache.K(cache.ResReviews), h.api.ListReviews)
}

func (h *Handler) subscribers(ctx context.Context) ([]api.Subscriber, error) {
	return load(ctx, h, cache.K(cache.ResSubscribers), h.api.ListSubscribers)
}

func (h *Handler) slots(ctx context.Context, email string) ([]api.Slot, error) {
	return load(ctx, h, cache.ByEmail(cache.ResSlots, email), func(ctx context.Context) ([]api.Slot, error) {
		return h.api.ListSlots(ctx, email)
	})
}

func (h *Handler) bookedTrainers(ctx context.Context, email string) ([]api.Payment, error) {
	return load(ctx, h, cache.ByEmail(cache.ResBookedTrainers, email), func(ctx context.Context) ([]api.Payment, error) {
		return h.api.ListBookedTrainers(ctx, email)
	})
}

func (h *Handler) applications(ctx context.Context, email string) ([]api.Trainer, error) {
	return load(ctx, h, cache.ByEmail(cache.ResFeedback, email), func(ctx context.Context) ([]api.Trainer, error) {
		return h.api.ListApplications(ctx, email)
	})
}

func (h *Handler) dashboardStats(ctx context.Context) (*api.DashboardStats, error) {
	return load(ctx, h, cache.K(cache.ResDashboardStats), h.api.DashboardStats)
}
