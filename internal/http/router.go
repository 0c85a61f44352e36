package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/jw6ventures/fitverse/internal/api"
	"github.com/jw6ventures/fitverse/internal/auth"
	"github.com/jw6ventures/fitverse/internal/config"
	"github.com/jw6ventures/fitverse/internal/http/csrf"
	"github.com/jw6ventures/fitverse/internal/http/ratelimit"
	"github.com/jw6ventures/fitverse/internal/metrics"
	"github.com/jw6ventures/fitverse/internal/ui"
)

// HealthChecker reports whether the session database is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewRouter wires all HTTP routes for the web front end.
func NewRouter(cfg *config.Config, db HealthChecker, authService *auth.Service, guard *auth.Guard, uiHandler *ui.Handler) http.Handler {
	r := chi.NewRouter()

	// Auth endpoints: 5 requests per second, burst of 10
	authRateLimiter := ratelimit.NewIPRateLimiter(rate.Limit(5), 10, 5*time.Minute, cfg.TrustedProxies)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(overrideMethod)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			http.Error(w, "unready", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.PrometheusEnabled {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			metrics.Handler().ServeHTTP(w, r)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(authService.LoadSession)
		r.Use(csrf.Middleware(cfg))
		r.Use(ui.RetryFailed)

		// Public pages resolve the role when a session exists so the
		// navigation can show the dashboard link.
		r.Group(func(r chi.Router) {
			r.Use(guard.Optional)
			r.Get("/", uiHandler.Home)
			r.Post("/newsletter", uiHandler.Subscribe)
			r.Get("/all-trainer", uiHandler.AllTrainers)
			r.Get("/trainer/{id}", uiHandler.TrainerDetails)
			r.Get("/all-classes", uiHandler.AllClasses)
			r.Get("/classes/{id}", uiHandler.ClassDetails)
			r.Get("/forums", uiHandler.Forums)
			r.Get("/forums/{id}", uiHandler.ForumDetails)
			r.Get("/forums/{id}/events", uiHandler.ForumEvents)
			r.Post("/forums/{id}/vote", uiHandler.Vote)

			r.Get("/login", uiHandler.Login)
			r.Get("/trainer-login", uiHandler.TrainerLogin)
			r.Get("/admin-login", uiHandler.AdminLogin)
			r.Get("/register", uiHandler.Register)
			r.Get(cfg.OAuth.RedirectPath, uiHandler.FederatedCallback)
			r.Post("/logout", uiHandler.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(authRateLimiter.Middleware())
			r.Post("/login", uiHandler.LoginSubmit)
			r.Post("/trainer-login", uiHandler.TrainerLoginSubmit)
			r.Post("/admin-login", uiHandler.AdminLoginSubmit)
			r.Post("/register", uiHandler.RegisterSubmit)
			r.Post("/auth/federated", uiHandler.FederatedLogin)
		})

		// Any signed-in user.
		r.Group(func(r chi.Router) {
			r.Use(guard.Require("/login"))
			r.Get("/be-a-trainer", uiHandler.BeATrainer)
			r.Post("/be-a-trainer", uiHandler.BeATrainerSubmit)

			r.Get("/booking/{id}/{slotId}", uiHandler.Booking)
			r.Post("/booking/{id}/{slotId}", uiHandler.StartBooking)
			r.Get("/payment", uiHandler.Payment)
			r.Post("/payment/package", uiHandler.ChangePackage)
			r.Get("/final-payment", uiHandler.FinalPayment)
			r.Post("/final-payment", uiHandler.SubmitPayment)
			r.Get("/payment-success", uiHandler.PaymentSuccess)

			r.Get("/dashboard", uiHandler.Dashboard)
			r.Get("/dashboard/profile", uiHandler.Profile)
			r.Post("/dashboard/profile", uiHandler.UpdateProfile)
			r.Get("/dashboard/activity-logs", uiHandler.ActivityLogs)
			r.Get("/dashboard/booked-trainers", uiHandler.BookedTrainers)
			r.Post("/dashboard/booked-trainers/review", uiHandler.SubmitReview)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Require("/login", api.RoleAdmin, api.RoleTrainer))
			r.Get("/dashboard/forums", uiHandler.AddForum)
			r.Post("/dashboard/forums", uiHandler.AddForumSubmit)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Require("/admin-login", api.RoleAdmin))
			r.Get("/dashboard/subscribers", uiHandler.Subscribers)
			r.Get("/dashboard/all-trainers", uiHandler.AdminTrainers)
			r.Delete("/dashboard/all-trainers/{id}", uiHandler.DeleteTrainer)
			r.Post("/dashboard/all-trainers/{id}/delete", uiHandler.DeleteTrainer) // HTML form fallback
			r.Get("/dashboard/applied-trainers", uiHandler.AppliedTrainers)
			r.Post("/dashboard/applied-trainers/{id}/approve", uiHandler.ApproveTrainer)
			r.Post("/dashboard/applied-trainers/{id}/reject", uiHandler.RejectTrainer)
			r.Get("/dashboard/balance", uiHandler.Balance)
			r.Get("/dashboard/add-class", uiHandler.AddClass)
			r.Post("/dashboard/add-class", uiHandler.AddClassSubmit)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Require("/trainer-login", api.RoleTrainer))
			r.Get("/dashboard/manage-slot", uiHandler.ManageSlots)
			r.Delete("/dashboard/manage-slot/{id}", uiHandler.DeleteSlot)
			r.Post("/dashboard/manage-slot/{id}/delete", uiHandler.DeleteSlot) // HTML form fallback
			r.Get("/dashboard/add-slot", uiHandler.AddSlot)
			r.Post("/dashboard/add-slot", uiHandler.AddSlotSubmit)
		})
	})

	return r
}

func overrideMethod(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.Method
		if r.Method == http.MethodPost {
			if m := strings.TrimSpace(r.PostFormValue("_method")); m != "" {
				method = m
			} else if m := strings.TrimSpace(r.URL.Query().Get("_method")); m != "" {
				method = m
			}
		}
		switch strings.ToUpper(method) {
		case http.MethodPut, http.MethodDelete:
			r.Method = strings.ToUpper(method)
		}
		next.ServeHTTP(w, r)
	})
}
