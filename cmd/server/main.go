package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jw6ventures/fitverse/internal/api"
	appauth "github.com/jw6ventures/fitverse/internal/auth"
	"github.com/jw6ventures/fitverse/internal/booking"
	"github.com/jw6ventures/fitverse/internal/cache"
	"github.com/jw6ventures/fitverse/internal/config"
	httpserver "github.com/jw6ventures/fitverse/internal/http"
	"github.com/jw6ventures/fitverse/internal/notify"
	"github.com/jw6ventures/fitverse/internal/store"
	"github.com/jw6ventures/fitverse/internal/ui"
)

const sessionPurgeInterval = time.Hour

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	log.Println("Starting Fitverse server...")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("failed to create db pool: %v", err)
	}
	defer pool.Close()

	if err := store.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}
	stor := store.New(pool)

	remote := cache.New(cache.WithMaxAge(cfg.Cache.MaxAge), cache.WithFetchTimeout(cfg.Cache.FetchTimeout))
	client := api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithTokenSource(appauth.NewBackendTokens(cfg.API.TokenSecret, 5*time.Minute)),
	)

	var authOpts []appauth.Option
	authOpts = append(authOpts, appauth.WithSessionTTL(cfg.Session.TTL))
	if cfg.FederatedLoginEnabled() {
		provider, err := appauth.NewOIDCProvider(ctx, cfg)
		if err != nil {
			log.Fatalf("failed to initialize federated login: %v", err)
		}
		authOpts = append(authOpts, appauth.WithFederated(provider))
	}
	sessionManager := appauth.NewSessionManager(cfg)
	authService := appauth.NewService(stor, client, sessionManager, authOpts...)

	roles := appauth.NewRoleResolver(remote, client)
	defer roles.ExpireOn(authService)()
	guard := appauth.NewGuard(roles)

	mailer := notify.NewMailer(cfg.Mail.ResendAPIKey, cfg.Mail.From)
	var bookingOpts []booking.Option
	var uiOpts []ui.Option
	if mailer != nil {
		bookingOpts = append(bookingOpts, booking.WithReceipts(mailer))
		uiOpts = append(uiOpts, ui.WithDecisionMailer(mailer))
	} else {
		slog.Warn("config_warning", "detail", "APP_RESEND_API_KEY not set; receipts and decision mail are disabled")
	}
	bookings := booking.NewService(client, booking.NewStripeProcessor(cfg.Stripe.SecretKey, nil), remote, bookingOpts...)

	uiHandler := ui.NewHandler(cfg, client, remote, authService, roles, bookings, uiOpts...)
	r := httpserver.NewRouter(cfg, stor, authService, guard, uiHandler)

	go purgeSessions(ctx, authService)

	srv := &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Forum event streams clear their own write deadline.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func purgeSessions(ctx context.Context, authService *appauth.Service) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := authService.PurgeExpired(ctx)
			if err != nil {
				slog.Error("auth_event", "kind", "session_purge_failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("auth_event", "kind", "sessions_purged", "count", n)
			}
		}
	}
}
