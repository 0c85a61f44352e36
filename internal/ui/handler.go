package ui

import (
	"context"
	"html/template"

	"github.com/jw6ventures/fitverse/internal/api"
	"github.com/jw6ventures/fitverse/internal/auth"
	"github.com/jw6ventures/fitverse/internal/booking"
	"github.com/jw6ventures/fitverse/internal/cache"
	"github.com/jw6ventures/fitverse/internal/config"
)

// DecisionMailer tells an applicant what happened to their trainer
// application.
type DecisionMailer interface {
	SendTrainerDecision(ctx context.Context, decision api.Feedback) error
}

// Handler serves server-rendered HTML pages.
type Handler struct {
	cfg       *config.Config
	api       *api.Client
	cache     *cache.Cache
	auth      *auth.Service
	roles     *auth.RoleResolver
	bookings  *booking.Service
	decisions DecisionMailer
	templates map[string]*template.Template
}

// Option configures a Handler.
type Option func(*Handler)

// WithDecisionMailer mails applicants when an admin approves or rejects
// their application.
func WithDecisionMailer(m DecisionMailer) Option {
	return func(h *Handler) { h.decisions = m }
}

func NewHandler(cfg *config.Config, client *api.Client, c *cache.Cache, authService *auth.Service, roles *auth.RoleResolver, bookings *booking.Service, opts ...Option) *Handler {
	h := &Handler{
		cfg:       cfg,
		api:       client,
		cache:     c,
		auth:      authService,
		roles:     roles,
		bookings:  bookings,
		templates: templates,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}
