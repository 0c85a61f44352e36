package ui

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jw6ventures/fitverse/internal/api"
	"github.com/jw6ventures/fitverse/internal/auth"
	"github.com/jw6ventures/fitverse/internal/cache"
	"github.com/jw6ventures/fitverse/internal/http/errors"
)

func (h *Handler) Subscribers(w http.ResponseWriter, r *http.Request) {
	subscribers, err := h.subscribers(r.Context())
	if err != nil {
		h.upstreamFailure(w, r, err, "subscribers")
		return
	}
	h.render(w, r, "subscribers.html", h.dashboard(r, map[string]any{
		"Title":       "Newsletter Subscribers",
		"Subscribers": subscribers,
	}))
}

func (h *Handler) AdminTrainers(w http.ResponseWriter, r *http.Request) {
	trainers, err := h.trainers(r.Context())
	if err != nil {
		h.upstreamFailure(w, r, err, "trainers")
		return
	}
	h.render(w, r, "admin_trainers.html", h.dashboard(r, map[string]any{
		"Title":    "All Trainers",
		"Trainers": trainers,
	}))
}

func (h *Handler) DeleteTrainer(w http.ResponseWriter, r *http.Request) {
	const back = "/dashboard/all-trainers"
	id := chi.URLParam(r, "id")
	err := h.cache.Write(r.Context(), func(ctx context.Context) error {
		return h.api.DeleteTrainer(ctx, id)
	}, cache.K(cache.ResTrainers), cache.K(cache.ResTrainer, id))
	if err != nil {
		errors.LogError(r, "delete trainer failed", err)
		h.redirect(w, r, back, map[string]string{"error": failureMessage(err, "Failed to delete trainer")})
		return
	}
	errors.LogInfo(r, "trainer deleted", "trainer", id)
	h.redirect(w, r, back, map[string]string{"status": "Trainer removed successfully"})
}

func (h *Handler) AppliedTrainers(w http.ResponseWriter, r *http.Request) {
	pending, err := h.pendingTrainers(r.Context())
	if err != nil {
		h.upstreamFailure(w, r, err, "applications")
		return
	}
	h.render(w, r, "applied_trainers.html", h.dashboard(r, map[string]any{
		"Title":        "Applied Trainers",
		"Applications": pending,
	}))
}

// application finds a pending application by id.
func (h *Handler) application(r *http.Request, id string) (api.Trainer, bool) {
	pending, err := h.pendingTrainers(r.Context())
	if err != nil {
		return api.Trainer{}, false
	}
	for _, t := range pending {
		if t.ID == id {
			return t, true
		}
	}
	return api.Trainer{}, false
}

// decisionKeys are the entries an approval or rejection changes.
func decisionKeys(id, email string) []cache.Key {
	keys := []cache.Key{
		cache.K(cache.ResPendingTrainers),
		cache.K(cache.ResTrainers),
		cache.K(cache.ResTrainer, id),
	}
	if email != "" {
		keys = append(keys, cache.ByEmail(cache.ResFeedback, email), auth.UserKey(email))
	}
	return keys
}

// ApproveTrainer activates a pending application. The applicant's cached
// profile is dropped so their new role applies on their next request.
func (h *Handler) ApproveTrainer(w http.ResponseWriter, r *http.Request) {
	const back = "/dashboard/applied-trainers"
	id := chi.URLParam(r, "id")
	applicant, found := h.application(r, id)

	err := h.cache.Write(r.Context(), func(ctx context.Context) error {
		return h.api.UpdateTrainerStatus(ctx, id, "active")
	}, decisionKeys(id, applicant.Email)...)
	if err != nil {
		errors.LogError(r, "approve trainer failed", err)
		h.redirect(w, r, back, map[string]string{"error": failureMessage(err, "Failed to approve trainer. Please try again.")})
		return
	}
	if found {
		h.roles.Forget(applicant.Email)
		h.notifyDecision(r, api.Feedback{Email: applicant.Email, Status: "approved"})
	}
	h.redirect(w, r, back, map[string]string{"status": "Trainer approved successfully"})
}

// RejectTrainer declines a pending application with feedback for the
// applicant.
func (h *Handler) RejectTrainer(w http.ResponseWriter, r *http.Request) {
	const back = "/dashboard/applied-trainers"
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, back, map[string]string{"error": "invalid form"})
		return
	}
	feedback := strings.TrimSpace(r.FormValue("feedback"))
	if feedback == "" {
		h.redirect(w, r, back, map[string]string{"error": "Please provide feedback for the applicant"})
		return
	}
	id := chi.URLParam(r, "id")
	applicant, found := h.application(r, id)

	err := h.cache.Write(r.Context(), func(ctx context.Context) error {
		return h.api.RejectTrainer(ctx, id, feedback)
	}, decisionKeys(id, applicant.Email)...)
	if err != nil {
		errors.LogError(r, "reject trainer failed", err)
		h.redirect(w, r, back, map[string]string{"error": api.Message(err, "Failed to reject trainer. Please try again.")})
		return
	}
	if found {
		h.notifyDecision(r, api.Feedback{Email: applicant.Email, Status: "rejected", Feedback: feedback})
	}
	h.redirect(w, r, back, map[string]string{"status": "Trainer application rejected"})
}

func (h *Handler) notifyDecision(r *http.Request, decision api.Feedback) {
	if h.decisions == nil || decision.Email == "" {
		return
	}
	if err := h.decisions.SendTrainerDecision(r.Context(), decision); err != nil {
		errors.LogError(r, "decision mail failed", err)
	}
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboardStats(r.Context())
	if err != nil {
		h.upstreamFailure(w, r, err, "balance")
		return
	}
	total := 0.0
	for _, b := range stats.Bookings {
		total += b.Amount
	}
	h.render(w, r, "balance.html", h.dashboard(r, map[string]any{
		"Title":       "Balance",
		"Total":       total,
		"Recent":      recentTransactions(stats.Bookings, 6),
		"Subscribers": len(stats.Stats),
		"PaidMembers": len(stats.Bookings),
		"ChartMax":    max(len(stats.Stats), len(stats.Bookings), 1),
	}))
}

// recentTransactions returns the last n bookings, newest first.
func recentTransactions(bookings []api.Payment, n int) []api.Payment {
	start := max(len(bookings)-n, 0)
	out := make([]api.Payment, 0, len(bookings)-start)
	for i := len(bookings) - 1; i >= start; i-- {
		out = append(out, bookings[i])
	}
	return out
}

type classForm struct {
	Name        string
	Image       string
	Description string
}

func (h *Handler) AddClass(w http.ResponseWriter, r *http.Request) {
	h.showAddClass(w, r, http.StatusOK, classForm{}, "")
}

func (h *Handler) showAddClass(w http.ResponseWriter, r *http.Request, status int, form classForm, message string) {
	h.renderStatus(w, r, status, "add_class.html", h.dashboard(r, map[string]any{
		"Title": "Add Class",
		"Form":  form,
		"Error": message,
	}))
}

func (h *Handler) AddClassSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.showAddClass(w, r, http.StatusBadRequest, classForm{}, "invalid form")
		return
	}
	form := classForm{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Image:       strings.TrimSpace(r.FormValue("image")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if form.Name == "" || form.Description == "" {
		h.showAddClass(w, r, http.StatusBadRequest, form, "Please fill in all required fields")
		return
	}

	err := h.cache.Write(r.Context(), func(ctx context.Context) error {
		return h.api.CreateClass(ctx, api.Class{Name: form.Name, Image: form.Image, Description: form.Description})
	}, cache.K(cache.ResClasses))
	if err != nil {
		errors.LogError(r, "add class failed", err)
		h.showAddClass(w, r, errors.UpstreamStatus(err), form, api.Message(err, "Failed to add class"))
		return
	}
	h.redirect(w, r, "/dashboard/add-class", map[string]string{"status": "Class added successfully"})
}
