package ui

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jw6ventures/fitverse/internal/api"
	"github.com/jw6ventures/fitverse/internal/auth"
	"github.com/jw6ventures/fitverse/internal/cache"
	"github.com/jw6ventures/fitverse/internal/http/errors"
)

// dashboard marks data for rendering inside the role menu layout.
func (h *Handler) dashboard(r *http.Request, data map[string]any) map[string]any {
	data["Dashboard"] = true
	return h.withFlash(r, data)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	profile, err := h.roles.Profile(r.Context(), session(r).Email)
	if err != nil {
		h.upstreamFailure(w, r, err, "profile")
		return
	}
	h.render(w, r, "dashboard.html", h.dashboard(r, map[string]any{
		"Title":   "Dashboard",
		"Profile": profile,
	}))
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.roles.Profile(r.Context(), session(r).Email)
	if err != nil {
		h.upstreamFailure(w, r, err, "profile")
		return
	}
	h.render(w, r, "profile.html", h.dashboard(r, map[string]any{
		"Title":   "Profile",
		"Profile": profile,
	}))
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "/dashboard/profile", map[string]string{"error": "invalid form"})
		return
	}
	update := api.ProfileUpdate{
		Name:     strings.TrimSpace(r.FormValue("name")),
		PhotoURL: strings.TrimSpace(r.FormValue("photoURL")),
	}
	if update.Name == "" {
		h.redirect(w, r, "/dashboard/profile", map[string]string{"error": "Name is required"})
		return
	}

	email := session(r).Email
	err := h.cache.Write(r.Context(), func(ctx context.Context) error {
		return h.api.UpdateUser(ctx, email, update)
	}, auth.UserKey(email))
	if err != nil {
		errors.LogError(r, "update profile failed", err)
		h.redirect(w, r, "/dashboard/profile", map[string]string{"error": failureMessage(err, "Failed to update profile")})
		return
	}
	h.redirect(w, r, "/dashboard/profile", map[string]string{"status": "Profile updated successfully!"})
}

// ActivityLogs lists the member's trainer applications that are still
// pending or were rejected.
func (h *Handler) ActivityLogs(w http.ResponseWriter, r *http.Request) {
	email := session(r).Email
	all, err := h.applications(r.Context(), email)
	if err != nil && !stderrors.Is(err, api.ErrNotFound) {
		h.upstreamFailure(w, r, err, "applications")
		return
	}

	var open []api.Trainer
	missingFeedback := false
	for _, app := range all {
		switch app.Status {
		case "approved", "active":
			continue
		case "rejected":
			missingFeedback = missingFeedback || app.Feedback == ""
		}
		open = append(open, app)
	}
	if missingFeedback {
		h.fillFeedback(r, email, open)
	}

	h.render(w, r, "activity_logs.html", h.dashboard(r, map[string]any{
		"Title":        "Activity Log",
		"Applications": open,
	}))
}

// fillFeedback copies the recorded decision onto rejected applications
// that were returned without one.
func (h *Handler) fillFeedback(r *http.Request, email string, apps []api.Trainer) {
	decision, err := h.api.TrainerFeedback(r.Context(), email)
	if err != nil {
		if !stderrors.Is(err, api.ErrNotFound) {
			errors.LogError(r, "trainer feedback lookup failed", err)
		}
		return
	}
	for i := range apps {
		if apps[i].Status == "rejected" && apps[i].Feedback == "" {
			apps[i].Feedback = decision.Feedback
		}
	}
}

func (h *Handler) BookedTrainers(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookedTrainers(r.Context(), session(r).Email)
	if err != nil {
		h.upstreamFailure(w, r, err, "booked trainers")
		return
	}
	h.render(w, r, "booked_trainers.html", h.dashboard(r, map[string]any{
		"Title":    "Booked Trainers",
		"Bookings": bookings,
		"Ratings":  []int{1, 2, 3, 4, 5},
	}))
}

// SubmitReview rates a booked trainer.
func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	const back = "/dashboard/booked-trainers"
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, back, map[string]string{"error": "invalid form"})
		return
	}
	rating, err := strconv.Atoi(r.FormValue("rating"))
	if err != nil || rating < 1 || rating > 5 {
		h.redirect(w, r, back, map[string]string{"error": "Please select a rating"})
		return
	}
	text := strings.TrimSpace(r.FormValue("review"))
	trainerID := strings.TrimSpace(r.FormValue("trainerId"))
	if text == "" || trainerID == "" {
		h.redirect(w, r, back, map[string]string{"error": "Please write a review"})
		return
	}

	sess := session(r)
	review := api.Review{
		TrainerID:   trainerID,
		TrainerName: strings.TrimSpace(r.FormValue("trainerName")),
		UserEmail:   sess.Email,
		UserName:    sess.DisplayName,
		UserPhoto:   sess.PhotoURL,
		Rating:      rating,
		Review:      text,
		Date:        time.Now().UTC().Format(time.RFC3339),
	}
	if profile, err := h.roles.Profile(r.Context(), sess.Email); err == nil {
		review.UserName = profile.Name
		review.UserPhoto = profile.PhotoURL
	}

	err = h.cache.Write(r.Context(), func(ctx context.Context) error {
		return h.api.CreateReview(ctx, review)
	}, cache.K(cache.ResReviews), cache.K(cache.ResTrainer, trainerID))
	if err != nil {
		errors.LogError(r, "submit review failed", err)
		h.redirect(w, r, back, map[string]string{"error": failureMessage(err, "Failed to submit review. Please try again.")})
		return
	}
	h.redirect(w, r, back, map[string]string{"status": "Review submitted successfully!"})
}
