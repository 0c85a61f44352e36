package ui

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/jw6ventures/fitverse/internal/api"
	"github.com/jw6ventures/fitverse/internal/booking"
	"github.com/jw6ventures/fitverse/internal/cache"
	"github.com/jw6ventures/fitverse/internal/http/errors"
)

var (
	trainerSkills  = []string{"Weight Training", "Cardio", "Yoga", "Pilates", "CrossFit", "Martial Arts", "Nutrition Planning"}
	weekDays       = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	trainerClasses = []string{"Yoga", "Spinning", "Zumba", "HIIT", "Boxing", "Pilates"}
)

// Home renders the landing page. Each section loads on its own; a section
// whose data is unavailable is left empty.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	var (
		classes []api.Class
		team    []api.Trainer
		reviews []api.Review
		posts   []api.Forum
	)
	g, ctx := errgroup.WithContext(r.Context())
	section := func(name string, load func(ctx context.Context) error) {
		g.Go(func() error {
			if err := load(ctx); err != nil {
				errors.LogError(r, "home section "+name+" unavailable", err)
			}
			return nil
		})
	}
	section("classes", func(ctx context.Context) error {
		all, err := h.classes(ctx)
		classes = featuredClasses(all, 6)
		return err
	})
	section("team", func(ctx context.Context) error {
		all, err := h.trainers(ctx)
		team = all[:min(3, len(all))]
		return err
	})
	section("reviews", func(ctx context.Context) error {
		all, err := h.reviews(ctx)
		reviews = all[:min(9, len(all))]
		return err
	})
	section("community", func(ctx context.Context) error {
		all, err := h.forums(ctx)
		posts = latestPosts(all, 6)
		return err
	})
	_ = g.Wait()

	data := h.withFlash(r, map[string]any{
		"Title":           "Home",
		"FeaturedClasses": classes,
		"Team":            team,
		"Reviews":         reviews,
		"LatestPosts":     posts,
	})
	h.render(w, r, "home.html", data)
}

// featuredClasses returns the n most booked classes.
func featuredClasses(all []api.Class, n int) []api.Class {
	out := slices.Clone(all)
	slices.SortStableFunc(out, func(a, b api.Class) int { return cmp.Compare(b.BookingCount, a.BookingCount) })
	return out[:min(n, len(out))]
}

// latestPosts returns the n newest forum posts.
func latestPosts(all []api.Forum, n int) []api.Forum {
	out := slices.Clone(all)
	slices.SortStableFunc(out, func(a, b api.Forum) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out[:min(n, len(out))]
}

// Subscribe adds a newsletter subscription.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "/", map[string]string{"error": "invalid form"})
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	if name == "" || email == "" {
		h.redirect(w, r, "/", map[string]string{"error": "Please enter your name and email"})
		return
	}

	err := h.cache.Write(r.Context(), func(ctx context.Context) error {
		return h.api.Subscribe(ctx, name, email)
	}, cache.K(cache.ResSubscribers), cache.K(cache.ResDashboardStats))
	if err != nil {
		errors.LogError(r, "newsletter subscribe failed", err)
		h.redirect(w, r, "/", map[string]string{"error": failureMessage(err, "Failed to subscribe. Please try again.")})
		return
	}
	h.redirect(w, r, "/", map[string]string{"status": "Successfully subscribed to newsletter!"})
}

func (h *Handler) AllTrainers(w http.ResponseWriter, r *http.Request) {
	trainers, err := h.trainers(r.Context())
	if err != nil {
		h.upstreamFailure(w, r, err, "trainers")
		return
	}
	data := h.withFlash(r, map[string]any{
		"Title": "All Trainers",
		"Page":  paginate(trainers, parsePage(r), trainersPerPage),
	})
	h.render(w, r, "trainers.html", data)
}

func (h *Handler) TrainerDetails(w http.ResponseWriter, r *http.Request) {
	trainer, err := h.trainer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.upstreamFailure(w, r, err, "trainer")
		return
	}
	data := h.withFlash(r, map[string]any{
		"Title":   trainer.DisplayName(),
		"Trainer": trainer,
		"Slots":   booking.TrainerSlots(*trainer),
	})
	h.render(w, r, "trainer.html", data)
}

func (h *Handler) AllClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.classes(r.Context())
	if err != nil {
		h.upstreamFailure(w, r, err, "classes")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query != "" {
		needle := strings.ToLower(query)
		classes = slices.DeleteFunc(slices.Clone(classes), func(c api.Class) bool {
			return !strings.Contains(strings.ToLower(c.Name), needle)
		})
	}
	data := h.withFlash(r, map[string]any{
		"Title": "All Classes",
		"Query": query,
		"Page":  paginate(classes, parsePage(r), classesPerPage),
	})
	h.render(w, r, "classes.html", data)
}

func (h *Handler) ClassDetails(w http.ResponseWriter, r *http.Request) {
	class, err := h.class(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.upstreamFailure(w, r, err, "class")
		return
	}
	data := h.withFlash(r, map[string]any{
		"Title": class.Name,
		"Class": class,
	})
	h.render(w, r, "class.html", data)
}

type applicationForm struct {
	FullName      string
	Email         string
	Age           string
	Experience    string
	ProfileImage  string
	Biography     string
	AvailableTime string
	Facebook      string
	Twitter       string
	Instagram     string
	Skills        []string
	AvailableDays []string
	Classes       []string
}

// validate returns the first problem with the form, or "".
func (f applicationForm) validate() string {
	switch {
	case f.FullName == "" || f.Age == "" || f.Experience == "" || f.ProfileImage == "":
		return "Please fill in all required fields"
	case len(f.Skills) == 0:
		return "Please select at least one skill"
	case len(f.AvailableDays) == 0:
		return "Please select at least one available day"
	case f.AvailableTime == "":
		return "Please select your available time"
	}
	return ""
}

func (f applicationForm) trainer() api.Trainer {
	return api.Trainer{
		FullName:      f.FullName,
		Name:          f.FullName,
		Email:         f.Email,
		Age:           f.Age,
		ProfileImage:  f.ProfileImage,
		Experience:    f.Experience,
		Biography:     f.Biography,
		Facebook:      f.Facebook,
		Twitter:       f.Twitter,
		Instagram:     f.Instagram,
		Skills:        f.Skills,
		AvailableDays: f.AvailableDays,
		AvailableTime: f.AvailableTime,
		Classes:       f.Classes,
		Status:        "pending",
	}
}

func (h *Handler) BeATrainer(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	form := applicationForm{FullName: sess.DisplayName, Email: sess.Email}
	if profile, err := h.roles.Profile(r.Context(), sess.Email); err == nil && profile.Name != "" {
		form.FullName = profile.Name
	}
	h.showApplication(w, r, http.StatusOK, form, "")
}

func (h *Handler) showApplication(w http.ResponseWriter, r *http.Request, status int, form applicationForm, message string) {
	data := h.withFlash(r, map[string]any{
		"Title":   "Be a Trainer",
		"Form":    form,
		"Skills":  trainerSkills,
		"Days":    weekDays,
		"Classes": trainerClasses,
		"Error":   message,
	})
	h.renderStatus(w, r, status, "be_a_trainer.html", data)
}

func (h *Handler) BeATrainerSubmit(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	if err := r.ParseForm(); err != nil {
		h.showApplication(w, r, http.StatusBadRequest, applicationForm{Email: sess.Email}, "invalid form")
		return
	}
	form := applicationForm{
		FullName:      strings.TrimSpace(r.FormValue("fullName")),
		Email:         sess.Email,
		Age:           strings.TrimSpace(r.FormValue("age")),
		Experience:    strings.TrimSpace(r.FormValue("experience")),
		ProfileImage:  strings.TrimSpace(r.FormValue("profileImage")),
		Biography:     strings.TrimSpace(r.FormValue("biography")),
		AvailableTime: strings.TrimSpace(r.FormValue("availableTime")),
		Facebook:      strings.TrimSpace(r.FormValue("facebook")),
		Twitter:       strings.TrimSpace(r.FormValue("twitter")),
		Instagram:     strings.TrimSpace(r.FormValue("instagram")),
		Skills:        formValues(r, "skills"),
		AvailableDays: formValues(r, "availableDays"),
		Classes:       formValues(r, "classes"),
	}
	if msg := form.validate(); msg != "" {
		h.showApplication(w, r, http.StatusBadRequest, form, msg)
		return
	}

	err := h.cache.Write(r.Context(), func(ctx context.Context) error {
		return h.api.ApplyTrainer(ctx, form.trainer())
	}, cache.K(cache.ResPendingTrainers), cache.ByEmail(cache.ResFeedback, sess.Email))
	if err != nil {
		errors.LogError(r, "trainer application failed", err)
		h.showApplication(w, r, errors.UpstreamStatus(err), form, failureMessage(err, "Failed to submit application. Please try again."))
		return
	}
	h.redirect(w, r, "/dashboard/activity-logs", map[string]string{"status": "Trainer application submitted successfully!"})
}
