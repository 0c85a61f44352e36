package ui

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jw6ventures/fitverse/internal/api"
	"github.com/jw6ventures/fitverse/internal/cache"
	"github.com/jw6ventures/fitverse/internal/http/errors"
)

func (h *Handler) ManageSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.slots(r.Context(), session(r).Email)
	if err != nil {
		h.upstreamFailure(w, r, err, "slots")
		return
	}
	h.render(w, r, "manage_slots.html", h.dashboard(r, map[string]any{
		"Title": "Manage Slots",
		"Slots": slots,
	}))
}

func (h *Handler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	const back = "/dashboard/manage-slot"
	id := chi.URLParam(r, "id")
	email := session(r).Email
	err := h.cache.Write(r.Context(), func(ctx context.Context) error {
		return h.api.DeleteSlot(ctx, id)
	}, cache.ByEmail(cache.ResSlots, email))
	if err != nil {
		errors.LogError(r, "delete slot failed", err)
		h.redirect(w, r, back, map[string]string{"error": failureMessage(err, "Failed to delete slot")})
		return
	}
	h.redirect(w, r, back, map[string]string{"status": "Slot deleted successfully"})
}

type slotForm struct {
	Days      []string
	Time      string
	ClassName string
}

func (h *Handler) AddSlot(w http.ResponseWriter, r *http.Request) {
	h.showAddSlot(w, r, http.StatusOK, slotForm{}, "")
}

func (h *Handler) showAddSlot(w http.ResponseWriter, r *http.Request, status int, form slotForm, message string) {
	classes, err := h.classes(r.Context())
	if err != nil {
		errors.LogError(r, "classes unavailable for slot form", err)
	}
	h.renderStatus(w, r, status, "add_slot.html", h.dashboard(r, map[string]any{
		"Title":   "Add Slot",
		"Form":    form,
		"Days":    weekDays,
		"Classes": classes,
		"Error":   message,
	}))
}

func (h *Handler) AddSlotSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.showAddSlot(w, r, http.StatusBadRequest, slotForm{}, "invalid form")
		return
	}
	form := slotForm{
		Days:      formValues(r, "days"),
		Time:      strings.TrimSpace(r.FormValue("slotTime")),
		ClassName: strings.TrimSpace(r.FormValue("className")),
	}
	switch {
	case len(form.Days) == 0:
		h.showAddSlot(w, r, http.StatusBadRequest, form, "Please select at least one day")
		return
	case form.Time == "":
		h.showAddSlot(w, r, http.StatusBadRequest, form, "Please select a slot time")
		return
	}

	email := session(r).Email
	err := h.cache.Write(r.Context(), func(ctx context.Context) error {
		return h.api.AddTrainerSlots(ctx, email, api.SlotRequest{Days: form.Days, Time: form.Time, ClassName: form.ClassName})
	}, cache.ByEmail(cache.ResSlots, email), cache.K(cache.ResTrainers))
	if err != nil {
		errors.LogError(r, "add slot failed", err)
		h.showAddSlot(w, r, errors.UpstreamStatus(err), form, failureMessage(err, "Failed to add slot. Please try again."))
		return
	}
	h.redirect(w, r, "/dashboard/manage-slot", map[string]string{"status": "Slot added successfully"})
}
