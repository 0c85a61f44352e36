package ui

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jw6ventures/fitverse/internal/api"
	"github.com/jw6ventures/fitverse/internal/booking"
	"github.com/jw6ventures/fitverse/internal/http/errors"
)

// bookingSlot loads the trainer and decodes the slot named in the URL.
func (h *Handler) bookingSlot(w http.ResponseWriter, r *http.Request) (*api.Trainer, booking.Slot, bool) {
	trainer, err := h.trainer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.upstreamFailure(w, r, err, "trainer")
		return nil, booking.Slot{}, false
	}
	var slot booking.Slot
	index, err := strconv.Atoi(chi.URLParam(r, "slotId"))
	if err == nil {
		slot, err = booking.TrainerSlot(*trainer, index)
	}
	if err != nil {
		h.notFound(w, r, "That slot is not available")
		return nil, booking.Slot{}, false
	}
	return trainer, slot, true
}

// Booking shows the membership packages for one trainer slot.
func (h *Handler) Booking(w http.ResponseWriter, r *http.Request) {
	trainer, slot, ok := h.bookingSlot(w, r)
	if !ok {
		return
	}
	data := h.withFlash(r, map[string]any{
		"Title":    "Book " + trainer.DisplayName(),
		"Trainer":  trainer,
		"Slot":     slot,
		"Packages": h.bookings.Catalog(),
	})
	h.render(w, r, "booking.html", data)
}

// StartBooking opens a booking flow for the slot with the chosen package.
func (h *Handler) StartBooking(w http.ResponseWriter, r *http.Request) {
	trainer, slot, ok := h.bookingSlot(w, r)
	if !ok {
		return
	}
	sess := session(r)
	payer := booking.Payer{Email: sess.Email, Name: sess.DisplayName}
	if profile, err := h.roles.Profile(r.Context(), sess.Email); err == nil && profile.Name != "" {
		payer.Name = profile.Name
	}

	flow, err := h.bookings.Start(sess.ID, payer, *trainer, slot.Index)
	if err != nil {
		h.notFound(w, r, "That slot is not available")
		return
	}
	err = h.bookings.SelectPackage(r.Context(), flow, r.FormValue("package"))
	switch {
	case stderrors.Is(err, booking.ErrUnknownPackage):
		h.redirect(w, r, fmt.Sprintf("/booking/%s/%d", trainer.ID, slot.Index), map[string]string{"error": "Please choose a package"})
		return
	case err != nil && !stderrors.Is(err, booking.ErrIntentCreationFailed):
		errors.InternalError(w, r, err, "select package failed")
		return
	}
	h.redirect(w, r, "/payment", map[string]string{"flow": flow.ID})
}

// flow returns the caller's booking flow named by the flow parameter.
func (h *Handler) flow(w http.ResponseWriter, r *http.Request) (*booking.Flow, bool) {
	flow, err := h.bookings.Flow(r.FormValue("flow"), session(r).ID)
	if err != nil {
		h.notFound(w, r, "Booking not found or expired")
		return nil, false
	}
	return flow, true
}

func (h *Handler) paymentData(r *http.Request, title string, snap booking.Snapshot) map[string]any {
	sess := session(r)
	name := sess.DisplayName
	if flow, err := h.bookings.Flow(snap.ID, sess.ID); err == nil && flow.Payer.Name != "" {
		name = flow.Payer.Name
	}
	return h.withFlash(r, map[string]any{
		"Title":          title,
		"Flow":           snap,
		"Packages":       h.bookings.Catalog(),
		"PayerName":      name,
		"PayerEmail":     sess.Email,
		"PublishableKey": h.cfg.Stripe.PublishableKey,
	})
}

// Payment shows the booking summary before card entry.
func (h *Handler) Payment(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	snap := flow.Snapshot()
	switch snap.State {
	case booking.Succeeded:
		h.redirect(w, r, "/payment-success", map[string]string{"transactionId": snap.TransactionID, "packageName": snap.Package.Name})
		return
	case booking.Confirming, booking.PaymentUnrecorded:
		h.redirect(w, r, "/final-payment", map[string]string{"flow": snap.ID})
		return
	}
	h.render(w, r, "payment.html", h.paymentData(r, "Payment", snap))
}

// ChangePackage picks another package, or retries opening the payment
// intent for the current one.
func (h *Handler) ChangePackage(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	err := h.bookings.SelectPackage(r.Context(), flow, r.FormValue("package"))
	switch {
	case stderrors.Is(err, booking.ErrFlowClosed):
		h.redirect(w, r, "/final-payment", map[string]string{"flow": flow.ID})
		return
	case stderrors.Is(err, booking.ErrUnknownPackage):
		h.redirect(w, r, "/payment", map[string]string{"flow": flow.ID, "error": "Please choose a package"})
		return
	}
	h.redirect(w, r, "/payment", map[string]string{"flow": flow.ID})
}

// FinalPayment shows the card form for an open payment intent.
func (h *Handler) FinalPayment(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	snap := flow.Snapshot()
	switch snap.State {
	case booking.SelectingPackage, booking.AwaitingIntent:
		h.redirect(w, r, "/payment", map[string]string{"flow": snap.ID})
		return
	case booking.Succeeded:
		h.redirect(w, r, "/payment-success", map[string]string{"transactionId": snap.TransactionID, "packageName": snap.Package.Name})
		return
	}
	h.render(w, r, "final_payment.html", h.paymentData(r, "Complete Payment", snap))
}

// SubmitPayment confirms the card payment and records the booking.
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	snap, err := h.bookings.Submit(r.Context(), flow, r.FormValue("paymentMethod"))
	if err != nil {
		errors.LogError(r, "payment submit failed", err)
	}

	switch snap.State {
	case booking.Succeeded:
		h.bookings.Finish(flow)
		errors.LogInfo(r, "booking recorded", "flow", snap.ID, "transaction", snap.TransactionID)
		h.redirect(w, r, "/payment-success", map[string]string{"transactionId": snap.TransactionID, "packageName": snap.Package.Name})
	case booking.PaymentUnrecorded:
		data := h.paymentData(r, "Complete Payment", snap)
		h.bookings.Finish(flow)
		h.renderStatus(w, r, http.StatusBadGateway, "final_payment.html", data)
	default:
		h.redirect(w, r, "/final-payment", map[string]string{"flow": snap.ID})
	}
}

func (h *Handler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := h.withFlash(r, map[string]any{
		"Title":         "Payment Successful",
		"TransactionID": q.Get("transactionId"),
		"PackageName":   q.Get("packageName"),
	})
	h.render(w, r, "payment_success.html", data)
}
