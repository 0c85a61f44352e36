package ui

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/jw6ventures/fitverse/internal/api"
	"github.com/jw6ventures/fitverse/internal/auth"
	"github.com/jw6ventures/fitverse/internal/http/errors"
	"github.com/jw6ventures/fitverse/internal/saga"
)

// loginPage describes one of the three sign-in screens. Role-gated screens
// end the new session again when the backend role does not match.
type loginPage struct {
	path      string
	heading   string
	role      api.Role
	denied    string
	landing   string
	federated bool
}

var (
	memberLogin  = loginPage{path: "/login", heading: "Login", landing: "/", federated: true}
	trainerLogin = loginPage{path: "/trainer-login", heading: "Trainer Login", role: api.RoleTrainer, denied: "You don't have trainer access", landing: "/dashboard"}
	adminLogin   = loginPage{path: "/admin-login", heading: "Admin Login", role: api.RoleAdmin, denied: "You don't have admin access", landing: "/dashboard"}
)

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r, memberLogin, http.StatusOK, "", "")
}

func (h *Handler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	h.submitLogin(w, r, memberLogin)
}

func (h *Handler) TrainerLogin(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r, trainerLogin, http.StatusOK, "", "")
}

func (h *Handler) TrainerLoginSubmit(w http.ResponseWriter, r *http.Request) {
	h.submitLogin(w, r, trainerLogin)
}

func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r, adminLogin, http.StatusOK, "", "")
}

func (h *Handler) AdminLoginSubmit(w http.ResponseWriter, r *http.Request) {
	h.submitLogin(w, r, adminLogin)
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request, page loginPage, status int, email, message string) {
	data := h.withFlash(r, map[string]any{
		"Title":          page.heading,
		"Heading":        page.heading,
		"Action":         page.path,
		"AllowFederated": page.federated,
		"Next":           safeNext(r.FormValue("next"), ""),
		"Email":          email,
		"Error":          message,
	})
	h.renderStatus(w, r, status, "login.html", data)
}

func (h *Handler) submitLogin(w http.ResponseWriter, r *http.Request, page loginPage) {
	if err := r.ParseForm(); err != nil {
		h.showLogin(w, r, page, http.StatusBadRequest, "", "invalid form")
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		h.showLogin(w, r, page, http.StatusBadRequest, email, "Please enter your email and password")
		return
	}

	sess, err := h.auth.Login(r.Context(), email, password, auth.ClientInfoFrom(r))
	switch {
	case stderrors.Is(err, auth.ErrInvalidCredentials):
		h.showLogin(w, r, page, http.StatusUnauthorized, email, "Invalid email or password")
		return
	case err != nil:
		errors.LogError(r, "login failed", err)
		h.showLogin(w, r, page, http.StatusInternalServerError, email, "Login failed. Please try again.")
		return
	}

	if page.role != "" {
		ctx := auth.WithSession(r.Context(), sess)
		role, err := h.roles.Role(ctx, sess.Email)
		if err != nil || role != page.role {
			if err != nil {
				errors.LogError(r, "role lookup after login failed", err)
				h.roles.Forget(sess.Email)
			}
			if lerr := h.auth.Logout(ctx, sess); lerr != nil {
				errors.LogError(r, "logout after role mismatch failed", lerr)
			}
			h.showLogin(w, r, page, http.StatusForbidden, email, page.denied)
			return
		}
	}

	if err := h.auth.WriteCookie(w, sess); err != nil {
		errors.InternalError(w, r, err, "failed to issue session cookie")
		return
	}
	errors.LogInfo(r, "login", "email", sess.Email, "page", page.path)
	http.Redirect(w, r, safeNext(r.FormValue("next"), page.landing), http.StatusFound)
}

type registrationForm struct {
	Name     string
	Email    string
	PhotoURL string
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	h.showRegister(w, r, http.StatusOK, registrationForm{}, "")
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request, status int, form registrationForm, message string) {
	data := h.withFlash(r, map[string]any{
		"Title": "Register",
		"Form":  form,
		"Next":  safeNext(r.FormValue("next"), ""),
		"Error": message,
	})
	h.renderStatus(w, r, status, "register.html", data)
}

func (h *Handler) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.showRegister(w, r, http.StatusBadRequest, registrationForm{}, "invalid form")
		return
	}
	form := registrationForm{
		Name:     strings.TrimSpace(r.FormValue("name")),
		Email:    strings.TrimSpace(r.FormValue("email")),
		PhotoURL: strings.TrimSpace(r.FormValue("photoURL")),
	}
	if form.Name == "" || form.Email == "" || r.FormValue("password") == "" {
		h.showRegister(w, r, http.StatusBadRequest, form, "Please fill in all required fields")
		return
	}

	sess, err := h.auth.Register(r.Context(), auth.Registration{
		Name:     form.Name,
		Email:    form.Email,
		PhotoURL: form.PhotoURL,
		Password: r.FormValue("password"),
	}, auth.ClientInfoFrom(r))
	if err != nil {
		if _, partial := saga.AsPartial(err); partial {
			h.redirect(w, r, memberLogin.path, map[string]string{"error": auth.PartialRegistration})
			return
		}
		h.showRegister(w, r, registrationStatus(err), form, registrationMessage(err))
		return
	}

	if err := h.auth.WriteCookie(w, sess); err != nil {
		errors.InternalError(w, r, err, "failed to issue session cookie")
		return
	}
	h.redirect(w, r, safeNext(r.FormValue("next"), "/"), map[string]string{"status": "Registration successful!"})
}

func registrationMessage(err error) string {
	var weak *auth.WeakPasswordError
	switch {
	case stderrors.As(err, &weak):
		return weak.Reason
	case stderrors.Is(err, auth.ErrIdentityConflict):
		return auth.ErrIdentityConflict.Error()
	case stderrors.Is(err, auth.ErrInvalidProfile):
		return auth.ErrInvalidProfile.Error()
	case stderrors.Is(err, auth.ErrServerUnavailable):
		return auth.ErrServerUnavailable.Error()
	default:
		return "Registration failed. Please try again."
	}
}

func registrationStatus(err error) int {
	var weak *auth.WeakPasswordError
	switch {
	case stderrors.As(err, &weak), stderrors.Is(err, auth.ErrInvalidProfile):
		return http.StatusBadRequest
	case stderrors.Is(err, auth.ErrIdentityConflict):
		return http.StatusConflict
	case stderrors.Is(err, auth.ErrServerUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FederatedLogin sends the browser to the identity provider.
func (h *Handler) FederatedLogin(w http.ResponseWriter, r *http.Request) {
	target, err := h.auth.BeginFederatedLogin(w, safeNext(r.FormValue("next"), "/"))
	if stderrors.Is(err, auth.ErrFederatedDisabled) {
		h.notFound(w, r, "Federated sign-in is not available")
		return
	}
	if err != nil {
		errors.InternalError(w, r, err, "failed to start federated login")
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// FederatedCallback completes a provider round trip.
func (h *Handler) FederatedCallback(w http.ResponseWriter, r *http.Request) {
	sess, next, err := h.auth.CompleteFederatedLogin(w, r)
	if stderrors.Is(err, auth.ErrFederatedDisabled) {
		h.notFound(w, r, "Federated sign-in is not available")
		return
	}
	if err != nil {
		errors.LogError(r, "federated login failed", err)
		h.redirect(w, r, memberLogin.path, map[string]string{"error": federatedFailure(err)})
		return
	}

	if err := h.auth.WriteCookie(w, sess); err != nil {
		errors.InternalError(w, r, err, "failed to issue session cookie")
		return
	}
	http.Redirect(w, r, safeNext(next, "/"), http.StatusFound)
}

// federatedFailure is the sign-in page notice for a failed provider callback.
func federatedFailure(err error) string {
	switch {
	case stderrors.Is(err, auth.ErrFederatedCancelled):
		return "Sign-in was cancelled"
	case stderrors.Is(err, auth.ErrIdentityConflict):
		return auth.ErrIdentityConflict.Error()
	case stderrors.Is(err, auth.ErrEmailUnverified):
		return auth.ErrEmailUnverified.Error()
	case stderrors.Is(err, auth.ErrProfileSyncFailed):
		return auth.ErrProfileSyncFailed.Error()
	}
	return "Google sign-in failed. Please try again."
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), session(r)); err != nil {
		errors.LogError(r, "logout failed", err)
	}
	h.auth.ClearCookie(w)
	h.redirect(w, r, "/", map[string]string{"status": "Logged out successfully"})
}
