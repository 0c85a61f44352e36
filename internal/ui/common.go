package ui

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jw6ventures/fitverse/internal/api"
	"github.com/jw6ventures/fitverse/internal/auth"
	"github.com/jw6ventures/fitverse/internal/http/csrf"
	"github.com/jw6ventures/fitverse/internal/http/errors"
)

const (
	trainersPerPage = 6
	classesPerPage  = 6
	forumsPerPage   = 6
)

// Page is one page of a paginated list.
type Page[T any] struct {
	Items  []T
	Number int
	Pages  int
	Total  int
}

func (p Page[T]) HasPrev() bool { return p.Number > 1 }

func (p Page[T]) HasNext() bool { return p.Number < p.Pages }

func (p Page[T]) Prev() int { return p.Number - 1 }

func (p Page[T]) Next() int { return p.Number + 1 }

// Numbers lists every page number for the pager.
func (p Page[T]) Numbers() []int {
	out := make([]int, p.Pages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// paginate returns the 1-based page of items holding size entries per page.
// Pages outside the range clamp to the first or last page.
func paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = 1
	}
	pages := (len(items) + size - 1) / size
	if page > pages {
		page = pages
	}
	if page < 1 {
		page = 1
	}
	start := min((page-1)*size, len(items))
	end := min(start+size, len(items))
	return Page[T]{Items: items[start:end], Number: page, Pages: pages, Total: len(items)}
}

// parsePage extracts the page query parameter, defaulting to 1.
func parsePage(r *http.Request) int {
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 1
}

// withFlash adds flash messages, the CSRF field, and the signed-in user to
// template data.
func (h *Handler) withFlash(r *http.Request, data map[string]any) map[string]any {
	q := r.URL.Query()
	if status := q.Get("status"); status != "" {
		data["FlashMessage"] = status
	}
	if err := q.Get("error"); err != "" {
		data["FlashError"] = err
	}
	data["CSRFField"] = csrf.Field(r)
	data["CSRFToken"] = csrf.Token(r)
	if sess, ok := auth.SessionFromContext(r.Context()); ok {
		data["Session"] = sess
	}
	data["Role"] = string(auth.RoleFromContext(r.Context()))
	data["FederatedLogin"] = h.auth != nil && h.auth.FederatedEnabled()
	return data
}

// redirect redirects to a path with query parameters.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, path string, params map[string]string) {
	q := url.Values{}
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	location := path
	if encoded := q.Encode(); encoded != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		location += sep + encoded
	}
	http.Redirect(w, r, location, http.StatusFound)
}

// render executes a template and writes the response.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	h.renderStatus(w, r, http.StatusOK, name, data)
}

func (h *Handler) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	tmpl, ok := h.templates[name]
	if !ok {
		errors.InternalError(w, r, fmt.Errorf("template not found"), fmt.Sprintf("template %q not found", name))
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		errors.InternalError(w, r, err, fmt.Sprintf("template render error for %q", name))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// notFound renders the error page with a 404.
func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, message string) {
	h.renderStatus(w, r, http.StatusNotFound, "error.html", h.withFlash(r, map[string]any{
		"Title":   "Not found",
		"Message": message,
	}))
}

// upstreamFailure renders the error page for a backend read that failed.
func (h *Handler) upstreamFailure(w http.ResponseWriter, r *http.Request, err error, what string) {
	status := errors.UpstreamStatus(err)
	if status == http.StatusNotFound {
		h.notFound(w, r, what+" not found")
		return
	}
	errors.LogError(r, "failed to load "+what, err)
	h.renderStatus(w, r, status, "error.html", h.withFlash(r, map[string]any{
		"Title":    "Something went wrong",
		"Message":  fmt.Sprintf("Failed to load %s. Please try again.", what),
		"RetryURL": retryURL(r),
	}))
}

// failureMessage turns a failed write into a notification, preferring the
// backend's own message for rejected input.
func failureMessage(err error, fallback string) string {
	if stderrors.Is(err, api.ErrNetworkUnavailable) {
		return "Network error. Please check your connection and try again."
	}
	return api.Message(err, fallback)
}

// safeNext keeps post-login redirects on this site.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}

// formValues returns the trimmed, non-empty values of a multi-valued field.
func formValues(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.Form[key] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func session(r *http.Request) *auth.Session {
	sess, _ := auth.SessionFromContext(r.Context())
	return sess
}
