package ui

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/jw6ventures/fitverse/internal/api"
	"github.com/jw6ventures/fitverse/internal/auth"
	"github.com/jw6ventures/fitverse/internal/booking"
	"github.com/jw6ventures/fitverse/internal/cache"
	"github.com/jw6ventures/fitverse/internal/config"
)

// backend is an in-memory stand-in for the Fitverse REST API.
type backend struct {
	mu       sync.Mutex
	users    map[string]api.User
	trainers []api.Trainer
	pending  []api.Trainer
	forums   []api.Forum
	classes  []api.Class
	apps     map[string][]api.Trainer
	feedback map[string]api.Feedback
	stats    api.DashboardStats
	failVote bool
	requests []string
	bodies   map[string][]byte

	// trainerDown makes trainer lookups answer 503.
	trainerDown bool
	failRecord  bool
	payments    []api.Payment
}

func newBackend() *backend {
	return &backend{
		users:    map[string]api.User{},
		apps:     map[string][]api.Trainer{},
		feedback: map[string]api.Feedback{},
		bodies:   map[string][]byte{},
	}
}

func (b *backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Get("/users/{email}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		user, ok := b.users[chi.URLParam(r, "email")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "user not found"})
			return
		}
		writeJSON(w, http.StatusOK, user)
	})
	r.Get("/trainers", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.trainers)
	})
	r.Get("/trainers/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.trainerDown {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "backend 503"})
			return
		}
		for _, t := range b.trainers {
			if t.ID == chi.URLParam(r, "id") {
				writeJSON(w, http.StatusOK, t)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "trainer not found"})
	})
	r.Patch("/trainers/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
	})
	r.Patch("/trainers/{id}/reject", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "rejected"})
	})
	r.Get("/pending-trainers", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.pending)
	})
	r.Get("/trainer-applications/{email}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.apps[chi.URLParam(r, "email")])
	})
	r.Get("/feedback/{email}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		fb, ok := b.feedback[chi.URLParam(r, "email")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "no feedback"})
			return
		}
		writeJSON(w, http.StatusOK, fb)
	})
	r.Get("/classes", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.classes)
	})
	r.Post("/classes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]string{"message": "created"})
	})
	r.Get("/forums", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.forums)
	})
	r.Get("/forums/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, f := range b.forums {
			if f.ID == chi.URLParam(r, "id") {
				writeJSON(w, http.StatusOK, f)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "forum not found"})
	})
	r.Post("/forums/{id}/vote", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID   string            `json:"userId"`
			VoteType api.VoteDirection `json:"voteType"`
		}
		_ = json.Unmarshal(b.body(r.Method, r.URL.Path), &req)
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failVote {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "vote store down"})
			return
		}
		for i := range b.forums {
			if b.forums[i].ID == chi.URLParam(r, "id") {
				b.forums[i].Votes = api.ApplyVote(b.forums[i].Votes, req.UserID, req.VoteType)
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "voted"})
	})
	r.Get("/admin/dashboard-stats", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.stats)
	})
	r.Get("/all-slots", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []api.Slot{})
	})
	r.Post("/trainer-slots/{email}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]string{"message": "added"})
	})
	r.Delete("/slots/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	})
	r.Post("/create-payment-intent", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.PaymentIntent{ClientSecret: "pi_1_secret_abc"})
	})
	r.Post("/payments", func(w http.ResponseWriter, r *http.Request) {
		var p api.Payment
		_ = json.Unmarshal(b.body(r.Method, r.URL.Path), &p)
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failRecord {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "payments store down"})
			return
		}
		b.payments = append(b.payments, p)
		writeJSON(w, http.StatusCreated, map[string]string{"message": "recorded"})
	})
	return r
}

func (b *backend) setTrainerDown(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trainerDown = down
}

func (b *backend) recorded() []api.Payment {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.Payment(nil), b.payments...)
}

// record keeps every request line and body so tests can assert on the
// writes a handler issued.
func (b *backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		line := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.requests = append(b.requests, line)
		b.bodies[line] = raw
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *backend) body(method, path string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[method+" "+path]
}

func (b *backend) called(method, path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, line := range b.requests {
		if line == method+" "+path {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type noopProcessor struct{}

func (noopProcessor) Confirm(ctx context.Context, clientSecret, paymentMethod string) (string, error) {
	return "txn_1", nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []api.Feedback
}

func (m *recordingMailer) SendTrainerDecision(ctx context.Context, decision api.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, decision)
	return nil
}

func newTestHandler(t *testing.T, b *backend, opts ...Option) *Handler {
	t.Helper()
	srv := httptest.NewServer(b.routes())
	t.Cleanup(srv.Close)

	client := api.New(srv.URL)
	c := cache.New()
	roles := auth.NewRoleResolver(c, client)
	bookings := booking.NewService(client, noopProcessor{}, c)
	cfg := &config.Config{BaseURL: "http://localhost:8080"}
	return NewHandler(cfg, client, c, nil, roles, bookings, opts...)
}

// caller is the signed-in user a request is made as. A nil caller is
// signed out.
type caller struct {
	session *auth.Session
	role    api.Role
}

func member(email string) *caller {
	return &caller{session: &auth.Session{ID: "sess-" + email, UID: "uid-" + email, Email: email, DisplayName: "Ada"}, role: api.RoleMember}
}

func as(c *caller, role api.Role) *caller {
	c.role = role
	return c
}

// serve routes one request through handler mounted at pattern.
func serve(t *testing.T, handler http.HandlerFunc, method, pattern, target string, form url.Values, who *caller) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if who != nil {
				ctx := auth.WithSession(req.Context(), who.session)
				req = req.WithContext(auth.WithRole(ctx, who.role))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Use(RetryFailed)
	r.MethodFunc(method, pattern, handler)

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}
