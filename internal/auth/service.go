package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jw6ventures/fitverse/internal/api"
	"github.com/jw6ventures/fitverse/internal/saga"
	"github.com/jw6ventures/fitverse/internal/store"
)

var (
	ErrIdentityConflict    = errors.New("an account with this email already exists")
	ErrInvalidProfile      = errors.New("invalid user data provided")
	ErrServerUnavailable   = errors.New("server unavailable, please try again later")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrProfileSyncFailed   = errors.New("failed to create user on server")
	ErrFederatedDisabled   = errors.New("federated login is not configured")
	ErrFederatedCancelled  = errors.New("federated login was cancelled")
	ErrEmailUnverified     = errors.New("your Google account email is not verified")
	ErrNoSession           = errors.New("no active session")
	errMissingRegistration = errors.New("name, email and password are required")
)

// PartialRegistration is the message shown when the identity was created but
// the server-side profile was not.
const PartialRegistration = "registered but profile not saved"

// ProfileAPI is the part of the backend the session store talks to.
type ProfileAPI interface {
	GetUser(ctx context.Context, email string) (*api.User, error)
	CreateUser(ctx context.Context, user api.User) error
}

// Session is the signed-in identity for one browser.
type Session struct {
	ID          string
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	Provider    string
	ExpiresAt   time.Time
}

type EventKind string

const (
	EventLogin      EventKind = "login"
	EventLogout     EventKind = "logout"
	EventRegistered EventKind = "registered"
	EventExpired    EventKind = "expired"
)

// Event is published on every session change. Email is empty for an expired
// cookie whose session record is already gone.
type Event struct {
	Kind      EventKind
	Email     string
	SessionID string
}

// Registration is the input of Register.
type Registration struct {
	Name     string
	Email    string
	PhotoURL string
	Password string
}

// ClientInfo describes the browser starting a session.
type ClientInfo struct {
	UserAgent string
	IP        string
}

// ClientInfoFrom extracts ClientInfo from a request after RealIP has run.
func ClientInfoFrom(r *http.Request) ClientInfo {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return ClientInfo{UserAgent: r.UserAgent(), IP: ip}
}

// Service is the session store: it owns identities, sessions, and the
// cookies that reference them, and publishes session changes.
type Service struct {
	identities store.IdentityRepository
	sessions   store.SessionRepository
	profiles   ProfileAPI
	cookies    *SessionManager
	federated  FederatedAuthenticator
	ttl        time.Duration
	now        func() time.Time

	mu        sync.RWMutex
	listeners map[int]func(Event)
	nextID    int
}

// Option configures a Service.
type Option func(*Service)

// WithFederated enables federated login through the given authenticator.
func WithFederated(f FederatedAuthenticator) Option {
	return func(s *Service) { s.federated = f }
}

// WithSessionTTL sets how long a session lives without activity.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

func NewService(st *store.Store, profiles ProfileAPI, cookies *SessionManager, opts ...Option) *Service {
	s := &Service{
		identities: st.Identities,
		sessions:   st.Sessions,
		profiles:   profiles,
		cookies:    cookies,
		ttl:        7 * 24 * time.Hour,
		now:        time.Now,
		listeners:  make(map[int]func(Event)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// FederatedEnabled reports whether federated login is available.
func (s *Service) FederatedEnabled() bool { return s.federated != nil }

// Subscribe registers fn for every session change and returns a func that
// removes it. Listeners run synchronously on the goroutine making the change.
func (s *Service) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) publish(ev Event) {
	slog.Info("auth_event", "kind", ev.Kind, "email", ev.Email)
	s.mu.RLock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Register creates a password identity, then the matching member profile on
// the backend. A failure of the second step returns a *saga.PartialFailure
// that also matches ErrInvalidProfile or ErrServerUnavailable; no session is
// started in that case and the next login repairs the missing profile.
func (s *Service) Register(ctx context.Context, reg Registration, client ClientInfo) (*Session, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = normalizeEmail(reg.Email)
	reg.PhotoURL = strings.TrimSpace(reg.PhotoURL)
	if reg.Name == "" || reg.Email == "" || reg.Password == "" {
		return nil, errMissingRegistration
	}
	if err := ValidatePassword(reg.Password); err != nil {
		return nil, err
	}

	var identity *store.Identity
	err := saga.Run(ctx,
		saga.Step{
			Name: "create identity",
			Run: func(ctx context.Context) error {
				hash, err := hashPassword(reg.Password)
				if err != nil {
					return fmt.Errorf("hash password: %w", err)
				}
				created, err := s.identities.Create(ctx, store.Identity{
					Email:        reg.Email,
					PasswordHash: hash,
					DisplayName:  reg.Name,
					AvatarURL:    reg.PhotoURL,
					Provider:     store.ProviderPassword,
				})
				if errors.Is(err, store.ErrConflict) {
					return ErrIdentityConflict
				}
				if err != nil {
					return err
				}
				identity = created
				return nil
			},
		},
		saga.Step{
			Name:    "register profile",
			Partial: PartialRegistration,
			Run: func(ctx context.Context) error {
				ctx = WithSession(ctx, sessionFor(identity, "", time.Time{}))
				err := s.profiles.CreateUser(ctx, api.User{
					UID:      identity.UID.String(),
					Name:     reg.Name,
					Email:    reg.Email,
					PhotoURL: reg.PhotoURL,
					Role:     api.RoleMember,
				})
				if errors.Is(err, api.ErrConflict) {
					return nil
				}
				return profileError(err)
			},
		},
	)
	if err != nil {
		slog.Warn("auth_event", "kind", "register_failed", "email", reg.Email, "error", err)
		return nil, err
	}

	sess, err := s.startSession(ctx, identity, client)
	if err != nil {
		return nil, err
	}
	s.publish(Event{Kind: EventRegistered, Email: sess.Email, SessionID: sess.ID})
	return sess, nil
}

// Login verifies a password identity and starts a session.
func (s *Service) Login(ctx context.Context, email, password string, client ClientInfo) (*Session, error) {
	identity, err := s.identities.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		checkPassword("", password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !checkPassword(identity.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	// A missing profile is repaired on a later sign-in. Role-gated pages
	// stay closed until the backend answers.
	if err := s.ensureProfile(ctx, identity); err != nil {
		slog.Warn("auth_event", "kind", "profile_sync_failed", "email", identity.Email, "error", err)
	}
	sess, err := s.startSession(ctx, identity, client)
	if err != nil {
		return nil, err
	}
	s.publish(Event{Kind: EventLogin, Email: sess.Email, SessionID: sess.ID})
	return sess, nil
}

// BeginFederatedLogin stores state and nonce in a short-lived cookie and
// returns the provider URL to redirect to.
func (s *Service) BeginFederatedLogin(w http.ResponseWriter, next string) (string, error) {
	if s.federated == nil {
		return "", ErrFederatedDisabled
	}
	st := federatedState{State: randomToken(), Nonce: randomToken(), Next: next}
	if err := s.cookies.issueState(w, st); err != nil {
		return "", err
	}
	return s.federated.AuthURL(st.State, st.Nonce), nil
}

// CompleteFederatedLogin handles the provider callback. It finds or creates
// the federated identity, ensures a server profile exists, and starts a
// session. It returns the location the user originally asked for.
func (s *Service) CompleteFederatedLogin(w http.ResponseWriter, r *http.Request) (*Session, string, error) {
	if s.federated == nil {
		return nil, "", ErrFederatedDisabled
	}
	ctx := r.Context()
	st, err := s.cookies.takeState(w, r)
	if err != nil {
		return nil, "", err
	}
	q := r.URL.Query()
	if q.Get("error") != "" {
		return nil, st.Next, ErrFederatedCancelled
	}
	if q.Get("state") == "" || q.Get("state") != st.State {
		return nil, st.Next, errMissingState
	}

	claims, err := s.federated.Exchange(ctx, q.Get("code"), st.Nonce)
	if err != nil {
		return nil, st.Next, err
	}
	if claims.Email == "" {
		return nil, st.Next, errors.New("identity provider returned no email")
	}
	// Roles are keyed by email on the backend, so an unverified address
	// must never reach the identity lookup.
	if !claims.EmailVerified {
		slog.Warn("auth_event", "kind", "federated_unverified", "email", claims.Email, "subject", claims.Subject)
		return nil, st.Next, ErrEmailUnverified
	}

	identity, err := s.identities.GetBySubject(ctx, store.ProviderFederated, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		identity, err = s.identities.Create(ctx, store.Identity{
			Email:       claims.Email,
			DisplayName: claims.Name,
			AvatarURL:   claims.Picture,
			Provider:    store.ProviderFederated,
			Subject:     claims.Subject,
		})
		if errors.Is(err, store.ErrConflict) {
			return nil, st.Next, ErrIdentityConflict
		}
	}
	if err != nil {
		return nil, st.Next, err
	}

	if err := s.ensureProfile(ctx, identity); err != nil {
		return nil, st.Next, err
	}
	sess, err := s.startSession(ctx, identity, ClientInfoFrom(r))
	if err != nil {
		return nil, st.Next, err
	}
	s.publish(Event{Kind: EventLogin, Email: sess.Email, SessionID: sess.ID})
	return sess, st.Next, nil
}

// Logout ends sess. Logging out without a session is a no-op.
func (s *Service) Logout(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		return err
	}
	s.publish(Event{Kind: EventLogout, Email: sess.Email, SessionID: sess.ID})
	return nil
}

// Resolve loads an unexpired session by id and slides its expiry forward
// once half of it has elapsed.
func (s *Service) Resolve(ctx context.Context, id string) (*Session, error) {
	sess, _, err := s.resolve(ctx, id)
	return sess, err
}

func (s *Service) resolve(ctx context.Context, id string) (*Session, bool, error) {
	rec, err := s.sessions.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, ErrNoSession
	}
	if err != nil {
		return nil, false, err
	}

	if rec.ExpiresAt.Sub(s.now()) >= s.ttl/2 {
		return sessionFor(&rec.Identity, rec.ID, rec.ExpiresAt), false, nil
	}
	expires := s.now().Add(s.ttl)
	if err := s.sessions.Touch(ctx, id, expires); err != nil {
		slog.Warn("auth_event", "kind", "session_touch_failed", "error", err)
		return sessionFor(&rec.Identity, rec.ID, rec.ExpiresAt), false, nil
	}
	return sessionFor(&rec.Identity, rec.ID, expires), true, nil
}

// PurgeExpired deletes expired session records.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}

// WriteCookie points the browser at sess.
func (s *Service) WriteCookie(w http.ResponseWriter, sess *Session) error {
	return s.cookies.Issue(w, sess.ID, sess.ExpiresAt)
}

// ClearCookie removes the session cookie.
func (s *Service) ClearCookie(w http.ResponseWriter) {
	s.cookies.Clear(w)
}

// LoadSession attaches the session referenced by the request cookie to the
// request context. Invalid or expired sessions clear the cookie.
func (s *Service) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.cookies.SessionID(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		sess, renewed, err := s.resolve(r.Context(), id)
		switch {
		case errors.Is(err, ErrNoSession):
			s.cookies.Clear(w)
			s.publish(Event{Kind: EventExpired, SessionID: id})
		case err != nil:
			slog.Error("auth_event", "kind", "session_lookup_failed", "error", err)
		default:
			if renewed {
				_ = s.cookies.Issue(w, sess.ID, sess.ExpiresAt)
			}
			r = r.WithContext(WithSession(r.Context(), sess))
		}
		next.ServeHTTP(w, r)
	})
}

// ensureProfile creates the backend profile when it is missing.
func (s *Service) ensureProfile(ctx context.Context, identity *store.Identity) error {
	ctx = WithSession(ctx, sessionFor(identity, "", time.Time{}))
	_, err := s.profiles.GetUser(ctx, identity.Email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, api.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrProfileSyncFailed, err)
	}
	err = s.profiles.CreateUser(ctx, api.User{
		UID:      identity.UID.String(),
		Name:     identity.DisplayName,
		Email:    identity.Email,
		PhotoURL: identity.AvatarURL,
		Role:     api.RoleMember,
	})
	if err != nil && !errors.Is(err, api.ErrConflict) {
		return fmt.Errorf("%w: %w", ErrProfileSyncFailed, err)
	}
	return nil
}

func (s *Service) startSession(ctx context.Context, identity *store.Identity, client ClientInfo) (*Session, error) {
	rec := store.Session{
		ID:          uuid.NewString(),
		IdentityUID: identity.UID,
		UserAgent:   client.UserAgent,
		IPAddress:   client.IP,
		ExpiresAt:   s.now().Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, rec); err != nil {
		return nil, err
	}
	if err := s.identities.TouchLogin(ctx, identity.UID); err != nil {
		slog.Warn("auth_event", "kind", "touch_login_failed", "error", err)
	}
	return sessionFor(identity, rec.ID, rec.ExpiresAt), nil
}

func sessionFor(identity *store.Identity, id string, expires time.Time) *Session {
	return &Session{
		ID:          id,
		UID:         identity.UID.String(),
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		PhotoURL:    identity.AvatarURL,
		Provider:    identity.Provider,
		ExpiresAt:   expires,
	}
}

func profileError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, api.ErrValidationFailed):
		return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	case errors.Is(err, api.ErrServerError), errors.Is(err, api.ErrNetworkUnavailable):
		return fmt.Errorf("%w: %w", ErrServerUnavailable, err)
	default:
		return err
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomToken() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
