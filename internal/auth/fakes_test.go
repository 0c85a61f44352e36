package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jw6ventures/fitverse/internal/api"
	"github.com/jw6ventures/fitverse/internal/config"
	"github.com/jw6ventures/fitverse/internal/store"
)

type fakeIdentities struct {
	mu      sync.Mutex
	byEmail map[string]*store.Identity
}

func newFakeIdentities() *fakeIdentities {
	return &fakeIdentities{byEmail: make(map[string]*store.Identity)}
}

func (f *fakeIdentities) Create(ctx context.Context, identity store.Identity) (*store.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email := strings.ToLower(identity.Email)
	if _, ok := f.byEmail[email]; ok {
		return nil, store.ErrConflict
	}
	if identity.UID == uuid.Nil {
		identity.UID = uuid.New()
	}
	identity.Email = email
	identity.CreatedAt = time.Now()
	f.byEmail[email] = &identity
	cp := identity
	return &cp, nil
}

func (f *fakeIdentities) GetByEmail(ctx context.Context, email string) (*store.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.byEmail[strings.ToLower(email)]; ok {
		cp := *id
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeIdentities) GetBySubject(ctx context.Context, provider, subject string) (*store.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.byEmail {
		if id.Provider == provider && id.Subject == subject {
			cp := *id
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeIdentities) byUID(uid uuid.UUID) (*store.Identity, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.byEmail {
		if id.UID == uid {
			return id, true
		}
	}
	return nil, false
}

func (f *fakeIdentities) UpdateProfile(ctx context.Context, uid uuid.UUID, displayName, avatarURL string) error {
	id, ok := f.byUID(uid)
	if !ok {
		return store.ErrNotFound
	}
	f.mu.Lock()
	id.DisplayName, id.AvatarURL = displayName, avatarURL
	f.mu.Unlock()
	return nil
}

func (f *fakeIdentities) TouchLogin(ctx context.Context, uid uuid.UUID) error {
	return nil
}

type fakeSessions struct {
	mu         sync.Mutex
	identities *fakeIdentities
	rows       map[string]store.Session
	touched    int
}

func newFakeSessions(ids *fakeIdentities) *fakeSessions {
	return &fakeSessions{identities: ids, rows: make(map[string]store.Session)}
}

func (f *fakeSessions) Create(ctx context.Context, s store.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.CreatedAt = time.Now()
	s.LastSeenAt = s.CreatedAt
	f.rows[s.ID] = s
	return nil
}

func (f *fakeSessions) Get(ctx context.Context, id string) (*store.Session, error) {
	f.mu.Lock()
	s, ok := f.rows[id]
	f.mu.Unlock()
	if !ok || !s.ExpiresAt.After(time.Now()) {
		return nil, store.ErrNotFound
	}
	ident, ok := f.identities.byUID(s.IdentityUID)
	if !ok {
		return nil, store.ErrNotFound
	}
	s.Identity = *ident
	return &s, nil
}

func (f *fakeSessions) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.rows[id]
	s.ExpiresAt = expiresAt
	f.rows[id] = s
	f.touched++
	return nil
}

func (f *fakeSessions) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakeSessions) DeleteExpired(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.rows {
		if !s.ExpiresAt.After(time.Now()) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// fakeProfiles stands in for the backend /users endpoints.
type fakeProfiles struct {
	mu        sync.Mutex
	users     map[string]api.User
	createErr error
	getErr    error
	created   []api.User
	gets      int
	tokens    []bool
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{users: make(map[string]api.User)}
}

func (f *fakeProfiles) GetUser(ctx context.Context, email string) (*api.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[email]
	if !ok {
		return nil, &api.Error{Op: "get user", Status: http.StatusNotFound, Err: api.ErrNotFound}
	}
	return &u, nil
}

func (f *fakeProfiles) CreateUser(ctx context.Context, user api.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, hasSession := SessionFromContext(ctx)
	f.tokens = append(f.tokens, hasSession)
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.users[user.Email]; ok {
		return &api.Error{Op: "create user", Status: http.StatusConflict, Err: api.ErrConflict}
	}
	f.users[user.Email] = user
	f.created = append(f.created, user)
	return nil
}

func (f *fakeProfiles) setRole(email string, role api.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[email] = api.User{Email: email, Name: email, Role: role}
}

type fakeFederated struct {
	claims *FederatedClaims
	err    error
	nonces []string
}

func (f *fakeFederated) AuthURL(state, nonce string) string {
	return "https://idp.example.com/authorize?prompt=select_account&state=" + state + "&nonce=" + nonce
}

func (f *fakeFederated) Exchange(ctx context.Context, code, nonce string) (*FederatedClaims, error) {
	f.nonces = append(f.nonces, nonce)
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{BaseURL: "http://localhost:8080"}
	cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Session.TTL = time.Hour
	return cfg
}

type harness struct {
	svc        *Service
	identities *fakeIdentities
	sessions   *fakeSessions
	profiles   *fakeProfiles
	events     []Event
}

func newHarness(opts ...Option) *harness {
	ids := newFakeIdentities()
	sessions := newFakeSessions(ids)
	profiles := newFakeProfiles()
	st := &store.Store{Identities: ids, Sessions: sessions}
	h := &harness{identities: ids, sessions: sessions, profiles: profiles}
	opts = append([]Option{WithSessionTTL(time.Hour)}, opts...)
	h.svc = NewService(st, profiles, NewSessionManager(testConfig()), opts...)
	h.svc.Subscribe(func(ev Event) { h.events = append(h.events, ev) })
	return h
}
