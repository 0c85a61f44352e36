package auth

import (
	"crypto/sha256"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/jw6ventures/fitverse/internal/config"
)

const federatedStateTTL = 10 * time.Minute

// SessionManager reads and writes the browser cookies that reference a
// server-side session and carry federated login state.
type SessionManager struct {
	cookieName      string
	stateCookieName string
	codec           *securecookie.SecureCookie
	secure          bool
}

type sessionCookie struct {
	SessionID string `json:"sid"`
	Expires   int64  `json:"exp"`
}

// federatedState survives the round trip to the identity provider.
type federatedState struct {
	State string `json:"state"`
	Nonce string `json:"nonce"`
	Next  string `json:"next,omitempty"`
}

func NewSessionManager(cfg *config.Config) *SessionManager {
	hash := sha256.Sum256([]byte(cfg.Session.Secret))
	hashKey := hash[:]

	// Derive an AES-256 sized block key to avoid invalid key length errors.
	blockKey := hash[:]
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(cfg.Session.TTL.Seconds()))
	sc.SetSerializer(securecookie.JSONEncoder{})

	secure := true
	if base, err := url.Parse(cfg.BaseURL); err == nil && base.Scheme != "https" {
		secure = false
	}

	return &SessionManager{
		cookieName:      "fitverse_session",
		stateCookieName: "fitverse_oidc",
		codec:           sc,
		secure:          secure,
	}
}

// Issue sets the session cookie for a stored session.
func (m *SessionManager) Issue(w http.ResponseWriter, sessionID string, expires time.Time) error {
	encoded, err := m.codec.Encode(m.cookieName, sessionCookie{SessionID: sessionID, Expires: expires.Unix()})
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    encoded,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear removes the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	m.expire(w, m.cookieName)
}

// SessionID extracts the session id from the request cookie if present and unexpired.
func (m *SessionManager) SessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}

	var value sessionCookie
	if err := m.codec.Decode(m.cookieName, c.Value, &value); err != nil {
		return "", false
	}
	if value.SessionID == "" || time.Unix(value.Expires, 0).Before(time.Now()) {
		return "", false
	}
	return value.SessionID, true
}

func (m *SessionManager) issueState(w http.ResponseWriter, st federatedState) error {
	encoded, err := m.codec.Encode(m.stateCookieName, st)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.stateCookieName,
		Value:    encoded,
		Path:     "/",
		Expires:  time.Now().Add(federatedStateTTL),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

var errMissingState = errors.New("federated login state missing or invalid")

// takeState reads and clears the federated login state cookie.
func (m *SessionManager) takeState(w http.ResponseWriter, r *http.Request) (federatedState, error) {
	var st federatedState
	c, err := r.Cookie(m.stateCookieName)
	if err != nil {
		return st, errMissingState
	}
	m.expire(w, m.stateCookieName)
	if err := m.codec.Decode(m.stateCookieName, c.Value, &st); err != nil {
		return st, errMissingState
	}
	return st, nil
}

func (m *SessionManager) expire(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
	})
}
