package store

import (
	"time"

	"github.com/google/uuid"
)

// Identity providers.
const (
	ProviderPassword  = "password"
	ProviderFederated = "oidc"
)

// Identity is an authenticated principal. Password identities carry a bcrypt
// hash; federated identities carry the issuer's subject instead.
type Identity struct {
	UID          uuid.UUID
	Email        string
	PasswordHash string
	DisplayName  string
	AvatarURL    string
	Provider     string
	Subject      string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// Session is a server-side login session referenced by the session cookie.
type Session struct {
	ID          string
	IdentityUID uuid.UUID
	UserAgent   string
	IPAddress   string
	CreatedAt   time.Time
	LastSeenAt  time.Time
	ExpiresAt   time.Time

	// Identity is populated by lookups that join the owning identity.
	Identity Identity
}
