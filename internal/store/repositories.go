package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IdentityRepository defines persistence operations for identities.
type IdentityRepository interface {
	Create(ctx context.Context, identity Identity) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	GetBySubject(ctx context.Context, provider, subject string) (*Identity, error)
	UpdateProfile(ctx context.Context, uid uuid.UUID, displayName, avatarURL string) error
	TouchLogin(ctx context.Context, uid uuid.UUID) error
}

// SessionRepository handles web session storage.
type SessionRepository interface {
	Create(ctx context.Context, session Session) error
	// Get returns an unexpired session joined with its identity.
	Get(ctx context.Context, id string) (*Session, error)
	Touch(ctx context.Context, id string, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
