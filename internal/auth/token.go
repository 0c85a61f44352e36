package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "fitverse-web"

// BackendClaims identify the signed-in user to the backend.
type BackendClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// BackendTokens mints short-lived HS256 tokens for the session in the
// request context. It implements api.TokenSource.
type BackendTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewBackendTokens(secret string, ttl time.Duration) *BackendTokens {
	return &BackendTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Token returns an empty token when ctx carries no session.
func (b *BackendTokens) Token(ctx context.Context) (string, error) {
	sess, ok := SessionFromContext(ctx)
	if !ok {
		return "", nil
	}
	now := b.now()
	claims := BackendClaims{
		Email: sess.Email,
		Name:  sess.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   sess.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return "", fmt.Errorf("sign backend token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token minted by Token.
func (b *BackendTokens) Parse(raw string) (*BackendClaims, error) {
	var claims BackendClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return b.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(b.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, errors.New("token carries no email")
	}
	return &claims, nil
}
