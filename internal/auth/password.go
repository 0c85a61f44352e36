package auth

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// WeakPasswordError explains why a registration password was refused.
type WeakPasswordError struct {
	Reason string
}

func (e *WeakPasswordError) Error() string { return e.Reason }

// ValidatePassword enforces the registration password policy.
func ValidatePassword(password string) error {
	var upper, lower bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
	}
	switch {
	case !upper:
		return &WeakPasswordError{Reason: "Password must contain at least one uppercase letter"}
	case !lower:
		return &WeakPasswordError{Reason: "Password must contain at least one lowercase letter"}
	case len(password) < 6:
		return &WeakPasswordError{Reason: "Password must be at least 6 characters long"}
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// dummyHash keeps unknown-email logins as slow as wrong-password logins.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("fitverse-timing-equaliser"), bcrypt.DefaultCost)

func checkPassword(hash, password string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
