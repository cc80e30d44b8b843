// internal/auth/password.go
package auth

import (
	"golang.org/x/crypto/bcrypt"

	"agenthub/internal/models"
)

// bcryptCost matches the cost factor the rest of the platform uses for
// stored credentials.
const bcryptCost = 12

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword returns ErrInvalidCredentials on mismatch so callers
// cannot distinguish a bad password from an unknown account.
func VerifyPassword(hash, password string) error {
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return models.ErrInvalidCredentials
	}
	return nil
}
