package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

// ErrWeakPassword indicates a password below the minimum length.
var ErrWeakPassword = errors.New("password too short")

// HashPassword returns a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	if len(strings.TrimSpace(password)) < minPasswordLen {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword validates a password against a stored hash.
func CheckPassword(password, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}
