// Package secrets hashes and verifies the static bearer tokens handed to
// polling-station staff and administrators. Only bcrypt hashes are configured;
// plaintext tokens never reach the server's environment.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "votebooth/pkg/domain-errors"
)

// Generate creates a cryptographically secure random token.
func Generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash creates a bcrypt hash of the provided token.
func Hash(secret string) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "secret is too long")
		}
		return "", fmt.Errorf("could not hash secret: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a presented token against a bcrypt hash.
// A mismatch is reported as unauthorized; a malformed hash is a configuration fault.
func Verify(secret, hash string) error {
	if secret == "" || hash == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "token required")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid token")
		}
		return fmt.Errorf("could not verify secret: %w", err)
	}
	return nil
}
