package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CredentialHasher hashes secrets for storage and checks them at login.
type CredentialHasher interface {
	// Hash returns the storable hash of secret.
	Hash(secret string) (string, error)

	// Compare compares a hashed password with its possible plaintext equivalent.
	// Returns ErrPasswordMismatch on mismatch.
	Compare(hashedPassword, password string) error
}

// BcryptHasher implements CredentialHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

var _ CredentialHasher = (*BcryptHasher)(nil)

// NewBcryptHasher creates a BcryptHasher. A cost outside bcrypt's range falls
// back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash implements CredentialHasher.
func (h *BcryptHasher) Hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Compare implements CredentialHasher.
func (h *BcryptHasher) Compare(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
