package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidFeedKey = errors.New("invalid feed key")

// minFeedKeyLength keeps feed keys out of brute-force range.
const minFeedKeyLength = 24

// HashFeedKey hashes a processor feed key for storage in configuration.
func HashFeedKey(key string) (string, error) {
	if len(key) < minFeedKeyLength {
		return "", fmt.Errorf("feed key must be at least %d characters", minFeedKeyLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash feed key: %w", err)
	}
	return string(hash), nil
}

// FeedKeyVerifier checks the key presented by the processor feed against its
// configured bcrypt hash.
type FeedKeyVerifier struct {
	hash []byte
}

// NewFeedKeyVerifier creates a verifier. An empty hash rejects every key.
func NewFeedKeyVerifier(hash string) *FeedKeyVerifier {
	return &FeedKeyVerifier{hash: []byte(hash)}
}

// Verify returns ErrInvalidFeedKey unless key matches the hash.
func (v *FeedKeyVerifier) Verify(key string) error {
	if len(v.hash) == 0 || key == "" {
		return ErrInvalidFeedKey
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(key)); err != nil {
		return ErrInvalidFeedKey
	}
	return nil
}
