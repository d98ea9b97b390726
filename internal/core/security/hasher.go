// Package security holds the credential primitives: password hashing and
// policy, signed tokens, and one-time codes.
package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/kodecamp/lms/internal/core/domain"
)

const (
	DefaultBcryptCost = 12
	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
)

// ErrInvalidDigestFormat means a stored digest is not a bcrypt encoding.
// It indicates corrupted user data, never a wrong password.
var ErrInvalidDigestFormat = errors.New("stored password digest has an invalid format")

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost, clamped to bcrypt's supported
// range. A zero cost selects DefaultBcryptCost.
func NewHasher(cost int) *Hasher {
	switch {
	case cost == 0:
		cost = DefaultBcryptCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Cost reports the bcrypt cost new digests are produced with.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns a salted bcrypt digest of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.ErrPasswordTooLong
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A mismatch is (false, nil);
// an error is returned only when digest itself is unusable.
func (h *Hasher) Verify(plaintext, digest string) (bool, error) {
	if digest == "" {
		return false, ErrInvalidDigestFormat
	}

	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrInvalidDigestFormat, err)
	}
}
