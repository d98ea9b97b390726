package security

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kodecamp/lms/internal/core/ports"
)

const (
	DefaultOTPTTL = 15 * time.Minute

	maxOTPAttempts = 3
)

var ErrOTPCollision = errors.New("otp: could not allocate a unique code")

// OTPManager issues single-use codes bound to a user id.
type OTPManager struct {
	store   ports.OTPStore
	ttl     time.Duration
	newCode func() string
}

func NewOTPManager(store ports.OTPStore, ttl time.Duration) *OTPManager {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	return &OTPManager{store: store, ttl: ttl, newCode: uuid.NewString}
}

// TTL reports how long an issued code stays valid.
func (m *OTPManager) TTL() time.Duration { return m.ttl }

// Create issues a fresh random code for userID.
func (m *OTPManager) Create(ctx context.Context, userID string) (string, error) {
	for range maxOTPAttempts {
		code := m.newCode()
		ok, err := m.store.Set(ctx, code, userID, m.ttl)
		if err != nil {
			return "", err
		}
		if ok {
			return code, nil
		}
	}
	return "", ErrOTPCollision
}

// Resolve returns the user id bound to code and consumes the code. For any
// code at most one call ever reports ok.
func (m *OTPManager) Resolve(ctx context.Context, code string) (userID string, ok bool, err error) {
	if code == "" {
		return "", false, nil
	}
	return m.store.GetAndDelete(ctx, code)
}
