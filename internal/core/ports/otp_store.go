package ports

import (
	"context"
	"time"
)

// OTPStore is an expiring key-value store for one-time codes. A user holds
// at most one live code. Both operations must be atomic with respect to
// concurrent callers.
type OTPStore interface {
	// Set stores code → userID for ttl unless code already exists, and
	// revokes any code previously stored for userID. It reports whether the
	// entry was written.
	Set(ctx context.Context, code, userID string, ttl time.Duration) (bool, error)
	// GetAndDelete returns the user bound to code and removes the entry in
	// the same step. found is false for unknown or expired codes.
	GetAndDelete(ctx context.Context, code string) (userID string, found bool, err error)
}
