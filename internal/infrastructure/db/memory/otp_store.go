// Package memory provides process-local stores for development and tests.
package memory

import (
	"context"
	"sync"
	"time"
)

type otpEntry struct {
	userID    string
	expiresAt time.Time
}

// OTPStore keeps one-time codes in a map guarded by a single mutex, so
// GetAndDelete is atomic across goroutines. Codes do not survive a restart
// and are not shared between replicas.
type OTPStore struct {
	mu      sync.Mutex
	entries map[string]otpEntry
	byUser  map[string]string // user id → current code
	now     func() time.Time
}

func NewOTPStore() *OTPStore {
	return &OTPStore{
		entries: make(map[string]otpEntry),
		byUser:  make(map[string]string),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (s *OTPStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *OTPStore) Set(_ context.Context, code, userID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[code]; ok {
		if e.expiresAt.After(now) {
			return false, nil
		}
		s.remove(code, e.userID)
	}
	if prev, ok := s.byUser[userID]; ok {
		delete(s.entries, prev)
	}
	s.entries[code] = otpEntry{userID: userID, expiresAt: now.Add(ttl)}
	s.byUser[userID] = code
	return true, nil
}

func (s *OTPStore) GetAndDelete(_ context.Context, code string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[code]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.After(s.now()) {
		// Expired entries are left for the janitor; reads never mutate them.
		return "", false, nil
	}
	s.remove(code, e.userID)
	return e.userID, true, nil
}

// remove drops code and, when it is still the user's current code, the
// user's index entry. Callers hold s.mu.
func (s *OTPStore) remove(code, userID string) {
	delete(s.entries, code)
	if s.byUser[userID] == code {
		delete(s.byUser, userID)
	}
}

// Len reports the number of stored entries, expired ones included.
func (s *OTPStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes expired entries and returns how many were dropped.
func (s *OTPStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for code, e := range s.entries {
		if !e.expiresAt.After(now) {
			s.remove(code, e.userID)
			n++
		}
	}
	return n
}

// RunJanitor sweeps expired entries every interval until ctx is done.
func (s *OTPStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
