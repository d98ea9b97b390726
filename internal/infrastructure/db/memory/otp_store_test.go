package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore() (*OTPStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewOTPStore()
	s.SetClock(clock.now)
	return s, clock
}

func TestOTPStore_SetAndGetAndDelete(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	ok, err := s.Set(ctx, "code-1", "user-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	userID, found, err := s.GetAndDelete(ctx, "code-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "user-1", userID)

	_, found, err = s.GetAndDelete(ctx, "code-1")
	require.NoError(t, err)
	assert.False(t, found, "consumed code must not resolve again")
}

func TestOTPStore_SetDoesNotOverwriteLiveCode(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	ok, err := s.Set(ctx, "code-1", "user-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Set(ctx, "code-1", "user-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	userID, found, _ := s.GetAndDelete(ctx, "code-1")
	assert.True(t, found)
	assert.Equal(t, "user-1", userID)
}

func TestOTPStore_Expiry(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	_, err := s.Set(ctx, "code-1", "user-1", time.Minute)
	require.NoError(t, err)

	clock.advance(time.Minute)

	_, found, err := s.GetAndDelete(ctx, "code-1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 1, s.Len(), "expired lookups do not mutate the store")

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 0, s.Len())

	ok, err := s.Set(ctx, "code-1", "user-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "an expired code can be reissued")
}

func TestOTPStore_SetRevokesPreviousCodeOfUser(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	_, err := s.Set(ctx, "code-1", "user-1", time.Minute)
	require.NoError(t, err)
	_, err = s.Set(ctx, "code-other", "user-2", time.Minute)
	require.NoError(t, err)
	ok, err := s.Set(ctx, "code-2", "user-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, found, err := s.GetAndDelete(ctx, "code-1")
	require.NoError(t, err)
	assert.False(t, found, "a superseded code must not resolve")

	userID, found, _ := s.GetAndDelete(ctx, "code-other")
	assert.True(t, found, "other users keep their codes")
	assert.Equal(t, "user-2", userID)

	userID, found, _ = s.GetAndDelete(ctx, "code-2")
	assert.True(t, found)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, 0, s.Len())
}

func TestOTPStore_ReissuedExpiredCodeKeepsIndexConsistent(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	_, err := s.Set(ctx, "code-1", "user-1", time.Minute)
	require.NoError(t, err)
	clock.advance(time.Minute)

	// code-1 expired and is handed to user-2; a later code for user-1 must
	// not revoke it.
	ok, err := s.Set(ctx, "code-1", "user-2", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = s.Set(ctx, "code-3", "user-1", time.Minute)
	require.NoError(t, err)

	userID, found, _ := s.GetAndDelete(ctx, "code-1")
	assert.True(t, found)
	assert.Equal(t, "user-2", userID)
}

func TestOTPStore_RunJanitorStopsOnCancel(t *testing.T) {
	s := NewOTPStore()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}
