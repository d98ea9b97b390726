package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpPrefix     = "otp:"
	otpUserPrefix = "otp:user:"
)

// setOTP writes the code with SET NX PX, points the user's index at it and
// deletes the code the index previously held.
// KEYS[1] = otp:<code>, KEYS[2] = otp:user:<id>; ARGV = user id, ttl ms, code, prefix.
var setOTP = redis.NewScript(`
if not redis.call('SET', KEYS[1], ARGV[1], 'NX', 'PX', ARGV[2]) then
	return 0
end
local prev = redis.call('GET', KEYS[2])
if prev and prev ~= ARGV[3] then
	redis.call('DEL', ARGV[4] .. prev)
end
redis.call('SET', KEYS[2], ARGV[3], 'PX', ARGV[2])
return 1
`)

// consumeOTP deletes the code and, when it is still the user's current
// code, the user's index entry. Returns the user id or nil.
// KEYS[1] = otp:<code>; ARGV = code, user prefix.
var consumeOTP = redis.NewScript(`
local uid = redis.call('GETDEL', KEYS[1])
if not uid then
	return false
end
local idx = ARGV[2] .. uid
if redis.call('GET', idx) == ARGV[1] then
	redis.call('DEL', idx)
end
return uid
`)

// OTPStore keeps one-time codes in Redis.
// Key format: otp:<code> → user id and otp:user:<id> → current code, both
// expiring after the code's TTL.
type OTPStore struct {
	client *redis.Client
}

func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{client: client}
}

// Set stores the code unless it already exists and revokes the user's
// previous code in the same script run.
func (s *OTPStore) Set(ctx context.Context, code, userID string, ttl time.Duration) (bool, error) {
	keys := []string{otpPrefix + code, otpUserPrefix + userID}
	n, err := setOTP.Run(ctx, s.client, keys, userID, ttl.Milliseconds(), code, otpPrefix).Int()
	if err != nil {
		return false, fmt.Errorf("otp set: %w", err)
	}
	return n == 1, nil
}

// GetAndDelete consumes the code atomically, so concurrent callers cannot
// both receive the user id.
func (s *OTPStore) GetAndDelete(ctx context.Context, code string) (string, bool, error) {
	userID, err := consumeOTP.Run(ctx, s.client, []string{otpPrefix + code}, code, otpUserPrefix).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("otp consume: %w", err)
	}
	return userID, true, nil
}
