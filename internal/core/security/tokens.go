package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose separates session tokens from password reset tokens so one can
// never be replayed as the other.
type Purpose string

const (
	PurposeSession Purpose = "session"
	PurposeReset   Purpose = "reset"
)

var (
	ErrTokenMalformed    = errors.New("token is malformed")
	ErrTokenBadSignature = errors.New("token signature is invalid")
	ErrTokenExpired      = errors.New("token has expired")
)

// Claims is the signed payload of every token.
type Claims struct {
	jwt.RegisteredClaims
	Purpose Purpose `json:"purpose"`
	Stamp   string  `json:"stp,omitempty"`
}

// UserID returns the subject the token was issued for.
func (c *Claims) UserID() string { return c.Subject }

// TokenSpec describes a token to issue.
type TokenSpec struct {
	Subject string
	Purpose Purpose
	TTL     time.Duration
	// Stamp binds the token to a credential state; see PasswordStamp.
	Stamp string
}

// TokenIssuer signs and verifies HS256 tokens with a single server secret.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

type TokenOption func(*TokenIssuer)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) { t.now = now }
}

func NewTokenIssuer(secret string, opts ...TokenOption) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token issuer: secret must not be empty")
	}
	t := &TokenIssuer{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Issue signs a token for ts and returns it together with its expiry.
// Expiry has second precision and is rounded up, so a token is always valid
// at the instant it is issued.
func (t *TokenIssuer) Issue(ts TokenSpec) (string, time.Time, error) {
	if ts.TTL <= 0 {
		return "", time.Time{}, errors.New("token issuer: ttl must be positive")
	}
	if ts.Subject == "" {
		return "", time.Time{}, errors.New("token issuer: subject must not be empty")
	}

	now := t.now()
	exp := jwt.NewNumericDate(expiryCeil(now.Add(ts.TTL)))
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ts.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: exp,
		},
		Purpose: ts.Purpose,
		Stamp:   ts.Stamp,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp.Time, nil
}

// expiryCeil rounds t up to the next whole second. NumericDate truncates,
// which would otherwise pull a sub-second expiry back behind the issue time.
func expiryCeil(t time.Time) time.Time {
	if s := t.Truncate(time.Second); !s.Equal(t) {
		return s.Add(time.Second)
	}
	return t
}

// Verify checks the signature and expiry of token and returns its claims.
// A token is expired once the current time reaches its exp claim.
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrTokenBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, ErrTokenMalformed
	}
}

// PasswordStamp derives a short fingerprint of a password digest. Reset
// tokens carry it so they stop verifying once the password has changed.
func PasswordStamp(digest string) string {
	sum := sha256.Sum256([]byte(digest))
	return hex.EncodeToString(sum[:8])
}

// StampMatches reports whether stamp was derived from digest.
func StampMatches(stamp, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(stamp), []byte(PasswordStamp(digest))) == 1
}
