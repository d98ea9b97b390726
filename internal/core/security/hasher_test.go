package security_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kodecamp/lms/internal/core/domain"
	"github.com/kodecamp/lms/internal/core/security"
)

func TestNewHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, security.DefaultBcryptCost, security.NewHasher(0).Cost())
	assert.Equal(t, bcrypt.MinCost, security.NewHasher(1).Cost())
	assert.Equal(t, bcrypt.MaxCost, security.NewHasher(99).Cost())
	assert.Equal(t, 10, security.NewHasher(10).Cost())
}

func TestHasher_RoundTrip(t *testing.T) {
	h := security.NewHasher(bcrypt.MinCost)

	digest, err := h.Hash("Abc12345#")
	require.NoError(t, err)
	assert.NotEqual(t, "Abc12345#", digest)

	ok, err := h.Verify("Abc12345#", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("Abc12345!", digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasher_SaltsEachDigest(t *testing.T) {
	h := security.NewHasher(bcrypt.MinCost)

	a, err := h.Hash("Abc12345#")
	require.NoError(t, err)
	b, err := h.Hash("Abc12345#")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHasher_InvalidDigest(t *testing.T) {
	h := security.NewHasher(bcrypt.MinCost)

	for _, digest := range []string{"", "plaintext", "$2a$04$short"} {
		ok, err := h.Verify("Abc12345#", digest)
		assert.False(t, ok)
		assert.ErrorIs(t, err, security.ErrInvalidDigestFormat, "digest %q", digest)
	}
}

func TestHasher_PasswordTooLong(t *testing.T) {
	h := security.NewHasher(bcrypt.MinCost)

	_, err := h.Hash(strings.Repeat("Aa1#", 19))
	assert.ErrorIs(t, err, domain.ErrPasswordTooLong)
}
