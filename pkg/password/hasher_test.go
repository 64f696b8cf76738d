package password_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pcbuilder/configurator/pkg/password"
)

func TestHasher(t *testing.T) {
	t.Parallel()

	h, err := password.New(password.WithCost(bcrypt.MinCost))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, h.Cost())

	t.Run("hash and verify", func(t *testing.T) {
		t.Parallel()

		digest, err := h.Hash("pw1")
		require.NoError(t, err)
		assert.NotEqual(t, "pw1", digest)
		assert.True(t, strings.HasPrefix(digest, "$2a$"))

		require.NoError(t, h.Verify("pw1", digest))
		assert.ErrorIs(t, h.Verify("pw2", digest), password.ErrMismatch)
	})

	t.Run("salted", func(t *testing.T) {
		t.Parallel()

		a, err := h.Hash("same")
		require.NoError(t, err)
		b, err := h.Hash("same")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("empty password", func(t *testing.T) {
		t.Parallel()

		_, err := h.Hash("")
		assert.ErrorIs(t, err, password.ErrEmptyPassword)
	})

	t.Run("too long", func(t *testing.T) {
		t.Parallel()

		_, err := h.Hash(strings.Repeat("a", password.MaxLength+1))
		assert.ErrorIs(t, err, password.ErrPasswordTooLong)

		_, err = h.Hash(strings.Repeat("a", password.MaxLength))
		assert.NoError(t, err)
	})

	t.Run("malformed digest", func(t *testing.T) {
		t.Parallel()

		err := h.Verify("pw1", "not-a-hash")
		assert.ErrorIs(t, err, password.ErrMalformedHash)
		assert.NotErrorIs(t, err, password.ErrMismatch)
	})

	t.Run("burn does not panic", func(t *testing.T) {
		t.Parallel()

		assert.NotPanics(t, func() { h.Burn("anything") })
	})
}

func TestNewInvalidCost(t *testing.T) {
	t.Parallel()

	_, err := password.New(password.WithCost(bcrypt.MaxCost + 1))
	assert.ErrorIs(t, err, password.ErrInvalidCost)

	_, err = password.New(password.WithCost(1))
	assert.ErrorIs(t, err, password.ErrInvalidCost)
}
