package crypto

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "Secret1!")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "Secret1!", hash)

	ok, err := h.Verify(ctx, "Secret1!", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(ctx, "Secret2!", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashSalted(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	ctx := context.Background()

	h1, err := h.Hash(ctx, "Secret1!")
	require.NoError(t, err)
	h2, err := h.Hash(ctx, "Secret1!")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "same password must hash to different values")
}

func TestHashRejectsBadInput(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	ctx := context.Background()

	_, err := h.Hash(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyPassword)

	_, err = h.Hash(ctx, strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestVerifyMalformedHash(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	ok, err := h.Verify(context.Background(), "Secret1!", "not-a-bcrypt-hash")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashCanceledContext(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	// Fill the semaphore so acquire has to wait on the context.
	for i := 0; i < cap(h.sem); i++ {
		h.sem <- struct{}{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "Secret1!")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCanChangePassword(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	assert.NoError(t, h.CanChangePassword(nil))

	recent := time.Now().Add(-10 * time.Minute)
	assert.ErrorIs(t, h.CanChangePassword(&recent), ErrChangeTooSoon)

	old := time.Now().Add(-2 * time.Hour)
	assert.NoError(t, h.CanChangePassword(&old))
}
