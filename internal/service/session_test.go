package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerVerified(t, "a@x.com", "Secret1!")

	raw, err := env.sessions.Create(account.ID, testDevice)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	newRaw, session, err := env.sessions.Rotate(raw)
	require.NoError(t, err)
	assert.Equal(t, account.ID, session.AccountID)
	assert.NotEqual(t, raw, newRaw)

	// The pre-rotation token is permanently dead.
	_, _, err = env.sessions.Rotate(raw)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	// The successor rotates exactly once.
	_, _, err = env.sessions.Rotate(newRaw)
	require.NoError(t, err)
	_, _, err = env.sessions.Rotate(newRaw)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionRevoke(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerVerified(t, "a@x.com", "Secret1!")

	raw, err := env.sessions.Create(account.ID, testDevice)
	require.NoError(t, err)

	require.NoError(t, env.sessions.Revoke(raw))
	_, _, err = env.sessions.Rotate(raw)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	// Revoking an unknown token is a no-op, not an error.
	require.NoError(t, env.sessions.Revoke("never-issued"))
}

func TestSessionRevokeAll(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerVerified(t, "a@x.com", "Secret1!")

	first, err := env.sessions.Create(account.ID, testDevice)
	require.NoError(t, err)
	second, err := env.sessions.Create(account.ID, testDevice)
	require.NoError(t, err)

	require.NoError(t, env.sessions.RevokeAll(account.ID))

	_, _, err = env.sessions.Rotate(first)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	_, _, err = env.sessions.Rotate(second)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionList(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerVerified(t, "a@x.com", "Secret1!")

	_, err := env.sessions.Create(account.ID, testDevice)
	require.NoError(t, err)
	_, err = env.sessions.Create(account.ID, testDevice)
	require.NoError(t, err)

	list, err := env.sessions.Sessions(account.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, s := range list {
		assert.Equal(t, "test-agent", s.UserAgent)
	}
}

func TestConcurrentRotation(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerVerified(t, "a@x.com", "Secret1!")

	raw, err := env.sessions.Create(account.ID, testDevice)
	require.NoError(t, err)

	const attempts = 8
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, _, rotateErr := env.sessions.Rotate(raw)
			errs <- rotateErr
		}()
	}

	succeeded := 0
	for i := 0; i < attempts; i++ {
		if <-errs == nil {
			succeeded++
		}
	}

	assert.Equal(t, 1, succeeded, "exactly one concurrent rotation may win")
}
