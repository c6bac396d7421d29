package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallyhq/tally/internal/model"
)

func TestVerifyEmailFlow(t *testing.T) {
	env := newTestEnv(t)

	account, rawToken, err := env.auth.Register(context.Background(), "a@x.com", "Secret1!", "Ada")
	require.NoError(t, err)
	require.NotEmpty(t, rawToken)
	assert.False(t, account.IsVerified)
	assert.Equal(t, "a@x.com", env.dispatcher.to[model.PurposeVerifyEmail])

	verified, err := env.pending.ConsumeVerifyEmail(rawToken)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	// Single use.
	_, err = env.pending.ConsumeVerifyEmail(rawToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestGenerateOverwritesSlot(t *testing.T) {
	env := newTestEnv(t)

	_, first, err := env.auth.Register(context.Background(), "a@x.com", "Secret1!", "Ada")
	require.NoError(t, err)

	account, err := env.accounts.ByEmail("a@x.com")
	require.NoError(t, err)

	second, err := env.pending.Generate(account.ID, model.PurposeVerifyEmail, "")
	require.NoError(t, err)

	// The first token died when the second was generated.
	_, err = env.pending.ConsumeVerifyEmail(first)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = env.pending.ConsumeVerifyEmail(second)
	require.NoError(t, err)
}

func TestGenerateUnknownPurpose(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerVerified(t, "a@x.com", "Secret1!")

	_, err := env.pending.Generate(account.ID, "mystery", "")
	assert.ErrorIs(t, err, ErrBadPurpose)
}

func TestGenerateSurvivesDispatchFailure(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerVerified(t, "a@x.com", "Secret1!")

	env.dispatcher.fail = true
	raw, err := env.pending.Generate(account.ID, model.PurposeResetPassword, "")
	require.NoError(t, err, "delivery failure must not prevent the token from existing")
	require.NotEmpty(t, raw)

	// The token is live even though the email never went out.
	env.dispatcher.fail = false
	_, err = env.pending.ConsumeResetPassword(raw, "$2a$10$newhashnewhashnewhashnewhash")
	require.NoError(t, err)
}

func TestEmailChangeFlow(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerVerified(t, "a@x.com", "Secret1!")

	raw, err := env.pending.Generate(account.ID, model.PurposeChangeEmail, "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", env.dispatcher.to[model.PurposeChangeEmail], "link goes to the new address")

	updated, err := env.pending.ConsumeEmailChange(raw)
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", updated.EmailOrEmpty())
	assert.True(t, updated.IsVerified)
}

func TestEmailChangeTargetTakenAtGeneration(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerVerified(t, "a@x.com", "Secret1!")
	env.registerVerified(t, "b@x.com", "Secret1!")

	_, err := env.pending.Generate(account.ID, model.PurposeChangeEmail, "b@x.com")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestEmailChangeTargetTakenAtConsumption(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerVerified(t, "a@x.com", "Secret1!")

	raw, err := env.pending.Generate(account.ID, model.PurposeChangeEmail, "c@x.com")
	require.NoError(t, err)

	// Another account claims the address between generate and consume.
	env.registerVerified(t, "c@x.com", "Secret1!")

	_, err = env.pending.ConsumeEmailChange(raw)
	assert.ErrorIs(t, err, ErrEmailTaken)

	// The loser's account keeps its old address.
	got, err := env.accounts.ByID(account.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.EmailOrEmpty())
}

func TestAddEmailFlow(t *testing.T) {
	env := newTestEnv(t)

	// Register without an email: no verification token is issued.
	account, rawToken, err := env.auth.Register(context.Background(), "", "Secret1!", "Ada")
	require.NoError(t, err)
	assert.Empty(t, rawToken)

	err = env.auth.RequestEmailAdd(account.ID, "new@x.com")
	require.NoError(t, err)

	raw := env.dispatcher.sent[model.PurposeAddEmail]
	require.NotEmpty(t, raw)

	updated, err := env.pending.ConsumeEmailChange(raw)
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", updated.EmailOrEmpty())
	assert.True(t, updated.IsVerified)
}
