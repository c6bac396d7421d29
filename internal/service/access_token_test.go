package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := NewAccessTokenIssuer("secret", time.Hour)

	token, err := issuer.Issue("acct-1", "a@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", claims.AccountID)
	assert.Equal(t, "a@x.com", claims.Email)
}

func TestAccessTokenUniformInvalid(t *testing.T) {
	issuer := NewAccessTokenIssuer("secret", time.Hour)

	token, err := issuer.Issue("acct-1", "a@x.com")
	require.NoError(t, err)

	// Tampered payload, wrong key, expired, and garbage all yield the same error.
	_, err = issuer.Validate(token + "x")
	assert.ErrorIs(t, err, ErrInvalidAccessToken)

	otherIssuer := NewAccessTokenIssuer("other-secret", time.Hour)
	_, err = otherIssuer.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)

	expiredIssuer := NewAccessTokenIssuer("secret", -time.Minute)
	expired, err := expiredIssuer.Issue("acct-1", "a@x.com")
	require.NoError(t, err)
	_, err = issuer.Validate(expired)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)

	_, err = issuer.Validate("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}
