package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallyhq/tally/internal/model"
)

func TestAccountRoundTrip(t *testing.T) {
	conn := newTestDB(t)
	repo := NewAccountRepository(conn)

	account := createAccount(t, repo, "a@x.com")

	got, err := repo.ByID(account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
	assert.Equal(t, "a@x.com", got.EmailOrEmpty())
	assert.False(t, got.IsVerified)

	got, err = repo.ByEmail("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
}

func TestAccountNotFound(t *testing.T) {
	conn := newTestDB(t)
	repo := NewAccountRepository(conn)

	_, err := repo.ByID("missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = repo.ByEmail("missing@x.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountDuplicateEmail(t *testing.T) {
	conn := newTestDB(t)
	repo := NewAccountRepository(conn)

	createAccount(t, repo, "a@x.com")

	email := "a@x.com"
	hash := "$2a$10$placeholderplaceholderplaceholder"
	dup := &model.Account{
		ID:           uuid.New().String(),
		Email:        &email,
		PasswordHash: &hash,
		Preferences:  "{}",
		CreatedAt:    time.Now(),
	}
	err := repo.Create(dup)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestAccountWithoutEmail(t *testing.T) {
	conn := newTestDB(t)
	repo := NewAccountRepository(conn)

	first := createAccount(t, repo, "")
	second := createAccount(t, repo, "")

	// Multiple email-less accounts may coexist; NULL is not a duplicate.
	require.NotEqual(t, first.ID, second.ID)

	got, err := repo.ByID(first.ID)
	require.NoError(t, err)
	assert.False(t, got.HasEmail())
}

func TestAccountUpdate(t *testing.T) {
	conn := newTestDB(t)
	repo := NewAccountRepository(conn)

	account := createAccount(t, repo, "a@x.com")

	now := time.Now()
	account.IsVerified = true
	account.LastLogin = &now
	require.NoError(t, repo.Update(account))

	got, err := repo.ByID(account.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	require.NotNil(t, got.LastLogin)
}

func TestSetLastLoginPreservesConcurrentChanges(t *testing.T) {
	conn := newTestDB(t)
	repo := NewAccountRepository(conn)

	account := createAccount(t, repo, "a@x.com")

	// Another request changes the credentials between a login's account fetch
	// and its last-login stamp.
	newHash := "$2a$10$replacementreplacementreplacement"
	account.PasswordHash = &newHash
	require.NoError(t, repo.Update(account))

	require.NoError(t, repo.SetLastLogin(account.ID, time.Now()))

	got, err := repo.ByID(account.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.Equal(t, newHash, *got.PasswordHash, "the stamp touches only last_login")
}

func TestSetEmailVerified(t *testing.T) {
	conn := newTestDB(t)
	repo := NewAccountRepository(conn)

	account := createAccount(t, repo, "")
	taken := createAccount(t, repo, "taken@x.com")

	err := repo.SetEmailVerified(account.ID, "new@x.com")
	require.NoError(t, err)

	got, err := repo.ByID(account.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", got.EmailOrEmpty())
	assert.True(t, got.IsVerified)

	// Claiming an address another account holds fails.
	err = repo.SetEmailVerified(account.ID, taken.EmailOrEmpty())
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestAccountDelete(t *testing.T) {
	conn := newTestDB(t)
	repo := NewAccountRepository(conn)

	account := createAccount(t, repo, "a@x.com")

	require.NoError(t, repo.Delete(account.ID))

	_, err := repo.ByID(account.ID)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	assert.ErrorIs(t, repo.Delete(account.ID), ErrAccountNotFound)
}
