package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/tallyhq/tally/internal/db"
	"github.com/tallyhq/tally/internal/model"
	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conn, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	// A second connection would get its own empty in-memory database.
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	err = db.RunMigrations(conn.DB, "sqlite")
	require.NoError(t, err)

	return conn
}

func createAccount(t *testing.T, repo AccountRepository, email string) *model.Account {
	t.Helper()

	hash := "$2a$10$placeholderplaceholderplaceholder"
	account := &model.Account{
		ID:           uuid.New().String(),
		PasswordHash: &hash,
		Preferences:  "{}",
		CreatedAt:    time.Now(),
	}
	if email != "" {
		account.Email = &email
	}

	err := repo.Create(account)
	require.NoError(t, err)
	return account
}
