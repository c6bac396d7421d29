package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/tallyhq/tally/internal/crypto"
	"github.com/tallyhq/tally/internal/db"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/repository"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// captureDispatcher records dispatched tokens instead of sending email.
type captureDispatcher struct {
	sent map[string]string // purpose -> last raw token
	to   map[string]string // purpose -> last recipient
	fail bool
}

func newCaptureDispatcher() *captureDispatcher {
	return &captureDispatcher{
		sent: make(map[string]string),
		to:   make(map[string]string),
	}
}

func (d *captureDispatcher) Send(purpose, recipient, rawToken string) error {
	if d.fail {
		return errors.New("smtp down")
	}
	d.sent[purpose] = rawToken
	d.to[purpose] = recipient
	return nil
}

// testEnv wires the full service stack over an in-memory database.
type testEnv struct {
	db           *sqlx.DB
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	hasher       *crypto.PasswordHasher
	issuer       *AccessTokenIssuer
	sessions     *RefreshSessionManager
	pending      *PendingTokenManager
	auth         *AuthService
	dispatcher   *captureDispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	// A second connection would get its own empty in-memory database.
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	err = db.RunMigrations(conn.DB, "sqlite")
	require.NoError(t, err)

	accounts := repository.NewAccountRepository(conn)
	transactions := repository.NewTransactionRepository(conn)
	dispatcher := newCaptureDispatcher()

	hasher := crypto.NewPasswordHasher(bcrypt.MinCost)
	issuer := NewAccessTokenIssuer("test-secret", time.Hour)
	sessions := NewRefreshSessionManager(repository.NewSessionRepository(conn), 7*24*time.Hour)
	pending := NewPendingTokenManager(accounts, repository.NewPendingTokenRepository(conn), dispatcher)
	auth := NewAuthService(accounts, transactions, hasher, issuer, sessions, pending)

	return &testEnv{
		db:           conn,
		accounts:     accounts,
		transactions: transactions,
		hasher:       hasher,
		issuer:       issuer,
		sessions:     sessions,
		pending:      pending,
		auth:         auth,
		dispatcher:   dispatcher,
	}
}

var testDevice = model.DeviceMeta{UserAgent: "test-agent", IP: "127.0.0.1"}

// registerVerified registers an account and walks the verify-email flow.
func (e *testEnv) registerVerified(t *testing.T, email, password string) *AccountView {
	t.Helper()

	account, rawToken, err := e.auth.Register(context.Background(), email, password, "Test User")
	require.NoError(t, err)
	require.NotEmpty(t, rawToken)

	verified, err := e.auth.VerifyEmail(rawToken)
	require.NoError(t, err)
	require.True(t, verified.IsVerified)

	account.IsVerified = true
	return account
}
