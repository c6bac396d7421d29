package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tallyhq/tally/internal/model"
)

var (
	// ErrTokenNotFound covers every consume failure: unknown hash, already
	// consumed, and expired. Callers must not distinguish the cases.
	ErrTokenNotFound = errors.New("token not found")
)

type PendingTokenRepository interface {
	Upsert(token *model.PendingToken) error
	Consume(tokenHash string, purposes ...string) (*model.PendingToken, error)
	DeleteByAccountAndPurpose(accountID, purpose string) error
	PurgeExpired(olderThan time.Duration) (int64, error)
}

type pendingTokenRepository struct {
	db *sqlx.DB
}

func NewPendingTokenRepository(db *sqlx.DB) PendingTokenRepository {
	return &pendingTokenRepository{db: db}
}

// Upsert writes the purpose slot, replacing any prior pending token for the same
// account and purpose. The replaced token's hash is gone, so it can never be
// consumed: at most one outstanding request per purpose.
func (r *pendingTokenRepository) Upsert(token *model.PendingToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO pending_tokens (account_id, purpose, token_hash, payload, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, purpose) DO UPDATE
		SET token_hash = excluded.token_hash,
		    payload = excluded.payload,
		    expires_at = excluded.expires_at,
		    created_at = excluded.created_at
	`
	_, err := r.db.Exec(query,
		token.AccountID,
		token.Purpose,
		token.TokenHash,
		token.Payload,
		token.ExpiresAt,
		token.CreatedAt,
	)
	return err
}

// Consume atomically clears the slot holding the hash and returns it.
// Single DELETE ... RETURNING: under concurrent consume attempts with the same
// raw token exactly one caller gets the row, the rest get ErrTokenNotFound.
// Expiry and purpose are checked in the same statement, so an expired row or a
// purpose mismatch never consumes anything.
func (r *pendingTokenRepository) Consume(tokenHash string, purposes ...string) (*model.PendingToken, error) {
	if len(purposes) == 0 {
		return nil, ErrTokenNotFound
	}

	var t model.PendingToken

	query := `
		DELETE FROM pending_tokens
		WHERE token_hash = ?
		AND expires_at > ?
		AND purpose IN (?)
		RETURNING *
	`

	query, args, err := sqlx.In(query, tokenHash, time.Now(), purposes)
	if err != nil {
		return nil, err
	}

	err = r.db.Get(&t, r.db.Rebind(query), args...)
	if err == sql.ErrNoRows {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *pendingTokenRepository) DeleteByAccountAndPurpose(accountID, purpose string) error {
	query := `DELETE FROM pending_tokens WHERE account_id = $1 AND purpose = $2`
	_, err := r.db.Exec(query, accountID, purpose)
	return err
}

// PurgeExpired removes pending tokens whose expiry elapsed more than olderThan
// ago. Expiry is enforced lazily at consume time; this only reclaims storage.
func (r *pendingTokenRepository) PurgeExpired(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	query := `DELETE FROM pending_tokens WHERE expires_at < $1`

	result, err := r.db.Exec(query, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
