package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tallyhq/tally/internal/model"
)

var (
	// ErrSessionNotFound covers unknown, already-rotated, and expired refresh
	// tokens alike. Callers must not distinguish the cases.
	ErrSessionNotFound = errors.New("session not found")
)

type SessionRepository interface {
	Create(session *model.RefreshSession) error
	// Rotate swaps the token hash and extends the expiry in one atomic statement.
	Rotate(oldHash, newHash string, expiresAt time.Time) (*model.RefreshSession, error)
	DeleteByHash(tokenHash string) error
	DeleteByAccount(accountID string) (int64, error)
	ByAccount(accountID string) ([]*model.RefreshSession, error)
	PurgeExpired(olderThan time.Duration) (int64, error)
}

type sessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(session *model.RefreshSession) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO refresh_sessions (id, account_id, token_hash, user_agent, ip, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(query,
		session.ID,
		session.AccountID,
		session.TokenHash,
		session.UserAgent,
		session.IP,
		session.ExpiresAt,
		session.CreatedAt,
	)
	return err
}

// Rotate is the replay-detection pivot: a single UPDATE ... RETURNING keyed on
// the old hash. Two concurrent rotations with the same token race on this one
// statement; the loser matches zero rows and gets ErrSessionNotFound, so a
// stale refresh token never validates twice. Device metadata carries over
// unchanged.
func (r *sessionRepository) Rotate(oldHash, newHash string, expiresAt time.Time) (*model.RefreshSession, error) {
	var s model.RefreshSession

	query := `
		UPDATE refresh_sessions
		SET token_hash = $1, expires_at = $2
		WHERE token_hash = $3
		AND expires_at > $4
		RETURNING *
	`

	err := r.db.Get(&s, query, newHash, expiresAt, oldHash, time.Now())
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *sessionRepository) DeleteByHash(tokenHash string) error {
	query := `DELETE FROM refresh_sessions WHERE token_hash = $1`
	_, err := r.db.Exec(query, tokenHash)
	return err
}

func (r *sessionRepository) DeleteByAccount(accountID string) (int64, error) {
	query := `DELETE FROM refresh_sessions WHERE account_id = $1`

	result, err := r.db.Exec(query, accountID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *sessionRepository) ByAccount(accountID string) ([]*model.RefreshSession, error) {
	sessions := []*model.RefreshSession{}
	query := `SELECT * FROM refresh_sessions WHERE account_id = $1 ORDER BY created_at`

	err := r.db.Select(&sessions, query, accountID)
	return sessions, err
}

func (r *sessionRepository) PurgeExpired(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	query := `DELETE FROM refresh_sessions WHERE expires_at < $1`

	result, err := r.db.Exec(query, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
