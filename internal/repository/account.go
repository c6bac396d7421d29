package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tallyhq/tally/internal/model"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrDuplicateEmail  = errors.New("email already exists")
)

type AccountRepository interface {
	Create(account *model.Account) error
	ByID(id string) (*model.Account, error)
	ByEmail(email string) (*model.Account, error)
	Update(account *model.Account) error
	// SetLastLogin stamps only the last_login column, so a login can never
	// clobber a concurrent credential change.
	SetLastLogin(id string, at time.Time) error
	Delete(id string) error
	// SetEmailVerified swaps in a new address and marks the account verified in one
	// statement. Fails with ErrDuplicateEmail if the address was claimed by another
	// account after the pending token was generated.
	SetEmailVerified(id, email string) error
}

type accountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepository{db: db}
}

// isDuplicateErr detects unique constraint violations for both SQLite and PostgreSQL.
func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func (r *accountRepository) Create(account *model.Account) error {
	query := `INSERT INTO accounts (id, email, password_hash, is_verified, preferences, last_password_change, last_login, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.IsVerified,
		account.Preferences,
		account.LastPasswordChange,
		account.LastLogin,
		account.CreatedAt,
	)
	if isDuplicateErr(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *accountRepository) ByID(id string) (*model.Account, error) {
	account := &model.Account{}
	query := `SELECT * FROM accounts WHERE id = $1`

	err := r.db.Get(account, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}

	return account, err
}

func (r *accountRepository) ByEmail(email string) (*model.Account, error) {
	account := &model.Account{}
	query := `SELECT * FROM accounts WHERE email = $1`

	err := r.db.Get(account, query, email)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}

	return account, err
}

func (r *accountRepository) Update(account *model.Account) error {
	query := `UPDATE accounts
	          SET email = $1, password_hash = $2, is_verified = $3, preferences = $4,
	              last_password_change = $5, last_login = $6
	          WHERE id = $7`

	_, err := r.db.Exec(query,
		account.Email,
		account.PasswordHash,
		account.IsVerified,
		account.Preferences,
		account.LastPasswordChange,
		account.LastLogin,
		account.ID,
	)
	if isDuplicateErr(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *accountRepository) SetLastLogin(id string, at time.Time) error {
	query := `UPDATE accounts SET last_login = $1 WHERE id = $2`

	_, err := r.db.Exec(query, at, id)
	return err
}

func (r *accountRepository) Delete(id string) error {
	query := `DELETE FROM accounts WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrAccountNotFound
	}

	return nil
}

func (r *accountRepository) SetEmailVerified(id, email string) error {
	query := `UPDATE accounts SET email = $1, is_verified = TRUE WHERE id = $2`

	result, err := r.db.Exec(query, email, id)
	if isDuplicateErr(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAccountNotFound
	}

	return nil
}
