package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tallyhq/tally/internal/model"
)

type TransactionRepository interface {
	Create(tx *model.Transaction) error
	ByAccount(accountID string) ([]*model.Transaction, error)
	CountByAccount(accountID string) (int, error)
	// DeleteAllOwnedBy removes every transaction of an account. Safe to retry:
	// deleting zero rows is a success.
	DeleteAllOwnedBy(accountID string) (int64, error)
}

type transactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(tx *model.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO transactions (id, account_id, amount_cents, currency, category, note, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(query,
		tx.ID,
		tx.AccountID,
		tx.AmountCent,
		tx.Currency,
		tx.Category,
		tx.Note,
		tx.OccurredAt,
		tx.CreatedAt,
	)
	return err
}

func (r *transactionRepository) ByAccount(accountID string) ([]*model.Transaction, error) {
	txs := []*model.Transaction{}
	query := `SELECT * FROM transactions WHERE account_id = $1 ORDER BY occurred_at DESC`

	err := r.db.Select(&txs, query, accountID)
	return txs, err
}

func (r *transactionRepository) CountByAccount(accountID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM transactions WHERE account_id = $1`

	err := r.db.Get(&count, query, accountID)
	return count, err
}

func (r *transactionRepository) DeleteAllOwnedBy(accountID string) (int64, error) {
	query := `DELETE FROM transactions WHERE account_id = $1`

	result, err := r.db.Exec(query, accountID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
