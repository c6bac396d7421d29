package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/repository"
)

var ErrInvalidTransaction = errors.New("invalid transaction")

// TransactionService is the minimal owned-resource collaborator of the account
// lifecycle: record, list, and the bulk delete that account removal cascades
// through. Budgeting features live elsewhere.
type TransactionService struct {
	transactions repository.TransactionRepository
}

func NewTransactionService(transactions repository.TransactionRepository) *TransactionService {
	return &TransactionService{transactions: transactions}
}

// Record stores a transaction for the account. Amount is in cents and may be
// negative (an expense); currency is a 3-letter code.
func (s *TransactionService) Record(accountID string, amountCents int64, currency, category, note string, occurredAt time.Time) (*model.Transaction, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return nil, ErrInvalidTransaction
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	tx := &model.Transaction{
		ID:         uuid.New().String(),
		AccountID:  accountID,
		AmountCent: amountCents,
		Currency:   currency,
		Category:   strings.TrimSpace(category),
		Note:       note,
		OccurredAt: occurredAt,
		CreatedAt:  time.Now(),
	}

	err := s.transactions.Create(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}
	return tx, nil
}

// List returns the account's transactions, newest first.
func (s *TransactionService) List(accountID string) ([]*model.Transaction, error) {
	return s.transactions.ByAccount(accountID)
}
