package model

import (
	"time"
)

// Transaction is the minimal owned resource of an account. Full transaction
// CRUD lives outside this subsystem; the model exists so account deletion can
// cascade over owned rows.
type Transaction struct {
	ID         string    `db:"id"`
	AccountID  string    `db:"account_id"`
	AmountCent int64     `db:"amount_cents"`
	Currency   string    `db:"currency"`
	Category   string    `db:"category"`
	Note       string    `db:"note"`
	OccurredAt time.Time `db:"occurred_at"`
	CreatedAt  time.Time `db:"created_at"`
}
