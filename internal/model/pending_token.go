package model

import (
	"time"
)

// PendingToken is the single outstanding single-use token for one purpose on one
// account. Only the SHA-256 of the raw token is ever persisted; the raw value is
// shown to the user exactly once.
type PendingToken struct {
	AccountID string    `db:"account_id"`
	Purpose   string    `db:"purpose"`
	TokenHash string    `db:"token_hash"`
	Payload   string    `db:"payload"` // New email address for the email purposes, empty otherwise
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

const (
	PurposeVerifyEmail   = "verify_email"
	PurposeResetPassword = "reset_password"
	PurposeChangeEmail   = "change_email"
	PurposeAddEmail      = "add_email"
)

// PurposeLifetimes is the per-purpose token TTL table.
var PurposeLifetimes = map[string]time.Duration{
	PurposeVerifyEmail:   24 * time.Hour,
	PurposeResetPassword: 1 * time.Hour,
	PurposeChangeEmail:   24 * time.Hour,
	PurposeAddEmail:      24 * time.Hour,
}

func (t *PendingToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
