package model

import (
	"time"
)

// RefreshSession is one logged-in device: a long-lived opaque refresh token,
// stored only as its SHA-256, rotated on every use.
type RefreshSession struct {
	ID        string    `db:"id"`
	AccountID string    `db:"account_id"`
	TokenHash string    `db:"token_hash"`
	UserAgent string    `db:"user_agent"`
	IP        string    `db:"ip"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *RefreshSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// DeviceMeta is the client metadata recorded when a session is created and
// carried through rotation unchanged.
type DeviceMeta struct {
	UserAgent string
	IP        string
}
