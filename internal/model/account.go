package model

import (
	"time"
)

type Account struct {
	ID                 string     `db:"id"`
	Email              *string    `db:"email"` // Nullable: account may exist without an email mid-registration
	PasswordHash       *string    `db:"password_hash"`
	IsVerified         bool       `db:"is_verified"`
	Preferences        string     `db:"preferences"` // Opaque JSON blob (theme/currency/locale)
	LastPasswordChange *time.Time `db:"last_password_change"`
	LastLogin          *time.Time `db:"last_login"`
	CreatedAt          time.Time  `db:"created_at"`
}

func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

func (a *Account) HasEmail() bool {
	return a.Email != nil && *a.Email != ""
}

// EmailOrEmpty avoids nil checks at call sites that only render the address.
func (a *Account) EmailOrEmpty() string {
	if a.Email == nil {
		return ""
	}
	return *a.Email
}
