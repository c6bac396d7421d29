package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tallyhq/tally/internal/crypto"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/repository"
)

var (
	// ErrTokenInvalid is the uniform consume failure. Unknown, already used,
	// and expired tokens are indistinguishable to the caller.
	ErrTokenInvalid = errors.New("invalid or expired token")
	ErrBadPurpose   = errors.New("unknown token purpose")
	// ErrEmailTaken fires when the target address of an email purpose is
	// claimed by another account, at generation or consumption time.
	ErrEmailTaken = errors.New("email already in use")
)

// NotificationDispatcher delivers the raw token to the user out of band.
// Delivery failure must not prevent the token from existing.
type NotificationDispatcher interface {
	Send(purpose, recipient, rawToken string) error
}

// PendingTokenManager is the one engine behind all four single-use token
// flows: verify-email, reset-password, change-email, add-email. Each purpose
// holds at most one outstanding token per account; generating a new one
// silently invalidates the old.
type PendingTokenManager struct {
	accounts   repository.AccountRepository
	tokens     repository.PendingTokenRepository
	dispatcher NotificationDispatcher
}

func NewPendingTokenManager(
	accounts repository.AccountRepository,
	tokens repository.PendingTokenRepository,
	dispatcher NotificationDispatcher,
) *PendingTokenManager {
	return &PendingTokenManager{
		accounts:   accounts,
		tokens:     tokens,
		dispatcher: dispatcher,
	}
}

// Generate mints an opaque token for a purpose, persists its hash in the
// purpose slot, and dispatches it to the recipient. The returned raw value is
// never stored. payload carries the target address for the email purposes.
func (m *PendingTokenManager) Generate(accountID, purpose, payload string) (string, error) {
	lifetime, ok := model.PurposeLifetimes[purpose]
	if !ok {
		return "", ErrBadPurpose
	}

	account, err := m.accounts.ByID(accountID)
	if err != nil {
		return "", fmt.Errorf("failed to get account: %w", err)
	}

	recipient := account.EmailOrEmpty()
	switch purpose {
	case model.PurposeChangeEmail, model.PurposeAddEmail:
		// The link goes to the address being claimed, which must still be free.
		err = m.ensureEmailFree(payload, accountID)
		if err != nil {
			return "", err
		}
		recipient = payload
	default:
		payload = ""
	}

	raw, err := crypto.GenerateOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	token := &model.PendingToken{
		AccountID: accountID,
		Purpose:   purpose,
		TokenHash: crypto.HashToken(raw),
		Payload:   payload,
		ExpiresAt: time.Now().Add(lifetime),
	}

	err = m.tokens.Upsert(token)
	if err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	err = m.dispatcher.Send(purpose, recipient, raw)
	if err != nil {
		// The token stands; the user may still receive the link out of band.
		slog.Warn("notification dispatch failed", "purpose", purpose, "account_id", accountID, "error", err)
	}

	return raw, nil
}

// consume atomically clears the slot holding the raw token's hash. A token of
// the wrong purpose reports the same uniform error as a miss and stays intact.
func (m *PendingTokenManager) consume(rawToken string, purposes ...string) (*model.PendingToken, error) {
	if rawToken == "" {
		return nil, ErrTokenInvalid
	}

	token, err := m.tokens.Consume(crypto.HashToken(rawToken), purposes...)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}

	return token, nil
}

// ConsumeVerifyEmail flips the account to verified.
func (m *PendingTokenManager) ConsumeVerifyEmail(rawToken string) (*model.Account, error) {
	token, err := m.consume(rawToken, model.PurposeVerifyEmail)
	if err != nil {
		return nil, err
	}

	account, err := m.accounts.ByID(token.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if !account.IsVerified {
		account.IsVerified = true
		err = m.accounts.Update(account)
		if err != nil {
			return nil, fmt.Errorf("failed to mark account verified: %w", err)
		}
	}

	slog.Info("email verified", "account_id", account.ID)
	return account, nil
}

// ConsumeResetPassword installs the pre-hashed replacement password. Hashing
// happens at the call site so the contract is visible there.
func (m *PendingTokenManager) ConsumeResetPassword(rawToken, newPasswordHash string) (*model.Account, error) {
	token, err := m.consume(rawToken, model.PurposeResetPassword)
	if err != nil {
		return nil, err
	}

	account, err := m.accounts.ByID(token.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	now := time.Now()
	account.PasswordHash = &newPasswordHash
	account.LastPasswordChange = &now
	err = m.accounts.Update(account)
	if err != nil {
		return nil, fmt.Errorf("failed to set password: %w", err)
	}

	slog.Info("password reset", "account_id", account.ID)
	return account, nil
}

// ConsumeEmailChange serves both change-email and add-email: the payload
// address becomes the account's verified email. The address is re-checked for
// uniqueness by the swap statement itself, so two accounts racing for the same
// address produce exactly one success.
func (m *PendingTokenManager) ConsumeEmailChange(rawToken string) (*model.Account, error) {
	token, err := m.consume(rawToken, model.PurposeChangeEmail, model.PurposeAddEmail)
	if err != nil {
		return nil, err
	}

	err = m.accounts.SetEmailVerified(token.AccountID, token.Payload)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to set email: %w", err)
	}

	// Both email purposes target the same slot semantics; a surviving token of
	// the other purpose would claim a now-stale address.
	sibling := model.PurposeAddEmail
	if token.Purpose == model.PurposeAddEmail {
		sibling = model.PurposeChangeEmail
	}
	err = m.tokens.DeleteByAccountAndPurpose(token.AccountID, sibling)
	if err != nil {
		slog.Warn("failed to clear stale email token", "account_id", token.AccountID, "error", err)
	}

	account, err := m.accounts.ByID(token.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	slog.Info("email updated", "account_id", account.ID, "purpose", token.Purpose)
	return account, nil
}

func (m *PendingTokenManager) ensureEmailFree(email, exceptAccountID string) error {
	existing, err := m.accounts.ByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil
		}
		return fmt.Errorf("failed to check email: %w", err)
	}
	if existing.ID != exceptAccountID {
		return ErrEmailTaken
	}
	return nil
}
