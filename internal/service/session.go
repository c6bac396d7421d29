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

// ErrSessionInvalid is the uniform failure for refresh-token operations:
// unknown token, already rotated, and expired all look the same to callers.
var ErrSessionInvalid = errors.New("invalid refresh token")

// RefreshSessionManager owns the opaque refresh tokens. Raw values are
// returned exactly once; only SHA-256 hashes touch the database.
type RefreshSessionManager struct {
	sessions repository.SessionRepository
	expiry   time.Duration
}

func NewRefreshSessionManager(sessions repository.SessionRepository, expiry time.Duration) *RefreshSessionManager {
	return &RefreshSessionManager{
		sessions: sessions,
		expiry:   expiry,
	}
}

// Create opens a new session for a device and returns the raw refresh token.
func (m *RefreshSessionManager) Create(accountID string, device model.DeviceMeta) (string, error) {
	raw, err := crypto.GenerateOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	session := &model.RefreshSession{
		AccountID: accountID,
		TokenHash: crypto.HashToken(raw),
		UserAgent: device.UserAgent,
		IP:        device.IP,
		ExpiresAt: time.Now().Add(m.expiry),
	}

	err = m.sessions.Create(session)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return raw, nil
}

// Rotate exchanges a live refresh token for a fresh one. The swap happens in a
// single statement in the repository, so a stale token can never rotate twice.
func (m *RefreshSessionManager) Rotate(rawToken string) (string, *model.RefreshSession, error) {
	newRaw, err := crypto.GenerateOpaqueToken()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	session, err := m.sessions.Rotate(
		crypto.HashToken(rawToken),
		crypto.HashToken(newRaw),
		time.Now().Add(m.expiry),
	)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return "", nil, ErrSessionInvalid
		}
		return "", nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	return newRaw, session, nil
}

// Revoke drops the session matching the raw token. Revoking a token that
// matches nothing is a no-op: logout is idempotent.
func (m *RefreshSessionManager) Revoke(rawToken string) error {
	return m.sessions.DeleteByHash(crypto.HashToken(rawToken))
}

// RevokeAll clears every session for an account, e.g. after a credential
// change or before account deletion.
func (m *RefreshSessionManager) RevokeAll(accountID string) error {
	n, err := m.sessions.DeleteByAccount(accountID)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	if n > 0 {
		slog.Info("refresh sessions revoked", "account_id", accountID, "count", n)
	}
	return nil
}

// Sessions lists the account's active sessions for display. Token hashes stay
// out of the returned view's hands; callers must not render them.
func (m *RefreshSessionManager) Sessions(accountID string) ([]*model.RefreshSession, error) {
	all, err := m.sessions.ByAccount(accountID)
	if err != nil {
		return nil, err
	}

	live := make([]*model.RefreshSession, 0, len(all))
	for _, s := range all {
		if !s.IsExpired() {
			live = append(live, s)
		}
	}
	return live, nil
}
