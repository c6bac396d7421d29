package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/crypto"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/repository"
	"github.com/tallyhq/tally/internal/validation"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrHasEmail           = errors.New("account already has an email")
	ErrNoEmail            = errors.New("account has no email")
)

// AccountView is the sanitized account representation returned to clients.
// Never carries the password hash or any token material.
type AccountView struct {
	ID         string    `json:"id"`
	Email      string    `json:"email,omitempty"`
	Name       string    `json:"name,omitempty"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TokenPair is the result of login and refresh: a short-lived bearer token and
// a long-lived single-use refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// AuthService orchestrates the account lifecycle: registration, login, token
// refresh, the four pending-token flows, and account deletion. It composes the
// password hasher, the refresh-session manager, and the pending-token manager
// and is the only writer of Account state.
type AuthService struct {
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	hasher       *crypto.PasswordHasher
	issuer       *AccessTokenIssuer
	sessions     *RefreshSessionManager
	pending      *PendingTokenManager
}

func NewAuthService(
	accounts repository.AccountRepository,
	transactions repository.TransactionRepository,
	hasher *crypto.PasswordHasher,
	issuer *AccessTokenIssuer,
	sessions *RefreshSessionManager,
	pending *PendingTokenManager,
) *AuthService {
	return &AuthService{
		accounts:     accounts,
		transactions: transactions,
		hasher:       hasher,
		issuer:       issuer,
		sessions:     sessions,
		pending:      pending,
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (s *AuthService) view(account *model.Account) *AccountView {
	v := &AccountView{
		ID:         account.ID,
		Email:      account.EmailOrEmpty(),
		IsVerified: account.IsVerified,
		CreatedAt:  account.CreatedAt,
	}

	var prefs struct {
		Name string `json:"name"`
	}
	if json.Unmarshal([]byte(account.Preferences), &prefs) == nil {
		v.Name = prefs.Name
	}

	return v
}

// Register creates an unverified account. The password hash is computed here,
// explicitly, before anything is persisted. When an email is supplied a
// verify-email token is generated and dispatched; the raw token is returned so
// development responses can expose the link.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AccountView, string, error) {
	name = strings.TrimSpace(name)
	err := validation.ValidateName(name)
	if err != nil {
		return nil, "", err
	}

	email = normalizeEmail(email)
	if email != "" {
		err = validation.ValidateEmail(email)
		if err != nil {
			return nil, "", ErrInvalidEmail
		}
	}

	err = validation.ValidatePassword(password)
	if err != nil {
		return nil, "", err
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	prefs, _ := json.Marshal(map[string]string{"name": name})

	account := &model.Account{
		ID:           uuid.New().String(),
		PasswordHash: &hash,
		IsVerified:   false,
		Preferences:  string(prefs),
		CreatedAt:    time.Now(),
	}
	if email != "" {
		account.Email = &email
	}

	err = s.accounts.Create(account)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", repository.ErrDuplicateEmail
		}
		return nil, "", fmt.Errorf("failed to create account: %w", err)
	}

	var rawToken string
	if email != "" {
		rawToken, err = s.pending.Generate(account.ID, model.PurposeVerifyEmail, "")
		if err != nil {
			// Account exists; the user can request a fresh verification link.
			slog.Warn("failed to generate verification token", "account_id", account.ID, "error", err)
		}
	}

	slog.Info("account registered", "account_id", account.ID)
	return s.view(account), rawToken, nil
}

// Login authenticates by email and password, requires a verified email, and on
// success issues one access token and opens one refresh session.
func (s *AuthService) Login(ctx context.Context, email, password string, device model.DeviceMeta) (*TokenPair, *AccountView, error) {
	email = normalizeEmail(email)

	account, err := s.accounts.ByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to get account: %w", err)
	}

	if !account.HasPassword() {
		return nil, nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(ctx, password, *account.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	if !account.IsVerified {
		return nil, nil, ErrEmailNotVerified
	}

	pair, err := s.issueTokenPair(account, device)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	account.LastLogin = &now
	err = s.accounts.SetLastLogin(account.ID, now)
	if err != nil {
		slog.Warn("failed to record login time", "account_id", account.ID, "error", err)
	}

	slog.Info("login", "account_id", account.ID)
	return pair, s.view(account), nil
}

func (s *AuthService) issueTokenPair(account *model.Account, device model.DeviceMeta) (*TokenPair, error) {
	access, err := s.issuer.Issue(account.ID, account.EmailOrEmpty())
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refresh, err := s.sessions.Create(account.ID, device)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.issuer.Expiry().Seconds()),
	}, nil
}

// Refresh rotates the refresh token and issues a fresh access token for the
// session's account. The old refresh token is dead after this call.
func (s *AuthService) Refresh(rawRefreshToken string) (*TokenPair, error) {
	newRaw, session, err := s.sessions.Rotate(rawRefreshToken)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.ByID(session.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	access, err := s.issuer.Issue(account.ID, account.EmailOrEmpty())
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: newRaw,
		ExpiresIn:    int64(s.issuer.Expiry().Seconds()),
	}, nil
}

// Logout revokes exactly the one session named by the token. Other devices
// stay signed in. Always succeeds.
func (s *AuthService) Logout(rawRefreshToken string) error {
	return s.sessions.Revoke(rawRefreshToken)
}

// VerifyEmail consumes a verify-email token.
func (s *AuthService) VerifyEmail(rawToken string) (*AccountView, error) {
	account, err := s.pending.ConsumeVerifyEmail(rawToken)
	if err != nil {
		return nil, err
	}
	return s.view(account), nil
}

// ForgotPassword starts the reset flow. It always reports success: whether the
// address exists is never revealed.
func (s *AuthService) ForgotPassword(email string) error {
	email = normalizeEmail(email)

	err := validation.ValidateEmail(email)
	if err != nil {
		return nil
	}

	account, err := s.accounts.ByEmail(email)
	if err != nil {
		if !errors.Is(err, repository.ErrAccountNotFound) {
			slog.Warn("forgot password lookup failed", "error", err)
		}
		return nil
	}

	_, err = s.pending.Generate(account.ID, model.PurposeResetPassword, "")
	if err != nil {
		slog.Warn("failed to generate reset token", "account_id", account.ID, "error", err)
	}

	return nil
}

// ResetPassword consumes a reset token and installs the new password. The
// email-token proof of ownership bypasses the change cooldown. All refresh
// sessions are revoked so a stolen session cannot outlive the reset.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	err := validation.ValidatePassword(newPassword)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := s.pending.ConsumeResetPassword(rawToken, hash)
	if err != nil {
		return err
	}

	err = s.sessions.RevokeAll(account.ID)
	if err != nil {
		slog.Warn("failed to revoke sessions after reset", "account_id", account.ID, "error", err)
	}

	return nil
}

// ChangePassword verifies the current password, enforces the change cooldown,
// installs the new hash, and revokes every refresh session.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := s.accounts.ByID(accountID)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}

	if !account.HasPassword() {
		return ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(ctx, currentPassword, *account.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	err = s.hasher.CanChangePassword(account.LastPasswordChange)
	if err != nil {
		return err
	}

	err = validation.ValidatePassword(newPassword)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	account.PasswordHash = &hash
	account.LastPasswordChange = &now
	err = s.accounts.Update(account)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	err = s.sessions.RevokeAll(account.ID)
	if err != nil {
		slog.Warn("failed to revoke sessions after password change", "account_id", account.ID, "error", err)
	}

	slog.Info("password changed", "account_id", account.ID)
	return nil
}

// RequestEmailChange starts the change-email flow for an account that already
// has an address. The link goes to the new address.
func (s *AuthService) RequestEmailChange(accountID, newEmail string) error {
	return s.requestEmailUpdate(accountID, newEmail, true)
}

// RequestEmailAdd starts the add-email flow for an account created without an
// address.
func (s *AuthService) RequestEmailAdd(accountID, newEmail string) error {
	return s.requestEmailUpdate(accountID, newEmail, false)
}

func (s *AuthService) requestEmailUpdate(accountID, newEmail string, expectExisting bool) error {
	newEmail = normalizeEmail(newEmail)

	err := validation.ValidateEmail(newEmail)
	if err != nil {
		return ErrInvalidEmail
	}

	account, err := s.accounts.ByID(accountID)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}

	if expectExisting && !account.HasEmail() {
		return ErrNoEmail
	}
	if !expectExisting && account.HasEmail() {
		return ErrHasEmail
	}
	if account.HasEmail() && *account.Email == newEmail {
		return ErrInvalidEmail
	}

	purpose := model.PurposeAddEmail
	if expectExisting {
		purpose = model.PurposeChangeEmail
	}

	_, err = s.pending.Generate(accountID, purpose, newEmail)
	return err
}

// ConfirmEmailChange consumes a change-email or add-email token, making the
// payload address the account's verified email.
func (s *AuthService) ConfirmEmailChange(rawToken string) (*AccountView, error) {
	account, err := s.pending.ConsumeEmailChange(rawToken)
	if err != nil {
		return nil, err
	}
	return s.view(account), nil
}

// DeleteAccount hard-deletes an account after double confirmation: the caller
// must present the account's own email and its current password. Owned
// transactions are removed first; if that fails the account survives, so no
// transaction is ever orphaned.
func (s *AuthService) DeleteAccount(ctx context.Context, accountID, confirmationEmail, password string) error {
	account, err := s.accounts.ByID(accountID)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}

	if account.EmailOrEmpty() != normalizeEmail(confirmationEmail) {
		return ErrInvalidCredentials
	}

	if !account.HasPassword() {
		return ErrInvalidCredentials
	}
	ok, err := s.hasher.Verify(ctx, password, *account.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	n, err := s.transactions.DeleteAllOwnedBy(account.ID)
	if err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}

	err = s.sessions.RevokeAll(account.ID)
	if err != nil {
		slog.Warn("failed to revoke sessions before deletion", "account_id", account.ID, "error", err)
	}

	err = s.accounts.Delete(account.ID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	slog.Info("account deleted", "account_id", account.ID, "transactions_removed", n)
	return nil
}

// Sessions lists the account's active refresh sessions for display.
func (s *AuthService) Sessions(accountID string) ([]*model.RefreshSession, error) {
	return s.sessions.Sessions(accountID)
}

// AccountByID returns the sanitized view for the bearer-authenticated account.
func (s *AuthService) AccountByID(accountID string) (*AccountView, error) {
	account, err := s.accounts.ByID(accountID)
	if err != nil {
		return nil, err
	}
	return s.view(account), nil
}

// ValidateAccessToken delegates to the issuer; exported for middleware.
func (s *AuthService) ValidateAccessToken(token string) (*AccessClaims, error) {
	return s.issuer.Validate(token)
}

// AuthenticateOAuth signs in (or creates) an account from a provider-verified
// email. OAuth accounts start verified and passwordless.
func (s *AuthService) AuthenticateOAuth(email, provider string, device model.DeviceMeta) (*TokenPair, *AccountView, error) {
	email = normalizeEmail(email)

	err := validation.ValidateEmail(email)
	if err != nil {
		return nil, nil, ErrInvalidEmail
	}

	account, err := s.accounts.ByEmail(email)
	if err != nil {
		if !errors.Is(err, repository.ErrAccountNotFound) {
			return nil, nil, fmt.Errorf("failed to lookup account: %w", err)
		}

		account = &model.Account{
			ID:          uuid.New().String(),
			Email:       &email,
			IsVerified:  true, // provider vouches for the address
			Preferences: "{}",
			CreatedAt:   time.Now(),
		}

		err = s.accounts.Create(account)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create account: %w", err)
		}

		slog.Info("oauth account created", "account_id", account.ID, "provider", provider)
	} else if !account.IsVerified {
		account.IsVerified = true
		err = s.accounts.Update(account)
		if err != nil {
			slog.Warn("failed to mark account verified", "account_id", account.ID, "error", err)
		}
	}

	pair, err := s.issueTokenPair(account, device)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	account.LastLogin = &now
	err = s.accounts.SetLastLogin(account.ID, now)
	if err != nil {
		slog.Warn("failed to record login time", "account_id", account.ID, "error", err)
	}

	slog.Info("oauth login", "account_id", account.ID, "provider", provider)
	return pair, s.view(account), nil
}
