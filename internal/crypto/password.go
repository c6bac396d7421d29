package crypto

import (
	"context"
	"errors"
	"runtime"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrChangeTooSoon   = errors.New("password was changed too recently")
	ErrPasswordTooLong = errors.New("password must not exceed 72 bytes")
	ErrEmptyPassword   = errors.New("password must not be empty")
)

// DefaultChangeCooldown is the minimum gap between consecutive password changes
// from the same flow. Reset-password bypasses it (the caller holds an
// owner-verified email token).
const DefaultChangeCooldown = time.Hour

// PasswordHasher wraps bcrypt behind a bounded worker semaphore so CPU-bound
// hashing cannot starve request handling under load.
type PasswordHasher struct {
	cost     int
	cooldown time.Duration
	sem      chan struct{}
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	// Leave one CPU for everything that is not hashing.
	workers := runtime.GOMAXPROCS(0) - 1
	if workers < 1 {
		workers = 1
	}

	return &PasswordHasher{
		cost:     cost,
		cooldown: DefaultChangeCooldown,
		sem:      make(chan struct{}, workers),
	}
}

func (h *PasswordHasher) acquire(ctx context.Context) error {
	select {
	case h.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Hash produces a salted bcrypt hash of the plaintext.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	// bcrypt silently truncates beyond 72 bytes; reject instead.
	if len(password) > 72 {
		return "", ErrPasswordTooLong
	}

	err := h.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer func() { <-h.sem }()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether the plaintext matches the stored hash. A mismatch is
// a false return, never an error.
func (h *PasswordHasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	err := h.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer func() { <-h.sem }()

	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		// Malformed stored hash. Report as non-match rather than leaking detail.
		return false, nil
	}
	return true, nil
}

// CanChangePassword enforces the advisory cooldown between consecutive
// password changes. lastChange == nil means the password was never changed.
func (h *PasswordHasher) CanChangePassword(lastChange *time.Time) error {
	if lastChange == nil {
		return nil
	}
	if time.Since(*lastChange) < h.cooldown {
		return ErrChangeTooSoon
	}
	return nil
}
