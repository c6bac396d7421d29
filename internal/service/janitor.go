package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/tallyhq/tally/internal/repository"
)

// Janitor periodically removes long-expired refresh sessions and pending
// tokens. Purely hygienic: expiry checks happen inline on every lookup, so the
// system is correct without it.
type Janitor struct {
	sessions repository.SessionRepository
	tokens   repository.PendingTokenRepository
	retain   time.Duration
}

func NewJanitor(sessions repository.SessionRepository, tokens repository.PendingTokenRepository, retain time.Duration) *Janitor {
	return &Janitor{sessions: sessions, tokens: tokens, retain: retain}
}

// Run sweeps at the given interval until ctx is canceled.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep runs one purge pass over both tables.
func (j *Janitor) Sweep() {
	sessions, err := j.sessions.PurgeExpired(j.retain)
	if err != nil {
		slog.Warn("session purge failed", "error", err)
	}

	tokens, err := j.tokens.PurgeExpired(j.retain)
	if err != nil {
		slog.Warn("pending token purge failed", "error", err)
	}

	if sessions > 0 || tokens > 0 {
		slog.Info("purged expired rows", "sessions", sessions, "pending_tokens", tokens)
	}
}
