package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/coursehub-backend/internal/data/repos"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

// PurgeResult counts the rows one purge pass removed.
type PurgeResult struct {
	Sessions    int64
	ResetTokens int64
}

// TokenPurger removes session rows whose refresh token expired and reset tokens that were
// used or expired.
type TokenPurger struct {
	log       *logger.Logger
	userToken repos.UserTokenRepo
	reset     repos.PasswordResetTokenRepo
	now       func() time.Time
}

func NewTokenPurger(baseLog *logger.Logger, userToken repos.UserTokenRepo, reset repos.PasswordResetTokenRepo) *TokenPurger {
	return &TokenPurger{
		log:       baseLog.With("component", "TokenPurger"),
		userToken: userToken,
		reset:     reset,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (p *TokenPurger) Run(ctx context.Context) (PurgeResult, error) {
	var out PurgeResult
	now := p.now()
	dbc := dbctx.New(ctx)

	n, err := p.userToken.FullDeleteExpired(dbc, now)
	if err != nil {
		return out, fmt.Errorf("purge sessions: %w", err)
	}
	out.Sessions = n

	n, err = p.reset.FullDeleteStale(dbc, now)
	if err != nil {
		return out, fmt.Errorf("purge reset tokens: %w", err)
	}
	out.ResetTokens = n

	if out.Sessions > 0 || out.ResetTokens > 0 {
		p.log.Info("tokens purged", "sessions", out.Sessions, "reset_tokens", out.ResetTokens)
	}
	return out, nil
}
