package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"github.com/dmitrijs2005/apptracker/internal/cryptox"
	"github.com/dmitrijs2005/apptracker/internal/dbx"
	"github.com/dmitrijs2005/apptracker/internal/server/models"
	"github.com/dmitrijs2005/apptracker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/apptracker/internal/timex"
)

// VerificationTokenService manages single-use activation tokens. A user has
// at most one token at a time: issuing deletes the previous ones.
type VerificationTokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *cryptox.TokenHasher
	lifetime    time.Duration
	now         timex.Clock
}

func NewVerificationTokenService(db *sql.DB, m repomanager.RepositoryManager, hasher *cryptox.TokenHasher,
	lifetime time.Duration, now timex.Clock) *VerificationTokenService {
	if now == nil {
		now = timex.UTCNow
	}
	return &VerificationTokenService{db: db, repomanager: m, hasher: hasher, lifetime: lifetime, now: now}
}

// Issue replaces the user's tokens with a fresh one and returns its raw
// value for out-of-band delivery.
func (s *VerificationTokenService) Issue(ctx context.Context, userID string) (string, error) {
	var raw string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		raw, err = s.IssueTx(ctx, tx, userID)
		return err
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

func (s *VerificationTokenService) IssueTx(ctx context.Context, tx dbx.DBTX, userID string) (string, error) {
	repo := s.repomanager.VerificationTokens(tx)

	if err := repo.DeleteAllForUser(ctx, userID); err != nil {
		return "", err
	}

	raw, err := cryptox.RandomURLToken(rawTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generating verification token: %w", err)
	}

	now := s.now()
	token := &models.VerificationToken{
		UserID:    userID,
		TokenHash: s.hasher.Hash(raw),
		ExpiresAt: now.Add(s.lifetime),
		CreatedAt: now,
	}
	if err := repo.Create(ctx, token); err != nil {
		return "", err
	}

	return raw, nil
}

// ValidateAndConsume marks the token used and returns its owner.
// Unknown or used tokens give common.ErrTokenInvalid, stale ones
// common.ErrTokenExpired. Of two concurrent calls at most one succeeds.
func (s *VerificationTokenService) ValidateAndConsume(ctx context.Context, raw string) (string, error) {
	return s.ValidateAndConsumeTx(ctx, s.db, raw)
}

func (s *VerificationTokenService) ValidateAndConsumeTx(ctx context.Context, tx dbx.DBTX, raw string) (string, error) {
	repo := s.repomanager.VerificationTokens(tx)

	token, err := repo.GetByHash(ctx, s.hasher.Hash(raw))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrTokenInvalid
		}
		return "", err
	}

	now := s.now()
	if token.IsUsed() {
		return "", common.ErrTokenInvalid
	}
	if token.IsExpired(now) {
		return "", common.ErrTokenExpired
	}

	changed, err := repo.MarkUsed(ctx, token.ID, now)
	if err != nil {
		return "", err
	}
	if !changed {
		return "", common.ErrTokenInvalid
	}

	return token.UserID, nil
}

// CheckResendCooldown fails with *common.RateLimitError while the user's
// latest token is younger than cooldown.
func (s *VerificationTokenService) CheckResendCooldown(ctx context.Context, userID string, cooldown time.Duration) error {
	latest, err := s.repomanager.VerificationTokens(s.db).GetLatestForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}

	elapsed := s.now().Sub(latest.CreatedAt)
	if elapsed < cooldown {
		return &common.RateLimitError{RetryAfter: cooldown - elapsed}
	}
	return nil
}
