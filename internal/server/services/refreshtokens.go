// Package services contains server-side business logic: refresh token
// rotation, verification tokens, login and OAuth sign-in, and the user
// account flows built on top of them.
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
	"github.com/dmitrijs2005/apptracker/internal/logging"
	"github.com/dmitrijs2005/apptracker/internal/server/models"
	"github.com/dmitrijs2005/apptracker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/apptracker/internal/timex"
)

const rawTokenBytes = 32

// IssueOptions customises RefreshTokenService.Issue. Zero values mean: new
// family, no parent, default lifetime.
type IssueOptions struct {
	FamilyID      string
	ParentTokenID string
	ExpiresAt     time.Time
}

// Rotation is the outcome of a successful ValidateAndRotate.
type Rotation struct {
	RawToken  string
	ExpiresAt time.Time
	UserID    string
	FamilyID  string
}

// RefreshTokenService issues opaque refresh tokens, rotates them on use and
// revokes a whole family when an already rotated token comes back.
type RefreshTokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *cryptox.TokenHasher
	lifetime    time.Duration
	logger      logging.Logger
	now         timex.Clock
}

func NewRefreshTokenService(db *sql.DB, m repomanager.RepositoryManager, hasher *cryptox.TokenHasher,
	lifetime time.Duration, logger logging.Logger, now timex.Clock) *RefreshTokenService {
	if now == nil {
		now = timex.UTCNow
	}
	return &RefreshTokenService{db: db, repomanager: m, hasher: hasher, lifetime: lifetime, logger: logger, now: now}
}

// Lifetime is the default validity of an issued token.
func (s *RefreshTokenService) Lifetime() time.Duration { return s.lifetime }

// Issue stores a new token for userID and returns the raw value. The raw
// value is never persisted.
func (s *RefreshTokenService) Issue(ctx context.Context, userID string, opts IssueOptions) (string, error) {
	raw, _, err := s.IssueTx(ctx, s.db, userID, opts)
	return raw, err
}

// IssueTx is Issue running on the caller's transaction. It also returns the
// expiry that was stored.
func (s *RefreshTokenService) IssueTx(ctx context.Context, tx dbx.DBTX, userID string, opts IssueOptions) (string, time.Time, error) {
	raw, err := cryptox.RandomURLToken(rawTokenBytes)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generating refresh token: %w", err)
	}

	familyID := opts.FamilyID
	if familyID == "" {
		if familyID, err = cryptox.RandomURLToken(rawTokenBytes); err != nil {
			return "", time.Time{}, fmt.Errorf("generating family id: %w", err)
		}
	}

	now := s.now()
	expiresAt := opts.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(s.lifetime)
	}

	token := &models.RefreshToken{
		UserID:    userID,
		TokenHash: s.hasher.Hash(raw),
		FamilyID:  familyID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if opts.ParentTokenID != "" {
		token.ParentTokenID = sql.NullString{String: opts.ParentTokenID, Valid: true}
	}

	if err := s.repomanager.RefreshTokens(tx).Create(ctx, token); err != nil {
		return "", time.Time{}, err
	}

	return raw, expiresAt, nil
}

// ValidateAndRotate exchanges raw for a child token in the same family.
// expectedUserID is optional.
//
// Failures: common.ErrTokenInvalid (unknown token or other owner),
// common.ErrTokenExpired, common.ErrRefreshTokenReuse (the token was already
// rotated; its family is revoked before returning) and
// common.ErrRefreshTokenRevoked.
func (s *RefreshTokenService) ValidateAndRotate(ctx context.Context, raw, expectedUserID string) (*Rotation, error) {
	token, err := s.repomanager.RefreshTokens(s.db).GetByHash(ctx, s.hasher.Hash(raw))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrTokenInvalid
		}
		return nil, err
	}

	if expectedUserID != "" && token.UserID != expectedUserID {
		return nil, common.ErrTokenInvalid
	}

	now := s.now()
	if token.IsExpired(now) {
		return nil, common.ErrTokenExpired
	}
	// used is checked before revoked: a rotated token stays a reuse signal
	// even after its family was revoked
	if token.IsUsed() {
		return nil, s.reuseDetected(ctx, token)
	}
	if token.IsRevoked() {
		return nil, common.ErrRefreshTokenRevoked
	}

	var (
		rotation = &Rotation{UserID: token.UserID, FamilyID: token.FamilyID}
		lostRace bool
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		changed, err := s.repomanager.RefreshTokens(tx).MarkUsed(ctx, token.ID, now)
		if err != nil {
			return err
		}
		if !changed {
			lostRace = true
			return common.ErrRefreshTokenReuse
		}

		rotation.RawToken, rotation.ExpiresAt, err = s.IssueTx(ctx, tx, token.UserID, IssueOptions{
			FamilyID:      token.FamilyID,
			ParentTokenID: token.ID,
		})
		return err
	})
	if lostRace {
		return nil, s.reuseDetected(ctx, token)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "refresh token rotated", "user_id", token.UserID, "family_id", token.FamilyID)
	return rotation, nil
}

func (s *RefreshTokenService) reuseDetected(ctx context.Context, token *models.RefreshToken) error {
	n, err := s.repomanager.RefreshTokens(s.db).RevokeFamily(ctx, token.FamilyID, s.now())

	s.logger.Error(ctx, "refresh token reuse detected, family revoked",
		"user_id", token.UserID, "family_id", token.FamilyID, "token_id", token.ID, "revoked", n)

	if err != nil {
		return fmt.Errorf("%w: revoking family: %w", common.ErrRefreshTokenReuse, err)
	}
	return common.ErrRefreshTokenReuse
}

// Revoke revokes the single token behind raw. Unknown and already revoked
// tokens are not an error.
func (s *RefreshTokenService) Revoke(ctx context.Context, raw string) error {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.GetByHash(ctx, s.hasher.Hash(raw))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}

	_, err = repo.Revoke(ctx, token.ID, s.now())
	return err
}

// RevokeAllForUser revokes every token the user holds.
func (s *RefreshTokenService) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.RevokeAllForUserTx(ctx, s.db, userID)
}

func (s *RefreshTokenService) RevokeAllForUserTx(ctx context.Context, tx dbx.DBTX, userID string) error {
	n, err := s.repomanager.RefreshTokens(tx).RevokeAllForUser(ctx, userID, s.now())
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "refresh tokens revoked", "user_id", userID, "revoked", n)
	return nil
}
