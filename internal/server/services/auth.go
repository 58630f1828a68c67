package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"github.com/dmitrijs2005/apptracker/internal/cryptox"
	"github.com/dmitrijs2005/apptracker/internal/dbx"
	"github.com/dmitrijs2005/apptracker/internal/logging"
	"github.com/dmitrijs2005/apptracker/internal/server/auth"
	"github.com/dmitrijs2005/apptracker/internal/server/models"
	"github.com/dmitrijs2005/apptracker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/apptracker/internal/timex"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	UserID           string
	Email            string
}

type Credentials struct {
	Email    string
	Password string
}

// AccessStrategy is the part of auth.TokenStrategy AuthService needs.
type AccessStrategy interface {
	CreateWithExpiry(p auth.Payload, expiresAt time.Time) (string, error)
	Verify(tokenString string) (*auth.Token, error)
	Lifetime() time.Duration
}

// AuthService handles password login, refresh token exchange and logout.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	passwords   cryptox.PasswordHasher
	access      AccessStrategy
	refresh     *RefreshTokenService
	logger      logging.Logger
	now         timex.Clock
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, passwords cryptox.PasswordHasher,
	access AccessStrategy, refresh *RefreshTokenService, logger logging.Logger, now timex.Clock) *AuthService {
	if now == nil {
		now = timex.UTCNow
	}
	return &AuthService{db: db, repomanager: m, passwords: passwords, access: access, refresh: refresh, logger: logger, now: now}
}

// Login checks credentials and returns an access token plus the root token
// of a new refresh family.
func (s *AuthService) Login(ctx context.Context, creds Credentials) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, NormalizeEmail(creds.Email))
	if err != nil {
		return nil, userErr(err)
	}

	if !user.IsActive {
		return nil, common.ErrUserNotActivated
	}

	// accounts created through OAuth have no password to check against
	if !user.HasPassword() || !s.passwords.Verify(creds.Password, user.Password.String) {
		return nil, common.ErrInvalidPassword
	}

	pair, err := s.IssuePair(ctx, s.db, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return pair, nil
}

// Refresh rotates raw and mints a new access token for its owner. Token
// errors from rotation are returned unchanged.
func (s *AuthService) Refresh(ctx context.Context, raw, expectedUserID string) (*TokenPair, error) {
	rotation, err := s.refresh.ValidateAndRotate(ctx, raw, expectedUserID)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, rotation.UserID)
	if err != nil {
		return nil, userErr(err)
	}

	access, accessExp, err := s.accessToken(user)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     rotation.RawToken,
		RefreshExpiresAt: rotation.ExpiresAt,
		UserID:           user.ID,
		Email:            user.Email,
	}, nil
}

// Logout revokes exactly the presented refresh token. It is idempotent.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	return s.refresh.Revoke(ctx, raw)
}

// LogoutAll revokes every refresh token of the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	return s.refresh.RevokeAllForUser(ctx, userID)
}

// Authenticate verifies a bearer access token.
func (s *AuthService) Authenticate(tokenString string) (*auth.Token, error) {
	return s.access.Verify(tokenString)
}

// IssuePair mints an access token and a new root refresh token for user on
// the given transaction.
func (s *AuthService) IssuePair(ctx context.Context, tx dbx.DBTX, user *models.User) (*TokenPair, error) {
	access, accessExp, err := s.accessToken(user)
	if err != nil {
		return nil, err
	}

	refresh, refreshExp, err := s.refresh.IssueTx(ctx, tx, user.ID, IssueOptions{})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		UserID:           user.ID,
		Email:            user.Email,
	}, nil
}

func (s *AuthService) accessToken(user *models.User) (string, time.Time, error) {
	exp := s.now().Add(s.access.Lifetime())
	token, err := s.access.CreateWithExpiry(auth.Payload{UserID: user.ID, UserEmail: user.Email}, exp)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return token, exp, nil
}
