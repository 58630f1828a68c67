package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"github.com/dmitrijs2005/apptracker/internal/cryptox"
	"github.com/dmitrijs2005/apptracker/internal/dbx"
	"github.com/dmitrijs2005/apptracker/internal/logging"
	"github.com/dmitrijs2005/apptracker/internal/server/models"
	"github.com/dmitrijs2005/apptracker/internal/server/repositories/repomanager"
)

type Registration struct {
	Email      string
	Password   string
	FirstName  string
	SecondName string
}

// AccountMailer sends the emails the account flows need.
type AccountMailer interface {
	SendVerification(ctx context.Context, user *models.User) error
	SendDuplicateRegistrationWarning(ctx context.Context, addr string) error
}

// UserService implements registration, activation and profile management.
type UserService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	passwords      cryptox.PasswordHasher
	verification   *VerificationTokenService
	refresh        *RefreshTokenService
	mailer         AccountMailer
	resendCooldown time.Duration
	logger         logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, passwords cryptox.PasswordHasher,
	verification *VerificationTokenService, refresh *RefreshTokenService, mailer AccountMailer,
	resendCooldown time.Duration, logger logging.Logger) *UserService {
	return &UserService{
		db:             db,
		repomanager:    m,
		passwords:      passwords,
		verification:   verification,
		refresh:        refresh,
		mailer:         mailer,
		resendCooldown: resendCooldown,
		logger:         logger,
	}
}

// NormalizeEmail is applied to every address before it is stored or
// looked up.
func NormalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Register creates an inactive account and mails an activation link.
//
// The outcome is indistinguishable to the caller when the address is taken:
// the owner of an active account gets a security warning, an inactive one
// gets a new activation link (subject to the resend cooldown).
func (s *UserService) Register(ctx context.Context, r Registration) error {
	addr := NormalizeEmail(r.Email)

	digest, err := s.passwords.Hash(r.Password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Email:         addr,
		Password:      sql.NullString{String: digest, Valid: true},
		FirstName:     nullString(r.FirstName),
		SecondName:    nullString(r.SecondName),
		OAuthProvider: models.ProviderLocal,
	})
	if err != nil {
		if errors.Is(err, common.ErrUserAlreadyExists) {
			return s.registerExisting(ctx, addr)
		}
		return err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return s.mailer.SendVerification(ctx, user)
}

func (s *UserService) registerExisting(ctx context.Context, addr string) error {
	existing, err := s.repomanager.Users(s.db).GetByEmail(ctx, addr)
	if err != nil {
		return err
	}

	if existing.IsActive {
		s.logger.Warn(ctx, "registration attempt for existing account", "user_id", existing.ID)
		return s.mailer.SendDuplicateRegistrationWarning(ctx, addr)
	}

	if err := s.verification.CheckResendCooldown(ctx, existing.ID, s.resendCooldown); err != nil {
		if errors.Is(err, common.ErrRateLimitExceeded) {
			return nil
		}
		return err
	}
	return s.mailer.SendVerification(ctx, existing)
}

// CreateActive creates an account that can sign in immediately. It is used
// by operators and skips the activation email.
func (s *UserService) CreateActive(ctx context.Context, r Registration) (*models.User, error) {
	digest, err := s.passwords.Hash(r.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Email:         NormalizeEmail(r.Email),
		Password:      sql.NullString{String: digest, Valid: true},
		FirstName:     nullString(r.FirstName),
		SecondName:    nullString(r.SecondName),
		IsActive:      true,
		OAuthProvider: models.ProviderLocal,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user created", "user_id", user.ID)
	return user, nil
}

// Activate consumes a verification token and activates its owner.
func (s *UserService) Activate(ctx context.Context, rawToken string) (*models.User, error) {
	var user *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		userID, err := s.verification.ValidateAndConsumeTx(ctx, tx, rawToken)
		if err != nil {
			return err
		}

		users := s.repomanager.Users(tx)
		u, err := users.GetByID(ctx, userID)
		if err != nil {
			return userErr(err)
		}
		if u.IsActive {
			return common.ErrUserAlreadyActivated
		}

		user, err = users.Activate(ctx, userID)
		return userErr(err)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user activated", "user_id", user.ID)
	return user, nil
}

// ResendActivation mails a new activation link. Unknown addresses are
// reported as common.ErrUserNotFound so the transport can hide them.
func (s *UserService) ResendActivation(ctx context.Context, addr string) error {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, NormalizeEmail(addr))
	if err != nil {
		return userErr(err)
	}
	if user.IsActive {
		return common.ErrUserAlreadyActivated
	}

	if err := s.verification.CheckResendCooldown(ctx, user.ID, s.resendCooldown); err != nil {
		return err
	}
	return s.mailer.SendVerification(ctx, user)
}

// ChangePassword replaces the password after checking the old one and signs
// the user out everywhere.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	users := s.repomanager.Users(s.db)

	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return userErr(err)
	}
	if !user.HasPassword() || !s.passwords.Verify(oldPassword, user.Password.String) {
		return common.ErrInvalidPassword
	}

	digest, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).SetPassword(ctx, userID, digest); err != nil {
			return userErr(err)
		}
		return s.refresh.RevokeAllForUserTx(ctx, tx, userID)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "password changed", "user_id", userID)
	return nil
}

func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, userErr(err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, p models.UserProfile) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).UpdateProfile(ctx, userID, p)
	if err != nil {
		return nil, userErr(err)
	}
	return user, nil
}

// Delete removes the account; its tokens are removed by the database.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if err := s.repomanager.Users(s.db).Delete(ctx, userID); err != nil {
		return userErr(err)
	}
	s.logger.Info(ctx, "user deleted", "user_id", userID)
	return nil
}

func userErr(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrUserNotFound
	}
	return err
}
