package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"github.com/dmitrijs2005/apptracker/internal/cryptox"
	"github.com/dmitrijs2005/apptracker/internal/dbx"
	"github.com/dmitrijs2005/apptracker/internal/logging"
	"github.com/dmitrijs2005/apptracker/internal/server/models"
	"github.com/dmitrijs2005/apptracker/internal/server/oauth"
	"github.com/dmitrijs2005/apptracker/internal/server/repositories/repomanager"
)

// ProviderLookup resolves a provider by its path name.
type ProviderLookup interface {
	Lookup(name string) (oauth.Provider, error)
}

type AuthorizeResult struct {
	URL   string
	State string
}

type CallbackResult struct {
	Tokens    *TokenPair
	IsNewUser bool
}

// OAuthService runs the authorization code flow and maps the external
// identity onto a local account.
type OAuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	providers   ProviderLookup
	flows       oauth.FlowStore
	auth        *AuthService
	logger      logging.Logger
}

func NewOAuthService(db *sql.DB, m repomanager.RepositoryManager, providers ProviderLookup,
	flows oauth.FlowStore, auth *AuthService, logger logging.Logger) *OAuthService {
	return &OAuthService{db: db, repomanager: m, providers: providers, flows: flows, auth: auth, logger: logger}
}

// Authorize starts a flow. The returned state must come back unchanged on
// the callback; the PKCE verifier never leaves the server.
func (s *OAuthService) Authorize(ctx context.Context, providerName string) (*AuthorizeResult, error) {
	provider, err := s.providers.Lookup(providerName)
	if err != nil {
		return nil, err
	}

	state, err := cryptox.NewStateToken()
	if err != nil {
		return nil, err
	}

	flow := oauth.Flow{Provider: provider.Name()}
	var challenge string
	if provider.SupportsPKCE() {
		if flow.Verifier, err = cryptox.NewCodeVerifier(); err != nil {
			return nil, err
		}
		challenge = cryptox.CodeChallengeS256(flow.Verifier)
	}

	if err := s.flows.Save(ctx, state, flow, oauth.FlowTTL); err != nil {
		return nil, err
	}

	return &AuthorizeResult{URL: provider.AuthCodeURL(state, challenge), State: state}, nil
}

// Callback finishes a flow started by Authorize and signs the user in.
//
// The identity is resolved in this order: an account already linked to the
// provider id; a local account with the same email, which gets linked; an
// account with that email from another provider, which is refused; otherwise
// a new active account. Linking requires the provider to have verified the
// email.
func (s *OAuthService) Callback(ctx context.Context, providerName, code, state string) (*CallbackResult, error) {
	provider, err := s.providers.Lookup(providerName)
	if err != nil {
		return nil, err
	}

	flow, err := s.flows.Take(ctx, state)
	if err != nil {
		return nil, err
	}
	if flow.Provider != provider.Name() {
		return nil, fmt.Errorf("%w: state was issued for %s", common.ErrOAuthStateInvalid, flow.Provider)
	}

	token, err := provider.Exchange(ctx, code, flow.Verifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrOAuthTokenExchange, err)
	}

	info, err := provider.UserInfo(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrOAuthProvider) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrOAuthProvider, err)
	}

	result := &CallbackResult{}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, isNew, err := s.resolve(ctx, tx, provider.Name(), info)
		if err != nil {
			return err
		}
		result.IsNewUser = isNew
		result.Tokens, err = s.auth.IssuePair(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "oauth sign-in", "provider", provider.Name(), "user_id", result.Tokens.UserID, "new_user", result.IsNewUser)
	return result, nil
}

func (s *OAuthService) resolve(ctx context.Context, tx dbx.DBTX, provider models.OAuthProvider, info *oauth.UserInfo) (*models.User, bool, error) {
	users := s.repomanager.Users(tx)

	user, err := users.GetByOAuthID(ctx, provider, info.OAuthID)
	switch {
	case err == nil:
		if user.Email != info.Email {
			return nil, false, common.ErrOAuthAccountAlreadyLinked
		}
		return user, false, nil
	case !errors.Is(err, common.ErrorNotFound):
		return nil, false, err
	}

	user, err = users.GetByEmail(ctx, info.Email)
	switch {
	case err == nil:
		if user.OAuthProvider != models.ProviderLocal {
			return nil, false, &common.LinkedToProviderError{Provider: user.OAuthProvider.DisplayName()}
		}
		// an unverified address would let anyone claim the local account
		if !info.EmailVerified {
			s.logger.Warn(ctx, "refused to link unverified oauth email", "provider", provider, "user_id", user.ID)
			return nil, false, common.ErrOAuthEmailNotVerified
		}
		user, err = users.LinkOAuth(ctx, user.ID, provider, info.OAuthID)
		if err != nil {
			return nil, false, err
		}
		s.logger.Info(ctx, "oauth identity linked", "provider", provider, "user_id", user.ID)
		return user, false, nil
	case !errors.Is(err, common.ErrorNotFound):
		return nil, false, err
	}

	user, err = users.Create(ctx, &models.User{
		Email:         info.Email,
		FirstName:     nullString(info.FirstName),
		SecondName:    nullString(info.SecondName),
		IsActive:      true,
		OAuthProvider: provider,
		OAuthID:       sql.NullString{String: info.OAuthID, Valid: true},
	})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
