// Package users declares the server-side repository contract for user
// accounts and their OAuth identity links.
package users

import (
	"context"

	"github.com/dmitrijs2005/apptracker/internal/server/models"
)

// Repository persists users. Lookups return common.ErrorNotFound when no row
// matches.
type Repository interface {
	// Create inserts the user and fills ID and timestamps. A taken email
	// yields common.ErrUserAlreadyExists; a taken (provider, oauth id) pair
	// yields common.ErrOAuthAccountAlreadyLinked.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByOAuthID(ctx context.Context, provider models.OAuthProvider, oauthID string) (*models.User, error)

	// LinkOAuth attaches a provider identity to an existing account and
	// activates it.
	LinkOAuth(ctx context.Context, id string, provider models.OAuthProvider, oauthID string) (*models.User, error)
	Activate(ctx context.Context, id string) (*models.User, error)
	SetPassword(ctx context.Context, id string, digest string) error
	UpdateProfile(ctx context.Context, id string, profile models.UserProfile) (*models.User, error)

	// Delete removes the user; tokens go with it through ON DELETE CASCADE.
	Delete(ctx context.Context, id string) error
}
