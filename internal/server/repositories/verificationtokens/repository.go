// Package verificationtokens stores single-use account activation tokens.
package verificationtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/apptracker/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token *models.VerificationToken) error
	GetByHash(ctx context.Context, tokenHash string) (*models.VerificationToken, error)
	DeleteAllForUser(ctx context.Context, userID string) error

	// MarkUsed consumes the token if it is unused and unexpired at the given
	// instant. It reports whether the row changed.
	MarkUsed(ctx context.Context, id string, at time.Time) (bool, error)

	// GetLatestForUser returns the most recently created token of the user,
	// or common.ErrorNotFound.
	GetLatestForUser(ctx context.Context, userID string) (*models.VerificationToken, error)
}
