// Package refreshtokens declares the server-side repository contract for
// refresh token records and their rotation metadata.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/apptracker/internal/server/models"
)

// Repository stores refresh tokens by keyed hash. Rows are never deleted
// here; they go away only with their user.
type Repository interface {
	// Create inserts the token, assigning an ID when empty.
	Create(ctx context.Context, token *models.RefreshToken) error

	// GetByHash and GetByID return common.ErrorNotFound when absent.
	GetByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	GetByID(ctx context.Context, id string) (*models.RefreshToken, error)

	// MarkUsed sets used_at on a token that is neither used nor revoked, in
	// a single conditional statement. It reports whether the row changed;
	// false means someone else got there first.
	MarkUsed(ctx context.Context, id string, at time.Time) (bool, error)

	// Revoke, RevokeFamily and RevokeAllForUser set revoked_at where it is
	// still null and return the number of rows touched. Already revoked rows
	// keep their original timestamp.
	Revoke(ctx context.Context, id string, at time.Time) (int64, error)
	RevokeFamily(ctx context.Context, familyID string, at time.Time) (int64, error)
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error)

	// ListFamily returns every token of a family ordered by creation.
	ListFamily(ctx context.Context, familyID string) ([]*models.RefreshToken, error)
}
