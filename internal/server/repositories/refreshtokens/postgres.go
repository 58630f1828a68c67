// Package refreshtokens provides a PostgreSQL-backed repository for managing
// refresh tokens used in the server's authentication flow.
package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"github.com/dmitrijs2005/apptracker/internal/dbx"
	"github.com/dmitrijs2005/apptracker/internal/server/models"
	"github.com/google/uuid"
)

const tokenColumns = `id, user_id, token_hash, family_id, parent_token_id, expires_at, revoked_at, used_at, time_create, time_update`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*models.RefreshToken, error) {
	t := &models.RefreshToken{}
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.FamilyID, &t.ParentTokenID,
		&t.ExpiresAt, &t.RevokedAt, &t.UsedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.UpdatedAt.IsZero() {
		token.UpdatedAt = token.CreatedAt
	}

	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, family_id, parent_token_id, expires_at, time_create, time_update)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query, token.ID, token.UserID, token.TokenHash, token.FamilyID,
		token.ParentTokenID, token.ExpiresAt, token.CreatedAt, token.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByHash returns the token row with the given hash.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) GetByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`
	return scanToken(r.db.QueryRowContext(ctx, query, tokenHash))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.RefreshToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM refresh_tokens WHERE id = $1`
	return scanToken(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE refresh_tokens SET used_at = $2, time_update = $2
		WHERE id = $1 AND used_at IS NULL AND revoked_at IS NULL
	`
	n, err := r.exec(ctx, query, id, at)
	return n == 1, err
}

func (r *PostgresRepository) Revoke(ctx context.Context, id string, at time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens SET revoked_at = $2, time_update = $2
		WHERE id = $1 AND revoked_at IS NULL
	`
	return r.exec(ctx, query, id, at)
}

func (r *PostgresRepository) RevokeFamily(ctx context.Context, familyID string, at time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens SET revoked_at = $2, time_update = $2
		WHERE family_id = $1 AND revoked_at IS NULL
	`
	return r.exec(ctx, query, familyID, at)
}

func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens SET revoked_at = $2, time_update = $2
		WHERE user_id = $1 AND revoked_at IS NULL
	`
	return r.exec(ctx, query, userID, at)
}

func (r *PostgresRepository) ListFamily(ctx context.Context, familyID string) ([]*models.RefreshToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM refresh_tokens WHERE family_id = $1 ORDER BY time_create, id`

	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.RefreshToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
