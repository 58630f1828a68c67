package verificationtokens

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

const tokenColumns = `id, user_id, token_hash, expires_at, used_at, time_create, time_update`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanToken(row *sql.Row) (*models.VerificationToken, error) {
	t := &models.VerificationToken{}
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.VerificationToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.UpdatedAt.IsZero() {
		token.UpdatedAt = token.CreatedAt
	}

	query := `
		INSERT INTO verification_tokens (id, user_id, token_hash, expires_at, time_create, time_update)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt, token.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByHash(ctx context.Context, tokenHash string) (*models.VerificationToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM verification_tokens WHERE token_hash = $1`
	return scanToken(r.db.QueryRowContext(ctx, query, tokenHash))
}

func (r *PostgresRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE verification_tokens SET used_at = $2, time_update = $2
		WHERE id = $1 AND used_at IS NULL AND expires_at > $2
	`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) GetLatestForUser(ctx context.Context, userID string) (*models.VerificationToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM verification_tokens WHERE user_id = $1 ORDER BY time_create DESC LIMIT 1`
	return scanToken(r.db.QueryRowContext(ctx, query, userID))
}
