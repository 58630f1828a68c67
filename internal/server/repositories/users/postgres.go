package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"github.com/dmitrijs2005/apptracker/internal/dbx"
	"github.com/dmitrijs2005/apptracker/internal/server/models"
	"github.com/google/uuid"
)

const (
	emailConstraint    = "users_email_key"
	identityConstraint = "users_oauth_identity_key"

	userColumns = `id, email, password, first_name, second_name, is_active, oauth_provider, oauth_id, time_create, time_update`
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var provider string
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.SecondName, &u.IsActive,
		&provider, &u.OAuthID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.OAuthProvider = models.OAuthProvider(provider)
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.OAuthProvider == "" {
		user.OAuthProvider = models.ProviderLocal
	}

	query :=
		`INSERT INTO users (id, email, password, first_name, second_name, is_active, oauth_provider, oauth_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING time_create, time_update
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Password, user.FirstName, user.SecondName, user.IsActive,
		string(user.OAuthProvider), user.OAuthID).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		switch {
		case dbx.IsUniqueViolation(err, emailConstraint):
			return nil, common.ErrUserAlreadyExists
		case dbx.IsUniqueViolation(err, identityConstraint):
			return nil, common.ErrOAuthAccountAlreadyLinked
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByOAuthID(ctx context.Context, provider models.OAuthProvider, oauthID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE oauth_provider = $1 AND oauth_id = $2`
	return scanUser(r.db.QueryRowContext(ctx, query, string(provider), oauthID))
}

func (r *PostgresRepository) LinkOAuth(ctx context.Context, id string, provider models.OAuthProvider, oauthID string) (*models.User, error) {
	query :=
		`UPDATE users SET oauth_provider = $2, oauth_id = $3, is_active = TRUE, time_update = now()
		 WHERE id = $1
		 RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id, string(provider), oauthID))
	if err != nil && dbx.IsUniqueViolation(err, identityConstraint) {
		return nil, common.ErrOAuthAccountAlreadyLinked
	}
	return u, err
}

func (r *PostgresRepository) Activate(ctx context.Context, id string) (*models.User, error) {
	query :=
		`UPDATE users SET is_active = TRUE, time_update = now()
		 WHERE id = $1
		 RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) SetPassword(ctx context.Context, id string, digest string) error {
	query := `UPDATE users SET password = $2, time_update = now() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, digest)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

// UpdateProfile changes only the fields set in profile.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, profile models.UserProfile) (*models.User, error) {
	query :=
		`UPDATE users SET first_name = COALESCE($2, first_name), second_name = COALESCE($3, second_name), time_update = now()
		 WHERE id = $1
		 RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, id, profile.FirstName, profile.SecondName))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
