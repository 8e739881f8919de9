package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/credvault/internal/common"
	"github.com/dmitrijs2005/credvault/internal/dbx"
	"github.com/dmitrijs2005/credvault/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	query := `
		INSERT INTO credentials (id, user_id, platform, login, logo_url, file_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		cred.ID, cred.UserID, cred.Platform, cred.Login, cred.LogoURL, cred.FileRef).
		Scan(&cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return cred, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Credential, error) {
	query := `
		SELECT id, user_id, platform, login, logo_url, file_ref, created_at, updated_at
		FROM credentials
		WHERE user_id = $1
		ORDER BY platform, login
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Credential
	for rows.Next() {
		item := &models.Credential{}
		if err := rows.Scan(&item.ID, &item.UserID, &item.Platform, &item.Login,
			&item.LogoURL, &item.FileRef, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) FindByKey(ctx context.Context, userID, platform, login string) (*models.Credential, error) {
	query := `
		SELECT id, user_id, platform, login, logo_url, file_ref, created_at, updated_at
		FROM credentials
		WHERE user_id = $1 AND platform = $2 AND login = $3
	`
	item := &models.Credential{}
	err := r.db.QueryRowContext(ctx, query, userID, platform, login).
		Scan(&item.ID, &item.UserID, &item.Platform, &item.Login,
			&item.LogoURL, &item.FileRef, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, platform, login string) (*models.Credential, error) {
	query := `
		DELETE FROM credentials
		WHERE user_id = $1 AND platform = $2 AND login = $3
		RETURNING id, user_id, platform, login, logo_url, file_ref, created_at, updated_at
	`
	item := &models.Credential{}
	err := r.db.QueryRowContext(ctx, query, userID, platform, login).
		Scan(&item.ID, &item.UserID, &item.Platform, &item.Login,
			&item.LogoURL, &item.FileRef, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) Touch(ctx context.Context, id, fileRef string) error {
	query := `UPDATE credentials SET file_ref = $2, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, fileRef)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
