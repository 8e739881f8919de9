package loginattempts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/credvault/internal/dbx"
	"github.com/dmitrijs2005/credvault/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (id, user_id, attempted_at, success)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query,
		attempt.ID, attempt.UserID, attempt.AttemptedAt, attempt.Success); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RecentFailures counts failed attempts for userID with attempted_at after
// since and reports the most recent failure time. No rows yields a zero
// stats value, not an error.
func (r *PostgresRepository) RecentFailures(ctx context.Context, userID string, since time.Time) (*FailureStats, error) {
	query := `
		SELECT COUNT(*), MAX(attempted_at)
		FROM login_attempts
		WHERE user_id = $1 AND success = false AND attempted_at > $2
	`
	var count int
	var last sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, userID, since).Scan(&count, &last); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	stats := &FailureStats{Count: count}
	if last.Valid {
		stats.LastFailure = last.Time
	}
	return stats, nil
}
