package devices

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/credvault/internal/common"
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

func (r *PostgresRepository) Upsert(ctx context.Context, device *models.TrustedDevice) error {
	query := `
		INSERT INTO trusted_devices (user_id, device_id, user_agent, is_trusted)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, device_id)
		DO UPDATE SET user_agent = EXCLUDED.user_agent, is_trusted = EXCLUDED.is_trusted
	`
	if _, err := r.db.ExecContext(ctx, query,
		device.UserID, device.DeviceID, device.UserAgent, device.IsTrusted); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.TrustedDevice, error) {
	query := `
		SELECT user_id, device_id, user_agent, is_trusted
		FROM trusted_devices
		WHERE user_id = $1
		ORDER BY device_id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.TrustedDevice
	for rows.Next() {
		item := &models.TrustedDevice{}
		if err := rows.Scan(&item.UserID, &item.DeviceID, &item.UserAgent, &item.IsTrusted); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, deviceID string) error {
	query := `DELETE FROM trusted_devices WHERE user_id = $1 AND device_id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, deviceID)
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
