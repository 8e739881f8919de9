package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/credvault/internal/common"
	"github.com/dmitrijs2005/credvault/internal/logging"
	"github.com/dmitrijs2005/credvault/internal/server/models"
	"github.com/dmitrijs2005/credvault/internal/server/repositories/repomanager"
)

// DeviceService maintains the per-user trusted-device registry.
type DeviceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewDeviceService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *DeviceService {
	return &DeviceService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "device_service"),
	}
}

// Upsert records the device, updating user agent and trust flag if it is
// already known.
func (s *DeviceService) Upsert(ctx context.Context, userID, deviceID, userAgent string, trusted bool) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device id is required", common.ErrorValidation)
	}
	dev := &models.TrustedDevice{
		UserID:    userID,
		DeviceID:  deviceID,
		UserAgent: userAgent,
		IsTrusted: trusted,
	}
	if err := s.repomanager.Devices(s.db).Upsert(ctx, dev); err != nil {
		return err
	}
	s.logger.Info(ctx, "device registered", "user_id", userID, "device_id", deviceID)
	return nil
}

// List returns all devices known for the user.
func (s *DeviceService) List(ctx context.Context, userID string) ([]*models.TrustedDevice, error) {
	return s.repomanager.Devices(s.db).ListByUser(ctx, userID)
}

// Delete forgets the device.
func (s *DeviceService) Delete(ctx context.Context, userID, deviceID string) error {
	return s.repomanager.Devices(s.db).Delete(ctx, userID, deviceID)
}
