// Package devices provides persistence for the advisory trusted-device
// registry.
package devices

import (
	"context"

	"github.com/dmitrijs2005/credvault/internal/server/models"
)

// Repository is the storage contract for trusted devices, keyed by
// (userID, deviceID).
type Repository interface {
	Upsert(ctx context.Context, device *models.TrustedDevice) error
	ListByUser(ctx context.Context, userID string) ([]*models.TrustedDevice, error)
	Delete(ctx context.Context, userID, deviceID string) error
}
