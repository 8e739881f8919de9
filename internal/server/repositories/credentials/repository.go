// Package credentials provides persistence for credential records mapping
// (user, platform, login) to a stored file reference.
package credentials

import (
	"context"

	"github.com/dmitrijs2005/credvault/internal/server/models"
)

// Repository is the storage contract for credential records. Implementations
// must report a duplicate (user_id, platform, login) as common.ErrorConflict
// and a missing row as common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, cred *models.Credential) (*models.Credential, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Credential, error)
	FindByKey(ctx context.Context, userID, platform, login string) (*models.Credential, error)
	// Delete removes the row for (userID, platform, login) and returns the
	// deleted record so the caller can clean up the backing file.
	Delete(ctx context.Context, userID, platform, login string) (*models.Credential, error)
	// Touch records a content update: refreshes file_ref and updated_at.
	Touch(ctx context.Context, id, fileRef string) error
}
