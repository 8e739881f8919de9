// Package users provides persistence for account identities.
package users

import (
	"context"

	"github.com/dmitrijs2005/credvault/internal/server/models"
)

// Repository is the storage contract for account records. Implementations
// must report a duplicate login as common.ErrorConflict and a missing row as
// common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}
