// Package resettokens provides persistence for single-use password-reset
// tokens.
package resettokens

import (
	"context"

	"github.com/dmitrijs2005/credvault/internal/server/models"
)

// Repository is the storage contract for reset tokens. Replacing a user's
// token is DeleteAllForUser followed by Create inside one transaction, so a
// user never observably has zero tokens mid-replace.
type Repository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	FindByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	DeleteAllForUser(ctx context.Context, userID string) error
	// DeleteByToken removes the row and reports whether one existed, which
	// gives Consume its single-use semantics.
	DeleteByToken(ctx context.Context, token string) (bool, error)
}
