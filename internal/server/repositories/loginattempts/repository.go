// Package loginattempts provides persistence for the append-only login
// attempt log consumed by the throttle.
package loginattempts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/credvault/internal/server/models"
)

// FailureStats summarizes recent failed attempts for one user inside a
// trailing window.
type FailureStats struct {
	// Count is the number of failed attempts since the window start.
	Count int
	// LastFailure is the timestamp of the most recent failed attempt.
	// Zero when Count is zero.
	LastFailure time.Time
}

// Repository is the storage contract for login attempts. The table is
// append-only: there is no update or delete operation.
type Repository interface {
	Create(ctx context.Context, attempt *models.LoginAttempt) error
	RecentFailures(ctx context.Context, userID string, since time.Time) (*FailureStats, error)
}
