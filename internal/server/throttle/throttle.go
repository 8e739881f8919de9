// Package throttle implements brute-force login protection as a sliding
// window over the persisted login-attempt log. No state is kept in process;
// every evaluation re-queries the durable store.
package throttle

import (
	"context"
	"time"

	"github.com/dmitrijs2005/credvault/internal/server/models"
	"github.com/dmitrijs2005/credvault/internal/server/repositories/loginattempts"
	"github.com/google/uuid"
)

const (
	// FailureThreshold is the number of failed attempts inside FailureWindow
	// that engages the lockout.
	FailureThreshold = 5
	// FailureWindow is the trailing interval inspected on every evaluation.
	FailureWindow = 10 * time.Minute
	// LockoutDuration is added to the most recent failure to obtain the
	// lockout end.
	LockoutDuration = 10 * time.Minute
)

// Decision is the outcome of one throttle evaluation. LockedUntil is only
// meaningful when Allowed is false.
type Decision struct {
	Allowed     bool
	LockedUntil time.Time
}

// Throttle gates login attempts per user.
type Throttle struct {
	attempts loginattempts.Repository
	now      func() time.Time
}

func New(attempts loginattempts.Repository) *Throttle {
	return &Throttle{attempts: attempts, now: time.Now}
}

// Evaluate reports whether a login attempt for userID may proceed. With
// FailureThreshold or more failures inside the trailing window, the lockout
// ends LockoutDuration after the most recent failure; once that moment has
// passed the user is allowed again. An empty attempt log means allowed.
//
// A successful login does not erase prior failures: the window alone
// governs.
func (t *Throttle) Evaluate(ctx context.Context, userID string) (Decision, error) {
	now := t.now()

	stats, err := t.attempts.RecentFailures(ctx, userID, now.Add(-FailureWindow))
	if err != nil {
		return Decision{}, err
	}

	if stats.Count >= FailureThreshold {
		lockedUntil := stats.LastFailure.Add(LockoutDuration)
		if lockedUntil.After(now) {
			return Decision{Allowed: false, LockedUntil: lockedUntil}, nil
		}
	}

	return Decision{Allowed: true}, nil
}

// Record appends one attempt to the audit log. Every attempt is recorded,
// including ones the throttle itself rejected, so a locked-out user hammering
// the endpoint keeps extending the lockout.
func (t *Throttle) Record(ctx context.Context, userID string, success bool) error {
	return t.attempts.Create(ctx, &models.LoginAttempt{
		ID:          uuid.New().String(),
		UserID:      userID,
		AttemptedAt: t.now(),
		Success:     success,
	})
}
