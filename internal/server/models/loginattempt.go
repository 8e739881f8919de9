package models

import "time"

// LoginAttempt is one row of the append-only login audit log. Rows are never
// mutated or deleted; the throttle reads them back through a sliding
// timestamp window.
type LoginAttempt struct {
	ID          string
	UserID      string
	AttemptedAt time.Time
	Success     bool
}
