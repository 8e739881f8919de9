package models

import "time"

// PasswordResetToken is a persisted single-use reset credential. At most one
// live token exists per user; issuing a new one replaces any previous row.
type PasswordResetToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
}
