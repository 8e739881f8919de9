// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account identity. Login is globally unique (enforced by a
// database constraint) and PasswordHash is a bcrypt digest.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Login        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate carries a partial profile update. Nil fields are left unchanged;
// Password, if set, is re-hashed by the service before storage.
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Password  *string
}
