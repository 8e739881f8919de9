package models

import "time"

// Credential maps (UserID, Platform, Login) to a stored secret file. The
// tuple is unique per user; FileRef is the derived on-disk filename computed
// from ID, never set by callers directly.
type Credential struct {
	ID        string
	UserID    string
	Platform  string
	Login     string
	LogoURL   string
	FileRef   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
