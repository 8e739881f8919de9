package models

// TrustedDevice is an advisory record of a device a user has marked as
// trusted. It is upserted keyed by (UserID, DeviceID) and carries no
// security enforcement.
type TrustedDevice struct {
	UserID    string
	DeviceID  string
	UserAgent string
	IsTrusted bool
}
