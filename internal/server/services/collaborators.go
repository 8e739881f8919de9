package services

import (
	"context"

	"github.com/dmitrijs2005/credvault/internal/logging"
)

// Mailer delivers the password-reset link. The core only needs a yes/no
// completion signal; message contents and transport live outside.
type Mailer interface {
	SendResetEmail(ctx context.Context, recipient, resetLink string) error
}

// CaptchaVerifier gates costly operations (registration, login, reset
// request). The token comes from the client; validation is an external call.
type CaptchaVerifier interface {
	Validate(ctx context.Context, token string) (bool, error)
}

// LogMailer is the development Mailer: it logs the link instead of sending
// mail.
type LogMailer struct {
	Logger logging.Logger
}

func (m *LogMailer) SendResetEmail(ctx context.Context, recipient, resetLink string) error {
	m.Logger.Info(ctx, "password reset requested", "recipient", recipient, "link", resetLink)
	return nil
}

// AllowAllCaptcha accepts every token. Used in development and tests.
type AllowAllCaptcha struct{}

func (AllowAllCaptcha) Validate(ctx context.Context, token string) (bool, error) {
	return true, nil
}
