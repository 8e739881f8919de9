package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/credvault/internal/common"
	"github.com/dmitrijs2005/credvault/internal/dbx"
	"github.com/dmitrijs2005/credvault/internal/logging"
	"github.com/dmitrijs2005/credvault/internal/server/config"
	"github.com/dmitrijs2005/credvault/internal/server/metrics"
	"github.com/dmitrijs2005/credvault/internal/server/models"
	"github.com/dmitrijs2005/credvault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ResetTokenValidity is how long a reset token stays usable. Kept as the
// original 60*60*10000 milliseconds (10 hours).
const ResetTokenValidity = 60 * 60 * 10000 * time.Millisecond

// resetTokenBytes sized at 32 gives 256 bits of randomness, hex-encoded to
// a 64-character token.
const resetTokenBytes = 32

// ResetService owns the password-reset token lifecycle: issue (replacing any
// prior token for the user), verify, and single-use consume.
type ResetService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	mailer        Mailer
	logger        logging.Logger
	resetLinkBase string
	now           func() time.Time
}

func NewResetService(db *sql.DB, m repomanager.RepositoryManager, mailer Mailer,
	cfg *config.Config, logger logging.Logger) *ResetService {
	return &ResetService{
		db:            db,
		repomanager:   m,
		mailer:        mailer,
		logger:        logger.With("module", "reset_service"),
		resetLinkBase: cfg.ResetLinkBase,
		now:           time.Now,
	}
}

// Request issues a fresh token for the account with the given login and
// hands the reset link to the mailer. A mailer failure surfaces as
// common.ErrorExternal; the token stays issued either way.
func (s *ResetService) Request(ctx context.Context, login string) error {
	user, err := s.repomanager.Users(s.db).GetByLogin(ctx, login)
	if err != nil {
		return err
	}

	token, err := s.Issue(ctx, user.ID)
	if err != nil {
		return err
	}

	if err := s.mailer.SendResetEmail(ctx, user.Login, s.resetLinkBase+token); err != nil {
		s.logger.Error(ctx, "sending reset email", "user_id", user.ID, "error", err)
		return fmt.Errorf("%w: sending reset email", common.ErrorExternal)
	}
	return nil
}

// Issue mints a 256-bit random token for userID, replacing any existing
// token. Delete and insert run in one transaction so the user never
// observably has zero tokens mid-replace.
func (s *ResetService) Issue(ctx context.Context, userID string) (string, error) {
	token, err := common.MakeRandHexString(resetTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generating reset token: %w", err)
	}

	row := &models.PasswordResetToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: s.now().Add(ResetTokenValidity),
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.ResetTokens(tx)
		if err := repo.DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
		return repo.Create(ctx, row)
	})
	if err != nil {
		return "", err
	}

	metrics.ResetTokensIssued.Inc()
	s.logger.Info(ctx, "reset token issued", "user_id", userID)
	return token, nil
}

// Verify resolves a token to its owning account. Unknown and expired tokens
// both yield common.ErrInvalidToken.
func (s *ResetService) Verify(ctx context.Context, token string) (*models.User, error) {
	row, err := s.repomanager.ResetTokens(s.db).FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}
	if row.ExpiresAt.Before(s.now()) {
		return nil, common.ErrInvalidToken
	}
	return s.repomanager.Users(s.db).GetByID(ctx, row.UserID)
}

// Consume deletes the token and reports whether a row was deleted. The
// second call for the same token returns false.
func (s *ResetService) Consume(ctx context.Context, token string) (bool, error) {
	return s.repomanager.ResetTokens(s.db).DeleteByToken(ctx, token)
}

// Confirm finishes the reset: it verifies the token, consumes it, and sets
// the new password, with consume and update in one transaction so a token
// cannot be spent without the password actually changing.
func (s *ResetService) Confirm(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: password must not be empty", common.ErrorValidation)
	}

	user, err := s.Verify(ctx, token)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		deleted, err := s.repomanager.ResetTokens(tx).DeleteByToken(ctx, token)
		if err != nil {
			return err
		}
		if !deleted {
			// Lost a race with a concurrent confirm.
			return common.ErrInvalidToken
		}
		user.PasswordHash = string(hash)
		return s.repomanager.Users(tx).Update(ctx, user)
	})
	if err != nil {
		return err
	}

	metrics.ResetTokensConsumed.Inc()
	s.logger.Info(ctx, "password reset confirmed", "user_id", user.ID)
	return nil
}
