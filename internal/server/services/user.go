// Package services contains server-side business logic. This file implements
// UserService: registration, credential verification behind the login
// throttle, session-token minting, and profile lifecycle.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/credvault/internal/common"
	"github.com/dmitrijs2005/credvault/internal/logging"
	"github.com/dmitrijs2005/credvault/internal/server/auth"
	"github.com/dmitrijs2005/credvault/internal/server/config"
	"github.com/dmitrijs2005/credvault/internal/server/filestore"
	"github.com/dmitrijs2005/credvault/internal/server/metrics"
	"github.com/dmitrijs2005/credvault/internal/server/models"
	"github.com/dmitrijs2005/credvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/credvault/internal/server/throttle"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserService provides account operations:
//   - Register: create accounts
//   - Login / VerifyCredentials: check passwords behind the throttle and
//     mint session tokens
//   - Get / Update / Delete: profile lifecycle
type UserService struct {
	db                   *sql.DB
	repomanager          repomanager.RepositoryManager
	throttle             *throttle.Throttle
	files                *filestore.Store
	logger               logging.Logger
	jwtSecret            []byte
	sessionTokenValidity time.Duration
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, th *throttle.Throttle,
	files *filestore.Store, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:                   db,
		repomanager:          m,
		throttle:             th,
		files:                files,
		logger:               logger.With("module", "user_service"),
		jwtSecret:            []byte(cfg.SecretKey),
		sessionTokenValidity: cfg.SessionTokenValidityDuration,
	}
}

// Register creates an account. The login pre-check only produces a friendly
// early Conflict; the unique constraint on users.login is the real safety
// net for concurrent registrations.
func (s *UserService) Register(ctx context.Context, firstName, lastName, login, password string) (*models.User, error) {
	if login == "" || password == "" {
		return nil, fmt.Errorf("%w: login and password are required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)

	if _, err := repo.GetByLogin(ctx, login); err == nil {
		return nil, common.ErrorConflict
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		FirstName:    firstName,
		LastName:     lastName,
		Login:        login,
		PasswordHash: string(hash),
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", created.ID)
	return created, nil
}

// VerifyCredentials resolves login to an account and checks the password
// behind the throttle. An unknown login and a wrong password are both
// reported as common.ErrorInvalidCredentials so callers cannot enumerate
// accounts. A throttled account yields *common.LockedOutError; the rejected
// attempt is still recorded as a failure, which extends the lockout.
func (s *UserService) VerifyCredentials(ctx context.Context, login, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
			return nil, common.ErrorInvalidCredentials
		}
		return nil, err
	}

	decision, err := s.throttle.Evaluate(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		s.recordAttempt(ctx, user.ID, false)
		metrics.LoginAttempts.WithLabelValues("locked_out").Inc()
		metrics.Lockouts.Inc()
		s.logger.Warn(ctx, "login rejected by throttle",
			"user_id", user.ID, "locked_until", decision.LockedUntil)
		return nil, &common.LockedOutError{LockedUntil: decision.LockedUntil}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordAttempt(ctx, user.ID, false)
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, common.ErrorInvalidCredentials
	}

	s.recordAttempt(ctx, user.ID, true)
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return user, nil
}

// Login verifies credentials and returns a signed session token.
func (s *UserService) Login(ctx context.Context, login, password string) (string, error) {
	user, err := s.VerifyCredentials(ctx, login, password)
	if err != nil {
		return "", err
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.sessionTokenValidity)
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return token, nil
}

// Get returns the account by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

// Update applies the provided fields only. A present password is re-hashed.
func (s *UserService) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != nil {
		user.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		user.LastName = *upd.LastName
	}
	if upd.Password != nil {
		if *upd.Password == "" {
			return nil, fmt.Errorf("%w: password must not be empty", common.ErrorValidation)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes the account. Dependent rows cascade in the database; the
// user's credential files go with them.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repomanager.Users(s.db).Delete(ctx, id); err != nil {
		return err
	}
	if err := s.files.RemoveUserDir(id); err != nil {
		// The account is already gone; log and move on rather than
		// resurrecting it.
		s.logger.Error(ctx, "removing user files after account delete", "user_id", id, "error", err)
	}
	s.logger.Info(ctx, "user deleted", "user_id", id)
	return nil
}

// recordAttempt appends to the audit log; a logging failure there must not
// change the login outcome.
func (s *UserService) recordAttempt(ctx context.Context, userID string, success bool) {
	if err := s.throttle.Record(ctx, userID, success); err != nil {
		s.logger.Error(ctx, "recording login attempt", "user_id", userID, "error", err)
	}
}
