package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/credvault/internal/common"
	"github.com/dmitrijs2005/credvault/internal/dbx"
	"github.com/dmitrijs2005/credvault/internal/logging"
	"github.com/dmitrijs2005/credvault/internal/server/filestore"
	"github.com/dmitrijs2005/credvault/internal/server/models"
	"github.com/dmitrijs2005/credvault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// CredentialInput is a new credential: the key fields plus the secret
// payload destined for the file store.
type CredentialInput struct {
	Platform string
	Login    string
	LogoURL  string
	Secret   string
}

// CredentialUpdate addresses an existing record by key and carries its new
// secret.
type CredentialUpdate struct {
	Platform string
	Login    string
	Secret   string
}

// CredentialService owns credential records and their backing files. Records
// live in the database under a (user_id, platform, login) unique constraint;
// secrets live in the file store under names derived from the record id.
type CredentialService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	files       *filestore.Store
	logger      logging.Logger
}

func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager,
	files *filestore.Store, logger logging.Logger) *CredentialService {
	return &CredentialService{
		db:          db,
		repomanager: m,
		files:       files,
		logger:      logger.With("module", "credential_service"),
	}
}

// writeSecret hands the plaintext buffer to the file store and wipes it once
// the write is done, so the payload does not linger in memory.
func (s *CredentialService) writeSecret(userID, id string, secret []byte) error {
	defer common.WipeByteArray(secret)
	return s.files.Write(userID, id, secret)
}

// Create writes the secret file and inserts the record. The pre-check gives
// a friendly Conflict; the unique constraint is authoritative, and a
// constraint-level conflict rolls the file back out.
func (s *CredentialService) Create(ctx context.Context, userID string, in CredentialInput) (*models.Credential, error) {
	if in.Platform == "" || in.Login == "" || in.Secret == "" {
		return nil, fmt.Errorf("%w: platform, login, and secret are required", common.ErrorValidation)
	}

	repo := s.repomanager.Credentials(s.db)

	if _, err := repo.FindByKey(ctx, userID, in.Platform, in.Login); err == nil {
		return nil, common.ErrorConflict
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	id := uuid.New().String()
	if err := s.writeSecret(userID, id, []byte(in.Secret)); err != nil {
		return nil, err
	}

	cred := &models.Credential{
		ID:       id,
		UserID:   userID,
		Platform: in.Platform,
		Login:    in.Login,
		LogoURL:  in.LogoURL,
		FileRef:  filestore.DeriveFilename(id),
	}

	created, err := repo.Create(ctx, cred)
	if err != nil {
		if removeErr := s.files.Remove(userID, id); removeErr != nil {
			s.logger.Error(ctx, "removing orphaned credential file", "user_id", userID, "error", removeErr)
		}
		return nil, err
	}

	s.logger.Info(ctx, "credential created", "user_id", userID, "credential_id", created.ID)
	return created, nil
}

// List returns the user's credential records. Secrets are not included; they
// stay in the file store.
func (s *CredentialService) List(ctx context.Context, userID string) ([]*models.Credential, error) {
	return s.repomanager.Credentials(s.db).ListByUser(ctx, userID)
}

// ReadSecret returns the stored payload for the record addressed by key.
func (s *CredentialService) ReadSecret(ctx context.Context, userID, platform, login string) ([]byte, error) {
	cred, err := s.repomanager.Credentials(s.db).FindByKey(ctx, userID, platform, login)
	if err != nil {
		return nil, err
	}
	return s.files.Read(userID, cred.ID)
}

// UpdateSecret overwrites the stored payload for one record. The filename is
// derived from the record id, so the reference is recomputed but stays
// stable.
func (s *CredentialService) UpdateSecret(ctx context.Context, userID, platform, login, secret string) error {
	if secret == "" {
		return fmt.Errorf("%w: secret must not be empty", common.ErrorValidation)
	}

	repo := s.repomanager.Credentials(s.db)
	cred, err := repo.FindByKey(ctx, userID, platform, login)
	if err != nil {
		return err
	}

	if err := s.writeSecret(userID, cred.ID, []byte(secret)); err != nil {
		return err
	}
	return repo.Touch(ctx, cred.ID, filestore.DeriveFilename(cred.ID))
}

// Delete removes the record and its backing file.
func (s *CredentialService) Delete(ctx context.Context, userID, platform, login string) (*models.Credential, error) {
	deleted, err := s.repomanager.Credentials(s.db).Delete(ctx, userID, platform, login)
	if err != nil {
		return nil, err
	}
	if err := s.files.Remove(userID, deleted.ID); err != nil {
		s.logger.Error(ctx, "removing credential file", "user_id", userID, "credential_id", deleted.ID, "error", err)
	}
	s.logger.Info(ctx, "credential deleted", "user_id", userID, "credential_id", deleted.ID)
	return deleted, nil
}

// ReplaceAll rewrites every secret for the user. The input key set must
// equal the existing key set exactly; any added, removed, renamed, or
// duplicated key rejects the whole call before anything is written, so a
// rejection leaves both store and files untouched.
func (s *CredentialService) ReplaceAll(ctx context.Context, userID string, updates []CredentialUpdate) error {
	existing, err := s.repomanager.Credentials(s.db).ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	type key struct{ platform, login string }
	byKey := make(map[key]*models.Credential, len(existing))
	for _, cred := range existing {
		byKey[key{cred.Platform, cred.Login}] = cred
	}

	if len(updates) != len(existing) {
		return fmt.Errorf("%w: credential set mismatch", common.ErrorValidation)
	}
	seen := make(map[key]struct{}, len(updates))
	for _, upd := range updates {
		if upd.Secret == "" {
			return fmt.Errorf("%w: secret must not be empty", common.ErrorValidation)
		}
		k := key{upd.Platform, upd.Login}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: duplicate credential key", common.ErrorValidation)
		}
		seen[k] = struct{}{}
		if _, ok := byKey[k]; !ok {
			return fmt.Errorf("%w: credential set mismatch", common.ErrorValidation)
		}
	}

	// All keys matched; now write files and refresh the rows.
	for _, upd := range updates {
		cred := byKey[key{upd.Platform, upd.Login}]
		if err := s.writeSecret(userID, cred.ID, []byte(upd.Secret)); err != nil {
			return err
		}
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Credentials(tx)
		for _, upd := range updates {
			cred := byKey[key{upd.Platform, upd.Login}]
			if err := repo.Touch(ctx, cred.ID, filestore.DeriveFilename(cred.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "credentials replaced", "user_id", userID, "count", len(updates))
	return nil
}

// Export streams the user's archive to w.
func (s *CredentialService) Export(ctx context.Context, userID string, w io.Writer) error {
	return s.files.ExportArchive(ctx, userID, w)
}
