package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/credvault/internal/common"
	"github.com/dmitrijs2005/credvault/internal/logging"
	"github.com/dmitrijs2005/credvault/internal/server/filestore"
)

func newCredentialService(t *testing.T, rm *fakeRepoManager) (*CredentialService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })

	files := filestore.New(t.TempDir())
	return NewCredentialService(db, rm, files, logging.NewNullLogger()), mock
}

func TestCreateCredential_Success(t *testing.T) {
	rm := newFakeRepoManager()
	s, _ := newCredentialService(t, rm)

	created, err := s.Create(context.Background(), "u1", CredentialInput{
		Platform: "github.com",
		Login:    "jane",
		Secret:   "hunter2",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.FileRef != filestore.DeriveFilename(created.ID) {
		t.Fatalf("file ref not derived from id: %q", created.FileRef)
	}

	secret, err := s.ReadSecret(context.Background(), "u1", "github.com", "jane")
	if err != nil {
		t.Fatalf("ReadSecret error: %v", err)
	}
	if string(secret) != "hunter2" {
		t.Fatalf("secret mismatch: %q", secret)
	}
}

func TestWriteSecret_WipesBufferAfterPersisting(t *testing.T) {
	rm := newFakeRepoManager()
	s, _ := newCredentialService(t, rm)

	buf := []byte("hunter2")
	if err := s.writeSecret("u1", "rec-1", buf); err != nil {
		t.Fatalf("writeSecret error: %v", err)
	}

	for i, v := range buf {
		if v != 0 {
			t.Fatalf("plaintext left in buffer at %d: %d", i, v)
		}
	}

	stored, err := s.files.Read("u1", "rec-1")
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if string(stored) != "hunter2" {
		t.Fatalf("stored payload corrupted by wipe: %q", stored)
	}
}

func TestCreateCredential_DuplicateKey(t *testing.T) {
	rm := newFakeRepoManager()
	s, _ := newCredentialService(t, rm)

	in := CredentialInput{Platform: "github.com", Login: "jane", Secret: "x"}
	if _, err := s.Create(context.Background(), "u1", in); err != nil {
		t.Fatalf("first Create error: %v", err)
	}
	if _, err := s.Create(context.Background(), "u1", in); !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("want ErrorConflict, got %v", err)
	}

	// Same key under a different user is fine.
	if _, err := s.Create(context.Background(), "u2", in); err != nil {
		t.Fatalf("other user Create error: %v", err)
	}
}

func TestCreateCredential_Validation(t *testing.T) {
	rm := newFakeRepoManager()
	s, _ := newCredentialService(t, rm)

	cases := []CredentialInput{
		{Login: "jane", Secret: "x"},
		{Platform: "github.com", Secret: "x"},
		{Platform: "github.com", Login: "jane"},
	}
	for _, in := range cases {
		if _, err := s.Create(context.Background(), "u1", in); !errors.Is(err, common.ErrorValidation) {
			t.Fatalf("input %+v: want ErrorValidation, got %v", in, err)
		}
	}
}

func TestUpdateSecret_Overwrites(t *testing.T) {
	rm := newFakeRepoManager()
	s, _ := newCredentialService(t, rm)

	if _, err := s.Create(context.Background(), "u1", CredentialInput{
		Platform: "github.com", Login: "jane", Secret: "old",
	}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := s.UpdateSecret(context.Background(), "u1", "github.com", "jane", "new"); err != nil {
		t.Fatalf("UpdateSecret error: %v", err)
	}

	secret, err := s.ReadSecret(context.Background(), "u1", "github.com", "jane")
	if err != nil {
		t.Fatalf("ReadSecret error: %v", err)
	}
	if string(secret) != "new" {
		t.Fatalf("secret not overwritten: %q", secret)
	}
}

func TestUpdateSecret_UnknownKey(t *testing.T) {
	rm := newFakeRepoManager()
	s, _ := newCredentialService(t, rm)

	if err := s.UpdateSecret(context.Background(), "u1", "github.com", "jane", "x"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestDeleteCredential_RemovesRecordAndFile(t *testing.T) {
	rm := newFakeRepoManager()
	s, _ := newCredentialService(t, rm)

	if _, err := s.Create(context.Background(), "u1", CredentialInput{
		Platform: "github.com", Login: "jane", Secret: "x",
	}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if _, err := s.Delete(context.Background(), "u1", "github.com", "jane"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := s.ReadSecret(context.Background(), "u1", "github.com", "jane"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("record must be gone, got %v", err)
	}
	if _, err := s.Delete(context.Background(), "u1", "github.com", "jane"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("second delete: want ErrorNotFound, got %v", err)
	}
}

func seedCredentials(t *testing.T, s *CredentialService, userID string) {
	t.Helper()
	for _, in := range []CredentialInput{
		{Platform: "github.com", Login: "jane", Secret: "gh-old"},
		{Platform: "gitlab.com", Login: "jane", Secret: "gl-old"},
	} {
		if _, err := s.Create(context.Background(), userID, in); err != nil {
			t.Fatalf("seeding %s: %v", in.Platform, err)
		}
	}
}

func TestReplaceAll_RotatesEverySecret(t *testing.T) {
	rm := newFakeRepoManager()
	s, mock := newCredentialService(t, rm)
	seedCredentials(t, s, "u1")
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := s.ReplaceAll(context.Background(), "u1", []CredentialUpdate{
		{Platform: "gitlab.com", Login: "jane", Secret: "gl-new"},
		{Platform: "github.com", Login: "jane", Secret: "gh-new"},
	})
	if err != nil {
		t.Fatalf("ReplaceAll error: %v", err)
	}

	for platform, want := range map[string]string{"github.com": "gh-new", "gitlab.com": "gl-new"} {
		secret, err := s.ReadSecret(context.Background(), "u1", platform, "jane")
		if err != nil {
			t.Fatalf("ReadSecret %s error: %v", platform, err)
		}
		if string(secret) != want {
			t.Fatalf("%s: want %q, got %q", platform, want, secret)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestReplaceAll_RejectsKeySetDrift(t *testing.T) {
	rm := newFakeRepoManager()
	s, _ := newCredentialService(t, rm)
	seedCredentials(t, s, "u1")

	cases := map[string][]CredentialUpdate{
		"added key": {
			{Platform: "github.com", Login: "jane", Secret: "a"},
			{Platform: "gitlab.com", Login: "jane", Secret: "b"},
			{Platform: "extra.com", Login: "jane", Secret: "c"},
		},
		"removed key": {
			{Platform: "github.com", Login: "jane", Secret: "a"},
		},
		"renamed key": {
			{Platform: "github.com", Login: "jane", Secret: "a"},
			{Platform: "gitlab.com", Login: "someone-else", Secret: "b"},
		},
		"duplicate key": {
			{Platform: "github.com", Login: "jane", Secret: "a"},
			{Platform: "github.com", Login: "jane", Secret: "b"},
		},
	}

	for name, updates := range cases {
		if err := s.ReplaceAll(context.Background(), "u1", updates); !errors.Is(err, common.ErrorValidation) {
			t.Fatalf("%s: want ErrorValidation, got %v", name, err)
		}
	}

	// Nothing was written on any rejected call.
	for platform, want := range map[string]string{"github.com": "gh-old", "gitlab.com": "gl-old"} {
		secret, err := s.ReadSecret(context.Background(), "u1", platform, "jane")
		if err != nil {
			t.Fatalf("ReadSecret %s error: %v", platform, err)
		}
		if string(secret) != want {
			t.Fatalf("%s modified by rejected ReplaceAll: %q", platform, secret)
		}
	}
}

func TestExport_ArchivesAllSecrets(t *testing.T) {
	rm := newFakeRepoManager()
	s, _ := newCredentialService(t, rm)
	seedCredentials(t, s, "u1")

	var buf bytes.Buffer
	if err := s.Export(context.Background(), "u1", &buf); err != nil {
		t.Fatalf("Export error: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip open error: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("want 2 entries, got %d", len(zr.File))
	}
}
