// Package filestore keeps credential payloads on disk, one directory per
// user, with filenames derived from the record id so a directory listing
// never discloses which platform a file belongs to.
package filestore

import (
	"archive/zip"
	"compress/flate"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/dmitrijs2005/credvault/internal/server/metrics"
)

// derivedNameLen is the number of hex characters kept from the digest.
// 32 bits of name space is plenty for one user's credential set.
const derivedNameLen = 8

// Store is a per-user credential file store rooted at a single directory.
type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

// DeriveFilename maps a record id to its on-disk name: the first 8 hex
// characters of SHA-256 over the id, suffixed ".txt". The input must be the
// persisted record id (never the platform, login, or password) so reused
// secrets do not produce colliding names across records.
func DeriveFilename(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])[:derivedNameLen] + ".txt"
}

// ArchiveName is the attachment filename used for a user's export.
func ArchiveName(userID string) string {
	return fmt.Sprintf("user_%s_files.zip", userID)
}

func (s *Store) userDir(userID string) string {
	return filepath.Join(s.root, userID)
}

// Write stores payload as the entire contents of the derived file, creating
// the user directory if needed and overwriting any previous content. A crash
// mid-write can leave a truncated file; there is no rollback.
func (s *Store) Write(userID, id string, payload []byte) error {
	dir := s.userDir(userID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	path := filepath.Join(dir, DeriveFilename(id))
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	metrics.FileWrites.Inc()
	return nil
}

// Read returns the payload stored for the record id.
func (s *Store) Read(userID, id string) ([]byte, error) {
	path := filepath.Join(s.userDir(userID), DeriveFilename(id))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Remove deletes the derived file. A missing file is not an error.
func (s *Store) Remove(userID, id string) error {
	path := filepath.Join(s.userDir(userID), DeriveFilename(id))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// RemoveUserDir deletes a user's entire directory, used when the account is
// deleted. A missing directory is not an error.
func (s *Store) RemoveUserDir(userID string) error {
	if err := os.RemoveAll(s.userDir(userID)); err != nil {
		return fmt.Errorf("remove dir: %w", err)
	}
	return nil
}

// ExportArchive streams a zip of the user's directory to w at maximum
// compression. Entries are written one file at a time, so the caller gets
// backpressure instead of a buffered archive; ctx is checked between entries
// so a disconnected client aborts the stream. A user with no directory yields
// an empty archive.
func (s *Store) ExportArchive(ctx context.Context, userID string, w io.Writer) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	entries, err := os.ReadDir(s.userDir(userID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read dir: %w", err)
	}

	// Stable entry order makes archives reproducible.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.addEntry(zw, userID, entry.Name()); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	metrics.ArchiveExports.Inc()
	return nil
}

func (s *Store) addEntry(zw *zip.Writer, userID, name string) error {
	f, err := os.Open(filepath.Join(s.userDir(userID), name))
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	dst, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("copy entry %s: %w", name, err)
	}
	return nil
}
