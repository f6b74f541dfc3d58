package tokenstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileStore keeps one JSON file per account under a directory. File names
// are derived from the account identity, not the raw email, so directory
// listings don't leak addresses.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns the store.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "solixsync")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create token cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(account string) string {
	sum := md5.Sum([]byte(account))
	return filepath.Join(f.dir, "login_"+hex.EncodeToString(sum[:])+".json")
}

// Load reads the cached login for the account.
func (f *FileStore) Load(_ context.Context, account string) (Record, error) {
	b, err := os.ReadFile(f.path(account))
	if os.IsNotExist(err) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to read login cache: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode login cache: %w", err)
	}
	return rec, nil
}

// Save writes the record atomically (write temp file, rename over).
func (f *FileStore) Save(_ context.Context, account string, rec Record) error {
	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now()
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode login cache: %w", err)
	}
	tmp := f.path(account) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("failed to write login cache: %w", err)
	}
	if err := os.Rename(tmp, f.path(account)); err != nil {
		return fmt.Errorf("failed to replace login cache: %w", err)
	}
	return nil
}

// Delete removes the cached login, if any.
func (f *FileStore) Delete(_ context.Context, account string) error {
	err := os.Remove(f.path(account))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete login cache: %w", err)
	}
	return nil
}

// Fingerprint identifies the current on-disk cache contents. An empty
// string means no cache file exists.
func (f *FileStore) Fingerprint(account string) string {
	fi, err := os.Stat(f.path(account))
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d-%d", fi.Size(), fi.ModTime().UnixNano())
}
