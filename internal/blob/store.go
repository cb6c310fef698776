// Package blob stores receipt files (comprobantes) attached to expenses.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/fleetledger/backoffice/internal/domain"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=blob

// Store keeps receipt bodies outside the database. The returned Receipt is
// what gets persisted on the expense entry.
type Store interface {
	// Put stores body under folder. filename is only used for its extension.
	Put(ctx context.Context, body []byte, folder, filename string) (domain.Receipt, error)
	// Delete removes a previously stored receipt. Deleting a missing key is not an error.
	Delete(ctx context.Context, storageID string) error
}

// LocalStore writes receipts to a directory that is served read-only over HTTP.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore returns a LocalStore rooted at dir. Public URLs are built as
// baseURL + "/" + storage id.
func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Dir is the root directory receipts are written to.
func (s *LocalStore) Dir() string { return s.dir }

// Put writes body to <dir>/<folder>/<uuid><ext>. The storage id is the
// slash-separated key relative to dir.
func (s *LocalStore) Put(ctx context.Context, body []byte, folder, filename string) (domain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return domain.Receipt{}, fmt.Errorf("blob.LocalStore.Put: %w", err)
	}

	key := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	if folder != "" {
		if !filepath.IsLocal(folder) {
			return domain.Receipt{}, fmt.Errorf("blob.LocalStore.Put: folder %q escapes the store", folder)
		}
		key = path.Join(filepath.ToSlash(folder), key)
	}

	full := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return domain.Receipt{}, fmt.Errorf("blob.LocalStore.Put: mkdir: %w", err)
	}

	// Write to a temp name first so a half-written file is never served.
	tmp := full + ".part"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return domain.Receipt{}, fmt.Errorf("blob.LocalStore.Put: write: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return domain.Receipt{}, fmt.Errorf("blob.LocalStore.Put: rename: %w", err)
	}

	return domain.Receipt{URL: s.baseURL + "/" + key, StorageID: key}, nil
}

// Delete removes the file stored under storageID.
func (s *LocalStore) Delete(ctx context.Context, storageID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("blob.LocalStore.Delete: %w", err)
	}
	if !filepath.IsLocal(filepath.FromSlash(storageID)) {
		return fmt.Errorf("blob.LocalStore.Delete: storage id %q escapes the store", storageID)
	}

	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(storageID)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("blob.LocalStore.Delete: %w", err)
	}
	return nil
}
