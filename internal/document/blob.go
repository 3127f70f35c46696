package document

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"legalflow/internal/ids"
)

// BlobStore writes uploaded files under a single directory with generated
// names; the database keeps the mapping back to the original filename.
type BlobStore struct {
	dir string
}

// NewBlobStore ensures the upload directory exists.
func NewBlobStore(dir string) (*BlobStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: upload directory is required", ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &BlobStore{dir: dir}, nil
}

// Save streams the upload to disk under a unique name and returns the
// stored path and byte count.
func (b *BlobStore) Save(originalName string, r io.Reader) (string, int64, error) {
	name := ids.New() + strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(b.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, err
	}
	return path, n, nil
}

// Open returns a reader over a stored blob.
func (b *BlobStore) Open(path string) (*os.File, error) {
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(b.dir)) {
		return nil, ErrNotFound
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return f, err
}

// Remove deletes a stored blob. Missing files are not an error; callers
// treat blob removal as best-effort cleanup.
func (b *BlobStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
