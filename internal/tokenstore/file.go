package tokenstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the record in a local JSON file. Writes use temp file +
// rename so a crash never leaves a half-written record behind.
type FileStore struct {
	filePath string
}

// Compile-time check to ensure FileStore implements RecordStore
var _ RecordStore = (*FileStore)(nil)

// NewFileStore creates a FileStore for the given path, creating parent
// directories with 0700 permissions if they don't exist.
func NewFileStore(filePath string) (*FileStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
	}

	return &FileStore{
		filePath: filePath,
	}, nil
}

// Read returns the record bytes. Returns an error wrapping ErrNotFound if
// the file does not exist.
func (f *FileStore) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, f.filePath)
		}
		return nil, err
	}
	return data, nil
}

// Write atomically saves the record using temp file + rename, then restricts
// the file to owner read/write. A failed permission restriction does not
// fail the write; it is reported as a non-fatal warning on the receipt.
func (f *FileStore) Write(ctx context.Context, data []byte) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	// Secure temp file in the same directory so the rename stays atomic
	dir := filepath.Dir(f.filePath)
	tempFile, err := os.CreateTemp(dir, "*.tmp")
	if err != nil {
		return Receipt{}, err
	}
	tempName := tempFile.Name()
	// Cleanup deferred for all exit paths
	defer func() { _ = os.Remove(tempName) }()
	defer func() { _ = tempFile.Close() }()

	if _, err := tempFile.Write(data); err != nil {
		return Receipt{}, err
	}
	if err := tempFile.Close(); err != nil {
		return Receipt{}, err
	}

	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if err := os.Rename(tempName, f.filePath); err != nil {
		return Receipt{}, err
	}

	// Best-effort hardening (0600 = rw-------); not guaranteed on every
	// filesystem, so failure degrades to a warning rather than an error.
	receipt := Receipt{}
	if err := os.Chmod(f.filePath, 0600); err != nil {
		receipt.Warning = fmt.Errorf("could not restrict permissions on %s: %w", f.filePath, err)
	}

	return receipt, nil
}

// Location returns the file path.
func (f *FileStore) Location() string {
	return f.filePath
}
