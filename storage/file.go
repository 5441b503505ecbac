package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// FileBackend stores blobs as files under a base directory, one file per
// blob name.
type FileBackend struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a file blob backend rooted at baseDir, creating the
// directory if needed.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	return &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// StoreBlob writes the blob, overwriting any previous content.
func (b *FileBackend) StoreBlob(ctx context.Context, name string, data []byte) error {
	path, err := b.blobPath(name)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}

	b.log.Debug("Stored blob", slog.String("name", name), slog.Int("size", len(data)))
	return nil
}

// LoadBlob reads the blob. Returns ErrBlobNotFound if it does not exist.
func (b *FileBackend) LoadBlob(ctx context.Context, name string) ([]byte, error) {
	path, err := b.blobPath(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrBlobNotFound, name)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// DeleteBlob removes the blob. Absent names are success.
func (b *FileBackend) DeleteBlob(ctx context.Context, name string) error {
	path, err := b.blobPath(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// LocationURI returns the URI identifying this backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

func (b *FileBackend) blobPath(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\") {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return filepath.Join(b.baseDir, name), nil
}
