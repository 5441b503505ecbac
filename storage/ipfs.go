package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// IPFSBackend stores blobs in an IPFS node using the Mutable File System
// API, which gives named, overwritable paths on top of content addressing.
type IPFSBackend struct {
	shell       *shell.Shell
	root        string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates an IPFS blob backend talking to the node API at
// host:port, with blobs placed under the given MFS root directory.
func NewIPFSBackend(host, port, root string, log *slog.Logger) (*IPFSBackend, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)
	root = "/" + strings.Trim(root, "/")

	return &IPFSBackend{
		shell:       shell.NewShell(apiURL),
		root:        root,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s%s", apiURL, root),
	}, nil
}

// StoreBlob writes the blob to MFS, overwriting any previous content.
func (b *IPFSBackend) StoreBlob(ctx context.Context, name string, data []byte) error {
	mfsPath := b.blobPath(name)
	err := b.shell.FilesWrite(ctx, mfsPath, bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true),
	)
	if err != nil {
		return fmt.Errorf("failed to write %s to IPFS: %w", mfsPath, err)
	}

	b.log.Debug("Stored blob in IPFS", slog.String("path", mfsPath), slog.Int("size", len(data)))
	return nil
}

// LoadBlob reads the blob from MFS. Returns ErrBlobNotFound if the path
// does not exist.
func (b *IPFSBackend) LoadBlob(ctx context.Context, name string) ([]byte, error) {
	mfsPath := b.blobPath(name)
	reader, err := b.shell.FilesRead(ctx, mfsPath)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrBlobNotFound, name)
		}
		return nil, fmt.Errorf("failed to read %s from IPFS: %w", mfsPath, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read IPFS content: %w", err)
	}
	return data, nil
}

// DeleteBlob removes the blob from MFS. Absent paths are success.
func (b *IPFSBackend) DeleteBlob(ctx context.Context, name string) error {
	mfsPath := b.blobPath(name)
	if err := b.shell.FilesRm(ctx, mfsPath, true); err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil
		}
		return fmt.Errorf("failed to remove %s from IPFS: %w", mfsPath, err)
	}
	return nil
}

// LocationURI returns the URI identifying this backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

func (b *IPFSBackend) blobPath(name string) string {
	return path.Join(b.root, name)
}
