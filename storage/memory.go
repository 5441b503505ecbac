package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// MemoryBackend holds blobs in process memory. Intended for tests.
type MemoryBackend struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBackend creates an empty in-memory blob backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{blobs: make(map[string][]byte)}
}

// StoreBlob writes the blob, overwriting any previous content.
func (b *MemoryBackend) StoreBlob(ctx context.Context, name string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)

	b.mu.Lock()
	b.blobs[name] = cp
	b.mu.Unlock()
	return nil
}

// LoadBlob reads the blob. Returns ErrBlobNotFound if it does not exist.
func (b *MemoryBackend) LoadBlob(ctx context.Context, name string) ([]byte, error) {
	b.mu.RLock()
	data, ok := b.blobs[name]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrBlobNotFound, name)
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// DeleteBlob removes the blob. Absent names are success.
func (b *MemoryBackend) DeleteBlob(ctx context.Context, name string) error {
	b.mu.Lock()
	delete(b.blobs, name)
	b.mu.Unlock()
	return nil
}

// LocationURI returns the URI identifying this backend.
func (b *MemoryBackend) LocationURI() string {
	return "mem://"
}
