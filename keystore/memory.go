package keystore

import (
	"context"
	"fmt"
	"sync"

	"github.com/clearsign/c2pa-provisioning-backend/cryptoutils"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// MemoryKeyStore holds keys in process memory. Intended for tests.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[interfaces.KeyTag]*handle
}

// NewMemoryKeyStore creates an empty in-memory key store.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[interfaces.KeyTag]*handle)}
}

// GenerateKey creates a new key under the tag, replacing any existing one.
func (s *MemoryKeyStore) GenerateKey(tag interfaces.KeyTag, kind interfaces.KeyKind, policy interfaces.AccessPolicy) (interfaces.KeyHandle, error) {
	signer, err := cryptoutils.GenerateKeyOfKind(kind)
	if err != nil {
		return nil, err
	}

	h := &handle{signer: signer, tag: tag, kind: kind}
	s.mu.Lock()
	s.keys[tag] = h
	s.mu.Unlock()
	return h, nil
}

// ImportKey stores external PEM key material under the tag.
func (s *MemoryKeyStore) ImportKey(tag interfaces.KeyTag, keyPEM []byte, policy interfaces.AccessPolicy) (interfaces.KeyHandle, error) {
	signer, err := cryptoutils.KeyPEM(keyPEM).ParsePrivateKey()
	if err != nil {
		return nil, err
	}
	alg, err := cryptoutils.AlgorithmForPublicKey(signer.Public())
	if err != nil {
		return nil, err
	}

	h := &handle{signer: signer, tag: tag, kind: kindForAlgorithm(alg)}
	s.mu.Lock()
	s.keys[tag] = h
	s.mu.Unlock()
	return h, nil
}

// FindKey returns the handle for the tag, or ErrKeyNotFound.
func (s *MemoryKeyStore) FindKey(tag interfaces.KeyTag) (interfaces.KeyHandle, error) {
	s.mu.RLock()
	h, ok := s.keys[tag]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrKeyNotFound, tag)
	}
	return h, nil
}

// DeleteKey removes the key under the tag. Absent tags are success.
func (s *MemoryKeyStore) DeleteKey(tag interfaces.KeyTag) error {
	s.mu.Lock()
	delete(s.keys, tag)
	s.mu.Unlock()
	return nil
}

// SignWithKey signs data with the tagged key using the given algorithm.
func (s *MemoryKeyStore) SignWithKey(ctx context.Context, tag interfaces.KeyTag, data []byte, alg interfaces.SigningAlgorithm) ([]byte, error) {
	h, err := s.FindKey(tag)
	if err != nil {
		return nil, err
	}
	if !h.Kind().SupportsAlgorithm(alg) {
		return nil, fmt.Errorf("%w: key %s cannot produce %s", interfaces.ErrUnsupportedAlgorithm, tag, alg)
	}
	return cryptoutils.SignData(h, data, alg)
}

func kindForAlgorithm(alg interfaces.SigningAlgorithm) interfaces.KeyKind {
	switch alg {
	case interfaces.AlgES256:
		return interfaces.KeyKindP256
	case interfaces.AlgES384:
		return interfaces.KeyKindP384
	case interfaces.AlgES512:
		return interfaces.KeyKindP521
	case interfaces.AlgEd25519:
		return interfaces.KeyKindEd25519
	default:
		return interfaces.KeyKindP256
	}
}
