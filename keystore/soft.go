package keystore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/clearsign/c2pa-provisioning-backend/cryptoutils"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// SoftKeyStore persists keys on the local file system, sealed under a
// passphrase with Argon2id + AES-GCM. One file per tag; parsed handles are
// cached in memory after first use.
type SoftKeyStore struct {
	dir        string
	passphrase []byte
	log        *slog.Logger

	mu    sync.Mutex
	cache map[interfaces.KeyTag]*handle
}

// keyEnvelope is the plaintext layout sealed into a key file.
type keyEnvelope struct {
	Kind   interfaces.KeyKind      `json:"kind"`
	Policy interfaces.AccessPolicy `json:"policy"`
	KeyPEM []byte                  `json:"key_pem"`
}

// NewSoftKeyStore creates a file-backed key store rooted at dir.
func NewSoftKeyStore(dir string, passphrase []byte, log *slog.Logger) (*SoftKeyStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &SoftKeyStore{
		dir:        dir,
		passphrase: passphrase,
		log:        log,
		cache:      make(map[interfaces.KeyTag]*handle),
	}, nil
}

// GenerateKey creates a new key under the tag, replacing any existing one.
func (s *SoftKeyStore) GenerateKey(tag interfaces.KeyTag, kind interfaces.KeyKind, policy interfaces.AccessPolicy) (interfaces.KeyHandle, error) {
	signer, err := cryptoutils.GenerateKeyOfKind(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrKeyGenerationFailed, err)
	}

	keyPEM, err := cryptoutils.MarshalPrivateKey(signer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrKeyGenerationFailed, err)
	}

	h := &handle{signer: signer, tag: tag, kind: kind}
	if err := s.persist(tag, keyEnvelope{Kind: kind, Policy: policy, KeyPEM: keyPEM}); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[tag] = h
	s.mu.Unlock()

	s.log.Debug("Generated signing key", "tag", tag.String(), "kind", string(kind))
	return h, nil
}

// ImportKey stores externally supplied PEM key material under the tag.
func (s *SoftKeyStore) ImportKey(tag interfaces.KeyTag, keyPEM []byte, policy interfaces.AccessPolicy) (interfaces.KeyHandle, error) {
	signer, err := cryptoutils.KeyPEM(keyPEM).ParsePrivateKey()
	if err != nil {
		return nil, err
	}
	alg, err := cryptoutils.AlgorithmForPublicKey(signer.Public())
	if err != nil {
		return nil, err
	}
	kind := kindForAlgorithm(alg)

	h := &handle{signer: signer, tag: tag, kind: kind}
	if err := s.persist(tag, keyEnvelope{Kind: kind, Policy: policy, KeyPEM: keyPEM}); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[tag] = h
	s.mu.Unlock()

	s.log.Debug("Imported signing key", "tag", tag.String(), "kind", string(kind))
	return h, nil
}

// FindKey returns the handle for the tag, unsealing the key file on first
// use. Returns ErrKeyNotFound if no file exists.
func (s *SoftKeyStore) FindKey(tag interfaces.KeyTag) (interfaces.KeyHandle, error) {
	s.mu.Lock()
	if h, ok := s.cache[tag]; ok {
		s.mu.Unlock()
		return h, nil
	}
	s.mu.Unlock()

	sealed, err := os.ReadFile(s.keyPath(tag))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrKeyNotFound, tag)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	plaintext, err := cryptoutils.OpenWithPassphrase(s.passphrase, sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot unseal key %s: %v", interfaces.ErrInvalidCredentialFormat, tag, err)
	}

	var env keyEnvelope
	if err := json.Unmarshal(plaintext, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidCredentialFormat, err)
	}

	signer, err := cryptoutils.KeyPEM(env.KeyPEM).ParsePrivateKey()
	if err != nil {
		return nil, err
	}

	h := &handle{signer: signer, tag: tag, kind: env.Kind}
	s.mu.Lock()
	s.cache[tag] = h
	s.mu.Unlock()
	return h, nil
}

// DeleteKey removes the key file and cache entry. Absent tags are success.
func (s *SoftKeyStore) DeleteKey(tag interfaces.KeyTag) error {
	s.mu.Lock()
	delete(s.cache, tag)
	s.mu.Unlock()

	err := os.Remove(s.keyPath(tag))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete key file: %w", err)
	}
	return nil
}

// SignWithKey signs data with the tagged key using the given algorithm.
// The private key never leaves the store.
func (s *SoftKeyStore) SignWithKey(ctx context.Context, tag interfaces.KeyTag, data []byte, alg interfaces.SigningAlgorithm) ([]byte, error) {
	h, err := s.FindKey(tag)
	if err != nil {
		return nil, err
	}
	if !h.Kind().SupportsAlgorithm(alg) {
		return nil, fmt.Errorf("%w: key %s cannot produce %s", interfaces.ErrUnsupportedAlgorithm, tag, alg)
	}
	return cryptoutils.SignData(h, data, alg)
}

func (s *SoftKeyStore) persist(tag interfaces.KeyTag, env keyEnvelope) error {
	plaintext, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrKeyGenerationFailed, err)
	}

	sealed, err := cryptoutils.SealWithPassphrase(s.passphrase, plaintext)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrKeyGenerationFailed, err)
	}

	if err := os.WriteFile(s.keyPath(tag), sealed, 0600); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrKeyGenerationFailed, err)
	}
	return nil
}

func (s *SoftKeyStore) keyPath(tag interfaces.KeyTag) string {
	return filepath.Join(s.dir, tag.String()+".key")
}
