package keystore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

// EnclaveKeyStore simulates a hardware-backed key enclave. Keys are fixed to
// the enclave's single curve (P-256, producing ES256), cannot be imported,
// and are persisted sealed under a device-bound secret that stands in for
// the hardware root of trust.
//
// The simulation keeps the enclave's contract observable in tests: a real
// deployment swaps this for a platform keychain or TPM binding.
type EnclaveKeyStore struct {
	inner *SoftKeyStore
}

// NewEnclaveKeyStore creates a simulated enclave rooted at dir. deviceSecret
// binds the sealed keys to this device identity.
func NewEnclaveKeyStore(dir string, deviceSecret []byte, log *slog.Logger) (*EnclaveKeyStore, error) {
	inner, err := NewSoftKeyStore(dir, deviceSecret, log)
	if err != nil {
		return nil, err
	}
	return &EnclaveKeyStore{inner: inner}, nil
}

// GenerateKey creates an enclave-resident key. Only KeyKindEnclaveP256 is
// producible; any other kind fails before touching the enclave.
func (s *EnclaveKeyStore) GenerateKey(tag interfaces.KeyTag, kind interfaces.KeyKind, policy interfaces.AccessPolicy) (interfaces.KeyHandle, error) {
	if kind != interfaces.KeyKindEnclaveP256 {
		return nil, fmt.Errorf("%w: enclave cannot generate kind %q", interfaces.ErrKeyGenerationFailed, kind)
	}
	if policy == interfaces.AccessPolicyNone {
		policy = interfaces.AccessPolicyHardware
	}
	return s.inner.GenerateKey(tag, kind, policy)
}

// ImportKey always fails: external key material cannot enter the enclave.
func (s *EnclaveKeyStore) ImportKey(tag interfaces.KeyTag, keyPEM []byte, policy interfaces.AccessPolicy) (interfaces.KeyHandle, error) {
	return nil, fmt.Errorf("%w: enclave keys cannot be imported", interfaces.ErrKeyGenerationFailed)
}

// FindKey returns the handle for the tag, or ErrKeyNotFound.
func (s *EnclaveKeyStore) FindKey(tag interfaces.KeyTag) (interfaces.KeyHandle, error) {
	return s.inner.FindKey(tag)
}

// DeleteKey removes the enclave key. Absent tags are success.
func (s *EnclaveKeyStore) DeleteKey(tag interfaces.KeyTag) error {
	return s.inner.DeleteKey(tag)
}

// SignWithKey signs data inside the enclave. Enclave keys only produce
// ES256; other algorithms fail with ErrUnsupportedAlgorithm.
func (s *EnclaveKeyStore) SignWithKey(ctx context.Context, tag interfaces.KeyTag, data []byte, alg interfaces.SigningAlgorithm) ([]byte, error) {
	if alg != interfaces.AlgES256 {
		return nil, fmt.Errorf("%w: enclave keys only produce %s", interfaces.ErrUnsupportedAlgorithm, interfaces.AlgES256)
	}
	return s.inner.SignWithKey(ctx, tag, data, alg)
}
