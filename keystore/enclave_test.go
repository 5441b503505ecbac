package keystore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearsign/c2pa-provisioning-backend/cryptoutils"
	"github.com/clearsign/c2pa-provisioning-backend/interfaces"
)

func newTestEnclave(t *testing.T) *EnclaveKeyStore {
	t.Helper()
	store, err := NewEnclaveKeyStore(t.TempDir(), []byte("device secret"), nil)
	require.NoError(t, err, "Failed to create test enclave")
	return store
}

func TestEnclaveGenerateKey(t *testing.T) {
	store := newTestEnclave(t)

	handle, err := store.GenerateKey(testTag, interfaces.KeyKindEnclaveP256, interfaces.AccessPolicyNone)
	require.NoError(t, err, "Enclave should generate its native kind")
	assert.Equal(t, interfaces.KeyKindEnclaveP256, handle.Kind())

	// Any other kind is rejected.
	_, err = store.GenerateKey("other.tag", interfaces.KeyKindP384, interfaces.AccessPolicyNone)
	assert.ErrorIs(t, err, interfaces.ErrKeyGenerationFailed, "Enclave should reject non-native kinds")
}

func TestEnclaveImportRejected(t *testing.T) {
	store := newTestEnclave(t)

	key, err := cryptoutils.GenerateKeyOfKind(interfaces.KeyKindP256)
	require.NoError(t, err)
	keyPEM, err := cryptoutils.MarshalPrivateKey(key)
	require.NoError(t, err)

	_, err = store.ImportKey(testTag, keyPEM, interfaces.AccessPolicyNone)
	assert.Error(t, err, "External key material must not enter the enclave")
}

func TestEnclaveSignOnlyES256(t *testing.T) {
	store := newTestEnclave(t)

	_, err := store.GenerateKey(testTag, interfaces.KeyKindEnclaveP256, interfaces.AccessPolicyHardware)
	require.NoError(t, err)

	_, err = store.SignWithKey(context.Background(), testTag, []byte("payload"), interfaces.AlgES256)
	assert.NoError(t, err, "ES256 should work")

	for _, alg := range []interfaces.SigningAlgorithm{interfaces.AlgES384, interfaces.AlgES512, interfaces.AlgEd25519} {
		_, err = store.SignWithKey(context.Background(), testTag, []byte("payload"), alg)
		assert.ErrorIs(t, err, interfaces.ErrUnsupportedAlgorithm, "Enclave should only produce ES256")
	}
}

func TestEnclaveDeleteIdempotent(t *testing.T) {
	store := newTestEnclave(t)

	assert.NoError(t, store.DeleteKey(testTag))
	assert.NoError(t, store.DeleteKey(testTag))
}
